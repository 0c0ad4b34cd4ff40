package logging

import (
	"context"
	"log/slog"

	"github.com/nerrad567/gray-logic-iot/internal/iot/diag"
)

// DiagnosticsSink returns a codec log callback that writes received topics
// and payloads to l at debug level. The message is copied into the record,
// so the codec's buffer may be reused after the call.
func DiagnosticsSink(l *Logger) diag.LogFunc {
	return func(c diag.Classification, message []byte) {
		if !l.Enabled(context.Background(), slog.LevelDebug) {
			return
		}
		l.LogAttrs(context.Background(), slog.LevelDebug, "mqtt message",
			slog.String("classification", c.String()),
			slog.String("message", string(message)),
		)
	}
}

// ViolationReporter returns a violation handler that logs the breach at
// error level instead of panicking. The codec call then returns
// iot.ErrInvalidArgument.
func ViolationReporter(l *Logger) diag.ViolationFunc {
	return func(v diag.Violation) {
		l.Error("codec precondition violated",
			"op", v.Op,
			"reason", v.Reason,
		)
	}
}

// NewDiagnostics builds codec diagnostics wired to l. Topic logging is only
// installed when logTopics is set.
func NewDiagnostics(l *Logger, logTopics bool) *diag.Diagnostics {
	d := diag.New()
	d.SetViolationHandler(ViolationReporter(l))
	if logTopics {
		d.SetLogCallback(DiagnosticsSink(l))
	}
	return d
}
