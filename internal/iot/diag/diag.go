package diag

import (
	"fmt"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
)

// Classification identifies the kind of message passed to a LogFunc.
type Classification uint8

// Log classifications emitted by the codec.
const (
	// ClassificationReceivedTopic is emitted once per parse call with the
	// unmodified received topic.
	ClassificationReceivedTopic Classification = iota + 1

	// ClassificationReceivedPayload is emitted by parsers that also read the
	// message payload.
	ClassificationReceivedPayload
)

// String returns the classification name.
func (c Classification) String() string {
	switch c {
	case ClassificationReceivedTopic:
		return "mqtt_received_topic"
	case ClassificationReceivedPayload:
		return "mqtt_received_payload"
	default:
		return "unknown"
	}
}

// LogFunc receives log messages. The message aliases codec input and is only
// valid for the duration of the call.
type LogFunc func(classification Classification, message []byte)

// Violation describes a broken API contract.
type Violation struct {
	// Op is the operation that was called, e.g. "hub.TwinGetPublishTopic".
	Op string

	// Reason names the argument at fault.
	Reason string
}

// String formats the violation for panics and logs.
func (v Violation) String() string {
	return fmt.Sprintf("%s: precondition violated: %s", v.Op, v.Reason)
}

// ViolationFunc handles a precondition violation. If it returns, the codec
// call that detected the violation stops and returns iot.ErrInvalidArgument.
type ViolationFunc func(v Violation)

// PanicOnViolation is the default ViolationFunc.
func PanicOnViolation(v Violation) {
	panic(v.String())
}

// Diagnostics holds the log callback, the enabled classification set and the
// violation handler for one or more codec clients.
type Diagnostics struct {
	logFn       LogFunc
	enabled     uint32 // bit per Classification; zero means all enabled
	onViolation ViolationFunc
}

// New returns Diagnostics with no log callback and the panicking violation
// handler.
func New() *Diagnostics {
	return &Diagnostics{onViolation: PanicOnViolation}
}

// SetLogCallback registers fn as the log sink. Passing nil disables logging.
func (d *Diagnostics) SetLogCallback(fn LogFunc) {
	d.logFn = fn
}

// SetClassifications restricts logging to the given classifications.
// Calling it with no arguments enables every classification again.
func (d *Diagnostics) SetClassifications(classifications ...Classification) {
	var mask uint32
	for _, c := range classifications {
		mask |= 1 << c
	}
	d.enabled = mask
}

// SetViolationHandler replaces the violation handler. Passing nil restores
// PanicOnViolation.
func (d *Diagnostics) SetViolationHandler(fn ViolationFunc) {
	if fn == nil {
		fn = PanicOnViolation
	}
	d.onViolation = fn
}

// ShouldLog reports whether a message of the given classification would be
// delivered.
func (d *Diagnostics) ShouldLog(c Classification) bool {
	if d == nil || d.logFn == nil {
		return false
	}
	return d.enabled == 0 || d.enabled&(1<<c) != 0
}

// Log delivers message to the callback when the classification is enabled.
func (d *Diagnostics) Log(c Classification, message []byte) {
	if d.ShouldLog(c) {
		d.logFn(c, message)
	}
}

// Violate reports a precondition violation and returns the error the caller
// must return. The default handler never returns.
func (d *Diagnostics) Violate(op, reason string) error {
	v := Violation{Op: op, Reason: reason}
	if d == nil || d.onViolation == nil {
		PanicOnViolation(v)
	}
	d.onViolation(v)
	return iot.ErrInvalidArgument
}

// Recorder is a ViolationFunc target that keeps violations instead of
// panicking. Tests install it with SetViolationHandler(rec.Record).
type Recorder struct {
	Violations []Violation
}

// Record appends v.
func (r *Recorder) Record(v Violation) {
	r.Violations = append(r.Violations, v)
}

// Count returns the number of recorded violations.
func (r *Recorder) Count() int {
	return len(r.Violations)
}
