// Package diag carries the two caller-owned hooks the topic codec invokes:
// a classified log callback and a precondition-violation handler.
//
// A Diagnostics value is handed to a codec client at construction and is
// read on every call. Configure it before the client is shared between
// goroutines; the codec does not lock it.
//
//	d := diag.New()
//	d.SetLogCallback(func(c diag.Classification, msg []byte) {
//	    slog.Debug("iot", "classification", c, "message", string(msg))
//	})
//	d.SetClassifications(diag.ClassificationReceivedTopic)
//
//	client, err := hub.New(host, device, &hub.Options{Diagnostics: d})
//
// A nil *Diagnostics is valid: nothing is logged and violations panic.
package diag
