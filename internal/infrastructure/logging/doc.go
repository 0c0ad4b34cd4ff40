// Package logging builds the slog logger used by the device link and
// bridges codec diagnostics into it.
//
// Entries are JSON by default (text on request) and always carry the
// service name and build version. The diagnostics bridge turns received
// topic and payload traces into debug entries and precondition violations
// into error entries:
//
//	logger := logging.New(cfg.Logging, version)
//	d := logging.NewDiagnostics(logger, cfg.Logging.Topics)
//	hubClient, err := hub.New(host, deviceID, &hub.Options{Diagnostics: d})
//
// Received payloads can hold twin properties, so topic tracing
// (logging.topics) is off unless asked for. Shared access signatures and
// key material are never logged.
package logging
