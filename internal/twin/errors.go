package twin

import "errors"

var (
	// ErrRequestFailed is returned when the hub answers with a failure status.
	ErrRequestFailed = errors.New("twin: request failed")

	// ErrClosed is returned for requests made on, or pending at, a closed session.
	ErrClosed = errors.New("twin: session closed")

	// ErrNotStarted is returned for requests made before Start.
	ErrNotStarted = errors.New("twin: session not started")

	// ErrMissingDependency is returned by New when a required dependency is missing.
	ErrMissingDependency = errors.New("twin: missing dependency")
)
