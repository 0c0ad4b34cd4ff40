package iot

import "errors"

// Recoverable codec errors.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInsufficientBufferSize is returned when a rendered topic would not
	// fit in the destination buffer. Nothing is written in that case.
	ErrInsufficientBufferSize = errors.New("iot: insufficient buffer size")

	// ErrTopicNoMatch is returned when a received topic does not belong to
	// the grammar being parsed. It is an ordinary outcome for unrelated
	// traffic on a shared connection.
	ErrTopicNoMatch = errors.New("iot: topic does not match")

	// ErrInvalidArgument is returned after a precondition violation has been
	// reported and the violation handler returned instead of panicking.
	ErrInvalidArgument = errors.New("iot: invalid argument")
)
