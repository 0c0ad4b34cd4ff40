package provisioner

import "errors"

var (
	// ErrRegistrationFailed is returned when the operation ends failed or
	// disabled, or the service rejects the request outright.
	ErrRegistrationFailed = errors.New("provisioner: registration failed")

	// ErrTimeout is returned when no terminal state arrives within
	// Config.PollTimeout.
	ErrTimeout = errors.New("provisioner: registration timed out")

	// ErrMissingDependency is returned by New when a required dependency is missing.
	ErrMissingDependency = errors.New("provisioner: missing dependency")
)
