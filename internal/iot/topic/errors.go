package topic

import "errors"

// Validation errors. The returned error wraps one of these with the reason,
// e.g. "topic: invalid name: wildcard at offset 2".
var (
	ErrInvalidName   = errors.New("topic: invalid name")
	ErrInvalidFilter = errors.New("topic: invalid filter")
)
