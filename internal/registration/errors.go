package registration

import "errors"

// ErrNotFound is returned when no assignment exists for a registration id.
var ErrNotFound = errors.New("registration: assignment not found")

// ErrInvalidAssignment is returned by Save for rows missing required fields.
var ErrInvalidAssignment = errors.New("registration: invalid assignment")
