package iot

// Status is the numeric result code carried in response topics.
// Parsers extract it without checking it against the known set.
type Status int

// Status codes used by the hub and provisioning services.
const (
	StatusOK                    Status = 200
	StatusAccepted              Status = 202
	StatusNoContent             Status = 204
	StatusBadRequest            Status = 400
	StatusUnauthorized          Status = 401
	StatusForbidden             Status = 403
	StatusNotFound              Status = 404
	StatusNotAllowed            Status = 405
	StatusNotConflict           Status = 409
	StatusPreconditionFailed    Status = 412
	StatusRequestEntityTooLarge Status = 413
	StatusUnsupportedType       Status = 415
	StatusThrottled             Status = 429
	StatusClientClosed          Status = 499
	StatusServerError           Status = 500
	StatusBadGateway            Status = 502
	StatusServiceUnavailable    Status = 503
	StatusTimeout               Status = 504
)

// Failed reports whether the status is outside the 1xx-2xx success range.
func (s Status) Failed() bool {
	return s >= 300
}

// Retriable reports whether a request that produced this status may be sent
// again after waiting. Throttling and server-side failures are retriable.
func (s Status) Retriable() bool {
	return s == StatusThrottled || s >= StatusServerError
}
