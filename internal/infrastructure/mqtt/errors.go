package mqtt

import "errors"

// Sentinel errors. Callers match them with errors.Is; wrapped errors carry
// the broker or paho detail.
var (
	ErrNotConnected      = errors.New("mqtt: client not connected")
	ErrConnectionFailed  = errors.New("mqtt: connection failed")
	ErrTLSConfig         = errors.New("mqtt: invalid TLS configuration")
	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS is returned for QoS 2, which neither the hub nor the
	// provisioning service accept.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0 or 1)")

	ErrInvalidTopic = errors.New("mqtt: invalid topic")

	// ErrTopicTooLong is returned by Topic when a rendered topic does not
	// fit the MQTT limit.
	ErrTopicTooLong = errors.New("mqtt: rendered topic too long")
)
