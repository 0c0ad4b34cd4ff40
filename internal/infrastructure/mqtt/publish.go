package mqtt

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
)

// maxPayloadSize is the hub's message size limit.
const maxPayloadSize = 256 << 10

// Publish sends payload to name and waits for the broker to accept it.
// At QoS 1 that means the PUBACK arrived. The hub ignores retained; it is
// passed through for local brokers.
//
//	t, _ := mqtt.Topic(hubClient.TelemetryPublishTopic)
//	err := client.Publish(t, []byte(`{"temp":21.5}`), 1, false)
func (c *Client) Publish(name string, payload []byte, qos byte, retained bool) error {
	if err := topic.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTopic, err)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload is %d bytes, limit %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	if err := await(context.Background(), c.client.Publish(name, qos, retained, payload), defaultOperationTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, name, err)
	}
	return nil
}

// PublishDefault publishes without retain at the configured QoS.
func (c *Client) PublishDefault(name string, payload []byte) error {
	return c.Publish(name, payload, byte(c.cfg.QoS), false) //nolint:gosec // Validated to 0 or 1 by config
}
