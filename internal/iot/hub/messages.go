package hub

import (
	"bytes"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
)

// C2DRequest is a parsed cloud-to-device message topic.
type C2DRequest struct {
	// Properties is the URL-encoded property bag that trails the topic. It
	// is nil when the message has no properties.
	Properties []byte
}

// TelemetryPublishTopic writes the device-to-cloud telemetry topic.
func (c *Client) TelemetryPublishTopic(dst []byte) (int, error) {
	return c.render(topic.KindTelemetryPublish, nil, 0, dst)
}

// C2DSubscribeTopicFilter writes the filter for cloud-to-device messages.
func (c *Client) C2DSubscribeTopicFilter(dst []byte) (int, error) {
	return c.render(topic.KindC2DSubscribeFilter, nil, 0, dst)
}

// ParseC2DTopic classifies a received cloud-to-device topic. Only topics
// addressed to this client's device id match.
func (c *Client) ParseC2DTopic(received []byte) (C2DRequest, error) {
	if len(received) == 0 {
		return C2DRequest{}, c.diag.Violate("hub.ParseC2DTopic", "received topic is empty")
	}
	c.logReceived(received)

	rest, ok := topic.CutPrefix(received, topic.DevicesPrefix)
	if !ok || !bytes.HasPrefix(rest, c.identity.DeviceID) {
		return C2DRequest{}, iot.ErrTopicNoMatch
	}
	rest, ok = topic.CutPrefix(rest[len(c.identity.DeviceID):], topic.C2DSegment)
	if !ok {
		return C2DRequest{}, iot.ErrTopicNoMatch
	}
	return C2DRequest{Properties: nonEmpty(rest)}, nil
}
