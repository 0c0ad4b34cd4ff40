package mqtt

import (
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/internal/iot/hub"
	"github.com/nerrad567/gray-logic-iot/internal/iot/provisioning"
	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
)

// Topic buffer sizing. Topic starts small and doubles up to the MQTT limit.
const (
	initialTopicSize = 128
	maxTopicSize     = 65535
)

// RenderFunc writes a topic into dst. Every codec render method has this
// shape, e.g. hubClient.TwinResponseSubscribeTopicFilter.
type RenderFunc func(dst []byte) (int, error)

// Topic renders a codec topic into a string, growing the buffer while the
// codec reports it too small.
//
// Example:
//
//	filter, err := mqtt.Topic(hubClient.TwinResponseSubscribeTopicFilter)
//	err = client.Subscribe(filter, 1, handler)
func Topic(render RenderFunc) (string, error) {
	return SizedTopic(initialTopicSize, render)
}

// SizedTopic is Topic with a first buffer of size bytes, normally the
// codec's TopicLen for the same topic so a single render suffices. A
// non-positive size uses Topic's default.
func SizedTopic(size int, render RenderFunc) (string, error) {
	if size <= 0 {
		size = initialTopicSize
	}
	size = min(size, maxTopicSize)
	for {
		buf := make([]byte, size)
		n, err := render(buf)
		if err == nil {
			return string(buf[:n]), nil
		}
		if !errors.Is(err, iot.ErrInsufficientBufferSize) {
			return "", err
		}
		if size == maxTopicSize {
			return "", ErrTopicTooLong
		}
		size = min(size*2, maxTopicSize)
	}
}

// HubIdentity returns the connection identity of a hub device.
func HubIdentity(c *hub.Client) (Identity, error) {
	clientID, err := SizedTopic(c.TopicLen(topic.KindHubClientID, nil, 0), c.ClientID)
	if err != nil {
		return Identity{}, fmt.Errorf("rendering client id: %w", err)
	}
	username, err := SizedTopic(c.TopicLen(topic.KindHubUserName, nil, 0), c.UserName)
	if err != nil {
		return Identity{}, fmt.Errorf("rendering user name: %w", err)
	}
	return Identity{
		Host:     string(c.Hostname()),
		ClientID: clientID,
		Username: username,
	}, nil
}

// ProvisioningIdentity returns the connection identity of a registration.
func ProvisioningIdentity(c *provisioning.Client) (Identity, error) {
	clientID, err := SizedTopic(c.TopicLen(topic.KindProvisioningClientID, nil), c.ClientID)
	if err != nil {
		return Identity{}, fmt.Errorf("rendering client id: %w", err)
	}
	username, err := SizedTopic(c.TopicLen(topic.KindProvisioningUserName, nil), c.UserName)
	if err != nil {
		return Identity{}, fmt.Errorf("rendering user name: %w", err)
	}
	return Identity{
		Host:     string(c.GlobalEndpoint()),
		ClientID: clientID,
		Username: username,
	}, nil
}
