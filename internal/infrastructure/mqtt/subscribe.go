package mqtt

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
)

// Subscribe routes messages matching filter to handler and keeps the
// subscription across reconnects.
//
//	filter, _ := mqtt.Topic(hubClient.TwinResponseSubscribeTopicFilter)
//	err := client.Subscribe(filter, 1, func(t, payload []byte) error {
//	    resp, err := hubClient.ParseTwinTopic(t)
//	    ...
//	})
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if err := topic.ValidateFilter(filter); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTopic, err)
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Track before the broker acknowledges so a reconnect racing the
	// SUBACK still restores it.
	c.subMu.Lock()
	c.subscriptions[filter] = subscription{qos: qos, handler: handler}
	c.subMu.Unlock()

	if err := await(context.Background(), c.client.Subscribe(filter, qos, c.wrapHandler(handler)), defaultOperationTimeout); err != nil {
		c.forget(filter)
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, filter, err)
	}
	return nil
}

// Unsubscribe stops delivery for filter. Messages already in flight may
// still reach the handler.
func (c *Client) Unsubscribe(filter string) error {
	if err := topic.ValidateFilter(filter); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTopic, err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.forget(filter)
	if err := await(context.Background(), c.client.Unsubscribe(filter), defaultOperationTimeout); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnsubscribeFailed, filter, err)
	}
	return nil
}

func (c *Client) forget(filter string) {
	c.subMu.Lock()
	delete(c.subscriptions, filter)
	c.subMu.Unlock()
}

// SubscriptionCount returns the number of tracked subscriptions.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription reports whether exactly filter is tracked.
func (c *Client) HasSubscription(filter string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	_, ok := c.subscriptions[filter]
	return ok
}
