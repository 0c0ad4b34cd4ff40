package hub

import (
	"bytes"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/internal/iot/diag"
	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
)

// Options are the optional parts of a hub identity.
type Options struct {
	// ModuleID selects a module identity on the device. Empty means the
	// device identity itself.
	ModuleID []byte

	// UserAgent is appended to the MQTT user name as DeviceClientType.
	UserAgent []byte

	// Diagnostics receives logs and precondition violations. Nil uses the
	// panicking default with logging disabled.
	Diagnostics *diag.Diagnostics
}

// Client is the device identity every hub topic is rendered from.
//
// Thread Safety:
//   - A Client is immutable after New and may be shared between goroutines.
//   - Each goroutine must supply its own destination buffers.
type Client struct {
	identity topic.Fields
	diag     *diag.Diagnostics
}

// New builds a Client. hostname and deviceID must be non-empty; an empty
// value is a precondition violation and New returns iot.ErrInvalidArgument
// if the violation handler returns. The identity bytes are copied.
func New(hostname, deviceID []byte, opts *Options) (*Client, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if len(hostname) == 0 {
		return nil, o.Diagnostics.Violate("hub.New", "hostname is empty")
	}
	if len(deviceID) == 0 {
		return nil, o.Diagnostics.Violate("hub.New", "device_id is empty")
	}

	return &Client{
		identity: topic.Fields{
			Hostname:  bytes.Clone(hostname),
			DeviceID:  bytes.Clone(deviceID),
			ModuleID:  bytes.Clone(o.ModuleID),
			UserAgent: bytes.Clone(o.UserAgent),
		},
		diag: o.Diagnostics,
	}, nil
}

// Hostname returns the hub host name. The result must not be modified.
func (c *Client) Hostname() []byte { return c.identity.Hostname }

// DeviceID returns the device id. The result must not be modified.
func (c *Client) DeviceID() []byte { return c.identity.DeviceID }

// ModuleID returns the module id, or nil for a device identity.
func (c *Client) ModuleID() []byte { return c.identity.ModuleID }

// ClientID writes the MQTT client identifier into dst.
func (c *Client) ClientID(dst []byte) (int, error) {
	return c.render(topic.KindHubClientID, nil, 0, dst)
}

// UserName writes the MQTT user name into dst.
func (c *Client) UserName(dst []byte) (int, error) {
	return c.render(topic.KindHubUserName, nil, 0, dst)
}

// TopicLen returns the exact length of the kind topic rendered with
// requestID and status, for sizing the destination buffer. Arguments a kind
// does not use are ignored.
func (c *Client) TopicLen(kind topic.Kind, requestID []byte, status iot.Status) int {
	f := c.fields(requestID, status)
	return topic.Len(kind, &f)
}

func (c *Client) render(kind topic.Kind, requestID []byte, status iot.Status, dst []byte) (int, error) {
	f := c.fields(requestID, status)
	return topic.Render(c.diag, kind, &f, dst)
}

func (c *Client) fields(requestID []byte, status iot.Status) topic.Fields {
	f := c.identity
	f.RequestID = requestID
	f.Status = status
	return f
}

// logReceived emits the received topic once per parse call.
func (c *Client) logReceived(received []byte) {
	c.diag.Log(diag.ClassificationReceivedTopic, received)
}
