package provisioning

import (
	"bytes"

	"github.com/nerrad567/gray-logic-iot/internal/iot/diag"
	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
)

// Options are the optional parts of a provisioning identity.
type Options struct {
	// UserAgent is appended to the MQTT user name as ClientVersion.
	UserAgent []byte

	// Diagnostics receives logs and precondition violations. Nil uses the
	// panicking default with logging disabled.
	Diagnostics *diag.Diagnostics
}

// Client is the registration identity every provisioning topic is rendered
// from. It is immutable after New and safe to share between goroutines.
type Client struct {
	globalEndpoint []byte
	identity       topic.Fields
	diag           *diag.Diagnostics
}

// New builds a Client. All three identity values must be non-empty; an
// empty value is a precondition violation and New returns
// iot.ErrInvalidArgument if the violation handler returns.
func New(globalEndpoint, idScope, registrationID []byte, opts *Options) (*Client, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	switch {
	case len(globalEndpoint) == 0:
		return nil, o.Diagnostics.Violate("provisioning.New", "global_endpoint is empty")
	case len(idScope) == 0:
		return nil, o.Diagnostics.Violate("provisioning.New", "id_scope is empty")
	case len(registrationID) == 0:
		return nil, o.Diagnostics.Violate("provisioning.New", "registration_id is empty")
	}

	return &Client{
		globalEndpoint: bytes.Clone(globalEndpoint),
		identity: topic.Fields{
			IDScope:        bytes.Clone(idScope),
			RegistrationID: bytes.Clone(registrationID),
			UserAgent:      bytes.Clone(o.UserAgent),
		},
		diag: o.Diagnostics,
	}, nil
}

// GlobalEndpoint returns the broker host the device connects to.
func (c *Client) GlobalEndpoint() []byte { return c.globalEndpoint }

// RegistrationID returns the registration id. The result must not be
// modified.
func (c *Client) RegistrationID() []byte { return c.identity.RegistrationID }

// ClientID writes the MQTT client identifier into dst.
func (c *Client) ClientID(dst []byte) (int, error) {
	return c.render(topic.KindProvisioningClientID, nil, dst)
}

// UserName writes the MQTT user name into dst.
func (c *Client) UserName(dst []byte) (int, error) {
	return c.render(topic.KindProvisioningUserName, nil, dst)
}

// RegisterSubscribeTopicFilter writes the filter for registration responses.
func (c *Client) RegisterSubscribeTopicFilter(dst []byte) (int, error) {
	return c.render(topic.KindProvisioningRegisterSubscribeFilter, nil, dst)
}

// RegisterPublishTopic writes the topic that starts a registration.
func (c *Client) RegisterPublishTopic(dst []byte) (int, error) {
	return c.render(topic.KindProvisioningRegisterPublish, nil, dst)
}

// QueryStatusPublishTopic writes the topic that polls the operation named
// in resp. resp must carry an operation id.
func (c *Client) QueryStatusPublishTopic(resp *RegisterResponse, dst []byte) (int, error) {
	if resp == nil {
		return 0, c.diag.Violate("provisioning.QueryStatusPublishTopic", "response is nil")
	}
	return c.render(topic.KindProvisioningQueryStatusPublish, resp.OperationID, dst)
}

// TopicLen returns the exact length of the kind topic rendered with
// operationID, which only the query-status publish uses.
func (c *Client) TopicLen(kind topic.Kind, operationID []byte) int {
	f := c.identity
	f.OperationID = operationID
	return topic.Len(kind, &f)
}

func (c *Client) render(kind topic.Kind, operationID, dst []byte) (int, error) {
	f := c.identity
	f.OperationID = operationID
	return topic.Render(c.diag, kind, &f, dst)
}
