package hub

import (
	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
)

// MethodRequest is a parsed direct method invocation.
type MethodRequest struct {
	Name      []byte
	RequestID []byte
}

var methodMatchers = []topic.Matcher[MethodRequest]{
	{Name: "method_request", Prefix: topic.MethodsPrefix, Parse: parseMethodRequest},
}

// parseMethodRequest parses "{name}/?$rid={rid}".
func parseMethodRequest(rest []byte) (MethodRequest, bool) {
	name, rest, found := topic.CutLevel(rest)
	if !found || len(name) == 0 {
		return MethodRequest{}, false
	}
	query, ok := topic.CutQuery(rest)
	if !ok {
		return MethodRequest{}, false
	}
	rid, ok := topic.QueryValue(query, topic.ParamRequestID)
	if !ok || len(rid) == 0 {
		return MethodRequest{}, false
	}
	return MethodRequest{Name: name, RequestID: rid}, true
}

// MethodsSubscribeTopicFilter writes the filter for direct method calls.
func (c *Client) MethodsSubscribeTopicFilter(dst []byte) (int, error) {
	return c.render(topic.KindMethodsSubscribeFilter, nil, 0, dst)
}

// MethodsResponsePublishTopic writes the topic that answers the method call
// identified by requestID with status.
func (c *Client) MethodsResponsePublishTopic(requestID []byte, status iot.Status, dst []byte) (int, error) {
	return c.render(topic.KindMethodsResponsePublish, requestID, status, dst)
}

// ParseMethodTopic classifies a received direct method topic.
func (c *Client) ParseMethodTopic(received []byte) (MethodRequest, error) {
	if len(received) == 0 {
		return MethodRequest{}, c.diag.Violate("hub.ParseMethodTopic", "received topic is empty")
	}
	c.logReceived(received)

	var r MethodRequest
	if err := topic.Match(methodMatchers, received, &r); err != nil {
		return MethodRequest{}, err
	}
	return r, nil
}
