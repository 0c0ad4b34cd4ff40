package hub

import (
	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
)

// TwinResponseType tells which twin event a received topic carries.
type TwinResponseType uint8

// Twin response types.
const (
	// TwinResponseTypeGet answers a twin document request.
	TwinResponseTypeGet TwinResponseType = iota + 1

	// TwinResponseTypeDesiredProperties is a desired properties push from
	// the service. It has no request id.
	TwinResponseTypeDesiredProperties

	// TwinResponseTypeReportedProperties acknowledges a reported
	// properties patch.
	TwinResponseTypeReportedProperties

	// TwinResponseTypeRequestError answers a get or patch request with a
	// failure status.
	TwinResponseTypeRequestError
)

// String returns the response type name.
func (t TwinResponseType) String() string {
	switch t {
	case TwinResponseTypeGet:
		return "get"
	case TwinResponseTypeDesiredProperties:
		return "desired_properties"
	case TwinResponseTypeReportedProperties:
		return "reported_properties"
	case TwinResponseTypeRequestError:
		return "request_error"
	default:
		return "unknown"
	}
}

// TwinResponse is a parsed twin topic. Responses always carry RequestID;
// desired pushes never do. Version is nil when the topic does not carry it.
type TwinResponse struct {
	Type      TwinResponseType
	Status    iot.Status
	RequestID []byte
	Version   []byte
}

// VersionNumber converts Version to an integer. It reports false when the
// version is absent or not a plain decimal number.
func (r *TwinResponse) VersionNumber() (uint32, bool) {
	return topic.ParseUint32(r.Version)
}

// twinMatchers lists twin productions, most specific prefix first.
var twinMatchers = []topic.Matcher[TwinResponse]{
	{Name: "twin_response", Prefix: topic.TwinResponsePrefix, Parse: parseTwinResponse},
	{Name: "twin_desired", Prefix: topic.TwinDesiredPrefix, Parse: parseTwinDesired},
}

// parseTwinResponse parses "{status}/?$rid={rid}[&$version={version}]".
func parseTwinResponse(rest []byte) (TwinResponse, bool) {
	level, rest, found := topic.CutLevel(rest)
	if !found {
		return TwinResponse{}, false
	}
	status, ok := topic.ParseStatus(level)
	if !ok {
		return TwinResponse{}, false
	}
	query, ok := topic.CutQuery(rest)
	if !ok {
		return TwinResponse{}, false
	}

	r := TwinResponse{Status: status}
	q := topic.NewQuery(query)
	for key, value, more := q.Next(); more; key, value, more = q.Next() {
		switch string(key) {
		case topic.ParamRequestID:
			r.RequestID = nonEmpty(value)
		case topic.ParamVersion:
			r.Version = nonEmpty(value)
		}
	}
	if r.RequestID == nil {
		return TwinResponse{}, false
	}

	switch {
	case status.Failed():
		r.Type = TwinResponseTypeRequestError
	case status == iot.StatusNoContent:
		r.Type = TwinResponseTypeReportedProperties
	default:
		r.Type = TwinResponseTypeGet
	}
	return r, true
}

// parseTwinDesired parses "?$version={version}".
func parseTwinDesired(rest []byte) (TwinResponse, bool) {
	query, ok := topic.CutQuery(rest)
	if !ok {
		return TwinResponse{}, false
	}
	version, ok := topic.QueryValue(query, topic.ParamVersion)
	if !ok || len(version) == 0 {
		return TwinResponse{}, false
	}
	return TwinResponse{
		Type:    TwinResponseTypeDesiredProperties,
		Status:  iot.StatusOK,
		Version: version,
	}, true
}

func nonEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

// TwinResponseSubscribeTopicFilter writes the filter for twin get and patch
// responses into dst.
func (c *Client) TwinResponseSubscribeTopicFilter(dst []byte) (int, error) {
	return c.render(topic.KindTwinResponseSubscribeFilter, nil, 0, dst)
}

// TwinPatchSubscribeTopicFilter writes the filter for desired properties
// pushes into dst.
func (c *Client) TwinPatchSubscribeTopicFilter(dst []byte) (int, error) {
	return c.render(topic.KindTwinPatchSubscribeFilter, nil, 0, dst)
}

// TwinGetPublishTopic writes the topic that requests the twin document.
// requestID must be non-empty.
func (c *Client) TwinGetPublishTopic(requestID, dst []byte) (int, error) {
	return c.render(topic.KindTwinGetPublish, requestID, 0, dst)
}

// TwinPatchPublishTopic writes the topic that patches reported properties.
// requestID must be non-empty.
func (c *Client) TwinPatchPublishTopic(requestID, dst []byte) (int, error) {
	return c.render(topic.KindTwinPatchPublish, requestID, 0, dst)
}

// ParseTwinTopic classifies a received topic. Topics outside the twin
// grammar return iot.ErrTopicNoMatch. An empty topic is a precondition
// violation.
func (c *Client) ParseTwinTopic(received []byte) (TwinResponse, error) {
	if len(received) == 0 {
		return TwinResponse{}, c.diag.Violate("hub.ParseTwinTopic", "received topic is empty")
	}
	c.logReceived(received)

	var r TwinResponse
	if err := topic.Match(twinMatchers, received, &r); err != nil {
		return TwinResponse{}, err
	}
	return r, nil
}
