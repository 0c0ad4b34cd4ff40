package provisioning

import (
	"errors"
	"time"

	"github.com/buger/jsonparser"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/internal/iot/diag"
	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
)

// RegistrationResult holds the outcome of a resolved operation. Every view is
// nil when the service did not send it.
type RegistrationResult struct {
	AssignedHubHostname []byte
	DeviceID            []byte
	ExtendedErrorCode   uint32
	ErrorMessage        []byte
	ErrorTimestamp      []byte
	ErrorTrackingID     []byte
}

// RegisterResponse is a parsed registration or query-status response.
type RegisterResponse struct {
	Status    iot.Status
	RequestID []byte

	// OperationID names the operation to poll. It is nil for service errors.
	OperationID []byte

	// State is the wire operation state, e.g. "assigning". Use Classify to
	// interpret it.
	State []byte

	// RetryAfterSeconds is the minimum wait before the next query.
	// HasRetryAfter distinguishes an explicit zero from an absent value.
	RetryAfterSeconds uint32
	HasRetryAfter     bool

	RegistrationResult RegistrationResult
}

// RetryAfter returns the service-requested wait, or false when the response
// carried none.
func (r *RegisterResponse) RetryAfter() (time.Duration, bool) {
	if !r.HasRetryAfter {
		return 0, false
	}
	return time.Duration(r.RetryAfterSeconds) * time.Second, true
}

// JSON key paths. Package-level so lookups do not build a slice per call.
var (
	keyOperationID  = []string{"operationId"}
	keyStatus       = []string{"status"}
	keyAssignedHub  = []string{"registrationState", "assignedHub"}
	keyDeviceID     = []string{"registrationState", "deviceId"}
	keyStateCode    = []string{"registrationState", "errorCode"}
	keyStateMessage = []string{"registrationState", "errorMessage"}
	keyStateUpdated = []string{"registrationState", "lastUpdatedDateTimeUtc"}
	keyErrorCode    = []string{"errorCode"}
	keyTrackingID   = []string{"trackingId"}
	keyMessage      = []string{"message"}
	keyTimestamp    = []string{"timestampUtc"}
)

var responseMatchers = []topic.Matcher[RegisterResponse]{
	{Name: "provisioning_response", Prefix: topic.ProvisioningResPrefix, Parse: parseResponseTopic},
}

// parseResponseTopic parses "{status}/?$rid={rid}[&retry-after={seconds}]".
func parseResponseTopic(rest []byte) (RegisterResponse, bool) {
	level, rest, found := topic.CutLevel(rest)
	if !found {
		return RegisterResponse{}, false
	}
	status, ok := topic.ParseStatus(level)
	if !ok {
		return RegisterResponse{}, false
	}
	query, ok := topic.CutQuery(rest)
	if !ok {
		return RegisterResponse{}, false
	}

	r := RegisterResponse{Status: status}
	q := topic.NewQuery(query)
	for key, value, more := q.Next(); more; key, value, more = q.Next() {
		switch string(key) {
		case topic.ParamRequestID:
			if len(value) > 0 {
				r.RequestID = value
			}
		case topic.ParamRetryAfter:
			secs, ok := topic.ParseUint32(value)
			if !ok {
				return RegisterResponse{}, false
			}
			r.RetryAfterSeconds, r.HasRetryAfter = secs, true
		}
	}
	return r, true
}

// ParseReceivedTopicAndPayload parses a message received on the register
// subscription. Topics outside the provisioning response grammar, unknown
// operation states and payloads that are neither an operation nor a service
// error return iot.ErrTopicNoMatch. An empty topic or payload is a
// precondition violation.
func (c *Client) ParseReceivedTopicAndPayload(received, payload []byte) (RegisterResponse, error) {
	if len(received) == 0 {
		return RegisterResponse{}, c.diag.Violate("provisioning.ParseReceivedTopicAndPayload", "received topic is empty")
	}
	if len(payload) == 0 {
		return RegisterResponse{}, c.diag.Violate("provisioning.ParseReceivedTopicAndPayload", "payload is empty")
	}
	c.diag.Log(diag.ClassificationReceivedTopic, received)
	c.diag.Log(diag.ClassificationReceivedPayload, payload)

	var r RegisterResponse
	if err := topic.Match(responseMatchers, received, &r); err != nil {
		return RegisterResponse{}, err
	}
	if !parsePayload(payload, &r) {
		return RegisterResponse{}, iot.ErrTopicNoMatch
	}
	return r, nil
}

// parsePayload fills the body fields of r. It handles the operation body
// and the service error body.
func parsePayload(payload []byte, r *RegisterResponse) bool {
	if opID, ok := lookupString(payload, keyOperationID); ok {
		state, ok := lookupString(payload, keyStatus)
		if !ok {
			return false
		}
		if _, known := parseState(state); !known {
			return false
		}
		r.OperationID = opID
		r.State = state

		res := &r.RegistrationResult
		res.AssignedHubHostname, _ = lookupString(payload, keyAssignedHub)
		res.DeviceID, _ = lookupString(payload, keyDeviceID)
		res.ErrorMessage, _ = lookupString(payload, keyStateMessage)
		res.ErrorTimestamp, _ = lookupString(payload, keyStateUpdated)
		code, ok := lookupCode(payload, keyStateCode)
		if !ok {
			return false
		}
		res.ExtendedErrorCode = code
		return true
	}

	// Without an operation the body is a service error, which only comes
	// with a failure status.
	if !r.Status.Failed() {
		return false
	}
	code, ok := lookupCode(payload, keyErrorCode)
	if !ok {
		return false
	}
	res := &r.RegistrationResult
	res.ExtendedErrorCode = code
	res.ErrorTrackingID, _ = lookupString(payload, keyTrackingID)
	res.ErrorMessage, _ = lookupString(payload, keyMessage)
	res.ErrorTimestamp, _ = lookupString(payload, keyTimestamp)
	return true
}

// lookupString returns a non-empty string value at path.
func lookupString(payload []byte, path []string) ([]byte, bool) {
	value, typ, _, err := jsonparser.Get(payload, path...)
	if err != nil || typ != jsonparser.String || len(value) == 0 {
		return nil, false
	}
	return value, true
}

// lookupCode returns the numeric error code at path. An absent code is zero;
// a code that is not a plain unsigned integer fails.
func lookupCode(payload []byte, path []string) (uint32, bool) {
	value, typ, _, err := jsonparser.Get(payload, path...)
	if errors.Is(err, jsonparser.KeyPathNotFoundError) {
		return 0, true
	}
	if err != nil || typ != jsonparser.Number {
		return 0, false
	}
	return topic.ParseUint32(value)
}
