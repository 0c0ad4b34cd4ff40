package topic

import "github.com/nerrad567/gray-logic-iot/internal/iot"

// Kind identifies one outbound topic production.
type Kind uint8

// Topic kinds.
const (
	KindTwinResponseSubscribeFilter Kind = iota + 1
	KindTwinGetPublish
	KindTwinPatchSubscribeFilter
	KindTwinPatchPublish
	KindProvisioningRegisterSubscribeFilter
	KindProvisioningRegisterPublish
	KindProvisioningQueryStatusPublish
	KindHubClientID
	KindHubUserName
	KindTelemetryPublish
	KindC2DSubscribeFilter
	KindMethodsSubscribeFilter
	KindMethodsResponsePublish
	KindProvisioningClientID
	KindProvisioningUserName

	kindCount
)

// String returns the kind name.
func (k Kind) String() string {
	if s, ok := lookup(k); ok {
		return s.Name
	}
	return "unknown"
}

// Field names a substitution slot in a template.
type Field uint8

// Template fields.
const (
	FieldNone Field = iota
	FieldHostname
	FieldDeviceID
	FieldModuleID
	FieldRequestID
	FieldVersion
	FieldStatus
	FieldOperationID
	FieldIDScope
	FieldRegistrationID
	FieldUserAgent
)

// String returns the field name as used in violation reasons.
func (f Field) String() string {
	switch f {
	case FieldHostname:
		return "hostname"
	case FieldDeviceID:
		return "device_id"
	case FieldModuleID:
		return "module_id"
	case FieldRequestID:
		return "request_id"
	case FieldVersion:
		return "version"
	case FieldStatus:
		return "status"
	case FieldOperationID:
		return "operation_id"
	case FieldIDScope:
		return "id_scope"
	case FieldRegistrationID:
		return "registration_id"
	case FieldUserAgent:
		return "user_agent"
	default:
		return "none"
	}
}

// Fields are the values substituted into a template. Unused fields are
// ignored by kinds that do not reference them.
type Fields struct {
	Hostname       []byte
	DeviceID       []byte
	ModuleID       []byte
	RequestID      []byte
	Version        []byte
	OperationID    []byte
	IDScope        []byte
	RegistrationID []byte
	UserAgent      []byte
	Status         iot.Status
}

// Segment is one piece of a template. A segment writes its Literal followed
// by the value of Field. When is optional: if set, the segment is skipped
// unless that field is non-empty.
type Segment struct {
	Literal string
	Field   Field
	When    Field
}

// Spec is the grammar of one topic kind.
type Spec struct {
	Name     string
	Segments []Segment
	Requires []Field
}

// Wire literals shared by encoders and decoders.
const (
	TwinPrefix            = "$iothub/twin/"
	TwinResponsePrefix    = "$iothub/twin/res/"
	TwinDesiredPrefix     = "$iothub/twin/PATCH/properties/desired/"
	MethodsPrefix         = "$iothub/methods/POST/"
	DevicesPrefix         = "devices/"
	C2DSegment            = "/messages/devicebound/"
	ProvisioningPrefix    = "$dps/registrations/"
	ProvisioningResPrefix = "$dps/registrations/res/"

	HubAPIVersion          = "2018-06-30"
	ProvisioningAPIVersion = "2019-03-31"

	ParamRequestID   = "$rid"
	ParamVersion     = "$version"
	ParamRetryAfter  = "retry-after"
	ParamOperationID = "operationId"

	// ProvisioningRequestID is the fixed request id of register and
	// query-status publishes. Responses are correlated by operation id.
	ProvisioningRequestID = "1"
)

var grammar = [kindCount]Spec{
	KindTwinResponseSubscribeFilter: {
		Name:     "twin_response_subscribe_filter",
		Segments: []Segment{{Literal: TwinResponsePrefix + "#"}},
	},
	KindTwinGetPublish: {
		Name:     "twin_get_publish",
		Segments: []Segment{{Literal: TwinPrefix + "GET/?" + ParamRequestID + "=", Field: FieldRequestID}},
		Requires: []Field{FieldRequestID},
	},
	KindTwinPatchSubscribeFilter: {
		Name:     "twin_patch_subscribe_filter",
		Segments: []Segment{{Literal: TwinDesiredPrefix + "#"}},
	},
	KindTwinPatchPublish: {
		Name:     "twin_patch_publish",
		Segments: []Segment{{Literal: TwinPrefix + "PATCH/properties/reported/?" + ParamRequestID + "=", Field: FieldRequestID}},
		Requires: []Field{FieldRequestID},
	},
	KindProvisioningRegisterSubscribeFilter: {
		Name:     "provisioning_register_subscribe_filter",
		Segments: []Segment{{Literal: ProvisioningResPrefix + "#"}},
	},
	KindProvisioningRegisterPublish: {
		Name:     "provisioning_register_publish",
		Segments: []Segment{{Literal: ProvisioningPrefix + "PUT/iotdps-register/?" + ParamRequestID + "=" + ProvisioningRequestID}},
	},
	KindProvisioningQueryStatusPublish: {
		Name: "provisioning_query_status_publish",
		Segments: []Segment{{
			Literal: ProvisioningPrefix + "GET/iotdps-get-operationstatus/?" + ParamRequestID + "=" + ProvisioningRequestID + "&" + ParamOperationID + "=",
			Field:   FieldOperationID,
		}},
		Requires: []Field{FieldOperationID},
	},
	KindHubClientID: {
		Name: "hub_client_id",
		Segments: []Segment{
			{Field: FieldDeviceID},
			{Literal: "/", Field: FieldModuleID, When: FieldModuleID},
		},
		Requires: []Field{FieldDeviceID},
	},
	KindHubUserName: {
		Name: "hub_user_name",
		Segments: []Segment{
			{Field: FieldHostname},
			{Literal: "/", Field: FieldDeviceID},
			{Literal: "/", Field: FieldModuleID, When: FieldModuleID},
			{Literal: "/?api-version=" + HubAPIVersion},
			{Literal: "&DeviceClientType=", Field: FieldUserAgent, When: FieldUserAgent},
		},
		Requires: []Field{FieldHostname, FieldDeviceID},
	},
	KindTelemetryPublish: {
		Name: "telemetry_publish",
		Segments: []Segment{
			{Literal: DevicesPrefix, Field: FieldDeviceID},
			{Literal: "/modules/", Field: FieldModuleID, When: FieldModuleID},
			{Literal: "/messages/events/"},
		},
		Requires: []Field{FieldDeviceID},
	},
	KindC2DSubscribeFilter: {
		Name: "c2d_subscribe_filter",
		Segments: []Segment{
			{Literal: DevicesPrefix, Field: FieldDeviceID},
			{Literal: C2DSegment + "#"},
		},
		Requires: []Field{FieldDeviceID},
	},
	KindMethodsSubscribeFilter: {
		Name:     "methods_subscribe_filter",
		Segments: []Segment{{Literal: MethodsPrefix + "#"}},
	},
	KindMethodsResponsePublish: {
		Name: "methods_response_publish",
		Segments: []Segment{
			{Literal: "$iothub/methods/res/", Field: FieldStatus},
			{Literal: "/?" + ParamRequestID + "=", Field: FieldRequestID},
		},
		Requires: []Field{FieldStatus, FieldRequestID},
	},
	KindProvisioningClientID: {
		Name:     "provisioning_client_id",
		Segments: []Segment{{Field: FieldRegistrationID}},
		Requires: []Field{FieldRegistrationID},
	},
	KindProvisioningUserName: {
		Name: "provisioning_user_name",
		Segments: []Segment{
			{Field: FieldIDScope},
			{Literal: "/registrations/", Field: FieldRegistrationID},
			{Literal: "/api-version=" + ProvisioningAPIVersion},
			{Literal: "&ClientVersion=", Field: FieldUserAgent, When: FieldUserAgent},
		},
		Requires: []Field{FieldIDScope, FieldRegistrationID},
	},
}

func lookup(k Kind) (Spec, bool) {
	if k == 0 || k >= kindCount {
		return Spec{}, false
	}
	return grammar[k], true
}
