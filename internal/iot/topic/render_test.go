package topic

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/internal/iot/diag"
)

// sentinel fills untouched buffer bytes so overruns are visible.
const sentinel = 0xcc

func filledBuffer(size int) []byte {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = sentinel
	}
	return buf
}

func capturingDiagnostics() (*diag.Diagnostics, *diag.Recorder) {
	d := diag.New()
	rec := &diag.Recorder{}
	d.SetViolationHandler(rec.Record)
	return d, rec
}

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		fields Fields
		want   string
	}{
		{
			name: "twin response filter",
			kind: KindTwinResponseSubscribeFilter,
			want: "$iothub/twin/res/#",
		},
		{
			name:   "twin get",
			kind:   KindTwinGetPublish,
			fields: Fields{RequestID: []byte("id_one")},
			want:   "$iothub/twin/GET/?$rid=id_one",
		},
		{
			name: "twin patch filter",
			kind: KindTwinPatchSubscribeFilter,
			want: "$iothub/twin/PATCH/properties/desired/#",
		},
		{
			name:   "twin patch publish",
			kind:   KindTwinPatchPublish,
			fields: Fields{RequestID: []byte("id_one")},
			want:   "$iothub/twin/PATCH/properties/reported/?$rid=id_one",
		},
		{
			name: "provisioning register filter",
			kind: KindProvisioningRegisterSubscribeFilter,
			want: "$dps/registrations/res/#",
		},
		{
			name: "provisioning register publish",
			kind: KindProvisioningRegisterPublish,
			want: "$dps/registrations/PUT/iotdps-register/?$rid=1",
		},
		{
			name:   "provisioning query status",
			kind:   KindProvisioningQueryStatusPublish,
			fields: Fields{OperationID: []byte("4.d0a671905ea5b2c8.e7173b7b-0e54-4aa0-9d20-aeb1b89e6c7d")},
			want:   "$dps/registrations/GET/iotdps-get-operationstatus/?$rid=1&operationId=4.d0a671905ea5b2c8.e7173b7b-0e54-4aa0-9d20-aeb1b89e6c7d",
		},
		{
			name:   "hub client id without module",
			kind:   KindHubClientID,
			fields: Fields{DeviceID: []byte("my_device")},
			want:   "my_device",
		},
		{
			name:   "hub client id with module",
			kind:   KindHubClientID,
			fields: Fields{DeviceID: []byte("my_device"), ModuleID: []byte("my_module")},
			want:   "my_device/my_module",
		},
		{
			name: "hub user name with module and user agent",
			kind: KindHubUserName,
			fields: Fields{
				Hostname:  []byte("myiothub.azure-devices.net"),
				DeviceID:  []byte("my_device"),
				ModuleID:  []byte("my_module"),
				UserAgent: []byte("graylogic/1.0"),
			},
			want: "myiothub.azure-devices.net/my_device/my_module/?api-version=2018-06-30&DeviceClientType=graylogic/1.0",
		},
		{
			name:   "telemetry with module",
			kind:   KindTelemetryPublish,
			fields: Fields{DeviceID: []byte("my_device"), ModuleID: []byte("my_module")},
			want:   "devices/my_device/modules/my_module/messages/events/",
		},
		{
			name:   "c2d filter",
			kind:   KindC2DSubscribeFilter,
			fields: Fields{DeviceID: []byte("my_device")},
			want:   "devices/my_device/messages/devicebound/#",
		},
		{
			name:   "methods response",
			kind:   KindMethodsResponsePublish,
			fields: Fields{Status: iot.StatusOK, RequestID: []byte("7")},
			want:   "$iothub/methods/res/200/?$rid=7",
		},
		{
			name:   "provisioning user name",
			kind:   KindProvisioningUserName,
			fields: Fields{IDScope: []byte("0ne00000001"), RegistrationID: []byte("reg-1")},
			want:   "0ne00000001/registrations/reg-1/api-version=2019-03-31",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := filledBuffer(256)
			n, err := Render(nil, tt.kind, &tt.fields, buf)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got := string(buf[:n]); got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
			if l := Len(tt.kind, &tt.fields); l != n {
				t.Errorf("Len() = %d, Render() wrote %d", l, n)
			}
			for i := n; i < len(buf); i++ {
				if buf[i] != sentinel {
					t.Fatalf("byte %d past the topic was overwritten", i)
				}
			}
		})
	}
}

func TestRender_BufferBoundary(t *testing.T) {
	fields := &Fields{RequestID: []byte("id_one")}
	want := "$iothub/twin/PATCH/properties/reported/?$rid=id_one"

	t.Run("one byte short fails without writing", func(t *testing.T) {
		buf := filledBuffer(len(want) - 1)
		n, err := Render(nil, KindTwinPatchPublish, fields, buf)
		if !errors.Is(err, iot.ErrInsufficientBufferSize) {
			t.Fatalf("Render() error = %v, want ErrInsufficientBufferSize", err)
		}
		if n != 0 {
			t.Errorf("Render() n = %d, want 0", n)
		}
		if !bytes.Equal(buf, filledBuffer(len(want)-1)) {
			t.Error("Render() wrote into the buffer on failure")
		}
	})

	t.Run("exact length succeeds", func(t *testing.T) {
		buf := filledBuffer(len(want))
		n, err := Render(nil, KindTwinPatchPublish, fields, buf)
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if n != len(want) || string(buf) != want {
			t.Errorf("Render() = %q (%d), want %q", buf[:n], n, want)
		}
	})
}

func TestRender_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		kind   Kind
		fields *Fields
		size   int
	}{
		{name: "unknown kind", kind: kindCount, fields: &Fields{}, size: 64},
		{name: "zero kind", kind: 0, fields: &Fields{}, size: 64},
		{name: "nil fields", kind: KindTwinResponseSubscribeFilter, fields: nil, size: 64},
		{name: "missing request id", kind: KindTwinGetPublish, fields: &Fields{}, size: 64},
		{name: "empty request id", kind: KindTwinPatchPublish, fields: &Fields{RequestID: []byte{}}, size: 64},
		{name: "missing operation id", kind: KindProvisioningQueryStatusPublish, fields: &Fields{}, size: 64},
		{name: "missing status", kind: KindMethodsResponsePublish, fields: &Fields{RequestID: []byte("1")}, size: 64},
		{name: "empty buffer", kind: KindTwinResponseSubscribeFilter, fields: &Fields{}, size: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, rec := capturingDiagnostics()
			n, err := Render(d, tt.kind, tt.fields, make([]byte, tt.size))
			if !errors.Is(err, iot.ErrInvalidArgument) {
				t.Errorf("Render() error = %v, want ErrInvalidArgument", err)
			}
			if n != 0 {
				t.Errorf("Render() n = %d, want 0", n)
			}
			if rec.Count() != 1 {
				t.Errorf("violations = %d, want 1", rec.Count())
			}
		})
	}
}

func TestRender_DefaultViolationPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Render() with nil request id did not panic")
		}
	}()
	Render(nil, KindTwinGetPublish, &Fields{}, make([]byte, 64)) //nolint:errcheck // panics
}

func TestRender_DoesNotAllocate(t *testing.T) {
	fields := &Fields{Status: iot.StatusNoContent, RequestID: []byte("id_one")}
	buf := make([]byte, 128)
	allocs := testing.AllocsPerRun(100, func() {
		if _, err := Render(nil, KindMethodsResponsePublish, fields, buf); err != nil {
			t.Fatal(err)
		}
	})
	if allocs != 0 {
		t.Errorf("Render() allocations = %v, want 0", allocs)
	}
}

func TestKindString(t *testing.T) {
	if got := KindTwinGetPublish.String(); got != "twin_get_publish" {
		t.Errorf("String() = %q, want %q", got, "twin_get_publish")
	}
	if got := Kind(200).String(); got != "unknown" {
		t.Errorf("String() = %q, want %q", got, "unknown")
	}
}

func TestGrammar_FiltersAndNamesAreValid(t *testing.T) {
	fields := &Fields{
		Hostname:       []byte("hub.example.net"),
		DeviceID:       []byte("dev"),
		RequestID:      []byte("r"),
		OperationID:    []byte("op"),
		IDScope:        []byte("scope"),
		RegistrationID: []byte("reg"),
		Status:         iot.StatusOK,
	}
	filters := []Kind{
		KindTwinResponseSubscribeFilter,
		KindTwinPatchSubscribeFilter,
		KindProvisioningRegisterSubscribeFilter,
		KindC2DSubscribeFilter,
		KindMethodsSubscribeFilter,
	}
	names := []Kind{
		KindTwinGetPublish,
		KindTwinPatchPublish,
		KindProvisioningRegisterPublish,
		KindProvisioningQueryStatusPublish,
		KindTelemetryPublish,
		KindMethodsResponsePublish,
	}

	buf := make([]byte, 256)
	for _, k := range filters {
		n, err := Render(nil, k, fields, buf)
		if err != nil {
			t.Fatalf("Render(%s) error = %v", k, err)
		}
		if err := ValidateFilter(string(buf[:n])); err != nil {
			t.Errorf("ValidateFilter(%q) error = %v", buf[:n], err)
		}
	}
	for _, k := range names {
		n, err := Render(nil, k, fields, buf)
		if err != nil {
			t.Fatalf("Render(%s) error = %v", k, err)
		}
		if err := ValidateName(string(buf[:n])); err != nil {
			t.Errorf("ValidateName(%q) error = %v", buf[:n], err)
		}
	}
}
