package hub

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/internal/iot/diag"
	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
)

const (
	testHostname  = "myiothub.azure-devices.net"
	testDeviceID  = "my_device"
	testModuleID  = "my_module_id"
	testRequestID = "id_one"
	testUserAgent = "graylogic/1.0"
)

// newTestClient returns a Client whose violations are recorded instead of
// panicking.
func newTestClient(t *testing.T, opts *Options) (*Client, *diag.Recorder) {
	t.Helper()

	rec := &diag.Recorder{}
	d := diag.New()
	d.SetViolationHandler(rec.Record)

	var o Options
	if opts != nil {
		o = *opts
	}
	o.Diagnostics = d

	c, err := New([]byte(testHostname), []byte(testDeviceID), &o)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, rec
}

func TestNew_RequiresIdentity(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		deviceID string
	}{
		{name: "empty hostname", hostname: "", deviceID: testDeviceID},
		{name: "empty device id", hostname: testHostname, deviceID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &diag.Recorder{}
			d := diag.New()
			d.SetViolationHandler(rec.Record)

			c, err := New([]byte(tt.hostname), []byte(tt.deviceID), &Options{Diagnostics: d})
			if !errors.Is(err, iot.ErrInvalidArgument) {
				t.Errorf("New() error = %v, want ErrInvalidArgument", err)
			}
			if c != nil {
				t.Error("New() returned a client on violation")
			}
			if rec.Count() != 1 {
				t.Errorf("violations = %d, want 1", rec.Count())
			}
		})
	}
}

func TestNew_DefaultPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New() with empty hostname did not panic")
		}
	}()
	_, _ = New(nil, []byte(testDeviceID), nil)
}

func TestNew_CopiesIdentity(t *testing.T) {
	hostname := []byte(testHostname)
	c, err := New(hostname, []byte(testDeviceID), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	hostname[0] = 'X'

	if got := string(c.Hostname()); got != testHostname {
		t.Errorf("Hostname() = %q after caller mutation, want %q", got, testHostname)
	}
}

func TestClientIDAndUserName(t *testing.T) {
	tests := []struct {
		name         string
		opts         *Options
		wantClientID string
		wantUserName string
	}{
		{
			name:         "device",
			wantClientID: testDeviceID,
			wantUserName: testHostname + "/" + testDeviceID + "/?api-version=2018-06-30",
		},
		{
			name:         "module with user agent",
			opts:         &Options{ModuleID: []byte(testModuleID), UserAgent: []byte(testUserAgent)},
			wantClientID: testDeviceID + "/" + testModuleID,
			wantUserName: testHostname + "/" + testDeviceID + "/" + testModuleID +
				"/?api-version=2018-06-30&DeviceClientType=" + testUserAgent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.opts)
			var buf [256]byte

			n, err := c.ClientID(buf[:])
			if err != nil || string(buf[:n]) != tt.wantClientID {
				t.Errorf("ClientID() = %q, %v; want %q", buf[:n], err, tt.wantClientID)
			}

			n, err = c.UserName(buf[:])
			if err != nil || string(buf[:n]) != tt.wantUserName {
				t.Errorf("UserName() = %q, %v; want %q", buf[:n], err, tt.wantUserName)
			}
		})
	}
}

func TestTopicLen_MatchesRender(t *testing.T) {
	c, _ := newTestClient(t, &Options{ModuleID: []byte(testModuleID), UserAgent: []byte(testUserAgent)})
	rid := []byte(testRequestID)

	tests := []struct {
		kind   topic.Kind
		status iot.Status
		render func(dst []byte) (int, error)
	}{
		{topic.KindHubClientID, 0, c.ClientID},
		{topic.KindHubUserName, 0, c.UserName},
		{topic.KindTwinGetPublish, 0, func(dst []byte) (int, error) { return c.TwinGetPublishTopic(rid, dst) }},
		{topic.KindTwinPatchPublish, 0, func(dst []byte) (int, error) { return c.TwinPatchPublishTopic(rid, dst) }},
		{topic.KindMethodsResponsePublish, iot.StatusNotFound, func(dst []byte) (int, error) {
			return c.MethodsResponsePublishTopic(rid, iot.StatusNotFound, dst)
		}},
		{topic.KindTelemetryPublish, 0, c.TelemetryPublishTopic},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			want := c.TopicLen(tt.kind, rid, tt.status)
			buf := make([]byte, want)
			n, err := tt.render(buf)
			if err != nil {
				t.Fatalf("render into TopicLen() = %d bytes: %v", want, err)
			}
			if n != want {
				t.Errorf("TopicLen() = %d, render wrote %d", want, n)
			}
		})
	}
}
