package twin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/internal/iot/hub"
)

const (
	responseFilter = "$iothub/twin/res/#"
	desiredFilter  = "$iothub/twin/PATCH/properties/desired/#"
)

// replyFunc builds the hub's answer to a publish. ok=false means no answer.
type replyFunc func(name, rid string, payload []byte) (topic, body string, ok bool)

type fakeTransport struct {
	mu        sync.Mutex
	handlers  map[string]mqtt.MessageHandler
	published []string
	reply     replyFunc
	onPublish chan string
}

func newFakeTransport(reply replyFunc) *fakeTransport {
	return &fakeTransport{
		handlers:  make(map[string]mqtt.MessageHandler),
		reply:     reply,
		onPublish: make(chan string, 16),
	}
}

func (f *fakeTransport) Publish(name string, payload []byte, _ byte, _ bool) error {
	f.mu.Lock()
	f.published = append(f.published, name)
	handler := f.handlers[responseFilter]
	f.mu.Unlock()
	f.onPublish <- name

	_, rid, _ := strings.Cut(name, "$rid=")
	if f.reply == nil || handler == nil {
		return nil
	}
	if topic, body, ok := f.reply(name, rid, payload); ok {
		return handler([]byte(topic), []byte(body))
	}
	return nil
}

func (f *fakeTransport) Subscribe(filter string, _ byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[filter] = handler
	return nil
}

func (f *fakeTransport) Unsubscribe(filter string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, filter)
	return nil
}

func (f *fakeTransport) deliver(t *testing.T, filter, topic, body string) {
	t.Helper()
	f.mu.Lock()
	handler := f.handlers[filter]
	f.mu.Unlock()
	if handler == nil {
		t.Fatalf("no handler subscribed to %s", filter)
	}
	if err := handler([]byte(topic), []byte(body)); err != nil {
		t.Fatalf("handler() error = %v", err)
	}
}

func newTestSession(t *testing.T, transport Transport, timeout time.Duration) *Session {
	t.Helper()
	client, err := hub.New([]byte("contoso.azure-devices.net"), []byte("dev-01"), nil)
	if err != nil {
		t.Fatalf("hub.New() error = %v", err)
	}
	s, err := New(Deps{
		Client:         client,
		Transport:      transport,
		Logger:         logging.NewWithWriter(config.LoggingConfig{Level: "debug", Format: "json"}, "test", io.Discard),
		QoS:            1,
		RequestTimeout: timeout,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() }) //nolint:errcheck // Test cleanup
	return s
}

func TestSession_Get(t *testing.T) {
	const doc = `{"desired":{"$version":3},"reported":{"$version":7}}`
	transport := newFakeTransport(func(name, rid string, _ []byte) (string, string, bool) {
		if !strings.HasPrefix(name, "$iothub/twin/GET/?$rid=") {
			t.Errorf("get published to %q", name)
		}
		return "$iothub/twin/res/200/?$rid=" + rid, doc, true
	})
	s := newTestSession(t, transport, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := s.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.Status != iot.StatusOK {
		t.Errorf("Status = %d, want 200", resp.Status)
	}
	if string(resp.Payload) != doc {
		t.Errorf("Payload = %s, want %s", resp.Payload, doc)
	}
}

func TestSession_PatchReported(t *testing.T) {
	transport := newFakeTransport(func(name, rid string, payload []byte) (string, string, bool) {
		if !strings.HasPrefix(name, "$iothub/twin/PATCH/properties/reported/?$rid=") {
			t.Errorf("patch published to %q", name)
		}
		if string(payload) != `{"firmware":"1.2.0"}` {
			t.Errorf("patch payload = %s", payload)
		}
		return "$iothub/twin/res/204/?$rid=" + rid + "&$version=8", "", true
	})
	s := newTestSession(t, transport, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := s.PatchReported(context.Background(), []byte(`{"firmware":"1.2.0"}`))
	if err != nil {
		t.Fatalf("PatchReported() error = %v", err)
	}
	if !resp.HasVersion || resp.Version != 8 {
		t.Errorf("Version = %d (%v), want 8", resp.Version, resp.HasVersion)
	}
}

func TestSession_RequestError(t *testing.T) {
	transport := newFakeTransport(func(_, rid string, _ []byte) (string, string, bool) {
		return "$iothub/twin/res/429/?$rid=" + rid, "", true
	})
	s := newTestSession(t, transport, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := s.Get(context.Background())
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("Get() error = %v, want ErrRequestFailed", err)
	}
	if resp.Status != iot.StatusThrottled {
		t.Errorf("Status = %d, want 429", resp.Status)
	}
}

func TestSession_Timeout(t *testing.T) {
	s := newTestSession(t, newFakeTransport(nil), 20*time.Millisecond)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err := s.Get(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestSession_NotStarted(t *testing.T) {
	s := newTestSession(t, newFakeTransport(nil), time.Second)

	if _, err := s.Get(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Get() error = %v, want ErrNotStarted", err)
	}
}

func TestSession_CloseFailsPending(t *testing.T) {
	transport := newFakeTransport(nil)
	s := newTestSession(t, transport, 10*time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	errc := make(chan error, 1)
	go func() {
		_, err := s.Get(context.Background())
		errc <- err
	}()
	<-transport.onPublish

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Get() error = %v, want ErrClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Get() did not return after Close()")
	}

	if _, err := s.Get(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Get() after Close() error = %v, want ErrClosed", err)
	}
	if err := s.Start(); !errors.Is(err, ErrClosed) {
		t.Errorf("Start() after Close() error = %v, want ErrClosed", err)
	}
}

func TestSession_ConcurrentRequests(t *testing.T) {
	transport := newFakeTransport(func(_, rid string, _ []byte) (string, string, bool) {
		return "$iothub/twin/res/200/?$rid=" + rid, fmt.Sprintf(`{"rid":%q}`, rid), true
	})
	s := newTestSession(t, transport, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := s.Get(context.Background())
			if err != nil {
				t.Errorf("Get() error = %v", err)
				return
			}
			if !strings.HasPrefix(string(resp.Payload), `{"rid":"`) {
				t.Errorf("Payload = %s", resp.Payload)
			}
		}()
	}
	wg.Wait()

	transport.mu.Lock()
	defer transport.mu.Unlock()
	seen := make(map[string]bool)
	for _, name := range transport.published {
		if seen[name] {
			t.Errorf("request id reused in %s", name)
		}
		seen[name] = true
	}
}

func TestSession_DesiredPush(t *testing.T) {
	transport := newFakeTransport(nil)
	s := newTestSession(t, transport, time.Second)

	var got []DesiredUpdate
	s.OnDesired(func(u DesiredUpdate) { got = append(got, u) })
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	body := []byte(`{"setpoint":21.5,"$version":12}`)
	transport.deliver(t, desiredFilter, "$iothub/twin/PATCH/properties/desired/?$version=12", string(body))
	// Non-numeric versions are delivered without a version number.
	transport.deliver(t, desiredFilter, "$iothub/twin/PATCH/properties/desired/?$version=id_one", "{}")

	if len(got) != 2 {
		t.Fatalf("desired updates = %d, want 2", len(got))
	}
	if !got[0].HasVersion || got[0].Version != 12 || string(got[0].Payload) != string(body) {
		t.Errorf("update[0] = %+v", got[0])
	}
	if got[1].HasVersion {
		t.Errorf("update[1].HasVersion = true for non-numeric version")
	}
}

func TestSession_IgnoresStrayMessages(t *testing.T) {
	transport := newFakeTransport(nil)
	s := newTestSession(t, transport, time.Second)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	transport.deliver(t, responseFilter, "$iothub/twin/res/200/?$rid=unknown", "{}")
	transport.deliver(t, responseFilter, "$iothub/twin/res/abc/?$rid=1", "{}")
	transport.deliver(t, responseFilter, "$iothub/twin/res/200/?", "{}")
}

func TestNew_MissingDependencies(t *testing.T) {
	if _, err := New(Deps{}); !errors.Is(err, ErrMissingDependency) {
		t.Errorf("New() error = %v, want ErrMissingDependency", err)
	}
}
