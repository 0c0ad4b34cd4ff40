package twin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/internal/iot/hub"
	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
)

const defaultRequestTimeout = 30 * time.Second

// Transport is the MQTT surface a session needs. *mqtt.Client satisfies it.
type Transport interface {
	Publish(name string, payload []byte, qos byte, retained bool) error
	Subscribe(filter string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(filter string) error
}

// Response is the answer to a get or patch request. Payload is owned by the
// caller.
type Response struct {
	Status     iot.Status
	Version    uint32
	HasVersion bool
	Payload    []byte
}

// DesiredUpdate is a desired properties push.
type DesiredUpdate struct {
	Version    uint32
	HasVersion bool
	Payload    []byte
}

// DesiredHandler receives desired property pushes on the MQTT client's
// goroutine. It must not block.
type DesiredHandler func(DesiredUpdate)

// Deps holds the dependencies of a Session.
type Deps struct {
	Client    *hub.Client
	Transport Transport
	Logger    *logging.Logger
	QoS       byte

	// RequestTimeout bounds a request when ctx has no earlier deadline.
	RequestTimeout time.Duration
}

// Session is safe for concurrent use.
type Session struct {
	client    *hub.Client
	transport Transport
	logger    *logging.Logger
	qos       byte
	timeout   time.Duration

	startMu sync.Mutex

	mu        sync.Mutex
	filters   []string
	started   bool
	closed    bool
	pending   map[string]chan Response
	onDesired DesiredHandler
}

// New returns an unstarted Session. Client, Transport and Logger are required.
func New(deps Deps) (*Session, error) {
	switch {
	case deps.Client == nil:
		return nil, fmt.Errorf("%w: hub client", ErrMissingDependency)
	case deps.Transport == nil:
		return nil, fmt.Errorf("%w: transport", ErrMissingDependency)
	case deps.Logger == nil:
		return nil, fmt.Errorf("%w: logger", ErrMissingDependency)
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &Session{
		client:    deps.Client,
		transport: deps.Transport,
		logger:    deps.Logger.With("component", "twin"),
		qos:       deps.QoS,
		timeout:   timeout,
		pending:   make(map[string]chan Response),
	}, nil
}

// OnDesired sets the desired properties handler. It may be called at any
// time; nil drops pushes.
func (s *Session) OnDesired(fn DesiredHandler) {
	s.mu.Lock()
	s.onDesired = fn
	s.mu.Unlock()
}

// Start subscribes to twin responses and desired property pushes.
func (s *Session) Start() error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	closed, started := s.closed, s.started
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if started {
		return nil
	}

	// Subscribing without mu held: the transport may deliver a message
	// to handle before Subscribe returns.
	var filters []string
	for _, render := range []mqtt.RenderFunc{
		s.client.TwinResponseSubscribeTopicFilter,
		s.client.TwinPatchSubscribeTopicFilter,
	} {
		filter, err := mqtt.Topic(render)
		if err != nil {
			return fmt.Errorf("rendering twin filter: %w", err)
		}
		if err := s.transport.Subscribe(filter, s.qos, s.handle); err != nil {
			return fmt.Errorf("subscribing to %s: %w", filter, err)
		}
		filters = append(filters, filter)
	}

	s.mu.Lock()
	s.filters = filters
	s.started = true
	s.mu.Unlock()
	return nil
}

// Close unsubscribes and fails every pending request with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for rid, ch := range s.pending {
		close(ch)
		delete(s.pending, rid)
	}
	filters := s.filters
	s.mu.Unlock()

	var firstErr error
	for _, f := range filters {
		if err := s.transport.Unsubscribe(f); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unsubscribing from %s: %w", f, err)
		}
	}
	return firstErr
}

// Get requests the full twin document and returns its JSON.
func (s *Session) Get(ctx context.Context) (Response, error) {
	return s.request(ctx, topic.KindTwinGetPublish, s.client.TwinGetPublishTopic, nil)
}

// PatchReported sends a reported properties patch. On success the response
// carries the new reported version.
func (s *Session) PatchReported(ctx context.Context, patch []byte) (Response, error) {
	return s.request(ctx, topic.KindTwinPatchPublish, s.client.TwinPatchPublishTopic, patch)
}

type publishTopic func(requestID, dst []byte) (int, error)

func (s *Session) request(ctx context.Context, kind topic.Kind, render publishTopic, payload []byte) (Response, error) {
	rid := uuid.NewString()
	requestID := []byte(rid)
	name, err := mqtt.SizedTopic(s.client.TopicLen(kind, requestID, 0), func(dst []byte) (int, error) {
		return render(requestID, dst)
	})
	if err != nil {
		return Response{}, fmt.Errorf("rendering twin topic: %w", err)
	}

	ch := make(chan Response, 1)
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return Response{}, ErrClosed
	case !s.started:
		s.mu.Unlock()
		return Response{}, ErrNotStarted
	}
	s.pending[rid] = ch
	s.mu.Unlock()
	defer s.forget(rid)

	if err := s.transport.Publish(name, payload, s.qos, false); err != nil {
		return Response{}, fmt.Errorf("publishing %s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		return Response{}, fmt.Errorf("waiting for twin response %s: %w", rid, ctx.Err())
	case resp, ok := <-ch:
		if !ok {
			return Response{}, ErrClosed
		}
		if resp.Status.Failed() {
			return resp, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.Status)
		}
		return resp, nil
	}
}

func (s *Session) forget(rid string) {
	s.mu.Lock()
	delete(s.pending, rid)
	s.mu.Unlock()
}

// handle routes a received twin message. The topic and payload views are
// only valid during the call, so everything handed on is copied.
func (s *Session) handle(topic, payload []byte) error {
	if len(topic) == 0 {
		return nil
	}
	r, err := s.client.ParseTwinTopic(topic)
	if err != nil {
		s.logger.Debug("ignoring twin message", "topic", string(topic), "error", err)
		return nil
	}
	version, hasVersion := r.VersionNumber()
	body := append([]byte(nil), payload...)

	if r.Type == hub.TwinResponseTypeDesiredProperties {
		s.mu.Lock()
		fn := s.onDesired
		s.mu.Unlock()
		if fn != nil {
			fn(DesiredUpdate{Version: version, HasVersion: hasVersion, Payload: body})
		}
		return nil
	}

	s.mu.Lock()
	ch, ok := s.pending[string(r.RequestID)]
	if ok {
		delete(s.pending, string(r.RequestID))
	}
	s.mu.Unlock()
	if !ok {
		s.logger.Debug("twin response for unknown request", "request_id", string(r.RequestID))
		return nil
	}

	ch <- Response{Status: r.Status, Version: version, HasVersion: hasVersion, Payload: body}
	return nil
}

var _ Transport = (*mqtt.Client)(nil)
