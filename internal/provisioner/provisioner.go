package provisioner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-iot/internal/iot/provisioning"
	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
	"github.com/nerrad567/gray-logic-iot/internal/registration"
)

const (
	defaultPollTimeout   = 2 * time.Minute
	defaultMinRetryDelay = 3 * time.Second

	// responseBacklog is how many undelivered responses are held before
	// further ones are dropped.
	responseBacklog = 8
)

// Transport is the MQTT surface the provisioner needs. *mqtt.Client
// satisfies it.
type Transport interface {
	Publish(name string, payload []byte, qos byte, retained bool) error
	Subscribe(filter string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(filter string) error
}

// Store persists registration outcomes. *registration.SQLiteRepository
// satisfies it.
type Store interface {
	Save(ctx context.Context, a *registration.Assignment) error
	Latest(ctx context.Context, registrationID string) (*registration.Assignment, error)
	Delete(ctx context.Context, registrationID string) (int64, error)
}

// Config tunes the registration exchange.
type Config struct {
	QoS byte

	// PollTimeout bounds the whole exchange.
	PollTimeout time.Duration

	// MinRetryDelay is the wait between polls when the service asks for
	// less, or nothing at all.
	MinRetryDelay time.Duration

	// UseStored returns a usable stored assignment without contacting
	// the service.
	UseStored bool

	// Reprovision deletes stored assignments before registering. It
	// overrides UseStored.
	Reprovision bool

	// Payload is optional custom JSON sent along with the register request.
	Payload json.RawMessage
}

// Deps holds the dependencies of a Provisioner.
type Deps struct {
	Client    *provisioning.Client
	Transport Transport
	Store     Store // optional
	Logger    *logging.Logger
	Config    Config
}

// Provisioner registers one device. It is not safe for concurrent Run calls.
type Provisioner struct {
	client    *provisioning.Client
	transport Transport
	store     Store
	logger    *logging.Logger
	cfg       Config

	registrationID string
	responses      chan message

	// wait blocks for d or until ctx is done. Replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

type message struct {
	topic   []byte
	payload []byte
}

// New returns a Provisioner. Client, Transport and Logger are required.
func New(deps Deps) (*Provisioner, error) {
	switch {
	case deps.Client == nil:
		return nil, fmt.Errorf("%w: provisioning client", ErrMissingDependency)
	case deps.Transport == nil:
		return nil, fmt.Errorf("%w: transport", ErrMissingDependency)
	case deps.Logger == nil:
		return nil, fmt.Errorf("%w: logger", ErrMissingDependency)
	}

	cfg := deps.Config
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.MinRetryDelay <= 0 {
		cfg.MinRetryDelay = defaultMinRetryDelay
	}

	return &Provisioner{
		client:         deps.Client,
		transport:      deps.Transport,
		store:          deps.Store,
		logger:         deps.Logger.With("component", "provisioner"),
		cfg:            cfg,
		registrationID: string(deps.Client.RegistrationID()),
		wait:           sleep,
	}, nil
}

// Run performs the registration and returns the resulting assignment.
//
// A failed or disabled operation is stored and returned together with an
// error wrapping ErrRegistrationFailed.
func (p *Provisioner) Run(ctx context.Context) (*registration.Assignment, error) {
	if p.cfg.Reprovision {
		if err := p.discardStored(ctx); err != nil {
			return nil, err
		}
	} else if a, ok := p.stored(ctx); ok {
		return a, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.PollTimeout)
	defer cancel()

	filter, err := mqtt.Topic(p.client.RegisterSubscribeTopicFilter)
	if err != nil {
		return nil, fmt.Errorf("rendering register filter: %w", err)
	}
	p.responses = make(chan message, responseBacklog)
	if err := p.transport.Subscribe(filter, p.cfg.QoS, p.handle); err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", filter, err)
	}
	defer func() {
		if err := p.transport.Unsubscribe(filter); err != nil {
			p.logger.Warn("unsubscribe failed", "filter", filter, "error", err)
		}
	}()

	if err := p.register(); err != nil {
		return nil, err
	}

	for {
		var msg message
		select {
		case <-ctx.Done():
			return nil, p.contextError(ctx)
		case msg = <-p.responses:
		}

		if len(msg.topic) == 0 || len(msg.payload) == 0 {
			p.logger.Warn("ignoring empty provisioning message", "topic", string(msg.topic))
			continue
		}
		resp, err := p.client.ParseReceivedTopicAndPayload(msg.topic, msg.payload)
		if err != nil {
			p.logger.Warn("ignoring provisioning message", "topic", string(msg.topic), "error", err)
			continue
		}

		done, a, err := p.step(ctx, &resp)
		if done {
			return a, err
		}
		if err != nil {
			return nil, err
		}
	}
}

// step acts on one response. It reports done once the exchange is over.
func (p *Provisioner) step(ctx context.Context, resp *provisioning.RegisterResponse) (bool, *registration.Assignment, error) {
	state := provisioning.Classify(resp)
	p.logger.Debug("provisioning response",
		"status", int(resp.Status),
		"state", state.String(),
		"operation_id", string(resp.OperationID),
	)

	// The service refused the request itself. Throttling and server
	// errors are worth sending again.
	if len(resp.OperationID) == 0 && resp.Status.Failed() && resp.Status.Retriable() {
		if err := p.wait(ctx, p.delay(resp)); err != nil {
			return false, nil, p.contextError(ctx)
		}
		return false, nil, p.register()
	}

	if state.IsTerminal() {
		a, err := p.finish(ctx, resp, state)
		return true, a, err
	}

	if len(resp.OperationID) == 0 {
		return false, nil, nil
	}
	if err := p.wait(ctx, p.delay(resp)); err != nil {
		return false, nil, p.contextError(ctx)
	}
	return false, nil, p.queryStatus(resp)
}

func (p *Provisioner) finish(ctx context.Context, resp *provisioning.RegisterResponse, state provisioning.OperationStatus) (*registration.Assignment, error) {
	a := registration.FromResponse(p.registrationID, resp)
	if p.store != nil {
		if err := p.store.Save(ctx, &a); err != nil {
			return nil, fmt.Errorf("storing assignment: %w", err)
		}
	}

	if state != provisioning.OperationStatusAssigned {
		p.logger.Error("registration failed",
			"state", state.String(),
			"status", int(resp.Status),
			"error_code", a.ExtendedErrorCode,
			"message", a.ErrorMessage,
		)
		return &a, fmt.Errorf("%w: %s (status %d, code %d)", ErrRegistrationFailed, state, resp.Status, a.ExtendedErrorCode)
	}

	p.logger.Info("device assigned", "hub", a.AssignedHub, "device_id", a.DeviceID)
	return &a, nil
}

func (p *Provisioner) stored(ctx context.Context) (*registration.Assignment, bool) {
	if !p.cfg.UseStored || p.store == nil {
		return nil, false
	}
	a, err := p.store.Latest(ctx, p.registrationID)
	if err != nil {
		if !errors.Is(err, registration.ErrNotFound) {
			p.logger.Warn("reading stored assignment", "error", err)
		}
		return nil, false
	}
	if !a.Usable() {
		return nil, false
	}
	p.logger.Info("using stored assignment", "hub", a.AssignedHub, "device_id", a.DeviceID)
	return a, true
}

func (p *Provisioner) discardStored(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	n, err := p.store.Delete(ctx, p.registrationID)
	if err != nil {
		return fmt.Errorf("discarding stored assignments: %w", err)
	}
	p.logger.Info("discarded stored assignments", "count", n)
	return nil
}

// register publishes the register request.
func (p *Provisioner) register() error {
	name, err := mqtt.Topic(p.client.RegisterPublishTopic)
	if err != nil {
		return fmt.Errorf("rendering register topic: %w", err)
	}
	body, err := json.Marshal(registerRequest{RegistrationID: p.registrationID, Payload: p.cfg.Payload})
	if err != nil {
		return fmt.Errorf("encoding register request: %w", err)
	}
	if err := p.transport.Publish(name, body, p.cfg.QoS, false); err != nil {
		return fmt.Errorf("publishing register request: %w", err)
	}
	return nil
}

func (p *Provisioner) queryStatus(resp *provisioning.RegisterResponse) error {
	size := p.client.TopicLen(topic.KindProvisioningQueryStatusPublish, resp.OperationID)
	name, err := mqtt.SizedTopic(size, func(dst []byte) (int, error) {
		return p.client.QueryStatusPublishTopic(resp, dst)
	})
	if err != nil {
		return fmt.Errorf("rendering query status topic: %w", err)
	}
	if err := p.transport.Publish(name, nil, p.cfg.QoS, false); err != nil {
		return fmt.Errorf("publishing query status: %w", err)
	}
	return nil
}

// delay is the wait before the next request: the service's retry-after,
// never less than the configured floor.
func (p *Provisioner) delay(resp *provisioning.RegisterResponse) time.Duration {
	d, _ := resp.RetryAfter()
	return max(d, p.cfg.MinRetryDelay)
}

// handle runs on the MQTT client's goroutine. It copies the message since
// the parsed response borrows from it.
func (p *Provisioner) handle(topic, payload []byte) error {
	msg := message{topic: append([]byte(nil), topic...), payload: append([]byte(nil), payload...)}
	select {
	case p.responses <- msg:
		return nil
	default:
		return fmt.Errorf("provisioner backlog full, dropping %s", topic)
	}
}

func (p *Provisioner) contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}

// registerRequest is the body of a register publish.
type registerRequest struct {
	RegistrationID string          `json:"registrationId"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var _ Transport = (*mqtt.Client)(nil)

var _ Store = (*registration.SQLiteRepository)(nil)
