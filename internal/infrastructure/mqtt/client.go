package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/config"
)

// Client is one device connection, to the hub or to the provisioning
// service. Subscriptions survive reconnects. Safe for concurrent use.
type Client struct {
	client   pahomqtt.Client
	cfg      config.MQTTConfig
	identity Identity

	connected atomic.Bool
	connects  atomic.Int32

	subMu         sync.RWMutex
	subscriptions map[string]subscription

	hookMu sync.RWMutex
	hooks  Hooks
	logger Logger
}

// Logger receives handler failures. *logging.Logger and *slog.Logger
// satisfy it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Hooks are optional connection callbacks. They run on paho goroutines and
// must not block.
type Hooks struct {
	// OnReconnect runs after every connect but the first, once
	// subscriptions are restored.
	OnReconnect func()

	// OnConnectionLost runs when the connection drops. paho reconnects on
	// its own afterwards.
	OnConnectionLost func(err error)
}

type subscription struct {
	qos     byte
	handler MessageHandler
}

// MessageHandler handles one received message. It runs on a paho goroutine;
// topic and payload are only valid during the call. A returned error is
// logged and does not affect acknowledgement.
type MessageHandler func(topic, payload []byte) error

// Connect dials the broker as id and waits until the session is up, ctx is
// done or the connect timeout passes.
func Connect(ctx context.Context, cfg config.MQTTConfig, id Identity) (*Client, error) {
	opts, err := buildClientOptions(cfg, id)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:           cfg,
		identity:      id,
		subscriptions: make(map[string]subscription),
	}
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleConnectionLost(err) })

	c.client = pahomqtt.NewClient(opts)
	if err := await(ctx, c.client.Connect(), defaultConnectTimeout); err != nil {
		// With connect retry enabled paho keeps dialling in the background.
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs asynchronously; do not wait for it.
	c.connected.Store(true)
	return c, nil
}

// await waits for a paho token, bounded by ctx and timeout.
func await(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Identity returns the identity the client connected with.
func (c *Client) Identity() Identity {
	return c.identity
}

func (c *Client) handleConnect() {
	c.connected.Store(true)

	// Clean sessions drop subscriptions on the broker side.
	c.subMu.RLock()
	for filter, sub := range c.subscriptions {
		c.client.Subscribe(filter, sub.qos, c.wrapHandler(sub.handler))
	}
	c.subMu.RUnlock()

	if c.connects.Add(1) == 1 {
		return
	}
	if fn := c.getHooks().OnReconnect; fn != nil {
		fn()
	}
}

func (c *Client) handleConnectionLost(err error) {
	c.connected.Store(false)
	if logger := c.getLogger(); logger != nil {
		logger.Warn("MQTT connection lost", "host", c.identity.Host, "error", err)
	}
	if fn := c.getHooks().OnConnectionLost; fn != nil {
		fn(err)
	}
}

// Close disconnects, giving in-flight work a moment to finish. Closing an
// unconnected client is a no-op.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the connection is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.connected.Load() && c.client.IsConnected()
}

// SetHooks replaces the connection callbacks.
func (c *Client) SetHooks(h Hooks) {
	c.hookMu.Lock()
	c.hooks = h
	c.hookMu.Unlock()
}

// SetLogger sets where handler errors and panics are reported. Without a
// logger they are dropped.
func (c *Client) SetLogger(logger Logger) {
	c.hookMu.Lock()
	c.logger = logger
	c.hookMu.Unlock()
}

func (c *Client) getHooks() Hooks {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	return c.hooks
}

func (c *Client) getLogger() Logger {
	c.hookMu.RLock()
	defer c.hookMu.RUnlock()
	return c.logger
}

func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(handler, msg.Topic(), msg.Payload())
	}
}

// dispatch runs handler for one message. A panicking handler must not take
// down the paho router.
func (c *Client) dispatch(handler MessageHandler, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("MQTT handler panic recovered", "topic", topic, "panic", r)
			}
		}
	}()

	if err := handler([]byte(topic), payload); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT handler returned error", "topic", topic, "error", err)
		}
	}
}
