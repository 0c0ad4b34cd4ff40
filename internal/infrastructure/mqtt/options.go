package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultOperationTimeout bounds a publish, subscribe or unsubscribe
	// acknowledgement.
	defaultOperationTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is used when the config leaves keep_alive at zero.
	defaultKeepAlive = 240 * time.Second

	// protocolVersion311 selects MQTT 3.1.1, the only version the hub and
	// provisioning service accept.
	protocolVersion311 = 4

	// maxQoS is the maximum QoS level the services support.
	maxQoS = 1

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Identity is who a connection authenticates as. The values come from the
// topic codec (hub.Client or provisioning.Client).
type Identity struct {
	// Host is the broker host. config.MQTTBrokerConfig.Host overrides it.
	Host     string
	ClientID string
	Username string
}

// buildClientOptions creates paho MQTT options from config and identity.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID and user name rendered by the codec
//   - Shared access signature password (if provided)
//   - Client certificate and CA pool (if provided)
//   - Auto-reconnect with exponential backoff
//   - Clean session mode and MQTT 3.1.1
func buildClientOptions(cfg config.MQTTConfig, id Identity) (*pahomqtt.ClientOptions, error) {
	opts := pahomqtt.NewClientOptions()

	host := id.Host
	if cfg.Broker.Host != "" {
		host = cfg.Broker.Host
	}
	if host == "" {
		return nil, fmt.Errorf("%w: broker host is empty", ErrConnectionFailed)
	}

	scheme := "tcp"
	if cfg.TLS.Enabled {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, host, cfg.Broker.Port))

	opts.SetClientID(id.ClientID)
	opts.SetUsername(id.Username)
	if cfg.Auth.Password != "" {
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetProtocolVersion(protocolVersion311)
	opts.SetCleanSession(true)

	// Auto-reconnect with exponential backoff
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)

	keepAlive := defaultKeepAlive
	if cfg.KeepAlive > 0 {
		keepAlive = time.Duration(cfg.KeepAlive) * time.Second
	}
	opts.SetKeepAlive(keepAlive)

	if cfg.TLS.Enabled {
		tlsConfig, err := buildTLSConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return opts, nil
}

// buildTLSConfig loads the optional client certificate and CA bundle.
func buildTLSConfig(cfg config.MQTTTLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tlsMinVersion,
	}

	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: loading client certificate: %w", ErrTLSConfig, err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%w: reading CA file: %w", ErrTLSConfig, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: no certificates in %s", ErrTLSConfig, cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}
