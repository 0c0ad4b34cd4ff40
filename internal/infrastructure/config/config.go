package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic IoT device link.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Hub          HubConfig          `yaml:"hub"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	MQTT         MQTTConfig         `yaml:"mqtt"`
	Database     DatabaseConfig     `yaml:"database"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// HubConfig contains the device identity used against the hub.
type HubConfig struct {
	Hostname  string `yaml:"hostname"`
	DeviceID  string `yaml:"device_id"`
	ModuleID  string `yaml:"module_id"`
	UserAgent string `yaml:"user_agent"`

	// RequestTimeout bounds a twin get or patch round trip (seconds).
	RequestTimeout int `yaml:"request_timeout"`
}

// ProvisioningConfig contains zero-touch provisioning settings.
//
// When enabled, the hub hostname and device id are taken from the assignment
// returned by the provisioning service instead of HubConfig.
type ProvisioningConfig struct {
	Enabled        bool   `yaml:"enabled"`
	GlobalEndpoint string `yaml:"global_endpoint"`
	IDScope        string `yaml:"id_scope"`
	RegistrationID string `yaml:"registration_id"`

	// PollTimeout bounds the whole registration (seconds).
	PollTimeout int `yaml:"poll_timeout"`

	// MinRetryDelay is the wait used when the service sends no retry-after,
	// and the floor applied to the value it sends (seconds).
	MinRetryDelay int `yaml:"min_retry_delay"`

	// UseStored skips registration when a previous assignment for this
	// registration id is stored in the database.
	UseStored bool `yaml:"use_stored"`

	// Reprovision discards stored assignments for this registration id
	// before registering, forcing a fresh assignment.
	Reprovision bool `yaml:"reprovision"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT connection settings shared by the hub and
// provisioning connections.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	TLS       MQTTTLSConfig       `yaml:"tls"`
	QoS       int                 `yaml:"qos"`
	KeepAlive int                 `yaml:"keep_alive"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains broker connection details.
type MQTTBrokerConfig struct {
	// Host overrides the broker host. Empty means the hub hostname or the
	// provisioning global endpoint, depending on the connection.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	// Password is a shared access signature token. Leave empty when
	// authenticating with a client certificate.
	Password string `yaml:"password"`
}

// MQTTTLSConfig contains TLS settings for the broker connection.
type MQTTTLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`

	// Topics logs every received topic and payload at debug level.
	Topics bool `yaml:"topics"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_IOT_SECTION_KEY
// For example: GRAYLOGIC_IOT_HUB_DEVICE_ID, GRAYLOGIC_IOT_MQTT_PASSWORD
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			UserAgent:      "graylogic-iot/1.0",
			RequestTimeout: 30,
		},
		Provisioning: ProvisioningConfig{
			GlobalEndpoint: "global.azure-devices-provisioning.net",
			PollTimeout:    120,
			MinRetryDelay:  3,
			UseStored:      true,
		},
		Database: DatabaseConfig{
			Path:        "./data/graylogic-iot.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Port: 8883,
			},
			TLS: MQTTTLSConfig{
				Enabled: true,
			},
			QoS:       1,
			KeepAlive: 240,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_IOT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Hub
	if v := os.Getenv("GRAYLOGIC_IOT_HUB_HOSTNAME"); v != "" {
		cfg.Hub.Hostname = v
	}
	if v := os.Getenv("GRAYLOGIC_IOT_HUB_DEVICE_ID"); v != "" {
		cfg.Hub.DeviceID = v
	}
	if v := os.Getenv("GRAYLOGIC_IOT_HUB_MODULE_ID"); v != "" {
		cfg.Hub.ModuleID = v
	}

	// Provisioning
	if v := os.Getenv("GRAYLOGIC_IOT_PROVISIONING_ID_SCOPE"); v != "" {
		cfg.Provisioning.IDScope = v
	}
	if v := os.Getenv("GRAYLOGIC_IOT_PROVISIONING_REGISTRATION_ID"); v != "" {
		cfg.Provisioning.RegistrationID = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_IOT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_IOT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("GRAYLOGIC_IOT_MQTT_CERT_FILE"); v != "" {
		cfg.MQTT.TLS.CertFile = v
	}
	if v := os.Getenv("GRAYLOGIC_IOT_MQTT_KEY_FILE"); v != "" {
		cfg.MQTT.TLS.KeyFile = v
	}

	// Database
	if v := os.Getenv("GRAYLOGIC_IOT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Logging
	if v := os.Getenv("GRAYLOGIC_IOT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Identity validation. With provisioning the hub identity comes from
	// the assignment.
	if c.Provisioning.Enabled {
		if c.Provisioning.GlobalEndpoint == "" {
			errs = append(errs, "provisioning.global_endpoint is required")
		}
		if c.Provisioning.IDScope == "" {
			errs = append(errs, "provisioning.id_scope is required (set GRAYLOGIC_IOT_PROVISIONING_ID_SCOPE)")
		}
		if c.Provisioning.RegistrationID == "" {
			errs = append(errs, "provisioning.registration_id is required")
		}
		if c.Provisioning.PollTimeout < 1 {
			errs = append(errs, "provisioning.poll_timeout must be positive")
		}
		if c.Provisioning.MinRetryDelay < 0 {
			errs = append(errs, "provisioning.min_retry_delay cannot be negative")
		}
	} else {
		if c.Hub.Hostname == "" {
			errs = append(errs, "hub.hostname is required when provisioning is disabled")
		}
		if c.Hub.DeviceID == "" {
			errs = append(errs, "hub.device_id is required when provisioning is disabled")
		}
	}
	if c.Hub.RequestTimeout < 1 {
		errs = append(errs, "hub.request_timeout must be positive")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation. The hub accepts QoS 0 and 1 only.
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 1 {
		errs = append(errs, "mqtt.qos must be 0 or 1")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if (c.MQTT.TLS.CertFile == "") != (c.MQTT.TLS.KeyFile == "") {
		errs = append(errs, "mqtt.tls.cert_file and mqtt.tls.key_file must be set together")
	}
	if c.MQTT.TLS.CertFile != "" && !c.MQTT.TLS.Enabled {
		errs = append(errs, "mqtt.tls.enabled must be true when a client certificate is configured")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetRequestTimeout returns the twin request timeout as a Duration.
func (c *Config) GetRequestTimeout() time.Duration {
	return time.Duration(c.Hub.RequestTimeout) * time.Second
}

// GetPollTimeout returns the provisioning timeout as a Duration.
func (c *Config) GetPollTimeout() time.Duration {
	return time.Duration(c.Provisioning.PollTimeout) * time.Second
}

// GetMinRetryDelay returns the provisioning poll floor as a Duration.
func (c *Config) GetMinRetryDelay() time.Duration {
	return time.Duration(c.Provisioning.MinRetryDelay) * time.Second
}
