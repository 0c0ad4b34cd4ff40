// iot-twin connects a device to its hub and keeps its device twin in sync.
//
// It fetches the twin document on start, acknowledges every desired
// properties push by reporting the version it applied, answers direct
// methods and sends periodic telemetry. With provisioning enabled, the hub
// and device id come from the assignment stored by iot-provision.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-iot/migrations"

	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-iot/internal/iot"
	"github.com/nerrad567/gray-logic-iot/internal/iot/hub"
	"github.com/nerrad567/gray-logic-iot/internal/iot/topic"
	"github.com/nerrad567/gray-logic-iot/internal/registration"
	"github.com/nerrad567/gray-logic-iot/internal/twin"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	defaultConfigPath = "configs/iot.yaml"
	telemetryInterval = time.Minute

	// desiredBacklog bounds desired pushes waiting to be acknowledged.
	desiredBacklog = 16
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting iot-twin", "version", version, "commit", commit)

	hostname, deviceID, err := hubIdentity(ctx, cfg)
	if err != nil {
		return err
	}

	client, err := hub.New([]byte(hostname), []byte(deviceID), &hub.Options{
		ModuleID:    []byte(cfg.Hub.ModuleID),
		UserAgent:   []byte(cfg.Hub.UserAgent),
		Diagnostics: logging.NewDiagnostics(log, cfg.Logging.Topics),
	})
	if err != nil {
		return fmt.Errorf("building hub identity: %w", err)
	}

	id, err := mqtt.HubIdentity(client)
	if err != nil {
		return err
	}
	mqttClient, err := mqtt.Connect(ctx, cfg.MQTT, id)
	if err != nil {
		return fmt.Errorf("connecting to hub: %w", err)
	}
	mqttClient.SetLogger(log)
	// Desired pushes sent while disconnected are lost, so a reconnect
	// triggers a full twin fetch.
	reconnected := make(chan struct{}, 1)
	mqttClient.SetHooks(mqtt.Hooks{OnReconnect: func() {
		select {
		case reconnected <- struct{}{}:
		default:
		}
	}})
	defer func() {
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected", "host", id.Host, "client_id", id.ClientID)

	session, err := twin.New(twin.Deps{
		Client:         client,
		Transport:      mqttClient,
		Logger:         log,
		QoS:            byte(cfg.MQTT.QoS),
		RequestTimeout: cfg.GetRequestTimeout(),
	})
	if err != nil {
		return err
	}
	desired := make(chan twin.DesiredUpdate, desiredBacklog)
	session.OnDesired(func(u twin.DesiredUpdate) {
		select {
		case desired <- u:
		default:
			log.Warn("dropping desired properties push", "version", u.Version)
		}
	})
	if err := session.Start(); err != nil {
		return err
	}
	defer session.Close() //nolint:errcheck // Best effort on shutdown

	if err := subscribeDeviceTopics(client, mqttClient, log); err != nil {
		return err
	}

	doc, err := session.Get(ctx)
	if err != nil {
		return fmt.Errorf("fetching twin: %w", err)
	}
	log.Info("twin received", "bytes", len(doc.Payload))

	telemetryTopic, err := mqtt.Topic(client.TelemetryPublishTopic)
	if err != nil {
		return err
	}
	ticker := time.NewTicker(telemetryInterval)
	defer ticker.Stop()
	started := time.Now()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil

		case u := <-desired:
			ackDesired(ctx, session, log, u)

		case <-reconnected:
			doc, err := session.Get(ctx)
			if err != nil {
				log.Warn("twin resync failed", "error", err)
				continue
			}
			log.Info("twin resynced after reconnect", "bytes", len(doc.Payload))

		case <-ticker.C:
			if err := mqttClient.HealthCheck(ctx); err != nil {
				log.Debug("skipping telemetry", "error", err)
				continue
			}
			body := fmt.Appendf(nil, `{"uptimeSeconds":%d}`, int64(time.Since(started).Seconds()))
			if err := mqttClient.PublishDefault(telemetryTopic, body); err != nil {
				log.Warn("telemetry publish failed", "error", err)
			}
		}
	}
}

// hubIdentity returns the hub and device id to connect as, from the stored
// assignment when provisioning is enabled and from the hub section otherwise.
func hubIdentity(ctx context.Context, cfg *config.Config) (hostname, deviceID string, err error) {
	if !cfg.Provisioning.Enabled {
		return cfg.Hub.Hostname, cfg.Hub.DeviceID, nil
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return "", "", fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // Read-only use
	if err := db.HealthCheck(ctx); err != nil {
		return "", "", err
	}
	if err := db.Migrate(ctx); err != nil {
		return "", "", fmt.Errorf("running migrations: %w", err)
	}

	a, err := registration.NewSQLiteRepository(db.DB).Latest(ctx, cfg.Provisioning.RegistrationID)
	if errors.Is(err, registration.ErrNotFound) {
		return "", "", fmt.Errorf("no stored assignment for %s, run iot-provision first", cfg.Provisioning.RegistrationID)
	}
	if err != nil {
		return "", "", err
	}
	if !a.Usable() {
		return "", "", fmt.Errorf("stored assignment for %s is %s", cfg.Provisioning.RegistrationID, a.Status)
	}
	return a.AssignedHub, a.DeviceID, nil
}

// ackDesired reports the desired version back so the service can see the
// push was applied.
func ackDesired(ctx context.Context, session *twin.Session, log *logging.Logger, u twin.DesiredUpdate) {
	if !u.HasVersion {
		log.Warn("desired properties push without numeric version")
		return
	}
	patch := fmt.Appendf(nil, `{"lastDesiredVersion":%d}`, u.Version)
	resp, err := session.PatchReported(ctx, patch)
	if err != nil {
		log.Warn("reporting desired version failed", "version", u.Version, "error", err)
		return
	}
	log.Info("desired properties applied", "desired_version", u.Version, "reported_version", resp.Version)
}

// subscribeDeviceTopics answers direct methods and logs cloud-to-device
// messages.
func subscribeDeviceTopics(client *hub.Client, mqttClient *mqtt.Client, log *logging.Logger) error {
	methods, err := mqtt.Topic(client.MethodsSubscribeTopicFilter)
	if err != nil {
		return err
	}
	err = mqttClient.Subscribe(methods, 0, func(received, _ []byte) error {
		req, err := client.ParseMethodTopic(received)
		if err != nil {
			return err
		}
		status := iot.StatusOK
		body := fmt.Appendf(nil, `{"method":%q}`, req.Name)
		if string(req.Name) != "ping" {
			status = iot.StatusNotFound
		}
		size := client.TopicLen(topic.KindMethodsResponsePublish, req.RequestID, status)
		name, err := mqtt.SizedTopic(size, func(dst []byte) (int, error) {
			return client.MethodsResponsePublishTopic(req.RequestID, status, dst)
		})
		if err != nil {
			return err
		}
		return mqttClient.Publish(name, body, 0, false)
	})
	if err != nil {
		return fmt.Errorf("subscribing to methods: %w", err)
	}

	c2d, err := mqtt.Topic(client.C2DSubscribeTopicFilter)
	if err != nil {
		return err
	}
	err = mqttClient.Subscribe(c2d, 1, func(received, payload []byte) error {
		msg, err := client.ParseC2DTopic(received)
		if err != nil {
			return err
		}
		log.Info("cloud-to-device message",
			"properties", string(msg.Properties),
			"bytes", len(payload),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to cloud-to-device messages: %w", err)
	}
	return nil
}

// getConfigPath returns the configuration file path.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_IOT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
