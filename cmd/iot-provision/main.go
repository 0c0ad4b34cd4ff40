// iot-provision registers a device with the provisioning service and
// stores the hub it is assigned to.
//
// Configuration is read from GRAYLOGIC_IOT_CONFIG (default
// configs/iot.yaml). The provisioning section must be enabled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-iot/migrations"

	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-iot/internal/iot/provisioning"
	"github.com/nerrad567/gray-logic-iot/internal/provisioner"
	"github.com/nerrad567/gray-logic-iot/internal/registration"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "configs/iot.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.Provisioning.Enabled {
		return fmt.Errorf("provisioning is not enabled in %s", configPath)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting iot-provision",
		"version", version,
		"commit", commit,
		"registration_id", cfg.Provisioning.RegistrationID,
	)

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.HealthCheck(ctx); err != nil {
		return err
	}
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	store := registration.NewSQLiteRepository(db.DB)

	client, err := provisioning.New(
		[]byte(cfg.Provisioning.GlobalEndpoint),
		[]byte(cfg.Provisioning.IDScope),
		[]byte(cfg.Provisioning.RegistrationID),
		&provisioning.Options{
			UserAgent:   []byte(cfg.Hub.UserAgent),
			Diagnostics: logging.NewDiagnostics(log, cfg.Logging.Topics),
		},
	)
	if err != nil {
		return fmt.Errorf("building provisioning identity: %w", err)
	}

	id, err := mqtt.ProvisioningIdentity(client)
	if err != nil {
		return err
	}
	mqttClient, err := mqtt.Connect(ctx, cfg.MQTT, id)
	if err != nil {
		return fmt.Errorf("connecting to provisioning service: %w", err)
	}
	mqttClient.SetLogger(log)
	defer func() {
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("provisioning connection: %w", err)
	}
	log.Info("MQTT connected", "host", id.Host, "client_id", id.ClientID)

	p, err := provisioner.New(provisioner.Deps{
		Client:    client,
		Transport: mqttClient,
		Store:     store,
		Logger:    log,
		Config: provisioner.Config{
			QoS:           byte(cfg.MQTT.QoS),
			PollTimeout:   cfg.GetPollTimeout(),
			MinRetryDelay: cfg.GetMinRetryDelay(),
			UseStored:     cfg.Provisioning.UseStored,
			Reprovision:   cfg.Provisioning.Reprovision,
		},
	})
	if err != nil {
		return err
	}

	a, err := p.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("assigned hub: %s\ndevice id:    %s\n", a.AssignedHub, a.DeviceID)
	return nil
}

// getConfigPath returns the configuration file path.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_IOT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
