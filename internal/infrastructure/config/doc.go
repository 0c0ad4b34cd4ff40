// Package config loads the device link configuration.
//
// Values are resolved in order: built-in defaults, the YAML file, then
// GRAYLOGIC_IOT_* environment variables. Validate reports every problem at
// once rather than stopping at the first.
//
//	cfg, err := config.Load("configs/iot.yaml")
//	if err != nil {
//	    return err
//	}
//
// The MQTT password is a shared access signature; prefer
// GRAYLOGIC_IOT_MQTT_PASSWORD over writing it to the file.
package config
