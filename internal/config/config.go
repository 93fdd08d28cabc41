// Package config holds the TOML-backed tunables shared by every role's
// entry point: poll/discovery cadences, buffer bounds, and the telemetry
// toggle. Identity (Id/Name/Model) and the wire port are derived from
// process flags, never from this file (spec §6: "each entry point takes
// only a port... everything else is derived").
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full set of tunables. Every role reads only the sections
// relevant to it.
type Config struct {
	Sensor     SensorConfig     `toml:"sensor"`
	Actuator   ActuatorConfig   `toml:"actuator"`
	Controller ControllerConfig `toml:"controller"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
}

// SensorConfig tunes the Sensor role.
type SensorConfig struct {
	PollIntervalMS      int `toml:"poll_interval_ms"`
	DiscoveryIntervalMS int `toml:"discovery_interval_ms"`
	BufferSize          int `toml:"buffer_size"`
}

// ActuatorConfig tunes the Actuator role.
type ActuatorConfig struct {
	DiscoveryIntervalMS int `toml:"discovery_interval_ms"`
}

// ControllerConfig tunes the Controller role.
type ControllerConfig struct {
	PollIntervalMS      int  `toml:"poll_interval_ms"`
	DiscoveryIntervalMS int  `toml:"discovery_interval_ms"`
	BufferSize          int  `toml:"buffer_size"`
	ContainerMode       bool `toml:"container_mode"`
}

// TelemetryConfig controls the ambient /metrics and /healthz surfaces,
// served on a separate listener from the role's wire port.
type TelemetryConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// PollInterval renders SensorConfig's millisecond cadence as a Duration.
func (s SensorConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

// DiscoveryInterval renders SensorConfig's millisecond cadence as a
// Duration.
func (s SensorConfig) DiscoveryInterval() time.Duration {
	return time.Duration(s.DiscoveryIntervalMS) * time.Millisecond
}

// DiscoveryInterval renders ActuatorConfig's millisecond cadence as a
// Duration.
func (a ActuatorConfig) DiscoveryInterval() time.Duration {
	return time.Duration(a.DiscoveryIntervalMS) * time.Millisecond
}

// PollInterval renders ControllerConfig's millisecond cadence as a
// Duration.
func (c ControllerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// DiscoveryInterval renders ControllerConfig's millisecond cadence as a
// Duration.
func (c ControllerConfig) DiscoveryInterval() time.Duration {
	return time.Duration(c.DiscoveryIntervalMS) * time.Millisecond
}

// Default returns the tunables matching each role package's own built-in
// defaults (sensor.DefaultPollInterval and friends), so a process that
// never sees a config file behaves exactly as if it had been hardcoded.
func Default() Config {
	return Config{
		Sensor: SensorConfig{
			PollIntervalMS:      50,
			DiscoveryIntervalMS: 200,
			BufferSize:          10,
		},
		Actuator: ActuatorConfig{
			DiscoveryIntervalMS: 200,
		},
		Controller: ControllerConfig{
			PollIntervalMS:      50,
			DiscoveryIntervalMS: 200,
			BufferSize:          500,
			ContainerMode:       false,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// Load reads path and overlays it on Default. A missing file is not an
// error: it simply yields the defaults, the same fallback behaviour as
// the teacher's LoadConfig.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML.
func Save(cfg Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}
