package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultMatchesRoleBuiltins(t *testing.T) {
	cfg := Default()

	if cfg.Sensor.PollInterval() != 50*time.Millisecond {
		t.Errorf("Sensor.PollInterval() = %v, want 50ms", cfg.Sensor.PollInterval())
	}
	if cfg.Sensor.BufferSize != 10 {
		t.Errorf("Sensor.BufferSize = %d, want 10", cfg.Sensor.BufferSize)
	}
	if cfg.Controller.BufferSize != 500 {
		t.Errorf("Controller.BufferSize = %d, want 500", cfg.Controller.BufferSize)
	}
	if cfg.Controller.ContainerMode {
		t.Error("Controller.ContainerMode should default to false")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.toml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg != Default() {
		t.Error("Load() of a missing file should return Default()")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg != Default() {
		t.Error(`Load("") should return Default()`)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[sensor]
poll_interval_ms = 100
buffer_size = 20

[controller]
container_mode = true
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Sensor.PollIntervalMS != 100 || cfg.Sensor.BufferSize != 20 {
		t.Errorf("Sensor = %+v, want overridden poll interval and buffer size", cfg.Sensor)
	}
	if !cfg.Controller.ContainerMode {
		t.Error("Controller.ContainerMode should be overridden to true")
	}
	// Untouched sections keep their defaults.
	if cfg.Actuator.DiscoveryIntervalMS != 200 {
		t.Errorf("Actuator.DiscoveryIntervalMS = %d, want default 200", cfg.Actuator.DiscoveryIntervalMS)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.Telemetry.Port = 9999

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Telemetry.Port != 9999 {
		t.Errorf("Telemetry.Port = %d, want 9999", loaded.Telemetry.Port)
	}
}
