package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	monitoring "solarwatch/internal/monitoring/domain"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MONITORING_CONFIG", "")
	t.Setenv("MONITORING_INTERVAL_MINUTES", "")
	t.Setenv("MONITORING_WORKERS", "")
	t.Setenv("MONITORING_READ_TIMEOUT_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Interval() != 5*time.Minute {
		t.Fatalf("unexpected interval %s", cfg.Interval())
	}
	if cfg.Workers != 4 {
		t.Fatalf("unexpected workers %d", cfg.Workers)
	}
	th := cfg.Thresholds()
	if th != monitoring.DefaultThresholds() {
		t.Fatalf("expected default thresholds, got %+v", th)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitoring.yaml")
	content := []byte(`
interval_minutes: 2
workers: 8
rules:
  offline_minutes: 30
  drop_pct: 50
  daylight_start_hour: 8
  daylight_end_hour: 18
  daylight_timezone: Australia/Brisbane
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MONITORING_CONFIG", path)
	t.Setenv("MONITORING_INTERVAL_MINUTES", "")
	t.Setenv("MONITORING_WORKERS", "")
	t.Setenv("MONITORING_READ_TIMEOUT_SECONDS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Interval() != 2*time.Minute || cfg.Workers != 8 {
		t.Fatalf("yaml not applied: interval=%s workers=%d", cfg.Interval(), cfg.Workers)
	}
	th := cfg.Thresholds()
	if th.OfflineAfter != 30*time.Minute {
		t.Fatalf("unexpected offline threshold %s", th.OfflineAfter)
	}
	if th.DropRatio != 0.5 {
		t.Fatalf("unexpected drop ratio %v", th.DropRatio)
	}
	if th.DaylightStartHour != 8 || th.DaylightEndHour != 18 {
		t.Fatalf("unexpected daylight window %d-%d", th.DaylightStartHour, th.DaylightEndHour)
	}
	if th.DaylightLocation == nil || th.DaylightLocation.String() != "Australia/Brisbane" {
		t.Fatalf("unexpected daylight location %v", th.DaylightLocation)
	}
	// Unset keys keep their defaults.
	if th.FreezeSpan != 10*time.Minute {
		t.Fatalf("unexpected freeze span %s", th.FreezeSpan)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("MONITORING_CONFIG", "")
	t.Setenv("MONITORING_INTERVAL_MINUTES", "1")
	t.Setenv("MONITORING_WORKERS", "2")
	t.Setenv("MONITORING_READ_TIMEOUT_SECONDS", "3")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Interval() != time.Minute || cfg.Workers != 2 || cfg.ReadTimeout() != 3*time.Second {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Setenv("MONITORING_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
