package application

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	monitoring "solarwatch/internal/monitoring/domain"
)

// RuleConfig is the YAML/env representation of the rule thresholds.
// Durations are expressed in minutes to match how operators reason
// about pass cadence.
type RuleConfig struct {
	LookbackMinutes   int     `yaml:"lookback_minutes"`
	OfflineMinutes    int     `yaml:"offline_minutes"`
	StaleMinutes      int     `yaml:"stale_minutes"`
	FreezeMinutes     int     `yaml:"freeze_minutes"`
	FreezeEpsilonW    float64 `yaml:"freeze_epsilon_w"`
	DropMinutes       int     `yaml:"drop_minutes"`
	DropPct           float64 `yaml:"drop_pct"`
	DropFloorW        float64 `yaml:"drop_floor_w"`
	ZeroFloorW        float64 `yaml:"zero_floor_w"`
	DaylightStartHour int     `yaml:"daylight_start_hour"`
	DaylightEndHour   int     `yaml:"daylight_end_hour"`
	DaylightTimezone  string  `yaml:"daylight_timezone"`
	ImbalanceFloorW   float64 `yaml:"imbalance_floor_w"`
	ImbalancePct      float64 `yaml:"imbalance_pct"`
}

// Config defines monitoring engine configuration.
type Config struct {
	IntervalMinutes    int        `yaml:"interval_minutes"`
	Workers            int        `yaml:"workers"`
	ReadTimeoutSeconds int        `yaml:"read_timeout_seconds"`
	Rules              RuleConfig `yaml:"rules"`
}

// LoadConfig loads config from yaml (MONITORING_CONFIG) over defaults,
// then applies env overrides for the scheduler knobs.
func LoadConfig() (Config, error) {
	defaults := monitoring.DefaultThresholds()
	cfg := Config{
		IntervalMinutes:    5,
		Workers:            4,
		ReadTimeoutSeconds: 10,
		Rules: RuleConfig{
			LookbackMinutes:   int(defaults.Lookback / time.Minute),
			OfflineMinutes:    int(defaults.OfflineAfter / time.Minute),
			StaleMinutes:      int(defaults.StaleAfter / time.Minute),
			FreezeMinutes:     int(defaults.FreezeSpan / time.Minute),
			FreezeEpsilonW:    defaults.FreezeEpsilonW,
			DropMinutes:       int(defaults.DropWindow / time.Minute),
			DropPct:           defaults.DropRatio * 100,
			DropFloorW:        defaults.DropFloorW,
			ZeroFloorW:        defaults.ZeroFloorW,
			DaylightStartHour: defaults.DaylightStartHour,
			DaylightEndHour:   defaults.DaylightEndHour,
			ImbalanceFloorW:   defaults.ImbalanceFloorW,
			ImbalancePct:      defaults.ImbalanceTolerance * 100,
		},
	}

	if path := os.Getenv("MONITORING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.IntervalMinutes = getenvIntDefault("MONITORING_INTERVAL_MINUTES", cfg.IntervalMinutes)
	cfg.Workers = getenvIntDefault("MONITORING_WORKERS", cfg.Workers)
	cfg.ReadTimeoutSeconds = getenvIntDefault("MONITORING_READ_TIMEOUT_SECONDS", cfg.ReadTimeoutSeconds)
	return cfg, nil
}

// Thresholds converts the config into rule thresholds, falling back to
// defaults for unset values.
func (c Config) Thresholds() monitoring.Thresholds {
	th := monitoring.DefaultThresholds()
	if c.Rules.LookbackMinutes > 0 {
		th.Lookback = time.Duration(c.Rules.LookbackMinutes) * time.Minute
	}
	if c.Rules.OfflineMinutes > 0 {
		th.OfflineAfter = time.Duration(c.Rules.OfflineMinutes) * time.Minute
	}
	if c.Rules.StaleMinutes > 0 {
		th.StaleAfter = time.Duration(c.Rules.StaleMinutes) * time.Minute
	}
	if c.Rules.FreezeMinutes > 0 {
		th.FreezeSpan = time.Duration(c.Rules.FreezeMinutes) * time.Minute
	}
	if c.Rules.FreezeEpsilonW > 0 {
		th.FreezeEpsilonW = c.Rules.FreezeEpsilonW
	}
	if c.Rules.DropMinutes > 0 {
		th.DropWindow = time.Duration(c.Rules.DropMinutes) * time.Minute
	}
	if c.Rules.DropPct > 0 {
		th.DropRatio = c.Rules.DropPct / 100
	}
	if c.Rules.DropFloorW > 0 {
		th.DropFloorW = c.Rules.DropFloorW
	}
	if c.Rules.ZeroFloorW > 0 {
		th.ZeroFloorW = c.Rules.ZeroFloorW
	}
	if c.Rules.DaylightEndHour > 0 {
		th.DaylightStartHour = c.Rules.DaylightStartHour
		th.DaylightEndHour = c.Rules.DaylightEndHour
	}
	if c.Rules.DaylightTimezone != "" {
		if loc, err := time.LoadLocation(c.Rules.DaylightTimezone); err == nil {
			th.DaylightLocation = loc
		}
	}
	if c.Rules.ImbalanceFloorW > 0 {
		th.ImbalanceFloorW = c.Rules.ImbalanceFloorW
	}
	if c.Rules.ImbalancePct > 0 {
		th.ImbalanceTolerance = c.Rules.ImbalancePct / 100
	}
	return th
}

// Interval returns the pass cadence.
func (c Config) Interval() time.Duration {
	if c.IntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// ReadTimeout returns the per-fetch telemetry timeout.
func (c Config) ReadTimeout() time.Duration {
	if c.ReadTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
