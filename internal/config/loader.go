package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCooldownPaths is the ordered candidate list for the cooldown
// override file; the first path that exists wins.
var DefaultCooldownPaths = []string{
	"cooldowns.yaml",
	"config/cooldowns.yaml",
	"/etc/solwatch/cooldowns.yaml",
}

// LoadConfig loads configuration from a single YAML file
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := loadYAML(path, cfg); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	applyDefaults(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadYAML loads a YAML file into a struct
func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func applyDefaults(cfg *Config) {
	if cfg.Global.PollInterval == 0 {
		cfg.Global.PollInterval = 30 * time.Second
	}
	if cfg.Global.DataDir == "" {
		cfg.Global.DataDir = "data"
	}
	if cfg.Global.APIPort == "" {
		cfg.Global.APIPort = "8080"
	}
	if cfg.Weather.PollInterval == 0 {
		cfg.Weather.PollInterval = 15 * time.Minute
	}
	if cfg.Thresholds.BatteryLowSOC == 0 {
		cfg.Thresholds.BatteryLowSOC = 20
	}
	if cfg.Thresholds.BatteryCriticalSOC == 0 {
		cfg.Thresholds.BatteryCriticalSOC = 10
	}
	if cfg.Thresholds.GridVoltageMin == 0 {
		cfg.Thresholds.GridVoltageMin = 80
	}
	if cfg.Thresholds.DeficitRisk == 0 {
		cfg.Thresholds.DeficitRisk = 0.7
	}
	if cfg.Notifications.MaxPerHour == 0 {
		cfg.Notifications.MaxPerHour = 3
	}
}

// ValidateConfig validates the configuration
func ValidateConfig(cfg *Config) error {
	if cfg.Inverter.BaseURL == "" {
		return fmt.Errorf("inverter: base_url is required")
	}

	if cfg.Thresholds.BatteryCriticalSOC > cfg.Thresholds.BatteryLowSOC {
		return fmt.Errorf("thresholds: battery_critical_soc (%.0f) must not exceed battery_low_soc (%.0f)",
			cfg.Thresholds.BatteryCriticalSOC, cfg.Thresholds.BatteryLowSOC)
	}

	for name, channel := range cfg.Channels {
		switch channel.Type {
		case "push", "webhook", "sms", "voice":
			if channel.URLEnv == "" {
				return fmt.Errorf("channel %s: url_env is required for type %s", name, channel.Type)
			}
		case "email":
			if channel.SMTPHost == "" || channel.To == "" {
				return fmt.Errorf("channel %s: smtp_host and to are required for email", name)
			}
		case "telegram":
			if channel.TokenEnv == "" || channel.Recipient == "" {
				return fmt.Errorf("channel %s: token_env and recipient are required for telegram", name)
			}
		default:
			return fmt.Errorf("channel %s: unknown type %q", name, channel.Type)
		}
	}

	// Enabled channels must reference configured ones
	for _, name := range cfg.Notifications.Channels {
		if _, ok := cfg.Channels[name]; !ok {
			return fmt.Errorf("notifications: references unknown channel %s", name)
		}
	}

	if q := cfg.Notifications.QuietHours; q.Enabled() {
		if !validClockTime(q.Start) || !validClockTime(q.End) {
			return fmt.Errorf("notifications: quiet_hours must be HH:MM, got %q-%q", q.Start, q.End)
		}
	}

	return nil
}

func validClockTime(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}
