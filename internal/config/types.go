package config

import "time"

// Config represents the complete SolWatch configuration
type Config struct {
	Global        GlobalConfig             `yaml:"global"`
	Inverter      InverterConfig           `yaml:"inverter"`
	Weather       WeatherConfig            `yaml:"weather"`
	Thresholds    ThresholdConfig          `yaml:"thresholds"`
	Notifications NotificationPrefs        `yaml:"notifications"`
	Channels      map[string]ChannelConfig `yaml:"channels"`
}

// GlobalConfig contains global settings
type GlobalConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	DataDir      string        `yaml:"data_dir"`
	APIPort      string        `yaml:"api_port"`
}

// InverterConfig defines the vendor API endpoint to poll
type InverterConfig struct {
	BaseURL   string `yaml:"base_url"`
	SiteID    string `yaml:"site_id,omitempty"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// WeatherConfig defines the weather API endpoint and site location
type WeatherConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Latitude     float64       `yaml:"latitude"`
	Longitude    float64       `yaml:"longitude"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
}

// ThresholdConfig holds the trigger levels the monitor evaluates on
// every poll tick.
type ThresholdConfig struct {
	BatteryLowSOC      float64 `yaml:"battery_low_soc"`      // percent
	BatteryCriticalSOC float64 `yaml:"battery_critical_soc"` // percent
	GridVoltageMin     float64 `yaml:"grid_voltage_min"`     // volts; below this counts as an outage
	DeficitRisk        float64 `yaml:"deficit_risk"`         // [0,1] depletion-risk score
}

// NotificationPrefs holds the active notification configuration.
// Replaced wholesale by the preferences update operation; read on
// every dispatch.
type NotificationPrefs struct {
	Channels           []string          `yaml:"channels" json:"channels"`
	QuietHours         QuietHoursConfig  `yaml:"quiet_hours" json:"quiet_hours"`
	SeverityThresholds map[string]string `yaml:"severity_thresholds,omitempty" json:"severity_thresholds,omitempty"`
	MaxPerHour         int               `yaml:"max_per_hour" json:"max_per_hour"`
	VoiceEscalation    bool              `yaml:"voice_escalation" json:"voice_escalation"`
}

// QuietHoursConfig is a daily wall-clock window, "HH:MM" to "HH:MM",
// which may wrap past midnight.
type QuietHoursConfig struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// Enabled reports whether a quiet-hours window is configured at all.
func (q QuietHoursConfig) Enabled() bool {
	return q.Start != "" && q.End != ""
}

// ChannelConfig defines a notification channel
type ChannelConfig struct {
	Type     string `yaml:"type"` // "push", "email", "sms", "voice", "telegram", "webhook"
	URLEnv   string `yaml:"url_env,omitempty"`
	TokenEnv string `yaml:"token_env,omitempty"`

	// Email settings
	SMTPHost string `yaml:"smtp_host,omitempty"`
	SMTPPort int    `yaml:"smtp_port,omitempty"`
	From     string `yaml:"from,omitempty"`
	To       string `yaml:"to,omitempty"`
	UserEnv  string `yaml:"user_env,omitempty"`
	PassEnv  string `yaml:"pass_env,omitempty"`

	// SMS/voice/telegram recipient
	Recipient string `yaml:"recipient,omitempty"`
}
