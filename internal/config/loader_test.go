package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
inverter:
  base_url: https://api.vendor.example
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Global.PollInterval)
	assert.Equal(t, "8080", cfg.Global.APIPort)
	assert.Equal(t, 15*time.Minute, cfg.Weather.PollInterval)
	assert.Equal(t, 20.0, cfg.Thresholds.BatteryLowSOC)
	assert.Equal(t, 10.0, cfg.Thresholds.BatteryCriticalSOC)
	assert.Equal(t, 3, cfg.Notifications.MaxPerHour)
}

func TestLoadConfigFull(t *testing.T) {
	path := writeConfig(t, `
global:
  poll_interval: 10s
  api_port: "9090"
inverter:
  base_url: https://api.vendor.example
  site_id: site-42
  api_key_env: INVERTER_KEY
weather:
  base_url: https://weather.example
  latitude: 52.1
  longitude: 4.3
thresholds:
  battery_low_soc: 25
  battery_critical_soc: 12
notifications:
  channels: [push]
  quiet_hours:
    start: "22:00"
    end: "06:00"
  max_per_hour: 6
  voice_escalation: true
channels:
  push:
    type: push
    url_env: PUSH_URL
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.Global.PollInterval)
	assert.Equal(t, "site-42", cfg.Inverter.SiteID)
	assert.Equal(t, 25.0, cfg.Thresholds.BatteryLowSOC)
	assert.True(t, cfg.Notifications.QuietHours.Enabled())
	assert.True(t, cfg.Notifications.VoiceEscalation)
	assert.Equal(t, "push", cfg.Channels["push"].Type)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing inverter url", `
global:
  api_port: "8080"
`},
		{"critical above low", `
inverter:
  base_url: https://api.vendor.example
thresholds:
  battery_low_soc: 10
  battery_critical_soc: 30
`},
		{"unknown channel type", `
inverter:
  base_url: https://api.vendor.example
channels:
  push:
    type: carrier_pigeon
`},
		{"push without url_env", `
inverter:
  base_url: https://api.vendor.example
channels:
  push:
    type: push
`},
		{"enabled channel unknown", `
inverter:
  base_url: https://api.vendor.example
notifications:
  channels: [nope]
`},
		{"malformed quiet hours", `
inverter:
  base_url: https://api.vendor.example
notifications:
  quiet_hours:
    start: "25:99"
    end: "06:00"
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}
