package types

import "time"

// SolarReading is one sample polled from the inverter vendor API.
type SolarReading struct {
	Timestamp     time.Time `json:"timestamp"`
	PVPowerW      float64   `json:"pv_power_w"`
	LoadPowerW    float64   `json:"load_power_w"`
	GridPowerW    float64   `json:"grid_power_w"`
	GridVoltage   float64   `json:"grid_voltage"`
	BatteryPowerW float64   `json:"battery_power_w"`
	BatterySOC    float64   `json:"battery_soc"`
}

// WeatherReading is one sample polled from the weather API.
type WeatherReading struct {
	Timestamp  time.Time `json:"timestamp"`
	CloudCover float64   `json:"cloud_cover"` // percent, 0-100
	TempC      float64   `json:"temp_c"`
	Sunrise    time.Time `json:"sunrise"`
	Sunset     time.Time `json:"sunset"`
}
