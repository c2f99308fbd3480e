// Package monitor evaluates each polled reading against the alert
// trigger rules: battery state-of-charge floors, daylight-aware solar
// deficit, grid outage and load scheduling opportunity.
package monitor

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/solwatch/solwatch/internal/alerter"
	"github.com/solwatch/solwatch/internal/analytics"
	"github.com/solwatch/solwatch/internal/config"
	"github.com/solwatch/solwatch/internal/types"
)

// Alert categories raised by the monitor.
const (
	CategoryBatteryLow      = "battery_low"
	CategoryBatteryCritical = alerter.EmergencyCategory
	CategoryGridOutage      = "grid_outage"
	CategorySolarDeficit    = "solar_deficit"
	CategoryLoadOpportunity = "load_opportunity"
)

// readingWindow bounds the trailing sample buffer the heuristics see;
// weatherWindow bounds the weather samples kept for correlation.
const (
	readingWindow = 120
	weatherWindow = 48
)

// Monitor holds the trailing reading window and drives alert creation
// and auto-resolution through the alert manager.
type Monitor struct {
	log        zerolog.Logger
	manager    *alerter.Manager
	thresholds config.ThresholdConfig

	mu          sync.Mutex
	readings    []types.SolarReading
	weather     types.WeatherReading
	weatherHist []types.WeatherReading
	haveWeather bool

	now func() time.Time
}

// New creates a monitor over the given alert manager.
func New(log zerolog.Logger, manager *alerter.Manager, thresholds config.ThresholdConfig) *Monitor {
	return &Monitor{
		log:        log.With().Str("component", "monitor").Logger(),
		manager:    manager,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// ObserveWeather records the latest weather reading for the daylight
// gate and correlation heuristics.
func (m *Monitor) ObserveWeather(w types.WeatherReading) {
	m.mu.Lock()
	m.weather = w
	m.haveWeather = true
	m.weatherHist = append(m.weatherHist, w)
	if len(m.weatherHist) > weatherWindow {
		m.weatherHist = m.weatherHist[len(m.weatherHist)-weatherWindow:]
	}
	m.mu.Unlock()
}

// Observe appends one solar reading to the trailing window and runs
// the evaluation pass.
func (m *Monitor) Observe(r types.SolarReading) {
	m.mu.Lock()
	m.readings = append(m.readings, r)
	if len(m.readings) > readingWindow {
		m.readings = m.readings[len(m.readings)-readingWindow:]
	}
	window := make([]types.SolarReading, len(m.readings))
	copy(window, m.readings)
	weatherHist := make([]types.WeatherReading, len(m.weatherHist))
	copy(weatherHist, m.weatherHist)
	weather, haveWeather := m.weather, m.haveWeather
	m.mu.Unlock()

	m.evaluate(r, window, weatherHist, weather, haveWeather)
}

func (m *Monitor) evaluate(r types.SolarReading, window []types.SolarReading, weatherHist []types.WeatherReading, weather types.WeatherReading, haveWeather bool) {
	m.checkGrid(r)
	m.checkBattery(r, window)
	m.checkDeficit(r, window, weatherHist, weather, haveWeather)
	m.checkOpportunity(window, weather, haveWeather)
}

func (m *Monitor) checkGrid(r types.SolarReading) {
	if r.GridVoltage < m.thresholds.GridVoltageMin {
		m.raise(CategoryGridOutage, types.SeverityHigh,
			"Grid outage detected",
			fmt.Sprintf("Grid voltage dropped to %.1fV (minimum %.1fV)", r.GridVoltage, m.thresholds.GridVoltageMin),
			map[string]any{"grid_voltage": r.GridVoltage},
		)
		return
	}
	m.clear(CategoryGridOutage)
}

func (m *Monitor) checkBattery(r types.SolarReading, window []types.SolarReading) {
	risk := analytics.BatteryRisk(window)

	switch {
	case r.BatterySOC <= m.thresholds.BatteryCriticalSOC:
		m.raise(CategoryBatteryCritical, types.SeverityCritical,
			"Battery critically low",
			fmt.Sprintf("Battery at %.1f%%, below critical floor of %.1f%%", r.BatterySOC, m.thresholds.BatteryCriticalSOC),
			map[string]any{"battery_soc": r.BatterySOC, "risk": risk},
		)
	case r.BatterySOC <= m.thresholds.BatteryLowSOC:
		severity := types.SeverityMedium
		if risk >= 0.8 {
			severity = types.SeverityHigh
		}
		m.raise(CategoryBatteryLow, severity,
			"Battery low",
			fmt.Sprintf("Battery at %.1f%%, below %.1f%% (depletion risk %.2f)", r.BatterySOC, m.thresholds.BatteryLowSOC, risk),
			map[string]any{"battery_soc": r.BatterySOC, "risk": risk},
		)
		m.clear(CategoryBatteryCritical)
	default:
		m.clear(CategoryBatteryCritical)
		m.clear(CategoryBatteryLow)
	}
}

func (m *Monitor) checkDeficit(r types.SolarReading, window []types.SolarReading, weatherHist []types.WeatherReading, weather types.WeatherReading, haveWeather bool) {
	if !m.isDaylight(haveWeather, weather) {
		return
	}

	risk := analytics.BatteryRisk(window)
	deficit := r.LoadPowerW > r.PVPowerW

	if deficit && risk >= m.thresholds.DeficitRisk {
		severity := types.SeverityMedium
		if risk >= 0.85 {
			severity = types.SeverityHigh
		}
		metadata := map[string]any{"load_w": r.LoadPowerW, "pv_w": r.PVPowerW, "risk": risk}

		// A deficit while production tracks clear skies is weather;
		// a deficit under clear skies with production decoupled from
		// them points at the array or the inverter, so escalate.
		if len(weatherHist) >= 2 {
			correlation := analytics.WeatherCorrelation(window, weatherHist)
			metadata["weather_correlation"] = correlation
			if correlation < 0.2 && weather.CloudCover < 30 {
				severity = types.SeverityHigh
			}
		}

		m.raise(CategorySolarDeficit, severity,
			"Solar deficit during daylight",
			fmt.Sprintf("Load %.0fW exceeds production %.0fW with depletion risk %.2f", r.LoadPowerW, r.PVPowerW, risk),
			metadata,
		)
		return
	}
	if !deficit || risk < m.thresholds.DeficitRisk {
		m.clear(CategorySolarDeficit)
	}
}

func (m *Monitor) checkOpportunity(window []types.SolarReading, weather types.WeatherReading, haveWeather bool) {
	if !m.isDaylight(haveWeather, weather) {
		m.clear(CategoryLoadOpportunity)
		return
	}

	opportunity := analytics.LoadOpportunity(window)
	if opportunity >= 0.8 {
		m.raise(CategoryLoadOpportunity, types.SeverityLow,
			"Good time to run deferrable loads",
			fmt.Sprintf("Production surplus available (opportunity score %.2f)", opportunity),
			map[string]any{"opportunity": opportunity},
		)
		return
	}
	if opportunity < 0.5 {
		m.clear(CategoryLoadOpportunity)
	}
}

// isDaylight uses the weather API's sunrise/sunset when available,
// falling back to a fixed 07:00-19:00 window.
func (m *Monitor) isDaylight(haveWeather bool, weather types.WeatherReading) bool {
	now := m.now()
	if haveWeather && !weather.Sunrise.IsZero() && !weather.Sunset.IsZero() {
		return now.After(weather.Sunrise) && now.Before(weather.Sunset)
	}
	h := now.Hour()
	return h >= 7 && h < 19
}

// raise creates an alert unless one is already active in the category
// or the preference threshold filters out the severity.
func (m *Monitor) raise(category string, severity types.Severity, title, message string, metadata map[string]any) {
	if m.manager.ActiveInCategory(category) {
		return
	}
	if min, ok := m.minSeverity(category); ok && !severity.AtLeast(min) {
		m.log.Debug().
			Str("category", category).
			Str("severity", string(severity)).
			Msg("Below preference threshold, not raising")
		return
	}
	m.manager.Create(title, message, severity, category, metadata)
}

// clear resolves any active alerts in the category once the condition
// no longer holds.
func (m *Monitor) clear(category string) {
	if n := m.manager.ResolveByCategory(category); n > 0 {
		m.log.Info().
			Str("category", category).
			Int("resolved", n).
			Msg("Condition cleared")
	}
}

// minSeverity resolves the per-alert-kind severity threshold from the
// preferences. Kinds are the category prefix before the underscore, so
// "battery" covers battery_low and battery_critical.
func (m *Monitor) minSeverity(category string) (types.Severity, bool) {
	prefs := m.manager.Preferences()
	if len(prefs.SeverityThresholds) == 0 {
		return "", false
	}
	kind := category
	if i := strings.IndexByte(category, '_'); i > 0 {
		kind = category[:i]
	}
	raw, ok := prefs.SeverityThresholds[kind]
	if !ok {
		raw, ok = prefs.SeverityThresholds[category]
	}
	if !ok {
		return "", false
	}
	sev := types.Severity(raw)
	if !sev.Valid() {
		return "", false
	}
	return sev, true
}
