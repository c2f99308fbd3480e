package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solwatch/solwatch/internal/alerter"
	"github.com/solwatch/solwatch/internal/config"
	"github.com/solwatch/solwatch/internal/notifier"
	"github.com/solwatch/solwatch/internal/types"
)

type nopStore struct{}

func (nopStore) WriteAlert(types.Alert) error                           { return nil }
func (nopStore) UpdateAlertStatus(string, types.Status, time.Time) error { return nil }
func (nopStore) QueryRecentAlerts(int) ([]types.Alert, error)           { return nil, nil }

type recordingSender struct {
	mu   sync.Mutex
	sent []types.Alert
}

func (r *recordingSender) Name() string { return "push" }

func (r *recordingSender) Send(alert *types.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, alert.Clone())
	return nil
}

type singleRegistry struct {
	sender *recordingSender
}

func (r *singleRegistry) Get(name string) (notifier.Sender, bool) {
	if name == "push" {
		return r.sender, true
	}
	return nil, false
}

func (r *singleRegistry) Voice() notifier.Sender { return nil }

func testThresholds() config.ThresholdConfig {
	return config.ThresholdConfig{
		BatteryLowSOC:      20,
		BatteryCriticalSOC: 10,
		GridVoltageMin:     80,
		DeficitRisk:        0.7,
	}
}

func newTestMonitor(t *testing.T, prefs config.NotificationPrefs) (*Monitor, *alerter.Manager) {
	t.Helper()
	registry := &singleRegistry{sender: &recordingSender{}}
	policy := alerter.CooldownPolicy{Default: time.Minute}
	manager := alerter.NewManager(zerolog.Nop(), nopStore{}, registry, policy, prefs)
	mon := New(zerolog.Nop(), manager, testThresholds())
	// Pin the clock to midday so the daylight fallback window is open
	mon.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return mon, manager
}

func healthyReading() types.SolarReading {
	return types.SolarReading{
		Timestamp:   time.Now(),
		PVPowerW:    3000,
		LoadPowerW:  500,
		GridPowerW:  0,
		GridVoltage: 230,
		BatterySOC:  90,
	}
}

func activeCategories(m *alerter.Manager) map[string]types.Alert {
	out := make(map[string]types.Alert)
	for _, a := range m.Active() {
		out[a.Category] = a
	}
	return out
}

func TestHealthyReadingRaisesNothing(t *testing.T) {
	mon, manager := newTestMonitor(t, config.NotificationPrefs{Channels: []string{"push"}})

	mon.Observe(healthyReading())
	manager.Flush()

	active := activeCategories(manager)
	delete(active, CategoryLoadOpportunity) // surplus may legitimately raise a suggestion
	assert.Empty(t, active)
}

func TestGridOutageRaisedAndCleared(t *testing.T) {
	mon, manager := newTestMonitor(t, config.NotificationPrefs{Channels: []string{"push"}})

	r := healthyReading()
	r.GridVoltage = 0
	mon.Observe(r)
	manager.Flush()

	active := activeCategories(manager)
	require.Contains(t, active, CategoryGridOutage)
	assert.Equal(t, types.SeverityHigh, active[CategoryGridOutage].Severity)

	// A second outage reading does not duplicate the active alert
	mon.Observe(r)
	manager.Flush()
	count := 0
	for _, a := range manager.Active() {
		if a.Category == CategoryGridOutage {
			count++
		}
	}
	assert.Equal(t, 1, count)

	// Recovery auto-resolves
	mon.Observe(healthyReading())
	manager.Flush()
	assert.NotContains(t, activeCategories(manager), CategoryGridOutage)
}

func TestBatteryThresholds(t *testing.T) {
	mon, manager := newTestMonitor(t, config.NotificationPrefs{Channels: []string{"push"}})

	r := healthyReading()
	r.BatterySOC = 15
	mon.Observe(r)
	manager.Flush()

	active := activeCategories(manager)
	require.Contains(t, active, CategoryBatteryLow)
	assert.NotContains(t, active, CategoryBatteryCritical)

	// Crossing the critical floor raises the critical category
	r.BatterySOC = 5
	mon.Observe(r)
	manager.Flush()
	active = activeCategories(manager)
	require.Contains(t, active, CategoryBatteryCritical)
	assert.Equal(t, types.SeverityCritical, active[CategoryBatteryCritical].Severity)

	// Recharging clears both
	r.BatterySOC = 60
	mon.Observe(r)
	manager.Flush()
	active = activeCategories(manager)
	assert.NotContains(t, active, CategoryBatteryLow)
	assert.NotContains(t, active, CategoryBatteryCritical)
}

func TestSolarDeficitNeedsDaylight(t *testing.T) {
	mon, manager := newTestMonitor(t, config.NotificationPrefs{Channels: []string{"push"}})
	// Night time: daylight fallback window closed
	mon.now = func() time.Time { return time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC) }

	r := healthyReading()
	r.PVPowerW = 0
	r.LoadPowerW = 2000
	r.BatterySOC = 25
	for i := 0; i < 5; i++ {
		r.BatterySOC -= 2
		mon.Observe(r)
	}
	manager.Flush()

	assert.NotContains(t, activeCategories(manager), CategorySolarDeficit)
}

func TestSolarDeficitDuringDaylight(t *testing.T) {
	mon, manager := newTestMonitor(t, config.NotificationPrefs{Channels: []string{"push"}})

	r := healthyReading()
	r.PVPowerW = 100
	r.LoadPowerW = 2500
	r.BatterySOC = 40
	for i := 0; i < 6; i++ {
		r.BatterySOC -= 6
		mon.Observe(r)
	}
	manager.Flush()

	assert.Contains(t, activeCategories(manager), CategorySolarDeficit)
}

func TestSolarDeficitEscalatesWhenClearSkyUnderperforming(t *testing.T) {
	mon, manager := newTestMonitor(t, config.NotificationPrefs{Channels: []string{"push"}})
	mon.ObserveWeather(types.WeatherReading{CloudCover: 5})
	mon.ObserveWeather(types.WeatherReading{CloudCover: 5})

	// Production flat and decoupled from the clear sky while the
	// battery drains: escalated beyond the risk-based severity
	r := healthyReading()
	r.PVPowerW = 100
	r.LoadPowerW = 2500
	r.BatterySOC = 50
	for i := 0; i < 5; i++ {
		r.BatterySOC -= 2
		mon.Observe(r)
	}
	manager.Flush()

	active := activeCategories(manager)
	require.Contains(t, active, CategorySolarDeficit)
	assert.Equal(t, types.SeverityHigh, active[CategorySolarDeficit].Severity)
	corr, ok := active[CategorySolarDeficit].Metadata["weather_correlation"].(float64)
	require.True(t, ok)
	assert.Less(t, corr, 0.2)
}

func TestSolarDeficitStaysMediumUnderCloud(t *testing.T) {
	mon, manager := newTestMonitor(t, config.NotificationPrefs{Channels: []string{"push"}})
	mon.ObserveWeather(types.WeatherReading{CloudCover: 90})
	mon.ObserveWeather(types.WeatherReading{CloudCover: 90})

	// The same drain under heavy cloud is weather, not equipment
	r := healthyReading()
	r.PVPowerW = 100
	r.LoadPowerW = 2500
	r.BatterySOC = 50
	for i := 0; i < 5; i++ {
		r.BatterySOC -= 2
		mon.Observe(r)
	}
	manager.Flush()

	active := activeCategories(manager)
	require.Contains(t, active, CategorySolarDeficit)
	assert.Equal(t, types.SeverityMedium, active[CategorySolarDeficit].Severity)
	assert.Contains(t, active[CategorySolarDeficit].Metadata, "weather_correlation")
}

func TestDaylightFromWeather(t *testing.T) {
	mon, _ := newTestMonitor(t, config.NotificationPrefs{Channels: []string{"push"}})
	noon := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	mon.now = func() time.Time { return noon }

	mon.ObserveWeather(types.WeatherReading{
		Sunrise: noon.Add(-6 * time.Hour),
		Sunset:  noon.Add(6 * time.Hour),
	})
	assert.True(t, mon.isDaylight(true, mon.weather))

	mon.ObserveWeather(types.WeatherReading{
		Sunrise: noon.Add(2 * time.Hour),
		Sunset:  noon.Add(14 * time.Hour),
	})
	assert.False(t, mon.isDaylight(true, mon.weather))
}

func TestSeverityThresholdFiltersAlerts(t *testing.T) {
	prefs := config.NotificationPrefs{
		Channels:           []string{"push"},
		SeverityThresholds: map[string]string{"battery": "high"},
	}
	mon, manager := newTestMonitor(t, prefs)

	// Medium battery_low is filtered by the "battery" kind threshold
	r := healthyReading()
	r.BatterySOC = 18
	mon.Observe(r)
	manager.Flush()
	assert.NotContains(t, activeCategories(manager), CategoryBatteryLow)

	// Critical battery_critical passes it
	r.BatterySOC = 4
	mon.Observe(r)
	manager.Flush()
	assert.Contains(t, activeCategories(manager), CategoryBatteryCritical)
}
