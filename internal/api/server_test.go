package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solwatch/solwatch/internal/alerter"
	"github.com/solwatch/solwatch/internal/config"
	"github.com/solwatch/solwatch/internal/notifier"
	"github.com/solwatch/solwatch/internal/types"
	"github.com/solwatch/solwatch/internal/webui"
)

type nopStore struct{}

func (nopStore) WriteAlert(types.Alert) error                            { return nil }
func (nopStore) UpdateAlertStatus(string, types.Status, time.Time) error { return nil }
func (nopStore) QueryRecentAlerts(int) ([]types.Alert, error)            { return nil, nil }

type nopRegistry struct{}

func (nopRegistry) Get(string) (notifier.Sender, bool) { return nil, false }
func (nopRegistry) Voice() notifier.Sender             { return nil }

type fakeReadings struct {
	readings []types.SolarReading
}

func (f *fakeReadings) QueryReadings(since time.Time) ([]types.SolarReading, error) {
	return f.readings, nil
}

func newTestServer(t *testing.T) (*Server, *alerter.Manager) {
	t.Helper()
	manager := alerter.NewManager(
		zerolog.Nop(), nopStore{}, nopRegistry{},
		alerter.CooldownPolicy{Default: time.Minute},
		config.NotificationPrefs{MaxPerHour: 3},
	)
	readings := &fakeReadings{readings: []types.SolarReading{{PVPowerW: 1200}}}
	latest := func() (types.SolarReading, bool) {
		return types.SolarReading{PVPowerW: 1200, BatterySOC: 80}, true
	}
	srv := NewServer(zerolog.Nop(), "0", manager, readings, latest, webui.NewLogBuffer(10))
	return srv, manager
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHandleStatusIncludesLatestReading(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Contains(t, status, "latest_reading")
	assert.EqualValues(t, 0, status["active_alerts"])
	// The plain reading source exposes no write-drop counter
	assert.NotContains(t, status, "dropped_writes")
}

type droppingReadings struct {
	fakeReadings
	dropped int64
}

func (d *droppingReadings) DroppedWrites() int64 { return d.dropped }

func TestHandleStatusReportsDroppedWrites(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.readings = &droppingReadings{dropped: 7}

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.EqualValues(t, 7, status["dropped_writes"])
}

func TestHandleAlertsListsActive(t *testing.T) {
	srv, manager := newTestServer(t)
	manager.Create("Battery low", "msg", types.SeverityMedium, "battery_low", nil)
	manager.Flush()

	rec := httptest.NewRecorder()
	srv.handleAlerts(rec, httptest.NewRequest(http.MethodGet, "/alerts", nil))

	var resp struct {
		Alerts []types.Alert `json:"alerts"`
		Count  int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "battery_low", resp.Alerts[0].Category)
}

func TestHandleAlertAction(t *testing.T) {
	srv, manager := newTestServer(t)
	alert := manager.Create("Battery low", "msg", types.SeverityMedium, "battery_low", nil)
	manager.Flush()

	rec := httptest.NewRecorder()
	srv.handleAlertAction(rec, httptest.NewRequest(http.MethodPost, "/api/alerts/"+alert.ID+"/ack", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.handleAlertAction(rec, httptest.NewRequest(http.MethodPost, "/api/alerts/"+alert.ID+"/resolve", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, manager.Active())

	// Unknown id maps to 404
	rec = httptest.NewRecorder()
	srv.handleAlertAction(rec, httptest.NewRequest(http.MethodPost, "/api/alerts/nope/ack", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unknown action and bad method are client errors
	rec = httptest.NewRecorder()
	srv.handleAlertAction(rec, httptest.NewRequest(http.MethodPost, "/api/alerts/"+alert.ID+"/boost", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.handleAlertAction(rec, httptest.NewRequest(http.MethodGet, "/api/alerts/x/ack", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleReadings(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleReadings(rec, httptest.NewRequest(http.MethodGet, "/api/readings?hours=6", nil))

	var resp struct {
		Count int `json:"count"`
		Hours int `json:"hours"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 6, resp.Hours)
}

func TestHandlePreferencesRoundTrip(t *testing.T) {
	srv, manager := newTestServer(t)

	body := `{"channels":["email"],"quiet_hours":{"start":"22:00","end":"06:00"},"max_per_hour":5,"voice_escalation":true}`
	rec := httptest.NewRecorder()
	srv.handlePreferences(rec, httptest.NewRequest(http.MethodPut, "/api/preferences", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	prefs := manager.Preferences()
	assert.Equal(t, []string{"email"}, prefs.Channels)
	assert.Equal(t, 5, prefs.MaxPerHour)
	assert.True(t, prefs.VoiceEscalation)

	rec = httptest.NewRecorder()
	srv.handlePreferences(rec, httptest.NewRequest(http.MethodGet, "/api/preferences", nil))
	assert.Contains(t, rec.Body.String(), "email")

	rec = httptest.NewRecorder()
	srv.handlePreferences(rec, httptest.NewRequest(http.MethodPut, "/api/preferences", strings.NewReader("{bad")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryHours(t *testing.T) {
	assert.Equal(t, 24, queryHours(httptest.NewRequest(http.MethodGet, "/x", nil), 24))
	assert.Equal(t, 6, queryHours(httptest.NewRequest(http.MethodGet, "/x?hours=6", nil), 24))
	assert.Equal(t, 24, queryHours(httptest.NewRequest(http.MethodGet, "/x?hours=-2", nil), 24))
	assert.Equal(t, 24, queryHours(httptest.NewRequest(http.MethodGet, "/x?hours=abc", nil), 24))
}
