package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInverterClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/sites/site-42/live", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`{"pv_power_w":3200,"load_power_w":900,"grid_power_w":-2300,"grid_voltage":231.5,"battery_power_w":0,"battery_soc":87}`))
	}))
	defer srv.Close()

	client := NewInverterClient(srv.URL, "site-42", "secret")
	reading, err := client.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3200.0, reading.PVPowerW)
	assert.Equal(t, -2300.0, reading.GridPowerW)
	assert.Equal(t, 87.0, reading.BatterySOC)
	assert.WithinDuration(t, time.Now(), reading.Timestamp, time.Minute)
}

func TestInverterClientFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewInverterClient(srv.URL, "site-42", "")
	_, err := client.Fetch(context.Background())
	assert.ErrorContains(t, err, "vendor API error")
}

func TestInverterCollectorPublishesAndTracksLatest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pv_power_w":1500,"battery_soc":60}`))
	}))
	defer srv.Close()

	client := NewInverterClient(srv.URL, "s", "")
	coll := NewInverterCollector(client, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coll.Run(ctx)

	select {
	case reading := <-coll.Updates():
		assert.Equal(t, 1500.0, reading.PVPowerW)
	case <-time.After(2 * time.Second):
		t.Fatal("no reading published")
	}

	latest, ok := coll.Latest()
	require.True(t, ok)
	assert.Equal(t, 60.0, latest.BatterySOC)
}

func TestWeatherClientFetchParsesSunTimes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/current", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("lat"))
		w.Write([]byte(`{"cloud_cover":35,"temperature_c":21.5,"sunrise":"2026-08-31T06:12:00Z","sunset":"2026-08-31T19:48:00Z"}`))
	}))
	defer srv.Close()

	client := NewWeatherClient(srv.URL, 52.1, 4.3)
	reading, err := client.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 35.0, reading.CloudCover)
	assert.Equal(t, 21.5, reading.TempC)
	assert.Equal(t, 6, reading.Sunrise.Hour())
	assert.Equal(t, 19, reading.Sunset.Hour())
}

func TestWeatherClientFetchIgnoresBadSunTimes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cloud_cover":80,"temperature_c":12,"sunrise":"","sunset":"soon"}`))
	}))
	defer srv.Close()

	client := NewWeatherClient(srv.URL, 52.1, 4.3)
	reading, err := client.Fetch(context.Background())
	require.NoError(t, err)

	assert.True(t, reading.Sunrise.IsZero())
	assert.True(t, reading.Sunset.IsZero())
	assert.Equal(t, 80.0, reading.CloudCover)
}
