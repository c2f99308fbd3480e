// Package collector polls the external data sources: the inverter
// vendor's REST API and the weather API. Each collector runs its own
// loop, retries with doubling backoff on failure, and publishes
// readings on a channel.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/solwatch/solwatch/internal/types"
)

const maxBackoff = 5 * time.Minute

// InverterClient fetches live readings from the vendor API.
type InverterClient struct {
	baseURL string
	siteID  string
	apiKey  string
	client  *http.Client
}

// NewInverterClient creates a client for the vendor API.
func NewInverterClient(baseURL, siteID, apiKey string) *InverterClient {
	return &InverterClient{
		baseURL: baseURL,
		siteID:  siteID,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// liveResponse mirrors the vendor's live-data payload.
type liveResponse struct {
	PVPowerW      float64 `json:"pv_power_w"`
	LoadPowerW    float64 `json:"load_power_w"`
	GridPowerW    float64 `json:"grid_power_w"`
	GridVoltage   float64 `json:"grid_voltage"`
	BatteryPowerW float64 `json:"battery_power_w"`
	BatterySOC    float64 `json:"battery_soc"`
}

// Fetch retrieves the current live reading.
func (c *InverterClient) Fetch(ctx context.Context) (types.SolarReading, error) {
	url := fmt.Sprintf("%s/api/v1/sites/%s/live", c.baseURL, c.siteID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.SolarReading{}, fmt.Errorf("creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return types.SolarReading{}, fmt.Errorf("fetching live data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.SolarReading{}, fmt.Errorf("vendor API error: %s", resp.Status)
	}

	var live liveResponse
	if err := json.NewDecoder(resp.Body).Decode(&live); err != nil {
		return types.SolarReading{}, fmt.Errorf("decoding live data: %w", err)
	}

	return types.SolarReading{
		Timestamp:     time.Now(),
		PVPowerW:      live.PVPowerW,
		LoadPowerW:    live.LoadPowerW,
		GridPowerW:    live.GridPowerW,
		GridVoltage:   live.GridVoltage,
		BatteryPowerW: live.BatteryPowerW,
		BatterySOC:    live.BatterySOC,
	}, nil
}

// InverterCollector polls the vendor API on a fixed interval.
type InverterCollector struct {
	client   *InverterClient
	interval time.Duration
	log      zerolog.Logger
	updates  chan types.SolarReading

	mu     sync.RWMutex
	latest types.SolarReading
	seen   bool
}

// NewInverterCollector creates a collector polling at the given
// interval.
func NewInverterCollector(client *InverterClient, interval time.Duration, log zerolog.Logger) *InverterCollector {
	return &InverterCollector{
		client:   client,
		interval: interval,
		log:      log.With().Str("component", "inverter-collector").Logger(),
		updates:  make(chan types.SolarReading, 16),
	}
}

// Updates returns the channel of polled readings.
func (c *InverterCollector) Updates() <-chan types.SolarReading {
	return c.updates
}

// Latest returns the most recent reading, if any poll has succeeded.
func (c *InverterCollector) Latest() (types.SolarReading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.seen
}

// Run polls until the context is cancelled. Failures back off with
// doubling delay up to a ceiling, then the normal interval resumes on
// the next success.
func (c *InverterCollector) Run(ctx context.Context) {
	c.log.Info().Dur("interval", c.interval).Msg("Starting inverter polling")

	backoff := c.interval
	for {
		reading, err := c.client.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn().
				Err(err).
				Dur("retry_in", backoff).
				Msg("Poll failed, will retry")

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = c.interval

		c.mu.Lock()
		c.latest = reading
		c.seen = true
		c.mu.Unlock()

		select {
		case c.updates <- reading:
		default:
			c.log.Debug().Msg("Update channel full, dropping reading")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}
