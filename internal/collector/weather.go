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

// WeatherClient fetches current conditions from the weather API.
type WeatherClient struct {
	baseURL   string
	latitude  float64
	longitude float64
	client    *http.Client
}

// NewWeatherClient creates a weather API client for the site location.
func NewWeatherClient(baseURL string, latitude, longitude float64) *WeatherClient {
	return &WeatherClient{
		baseURL:   baseURL,
		latitude:  latitude,
		longitude: longitude,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type weatherResponse struct {
	CloudCover float64 `json:"cloud_cover"`
	TempC      float64 `json:"temperature_c"`
	Sunrise    string  `json:"sunrise"`
	Sunset     string  `json:"sunset"`
}

// Fetch retrieves current conditions for the configured location.
func (c *WeatherClient) Fetch(ctx context.Context) (types.WeatherReading, error) {
	url := fmt.Sprintf("%s/v1/current?lat=%f&lon=%f", c.baseURL, c.latitude, c.longitude)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.WeatherReading{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return types.WeatherReading{}, fmt.Errorf("fetching weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.WeatherReading{}, fmt.Errorf("weather API error: %s", resp.Status)
	}

	var w weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&w); err != nil {
		return types.WeatherReading{}, fmt.Errorf("decoding weather: %w", err)
	}

	reading := types.WeatherReading{
		Timestamp:  time.Now(),
		CloudCover: w.CloudCover,
		TempC:      w.TempC,
	}
	if t, err := time.Parse(time.RFC3339, w.Sunrise); err == nil {
		reading.Sunrise = t
	}
	if t, err := time.Parse(time.RFC3339, w.Sunset); err == nil {
		reading.Sunset = t
	}

	return reading, nil
}

// WeatherCollector polls the weather API on a fixed interval.
type WeatherCollector struct {
	client   *WeatherClient
	interval time.Duration
	log      zerolog.Logger
	updates  chan types.WeatherReading

	mu     sync.RWMutex
	latest types.WeatherReading
	seen   bool
}

// NewWeatherCollector creates a weather collector.
func NewWeatherCollector(client *WeatherClient, interval time.Duration, log zerolog.Logger) *WeatherCollector {
	return &WeatherCollector{
		client:   client,
		interval: interval,
		log:      log.With().Str("component", "weather-collector").Logger(),
		updates:  make(chan types.WeatherReading, 4),
	}
}

// Updates returns the channel of polled weather readings.
func (c *WeatherCollector) Updates() <-chan types.WeatherReading {
	return c.updates
}

// Latest returns the most recent weather reading, if any.
func (c *WeatherCollector) Latest() (types.WeatherReading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.seen
}

// Run polls until the context is cancelled.
func (c *WeatherCollector) Run(ctx context.Context) {
	c.log.Info().Dur("interval", c.interval).Msg("Starting weather polling")

	backoff := time.Minute
	for {
		reading, err := c.client.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn().
				Err(err).
				Dur("retry_in", backoff).
				Msg("Weather poll failed, will retry")

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
		backoff = time.Minute

		c.mu.Lock()
		c.latest = reading
		c.seen = true
		c.mu.Unlock()

		select {
		case c.updates <- reading:
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.interval):
		}
	}
}
