package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/solwatch/solwatch/internal/alerter"
	"github.com/solwatch/solwatch/internal/api"
	"github.com/solwatch/solwatch/internal/collector"
	"github.com/solwatch/solwatch/internal/config"
	"github.com/solwatch/solwatch/internal/monitor"
	"github.com/solwatch/solwatch/internal/notifier"
	"github.com/solwatch/solwatch/internal/storage"
	"github.com/solwatch/solwatch/internal/version"
	"github.com/solwatch/solwatch/internal/webui"
)

func main() {
	configPath := flag.String("config", "solwatch.yaml", "Path to configuration file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	// Log buffer for the web API (captures last 1000 log entries)
	logBuffer := webui.NewLogBuffer(1000)

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logLevelParsed, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		logLevelParsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevelParsed)

	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	logger := zerolog.New(multiWriter).With().
		Timestamp().
		Str("version", version.Version).
		Logger()

	logger.Info().
		Str("build", version.String()).
		Msg("Starting SolWatch")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("config_path", *configPath).
			Msg("Failed to load configuration")
	}

	store, err := storage.Open(logger, filepath.Join(cfg.Global.DataDir, "solwatch.db"))
	if err != nil {
		logger.Fatal().
			Err(err).
			Msg("Failed to open storage")
	}

	senders := notifier.NewRegistry(logger, cfg.Channels)

	policy := alerter.BuildCooldownPolicy(logger, cfg.Notifications.MaxPerHour, config.DefaultCooldownPaths)

	manager := alerter.NewManager(logger, store, senders, policy, cfg.Notifications)

	mon := monitor.New(logger, manager, cfg.Thresholds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiKey := ""
	if cfg.Inverter.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.Inverter.APIKeyEnv)
		if apiKey == "" {
			logger.Warn().
				Str("env", cfg.Inverter.APIKeyEnv).
				Msg("Inverter API key env not set, polling unauthenticated")
		}
	}

	inverterCol := collector.NewInverterCollector(
		collector.NewInverterClient(cfg.Inverter.BaseURL, cfg.Inverter.SiteID, apiKey),
		cfg.Global.PollInterval,
		logger,
	)
	go inverterCol.Run(ctx)

	var weatherCol *collector.WeatherCollector
	if cfg.Weather.BaseURL != "" {
		weatherCol = collector.NewWeatherCollector(
			collector.NewWeatherClient(cfg.Weather.BaseURL, cfg.Weather.Latitude, cfg.Weather.Longitude),
			cfg.Weather.PollInterval,
			logger,
		)
		go weatherCol.Run(ctx)
	}

	// Feed polled readings into storage and the monitor
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case reading := <-inverterCol.Updates():
				store.AppendReading(reading)
				mon.Observe(reading)
			}
		}
	}()
	if weatherCol != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case reading := <-weatherCol.Updates():
					store.AppendWeather(reading)
					mon.ObserveWeather(reading)
				}
			}
		}()
	}

	apiServer := api.NewServer(logger, cfg.Global.APIPort, manager, store, inverterCol.Latest, logBuffer)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().
				Err(err).
				Msg("API server error")
		}
	}()

	logger.Info().
		Str("port", cfg.Global.APIPort).
		Msg("SolWatch running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down...")
	cancel()

	manager.Flush()
	if err := store.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing storage")
	}

	logger.Info().Msg("SolWatch stopped")
}
