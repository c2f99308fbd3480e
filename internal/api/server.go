package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/solwatch/solwatch/internal/alerter"
	"github.com/solwatch/solwatch/internal/config"
	"github.com/solwatch/solwatch/internal/types"
	"github.com/solwatch/solwatch/internal/webui"
)

// ReadingSource supplies the time-series readings for the API.
type ReadingSource interface {
	QueryReadings(since time.Time) ([]types.SolarReading, error)
}

// LatestFunc returns the most recent live reading, if any.
type LatestFunc func() (types.SolarReading, bool)

// Server provides the HTTP API.
type Server struct {
	logger    zerolog.Logger
	port      string
	manager   *alerter.Manager
	readings  ReadingSource
	latest    LatestFunc
	logBuffer *webui.LogBuffer
	startTime time.Time
}

// NewServer creates the API server.
func NewServer(logger zerolog.Logger, port string, manager *alerter.Manager, readings ReadingSource, latest LatestFunc, logBuffer *webui.LogBuffer) *Server {
	return &Server{
		logger:    logger.With().Str("component", "api").Logger(),
		port:      port,
		manager:   manager,
		readings:  readings,
		latest:    latest,
		logBuffer: logBuffer,
		startTime: time.Now(),
	}
}

// Start starts the HTTP server and blocks.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/alerts", s.handleAlerts)
	mux.HandleFunc("/api/alerts/", s.handleAlertAction)
	mux.HandleFunc("/api/recent", s.handleRecent)
	mux.HandleFunc("/api/readings", s.handleReadings)
	mux.HandleFunc("/api/preferences", s.handlePreferences)
	mux.HandleFunc("/api/logs", s.handleLogs)

	addr := ":" + s.port
	s.logger.Info().
		Str("address", addr).
		Msg("Starting API server")

	return http.ListenAndServe(addr, mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"active_alerts": len(s.manager.Active()),
		"uptime":        time.Since(s.startTime).String(),
		"time":          time.Now().UTC().Format(time.RFC3339),
	}
	if s.latest != nil {
		if reading, ok := s.latest(); ok {
			status["latest_reading"] = reading
		}
	}
	if src, ok := s.readings.(interface{ DroppedWrites() int64 }); ok {
		status["dropped_writes"] = src.DroppedWrites()
	}
	writeJSON(w, status)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := s.manager.Active()
	writeJSON(w, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// handleAlertAction handles POST /api/alerts/{id}/ack and
// /api/alerts/{id}/resolve.
func (s *Server) handleAlertAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/alerts/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		http.Error(w, "Alert id and action required", http.StatusBadRequest)
		return
	}
	id, action := parts[0], parts[1]

	var ok bool
	switch action {
	case "ack":
		ok = s.manager.Acknowledge(id)
	case "resolve":
		ok = s.manager.Resolve(id)
	default:
		http.Error(w, "Unknown action", http.StatusBadRequest)
		return
	}

	if !ok {
		http.Error(w, "Alert not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"id": id, "action": action})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	hours := queryHours(r, 24)
	alerts := s.manager.Recent(hours)
	writeJSON(w, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
		"hours":  hours,
	})
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	hours := queryHours(r, 24)
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	readings, err := s.readings.QueryReadings(since)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query readings")
		http.Error(w, "Query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"readings": readings,
		"count":    len(readings),
		"hours":    hours,
	})
}

func (s *Server) handlePreferences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, s.manager.Preferences())
	case http.MethodPut:
		var prefs config.NotificationPrefs
		if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
			http.Error(w, "Invalid preferences payload", http.StatusBadRequest)
			return
		}
		s.manager.UpdatePreferences(prefs)
		writeJSON(w, prefs)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	var entries []webui.LogEntry
	if s.logBuffer != nil {
		entries = s.logBuffer.Recent(200)
	}
	writeJSON(w, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func queryHours(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("hours")
	if raw == "" {
		return fallback
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return fallback
	}
	return hours
}
