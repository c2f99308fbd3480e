package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/solwatch/solwatch/internal/types"
)

const (
	writeChannelSize = 1000
	timeFormat       = time.RFC3339Nano
)

type writeOp struct {
	solar   *types.SolarReading
	weather *types.WeatherReading
	flush   chan struct{}
}

// Store persists readings and alert snapshots in SQLite. Reading
// appends go through a buffered write channel so pollers never block
// on disk; alert writes are synchronous because the alert manager
// already fires them off the caller's goroutine.
type Store struct {
	log           zerolog.Logger
	db            *sql.DB
	writeCh       chan writeOp
	done          chan struct{}
	closed        atomic.Bool
	droppedWrites atomic.Int64
}

// Open opens the store at dbPath.
func Open(log zerolog.Logger, dbPath string) (*Store, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{
		log:     log.With().Str("component", "storage").Logger(),
		db:      db,
		writeCh: make(chan writeOp, writeChannelSize),
		done:    make(chan struct{}),
	}

	go s.writerLoop()

	return s, nil
}

// AppendReading queues one solar reading for persistence. Drops the
// write (and counts it) when the buffer is full.
func (s *Store) AppendReading(r types.SolarReading) {
	s.sendWrite(writeOp{solar: &r})
}

// AppendWeather queues one weather reading for persistence.
func (s *Store) AppendWeather(w types.WeatherReading) {
	s.sendWrite(writeOp{weather: &w})
}

func (s *Store) sendWrite(op writeOp) {
	if s.closed.Load() {
		return
	}
	select {
	case s.writeCh <- op:
	default:
		s.droppedWrites.Add(1)
	}
}

// DroppedWrites reports how many reading writes were dropped because
// the buffer was full.
func (s *Store) DroppedWrites() int64 {
	return s.droppedWrites.Load()
}

// Flush blocks until every reading queued before the call has been
// written.
func (s *Store) Flush() {
	if s.closed.Load() {
		return
	}
	ack := make(chan struct{})
	select {
	case s.writeCh <- writeOp{flush: ack}:
		<-ack
	case <-s.done:
	}
}

// Close flushes pending writes and closes the database.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.writeCh)
	<-s.done
	return s.db.Close()
}

func (s *Store) writerLoop() {
	defer close(s.done)
	for op := range s.writeCh {
		switch {
		case op.flush != nil:
			close(op.flush)
		case op.solar != nil:
			if err := s.insertReading(*op.solar); err != nil {
				s.log.Error().Err(err).Msg("Failed to write reading")
			}
		case op.weather != nil:
			if err := s.insertWeather(*op.weather); err != nil {
				s.log.Error().Err(err).Msg("Failed to write weather reading")
			}
		}
	}
}

func (s *Store) insertReading(r types.SolarReading) error {
	_, err := s.db.Exec(`
		INSERT INTO readings (ts, pv_power_w, load_power_w, grid_power_w, grid_voltage, battery_power_w, battery_soc)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp.UTC().Format(timeFormat),
		r.PVPowerW, r.LoadPowerW, r.GridPowerW, r.GridVoltage, r.BatteryPowerW, r.BatterySOC,
	)
	return err
}

func (s *Store) insertWeather(w types.WeatherReading) error {
	_, err := s.db.Exec(`
		INSERT INTO weather (ts, cloud_cover, temp_c, sunrise, sunset)
		VALUES (?, ?, ?, ?, ?)`,
		w.Timestamp.UTC().Format(timeFormat),
		w.CloudCover, w.TempC,
		w.Sunrise.UTC().Format(timeFormat),
		w.Sunset.UTC().Format(timeFormat),
	)
	return err
}

// QueryReadings returns solar readings at or after since, oldest
// first.
func (s *Store) QueryReadings(since time.Time) ([]types.SolarReading, error) {
	rows, err := s.db.Query(`
		SELECT ts, pv_power_w, load_power_w, grid_power_w, grid_voltage, battery_power_w, battery_soc
		FROM readings WHERE ts >= ? ORDER BY ts ASC`,
		since.UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var readings []types.SolarReading
	for rows.Next() {
		var r types.SolarReading
		var ts string
		if err := rows.Scan(&ts, &r.PVPowerW, &r.LoadPowerW, &r.GridPowerW, &r.GridVoltage, &r.BatteryPowerW, &r.BatterySOC); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		r.Timestamp, _ = time.Parse(timeFormat, ts)
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

// WriteAlert persists the alert's current snapshot, replacing any
// prior snapshot with the same id.
func (s *Store) WriteAlert(a types.Alert) error {
	var metadata any
	if a.Metadata != nil {
		data, err := json.Marshal(a.Metadata)
		if err != nil {
			s.log.Warn().Err(err).Str("alert_id", a.ID).Msg("Unmarshalable alert metadata, storing without")
		} else {
			metadata = string(data)
		}
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO alerts (id, title, message, severity, category, status, ts, acknowledged_at, resolved_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Message, string(a.Severity), a.Category, string(a.Status),
		a.Timestamp.UTC().Format(timeFormat),
		nullableTime(a.AcknowledgedAt),
		nullableTime(a.ResolvedAt),
		metadata,
	)
	if err != nil {
		return fmt.Errorf("writing alert: %w", err)
	}
	return nil
}

// UpdateAlertStatus updates the status and the matching lifecycle
// timestamp of a stored alert.
func (s *Store) UpdateAlertStatus(id string, status types.Status, at time.Time) error {
	column := ""
	switch status {
	case types.StatusAcknowledged:
		column = "acknowledged_at"
	case types.StatusResolved:
		column = "resolved_at"
	}

	var err error
	if column == "" {
		_, err = s.db.Exec(`UPDATE alerts SET status = ? WHERE id = ?`, string(status), id)
	} else {
		_, err = s.db.Exec(
			fmt.Sprintf(`UPDATE alerts SET status = ?, %s = ? WHERE id = ?`, column),
			string(status), at.UTC().Format(timeFormat), id,
		)
	}
	if err != nil {
		return fmt.Errorf("updating alert status: %w", err)
	}
	return nil
}

// QueryRecentAlerts returns alerts created within the trailing window,
// newest first.
func (s *Store) QueryRecentAlerts(hours int) ([]types.Alert, error) {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	rows, err := s.db.Query(`
		SELECT id, title, message, severity, category, status, ts, acknowledged_at, resolved_at, metadata
		FROM alerts WHERE ts >= ? ORDER BY ts DESC`,
		cutoff.UTC().Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []types.Alert
	for rows.Next() {
		var a types.Alert
		var severity, status, ts string
		var ackAt, resAt, metadata sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &a.Message, &severity, &a.Category, &status, &ts, &ackAt, &resAt, &metadata); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		a.Severity = types.Severity(severity)
		a.Status = types.Status(status)
		a.Timestamp, _ = time.Parse(timeFormat, ts)
		a.AcknowledgedAt = parseNullableTime(ackAt)
		a.ResolvedAt = parseNullableTime(resAt)
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &a.Metadata); err != nil {
				s.log.Warn().Err(err).Str("alert_id", a.ID).Msg("Malformed stored alert metadata, ignoring")
			}
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func parseNullableTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(timeFormat, v.String)
	if err != nil {
		return nil
	}
	return &t
}
