package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// OpenDB opens (creating if needed) the SQLite database at dbPath and
// ensures the schema exists.
func OpenDB(dbPath string) (*sql.DB, error) {
	parentDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(parentDir, 0755); err != nil {
		return nil, fmt.Errorf("creating parent directories: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS readings (
			ts TEXT NOT NULL,
			pv_power_w REAL NOT NULL,
			load_power_w REAL NOT NULL,
			grid_power_w REAL NOT NULL,
			grid_voltage REAL NOT NULL,
			battery_power_w REAL NOT NULL,
			battery_soc REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_readings_ts ON readings(ts);

		CREATE TABLE IF NOT EXISTS weather (
			ts TEXT NOT NULL,
			cloud_cover REAL NOT NULL,
			temp_c REAL NOT NULL,
			sunrise TEXT,
			sunset TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_weather_ts ON weather(ts);

		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			severity TEXT NOT NULL,
			category TEXT NOT NULL,
			status TEXT NOT NULL,
			ts TEXT NOT NULL,
			acknowledged_at TEXT,
			resolved_at TEXT,
			metadata TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(ts);
		CREATE INDEX IF NOT EXISTS idx_alerts_category ON alerts(category);
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
