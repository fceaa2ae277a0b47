package store

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

var schemas = map[string][]string{
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS sensor (
	id VARCHAR(64) NOT NULL PRIMARY KEY,
	lat DOUBLE NOT NULL,
	lon DOUBLE NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS entry (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	entry_value DECIMAL(10,2) NOT NULL,
	entry_type VARCHAR(32) NOT NULL,
	sensor_id VARCHAR(64) NOT NULL,
	timestamp DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	INDEX idx_entry_sensor_time (sensor_id, timestamp),
	INDEX idx_entry_time (timestamp),
	CONSTRAINT fk_entry_sensor FOREIGN KEY (sensor_id) REFERENCES sensor (id)
)`,
	},
	DriverPostgres: {
		`CREATE TABLE IF NOT EXISTS sensor (
	id TEXT PRIMARY KEY,
	lat DOUBLE PRECISION NOT NULL,
	lon DOUBLE PRECISION NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS entry (
	id BIGSERIAL PRIMARY KEY,
	entry_value NUMERIC(10,2) NOT NULL,
	entry_type TEXT NOT NULL,
	sensor_id TEXT NOT NULL REFERENCES sensor (id),
	timestamp TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_entry_sensor_time ON entry (sensor_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_entry_time ON entry (timestamp)`,
	},
	// SQLite keeps timestamps as text, so they must all share the driver's
	// bound format. There is no column default: CURRENT_TIMESTAMP would write a
	// different layout.
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS sensor (
	id TEXT PRIMARY KEY,
	lat REAL NOT NULL,
	lon REAL NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS entry (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_value DECIMAL(10,2) NOT NULL,
	entry_type TEXT NOT NULL,
	sensor_id TEXT NOT NULL REFERENCES sensor (id),
	timestamp DATETIME NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_entry_sensor_time ON entry (sensor_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_entry_time ON entry (timestamp)`,
	},
}

// Migrate creates the sensor and entry tables when they are missing.
func (s *SQLStore) Migrate(ctx context.Context) error {
	statements, ok := schemas[s.driver]
	if !ok {
		return fmt.Errorf("no schema for driver %q", s.driver)
	}

	err := s.withConn(ctx, "migrate", func(conn *sqlx.Conn) error {
		for _, stmt := range statements {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("INFO: %s schema is up to date", s.driver)
	return nil
}

// EnsureSensor registers sensor unless a sensor with the same id exists.
// It reads before inserting so the statement stays portable across engines.
func (s *SQLStore) EnsureSensor(ctx context.Context, sensor telemetry.Sensor) error {
	if sensor.ID == "" {
		return &telemetry.ValidationError{Field: "id", Message: "sensor id is required"}
	}

	return s.withConn(ctx, "ensure sensor", func(conn *sqlx.Conn) error {
		var count int
		if err := conn.GetContext(ctx, &count, conn.Rebind(findSensorSQL), sensor.ID); err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		if count > 0 {
			return nil
		}
		if _, err := conn.ExecContext(ctx, conn.Rebind(insertSensorSQL), sensor.ID, sensor.Lat, sensor.Lon); err != nil {
			return fmt.Errorf("insert sensor: %w", err)
		}
		return nil
	})
}
