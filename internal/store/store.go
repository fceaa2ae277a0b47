package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

// Supported values of Config.Driver.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// DefaultPoolSize bounds the number of concurrently open store connections.
const DefaultPoolSize = 5

// Config holds the connection settings of the telemetry store.
type Config struct {
	Driver   string // mysql (MariaDB), pgx (PostgreSQL), sqlite or memory
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Path     string // database file for sqlite
	PoolSize int
}

// Backend is a telemetry.Store that also owns its schema and the out-of-band
// sensor registry.
type Backend interface {
	telemetry.Store
	Migrate(ctx context.Context) error
	EnsureSensor(ctx context.Context, s telemetry.Sensor) error
}

// Open creates the store selected by cfg.Driver.
func Open(cfg Config) (Backend, error) {
	driver, err := NormalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	cfg.Driver = driver

	if driver == DriverMemory {
		return NewMemoryStore(), nil
	}
	return NewSQLStore(cfg)
}

// NormalizeDriver maps the accepted driver spellings onto the Driver constants.
func NormalizeDriver(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mysql", "mariadb":
		return DriverMySQL, nil
	case "pgx", "postgres", "postgresql":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "memory":
		return DriverMemory, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", name)
	}
}
