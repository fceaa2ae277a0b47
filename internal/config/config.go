package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/sensor-telemetry/internal/store"
	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

// FallbackSensorID is the sensor reported by /api/stats when the request
// names none and DEFAULT_SENSOR_ID is unset.
const FallbackSensorID = "72fe4140-a1ba-11ef-b0e1-0242ac110002"

type AppConfig struct {
	Store store.Config

	// DefaultSensorID is used by the stats endpoint when sensorId is absent.
	DefaultSensorID string

	// AutoMigrate creates missing tables on startup; SeedSensors are then
	// registered if absent.
	AutoMigrate bool
	SeedSensors []telemetry.Sensor

	PublicDir   string
	CORSOrigins string

	Port            string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	loadDotEnv()
	cfg := &AppConfig{}

	driver, err := store.NormalizeDriver(getenvDefault("DB_DRIVER", store.DriverMySQL))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_DRIVER: %w", err)
	}
	cfg.Store = store.Config{
		Driver:   driver,
		Host:     os.Getenv("DB_HOST"),
		Port:     getenvInt("DB_PORT", 3306),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
		Path:     getenvDefault("DB_PATH", "telemetry.sqlite"),
		PoolSize: getenvInt("DB_POOL_SIZE", store.DefaultPoolSize),
	}
	if driver == store.DriverPostgres && os.Getenv("DB_PORT") == "" {
		cfg.Store.Port = 5432
	}

	cfg.DefaultSensorID = getenvDefault("DEFAULT_SENSOR_ID", FallbackSensorID)
	cfg.AutoMigrate = getenvBool("AUTO_MIGRATE", driver == store.DriverSQLite)

	seeds, err := parseSensors(os.Getenv("SEED_SENSORS"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEED_SENSORS: %w", err)
	}
	cfg.SeedSensors = seeds

	cfg.PublicDir = getenvDefault("PUBLIC_DIR", "public")
	cfg.CORSOrigins = getenvDefault("CORS_ORIGINS", "*")
	cfg.Port = getenvDefault("PORT", "3000")

	shutdown, err := time.ParseDuration(getenvDefault("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout = shutdown

	return cfg, nil
}

// SimulatorConfig drives cmd/sensor-simulator.
type SimulatorConfig struct {
	APIURL    string
	SensorIDs []string

	// Interval is the report period; it also bounds one reading's delivery,
	// retries included.
	Interval time.Duration
	// Timeout (SIMULATOR_TIMEOUT) limits a single HTTP attempt.
	Timeout time.Duration

	MaxRetries int
}

// LoadSimulator reads the simulator configuration.
func LoadSimulator() (*SimulatorConfig, error) {
	loadDotEnv()
	cfg := &SimulatorConfig{}

	cfg.APIURL = strings.TrimRight(getenvDefault("SIMULATOR_API_URL", "http://localhost:3000"), "/")

	for _, id := range strings.Split(os.Getenv("SIMULATOR_SENSOR_IDS"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.SensorIDs = append(cfg.SensorIDs, id)
		}
	}
	if len(cfg.SensorIDs) == 0 {
		cfg.SensorIDs = []string{getenvDefault("DEFAULT_SENSOR_ID", FallbackSensorID)}
	}

	interval, err := time.ParseDuration(getenvDefault("SIMULATOR_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SIMULATOR_INTERVAL: %w", err)
	}
	if interval < time.Second {
		return nil, fmt.Errorf("invalid SIMULATOR_INTERVAL: must be at least 1s")
	}
	cfg.Interval = interval

	timeout, err := time.ParseDuration(getenvDefault("SIMULATOR_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SIMULATOR_TIMEOUT: %w", err)
	}
	cfg.Timeout = timeout
	cfg.MaxRetries = getenvInt("SIMULATOR_MAX_RETRIES", 3)

	return cfg, nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
}

// parseSensors parses "id:lat:lon" items separated by commas.
func parseSensors(raw string) ([]telemetry.Sensor, error) {
	var sensors []telemetry.Sensor
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%q: want id:lat:lon", item)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("%q: latitude must be within -90..90", item)
		}
		lon, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("%q: longitude must be within -180..180", item)
		}
		sensors = append(sensors, telemetry.Sensor{ID: strings.TrimSpace(parts[0]), Lat: lat, Lon: lon})
	}
	return sensors, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
