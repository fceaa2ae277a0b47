package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

// SQLStore is the relational telemetry.Store. It holds one bounded pool for
// the lifetime of the process; every operation checks out a dedicated
// connection and returns it before the call ends.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

// NewSQLStore opens the pool described by cfg. cfg.Driver must already be
// normalized.
func NewSQLStore(cfg Config) (*SQLStore, error) {
	dsn, err := dataSourceName(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening the database: %w", err)
	}
	return newSQLStore(db, cfg.Driver, cfg.PoolSize), nil
}

func newSQLStore(db *sqlx.DB, driver string, poolSize int) *SQLStore {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)

	log.Printf("INFO: %s store opened with a pool of %d connections", driver, poolSize)
	return &SQLStore{db: db, driver: driver, now: time.Now}
}

// withConn runs fn on a connection checked out of the pool. The connection is
// released on every return path and failures come back as *StoreError.
func (s *SQLStore) withConn(ctx context.Context, op string, fn func(conn *sqlx.Conn) error) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return &telemetry.StoreError{Op: op, Err: fmt.Errorf("acquire connection: %w", err)}
	}
	defer conn.Close()

	if err := fn(conn); err != nil {
		return &telemetry.StoreError{Op: op, Err: err}
	}
	return nil
}

// InsertEntry appends one entry stamped with the current server time.
func (s *SQLStore) InsertEntry(ctx context.Context, e telemetry.NewEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	ts := s.now().UTC()

	var id int64
	err := s.withConn(ctx, "insert entry", func(conn *sqlx.Conn) error {
		var err error
		if s.driver == DriverPostgres {
			// pgx does not report LastInsertId.
			err = conn.QueryRowxContext(ctx, conn.Rebind(insertEntrySQL+" RETURNING id"),
				e.Value, e.Type, e.SensorID, ts).Scan(&id)
		} else {
			var res sql.Result
			res, err = conn.ExecContext(ctx, conn.Rebind(insertEntrySQL), e.Value, e.Type, e.SensorID, ts)
			if err == nil {
				id, err = res.LastInsertId()
			}
		}
		if err != nil && isForeignKeyViolation(err) {
			return fmt.Errorf("%w %q: %v", telemetry.ErrUnknownSensor, e.SensorID, err)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListSensors returns all sensors in store order.
func (s *SQLStore) ListSensors(ctx context.Context) ([]telemetry.Sensor, error) {
	sensors := []telemetry.Sensor{}
	err := s.withConn(ctx, "list sensors", func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &sensors, listSensorsSQL)
	})
	if err != nil {
		return nil, err
	}
	return sensors, nil
}

// ListEntries returns the page of entries selected by f, newest first.
func (s *SQLStore) ListEntries(ctx context.Context, f telemetry.EntryFilter) ([]telemetry.Entry, error) {
	query, args := buildEntriesQuery(f)

	entries := []telemetry.Entry{}
	err := s.withConn(ctx, "list entries", func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &entries, conn.Rebind(query), args...)
	})
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Timestamp = entries[i].Timestamp.UTC()
	}
	return entries, nil
}

// DailyStats runs the per-day conditional aggregation for one sensor.
func (s *SQLStore) DailyStats(ctx context.Context, sensorID string, from, to time.Time) ([]telemetry.DailyStat, error) {
	stats := []telemetry.DailyStat{}
	err := s.withConn(ctx, "daily stats", func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &stats, conn.Rebind(dailyStatsSQL), from.UTC(), to.UTC(), sensorID)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Ping checks connectivity through a pooled connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.withConn(ctx, "ping", func(conn *sqlx.Conn) error {
		return conn.PingContext(ctx)
	})
}

// Close tears the pool down. It is called once, on shutdown.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
