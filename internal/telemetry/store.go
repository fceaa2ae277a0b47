package telemetry

import (
	"context"
	"time"
)

// Store is the contract the SQL accessor (and the in-memory store) must satisfy.
// Implementations wrap their own failures in *StoreError and do not retry.
type Store interface {
	InsertEntry(ctx context.Context, e NewEntry) (int64, error)
	ListSensors(ctx context.Context) ([]Sensor, error)
	// ListEntries returns entries ordered by timestamp descending, sliced to
	// [Offset, Offset+Length).
	ListEntries(ctx context.Context, f EntryFilter) ([]Entry, error)
	// DailyStats aggregates the sensor's entries with from <= timestamp <= to,
	// one row per calendar day, newest day first.
	DailyStats(ctx context.Context, sensorID string, from, to time.Time) ([]DailyStat, error)
	Ping(ctx context.Context) error
	Close() error
}
