package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

// ErrClosed is returned by a MemoryStore after Close.
var ErrClosed = errors.New("store is closed")

// MemoryStore is a concurrency-safe in-memory implementation of the telemetry store.
// It keeps the same contract as SQLStore, including the sensor reference check.
type MemoryStore struct {
	mu sync.RWMutex

	sensors []telemetry.Sensor
	known   map[string]struct{}

	// append-only, in insertion order
	entries []telemetry.Entry
	nextID  int64

	closed bool
	now    func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		known:  make(map[string]struct{}),
		nextID: 1,
		now:    time.Now,
	}
}

// Migrate is a no-op; the memory store has no schema.
func (s *MemoryStore) Migrate(context.Context) error {
	return nil
}

// EnsureSensor registers sensor unless its id is already known.
func (s *MemoryStore) EnsureSensor(_ context.Context, sensor telemetry.Sensor) error {
	if sensor.ID == "" {
		return &telemetry.ValidationError{Field: "id", Message: "sensor id is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &telemetry.StoreError{Op: "ensure sensor", Err: ErrClosed}
	}
	if _, ok := s.known[sensor.ID]; ok {
		return nil
	}
	s.known[sensor.ID] = struct{}{}
	s.sensors = append(s.sensors, sensor)
	return nil
}

// InsertEntry appends one entry stamped with the current time.
func (s *MemoryStore) InsertEntry(_ context.Context, e telemetry.NewEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, &telemetry.StoreError{Op: "insert entry", Err: ErrClosed}
	}
	if _, ok := s.known[e.SensorID]; !ok {
		return 0, &telemetry.StoreError{
			Op:  "insert entry",
			Err: fmt.Errorf("%w %q", telemetry.ErrUnknownSensor, e.SensorID),
		}
	}

	id := s.nextID
	s.nextID++
	s.entries = append(s.entries, telemetry.Entry{
		ID:        id,
		Value:     e.Value,
		Type:      e.Type,
		SensorID:  e.SensorID,
		Timestamp: s.now().UTC(),
	})
	return id, nil
}

// ListSensors returns the sensors in registration order.
func (s *MemoryStore) ListSensors(context.Context) ([]telemetry.Sensor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, &telemetry.StoreError{Op: "list sensors", Err: ErrClosed}
	}
	return append([]telemetry.Sensor{}, s.sensors...), nil
}

// ListEntries filters, orders newest first and slices like the SQL LIMIT/OFFSET.
func (s *MemoryStore) ListEntries(_ context.Context, f telemetry.EntryFilter) ([]telemetry.Entry, error) {
	s.mu.RLock()
	matched := make([]telemetry.Entry, 0)
	closed := s.closed
	if !closed {
		for _, e := range s.entries {
			if f.Matches(e) {
				matched = append(matched, e)
			}
		}
	}
	s.mu.RUnlock()

	if closed {
		return nil, &telemetry.StoreError{Op: "list entries", Err: ErrClosed}
	}

	sortNewestFirst(matched)
	return page(matched, f.Offset, f.Length), nil
}

// DailyStats aggregates the sensor's entries inside [from, to] per day.
func (s *MemoryStore) DailyStats(_ context.Context, sensorID string, from, to time.Time) ([]telemetry.DailyStat, error) {
	f := telemetry.EntryFilter{From: &from, To: &to, SensorID: sensorID}

	s.mu.RLock()
	var window []telemetry.Entry
	closed := s.closed
	if !closed {
		for _, e := range s.entries {
			if f.Matches(e) {
				window = append(window, e)
			}
		}
	}
	s.mu.RUnlock()

	if closed {
		return nil, &telemetry.StoreError{Op: "daily stats", Err: ErrClosed}
	}
	return telemetry.AggregateDaily(window), nil
}

// Ping fails only after Close.
func (s *MemoryStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return &telemetry.StoreError{Op: "ping", Err: ErrClosed}
	}
	return nil
}

// Close drops all data.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	s.sensors = nil
	return nil
}

func sortNewestFirst(entries []telemetry.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].ID > entries[j].ID
	})
}

// page mirrors LIMIT length OFFSET offset. A negative length means no limit,
// as in SQLite; a negative offset is treated as zero.
func page(entries []telemetry.Entry, offset, length int) []telemetry.Entry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []telemetry.Entry{}
	}
	entries = entries[offset:]
	if length >= 0 && length < len(entries) {
		entries = entries[:length]
	}
	return entries
}
