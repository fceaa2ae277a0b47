package telemetry

import (
	"context"
	"strings"
	"time"
)

// DefaultStatsDays is the window used by DailyStats callers that do not ask
// for one.
const DefaultStatsDays = 5

// Service applies input validation and defaults before delegating to a Store.
type Service struct {
	store           Store
	defaultSensorID string
	now             func() time.Time
}

// NewService creates a new Service. defaultSensorID is used by DailyStats
// when the caller does not name a sensor.
func NewService(store Store, defaultSensorID string) *Service {
	return &Service{
		store:           store,
		defaultSensorID: defaultSensorID,
		now:             time.Now,
	}
}

// DefaultSensorID returns the sensor used by DailyStats when none is given.
func (s *Service) DefaultSensorID() string {
	return s.defaultSensorID
}

// AddEntry validates e and stores it, returning the new entry id.
func (s *Service) AddEntry(ctx context.Context, e NewEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	e.Type = strings.TrimSpace(e.Type)
	e.SensorID = strings.TrimSpace(e.SensorID)

	return s.store.InsertEntry(ctx, e)
}

// ListSensors returns every registered sensor.
func (s *Service) ListSensors(ctx context.Context) ([]Sensor, error) {
	sensors, err := s.store.ListSensors(ctx)
	if err != nil {
		return nil, err
	}
	if sensors == nil {
		sensors = []Sensor{}
	}
	return sensors, nil
}

// ListEntries returns one page of entries matching f, newest first.
// Offset and Length are passed through unchecked.
func (s *Service) ListEntries(ctx context.Context, f EntryFilter) ([]Entry, error) {
	entries, err := s.store.ListEntries(ctx, f)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// DailyStats aggregates the last days calendar days of sensorID, ending now.
// An empty sensorID falls back to the configured default sensor.
func (s *Service) DailyStats(ctx context.Context, days int, sensorID string) ([]DailyStat, error) {
	if days <= 0 {
		return nil, &ValidationError{Field: "days", Message: "Please provide a valid number of days"}
	}
	sensorID = strings.TrimSpace(sensorID)
	if sensorID == "" {
		sensorID = s.defaultSensorID
	}

	to := s.now().UTC()
	from := to.AddDate(0, 0, -days)

	stats, err := s.store.DailyStats(ctx, sensorID, from, to)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = []DailyStat{}
	}
	return stats, nil
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
