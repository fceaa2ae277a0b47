package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	inserts  []NewEntry
	sensorID string
	from, to time.Time
	err      error
}

func (s *recordingStore) InsertEntry(_ context.Context, e NewEntry) (int64, error) {
	s.inserts = append(s.inserts, e)
	return int64(len(s.inserts)), s.err
}

func (s *recordingStore) ListSensors(context.Context) ([]Sensor, error) { return nil, s.err }

func (s *recordingStore) ListEntries(context.Context, EntryFilter) ([]Entry, error) {
	return nil, s.err
}

func (s *recordingStore) DailyStats(_ context.Context, sensorID string, from, to time.Time) ([]DailyStat, error) {
	s.sensorID, s.from, s.to = sensorID, from, to
	return nil, s.err
}

func (s *recordingStore) Ping(context.Context) error { return s.err }
func (s *recordingStore) Close() error               { return nil }

func TestServiceAddEntryRejectsBeforeStore(t *testing.T) {
	st := &recordingStore{}
	svc := NewService(st, "default")

	_, err := svc.AddEntry(context.Background(), NewEntry{Value: 0, Type: TypeTemperature, SensorID: "S1"})
	assert.True(t, IsValidation(err))
	assert.Empty(t, st.inserts)

	id, err := svc.AddEntry(context.Background(), NewEntry{Value: 21, Type: " temperature ", SensorID: "S1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, TypeTemperature, st.inserts[0].Type)
}

func TestServiceDailyStatsWindowAndDefaultSensor(t *testing.T) {
	st := &recordingStore{}
	svc := NewService(st, "fallback-sensor")
	now := time.Date(2026, 10, 15, 12, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	stats, err := svc.DailyStats(context.Background(), 5, "")
	require.NoError(t, err)
	assert.NotNil(t, stats)
	assert.Equal(t, "fallback-sensor", st.sensorID)
	assert.Equal(t, now, st.to)
	assert.Equal(t, time.Date(2026, 10, 10, 12, 30, 0, 0, time.UTC), st.from)

	_, err = svc.DailyStats(context.Background(), 2, "S9")
	require.NoError(t, err)
	assert.Equal(t, "S9", st.sensorID)

	_, err = svc.DailyStats(context.Background(), 0, "S9")
	assert.True(t, IsValidation(err))
}

func TestServiceSurfacesStoreErrors(t *testing.T) {
	storeErr := &StoreError{Op: "list entries", Err: errors.New("connection refused")}
	svc := NewService(&recordingStore{err: storeErr}, "default")

	_, err := svc.ListEntries(context.Background(), EntryFilter{Length: 10})
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.False(t, IsValidation(err))

	_, err = svc.ListSensors(context.Background())
	assert.ErrorIs(t, err, storeErr)
}

func TestServiceReturnsEmptySlices(t *testing.T) {
	svc := NewService(&recordingStore{}, "default")

	sensors, err := svc.ListSensors(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sensors)

	entries, err := svc.ListEntries(context.Background(), EntryFilter{})
	require.NoError(t, err)
	assert.NotNil(t, entries)
}
