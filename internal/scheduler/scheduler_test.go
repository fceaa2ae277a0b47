package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

type fixedSource struct{}

func (fixedSource) Next(sensorID string) []telemetry.NewEntry {
	return []telemetry.NewEntry{
		{Value: 20, Type: telemetry.TypeTemperature, SensorID: sensorID},
		{Value: 50, Type: telemetry.TypeHumidity, SensorID: sensorID},
	}
}

type fakeReporter struct {
	mu       sync.Mutex
	reported []telemetry.NewEntry
	failFor  string
	deadline bool
}

func (r *fakeReporter) Report(ctx context.Context, e telemetry.NewEntry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := ctx.Deadline(); ok {
		r.deadline = true
	}
	if e.SensorID == r.failFor {
		return 0, errors.New("backend unavailable")
	}
	r.reported = append(r.reported, e)
	return int64(len(r.reported)), nil
}

func TestRunOnceReportsEverySensor(t *testing.T) {
	rep := &fakeReporter{}
	s := New([]string{"S1", "S2", "S3"}, time.Minute, time.Second, fixedSource{}, rep)

	accepted := s.RunOnce(context.Background())

	assert.Equal(t, 6, accepted)
	assert.Len(t, rep.reported, 6)
	assert.True(t, rep.deadline, "each report should carry the per-report timeout")
}

func TestRunOnceCountsOnlyAccepted(t *testing.T) {
	rep := &fakeReporter{failFor: "S2"}
	s := New([]string{"S1", "S2"}, time.Minute, 0, fixedSource{}, rep)

	accepted := s.RunOnce(context.Background())

	assert.Equal(t, 2, accepted)
	for _, e := range rep.reported {
		assert.Equal(t, "S1", e.SensorID)
	}
	assert.False(t, rep.deadline)
}

func TestStartWithoutSensorsIsNoop(t *testing.T) {
	s := New(nil, time.Minute, time.Second, fixedSource{}, &fakeReporter{})
	assert.NoError(t, s.Start())
	s.Stop()
}
