package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

// ReadingSource yields the readings a sensor reports in one round.
type ReadingSource interface {
	Next(sensorID string) []telemetry.NewEntry
}

// Reporter delivers one reading to the backend.
type Reporter interface {
	Report(ctx context.Context, entry telemetry.NewEntry) (int64, error)
}

// Scheduler periodically reports readings for the configured sensors.
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    ReadingSource
	reporter  Reporter
	sensors   []string
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler.
func New(sensors []string, interval, timeout time.Duration, source ReadingSource, reporter Reporter) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		source:    source,
		reporter:  reporter,
		sensors:   sensors,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first round runs immediately.
func (s *Scheduler) Start() error {
	if len(s.sensors) == 0 {
		log.Println("scheduler: no sensors configured; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// RunOnce reports one round of readings for every sensor concurrently and
// returns the number of readings accepted by the backend.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	log.Println("scheduler: running report job")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for _, sensorID := range s.sensors {
		readings := s.source.Next(sensorID)

		wg.Add(1)
		go func(sensorID string, readings []telemetry.NewEntry) {
			defer wg.Done()

			for _, r := range readings {
				if !s.report(ctx, r) {
					continue
				}
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(sensorID, readings)
	}
	wg.Wait()

	log.Printf("scheduler: completed report job, %d readings accepted", accepted)
	return accepted
}

func (s *Scheduler) report(ctx context.Context, r telemetry.NewEntry) bool {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	id, err := s.reporter.Report(ctx, r)
	if err != nil {
		log.Printf("scheduler: %s report failed for %s: %v", r.Type, r.SensorID, err)
		return false
	}
	log.Printf("scheduler: stored %s=%.2f for %s as entry %d", r.Type, r.Value, r.SensorID, id)
	return true
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
