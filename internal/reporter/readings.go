package reporter

import (
	"math"
	"math/rand"
	"sync"

	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

// walk is a bounded random walk rounded to the store's two decimals.
type walk struct {
	value    float64
	min, max float64
	step     float64
}

func (w *walk) next(rnd *rand.Rand) float64 {
	w.value += (rnd.Float64()*2 - 1) * w.step
	w.value = math.Max(w.min, math.Min(w.max, w.value))
	return math.Round(w.value*100) / 100
}

type sensorState struct {
	temperature walk
	humidity    walk
}

// Generator produces plausible temperature and humidity readings per sensor.
// The bounds exclude 0 because the API refuses a zero entry_value.
type Generator struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	sensors map[string]*sensorState
}

// NewGenerator creates a Generator; equal seeds replay equal readings.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd:     rand.New(rand.NewSource(seed)),
		sensors: make(map[string]*sensorState),
	}
}

// Next returns one temperature and one humidity reading for sensorID.
func (g *Generator) Next(sensorID string) []telemetry.NewEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.sensors[sensorID]
	if !ok {
		st = &sensorState{
			temperature: walk{min: 5, max: 35, step: 0.4},
			humidity:    walk{min: 20, max: 95, step: 1.5},
		}
		st.temperature.value = st.temperature.min + g.rnd.Float64()*(st.temperature.max-st.temperature.min)
		st.humidity.value = st.humidity.min + g.rnd.Float64()*(st.humidity.max-st.humidity.min)
		g.sensors[sensorID] = st
	}

	return []telemetry.NewEntry{
		{Value: st.temperature.next(g.rnd), Type: telemetry.TypeTemperature, SensorID: sensorID},
		{Value: st.humidity.next(g.rnd), Type: telemetry.TypeHumidity, SensorID: sensorID},
	}
}
