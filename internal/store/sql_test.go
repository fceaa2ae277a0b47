package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

// testBackend is the part of both stores the shared scenarios drive.
type testBackend interface {
	Backend
	setClock(func() time.Time)
}

func (s *SQLStore) setClock(now func() time.Time)    { s.now = now }
func (s *MemoryStore) setClock(now func() time.Time) { s.now = now }

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()

	st, err := NewSQLStore(Config{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "telemetry.sqlite"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// backends runs fn against every implementation that can run in tests.
func backends(t *testing.T, fn func(t *testing.T, st testBackend)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

func seedSensors(t *testing.T, st testBackend, ids ...string) {
	t.Helper()
	for i, id := range ids {
		require.NoError(t, st.EnsureSensor(context.Background(), telemetry.Sensor{ID: id, Lat: float64(i), Lon: float64(-i)}))
	}
}

func insertAt(t *testing.T, st testBackend, ts time.Time, value float64, typ, sensorID string) int64 {
	t.Helper()
	st.setClock(func() time.Time { return ts })
	id, err := st.InsertEntry(context.Background(), telemetry.NewEntry{Value: value, Type: typ, SensorID: sensorID})
	require.NoError(t, err)
	return id
}

func day(d, h, m int) time.Time {
	return time.Date(2026, time.October, d, h, m, 0, 0, time.UTC)
}

func TestInsertThenListRoundTrip(t *testing.T) {
	backends(t, func(t *testing.T, st testBackend) {
		ctx := context.Background()
		seedSensors(t, st, "S1", "S2")

		insertAt(t, st, day(10, 8, 0), 19.75, telemetry.TypeTemperature, "S2")
		id := insertAt(t, st, day(10, 9, 0), 22.5, telemetry.TypeTemperature, "S1")
		insertAt(t, st, day(10, 10, 0), 55, telemetry.TypeHumidity, "S1")

		entries, err := st.ListEntries(ctx, telemetry.EntryFilter{
			Length:    10,
			EntryType: telemetry.TypeTemperature,
			SensorID:  "S1",
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, id, entries[0].ID)
		assert.InDelta(t, 22.5, entries[0].Value, 1e-9)
		assert.Equal(t, telemetry.TypeTemperature, entries[0].Type)
		assert.Equal(t, "S1", entries[0].SensorID)
		assert.True(t, entries[0].Timestamp.Equal(day(10, 9, 0)), entries[0].Timestamp)
	})
}

func TestListSensors(t *testing.T) {
	backends(t, func(t *testing.T, st testBackend) {
		sensors, err := st.ListSensors(context.Background())
		require.NoError(t, err)
		assert.Empty(t, sensors)

		seedSensors(t, st, "A", "B", "A")

		sensors, err = st.ListSensors(context.Background())
		require.NoError(t, err)
		assert.ElementsMatch(t, []telemetry.Sensor{
			{ID: "A", Lat: 0, Lon: 0},
			{ID: "B", Lat: 1, Lon: -1},
		}, sensors)
	})
}

func TestListEntriesTimeRangeIsInclusive(t *testing.T) {
	backends(t, func(t *testing.T, st testBackend) {
		ctx := context.Background()
		seedSensors(t, st, "S1")
		for h := 0; h < 6; h++ {
			insertAt(t, st, day(11, h, 0), float64(h+1), telemetry.TypeHumidity, "S1")
		}

		from, to := day(11, 1, 0), day(11, 3, 0)
		entries, err := st.ListEntries(ctx, telemetry.EntryFilter{Length: 100, From: &from, To: &to})
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.InDelta(t, 4, entries[0].Value, 1e-9)
		assert.InDelta(t, 2, entries[2].Value, 1e-9)

		onlyFrom := day(11, 4, 0)
		entries, err = st.ListEntries(ctx, telemetry.EntryFilter{Length: 100, From: &onlyFrom})
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		onlyTo := day(11, 0, 30)
		entries, err = st.ListEntries(ctx, telemetry.EntryFilter{Length: 100, To: &onlyTo})
		require.NoError(t, err)
		assert.Len(t, entries, 1)

		emptyFrom, emptyTo := day(12, 0, 0), day(12, 23, 0)
		entries, err = st.ListEntries(ctx, telemetry.EntryFilter{Length: 100, From: &emptyFrom, To: &emptyTo})
		require.NoError(t, err)
		assert.NotNil(t, entries)
		assert.Empty(t, entries)
	})
}

func TestListEntriesPaginationMatchesSlicing(t *testing.T) {
	backends(t, func(t *testing.T, st testBackend) {
		ctx := context.Background()
		seedSensors(t, st, "S1")

		const total = 7
		for i := 0; i < total; i++ {
			insertAt(t, st, day(12, 0, i), float64(i+1), telemetry.TypeTemperature, "S1")
		}

		all, err := st.ListEntries(ctx, telemetry.EntryFilter{Length: total})
		require.NoError(t, err)
		require.Len(t, all, total)
		for i := 1; i < total; i++ {
			assert.True(t, all[i-1].Timestamp.After(all[i].Timestamp), "newest first")
		}

		for k := 0; k <= total; k++ {
			for n := 0; n <= total; n++ {
				prefix, err := st.ListEntries(ctx, telemetry.EntryFilter{Offset: 0, Length: k + n})
				require.NoError(t, err)
				got, err := st.ListEntries(ctx, telemetry.EntryFilter{Offset: k, Length: n})
				require.NoError(t, err)

				want := []telemetry.Entry{}
				if k < len(prefix) {
					want = prefix[k:]
				}
				assert.Equal(t, ids(want), ids(got), "offset=%d length=%d", k, n)
			}
		}
	})
}

func ids(entries []telemetry.Entry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestDailyStatsConditionalAggregation(t *testing.T) {
	backends(t, func(t *testing.T, st testBackend) {
		ctx := context.Background()
		seedSensors(t, st, "S1", "S2")

		insertAt(t, st, day(10, 8, 0), 20.5, telemetry.TypeTemperature, "S1")
		insertAt(t, st, day(10, 9, 0), 40, telemetry.TypeHumidity, "S1")
		insertAt(t, st, day(10, 14, 0), 25.25, telemetry.TypeTemperature, "S1")
		insertAt(t, st, day(10, 15, 0), 50, telemetry.TypeHumidity, "S1")
		insertAt(t, st, day(11, 10, 0), 18, telemetry.TypeTemperature, "S1")
		insertAt(t, st, day(11, 10, 30), 61.5, telemetry.TypeHumidity, "S1")
		insertAt(t, st, day(12, 12, 0), 70, telemetry.TypeHumidity, "S1")
		// Other sensor and outside the window: both must be ignored.
		insertAt(t, st, day(11, 11, 0), 99, telemetry.TypeTemperature, "S2")
		insertAt(t, st, day(9, 23, 0), -5, telemetry.TypeTemperature, "S1")

		stats, err := st.DailyStats(ctx, "S1", day(10, 0, 0), day(12, 23, 0))
		require.NoError(t, err)
		require.Len(t, stats, 3)

		assert.Equal(t, "2026-10-12", stats[0].Day.String())
		assert.Nil(t, stats[0].MaxTemperature)
		assert.Nil(t, stats[0].MinTemperature)
		require.NotNil(t, stats[0].AvgHumidity)
		assert.InDelta(t, 70, *stats[0].AvgHumidity, 1e-9)

		assert.Equal(t, "2026-10-11", stats[1].Day.String())
		require.NotNil(t, stats[1].MaxTemperature)
		assert.InDelta(t, 18, *stats[1].MaxTemperature, 1e-9)
		assert.InDelta(t, 18, *stats[1].MinTemperature, 1e-9)
		assert.InDelta(t, 61.5, *stats[1].AvgHumidity, 1e-9)

		assert.Equal(t, "2026-10-10", stats[2].Day.String())
		assert.InDelta(t, 25.25, *stats[2].MaxTemperature, 1e-9)
		assert.InDelta(t, 20.5, *stats[2].MinTemperature, 1e-9)
		assert.InDelta(t, 45, *stats[2].AvgHumidity, 1e-9)

		none, err := st.DailyStats(ctx, "unknown", day(10, 0, 0), day(12, 23, 0))
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

func TestInsertEntryFailures(t *testing.T) {
	backends(t, func(t *testing.T, st testBackend) {
		ctx := context.Background()
		seedSensors(t, st, "S1")

		_, err := st.InsertEntry(ctx, telemetry.NewEntry{Value: 1, Type: telemetry.TypeHumidity, SensorID: "ghost"})
		var se *telemetry.StoreError
		require.ErrorAs(t, err, &se)
		assert.ErrorIs(t, err, telemetry.ErrUnknownSensor)

		_, err = st.InsertEntry(ctx, telemetry.NewEntry{Value: 1, SensorID: "S1"})
		assert.True(t, telemetry.IsValidation(err))

		entries, err := st.ListEntries(ctx, telemetry.EntryFilter{Length: 10})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestClosedStoreReportsStoreError(t *testing.T) {
	backends(t, func(t *testing.T, st testBackend) {
		require.NoError(t, st.Close())

		_, err := st.ListSensors(context.Background())
		var se *telemetry.StoreError
		assert.ErrorAs(t, err, &se)
		assert.Error(t, st.Ping(context.Background()))
	})
}

// TestSQLiteTimestampsAreDateComparable checks the stored text layout: DATE()
// must see the calendar day and rows may not fall back to a column default.
func TestSQLiteTimestampsAreDateComparable(t *testing.T) {
	ctx := context.Background()
	st := newSQLiteStore(t)
	seedSensors(t, st, "S1")

	insertAt(t, st, day(10, 23, 59), 21.5, telemetry.TypeTemperature, "S1")

	var stored struct {
		Raw  string  `db:"raw"`
		Date *string `db:"date"`
	}
	require.NoError(t, st.db.GetContext(ctx, &stored,
		`SELECT CAST(timestamp AS TEXT) AS raw, DATE(timestamp) AS date FROM entry`))
	require.NotNil(t, stored.Date, "DATE() could not parse %q", stored.Raw)
	assert.Equal(t, "2026-10-10", *stored.Date)
	assert.True(t, strings.HasPrefix(stored.Raw, "2026-10-10 23:59:00"), stored.Raw)

	_, err := st.db.ExecContext(ctx,
		`INSERT INTO entry (entry_value, entry_type, sensor_id) VALUES (1, 'temperature', 'S1')`)
	assert.Error(t, err, "timestamp must be supplied by the store")
}
