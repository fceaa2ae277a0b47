package telemetry

import (
	"sort"
	"time"
)

// AggregateDaily groups entries by UTC calendar day and computes the highest
// and lowest temperature and the average humidity of each day. Entries of
// other types are ignored, except that they still open a day bucket, the same
// way the SQL conditional aggregation yields a row of nulls for such a day.
// The result is ordered by day descending.
func AggregateDaily(entries []Entry) []DailyStat {
	type bucket struct {
		maxTemp, minTemp *float64
		sumHum           float64
		countHum         int
	}

	buckets := make(map[time.Time]*bucket)
	for _, e := range entries {
		day := DayOf(e.Timestamp).Time
		b, ok := buckets[day]
		if !ok {
			b = &bucket{}
			buckets[day] = b
		}

		switch e.Type {
		case TypeTemperature:
			hi, lo := e.Value, e.Value
			if b.maxTemp == nil || hi > *b.maxTemp {
				b.maxTemp = &hi
			}
			if b.minTemp == nil || lo < *b.minTemp {
				b.minTemp = &lo
			}
		case TypeHumidity:
			b.sumHum += e.Value
			b.countHum++
		}
	}

	stats := make([]DailyStat, 0, len(buckets))
	for day, b := range buckets {
		stat := DailyStat{
			Day:            Day{day},
			MaxTemperature: b.maxTemp,
			MinTemperature: b.minTemp,
		}
		if b.countHum > 0 {
			avg := b.sumHum / float64(b.countHum)
			stat.AvgHumidity = &avg
		}
		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Day.After(stats[j].Day.Time)
	})
	return stats
}
