package store

import (
	"strings"

	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

// Queries are written with '?' placeholders and rebound per driver by sqlx.
const (
	insertEntrySQL = `INSERT INTO entry (entry_value, entry_type, sensor_id, timestamp) VALUES (?, ?, ?, ?)`

	listSensorsSQL = `SELECT id, lat, lon FROM sensor`

	selectEntriesSQL = `SELECT id, entry_value, entry_type, sensor_id, timestamp FROM entry`

	dailyStatsSQL = `SELECT
	DATE(timestamp) AS day,
	MAX(CASE WHEN entry_type = 'temperature' THEN entry_value END) AS max_temperature,
	MIN(CASE WHEN entry_type = 'temperature' THEN entry_value END) AS min_temperature,
	AVG(CASE WHEN entry_type = 'humidity' THEN entry_value END) AS avg_humidity
FROM entry
WHERE timestamp BETWEEN ? AND ?
AND sensor_id = ?
GROUP BY DATE(timestamp)
ORDER BY day DESC`

	findSensorSQL   = `SELECT COUNT(*) FROM sensor WHERE id = ?`
	insertSensorSQL = `INSERT INTO sensor (id, lat, lon) VALUES (?, ?, ?)`
)

// buildEntriesQuery translates f into a parameterized SELECT. Clauses are
// appended in a fixed order so equal filters always yield equal SQL.
func buildEntriesQuery(f telemetry.EntryFilter) (string, []any) {
	var (
		where []string
		args  []any
	)

	if f.From != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, f.To.UTC())
	}
	if f.EntryType != "" {
		where = append(where, "entry_type = ?")
		args = append(args, f.EntryType)
	}
	if f.SensorID != "" {
		where = append(where, "sensor_id = ?")
		args = append(args, f.SensorID)
	}

	var b strings.Builder
	b.WriteString(selectEntriesSQL)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?")
	args = append(args, f.Length, f.Offset)

	return b.String(), args
}
