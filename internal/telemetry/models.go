package telemetry

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// Entry types reported by the deployed sensors. The column is an open string,
// so other types are stored and listed as-is; only these two feed DailyStat.
const (
	TypeTemperature = "temperature"
	TypeHumidity    = "humidity"
)

// Sensor is a registered device with a fixed coordinate.
type Sensor struct {
	ID  string  `json:"id" db:"id"`
	Lat float64 `json:"lat" db:"lat"`
	Lon float64 `json:"lon" db:"lon"`
}

// Entry is one timestamped reading of a sensor.
type Entry struct {
	ID        int64     `json:"id" db:"id"`
	Value     float64   `json:"entry_value" db:"entry_value"`
	Type      string    `json:"entry_type" db:"entry_type"`
	SensorID  string    `json:"sensor_id" db:"sensor_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"` // always UTC
}

// NewEntry carries the caller supplied fields of an entry; the id and the
// timestamp are assigned by the store.
type NewEntry struct {
	Value    float64 `json:"entry_value"`
	Type     string  `json:"entry_type"`
	SensorID string  `json:"sensor_id"`
}

// Validate rejects entries with a missing field. A zero value counts as
// missing, matching the behaviour the dashboard clients were built against.
func (e NewEntry) Validate() error {
	if e.Value == 0 || strings.TrimSpace(e.Type) == "" || strings.TrimSpace(e.SensorID) == "" {
		return &ValidationError{
			Field:   firstMissing(e),
			Message: "Please provide entry_value, entry_type, and sensor_id.",
		}
	}
	return nil
}

func firstMissing(e NewEntry) string {
	switch {
	case e.Value == 0:
		return "entry_value"
	case strings.TrimSpace(e.Type) == "":
		return "entry_type"
	default:
		return "sensor_id"
	}
}

// EntryFilter selects a page of entries. Nil/empty optional fields impose no
// constraint; the ones present are combined with AND.
type EntryFilter struct {
	Offset int
	Length int

	From      *time.Time // inclusive
	To        *time.Time // inclusive
	EntryType string
	SensorID  string
}

// Matches reports whether e satisfies the optional constraints of f.
// Offset and Length are not considered.
func (f EntryFilter) Matches(e Entry) bool {
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	if f.EntryType != "" && e.Type != f.EntryType {
		return false
	}
	if f.SensorID != "" && e.SensorID != f.SensorID {
		return false
	}
	return true
}

// DailyStat aggregates one sensor's entries for one calendar day.
// A nil aggregate means the day had no entry of the matching type.
type DailyStat struct {
	Day            Day      `json:"day" db:"day"`
	MaxTemperature *float64 `json:"maxTemperature" db:"max_temperature"`
	MinTemperature *float64 `json:"minTemperature" db:"min_temperature"`
	AvgHumidity    *float64 `json:"avgHumidity" db:"avg_humidity"`
}

const dayLayout = "2006-01-02"

// Day is a calendar day bucket. It encodes as "YYYY-MM-DD".
type Day struct {
	time.Time
}

// DayOf returns the UTC calendar day containing t.
func DayOf(t time.Time) Day {
	t = t.UTC()
	return Day{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a "YYYY-MM-DD" string. Longer datetime strings are cut to
// their date part.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dayLayout) {
		s = s[:len(dayLayout)]
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return Day{t}, nil
}

func (d Day) String() string {
	return d.Format(dayLayout)
}

func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Day) UnmarshalJSON(b []byte) error {
	parsed, err := ParseDay(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan accepts the DATE representations of the supported drivers: time.Time
// (mysql with parseTime, pgx) and text (sqlite).
func (d *Day) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = Day{time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC)}
		return nil
	case string:
		parsed, err := ParseDay(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		return d.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Day", src)
	}
}

func (d Day) Value() (driver.Value, error) {
	return d.String(), nil
}
