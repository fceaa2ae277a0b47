package httpapi

import (
	"errors"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

var validate = validator.New()

const (
	defaultOffset = 0
	defaultLength = 10

	// maxStatsDays keeps the window arithmetic in range for absurd inputs.
	maxStatsDays = 36500
)

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *telemetry.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := service.Ping(c.UserContext()); err != nil {
			log.Printf("ERROR: [%s] health check: %v", requestID(c), err)
			return fiber.NewError(fiber.StatusServiceUnavailable, "store unavailable")
		}
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "sensor-telemetry",
		})
	})

	api := app.Group("/api")

	api.Post("/entry", func(c *fiber.Ctx) error {
		var req addEntryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, missingEntryFields)
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, missingEntryFields)
		}

		id, err := service.AddEntry(c.UserContext(), req.toNewEntry())
		if err != nil {
			if telemetry.IsValidation(err) {
				return fiber.NewError(fiber.StatusBadRequest, missingEntryFields)
			}
			return internalError(c, "Failed to add entry", err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Entry added successfully",
			"entryId": id,
		})
	})

	api.Get("/sensors", func(c *fiber.Ctx) error {
		sensors, err := service.ListSensors(c.UserContext())
		if err != nil {
			return internalError(c, "Failed to retrieve sensors", err)
		}
		return c.JSON(sensors)
	})

	api.Get("/entries", func(c *fiber.Ctx) error {
		var q entriesQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		entries, err := service.ListEntries(c.UserContext(), q.filter())
		if err != nil {
			return internalError(c, "Failed to retrieve entries", err)
		}
		return c.JSON(entries)
	})

	api.Get("/stats", func(c *fiber.Ctx) error {
		var q statsQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, errInvalidDays.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, errInvalidDays.Error())
		}

		// Past the days check every failure is reported as a server error.
		stats, err := service.DailyStats(c.UserContext(), q.wholeDays(), q.SensorID)
		if err != nil {
			return internalError(c, "Failed to retrieve daily statistics", err)
		}
		return c.JSON(stats)
	})
}

// ErrorHandler renders every error as {"error": message}. Errors that are not
// *fiber.Error never expose their text.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	} else {
		log.Printf("ERROR: [%s] %s %s: %v", requestID(c), c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}

// internalError logs err with the request context and returns a generic 500.
func internalError(c *fiber.Ctx, message string, err error) error {
	log.Printf("ERROR: [%s] %s %s: %v", requestID(c), c.Method(), c.OriginalURL(), err)
	return fiber.NewError(fiber.StatusInternalServerError, message)
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		return id
	}
	return "-"
}

const missingEntryFields = "Please provide entry_value, entry_type, and sensor_id."

// addEntryRequest is the body of POST /api/entry. `required` rejects zero
// values, so an entry_value of 0 is refused like a missing one.
type addEntryRequest struct {
	EntryValue float64 `json:"entry_value" validate:"required"`
	EntryType  string  `json:"entry_type" validate:"required"`
	SensorID   string  `json:"sensor_id" validate:"required"`
}

func (r addEntryRequest) toNewEntry() telemetry.NewEntry {
	return telemetry.NewEntry{
		Value:    r.EntryValue,
		Type:     r.EntryType,
		SensorID: r.SensorID,
	}
}

var (
	errInvalidPaging = errors.New("Offset and length must be valid numbers.")
	errInvalidDays   = errors.New("Please provide a valid number of days")
)

// entriesQuery holds query parameters for the entries endpoint.
type entriesQuery struct {
	Offset    int
	Length    int
	From      *time.Time
	To        *time.Time
	EntryType string
	SensorID  string
}

func (q *entriesQuery) bind(c *fiber.Ctx) error {
	offset, err := intQuery(c, "offset", defaultOffset)
	if err != nil {
		return errInvalidPaging
	}
	length, err := intQuery(c, "length", defaultLength)
	if err != nil {
		return errInvalidPaging
	}
	q.Offset = offset
	q.Length = length

	if q.From, err = timeQuery(c, "from"); err != nil {
		return err
	}
	if q.To, err = timeQuery(c, "to"); err != nil {
		return err
	}

	q.EntryType = strings.TrimSpace(c.Query("entry_type"))
	q.SensorID = strings.TrimSpace(c.Query("sensorId"))
	return nil
}

func (q entriesQuery) filter() telemetry.EntryFilter {
	return telemetry.EntryFilter{
		Offset:    q.Offset,
		Length:    q.Length,
		From:      q.From,
		To:        q.To,
		EntryType: q.EntryType,
		SensorID:  q.SensorID,
	}
}

// statsQuery holds query parameters for the stats endpoint.
type statsQuery struct {
	Days     float64 `validate:"gt=0"`
	SensorID string
}

func (q *statsQuery) bind(c *fiber.Ctx) error {
	q.Days = telemetry.DefaultStatsDays
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		days, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(days) || math.IsInf(days, 0) {
			return errInvalidDays
		}
		q.Days = days
	}
	q.SensorID = c.Query("sensorId")
	return nil
}

// wholeDays truncates the requested window to whole days, keeping at least one.
func (q statsQuery) wholeDays() int {
	days := math.Min(q.Days, maxStatsDays)
	if days < 1 {
		return 1
	}
	return int(days)
}

func intQuery(c *fiber.Ctx, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	return leadingInt(raw)
}

// leadingInt reads the optionally signed integer that s starts with and
// ignores the rest, so "1.5" is 1 and "10abc" is 10. s must start with a digit
// after the sign.
func leadingInt(s string) (int, error) {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(s[:end])
}

func timeQuery(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	ts, err := parseTime(raw)
	if err != nil {
		return nil, errors.New(name + ": " + err.Error())
	}
	return &ts, nil
}

// parseTime tries RFC3339 (with or without fractional seconds), a plain
// date, then Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02", s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339, YYYY-MM-DD or unix seconds")
}
