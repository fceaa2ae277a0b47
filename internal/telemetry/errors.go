package telemetry

import (
	"errors"
	"fmt"
)

// ErrUnknownSensor is wrapped by stores when an entry references a sensor
// that does not exist.
var ErrUnknownSensor = errors.New("unknown sensor")

// ValidationError reports missing or malformed input. It is never retried
// and is safe to show to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StoreError wraps any failure of the underlying store. Its detail is for
// logs only.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
