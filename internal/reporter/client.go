package reporter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/i474232898/sensor-telemetry/internal/telemetry"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errCircuitOpen   = errors.New("circuit breaker open")
	errInvalidConfig = errors.New("invalid backoff configuration")

	// ErrRejected is returned when the backend refuses a reading (4xx). It
	// is never retried.
	ErrRejected = errors.New("reading rejected")
)

// Client posts readings to the telemetry API.
type Client struct {
	http    *resty.Client
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, backoff BackoffConfig) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telemetry-api",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		backoff: backoff,
		circuit: cb,
	}
}

type createdResponse struct {
	Message string `json:"message"`
	EntryID int64  `json:"entryId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Report sends one reading and returns the id assigned by the backend.
func (c *Client) Report(ctx context.Context, entry telemetry.NewEntry) (int64, error) {
	resp, err := c.postWithResilience(ctx, entry)
	if err != nil {
		return 0, err
	}

	created, ok := resp.Result().(*createdResponse)
	if !ok {
		return 0, fmt.Errorf("unexpected response body type %T", resp.Result())
	}
	return created.EntryID, nil
}

// postWithResilience executes the request with retries, exponential backoff,
// and a circuit breaker. Rejections (4xx other than 429) end the loop at once.
func (c *Client) postWithResilience(ctx context.Context, entry telemetry.NewEntry) (*resty.Response, error) {
	if c.backoff.MaxRetries < 0 || c.backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result, err := c.circuit.Execute(func() (interface{}, error) {
			resp, execErr := c.http.R().
				SetContext(ctx).
				SetBody(entry).
				SetResult(&createdResponse{}).
				SetError(&errorResponse{}).
				Post("/api/entry")
			if execErr != nil {
				return nil, execErr
			}

			// Handle rate limiting and server errors explicitly.
			if resp.StatusCode() == http.StatusTooManyRequests {
				return nil, errRateLimited
			}
			if resp.StatusCode() >= 500 {
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode())
			}
			// A rejection means the backend is healthy, so the breaker counts it
			// as a success and the caller sees it below.
			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*resty.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			if resp.IsError() {
				return nil, fmt.Errorf("%w: %d %s", ErrRejected, resp.StatusCode(), rejectionReason(resp))
			}
			return resp, nil
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt >= c.backoff.MaxRetries {
			return nil, lastErr
		}

		// Backoff with exponential delay.
		delay := c.backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > c.backoff.MaxInterval && c.backoff.MaxInterval > 0 {
			delay = c.backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

func rejectionReason(resp *resty.Response) string {
	if e, ok := resp.Error().(*errorResponse); ok && e.Error != "" {
		return e.Error
	}
	return resp.Status()
}
