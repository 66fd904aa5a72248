// Package capability invokes the check-in/check-out capability URLs carried
// by frequent computers. Calls are best-effort from the registry's point of
// view: failures are reported to the caller, never retried beyond the
// client's own policy, and never allowed to block a registry operation.
package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Predefined errors for capability invocations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("capability circuit breaker is open")
)

// Invoker drives a device's capability URL.
type Invoker interface {
	Invoke(ctx context.Context, url, deviceID string, at time.Time) error
}

// ClientConfig holds configuration for the capability client.
type ClientConfig struct {
	// Timeout is the per-call HTTP timeout. Default: 5 seconds.
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts on transient
	// failures. Default: 2.
	MaxRetries uint64

	// InitialInterval is the initial retry backoff interval.
	// Default: 100ms.
	InitialInterval time.Duration

	// MaxInterval is the maximum retry backoff interval.
	// Default: 2 seconds.
	MaxInterval time.Duration
}

// DefaultClientConfig returns sensible defaults for the capability client.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:         5 * time.Second,
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Client is an HTTP capability invoker with retry and circuit breaker
// protection. Frequent-computer capability endpoints live outside the
// facility's control, so a flapping endpoint must not burn request budget.
type Client struct {
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker[struct{}]
	config         ClientConfig
}

// NewClient creates a new capability client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "capability",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
	})

	return &Client{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		circuitBreaker: cb,
		config:         cfg,
	}
}

type invokePayload struct {
	DeviceID string    `json:"device_id"`
	At       time.Time `json:"at"`
}

// Invoke POSTs the device id and event time to the capability URL.
// Network errors and 5xx responses are retried with exponential backoff;
// a 4xx response is terminal.
func (c *Client) Invoke(ctx context.Context, url, deviceID string, at time.Time) error {
	body, err := json.Marshal(invokePayload{DeviceID: deviceID, At: at})
	if err != nil {
		return fmt.Errorf("encode capability payload: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialInterval
	bo.MaxInterval = c.config.MaxInterval
	bo.MaxElapsedTime = 0

	operation := func() error {
		_, err := c.circuitBreaker.Execute(func() (struct{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return struct{}{}, backoff.Permanent(err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return struct{}{}, err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				return struct{}{}, &ServerError{StatusCode: resp.StatusCode}
			}
			if resp.StatusCode >= 400 {
				return struct{}{}, backoff.Permanent(&ClientError{StatusCode: resp.StatusCode})
			}
			return struct{}{}, nil
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx))
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (c *Client) CircuitBreakerState() gobreaker.State {
	return c.circuitBreaker.State()
}

// ServerError represents an HTTP 5xx response from a capability endpoint.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "capability server error: " + http.StatusText(e.StatusCode)
}

// ClientError represents an HTTP 4xx response from a capability endpoint.
type ClientError struct {
	StatusCode int
}

func (e *ClientError) Error() string {
	return "capability client error: " + http.StatusText(e.StatusCode)
}

// Ensure Client implements Invoker interface.
var _ Invoker = (*Client)(nil)
