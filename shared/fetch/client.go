// Package fetch is the single path for outbound HTTP calls to the weather,
// tree and geolocation services. Every call goes through a circuit breaker so
// a failing upstream stops being hammered while the pipeline keeps degrading
// to its defaults.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
)

const defaultUserAgent = "coconut-risk/1.0"

// maxBodyBytes caps how much of an upstream response is read
const maxBodyBytes = 8 << 20

// ErrCircuitOpen is returned while the breaker rejects calls
var ErrCircuitOpen = errors.New("upstream circuit open")

// StatusError is returned for non-2xx responses
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// upstreamFault reports whether a status should count against the breaker.
// Client errors other than 429 say nothing about upstream health.
func (e *StatusError) upstreamFault() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

type Client struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	userAgent string
}

type Option func(*options)

type options struct {
	httpClient       *http.Client
	userAgent        string
	failureThreshold uint32
	openTimeout      time.Duration
}

// WithHTTPClient replaces the default http.Client; the timeout argument to New is ignored
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithFailureThreshold sets how many consecutive failures open the breaker
func WithFailureThreshold(n uint32) Option {
	return func(o *options) { o.failureThreshold = n }
}

// WithOpenTimeout sets how long the breaker stays open before probing again
func WithOpenTimeout(d time.Duration) Option {
	return func(o *options) { o.openTimeout = d }
}

// New creates a client whose breaker is identified by name in logs and errors
func New(name string, timeout time.Duration, opts ...Option) *Client {
	o := options{
		userAgent:        defaultUserAgent,
		failureThreshold: 5,
		openTimeout:      30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: timeout}
	}

	threshold := o.failureThreshold
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     o.openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return !statusErr.upstreamFault()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		client:    o.httpClient,
		breaker:   breaker,
		userAgent: o.userAgent,
	}
}

// Get performs a GET and returns the body of a 2xx response
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{URL: req.URL.Redacted(), StatusCode: resp.StatusCode}
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}
		return data, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrCircuitOpen, c.breaker.Name())
	}
	return body, err
}

// GetJSON performs a GET and decodes the JSON body into out
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// State exposes the breaker state for status reporting
func (c *Client) State() string {
	return c.breaker.State().String()
}
