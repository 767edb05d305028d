package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"precipwatch/internal/types"
)

// RetryPolicy configures the retry behavior for provider calls.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the standard policy for provider calls: one
// retry per cycle for transient failures, as repeated hammering only burns
// quota against rate-limited weather APIs.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 1,
		MinWait:    500 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}
}

// Client wraps an *http.Client and a circuit breaker to enforce consistent
// resilience on all provider calls: bounded retry with jitter, Retry-After
// support, and error mapping into the AppError taxonomy.
type Client struct {
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	retryPolicy RetryPolicy
	userAgent   string
	sleepFn     func(time.Duration) // for testability; defaults to time.Sleep
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithSleepFunc overrides the sleep function used between retries.
// This is intended for testing to avoid real delays.
func WithSleepFunc(fn func(time.Duration)) ClientOption {
	return func(c *Client) {
		c.sleepFn = fn
	}
}

// NewClient creates a provider Client with the given http client, breaker
// name, retry policy, and user agent string.
func NewClient(httpClient *http.Client, breakerName string, retryPolicy RetryPolicy, userAgent string, opts ...ClientOption) *Client {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	c := &Client{
		client:      httpClient,
		breaker:     cb,
		retryPolicy: retryPolicy,
		userAgent:   userAgent,
		sleepFn:     time.Sleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch executes a GET against the provider URL and returns the response body.
//
// Behavior:
//  1. Request ID propagation (X-Request-Id from context) and User-Agent injection.
//  2. Circuit breaker wrapping; 5xx and 429 count as breaker failures.
//  3. Retry on 5xx and transport errors, respecting Retry-After.
//  4. Status mapping: 401/403/429 -> upstream_auth_or_quota, other 4xx ->
//     upstream_http, exhausted 5xx -> upstream_unavailable, network failure ->
//     upstream_transport.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var lastResp *http.Response
	var lastErr error

	maxAttempts := 1 + c.retryPolicy.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build provider request", err)
		}
		if reqID := types.GetRequestID(ctx); reqID != "" {
			req.Header.Set("X-Request-Id", reqID)
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.client.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			// Treat 5xx and 429 as errors for the circuit breaker.
			if r.StatusCode >= 500 {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			if r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("upstream returned 429")
			}
			return r, nil
		})

		if err == nil {
			return c.consume(resp)
		}

		lastErr = err

		// An open breaker means the provider is already known-bad; do not retry.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}

		// 429 is a quota signal, not a transient fault; surface it immediately.
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			lastResp = resp
			break
		}

		if attempt == maxAttempts-1 {
			lastResp = resp
			break
		}

		// Retrying: this response is done with, close its body exactly once.
		wait := c.computeBackoff(attempt, resp)
		if resp != nil {
			resp.Body.Close()
		}
		c.sleepFn(wait)
	}

	if lastResp != nil {
		defer lastResp.Body.Close()
	}

	return nil, c.mapError(lastResp, lastErr)
}

// consume reads and maps a breaker-successful response (2xx/3xx/4xx non-429).
func (c *Client) consume(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamTransport, "failed to read provider response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamAuthOrQuota,
			"provider rejected the API key",
			nil,
			map[string]any{"status_code": resp.StatusCode},
		)
	case resp.StatusCode >= 400:
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamHTTP,
			fmt.Sprintf("provider returned %d", resp.StatusCode),
			nil,
			map[string]any{"status_code": resp.StatusCode},
		)
	}

	return body, nil
}

// computeBackoff determines the wait duration before the next retry attempt.
// It respects the Retry-After header if present, otherwise uses exponential
// backoff with jitter clamped to [MinWait, MaxWait].
func (c *Client) computeBackoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
				wait := time.Duration(seconds) * time.Second
				if wait > c.retryPolicy.MaxWait {
					wait = c.retryPolicy.MaxWait
				}
				return wait
			}
			if t, err := http.ParseTime(retryAfter); err == nil {
				wait := time.Until(t)
				if wait <= 0 {
					return c.retryPolicy.MinWait
				}
				if wait > c.retryPolicy.MaxWait {
					wait = c.retryPolicy.MaxWait
				}
				return wait
			}
		}
	}

	// Exponential backoff with full jitter in [MinWait, min(MaxWait, MinWait * 2^attempt)].
	base := float64(c.retryPolicy.MinWait) * math.Pow(2, float64(attempt))
	maxWait := float64(c.retryPolicy.MaxWait)
	if base > maxWait {
		base = maxWait
	}
	minWait := float64(c.retryPolicy.MinWait)
	if base <= minWait {
		return c.retryPolicy.MinWait
	}
	jittered := minWait + rand.Float64()*(base-minWait)
	return time.Duration(jittered)
}

// mapError translates exhausted failures into domain-level AppErrors.
func (c *Client) mapError(resp *http.Response, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(
			types.ErrCodeUpstreamUnavailable,
			"circuit breaker is open; provider unavailable",
			err,
		)
	}

	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return types.NewAppErrorWithDetails(
				types.ErrCodeUpstreamAuthOrQuota,
				"provider rate limit exceeded",
				err,
				map[string]any{"status_code": resp.StatusCode},
			)
		case resp.StatusCode >= 500:
			return types.NewAppErrorWithDetails(
				types.ErrCodeUpstreamUnavailable,
				fmt.Sprintf("provider returned %d after retries", resp.StatusCode),
				err,
				map[string]any{"status_code": resp.StatusCode},
			)
		}
	}

	// DNS failure, timeout, connection refused.
	return types.NewAppError(
		types.ErrCodeUpstreamTransport,
		"provider request failed",
		err,
	)
}
