package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/fishing-forecast/internal/fishing"
)

// HTTPClientConfig bundles the HTTP client and user agent shared by providers.
type HTTPClientConfig struct {
	Client    *http.Client
	UserAgent string
	// NotFoundIsEmpty treats 404 as a valid "nothing here" answer. Such
	// responses do not count against the circuit breaker.
	NotFoundIsEmpty bool
}

const userAgent = "fishing-forecast/1.0"

var (
	errNoHTTPClient = errors.New("http client not configured")
	errNotFound     = errors.New("resource not found")
)

// newCircuitBreaker opens after five consecutive failures and probes again after a minute.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     1 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// doRequest executes one attempt through the circuit breaker and maps the
// outcome onto fishing error kinds. Retrying is left to the caller, which only
// retries fishing.ErrRateLimited.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}

	req, err := buildRequest()
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, fmt.Errorf("%w: %v", fishing.ErrUpstreamUnavailable, execErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			drain(resp)
			return nil, fmt.Errorf("%w: status %d", fishing.ErrRateLimited, resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound && cfg.NotFoundIsEmpty {
			return resp, nil
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			drain(resp)
			return nil, fmt.Errorf("%w: status %d", fishing.ErrUpstreamUnavailable, resp.StatusCode)
		}

		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker open: %v", fishing.ErrUpstreamUnavailable, err)
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	if resp.StatusCode == http.StatusNotFound {
		drain(resp)
		return nil, errNotFound
	}
	return resp, nil
}

// decodeJSON reads resp into out and closes the body. Decode failures are malformed responses.
func decodeJSON(resp *http.Response, out interface{}) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", fishing.ErrMalformedResponse, err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
