// Package client talks to a REST collection endpoint and adapts it to the
// syncx.Transport the coordinator drives.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// MaxRetries is the maximum number of retry attempts for retryable errors
	MaxRetries = 3

	// DefaultBackoff is the initial backoff duration for exponential backoff
	DefaultBackoff = 1 * time.Second
)

// TokenProvider supplies bearer tokens. auth.Signer implements it.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// HTTPClient sends collection requests with a bearer token from its
// TokenProvider, or with X-Debug-Sub when there is no provider (dev mode).
// Every request carries an X-Correlation-ID shared by its retries.
type HTTPClient struct {
	baseURL       string
	httpClient    *http.Client
	tokenProvider TokenProvider // nil in dev mode
	debugSub      string        // Subject to use in dev mode
	backoff       time.Duration
}

// NewHTTPClient creates a client. Pass a nil tokenProvider and a debugSub for
// dev mode. A non-positive timeout means 30s.
func NewHTTPClient(baseURL string, tokenProvider TokenProvider, debugSub string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: timeout},
		tokenProvider: tokenProvider,
		debugSub:      debugSub,
		backoff:       DefaultBackoff,
	}
}

// BaseURL returns the server root requests are sent to
func (c *HTTPClient) BaseURL() string { return c.baseURL }

// Do sends req with auth and correlation headers, retrying 401 once the token
// provider has been invalidated and 429 after the server's Retry-After (or an
// exponential backoff when it sends none). The body is buffered so every
// attempt sends the same bytes.
func (c *HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	correlationID := uuid.New().String()
	logger := log.With().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("correlationId", correlationID).
		Logger()

	body, err := readBody(req)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.send(ctx, req, body, correlationID, &logger)
		if err != nil {
			return nil, err
		}
		logger.Debug().Int("status", resp.StatusCode).Int("attempt", attempt).Msg("HTTP request completed")

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			resp.Body.Close()
			if c.tokenProvider == nil {
				logger.Error().Msg("401 in dev mode - check that the server accepts X-Debug-Sub")
				return nil, fmt.Errorf("authentication failed in dev mode")
			}
			if attempt >= MaxRetries {
				return nil, fmt.Errorf("authentication failed after %d retries", attempt)
			}
			logger.Warn().Msg("401 Unauthorized - invalidating token and retrying")
			c.tokenProvider.Invalidate()

		case http.StatusTooManyRequests:
			resp.Body.Close()
			wait := parseRetryAfter(resp.Header.Get("Retry-After"))
			if attempt >= MaxRetries {
				return nil, ErrRateLimited{RetryAfter: int(wait.Seconds())}
			}
			if wait == 0 {
				wait = c.backoff << attempt
			}
			logger.Warn().
				Dur("retryAfter", wait).
				Str("rateLimitRemaining", resp.Header.Get("X-RateLimit-Remaining")).
				Msg("Rate limited - backing off")
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}

		default:
			return resp, nil
		}
	}
}

// send performs one attempt with freshly injected headers
func (c *HTTPClient) send(ctx context.Context, req *http.Request, body []byte, correlationID string, logger *zerolog.Logger) (*http.Response, error) {
	attempt, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, v := range req.Header {
		attempt.Header[k] = v
	}
	attempt.Header.Set("X-Correlation-ID", correlationID)

	if c.tokenProvider == nil {
		attempt.Header.Set("X-Debug-Sub", c.debugSub)
	} else {
		token, err := c.tokenProvider.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get auth token: %w", err)
		}
		attempt.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(attempt)
	if err != nil {
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("HTTP request failed")
		return nil, err
	}
	return resp, nil
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	defer req.Body.Close()
	return io.ReadAll(req.Body)
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseRetryAfter reads a Retry-After value given in seconds or as an HTTP date
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
