package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/crossfade/internal/shared"
)

const (
	defaultRetryCount   = 3
	defaultRetryBase    = time.Second
	defaultRetryMaxWait = 30 * time.Second
)

// RetryOpts configures a [RetryClient].
type RetryOpts struct {
	Client      *http.Client
	RequestRate float64 // Requests per second, <= 0 means unlimited
	Retries     int     // Attempts per request
	Base        time.Duration
	MaxWait     time.Duration // Longest single backoff; a longer Retry-After fails the request
	Logger      *log.Logger
}

// RetryClient wraps an [http.Client] to provide rate limiting and bounded retries.
//
// Retries apply to network errors and 429/502/503/504 responses. Backoff is linear,
// (attempt+1)*base capped at maxWait, and a longer Retry-After from the platform wins.
// A Retry-After beyond maxWait is not waited out; the request fails with [shared.ErrRateLimited].
type RetryClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	retries    int
	base       time.Duration
	maxWait    time.Duration
	logger     *log.Logger
}

// NewRetryClient creates a new rate-limited, retrying HTTP client.
func NewRetryClient(opts RetryOpts) *RetryClient {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	limit := rate.Inf
	if opts.RequestRate > 0 {
		limit = rate.Limit(opts.RequestRate)
	}

	retries := opts.Retries
	if retries <= 0 {
		retries = defaultRetryCount
	}

	base := opts.Base
	if base <= 0 {
		base = defaultRetryBase
	}

	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = defaultRetryMaxWait
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &RetryClient{
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
		retries:    retries,
		base:       base,
		maxWait:    maxWait,
		logger:     logger,
	}
}

// RetryClientFromConfig builds a [RetryClient] from the transfer section of the config.
func RetryClientFromConfig(cfg shared.TransferConfig, logger *log.Logger) *RetryClient {
	return NewRetryClient(RetryOpts{
		RequestRate: cfg.RequestRate,
		Retries:     cfg.RetryCount,
		Base:        cfg.RetryBase(),
		MaxWait:     cfg.RetryMaxWait(),
		Logger:      logger,
	})
}

// WithTransport returns a copy of the client whose requests go through client.
//
// The rate limiter is shared with c.
func (c *RetryClient) WithTransport(client *http.Client) *RetryClient {
	cp := *c
	cp.httpClient = client
	return &cp
}

// Do executes the request produced by build with rate limiting and retries.
//
// build runs once per attempt so request bodies are never reused.
// Once retries are exhausted the last failure is returned, classified with [StatusError].
func (c *RetryClient) Do(ctx context.Context, build func(context.Context) (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := range c.retries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		wait := min(time.Duration(attempt+1)*c.base, c.maxWait)
		resp, err := c.httpClient.Do(req)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: request failed: %v", shared.ErrServiceUnavailable, err)
		case retryableStatus(resp.StatusCode):
			ra := parseRetryAfter(resp)
			drain(resp)
			if ra > c.maxWait {
				return nil, fmt.Errorf("%w: status %d: platform asked to wait %s, limit is %s",
					shared.ErrRateLimited, resp.StatusCode, ra.Round(time.Second), c.maxWait)
			}
			if ra > wait {
				wait = ra
			}
			lastErr = StatusError(resp.StatusCode, "")
		default:
			return resp, nil
		}

		if attempt == c.retries-1 {
			break
		}

		c.logger.Debug("retrying request", "url", req.URL.Redacted(), "attempt", attempt+1, "wait", wait, "error", lastErr)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}

// parseRetryAfter reads a Retry-After header and returns the duration to wait.
func parseRetryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		return time.Until(t)
	}
	return 0
}

// StatusError maps a non-2xx HTTP status to the shared error taxonomy.
func StatusError(code int, detail string) error {
	var base error
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		base = shared.ErrAuthFailed
	case code == http.StatusNotFound:
		base = shared.ErrPlaylistNotFound
	case code == http.StatusTooManyRequests:
		base = shared.ErrRateLimited
	case code >= 500:
		base = shared.ErrServiceUnavailable
	default:
		base = shared.ErrAPIRequest
	}
	if detail != "" {
		return fmt.Errorf("%w: status %d: %s", base, code, detail)
	}
	return fmt.Errorf("%w: status %d", base, code)
}

// checkResponse closes resp and returns a classified error when the status is not 2xx.
//
// detailFn extracts a platform-specific message from the error body.
func checkResponse(resp *http.Response, detailFn func([]byte) string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()

	var detail string
	if body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil && detailFn != nil {
		detail = detailFn(body)
	}
	return StatusError(resp.StatusCode, detail)
}

func decodeJSON(resp *http.Response, result any) error {
	defer resp.Body.Close()
	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}
