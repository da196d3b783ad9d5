package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/crossfade/internal/shared"
	tu "github.com/desertthunder/crossfade/internal/testing"
)

func getBuilder(url string) func(context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func TestRetryClient(t *testing.T) {
	newClient := func(rt http.RoundTripper, retries int) *RetryClient {
		return NewRetryClient(RetryOpts{
			Client:  &http.Client{Transport: rt},
			Retries: retries,
			Base:    time.Millisecond,
		})
	}

	t.Run("Retries Rate Limit Then Succeeds", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(
			tu.Step{Status: http.StatusTooManyRequests},
			tu.Step{Status: http.StatusOK, Body: "ok"},
		)

		resp, err := newClient(rt, 3).Do(context.Background(), getBuilder("http://example.com"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if string(body) != "ok" {
			t.Errorf("expected body ok, got %q", body)
		}
		if rt.Calls() != 2 {
			t.Errorf("expected 2 calls, got %d", rt.Calls())
		}
	})

	t.Run("Gives Up After Retry Count", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(tu.Step{Status: http.StatusServiceUnavailable})

		_, err := newClient(rt, 3).Do(context.Background(), getBuilder("http://example.com"))
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if rt.Calls() != 3 {
			t.Errorf("expected 3 calls, got %d", rt.Calls())
		}
	})

	t.Run("Exhausted Rate Limit Is Classified", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(tu.Step{Status: http.StatusTooManyRequests})

		_, err := newClient(rt, 2).Do(context.Background(), getBuilder("http://example.com"))
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("Long Retry After Fails Fast", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(
			tu.Step{Status: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{"3600"}}},
			tu.Step{Status: http.StatusOK, Body: "ok"},
		)
		client := NewRetryClient(RetryOpts{
			Client:  &http.Client{Transport: rt},
			Retries: 3,
			Base:    time.Millisecond,
			MaxWait: 50 * time.Millisecond,
		})

		start := time.Now()
		_, err := client.Do(context.Background(), getBuilder("http://example.com"))
		if !errors.Is(err, shared.ErrRateLimited) {
			t.Errorf("expected ErrRateLimited, got %v", err)
		}
		if rt.Calls() != 1 {
			t.Errorf("expected no retry after an oversized Retry-After, got %d calls", rt.Calls())
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("expected to fail fast, took %v", elapsed)
		}
	})

	t.Run("Short Retry After Is Honoured", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(
			tu.Step{Status: http.StatusServiceUnavailable, Header: http.Header{"Retry-After": []string{"1"}}},
			tu.Step{Status: http.StatusOK, Body: "ok"},
		)
		client := NewRetryClient(RetryOpts{
			Client:  &http.Client{Transport: rt},
			Retries: 2,
			Base:    time.Millisecond,
			MaxWait: 2 * time.Second,
		})

		start := time.Now()
		resp, err := client.Do(context.Background(), getBuilder("http://example.com"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		resp.Body.Close()
		if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
			t.Errorf("expected to wait for Retry-After, took %v", elapsed)
		}
	})

	t.Run("Network Errors Are Retried", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(
			tu.Step{Err: errors.New("connection reset")},
			tu.Step{Status: http.StatusOK},
		)

		resp, err := newClient(rt, 3).Do(context.Background(), getBuilder("http://example.com"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		resp.Body.Close()
		if rt.Calls() != 2 {
			t.Errorf("expected 2 calls, got %d", rt.Calls())
		}
	})

	t.Run("Client Errors Are Not Retried", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(tu.Step{Status: http.StatusUnauthorized})

		resp, err := newClient(rt, 3).Do(context.Background(), getBuilder("http://example.com"))
		if err != nil {
			t.Fatalf("expected response, got %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", resp.StatusCode)
		}
		if rt.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", rt.Calls())
		}
	})

	t.Run("Rebuilds Request Body Per Attempt", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(
			tu.Step{Status: http.StatusBadGateway},
			tu.Step{Status: http.StatusOK},
		)

		builds := 0
		resp, err := newClient(rt, 3).Do(context.Background(), func(ctx context.Context) (*http.Request, error) {
			builds++
			return http.NewRequestWithContext(ctx, http.MethodPost, "http://example.com", strings.NewReader("payload"))
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		resp.Body.Close()

		if builds != 2 {
			t.Errorf("expected 2 builds, got %d", builds)
		}
		for i, req := range rt.Requests() {
			body, _ := io.ReadAll(req.Body)
			if string(body) != "payload" {
				t.Errorf("attempt %d: expected full payload, got %q", i, body)
			}
		}
	})

	t.Run("Canceled Context Stops Backoff", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(tu.Step{Status: http.StatusServiceUnavailable})
		client := NewRetryClient(RetryOpts{
			Client:  &http.Client{Transport: rt},
			Retries: 5,
			Base:    time.Hour,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := client.Do(ctx, getBuilder("http://example.com"))
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("Build Failure", func(t *testing.T) {
		rt := tu.NewSequenceRoundTripper(tu.Step{Status: http.StatusOK})

		_, err := newClient(rt, 3).Do(context.Background(), func(ctx context.Context) (*http.Request, error) {
			return nil, errors.New("bad url")
		})
		if err == nil || !strings.Contains(err.Error(), "failed to create request") {
			t.Errorf("expected create request error, got %v", err)
		}
		if rt.Calls() != 0 {
			t.Errorf("expected no calls, got %d", rt.Calls())
		}
	})
}

func TestParseRetryAfter(t *testing.T) {
	t.Run("Seconds", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Retry-After": []string{"2"}}}
		if got := parseRetryAfter(resp); got != 2*time.Second {
			t.Errorf("expected 2s, got %v", got)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{}}
		if got := parseRetryAfter(resp); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		resp := &http.Response{Header: http.Header{"Retry-After": []string{"soon"}}}
		if got := parseRetryAfter(resp); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
	})
}

func TestStatusError(t *testing.T) {
	tc := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, shared.ErrAuthFailed},
		{http.StatusForbidden, shared.ErrAuthFailed},
		{http.StatusNotFound, shared.ErrPlaylistNotFound},
		{http.StatusTooManyRequests, shared.ErrRateLimited},
		{http.StatusInternalServerError, shared.ErrServiceUnavailable},
		{http.StatusServiceUnavailable, shared.ErrServiceUnavailable},
		{http.StatusBadRequest, shared.ErrAPIRequest},
		{http.StatusConflict, shared.ErrAPIRequest},
	}

	for _, tt := range tc {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			err := StatusError(tt.code, "detail")
			if !errors.Is(err, tt.want) {
				t.Errorf("StatusError(%d) = %v, want %v", tt.code, err, tt.want)
			}
			if !strings.Contains(err.Error(), "detail") {
				t.Errorf("expected detail in message, got %v", err)
			}
		})
	}
}
