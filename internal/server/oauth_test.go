package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/desertthunder/crossfade/internal/shared"
)

func TestOAuthHandler(t *testing.T) {
	okExchange := func(ctx context.Context, code string) (*oauth2.Token, error) {
		if code != "good-code" {
			return nil, errors.New("unexpected code")
		}
		return &oauth2.Token{AccessToken: "user-token"}, nil
	}

	callback := func(h *OAuthHandler, query string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?"+query, nil))
		return rec
	}

	t.Run("Success", func(t *testing.T) {
		h := NewOAuthHandler(okExchange, "st4te")
		rec := callback(h, "state=st4te&code=good-code")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Signed in") {
			t.Errorf("unexpected page: %s", rec.Body.String())
		}

		result := <-h.Result()
		if err := result.Error(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Token.AccessToken != "user-token" {
			t.Errorf("unexpected token %q", result.Token.AccessToken)
		}
	})

	t.Run("State Mismatch", func(t *testing.T) {
		h := NewOAuthHandler(okExchange, "st4te")
		rec := callback(h, "state=forged&code=good-code")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", result.Error())
		}
	})

	t.Run("Denied", func(t *testing.T) {
		h := NewOAuthHandler(okExchange, "st4te")
		rec := callback(h, "state=st4te&error=access_denied&error_description=nope")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		result := <-h.Result()
		if !errors.Is(result.Error(), shared.ErrAuthFailed) || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected denial error, got %v", result.Error())
		}
	})

	t.Run("Exchange Failure", func(t *testing.T) {
		h := NewOAuthHandler(okExchange, "st4te")
		rec := callback(h, "state=st4te&code=bad-code")
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
		if result := <-h.Result(); result.Error() == nil {
			t.Error("expected exchange error")
		}
	})

	t.Run("Only First Callback", func(t *testing.T) {
		h := NewOAuthHandler(okExchange, "st4te")
		callback(h, "state=st4te&code=good-code")
		rec := callback(h, "state=st4te&code=good-code")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected repeated callback to be rejected, got %d", rec.Code)
		}

		<-h.Result()
		if _, open := <-h.Result(); open {
			t.Error("expected result channel to be closed after one result")
		}
	})

	t.Run("Routes Through Router", func(t *testing.T) {
		h := NewOAuthHandler(okExchange, "st4te")
		router := NewChiRouter()
		router.Handler(h)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=st4te&code=good-code", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 via router, got %d", rec.Code)
		}
	})
}
