package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/desertthunder/crossfade/internal/shared"
)

func TestCredentials(t *testing.T) {
	creds := Credentials{"access_token": "super-secret", "auth_file": "/home/me/browser.json"}

	t.Run("String Is Redacted", func(t *testing.T) {
		for _, out := range []string{creds.String(), fmt.Sprintf("%v", creds), fmt.Sprintf("%#v", creds)} {
			if strings.Contains(out, "super-secret") || strings.Contains(out, "browser.json") {
				t.Errorf("credential value leaked: %s", out)
			}
			if !strings.Contains(out, "access_token=[redacted]") {
				t.Errorf("expected key listing, got %s", out)
			}
		}
	})

	t.Run("Require", func(t *testing.T) {
		if v, err := creds.Require("access_token"); err != nil || v != "super-secret" {
			t.Errorf("expected value, got %q %v", v, err)
		}
		if _, err := creds.Require("refresh_token"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestQuery(t *testing.T) {
	if got := (Query{Title: "Song"}).String(); got != "Song" {
		t.Errorf("expected trimmed query, got %q", got)
	}
	if got := (Query{Title: "Song", Artist: "Band"}).String(); got != "Song Band" {
		t.Errorf("expected joined query, got %q", got)
	}
}

func TestCatalog(t *testing.T) {
	cfg := shared.DefaultConfig()
	catalog := CatalogFromConfig(cfg, nil)

	t.Run("Descriptors", func(t *testing.T) {
		ds := catalog.Descriptors()
		if len(ds) != 2 {
			t.Fatalf("expected 2 platforms, got %d", len(ds))
		}
		if ds[0].ID != PlatformSpotify || ds[1].ID != PlatformYouTubeMusic {
			t.Errorf("expected sorted ids, got %s, %s", ds[0].ID, ds[1].ID)
		}
	})

	t.Run("Provider", func(t *testing.T) {
		if _, err := catalog.Provider(PlatformYouTubeMusic); err != nil {
			t.Errorf("expected provider, got %v", err)
		}
		if _, err := catalog.Provider("amazon_music"); !errors.Is(err, shared.ErrUnsupportedPlatform) {
			t.Errorf("expected ErrUnsupportedPlatform, got %v", err)
		}
	})
}
