// package services defines the platform adapter contract for interacting with HTTP APIs
//
// Spotify, YouTube (via proxy)
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/shared"
)

// Provider authenticates a user against one streaming platform.
type Provider interface {
	// Descriptor returns static platform metadata.
	Descriptor() Descriptor

	// Authenticate validates credentials and returns a [Service] bound to them.
	//
	// Rejected credentials yield an error wrapping [shared.ErrAuthFailed].
	Authenticate(ctx context.Context, credentials Credentials) (Service, error)
}

// Service is an authenticated handle for a music service (Spotify, YouTube Music).
//
// A Service is scoped to one job or request and is safe for concurrent use.
type Service interface {
	// Name returns the name of the service (e.g., "Spotify", "YouTube Music")
	Name() string

	// ListPlaylists retrieves all playlists for the authenticated user.
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves a specific playlist by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// GetPlaylistTracks returns every track of a playlist in playlist order.
	GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// SearchTrack returns candidate tracks, best-first according to the platform.
	SearchTrack(ctx context.Context, q Query) ([]models.Track, error)

	// CreatePlaylist creates a playlist containing tracks in order and returns its id.
	CreatePlaylist(ctx context.Context, name, description string, tracks []models.Track) (string, error)
}

// Query is a destination search request.
type Query struct {
	Title  string
	Artist string
}

// String joins the non-empty query parts with a space.
func (q Query) String() string {
	return strings.TrimSpace(q.Title + " " + q.Artist)
}

// Credentials is an opaque key/value bag supplied per request.
//
// It is never persisted, and its String form is redacted.
type Credentials map[string]string

// Get returns the trimmed value for key.
func (c Credentials) Get(key string) string {
	return strings.TrimSpace(c[key])
}

// Require returns the value for key or an error wrapping [shared.ErrMissingCredentials].
func (c Credentials) Require(key string) (string, error) {
	v := c.Get(key)
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingCredentials, key)
	}
	return v, nil
}

// String lists the credential keys with their values masked.
func (c Credentials) String() string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=[redacted]"
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// GoString keeps %#v from printing secrets.
func (c Credentials) GoString() string {
	return c.String()
}

// Descriptor describes a platform and the credential fields it needs.
type Descriptor struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	RequiresAuth bool     `json:"requires_auth"`
	AuthFields   []string `json:"auth_fields"`
}
