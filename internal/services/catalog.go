package services

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/crossfade/internal/shared"
)

// Platform identifiers accepted by the API and CLI.
const (
	PlatformSpotify      = "spotify"
	PlatformYouTubeMusic = "youtube_music"
)

// Catalog maps platform ids to their [Provider].
type Catalog struct {
	providers map[string]Provider
}

// NewCatalog registers providers under their descriptor ids.
func NewCatalog(providers ...Provider) *Catalog {
	c := &Catalog{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		c.providers[p.Descriptor().ID] = p
	}
	return c
}

// CatalogFromConfig builds the default catalog of Spotify and YouTube Music
// sharing one [RetryClient].
func CatalogFromConfig(cfg *shared.Config, logger *log.Logger) *Catalog {
	client := RetryClientFromConfig(cfg.Transfer, logger)
	return NewCatalog(
		NewSpotifyProvider(cfg.Credentials.Spotify, client),
		NewYouTubeProvider(cfg.Credentials.YouTube, client),
	)
}

// Provider returns the provider registered for id.
func (c *Catalog) Provider(id string) (Provider, error) {
	p, ok := c.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", shared.ErrUnsupportedPlatform, id)
	}
	return p, nil
}

// Descriptors lists every registered platform sorted by id.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, p.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
