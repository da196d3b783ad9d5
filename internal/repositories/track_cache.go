package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/crossfade/internal/models"
)

// TrackCacheAdapter implements tasks.TrackCacher using TrackRepository.
//
// Known tracks are refreshed rather than duplicated via the service+service_id constraint.
type TrackCacheAdapter struct {
	repo *TrackRepository
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter with the given repository
func NewTrackCacheAdapter(repo *TrackRepository) *TrackCacheAdapter {
	return &TrackCacheAdapter{repo: repo}
}

// CacheTracks stores every track the platform returned.
func (a *TrackCacheAdapter) CacheTracks(ctx context.Context, platform string, tracks []models.Track) error {
	if _, err := a.repo.Save(ctx, platform, tracks); err != nil {
		return fmt.Errorf("failed to cache tracks: %w", err)
	}
	return nil
}
