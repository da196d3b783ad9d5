package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/repositories"
)

// CacheStats counts cached tracks per platform.
//
// Tracks are cached automatically during transfers when database.archive is enabled.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	var counts map[string]int
	err := r.withTracks(func(repo *repositories.TrackRepository) error {
		var err error
		counts, err = repo.CountByService(ctx)
		return err
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(counts, true)
	}

	if len(counts) == 0 {
		r.writePlain("Track cache is empty\n")
		if !r.config.Database.Archive {
			r.writePlain("Set database.archive = true to cache tracks during transfers\n")
		}
		return nil
	}

	platforms := make([]string, 0, len(counts))
	total := 0
	for p, n := range counts {
		platforms = append(platforms, p)
		total += n
	}
	sort.Strings(platforms)

	r.writePlainHeader("Track cache")
	for _, p := range platforms {
		r.writePlain("%-16s %d\n", p, counts[p])
	}
	return r.writePlain("%-16s %d\n", "total", total)
}

// CacheLookup finds cached tracks by ISRC, or lists the newest ones for a platform.
func (r *Runner) CacheLookup(ctx context.Context, cmd *cli.Command) error {
	isrc := cmd.String("isrc")
	platform := cmd.String("platform")

	var tracks []models.CachedTrack
	err := r.withTracks(func(repo *repositories.TrackRepository) error {
		var err error
		if isrc != "" && platform == "" {
			tracks, err = repo.GetByISRC(ctx, isrc)
			return err
		}
		tracks, err = repo.List(ctx, repositories.TrackFilter{
			Service: platform,
			ISRC:    isrc,
			Limit:   int(cmd.Int("limit")),
		})
		return err
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	if len(tracks) == 0 {
		return r.writePlain("No cached tracks found\n")
	}

	r.writePlainHeader(fmt.Sprintf("Cached tracks (%d)", len(tracks)))
	for _, ct := range tracks {
		t := ct.Track
		r.writePlain("[%s] %s - %s", ct.Service, t.Artist, t.Title)
		if t.ISRC != "" {
			r.writePlain("  isrc:%s", t.ISRC)
		}
		r.writePlain("  id:%s\n", t.ID)
	}
	return nil
}

func (r *Runner) withTracks(fn func(*repositories.TrackRepository) error) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(repositories.NewTrackRepository(db))
}
