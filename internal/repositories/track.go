package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/shared"
)

const trackColumns = `id, sequence, service, service_id, title, artist, album, duration, isrc, uri, created_at, updated_at`

// TrackFilter narrows [TrackRepository.List]. Zero fields match everything.
type TrackFilter struct {
	Service string
	ISRC    string
	Limit   int
}

// TrackRepository persists tracks seen on any platform.
//
// Rows are deduplicated by service+service_id; saving a known track refreshes its metadata.
type TrackRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db, now: time.Now}
}

// Save inserts new tracks and refreshes known ones in a single transaction.
// Tracks without a platform ID are skipped. Returns the number of new rows.
func (r *TrackRepository) Save(ctx context.Context, service string, tracks []models.Track) (int, error) {
	if strings.TrimSpace(service) == "" {
		return 0, fmt.Errorf("%w: service is required", shared.ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, track := range tracks {
		if track.ID == "" {
			continue
		}

		created, err := r.save(ctx, tx, service, track)
		if err != nil {
			return 0, err
		}
		if created {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit tracks: %w", err)
	}
	return inserted, nil
}

func (r *TrackRepository) save(ctx context.Context, tx *sql.Tx, service string, track models.Track) (bool, error) {
	now := r.now()

	result, err := tx.ExecContext(ctx, `
		UPDATE tracks
		SET title = ?, artist = ?, album = ?, duration = ?, isrc = ?, uri = ?, updated_at = ?, deleted_at = NULL
		WHERE service = ? AND service_id = ?
	`, track.Title, track.Artist, track.Album, track.Duration, track.ISRC, track.URI, now, service, track.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return false, nil
	}

	sequence, err := nextSequence(ctx, tx, "tracks")
	if err != nil {
		return false, fmt.Errorf("failed to generate sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tracks (id, sequence, service, service_id, title, artist, album, duration, isrc, uri, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		shared.GenerateID(),
		sequence,
		service,
		track.ID,
		track.Title,
		track.Artist,
		track.Album,
		track.Duration,
		track.ISRC,
		track.URI,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert track: %w", err)
	}
	return true, nil
}

// GetByServiceID retrieves a track by service and service_id
func (r *TrackRepository) GetByServiceID(ctx context.Context, service, serviceID string) (models.CachedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE service = ? AND service_id = ? AND deleted_at IS NULL`

	track, err := scanTrack(r.db.QueryRowContext(ctx, query, service, serviceID))
	if errors.Is(err, sql.ErrNoRows) {
		return track, fmt.Errorf("%w: %s/%s", shared.ErrTrackNotFound, service, serviceID)
	}
	return track, err
}

// GetByISRC retrieves every cached copy of a recording across services
func (r *TrackRepository) GetByISRC(ctx context.Context, isrc string) ([]models.CachedTrack, error) {
	if isrc == "" {
		return nil, fmt.Errorf("%w: isrc is required", shared.ErrInvalidInput)
	}
	return r.List(ctx, TrackFilter{ISRC: strings.ToUpper(isrc)})
}

// List retrieves tracks matching filter in insertion order
func (r *TrackRepository) List(ctx context.Context, filter TrackFilter) ([]models.CachedTrack, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE deleted_at IS NULL`
	args := []any{}

	if filter.Service != "" {
		query += " AND service = ?"
		args = append(args, filter.Service)
	}

	if filter.ISRC != "" {
		query += " AND UPPER(isrc) = ?"
		args = append(args, strings.ToUpper(filter.ISRC))
	}

	query += " ORDER BY sequence ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []models.CachedTrack{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

// CountByService returns how many tracks are cached per service
func (r *TrackRepository) CountByService(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT service, COUNT(*)
		FROM tracks
		WHERE deleted_at IS NULL
		GROUP BY service
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count tracks: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var (
			service string
			count   int
		)
		if err := rows.Scan(&service, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[service] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return counts, nil
}

// Delete soft-deletes a track by ID
func (r *TrackRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tracks
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, r.now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return nil
}

// scanTrack scans a single row selected with trackColumns into a [models.CachedTrack]
func scanTrack(row scanner) (models.CachedTrack, error) {
	var ct models.CachedTrack

	err := row.Scan(
		&ct.ID, &ct.Sequence, &ct.Service, &ct.Track.ID, &ct.Track.Title, &ct.Track.Artist,
		&ct.Track.Album, &ct.Track.Duration, &ct.Track.ISRC, &ct.Track.URI, &ct.CreatedAt, &ct.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ct, err
	}
	if err != nil {
		return ct, fmt.Errorf("failed to scan track: %w", err)
	}
	return ct, nil
}
