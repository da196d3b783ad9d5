package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/shared"
)

const jobColumns = `
	id, source_platform, destination_platform, source_playlist_id,
	source_playlist_name, destination_playlist_id, destination_playlist_name,
	status, tracks_total, tracks_matched, tracks_unmatched, tracks_errored,
	outcomes, error_kind, error_detail, created_at, started_at, completed_at`

// JobFilter narrows [JobRepository.List]. Zero fields match everything.
type JobFilter struct {
	Status   models.JobStatus
	Platform string // Matches either side of the transfer
	Limit    int
}

// JobRepository archives finished [models.TransferJob] values.
//
// It satisfies tasks.Archiver so the job registry can hand off terminal jobs.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Archive inserts or replaces the archived copy of a terminal job.
func (r *JobRepository) Archive(ctx context.Context, job models.TransferJob) error {
	if !job.Status.IsTerminal() {
		return fmt.Errorf("%w: job %s is still %s", shared.ErrInvalidInput, job.ID, job.Status)
	}

	outcomes, err := json.Marshal(job.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to encode outcomes: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE id = ?`, job.ID).Scan(&existing)
	if err != nil {
		return fmt.Errorf("failed to check archived job: %w", err)
	}

	if existing == 0 {
		sequence, err := nextSequence(ctx, tx, "jobs")
		if err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}

		query := `
			INSERT INTO jobs (
				sequence, id, source_platform, destination_platform, source_playlist_id,
				source_playlist_name, destination_playlist_id, destination_playlist_name,
				status, tracks_total, tracks_matched, tracks_unmatched, tracks_errored,
				outcomes, error_kind, error_detail, created_at, started_at, completed_at
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = tx.ExecContext(ctx, query,
			sequence,
			job.ID,
			job.SourcePlatform,
			job.DestPlatform,
			job.SourcePlaylistID,
			job.SourcePlaylistName,
			nullString(job.DestPlaylistID),
			job.DestPlaylistName,
			string(job.Status),
			job.Total,
			job.Matched,
			job.Unmatched,
			job.Errors,
			string(outcomes),
			nullString(job.ErrorKind),
			nullString(job.ErrorDetail),
			job.CreatedAt,
			nullTime(job.StartedAt),
			nullTime(job.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}
	} else {
		query := `
			UPDATE jobs
			SET source_playlist_name = ?, destination_playlist_id = ?, destination_playlist_name = ?,
				status = ?, tracks_total = ?, tracks_matched = ?, tracks_unmatched = ?,
				tracks_errored = ?, outcomes = ?, error_kind = ?, error_detail = ?,
				started_at = ?, completed_at = ?, deleted_at = NULL
			WHERE id = ?
		`
		_, err = tx.ExecContext(ctx, query,
			job.SourcePlaylistName,
			nullString(job.DestPlaylistID),
			job.DestPlaylistName,
			string(job.Status),
			job.Total,
			job.Matched,
			job.Unmatched,
			job.Errors,
			string(outcomes),
			nullString(job.ErrorKind),
			nullString(job.ErrorDetail),
			nullTime(job.StartedAt),
			nullTime(job.CompletedAt),
			job.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit job: %w", err)
	}
	return nil
}

// Get retrieves an archived job by ID, excluding deleted jobs
func (r *JobRepository) Get(ctx context.Context, id string) (models.TransferJob, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ? AND deleted_at IS NULL`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TransferJob{}, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return job, err
}

// List retrieves archived jobs matching filter, newest first
func (r *JobRepository) List(ctx context.Context, filter JobFilter) ([]models.TransferJob, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE deleted_at IS NULL`
	args := []any{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}

	if filter.Platform != "" {
		query += " AND (source_platform = ? OR destination_platform = ?)"
		args = append(args, filter.Platform, filter.Platform)
	}

	query += " ORDER BY sequence DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []models.TransferJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return jobs, nil
}

// Delete soft-deletes an archived job by ID
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	query := `
		UPDATE jobs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanJob scans a single row selected with jobColumns into a [models.TransferJob]
func scanJob(row scanner) (models.TransferJob, error) {
	var (
		job            models.TransferJob
		status         string
		destPlaylistID sql.NullString
		outcomes       string
		errorKind      sql.NullString
		errorDetail    sql.NullString
		startedAt      sql.NullTime
		completedAt    sql.NullTime
	)

	err := row.Scan(
		&job.ID, &job.SourcePlatform, &job.DestPlatform, &job.SourcePlaylistID,
		&job.SourcePlaylistName, &destPlaylistID, &job.DestPlaylistName,
		&status, &job.Total, &job.Matched, &job.Unmatched, &job.Errors,
		&outcomes, &errorKind, &errorDetail, &job.CreatedAt, &startedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return job, err
	}
	if err != nil {
		return job, fmt.Errorf("failed to scan job: %w", err)
	}

	job.Status = models.JobStatus(status)
	job.DestPlaylistID = destPlaylistID.String
	job.ErrorKind = errorKind.String
	job.ErrorDetail = errorDetail.String

	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	if err := json.Unmarshal([]byte(outcomes), &job.Outcomes); err != nil {
		return job, fmt.Errorf("failed to decode outcomes for job %s: %w", job.ID, err)
	}
	return job, nil
}
