package tasks

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/shared"
)

// Archiver persists jobs that reached a terminal status.
type Archiver interface {
	Archive(ctx context.Context, job models.TransferJob) error
}

// JobSpec carries the immutable fields of a new job.
type JobSpec struct {
	SourcePlatform   string
	DestPlatform     string
	SourcePlaylistID string
	DestPlaylistName string
}

// RegistryOpts configures a [Registry].
type RegistryOpts struct {
	TTL      time.Duration // Terminal jobs older than this are swept; zero keeps them forever
	Archiver Archiver      // Optional
	Logger   *log.Logger
	Now      func() time.Time
	NewID    func() string
}

// Registry is the process-wide table of transfer jobs.
//
// All reads return deep copies; all writes go through [Registry.Update].
type Registry struct {
	mu       sync.RWMutex
	jobs     map[string]*models.TransferJob
	ttl      time.Duration
	archiver Archiver
	logger   *log.Logger
	now      func() time.Time
	newID    func() string
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOpts) *Registry {
	r := &Registry{
		jobs:     make(map[string]*models.TransferJob),
		ttl:      opts.TTL,
		archiver: opts.Archiver,
		logger:   opts.Logger,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if r.logger == nil {
		r.logger = shared.NewLogger(io.Discard)
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = shared.GenerateID
	}
	return r
}

// Create registers a pending job and returns its snapshot.
func (r *Registry) Create(spec JobSpec) models.TransferJob {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	for {
		if _, exists := r.jobs[id]; !exists {
			break
		}
		id = r.newID()
	}

	job := &models.TransferJob{
		ID:               id,
		SourcePlatform:   spec.SourcePlatform,
		DestPlatform:     spec.DestPlatform,
		SourcePlaylistID: spec.SourcePlaylistID,
		DestPlaylistName: spec.DestPlaylistName,
		Status:           models.StatusPending,
		Outcomes:         []models.TrackOutcome{},
		CreatedAt:        r.now(),
	}
	r.jobs[id] = job
	return job.Clone()
}

// Get returns a snapshot of job id.
func (r *Registry) Get(id string) (models.TransferJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return models.TransferJob{}, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return job.Clone(), nil
}

// Update applies fn to a working copy of job id and commits it atomically.
//
// Terminal jobs reject updates with [shared.ErrJobFinalized]. If fn returns an error,
// or the resulting status is not a legal transition, nothing is committed.
// The first time a job turns terminal its completion time is stamped and the
// archiver (if any) receives the committed snapshot after the lock is released.
func (r *Registry) Update(id string, fn func(*models.TransferJob) error) (models.TransferJob, error) {
	r.mu.Lock()

	job, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return models.TransferJob{}, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	if job.Status.IsTerminal() {
		r.mu.Unlock()
		return job.Clone(), fmt.Errorf("%w: %s is %s", shared.ErrJobFinalized, id, job.Status)
	}

	working := job.Clone()
	if err := fn(&working); err != nil {
		r.mu.Unlock()
		return job.Clone(), err
	}

	working.ID = job.ID
	working.CreatedAt = job.CreatedAt

	if !job.Status.CanTransition(working.Status) {
		r.mu.Unlock()
		return job.Clone(), fmt.Errorf("%w: %s cannot move from %s to %s",
			shared.ErrInvalidInput, id, job.Status, working.Status)
	}

	now := r.now()
	if working.Status == models.StatusRunning && working.StartedAt == nil {
		working.StartedAt = &now
	}

	terminal := working.Status.IsTerminal()
	if terminal {
		if working.CompletedAt == nil {
			working.CompletedAt = &now
		}
		if len(working.Outcomes) != working.Total {
			r.mu.Unlock()
			return job.Clone(), fmt.Errorf("%w: %s has %d outcomes for %d tracks",
				shared.ErrInvalidInput, id, len(working.Outcomes), working.Total)
		}
	}

	r.jobs[id] = &working
	snapshot := working.Clone()
	r.mu.Unlock()

	if terminal && r.archiver != nil {
		if err := r.archiver.Archive(context.Background(), snapshot); err != nil {
			r.logger.Warn("failed to archive job", "job_id", id, "error", err)
		}
	}
	return snapshot, nil
}

// List returns snapshots of every job, oldest first.
func (r *Registry) List() []models.TransferJob {
	r.mu.RLock()
	jobs := make([]models.TransferJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// Len returns the number of jobs held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Sweep evicts terminal jobs completed more than the TTL before now and returns how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	if r.ttl <= 0 {
		return 0
	}

	cutoff := now.Add(-r.ttl)
	removed := 0

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, job := range r.jobs {
		if !job.Status.IsTerminal() || job.CompletedAt == nil {
			continue
		}
		if job.CompletedAt.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(r.now()); n > 0 {
				r.logger.Debug("swept expired jobs", "count", n)
			}
		}
	}
}
