package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/crossfade/internal/matching"
	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/services"
	"github.com/desertthunder/crossfade/internal/shared"
)

// ProviderCatalog resolves platform identifiers to providers.
type ProviderCatalog interface {
	Provider(id string) (services.Provider, error)
	Descriptors() []services.Descriptor
}

// TrackCacher persists tracks seen during transfers.
//
// Cache failures are logged and never fail a job.
type TrackCacher interface {
	CacheTracks(ctx context.Context, platform string, tracks []models.Track) error
}

// TransferRequest asks for one playlist to be copied between platforms.
//
// Credentials are handed to the providers and never stored on the job.
type TransferRequest struct {
	SourcePlatform    string               `json:"source_platform"`
	DestPlatform      string               `json:"destination_platform"`
	PlaylistID        string               `json:"playlist_id"`
	SourceCredentials services.Credentials `json:"source_credentials"`
	DestCredentials   services.Credentials `json:"destination_credentials"`
	DestName          string               `json:"destination_name,omitempty"`
}

// Validate checks that every required field is present.
func (r TransferRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.SourcePlatform) == "":
		return fmt.Errorf("%w: source_platform", shared.ErrMissingArgument)
	case strings.TrimSpace(r.DestPlatform) == "":
		return fmt.Errorf("%w: destination_platform", shared.ErrMissingArgument)
	case strings.TrimSpace(r.PlaylistID) == "":
		return fmt.Errorf("%w: playlist_id", shared.ErrMissingArgument)
	}
	return nil
}

// EngineOpts configures an [Engine]. Zero values fall back to defaults.
type EngineOpts struct {
	Catalog       ProviderCatalog
	Registry      *Registry
	Matcher       *matching.Matcher
	Concurrency   int     // Matching workers per job
	MaxJobs       int     // Jobs running at once
	QueueSize     int     // Jobs waiting for a worker
	SearchRate    float64 // Searches per second per job; zero is unlimited
	SweepInterval time.Duration
	Cacher        TrackCacher
	Progress      chan<- ProgressUpdate
	Logger        *log.Logger
}

// EngineOptsFromConfig fills the tuning fields of [EngineOpts] from the [transfer] section.
func EngineOptsFromConfig(cfg shared.TransferConfig) EngineOpts {
	return EngineOpts{
		Concurrency:   cfg.Concurrency,
		MaxJobs:       cfg.MaxJobs,
		QueueSize:     cfg.QueueSize,
		SearchRate:    cfg.SearchRate,
		SweepInterval: cfg.SweepInterval(),
	}
}

type queuedJob struct {
	id  string
	req TransferRequest
	ctx context.Context
}

// Engine runs transfer jobs on a fixed pool of job workers.
//
// Submit enqueues and returns at once; progress is observed by polling [Engine.Status].
type Engine struct {
	catalog       ProviderCatalog
	registry      *Registry
	matcher       *matching.Matcher
	concurrency   int
	maxJobs       int
	searchRate    float64
	sweepInterval time.Duration
	cacher        TrackCacher
	progress      chan<- ProgressUpdate
	logger        *log.Logger

	queue chan queuedJob

	mu      sync.Mutex
	ctx     context.Context
	stop    context.CancelCauseFunc
	cancels map[string]context.CancelCauseFunc
	wg      sync.WaitGroup
}

// NewEngine validates opts and returns an engine. Call [Engine.Start] before submitting.
func NewEngine(opts EngineOpts) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("%w: engine requires a platform catalog", shared.ErrMissingConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry(RegistryOpts{Logger: opts.Logger})
	}
	if opts.Matcher == nil {
		m, err := matching.New(matching.DefaultConfig(), opts.Logger)
		if err != nil {
			return nil, err
		}
		opts.Matcher = m
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MaxJobs <= 0 {
		opts.MaxJobs = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 32
	}

	return &Engine{
		catalog:       opts.Catalog,
		registry:      opts.Registry,
		matcher:       opts.Matcher,
		concurrency:   opts.Concurrency,
		maxJobs:       opts.MaxJobs,
		searchRate:    opts.SearchRate,
		sweepInterval: opts.SweepInterval,
		cacher:        opts.Cacher,
		progress:      opts.Progress,
		logger:        opts.Logger,
		queue:         make(chan queuedJob, opts.QueueSize),
		cancels:       make(map[string]context.CancelCauseFunc),
	}, nil
}

// Registry returns the job registry backing the engine.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Start launches the job workers and the registry sweeper. Starting twice is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx != nil {
		return
	}
	e.ctx, e.stop = context.WithCancelCause(ctx)

	for range e.maxJobs {
		e.wg.Add(1)
		go e.worker(e.ctx)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.registry.Run(e.ctx, e.sweepInterval)
	}()

	e.logger.Debug("transfer engine started", "workers", e.maxJobs, "concurrency", e.concurrency)
}

// Shutdown cancels running jobs, waits for the workers to exit, and marks queued jobs cancelled.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	stop := e.stop
	if stop != nil {
		stop(fmt.Errorf("%w: engine shutting down", shared.ErrJobCancelled))
	}
	e.mu.Unlock()

	if stop == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case q := <-e.queue:
			e.cancelPending(q.id, "engine shutting down")
			e.release(q.id)
		default:
			return nil
		}
	}
}

// Platforms lists the supported platform descriptors.
func (e *Engine) Platforms() []services.Descriptor {
	return e.catalog.Descriptors()
}

// ListPlaylists authenticates with platform and lists the account's playlists.
func (e *Engine) ListPlaylists(ctx context.Context, platform string, credentials services.Credentials) ([]models.Playlist, error) {
	provider, err := e.catalog.Provider(platform)
	if err != nil {
		return nil, err
	}

	svc, err := provider.Authenticate(ctx, credentials)
	if err != nil {
		return nil, err
	}
	return svc.ListPlaylists(ctx)
}

// Submit registers a pending job and queues it for execution.
//
// A full queue yields [shared.ErrServiceUnavailable] and the registered job is failed.
func (e *Engine) Submit(ctx context.Context, req TransferRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}
	if _, err := e.catalog.Provider(req.SourcePlatform); err != nil {
		return "", err
	}
	if _, err := e.catalog.Provider(req.DestPlatform); err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.ctx == nil || e.ctx.Err() != nil {
		e.mu.Unlock()
		return "", fmt.Errorf("%w: transfer engine is not running", shared.ErrServiceUnavailable)
	}

	job := e.registry.Create(JobSpec{
		SourcePlatform:   req.SourcePlatform,
		DestPlatform:     req.DestPlatform,
		SourcePlaylistID: req.PlaylistID,
		DestPlaylistName: req.DestName,
	})
	jobCtx, cancel := context.WithCancelCause(e.ctx)

	select {
	case e.queue <- queuedJob{id: job.ID, req: req, ctx: jobCtx}:
		e.cancels[job.ID] = cancel
		e.mu.Unlock()
	default:
		e.mu.Unlock()
		cancel(nil)
		err := fmt.Errorf("%w: job queue is full", shared.ErrServiceUnavailable)
		if _, uerr := e.registry.Update(job.ID, func(j *models.TransferJob) error {
			j.Status = models.StatusFailed
			j.ErrorKind = shared.Kind(err)
			j.ErrorDetail = shared.Describe(err)
			return nil
		}); uerr != nil {
			e.logger.Error("failed to reject queued job", "job_id", job.ID, "error", uerr)
		}
		return "", err
	}

	e.logger.Info("transfer submitted",
		"job_id", job.ID, "source", req.SourcePlatform, "destination", req.DestPlatform,
		"playlist_id", req.PlaylistID)
	return job.ID, nil
}

// Status returns the poll report for job id.
func (e *Engine) Status(id string) (models.StatusReport, error) {
	job, err := e.registry.Get(id)
	if err != nil {
		return models.StatusReport{}, err
	}
	return job.Report(), nil
}

// Job returns a full snapshot of job id, including per-track outcomes.
func (e *Engine) Job(id string) (models.TransferJob, error) {
	return e.registry.Get(id)
}

// Jobs returns reports for every job still held, oldest first.
func (e *Engine) Jobs() []models.StatusReport {
	jobs := e.registry.List()
	reports := make([]models.StatusReport, len(jobs))
	for i := range jobs {
		reports[i] = jobs[i].Report()
	}
	return reports
}

// Cancel stops job id. Pending jobs are cancelled at once; running jobs stop after
// in-flight searches return. Finished jobs yield [shared.ErrJobFinalized].
func (e *Engine) Cancel(id string) error {
	if _, err := e.registry.Update(id, func(j *models.TransferJob) error {
		if j.Status == models.StatusPending {
			markCancelled(j, "cancelled before start")
		}
		return nil
	}); err != nil {
		return err
	}

	e.mu.Lock()
	cancel := e.cancels[id]
	e.mu.Unlock()

	if cancel != nil {
		cancel(fmt.Errorf("%w: cancelled by request", shared.ErrJobCancelled))
	}
	e.logger.Info("transfer cancellation requested", "job_id", id)
	return nil
}

// Wait polls job id every interval until it reaches a terminal status.
func (e *Engine) Wait(ctx context.Context, id string, interval time.Duration) (models.TransferJob, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := e.registry.Get(id)
		if err != nil {
			return job, err
		}
		if job.Status.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Engine) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-e.queue:
			e.run(q)
		}
	}
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	cancel := e.cancels[id]
	delete(e.cancels, id)
	e.mu.Unlock()

	if cancel != nil {
		cancel(nil)
	}
}

func (e *Engine) run(q queuedJob) {
	defer e.release(q.id)

	logger := shared.WithLogger(e.logger,
		"job_id", q.id, "source", q.req.SourcePlatform, "destination", q.req.DestPlatform)

	if _, err := e.registry.Update(q.id, func(j *models.TransferJob) error {
		j.Status = models.StatusRunning
		return nil
	}); err != nil {
		if !errors.Is(err, shared.ErrJobFinalized) {
			logger.Error("failed to start job", "error", err)
		}
		return
	}

	logger.Info("transfer started", "playlist_id", q.req.PlaylistID)
	start := time.Now()

	if err := e.execute(q.ctx, q, logger); err != nil {
		e.finishWithError(q.ctx, q.id, err, logger)
	}

	job, err := e.registry.Get(q.id)
	if err != nil {
		logger.Error("job vanished before completion", "error", err)
		return
	}

	e.sendProgress(completeUpdate(job))
	logger.Info("transfer finished",
		"status", job.Status, "matched", job.Matched, "unmatched", job.Unmatched,
		"errors", job.Errors, "total", job.Total, "duration", time.Since(start).Round(time.Millisecond))
}

// execute runs the transfer protocol. It returns an error for anything that fails the
// whole job; per-track failures are recorded as outcomes.
func (e *Engine) execute(ctx context.Context, q queuedJob, logger *log.Logger) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	srcProvider, err := e.catalog.Provider(q.req.SourcePlatform)
	if err != nil {
		return err
	}
	destProvider, err := e.catalog.Provider(q.req.DestPlatform)
	if err != nil {
		return err
	}

	e.sendProgress(authenticateUpdate(q.id, srcProvider.Descriptor().Name))
	src, err := srcProvider.Authenticate(ctx, q.req.SourceCredentials)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}

	playlist, err := src.GetPlaylist(ctx, q.req.PlaylistID)
	if err != nil {
		return fmt.Errorf("source playlist: %w", err)
	}
	tracks, err := src.GetPlaylistTracks(ctx, q.req.PlaylistID)
	if err != nil {
		return fmt.Errorf("source tracks: %w", err)
	}

	logger.Debug("fetched source playlist", "name", playlist.Name, "tracks", len(tracks))
	e.cache(ctx, logger, q.req.SourcePlatform, tracks)
	e.sendProgress(fetchSourceUpdate(q.id, playlist, len(tracks)))

	if _, err := e.registry.Update(q.id, func(j *models.TransferJob) error {
		j.SourcePlaylistName = playlist.Name
		return nil
	}); err != nil {
		return err
	}

	e.sendProgress(authenticateUpdate(q.id, destProvider.Descriptor().Name))
	dest, err := destProvider.Authenticate(ctx, q.req.DestCredentials)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	if _, err := e.registry.Update(q.id, func(j *models.TransferJob) error {
		j.Total = len(tracks)
		j.Outcomes = make([]models.TrackOutcome, len(tracks))
		for i, t := range tracks {
			j.Outcomes[i] = models.TrackOutcome{Index: i, Source: t, Method: models.MatchNone, Kind: models.OutcomePending}
		}
		return nil
	}); err != nil {
		return err
	}

	e.matchAll(ctx, q.id, dest, tracks, logger)
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	job, err := e.registry.Get(q.id)
	if err != nil {
		return err
	}

	matched := make([]models.Track, 0, job.Matched)
	for _, o := range job.Outcomes {
		if o.Kind == models.OutcomeMatched && o.Matched != nil {
			matched = append(matched, *o.Matched)
		}
	}

	name := q.req.DestName
	if name == "" {
		name = playlist.Name
	}
	description := fmt.Sprintf("Transferred from %s: %s", srcProvider.Descriptor().Name, playlist.Name)

	e.sendProgress(createPlaylistUpdate(q.id, name, len(matched)))
	destID, err := dest.CreatePlaylist(ctx, name, description, matched)
	if err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return fmt.Errorf("%w: create playlist %q: %v", shared.ErrAPIRequest, name, err)
	}

	e.cache(ctx, logger, q.req.DestPlatform, matched)

	_, err = e.registry.Update(q.id, func(j *models.TransferJob) error {
		j.DestPlaylistID = destID
		j.DestPlaylistName = name
		if j.Matched == j.Total {
			j.Status = models.StatusSucceeded
		} else {
			j.Status = models.StatusPartiallySucceeded
		}
		return nil
	})
	return err
}

// matchAll fans track indices out to the per-job worker pool and records each outcome.
//
// Tracks still unprocessed when ctx ends stay pending.
func (e *Engine) matchAll(ctx context.Context, id string, dest services.Service, tracks []models.Track, logger *log.Logger) {
	if len(tracks) == 0 {
		return
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if e.searchRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(e.searchRate), 1)
	}

	indices := make(chan int)
	var wg sync.WaitGroup

	for range min(e.concurrency, len(tracks)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				outcome, ok := e.matchTrack(ctx, limiter, dest, i, tracks[i], logger)
				if !ok {
					continue
				}

				job, err := e.registry.Update(id, func(j *models.TransferJob) error {
					return j.Record(outcome)
				})
				if err != nil {
					logger.Error("failed to record outcome", "index", i, "error", err)
					continue
				}
				e.sendProgress(searchTrackUpdate(id, job.Processed(), job.Total, outcome))
			}
		}()
	}

feed:
	for i := range tracks {
		select {
		case <-ctx.Done():
			break feed
		case indices <- i:
		}
	}
	close(indices)
	wg.Wait()
}

// matchTrack resolves one track. ok is false when the job was cancelled before an outcome was known.
func (e *Engine) matchTrack(ctx context.Context, limiter *rate.Limiter, dest services.Service, i int, track models.Track, logger *log.Logger) (models.TrackOutcome, bool) {
	if err := limiter.Wait(ctx); err != nil {
		return models.TrackOutcome{}, false
	}

	res, err := e.matcher.Match(ctx, dest, track)
	switch {
	case err == nil:
		return models.OutcomeFromMatch(i, res), true
	case ctx.Err() != nil:
		return models.TrackOutcome{}, false
	case errors.Is(err, shared.ErrNoMatch):
		o := models.OutcomeFromMatch(i, res)
		o.Error = err.Error()
		return o, true
	default:
		logger.Warn("search failed", "index", i, "title", track.Title, "error", err)
		return models.TrackOutcome{
			Index:  i,
			Source: track,
			Method: models.MatchNone,
			Kind:   models.OutcomeError,
			Error:  shared.Describe(err),
		}, true
	}
}

func (e *Engine) finishWithError(ctx context.Context, id string, err error, logger *log.Logger) {
	cancelled := ctx.Err() != nil || shared.Kind(err) == shared.KindCancelled
	if cancelled {
		err = context.Cause(ctx)
		if err == nil {
			err = context.Canceled
		}
	}

	if _, uerr := e.registry.Update(id, func(j *models.TransferJob) error {
		if cancelled {
			markCancelled(j, err.Error())
			return nil
		}
		closePending(j, shared.Describe(err))
		j.Status = models.StatusFailed
		j.ErrorKind = shared.Kind(err)
		j.ErrorDetail = shared.Describe(err)
		return nil
	}); uerr != nil {
		logger.Error("failed to finalize job", "error", uerr)
		return
	}

	if cancelled {
		logger.Warn("transfer cancelled", "reason", err)
	} else {
		logger.Error("transfer failed", "kind", shared.Kind(err), "error", err)
	}
}

func (e *Engine) cancelPending(id, reason string) {
	if _, err := e.registry.Update(id, func(j *models.TransferJob) error {
		if j.Status == models.StatusPending {
			markCancelled(j, reason)
		}
		return nil
	}); err != nil && !errors.Is(err, shared.ErrJobFinalized) {
		e.logger.Error("failed to cancel queued job", "job_id", id, "error", err)
	}
}

// markCancelled closes every pending outcome as a cancelled error and ends the job.
func markCancelled(j *models.TransferJob, reason string) {
	closePending(j, "cancelled")
	j.Status = models.StatusCancelled
	j.ErrorKind = shared.KindCancelled
	j.ErrorDetail = reason
}

func closePending(j *models.TransferJob, detail string) {
	for i, o := range j.Outcomes {
		if o.Kind != models.OutcomePending {
			continue
		}
		_ = j.Record(models.TrackOutcome{
			Index:  i,
			Source: o.Source,
			Method: models.MatchNone,
			Kind:   models.OutcomeError,
			Error:  detail,
		})
	}
}

func (e *Engine) cache(ctx context.Context, logger *log.Logger, platform string, tracks []models.Track) {
	if e.cacher == nil || len(tracks) == 0 {
		return
	}
	if err := e.cacher.CacheTracks(ctx, platform, tracks); err != nil {
		logger.Warn("failed to cache tracks", "platform", platform, "count", len(tracks), "error", err)
	}
}

// sendProgress sends an update without blocking; updates are dropped when nobody is reading.
func (e *Engine) sendProgress(u ProgressUpdate) {
	if e.progress == nil {
		return
	}
	select {
	case e.progress <- u:
	default:
	}
}
