package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crossfade/internal/formatter"
	"github.com/desertthunder/crossfade/internal/matching"
	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/services"
	"github.com/desertthunder/crossfade/internal/shared"
	"github.com/desertthunder/crossfade/internal/tasks"
	"github.com/desertthunder/crossfade/internal/ui"
)

const (
	pollInterval       = 100 * time.Millisecond
	remotePollInterval = 250 * time.Millisecond
	shutdownTimeout    = 10 * time.Second
)

func matchingFromConfig(cfg *shared.Config, logger *log.Logger) (*matching.Matcher, error) {
	return matching.New(matching.ConfigFromShared(cfg.Matching), logger)
}

// Transfer runs one transfer and prints its report, in-process or on the server given by --server.
//
// Ctrl-C cancels the job; the report still lists every track resolved before that.
func (r *Runner) Transfer(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("report"))
	if err != nil {
		return err
	}
	sourceCreds, err := parseCredentials(cmd.StringSlice("source-cred"))
	if err != nil {
		return err
	}
	destCreds, err := parseCredentials(cmd.StringSlice("dest-cred"))
	if err != nil {
		return err
	}

	req := tasks.TransferRequest{
		SourcePlatform:    cmd.String("source"),
		DestPlatform:      cmd.String("dest"),
		PlaylistID:        cmd.String("playlist"),
		SourceCredentials: sourceCreds,
		DestCredentials:   destCreds,
		DestName:          cmd.String("name"),
	}
	if err := req.Validate(); err != nil {
		return err
	}

	useTUI := cmd.Bool("tui")
	if useTUI {
		// The TUI owns the terminal, so logs go to a file.
		fileLogger, err := shared.NewFileLogger(filepath.Join(os.TempDir(), "crossfade", "tui.log"))
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		r.SetLogger(fileLogger)
	}

	var job models.TransferJob
	if server := cmd.String("server"); server != "" {
		job, err = r.transferRemote(ctx, r.api(server), req, useTUI)
	} else {
		job, err = r.transferLocal(ctx, req, useTUI)
	}
	if err != nil {
		return err
	}

	if err := r.writeReport(job, format, cmd.String("output")); err != nil {
		return err
	}
	return jobError(job)
}

// transferLocal runs the job on an engine owned by this process.
func (r *Runner) transferLocal(ctx context.Context, req tasks.TransferRequest, useTUI bool) (job models.TransferJob, err error) {
	progress := make(chan tasks.ProgressUpdate, 64)
	engine, stop, err := r.newEngine(ctx, progress)
	if err != nil {
		return job, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := stop(shutdownCtx); err != nil {
			r.logger.Warn("engine shutdown", "error", err)
		}
	}()

	id, err := engine.Submit(ctx, req)
	if err != nil {
		return job, err
	}
	if useTUI {
		return r.watch(ctx, engine, id, progress)
	}
	return r.follow(ctx, engine, id, progress)
}

// transferRemote submits the job to a running server and follows it over the API.
func (r *Runner) transferRemote(ctx context.Context, api *services.APIService, req tasks.TransferRequest, useTUI bool) (models.TransferJob, error) {
	id, err := api.Submit(ctx, req)
	if err != nil {
		return models.TransferJob{}, err
	}
	r.logger.Debug("submitted remote transfer", "job_id", id)

	if useTUI {
		job, err := ui.Watch(ctx, ui.Options{
			Source:   ui.RemoteSource{API: api},
			JobID:    id,
			Interval: remotePollInterval,
		})
		if err != nil {
			r.logger.Warn("watcher stopped", "error", err)
		}
		if job.Status.IsTerminal() {
			return job, nil
		}
		if err := api.Cancel(ctx, id); err != nil && !errors.Is(err, shared.ErrJobFinalized) {
			return job, err
		}
	} else {
		r.writePlain("Starting transfer %s...\n", id)
	}
	return r.pollRemote(ctx, api, id)
}

// pollRemote polls the server until the job is terminal and returns the full job.
// If ctx ends first the job is cancelled on the server and its final state is awaited.
func (r *Runner) pollRemote(ctx context.Context, api *services.APIService, id string) (models.TransferJob, error) {
	ticker := time.NewTicker(remotePollInterval)
	defer ticker.Stop()

	pollCtx := ctx
	last := -1
	for {
		report, err := api.Status(pollCtx, id)
		switch {
		case err == nil && report.Status.IsTerminal():
			job, err := api.Job(pollCtx, id)
			if err != nil {
				return models.TransferJob{}, err
			}
			return *job, nil
		case err == nil:
			if report.Processed != last && report.Total > 0 {
				last = report.Processed
				r.writePlain("   [%d/%d] %d matched\n", report.Processed, report.Total, report.Matched)
			}
		case pollCtx.Err() == nil:
			return models.TransferJob{}, err
		}

		select {
		case <-pollCtx.Done():
			if pollCtx != ctx {
				return models.TransferJob{}, fmt.Errorf("waiting for cancelled job %s: %w", id, pollCtx.Err())
			}
			r.writePlain("\nCancelling transfer %s...\n", id)
			cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer cancel()
			if err := api.Cancel(cancelCtx, id); err != nil && !errors.Is(err, shared.ErrJobFinalized) {
				return models.TransferJob{}, err
			}
			pollCtx = cancelCtx
		case <-ticker.C:
		}
	}
}

// follow prints progress lines until the job finishes.
func (r *Runner) follow(ctx context.Context, engine *tasks.Engine, id string, progress <-chan tasks.ProgressUpdate) (models.TransferJob, error) {
	r.writePlain("Starting transfer %s...\n", id)

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case u := <-progress:
				if u.JobID == id {
					r.printProgress(u)
				}
			case <-quit:
				return
			}
		}
	}()
	defer func() {
		close(quit)
		<-done
	}()

	return r.await(ctx, engine, id)
}

// watch runs the TUI until the user quits, cancelling the job if it is still running.
func (r *Runner) watch(ctx context.Context, engine *tasks.Engine, id string, progress <-chan tasks.ProgressUpdate) (models.TransferJob, error) {
	job, err := ui.Watch(ctx, ui.Options{
		Source:   ui.EngineSource{Engine: engine},
		JobID:    id,
		Interval: pollInterval,
		Updates:  progress,
	})
	if err != nil {
		r.logger.Warn("watcher stopped", "error", err)
	}
	if job.Status.IsTerminal() {
		return job, nil
	}
	if err := engine.Cancel(id); err != nil && !errors.Is(err, shared.ErrJobFinalized) {
		return job, err
	}
	return r.await(ctx, engine, id)
}

// await waits for the job to finish. If ctx ends first the job is cancelled and
// its final state is awaited.
func (r *Runner) await(ctx context.Context, engine *tasks.Engine, id string) (models.TransferJob, error) {
	job, err := engine.Wait(ctx, id, pollInterval)
	if err == nil {
		return job, nil
	}
	if ctx.Err() == nil {
		return job, err
	}

	r.writePlain("\nCancelling transfer %s...\n", id)
	if err := engine.Cancel(id); err != nil && !errors.Is(err, shared.ErrJobFinalized) {
		return job, err
	}

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return engine.Wait(waitCtx, id, pollInterval)
}

func (r *Runner) printProgress(u tasks.ProgressUpdate) {
	switch u.Phase {
	case tasks.Authenticate:
		r.writePlain("🔑 %s\n", u.Message)
	case tasks.FetchSource:
		r.writePlain("📥 %s\n", u.Message)
	case tasks.SearchTracks:
		r.writePlain("   [%d/%d] %s\n", u.Step, u.Total, u.Message)
	case tasks.CreatePlaylist:
		r.writePlain("\n📝 %s\n", u.Message)
	case tasks.Complete:
		r.writePlain("\n%s\n", u.Message)
	}
}

// writeReport prints the report, or writes it to path when one is given.
func (r *Runner) writeReport(job models.TransferJob, format formatter.Format, path string) error {
	if path != "" {
		written, err := formatter.WriteReport(job, format, path)
		if err != nil {
			return err
		}
		return r.writePlain("Report written to %s\n", written)
	}

	data, err := formatter.Render(job, format)
	if err != nil {
		return err
	}
	r.writePlain("\n")
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// jobError turns a failed or cancelled job into the command's error. Partial success is not an error.
func jobError(job models.TransferJob) error {
	switch job.Status {
	case models.StatusFailed:
		return fmt.Errorf("transfer %s failed: %s", job.ID, job.ErrorDetail)
	case models.StatusCancelled:
		return fmt.Errorf("%w: transfer %s", shared.ErrJobCancelled, job.ID)
	}
	return nil
}
