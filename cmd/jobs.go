package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crossfade/internal/formatter"
	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/repositories"
	"github.com/desertthunder/crossfade/internal/ui"
)

// Status shows one job, from a running server when --server is set and from the local archive otherwise.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("job")
	server := cmd.String("server")
	reportFormat := cmd.String("report")

	var job models.TransferJob
	switch {
	case server != "" && cmd.Bool("watch"):
		watched, err := ui.Watch(ctx, ui.Options{
			Source:   ui.RemoteSource{API: r.api(server)},
			JobID:    id,
			Interval: time.Second,
		})
		if err != nil {
			return err
		}
		job = watched
	case server != "":
		if reportFormat == "" && !cmd.Bool("json") {
			report, err := r.api(server).Status(ctx, id)
			if err != nil {
				return err
			}
			return r.printStatus(*report)
		}
		remote, err := r.api(server).Job(ctx, id)
		if err != nil {
			return err
		}
		job = *remote
	case cmd.Bool("watch"):
		return fmt.Errorf("--watch needs --server: archived jobs are already finished")
	default:
		err := r.withArchive(func(repo *repositories.JobRepository) error {
			archived, err := repo.Get(ctx, id)
			job = archived
			return err
		})
		if err != nil {
			return err
		}
	}

	if reportFormat != "" {
		format, err := formatter.ParseFormat(reportFormat)
		if err != nil {
			return err
		}
		return r.writeReport(job, format, "")
	}
	if cmd.Bool("json") {
		return r.writeJSON(job, true)
	}
	return r.printStatus(job.Report())
}

// Jobs lists jobs held by a running server, or archived jobs when no server is given.
func (r *Runner) Jobs(ctx context.Context, cmd *cli.Command) error {
	var reports []models.StatusReport

	if server := cmd.String("server"); server != "" {
		remote, err := r.api(server).Jobs(ctx)
		if err != nil {
			return err
		}
		reports = remote
	} else {
		filter := repositories.JobFilter{
			Status:   models.JobStatus(cmd.String("status")),
			Platform: cmd.String("platform"),
			Limit:    int(cmd.Int("limit")),
		}
		if filter.Status != "" && !filter.Status.Valid() {
			return fmt.Errorf("unknown status %q", filter.Status)
		}

		err := r.withArchive(func(repo *repositories.JobRepository) error {
			jobs, err := repo.List(ctx, filter)
			if err != nil {
				return err
			}
			reports = make([]models.StatusReport, len(jobs))
			for i := range jobs {
				reports[i] = jobs[i].Report()
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(reports, true)
	}

	if len(reports) == 0 {
		return r.writePlain("No jobs found\n")
	}

	r.writePlainHeader(fmt.Sprintf("Jobs (%d)", len(reports)))
	for _, rep := range reports {
		r.writePlain("%s  %-19s  %s → %s  %d/%d matched  %s\n",
			rep.JobID, rep.Status, rep.SourcePlatform, rep.DestPlatform,
			rep.Matched, rep.Total, rep.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}

// JobsCancel asks a running server to cancel a job.
func (r *Runner) JobsCancel(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("job")
	if err := r.api(cmd.String("server")).Cancel(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Cancellation requested for %s\n", id)
}

// JobsDelete removes a job from the local archive.
func (r *Runner) JobsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.String("job")
	err := r.withArchive(func(repo *repositories.JobRepository) error {
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s from the archive\n", id)
}

func (r *Runner) withArchive(fn func(*repositories.JobRepository) error) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(repositories.NewJobRepository(db))
}

func (r *Runner) printStatus(rep models.StatusReport) error {
	r.writePlainHeader("Job " + rep.JobID)
	r.writePlain("Status:      %s\n", rep.Status)
	r.writePlain("Route:       %s → %s\n", rep.SourcePlatform, rep.DestPlatform)
	r.writePlain("Progress:    %d/%d (%.0f%%)\n", rep.Processed, rep.Total, rep.Percent()*100)
	r.writePlain("Matched:     %d\n", rep.Matched)
	r.writePlain("Unmatched:   %d\n", rep.Unmatched)
	r.writePlain("Errors:      %d\n", rep.Errors)
	if rep.DestPlaylistID != "" {
		r.writePlain("Playlist:    %s\n", rep.DestPlaylistID)
	}
	if rep.ErrorKind != "" {
		r.writePlain("Failure:     %s: %s\n", rep.ErrorKind, rep.ErrorDetail)
	}
	r.writePlain("Created:     %s\n", rep.CreatedAt.Local().Format(time.DateTime))
	if rep.CompletedAt != nil {
		r.writePlain("Completed:   %s\n", rep.CompletedAt.Local().Format(time.DateTime))
	}
	return nil
}
