package tasks

import (
	"fmt"

	"github.com/desertthunder/crossfade/internal/models"
)

// ProgressUpdate represents a progress event during a transfer job.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	JobID   string // Job the update belongs to
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Phase enumerates the stages of a transfer.
type Phase int

const (
	Authenticate Phase = iota
	FetchSource
	SearchTracks
	CreatePlaylist
	Complete
)

func (p Phase) String() string {
	switch p {
	case Authenticate:
		return "authenticate"
	case FetchSource:
		return "fetch_source"
	case SearchTracks:
		return "search_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func authenticateUpdate(id, platform string) ProgressUpdate {
	return ProgressUpdate{
		JobID:   id,
		Phase:   Authenticate,
		Message: fmt.Sprintf("Authenticating with %s...", platform),
	}
}

func fetchSourceUpdate(id string, pl *models.Playlist, total int) ProgressUpdate {
	return ProgressUpdate{
		JobID:   id,
		Phase:   FetchSource,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Fetched %d tracks from %s", total, pl.Name),
		Data:    pl,
	}
}

func searchTrackUpdate(id string, step, total int, o models.TrackOutcome) ProgressUpdate {
	var msg string
	switch o.Kind {
	case models.OutcomeMatched:
		msg = fmt.Sprintf("Matched: %s - %s", o.Source.Title, o.Source.Artist)
	case models.OutcomeUnmatched:
		msg = fmt.Sprintf("Not found: %s - %s", o.Source.Title, o.Source.Artist)
	default:
		msg = fmt.Sprintf("Failed: %s - %s (%s)", o.Source.Title, o.Source.Artist, o.Error)
	}
	return ProgressUpdate{
		JobID:   id,
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    o,
	}
}

func createPlaylistUpdate(id, name string, tracks int) ProgressUpdate {
	return ProgressUpdate{
		JobID:   id,
		Phase:   CreatePlaylist,
		Step:    tracks,
		Total:   tracks,
		Message: fmt.Sprintf("Creating playlist %s with %d tracks...", name, tracks),
	}
}

func completeUpdate(job models.TransferJob) ProgressUpdate {
	return ProgressUpdate{
		JobID:   job.ID,
		Phase:   Complete,
		Step:    job.Processed(),
		Total:   job.Total,
		Message: fmt.Sprintf("Transfer %s: %d/%d matched", job.Status, job.Matched, job.Total),
		Data:    job.Report(),
	}
}
