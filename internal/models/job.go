package models

import (
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a [TransferJob].
type JobStatus string

const (
	StatusPending            JobStatus = "pending"
	StatusRunning            JobStatus = "running"
	StatusSucceeded          JobStatus = "succeeded"
	StatusPartiallySucceeded JobStatus = "partially_succeeded"
	StatusFailed             JobStatus = "failed"
	StatusCancelled          JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusPartiallySucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is allowed.
//
// Staying in the same non-terminal state is allowed so running jobs can record progress.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusPending || next == StatusRunning || next == StatusFailed || next == StatusCancelled
	case StatusRunning:
		return next == StatusRunning || next.IsTerminal()
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusSucceeded, StatusPartiallySucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// OutcomeKind classifies a [TrackOutcome].
type OutcomeKind string

const (
	OutcomePending   OutcomeKind = "pending"
	OutcomeMatched   OutcomeKind = "matched"
	OutcomeUnmatched OutcomeKind = "unmatched"
	OutcomeError     OutcomeKind = "error"
)

// TrackOutcome records what happened to one source track.
type TrackOutcome struct {
	Index      int         `json:"index"`
	Source     Track       `json:"source"`
	Matched    *Track      `json:"matched,omitempty"`
	Confidence float64     `json:"confidence"`
	Method     MatchMethod `json:"method"`
	Kind       OutcomeKind `json:"kind"`
	Error      string      `json:"error,omitempty"`
}

// OutcomeFromMatch converts a [MatchResult] into a recorded outcome.
func OutcomeFromMatch(index int, res MatchResult) TrackOutcome {
	out := TrackOutcome{
		Index:      index,
		Source:     res.Source,
		Confidence: res.Confidence,
		Method:     res.Method,
		Kind:       OutcomeUnmatched,
	}
	if res.Matched != nil {
		m := *res.Matched
		out.Matched = &m
		out.Kind = OutcomeMatched
	}
	return out
}

// TransferJob is one asynchronous playlist transfer.
//
// Credentials are never stored on the job.
type TransferJob struct {
	ID                 string         `json:"id"`
	SourcePlatform     string         `json:"source_platform"`
	DestPlatform       string         `json:"destination_platform"`
	SourcePlaylistID   string         `json:"source_playlist_id"`
	SourcePlaylistName string         `json:"source_playlist_name,omitempty"`
	DestPlaylistName   string         `json:"destination_playlist_name,omitempty"`
	DestPlaylistID     string         `json:"destination_playlist_id,omitempty"`
	Status             JobStatus      `json:"status"`
	Outcomes           []TrackOutcome `json:"outcomes"`
	Total              int            `json:"total"`
	Matched            int            `json:"matched"`
	Unmatched          int            `json:"unmatched"`
	Errors             int            `json:"errors"`
	CreatedAt          time.Time      `json:"created_at"`
	StartedAt          *time.Time     `json:"started_at,omitempty"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	ErrorKind          string         `json:"error_kind,omitempty"`
	ErrorDetail        string         `json:"error_detail,omitempty"`
}

// Processed returns the number of tracks with a recorded outcome.
func (j *TransferJob) Processed() int {
	return j.Matched + j.Unmatched + j.Errors
}

// Clone returns a deep copy so callers never share the outcome slice with the registry.
func (j *TransferJob) Clone() TransferJob {
	c := *j
	if j.Outcomes != nil {
		c.Outcomes = make([]TrackOutcome, len(j.Outcomes))
		for i, o := range j.Outcomes {
			if o.Matched != nil {
				m := *o.Matched
				o.Matched = &m
			}
			c.Outcomes[i] = o
		}
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

// Record stores outcome o at its index and bumps the matching counter.
//
// Recording over an outcome that is no longer pending is an error so counters never double count.
func (j *TransferJob) Record(o TrackOutcome) error {
	if o.Index < 0 || o.Index >= len(j.Outcomes) {
		return fmt.Errorf("outcome index %d out of range (%d tracks)", o.Index, len(j.Outcomes))
	}
	if j.Outcomes[o.Index].Kind != OutcomePending {
		return fmt.Errorf("outcome %d already recorded as %s", o.Index, j.Outcomes[o.Index].Kind)
	}

	switch o.Kind {
	case OutcomeMatched:
		j.Matched++
	case OutcomeUnmatched:
		j.Unmatched++
	case OutcomeError:
		j.Errors++
	default:
		return fmt.Errorf("cannot record outcome of kind %q", o.Kind)
	}
	j.Outcomes[o.Index] = o
	return nil
}

// Report derives the poll response for this job.
func (j *TransferJob) Report() StatusReport {
	return StatusReport{
		JobID:          j.ID,
		Status:         j.Status,
		Processed:      j.Processed(),
		Total:          j.Total,
		Matched:        j.Matched,
		Unmatched:      j.Unmatched,
		Errors:         j.Errors,
		ErrorKind:      j.ErrorKind,
		ErrorDetail:    j.ErrorDetail,
		SourcePlatform: j.SourcePlatform,
		DestPlatform:   j.DestPlatform,
		DestPlaylistID: j.DestPlaylistID,
		CreatedAt:      j.CreatedAt,
		CompletedAt:    j.CompletedAt,
	}
}

// StatusReport is the poll response for a job.
type StatusReport struct {
	JobID          string     `json:"job_id"`
	Status         JobStatus  `json:"status"`
	Processed      int        `json:"processed"`
	Total          int        `json:"total"`
	Matched        int        `json:"matched"`
	Unmatched      int        `json:"unmatched"`
	Errors         int        `json:"errors"`
	ErrorKind      string     `json:"error_kind,omitempty"`
	ErrorDetail    string     `json:"error_detail,omitempty"`
	SourcePlatform string     `json:"source_platform"`
	DestPlatform   string     `json:"destination_platform"`
	DestPlaylistID string     `json:"destination_playlist_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Percent returns processed/total as a value in [0,1].
func (r StatusReport) Percent() float64 {
	if r.Total == 0 {
		if r.Status.IsTerminal() {
			return 1
		}
		return 0
	}
	return float64(r.Processed) / float64(r.Total)
}
