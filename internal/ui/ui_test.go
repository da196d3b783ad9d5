package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/shared"
	"github.com/desertthunder/crossfade/internal/tasks"
)

type fakeSource struct {
	mu        sync.Mutex
	snapshots []models.TransferJob
	polls     int
	err       error
	cancelErr error
	cancelled []string
}

func (s *fakeSource) Job(ctx context.Context, id string) (models.TransferJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.TransferJob{}, s.err
	}
	job := s.snapshots[min(s.polls, len(s.snapshots)-1)]
	s.polls++
	return job, nil
}

func (s *fakeSource) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, id)
	return s.cancelErr
}

func runningJob() models.TransferJob {
	return models.TransferJob{
		ID:                 "job-1",
		SourcePlatform:     "spotify",
		DestPlatform:       "youtube",
		SourcePlaylistName: "Road Trip",
		Status:             models.StatusRunning,
		Total:              4,
		Matched:            1,
		Unmatched:          1,
		Outcomes: []models.TrackOutcome{
			{Index: 0, Kind: models.OutcomeMatched, Source: models.Track{Title: "A", Artist: "X"}, Matched: &models.Track{Title: "A", Artist: "X"}, Confidence: 1, Method: models.MatchISRC},
			{Index: 1, Kind: models.OutcomeUnmatched, Source: models.Track{Title: "B", Artist: "Y"}},
			{Index: 2, Kind: models.OutcomePending},
			{Index: 3, Kind: models.OutcomePending},
		},
	}
}

func finishedJob() models.TransferJob {
	job := runningJob()
	job.Status = models.StatusPartiallySucceeded
	job.DestPlaylistID = "yt-1"
	job.Matched = 3
	job.Outcomes[2] = models.TrackOutcome{Index: 2, Kind: models.OutcomeMatched, Source: models.Track{Title: "C", Artist: "Z"}, Matched: &models.Track{Title: "C", Artist: "Z"}, Confidence: 0.9, Method: models.MatchFuzzy}
	job.Outcomes[3] = models.TrackOutcome{Index: 3, Kind: models.OutcomeMatched, Source: models.Track{Title: "D", Artist: "Z"}, Matched: &models.Track{Title: "D", Artist: "Z"}, Confidence: 0.8, Method: models.MatchExact}
	return job
}

// deliver runs cmd synchronously and feeds its message back into the model.
func deliver(t *testing.T, m *Model, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	_, next := m.Update(cmd())
	return next
}

func TestModel(t *testing.T) {
	t.Run("Polls Until Terminal", func(t *testing.T) {
		src := &fakeSource{snapshots: []models.TransferJob{runningJob(), finishedJob()}}
		m := NewModel(context.Background(), Options{Source: src, JobID: "job-1", Interval: time.Millisecond})

		next := deliver(t, m, m.poll())
		if m.view != WatchView {
			t.Fatalf("expected watch view while running, got %v", m.view)
		}
		if next == nil {
			t.Fatal("expected a tick to be scheduled")
		}

		view := m.View()
		for _, want := range []string{"Transferring Road Trip", "spotify → youtube", "2/4 processed"} {
			if !strings.Contains(view, want) {
				t.Errorf("watch view missing %q:\n%s", want, view)
			}
		}

		next = deliver(t, m, m.poll())
		if m.view != ResultView {
			t.Fatalf("expected result view once terminal, got %v", m.view)
		}
		if next != nil {
			t.Error("expected polling to stop once terminal")
		}
		if got := m.Job().Status; got != models.StatusPartiallySucceeded {
			t.Errorf("expected last snapshot to be kept, got %s", got)
		}

		view = m.View()
		for _, want := range []string{"Transfer complete with missing tracks", "Destination playlist: yt-1", "Matched 3 of 4 tracks (75.0%)"} {
			if !strings.Contains(view, want) {
				t.Errorf("result view missing %q:\n%s", want, view)
			}
		}
	})

	t.Run("Tick Triggers Poll", func(t *testing.T) {
		src := &fakeSource{snapshots: []models.TransferJob{runningJob()}}
		m := NewModel(context.Background(), Options{Source: src, JobID: "job-1"})

		_, cmd := m.Update(tickMsg(time.Now()))
		deliver(t, m, cmd)
		if src.polls != 1 {
			t.Errorf("expected 1 poll, got %d", src.polls)
		}
	})

	t.Run("Unknown Job Quits", func(t *testing.T) {
		src := &fakeSource{err: shared.ErrJobNotFound}
		m := NewModel(context.Background(), Options{Source: src, JobID: "nope"})

		next := deliver(t, m, m.poll())
		if !errors.Is(m.Err(), shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", m.Err())
		}
		if _, ok := next().(tea.QuitMsg); !ok {
			t.Error("expected the watcher to quit")
		}
	})

	t.Run("Transient Errors Keep Polling", func(t *testing.T) {
		src := &fakeSource{err: shared.ErrServiceUnavailable}
		m := NewModel(context.Background(), Options{Source: src, JobID: "job-1", Interval: time.Millisecond})

		next := deliver(t, m, m.poll())
		if next == nil {
			t.Fatal("expected another poll to be scheduled")
		}
		if !strings.Contains(m.View(), "service unavailable") {
			t.Errorf("expected error in view:\n%s", m.View())
		}
	})

	t.Run("Cancel Key", func(t *testing.T) {
		src := &fakeSource{snapshots: []models.TransferJob{runningJob()}}
		m := NewModel(context.Background(), Options{Source: src, JobID: "job-1"})
		deliver(t, m, m.poll())

		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
		if !m.cancelling {
			t.Fatal("expected cancelling state")
		}
		if !strings.Contains(m.View(), "Cancelling...") {
			t.Errorf("expected cancelling notice:\n%s", m.View())
		}

		deliver(t, m, cmd)
		if len(src.cancelled) != 1 || src.cancelled[0] != "job-1" {
			t.Errorf("expected one cancel of job-1, got %v", src.cancelled)
		}

		if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")}); cmd != nil {
			t.Error("expected repeated cancel to be ignored")
		}
	})

	t.Run("Cancel Of Finished Job Is Not An Error", func(t *testing.T) {
		src := &fakeSource{snapshots: []models.TransferJob{runningJob()}, cancelErr: shared.ErrJobFinalized}
		m := NewModel(context.Background(), Options{Source: src, JobID: "job-1"})

		m.Update(cancelRequestedMsg(shared.ErrJobFinalized))
		if m.Err() != nil {
			t.Errorf("expected no error, got %v", m.Err())
		}
	})

	t.Run("Progress Updates For This Job", func(t *testing.T) {
		updates := make(chan tasks.ProgressUpdate, 2)
		updates <- tasks.ProgressUpdate{JobID: "other", Message: "elsewhere"}
		updates <- tasks.ProgressUpdate{JobID: "job-1", Phase: tasks.SearchTracks, Message: "Matched: A - X"}
		close(updates)

		src := &fakeSource{snapshots: []models.TransferJob{runningJob()}}
		m := NewModel(context.Background(), Options{Source: src, JobID: "job-1", Updates: updates})

		next := deliver(t, m, m.waitForProgress())
		if m.phase.Message != "" {
			t.Errorf("expected update for another job to be ignored, got %q", m.phase.Message)
		}
		next = deliver(t, m, next)
		if m.phase.Message != "Matched: A - X" {
			t.Errorf("expected phase message, got %q", m.phase.Message)
		}
		deliver(t, m, next)
		if m.updates != nil {
			t.Error("expected updates channel to be dropped once closed")
		}
		if m.waitForProgress() != nil {
			t.Error("expected no progress command without a channel")
		}
	})

	t.Run("Quit Key", func(t *testing.T) {
		m := NewModel(context.Background(), Options{Source: &fakeSource{}, JobID: "job-1"})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected quit")
		}
	})

	t.Run("Window Resize", func(t *testing.T) {
		m := NewModel(context.Background(), Options{Source: &fakeSource{}, JobID: "job-1"})
		m.Update(tea.WindowSizeMsg{Width: 200, Height: 50})
		if m.bar.Width != 80 {
			t.Errorf("expected bar width capped at 80, got %d", m.bar.Width)
		}
	})
}

func TestOutcomeItems(t *testing.T) {
	items := outcomeItems(finishedJob().Outcomes)
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}

	first := items[0].(outcomeItem)
	if first.outcome.Kind != models.OutcomeUnmatched {
		t.Errorf("expected unmatched tracks first, got %s", first.outcome.Kind)
	}
	if first.Title() != "2. Y - B" || first.Description() != "not found on destination" {
		t.Errorf("unexpected item: %q / %q", first.Title(), first.Description())
	}

	matched := items[1].(outcomeItem)
	if !strings.Contains(matched.Description(), "isrc, 100%") {
		t.Errorf("unexpected matched description: %q", matched.Description())
	}

	errItem := outcomeItem{outcome: models.TrackOutcome{Kind: models.OutcomeError, Error: "api: boom"}}
	if errItem.Description() != "error • api: boom" {
		t.Errorf("unexpected error description: %q", errItem.Description())
	}
}
