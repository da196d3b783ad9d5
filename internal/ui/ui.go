package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/shared"
	"github.com/desertthunder/crossfade/internal/tasks"
)

var _ Painter = (*Palette)(nil)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	WatchView ViewState = iota
	ResultView
)

const defaultPollInterval = 250 * time.Millisecond

// Options configures a watcher [Model].
type Options struct {
	Source   Source
	JobID    string
	Interval time.Duration

	// Updates, when set, supplies phase messages between polls.
	Updates <-chan tasks.ProgressUpdate
}

// Model represents the watcher state.
type Model struct {
	ctx        context.Context
	view       ViewState
	source     Source
	jobID      string
	interval   time.Duration
	updates    <-chan tasks.ProgressUpdate
	job        models.TransferJob
	polled     bool
	phase      tasks.ProgressUpdate
	bar        progress.Model
	outcomes   list.Model
	width      int
	height     int
	cancelling bool
	err        error
	help       help.Model
	keys       keyMap
}

// NewModel creates a watcher for one job.
func NewModel(ctx context.Context, opts Options) *Model {
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Model{
		ctx:      ctx,
		view:     WatchView,
		source:   opts.Source,
		jobID:    opts.JobID,
		interval: interval,
		updates:  opts.Updates,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Job returns the last snapshot seen.
func (m *Model) Job() models.TransferJob {
	return m.job
}

// Err returns the error that stopped the watcher, if any.
func (m *Model) Err() error {
	return m.err
}

// Init polls the job immediately and starts listening for progress updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.poll(), m.waitForProgress())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(msg.Width-4, 80))
		m.help.Width = msg.Width
		if m.view == ResultView {
			m.outcomes.SetSize(msg.Width-4, msg.Height-12)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgTick:
		return m, m.poll()

	case MsgJobPolled:
		res := msg.data.(jobPolled)
		if res.err != nil {
			m.err = res.err
			if errors.Is(res.err, shared.ErrJobNotFound) {
				return m, tea.Quit
			}
			return m, m.tick()
		}
		m.err = nil
		m.job = res.job
		m.polled = true
		if m.job.Status.IsTerminal() {
			m.showResult()
			return m, nil
		}
		return m, m.tick()

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		if update.JobID == m.jobID {
			m.phase = update
		}
		return m, m.waitForProgress()

	case MsgProgressClosed:
		m.updates = nil
		return m, nil

	case MsgCancelRequested:
		if err, _ := msg.data.(error); err != nil && !errors.Is(err, shared.ErrJobFinalized) {
			m.err = err
			m.cancelling = false
		}
		return m, m.poll()
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.cancel) && m.view == WatchView && !m.cancelling:
		m.cancelling = true
		return m, m.cancel()
	}
	return m.updateList(msg)
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != ResultView {
		return m, nil
	}
	var cmd tea.Cmd
	m.outcomes, cmd = m.outcomes.Update(msg)
	return m, cmd
}

func (m *Model) showResult() {
	m.view = ResultView
	m.cancelling = false

	width, height := m.width-4, m.height-12
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 20
	}
	m.outcomes = list.New(outcomeItems(m.job.Outcomes), list.NewDefaultDelegate(), width, height)
	m.outcomes.Title = "Tracks"
	m.outcomes.SetShowHelp(false)
}

func (m *Model) poll() tea.Cmd {
	return func() tea.Msg {
		job, err := m.source.Job(m.ctx, m.jobID)
		return jobPolledMsg(job, err)
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) cancel() tea.Cmd {
	return func() tea.Msg {
		return cancelRequestedMsg(m.source.Cancel(m.ctx, m.jobID))
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return progressClosedMsg()
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ResultView:
		return m.renderResult()
	default:
		return m.renderWatch()
	}
}

func (m *Model) renderHeader() string {
	name := m.job.SourcePlaylistName
	if name == "" {
		name = m.job.SourcePlaylistID
	}
	if name == "" {
		name = m.jobID
	}
	return styles.title.Render(fmt.Sprintf("Transferring %s", name))
}

func (m *Model) renderWatch() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if !m.polled {
		b.WriteString("Waiting for job...\n")
	} else {
		report := m.job.Report()
		fmt.Fprintf(&b, "%s → %s  %s\n\n", m.job.SourcePlatform, m.job.DestPlatform, styles.status(report.Status).Render(string(report.Status)))
		b.WriteString(m.bar.ViewAs(report.Percent()))
		fmt.Fprintf(&b, "\n\n%d/%d processed  •  %s matched  •  %s unmatched  •  %s errors\n",
			report.Processed, report.Total,
			styles.ok.Render(fmt.Sprint(report.Matched)),
			styles.warn.Render(fmt.Sprint(report.Unmatched)),
			styles.err.Render(fmt.Sprint(report.Errors)))
	}

	if m.phase.Message != "" {
		b.WriteString(styles.help.Render(m.phase.Message))
		b.WriteString("\n")
	}
	if m.cancelling {
		b.WriteString(styles.warn.Render("Cancelling..."))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderResult() string {
	var b strings.Builder
	report := m.job.Report()

	b.WriteString(styles.status(report.Status).Render(resultTitle(report.Status)))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Route: %s → %s\n", m.job.SourcePlatform, m.job.DestPlatform)
	if m.job.DestPlaylistID != "" {
		fmt.Fprintf(&b, "Destination playlist: %s\n", m.job.DestPlaylistID)
	}
	fmt.Fprintf(&b, "Matched %d of %d tracks", report.Matched, report.Total)
	if report.Total > 0 {
		fmt.Fprintf(&b, " (%.1f%%)", float64(report.Matched)/float64(report.Total)*100)
	}
	b.WriteString("\n")
	if report.ErrorDetail != "" {
		b.WriteString(styles.err.Render(report.ErrorDetail))
		b.WriteString("\n")
	}

	if len(m.outcomes.Items()) > 0 {
		b.WriteString("\n")
		b.WriteString(m.outcomes.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.up, m.keys.down, m.keys.quit}))
	return b.String()
}

func resultTitle(s models.JobStatus) string {
	switch s {
	case models.StatusSucceeded:
		return "✓ Transfer complete"
	case models.StatusPartiallySucceeded:
		return "✓ Transfer complete with missing tracks"
	case models.StatusCancelled:
		return "Transfer cancelled"
	default:
		return "✗ Transfer failed"
	}
}

// Watch runs the watcher full screen until the job finishes and the user quits.
//
// The returned job is the last snapshot seen.
func Watch(ctx context.Context, opts Options, teaOpts ...tea.ProgramOption) (models.TransferJob, error) {
	m := NewModel(ctx, opts)
	teaOpts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, teaOpts...)

	final, err := tea.NewProgram(m, teaOpts...).Run()
	if err != nil {
		return m.Job(), fmt.Errorf("watcher failed: %w", err)
	}
	if fm, ok := final.(*Model); ok {
		m = fm
	}
	return m.Job(), m.Err()
}
