package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTick MsgKind = iota
	MsgJobPolled
	MsgProgressUpdate
	MsgProgressClosed
	MsgCancelRequested
)

type jobPolled struct {
	job models.TransferJob
	err error
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(t time.Time) Msg {
	return Msg{kind: MsgTick, data: t}
}

// jobPolledMsg is the constructor for [MsgJobPolled]
func jobPolledMsg(job models.TransferJob, err error) Msg {
	return Msg{kind: MsgJobPolled, data: jobPolled{job, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// progressClosedMsg is the constructor for [MsgProgressClosed]
func progressClosedMsg() Msg {
	return Msg{kind: MsgProgressClosed}
}

// cancelRequestedMsg is the constructor for [MsgCancelRequested]
func cancelRequestedMsg(err error) Msg {
	return Msg{kind: MsgCancelRequested, data: err}
}
