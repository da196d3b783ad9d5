// Package ui implements a terminal job watcher using bubbletea's Elm architecture.
//
// The watcher has two views:
//  1. [WatchView] : progress bar, running counters, and the latest phase message
//  2. [ResultView] : final status and a scrollable list of per-track outcomes
//
// The [Model] polls a [Source] on a tea.Tick interval. [EngineSource] reads an in-process engine and
// [RemoteSource] reads a server through its JSON API. Progress updates, when a channel is supplied,
// only refine the phase message; the polled snapshot stays authoritative.
//
// Keyboard: c cancels the job, ? toggles help, j/k scroll the outcome list, q quits.
package ui
