// Package models defines the domain entities shared by the crossfade playlist transfer service.
//
// The package contains two categories of types:
//
// 1. Platform DTOs: Lightweight structs describing data fetched from music services
//   - [Playlist] : Basic playlist metadata
//   - [Track] : Song metadata used for cross-platform matching
//   - [MatchResult] : Outcome of resolving one source track on a destination platform
//
// 2. Job state: Records describing asynchronous transfers
//   - [TransferJob] : One playlist transfer, its per-track outcomes and counters
//   - [TrackOutcome] : Per-track result recorded by a running job
//   - [JobStatus] : Monotonic job state machine
//   - [StatusReport] : Poll response derived from a [TransferJob] snapshot
//
// Jobs are owned by the in-memory registry (internal/tasks) and optionally archived by
// internal/repositories once terminal.
package models
