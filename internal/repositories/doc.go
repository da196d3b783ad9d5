// Package repositories implements SQLite persistence for finished transfer jobs and cached tracks.
//
// Key Implementations:
//   - [JobRepository] : Archive of terminal jobs, used as the registry's archiver so
//     history outlives the in-memory TTL
//   - [TrackRepository] : Track cache keyed by service and platform ID, with ISRC lookups
//   - [TrackCacheAdapter] : Bridges [TrackRepository] to the transfer engine's track cacher
//
// Rows carry a sequence number from a per-table counter so listings have a stable order
// independent of UUIDs and clocks. Deletes are soft via deleted_at and every query skips
// deleted rows.
package repositories
