// package models defines the data model for the playlist transfer service
package models

import "time"

// Playlist represents a music playlist from any service
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	Owner       string `json:"owner,omitempty"`
	Public      bool   `json:"public"`
}

// Track represents a music track from any service.
//
// ID and URI are platform-scoped and meaningless on any other platform.
type Track struct {
	ID       string   `json:"id,omitempty"`
	Title    string   `json:"title"`
	Artist   string   `json:"artist"`            // Primary or display artist
	Artists  []string `json:"artists,omitempty"` // All credited artists when the platform provides them
	Album    string   `json:"album,omitempty"`
	Duration int      `json:"duration,omitempty"` // Duration in seconds, 0 when unknown
	ISRC     string   `json:"isrc,omitempty"`     // International Standard Recording Code
	URI      string   `json:"uri,omitempty"`      // Platform URI used when adding to playlists
}

// ArtistNames returns every credited artist, falling back to the display artist.
func (t Track) ArtistNames() []string {
	if len(t.Artists) > 0 {
		return t.Artists
	}
	if t.Artist == "" {
		return nil
	}
	return []string{t.Artist}
}

// MatchMethod names the rule that produced a [MatchResult].
type MatchMethod string

const (
	MatchISRC  MatchMethod = "isrc"
	MatchExact MatchMethod = "exact"
	MatchFuzzy MatchMethod = "fuzzy"
	MatchNone  MatchMethod = "none"
)

// MatchResult is the outcome of resolving a source track on a destination platform.
type MatchResult struct {
	Source     Track       `json:"source"`
	Matched    *Track      `json:"matched,omitempty"` // nil when no candidate cleared the threshold
	Confidence float64     `json:"confidence"`        // Score of the accepted candidate, or the best rejected one
	Method     MatchMethod `json:"method"`
	Query      string      `json:"query,omitempty"` // Search query that produced the candidates
}

// OK reports whether a destination track was accepted.
func (m MatchResult) OK() bool {
	return m.Matched != nil
}

// CachedTrack is a [Track] persisted in the local track cache.
//
// Rows are unique per (Service, Track.ID).
type CachedTrack struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"sequence"`
	Service   string    `json:"service"`
	Track     Track     `json:"track"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
