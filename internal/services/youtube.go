// YouTube Music [Service] backed by an HTTP proxy around ytmusicapi (default http://localhost:8080).
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Album       *youtubeAlbum   `json:"album"`
	Duration    string          `json:"duration"`         // "3:45"
	DurationSec int             `json:"duration_seconds"` // Duration in seconds
	ISRC        string          `json:"isrc,omitempty"`
}

// YouTubePlaylist represents a playlist from YouTube Music.
type YouTubePlaylist struct {
	ID          string         `json:"id"`
	PlaylistID  string         `json:"playlistId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Privacy     string         `json:"privacy"`
	TrackCount  int            `json:"trackCount"`
	Count       int            `json:"count"`
	Author      *YouTubeArtist `json:"author,omitempty"`
	Tracks      []YouTubeTrack `json:"tracks,omitempty"`
}

func (p YouTubePlaylist) toModel() models.Playlist {
	id := p.ID
	if id == "" {
		id = p.PlaylistID
	}
	count := p.TrackCount
	if count == 0 {
		count = p.Count
	}
	playlist := models.Playlist{
		ID:          id,
		Name:        p.Title,
		Description: p.Description,
		TrackCount:  count,
		Public:      p.Privacy == "PUBLIC",
	}
	if p.Author != nil {
		playlist.Owner = p.Author.Name
	}
	return playlist
}

func (t YouTubeTrack) toModel() models.Track {
	track := models.Track{
		ID:       t.VideoID,
		Title:    t.Title,
		Duration: t.DurationSec,
		ISRC:     t.ISRC,
	}
	if track.Duration == 0 {
		track.Duration = parseClock(t.Duration)
	}
	if t.VideoID != "" {
		track.URI = "https://music.youtube.com/watch?v=" + t.VideoID
	}
	for _, a := range t.Artists {
		if a.Name != "" {
			track.Artists = append(track.Artists, a.Name)
		}
	}
	track.Artist = strings.Join(track.Artists, ", ")
	if t.Album != nil {
		track.Album = t.Album.Name
	}
	return track
}

// parseClock converts "h:mm:ss" or "m:ss" to seconds, returning 0 when malformed.
func parseClock(s string) int {
	if s == "" {
		return 0
	}
	total := 0
	for part := range strings.SplitSeq(s, ":") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

func youtubeDetail(body []byte) string {
	var errResp struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return ""
	}
	return errResp.Detail
}

// YouTubeProvider implements [Provider] for YouTube Music via the proxy.
type YouTubeProvider struct {
	baseURL string
	client  *RetryClient
}

// NewYouTubeProvider creates a new YouTube Music provider pointed at the proxy in cfg.
func NewYouTubeProvider(cfg shared.YouTubeConfig, client *RetryClient) *YouTubeProvider {
	baseURL := strings.TrimRight(cfg.ProxyURL, "/")
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}
	if client == nil {
		client = NewRetryClient(RetryOpts{})
	}
	return &YouTubeProvider{baseURL: baseURL, client: client}
}

// Descriptor returns the YouTube Music platform metadata.
func (p *YouTubeProvider) Descriptor() Descriptor {
	return Descriptor{
		ID:           PlatformYouTubeMusic,
		Name:         "YouTube Music",
		Description:  "Transfer playlists to/from YouTube Music",
		RequiresAuth: true,
		AuthFields:   []string{"auth_file"},
	}
}

// Authenticate binds the authentication file path for subsequent requests.
//
// Expects credentials["auth_file"] to contain the path to browser.json or oauth.json.
// The proxy validates the file on first use; a rejection surfaces as [shared.ErrAuthFailed].
func (p *YouTubeProvider) Authenticate(ctx context.Context, credentials Credentials) (Service, error) {
	authFile, err := credentials.Require("auth_file")
	if err != nil {
		return nil, fmt.Errorf("youtube music: %w", err)
	}
	return &YouTubeService{baseURL: p.baseURL, authFile: authFile, client: p.client}, nil
}

// YouTubeService implements the [Service] interface for YouTube Music via proxy.
type YouTubeService struct {
	baseURL  string
	authFile string
	client   *RetryClient
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

func (y *YouTubeService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = b
	}

	resp, err := y.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, reader)
		if err != nil {
			return nil, err
		}
		if y.authFile != "" {
			req.Header.Set("X-Auth-File", y.authFile)
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}

	if err := checkResponse(resp, youtubeDetail); err != nil {
		return err
	}
	return decodeJSON(resp, result)
}

// ListPlaylists retrieves all playlists for the authenticated user.
//
// Calls GET /api/library/playlists on the proxy.
func (y *YouTubeService) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var ytPlaylists []YouTubePlaylist
	if err := y.doRequest(ctx, http.MethodGet, "/api/library/playlists", nil, &ytPlaylists); err != nil {
		return nil, fmt.Errorf("youtube music: list playlists: %w", err)
	}

	playlists := make([]models.Playlist, len(ytPlaylists))
	for i, ytp := range ytPlaylists {
		playlists[i] = ytp.toModel()
	}
	return playlists, nil
}

func (y *YouTubeService) fetchPlaylist(ctx context.Context, playlistID string) (*YouTubePlaylist, error) {
	var ytPlaylist YouTubePlaylist
	endpoint := fmt.Sprintf("/api/playlists/%s", url.PathEscape(playlistID))
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &ytPlaylist); err != nil {
		return nil, err
	}
	if ytPlaylist.ID == "" && ytPlaylist.PlaylistID == "" {
		ytPlaylist.ID = playlistID
	}
	return &ytPlaylist, nil
}

// GetPlaylist retrieves a specific playlist by ID.
//
// Calls GET /api/playlists/{id} on the proxy.
func (y *YouTubeService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	ytPlaylist, err := y.fetchPlaylist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("youtube music: get playlist %s: %w", playlistID, err)
	}
	playlist := ytPlaylist.toModel()
	return &playlist, nil
}

// GetPlaylistTracks returns the playlist's tracks in order.
//
// Calls GET /api/playlists/{id} on the proxy.
func (y *YouTubeService) GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	ytPlaylist, err := y.fetchPlaylist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("youtube music: get playlist tracks %s: %w", playlistID, err)
	}

	tracks := make([]models.Track, 0, len(ytPlaylist.Tracks))
	for _, ytt := range ytPlaylist.Tracks {
		if ytt.VideoID == "" && ytt.Title == "" {
			continue
		}
		tracks = append(tracks, ytt.toModel())
	}
	return tracks, nil
}

// SearchTrack searches songs by title and artist.
//
// Calls GET /api/search?q={title} {artist}&filter=songs on the proxy.
func (y *YouTubeService) SearchTrack(ctx context.Context, q Query) ([]models.Track, error) {
	params := url.Values{}
	params.Set("q", q.String())
	params.Set("filter", "songs")

	var results []YouTubeTrack
	if err := y.doRequest(ctx, http.MethodGet, "/api/search?"+params.Encode(), nil, &results); err != nil {
		return nil, fmt.Errorf("youtube music: search %q: %w", q.String(), err)
	}

	tracks := make([]models.Track, 0, len(results))
	for _, r := range results {
		if r.VideoID == "" {
			continue
		}
		tracks = append(tracks, r.toModel())
	}
	return tracks, nil
}

// CreatePlaylist creates a private playlist and adds the tracks' video ids.
//
// Creates the playlist via POST /api/playlists and adds tracks via POST /api/playlists/{id}/items.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, name, description string, tracks []models.Track) (string, error) {
	createReq := struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		PrivacyStatus string `json:"privacy_status"`
	}{Title: name, Description: description, PrivacyStatus: "PRIVATE"}

	var createResp struct {
		PlaylistID string `json:"playlist_id"`
	}
	if err := y.doRequest(ctx, http.MethodPost, "/api/playlists", createReq, &createResp); err != nil {
		return "", fmt.Errorf("youtube music: create playlist: %w", err)
	}
	if createResp.PlaylistID == "" {
		return "", fmt.Errorf("youtube music: create playlist: %w: empty playlist id", shared.ErrAPIRequest)
	}

	videoIDs := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != "" {
			videoIDs = append(videoIDs, t.ID)
		}
	}
	if len(videoIDs) == 0 {
		return createResp.PlaylistID, nil
	}

	addReq := struct {
		VideoIDs []string `json:"video_ids"`
	}{VideoIDs: videoIDs}

	endpoint := fmt.Sprintf("/api/playlists/%s/items", url.PathEscape(createResp.PlaylistID))
	if err := y.doRequest(ctx, http.MethodPost, endpoint, addReq, nil); err != nil {
		return createResp.PlaylistID, fmt.Errorf("youtube music: add tracks to %s: %w", createResp.PlaylistID, err)
	}
	return createResp.PlaylistID, nil
}
