// Spotify API implementation of [Provider] and [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	spotifyPlaylistPage = 50
	spotifyTrackPage    = 100
	spotifyAddChunk     = 100
	spotifySearchLimit  = 10
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
	URI         string          `json:"uri"`
	IsLocal     bool            `json:"is_local"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Owner is the playlist owner as embedded in playlist objects.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type simplePlaylistTrack struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Owner       Owner               `json:"owner"`
	Public      bool                `json:"public"`
	Tracks      simplePlaylistTrack `json:"tracks"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil for episodes and items removed from the catalog.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistTracks represents one page of playlist items.
type SpotifyPaginatedPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func spotifyDetail(body []byte) string {
	var e spotifyErrorBody
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.Error.Message
}

// SpotifyProvider implements [Provider] for the Spotify Web API.
type SpotifyProvider struct {
	config  *oauth2.Config
	baseURL string
	client  *RetryClient
}

// NewSpotifyProvider creates a provider using the application credentials in cfg.
//
// User tokens are supplied later, per request, through [SpotifyProvider.Authenticate].
func NewSpotifyProvider(cfg shared.SpotifyConfig, client *RetryClient) *SpotifyProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if client == nil {
		client = NewRetryClient(RetryOpts{})
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-private",
			"playlist-modify-public",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyProvider{config: config, baseURL: baseURL, client: client}
}

// Descriptor returns the Spotify platform metadata.
func (p *SpotifyProvider) Descriptor() Descriptor {
	return Descriptor{
		ID:           PlatformSpotify,
		Name:         "Spotify",
		Description:  "Transfer playlists to/from Spotify",
		RequiresAuth: true,
		AuthFields:   []string{"access_token"},
	}
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (p *SpotifyProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// RedirectURL is where the login redirect lands; the CLI listens there during login.
func (p *SpotifyProvider) RedirectURL() string {
	return p.config.RedirectURL
}

// Exchange trades an authorization code from the login redirect for a user token.
func (p *SpotifyProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if p.config.ClientID == "" || p.config.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret must be configured", shared.ErrMissingConfig)
	}
	t, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: spotify: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return t, nil
}

// Authenticate expects either an "access_token" or an "auth_code" in credentials.
//
// The token is validated with GET /me before the service is returned.
func (p *SpotifyProvider) Authenticate(ctx context.Context, credentials Credentials) (Service, error) {
	var token *oauth2.Token
	switch {
	case credentials.Get("access_token") != "":
		token = &oauth2.Token{AccessToken: credentials.Get("access_token"), TokenType: "Bearer"}
	case credentials.Get("auth_code") != "":
		t, err := p.Exchange(ctx, credentials.Get("auth_code"))
		if err != nil {
			return nil, err
		}
		token = t
	default:
		return nil, fmt.Errorf("%w: spotify requires access_token or auth_code", shared.ErrMissingCredentials)
	}

	svc := &SpotifyService{
		baseURL: p.baseURL,
		client:  p.client.WithTransport(p.config.Client(context.WithoutCancel(ctx), token)),
	}

	user, err := svc.UserProfile(ctx)
	if err != nil {
		return nil, fmt.Errorf("spotify: validate token: %w", err)
	}
	svc.userID = user.ID
	return svc, nil
}

// SpotifyService implements [Service] for an authenticated Spotify user.
// Requests go through an [oauth2] transport wrapped by a [RetryClient].
type SpotifyService struct {
	baseURL string
	userID  string
	client  *RetryClient
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// UserID returns the id of the user the token belongs to.
func (s *SpotifyService) UserID() string {
	return s.userID
}

// doRequest performs an authenticated request against the Spotify API and decodes the JSON response into result.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = b
	}

	resp, err := s.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}

	if err := checkResponse(resp, spotifyDetail); err != nil {
		if resp.StatusCode == http.StatusUnauthorized && strings.Contains(strings.ToLower(err.Error()), "expired") {
			return fmt.Errorf("%w: %w", shared.ErrTokenExpired, err)
		}
		return err
	}
	return decodeJSON(resp, result)
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > spotifyPlaylistPage {
		limit = spotifyPlaylistPage
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// ListPlaylists retrieves all playlists for the authenticated user.
func (s *SpotifyService) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var all []models.Playlist
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, spotifyPlaylistPage, offset)
		if err != nil {
			return nil, fmt.Errorf("spotify: list playlists: %w", err)
		}

		for _, sp := range response.Items {
			all = append(all, models.Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				TrackCount:  sp.Tracks.Total,
				Owner:       ownerName(sp.Owner),
				Public:      sp.Public,
			})
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += len(response.Items)
	}

	return all, nil
}

// GetPlaylist retrieves playlist metadata by ID.
func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	endpoint := fmt.Sprintf("/playlists/%s?fields=id,name,description,public,owner,tracks.total", url.PathEscape(playlistID))

	var sp SpotifySimplePlaylist
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &sp); err != nil {
		return nil, fmt.Errorf("spotify: get playlist %s: %w", playlistID, err)
	}

	return &models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		TrackCount:  sp.Tracks.Total,
		Owner:       ownerName(sp.Owner),
		Public:      sp.Public,
	}, nil
}

// GetPlaylistTracks pages through the playlist items, skipping entries that are not tracks.
func (s *SpotifyService) GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	offset := 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), spotifyTrackPage, offset)

		var page SpotifyPaginatedPlaylistTracks
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, fmt.Errorf("spotify: get playlist tracks %s: %w", playlistID, err)
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.Name == "" {
				continue
			}
			tracks = append(tracks, item.Track.toModel())
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	return tracks, nil
}

// SearchTrack searches the catalog using Spotify's field filters.
func (s *SpotifyService) SearchTrack(ctx context.Context, q Query) ([]models.Track, error) {
	var terms []string
	if q.Title != "" {
		terms = append(terms, fmt.Sprintf("track:%q", q.Title))
	}
	if q.Artist != "" {
		terms = append(terms, fmt.Sprintf("artist:%q", q.Artist))
	}

	params := url.Values{}
	params.Set("q", strings.Join(terms, " "))
	params.Set("type", "track")
	params.Set("limit", fmt.Sprintf("%d", spotifySearchLimit))

	var response spotifySearchResponse
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, fmt.Errorf("spotify: search %q: %w", q.String(), err)
	}

	results := make([]models.Track, 0, len(response.Tracks.Items))
	for _, t := range response.Tracks.Items {
		results = append(results, t.toModel())
	}
	return results, nil
}

// CreatePlaylist creates a private playlist for the user and adds tracks in chunks of 100.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, tracks []models.Track) (string, error) {
	createReq := struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Public      bool   `json:"public"`
	}{Name: name, Description: description}

	var created struct {
		ID string `json:"id"`
	}
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(s.userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, createReq, &created); err != nil {
		return "", fmt.Errorf("spotify: create playlist: %w", err)
	}

	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if uri := spotifyURI(t); uri != "" {
			uris = append(uris, uri)
		}
	}

	for start := 0; start < len(uris); start += spotifyAddChunk {
		end := min(start+spotifyAddChunk, len(uris))
		addReq := struct {
			URIs []string `json:"uris"`
		}{URIs: uris[start:end]}

		endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(created.ID))
		if err := s.doRequest(ctx, http.MethodPost, endpoint, addReq, nil); err != nil {
			return created.ID, fmt.Errorf("spotify: add tracks to %s: %w", created.ID, err)
		}
	}

	return created.ID, nil
}

func (t SpotifyTrack) toModel() models.Track {
	track := models.Track{
		ID:       t.ID,
		Title:    t.Name,
		Album:    t.Album.Name,
		Duration: t.DurationMS / 1000,
		ISRC:     t.ExternalIDs.ISRC,
		URI:      t.URI,
	}
	for _, a := range t.Artists {
		if a.Name != "" {
			track.Artists = append(track.Artists, a.Name)
		}
	}
	track.Artist = strings.Join(track.Artists, ", ")
	return track
}

func spotifyURI(t models.Track) string {
	if strings.HasPrefix(t.URI, "spotify:track:") {
		return t.URI
	}
	if t.ID != "" {
		return "spotify:track:" + t.ID
	}
	return ""
}

func ownerName(o Owner) string {
	if o.DisplayName != "" {
		return o.DisplayName
	}
	return o.ID
}
