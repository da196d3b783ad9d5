// Package servicestest provides in-memory [services.Provider] and [services.Service] fakes.
package servicestest

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/services"
	"github.com/desertthunder/crossfade/internal/shared"
)

// CreatedPlaylist records one CreatePlaylist call.
type CreatedPlaylist struct {
	ID          string
	Name        string
	Description string
	Tracks      []models.Track
}

// FakeService is a scriptable [services.Service].
//
// Search results and errors are keyed by [services.Query.String].
type FakeService struct {
	NameValue    string
	Playlists    []models.Playlist
	Tracks       map[string][]models.Track
	Candidates   map[string][]models.Track
	SearchErrors map[string]error
	ListErr      error
	CreateErr    error

	// Block, when set, makes SearchTrack wait until it is closed or the context ends.
	Block chan struct{}
	// BlockQueries blocks only the searches whose query string is a key, the same way as Block.
	BlockQueries map[string]chan struct{}

	mu       sync.Mutex
	searches []services.Query
	created  []CreatedPlaylist
}

// NewFakeService returns an empty fake with initialized maps.
func NewFakeService(name string) *FakeService {
	return &FakeService{
		NameValue:    name,
		Tracks:       map[string][]models.Track{},
		Candidates:   map[string][]models.Track{},
		SearchErrors: map[string]error{},
	}
}

func (f *FakeService) Name() string { return f.NameValue }

func (f *FakeService) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]models.Playlist(nil), f.Playlists...), nil
}

func (f *FakeService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	for _, p := range f.Playlists {
		if p.ID == playlistID {
			p := p
			return &p, nil
		}
	}
	if tracks, ok := f.Tracks[playlistID]; ok {
		return &models.Playlist{ID: playlistID, Name: playlistID, TrackCount: len(tracks)}, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
}

func (f *FakeService) GetPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	tracks, ok := f.Tracks[playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return append([]models.Track(nil), tracks...), nil
}

func (f *FakeService) SearchTrack(ctx context.Context, q services.Query) ([]models.Track, error) {
	f.mu.Lock()
	f.searches = append(f.searches, q)
	f.mu.Unlock()

	block := f.Block
	if ch, ok := f.BlockQueries[q.String()]; ok {
		block = ch
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := f.SearchErrors[q.String()]; err != nil {
		return nil, err
	}
	return append([]models.Track(nil), f.Candidates[q.String()]...), nil
}

func (f *FakeService) CreatePlaylist(ctx context.Context, name, description string, tracks []models.Track) (string, error) {
	if f.CreateErr != nil {
		return "", f.CreateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("%s-playlist-%d", f.NameValue, len(f.created)+1)
	f.created = append(f.created, CreatedPlaylist{
		ID:          id,
		Name:        name,
		Description: description,
		Tracks:      append([]models.Track(nil), tracks...),
	})
	return id, nil
}

// Searches returns every query seen so far.
func (f *FakeService) Searches() []services.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]services.Query(nil), f.searches...)
}

// Created returns every playlist created so far.
func (f *FakeService) Created() []CreatedPlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CreatedPlaylist(nil), f.created...)
}

// FakeProvider is a [services.Provider] that hands out one [FakeService].
type FakeProvider struct {
	Desc     services.Descriptor
	Service  *FakeService
	AuthErr  error
	Required []string

	mu    sync.Mutex
	auths int
}

// NewFakeProvider returns a provider for id requiring the given credential fields.
func NewFakeProvider(id string, svc *FakeService, required ...string) *FakeProvider {
	return &FakeProvider{
		Desc: services.Descriptor{
			ID:           id,
			Name:         svc.NameValue,
			Description:  "fake " + id,
			RequiresAuth: len(required) > 0,
			AuthFields:   required,
		},
		Service:  svc,
		Required: required,
	}
}

func (p *FakeProvider) Descriptor() services.Descriptor { return p.Desc }

func (p *FakeProvider) Authenticate(ctx context.Context, credentials services.Credentials) (services.Service, error) {
	p.mu.Lock()
	p.auths++
	p.mu.Unlock()

	for _, field := range p.Required {
		if _, err := credentials.Require(field); err != nil {
			return nil, err
		}
	}
	if p.AuthErr != nil {
		return nil, p.AuthErr
	}
	return p.Service, nil
}

// Auths returns how many times Authenticate was called.
func (p *FakeProvider) Auths() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.auths
}
