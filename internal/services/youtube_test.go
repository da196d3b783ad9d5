package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/shared"
)

func newYouTubeTestService(t *testing.T, mux *http.ServeMux) Service {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := NewRetryClient(RetryOpts{Retries: 1, Base: time.Millisecond})
	p := NewYouTubeProvider(shared.YouTubeConfig{ProxyURL: server.URL + "/"}, client)

	svc, err := p.Authenticate(context.Background(), Credentials{"auth_file": "/tmp/browser.json"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return svc
}

func requireAuthFile(t *testing.T, r *http.Request) {
	t.Helper()
	if got := r.Header.Get("X-Auth-File"); got != "/tmp/browser.json" {
		t.Errorf("expected X-Auth-File header, got %q", got)
	}
}

func TestYouTubeProvider(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		p := NewYouTubeProvider(shared.YouTubeConfig{}, nil)
		if p.baseURL != defaultYTBaseURL {
			t.Errorf("expected default base URL, got %s", p.baseURL)
		}
		if d := p.Descriptor(); d.ID != PlatformYouTubeMusic || len(d.AuthFields) != 1 || d.AuthFields[0] != "auth_file" {
			t.Errorf("unexpected descriptor: %+v", d)
		}
	})

	t.Run("Authenticate Requires Auth File", func(t *testing.T) {
		p := NewYouTubeProvider(shared.YouTubeConfig{}, nil)
		_, err := p.Authenticate(context.Background(), Credentials{"auth_file": "  "})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestYouTubeService(t *testing.T) {
	t.Run("ListPlaylists", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/library/playlists", func(w http.ResponseWriter, r *http.Request) {
			requireAuthFile(t, r)
			w.Write([]byte(`[{"playlistId":"PL1","title":"Road","count":12,"privacy":"PUBLIC"},{"playlistId":"PL2","title":"Quiet"}]`))
		})

		svc := newYouTubeTestService(t, mux)
		playlists, err := svc.ListPlaylists(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].ID != "PL1" || playlists[0].TrackCount != 12 || !playlists[0].Public {
			t.Errorf("unexpected playlist mapping: %+v", playlists[0])
		}
	})

	t.Run("GetPlaylistTracks", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/playlists/{id}", func(w http.ResponseWriter, r *http.Request) {
			requireAuthFile(t, r)
			json.NewEncoder(w).Encode(YouTubePlaylist{
				ID:    r.PathValue("id"),
				Title: "Road",
				Tracks: []YouTubeTrack{
					{VideoID: "v1", Title: "Song A", Artists: []YouTubeArtist{{Name: "Band"}}, Duration: "3:35"},
					{VideoID: "v2", Title: "Song B", DurationSec: 200, Album: &youtubeAlbum{Name: "LP"}},
				},
			})
		})

		svc := newYouTubeTestService(t, mux)
		tracks, err := svc.GetPlaylistTracks(context.Background(), "PL1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}
		if tracks[0].Duration != 215 || tracks[0].Artist != "Band" {
			t.Errorf("unexpected first track: %+v", tracks[0])
		}
		if tracks[1].Duration != 200 || tracks[1].Album != "LP" {
			t.Errorf("unexpected second track: %+v", tracks[1])
		}

		playlist, err := svc.GetPlaylist(context.Background(), "PL1")
		if err != nil || playlist.Name != "Road" {
			t.Errorf("expected playlist Road, got %+v %v", playlist, err)
		}
	})

	t.Run("SearchTrack", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/search", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("q") != "Song A Band" || r.URL.Query().Get("filter") != "songs" {
				t.Errorf("unexpected query: %s", r.URL.RawQuery)
			}
			w.Write([]byte(`[{"videoId":"v1","title":"Song A","artists":[{"name":"Band"}]},{"title":"no id"}]`))
		})

		svc := newYouTubeTestService(t, mux)
		results, err := svc.SearchTrack(context.Background(), Query{Title: "Song A", Artist: "Band"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(results) != 1 || results[0].ID != "v1" {
			t.Errorf("expected results without video id dropped, got %+v", results)
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		var added []string
		mux := http.NewServeMux()
		mux.HandleFunc("POST /api/playlists", func(w http.ResponseWriter, r *http.Request) {
			requireAuthFile(t, r)
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["title"] != `My "Mix"` || body["privacy_status"] != "PRIVATE" {
				t.Errorf("unexpected create body: %v", body)
			}
			w.Write([]byte(`{"playlist_id":"PLNEW"}`))
		})
		mux.HandleFunc("POST /api/playlists/{id}/items", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				VideoIDs []string `json:"video_ids"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			added = body.VideoIDs
			w.Write([]byte(`{"status":"ok"}`))
		})

		svc := newYouTubeTestService(t, mux)
		id, err := svc.CreatePlaylist(context.Background(), `My "Mix"`, "desc", []models.Track{{ID: "v1"}, {ID: "v2"}})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "PLNEW" {
			t.Errorf("expected PLNEW, got %s", id)
		}
		if len(added) != 2 || added[0] != "v1" || added[1] != "v2" {
			t.Errorf("expected ordered video ids, got %v", added)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		tc := []struct {
			name   string
			status int
			want   error
		}{
			{name: "Rejected Auth File", status: http.StatusUnauthorized, want: shared.ErrAuthFailed},
			{name: "Missing Playlist", status: http.StatusNotFound, want: shared.ErrPlaylistNotFound},
			{name: "Proxy Down", status: http.StatusBadGateway, want: shared.ErrServiceUnavailable},
			{name: "Bad Request", status: http.StatusBadRequest, want: shared.ErrAPIRequest},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				mux := http.NewServeMux()
				mux.HandleFunc("GET /api/playlists/{id}", func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					w.Write([]byte(`{"detail":"proxy says no"}`))
				})

				svc := newYouTubeTestService(t, mux)
				_, err := svc.GetPlaylistTracks(context.Background(), "PL1")
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})
}

func TestParseClock(t *testing.T) {
	tc := map[string]int{
		"":        0,
		"3:45":    225,
		"1:02:03": 3723,
		"45":      45,
		"x:10":    0,
	}
	for in, want := range tc {
		if got := parseClock(in); got != want {
			t.Errorf("parseClock(%q) = %d, want %d", in, got, want)
		}
	}
}
