package matching

import (
	"sort"
	"testing"
)

func TestNormalizeTitle(t *testing.T) {
	tc := []struct {
		in   string
		want string
	}{
		{in: "Héroes (2017 Remaster)", want: "heroes"},
		{in: "Heroes - 2017 Remastered Version", want: "heroes"},
		{in: "Song Name [feat. Someone]", want: "song name"},
		{in: "Song Name feat. Someone", want: "song name"},
		{in: "Song - Live", want: "song"},
		{in: "Don't Stop Me Now", want: "dont stop me now"},
		{in: "  Multiple   Spaces!! ", want: "multiple spaces"},
		{in: "(Intro)", want: "intro"},
		{in: "Stay With Me", want: "stay with me"},
		{in: "Ｆｕｌｌｗｉｄｔｈ", want: "fullwidth"},
		{in: "", want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeTitle(tt.in); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestArtistTokens(t *testing.T) {
	tc := []struct {
		name    string
		artist  string
		artists []string
		want    []string
	}{
		{name: "Ampersand", artist: "Simon & Garfunkel", want: []string{"garfunkel", "simon"}},
		{name: "List With Accents", artists: []string{"Beyoncé", "JAY-Z"}, want: []string{"beyonce", "jay z"}},
		{name: "Featuring", artist: "Band feat. Guest", want: []string{"band", "guest"}},
		{name: "Trailing X Is A Name", artist: "Lil Nas X", want: []string{"lil nas x"}},
		{name: "Collaboration", artist: "Artist A x Artist B", want: []string{"artist a", "artist b"}},
		{name: "Empty", artist: "", want: nil},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			set := ArtistTokens(tt.artist, tt.artists)

			var got []string
			for k := range set {
				got = append(got, k)
			}
			sort.Strings(got)

			if len(got) != len(tt.want) {
				t.Fatalf("ArtistTokens() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ArtistTokens() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestPrimaryArtist(t *testing.T) {
	if got := PrimaryArtist("Band feat. Guest", nil); got != "band" {
		t.Errorf("expected band, got %q", got)
	}
	if got := PrimaryArtist("ignored", []string{"Beyoncé", "JAY-Z"}); got != "beyonce" {
		t.Errorf("expected beyonce, got %q", got)
	}
	if got := PrimaryArtist("", nil); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
