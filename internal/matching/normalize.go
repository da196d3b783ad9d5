package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	bracketed  = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|\{[^}]*\}`)
	featTail   = regexp.MustCompile(`\s(feat\.?|ft\.?|featuring)\s.*$`)
	versionTag = regexp.MustCompile(`\s-\s.*\b(remaster(ed)?|live|edit|version|mono|stereo|deluxe|mix|remix|acoustic|demo|bonus)\b.*$`)
	artistSep  = regexp.MustCompile(`\s*(,|&|/|;|\+)\s*|\s(x|and|feat\.?|ft\.?|featuring|vs\.?)\s`)
)

// fold lower-cases s and strips diacritics.
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// clean turns every rune that is not a letter or digit into a space and collapses whitespace.
//
// Apostrophes are dropped so "don't" and "dont" compare equal.
func clean(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\'' || r == '’' || r == '`':
			return -1
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			return r
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeTitle reduces a track title to its comparable core.
//
// "Héroes (2017 Remaster)", "heroes - 2017 remastered version" and "Heroes" all normalize to "heroes".
// A title made entirely of bracketed text keeps its contents.
func NormalizeTitle(title string) string {
	s := fold(title)

	stripped := bracketed.ReplaceAllString(s, " ")
	stripped = featTail.ReplaceAllString(stripped, "")
	stripped = versionTag.ReplaceAllString(stripped, "")

	if out := clean(stripped); out != "" {
		return out
	}
	return clean(s)
}

// NormalizeArtist folds and cleans a single artist name.
func NormalizeArtist(name string) string {
	return clean(fold(name))
}

// ArtistTokens splits artist credits into a set of normalized names.
//
// Both the display string and the individual names are considered, so
// "Simon & Garfunkel" and ["Simon", "Garfunkel"] yield the same set.
func ArtistTokens(artist string, artists []string) map[string]struct{} {
	set := make(map[string]struct{})
	add := func(s string) {
		for _, part := range artistSep.Split(fold(s), -1) {
			if n := clean(part); n != "" {
				set[n] = struct{}{}
			}
		}
	}

	if len(artists) > 0 {
		for _, a := range artists {
			add(a)
		}
	} else {
		add(artist)
	}
	return set
}

// PrimaryArtist returns the first normalized artist credit, used as the search hint.
func PrimaryArtist(artist string, artists []string) string {
	src := artist
	if len(artists) > 0 {
		src = artists[0]
	}
	parts := artistSep.Split(fold(src), 2)
	return clean(parts[0])
}

func titleTokens(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, f := range strings.Fields(normalized) {
		set[f] = struct{}{}
	}
	return set
}
