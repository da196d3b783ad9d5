package matching

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/crossfade/internal/models"
	"github.com/desertthunder/crossfade/internal/services"
	"github.com/desertthunder/crossfade/internal/shared"
)

// Duration differences beyond tolerance+durationFalloff seconds score zero.
const durationFalloff = 25

// scoreEpsilon absorbs float rounding when comparing weighted scores.
const scoreEpsilon = 1e-9

// Searcher is the part of [services.Service] the matcher needs.
type Searcher interface {
	SearchTrack(ctx context.Context, q services.Query) ([]models.Track, error)
}

// Config holds scoring weights and the acceptance threshold.
type Config struct {
	Threshold         float64
	TitleWeight       float64
	ArtistWeight      float64
	DurationWeight    float64
	DurationTolerance int // seconds
}

// DefaultConfig returns the default matching configuration.
func DefaultConfig() Config {
	return Config{
		Threshold:         0.70,
		TitleWeight:       0.6,
		ArtistWeight:      0.3,
		DurationWeight:    0.1,
		DurationTolerance: 5,
	}
}

// ConfigFromShared converts the [shared.MatchingConfig] file section.
func ConfigFromShared(c shared.MatchingConfig) Config {
	return Config{
		Threshold:         c.Threshold,
		TitleWeight:       c.TitleWeight,
		ArtistWeight:      c.ArtistWeight,
		DurationWeight:    c.DurationWeight,
		DurationTolerance: c.DurationTolerance,
	}
}

// Validate rejects configurations that could accept arbitrary candidates.
func (c Config) Validate() error {
	switch {
	case c.Threshold <= 0 || c.Threshold > 1:
		return fmt.Errorf("%w: threshold must be in (0, 1], got %v", shared.ErrInvalidConfig, c.Threshold)
	case c.TitleWeight <= 0:
		return fmt.Errorf("%w: title weight must be positive", shared.ErrInvalidConfig)
	case c.ArtistWeight < 0 || c.DurationWeight < 0:
		return fmt.Errorf("%w: weights must not be negative", shared.ErrInvalidConfig)
	case c.DurationTolerance < 0:
		return fmt.Errorf("%w: duration tolerance must not be negative", shared.ErrInvalidConfig)
	}
	return nil
}

// Breakdown is the per-component detail behind a score.
type Breakdown struct {
	Title    float64
	Artist   float64
	Duration float64 // -1 when either duration is unknown
	Total    float64
	Method   models.MatchMethod

	// ArtistConflict is set when both tracks credit artists and none of them overlap.
	ArtistConflict bool
}

// Accepts reports whether the breakdown clears threshold.
// A candidate credited to entirely different artists is never accepted.
func (b Breakdown) Accepts(threshold float64) bool {
	return !b.ArtistConflict && b.Total >= threshold-scoreEpsilon
}

// better orders breakdowns: candidates without an artist conflict first, then by total.
func (b Breakdown) better(other Breakdown) bool {
	if b.ArtistConflict != other.ArtistConflict {
		return !b.ArtistConflict
	}
	return b.Total > other.Total+scoreEpsilon
}

// Score rates how likely cand is the same recording as src, in [0, 1].
//
// It is a pure function of its inputs.
func Score(src, cand models.Track, cfg Config) Breakdown {
	if src.ISRC != "" && strings.EqualFold(src.ISRC, cand.ISRC) {
		return Breakdown{Title: 1, Artist: 1, Duration: 1, Total: 1, Method: models.MatchISRC}
	}

	b := Breakdown{Duration: -1}

	st, ct := NormalizeTitle(src.Title), NormalizeTitle(cand.Title)
	switch {
	case st != "" && st == ct:
		b.Title = 1
	default:
		b.Title = 0.8 * jaccard(titleTokens(st), titleTokens(ct))
	}

	srcArtists, candArtists := ArtistTokens(src.Artist, src.Artists), ArtistTokens(cand.Artist, cand.Artists)
	b.Artist = overlap(srcArtists, candArtists)
	b.ArtistConflict = len(srcArtists) > 0 && len(candArtists) > 0 && b.Artist == 0

	weighted := cfg.TitleWeight*b.Title + cfg.ArtistWeight*b.Artist
	weights := cfg.TitleWeight + cfg.ArtistWeight

	if src.Duration > 0 && cand.Duration > 0 {
		b.Duration = durationScore(src.Duration, cand.Duration, cfg.DurationTolerance)
		weighted += cfg.DurationWeight * b.Duration
		weights += cfg.DurationWeight
	}

	if weights > 0 {
		b.Total = weighted / weights
	}

	b.Method = models.MatchFuzzy
	if b.Title == 1 && b.Artist == 1 {
		b.Method = models.MatchExact
	}
	return b
}

func durationScore(a, b, tolerance int) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if diff <= tolerance {
		return 1
	}
	return math.Max(0, 1-float64(diff-tolerance)/durationFalloff)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := intersect(a, b)
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// overlap is the overlap coefficient |a∩b| / min(|a|, |b|).
func overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	return float64(intersect(a, b)) / float64(min(len(a), len(b)))
}

func intersect(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

// Matcher resolves source tracks against a destination [Searcher].
//
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	cfg    Config
	logger *log.Logger
}

// New validates cfg and returns a Matcher. A nil logger discards output.
func New(cfg Config, logger *log.Logger) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Matcher{cfg: cfg, logger: logger}, nil
}

// Config returns the matcher's configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Match searches the destination for src and returns the best candidate at or above the threshold.
//
// Search uses the normalized title and primary artist, falling back to the title alone
// when that finds nothing. Equal scores keep the earlier candidate, and candidates whose
// artists share nothing with src rank below all others.
// Below threshold the result carries the best rejected score, Matched is nil, and the
// error wraps [shared.ErrNoMatch]. Search failures are returned as-is.
func (m *Matcher) Match(ctx context.Context, svc Searcher, src models.Track) (models.MatchResult, error) {
	result := models.MatchResult{Source: src, Method: models.MatchNone}

	title := NormalizeTitle(src.Title)
	if title == "" {
		return result, fmt.Errorf("%w: source track %q has no searchable title", shared.ErrNoMatch, src.ID)
	}

	q := services.Query{Title: title, Artist: PrimaryArtist(src.Artist, src.Artists)}
	result.Query = q.String()

	candidates, err := svc.SearchTrack(ctx, q)
	if err != nil {
		return result, err
	}

	if len(candidates) == 0 && q.Artist != "" {
		q = services.Query{Title: title}
		result.Query = q.String()

		candidates, err = svc.SearchTrack(ctx, q)
		if err != nil {
			return result, err
		}
	}

	best := -1
	var bestScore Breakdown
	for i, cand := range candidates {
		s := Score(src, cand, m.cfg)
		if best < 0 || s.better(bestScore) {
			best, bestScore = i, s
		}
	}

	if best < 0 {
		return result, fmt.Errorf("%w: %q by %q: no candidates", shared.ErrNoMatch, src.Title, src.Artist)
	}

	result.Confidence = bestScore.Total
	if !bestScore.Accepts(m.cfg.Threshold) {
		m.logger.Debug("rejected best candidate",
			"title", src.Title, "candidate", candidates[best].Title,
			"score", fmt.Sprintf("%.3f", bestScore.Total), "artist_conflict", bestScore.ArtistConflict)
		if bestScore.ArtistConflict {
			return result, fmt.Errorf("%w: %q by %q: best candidate is by %q",
				shared.ErrNoMatch, src.Title, src.Artist, candidates[best].Artist)
		}
		return result, fmt.Errorf("%w: %q by %q: best score %.2f below threshold %.2f",
			shared.ErrNoMatch, src.Title, src.Artist, bestScore.Total, m.cfg.Threshold)
	}

	matched := candidates[best]
	result.Matched = &matched
	result.Method = bestScore.Method
	return result, nil
}
