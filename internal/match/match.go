// Package match ranks audio-source search results against canonical catalog
// tracks and decides whether the best hit is safe to auto-select.
package match

import (
	"sort"
	"strings"

	"tunegrab/internal/catalog"
	"tunegrab/internal/source"
)

const (
	// DefaultThreshold is the minimum best score for auto-selection.
	DefaultThreshold = 0.80
	// DefaultMargin is the minimum lead over the runner-up for
	// auto-selection.
	DefaultMargin = 0.05

	// maxCandidates caps the ranked list returned for user selection.
	maxCandidates = 5
)

// Decision is the outcome of ranking a candidate set. Candidates are ordered
// by descending score; ties keep the provider's original order. When
// NeedsConfirmation is false and Candidates is non-empty the caller may
// auto-select Candidates[0].
type Decision struct {
	Candidates        []source.Candidate `json:"candidates"`
	BestScore         float64            `json:"best_score"`
	NeedsConfirmation bool               `json:"needs_confirmation"`
}

// Best returns the top candidate, or nil for an empty result.
func (d Decision) Best() *source.Candidate {
	if len(d.Candidates) == 0 {
		return nil
	}
	return &d.Candidates[0]
}

// Matcher scores source candidates against canonical tracks. Threshold and
// Margin are tunable; the zero value is not usable, construct with New.
type Matcher struct {
	Threshold float64
	Margin    float64
}

// New creates a Matcher. Non-positive threshold or margin fall back to the
// defaults.
func New(threshold, margin float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if margin <= 0 {
		margin = DefaultMargin
	}
	return &Matcher{Threshold: threshold, Margin: margin}
}

// Query builds the source search query for a canonical track.
func Query(track catalog.Track) string {
	return strings.TrimSpace(track.Artist + " " + track.Name)
}

// Rank scores the candidates against the track and applies the decision
// policy. An empty candidate set yields an empty decision with
// NeedsConfirmation false; the caller must treat that as "nothing found".
func (m *Matcher) Rank(track catalog.Track, candidates []source.Candidate) Decision {
	if len(candidates) == 0 {
		return Decision{}
	}

	target := Normalize(track.Artist + " " + track.Name)
	canonicalName := Normalize(track.Name)
	artist := Normalize(track.Artist)

	scored := make([]source.Candidate, len(candidates))
	copy(scored, candidates)

	for i := range scored {
		scored[i].Score = m.score(&scored[i], target, canonicalName, artist, track.DurationMS)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > maxCandidates {
		scored = scored[:maxCandidates]
	}

	best := scored[0].Score
	gap := best
	if len(scored) > 1 {
		gap = best - scored[1].Score
	}

	return Decision{
		Candidates:        scored,
		BestScore:         best,
		NeedsConfirmation: best < m.Threshold || (len(scored) > 1 && gap <= m.Margin),
	}
}

func (m *Matcher) score(c *source.Candidate, target, canonicalName, artist string, durationMS int) float64 {
	title := Normalize(c.Title)

	s := textWeight*textSimilarity(target, title) +
		durationWeight*durationScore(c.DurationSec, durationMS)

	if artist != "" && containsTerm(Normalize(c.Channel), artist) {
		s += channelBonus
	}
	s -= penalties(title, canonicalName)

	return clamp01(s)
}
