package match

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

const (
	// Weights for the combined candidate score.
	textWeight     = 0.7
	durationWeight = 0.3

	// Duration drift tolerances, in seconds.
	durationTolerance = 3
	durationMaxDrift  = 15

	// Channel names containing the artist are a weak authenticity signal.
	channelBonus = 0.05

	// Each disqualifying term found in a candidate title costs this much.
	termPenalty = 0.25
)

// Titles containing these usually describe a different recording than the
// canonical studio track. The penalty is waived when the canonical name
// itself contains the term.
var disqualifyingTerms = []string{
	"cover",
	"remix",
	"8d audio",
	"sped up",
	"slowed",
	"reverb",
	"nightcore",
	"hour loop",
	"live",
	"karaoke",
	"instrumental",
	"reaction",
}

// textSimilarity compares two normalized strings in [0,1]. Compact equality
// handles spacing variants like "theweeknd" vs "the weeknd"; otherwise
// Jaro-Winkler and token overlap are averaged so neither word order nor
// character-level noise dominates.
func textSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	if strings.ReplaceAll(a, " ", "") == strings.ReplaceAll(b, " ", "") {
		return 1.0
	}

	edit := strutil.Similarity(a, b, metrics.NewJaroWinkler())
	return 0.5*edit + 0.5*tokenOverlap(a, b)
}

// tokenOverlap is the share of matching words relative to the longer string.
func tokenOverlap(a, b string) float64 {
	tokensA := tokenize(a)
	tokensB := tokenize(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	setB := make(map[string]bool, len(tokensB))
	for _, t := range tokensB {
		setB[t] = true
	}

	matches := 0
	for _, t := range tokensA {
		if setB[t] {
			matches++
		}
	}

	maxLen := len(tokensA)
	if len(tokensB) > maxLen {
		maxLen = len(tokensB)
	}
	return float64(matches) / float64(maxLen)
}

// durationScore compares a candidate duration against the canonical track
// length. Full credit within the tolerance window, decaying linearly to zero
// at the maximum drift.
func durationScore(candidateSec, canonicalMS int) float64 {
	if canonicalMS <= 0 || candidateSec <= 0 {
		return 0.0
	}

	canonicalSec := float64(canonicalMS) / 1000.0
	drift := float64(candidateSec) - canonicalSec
	if drift < 0 {
		drift = -drift
	}

	switch {
	case drift <= durationTolerance:
		return 1.0
	case drift >= durationMaxDrift:
		return 0.0
	default:
		return (durationMaxDrift - drift) / (durationMaxDrift - durationTolerance)
	}
}

// penalties counts disqualifying terms present in the candidate title but
// absent from the canonical name, each costing termPenalty.
func penalties(candidateTitle, canonicalName string) float64 {
	var total float64
	for _, term := range disqualifyingTerms {
		if containsTerm(candidateTitle, term) && !containsTerm(canonicalName, term) {
			total += termPenalty
		}
	}
	return total
}

// containsTerm matches on word boundaries so "live" does not fire on
// "alive". Inputs are already normalized to single-space separation.
func containsTerm(s, term string) bool {
	return strings.Contains(" "+s+" ", " "+term+" ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
