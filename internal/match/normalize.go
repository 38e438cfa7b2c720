package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Annotations commonly appended to upload titles that carry no signal for
// matching.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\s*[\(\[]official\s+(music\s+)?video[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]official\s+audio[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]official\s+lyric\s+video[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]official\s+visualizer[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]lyrics?[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]lyric\s+video[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]visual(?:izer)?[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]audio[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]hd[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]hq[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]4k[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]explicit[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]clean[\)\]]`),
	regexp.MustCompile(`(?i)\s*[\(\[]full\s+album[\)\]]`),
}

var featuringPattern = regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:feat\.?|ft\.?|featuring)\s+([^\)\]]+)[\)\]]`)

var whitespacePattern = regexp.MustCompile(`\s+`)

// stripMarks removes combining marks after NFD decomposition, folding
// diacritics ("Beyoncé" -> "Beyonce").
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize prepares a string for comparison: noise annotations removed,
// lowercased, diacritics folded, punctuation dropped, whitespace collapsed.
func Normalize(s string) string {
	for _, p := range noisePatterns {
		s = p.ReplaceAllString(s, "")
	}
	s = featuringPattern.ReplaceAllString(s, "")

	s = strings.ToLower(s)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(b.String(), " "))
}

// tokenize splits a normalized string into its words.
func tokenize(s string) []string {
	return strings.Fields(s)
}
