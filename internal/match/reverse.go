package match

import (
	"regexp"
	"strings"
)

// Uploader suffixes that are platform artifacts, not part of the artist name.
var (
	topicSuffix  = regexp.MustCompile(`(?i)\s*-\s*topic$`)
	vevoSuffix   = regexp.MustCompile(`(?i)\s*vevo$`)
	artistDashed = regexp.MustCompile(`^(.+?)\s*[-–—]\s*(.+)$`)
)

// SearchQuery is a catalog query derived from source metadata.
type SearchQuery struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// String joins artist and title into a single free-text query.
func (q SearchQuery) String() string {
	return strings.TrimSpace(strings.TrimSpace(q.Artist) + " " + q.Title)
}

// DeriveQuery turns a source upload's title and uploader into a catalog
// search query. Noise annotations are stripped from the title, platform
// suffixes from the uploader, and "Artist - Title" patterns are split when
// the uploader gives no usable artist.
func DeriveQuery(title, uploader string) SearchQuery {
	title = strings.TrimSpace(title)

	artist := strings.TrimSpace(uploader)
	artist = topicSuffix.ReplaceAllString(artist, "")
	artist = vevoSuffix.ReplaceAllString(artist, "")
	artist = strings.TrimSpace(artist)

	for _, p := range noisePatterns {
		title = p.ReplaceAllString(title, "")
	}
	title = featuringPattern.ReplaceAllString(title, "")
	title = strings.TrimSpace(title)

	if m := artistDashed.FindStringSubmatch(title); m != nil {
		embedded := strings.TrimSpace(m[1])
		title = strings.TrimSpace(m[2])
		// The artist embedded in the title is more reliable than a
		// channel name.
		if embedded != "" {
			artist = embedded
		}
	}

	return SearchQuery{Title: title, Artist: artist}
}
