// Package source defines the audio-hosting platform boundary: searching for
// candidate recordings, fetching audio, and resolving URL metadata for the
// reverse flow. Adapters live in sub-packages.
package source

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the source platform could not be searched.
var ErrUnavailable = errors.New("source unavailable")

// ErrFetch indicates a download/transcode failure for a specific recording.
var ErrFetch = errors.New("source fetch failed")

// Candidate is one search result being evaluated as a match for a catalog
// track. Score is filled in by the matcher, not the search adapter.
type Candidate struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Channel     string  `json:"channel"`
	DurationSec int     `json:"duration"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Origin      string  `json:"origin"`
	Rank        int     `json:"rank"`
	Score       float64 `json:"score"`
	URL         string  `json:"url"`
}

// Info is resolved metadata for a single source URL (reverse flow).
type Info struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Uploader     string `json:"uploader"`
	DurationSec  int    `json:"duration"`
	Thumbnail    string `json:"thumbnail,omitempty"`
	CanonicalURL string `json:"canonical_url"`
}

// Searcher finds candidate recordings for a free-text query, ordered by
// provider relevance.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// Fetcher downloads one recording as audio. destBase is the desired output
// path without extension; the returned path is the actual file written.
type Fetcher interface {
	Fetch(ctx context.Context, sourceID, destBase string) (string, error)
}

// Resolver extracts metadata for a source URL or bare recording id without
// downloading.
type Resolver interface {
	Resolve(ctx context.Context, urlOrID string) (Info, error)
}

// Fallback resolves with Primary and falls back to Secondary when Primary
// fails. The API resolver is cheap but brittle against player changes; the
// downloader-backed resolver is slower but keeps the reverse flow working.
type Fallback struct {
	Primary   Resolver
	Secondary Resolver
}

// Resolve implements Resolver.
func (f Fallback) Resolve(ctx context.Context, urlOrID string) (Info, error) {
	info, err := f.Primary.Resolve(ctx, urlOrID)
	if err == nil {
		return info, nil
	}
	if f.Secondary == nil {
		return Info{}, err
	}
	info, ferr := f.Secondary.Resolve(ctx, urlOrID)
	if ferr != nil {
		return Info{}, errors.Join(err, ferr)
	}
	return info, nil
}
