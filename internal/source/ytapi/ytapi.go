// Package ytapi resolves YouTube URLs through the innertube API, avoiding a
// yt-dlp subprocess for metadata-only lookups in the reverse flow.
package ytapi

import (
	"context"
	"fmt"

	"github.com/kkdai/youtube/v2"

	"tunegrab/internal/source"
)

// Resolver implements source.Resolver using the youtube client library.
type Resolver struct {
	client youtube.Client
}

// New creates a metadata resolver.
func New() *Resolver {
	return &Resolver{}
}

// Resolve fetches title, uploader and duration for a video URL or bare id.
func (r *Resolver) Resolve(ctx context.Context, urlOrID string) (source.Info, error) {
	video, err := r.client.GetVideoContext(ctx, urlOrID)
	if err != nil {
		return source.Info{}, fmt.Errorf("%w: resolve %s: %v", source.ErrUnavailable, urlOrID, err)
	}

	thumb := ""
	if n := len(video.Thumbnails); n > 0 {
		// Thumbnails are ordered smallest first.
		thumb = video.Thumbnails[n-1].URL
	}

	return source.Info{
		ID:           video.ID,
		Title:        video.Title,
		Uploader:     video.Author,
		DurationSec:  int(video.Duration.Seconds()),
		Thumbnail:    thumb,
		CanonicalURL: "https://www.youtube.com/watch?v=" + video.ID,
	}, nil
}
