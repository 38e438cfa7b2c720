// Package catalog defines the metadata-rich music search service the rest of
// the application matches against. Provider implementations live in
// sub-packages; the interface is defined here, where it is consumed.
package catalog

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the catalog service could not be reached or
// refused the request (rate limiting included). Callers decide retry policy.
var ErrUnavailable = errors.New("catalog unavailable")

// ErrNotFound indicates the requested track or album does not exist.
var ErrNotFound = errors.New("not found in catalog")

// Track is a canonical catalog track. Immutable once fetched.
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artist      string   `json:"artist"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album"`
	AlbumArtist string   `json:"album_artist"`
	TrackNumber int      `json:"track_number"`
	DurationMS  int      `json:"duration_ms"`
	ReleaseDate string   `json:"release_date"`
	ArtworkURL  string   `json:"artwork_url,omitempty"`
	ExternalURL string   `json:"external_url,omitempty"`
}

// Album is a catalog album with its full track listing.
type Album struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Artist      string  `json:"artist"`
	ReleaseDate string  `json:"release_date"`
	ArtworkURL  string  `json:"artwork_url,omitempty"`
	Tracks      []Track `json:"tracks"`
}

// Provider is the catalog search service boundary.
type Provider interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]Track, error)
	SearchAlbums(ctx context.Context, query string, limit int) ([]Album, error)
	GetTrack(ctx context.Context, id string) (Track, error)
	GetAlbum(ctx context.Context, id string) (Album, error)
}
