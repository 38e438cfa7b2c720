// Package download drives asynchronous download jobs through their stages:
// resolve source, fetch audio, tag, place. It owns no state of its own;
// progress lives in the job tracker.
package download

import (
	"fmt"

	"tunegrab/internal/catalog"
)

// Location selects where a finished file ends up.
type Location string

const (
	// LocationLocal completes the job with a one-time retrieval link.
	LocationLocal Location = "local"
	// LocationLibrary places the file into the media-library tree.
	LocationLibrary Location = "library"
)

// ValidationError marks a malformed request, rejected before any job is
// created.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Request starts a single-track download. SourceID is an explicit user
// selection from a prior candidate listing; when empty the matcher resolves
// the source automatically.
type Request struct {
	TrackID  string   `json:"track_id"`
	SourceID string   `json:"source_id,omitempty"`
	Location Location `json:"location,omitempty"`
}

// Validate normalizes and checks the request.
func (r *Request) Validate() error {
	if r.TrackID == "" {
		return validationErrorf("track_id is required")
	}
	return validateLocation(&r.Location)
}

// AlbumRequest starts one job per track of an album.
type AlbumRequest struct {
	AlbumID  string   `json:"album_id"`
	Location Location `json:"location,omitempty"`
}

// Validate normalizes and checks the request.
func (r *AlbumRequest) Validate() error {
	if r.AlbumID == "" {
		return validationErrorf("album_id is required")
	}
	return validateLocation(&r.Location)
}

// ManualMetadata substitutes for a catalog track in the reverse flow when no
// acceptable catalog match exists.
type ManualMetadata struct {
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	AlbumArtist string `json:"album_artist,omitempty"`
	TrackNumber int    `json:"track_number,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
}

// Validate checks the required fields.
func (m *ManualMetadata) Validate() error {
	if m.Name == "" {
		return validationErrorf("manual metadata: name is required")
	}
	if m.Artist == "" {
		return validationErrorf("manual metadata: artist is required")
	}
	return nil
}

// track converts the manual fields into a catalog track snapshot, filling
// the defaults used for source-only material.
func (m *ManualMetadata) track(id string) catalog.Track {
	t := catalog.Track{
		ID:          id,
		Name:        m.Name,
		Artist:      m.Artist,
		Artists:     []string{m.Artist},
		Album:       m.Album,
		AlbumArtist: m.AlbumArtist,
		TrackNumber: m.TrackNumber,
		ReleaseDate: m.ReleaseDate,
	}
	if t.Album == "" {
		t.Album = "YouTube"
	}
	if t.AlbumArtist == "" {
		t.AlbumArtist = m.Artist
	}
	if t.TrackNumber == 0 {
		t.TrackNumber = 1
	}
	return t
}

// ReverseRequest starts a download from a source URL. Exactly one of TrackID
// (a selected catalog track) or Manual must be set.
type ReverseRequest struct {
	URL      string          `json:"url"`
	TrackID  string          `json:"track_id,omitempty"`
	Manual   *ManualMetadata `json:"manual,omitempty"`
	Location Location        `json:"location,omitempty"`
}

// Validate normalizes and checks the request.
func (r *ReverseRequest) Validate() error {
	if r.URL == "" {
		return validationErrorf("url is required")
	}
	if r.TrackID == "" && r.Manual == nil {
		return validationErrorf("either track_id or manual metadata is required")
	}
	if r.TrackID != "" && r.Manual != nil {
		return validationErrorf("track_id and manual metadata are mutually exclusive")
	}
	if r.Manual != nil {
		if err := r.Manual.Validate(); err != nil {
			return err
		}
	}
	return validateLocation(&r.Location)
}

func validateLocation(loc *Location) error {
	switch *loc {
	case "":
		*loc = LocationLocal
	case LocationLocal, LocationLibrary:
	default:
		return validationErrorf("unknown location %q", *loc)
	}
	return nil
}
