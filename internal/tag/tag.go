// Package tag writes catalog metadata, artwork and lyrics into downloaded
// audio files.
package tag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.senan.xyz/taglib"

	"tunegrab/internal/catalog"
	"tunegrab/internal/logger"
	"tunegrab/internal/lyrics"
)

// ErrWrite indicates the tag library could not write to the file.
var ErrWrite = errors.New("tag write failed")

// Applier stamps a file with a track's metadata. Artwork and lyrics are
// best-effort: their failures are logged, never fatal.
type Applier struct {
	httpClient  *http.Client
	lyrics      *lyrics.Client
	embedLyrics bool
	log         *logger.Logger
}

// NewApplier creates an Applier. lyricsClient may be nil when lyric
// embedding is disabled.
func NewApplier(lyricsClient *lyrics.Client, embedLyrics bool, log *logger.Logger) *Applier {
	return &Applier{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		lyrics:      lyricsClient,
		embedLyrics: embedLyrics,
		log:         log,
	}
}

// Apply writes the track's tags to the file, then embeds artwork and lyrics
// when available.
func (a *Applier) Apply(ctx context.Context, path string, track catalog.Track) error {
	if err := writeTags(path, track); err != nil {
		return err
	}

	if track.ArtworkURL != "" {
		if err := a.embedArtwork(ctx, path, track.ArtworkURL); err != nil {
			a.log.Warnf("failed to embed artwork for %s: %v", path, err)
		}
	}

	if a.embedLyrics && a.lyrics != nil {
		if err := a.embedTrackLyrics(ctx, path, track); err != nil {
			a.log.Warnf("failed to embed lyrics for %s: %v", path, err)
		}
	}

	return nil
}

func writeTags(path string, track catalog.Track) error {
	tags := make(map[string][]string)

	if track.Name != "" {
		tags[taglib.Title] = []string{track.Name}
	}
	if track.Artist != "" {
		tags[taglib.Artist] = []string{track.Artist}
	}
	if track.Album != "" {
		tags[taglib.Album] = []string{track.Album}
	}
	if track.AlbumArtist != "" {
		tags[taglib.AlbumArtist] = []string{track.AlbumArtist}
	}
	if track.TrackNumber > 0 {
		tags[taglib.TrackNumber] = []string{strconv.Itoa(track.TrackNumber)}
	}
	if track.ReleaseDate != "" {
		tags[taglib.Date] = []string{track.ReleaseDate}
	}

	if err := taglib.WriteTags(path, tags, 0); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWrite, path, err)
	}
	return nil
}

func (a *Applier) embedArtwork(ctx context.Context, path, artworkURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create artwork request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("artwork download returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read artwork data: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	if err := taglib.WriteImage(path, data); err != nil {
		return fmt.Errorf("failed to write artwork: %w", err)
	}
	return nil
}

func (a *Applier) embedTrackLyrics(ctx context.Context, path string, track catalog.Track) error {
	text, err := a.lyrics.FetchTrack(ctx, track)
	if err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	if err := taglib.WriteTags(path, map[string][]string{"LYRICS": {text}}, 0); err != nil {
		return fmt.Errorf("%w: lyrics: %v", ErrWrite, err)
	}
	return nil
}
