// Package spotify implements catalog.Provider on top of the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"tunegrab/internal/catalog"
)

// Client wraps the Spotify Web API with client-credentials auth and a small
// request rate limiter so bulk album downloads don't trip API throttling.
type Client struct {
	api     *spotify.Client
	limiter *rate.Limiter
}

// New creates a Spotify catalog client. The underlying oauth2 transport
// refreshes the client-credentials token as needed.
func New(ctx context.Context, clientID, clientSecret string) *Client {
	authCfg := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	httpClient := authCfg.Client(ctx)
	return &Client{
		api:     spotify.New(httpClient),
		limiter: rate.NewLimiter(rate.Limit(8), 16),
	}
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}
	return nil
}

// SearchTracks queries the catalog for tracks matching query.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]catalog.Track, error) {
	if limit <= 0 {
		limit = 20
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	res, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: track search: %v", catalog.ErrUnavailable, err)
	}
	if res.Tracks == nil {
		return nil, nil
	}

	tracks := make([]catalog.Track, 0, len(res.Tracks.Tracks))
	for _, ft := range res.Tracks.Tracks {
		tracks = append(tracks, transformTrack(ft))
	}
	return tracks, nil
}

// SearchAlbums queries the catalog for albums matching query. Album track
// listings are not populated here; use GetAlbum for the full listing.
func (c *Client) SearchAlbums(ctx context.Context, query string, limit int) ([]catalog.Album, error) {
	if limit <= 0 {
		limit = 20
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	res, err := c.api.Search(ctx, query, spotify.SearchTypeAlbum, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: album search: %v", catalog.ErrUnavailable, err)
	}
	if res.Albums == nil {
		return nil, nil
	}

	albums := make([]catalog.Album, 0, len(res.Albums.Albums))
	for _, sa := range res.Albums.Albums {
		albums = append(albums, catalog.Album{
			ID:          string(sa.ID),
			Name:        sa.Name,
			Artist:      joinArtists(sa.Artists),
			ReleaseDate: sa.ReleaseDate,
			ArtworkURL:  largestImage(sa.Images),
		})
	}
	return albums, nil
}

// GetTrack fetches one canonical track by id.
func (c *Client) GetTrack(ctx context.Context, id string) (catalog.Track, error) {
	if err := c.wait(ctx); err != nil {
		return catalog.Track{}, err
	}

	ft, err := c.api.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		if isNotFound(err) {
			return catalog.Track{}, fmt.Errorf("track %s: %w", id, catalog.ErrNotFound)
		}
		return catalog.Track{}, fmt.Errorf("%w: get track %s: %v", catalog.ErrUnavailable, id, err)
	}
	return transformTrack(*ft), nil
}

// GetAlbum fetches an album with its complete track listing. Album-level
// fields (name, artwork, release date) are denormalized onto each track.
func (c *Client) GetAlbum(ctx context.Context, id string) (catalog.Album, error) {
	if err := c.wait(ctx); err != nil {
		return catalog.Album{}, err
	}

	fa, err := c.api.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		if isNotFound(err) {
			return catalog.Album{}, fmt.Errorf("album %s: %w", id, catalog.ErrNotFound)
		}
		return catalog.Album{}, fmt.Errorf("%w: get album %s: %v", catalog.ErrUnavailable, id, err)
	}

	album := catalog.Album{
		ID:          string(fa.ID),
		Name:        fa.Name,
		Artist:      joinArtists(fa.Artists),
		ReleaseDate: fa.ReleaseDate,
		ArtworkURL:  largestImage(fa.Images),
	}

	for _, st := range fa.Tracks.Tracks {
		album.Tracks = append(album.Tracks, catalog.Track{
			ID:          string(st.ID),
			Name:        st.Name,
			Artist:      joinArtists(st.Artists),
			Artists:     artistNames(st.Artists),
			Album:       fa.Name,
			AlbumArtist: album.Artist,
			TrackNumber: int(st.TrackNumber),
			DurationMS:  int(st.Duration),
			ReleaseDate: fa.ReleaseDate,
			ArtworkURL:  album.ArtworkURL,
			ExternalURL: st.ExternalURLs["spotify"],
		})
	}
	return album, nil
}

func transformTrack(ft spotify.FullTrack) catalog.Track {
	albumArtist := joinArtists(ft.Album.Artists)
	if albumArtist == "" {
		albumArtist = joinArtists(ft.Artists)
	}
	return catalog.Track{
		ID:          string(ft.ID),
		Name:        ft.Name,
		Artist:      joinArtists(ft.Artists),
		Artists:     artistNames(ft.Artists),
		Album:       ft.Album.Name,
		AlbumArtist: albumArtist,
		TrackNumber: int(ft.TrackNumber),
		DurationMS:  int(ft.Duration),
		ReleaseDate: ft.Album.ReleaseDate,
		ArtworkURL:  largestImage(ft.Album.Images),
		ExternalURL: ft.ExternalURLs["spotify"],
	}
}

func artistNames(artists []spotify.SimpleArtist) []string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return names
}

func joinArtists(artists []spotify.SimpleArtist) string {
	return strings.Join(artistNames(artists), ", ")
}

// largestImage returns the first image URL; the API orders images largest
// first.
func largestImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func isNotFound(err error) bool {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound
	}
	return false
}
