// Package lyrics fetches lyric text for catalog tracks from LRCLib.
package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tunegrab/internal/catalog"
)

const maxAttempts = 2

type Client struct {
	httpClient *http.Client
	apiURL     string
	retryDelay time.Duration
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     "https://lrclib.net/api/get",
		retryDelay: 2 * time.Second,
	}
}

// FetchTrack returns the best available lyric text for a track: synced LRC
// when present, plain text otherwise. Returns "" (no error) when LRCLib has
// nothing for the track. Transient network errors are retried once; API
// errors are not, they would fail identically.
func (c *Client) FetchTrack(ctx context.Context, track catalog.Track) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", lastErr
			case <-time.After(c.retryDelay):
			}
		}

		text, err := c.fetch(ctx, track)
		if err == nil {
			return text, nil
		}
		if !isTransient(err) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// isTransient reports whether the error is network-level (timeout,
// connection reset) rather than an API response.
func isTransient(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

func (c *Client) fetch(ctx context.Context, track catalog.Track) (string, error) {
	params := url.Values{}
	params.Set("artist_name", track.Artist)
	params.Set("track_name", track.Name)
	params.Set("album_name", track.Album)
	if track.DurationMS > 0 {
		// Duration narrows ambiguous title/artist pairs to the right
		// recording.
		params.Set("duration", strconv.Itoa(track.DurationMS/1000))
	}

	reqURL := fmt.Sprintf("%s?%s", c.apiURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create lrclib request: %w", err)
	}
	req.Header.Set("User-Agent", "tunegrab/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lrclib request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("lrclib returned status %d", resp.StatusCode)
	}

	var apiResp struct {
		SyncedLyrics string `json:"syncedLyrics"`
		PlainLyrics  string `json:"plainLyrics"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", fmt.Errorf("failed to decode lrclib response: %w", err)
	}

	if apiResp.SyncedLyrics != "" {
		return apiResp.SyncedLyrics, nil
	}
	return apiResp.PlainLyrics, nil
}
