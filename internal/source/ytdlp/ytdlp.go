// Package ytdlp adapts the yt-dlp command line tool as a source.Searcher,
// source.Fetcher and source.Resolver.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"

	"tunegrab/internal/logger"
	"tunegrab/internal/source"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Client shells out to yt-dlp. Format and Quality control the audio
// post-processing applied on fetch.
type Client struct {
	Format  string
	Quality string
	Logger  *logger.Logger
}

// New creates a yt-dlp client producing audio in the given format.
func New(format, quality string, log *logger.Logger) *Client {
	return &Client{Format: format, Quality: quality, Logger: log}
}

// CheckInstalled verifies yt-dlp is available on PATH.
func CheckInstalled() error {
	if _, err := exec.LookPath("yt-dlp"); err != nil {
		return fmt.Errorf("required command 'yt-dlp' not found in PATH. Install with: pip install yt-dlp")
	}
	return nil
}

type searchEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Channel    string  `json:"channel"`
	Uploader   string  `json:"uploader"`
	Duration   float64 `json:"duration"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
	Thumbnail  string  `json:"thumbnail"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

type searchResult struct {
	Entries []searchEntry `json:"entries"`
}

// Search runs a flat ytsearch and returns candidates in provider order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]source.Candidate, error) {
	if limit <= 0 {
		limit = 8
	}

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-J",
		"--flat-playlist",
		"--no-warnings",
		fmt.Sprintf("ytsearch%d:%s", limit, query),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: search cancelled", source.ErrUnavailable)
		}
		return nil, fmt.Errorf("%w: yt-dlp search: %v\nDetails: %s", source.ErrUnavailable, err, stderr.String())
	}

	var result searchResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse yt-dlp output: %v", source.ErrUnavailable, err)
	}

	candidates := make([]source.Candidate, 0, len(result.Entries))
	for i, e := range result.Entries {
		if e.ID == "" {
			continue
		}
		candidates = append(candidates, source.Candidate{
			ID:          e.ID,
			Title:       e.Title,
			Channel:     e.channelName(),
			DurationSec: int(e.Duration),
			Thumbnail:   e.thumbnailURL(),
			Origin:      "youtube",
			Rank:        i + 1,
			URL:         watchURLPrefix + e.ID,
		})
	}

	c.Logger.Debugf("yt-dlp search %q returned %d candidates", query, len(candidates))
	return candidates, nil
}

func (e searchEntry) channelName() string {
	if e.Channel != "" {
		return e.Channel
	}
	return e.Uploader
}

func (e searchEntry) thumbnailURL() string {
	if e.Thumbnail != "" {
		return e.Thumbnail
	}
	// Flat entries list thumbnails smallest first; take the last.
	if n := len(e.Thumbnails); n > 0 {
		return e.Thumbnails[n-1].URL
	}
	return ""
}

// Fetch downloads one recording as audio. destBase is the output path
// without extension; the actual file written is returned.
func (c *Client) Fetch(ctx context.Context, sourceID, destBase string) (string, error) {
	args := []string{
		"--extract-audio",
		"--audio-format", c.Format,
		"-f", "bestaudio[ext=m4a]/bestaudio/best",
		"--retries", "10",
		"--fragment-retries", "10",
		"--no-playlist",
		"--no-warnings",
		"-o", destBase + ".%(ext)s",
		canonicalURL(sourceID),
	}
	if c.Quality != "" {
		args = append([]string{"--audio-quality", c.Quality}, args...)
	}

	cmd := exec.CommandContext(ctx, "yt-dlp", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: download cancelled", source.ErrFetch)
		}
		return "", fmt.Errorf("%w: yt-dlp: %v\nDetails: %s", source.ErrFetch, err, stderr.String())
	}

	path, err := locateOutput(destBase, c.Format)
	if err != nil {
		return "", fmt.Errorf("%w: %v", source.ErrFetch, err)
	}

	c.Logger.Debugf("fetched %s to %s", sourceID, path)
	return path, nil
}

// locateOutput finds the file yt-dlp actually wrote. The requested format is
// checked first; the passthrough containers cover the case where no
// re-encode happened.
func locateOutput(destBase, format string) (string, error) {
	exts := []string{format, "m4a", "webm", "opus", "mp3"}
	for _, ext := range exts {
		path := destBase + "." + ext
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("downloaded file not found, expected %s.%s", destBase, format)
}

type videoInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Uploader   string  `json:"uploader"`
	Channel    string  `json:"channel"`
	Duration   float64 `json:"duration"`
	WebpageURL string  `json:"webpage_url"`
	Thumbnail  string  `json:"thumbnail"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

// Resolve extracts metadata for a URL or bare video id without downloading.
func (c *Client) Resolve(ctx context.Context, urlOrID string) (source.Info, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-J",
		"--no-playlist",
		"--no-warnings",
		"--skip-download",
		canonicalURL(urlOrID),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return source.Info{}, fmt.Errorf("%w: resolve cancelled", source.ErrUnavailable)
		}
		return source.Info{}, fmt.Errorf("%w: yt-dlp resolve: %v\nDetails: %s", source.ErrUnavailable, err, stderr.String())
	}

	var info videoInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return source.Info{}, fmt.Errorf("%w: failed to parse yt-dlp output: %v", source.ErrUnavailable, err)
	}

	uploader := info.Uploader
	if uploader == "" {
		uploader = info.Channel
	}
	thumb := info.Thumbnail
	if thumb == "" && len(info.Thumbnails) > 0 {
		thumb = info.Thumbnails[len(info.Thumbnails)-1].URL
	}
	canonical := info.WebpageURL
	if canonical == "" {
		canonical = watchURLPrefix + info.ID
	}

	return source.Info{
		ID:           info.ID,
		Title:        info.Title,
		Uploader:     uploader,
		DurationSec:  int(info.Duration),
		Thumbnail:    thumb,
		CanonicalURL: canonical,
	}, nil
}

// canonicalURL builds a watch URL when given a bare video id.
func canonicalURL(urlOrID string) string {
	if videoIDPattern.MatchString(urlOrID) {
		return watchURLPrefix + urlOrID
	}
	return urlOrID
}
