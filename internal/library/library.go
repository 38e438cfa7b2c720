// Package library places finished audio files into the media-library
// directory tree and nudges the library server to index them.
package library

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"tunegrab/internal/config"
	"tunegrab/internal/logger"
	"tunegrab/pkg/utils"
)

// ErrPlacement indicates the file could not be moved into the library tree.
var ErrPlacement = errors.New("library placement failed")

// Placer moves files into an Artist/Album structure under Root and triggers
// a rescan on the configured library server. Rescan is best-effort.
type Placer struct {
	Root       string
	server     config.LibraryServerConfig
	httpClient *http.Client
	log        *logger.Logger
}

// NewPlacer creates a Placer rooted at root. An empty server URL disables
// rescan triggering.
func NewPlacer(root string, server config.LibraryServerConfig, log *logger.Logger) *Placer {
	return &Placer{
		Root:       root,
		server:     server,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Place moves the file into Root/Artist/Album/, sanitizing path segments,
// and returns the final path.
func (p *Placer) Place(path, artist, album string) (string, error) {
	if artist == "" {
		artist = "Unknown Artist"
	}
	if album == "" {
		album = "Unknown Album"
	}

	dest := filepath.Join(p.Root, utils.SanitizePath(artist), utils.SanitizePath(album), filepath.Base(path))
	if err := utils.MoveFile(path, dest); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPlacement, err)
	}
	return dest, nil
}

// TriggerRescan asks the library server to start a scan via its Subsonic
// endpoint. Callers treat failures as non-fatal.
func (p *Placer) TriggerRescan(ctx context.Context) error {
	if p.server.URL == "" {
		return nil
	}

	salt := randomSalt()
	token := fmt.Sprintf("%x", md5.Sum([]byte(p.server.Password+salt)))

	params := url.Values{}
	params.Set("u", p.server.Username)
	params.Set("t", token)
	params.Set("s", salt)
	params.Set("v", "1.16.1")
	params.Set("c", "tunegrab")
	params.Set("f", "json")

	reqURL := fmt.Sprintf("%s/rest/startScan?%s", p.server.URL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create rescan request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rescan request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rescan returned status %d", resp.StatusCode)
	}

	p.log.Debugf("library rescan triggered on %s", p.server.URL)
	return nil
}

func randomSalt() string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
