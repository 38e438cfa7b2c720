package library

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tunegrab/internal/config"
	"tunegrab/internal/logger"
)

func TestPlace(t *testing.T) {
	root := t.TempDir()
	staging := t.TempDir()
	p := NewPlacer(root, config.LibraryServerConfig{}, logger.NewNop())

	src := filepath.Join(staging, "track.mp3")
	if err := os.WriteFile(src, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	dest, err := p.Place(src, "AC/DC", "Back in Black")
	if err != nil {
		t.Fatalf("Place: %v", err)
	}

	want := filepath.Join(root, "AC_DC", "Back in Black", "track.mp3")
	if dest != want {
		t.Errorf("dest = %q, want %q", dest, want)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("placed file missing: %v", err)
	}
}

func TestPlaceDefaultsUnknown(t *testing.T) {
	root := t.TempDir()
	staging := t.TempDir()
	p := NewPlacer(root, config.LibraryServerConfig{}, logger.NewNop())

	src := filepath.Join(staging, "track.mp3")
	if err := os.WriteFile(src, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}

	dest, err := p.Place(src, "", "")
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	want := filepath.Join(root, "Unknown Artist", "Unknown Album", "track.mp3")
	if dest != want {
		t.Errorf("dest = %q, want %q", dest, want)
	}
}

func TestPlaceMissingSource(t *testing.T) {
	p := NewPlacer(t.TempDir(), config.LibraryServerConfig{}, logger.NewNop())
	if _, err := p.Place("/does/not/exist.mp3", "A", "B"); err == nil {
		t.Error("expected placement error")
	}
}

func TestTriggerRescan(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPlacer(t.TempDir(), config.LibraryServerConfig{
		URL:      srv.URL,
		Username: "admin",
		Password: "secret",
	}, logger.NewNop())

	if err := p.TriggerRescan(context.Background()); err != nil {
		t.Fatalf("TriggerRescan: %v", err)
	}
	if gotPath != "/rest/startScan" {
		t.Errorf("path = %q", gotPath)
	}
	if len(gotQuery["u"]) == 0 || gotQuery["u"][0] != "admin" {
		t.Errorf("missing username param: %v", gotQuery)
	}
	if len(gotQuery["t"]) == 0 || len(gotQuery["s"]) == 0 {
		t.Error("missing token auth params")
	}
}

func TestTriggerRescanDisabled(t *testing.T) {
	p := NewPlacer(t.TempDir(), config.LibraryServerConfig{}, logger.NewNop())
	if err := p.TriggerRescan(context.Background()); err != nil {
		t.Errorf("disabled rescan should be a no-op, got %v", err)
	}
}
