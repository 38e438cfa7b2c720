package history

import (
	"os"
	"path/filepath"
	"testing"

	"tunegrab/internal/catalog"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndLookup(t *testing.T) {
	s := openTestStore(t)
	track := catalog.Track{ID: "t1", Name: "Yesterday", Artist: "The Beatles", Album: "Help!"}

	if err := s.Record(track, "/music/beatles/yesterday.mp3"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	path, err := s.Lookup("t1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if path != "/music/beatles/yesterday.mp3" {
		t.Errorf("path = %q", path)
	}
}

func TestLookupAbsent(t *testing.T) {
	s := openTestStore(t)
	path, err := s.Lookup("nope")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
}

func TestRecordReplacesPath(t *testing.T) {
	s := openTestStore(t)
	track := catalog.Track{ID: "t1", Name: "X", Artist: "Y"}

	s.Record(track, "/old.mp3")
	if err := s.Record(track, "/new.mp3"); err != nil {
		t.Fatalf("second Record: %v", err)
	}

	path, _ := s.Lookup("t1")
	if path != "/new.mp3" {
		t.Errorf("path = %q, want /new.mp3", path)
	}
}

func TestExistsLocally(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	real := filepath.Join(dir, "real.mp3")
	if err := os.WriteFile(real, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	s.Record(catalog.Track{ID: "present", Name: "A", Artist: "B"}, real)
	s.Record(catalog.Track{ID: "stale", Name: "C", Artist: "D"}, filepath.Join(dir, "gone.mp3"))

	if ok, _ := s.ExistsLocally("present"); !ok {
		t.Error("present track reported absent")
	}
	if ok, _ := s.ExistsLocally("stale"); ok {
		t.Error("stale record with missing file reported present")
	}
	if ok, _ := s.ExistsLocally("never"); ok {
		t.Error("unknown track reported present")
	}
}
