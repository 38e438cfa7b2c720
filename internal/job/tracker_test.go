package job

import (
	"errors"
	"testing"
	"time"

	"tunegrab/internal/catalog"
)

func testTrack(id string, num int) catalog.Track {
	return catalog.Track{ID: id, Name: "Song " + id, Artist: "Artist", TrackNumber: num}
}

func TestCreateThenGet(t *testing.T) {
	tr := NewTracker(0)

	created, err := tr.Create("t1", testTrack("t1", 1), "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Status != StatusQueued || created.Progress != 0 {
		t.Errorf("created job = %s/%d, want queued/0", created.Status, created.Progress)
	}

	got, err := tr.Get("t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusQueued || got.Progress != 0 {
		t.Errorf("got job = %s/%d, want queued/0", got.Status, got.Progress)
	}
	if got.Track.Name != "Song t1" {
		t.Errorf("track snapshot missing: %+v", got.Track)
	}
}

func TestCreateDuplicate(t *testing.T) {
	tr := NewTracker(0)

	if _, err := tr.Create("t1", testTrack("t1", 1), ""); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := tr.Create("t1", testTrack("t1", 1), ""); !errors.Is(err, ErrDuplicate) {
		t.Errorf("second Create error = %v, want ErrDuplicate", err)
	}
}

func TestCreateReplacesTerminal(t *testing.T) {
	tr := NewTracker(0)

	if _, err := tr.Create("t1", testTrack("t1", 1), ""); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := tr.Complete("t1", "done", Result{FilePath: "/x"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	fresh, err := tr.Create("t1", testTrack("t1", 1), "")
	if err != nil {
		t.Fatalf("Create after terminal: %v", err)
	}
	if fresh.Status != StatusQueued || fresh.Progress != 0 {
		t.Errorf("replacement job = %s/%d, want queued/0", fresh.Status, fresh.Progress)
	}
}

func TestGetUnknown(t *testing.T) {
	tr := NewTracker(0)
	if _, err := tr.Get("nope"); !errors.Is(err, ErrUnknown) {
		t.Errorf("Get error = %v, want ErrUnknown", err)
	}
}

func TestAdvanceUnknown(t *testing.T) {
	tr := NewTracker(0)
	if err := tr.Advance("nope", StageFetching, "x", 10); !errors.Is(err, ErrUnknown) {
		t.Errorf("Advance error = %v, want ErrUnknown", err)
	}
}

func TestProgressRegressionRejected(t *testing.T) {
	tr := NewTracker(0)
	tr.Create("t1", testTrack("t1", 1), "")

	if err := tr.Advance("t1", StageFetching, "downloading", 50); err != nil {
		t.Fatalf("Advance to 50: %v", err)
	}
	if err := tr.Advance("t1", StageFetching, "downloading", 30); !errors.Is(err, ErrProgressRegression) {
		t.Errorf("regressing Advance error = %v, want ErrProgressRegression", err)
	}

	got, _ := tr.Get("t1")
	if got.Progress != 50 {
		t.Errorf("progress after rejected update = %d, want 50", got.Progress)
	}
}

func TestCompleteForcesProgress(t *testing.T) {
	tr := NewTracker(0)
	tr.Create("t1", testTrack("t1", 1), "")
	tr.Advance("t1", StageTagging, "tagging", 85)

	if err := tr.Complete("t1", "done", Result{DownloadURL: "/api/download/file/t1"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, _ := tr.Get("t1")
	if got.Status != StatusCompleted || got.Progress != 100 {
		t.Errorf("job = %s/%d, want completed/100", got.Status, got.Progress)
	}
	if got.Result.DownloadURL == "" {
		t.Error("result not recorded")
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
}

func TestFailKeepsProgress(t *testing.T) {
	tr := NewTracker(0)
	tr.Create("t1", testTrack("t1", 1), "")
	tr.Advance("t1", StageFetching, "downloading", 40)

	if err := tr.Fail("t1", "network down"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	got, _ := tr.Get("t1")
	if got.Status != StatusError {
		t.Errorf("status = %s, want error", got.Status)
	}
	if got.Progress != 40 {
		t.Errorf("progress = %d, want 40 (unchanged)", got.Progress)
	}
	if got.Error != "network down" {
		t.Errorf("error detail = %q", got.Error)
	}
}

func TestAdvanceAfterTerminal(t *testing.T) {
	tr := NewTracker(0)
	tr.Create("t1", testTrack("t1", 1), "")
	tr.Fail("t1", "boom")

	if err := tr.Advance("t1", StageTagging, "x", 90); !errors.Is(err, ErrUnknown) {
		t.Errorf("Advance on terminal job error = %v, want ErrUnknown", err)
	}
}

func TestSweepEvictsStaleTerminal(t *testing.T) {
	tr := NewTracker(time.Minute)
	tr.Create("done", testTrack("done", 1), "")
	tr.Complete("done", "done", Result{})
	tr.Create("active", testTrack("active", 2), "")

	// Backdate the terminal job past the retention window.
	tr.mu.Lock()
	old := time.Now().Add(-2 * time.Minute)
	tr.jobs["done"].CompletedAt = &old
	tr.mu.Unlock()

	tr.Sweep()

	if _, err := tr.Get("done"); !errors.Is(err, ErrUnknown) {
		t.Errorf("stale terminal job not evicted: %v", err)
	}
	if _, err := tr.Get("active"); err != nil {
		t.Errorf("active job evicted: %v", err)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	tr := NewTracker(0)
	tr.Create("t1", testTrack("t1", 1), "")

	ch := tr.Subscribe("t1")
	defer tr.Unsubscribe("t1", ch)

	tr.Advance("t1", StageFetching, "downloading", 30)

	select {
	case snap := <-ch:
		if snap.Progress != 30 || snap.Stage != StageFetching {
			t.Errorf("snapshot = %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
}

func TestAlbumGrouping(t *testing.T) {
	tr := NewTracker(0)
	tr.Create("b", testTrack("b", 2), "album1")
	tr.Create("a", testTrack("a", 1), "album1")
	tr.Create("c", testTrack("c", 3), "album2")

	jobs := tr.Album("album1")
	if len(jobs) != 2 {
		t.Fatalf("album1 jobs = %d, want 2", len(jobs))
	}
	if jobs[0].Track.TrackNumber != 1 || jobs[1].Track.TrackNumber != 2 {
		t.Errorf("jobs not ordered by track number: %d, %d",
			jobs[0].Track.TrackNumber, jobs[1].Track.TrackNumber)
	}
}

func TestConcurrentUpdatesDistinctJobs(t *testing.T) {
	tr := NewTracker(0)
	const n = 20

	done := make(chan struct{})
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		tr.Create(id, testTrack(id, i+1), "")
		go func(id string) {
			defer func() { done <- struct{}{} }()
			for p := 10; p <= 90; p += 10 {
				if err := tr.Advance(id, StageFetching, "working", p); err != nil {
					t.Errorf("Advance %s: %v", id, err)
					return
				}
			}
			tr.Complete(id, "done", Result{})
		}(id)
	}

	for i := 0; i < n; i++ {
		<-done
	}
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		got, err := tr.Get(id)
		if err != nil {
			t.Fatalf("Get %s: %v", id, err)
		}
		if got.Status != StatusCompleted || got.Progress != 100 {
			t.Errorf("job %s = %s/%d, want completed/100", id, got.Status, got.Progress)
		}
	}
}
