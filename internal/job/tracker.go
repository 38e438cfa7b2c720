package job

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tunegrab/internal/catalog"
)

// DefaultRetention is how long terminal jobs stay queryable before eviction.
const DefaultRetention = 5 * time.Second

const sweepInterval = 1 * time.Second

// Tracker is an in-memory job registry. All methods are safe for concurrent
// use; a successful mutation is visible to every subsequent Get.
type Tracker struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	listeners map[string][]chan Job
	retention time.Duration
}

// NewTracker creates a Tracker. Non-positive retention falls back to
// DefaultRetention.
func NewTracker(retention time.Duration) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{
		jobs:      make(map[string]*Job),
		listeners: make(map[string][]chan Job),
		retention: retention,
	}
}

// Create inserts a new queued job for the identifier. An existing
// non-terminal job for the same identifier fails with ErrDuplicate; a stale
// terminal one is replaced.
func (t *Tracker) Create(id string, track catalog.Track, albumID string) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.jobs[id]; ok && !existing.Status.Terminal() {
		return Job{}, fmt.Errorf("job %s: %w", id, ErrDuplicate)
	}

	now := time.Now()
	j := &Job{
		ID:        id,
		Status:    StatusQueued,
		Message:   "queued",
		Track:     track,
		AlbumID:   albumID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	t.jobs[id] = j
	t.notify(id, *j)
	return *j, nil
}

// Advance moves a job through a processing stage. Progress must not regress
// while the job is non-terminal.
func (t *Tracker) Advance(id string, stage Stage, message string, progress int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrUnknown)
	}
	if j.Status.Terminal() {
		return fmt.Errorf("job %s is %s: %w", id, j.Status, ErrUnknown)
	}
	if progress < j.Progress {
		return fmt.Errorf("job %s: %d -> %d: %w", id, j.Progress, progress, ErrProgressRegression)
	}

	j.Status = StatusProcessing
	j.Stage = stage
	j.Message = message
	j.Progress = progress
	j.UpdatedAt = time.Now()
	t.notify(id, *j)
	return nil
}

// Complete marks a job completed with its result. Progress is forced to 100.
func (t *Tracker) Complete(id, message string, result Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrUnknown)
	}
	if j.Status.Terminal() {
		return fmt.Errorf("job %s is %s: %w", id, j.Status, ErrUnknown)
	}

	now := time.Now()
	j.Status = StatusCompleted
	j.Message = message
	j.Progress = 100
	j.Result = result
	j.UpdatedAt = now
	j.CompletedAt = &now
	t.notify(id, *j)
	return nil
}

// Fail marks a job failed. Progress keeps its last pre-failure value so a
// poller can see how far the job got.
func (t *Tracker) Fail(id, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	j, ok := t.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrUnknown)
	}
	if j.Status.Terminal() {
		return fmt.Errorf("job %s is %s: %w", id, j.Status, ErrUnknown)
	}

	now := time.Now()
	j.Status = StatusError
	j.Message = message
	j.Error = message
	j.UpdatedAt = now
	j.CompletedAt = &now
	t.notify(id, *j)
	return nil
}

// Get returns a snapshot of the job for polling clients.
func (t *Tracker) Get(id string) (Job, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	j, ok := t.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("job %s: %w", id, ErrUnknown)
	}
	return *j, nil
}

// Album returns snapshots of all jobs belonging to an album download,
// ordered by track number.
func (t *Tracker) Album(albumID string) []Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var jobs []Job
	for _, j := range t.jobs {
		if j.AlbumID == albumID {
			jobs = append(jobs, *j)
		}
	}
	sort.SliceStable(jobs, func(i, k int) bool {
		return jobs[i].Track.TrackNumber < jobs[k].Track.TrackNumber
	})
	return jobs
}

// Sweep evicts jobs that have been terminal for longer than the retention
// period.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-t.retention)
	for id, j := range t.jobs {
		if j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(t.jobs, id)
			for _, ch := range t.listeners[id] {
				close(ch)
			}
			delete(t.listeners, id)
		}
	}
}

// StartSweeper runs periodic eviction until ctx is cancelled.
func (t *Tracker) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Sweep()
			}
		}
	}()
}

// Subscribe returns a channel receiving job snapshots on every update. Slow
// receivers miss intermediate snapshots rather than blocking updates.
func (t *Tracker) Subscribe(id string) <-chan Job {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Job, 16)
	t.listeners[id] = append(t.listeners[id], ch)
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (t *Tracker) Unsubscribe(id string, ch <-chan Job) {
	t.mu.Lock()
	defer t.mu.Unlock()

	listeners := t.listeners[id]
	for i, l := range listeners {
		if l == ch {
			t.listeners[id] = append(listeners[:i], listeners[i+1:]...)
			close(l)
			break
		}
	}
}

// notify delivers a snapshot to listeners. Callers hold the write lock.
func (t *Tracker) notify(id string, snapshot Job) {
	for _, ch := range t.listeners[id] {
		select {
		case ch <- snapshot:
		default:
		}
	}
}
