// Package job tracks asynchronous download jobs in memory. The Tracker is the
// only shared mutable state in the application core; everything else flows
// through it.
package job

import (
	"errors"
	"time"

	"tunegrab/internal/catalog"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether the status ends the job's active lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Stage names the orchestrator step a processing job is in.
type Stage string

const (
	StageResolving Stage = "resolving_source"
	StageFetching  Stage = "fetching"
	StageTagging   Stage = "tagging"
	StagePlacing   Stage = "placing"
)

var (
	// ErrDuplicate means an active job already exists for the identifier.
	ErrDuplicate = errors.New("job already in progress")
	// ErrUnknown means the identifier names no tracked job.
	ErrUnknown = errors.New("unknown job")
	// ErrProgressRegression means an update tried to move progress
	// backwards on a non-terminal job.
	ErrProgressRegression = errors.New("progress regression")
)

// Result carries the completion payload: where the finished file ended up.
type Result struct {
	FilePath    string `json:"file_path,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// Job is one asynchronous download unit. Track is a denormalized snapshot of
// the originating catalog track (or manual metadata) for client display.
// Instances handed out by the Tracker are copies; mutate only through the
// Tracker.
type Job struct {
	ID          string        `json:"id"`
	Status      Status        `json:"status"`
	Stage       Stage         `json:"stage,omitempty"`
	Message     string        `json:"message"`
	Progress    int           `json:"progress"`
	Track       catalog.Track `json:"track"`
	AlbumID     string        `json:"album_id,omitempty"`
	Result      Result        `json:"result"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}
