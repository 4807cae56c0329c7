package photobak

import (
	"database/sql"
	"time"
)

// Run statuses stored in the history.
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunError   = "error"
)

// Run is one recorded backup pass.
type Run struct {
	ID          int64
	RunID       string
	Handle      string
	Destination string
	Identity    string
	StartedAt   time.Time
	FinishedAt  sql.NullTime
	Status      string
	Photos      int
	Archived    bool
	Error       string
}

// RunSummary is what a finished run reports back to the history.
type RunSummary struct {
	Status   string
	Identity string
	Photos   int
	Archived bool
	Error    string
}

// RunStore keeps the local history of backup runs.
type RunStore interface {
	// CreateRun records the start of a run and returns it with its ID set.
	CreateRun(runID, handle, destination string) (*Run, error)

	// FinishRun marks a run finished with the given summary.
	FinishRun(id int64, summary RunSummary) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*Run, error)

	// Close closes the underlying store.
	Close() error
}
