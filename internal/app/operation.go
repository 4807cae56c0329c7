package app

import (
	"photobak/internal/photobak"
)

// backupRun tracks one backup pass. It is created in memory with ID=0 and
// gets its ID once persisted in the run history.
type backupRun struct {
	ID          int64
	RunID       string
	Handle      string
	Destination string
	Summary     photobak.RunSummary
}

func newBackupRun(runID, handle, destination string) *backupRun {
	return &backupRun{
		RunID:       runID,
		Handle:      handle,
		Destination: destination,
		Summary:     photobak.RunSummary{Status: photobak.RunRunning},
	}
}

// Persisted returns true if this run has been saved to the run history.
func (r *backupRun) Persisted() bool {
	return r.ID != 0
}

// complete records the outcome of the pass.
func (r *backupRun) complete(res *photobak.BackupResult, err error) {
	if err != nil {
		r.Summary.Status = photobak.RunError
		r.Summary.Error = err.Error()
		return
	}
	r.Summary = photobak.RunSummary{
		Status:   photobak.RunSuccess,
		Identity: res.Identity.String(),
		Photos:   len(res.Manifest.Photos),
		Archived: res.Archived,
	}
}
