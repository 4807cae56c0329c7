package database

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"photobak/internal/photobak"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func newTestDB(t *testing.T) (*SQLiteDatabase, *fixedClock) {
	t.Helper()
	clock := &fixedClock{now: time.Date(2024, 3, 5, 8, 15, 30, 0, time.UTC)}
	db, err := NewSQLiteDatabase(":memory:", clock)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, clock
}

func TestSQLiteDatabase_CreateAndFinishRun(t *testing.T) {
	db, clock := newTestDB(t)

	run, err := db.CreateRun("run-1", "durov", "yadisk")
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if run.ID == 0 || run.RunID != "run-1" || run.Handle != "durov" || run.Destination != "yadisk" {
		t.Errorf("run = %+v", run)
	}
	if run.Status != photobak.RunRunning || run.FinishedAt.Valid {
		t.Errorf("new run status = %q, finished = %v", run.Status, run.FinishedAt.Valid)
	}
	if !run.StartedAt.Equal(clock.now) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, clock.now)
	}

	clock.now = clock.now.Add(90 * time.Second)
	err = db.FinishRun(run.ID, photobak.RunSummary{
		Status:   photobak.RunSuccess,
		Identity: "1",
		Photos:   5,
		Archived: true,
	})
	if err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	runs, err := db.ListRuns(10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() returned %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.Status != photobak.RunSuccess || got.Identity != "1" || got.Photos != 5 || !got.Archived {
		t.Errorf("finished run = %+v", got)
	}
	if !got.FinishedAt.Valid || !got.FinishedAt.Time.Equal(clock.now) {
		t.Errorf("FinishedAt = %+v, want %v", got.FinishedAt, clock.now)
	}
}

func TestSQLiteDatabase_FinishUnknownRun(t *testing.T) {
	db, _ := newTestDB(t)
	if err := db.FinishRun(42, photobak.RunSummary{Status: photobak.RunError}); err == nil {
		t.Error("FinishRun() of unknown run should fail")
	}
}

func TestSQLiteDatabase_DuplicateRunID(t *testing.T) {
	db, _ := newTestDB(t)
	if _, err := db.CreateRun("same", "a", "d"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateRun("same", "b", "d"); err == nil {
		t.Error("CreateRun() with duplicate run id should fail")
	}
}

func TestSQLiteDatabase_ListRunsNewestFirst(t *testing.T) {
	db, _ := newTestDB(t)
	for i := 1; i <= 5; i++ {
		if _, err := db.CreateRun(fmt.Sprintf("run-%d", i), "h", "d"); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := db.ListRuns(3)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("ListRuns(3) returned %d runs", len(runs))
	}
	for i, want := range []string{"run-5", "run-4", "run-3"} {
		if runs[i].RunID != want {
			t.Errorf("runs[%d] = %s, want %s", i, runs[i].RunID, want)
		}
	}
}

func TestSQLiteDatabase_FilePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photobak.db")
	clock := &fixedClock{now: time.Now().UTC()}

	db, err := NewSQLiteDatabase(path, clock)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateRun("run-1", "h", "d"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	reopened, err := NewSQLiteDatabase(path, clock)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	if err := reopened.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() error = %v", err)
	}
	runs, err := reopened.ListRuns(10)
	if err != nil || len(runs) != 1 {
		t.Errorf("ListRuns() = %d runs, %v", len(runs), err)
	}
	if reopened.Path() != path {
		t.Errorf("Path() = %q", reopened.Path())
	}
}
