package storage

import (
	"context"
	"strings"
	"testing"

	"photobak/internal/photobak"
)

// testStorageBehaviour checks the folder semantics every backend shares.
func testStorageBehaviour(t *testing.T, s photobak.Storage) {
	t.Helper()
	ctx := context.Background()

	upload := func(p, content string) error {
		return s.UploadFile(ctx, p, strings.NewReader(content), int64(len(content)))
	}
	wantState := func(p string, want photobak.PathState) {
		t.Helper()
		if got := s.Status(ctx, p); got.State != want {
			t.Errorf("Status(%q) = %v (%v), want %v", p, got.State, got.Err, want)
		}
	}

	if err := s.ValidateSetup(ctx); err != nil {
		t.Fatalf("ValidateSetup() error = %v", err)
	}

	wantState("backup", photobak.StateAbsent)
	if err := s.CreateFolder(ctx, "backup"); err != nil {
		t.Fatalf("CreateFolder(backup) error = %v", err)
	}
	wantState("backup", photobak.StatePresent)

	if err := s.CreateFolder(ctx, "missing/child"); err == nil {
		t.Error("CreateFolder() without parent should fail")
	}

	if err := s.CreateFolder(ctx, "backup/1"); err != nil {
		t.Fatalf("CreateFolder(backup/1) error = %v", err)
	}
	if err := upload("backup/1/3.jpg", "photo"); err != nil {
		t.Fatalf("UploadFile() error = %v", err)
	}
	wantState("backup/1/3.jpg", photobak.StatePresent)
	wantState("backup/1/4.jpg", photobak.StateAbsent)

	if err := upload("backup/1/3.jpg", "replaced"); err != nil {
		t.Errorf("UploadFile() over existing file error = %v", err)
	}
	if err := s.UploadFile(ctx, "backup/1/bad.jpg", strings.NewReader("abc"), 10); err == nil {
		t.Error("UploadFile() with wrong size should fail")
	}

	if err := s.CreateFolder(ctx, "backup/archive"); err != nil {
		t.Fatalf("CreateFolder(backup/archive) error = %v", err)
	}
	if err := s.MoveFolder(ctx, "backup/1", "backup/archive/1"); err != nil {
		t.Fatalf("MoveFolder() error = %v", err)
	}
	wantState("backup/1", photobak.StateAbsent)
	wantState("backup/archive/1", photobak.StatePresent)
	wantState("backup/archive/1/3.jpg", photobak.StatePresent)

	if err := s.MoveFolder(ctx, "backup/nope", "backup/archive/nope"); err == nil {
		t.Error("MoveFolder() of missing folder should fail")
	}

	if err := s.CreateFolder(ctx, "backup/1"); err != nil {
		t.Fatalf("recreating folder error = %v", err)
	}
	if err := s.MoveFolder(ctx, "backup/1", "backup/archive/1"); err == nil {
		t.Error("MoveFolder() onto existing target should fail")
	}
}
