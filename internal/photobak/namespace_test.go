package photobak_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"photobak/internal/photobak"
	"photobak/internal/storage"
	"photobak/internal/testutil"
)

func TestNamespaceManager_EnsureRoot(t *testing.T) {
	t.Parallel()

	s := testutil.NewFailingStorage(storage.NewMemoryStorage("mem"))
	m := photobak.NewNamespaceManager(s, photobak.NewNopLogger(), testutil.FixedClock())
	ctx := context.Background()

	if err := m.EnsureRoot(ctx, "backup"); err != nil {
		t.Fatalf("EnsureRoot() error = %v", err)
	}
	if err := m.EnsureRoot(ctx, "backup"); err != nil {
		t.Fatalf("second EnsureRoot() error = %v", err)
	}

	creates := 0
	for _, c := range s.Calls() {
		if c == "create backup" {
			creates++
		}
	}
	if creates != 1 {
		t.Errorf("folder created %d times, want 1", creates)
	}
}

func TestNamespaceManager_EnsureRoot_Nested(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := testutil.NewFailingStorage(storage.NewMemoryStorage("mem"))
	m := photobak.NewNamespaceManager(s, photobak.NewNopLogger(), testutil.FixedClock())

	if err := m.EnsureRoot(ctx, "backup/vk/profile"); err != nil {
		t.Fatalf("EnsureRoot() error = %v", err)
	}
	var creates []string
	for _, c := range s.Calls() {
		if strings.HasPrefix(c, "create ") {
			creates = append(creates, c)
		}
	}
	want := []string{"create backup", "create backup/vk", "create backup/vk/profile"}
	if !reflect.DeepEqual(creates, want) {
		t.Errorf("creates = %v, want %v", creates, want)
	}
}

func TestNamespaceManager_PrepareIdentityFolder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("fresh", func(t *testing.T) {
		s := storage.NewMemoryStorage("mem")
		newFolder(t, s, "backup")
		m := photobak.NewNamespaceManager(s, photobak.NewNopLogger(), testutil.FixedClock())

		ready, err := m.PrepareIdentityFolder(ctx, "backup/1", "backup/archive", "1")
		if err != nil {
			t.Fatalf("PrepareIdentityFolder() error = %v", err)
		}
		if ready.Archived || ready.Path != "backup/1" {
			t.Errorf("ready = %+v", ready)
		}
		if st := s.Status(ctx, "backup/archive"); st.State != photobak.StateAbsent {
			t.Errorf("archive folder created without need: %v", st.State)
		}
	})

	t.Run("archives prior backup", func(t *testing.T) {
		s := storage.NewMemoryStorage("mem")
		newFolder(t, s, "backup", "backup/1")
		putFile(t, s, "backup/1/old.jpg")
		m := photobak.NewNamespaceManager(s, photobak.NewNopLogger(), testutil.FixedClock())

		ready, err := m.PrepareIdentityFolder(ctx, "backup/1", "backup/archive", "1")
		if err != nil {
			t.Fatalf("PrepareIdentityFolder() error = %v", err)
		}
		if !ready.Archived || ready.ArchivePath != "backup/archive/1" {
			t.Errorf("ready = %+v", ready)
		}
		if got := s.List("backup/1"); len(got) != 0 {
			t.Errorf("identity folder not empty: %v", got)
		}
		if _, err := s.ReadFile("backup/archive/1/old.jpg"); err != nil {
			t.Errorf("archived file missing: %v", err)
		}
	})

	t.Run("nested archive folder", func(t *testing.T) {
		s := storage.NewMemoryStorage("mem")
		newFolder(t, s, "backup", "backup/1")
		putFile(t, s, "backup/1/old.jpg")
		m := photobak.NewNamespaceManager(s, photobak.NewNopLogger(), testutil.FixedClock())

		ready, err := m.PrepareIdentityFolder(ctx, "backup/1", "backup/old/archive", "1")
		if err != nil {
			t.Fatalf("PrepareIdentityFolder() error = %v", err)
		}
		if ready.ArchivePath != "backup/old/archive/1" {
			t.Errorf("ArchivePath = %q, want backup/old/archive/1", ready.ArchivePath)
		}
		if _, err := s.ReadFile("backup/old/archive/1/old.jpg"); err != nil {
			t.Errorf("archived file missing: %v", err)
		}
	})

	t.Run("earlier archive kept", func(t *testing.T) {
		s := storage.NewMemoryStorage("mem")
		newFolder(t, s, "backup", "backup/1", "backup/archive", "backup/archive/1")
		putFile(t, s, "backup/archive/1/first.jpg")
		putFile(t, s, "backup/1/second.jpg")
		clock := testutil.NewStubClock(time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC))
		m := photobak.NewNamespaceManager(s, photobak.NewNopLogger(), clock)

		ready, err := m.PrepareIdentityFolder(ctx, "backup/1", "backup/archive", "1")
		if err != nil {
			t.Fatalf("PrepareIdentityFolder() error = %v", err)
		}
		want := "backup/archive/1.20240506T070809Z"
		if ready.ArchivePath != want {
			t.Errorf("ArchivePath = %q, want %q", ready.ArchivePath, want)
		}
		if _, err := s.ReadFile("backup/archive/1/first.jpg"); err != nil {
			t.Errorf("earlier archive lost: %v", err)
		}
		if _, err := s.ReadFile(want + "/second.jpg"); err != nil {
			t.Errorf("second archive missing: %v", err)
		}
	})
}

func TestNamespaceManager_StatusErrorIsFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	inner := storage.NewMemoryStorage("mem")
	newFolder(t, inner, "backup")
	s := testutil.NewFailingStorage(inner)
	s.StatusErr["backup/1"] = errors.New("HTTP 503")
	m := photobak.NewNamespaceManager(s, photobak.NewNopLogger(), testutil.FixedClock())

	_, err := m.PrepareIdentityFolder(ctx, "backup/1", "backup/archive", "1")
	if !errors.Is(err, photobak.ErrBackend) {
		t.Fatalf("PrepareIdentityFolder() error = %v, want ErrBackend", err)
	}
	for _, c := range s.Calls() {
		if c == "create backup/1" {
			t.Error("folder created after failed status query")
		}
	}
}

func TestNamespaceManager_MoveFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	inner := storage.NewMemoryStorage("mem")
	newFolder(t, inner, "backup", "backup/1")
	s := testutil.NewFailingStorage(inner)
	s.MoveErr["backup/1"] = errors.New("locked")
	m := photobak.NewNamespaceManager(s, photobak.NewNopLogger(), testutil.FixedClock())

	_, err := m.PrepareIdentityFolder(ctx, "backup/1", "backup/archive", "1")
	var be *photobak.BackendError
	if !errors.As(err, &be) || be.Op != "move folder" {
		t.Fatalf("PrepareIdentityFolder() error = %v, want move folder BackendError", err)
	}
}

func TestNamespaceManager_ArchiveStampUsesClock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := storage.NewMemoryStorage("mem")
	newFolder(t, s, "backup", "backup/1", "backup/archive", "backup/archive/1")
	m := photobak.NewNamespaceManager(s, photobak.NewNopLogger(), testutil.FixedClock())

	ready, err := m.PrepareIdentityFolder(ctx, "backup/1", "backup/archive", "1")
	if err != nil {
		t.Fatalf("PrepareIdentityFolder() error = %v", err)
	}
	if want := "backup/archive/1.20240305T081530Z"; ready.ArchivePath != want {
		t.Errorf("ArchivePath = %q, want %q", ready.ArchivePath, want)
	}
}
