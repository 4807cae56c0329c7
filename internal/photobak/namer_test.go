package photobak_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"photobak/internal/photobak"
	"photobak/internal/storage"
	"photobak/internal/testutil"
)

func asset(id string, likes int, created time.Time) photobak.PhotoAsset {
	return photobak.PhotoAsset{
		ID:        id,
		Likes:     likes,
		CreatedAt: created,
		Sizes:     []photobak.SizeVariant{{Type: "w", URL: "https://img/" + id}},
	}
}

func newFolder(t *testing.T, s photobak.Storage, folders ...string) {
	t.Helper()
	for _, f := range folders {
		if err := s.CreateFolder(context.Background(), f); err != nil {
			t.Fatalf("CreateFolder(%q) error = %v", f, err)
		}
	}
}

func putFile(t *testing.T, s photobak.Storage, p string) {
	t.Helper()
	data := []byte("existing")
	if err := s.UploadFile(context.Background(), p, bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("UploadFile(%q) error = %v", p, err)
	}
}

func TestAssetNamer_Resolve(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	a := asset("p1", 5, created)

	tests := []struct {
		name     string
		policy   photobak.CollisionPolicy
		existing []string
		want     string
		wantErr  error
	}{
		{name: "free primary", want: "5.jpg"},
		{name: "primary taken", existing: []string{"5.jpg"}, want: "5_2024-01-02 00:00:00.jpg"},
		{
			name:     "single reuses taken fallback",
			existing: []string{"5.jpg", "5_2024-01-02 00:00:00.jpg"},
			want:     "5_2024-01-02 00:00:00.jpg",
		},
		{
			name:     "probe skips taken fallback",
			policy:   photobak.CollisionProbe,
			existing: []string{"5.jpg", "5_2024-01-02 00:00:00.jpg", "5_2024-01-02 00:00:00_2.jpg"},
			want:     "5_2024-01-02 00:00:00_3.jpg",
		},
		{
			name:     "probe free fallback",
			policy:   photobak.CollisionProbe,
			existing: []string{"5.jpg"},
			want:     "5_2024-01-02 00:00:00.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := storage.NewMemoryStorage("mem")
			newFolder(t, s, "dest")
			for _, name := range tt.existing {
				putFile(t, s, "dest/"+name)
			}

			n := photobak.NewAssetNamer(s, tt.policy, photobak.NewNopLogger())
			got, err := n.Resolve(context.Background(), "dest", a)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssetNamer_ProbeExhausted(t *testing.T) {
	t.Parallel()

	a := asset("p1", 1, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	s := storage.NewMemoryStorage("mem")
	newFolder(t, s, "dest")
	putFile(t, s, "dest/1.jpg")
	putFile(t, s, "dest/1_2024-01-02 00:00:00.jpg")
	for i := 2; i <= 100; i++ {
		putFile(t, s, fmt.Sprintf("dest/1_2024-01-02 00:00:00_%d.jpg", i))
	}

	n := photobak.NewAssetNamer(s, photobak.CollisionProbe, photobak.NewNopLogger())
	_, err := n.Resolve(context.Background(), "dest", a)
	if !errors.Is(err, photobak.ErrNameExhausted) {
		t.Fatalf("Resolve() error = %v, want ErrNameExhausted", err)
	}
}

func TestAssetNamer_ClaimedNamesCountAsTaken(t *testing.T) {
	t.Parallel()

	s := storage.NewMemoryStorage("mem")
	newFolder(t, s, "dest")
	n := photobak.NewAssetNamer(s, photobak.CollisionProbe, photobak.NewNopLogger())

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first, err := n.Resolve(context.Background(), "dest", asset("a", 5, created))
	if err != nil {
		t.Fatal(err)
	}
	second, err := n.Resolve(context.Background(), "dest", asset("b", 5, created))
	if err != nil {
		t.Fatal(err)
	}
	if first != "5.jpg" || second != "5_2024-01-01 00:00:00.jpg" {
		t.Errorf("names = %q, %q", first, second)
	}
}

func TestAssetNamer_ConcurrentResolveUnique(t *testing.T) {
	t.Parallel()

	s := storage.NewMemoryStorage("mem")
	newFolder(t, s, "dest")
	n := photobak.NewAssetNamer(s, photobak.CollisionProbe, photobak.NewNopLogger())

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	const workers = 20
	names := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name, err := n.Resolve(context.Background(), "dest", asset(fmt.Sprint(i), 9, created))
			if err != nil {
				t.Errorf("Resolve() error = %v", err)
				return
			}
			names[i] = name
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			t.Errorf("name %q handed out twice", name)
		}
		seen[name] = true
	}
}

func TestAssetNamer_StatusErrorIsFatal(t *testing.T) {
	t.Parallel()

	s := testutil.NewFailingStorage(storage.NewMemoryStorage("mem"))
	s.StatusErr["dest/5.jpg"] = errors.New("HTTP 500")

	n := photobak.NewAssetNamer(s, photobak.CollisionSingle, photobak.NewNopLogger())
	_, err := n.Resolve(context.Background(), "dest", asset("p", 5, time.Now()))
	if !errors.Is(err, photobak.ErrBackend) {
		t.Fatalf("Resolve() error = %v, want ErrBackend", err)
	}
}

func TestParseCollisionPolicy(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]photobak.CollisionPolicy{
		"":       photobak.CollisionSingle,
		"single": photobak.CollisionSingle,
		"PROBE":  photobak.CollisionProbe,
	} {
		got, err := photobak.ParseCollisionPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseCollisionPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := photobak.ParseCollisionPolicy("loop"); err == nil {
		t.Error("ParseCollisionPolicy(\"loop\") should fail")
	}
}
