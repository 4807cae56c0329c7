package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"photobak/internal/config"
	"photobak/internal/photobak"
)

func TestNewStorageFromConfig(t *testing.T) {
	ctx := context.Background()
	creds := config.NewCredentials(map[string]string{
		"disk":   "oauth-token",
		"bucket": "AKID:secret",
		"badkey": "no-colon",
	})

	tests := []struct {
		name    string
		cfg     config.DestinationConfig
		want    string
		wantErr error
	}{
		{name: "memory", cfg: config.DestinationConfig{Type: "memory", Name: "m"}, want: "*storage.MemoryStorage"},
		{name: "filesystem", cfg: config.DestinationConfig{Type: "filesystem", Name: "fs", FSRoot: filepath.Join(t.TempDir(), "out")}, want: "*storage.FileSystemStorage"},
		{name: "filesystem without root", cfg: config.DestinationConfig{Type: "filesystem", Name: "fs"}, wantErr: photobak.ErrConfiguration},
		{name: "yadisk", cfg: config.DestinationConfig{Type: "yadisk", Name: "disk"}, want: "*storage.YaDiskStorage"},
		{name: "yadisk without token", cfg: config.DestinationConfig{Type: "yadisk", Name: "other"}, wantErr: photobak.ErrConfiguration},
		{name: "s3", cfg: config.DestinationConfig{Type: "s3", Name: "bucket", S3Bucket: "b", S3Region: "us-east-1"}, want: "*storage.S3Storage"},
		{name: "s3 bad token", cfg: config.DestinationConfig{Type: "s3", Name: "badkey", S3Bucket: "b"}, wantErr: photobak.ErrConfiguration},
		{name: "s3 without bucket", cfg: config.DestinationConfig{Type: "s3", Name: "bucket"}, wantErr: photobak.ErrConfiguration},
		{name: "unknown", cfg: config.DestinationConfig{Type: "gdrive", Name: "g"}, wantErr: photobak.ErrConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStorageFromConfig(ctx, tt.cfg, creds)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := typeName(s); got != tt.want {
				t.Errorf("storage type = %s, want %s", got, tt.want)
			}
		})
	}
}

func typeName(s photobak.Storage) string {
	switch s.(type) {
	case *MemoryStorage:
		return "*storage.MemoryStorage"
	case *FileSystemStorage:
		return "*storage.FileSystemStorage"
	case *YaDiskStorage:
		return "*storage.YaDiskStorage"
	case *S3Storage:
		return "*storage.S3Storage"
	default:
		return "unknown"
	}
}
