package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"photobak/internal/photobak"
)

// EncryptedStorage encrypts every uploaded file before handing it to the
// wrapped backend. Paths and folder operations pass through unchanged.
type EncryptedStorage struct {
	photobak.Storage
	enc photobak.Encryptor
}

// NewEncryptedStorage wraps inner so that uploads are encrypted with enc.
func NewEncryptedStorage(inner photobak.Storage, enc photobak.Encryptor) *EncryptedStorage {
	return &EncryptedStorage{Storage: inner, enc: enc}
}

// UploadFile encrypts size bytes from r and uploads the ciphertext.
func (s *EncryptedStorage) UploadFile(ctx context.Context, p string, r io.Reader, size int64) error {
	var buf bytes.Buffer
	if err := s.enc.Encrypt(io.LimitReader(r, size), &buf); err != nil {
		return fmt.Errorf("encrypting %s: %w", p, err)
	}
	return s.Storage.UploadFile(ctx, p, &buf, int64(buf.Len()))
}

var _ photobak.Storage = (*EncryptedStorage)(nil)
