package testutil

import (
	"photobak/internal/encryption"
	"photobak/internal/photobak"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() photobak.Encryptor {
	return encryption.NewTestEncryptor()
}
