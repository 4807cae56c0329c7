package encryption

import (
	"fmt"

	"photobak/internal/config"
	"photobak/internal/photobak"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// It returns nil for "none" (or an empty type): uploads are not encrypted.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (photobak.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("%w: age encryption requires public_key_path and private_key_path", photobak.ErrConfiguration)
		}
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("%w: unknown encryption type: %q", photobak.ErrConfiguration, cfg.Type)
	}
}
