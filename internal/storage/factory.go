package storage

import (
	"context"
	"fmt"

	"photobak/internal/config"
	"photobak/internal/photobak"
)

// NewStorageFromConfig creates a Storage implementation based on the
// destination config type. Backends that talk to a remote service take their
// token from creds under the destination name.
func NewStorageFromConfig(ctx context.Context, cfg config.DestinationConfig, creds *config.Credentials) (photobak.Storage, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStorage(cfg.Name), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("%w: filesystem destination requires fs_root to be set", photobak.ErrConfiguration)
		}
		return NewFileSystemStorage(cfg.Name, cfg.FSRoot)
	case "yadisk":
		token, err := creds.Token(cfg.Name)
		if err != nil {
			return nil, err
		}
		return NewYaDiskStorage(cfg.Name, cfg.YaDiskAPIURL, token), nil
	case "s3":
		token, err := creds.Token(cfg.Name)
		if err != nil {
			return nil, err
		}
		id, secret, err := ParseS3Token(token)
		if err != nil {
			return nil, err
		}
		return NewS3Storage(ctx, cfg.Name, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     id,
			SecretAccessKey: secret,
		})
	default:
		return nil, fmt.Errorf("%w: unknown destination type: %s", photobak.ErrConfiguration, cfg.Type)
	}
}
