package database

import (
	"fmt"
	"os"
	"path/filepath"

	"photobak/internal/config"
	"photobak/internal/photobak"
)

// NewDatabaseFromConfig creates a RunStore implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, clock photobak.Clock) (photobak.RunStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("%w: data_dir required for sqlite database", photobak.ErrConfiguration)
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, "photobak.db"), clock)
	case "memory", "":
		return NewSQLiteDatabase(":memory:", clock)
	default:
		return nil, fmt.Errorf("%w: unknown database type: %s", photobak.ErrConfiguration, cfg.Type)
	}
}
