package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns the paths photobak uses when the config leaves them
// out: the config file, the base directory and the log directory under it.
// config.ReadFromFile roots the run history database at base_dir/db.
// Environment variables:
//   - PHOTOBAK_CONFIG_PATH: config file location (default: ~/.config/photobak.toml)
//   - PHOTOBAK_HOME: base directory for photobak data (default: ~/.local/share/photobak)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("PHOTOBAK_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "photobak.toml"), nil
}

// getBaseDir follows the XDG layout. VK and Yandex Disk token files, age
// keys, logs and the run history database all live below it.
func getBaseDir() (string, error) {
	if path := os.Getenv("PHOTOBAK_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "photobak"), nil
}
