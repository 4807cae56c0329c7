package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
)

// Config represents the main configuration for photobak.
type Config struct {
	LogDir       string              `toml:"log_dir" yaml:"log_dir"`
	LogLevel     string              `toml:"log_level" yaml:"log_level"` // debug, info (default), warn, error
	Source       SourceConfig        `toml:"source" yaml:"source"`
	Destinations []DestinationConfig `toml:"destinations" yaml:"destinations"`
	Backup       BackupConfig        `toml:"backup" yaml:"backup"`
	Credentials  CredentialsConfig   `toml:"credentials" yaml:"credentials"`
	Database     DatabaseConfig      `toml:"database" yaml:"database"`
	Encryption   EncryptionConfig    `toml:"encryption" yaml:"encryption"`
}

// SourceConfig describes the photo source service.
type SourceConfig struct {
	Type       string `toml:"type" yaml:"type"`                                   // "vk"
	APIURL     string `toml:"api_url,omitempty" yaml:"api_url,omitempty"`         // defaults to https://api.vk.com/method/
	APIVersion string `toml:"api_version,omitempty" yaml:"api_version,omitempty"` // defaults to 5.131
	Album      string `toml:"album,omitempty" yaml:"album,omitempty"`             // defaults to "profile"
	Order      string `toml:"order,omitempty" yaml:"order,omitempty"`             // "reverse" (default) or "chronological"
	Limit      int    `toml:"limit" yaml:"limit"`                                 // max photos per identity; 0 means all
	Timezone   string `toml:"timezone,omitempty" yaml:"timezone,omitempty"`       // IANA name used for photo timestamps; defaults to local
}

// DestinationConfig represents configuration for a storage backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DestinationConfig struct {
	Type string `toml:"type" yaml:"type"` // "memory", "filesystem", "yadisk" or "s3"
	Name string `toml:"name" yaml:"name"` // also the key of the destination's credential

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty" yaml:"fs_root,omitempty"`

	// Yandex Disk-specific fields (only used when Type == "yadisk")
	YaDiskAPIURL string `toml:"yadisk_api_url,omitempty" yaml:"yadisk_api_url,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty" yaml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty" yaml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty" yaml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty" yaml:"s3_endpoint,omitempty"`
}

// BackupConfig holds the reconciliation settings.
type BackupConfig struct {
	RootFolder    string `toml:"root_folder" yaml:"root_folder"`
	ArchiveFolder string `toml:"archive_folder" yaml:"archive_folder"`
	Parallel      int    `toml:"parallel" yaml:"parallel"`
	Collision     string `toml:"collision" yaml:"collision"` // "single" (default) or "probe"
}

// CredentialsConfig lists the credential tokens keyed by backend name.
// A token may be given inline or as a file holding it.
type CredentialsConfig struct {
	Tokens     map[string]string `toml:"tokens,omitempty" yaml:"tokens,omitempty"`
	TokenFiles map[string]string `toml:"token_files,omitempty" yaml:"token_files,omitempty"`
}

// DatabaseConfig represents configuration for the run history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type" yaml:"type"`                             // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty" yaml:"data_dir,omitempty"` // only used for type=sqlite
}

// EncryptionConfig holds paths to the age key pair used for encrypting uploads.
type EncryptionConfig struct {
	Type           string `toml:"type" yaml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path,omitempty" yaml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty" yaml:"private_key_path,omitempty"`
}

// NewConfig creates a new Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		LogDir:   filepath.Join(baseDir, "log"),
		LogLevel: "info",
		Source: SourceConfig{
			Type:  "vk",
			Album: "profile",
			Order: "reverse",
		},
		Destinations: []DestinationConfig{
			{Type: "yadisk", Name: "yadisk"},
		},
		Backup: BackupConfig{
			RootFolder:    "netology_backup",
			ArchiveFolder: "archive",
			Parallel:      1,
			Collision:     "single",
		},
		Credentials: CredentialsConfig{
			TokenFiles: map[string]string{
				"vk":     filepath.Join(baseDir, "tokens", "vk_token.txt"),
				"yadisk": filepath.Join(baseDir, "tokens", "ya_token.txt"),
			},
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "photobak.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "photobak.key"),
		},
	}
}

// ApplyDefaults fills in settings left empty in a config file. Paths are
// placed under baseDir. Without a baseDir the run history is kept in memory.
func (c *Config) ApplyDefaults(baseDir string) {
	if c.LogDir == "" && baseDir != "" {
		c.LogDir = filepath.Join(baseDir, "log")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Source.Type == "" {
		c.Source.Type = "vk"
	}
	if c.Backup.RootFolder == "" {
		c.Backup.RootFolder = "netology_backup"
	}
	if c.Backup.ArchiveFolder == "" {
		c.Backup.ArchiveFolder = "archive"
	}
	if c.Backup.Parallel < 1 {
		c.Backup.Parallel = 1
	}
	if c.Database.Type == "" {
		c.Database.Type = "memory"
		if baseDir != "" {
			c.Database.Type = "sqlite"
		}
	}
	if c.Database.Type == "sqlite" && c.Database.DataDir == "" && baseDir != "" {
		c.Database.DataDir = filepath.Join(baseDir, "db")
	}
}

// Destination returns the destination with the given name, or the first
// configured destination when name is empty.
func (c *Config) Destination(name string) (DestinationConfig, error) {
	if len(c.Destinations) == 0 {
		return DestinationConfig{}, fmt.Errorf("no destinations configured")
	}
	if name == "" {
		return c.Destinations[0], nil
	}
	for _, d := range c.Destinations {
		if d.Name == name {
			return d, nil
		}
	}
	return DestinationConfig{}, fmt.Errorf("unknown destination: %s", name)
}

// Redacted returns a copy of the config with inline tokens masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Destinations = append([]DestinationConfig(nil), c.Destinations...)
	if len(c.Credentials.Tokens) > 0 {
		out.Credentials.Tokens = make(map[string]string, len(c.Credentials.Tokens))
		for name := range c.Credentials.Tokens {
			out.Credentials.Tokens[name] = "********"
		}
	}
	return &out
}

// Format is the encoding of a config file.
type Format int

const (
	FormatTOML Format = iota
	FormatYAML
)

// FormatFor picks the format from a file extension. Anything other than
// .yaml or .yml is read as TOML.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Manager handles reading and writing configuration.
type Manager struct {
	Format Format
}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	switch m.Format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	default:
		if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	var err error
	switch m.Format {
	case FormatYAML:
		err = yaml.NewEncoder(w).Encode(cfg)
	default:
		err = toml.NewEncoder(w).Encode(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path and applies
// defaults rooted at baseDir.
func ReadFromFile(path, baseDir string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{Format: FormatFor(path)}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	cfg.ApplyDefaults(baseDir)
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{Format: FormatFor(path)}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
