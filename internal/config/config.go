package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"gb-go/internal/gb"
)

const (
	// DefaultHostID is used when no config file exists.
	DefaultHostID = "local"
	// DefaultGroupSize is a bare integer, interpreted as GiB.
	DefaultGroupSize = "23"
	DefaultStateDir  = gb.DefaultStateDir
	DefaultBackupDir = gb.DefaultBackupDir
	// DefaultLockTimeout bounds how long a command waits for the partition lock.
	DefaultLockTimeout = "30s"
	// DefaultLinkMode hard links and falls back to copying.
	DefaultLinkMode = "auto"
)

// Config represents the main configuration for gb.
type Config struct {
	HostID     string           `toml:"host_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Grouping   GroupingConfig   `toml:"grouping"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Database   DatabaseConfig   `toml:"database"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// GroupingConfig controls how files are grouped and where gb keeps its
// files relative to the scan root.
type GroupingConfig struct {
	GroupSize   string `toml:"group_size"`   // bare integer = GiB, or a human size like "4.7GB"
	StateDir    string `toml:"state_dir"`    // relative to the root, or absolute
	BackupDir   string `toml:"backup_dir"`   // default copy destination parent
	LockTimeout string `toml:"lock_timeout"` // Go duration, "0s" waits forever
}

// EncryptionConfig holds paths to the age key pair used for encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore   []string `toml:"ignore"`
	LinkMode string   `toml:"link_mode"` // "auto", "hardlink" or "copy"
}

// VaultConfig represents configuration for a vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for S3-compatible stores such as MinIO

	// Static credentials. When empty the default AWS credential chain is used.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(hostID, baseDir string) *Config {
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Grouping: GroupingConfig{
			GroupSize:   DefaultGroupSize,
			StateDir:    DefaultStateDir,
			BackupDir:   DefaultBackupDir,
			LockTimeout: DefaultLockTimeout,
		},
		Filesystem: FilesystemConfig{
			LinkMode: DefaultLinkMode,
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "gb.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "gb.key"),
		},
	}
}

// ApplyDefaults fills in every unset field from NewConfig(HostID, BaseDir).
// Config files written by older versions may lack whole sections.
func (c *Config) ApplyDefaults() {
	if c.HostID == "" {
		c.HostID = DefaultHostID
	}
	d := NewConfig(c.HostID, c.BaseDir)

	setDefault(&c.LogDir, d.LogDir)
	setDefault(&c.Grouping.GroupSize, d.Grouping.GroupSize)
	setDefault(&c.Grouping.StateDir, d.Grouping.StateDir)
	setDefault(&c.Grouping.BackupDir, d.Grouping.BackupDir)
	setDefault(&c.Grouping.LockTimeout, d.Grouping.LockTimeout)
	setDefault(&c.Filesystem.LinkMode, d.Filesystem.LinkMode)
	setDefault(&c.Database.Type, d.Database.Type)
	if c.Database.Type == "sqlite" {
		setDefault(&c.Database.DataDir, d.Database.DataDir)
	}
	setDefault(&c.Encryption.Type, d.Encryption.Type)
	setDefault(&c.Encryption.PublicKeyPath, d.Encryption.PublicKeyPath)
	setDefault(&c.Encryption.PrivateKeyPath, d.Encryption.PrivateKeyPath)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

// LockTimeoutDuration parses Grouping.LockTimeout.
func (c *Config) LockTimeoutDuration() (time.Duration, error) {
	if c.Grouping.LockTimeout == "" {
		return time.ParseDuration(DefaultLockTimeout)
	}
	d, err := time.ParseDuration(c.Grouping.LockTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid lock_timeout %q: %w", c.Grouping.LockTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("lock_timeout must not be negative: %q", c.Grouping.LockTimeout)
	}
	return d, nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config at path and fills in defaults. A missing file is
// not an error: the defaults for baseDir are returned instead.
func Load(path, baseDir string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{HostID: DefaultHostID, BaseDir: baseDir}
	} else if err != nil {
		return nil, err
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = baseDir
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// writeToFile writes a Config to the specified file path, creating its directory.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
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
