// Package config provides configuration management for VRCPhoto Companion.
package config

import (
	_ "embed"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// CurrentSchemaVersion is the current config schema version.
const CurrentSchemaVersion = 1

// Environment variable names for config overrides.
// Priority: Environment > Config File > Default
const (
	EnvPort          = "VRCPHOTO_PORT"
	EnvLogDir        = "VRCPHOTO_LOG_DIR"
	EnvPhotoDirs     = "VRCPHOTO_PHOTO_DIRS" // path-list separated
	EnvScanBatchSize = "VRCPHOTO_SCAN_BATCH_SIZE"
	EnvWatchEnabled  = "VRCPHOTO_WATCH_ENABLED"
	EnvAuthUser      = "VRCPHOTO_AUTH_USER"
	EnvAuthPassword  = "VRCPHOTO_AUTH_PASSWORD"
)

// Config holds application configuration.
type Config struct {
	SchemaVersion int      `toml:"schema_version"`
	Port          int      `toml:"port"`
	LogDir        string   `toml:"log_dir"`    // empty means auto-detect
	PhotoDirs     []string `toml:"photo_dirs"` // primary root plus extra roots
	ScanBatchSize int      `toml:"scan_batch_size"`
	WatchEnabled  bool     `toml:"watch_enabled"`

	// Basic auth for the HTTP API. Auth is enabled only when both are set.
	AuthUser     string `toml:"auth_user"`
	AuthPassword string `toml:"auth_password"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SchemaVersion: CurrentSchemaVersion,
		Port:          8408,
		LogDir:        "",
		PhotoDirs:     defaultPhotoDirs(),
		ScanBatchSize: 500,
		WatchEnabled:  true,
	}
}

// SampleConfig returns the embedded sample config text.
func SampleConfig() string {
	return sampleConfig
}

// Load reads config from the default path. If the file doesn't exist or is
// corrupt, it returns DefaultConfig with a warning logged (non-fatal).
// Environment overrides apply last.
func Load() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return applyEnv(DefaultConfig()), err
	}
	return LoadFrom(path)
}

// LoadFrom reads config from the specified path.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// File doesn't exist, use defaults (not an error)
			return applyEnv(cfg), nil
		}
		slog.Warn("read config file, using defaults", "error", err)
		return applyEnv(cfg), nil
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		slog.Warn("config file is corrupt, using defaults", "error", err)
		return applyEnv(DefaultConfig()), nil
	}

	if cfg.SchemaVersion != CurrentSchemaVersion {
		slog.Warn("config schema version mismatch, using defaults",
			"got", cfg.SchemaVersion, "want", CurrentSchemaVersion)
		return applyEnv(DefaultConfig()), nil
	}

	return applyEnv(normalize(cfg)), nil
}

// Save writes the config atomically to the default path.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// normalize validates and normalizes config values.
func normalize(cfg Config) Config {
	defaults := DefaultConfig()

	cfg.SchemaVersion = CurrentSchemaVersion

	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = defaults.Port
	}
	if cfg.ScanBatchSize <= 0 {
		cfg.ScanBatchSize = defaults.ScanBatchSize
	}
	if len(cfg.PhotoDirs) == 0 {
		cfg.PhotoDirs = defaults.PhotoDirs
	}

	return cfg
}

// applyEnv overlays environment variable overrides onto cfg.
func applyEnv(cfg Config) Config {
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port <= 65535 {
			cfg.Port = port
		}
	}
	if v := os.Getenv(EnvLogDir); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv(EnvPhotoDirs); v != "" {
		var dirs []string
		for _, d := range strings.Split(v, string(os.PathListSeparator)) {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		if len(dirs) > 0 {
			cfg.PhotoDirs = dirs
		}
	}
	if v := os.Getenv(EnvScanBatchSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScanBatchSize = n
		}
	}
	if v := os.Getenv(EnvWatchEnabled); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.WatchEnabled = b
		}
	}
	if v := os.Getenv(EnvAuthUser); v != "" {
		cfg.AuthUser = v
	}
	if v := os.Getenv(EnvAuthPassword); v != "" {
		cfg.AuthPassword = v
	}
	return cfg
}

// ResolveLogDir returns the configured log directory, falling back to the
// platform default VRChat location.
func (c Config) ResolveLogDir() string {
	if c.LogDir != "" {
		return c.LogDir
	}
	return DefaultVRChatLogDir()
}

// DefaultVRChatLogDir returns the standard VRChat log location for this
// platform. VRChat only runs on Windows; other platforms see its directory
// through Proton/Wine prefixes or network mounts, so the path is a best
// guess there and normally set explicitly in config.
func DefaultVRChatLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "AppData", "LocalLow", "VRChat", "VRChat")
}

func defaultPhotoDirs() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, "Pictures", "VRChat")}
}
