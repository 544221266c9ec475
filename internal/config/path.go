package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/graaaaa/vrcphoto-companion/internal/appinfo"
)

// DataDir returns the application data directory:
// %LOCALAPPDATA%/vrcphoto on Windows, ~/.config/vrcphoto elsewhere.
func DataDir() (string, error) {
	base := ""
	if runtime.GOOS == "windows" {
		base = os.Getenv("LOCALAPPDATA")
	}
	if base == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("get user config dir: %w", err)
		}
		base = dir
	}
	return filepath.Join(base, appinfo.DirName), nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create data dir %q: %w", dir, err)
	}
	return dir, nil
}

// dataPath returns the full path for a file in the data directory.
func dataPath(filename string) (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

// ConfigPath returns the path to config.toml.
func ConfigPath() (string, error) {
	return dataPath(appinfo.ConfigFileName)
}

// LockFilePath returns the path to the lock file for single instance control.
func LockFilePath() (string, error) {
	return dataPath(appinfo.LockFileName)
}

// SyncLockPath returns the path to the cross-process sync lock file.
func SyncLockPath() (string, error) {
	return dataPath(appinfo.SyncLockFileName)
}

// DatabasePath returns the path to the SQLite database.
func DatabasePath() (string, error) {
	return dataPath(appinfo.DatabaseFileName)
}

// LogStoreDir returns the path to the log ledger directory.
func LogStoreDir() (string, error) {
	return dataPath(appinfo.LogStoreDirName)
}
