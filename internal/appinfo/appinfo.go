// Package appinfo provides application identity constants.
// These are used across packages for consistent naming.
package appinfo

const (
	// AppName is the display name of the application.
	AppName = "VRCPhoto Companion"

	// DirName is the directory name used for storing application data.
	// Location: %LOCALAPPDATA%/vrcphoto/ (Windows) or ~/.config/vrcphoto/ (other)
	DirName = "vrcphoto"

	// MutexName is the Windows mutex name for single instance control.
	// "Local\" prefix means the mutex is scoped to the current user session,
	// not system-wide. This is appropriate for desktop applications.
	MutexName = "Local\\vrcphoto-companion"

	// LockFileName is the lock file name for single instance control.
	LockFileName = "vrcphoto.lock"

	// SyncLockFileName is the lock file guarding ingestion runs across processes.
	SyncLockFileName = "sync.lock"

	// ConfigFileName is the configuration file name.
	ConfigFileName = "config.toml"

	// DatabaseFileName is the SQLite database file name.
	DatabaseFileName = "vrcphoto.sqlite"

	// LogStoreDirName is the directory holding the append-only log ledger.
	LogStoreDirName = "logStore"
)
