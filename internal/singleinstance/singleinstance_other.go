//go:build !windows

// Package singleinstance provides single instance control for the application.
package singleinstance

import (
	"github.com/gofrs/flock"

	"github.com/graaaaa/vrcphoto-companion/internal/config"
)

// AcquireLock attempts to acquire an advisory file lock in the data
// directory so only one instance runs per user.
//
// Returns:
//   - release: function to call when shutting down (use with defer)
//   - ok: true if lock was acquired, false if another instance is running
//   - err: error if something went wrong
func AcquireLock() (release func(), ok bool, err error) {
	if _, err := config.EnsureDataDir(); err != nil {
		return nil, false, err
	}
	path, err := config.LockFilePath()
	if err != nil {
		return nil, false, err
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, false, err
	}
	if !locked {
		return nil, false, nil
	}

	return func() {
		_ = lock.Unlock()
	}, true, nil
}
