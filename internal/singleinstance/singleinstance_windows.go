//go:build windows

// Package singleinstance provides single instance control for the application.
package singleinstance

import (
	"github.com/graaaaa/vrcphoto-companion/internal/appinfo"
	"golang.org/x/sys/windows"
)

// AcquireLock takes a per-session named mutex so only one serve process runs
// per user session. release must be called on shutdown; ok is false when
// another instance already holds the mutex.
func AcquireLock() (release func(), ok bool, err error) {
	name, err := windows.UTF16PtrFromString(appinfo.MutexName)
	if err != nil {
		return nil, false, err
	}

	h, err := windows.CreateMutex(nil, false, name)
	if err != nil {
		if err == windows.ERROR_ALREADY_EXISTS {
			// We received a handle to someone else's mutex.
			if h != 0 {
				windows.CloseHandle(h)
			}
			return nil, false, nil
		}
		return nil, false, err
	}

	return func() { windows.CloseHandle(h) }, true, nil
}
