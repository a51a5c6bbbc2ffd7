//go:build windows

package lockfile

import (
	"os"

	"github.com/gofrs/flock"
)

// FlockExclusiveNonBlocking attempts to acquire an exclusive non-blocking lock.
// Returns nil if lock acquired, errProcessLocked if lock is held by another process.
func FlockExclusiveNonBlocking(f *os.File) error {
	fl := flock.New(f.Name())
	ok, err := fl.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return errProcessLocked
	}
	return nil
}

// FlockExclusiveBlocking acquires an exclusive blocking lock on the file.
// This will wait until the lock is available.
func FlockExclusiveBlocking(f *os.File) error {
	return flock.New(f.Name()).Lock()
}

// FlockUnlock releases a lock on the file.
func FlockUnlock(f *os.File) error {
	return flock.New(f.Name()).Unlock()
}
