//go:build !unix && !windows && !(js && wasm)

package lockfile

import (
	"os"

	"github.com/gofrs/flock"
)

// On platforms with neither a unix nor a windows build tag (e.g. wasip1),
// fall back to gofrs/flock's portable implementation rather than calling
// into golang.org/x/sys directly.

func FlockSharedNonBlock(f *os.File) error {
	fl := flock.New(f.Name())
	ok, err := fl.TryRLock()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockBusy
	}
	return nil
}

func FlockExclusiveNonBlock(f *os.File) error {
	fl := flock.New(f.Name())
	ok, err := fl.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLockBusy
	}
	return nil
}

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

func FlockExclusiveBlocking(f *os.File) error {
	fl := flock.New(f.Name())
	return fl.Lock()
}

func FlockUnlock(f *os.File) error {
	fl := flock.New(f.Name())
	return fl.Unlock()
}

func isProcessRunning(pid int) bool {
	// No portable liveness probe on this platform; treat as not running so
	// a stale lock never blocks a restart indefinitely.
	return false
}
