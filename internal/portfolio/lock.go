package portfolio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCycleRunning means another cycle invocation holds the lock; the new
// invocation must refuse to start rather than interleave writes.
var ErrCycleRunning = errors.New("cycle already running")

const lockFile = "cycle.lock"

// CycleLock is an advisory exclusive lock held for the duration of one
// cycle. The lock file records the holder's PID for operator inspection.
type CycleLock struct {
	path string
}

func NewCycleLock(dir string) *CycleLock {
	return &CycleLock{path: filepath.Join(dir, lockFile)}
}

func (l *CycleLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: lock held at %s", ErrCycleRunning, l.path)
		}
		return err
	}
	defer f.Close()

	_, err = fmt.Fprintf(f, "%d\n", os.Getpid())
	return err
}

func (l *CycleLock) Release() error {
	return os.Remove(l.path)
}
