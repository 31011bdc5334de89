package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"PaperCast/internal/domain"
)

// RunLock guards the data directory against concurrent writers.
type RunLock struct {
	lock *flock.Flock
}

// NewRunLock prepares a lock file at path.
func NewRunLock(path string) *RunLock {
	return &RunLock{lock: flock.New(path)}
}

// Acquire takes the lock without waiting. A held lock is a configuration error.
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.lock.Path()), 0o755); err != nil {
		return domain.Fail(domain.ErrStorage, "create lock dir", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return domain.Fail(domain.ErrStorage, "acquire run lock", err)
	}
	if !ok {
		return domain.Fail(domain.ErrConfiguration, "acquire run lock",
			fmt.Errorf("another run holds %s", l.lock.Path()))
	}
	return nil
}

// Release drops the lock.
func (l *RunLock) Release() error {
	return l.lock.Unlock()
}
