package harness

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockTimeout is the maximum time to wait for the scratch-dir lock.
// If exceeded, the run proceeds without locking (fail-open) rather than
// hanging behind a crashed process.
const lockTimeout = 100 * time.Millisecond

// Lock guards the scratch directory so concurrent runs do not clobber
// each other's fixture files.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock obtains an exclusive lock on the scratch directory.
// Returns a nil Lock (no error) when the lock cannot be acquired within
// the timeout; Release on a nil Lock is a no-op.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	fl := flock.New(filepath.Join(dir, ".lock"))

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, nil
		}
		return nil, err
	}
	if !locked {
		return nil, nil
	}

	return &Lock{fl: fl}, nil
}

// Release releases the lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
