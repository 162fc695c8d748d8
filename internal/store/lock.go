package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 100 * time.Millisecond

// errLockTimeout is returned when another gb process holds the lock for
// longer than the configured timeout.
var errLockTimeout = errors.New("timed out waiting for lock")

// fileLock wraps an advisory lock file shared by all gb processes using
// the same state directory.
type fileLock struct {
	path    string
	timeout time.Duration
}

func (l fileLock) acquire(shared bool) (func() error, error) {
	fl := flock.New(l.path)

	ctx := context.Background()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	var ok bool
	var err error
	if shared {
		ok, err = fl.TryRLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = fl.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", errLockTimeout, l.path)
		}
		return nil, fmt.Errorf("locking %s: %w", l.path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", errLockTimeout, l.path)
	}
	return fl.Unlock, nil
}
