// Package lock serialises exports of the same branch and architecture
// with MySQL advisory locks.
package lock

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"

	"github.com/dbsmedya/germinate/internal/logger"
)

// ErrLockTimeout is returned when lock acquisition times out because
// another instance is holding the lock.
var ErrLockTimeout = zerr.New("lock acquisition timed out")

// Common timeout values for lock acquisition (in seconds).
const (
	// TimeoutImmediate returns immediately if lock cannot be acquired (no wait).
	TimeoutImmediate = 0

	// TimeoutShort is suitable for fast-failing duplicate export detection.
	TimeoutShort = 1

	// TimeoutMedium provides a reasonable wait for transient conflicts.
	TimeoutMedium = 10

	// TimeoutInfinite waits indefinitely until the lock is acquired.
	// Note: MySQL treats negative values as infinite wait.
	TimeoutInfinite = -1
)

// maxLockName is MySQL's limit on advisory lock names.
const maxLockName = 64

// AdvisoryLock is a named MySQL lock taken with GET_LOCK(). It is released
// by ReleaseLock or when the connection closes.
type AdvisoryLock struct {
	db       *sql.DB
	lockName string
	held     bool
	log      *logger.Logger
}

// NewAdvisoryLock creates a new advisory lock with the given name.
// The lock is not acquired until AcquireLock is called.
func NewAdvisoryLock(db *sql.DB, lockName string, log *logger.Logger) *AdvisoryLock {
	if log == nil {
		log = logger.NewNop()
	}
	return &AdvisoryLock{
		db:       db,
		lockName: lockName,
		log:      log,
	}
}

// AcquireLock attempts to acquire the advisory lock with the specified timeout.
// Returns true if the lock was acquired, false if timeout was reached.
//
// MySQL GET_LOCK() return values:
//   - 1: Lock was obtained successfully
//   - 0: Timeout was reached without obtaining the lock
//   - NULL: An error occurred (e.g., out of memory, thread killed)
func (a *AdvisoryLock) AcquireLock(ctx context.Context, timeoutSeconds int) (bool, error) {
	if a.held {
		return true, nil
	}

	var result sql.NullInt64
	err := a.db.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", a.lockName, timeoutSeconds).Scan(&result)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to execute GET_LOCK"), "lock", a.lockName)
	}

	if !result.Valid {
		return false, zerr.With(zerr.New("GET_LOCK returned NULL"), "lock", a.lockName)
	}

	switch result.Int64 {
	case 1:
		a.held = true
		return true, nil
	case 0:
		return false, nil
	default:
		return false, zerr.With(zerr.New("unexpected GET_LOCK return value"), "value", result.Int64)
	}
}

// ReleaseLock releases the advisory lock.
// Returns true if the lock was released, false if it was not held.
//
// MySQL RELEASE_LOCK() return values:
//   - 1: Lock was released successfully
//   - 0: Lock was not established by this thread (not held)
//   - NULL: Named lock did not exist
func (a *AdvisoryLock) ReleaseLock(ctx context.Context) (bool, error) {
	if !a.held {
		return false, nil
	}

	var result sql.NullInt64
	err := a.db.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", a.lockName).Scan(&result)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to execute RELEASE_LOCK"), "lock", a.lockName)
	}

	if !result.Valid {
		a.held = false
		return false, zerr.With(zerr.New("RELEASE_LOCK returned NULL (lock did not exist)"), "lock", a.lockName)
	}

	switch result.Int64 {
	case 1:
		a.held = false
		return true, nil
	case 0:
		a.held = false
		return false, nil
	default:
		return false, zerr.With(zerr.New("unexpected RELEASE_LOCK return value"), "value", result.Int64)
	}
}

// IsHeld returns true if this lock is currently held by this instance.
func (a *AdvisoryLock) IsHeld() bool {
	return a.held
}

// LockName returns the name of the advisory lock.
func (a *AdvisoryLock) LockName() string {
	return a.lockName
}

// TryAcquire attempts to acquire the lock without waiting.
func (a *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	return a.AcquireLock(ctx, TimeoutImmediate)
}

// WithLock runs fn while holding the lock. The lock is released even if fn
// panics. ErrLockTimeout is returned when the lock cannot be acquired
// within timeoutSeconds.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeoutSeconds int, fn func() error) error {
	acquired, err := a.AcquireLock(ctx, timeoutSeconds)
	if err != nil {
		return zerr.Wrap(err, "failed to acquire lock")
	}
	if !acquired {
		return zerr.With(zerr.Wrap(ErrLockTimeout, "lock is held by another instance"), "lock", a.lockName)
	}

	defer func() {
		// A cancelled ctx must not keep the lock until the connection closes.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, releaseErr := a.ReleaseLock(releaseCtx); releaseErr != nil {
			a.log.Warnw("Failed to release advisory lock", "lock", a.lockName, "error", releaseErr)
		}
	}()

	return fn()
}

// GenerateExportLockName creates the lock name guarding exports of one
// branch and architecture: "germinate:export:{branch}:{arch}". Characters
// outside [A-Za-z0-9_.-] become underscores; names over MySQL's limit are
// shortened with a hash suffix.
func GenerateExportLockName(branch, arch string) string {
	sanitize := func(s string) string {
		return strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.' {
				return r
			}
			return '_'
		}, s)
	}

	name := fmt.Sprintf("germinate:export:%s:%s", sanitize(branch), sanitize(arch))
	if len(name) <= maxLockName {
		return name
	}
	suffix := fmt.Sprintf(":%016x", xxhash.Sum64String(name))
	return name[:maxLockName-len(suffix)] + suffix
}

// NewExportLock creates the advisory lock for exporting branch/arch.
//
// Example:
//
//	l := lock.NewExportLock(db, "ubuntu.noble", "amd64", log)
//	if err := l.WithLock(ctx, lock.TimeoutMedium, save); errors.Is(err, lock.ErrLockTimeout) {
//	    log.Warn("Another export of this branch is running")
//	}
func NewExportLock(db *sql.DB, branch, arch string, log *logger.Logger) *AdvisoryLock {
	return NewAdvisoryLock(db, GenerateExportLockName(branch, arch), log)
}

// IsExportRunning reports whether another instance currently holds the
// export lock of branch/arch. The answer may be stale by the time it is
// returned.
func IsExportRunning(ctx context.Context, db *sql.DB, branch, arch string) (bool, error) {
	l := NewExportLock(db, branch, arch, nil)

	acquired, err := l.TryAcquire(ctx)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to check export lock"), "branch", branch)
	}
	if acquired {
		if _, err := l.ReleaseLock(ctx); err != nil {
			return false, zerr.Wrap(err, "failed to release probe lock")
		}
		return false, nil
	}
	return true, nil
}
