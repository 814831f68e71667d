// Package lock implements a cross-process advisory file lock used to
// ensure at most one sync run executes against a destination at a time.
//
// The lock is an OS-native exclusive, non-blocking lock on a dedicated
// lock file, not an existence check: existence checks have a
// check-then-act race between the stat and the create.
package lock

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Lock holds exclusive ownership of a lock file for a run's lifetime.
type Lock struct {
	path string
	fd   *os.File
	held bool
}

// New creates a Lock for the given lock-file path.
func New(path string) *Lock {
	return &Lock{path: path}
}

// NewForTest creates a Lock scoped to a unique temporary path so
// concurrent test processes never interfere with each other.
func NewForTest(prefix string) (*Lock, error) {
	f, err := os.CreateTemp("", prefix+"-*.lock")
	if err != nil {
		return nil, err
	}
	path := f.Name()
	_ = f.Close()
	return &Lock{path: path}, nil
}

// DefaultPath returns the lock-file path for a destination directory:
// a file under the system temp dir keyed by a hash of the destination,
// so runs against different destinations never contend.
func DefaultPath(dest string) string {
	sum := fmt.Sprintf("%x", sha256.Sum256([]byte(dest)))[:16]
	return filepath.Join(os.TempDir(), fmt.Sprintf("reposync-%s.lock", sum))
}

// Path returns the lock-file path.
func (l *Lock) Path() string { return l.path }

// Held reports whether this process currently holds the lock.
func (l *Lock) Held() bool { return l.held }

// Acquire attempts to take the lock without blocking. It returns false
// immediately when another process already holds it.
func (l *Lock) Acquire() bool {
	if l.held {
		return true
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false
	}
	fd, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return false
	}
	if err := flockExclusive(fd); err != nil {
		_ = fd.Close()
		return false
	}
	// PID is informational only, for operators inspecting a held lock.
	_ = fd.Truncate(0)
	_, _ = fd.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	l.fd = fd
	l.held = true
	return true
}

// Release drops the lock. It is safe to call multiple times and safe
// to call when Acquire was never called or failed.
func (l *Lock) Release() {
	if !l.held || l.fd == nil {
		return
	}
	_ = funlock(l.fd)
	_ = l.fd.Close()
	l.fd = nil
	l.held = false
	_ = os.Remove(l.path)
}
