package locking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock is a Group implementation backed by advisory file locks, giving
// mutual exclusion across processes sharing one cache tree. Lock files live
// in a dedicated directory rather than next to the cache files, so the
// web-servable cache tree never accumulates lock artifacts.
type FileLock struct {
	dir string
}

// NewFileLock creates the lock directory if needed and returns a
// cross-process lock group rooted there.
func NewFileLock(dir string) (*FileLock, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "imgctrl-locks")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("locking: create lock dir %s: %w", dir, err)
	}
	return &FileLock{dir: dir}, nil
}

// DoWithLock runs fn while holding the advisory lock derived from key.
// Keys are hashed so arbitrary cache paths map to flat, filesystem-safe
// lock file names.
func (f *FileLock) DoWithLock(key string, fn func() error) error {
	sum := sha256.Sum256([]byte(key))
	lockPath := filepath.Join(f.dir, hex.EncodeToString(sum[:16])+".lock")

	fl := flock.New(lockPath)
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("locking: acquire %s: %w", lockPath, err)
	}
	defer func() {
		_ = fl.Unlock()
	}()
	return fn()
}
