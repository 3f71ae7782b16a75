// Package fsutil provides all-or-nothing file writes and the run lock that
// guards the state directory.
package fsutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/agentstation/cardmap/pkg/constants"
	"github.com/agentstation/cardmap/pkg/errors"
)

// WriteFileAtomic writes data to path by writing a temporary file in the
// same directory and renaming it over path. Readers observe either the old
// or the new content, never a truncated file.
func WriteFileAtomic(path string, data []byte) error {
	return WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteAtomic streams content produced by write into path atomically.
func WriteAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return errors.WrapIO("mkdir", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.WrapIO("create", "temp file", err)
	}
	tempPath := tempFile.Name()
	cleanup := func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
	}

	if err := write(tempFile); err != nil {
		cleanup()
		return errors.WrapIO("write", path, err)
	}
	if err := tempFile.Sync(); err != nil {
		cleanup()
		return errors.WrapIO("sync", path, err)
	}
	if err := tempFile.Close(); err != nil {
		_ = os.Remove(tempPath)
		return errors.WrapIO("close", path, err)
	}
	if err := os.Chmod(tempPath, constants.FilePermissions); err != nil {
		_ = os.Remove(tempPath)
		return errors.WrapIO("chmod", path, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return errors.WrapIO("move", path, err)
	}
	return nil
}

// Lock is an exclusive advisory lock on a file.
type Lock struct {
	path string
	lock *flock.Flock
}

// AcquireLock takes the lock file at path without blocking. It returns
// errors.ErrLocked when another process holds it.
func AcquireLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("mkdir", filepath.Dir(path), err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.WrapIO("lock", path, err)
	}
	if !ok {
		return nil, &errors.IOError{
			Operation: "lock",
			Path:      path,
			Message:   "another cardmap run is in progress",
			Err:       errors.ErrLocked,
		}
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return errors.WrapIO("unlock", l.path, err)
	}
	return nil
}
