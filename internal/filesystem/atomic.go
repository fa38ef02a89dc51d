package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"desktop-thumbnailer/internal/logging"
)

const (
	// DirPerm is used for every directory created in the cache tree.
	DirPerm os.FileMode = 0o700
	// FilePerm is used for every file written to the cache tree.
	FilePerm os.FileMode = 0o600
)

// ErrTempFile is returned by WriteAtomic when no temporary file could be
// created next to the destination, even after creating its directory.
var ErrTempFile = errors.New("cannot create temporary file")

// EnsureDir creates path and any missing parents with owner-only
// permissions. Existing directories are not an error.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, DirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// CreateTemp creates a uniquely named file in the same directory as
// finalPath, so that a later rename stays on one filesystem.
func CreateTemp(finalPath string) (*os.File, error) {
	dir, base := filepath.Split(finalPath)
	name := filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")
	return os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, FilePerm)
}

// WriteAtomic writes finalPath by streaming into a temporary sibling and
// renaming it into place. The temporary file is closed before the rename,
// so readers never observe a partial file at finalPath. If the temporary
// file cannot be created, the parent directory is created and the attempt
// is repeated once.
func WriteAtomic(finalPath string, write func(w io.Writer) error) error {
	return WriteAtomicIn(finalPath, func() error {
		return EnsureDir(filepath.Dir(finalPath))
	}, write)
}

// WriteAtomicIn is WriteAtomic with a caller-supplied ensureDir, run when
// the first temporary file cannot be created.
func WriteAtomicIn(finalPath string, ensureDir func() error, write func(w io.Writer) error) error {
	f, err := CreateTemp(finalPath)
	if err != nil {
		logging.Debug("Creating temp file for %s failed (%v), ensuring directory", finalPath, err)
		if dirErr := ensureDir(); dirErr != nil {
			return fmt.Errorf("%w for %s: %v", ErrTempFile, finalPath, dirErr)
		}
		f, err = CreateTemp(finalPath)
		if err != nil {
			return fmt.Errorf("%w for %s: %v", ErrTempFile, finalPath, err)
		}
	}

	tmpPath := f.Name()
	cleanup := func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Warn("failed to remove temp file %s: %v", tmpPath, rmErr)
		}
	}

	if err := write(f); err != nil {
		_ = f.Close()
		cleanup()
		return err
	}

	// OpenFile's mode is filtered by umask; force owner-only explicitly.
	if err := f.Chmod(FilePerm); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("failed to set permissions on %s: %w", tmpPath, err)
	}

	if err := f.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		cleanup()
		return fmt.Errorf("failed to rename %s to %s: %w", tmpPath, finalPath, err)
	}

	return nil
}
