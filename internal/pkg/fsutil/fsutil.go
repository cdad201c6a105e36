// Package fsutil provides file writes that are safe against concurrent readers.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temporary file next to path and renames it into place.
// Readers observe either the previous contents or the new contents, never a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// CreateExclusive creates an empty file at path.
// It fails with an error matching fs.ErrExist if the file already exists.
func CreateExclusive(path string, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	return f.Close()
}

// link is replaced in tests to simulate filesystems without hard links.
var link = os.Link

// RenameNoReplace moves oldPath to newPath without overwriting an existing newPath.
// It fails with an error matching fs.ErrExist if newPath exists.
// Where hard links are unsupported it checks newPath and falls back to os.Rename;
// that path is not atomic against a concurrent writer of newPath.
func RenameNoReplace(oldPath, newPath string) error {
	err := link(oldPath, newPath)
	switch {
	case err == nil:
		if err := os.Remove(oldPath); err != nil {
			return errors.Join(fmt.Errorf("remove old path: %w", err), os.Remove(newPath))
		}
		return nil
	case errors.Is(err, fs.ErrExist):
		return err
	}

	if _, statErr := os.Lstat(newPath); statErr == nil {
		return &fs.PathError{Op: "rename", Path: newPath, Err: fs.ErrExist}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("stat new path: %w", statErr)
	}
	if _, statErr := os.Lstat(oldPath); statErr != nil {
		return err
	}
	return os.Rename(oldPath, newPath)
}
