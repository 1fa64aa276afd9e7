package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// writeFileAtomic writes data to path via a temp file in the same directory
// followed by a rename, so readers see either the old or the new content.
func writeFileAtomic(fs afero.Fs, path string, data []byte, perm os.FileMode) (err error) {
	f, err := afero.TempFile(fs, filepath.Dir(path), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	defer func() {
		if err != nil {
			fs.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = fs.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp to target: %w", err)
	}
	return nil
}

// appendFile appends data to an existing file and syncs it.
func appendFile(fs afero.Fs, path string, data []byte) (err error) {
	f, err := fs.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open for append: %w", err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("append write: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("append fsync: %w", err)
	}
	return nil
}
