package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrExists reports a destination that is already present. It is not a
// storage fault and retrying cannot clear it.
var ErrExists = errors.New("destination file already exists")

// FileStore writes the blob to Path through a temporary file in the same
// directory that is renamed into place only after a successful write.
type FileStore struct {
	Path string
	// Overwrite allows replacing an existing file.
	Overwrite bool
}

func (s FileStore) Put(_ context.Context, blob []byte) (err error) {
	if !s.Overwrite {
		if err := checkDest(s.Path); err != nil {
			return err
		}
	}

	dir, name := filepath.Split(s.Path)
	if dir == "" {
		dir = "."
	}
	outFile, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return storageErr("could not create temporary destination for %q: %w", s.Path, err)
	}
	canRename := false
	defer func() {
		if defErr := outFile.Sync(); defErr != nil && err == nil {
			err = storageErr("could not flush temporary destination %q: %w", outFile.Name(), defErr)
		}
		if defErr := outFile.Close(); defErr != nil && err == nil {
			err = storageErr("could not close temporary destination %q: %w", outFile.Name(), defErr)
		}

		if canRename && err == nil {
			if defErr := os.Rename(outFile.Name(), s.Path); defErr != nil {
				err = storageErr("could not rename destination file %q: %w", s.Path, defErr)
			}
		}
		if err != nil {
			if rmErr := os.Remove(outFile.Name()); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				slog.Error("could not remove temporary file", "name", outFile.Name(), "error", rmErr)
			}
		}
	}()

	n, err := outFile.Write(blob)
	if err != nil {
		return storageErr("could not write %q: %w", outFile.Name(), err)
	} else if n != len(blob) {
		return storageErr("wrote only %d/%d bytes to %q", n, len(blob), outFile.Name())
	}

	slog.Info("writing image", "file", s.Path, "bytes", n)
	canRename = true
	return nil
}

func checkDest(dest string) error {
	destFileInfo, err := os.Stat(dest)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return storageErr("cannot stat destination file %q: %w", dest, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrExists, destFileInfo.Name())
}

// String implements fmt.Stringer for log output.
func (s FileStore) String() string {
	return fmt.Sprintf("file:%s", s.Path)
}
