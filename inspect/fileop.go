package inspect

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"syscall"

	"labelconv/store"
)

// Op places a checked bitmap at dest. Implementations never replace an
// existing file.
type Op func(src, dest string) error

// copyFile duplicates src through an atomic FileStore write, so an
// interrupted copy never leaves a truncated bitmap behind.
func copyFile(src, dest string) error {
	slog.Info("copying", "from", src, "to", dest)

	if err := checkSource(src); err != nil {
		return err
	}
	blob, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("could not read source file %q: %w", src, err)
	}
	return store.FileStore{Path: dest}.Put(context.Background(), blob)
}

// moveFile renames src to dest, falling back to copy and delete when they
// are on different file systems.
func moveFile(src, dest string) error {
	slog.Info("moving", "from", src, "to", dest)

	if err := checkSource(src); err != nil {
		return err
	}
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("%w: %q", store.ErrExists, dest)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot stat destination file %q: %w", dest, err)
	}

	err := os.Rename(src, dest)
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}
	if err := copyFile(src, dest); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("copied to %q but could not remove source: %w", dest, err)
	}
	return nil
}

func checkSource(src string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("cannot stat source file %q: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("cannot copy non-regular file %q: %s", info.Name(), info.Mode())
	}
	return nil
}
