package store

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrStorage marks failures of the persistence layer. They are the only
// errors worth retrying.
var ErrStorage = errors.New("storage error")

// Store persists one encoded image.
type Store interface {
	Put(ctx context.Context, blob []byte) error
}

func storageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrStorage, fmt.Errorf(format, args...))
}

// WriterStore writes the blob to W, typically standard output.
type WriterStore struct {
	W io.Writer
}

func (s WriterStore) Put(_ context.Context, blob []byte) error {
	n, err := s.W.Write(blob)
	if err != nil {
		return storageErr("could not write image: %w", err)
	} else if n != len(blob) {
		return storageErr("wrote only %d/%d bytes", n, len(blob))
	}
	return nil
}
