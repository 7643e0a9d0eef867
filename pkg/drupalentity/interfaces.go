package drupalentity

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"
)

// File is an upload payload with a file name
type File interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileMeta describes a stored file
type FileMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}

// FileStore reads upload payloads by key. Implementations return an error
// wrapping ErrFileNotFound for unknown keys.
type FileStore interface {
	// Stat returns metadata for a stored file
	Stat(ctx context.Context, key string) (*FileMeta, error)

	// Open returns a reader over a stored file
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// StoreFile returns the file stored under key. Its name is the last element
// of the key.
func StoreFile(store FileStore, key string) File {
	return &storeFile{store: store, key: key}
}

type storeFile struct {
	store FileStore
	key   string
}

func (f *storeFile) Name() string {
	return path.Base(f.key)
}

func (f *storeFile) Open(ctx context.Context) (io.ReadCloser, error) {
	return f.store.Open(ctx, f.key)
}

// BytesFile returns a file backed by data.
func BytesFile(name string, data []byte) File {
	return &bytesFile{name: name, data: data}
}

type bytesFile struct {
	name string
	data []byte
}

func (f *bytesFile) Name() string {
	return f.name
}

func (f *bytesFile) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

// ReadFile reads file fully into memory.
func ReadFile(ctx context.Context, file File) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := file.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Name(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data, nil
}
