package memory

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tendant/drupal-entity/pkg/drupalentity"
)

// Store is an in-memory implementation of the drupalentity.FileStore interface
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
}

type object struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// New creates a new in-memory file store
func New() *Store {
	return &Store{
		objects: make(map[string]object),
	}
}

// Put stores data under key. An empty contentType is sniffed from the data.
func (s *Store) Put(key string, data []byte, contentType string) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: buf, contentType: contentType, updatedAt: time.Now()}
}

// Delete removes key from the store
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[key]; !ok {
		return notFound("delete", key)
	}
	delete(s.objects, key)
	return nil
}

// Stat returns metadata for a stored file
func (s *Store) Stat(ctx context.Context, key string) (*drupalentity.FileMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, notFound("stat", key)
	}
	return &drupalentity.FileMeta{
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		UpdatedAt:   obj.updatedAt,
	}, nil
}

// Open returns a reader over a stored file
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, notFound("open", key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func notFound(op, key string) error {
	return &drupalentity.FileError{Source: "memory", Key: key, Op: op, Err: drupalentity.ErrFileNotFound}
}
