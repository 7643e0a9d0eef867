package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/tendant/drupal-entity/pkg/drupalentity"
)

// Store is a filesystem implementation of the drupalentity.FileStore interface.
// Keys are slash-separated paths below the base directory.
type Store struct {
	baseDir string
	logger  *slog.Logger
}

// Config options for the filesystem store
type Config struct {
	BaseDir string       // Directory files are read from
	Logger  *slog.Logger // Optional, defaults to slog.Default()
}

// New creates a new filesystem file store
func New(config Config) (*Store, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	info, err := os.Stat(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory %s is not a directory", config.BaseDir)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Store{baseDir: config.BaseDir, logger: config.Logger}, nil
}

// resolve maps key to a path inside baseDir; ".." cannot climb out.
func (s *Store) resolve(key string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(path.Clean("/"+key)))
}

// Stat returns metadata for a stored file
func (s *Store) Stat(ctx context.Context, key string) (*drupalentity.FileMeta, error) {
	filePath := s.resolve(key)

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, s.wrap("stat", key, err)
	}
	if info.IsDir() {
		return nil, s.wrap("stat", key, os.ErrNotExist)
	}

	// Detect content type
	contentType := "application/octet-stream"
	if file, err := os.Open(filePath); err == nil {
		defer file.Close()
		buffer := make([]byte, 512)
		if n, err := file.Read(buffer); err == nil {
			contentType = http.DetectContentType(buffer[:n])
		}
	}

	return &drupalentity.FileMeta{
		Key:         key,
		Size:        info.Size(),
		ContentType: contentType,
		UpdatedAt:   info.ModTime(),
	}, nil
}

// Open returns a reader over a stored file
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath := s.resolve(key)
	s.logger.Debug("Opening file", "key", key, "path", filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return nil, s.wrap("open", key, err)
	}
	return file, nil
}

func (s *Store) wrap(op, key string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		err = drupalentity.ErrFileNotFound
	}
	return &drupalentity.FileError{Source: "fs", Key: key, Op: op, Err: err}
}
