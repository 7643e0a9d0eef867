package drupalentity

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrMalformedEntity indicates the entity cannot be used for the requested operation
	ErrMalformedEntity = errors.New("malformed entity")

	// ErrMissingIdentifier indicates an update was requested for an entity without a UUID
	ErrMissingIdentifier = fmt.Errorf("%w: entity is missing UUID but was used in a PATCH request", ErrMalformedEntity)

	// ErrEmptyDocument indicates a JSON:API document carried no primary data
	ErrEmptyDocument = errors.New("document has no primary data")

	// ErrFileNotFound indicates a file source has no object for the given key
	ErrFileNotFound = errors.New("file not found")
)

// EntityError represents an error related to building a request for an entity
type EntityError struct {
	ResourceType string
	UUID         string
	Op           string
	Err          error
}

func (e *EntityError) Error() string {
	if e.UUID == "" {
		return fmt.Sprintf("entity operation %s failed for %s: %v", e.Op, e.ResourceType, e.Err)
	}
	return fmt.Sprintf("entity operation %s failed for %s %s: %v", e.Op, e.ResourceType, e.UUID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// FileError represents an error related to reading an upload payload
type FileError struct {
	Source string
	Key    string
	Op     string
	Err    error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file operation %s failed for key %s on source %s: %v", e.Op, e.Key, e.Source, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
