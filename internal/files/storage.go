package files

import (
	"errors"
	"io"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")
	// ErrInvalidPath is returned for paths that leave the storage root.
	ErrInvalidPath = errors.New("invalid file path")
	// ErrNotFound is returned when no file is stored at a path.
	ErrNotFound = errors.New("file not found")
)

// Storage defines the behavior for file operations.
// Local disk is the only implementation.
type Storage interface {
	Save(path string, contents io.Reader) error
	Get(path string) (io.ReadSeekCloser, error)
}
