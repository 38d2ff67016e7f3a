package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local is a Storage rooted at a directory on the local disk.
type Local struct {
	maxFileSize int64 // Maximum number of bytes for files
	basePath    string
}

// NewLocal creates a new Local filesystem with the given base path
// basePath is the base directory to save the files to
// maxSize is the max number of bytes that a file can be
func NewLocal(basePath string, maxSize int64) (*Local, error) {
	p, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}

	return &Local{basePath: p, maxFileSize: maxSize}, nil
}

// Save writes contents to path atomically. Nothing is kept when contents
// is larger than the size limit.
func (l *Local) Save(path string, contents io.Reader) error {
	fp, err := l.fullPath(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(fp)

	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("unable to create directory: %w", err)
	}

	// write next to the target so the rename stays on one filesystem
	tempFile, err := os.CreateTemp(dir, "temp-*")
	if err != nil {
		return fmt.Errorf("unable to create temporary file: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)

	// read one byte past the limit to detect oversized uploads
	written, err := io.Copy(tempFile, io.LimitReader(contents, l.maxFileSize+1))
	if err != nil {
		tempFile.Close()
		return fmt.Errorf("unable to write to file: %w", err)
	}

	if err = tempFile.Close(); err != nil {
		return fmt.Errorf("unable to close temporary file: %w", err)
	}

	if written > l.maxFileSize {
		return fmt.Errorf("%w of %d bytes", ErrFileTooLarge, l.maxFileSize)
	}

	if err := os.Rename(tempPath, fp); err != nil {
		return fmt.Errorf("unable to move temporary file to final location: %w", err)
	}

	return nil
}

func (l *Local) Get(path string) (io.ReadSeekCloser, error) {
	fp, err := l.fullPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(fp)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open the file: %w", err)
	}

	return f, nil
}

// fullPath resolves path under the base path, refusing anything that
// would end up outside it.
func (l *Local) fullPath(path string) (string, error) {
	if path == "" {
		return "", ErrInvalidPath
	}

	fp := filepath.Join(l.basePath, path)
	if fp == l.basePath || !strings.HasPrefix(fp, l.basePath+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return fp, nil
}
