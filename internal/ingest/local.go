package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalSource reads an extract from the filesystem.
type LocalSource struct {
	path string
}

func NewLocalSource(path string) *LocalSource {
	return &LocalSource{path: path}
}

func (s *LocalSource) Open(ctx context.Context) (io.ReadCloser, string, error) {
	if s.path == "" {
		return nil, "", fmt.Errorf("open extract: no input path configured")
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, "", fmt.Errorf("open extract: %w", err)
	}
	return f, filepath.Base(s.path), nil
}
