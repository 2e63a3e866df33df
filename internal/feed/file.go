package feed

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads the feed from a file on disk.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read feed file %s: %w", s.path, err)
	}
	return payload, nil
}
