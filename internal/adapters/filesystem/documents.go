// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/gendbuntu/internal/ports/secondary"
)

// DocumentStore implements secondary.DocumentStore on a local directory.
type DocumentStore struct {
	basePath string
}

// NewDocumentStore creates a document store rooted at basePath.
// If basePath is empty, defaults to ~/.gendbuntu/documents.
func NewDocumentStore(basePath string) (*DocumentStore, error) {
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		basePath = filepath.Join(home, ".gendbuntu", "documents")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve documents directory: %w", err)
	}
	return &DocumentStore{basePath: abs}, nil
}

// BasePath returns the directory documents are written to.
func (s *DocumentStore) BasePath() string {
	return s.basePath
}

// Save writes data under name and returns its absolute path.
// The file is written to a temporary name first so readers never see a partial PDF.
func (s *DocumentStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create documents directory: %w", err)
	}

	path := filepath.Join(s.basePath, name)
	tmp, err := os.CreateTemp(s.basePath, ".tmp-"+name+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	return path, nil
}

// Read returns the content of a stored document.
// Only files under the store's directory can be read.
func (s *DocumentStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := s.checkInside(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

// Remove deletes a stored document. Removing a missing file succeeds.
func (s *DocumentStore) Remove(ctx context.Context, path string) error {
	if err := s.checkInside(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove document: %w", err)
	}
	return nil
}

func (s *DocumentStore) checkInside(path string) error {
	rel, err := filepath.Rel(s.basePath, filepath.Clean(path))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("document %s is outside %s", path, s.basePath)
	}
	return nil
}

var _ secondary.DocumentStore = (*DocumentStore)(nil)
