// Package storage provides the blob store the submission pipeline
// uploads attachments to before creating their owning entity.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore uploads bytes under a key and returns a durable URL.
// Delete is the compensating action when entity creation fails after an
// upload already succeeded.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// Key builds the storage key convention {kind}/{workspace}/{owner}/{filename}.
func Key(kind, workspaceID, ownerID, filename string) string {
	return strings.Join([]string{kind, workspaceID, ownerID, filepath.Base(filename)}, "/")
}

// FSStore keeps blobs under a root directory on the local filesystem and
// serves them as file:// URLs. It backs the CLI and tests; a deployment
// can swap in any BlobStore implementation.
type FSStore struct {
	Root string
}

// NewFSStore creates the root directory if missing.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{Root: root}, nil
}

func (s *FSStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.Root, clean), nil
}

func (s *FSStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
