package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FSStorage lays objects out as files under a root directory, one directory
// level per path segment.
type FSStorage struct { // implements Storage
	root string
}

func NewFSStorage(root string) (*FSStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("error creating storage root: %w", err)
	}
	return &FSStorage{root: root}, nil
}

func (s *FSStorage) file(path string) (string, error) {
	if !validPath(path) {
		return "", fmt.Errorf("invalid object path %q", path)
	}
	return filepath.Join(s.root, filepath.FromSlash(path)), nil
}

func (s *FSStorage) Upload(_ context.Context, path string, data []byte, _ string) error {
	name, err := s.file(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("error uploading %s: %w", path, err)
	}

	tmp := name + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("error uploading %s: %w", path, err)
	}
	if err := os.Rename(tmp, name); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error uploading %s: %w", path, err)
	}
	return nil
}

func (s *FSStorage) Remove(_ context.Context, paths []string) error {
	var errs []error
	for _, p := range paths {
		name, err := s.file(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("error removing %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func (s *FSStorage) Download(_ context.Context, path string) ([]byte, error) {
	name, err := s.file(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("error downloading %s: %w", path, err)
	}
	return data, nil
}
