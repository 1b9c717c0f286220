package editor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const sessionExt = ".session"

// FSRepository keeps one file per session name under a directory.
type FSRepository struct {
	dir string
}

func NewFSRepository(dir string) (*FSRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating session dir: %w", err)
	}
	return &FSRepository{dir: dir}, nil
}

func (r *FSRepository) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid session name %q", name)
	}
	return filepath.Join(r.dir, name+sessionExt), nil
}

func (r *FSRepository) SaveSession(_ context.Context, name string, record []byte) error {
	p, err := r.path(name)
	if err != nil {
		return err
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, record, 0o644); err != nil {
		return fmt.Errorf("error saving session %s: %w", name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("error saving session %s: %w", name, err)
	}
	return nil
}

func (r *FSRepository) GetSession(_ context.Context, name string) (*Session, error) {
	p, err := r.path(name)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("error loading session %s: %w", name, err)
	}

	record, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("error loading session %s: %w", name, err)
	}
	return &Session{Name: name, Record: record, ModifiedAt: info.ModTime()}, nil
}

func (r *FSRepository) DeleteSession(_ context.Context, name string) error {
	p, err := r.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error deleting session %s: %w", name, err)
	}
	return nil
}
