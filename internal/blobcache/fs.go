package blobcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/debemdeboas/postdeck/internal/util/compression"
	"github.com/gofrs/flock"
)

const lockFileName = ".lock"

// FS keeps one file per key under a directory that it holds an exclusive lock
// on, so two processes never share a cache directory.
type FS struct {
	dir        string
	lock       *flock.Flock
	compressor compression.Compressor
}

// OpenFS creates dir if needed and locks it. Close releases the lock.
func OpenFS(dir string, compressor compression.Compressor) (*FS, error) {
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("error creating blob cache dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire blob cache lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}

	blobLogger.Debug().Str("dir", dir).Msg("Blob cache directory locked")
	return &FS{dir: dir, lock: lock, compressor: compressor}, nil
}

func (f *FS) Close() error {
	return f.lock.Unlock()
}

func (f *FS) path(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, key), nil
}

func (f *FS) Get(_ context.Context, key string) ([]byte, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, false, err
	}

	compressed, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading blob %s: %w", key, err)
	}

	data, err := f.compressor.Decompress(compressed)
	if err != nil {
		return nil, false, fmt.Errorf("error decompressing blob %s: %w", key, err)
	}
	return data, true, nil
}

func (f *FS) Set(_ context.Context, key string, data []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	compressed, err := f.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("error compressing blob %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(f.dir, "."+key+".*")
	if err != nil {
		return fmt.Errorf("error writing blob %s: %w", key, err)
	}
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing blob %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing blob %s: %w", key, err)
	}
	return nil
}

func (f *FS) Delete(_ context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error deleting blob %s: %w", key, err)
	}
	return nil
}
