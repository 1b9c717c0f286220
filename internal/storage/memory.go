package storage

import (
	"cmp"
	"context"
	"fmt"

	"github.com/debemdeboas/postdeck/internal/cache"
)

type object struct {
	data        []byte
	contentType string
}

type MemoryStorage struct { // implements Storage
	objects *cache.Cache[string, object]
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: cache.NewCache[string, object]()}
}

func (m *MemoryStorage) Upload(_ context.Context, path string, data []byte, contentType string) error {
	if !validPath(path) {
		return fmt.Errorf("invalid object path %q", path)
	}
	m.objects.Set(path, object{data: append([]byte(nil), data...), contentType: contentType})
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, paths []string) error {
	for _, p := range paths {
		m.objects.Delete(p)
	}
	return nil
}

func (m *MemoryStorage) Download(_ context.Context, path string) ([]byte, error) {
	obj, ok := m.objects.Get(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return append([]byte(nil), obj.data...), nil
}

// ContentType returns the type an object was uploaded with.
func (m *MemoryStorage) ContentType(path string) (string, bool) {
	obj, ok := m.objects.Get(path)
	return obj.contentType, ok
}

// Paths lists stored object paths in lexical order.
func (m *MemoryStorage) Paths() []string {
	return m.objects.Keys(cmp.Compare[string])
}
