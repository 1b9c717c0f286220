package blobcache

import (
	"context"

	"github.com/debemdeboas/postdeck/internal/cache"
)

type Memory struct {
	items *cache.Cache[string, []byte]
}

func NewMemory() *Memory {
	return &Memory{items: cache.NewCache[string, []byte]()}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := m.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	m.items.Set(key, append([]byte(nil), data...))
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.items.Delete(key)
	return nil
}

func (m *Memory) Len() int {
	return m.items.Len()
}
