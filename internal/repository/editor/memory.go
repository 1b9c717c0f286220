package editor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type MemoryRepository struct {
	sessions sync.Map
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) SaveSession(_ context.Context, name string, record []byte) error {
	m.sessions.Store(name, &Session{
		Name:       name,
		Record:     append([]byte(nil), record...),
		ModifiedAt: time.Now(),
	})
	return nil
}

func (m *MemoryRepository) GetSession(_ context.Context, name string) (*Session, error) {
	if s, ok := m.sessions.Load(name); ok {
		stored := s.(*Session)
		return &Session{
			Name:       stored.Name,
			Record:     append([]byte(nil), stored.Record...),
			ModifiedAt: stored.ModifiedAt,
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (m *MemoryRepository) DeleteSession(_ context.Context, name string) error {
	m.sessions.Delete(name)
	return nil
}
