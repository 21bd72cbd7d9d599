package brandvoice

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory voice store for demo/development mode.
type MemoryStore struct {
	mu     sync.RWMutex
	voices map[string]*Voice // by ID
}

// NewMemoryStore creates a new in-memory voice store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{voices: make(map[string]*Voice)}
}

func (m *MemoryStore) Create(ctx context.Context, v *Voice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voices[v.ID] = copyVoice(v)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, userID, id string) (*Voice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.voices[id]
	if !ok || v.UserID != userID {
		return nil, ErrNotFound
	}
	return copyVoice(v), nil
}

func (m *MemoryStore) List(ctx context.Context, userID string) ([]*Voice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Voice
	for _, v := range m.voices {
		if v.UserID == userID {
			out = append(out, copyVoice(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func copyVoice(v *Voice) *Voice {
	cp := *v
	cp.Vocabulary = append([]string(nil), v.Vocabulary...)
	cp.FormatTraits = append([]string(nil), v.FormatTraits...)
	return &cp
}

func (m *MemoryStore) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.voices[id]
	if !ok || v.UserID != userID {
		return ErrNotFound
	}
	delete(m.voices, id)
	return nil
}
