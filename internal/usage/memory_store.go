package usage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory usage store for demo/development mode.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*Profile
	events   map[string][]*Event // by user ID, append order
}

// NewMemoryStore creates a new in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*Profile),
		events:   make(map[string][]*Event),
	}
}

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) CreateProfile(ctx context.Context, p *Profile) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.profiles[p.UserID]; ok {
		// Concurrent bootstrap: first writer wins.
		cp := *existing
		return &cp, nil
	}
	cp := *p
	m.profiles[p.UserID] = &cp
	out := cp
	return &out, nil
}

// SetPlan assigns a plan and optional override (test and admin helper).
func (m *MemoryStore) SetPlan(userID string, p *Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[userID] = &cp
}

func (m *MemoryStore) CountEventsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(userID, since), nil
}

func (m *MemoryStore) countLocked(userID string, since time.Time) int {
	n := 0
	for _, e := range m.events[userID] {
		if !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n
}

func (m *MemoryStore) AppendEvent(ctx context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.events[e.UserID] = append(m.events[e.UserID], &cp)
	return nil
}

// ReserveDaily counts and appends under one lock, so concurrent callers
// cannot overshoot a bounded daily limit.
func (m *MemoryStore) ReserveDaily(ctx context.Context, e *Event, since time.Time, limit *int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	used := m.countLocked(e.UserID, since)
	if limit != nil && used >= *limit {
		return used, false, nil
	}

	cp := *e
	m.events[e.UserID] = append(m.events[e.UserID], &cp)
	return used + 1, true, nil
}
