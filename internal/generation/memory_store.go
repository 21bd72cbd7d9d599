package generation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mbd888/postforge/internal/pagination"
	"github.com/mbd888/postforge/internal/platform"
)

// MemoryStore is an in-memory implementation of Store for tests and
// database-less development.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]*Record // by user ID
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]*Record)}
}

func (m *MemoryStore) Create(ctx context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := copyRecord(r)
	m.records[r.UserID] = append(m.records[r.UserID], cp)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, userID, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records[userID] {
		if r.ID == id {
			return copyRecord(r), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) List(ctx context.Context, userID string, limit int, cursor string) ([]*Record, string, error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", err
	}

	m.mu.RLock()
	all := make([]*Record, len(m.records[userID]))
	copy(all, m.records[userID])
	m.mu.RUnlock()

	// Newest first, id as tiebreaker.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	var filtered []*Record
	for _, r := range all {
		if cur != nil {
			if r.CreatedAt.After(cur.CreatedAt) {
				continue
			}
			if r.CreatedAt.Equal(cur.CreatedAt) && r.ID >= cur.ID {
				continue
			}
		}
		filtered = append(filtered, copyRecord(r))
		if len(filtered) > limit {
			break
		}
	}

	page, next, _ := pagination.ComputePage(filtered, limit, func(r *Record) (time.Time, string) {
		return r.CreatedAt, r.ID
	})
	return page, next, nil
}

func copyRecord(r *Record) *Record {
	cp := *r
	cp.Platforms = append([]platform.Platform(nil), r.Platforms...)
	cp.Outputs = make(map[platform.Platform]string, len(r.Outputs))
	for k, v := range r.Outputs {
		cp.Outputs[k] = v
	}
	return &cp
}
