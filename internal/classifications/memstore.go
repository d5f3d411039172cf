package classifications

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store used by the offline CLI validation
// and by tests. WithTx gives all-or-nothing batches over a private copy.
type MemoryStore struct {
	mu    sync.Mutex
	state memState
}

// NewMemoryStore creates a store seeded with classifications.
func NewMemoryStore(seed ...Classification) *MemoryStore {
	m := &MemoryStore{state: memState{}}
	for _, c := range seed {
		m.state[c.ID] = c
	}
	return m
}

// WithTx runs fn against a copy of the store and publishes the copy only
// when fn returns nil. Transactions are serialized.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := maps.Clone(m.state)
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx
	return nil
}

// RollbackOnly runs fn against a copy of the store and discards it.
func (m *MemoryStore) RollbackOnly(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return fn(maps.Clone(m.state))
}

// All returns every stored classification ordered by domain and key.
func (m *MemoryStore) All() []Classification {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state.sorted(func(Classification) bool { return true })
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (Classification, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.FindByID(ctx, id)
}

func (m *MemoryStore) FindByKey(ctx context.Context, key, domain string) (Classification, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.FindByKey(ctx, key, domain)
}

func (m *MemoryStore) ListByDomain(ctx context.Context, domain string) ([]Classification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ListByDomain(ctx, domain)
}

func (m *MemoryStore) Upsert(ctx context.Context, c Classification) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Upsert(ctx, c)
}

type memState map[string]Classification

func (s memState) FindByID(_ context.Context, id string) (Classification, bool, error) {
	c, ok := s[id]
	return c, ok, nil
}

func (s memState) FindByKey(_ context.Context, key, domain string) (Classification, bool, error) {
	for _, c := range s {
		if c.Key == key && c.Domain == domain {
			return c, true, nil
		}
	}
	return Classification{}, false, nil
}

func (s memState) ListByDomain(_ context.Context, domain string) ([]Classification, error) {
	return s.sorted(func(c Classification) bool { return c.Domain == domain }), nil
}

func (s memState) Upsert(_ context.Context, c Classification) (string, error) {
	for id, other := range s {
		if id != c.ID && other.Key == c.Key && other.Domain == c.Domain {
			return "", ErrDuplicate
		}
	}
	s[c.ID] = c
	return c.ID, nil
}

func (s memState) sorted(keep func(Classification) bool) []Classification {
	out := make([]Classification, 0, len(s))
	for _, c := range s {
		if keep(c) {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b Classification) int {
		return cmp.Or(cmp.Compare(a.Domain, b.Domain), cmp.Compare(a.Key, b.Key))
	})
	return out
}
