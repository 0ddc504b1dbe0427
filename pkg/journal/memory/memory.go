// Package memory provides an in-memory journal.Store for development and
// tests. Exchanges are lost when the process restarts and the store grows
// without bound.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/sandbox-llm/orch/pkg/journal"
)

// entry holds a recorded exchange and its insertion order.
type entry struct {
	x        *journal.Exchange
	tenantID string
	seq      uint64
}

// Store is an in-memory journal.Store.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	nextSeq uint64
}

// Ensure Store implements journal.Store at compile time.
var _ journal.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Record stores a copy of x.
func (s *Store) Record(ctx context.Context, x *journal.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[x.ID]; exists {
		return journal.ErrConflict
	}

	cp := *x
	cp.Tenant = journal.TenantFor(ctx, x)
	s.nextSeq++
	s.entries[x.ID] = &entry{x: &cp, tenantID: cp.Tenant, seq: s.nextSeq}
	return nil
}

// Get retrieves an exchange by ID. Scoped by tenant when a tenant is
// present in the context.
func (s *Store) Get(ctx context.Context, id string) (*journal.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok || !visible(ctx, e) {
		return nil, journal.ErrNotFound
	}
	cp := *e.x
	return &cp, nil
}

// List returns exchanges newest first with cursor-based pagination.
func (s *Store) List(ctx context.Context, opts journal.ListOptions) (*journal.ExchangeList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*entry
	for _, e := range s.entries {
		if visible(ctx, e) {
			matches = append(matches, e)
		}
	}

	slices.SortFunc(matches, func(a, b *entry) int {
		if c := b.x.CreatedAt.Compare(a.x.CreatedAt); c != 0 {
			return c
		}
		return compareSeq(b.seq, a.seq)
	})

	if opts.After != "" {
		idx := slices.IndexFunc(matches, func(e *entry) bool { return e.x.ID == opts.After })
		if idx < 0 {
			matches = nil
		} else {
			matches = matches[idx+1:]
		}
	}

	limit := journal.NormalizeLimit(opts.Limit)
	if len(matches) > limit+1 {
		matches = matches[:limit+1]
	}

	rows := make([]*journal.Exchange, 0, len(matches))
	for _, e := range matches {
		cp := *e.x
		rows = append(rows, &cp)
	}
	return journal.NewList(rows, limit), nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func visible(ctx context.Context, e *entry) bool {
	tenantID := journal.GetTenant(ctx)
	return tenantID == "" || e.tenantID == tenantID
}

func compareSeq(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
