package store

import (
	"context"
	"sync"

	"enrollgate/internal/audit"
)

// InMemoryStore is an append-only in-memory audit trail. Sequence numbers
// increase monotonically under the append lock.
type InMemoryStore struct {
	mu       sync.RWMutex
	attempts []audit.Attempt
	seq      uint64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, attempt audit.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	attempt.Sequence = s.seq
	s.attempts = append(s.attempts, attempt)
	return nil
}

// List returns matching attempts in append order. Limit 0 means no limit.
func (s *InMemoryStore) List(_ context.Context, query audit.Query) ([]audit.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Attempt
	for _, attempt := range s.attempts {
		if !query.Matches(attempt) {
			continue
		}
		out = append(out, attempt)
		if query.Limit > 0 && len(out) == query.Limit {
			break
		}
	}
	return out, nil
}
