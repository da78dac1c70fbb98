package facilitator

import (
	"sync"
	"time"
)

// settledStore records transaction IDs that have already been settled, so
// a captured payload cannot be settled twice. Transaction IDs are scoped
// to the operator account and a validity window, so the set stays small
// and can be pruned by age.
type settledStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newSettledStore() *settledStore {
	return &settledStore{entries: make(map[string]time.Time)}
}

// Seen reports whether a transaction ID was already settled.
func (s *settledStore) Seen(transactionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[transactionID]
	return ok
}

// MarkIfUnseen claims a transaction ID atomically. Returns false when the
// ID was already claimed, so concurrent settlements of the same payload
// reach the ledger at most once.
func (s *settledStore) MarkIfUnseen(transactionID string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[transactionID]; ok {
		return false
	}
	s.entries[transactionID] = at
	return true
}

// Unmark releases a claimed transaction ID after a failed execution so the
// payload can be retried.
func (s *settledStore) Unmark(transactionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, transactionID)
}

// Prune drops entries settled before cutoff.
func (s *settledStore) Prune(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, at := range s.entries {
		if at.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}
