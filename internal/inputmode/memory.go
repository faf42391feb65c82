package inputmode

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory. It is used when the bot runs
// without a database-backed store and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int64]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[int64]Record)}
}

// Upsert stores rec, replacing any record for the same user.
func (s *MemoryStore) Upsert(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ExpiresAt != nil {
		expires := *rec.ExpiresAt
		rec.ExpiresAt = &expires
	}
	s.records[rec.UserID] = rec
	return nil
}

// Get returns a copy of the user's record, or nil.
func (s *MemoryStore) Get(_ context.Context, userID int64) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Delete removes the user's record if present.
func (s *MemoryStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, userID)
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
