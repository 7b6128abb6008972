package pendingauth

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is an in-memory implementation of the Store interface.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryStore creates a new InMemoryStore whose entries live for ttl.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock replaces the time source. Used in tests.
func (s *InMemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *InMemoryStore) expired(e Entry) bool {
	return s.now().Sub(e.CreatedAt) > s.ttl
}

// Put stores or replaces an entry.
func (s *InMemoryStore) Put(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.AuthID] = entry
	return nil
}

// Get retrieves a live entry.
func (s *InMemoryStore) Get(ctx context.Context, authID string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[authID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if s.expired(entry) {
		delete(s.entries, authID)
		return Entry{}, ErrExpired
	}
	return entry, nil
}

// Take removes and returns a live entry.
func (s *InMemoryStore) Take(ctx context.Context, authID string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[authID]
	if !ok {
		return Entry{}, ErrNotFound
	}
	delete(s.entries, authID)
	if s.expired(entry) {
		return Entry{}, ErrExpired
	}
	return entry, nil
}

// LatestForUser returns the newest live entry for userID.
func (s *InMemoryStore) LatestForUser(ctx context.Context, userID int64) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		latest Entry
		found  bool
	)
	for _, entry := range s.entries {
		if entry.UserID != userID || s.expired(entry) {
			continue
		}
		if !found || entry.CreatedAt.After(latest.CreatedAt) {
			latest, found = entry, true
		}
	}
	if !found {
		return Entry{}, ErrNotFound
	}
	return latest, nil
}

// Sweep evicts expired entries.
func (s *InMemoryStore) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		if s.expired(entry) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
