package handshake

import (
	"context"
	"sync"
	"time"

	"github.com/veilauth/veil/internal/auth/domain"
)

// MemoryStore keeps handshakes in a mutex-protected map. It is the default
// driver for single-instance deployments; state is lost on restart, which
// is fine for a sub-minute handshake window.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	// now is swappable so tests can control expiry.
	now func() time.Time
}

type memoryEntry struct {
	hs        *domain.Handshake
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock builds a store on a caller-supplied clock.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, hs *domain.Handshake, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{
		hs:        hs,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) TakeOnce(_ context.Context, sessionID string) (*domain.Handshake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.entries, sessionID)

	if s.now().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	return e.hs, nil
}

func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	dropped := 0
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
			dropped++
		}
	}
	return dropped, nil
}

func (s *MemoryStore) Close() error { return nil }

// Len reports the number of live plus not-yet-swept entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
