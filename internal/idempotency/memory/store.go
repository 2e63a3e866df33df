package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dejobratic/orderdesk/internal/orders/ports"
)

type entry struct {
	response ports.StoredResponse
	savedAt  time.Time
}

// Store retains import responses in memory for replaying retried requests.
type Store struct {
	mu    sync.RWMutex
	items map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

// NewStore creates an in-memory idempotency store. A zero ttl keeps entries forever.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		items: make(map[string]entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *Store) expired(e entry) bool {
	return s.ttl > 0 && s.now().Sub(e.savedAt) >= s.ttl
}

// Get returns the live response stored for key, or nil.
func (s *Store) Get(_ context.Context, key string) (*ports.StoredResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.items[key]
	if !ok || s.expired(e) {
		return nil, nil
	}
	resp := e.response
	resp.Body = append([]byte(nil), e.response.Body...)
	return &resp, nil
}

// Save keeps the first response stored for a key until it expires.
func (s *Store) Save(_ context.Context, key string, response ports.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[key]; ok && !s.expired(e) {
		return nil
	}
	response.Body = append([]byte(nil), response.Body...)
	s.items[key] = entry{response: response, savedAt: s.now()}
	return nil
}

// DeleteExpired drops expired entries and reports how many were removed.
func (s *Store) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, e := range s.items {
		if s.expired(e) {
			delete(s.items, key)
			removed++
		}
	}
	return removed, nil
}
