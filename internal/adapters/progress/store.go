// Package progress keeps recent pipeline progress in memory so clients can
// poll it by request id.
package progress

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
)

// Store implements ports.ProgressStore on an expiring in-memory cache.
type Store struct {
	mu    sync.Mutex
	cache *cache.Cache
}

// NewStore creates a store whose entries expire ttl after their last update.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{cache: cache.New(ttl, 2*ttl)}
}

// Append records ev for requestID and refreshes the entry's expiry.
func (s *Store) Append(requestID string, ev entities.ProgressEvent) {
	if requestID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []entities.ProgressEvent
	if x, found := s.cache.Get(requestID); found {
		events = x.([]entities.ProgressEvent)
	}
	next := make([]entities.ProgressEvent, len(events), len(events)+1)
	copy(next, events)
	next = append(next, ev)
	s.cache.Set(requestID, next, cache.DefaultExpiration)
}

// Snapshot returns a copy of the events recorded for requestID.
func (s *Store) Snapshot(requestID string) ([]entities.ProgressEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	x, found := s.cache.Get(requestID)
	if !found {
		return nil, false
	}
	events := x.([]entities.ProgressEvent)
	out := make([]entities.ProgressEvent, len(events))
	copy(out, events)
	return out, true
}

// Delete forgets requestID.
func (s *Store) Delete(requestID string) {
	s.cache.Delete(requestID)
}
