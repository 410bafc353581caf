// Package cooldown deduplicates repeated triggers with keyed TTL claims.
// A claim succeeds only when no unexpired claim exists for the key.
package cooldown

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store grants at most one claim per key per TTL window.
type Store interface {
	// Acquire reports true when the key was free and is now held for ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// TriggerKey is the dedup key for a detected condition on a slot.
func TriggerKey(tripID, slotID, triggerType string) string {
	return fmt.Sprintf("trigger:%s:%s:%s", tripID, slotID, triggerType)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock lets tests control expiry.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{expires: map[string]time.Time{}, now: now}
}

func (s *MemoryStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if until, ok := s.expires[key]; ok && now.Before(until) {
		return false, nil
	}
	s.expires[key] = now.Add(ttl)
	s.sweep(now)
	return true, nil
}

// sweep drops expired keys so the map stays bounded by the live set.
func (s *MemoryStore) sweep(now time.Time) {
	if len(s.expires) < 1024 {
		return
	}
	for k, until := range s.expires {
		if !now.Before(until) {
			delete(s.expires, k)
		}
	}
}
