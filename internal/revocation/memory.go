package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps revocations in process memory. Entries are lost on
// restart, so it only suits single instance deployments.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	entries  map[string]time.Time
	earliest time.Time
}

var _ Store = (*MemoryStore)(nil)

// MemoryOption customises a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an empty store. A non-positive ttl selects DefaultTTL.
func NewMemoryStore(ttl time.Duration, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]time.Time)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Revoke implements Store.
func (s *MemoryStore) Revoke(ctx context.Context, tokenID string) error {
	return s.RevokeUntil(ctx, tokenID, s.now().Add(s.ttl))
}

// RevokeUntil implements Store.
func (s *MemoryStore) RevokeUntil(_ context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return ErrEmptyTokenID
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(now)
	if !until.After(now) {
		return nil
	}
	s.entries[tokenID] = until
	if s.earliest.IsZero() || until.Before(s.earliest) {
		s.earliest = until
	}
	return nil
}

// IsRevoked implements Store.
func (s *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(now)
	until, ok := s.entries[tokenID]
	return ok && until.After(now), nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(now)
	return len(s.entries)
}

// purgeExpiredLocked drops entries whose deadline has passed. The scan is
// skipped until the earliest known deadline is reached.
func (s *MemoryStore) purgeExpiredLocked(now time.Time) {
	if s.earliest.IsZero() || now.Before(s.earliest) {
		return
	}
	var next time.Time
	for id, until := range s.entries {
		if !until.After(now) {
			delete(s.entries, id)
			continue
		}
		if next.IsZero() || until.Before(next) {
			next = until
		}
	}
	s.earliest = next
}
