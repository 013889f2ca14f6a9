package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests. The clock is injectable so
// TTL expiry can be exercised without sleeping. Setting Err makes every
// operation fail, simulating a fast-tier outage.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry

	// Now supplies the current time. Defaults to time.Now.
	Now func() time.Time

	// Err, when non-nil, is returned by every operation.
	Err error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		Now:     time.Now,
	}
}

func (s *MemoryStore) get(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !s.Now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return "", s.Err
	}
	entry, ok := s.get(key)
	if !ok {
		return "", ErrCacheMiss
	}
	return entry.value, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = s.Now().Add(ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return 0, s.Err
	}

	var current int64
	if entry, ok := s.get(key); ok {
		parsed, err := strconv.ParseInt(entry.value, 10, 64)
		if err != nil {
			return 0, err
		}
		current = parsed
	}
	current++

	entry := s.entries[key]
	entry.value = strconv.FormatInt(current, 10)
	s.entries[key] = entry
	return current, nil
}

func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	if entry, ok := s.get(key); ok {
		entry.expiresAt = s.Now().Add(ttl)
		s.entries[key] = entry
	}
	return nil
}

// TTL reports the remaining lifetime of key, for test assertions.
// Returns false when the key is absent or has no expiry.
func (s *MemoryStore) TTL(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.get(key)
	if !ok || entry.expiresAt.IsZero() {
		return 0, false
	}
	return entry.expiresAt.Sub(s.Now()), true
}
