package rolecache

import (
	"context"
	"sync"
	"time"
)

var _ Backend = (*MemoryBackend)(nil)

// MemoryBackend is a process-local Backend used when no Redis address is
// configured, and in tests. Entries are replaced wholesale, never mutated.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	roles     []string
	expiresAt time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (b *MemoryBackend) Get(_ context.Context, userID string) ([]string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry, ok := b.entries[userID]
	if !ok {
		return nil, false, nil
	}
	if b.now().After(entry.expiresAt) {
		delete(b.entries, userID)
		return nil, false, nil
	}
	roles := make([]string, len(entry.roles))
	copy(roles, entry.roles)
	return roles, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, userID string, roles []string, ttl time.Duration) error {
	stored := make([]string, len(roles))
	copy(stored, roles)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[userID] = memoryEntry{roles: stored, expiresAt: b.now().Add(ttl)}
	return nil
}

func (b *MemoryBackend) Del(_ context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, userID)
	return nil
}
