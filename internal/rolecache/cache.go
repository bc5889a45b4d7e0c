// Package rolecache provides a read-through cache over the identity store's
// role lookup. Entries carry a bounded TTL; a backend failure degrades to a
// direct store read and never blocks the login or refresh path.
package rolecache

import (
	"context"
	"errors"
	"time"

	"ward27.org/internal/obs"
)

const defaultTTL = 5 * time.Minute

// Source is the authoritative role lookup, normally the identity store.
type Source interface {
	Roles(ctx context.Context, userID string) ([]string, error)
}

// Backend is a TTL key-value store for role lists.
type Backend interface {
	Get(ctx context.Context, userID string) ([]string, bool, error)
	Set(ctx context.Context, userID string, roles []string, ttl time.Duration) error
	Del(ctx context.Context, userID string) error
}

// Cache resolves role names with read-through semantics.
type Cache struct {
	src     Source
	backend Backend
	ttl     time.Duration
}

// Option configures Cache behavior.
type Option func(*Cache)

// WithTTL overrides the entry time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New constructs a Cache. A nil backend means every read goes straight to
// the source.
func New(src Source, backend Backend, opts ...Option) (*Cache, error) {
	if src == nil {
		return nil, errors.New("rolecache: source is required")
	}
	c := &Cache{src: src, backend: backend, ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Roles returns the cached role list for the user, populating the cache from
// the source on a miss. Duplicate concurrent misses may each hit the source.
func (c *Cache) Roles(ctx context.Context, userID string) ([]string, error) {
	if c.backend == nil {
		return c.src.Roles(ctx, userID)
	}

	roles, ok, err := c.backend.Get(ctx, userID)
	if err != nil {
		// Cache unavailability must not deny access; fall through to the
		// authoritative store.
		obs.RecordRoleCache("bypass")
		obs.LogEvent("warn", "role cache read failed", map[string]any{"error": err.Error()})
		return c.src.Roles(ctx, userID)
	}
	if ok {
		obs.RecordRoleCache("hit")
		return roles, nil
	}

	obs.RecordRoleCache("miss")
	roles, err = c.src.Roles(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.backend.Set(ctx, userID, roles, c.ttl); err != nil {
		obs.LogEvent("warn", "role cache write failed", map[string]any{"error": err.Error()})
	}
	return roles, nil
}

// Invalidate evicts the user's entry. Called whenever role assignment
// changes outside the login path.
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Del(ctx, userID)
}
