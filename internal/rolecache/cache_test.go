package rolecache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingSource struct {
	calls int
	roles []string
	err   error
}

func (s *countingSource) Roles(context.Context, string) ([]string, error) {
	s.calls++
	return s.roles, s.err
}

type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]string, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (failingBackend) Set(context.Context, string, []string, time.Duration) error {
	return errors.New("connection refused")
}
func (failingBackend) Del(context.Context, string) error {
	return errors.New("connection refused")
}

func TestReadThroughPopulatesOnMiss(t *testing.T) {
	src := &countingSource{roles: []string{"worker", "coordinator"}}
	cache, err := New(src, NewMemoryBackend())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	first, err := cache.Roles(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.Roles(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}

	if src.calls != 1 {
		t.Fatalf("expected a single source read, got %d", src.calls)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("unexpected roles: %v / %v", first, second)
	}
}

func TestEntriesExpireAfterTTL(t *testing.T) {
	src := &countingSource{roles: []string{"worker"}}
	backend := NewMemoryBackend()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }

	cache, err := New(src, backend, WithTTL(5*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := cache.Roles(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	now = now.Add(4 * time.Minute)
	if _, err := cache.Roles(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if src.calls != 1 {
		t.Fatalf("entry expired early: %d source reads", src.calls)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.Roles(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Fatalf("expected a re-read after TTL, got %d source reads", src.calls)
	}
}

func TestInvalidateEvictsEntry(t *testing.T) {
	src := &countingSource{roles: []string{"worker"}}
	cache, err := New(src, NewMemoryBackend())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if _, err := cache.Roles(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if err := cache.Invalidate(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Roles(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if src.calls != 2 {
		t.Fatalf("expected a source read after invalidation, got %d", src.calls)
	}
}

func TestBackendFailureBypassesToSource(t *testing.T) {
	src := &countingSource{roles: []string{"worker"}}
	cache, err := New(src, failingBackend{})
	if err != nil {
		t.Fatal(err)
	}

	roles, err := cache.Roles(context.Background(), "u1")
	if err != nil {
		t.Fatalf("backend failure must not deny the lookup: %v", err)
	}
	if len(roles) != 1 || roles[0] != "worker" {
		t.Fatalf("unexpected roles: %v", roles)
	}
	if src.calls != 1 {
		t.Fatalf("expected a direct source read, got %d", src.calls)
	}
}

func TestSourceErrorPropagatesOnMiss(t *testing.T) {
	wantErr := errors.New("store down")
	src := &countingSource{err: wantErr}
	cache, err := New(src, NewMemoryBackend())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := cache.Roles(context.Background(), "u1"); !errors.Is(err, wantErr) {
		t.Fatalf("expected source error to propagate, got %v", err)
	}
}

func TestNilBackendReadsSourceDirectly(t *testing.T) {
	src := &countingSource{roles: []string{"worker"}}
	cache, err := New(src, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cache.Roles(ctx, "u1"); err != nil {
			t.Fatal(err)
		}
	}
	if src.calls != 3 {
		t.Fatalf("expected every read to hit the source, got %d", src.calls)
	}
	if err := cache.Invalidate(ctx, "u1"); err != nil {
		t.Fatalf("invalidate without backend should be a no-op: %v", err)
	}
}

func TestCachedSliceIsIsolated(t *testing.T) {
	src := &countingSource{roles: []string{"worker"}}
	cache, err := New(src, NewMemoryBackend())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	first, err := cache.Roles(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	first[0] = "admin"

	second, err := cache.Roles(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if second[0] != "worker" {
		t.Fatalf("caller mutation leaked into the cache: %v", second)
	}
}
