package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGetOrLoadCachesSuccessfulLoads(t *testing.T) {
	queryCache := New(Config{Size: 8, TTL: time.Hour})
	calls := 0
	load := func(context.Context) ([]string, error) {
		calls++
		return []string{"go", "rust"}, nil
	}

	for attempt := 0; attempt < 3; attempt++ {
		values, err := GetOrLoad(context.Background(), queryCache, ListKey("skills"), load)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(values) != 2 {
			t.Fatalf("unexpected values %v", values)
		}
	}
	if calls != 1 {
		t.Fatalf("expected a single load, got %d", calls)
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	queryCache := New(Config{})
	calls := 0
	load := func(context.Context) (int, error) {
		calls++
		return 0, errors.New("store offline")
	}
	_, _ = GetOrLoad(context.Background(), queryCache, "k", load)
	_, _ = GetOrLoad(context.Background(), queryCache, "k", load)
	if calls != 2 {
		t.Fatalf("expected errors to bypass the cache, got %d loads", calls)
	}
}

func TestInvalidatePrefixDropsCollectionKeys(t *testing.T) {
	queryCache := New(Config{})
	queryCache.Set(ListKey("projects"), 1)
	queryCache.Set(DetailKey("projects", "p-1"), 2)
	queryCache.Set(ListKey("skills"), 3)

	removed := queryCache.InvalidatePrefix(CollectionPrefix("projects"))
	if removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	if _, ok := queryCache.Get(ListKey("skills")); !ok {
		t.Fatalf("expected unrelated collection to stay cached")
	}
}

func TestNilCacheIsPassthrough(t *testing.T) {
	var queryCache *QueryCache
	queryCache.Set("k", 1)
	if _, ok := queryCache.Get("k"); ok {
		t.Fatalf("nil cache must not store values")
	}
	value, err := GetOrLoad(context.Background(), queryCache, "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || value != 7 {
		t.Fatalf("unexpected result %d, %v", value, err)
	}
}
