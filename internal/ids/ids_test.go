package ids

import (
	"testing"
	"time"
)

func TestTemporaryGeneratorIsMonotonicWithFrozenClock(t *testing.T) {
	frozen := time.Unix(1700000000, 0)
	generator := NewTemporaryGenerator(func() time.Time { return frozen })

	seen := map[string]struct{}{}
	previous := ""
	for index := 0; index < 50; index++ {
		id := generator.Next()
		if !IsTemporary(id) {
			t.Fatalf("expected temporary prefix, got %q", id)
		}
		if _, duplicate := seen[id]; duplicate {
			t.Fatalf("duplicate temporary id %q", id)
		}
		if previous != "" && len(id) == len(previous) && id <= previous {
			t.Fatalf("expected increasing ids, got %q after %q", id, previous)
		}
		seen[id] = struct{}{}
		previous = id
	}
}

func TestUUIDProviderIsNotTemporary(t *testing.T) {
	id, err := NewUUIDProvider().NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if IsTemporary(id) {
		t.Fatalf("persisted id %q must not look temporary", id)
	}
}
