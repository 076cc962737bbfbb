package server

import (
	"testing"
	"time"
)

type sequenceProvider struct {
	next int
}

func (p *sequenceProvider) NewID() (string, error) {
	p.next++
	return "session-" + string(rune('a'+p.next-1)), nil
}

func TestSessionRegistryScopesByOwnerAndKind(t *testing.T) {
	registry := newSessionRegistry(time.Hour, &sequenceProvider{})
	token, err := registry.newToken()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	registry.register(&editorSession{id: token, owner: "owner", kind: sessionKindCollection, deletions: map[string]deletion{}})

	if _, ok := registry.lookup(token, "owner", sessionKindCollection); !ok {
		t.Fatalf("expected owner lookup to succeed")
	}
	if _, ok := registry.lookup(token, "intruder", sessionKindCollection); ok {
		t.Fatalf("expected lookup by another owner to fail")
	}
	if _, ok := registry.lookup(token, "owner", sessionKindDetail); ok {
		t.Fatalf("expected lookup with the wrong kind to fail")
	}
	if registry.close(token, "intruder") {
		t.Fatalf("expected close by another owner to fail")
	}
	if !registry.close(token, "owner") || registry.len() != 0 {
		t.Fatalf("expected the session to be closed")
	}
}

func TestSessionRegistryExpiresIdleSessions(t *testing.T) {
	registry := newSessionRegistry(20*time.Millisecond, &sequenceProvider{})
	registry.register(&editorSession{id: "idle", owner: "owner", kind: sessionKindCollection})
	time.Sleep(60 * time.Millisecond)
	if _, ok := registry.lookup("idle", "owner", sessionKindCollection); ok {
		t.Fatalf("expected the idle session to expire")
	}
}

func TestEditorSessionDeletionTokensAreSingleUse(t *testing.T) {
	session := &editorSession{deletions: map[string]deletion{}}
	session.stageDeletion("token", nil)
	if _, ok := session.takeDeletion("token"); !ok {
		t.Fatalf("expected staged deletion")
	}
	if _, ok := session.takeDeletion("token"); ok {
		t.Fatalf("expected the token to be consumed")
	}
}

func TestNavigationRecorderTakeClearsTarget(t *testing.T) {
	navigator := &navigationRecorder{}
	navigator.Navigate(projectListingPath)
	if target := navigator.take(); target != projectListingPath {
		t.Fatalf("expected %q, got %q", projectListingPath, target)
	}
	if target := navigator.take(); target != "" {
		t.Fatalf("expected target cleared, got %q", target)
	}
}
