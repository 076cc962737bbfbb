package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/portfolio/internal/content"
	"github.com/MarcoPoloResearchLab/portfolio/internal/editor"
	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultEditorIdleTTL  = time.Hour
	maxEditorSessions     = 256
	projectListingPath    = "/admin/projects"
	sessionKindCollection = "collection"
	sessionKindDetail     = "detail"
)

var (
	errUnknownCollection = errors.New("unknown collection")
	errUnknownDeletion   = errors.New("deletion not found")
	errNestedUnsupported = errors.New("nested edits are only available for projects")
)

// deletion is a staged record removal awaiting confirmation.
type deletion interface {
	Label() string
	Confirm(ctx context.Context) error
	Cancel() error
}

// collectionEditor is the type-erased view of an editor.Editor used by the handlers.
type collectionEditor interface {
	Collection() string
	Load(ctx context.Context) error
	Refresh()
	View() any
	AddItem() any
	UpdateField(id, field string, value json.RawMessage) (bool, error)
	Reorder(source int, destination *int) error
	SaveAll(ctx context.Context) (editor.BatchResult, error)
	SaveOrder(ctx context.Context) (editor.BatchResult, error)
	Changed() []string
	RequestDeletion(id string) (deletion, error)
}

type listAdapter[T editor.Entity[T]] struct {
	*editor.Editor[T]
}

func (a listAdapter[T]) View() any {
	return a.Items()
}

func (a listAdapter[T]) AddItem() any {
	return a.Add()
}

func (a listAdapter[T]) RequestDeletion(id string) (deletion, error) {
	pendingDeletion, err := a.RequestDelete(id)
	if err != nil {
		return nil, err
	}
	return pendingDeletion, nil
}

// navigationRecorder keeps the latest navigation target for the response.
type navigationRecorder struct {
	mu     sync.Mutex
	target string
}

func (n *navigationRecorder) Navigate(target string) {
	n.mu.Lock()
	n.target = target
	n.mu.Unlock()
}

func (n *navigationRecorder) take() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	target := n.target
	n.target = ""
	return target
}

// editorSession is one mounted admin editor. It is owned by the admin who opened
// it and never shared.
type editorSession struct {
	id         string
	owner      string
	kind       string
	collection string
	recorder   *editor.Recorder
	navigator  *navigationRecorder
	list       collectionEditor
	projects   *editor.Editor[*content.ProjectCard]
	detail     *editor.DetailEditor[*content.ProjectCard]

	mu        sync.Mutex
	deletions map[string]deletion
}

func (s *editorSession) stageDeletion(token string, pending deletion) {
	s.mu.Lock()
	s.deletions[token] = pending
	s.mu.Unlock()
}

func (s *editorSession) takeDeletion(token string) (deletion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending, ok := s.deletions[token]
	if ok {
		delete(s.deletions, token)
	}
	return pending, ok
}

// sessionRegistry holds open editor sessions and expires idle ones.
type sessionRegistry struct {
	sessions *expirable.LRU[string, *editorSession]
	ids      ids.Provider
}

func newSessionRegistry(idleTTL time.Duration, provider ids.Provider) *sessionRegistry {
	if idleTTL <= 0 {
		idleTTL = defaultEditorIdleTTL
	}
	if provider == nil {
		provider = ids.NewUUIDProvider()
	}
	return &sessionRegistry{
		sessions: expirable.NewLRU[string, *editorSession](maxEditorSessions, nil, idleTTL),
		ids:      provider,
	}
}

func (r *sessionRegistry) newToken() (string, error) {
	return r.ids.NewID()
}

func (r *sessionRegistry) register(session *editorSession) {
	r.sessions.Add(session.id, session)
}

// lookup returns the session when owner opened it; each access restarts its idle timer.
func (r *sessionRegistry) lookup(id, owner, kind string) (*editorSession, bool) {
	session, ok := r.sessions.Get(id)
	if !ok || session.owner != owner || session.kind != kind {
		return nil, false
	}
	r.sessions.Add(id, session)
	return session, true
}

func (r *sessionRegistry) close(id, owner string) bool {
	session, ok := r.sessions.Peek(id)
	if !ok || session.owner != owner {
		return false
	}
	return r.sessions.Remove(id)
}

func (r *sessionRegistry) len() int {
	return r.sessions.Len()
}
