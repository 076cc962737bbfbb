package editor

import (
	"context"
	"sync"
)

// Severity classifies a user-visible notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is a fire-and-forget message for the person editing.
type Notification struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Notifier receives notifications.
type Notifier interface {
	Notify(Notification)
}

// Recorder buffers notifications until they are drained into a response.
type Recorder struct {
	mu      sync.Mutex
	pending []Notification
}

func (r *Recorder) Notify(notification Notification) {
	r.mu.Lock()
	r.pending = append(r.pending, notification)
	r.mu.Unlock()
}

// Drain returns and clears the buffered notifications.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	drained := r.pending
	r.pending = nil
	if drained == nil {
		return []Notification{}
	}
	return drained
}

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}

// BlobDeleter removes uploaded files owned by records.
type BlobDeleter interface {
	Delete(ctx context.Context, bucket, blobID string) error
}

// BlobOwner is implemented by records that own an uploaded file.
type BlobOwner interface {
	OwnedBlob() (bucket string, blobID string)
}

// Invalidator drops cached reads after writes.
type Invalidator interface {
	Invalidate(keys ...string)
	InvalidatePrefix(prefix string) int
}

// Change describes persisted writes to a collection.
type Change struct {
	Collection string   `json:"collection"`
	Action     string   `json:"action"`
	IDs        []string `json:"ids"`
}

// Change actions.
const (
	ChangeSaved   = "saved"
	ChangeOrdered = "ordered"
	ChangeDeleted = "deleted"
)

// Publisher fans persisted changes out to listeners.
type Publisher interface {
	Publish(Change)
}

// Navigator is told where the UI should go after certain successful operations.
type Navigator interface {
	Navigate(target string)
}
