package editor

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/MarcoPoloResearchLab/portfolio/internal/metrics"
	"go.uber.org/zap"
)

// PendingDeletion is a requested deletion awaiting confirmation. Cancel performs
// no mutation; Confirm removes the record locally and then remotely.
type PendingDeletion[T Entity[T]] struct {
	editor *Editor[T]
	target *entry[T]
	label  string

	mu      sync.Mutex
	settled bool
}

// RequestDelete stages the deletion of id without mutating anything.
func (e *Editor[T]) RequestDelete(id string) (*PendingDeletion[T], error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	index := e.indexLocked(id)
	if index < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}
	target := e.entries[index]
	return &PendingDeletion[T]{editor: e, target: target, label: target.record.Label()}, nil
}

// Label names the record for confirmation prompts.
func (p *PendingDeletion[T]) Label() string {
	return p.label
}

// Cancel abandons the deletion.
func (p *PendingDeletion[T]) Cancel() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return ErrDeletionSettled
	}
	p.settled = true
	metrics.EditorOperation(p.editor.collection, "delete", metrics.OutcomeNoop)
	return nil
}

// Confirm removes the record from the working set immediately. Only a record that
// was persisted is then deleted remotely, followed by the blob its stored copy
// owns, so an unsaved icon change does not redirect the blob delete. A failed
// remote delete is reported but the local removal stands.
func (p *PendingDeletion[T]) Confirm(ctx context.Context) error {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return ErrDeletionSettled
	}
	p.settled = true
	p.mu.Unlock()

	e := p.editor
	e.mu.Lock()
	record := p.target.record.Clone()
	isNew := p.target.isNew
	id := record.EntityID()
	owner := record
	if stored, ok := e.stored[id]; ok {
		owner = stored.Clone()
	}
	e.entries = slices.DeleteFunc(e.entries, func(current *entry[T]) bool {
		return current == p.target || current.record.EntityID() == id
	})
	delete(e.changed, id)
	e.mu.Unlock()

	if isNew {
		e.notify(SeverityInfo, fmt.Sprintf("Removed unsaved %s", record.Label()))
		metrics.EditorOperation(e.collection, "delete", metrics.OutcomeSuccess)
		return nil
	}

	err := e.strategy.Delete(ctx, id)
	metrics.RecordWrite(e.collection, "delete", err)
	if err != nil {
		e.logError("delete", "remote_delete_failed", err, zap.String("id", id))
		e.notify(SeverityError, fmt.Sprintf("Failed to delete %s", record.Label()))
		metrics.EditorOperation(e.collection, "delete", metrics.OutcomeFailure)
		return err
	}

	e.mu.Lock()
	e.snapshot = slices.DeleteFunc(e.snapshot, func(stored T) bool {
		return stored.EntityID() == id
	})
	delete(e.stored, id)
	e.mu.Unlock()
	e.invalidate()
	e.publish(ChangeDeleted, []string{id})

	if err := e.deleteOwnedBlob(ctx, id, any(owner)); err != nil {
		e.notify(SeverityError, fmt.Sprintf("Deleted %s but failed to delete its icon", record.Label()))
		metrics.EditorOperation(e.collection, "delete", metrics.OutcomeFailure)
		return err
	}
	e.notify(SeveritySuccess, fmt.Sprintf("Deleted %s", record.Label()))
	metrics.EditorOperation(e.collection, "delete", metrics.OutcomeSuccess)
	return nil
}

func (e *Editor[T]) deleteOwnedBlob(ctx context.Context, id string, record any) error {
	owner, ok := record.(BlobOwner)
	if !ok || e.blobs == nil {
		return nil
	}
	bucket, blobID := owner.OwnedBlob()
	if blobID == "" {
		return nil
	}
	err := e.blobs.Delete(ctx, bucket, blobID)
	metrics.RecordWrite(e.collection, "blob_delete", err)
	if err != nil {
		e.logError("delete", "blob_delete_failed", err, zap.String("id", id), zap.String("blob_id", blobID))
	}
	return err
}
