package editor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/MarcoPoloResearchLab/portfolio/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Action is what a batch did with one record.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionOrdered Action = "ordered"
	ActionFailed  Action = "failed"
	ActionSkipped Action = "skipped"
)

// Outcome reports the result of one record in a batch. TemporaryID is set for
// records that were unsaved when the batch started.
type Outcome struct {
	ID          string `json:"id"`
	TemporaryID string `json:"temporary_id,omitempty"`
	Action      Action `json:"action"`
	Err         error  `json:"-"`
}

// BatchResult lists per-record outcomes in working-set order.
type BatchResult struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Persisted returns the ids that were written by the batch.
func (r BatchResult) Persisted() []string {
	persisted := make([]string, 0, len(r.Outcomes))
	for _, outcome := range r.Outcomes {
		switch outcome.Action {
		case ActionCreated, ActionUpdated, ActionOrdered:
			persisted = append(persisted, outcome.ID)
		}
	}
	return persisted
}

// Failed returns the outcomes whose write failed.
func (r BatchResult) Failed() []Outcome {
	var failed []Outcome
	for _, outcome := range r.Outcomes {
		if outcome.Action == ActionFailed {
			failed = append(failed, outcome)
		}
	}
	return failed
}

// BatchError is returned when at least one write of a batch failed. Writes that
// succeeded before or alongside the failure stay persisted.
type BatchError struct {
	Collection string
	Result     BatchResult
}

func (e *BatchError) Error() string {
	failed := e.Result.Failed()
	parts := make([]string, 0, len(failed))
	for _, outcome := range failed {
		parts = append(parts, fmt.Sprintf("%s: %v", outcome.ID, outcome.Err))
	}
	return fmt.Sprintf("editor: %s batch failed for %d record(s): %s", e.Collection, len(failed), strings.Join(parts, "; "))
}

func (e *BatchError) Unwrap() []error {
	failed := e.Result.Failed()
	errs := make([]error, 0, len(failed))
	for _, outcome := range failed {
		errs = append(errs, outcome.Err)
	}
	return errs
}

type pending[T Entity[T]] struct {
	origin   *entry[T]
	id       string
	isNew    bool
	revision uint64
	record   T
}

func (e *Editor[T]) pendingLocked() []pending[T] {
	queued := make([]pending[T], 0, len(e.entries))
	for _, current := range e.entries {
		queued = append(queued, pending[T]{
			origin:   current,
			id:       current.record.EntityID(),
			isNew:    current.isNew,
			revision: current.revision,
			record:   current.record.Clone(),
		})
	}
	return queued
}

// SaveAll validates every record in display order and stops at the first
// violation without any remote call. Valid sets are written one record at a time:
// unsaved records are created, persisted ones updated. The first failed write
// stops the batch; earlier writes are not undone and later records are skipped.
// After a fully successful batch the working set is reloaded.
func (e *Editor[T]) SaveAll(ctx context.Context) (BatchResult, error) {
	e.mu.Lock()
	queued := e.pendingLocked()
	e.mu.Unlock()

	for _, item := range queued {
		if err := e.strategy.Validate(item.record); err != nil {
			e.notify(SeverityError, err.Error())
			metrics.EditorOperation(e.collection, "save_all", metrics.OutcomeInvalid)
			return BatchResult{}, err
		}
	}

	result := BatchResult{Outcomes: make([]Outcome, 0, len(queued))}
	failed := -1
	for index, item := range queued {
		if failed >= 0 {
			result.Outcomes = append(result.Outcomes, Outcome{ID: item.id, Action: ActionSkipped})
			continue
		}
		outcome := e.write(ctx, item)
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Action == ActionFailed {
			failed = index
		}
	}

	e.applyWrites(queued, result)
	if persisted := result.Persisted(); len(persisted) > 0 {
		e.invalidate()
		e.publish(ChangeSaved, persisted)
	}

	if failed >= 0 {
		label := queued[failed].record.Label()
		e.notify(SeverityError, fmt.Sprintf("Failed to save %s", label))
		metrics.EditorOperation(e.collection, "save_all", metrics.OutcomeFailure)
		return result, &BatchError{Collection: e.collection, Result: result}
	}

	e.notify(SeveritySuccess, fmt.Sprintf("Saved %d %s", len(result.Outcomes), e.collection))
	metrics.EditorOperation(e.collection, "save_all", metrics.OutcomeSuccess)
	if err := e.Load(ctx); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Editor[T]) write(ctx context.Context, item pending[T]) Outcome {
	if item.isNew {
		id, err := e.strategy.Create(ctx, item.record)
		metrics.RecordWrite(e.collection, "create", err)
		if err != nil {
			e.logError("save_all", "create_failed", err, zap.String("temporary_id", item.id))
			return Outcome{ID: item.id, TemporaryID: item.id, Action: ActionFailed, Err: err}
		}
		return Outcome{ID: id, TemporaryID: item.id, Action: ActionCreated}
	}
	err := e.strategy.Update(ctx, item.record)
	metrics.RecordWrite(e.collection, "update", err)
	if err != nil {
		e.logError("save_all", "update_failed", err, zap.String("id", item.id))
		return Outcome{ID: item.id, Action: ActionFailed, Err: err}
	}
	return Outcome{ID: item.id, Action: ActionUpdated}
}

// applyWrites promotes created records to their persisted ids, remembers what
// was written and clears the change marks of written records. Records edited
// again while the batch was in flight keep their newer local state and marks.
func (e *Editor[T]) applyWrites(queued []pending[T], result BatchResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for index, outcome := range result.Outcomes {
		item := queued[index]
		switch outcome.Action {
		case ActionCreated:
			written := item.record.Clone()
			written.SetEntityID(outcome.ID)
			e.stored[outcome.ID] = written
			mark := e.changed[item.id]
			delete(e.changed, item.id)
			if !slices.Contains(e.entries, item.origin) {
				continue
			}
			promoted := item.origin.record.Clone()
			promoted.SetEntityID(outcome.ID)
			item.origin.record = promoted
			item.origin.isNew = false
			if item.origin.revision != item.revision && mark != 0 {
				e.changed[outcome.ID] = mark
			}
		case ActionUpdated:
			e.stored[item.id] = item.record.Clone()
			if item.origin.revision == item.revision {
				delete(e.changed, item.id)
			}
		}
	}
}

// SaveOrder persists only the order of every persisted record, one update per
// record, issued in parallel and awaited together. Unsaved records are skipped.
// Any failure yields a single error notification; the outcomes name the records.
func (e *Editor[T]) SaveOrder(ctx context.Context) (BatchResult, error) {
	e.mu.Lock()
	queued := e.pendingLocked()
	e.mu.Unlock()

	result := BatchResult{Outcomes: make([]Outcome, len(queued))}
	var group errgroup.Group
	for index, item := range queued {
		if item.isNew {
			result.Outcomes[index] = Outcome{ID: item.id, Action: ActionSkipped}
			continue
		}
		group.Go(func() error {
			order := item.record.EntityOrder()
			err := e.strategy.UpdateOrder(ctx, item.id, order)
			metrics.RecordWrite(e.collection, "update_order", err)
			if err != nil {
				e.logError("save_order", "update_failed", err, zap.String("id", item.id), zap.Int("order", order))
				result.Outcomes[index] = Outcome{ID: item.id, Action: ActionFailed, Err: err}
				return err
			}
			result.Outcomes[index] = Outcome{ID: item.id, Action: ActionOrdered}
			return nil
		})
	}
	waitErr := group.Wait()

	e.mu.Lock()
	for index, outcome := range result.Outcomes {
		if outcome.Action != ActionOrdered {
			continue
		}
		item := queued[index]
		id := item.id
		if stored, ok := e.stored[id]; ok {
			reordered := stored.Clone()
			reordered.SetEntityOrder(item.record.EntityOrder())
			e.stored[id] = reordered
		}
		if item.origin.revision != item.revision {
			continue
		}
		if kind := e.changed[id] &^ changedOrder; kind == 0 {
			delete(e.changed, id)
		} else {
			e.changed[id] = kind
		}
	}
	e.mu.Unlock()

	if persisted := result.Persisted(); len(persisted) > 0 {
		e.invalidate()
		e.publish(ChangeOrdered, persisted)
	}
	if waitErr != nil {
		e.notify(SeverityError, fmt.Sprintf("Failed to save the %s order", e.collection))
		metrics.EditorOperation(e.collection, "save_order", metrics.OutcomeFailure)
		return result, &BatchError{Collection: e.collection, Result: result}
	}
	e.notify(SeveritySuccess, fmt.Sprintf("Saved the %s order", e.collection))
	metrics.EditorOperation(e.collection, "save_order", metrics.OutcomeSuccess)
	return result, nil
}
