// Package editor implements the ordered-collection editor used by every admin
// listing: an owned working set with temporary identities for unsaved records,
// dense reordering, validate-then-persist batch saves, order-only saves and
// two-step deletion.
//
// Local state is authoritative until the next load. Remote failures are reported
// through the Notifier and in per-record outcomes; they are never rolled back.
package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/portfolio/internal/cache"
	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
	"github.com/MarcoPoloResearchLab/portfolio/internal/metrics"
	"go.uber.org/zap"
)

var (
	// ErrUnknownRecord indicates the id is not in the working set.
	ErrUnknownRecord = errors.New("editor: unknown record")
	// ErrInvalidIndex indicates a reorder index outside the working set.
	ErrInvalidIndex = errors.New("editor: index out of range")
	// ErrDeletionSettled indicates a pending deletion was already confirmed or cancelled.
	ErrDeletionSettled = errors.New("editor: deletion already settled")
	errMissingStrategy = errors.New("editor: strategy is required")
)

// Entity is the capability set the editor needs from a record type. T is the
// record pointer type itself.
type Entity[T any] interface {
	EntityID() string
	SetEntityID(id string)
	EntityOrder() int
	SetEntityOrder(order int)
	SetField(field string, value json.RawMessage) error
	Label() string
	Clone() T
}

// Strategy binds an editor to one collection of the document store.
type Strategy[T any] interface {
	Collection() string
	New() T
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Validate(record T) error
	Create(ctx context.Context, record T) (string, error)
	Update(ctx context.Context, record T) error
	UpdateOrder(ctx context.Context, id string, order int) error
	Delete(ctx context.Context, id string) error
}

// Config wires an Editor to its collaborators. Only Strategy is required.
type Config[T Entity[T]] struct {
	Strategy Strategy[T]
	Notifier Notifier
	Blobs    BlobDeleter
	Cache    Invalidator
	Events   Publisher
	Clock    func() time.Time
	Logger   *zap.Logger
}

type changeKind uint8

const (
	changedOrder changeKind = 1 << iota
	changedFields
)

// entry is one working-set slot. revision advances on every local edit so a
// batch can tell whether the record changed while its write was in flight.
type entry[T Entity[T]] struct {
	record   T
	isNew    bool
	revision uint64
}

// Item is one working-set record as presented to callers.
type Item[T any] struct {
	ID      string `json:"id"`
	IsNew   bool   `json:"is_new"`
	Order   int    `json:"order"`
	Changed bool   `json:"changed"`
	Record  T      `json:"record"`
}

// Editor owns the working set of one collection for one editing session.
// It is safe for concurrent use; remote calls are made without holding the lock,
// so edits made while a save is in flight are kept.
type Editor[T Entity[T]] struct {
	strategy   Strategy[T]
	collection string
	notifier   Notifier
	blobs      BlobDeleter
	cache      Invalidator
	events     Publisher
	temporary  *ids.TemporaryGenerator
	logger     *zap.Logger

	mu       sync.Mutex
	entries  []*entry[T]
	snapshot []T
	stored   map[string]T
	changed  map[string]changeKind
	loadSeq  uint64
	loaded   bool
}

// New builds an editor with an empty working set; call Load to populate it.
func New[T Entity[T]](cfg Config[T]) (*Editor[T], error) {
	if cfg.Strategy == nil {
		return nil, errMissingStrategy
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = discardNotifier{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor[T]{
		strategy:   cfg.Strategy,
		collection: cfg.Strategy.Collection(),
		notifier:   notifier,
		blobs:      cfg.Blobs,
		cache:      cfg.Cache,
		events:     cfg.Events,
		temporary:  ids.NewTemporaryGenerator(cfg.Clock),
		logger:     logger.With(zap.String("collection", cfg.Strategy.Collection())),
		stored:     map[string]T{},
		changed:    map[string]changeKind{},
	}, nil
}

// Collection names the edited collection.
func (e *Editor[T]) Collection() string {
	return e.collection
}

// Load replaces the working set and snapshot with a fresh listing. When loads
// overlap, only the most recently started one is applied; local edits made while
// a load is in flight are discarded.
func (e *Editor[T]) Load(ctx context.Context) error {
	e.mu.Lock()
	e.loadSeq++
	sequence := e.loadSeq
	e.mu.Unlock()

	records, err := e.strategy.List(ctx)
	if err != nil {
		e.logError("load", "list_failed", err)
		e.notify(SeverityError, fmt.Sprintf("Failed to load %s", e.collection))
		metrics.EditorOperation(e.collection, "load", metrics.OutcomeFailure)
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if sequence != e.loadSeq {
		return nil
	}
	e.entries = make([]*entry[T], 0, len(records))
	e.snapshot = make([]T, 0, len(records))
	e.stored = make(map[string]T, len(records))
	for _, record := range records {
		e.entries = append(e.entries, &entry[T]{record: record.Clone()})
		e.snapshot = append(e.snapshot, record.Clone())
		e.stored[record.EntityID()] = record.Clone()
	}
	e.changed = map[string]changeKind{}
	e.loaded = true
	metrics.EditorOperation(e.collection, "load", metrics.OutcomeSuccess)
	return nil
}

// Refresh restores the last fetched snapshot, discarding every local edit,
// unsaved record and local deletion. It is destructive and immediate.
func (e *Editor[T]) Refresh() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = make([]*entry[T], 0, len(e.snapshot))
	for _, record := range e.snapshot {
		e.entries = append(e.entries, &entry[T]{record: record.Clone()})
	}
	e.changed = map[string]changeKind{}
	metrics.EditorOperation(e.collection, "refresh", metrics.OutcomeSuccess)
}

// Items returns the working set in display order. Records are copies.
func (e *Editor[T]) Items() []Item[T] {
	e.mu.Lock()
	defer e.mu.Unlock()
	items := make([]Item[T], 0, len(e.entries))
	for _, current := range e.entries {
		items = append(items, e.itemLocked(current))
	}
	return items
}

// Get returns one record by id.
func (e *Editor[T]) Get(id string) (Item[T], bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	index := e.indexLocked(id)
	if index < 0 {
		return Item[T]{}, false
	}
	return e.itemLocked(e.entries[index]), true
}

// Len reports the working set size.
func (e *Editor[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// Changed lists the ids touched since the last load or save, in display order.
func (e *Editor[T]) Changed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	changed := make([]string, 0, len(e.changed))
	for _, current := range e.entries {
		if e.changed[current.record.EntityID()] != 0 {
			changed = append(changed, current.record.EntityID())
		}
	}
	return changed
}

// Add appends a new unsaved record with a temporary id and order N+1.
func (e *Editor[T]) Add() Item[T] {
	record := e.strategy.New()
	record.SetEntityID(e.temporary.Next())

	e.mu.Lock()
	defer e.mu.Unlock()
	record.SetEntityOrder(len(e.entries) + 1)
	added := &entry[T]{record: record, isNew: true}
	e.entries = append(e.entries, added)
	e.changed[record.EntityID()] |= changedFields
	metrics.EditorOperation(e.collection, "add", metrics.OutcomeSuccess)
	return e.itemLocked(added)
}

// UpdateField replaces a single field of one record. An absent id is a no-op and
// returns false; a field the record rejects leaves it unchanged and is reported
// as an error notification.
func (e *Editor[T]) UpdateField(id, field string, value json.RawMessage) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	index := e.indexLocked(id)
	if index < 0 {
		return false, nil
	}
	updated := e.entries[index].record.Clone()
	if err := updated.SetField(field, value); err != nil {
		e.notify(SeverityError, err.Error())
		metrics.EditorOperation(e.collection, "update_field", metrics.OutcomeInvalid)
		return true, err
	}
	e.entries[index].record = updated
	e.entries[index].revision++
	e.changed[id] |= changedFields
	return true, nil
}

// Mutate applies a structured edit to a copy of one record and keeps the copy
// only when mutate succeeds. A rejected edit is reported as an error notification.
func (e *Editor[T]) Mutate(id string, mutate func(T) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	index := e.indexLocked(id)
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownRecord, id)
	}
	updated := e.entries[index].record.Clone()
	if err := mutate(updated); err != nil {
		e.notify(SeverityError, err.Error())
		metrics.EditorOperation(e.collection, "mutate", metrics.OutcomeInvalid)
		return err
	}
	e.entries[index].record = updated
	e.entries[index].revision++
	e.changed[id] |= changedFields
	return nil
}

// Reorder moves the record at source to destination and renumbers every record
// to its 1-based position. A nil destination (a drop outside any target) leaves
// the working set untouched. Nothing is persisted.
func (e *Editor[T]) Reorder(source int, destination *int) error {
	if destination == nil {
		metrics.EditorOperation(e.collection, "reorder", metrics.OutcomeNoop)
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	size := len(e.entries)
	if source < 0 || source >= size || *destination < 0 || *destination >= size {
		return fmt.Errorf("%w: move %d to %d of %d", ErrInvalidIndex, source, *destination, size)
	}
	moved := e.entries[source]
	e.entries = slices.Delete(e.entries, source, source+1)
	e.entries = slices.Insert(e.entries, *destination, moved)
	for position, current := range e.entries {
		order := position + 1
		if current.record.EntityOrder() == order {
			continue
		}
		updated := current.record.Clone()
		updated.SetEntityOrder(order)
		current.record = updated
		current.revision++
		e.changed[updated.EntityID()] |= changedOrder
	}
	metrics.EditorOperation(e.collection, "reorder", metrics.OutcomeSuccess)
	return nil
}

func (e *Editor[T]) itemLocked(current *entry[T]) Item[T] {
	id := current.record.EntityID()
	return Item[T]{
		ID:      id,
		IsNew:   current.isNew,
		Order:   current.record.EntityOrder(),
		Changed: e.changed[id] != 0,
		Record:  current.record.Clone(),
	}
}

func (e *Editor[T]) indexLocked(id string) int {
	return slices.IndexFunc(e.entries, func(current *entry[T]) bool {
		return current.record.EntityID() == id
	})
}

func (e *Editor[T]) notify(severity Severity, message string) {
	e.notifier.Notify(Notification{Severity: severity, Message: message})
}

func (e *Editor[T]) invalidate() {
	if e.cache == nil {
		return
	}
	e.cache.InvalidatePrefix(cache.CollectionPrefix(e.collection))
}

func (e *Editor[T]) publish(action string, ids []string) {
	if e.events == nil || len(ids) == 0 {
		return
	}
	e.events.Publish(Change{Collection: e.collection, Action: action, IDs: ids})
}

func (e *Editor[T]) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", "editor."+operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	e.logger.Error("editor operation failed", attrs...)
}
