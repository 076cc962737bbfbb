package editor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/portfolio/internal/cache"
	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
	"github.com/MarcoPoloResearchLab/portfolio/internal/metrics"
	"go.uber.org/zap"
)

// ErrNothingOpen indicates a detail editor has no record loaded.
var ErrNothingOpen = errors.New("editor: no record open")

// DetailConfig wires a DetailEditor.
type DetailConfig[T Entity[T]] struct {
	Strategy    Strategy[T]
	Notifier    Notifier
	Navigator   Navigator
	ListingPath string
	Cache       Invalidator
	Events      Publisher
	Clock       func() time.Time
	Logger      *zap.Logger
}

// DetailEditor edits exactly one record and persists it on its own.
type DetailEditor[T Entity[T]] struct {
	strategy    Strategy[T]
	collection  string
	notifier    Notifier
	navigator   Navigator
	listingPath string
	cache       Invalidator
	events      Publisher
	temporary   *ids.TemporaryGenerator
	logger      *zap.Logger

	mu     sync.Mutex
	record T
	isNew  bool
	open   bool
}

// SaveResult reports a detail save.
type SaveResult struct {
	ID          string `json:"id"`
	TemporaryID string `json:"temporary_id,omitempty"`
	Created     bool   `json:"created"`
	NavigateTo  string `json:"navigate_to,omitempty"`
}

// NewDetail builds a DetailEditor with nothing open.
func NewDetail[T Entity[T]](cfg DetailConfig[T]) (*DetailEditor[T], error) {
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
	return &DetailEditor[T]{
		strategy:    cfg.Strategy,
		collection:  cfg.Strategy.Collection(),
		notifier:    notifier,
		navigator:   cfg.Navigator,
		listingPath: cfg.ListingPath,
		cache:       cfg.Cache,
		events:      cfg.Events,
		temporary:   ids.NewTemporaryGenerator(cfg.Clock),
		logger:      logger.With(zap.String("collection", cfg.Strategy.Collection())),
	}, nil
}

// New starts editing a fresh unsaved record.
func (d *DetailEditor[T]) New() Item[T] {
	record := d.strategy.New()
	record.SetEntityID(d.temporary.Next())
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record = record
	d.isNew = true
	d.open = true
	return d.itemLocked()
}

// Open loads a persisted record for editing.
func (d *DetailEditor[T]) Open(ctx context.Context, id string) (Item[T], error) {
	record, err := d.strategy.Get(ctx, id)
	if err != nil {
		d.logger.Error("detail editor open failed",
			zap.String("operation", "editor.detail.open"),
			zap.String("id", id),
			zap.Error(err))
		d.notifier.Notify(Notification{Severity: SeverityError, Message: fmt.Sprintf("Failed to load %s %s", d.collection, id)})
		return Item[T]{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record = record.Clone()
	d.isNew = false
	d.open = true
	return d.itemLocked(), nil
}

// Current returns the open record.
func (d *DetailEditor[T]) Current() (Item[T], error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return Item[T]{}, ErrNothingOpen
	}
	return d.itemLocked(), nil
}

// UpdateField replaces one field of the open record.
func (d *DetailEditor[T]) UpdateField(field string, value json.RawMessage) error {
	return d.Mutate(func(record T) error {
		return record.SetField(field, value)
	})
}

// Mutate applies a structured edit to a copy of the open record, keeping it only
// on success. Rejections are reported as error notifications.
func (d *DetailEditor[T]) Mutate(mutate func(T) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrNothingOpen
	}
	updated := d.record.Clone()
	if err := mutate(updated); err != nil {
		d.notifier.Notify(Notification{Severity: SeverityError, Message: err.Error()})
		metrics.EditorOperation(d.collection, "detail_mutate", metrics.OutcomeInvalid)
		return err
	}
	d.record = updated
	return nil
}

// Save validates and persists the open record, invalidates its cached copies and,
// after the first save of a new record, navigates to the listing.
func (d *DetailEditor[T]) Save(ctx context.Context) (SaveResult, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return SaveResult{}, ErrNothingOpen
	}
	record := d.record.Clone()
	isNew := d.isNew
	d.mu.Unlock()

	if err := d.strategy.Validate(record); err != nil {
		d.notifier.Notify(Notification{Severity: SeverityError, Message: err.Error()})
		metrics.EditorOperation(d.collection, "detail_save", metrics.OutcomeInvalid)
		return SaveResult{}, err
	}

	result := SaveResult{ID: record.EntityID()}
	if isNew {
		if record.EntityOrder() <= 0 {
			existing, err := d.strategy.List(ctx)
			if err != nil {
				return SaveResult{}, d.saveFailed(record, "list_failed", err)
			}
			record.SetEntityOrder(len(existing) + 1)
		}
		id, err := d.strategy.Create(ctx, record)
		metrics.RecordWrite(d.collection, "create", err)
		if err != nil {
			return SaveResult{}, d.saveFailed(record, "create_failed", err)
		}
		result = SaveResult{ID: id, TemporaryID: record.EntityID(), Created: true}
	} else {
		err := d.strategy.Update(ctx, record)
		metrics.RecordWrite(d.collection, "update", err)
		if err != nil {
			return SaveResult{}, d.saveFailed(record, "update_failed", err)
		}
	}

	d.mu.Lock()
	if d.open && d.record.EntityID() == record.EntityID() {
		promoted := d.record.Clone()
		promoted.SetEntityID(result.ID)
		if isNew {
			promoted.SetEntityOrder(record.EntityOrder())
		}
		d.record = promoted
		d.isNew = false
	}
	d.mu.Unlock()

	if d.cache != nil {
		d.cache.Invalidate(cache.DetailKey(d.collection, result.ID), cache.ListKey(d.collection))
		d.cache.InvalidatePrefix(cache.QueryKey(d.collection))
	}
	if d.events != nil {
		d.events.Publish(Change{Collection: d.collection, Action: ChangeSaved, IDs: []string{result.ID}})
	}
	d.notifier.Notify(Notification{Severity: SeveritySuccess, Message: fmt.Sprintf("Saved %s", record.Label())})
	metrics.EditorOperation(d.collection, "detail_save", metrics.OutcomeSuccess)

	if isNew && d.listingPath != "" {
		result.NavigateTo = d.listingPath
		if d.navigator != nil {
			d.navigator.Navigate(d.listingPath)
		}
	}
	return result, nil
}

func (d *DetailEditor[T]) saveFailed(record T, reason string, err error) error {
	d.logger.Error("detail editor save failed",
		zap.String("operation", "editor.detail.save"),
		zap.String("reason", reason),
		zap.String("id", record.EntityID()),
		zap.Error(err))
	d.notifier.Notify(Notification{Severity: SeverityError, Message: fmt.Sprintf("Failed to save %s", record.Label())})
	metrics.EditorOperation(d.collection, "detail_save", metrics.OutcomeFailure)
	return err
}

func (d *DetailEditor[T]) itemLocked() Item[T] {
	return Item[T]{
		ID:     d.record.EntityID(),
		IsNew:  d.isNew,
		Order:  d.record.EntityOrder(),
		Record: d.record.Clone(),
	}
}
