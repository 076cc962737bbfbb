package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/MarcoPoloResearchLab/portfolio/internal/content"
)

type validatedEntity[T any] interface {
	Entity[T]
	Validate() error
}

// memoryStrategy is an in-memory Strategy that records every remote call.
type memoryStrategy[T validatedEntity[T]] struct {
	collection string
	newRecord  func() T

	mu           sync.Mutex
	records      map[string]T
	nextID       int
	listErr      error
	createErrs   map[string]error
	updateErrs   map[string]error
	orderErrs    map[string]error
	deleteErr    error
	duringUpdate func(id string)
	creates      []string
	updates      []string
	orderUpdates map[string]int
	deletes      []string
}

func newMemoryStrategy[T validatedEntity[T]](collection string, newRecord func() T) *memoryStrategy[T] {
	return &memoryStrategy[T]{
		collection:   collection,
		newRecord:    newRecord,
		records:      map[string]T{},
		createErrs:   map[string]error{},
		updateErrs:   map[string]error{},
		orderErrs:    map[string]error{},
		orderUpdates: map[string]int{},
	}
}

func (s *memoryStrategy[T]) Collection() string { return s.collection }
func (s *memoryStrategy[T]) New() T             { return s.newRecord() }
func (s *memoryStrategy[T]) Validate(record T) error {
	return record.Validate()
}

func (s *memoryStrategy[T]) seed(records ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range records {
		s.records[record.EntityID()] = record.Clone()
	}
}

func (s *memoryStrategy[T]) List(context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	records := make([]T, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, record.Clone())
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].EntityOrder() == records[j].EntityOrder() {
			return records[i].EntityID() < records[j].EntityID()
		}
		return records[i].EntityOrder() < records[j].EntityOrder()
	})
	return records, nil
}

func (s *memoryStrategy[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		var zero T
		return zero, errors.New("not found")
	}
	return record.Clone(), nil
}

func (s *memoryStrategy[T]) Create(_ context.Context, record T) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, record.EntityID())
	if err := s.createErrs[record.EntityID()]; err != nil {
		return "", err
	}
	s.nextID++
	id := fmt.Sprintf("%s-%d", s.collection, s.nextID)
	stored := record.Clone()
	stored.SetEntityID(id)
	s.records[id] = stored
	return id, nil
}

func (s *memoryStrategy[T]) Update(_ context.Context, record T) error {
	s.mu.Lock()
	s.updates = append(s.updates, record.EntityID())
	err := s.updateErrs[record.EntityID()]
	if err == nil {
		s.records[record.EntityID()] = record.Clone()
	}
	hook := s.duringUpdate
	s.mu.Unlock()
	if hook != nil {
		hook(record.EntityID())
	}
	return err
}

func (s *memoryStrategy[T]) UpdateOrder(_ context.Context, id string, order int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderUpdates[id] = order
	if err := s.orderErrs[id]; err != nil {
		return err
	}
	record := s.records[id].Clone()
	record.SetEntityOrder(order)
	s.records[id] = record
	return nil
}

func (s *memoryStrategy[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, id)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.records, id)
	return nil
}

func (s *memoryStrategy[T]) calls() (creates, updates, deletes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.creates), slices.Clone(s.updates), slices.Clone(s.deletes)
}

type blobCall struct {
	bucket string
	blobID string
}

type recordingBlobs struct {
	mu    sync.Mutex
	calls []blobCall
	err   error
}

func (b *recordingBlobs) Delete(_ context.Context, bucket, blobID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, blobCall{bucket: bucket, blobID: blobID})
	return b.err
}

type recordingInvalidator struct {
	mu       sync.Mutex
	keys     []string
	prefixes []string
}

func (r *recordingInvalidator) Invalidate(keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, keys...)
}

func (r *recordingInvalidator) InvalidatePrefix(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes = append(r.prefixes, prefix)
	return 0
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []Change
}

func (p *recordingPublisher) Publish(change Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
}

type recordingNavigator struct {
	targets []string
}

func (n *recordingNavigator) Navigate(target string) {
	n.targets = append(n.targets, target)
}

func skill(id string, order int, name string) *content.Skill {
	return &content.Skill{
		ID:         id,
		Order:      order,
		Name:       name,
		Category:   "language",
		IconURL:    "https://example.com/" + name + ".svg",
		IconBlobID: "blob-" + id,
	}
}

func newSkillStrategy(records ...*content.Skill) *memoryStrategy[*content.Skill] {
	strategy := newMemoryStrategy(content.CollectionSkills, func() *content.Skill {
		return &content.Skill{Category: "none"}
	})
	strategy.seed(records...)
	return strategy
}
