// Package content owns the portfolio records (skills, tech badges, résumé items,
// project cards, the CV file and contact messages): their persisted rows, editing
// rules, editor strategies and the cached public read paths.
package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/portfolio/internal/blob"
	"github.com/MarcoPoloResearchLab/portfolio/internal/cache"
	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
	"github.com/MarcoPoloResearchLab/portfolio/internal/mail"
	"github.com/MarcoPoloResearchLab/portfolio/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	errMissingBlobs    = errors.New("blob store is required")
	noOpLogger         = zap.NewNop()
)

// ServiceError carries a stable dotted code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opRepositoryNew = "content.repository.new"
	opCreate        = "content.create"
	opUpdate        = "content.update"
	opUpdateOrder   = "content.update_order"
	opDelete        = "content.delete"
	opList          = "content.list"
	opGet           = "content.get"
	opUploadIcon    = "content.upload_icon"
	opReplaceCV     = "content.replace_cv"
	opCurrentCV     = "content.current_cv"
	opSubmitContact = "content.submit_contact"
	opSeed          = "content.seed"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// RepositoryConfig describes the dependencies of a Repository.
type RepositoryConfig struct {
	Database   *gorm.DB
	IDProvider ids.Provider
	Blobs      blob.Store
	Cache      *cache.QueryCache
	Mailer     mail.Mailer
	OwnerEmail string
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Repository binds every content collection to the document store.
type Repository struct {
	skills     *store.Collection[SkillRow, *SkillRow]
	badges     *store.Collection[TechBadgeRow, *TechBadgeRow]
	resume     *store.Collection[ResumeItemRow, *ResumeItemRow]
	projects   *store.Collection[ProjectCardRow, *ProjectCardRow]
	cv         *store.Collection[CVFileRow, *CVFileRow]
	contact    *store.Collection[ContactMessageRow, *ContactMessageRow]
	blobs      blob.Store
	cache      *cache.QueryCache
	mailer     mail.Mailer
	ownerEmail string
	clock      func() time.Time
	logger     *zap.Logger
}

// NewRepository validates cfg and binds the collections.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opRepositoryNew, "missing_database", errMissingDatabase)
	}
	if cfg.Blobs == nil {
		return nil, newServiceError(opRepositoryNew, "missing_blobs", errMissingBlobs)
	}
	provider := cfg.IDProvider
	if provider == nil {
		provider = ids.NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	base := store.CollectionConfig{Database: cfg.Database, IDProvider: provider, Logger: logger}

	repository := &Repository{
		blobs:      cfg.Blobs,
		cache:      cfg.Cache,
		mailer:     cfg.Mailer,
		ownerEmail: cfg.OwnerEmail,
		clock:      clock,
		logger:     logger,
	}
	var err error
	if repository.skills, err = store.NewCollection[SkillRow](withCollection(base, CollectionSkills,
		columnOrder, columnName, "category", "icon_url", "icon_blob_id")); err != nil {
		return nil, newServiceError(opRepositoryNew, "collection_failed", err)
	}
	if repository.badges, err = store.NewCollection[TechBadgeRow](withCollection(base, CollectionBadges,
		columnOrder, columnName, "icon_url", "icon_blob_id")); err != nil {
		return nil, newServiceError(opRepositoryNew, "collection_failed", err)
	}
	if repository.resume, err = store.NewCollection[ResumeItemRow](withCollection(base, CollectionResume,
		columnOrder, "title", "organization", "date_text", "description", "link")); err != nil {
		return nil, newServiceError(opRepositoryNew, "collection_failed", err)
	}
	if repository.projects, err = store.NewCollection[ProjectCardRow](withCollection(base, CollectionProjects,
		columnOrder, "title", "description", columnFeatured, "links_json", "images_json", "tech_badge_ids_json")); err != nil {
		return nil, newServiceError(opRepositoryNew, "collection_failed", err)
	}
	if repository.cv, err = store.NewCollection[CVFileRow](withCollection(base, CollectionCV,
		"blob_id", "file_name", "content_type", "uploaded_at")); err != nil {
		return nil, newServiceError(opRepositoryNew, "collection_failed", err)
	}
	if repository.contact, err = store.NewCollection[ContactMessageRow](withCollection(base, CollectionContact,
		"received_at")); err != nil {
		return nil, newServiceError(opRepositoryNew, "collection_failed", err)
	}
	return repository, nil
}

func withCollection(base store.CollectionConfig, name string, fields ...string) store.CollectionConfig {
	cfg := base
	cfg.Name = name
	cfg.Fields = fields
	return cfg
}

// Blobs exposes the blob store used for icons and the CV.
func (r *Repository) Blobs() blob.Store {
	return r.blobs
}

// Cache exposes the query cache shared with editors.
func (r *Repository) Cache() *cache.QueryCache {
	return r.cache
}

func (r *Repository) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	r.logger.Error("content repository error", attrs...)
}

var orderedListing = store.Query{Sort: []store.Sort{{Field: columnOrder}, {Field: "id"}}}

// orderedRecord is the capability the generic strategy needs from a record.
type orderedRecord interface {
	EntityID() string
	Validate() error
}

// RecordStrategy maps one ordered collection onto the document store. It is the
// create/update/delete strategy injected into editors.
type RecordStrategy[T orderedRecord, M any, PM store.Document[M]] struct {
	name       string
	collection *store.Collection[M, PM]
	newRecord  func() T
	fromRow    func(M) T
	toRow      func(T) (PM, error)
	fields     func(T) (map[string]any, error)
	logError   func(operation, reason string, err error, fields ...zap.Field)
}

func (s *RecordStrategy[T, M, PM]) Collection() string { return s.name }
func (s *RecordStrategy[T, M, PM]) New() T             { return s.newRecord() }
func (s *RecordStrategy[T, M, PM]) Validate(record T) error {
	return record.Validate()
}

// List loads every record ordered by sort_order.
func (s *RecordStrategy[T, M, PM]) List(ctx context.Context) ([]T, error) {
	rows, err := s.collection.List(ctx, orderedListing)
	if err != nil {
		s.logError(opList, "query_failed", err, zap.String("collection", s.name))
		return nil, newServiceError(opList, "query_failed", err)
	}
	records := make([]T, 0, len(rows))
	for _, row := range rows {
		records = append(records, s.fromRow(row))
	}
	return records, nil
}

// Get loads a single record.
func (s *RecordStrategy[T, M, PM]) Get(ctx context.Context, id string) (T, error) {
	row, err := s.collection.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, newServiceError(opGet, reasonFor(err), err)
	}
	return s.fromRow(row), nil
}

// Create stores record under a store-assigned id; the record's placeholder id is ignored.
func (s *RecordStrategy[T, M, PM]) Create(ctx context.Context, record T) (string, error) {
	row, err := s.toRow(record)
	if err != nil {
		return "", newServiceError(opCreate, "encode_failed", err)
	}
	id, err := s.collection.Create(ctx, "", row)
	if err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("collection", s.name))
		return "", newServiceError(opCreate, "insert_failed", err)
	}
	return id, nil
}

// Update writes every editable field of record.
func (s *RecordStrategy[T, M, PM]) Update(ctx context.Context, record T) error {
	fields, err := s.fields(record)
	if err != nil {
		return newServiceError(opUpdate, "encode_failed", err)
	}
	if err := s.collection.Update(ctx, record.EntityID(), fields); err != nil {
		s.logError(opUpdate, reasonFor(err), err, zap.String("collection", s.name), zap.String("id", record.EntityID()))
		return newServiceError(opUpdate, reasonFor(err), err)
	}
	return nil
}

// UpdateOrder writes only the sort_order field.
func (s *RecordStrategy[T, M, PM]) UpdateOrder(ctx context.Context, id string, order int) error {
	if err := s.collection.Update(ctx, id, map[string]any{columnOrder: order}); err != nil {
		s.logError(opUpdateOrder, reasonFor(err), err, zap.String("collection", s.name), zap.String("id", id))
		return newServiceError(opUpdateOrder, reasonFor(err), err)
	}
	return nil
}

// Delete removes the record document.
func (s *RecordStrategy[T, M, PM]) Delete(ctx context.Context, id string) error {
	if err := s.collection.Delete(ctx, id); err != nil {
		s.logError(opDelete, reasonFor(err), err, zap.String("collection", s.name), zap.String("id", id))
		return newServiceError(opDelete, reasonFor(err), err)
	}
	return nil
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrInvalidQuery):
		return "invalid_query"
	default:
		return "store_failed"
	}
}

// Skills returns the editor strategy for skills.
func (r *Repository) Skills() *RecordStrategy[*Skill, SkillRow, *SkillRow] {
	return &RecordStrategy[*Skill, SkillRow, *SkillRow]{
		name:       CollectionSkills,
		collection: r.skills,
		newRecord:  func() *Skill { return &Skill{} },
		fromRow:    skillFromRow,
		toRow: func(skill *Skill) (*SkillRow, error) {
			return &SkillRow{SortOrder: skill.Order, Name: skill.Name, Category: skill.Category, IconURL: skill.IconURL, IconBlobID: skill.IconBlobID}, nil
		},
		fields:   func(skill *Skill) (map[string]any, error) { return skillFields(skill), nil },
		logError: r.logError,
	}
}

// Badges returns the editor strategy for tech badges.
func (r *Repository) Badges() *RecordStrategy[*TechBadge, TechBadgeRow, *TechBadgeRow] {
	return &RecordStrategy[*TechBadge, TechBadgeRow, *TechBadgeRow]{
		name:       CollectionBadges,
		collection: r.badges,
		newRecord:  func() *TechBadge { return &TechBadge{} },
		fromRow:    badgeFromRow,
		toRow: func(badge *TechBadge) (*TechBadgeRow, error) {
			return &TechBadgeRow{SortOrder: badge.Order, Name: badge.Name, IconURL: badge.IconURL, IconBlobID: badge.IconBlobID}, nil
		},
		fields:   func(badge *TechBadge) (map[string]any, error) { return badgeFields(badge), nil },
		logError: r.logError,
	}
}

// Resume returns the editor strategy for résumé items.
func (r *Repository) Resume() *RecordStrategy[*ResumeItem, ResumeItemRow, *ResumeItemRow] {
	return &RecordStrategy[*ResumeItem, ResumeItemRow, *ResumeItemRow]{
		name:       CollectionResume,
		collection: r.resume,
		newRecord:  func() *ResumeItem { return &ResumeItem{} },
		fromRow:    resumeFromRow,
		toRow: func(item *ResumeItem) (*ResumeItemRow, error) {
			return &ResumeItemRow{
				SortOrder:    item.Order,
				Title:        item.Title,
				Organization: item.Organization,
				DateText:     item.DateText,
				Description:  item.Description,
				Link:         item.Link,
			}, nil
		},
		fields:   func(item *ResumeItem) (map[string]any, error) { return resumeFields(item), nil },
		logError: r.logError,
	}
}

// Projects returns the editor strategy for project cards.
func (r *Repository) Projects() *RecordStrategy[*ProjectCard, ProjectCardRow, *ProjectCardRow] {
	return &RecordStrategy[*ProjectCard, ProjectCardRow, *ProjectCardRow]{
		name:       CollectionProjects,
		collection: r.projects,
		newRecord: func() *ProjectCard {
			project := &ProjectCard{}
			project.normalize()
			return project
		},
		fromRow: projectFromRow,
		toRow: func(project *ProjectCard) (*ProjectCardRow, error) {
			row, err := projectRow(project)
			if err != nil {
				return nil, err
			}
			return &row, nil
		},
		fields:   projectFields,
		logError: r.logError,
	}
}
