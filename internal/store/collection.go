// Package store is the document store used by content services: named collections
// with list/get/create/update/delete over gorm models.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	columnID      = "id"
	queryIDEquals = columnID + " = ?"
	likeEscape    = `\`
)

var (
	// ErrNotFound indicates the addressed document does not exist.
	ErrNotFound = errors.New("store: document not found")
	// ErrInvalidQuery indicates a filter, sort or update referenced an unknown field.
	ErrInvalidQuery = errors.New("store: invalid query")
	// ErrTemporaryID indicates a locally minted placeholder was offered as a document key.
	ErrTemporaryID = errors.New("store: temporary id cannot be persisted")

	errMissingDatabase   = errors.New("store: database handle is required")
	errMissingName       = errors.New("store: collection name is required")
	errMissingIDProvider = errors.New("store: id provider is required")
)

// Operator selects the comparison applied by a Filter.
type Operator string

const (
	// OpEqual matches documents whose field equals the value.
	OpEqual Operator = "eq"
	// OpContains matches documents whose text field contains the value.
	OpContains Operator = "contains"
)

// Filter restricts a listing.
type Filter struct {
	Field    string
	Operator Operator
	Value    any
}

// Equal builds an equality filter.
func Equal(field string, value any) Filter {
	return Filter{Field: field, Operator: OpEqual, Value: value}
}

// Contains builds a substring filter.
func Contains(field, value string) Filter {
	return Filter{Field: field, Operator: OpContains, Value: value}
}

// Sort orders a listing by one field.
type Sort struct {
	Field      string
	Descending bool
}

// Query describes a listing request. A zero Limit means unlimited.
type Query struct {
	Filters []Filter
	Sort    []Sort
	Limit   int
}

// Document is implemented by pointers to gorm models stored in a Collection.
type Document[M any] interface {
	*M
	DocumentID() string
	SetDocumentID(id string)
}

// CollectionConfig wires a Collection.
type CollectionConfig struct {
	Database   *gorm.DB
	Name       string
	Fields     []string
	IDProvider ids.Provider
	Logger     *zap.Logger
}

// Collection stores documents of model M in the model's table.
type Collection[M any, PM Document[M]] struct {
	db         *gorm.DB
	name       string
	fields     map[string]struct{}
	idProvider ids.Provider
	logger     *zap.Logger
}

// NewCollection validates cfg and builds a Collection. Fields lists the columns that
// filters, sorts and partial updates may reference.
func NewCollection[M any, PM Document[M]](cfg CollectionConfig) (*Collection[M, PM], error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, errMissingName
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := make(map[string]struct{}, len(cfg.Fields)+1)
	fields[columnID] = struct{}{}
	for _, field := range cfg.Fields {
		fields[field] = struct{}{}
	}
	return &Collection[M, PM]{
		db:         cfg.Database,
		name:       name,
		fields:     fields,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// List returns the documents matching query.
func (c *Collection[M, PM]) List(ctx context.Context, query Query) ([]M, error) {
	tx := c.db.WithContext(ctx).Model(PM(new(M)))
	for _, filter := range query.Filters {
		if !c.allowed(filter.Field) {
			return nil, fmt.Errorf("%w: filter field %q", ErrInvalidQuery, filter.Field)
		}
		switch filter.Operator {
		case OpEqual:
			tx = tx.Where(filter.Field+" = ?", filter.Value)
		case OpContains:
			text, ok := filter.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: contains expects text for %q", ErrInvalidQuery, filter.Field)
			}
			tx = tx.Where(filter.Field+" LIKE ? ESCAPE '"+likeEscape+"'", "%"+escapeLike(text)+"%")
		default:
			return nil, fmt.Errorf("%w: operator %q", ErrInvalidQuery, filter.Operator)
		}
	}
	for _, sort := range query.Sort {
		if !c.allowed(sort.Field) {
			return nil, fmt.Errorf("%w: sort field %q", ErrInvalidQuery, sort.Field)
		}
		direction := " ASC"
		if sort.Descending {
			direction = " DESC"
		}
		tx = tx.Order(sort.Field + direction)
	}
	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}

	var documents []M
	if err := tx.Find(&documents).Error; err != nil {
		c.logger.Error("store list failed", zap.String("collection", c.name), zap.Error(err))
		return nil, err
	}
	return documents, nil
}

// Get loads one document by id.
func (c *Collection[M, PM]) Get(ctx context.Context, id string) (M, error) {
	var document M
	err := c.db.WithContext(ctx).Where(queryIDEquals, id).Take(PM(&document)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return document, fmt.Errorf("%w: %s/%s", ErrNotFound, c.name, id)
	}
	return document, err
}

// Create inserts document under id, or under a freshly issued id when id is empty.
// It returns the key the document was stored under.
func (c *Collection[M, PM]) Create(ctx context.Context, id string, document PM) (string, error) {
	key := strings.TrimSpace(id)
	if key == "" {
		generated, err := c.idProvider.NewID()
		if err != nil {
			return "", err
		}
		key = generated
	}
	if ids.IsTemporary(key) {
		return "", fmt.Errorf("%w: %s", ErrTemporaryID, key)
	}
	document.SetDocumentID(key)
	if err := c.db.WithContext(ctx).Create(document).Error; err != nil {
		c.logger.Error("store create failed", zap.String("collection", c.name), zap.String("id", key), zap.Error(err))
		return "", err
	}
	return key, nil
}

// Update replaces the listed fields of document id.
func (c *Collection[M, PM]) Update(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	for field := range fields {
		if field == columnID || !c.allowed(field) {
			return fmt.Errorf("%w: update field %q", ErrInvalidQuery, field)
		}
	}
	result := c.db.WithContext(ctx).Model(PM(new(M))).Where(queryIDEquals, id).Updates(fields)
	if result.Error != nil {
		c.logger.Error("store update failed", zap.String("collection", c.name), zap.String("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, c.name, id)
	}
	return nil
}

// Delete removes document id.
func (c *Collection[M, PM]) Delete(ctx context.Context, id string) error {
	result := c.db.WithContext(ctx).Where(queryIDEquals, id).Delete(PM(new(M)))
	if result.Error != nil {
		c.logger.Error("store delete failed", zap.String("collection", c.name), zap.String("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, c.name, id)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (c *Collection[M, PM]) Count(ctx context.Context) (int64, error) {
	var total int64
	err := c.db.WithContext(ctx).Model(PM(new(M))).Count(&total).Error
	return total, err
}

func (c *Collection[M, PM]) allowed(field string) bool {
	_, ok := c.fields[field]
	return ok
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return replacer.Replace(value)
}
