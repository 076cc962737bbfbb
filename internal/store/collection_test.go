package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/MarcoPoloResearchLab/portfolio/internal/ids"
	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type badgeDocument struct {
	ID       string `gorm:"column:id;primaryKey;size:190"`
	Name     string `gorm:"column:name;size:190;not null"`
	Featured bool   `gorm:"column:featured;not null;default:false"`
	Order    int    `gorm:"column:sort_order;not null"`
}

func (badgeDocument) TableName() string { return "test_badges" }

func (d *badgeDocument) DocumentID() string      { return d.ID }
func (d *badgeDocument) SetDocumentID(id string) { d.ID = id }

func openTestCollection(t *testing.T) *Collection[badgeDocument, *badgeDocument] {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&badgeDocument{}))

	collection, err := NewCollection[badgeDocument](CollectionConfig{
		Database:   db,
		Name:       "badges",
		Fields:     []string{"name", "featured", "sort_order"},
		IDProvider: ids.NewUUIDProvider(),
	})
	require.NoError(t, err)
	return collection
}

func TestCollectionCreateAssignsIDWhenEmpty(t *testing.T) {
	ctx := context.Background()
	collection := openTestCollection(t)

	id, err := collection.Create(ctx, "", &badgeDocument{Name: "Go", Order: 1})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	require.False(t, ids.IsTemporary(id))

	stored, err := collection.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Go", stored.Name)
}

func TestCollectionCreateRejectsTemporaryID(t *testing.T) {
	collection := openTestCollection(t)
	_, err := collection.Create(context.Background(), ids.TemporaryPrefix+"123", &badgeDocument{Name: "Go"})
	require.ErrorIs(t, err, ErrTemporaryID)
}

func TestCollectionListFiltersSortsAndLimits(t *testing.T) {
	ctx := context.Background()
	collection := openTestCollection(t)
	for index, name := range []string{"PostgreSQL", "Go", "gRPC", "Postman"} {
		_, err := collection.Create(ctx, "", &badgeDocument{Name: name, Order: 4 - index, Featured: index%2 == 0})
		require.NoError(t, err)
	}

	matches, err := collection.List(ctx, Query{
		Filters: []Filter{Contains("name", "post")},
		Sort:    []Sort{{Field: "sort_order"}},
	})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "Postman", matches[0].Name)
	require.Equal(t, "PostgreSQL", matches[1].Name)

	featured, err := collection.List(ctx, Query{
		Filters: []Filter{Equal("featured", true)},
		Sort:    []Sort{{Field: "sort_order", Descending: true}},
		Limit:   1,
	})
	require.NoError(t, err)
	require.Len(t, featured, 1)
	require.Equal(t, "PostgreSQL", featured[0].Name)
}

func TestCollectionContainsEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	collection := openTestCollection(t)
	_, err := collection.Create(ctx, "", &badgeDocument{Name: "C++", Order: 1})
	require.NoError(t, err)

	matches, err := collection.List(ctx, Query{Filters: []Filter{Contains("name", "%")}})
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestCollectionRejectsUnknownFields(t *testing.T) {
	ctx := context.Background()
	collection := openTestCollection(t)

	_, err := collection.List(ctx, Query{Filters: []Filter{Equal("name; DROP TABLE test_badges", "x")}})
	require.ErrorIs(t, err, ErrInvalidQuery)

	err = collection.Update(ctx, "missing", map[string]any{"id": "other"})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestCollectionUpdateAndDeleteReportMissingDocuments(t *testing.T) {
	ctx := context.Background()
	collection := openTestCollection(t)

	require.ErrorIs(t, collection.Update(ctx, "missing", map[string]any{"name": "x"}), ErrNotFound)
	require.ErrorIs(t, collection.Delete(ctx, "missing"), ErrNotFound)

	id, err := collection.Create(ctx, "", &badgeDocument{Name: "Go", Order: 1})
	require.NoError(t, err)
	require.NoError(t, collection.Update(ctx, id, map[string]any{"sort_order": 3}))

	stored, err := collection.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 3, stored.Order)
	require.Equal(t, "Go", stored.Name)

	require.NoError(t, collection.Delete(ctx, id))
	_, err = collection.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
}
