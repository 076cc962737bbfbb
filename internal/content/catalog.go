package content

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/portfolio/internal/cache"
	"github.com/MarcoPoloResearchLab/portfolio/internal/store"
	"go.uber.org/zap"
)

// MaxSearchResults caps badge search and project listing limits.
const MaxSearchResults = 100

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("content: not found")

// ProjectQuery narrows the public project listing.
type ProjectQuery struct {
	FeaturedOnly bool
	Limit        int
}

// Listings returned by the catalog are shared through the query cache and must be
// treated as read-only by callers.

// ListSkills returns every skill in display order.
func (r *Repository) ListSkills(ctx context.Context) ([]*Skill, error) {
	return cache.GetOrLoad(ctx, r.cache, cache.ListKey(CollectionSkills), r.Skills().List)
}

// ListBadges returns every tech badge in display order.
func (r *Repository) ListBadges(ctx context.Context) ([]*TechBadge, error) {
	return cache.GetOrLoad(ctx, r.cache, cache.ListKey(CollectionBadges), r.Badges().List)
}

// SearchBadges returns badges whose name contains term, in display order.
func (r *Repository) SearchBadges(ctx context.Context, term string, limit int) ([]*TechBadge, error) {
	term = strings.TrimSpace(term)
	limit = clampLimit(limit)
	if term == "" {
		badges, err := r.ListBadges(ctx)
		if err != nil {
			return nil, err
		}
		if len(badges) > limit {
			badges = badges[:limit]
		}
		return badges, nil
	}
	key := cache.QueryKey(CollectionBadges, "search", strings.ToLower(term), strconv.Itoa(limit))
	return cache.GetOrLoad(ctx, r.cache, key, func(ctx context.Context) ([]*TechBadge, error) {
		query := orderedListing
		query.Filters = []store.Filter{store.Contains(columnName, term)}
		query.Limit = limit
		rows, err := r.badges.List(ctx, query)
		if err != nil {
			r.logError(opList, "search_failed", err, zap.String("term", term))
			return nil, newServiceError(opList, "search_failed", err)
		}
		badges := make([]*TechBadge, 0, len(rows))
		for _, row := range rows {
			badges = append(badges, badgeFromRow(row))
		}
		return badges, nil
	})
}

// ListResume returns every résumé item in display order.
func (r *Repository) ListResume(ctx context.Context) ([]*ResumeItem, error) {
	return cache.GetOrLoad(ctx, r.cache, cache.ListKey(CollectionResume), r.Resume().List)
}

// ListProjects returns project cards in display order, optionally featured only.
func (r *Repository) ListProjects(ctx context.Context, query ProjectQuery) ([]*ProjectCard, error) {
	if !query.FeaturedOnly && query.Limit <= 0 {
		return cache.GetOrLoad(ctx, r.cache, cache.ListKey(CollectionProjects), r.Projects().List)
	}
	limit := clampLimit(query.Limit)
	key := cache.QueryKey(CollectionProjects, "featured="+strconv.FormatBool(query.FeaturedOnly), strconv.Itoa(limit))
	return cache.GetOrLoad(ctx, r.cache, key, func(ctx context.Context) ([]*ProjectCard, error) {
		listing := orderedListing
		listing.Limit = limit
		if query.FeaturedOnly {
			listing.Filters = []store.Filter{store.Equal(columnFeatured, true)}
		}
		rows, err := r.projects.List(ctx, listing)
		if err != nil {
			r.logError(opList, "query_failed", err, zap.String("collection", CollectionProjects))
			return nil, newServiceError(opList, "query_failed", err)
		}
		projects := make([]*ProjectCard, 0, len(rows))
		for _, row := range rows {
			projects = append(projects, projectFromRow(row))
		}
		return projects, nil
	})
}

// GetProject returns a single project card.
func (r *Repository) GetProject(ctx context.Context, id string) (*ProjectCard, error) {
	return cache.GetOrLoad(ctx, r.cache, cache.DetailKey(CollectionProjects, id), func(ctx context.Context) (*ProjectCard, error) {
		project, err := r.Projects().Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return project, err
	})
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxSearchResults {
		return MaxSearchResults
	}
	return limit
}
