package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MarcoPoloResearchLab/portfolio/internal/cache"
	"github.com/MarcoPoloResearchLab/portfolio/internal/store"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedDocument is the YAML layout accepted by the seed command.
type SeedDocument struct {
	Skills   []SeedSkill   `yaml:"skills"`
	Badges   []SeedBadge   `yaml:"badges"`
	Resume   []SeedResume  `yaml:"resume"`
	Projects []SeedProject `yaml:"projects"`
}

type SeedSkill struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	IconURL  string `yaml:"icon_url"`
}

type SeedBadge struct {
	Name    string `yaml:"name"`
	IconURL string `yaml:"icon_url"`
}

type SeedResume struct {
	Title        string `yaml:"title"`
	Organization string `yaml:"organization"`
	DateText     string `yaml:"date_text"`
	Description  string `yaml:"description"`
	Link         string `yaml:"link"`
}

// SeedProject references badges by name; names are resolved after badges are seeded.
type SeedProject struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Featured    bool     `yaml:"featured"`
	Links       []Link   `yaml:"links"`
	Images      []Image  `yaml:"images"`
	Badges      []string `yaml:"badges"`
}

// SeedReport counts created records per collection; skipped collections already had content.
type SeedReport struct {
	Created map[string]int
	Skipped []string
}

var errUnknownBadge = errors.New("content: seed references unknown badge")

// DecodeSeed parses a seed document, rejecting unknown keys.
func DecodeSeed(reader io.Reader) (SeedDocument, error) {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	var document SeedDocument
	if err := decoder.Decode(&document); err != nil {
		if errors.Is(err, io.EOF) {
			return SeedDocument{}, nil
		}
		return SeedDocument{}, newServiceError(opSeed, "decode_failed", err)
	}
	return document, nil
}

// Seed loads document into every empty collection. Collections that already hold
// records are left untouched and reported as skipped.
func (r *Repository) Seed(ctx context.Context, document SeedDocument) (SeedReport, error) {
	report := SeedReport{Created: map[string]int{}}

	skills := make([]*Skill, 0, len(document.Skills))
	for _, seed := range document.Skills {
		skills = append(skills, &Skill{Name: seed.Name, Category: seed.Category, IconURL: seed.IconURL})
	}
	if err := seedCollection(ctx, r, r.Skills(), skills, &report); err != nil {
		return report, err
	}

	badges := make([]*TechBadge, 0, len(document.Badges))
	for _, seed := range document.Badges {
		badges = append(badges, &TechBadge{Name: seed.Name, IconURL: seed.IconURL})
	}
	if err := seedCollection(ctx, r, r.Badges(), badges, &report); err != nil {
		return report, err
	}

	resume := make([]*ResumeItem, 0, len(document.Resume))
	for _, seed := range document.Resume {
		resume = append(resume, &ResumeItem{
			Title:        seed.Title,
			Organization: seed.Organization,
			DateText:     seed.DateText,
			Description:  seed.Description,
			Link:         seed.Link,
		})
	}
	if err := seedCollection(ctx, r, r.Resume(), resume, &report); err != nil {
		return report, err
	}

	badgeIDs, err := r.badgeIDsByName(ctx)
	if err != nil {
		return report, err
	}
	projects := make([]*ProjectCard, 0, len(document.Projects))
	for _, seed := range document.Projects {
		project := &ProjectCard{
			Title:       seed.Title,
			Description: seed.Description,
			Featured:    seed.Featured,
			Links:       seed.Links,
			Images:      seed.Images,
		}
		for _, name := range seed.Badges {
			id, ok := badgeIDs[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				return report, newServiceError(opSeed, "unknown_badge", fmt.Errorf("%w: %q", errUnknownBadge, name))
			}
			if err := project.AddTechBadge(id); err != nil {
				return report, newServiceError(opSeed, "duplicate_badge", err)
			}
		}
		project.normalize()
		projects = append(projects, project)
	}
	if err := seedCollection(ctx, r, r.Projects(), projects, &report); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Repository) badgeIDsByName(ctx context.Context) (map[string]string, error) {
	badges, err := r.Badges().List(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(badges))
	for _, badge := range badges {
		byName[strings.ToLower(strings.TrimSpace(badge.Name))] = badge.ID
	}
	return byName, nil
}

type seedable interface {
	orderedRecord
	SetEntityOrder(int)
}

func seedCollection[T seedable, M any, PM store.Document[M]](ctx context.Context, r *Repository, strategy *RecordStrategy[T, M, PM], records []T, report *SeedReport) error {
	if len(records) == 0 {
		return nil
	}
	existing, err := strategy.collection.Count(ctx)
	if err != nil {
		return newServiceError(opSeed, "count_failed", err)
	}
	if existing > 0 {
		report.Skipped = append(report.Skipped, strategy.Collection())
		return nil
	}
	for index, record := range records {
		record.SetEntityOrder(index + 1)
		if err := record.Validate(); err != nil {
			return newServiceError(opSeed, "invalid_record", err)
		}
	}
	for _, record := range records {
		if _, err := strategy.Create(ctx, record); err != nil {
			return err
		}
		report.Created[strategy.Collection()]++
	}
	r.cache.InvalidatePrefix(cache.CollectionPrefix(strategy.Collection()))
	r.logger.Info("content seeded",
		zap.String("collection", strategy.Collection()),
		zap.Int("records", len(records)))
	return nil
}
