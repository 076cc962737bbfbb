package content

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/MarcoPoloResearchLab/portfolio/internal/validation"
)

func validProject() *ProjectCard {
	return &ProjectCard{
		Title:       "Orbit",
		Description: "Notes that sync",
		Links:       []Link{{Kind: "github", URL: "https://github.com/example/orbit"}},
		Images:      []Image{{URL: "https://example.com/shot.png", Alt: "editor"}},
	}
}

func TestAddTechBadgeRejectsDuplicateAndKeepsList(testContext *testing.T) {
	project := validProject()
	if err := project.AddTechBadge("badge-go"); err != nil {
		testContext.Fatalf("unexpected error adding badge: %v", err)
	}
	err := project.AddTechBadge("badge-go")
	if !errors.Is(err, ErrDuplicateTechBadge) {
		testContext.Fatalf("expected duplicate badge error, got %v", err)
	}
	if len(project.TechBadgeIDs) != 1 || project.TechBadgeIDs[0] != "badge-go" {
		testContext.Fatalf("expected badge list to be unchanged, got %v", project.TechBadgeIDs)
	}
}

func TestNestedListIndexesAreChecked(testContext *testing.T) {
	project := validProject()
	if err := project.SetLink(3, NewLink()); !errors.Is(err, ErrIndexOutOfRange) {
		testContext.Fatalf("expected out of range for SetLink, got %v", err)
	}
	if err := project.RemoveImage(-1); !errors.Is(err, ErrIndexOutOfRange) {
		testContext.Fatalf("expected out of range for RemoveImage, got %v", err)
	}
	if err := project.RemoveTechBadge(0); !errors.Is(err, ErrIndexOutOfRange) {
		testContext.Fatalf("expected out of range for RemoveTechBadge, got %v", err)
	}

	project.AddLink(NewLink())
	if err := project.SetLink(1, Link{Kind: "demo", URL: "https://demo.example.com"}); err != nil {
		testContext.Fatalf("unexpected SetLink error: %v", err)
	}
	if err := project.RemoveLink(0); err != nil {
		testContext.Fatalf("unexpected RemoveLink error: %v", err)
	}
	if len(project.Links) != 1 || project.Links[0].Kind != "demo" {
		testContext.Fatalf("expected only the demo link to remain, got %+v", project.Links)
	}
}

func TestProjectValidationStopsAtFirstViolation(testContext *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(*ProjectCard)
		wantField string
		wantRule  validation.Rule
	}{
		{name: "valid", mutate: func(*ProjectCard) {}},
		{name: "missing title reported before links", mutate: func(p *ProjectCard) {
			p.Title = " "
			p.Links = nil
		}, wantField: "title", wantRule: validation.RuleRequired},
		{name: "no links", mutate: func(p *ProjectCard) { p.Links = nil }, wantField: "link", wantRule: validation.RuleNonEmpty},
		{name: "unselected kind", mutate: func(p *ProjectCard) { p.AddLink(NewLink()) }, wantField: "links[1].kind", wantRule: validation.RuleSelection},
		{name: "bad link url", mutate: func(p *ProjectCard) { p.Links[0].URL = "not a url" }, wantField: "links[0].url", wantRule: validation.RuleURL},
		{name: "no images", mutate: func(p *ProjectCard) { p.Images = []Image{} }, wantField: "image", wantRule: validation.RuleNonEmpty},
		{name: "blank image url", mutate: func(p *ProjectCard) { p.Images[0].URL = "" }, wantField: "images[0].url", wantRule: validation.RuleRequired},
	}

	for _, testCase := range testCases {
		testContext.Run(testCase.name, func(t *testing.T) {
			project := validProject()
			testCase.mutate(project)
			err := project.Validate()
			if testCase.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid project, got %v", err)
				}
				return
			}
			var validationErr *validation.Error
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if validationErr.Field != testCase.wantField || validationErr.Rule != testCase.wantRule {
				t.Fatalf("expected %s/%s, got %s/%s", testCase.wantField, testCase.wantRule, validationErr.Field, validationErr.Rule)
			}
		})
	}
}

func TestSkillValidationMessagesNameTheRecord(testContext *testing.T) {
	skill := &Skill{Name: "Go", Category: validation.SelectionNone, IconURL: "https://example.com/go.svg"}
	err := skill.Validate()
	if err == nil {
		testContext.Fatalf("expected category selection to be required")
	}
	if err.Error() != `skill "Go": category must be selected` {
		testContext.Fatalf("unexpected message %q", err.Error())
	}
}

func TestSetFieldRejectsRepeatedBadgesAndUnknownFields(testContext *testing.T) {
	project := validProject()
	project.TechBadgeIDs = []string{"go"}

	err := project.SetField("tech_badge_ids", json.RawMessage(`["go","go"]`))
	if !errors.Is(err, ErrDuplicateTechBadge) {
		testContext.Fatalf("expected duplicate badge error, got %v", err)
	}
	var validationErr *validation.Error
	if !errors.As(err, &validationErr) || validationErr.Field != "tech_badge_ids" || validationErr.Rule != validation.RuleDuplicate {
		testContext.Fatalf("expected a duplicate rule on tech_badge_ids, got %v", err)
	}
	if len(project.TechBadgeIDs) != 1 || project.TechBadgeIDs[0] != "go" {
		testContext.Fatalf("expected the badge list to stay unchanged, got %v", project.TechBadgeIDs)
	}

	if err := project.SetField("tech_badge_ids", json.RawMessage(`["a"," b "]`)); err != nil {
		testContext.Fatalf("unexpected error: %v", err)
	}
	if len(project.TechBadgeIDs) != 2 || project.TechBadgeIDs[1] != "b" {
		testContext.Fatalf("expected the replacement list, got %v", project.TechBadgeIDs)
	}
	if err := project.SetField("order", json.RawMessage(`4`)); !errors.Is(err, ErrUnknownField) {
		testContext.Fatalf("expected unknown field error, got %v", err)
	}
	if err := project.SetField("featured", json.RawMessage(`"yes"`)); err == nil {
		testContext.Fatalf("expected decode error for non-boolean featured")
	}
}

func TestProjectFromRowToleratesMalformedLists(testContext *testing.T) {
	project := projectFromRow(ProjectCardRow{ID: "p1", Title: "Broken", LinksJSON: "{", ImagesJSON: "", TechBadgeIDsJSON: `["go"]`})
	if project.Links == nil || len(project.Links) != 0 {
		testContext.Fatalf("expected empty links, got %+v", project.Links)
	}
	if len(project.TechBadgeIDs) != 1 || project.TechBadgeIDs[0] != "go" {
		testContext.Fatalf("expected badge ids to decode, got %v", project.TechBadgeIDs)
	}
}

func TestCloneDetachesNestedLists(testContext *testing.T) {
	original := validProject()
	clone := original.Clone()
	clone.Links[0].URL = "https://changed.example.com"
	clone.AddImage(Image{URL: "https://example.com/2.png"})
	if original.Links[0].URL == clone.Links[0].URL || len(original.Images) != 1 {
		testContext.Fatalf("expected clone edits not to leak into the original")
	}
}
