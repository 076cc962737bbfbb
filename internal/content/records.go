package content

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/MarcoPoloResearchLab/portfolio/internal/blob"
	"github.com/MarcoPoloResearchLab/portfolio/internal/validation"
)

func (s *Skill) EntityID() string         { return s.ID }
func (s *Skill) SetEntityID(id string)    { s.ID = id }
func (s *Skill) EntityOrder() int         { return s.Order }
func (s *Skill) SetEntityOrder(order int) { s.Order = order }
func (s *Skill) Label() string            { return fmt.Sprintf("skill %q", s.Name) }

// Clone returns an independent copy.
func (s *Skill) Clone() *Skill {
	clone := *s
	return &clone
}

// SetField replaces one editable field from its JSON value.
func (s *Skill) SetField(field string, value json.RawMessage) error {
	switch field {
	case "name":
		return decodeField(field, value, &s.Name)
	case "category":
		return decodeField(field, value, &s.Category)
	case "icon_url":
		return decodeField(field, value, &s.IconURL)
	case "icon_blob_id":
		return decodeField(field, value, &s.IconBlobID)
	default:
		return unknownField(field)
	}
}

// OwnedBlob names the uploaded icon that must be removed with the record.
func (s *Skill) OwnedBlob() (string, string) {
	return blob.BucketIcons, s.IconBlobID
}

// Validate applies the skill rules.
func (s *Skill) Validate() error {
	return validation.For(s.Label()).
		Text("name", s.Name).
		Selection("category", s.Category).
		URL("icon_url", s.IconURL).
		Err()
}

func (b *TechBadge) EntityID() string         { return b.ID }
func (b *TechBadge) SetEntityID(id string)    { b.ID = id }
func (b *TechBadge) EntityOrder() int         { return b.Order }
func (b *TechBadge) SetEntityOrder(order int) { b.Order = order }
func (b *TechBadge) Label() string            { return fmt.Sprintf("tech badge %q", b.Name) }

// Clone returns an independent copy.
func (b *TechBadge) Clone() *TechBadge {
	clone := *b
	return &clone
}

// SetField replaces one editable field from its JSON value.
func (b *TechBadge) SetField(field string, value json.RawMessage) error {
	switch field {
	case "name":
		return decodeField(field, value, &b.Name)
	case "icon_url":
		return decodeField(field, value, &b.IconURL)
	case "icon_blob_id":
		return decodeField(field, value, &b.IconBlobID)
	default:
		return unknownField(field)
	}
}

// OwnedBlob names the uploaded icon that must be removed with the record.
func (b *TechBadge) OwnedBlob() (string, string) {
	return blob.BucketIcons, b.IconBlobID
}

// Validate applies the badge rules.
func (b *TechBadge) Validate() error {
	return validation.For(b.Label()).
		Text("name", b.Name).
		URL("icon_url", b.IconURL).
		Err()
}

func (r *ResumeItem) EntityID() string         { return r.ID }
func (r *ResumeItem) SetEntityID(id string)    { r.ID = id }
func (r *ResumeItem) EntityOrder() int         { return r.Order }
func (r *ResumeItem) SetEntityOrder(order int) { r.Order = order }
func (r *ResumeItem) Label() string            { return fmt.Sprintf("résumé item %q", r.Title) }

// Clone returns an independent copy.
func (r *ResumeItem) Clone() *ResumeItem {
	clone := *r
	return &clone
}

// SetField replaces one editable field from its JSON value.
func (r *ResumeItem) SetField(field string, value json.RawMessage) error {
	switch field {
	case "title":
		return decodeField(field, value, &r.Title)
	case "organization":
		return decodeField(field, value, &r.Organization)
	case "date_text":
		return decodeField(field, value, &r.DateText)
	case "description":
		return decodeField(field, value, &r.Description)
	case "link":
		return decodeField(field, value, &r.Link)
	default:
		return unknownField(field)
	}
}

// Validate applies the résumé rules.
func (r *ResumeItem) Validate() error {
	return validation.For(r.Label()).
		Text("title", r.Title).
		Text("date_text", r.DateText).
		Text("description", r.Description).
		OptionalURL("link", r.Link).
		Err()
}

func (p *ProjectCard) EntityID() string         { return p.ID }
func (p *ProjectCard) SetEntityID(id string)    { p.ID = id }
func (p *ProjectCard) EntityOrder() int         { return p.Order }
func (p *ProjectCard) SetEntityOrder(order int) { p.Order = order }
func (p *ProjectCard) Label() string            { return fmt.Sprintf("project %q", p.Title) }

// Clone returns a deep copy including nested lists.
func (p *ProjectCard) Clone() *ProjectCard {
	clone := *p
	clone.Links = slices.Clone(p.Links)
	clone.Images = slices.Clone(p.Images)
	clone.TechBadgeIDs = slices.Clone(p.TechBadgeIDs)
	clone.normalize()
	return &clone
}

// SetField replaces one editable field from its JSON value. Whole nested lists may be
// replaced; a badge list with a repeated id is rejected.
func (p *ProjectCard) SetField(field string, value json.RawMessage) error {
	switch field {
	case "title":
		return decodeField(field, value, &p.Title)
	case "description":
		return decodeField(field, value, &p.Description)
	case "featured":
		return decodeField(field, value, &p.Featured)
	case "links":
		var links []Link
		if err := decodeField(field, value, &links); err != nil {
			return err
		}
		p.Links = links
	case "images":
		var images []Image
		if err := decodeField(field, value, &images); err != nil {
			return err
		}
		p.Images = images
	case "tech_badge_ids":
		var badgeIDs []string
		if err := decodeField(field, value, &badgeIDs); err != nil {
			return err
		}
		if err := p.ReplaceTechBadges(badgeIDs); err != nil {
			return err
		}
	default:
		return unknownField(field)
	}
	p.normalize()
	return nil
}

// Validate applies the project rules, including every link and image.
func (p *ProjectCard) Validate() error {
	checker := validation.For(p.Label()).
		Text("title", p.Title).
		Text("description", p.Description).
		NonEmpty("link", len(p.Links))
	validation.Each(checker, "links", p.Links, func(c *validation.Checker, prefix string, link Link) {
		c.Selection(prefix+".kind", link.Kind).URL(prefix+".url", link.URL)
	})
	checker.NonEmpty("image", len(p.Images))
	validation.Each(checker, "images", p.Images, func(c *validation.Checker, prefix string, image Image) {
		c.URL(prefix+".url", image.URL)
	})
	return checker.Err()
}

func (p *ProjectCard) normalize() {
	if p.Links == nil {
		p.Links = []Link{}
	}
	if p.Images == nil {
		p.Images = []Image{}
	}
	if p.TechBadgeIDs == nil {
		p.TechBadgeIDs = []string{}
	}
}
