package content

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MarcoPoloResearchLab/portfolio/internal/validation"
)

// NewLink returns an unselected link placeholder.
func NewLink() Link {
	return Link{Kind: validation.SelectionNone}
}

// AddLink appends a link.
func (p *ProjectCard) AddLink(link Link) {
	p.Links = append(p.Links, link)
}

// SetLink replaces the link at index as a whole.
func (p *ProjectCard) SetLink(index int, link Link) error {
	if index < 0 || index >= len(p.Links) {
		return indexError("links", index, len(p.Links))
	}
	p.Links[index] = link
	return nil
}

// RemoveLink deletes the link at index, shifting later links down.
func (p *ProjectCard) RemoveLink(index int) error {
	if index < 0 || index >= len(p.Links) {
		return indexError("links", index, len(p.Links))
	}
	p.Links = slices.Delete(p.Links, index, index+1)
	return nil
}

// AddImage appends an image.
func (p *ProjectCard) AddImage(image Image) {
	p.Images = append(p.Images, image)
}

// SetImage replaces the image at index as a whole.
func (p *ProjectCard) SetImage(index int, image Image) error {
	if index < 0 || index >= len(p.Images) {
		return indexError("images", index, len(p.Images))
	}
	p.Images[index] = image
	return nil
}

// RemoveImage deletes the image at index, shifting later images down.
func (p *ProjectCard) RemoveImage(index int) error {
	if index < 0 || index >= len(p.Images) {
		return indexError("images", index, len(p.Images))
	}
	p.Images = slices.Delete(p.Images, index, index+1)
	return nil
}

// AddTechBadge appends a badge reference; a reference already present is rejected
// with ErrDuplicateTechBadge and the list is left unchanged.
func (p *ProjectCard) AddTechBadge(badgeID string) error {
	trimmed := strings.TrimSpace(badgeID)
	if trimmed == "" {
		return fmt.Errorf("content: tech badge id is required")
	}
	if slices.Contains(p.TechBadgeIDs, trimmed) {
		return p.duplicateBadge(trimmed)
	}
	p.TechBadgeIDs = append(p.TechBadgeIDs, trimmed)
	return nil
}

// ReplaceTechBadges swaps in a whole badge list. A list naming the same badge
// twice is rejected with ErrDuplicateTechBadge and the current list is kept.
func (p *ProjectCard) ReplaceTechBadges(badgeIDs []string) error {
	replacement := make([]string, 0, len(badgeIDs))
	for _, badgeID := range badgeIDs {
		trimmed := strings.TrimSpace(badgeID)
		if trimmed == "" {
			return fmt.Errorf("content: tech badge id is required")
		}
		if slices.Contains(replacement, trimmed) {
			return p.duplicateBadge(trimmed)
		}
		replacement = append(replacement, trimmed)
	}
	p.TechBadgeIDs = replacement
	return nil
}

func (p *ProjectCard) duplicateBadge(badgeID string) error {
	return validation.For(p.Label()).
		Reject("tech_badge_ids", validation.RuleDuplicate, fmt.Errorf("%w: %s", ErrDuplicateTechBadge, badgeID)).
		Err()
}

// RemoveTechBadge deletes the badge reference at index.
func (p *ProjectCard) RemoveTechBadge(index int) error {
	if index < 0 || index >= len(p.TechBadgeIDs) {
		return indexError("tech_badge_ids", index, len(p.TechBadgeIDs))
	}
	p.TechBadgeIDs = slices.Delete(p.TechBadgeIDs, index, index+1)
	return nil
}

func indexError(field string, index, length int) error {
	return fmt.Errorf("%w: %s[%d] of %d", ErrIndexOutOfRange, field, index, length)
}
