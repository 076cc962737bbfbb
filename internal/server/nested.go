package server

import (
	"errors"

	"github.com/MarcoPoloResearchLab/portfolio/internal/content"
)

const (
	nestedAddLink     = "add_link"
	nestedSetLink     = "set_link"
	nestedRemoveLink  = "remove_link"
	nestedAddImage    = "add_image"
	nestedSetImage    = "set_image"
	nestedRemoveImage = "remove_image"
	nestedAddBadge    = "add_badge"
	nestedRemoveBadge = "remove_badge"
)

var errUnknownNestedOperation = errors.New("unknown nested operation")

// nestedEditPayload addresses one entry of a project's links, images or tech badges.
type nestedEditPayload struct {
	Operation string         `json:"operation"`
	Index     int            `json:"index"`
	Link      *content.Link  `json:"link"`
	Image     *content.Image `json:"image"`
	BadgeID   string         `json:"badge_id"`
}

func (p nestedEditPayload) known() bool {
	switch p.Operation {
	case nestedAddLink, nestedSetLink, nestedRemoveLink,
		nestedAddImage, nestedSetImage, nestedRemoveImage,
		nestedAddBadge, nestedRemoveBadge:
		return true
	}
	return false
}

func (p nestedEditPayload) apply(project *content.ProjectCard) error {
	switch p.Operation {
	case nestedAddLink:
		link := content.NewLink()
		if p.Link != nil {
			link = *p.Link
		}
		project.AddLink(link)
		return nil
	case nestedSetLink:
		if p.Link == nil {
			return errors.New("link is required")
		}
		return project.SetLink(p.Index, *p.Link)
	case nestedRemoveLink:
		return project.RemoveLink(p.Index)
	case nestedAddImage:
		image := content.Image{}
		if p.Image != nil {
			image = *p.Image
		}
		project.AddImage(image)
		return nil
	case nestedSetImage:
		if p.Image == nil {
			return errors.New("image is required")
		}
		return project.SetImage(p.Index, *p.Image)
	case nestedRemoveImage:
		return project.RemoveImage(p.Index)
	case nestedAddBadge:
		return project.AddTechBadge(p.BadgeID)
	case nestedRemoveBadge:
		return project.RemoveTechBadge(p.Index)
	default:
		return errUnknownNestedOperation
	}
}
