package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Collection names used by the document store, the query cache and the admin API.
const (
	CollectionSkills   = "skills"
	CollectionBadges   = "badges"
	CollectionResume   = "resume"
	CollectionProjects = "projects"
	CollectionCV       = "cv"
	CollectionContact  = "contact"
)

// Skill categories offered by the admin picker.
var SkillCategories = []string{"language", "framework", "tool", "platform", "database"}

// Link kinds offered by the project link picker.
var LinkKinds = []string{"github", "demo", "article", "video", "store"}

var (
	// ErrUnknownField indicates a field update named a field the record does not expose.
	ErrUnknownField = errors.New("content: unknown field")
	// ErrIndexOutOfRange indicates a nested list index outside the list bounds.
	ErrIndexOutOfRange = errors.New("content: index out of range")
	// ErrDuplicateTechBadge indicates the badge is already referenced by the project.
	ErrDuplicateTechBadge = errors.New("content: tech badge already added")
)

// Skill is an entry of the skills grid.
type Skill struct {
	ID         string `json:"id"`
	Order      int    `json:"order"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	IconURL    string `json:"icon_url"`
	IconBlobID string `json:"icon_blob_id"`
}

// TechBadge is a technology badge that project cards reference by id.
type TechBadge struct {
	ID         string `json:"id"`
	Order      int    `json:"order"`
	Name       string `json:"name"`
	IconURL    string `json:"icon_url"`
	IconBlobID string `json:"icon_blob_id"`
}

// ResumeItem is one entry of the résumé timeline.
type ResumeItem struct {
	ID           string `json:"id"`
	Order        int    `json:"order"`
	Title        string `json:"title"`
	Organization string `json:"organization"`
	DateText     string `json:"date_text"`
	Description  string `json:"description"`
	Link         string `json:"link"`
}

// Link is an outbound link on a project card.
type Link struct {
	Kind string `json:"kind" yaml:"kind"`
	URL  string `json:"url" yaml:"url"`
}

// Image is a screenshot on a project card.
type Image struct {
	URL string `json:"url" yaml:"url"`
	Alt string `json:"alt" yaml:"alt"`
}

// ProjectCard is a project shown on the projects page.
type ProjectCard struct {
	ID           string   `json:"id"`
	Order        int      `json:"order"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Featured     bool     `json:"featured"`
	Links        []Link   `json:"links"`
	Images       []Image  `json:"images"`
	TechBadgeIDs []string `json:"tech_badge_ids"`
}

// CVFile is the singleton résumé document offered for download.
type CVFile struct {
	BlobID      string    `json:"blob_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	URL         string    `json:"url"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// ContactMessage is a message left through the contact page.
type ContactMessage struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

func decodeField(field string, value json.RawMessage, target any) error {
	if err := json.Unmarshal(value, target); err != nil {
		return fmt.Errorf("content: field %q: %w", field, err)
	}
	return nil
}

func unknownField(field string) error {
	return fmt.Errorf("%w: %q", ErrUnknownField, field)
}
