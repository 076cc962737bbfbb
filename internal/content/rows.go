package content

import (
	"encoding/json"
	"time"
)

// Column names shared by the document store whitelists.
const (
	columnOrder    = "sort_order"
	columnName     = "name"
	columnFeatured = "featured"
)

// SkillRow is the persisted form of a Skill.
type SkillRow struct {
	ID         string    `gorm:"column:id;primaryKey;size:190;not null"`
	SortOrder  int       `gorm:"column:sort_order;not null;default:0;index"`
	Name       string    `gorm:"column:name;size:190;not null"`
	Category   string    `gorm:"column:category;size:64;not null"`
	IconURL    string    `gorm:"column:icon_url;size:1024;not null;default:''"`
	IconBlobID string    `gorm:"column:icon_blob_id;size:190;not null;default:''"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (SkillRow) TableName() string { return "skills" }

func (r *SkillRow) DocumentID() string      { return r.ID }
func (r *SkillRow) SetDocumentID(id string) { r.ID = id }

// TechBadgeRow is the persisted form of a TechBadge.
type TechBadgeRow struct {
	ID         string    `gorm:"column:id;primaryKey;size:190;not null"`
	SortOrder  int       `gorm:"column:sort_order;not null;default:0;index"`
	Name       string    `gorm:"column:name;size:190;not null;index"`
	IconURL    string    `gorm:"column:icon_url;size:1024;not null;default:''"`
	IconBlobID string    `gorm:"column:icon_blob_id;size:190;not null;default:''"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (TechBadgeRow) TableName() string { return "tech_badges" }

func (r *TechBadgeRow) DocumentID() string      { return r.ID }
func (r *TechBadgeRow) SetDocumentID(id string) { r.ID = id }

// ResumeItemRow is the persisted form of a ResumeItem.
type ResumeItemRow struct {
	ID           string    `gorm:"column:id;primaryKey;size:190;not null"`
	SortOrder    int       `gorm:"column:sort_order;not null;default:0;index"`
	Title        string    `gorm:"column:title;size:320;not null"`
	Organization string    `gorm:"column:organization;size:320;not null;default:''"`
	DateText     string    `gorm:"column:date_text;size:120;not null"`
	Description  string    `gorm:"column:description;type:text;not null"`
	Link         string    `gorm:"column:link;size:1024;not null;default:''"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (ResumeItemRow) TableName() string { return "resume_items" }

func (r *ResumeItemRow) DocumentID() string      { return r.ID }
func (r *ResumeItemRow) SetDocumentID(id string) { r.ID = id }

// ProjectCardRow is the persisted form of a ProjectCard; nested lists are JSON text.
type ProjectCardRow struct {
	ID               string    `gorm:"column:id;primaryKey;size:190;not null"`
	SortOrder        int       `gorm:"column:sort_order;not null;default:0;index"`
	Title            string    `gorm:"column:title;size:320;not null"`
	Description      string    `gorm:"column:description;type:text;not null"`
	Featured         bool      `gorm:"column:featured;not null;default:false;index"`
	LinksJSON        string    `gorm:"column:links_json;type:text;not null;default:'[]'"`
	ImagesJSON       string    `gorm:"column:images_json;type:text;not null;default:'[]'"`
	TechBadgeIDsJSON string    `gorm:"column:tech_badge_ids_json;type:text;not null;default:'[]'"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (ProjectCardRow) TableName() string { return "project_cards" }

func (r *ProjectCardRow) DocumentID() string      { return r.ID }
func (r *ProjectCardRow) SetDocumentID(id string) { r.ID = id }

// CVFileRow is the singleton CV record, always stored under cvDocumentID.
type CVFileRow struct {
	ID          string    `gorm:"column:id;primaryKey;size:190;not null"`
	BlobID      string    `gorm:"column:blob_id;size:190;not null"`
	FileName    string    `gorm:"column:file_name;size:320;not null"`
	ContentType string    `gorm:"column:content_type;size:120;not null"`
	UploadedAt  time.Time `gorm:"column:uploaded_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (CVFileRow) TableName() string { return "cv_files" }

func (r *CVFileRow) DocumentID() string      { return r.ID }
func (r *CVFileRow) SetDocumentID(id string) { r.ID = id }

// ContactMessageRow is the persisted form of a ContactMessage.
type ContactMessageRow struct {
	ID         string    `gorm:"column:id;primaryKey;size:190;not null"`
	Name       string    `gorm:"column:name;size:320;not null"`
	Email      string    `gorm:"column:email;size:320;not null"`
	Message    string    `gorm:"column:message;type:text;not null"`
	ReceivedAt time.Time `gorm:"column:received_at;not null;index"`
}

// TableName provides the explicit table binding for GORM.
func (ContactMessageRow) TableName() string { return "contact_messages" }

func (r *ContactMessageRow) DocumentID() string      { return r.ID }
func (r *ContactMessageRow) SetDocumentID(id string) { r.ID = id }

// Models lists every content table for schema migration.
func Models() []any {
	return []any{&SkillRow{}, &TechBadgeRow{}, &ResumeItemRow{}, &ProjectCardRow{}, &CVFileRow{}, &ContactMessageRow{}}
}

// OrderedTables lists the tables whose sort_order column must stay dense.
func OrderedTables() []string {
	return []string{SkillRow{}.TableName(), TechBadgeRow{}.TableName(), ResumeItemRow{}.TableName(), ProjectCardRow{}.TableName()}
}

func skillFromRow(row SkillRow) *Skill {
	return &Skill{ID: row.ID, Order: row.SortOrder, Name: row.Name, Category: row.Category, IconURL: row.IconURL, IconBlobID: row.IconBlobID}
}

func skillFields(skill *Skill) map[string]any {
	return map[string]any{
		columnOrder:    skill.Order,
		columnName:     skill.Name,
		"category":     skill.Category,
		"icon_url":     skill.IconURL,
		"icon_blob_id": skill.IconBlobID,
	}
}

func badgeFromRow(row TechBadgeRow) *TechBadge {
	return &TechBadge{ID: row.ID, Order: row.SortOrder, Name: row.Name, IconURL: row.IconURL, IconBlobID: row.IconBlobID}
}

func badgeFields(badge *TechBadge) map[string]any {
	return map[string]any{
		columnOrder:    badge.Order,
		columnName:     badge.Name,
		"icon_url":     badge.IconURL,
		"icon_blob_id": badge.IconBlobID,
	}
}

func resumeFromRow(row ResumeItemRow) *ResumeItem {
	return &ResumeItem{
		ID:           row.ID,
		Order:        row.SortOrder,
		Title:        row.Title,
		Organization: row.Organization,
		DateText:     row.DateText,
		Description:  row.Description,
		Link:         row.Link,
	}
}

func resumeFields(item *ResumeItem) map[string]any {
	return map[string]any{
		columnOrder:    item.Order,
		"title":        item.Title,
		"organization": item.Organization,
		"date_text":    item.DateText,
		"description":  item.Description,
		"link":         item.Link,
	}
}

// projectFromRow decodes the nested JSON columns; malformed columns decode as empty lists.
func projectFromRow(row ProjectCardRow) *ProjectCard {
	project := &ProjectCard{
		ID:          row.ID,
		Order:       row.SortOrder,
		Title:       row.Title,
		Description: row.Description,
		Featured:    row.Featured,
	}
	_ = json.Unmarshal([]byte(row.LinksJSON), &project.Links)
	_ = json.Unmarshal([]byte(row.ImagesJSON), &project.Images)
	_ = json.Unmarshal([]byte(row.TechBadgeIDsJSON), &project.TechBadgeIDs)
	project.normalize()
	return project
}

func projectRow(project *ProjectCard) (ProjectCardRow, error) {
	fields, err := projectFields(project)
	if err != nil {
		return ProjectCardRow{}, err
	}
	return ProjectCardRow{
		ID:               project.ID,
		SortOrder:        project.Order,
		Title:            project.Title,
		Description:      project.Description,
		Featured:         project.Featured,
		LinksJSON:        fields["links_json"].(string),
		ImagesJSON:       fields["images_json"].(string),
		TechBadgeIDsJSON: fields["tech_badge_ids_json"].(string),
	}, nil
}

func projectFields(project *ProjectCard) (map[string]any, error) {
	normalized := project.Clone()
	links, err := json.Marshal(normalized.Links)
	if err != nil {
		return nil, err
	}
	images, err := json.Marshal(normalized.Images)
	if err != nil {
		return nil, err
	}
	badges, err := json.Marshal(normalized.TechBadgeIDs)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		columnOrder:           normalized.Order,
		"title":               normalized.Title,
		"description":         normalized.Description,
		columnFeatured:        normalized.Featured,
		"links_json":          string(links),
		"images_json":         string(images),
		"tech_badge_ids_json": string(badges),
	}, nil
}
