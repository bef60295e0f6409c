package domain

import (
	"strings"
	"time"
)

var UpdateTypes = []string{"Mission", "Discovery", "Maintenance", "General"}

var UpdateSeverities = []string{"Low", "Medium", "High", "Critical"}

// Update 任务动态（updates 集合）
type Update struct {
	ID                string     `json:"_id"`
	Title             string     `json:"title"`
	Content           string     `json:"content"`
	Type              string     `json:"type"`
	Severity          string     `json:"severity"`
	RelatedInstrument string     `json:"relatedInstrument,omitempty"`
	Date              *time.Time `json:"date,omitempty"`
	SchemaVersion     int        `json:"schemaVersion"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (u *Update) Normalize(now time.Time) {
	u.Title = strings.TrimSpace(u.Title)
	u.RelatedInstrument = strings.TrimSpace(u.RelatedInstrument)
	if u.Severity == "" {
		u.Severity = "Low"
	}
	if u.Date == nil {
		t := now
		u.Date = &t
	}
}

func (u *Update) Validate() error {
	var v validator
	v.required("title", u.Title, "Path `title` is required.")
	v.required("content", u.Content, "Path `content` is required.")
	v.required("type", u.Type, "Path `type` is required.")
	v.enum("type", u.Type, UpdateTypes)
	v.enum("severity", u.Severity, UpdateSeverities)
	return v.err()
}

func (u *Update) DocumentID() string { return u.ID }

func (u *Update) KeepSystemFields(prev *Update) {
	u.ID = prev.ID
	u.CreatedAt = prev.CreatedAt
}
