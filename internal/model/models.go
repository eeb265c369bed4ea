package model

import (
	"encoding/json"
	"time"
)

// SectionDocument is the single persistent entity: one document per content
// section, keyed by the lowercase section name. The payload is stored as raw
// JSON; shape checks happen at the write boundary, not here.
type SectionDocument struct {
	ID              string          `gorm:"primaryKey;size:36"`
	Section         string          `gorm:"uniqueIndex;not null;size:100"`
	HeadingTitle    string          `gorm:"size:300"`
	HeadingSubtitle string          `gorm:"size:500"`
	Data            json.RawMessage `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt       time.Time       `gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime"`
}

// SectionHeading is the display heading shown above a section.
type SectionHeading struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// Heading assembles the heading columns into their wire shape.
func (document SectionDocument) Heading() SectionHeading {
	return SectionHeading{
		Title:    document.HeadingTitle,
		Subtitle: document.HeadingSubtitle,
	}
}

// MarshalJSON renders the document with its nested heading, the shape the
// API surface and templates consume.
func (document SectionDocument) MarshalJSON() ([]byte, error) {
	type wireDocument struct {
		ID        string          `json:"id"`
		Section   string          `json:"section"`
		Heading   SectionHeading  `json:"heading"`
		Data      json.RawMessage `json:"data"`
		CreatedAt time.Time       `json:"createdAt"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}
	payload := document.Data
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return json.Marshal(wireDocument{
		ID:        document.ID,
		Section:   document.Section,
		Heading:   document.Heading(),
		Data:      payload,
		CreatedAt: document.CreatedAt,
		UpdatedAt: document.UpdatedAt,
	})
}
