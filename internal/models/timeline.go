package models

import (
	"strings"
	"time"
)

// Scale decides how the viewer lays out years
type Scale string

const (
	ScaleHuman        Scale = "human"
	ScaleCosmological Scale = "cosmological"
)

// NormalizeScale keeps cosmological and maps anything else to human
func NormalizeScale(s string) Scale {
	if Scale(s) == ScaleCosmological {
		return ScaleCosmological
	}
	return ScaleHuman
}

// Timeline is an exhibit: ordered slides plus display settings
type Timeline struct {
	ID                string    `json:"id" db:"id"`
	Title             string    `json:"title" db:"title"`
	Scale             Scale     `json:"scale" db:"scale"`
	StartDateProperty string    `json:"start_date_property,omitempty" db:"start_date_property"`
	Slides            []Slide   `json:"slides,omitempty" db:"-"`
	SlideCount        int       `json:"slide_count" db:"-"`
	SlidesJSON        []byte    `json:"-" db:"slides"`
	FullText          string    `json:"-" db:"fulltext"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// TimelineRequest is the body accepted when creating a timeline
type TimelineRequest struct {
	Title             string `json:"title" binding:"required"`
	Scale             string `json:"scale"`
	StartDateProperty string `json:"start_date_property"`
}

// SlidesRequest is the body accepted when replacing slides by hand
type SlidesRequest struct {
	Slides []SlideDraft `json:"slides"`
}

// SlidesResponse returns an ingestion outcome
type SlidesResponse struct {
	TimelineID string        `json:"timeline_id,omitempty"`
	Slides     []Slide       `json:"slides"`
	Errors     []ErrorRecord `json:"errors,omitempty"`
	ErrorCount int           `json:"error_count"`
}

// BuildFullText concatenates the searchable text of all slides
func BuildFullText(slides []Slide) string {
	var b strings.Builder
	for i := range slides {
		s := &slides[i]
		for _, part := range []string{
			s.Start.String(),
			deref(s.DisplayDateStart),
			s.End.String(),
			deref(s.DisplayDateEnd),
			deref(s.Headline),
			deref(s.BodyHTML),
			deref(s.Caption),
			deref(s.Credit),
		} {
			if part == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(part)
		}
	}
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
