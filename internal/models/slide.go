package models

import (
	"github.com/timeline-exhibit-api/internal/datetoken"
)

// SlideKind is the role of a slide in the timeline
type SlideKind string

const (
	SlideKindEvent SlideKind = "event"
	SlideKindEra   SlideKind = "era"
	SlideKindTitle SlideKind = "title"
)

// ValidSlideKinds defines accepted slide kinds
var ValidSlideKinds = map[SlideKind]bool{
	SlideKindEvent: true,
	SlideKindEra:   true,
	SlideKindTitle: true,
}

// ReferenceKind tells which variant a Reference holds
type ReferenceKind string

const (
	ReferenceNone     ReferenceKind = ""
	ReferenceResource ReferenceKind = "resource"
	ReferenceAsset    ReferenceKind = "asset"
	ReferenceExternal ReferenceKind = "external"
	ReferenceColor    ReferenceKind = "color"
)

// Reference points at the media or background of a slide. Resource and asset
// variants carry ID, external and color variants carry Value.
type Reference struct {
	Kind  ReferenceKind `json:"kind"`
	ID    int64         `json:"id,omitempty"`
	Value string        `json:"value,omitempty"`
}

// ResourceRef builds a resource reference
func ResourceRef(id int64) Reference { return Reference{Kind: ReferenceResource, ID: id} }

// AssetRef builds an asset reference
func AssetRef(id int64) Reference { return Reference{Kind: ReferenceAsset, ID: id} }

// ExternalRef builds an external reference (URL or opaque string)
func ExternalRef(v string) Reference { return Reference{Kind: ReferenceExternal, Value: v} }

// ColorRef builds a background color reference
func ColorRef(v string) Reference { return Reference{Kind: ReferenceColor, Value: v} }

// IsNone reports whether the reference points at nothing
func (r Reference) IsNone() bool { return r.Kind == ReferenceNone }

// Slide is one normalized entry of a timeline. Optional text fields are nil
// when unset.
type Slide struct {
	Kind             SlideKind       `json:"type"`
	Start            datetoken.Token `json:"start_date"`
	End              datetoken.Token `json:"end_date"`
	DisplayDateStart *string         `json:"start_display_date"`
	DisplayDateEnd   *string         `json:"end_display_date"`
	Headline         *string         `json:"headline"`
	BodyHTML         *string         `json:"html"`
	Caption          *string         `json:"caption"`
	Credit           *string         `json:"credit"`
	Media            Reference       `json:"media"`
	Background       Reference       `json:"background"`
	Group            *string         `json:"group"`
}

// HasContent reports whether any retained field is set. Kind and group alone
// do not keep a slide.
func (s *Slide) HasContent() bool {
	return s.Headline != nil ||
		s.BodyHTML != nil ||
		s.Caption != nil ||
		s.Credit != nil ||
		!s.Media.IsNone() ||
		!s.Background.IsNone() ||
		!s.Start.IsZero() ||
		!s.End.IsZero() ||
		s.DisplayDateStart != nil
}

// HeadlineText returns the headline or an empty string
func (s *Slide) HeadlineText() string {
	if s.Headline == nil {
		return ""
	}
	return *s.Headline
}

// SlideDraft is a slide before normalization, either typed in by an editor or
// built from a spreadsheet row. Reference fields hold raw values; the
// spreadsheet path sets Media and Background directly once resolved.
type SlideDraft struct {
	Type             string `json:"type"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	StartDisplayDate string `json:"start_display_date"`
	EndDisplayDate   string `json:"end_display_date"`
	Headline         string `json:"headline"`
	HTML             string `json:"html"`
	Caption          string `json:"caption"`
	Credit           string `json:"credit"`
	Group            string `json:"group"`

	// One of the three is used, in this order
	Resource string `json:"resource"`
	Asset    string `json:"asset"`
	External string `json:"external"`

	BackgroundResource string `json:"background_resource"`
	BackgroundAsset    string `json:"background_asset"`
	BackgroundExternal string `json:"background_external"`
	BackgroundColor    string `json:"background_color"`

	Media      *Reference `json:"-"`
	Background *Reference `json:"-"`
}
