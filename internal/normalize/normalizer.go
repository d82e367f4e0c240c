// Package normalize turns slide drafts into canonical slides.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/datetoken"
	"github.com/timeline-exhibit-api/internal/media"
	"github.com/timeline-exhibit-api/internal/models"
)

var endOfLine = strings.NewReplacer("\r\n", "\n", "\n\r", "\n", "\r", "\n")

// Normalizer applies the same cleanup to manual and imported drafts
type Normalizer struct {
	resolver  *media.Resolver
	sanitizer Sanitizer
	log       zerolog.Logger
}

// NewNormalizer creates a normalizer
func NewNormalizer(resolver *media.Resolver, sanitizer Sanitizer, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		resolver:  resolver,
		sanitizer: sanitizer,
		log:       log.With().Str("component", "normalizer").Logger(),
	}
}

// Normalize builds a slide from a draft. Unusable dates and types are reported
// and left out; unresolvable manual references become no reference. The
// caller drops the slide when it has no content.
func (n *Normalizer) Normalize(ctx context.Context, draft models.SlideDraft) (models.Slide, []models.ErrorRecord) {
	var errs []models.ErrorRecord
	slide := models.Slide{Kind: models.SlideKindEvent}

	if kind := models.SlideKind(strings.TrimSpace(draft.Type)); kind != "" {
		if models.ValidSlideKinds[kind] {
			slide.Kind = kind
		} else {
			errs = append(errs, models.ErrorRecord{
				Field:   "type",
				Message: fmt.Sprintf("the Type %q is unmanaged", kind),
				Value:   string(kind),
			})
		}
	}

	var err error
	if slide.Start, err = datetoken.Parse(draft.StartDate); err != nil {
		errs = append(errs, models.ErrorRecord{Field: "start_date", Message: err.Error(), Value: draft.StartDate})
	}
	if slide.End, err = datetoken.Parse(draft.EndDate); err != nil {
		errs = append(errs, models.ErrorRecord{Field: "end_date", Message: err.Error(), Value: draft.EndDate})
	}

	slide.DisplayDateStart = optional(draft.StartDisplayDate)
	slide.DisplayDateEnd = optional(draft.EndDisplayDate)
	slide.Headline = optional(draft.Headline)
	slide.Group = optional(draft.Group)
	slide.BodyHTML = n.purify(draft.HTML)
	slide.Caption = n.purify(draft.Caption)
	slide.Credit = n.purify(draft.Credit)

	if draft.Media != nil {
		slide.Media = *draft.Media
	} else {
		slide.Media = n.manualMedia(ctx, draft)
	}
	if draft.Background != nil {
		slide.Background = *draft.Background
	} else {
		slide.Background = n.manualBackground(ctx, draft)
	}

	return slide, errs
}

// FixEndOfLine rewrites every line ending variant to a single \n
func FixEndOfLine(s string) string {
	return endOfLine.Replace(s)
}

func (n *Normalizer) purify(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	// The HTML tokenizer turns a lone \r into \n, so endings are fixed first
	s = FixEndOfLine(s)
	if n.sanitizer != nil {
		s = n.sanitizer.Sanitize(s)
	}
	return optional(FixEndOfLine(s))
}

// manualMedia reads the form fields: an id in the resource or asset field is
// trusted as typed, the external field goes through the resolver.
func (n *Normalizer) manualMedia(ctx context.Context, draft models.SlideDraft) models.Reference {
	if id, ok := media.ParseID(draft.Resource); ok {
		return models.ResourceRef(id)
	}
	if id, ok := parseAssetID(draft.Asset); ok {
		return models.AssetRef(id)
	}
	external := strings.TrimSpace(draft.External)
	if external == "" {
		return models.Reference{}
	}
	ref, err := n.resolver.Resolve(ctx, external)
	if err != nil {
		n.absorb(err, "media", external)
		return models.Reference{}
	}
	return ref
}

func (n *Normalizer) manualBackground(ctx context.Context, draft models.SlideDraft) models.Reference {
	if id, ok := media.ParseID(draft.BackgroundResource); ok {
		return models.ResourceRef(id)
	}
	if id, ok := parseAssetID(draft.BackgroundAsset); ok {
		return models.AssetRef(id)
	}
	if external := strings.TrimSpace(draft.BackgroundExternal); external != "" {
		ref, err := n.resolver.ResolveBackground(ctx, external)
		if err != nil {
			n.absorb(err, "background", external)
		} else if !ref.IsNone() {
			return ref
		}
	}
	if color := strings.TrimSpace(draft.BackgroundColor); color != "" {
		return models.ColorRef(color)
	}
	return models.Reference{}
}

func (n *Normalizer) absorb(err error, field, value string) {
	event := n.log.Warn()
	if !errors.Is(err, media.ErrNotFound) {
		event = n.log.Error()
	}
	event.Err(err).Str("field", field).Str("value", value).Msg("Reference dropped")
}

func parseAssetID(raw string) (int64, bool) {
	return media.ParseID(strings.TrimPrefix(strings.TrimSpace(raw), "asset/"))
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
