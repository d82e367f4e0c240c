// Package chrono orders slides for display.
package chrono

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/datetoken"
	"github.com/timeline-exhibit-api/internal/media"
	"github.com/timeline-exhibit-api/internal/models"
)

// Sorter orders slides chronologically. When startDateProperty is set, a
// slide without a start date borrows the value of that property from the
// resource it shows.
type Sorter struct {
	catalog           media.Catalog
	startDateProperty string
	log               zerolog.Logger
}

// NewSorter creates a sorter
func NewSorter(catalog media.Catalog, startDateProperty string, log zerolog.Logger) *Sorter {
	return &Sorter{
		catalog:           catalog,
		startDateProperty: startDateProperty,
		log:               log.With().Str("component", "chrono").Logger(),
	}
}

type entry struct {
	slide models.Slide
	date  string
}

// Sort orders slides in place. Slides that compare equal keep their input order.
func (s *Sorter) Sort(ctx context.Context, slides []models.Slide) {
	entries := make([]entry, len(slides))
	cache := make(map[int64]string)
	for i, slide := range slides {
		entries[i] = entry{slide: slide, date: s.effectiveDate(ctx, slide, cache)}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return compare(entries[i], entries[j]) < 0
	})

	for i := range entries {
		slides[i] = entries[i].slide
	}
}

// EffectiveDate returns the date a slide is ordered by, empty when unknown
func (s *Sorter) EffectiveDate(ctx context.Context, slide models.Slide) string {
	return s.effectiveDate(ctx, slide, nil)
}

func (s *Sorter) effectiveDate(ctx context.Context, slide models.Slide, cache map[int64]string) string {
	if !slide.Start.IsZero() {
		return slide.Start.String()
	}
	if s.startDateProperty == "" || slide.Media.Kind != models.ReferenceResource || s.catalog == nil {
		return ""
	}
	if date, ok := cache[slide.Media.ID]; ok {
		return date
	}

	var date string
	res, err := s.catalog.GetResource(ctx, slide.Media.ID)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Int64("resource_id", slide.Media.ID).Msg("Start date lookup failed")
	case res == nil:
		s.log.Warn().Int64("resource_id", slide.Media.ID).Msg("Start date resource not found")
	default:
		if v, ok := res.PropertyValue(s.startDateProperty); ok {
			date = strings.TrimSpace(v)
		}
	}
	if cache != nil {
		cache[slide.Media.ID] = date
	}
	return date
}

// compare returns a negative number when a goes before b
func compare(a, b entry) int {
	aTitle := a.slide.Kind == models.SlideKindTitle
	bTitle := b.slide.Kind == models.SlideKindTitle
	if aTitle != bTitle {
		if aTitle {
			return 1
		}
		return -1
	}

	if a.slide.Kind != b.slide.Kind {
		if a.slide.Kind == models.SlideKindEvent {
			return -1
		}
		if b.slide.Kind == models.SlideKindEvent {
			return 1
		}
	}

	// Unknown dates go first
	switch {
	case a.date == "" && b.date == "":
		return compareHeadlines(a, b)
	case a.date == "":
		return -1
	case b.date == "":
		return 1
	}

	if a.date == b.date {
		return compareHeadlines(a, b)
	}
	return datetoken.Compare(a.date, b.date)
}

func compareHeadlines(a, b entry) int {
	return strings.Compare(a.slide.HeadlineText(), b.slide.HeadlineText())
}
