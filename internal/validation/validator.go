package validation

import (
	"context"
	"errors"
	"fmt"

	"github.com/timeline-exhibit-api/internal/datetoken"
	"github.com/timeline-exhibit-api/internal/media"
	"github.com/timeline-exhibit-api/internal/models"
	"github.com/timeline-exhibit-api/internal/spreadsheet"
)

// dateColumns maps the fields named by datetoken errors to spreadsheet columns
type dateColumns struct {
	label                  string
	year, month, day, time string
}

var (
	startColumns = dateColumns{label: "", year: spreadsheet.ColYear, month: spreadsheet.ColMonth, day: spreadsheet.ColDay, time: spreadsheet.ColTime}
	endColumns   = dateColumns{label: "end ", year: spreadsheet.ColEndYear, month: spreadsheet.ColEndMonth, day: spreadsheet.ColEndDay, time: spreadsheet.ColEndTime}
)

func (c dateColumns) column(field string) string {
	switch field {
	case "year":
		return c.year
	case "month":
		return c.month
	case "day":
		return c.day
	default:
		return c.time
	}
}

// Validator turns spreadsheet rows into slide drafts
type Validator struct {
	resolver *media.Resolver
}

// NewValidator creates a new validator instance
func NewValidator(resolver *media.Resolver) *Validator {
	return &Validator{resolver: resolver}
}

// ValidateRow builds the draft of one row. Every problem of the row is
// reported; the draft is nil as soon as one was found.
func (v *Validator) ValidateRow(ctx context.Context, row spreadsheet.Row) (*models.SlideDraft, []models.ErrorRecord) {
	var errs []models.ErrorRecord
	fail := func(field, message, value string) {
		rec := models.ErrorRecord{Row: row.Index, Field: field, Message: message}
		if value != "" {
			rec.Value = value
		}
		errs = append(errs, rec)
	}

	// Media
	rawMedia := row.Get(spreadsheet.ColMedia)
	mediaRef, err := v.resolver.Resolve(ctx, rawMedia)
	if err != nil {
		fail(spreadsheet.ColMedia, referenceMessage(spreadsheet.ColMedia, err), rawMedia)
	} else if mediaRef.IsNone() && rawMedia != "" {
		fail(spreadsheet.ColMedia, "invalid Media", rawMedia)
	}

	// Type
	kind := models.SlideKind(row.Get(spreadsheet.ColType))
	if kind == "" {
		kind = models.SlideKindEvent
	} else if !models.ValidSlideKinds[kind] {
		fail(spreadsheet.ColType, fmt.Sprintf("the Type %q is unmanaged", kind), string(kind))
	}

	// Dates
	start, err := composeDate(row, startColumns)
	if err != nil {
		field, message, value := describeDateError(err, startColumns)
		fail(field, message, value)
	}
	end, err := composeDate(row, endColumns)
	if err != nil {
		field, message, value := describeDateError(err, endColumns)
		fail(field, message, value)
	}

	if row.Get(spreadsheet.ColYear) == "" && kind != models.SlideKindTitle {
		fail(spreadsheet.ColYear, "the Year is required unless the Type is title", "")
	}
	if kind == models.SlideKindEra && (row.Get(spreadsheet.ColYear) == "" || row.Get(spreadsheet.ColEndYear) == "") {
		fail(spreadsheet.ColType, "era requires start and end date", "")
	}

	// Background
	rawBackground := row.Get(spreadsheet.ColBackground)
	background, err := v.resolver.ResolveBackground(ctx, rawBackground)
	if err != nil {
		fail(spreadsheet.ColBackground, referenceMessage(spreadsheet.ColBackground, err), rawBackground)
	} else if background.IsNone() && rawBackground != "" {
		fail(spreadsheet.ColBackground, "invalid Background", rawBackground)
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &models.SlideDraft{
		Type:             string(kind),
		StartDate:        start.String(),
		EndDate:          end.String(),
		StartDisplayDate: row.Get(spreadsheet.ColDisplayDate),
		Headline:         row.Get(spreadsheet.ColHeadline),
		HTML:             row.Get(spreadsheet.ColText),
		Caption:          row.Get(spreadsheet.ColMediaCaption),
		Credit:           row.Get(spreadsheet.ColMediaCredit),
		Group:            row.Get(spreadsheet.ColGroup),
		Media:            &mediaRef,
		Background:       &background,
	}, nil
}

func composeDate(row spreadsheet.Row, cols dateColumns) (datetoken.Token, error) {
	return datetoken.Compose(row.Get(cols.year), row.Get(cols.month), row.Get(cols.day), row.Get(cols.time))
}

func describeDateError(err error, cols dateColumns) (field, message, value string) {
	var hierarchy *datetoken.HierarchyError
	if errors.As(err, &hierarchy) {
		return cols.column(hierarchy.Field),
			fmt.Sprintf("the %s%s is set, but the %s%s is empty", cols.label, hierarchy.Field, cols.label, hierarchy.Parent),
			hierarchy.Value
	}
	var component *datetoken.ComponentError
	if errors.As(err, &component) {
		return cols.column(component.Field),
			fmt.Sprintf("the %s%s is invalid", cols.label, component.Field),
			component.Value
	}
	return cols.year, err.Error(), ""
}

func referenceMessage(column string, err error) string {
	if errors.Is(err, media.ErrNotFound) {
		return fmt.Sprintf("invalid %s: %v", column, err)
	}
	return fmt.Sprintf("invalid %s: lookup failed: %v", column, err)
}
