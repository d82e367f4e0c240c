package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/chrono"
	"github.com/timeline-exhibit-api/internal/media"
	"github.com/timeline-exhibit-api/internal/models"
	"github.com/timeline-exhibit-api/internal/normalize"
	"github.com/timeline-exhibit-api/internal/source"
	"github.com/timeline-exhibit-api/internal/spreadsheet"
	"github.com/timeline-exhibit-api/internal/validation"
)

var (
	// ErrSchema is returned when the spreadsheet headers are wrong
	ErrSchema = errors.New("spreadsheet headers rejected")
	// ErrSource is returned when the source cannot be read or decoded
	ErrSource = errors.New("source rejected")
)

// SpreadsheetSource is tabular input. Content is used as is when set or when
// Uploaded is true; otherwise Location is a URL or a file name in the upload
// directory.
type SpreadsheetSource struct {
	Location  string
	Content   []byte
	MediaType string
	// Uploaded marks Content as the whole source, even when empty
	Uploaded bool
}

// Source is the input of one ingestion pass: either slides typed by hand
// or a spreadsheet.
type Source struct {
	Drafts      []models.SlideDraft
	Spreadsheet *SpreadsheetSource
}

// Options tune one ingestion pass
type Options struct {
	// StartDateProperty names the resource property that dates slides
	// without a start date
	StartDateProperty string
}

// Result is the outcome of an ingestion pass. Errors holds the row errors,
// or the single batch error when Ingest also returns an error.
type Result struct {
	Slides    []models.Slide
	Errors    []models.ErrorRecord
	TotalRows int
	Dropped   int
}

// ingestService is the concrete implementation of IngestService
type ingestService struct {
	catalog    media.Catalog
	reader     *source.Reader
	validator  *validation.Validator
	normalizer *normalize.Normalizer
	log        zerolog.Logger
}

// NewIngestService wires the ingestion pipeline
func NewIngestService(catalog media.Catalog, reader *source.Reader, sanitizer normalize.Sanitizer, identifierProperty string, log zerolog.Logger) IngestService {
	resolver := media.NewResolver(catalog, identifierProperty)
	return &ingestService{
		catalog:    catalog,
		reader:     reader,
		validator:  validation.NewValidator(resolver),
		normalizer: normalize.NewNormalizer(resolver, sanitizer, log),
		log:        log.With().Str("service", "ingest").Logger(),
	}
}

type positionedDraft struct {
	index int
	draft models.SlideDraft
}

// Ingest runs one pass: read, parse, validate, normalize, drop empty slides
// and sort. Only an unusable source or wrong headers stop the pass.
func (s *ingestService) Ingest(ctx context.Context, src Source, opts Options) (*Result, error) {
	start := time.Now()
	result := &Result{}

	var drafts []positionedDraft
	origin := "manual"
	if src.Spreadsheet != nil {
		origin = "spreadsheet"
		rows, err := s.readTable(ctx, src.Spreadsheet)
		if err != nil {
			result.Errors = []models.ErrorRecord{batchError(err)}
			s.log.Warn().Err(err).Str("source", src.Spreadsheet.Location).Msg("Ingestion aborted")
			return result, err
		}
		result.TotalRows = len(rows)

		for _, row := range rows {
			draft, rowErrs := s.validator.ValidateRow(ctx, row)
			if len(rowErrs) > 0 {
				s.log.Debug().Int("row", row.Index).Int("errors", len(rowErrs)).Msg("Row skipped")
				result.Errors = append(result.Errors, rowErrs...)
				continue
			}
			drafts = append(drafts, positionedDraft{index: row.Index, draft: *draft})
		}
	} else {
		result.TotalRows = len(src.Drafts)
		for i, draft := range src.Drafts {
			drafts = append(drafts, positionedDraft{index: i + 1, draft: draft})
		}
	}

	hasTitle := false
	for _, d := range drafts {
		slide, errs := s.normalizer.Normalize(ctx, d.draft)
		for i := range errs {
			errs[i].Row = d.index
		}
		result.Errors = append(result.Errors, errs...)

		if !slide.HasContent() {
			result.Dropped++
			continue
		}
		if slide.Kind == models.SlideKindTitle {
			if hasTitle {
				result.Errors = append(result.Errors, models.ErrorRecord{
					Row:     d.index,
					Field:   "type",
					Message: "only one title slide is allowed",
					Value:   slide.HeadlineText(),
				})
				result.Dropped++
				continue
			}
			hasTitle = true
		}
		result.Slides = append(result.Slides, slide)
	}

	chrono.NewSorter(s.catalog, opts.StartDateProperty, s.log).Sort(ctx, result.Slides)

	s.log.Info().
		Str("source", origin).
		Int("rows", result.TotalRows).
		Int("slides", len(result.Slides)).
		Int("errors", len(result.Errors)).
		Int("dropped", result.Dropped).
		Dur("duration", time.Since(start)).
		Msg("Ingestion completed")

	return result, nil
}

func (s *ingestService) readTable(ctx context.Context, src *SpreadsheetSource) ([]spreadsheet.Row, error) {
	content := src.Content
	mediaType := src.MediaType
	if src.Uploaded && len(content) == 0 {
		return nil, fmt.Errorf("%w: %w: uploaded file", ErrSource, source.ErrEmpty)
	}
	if !src.Uploaded && len(content) == 0 {
		if s.reader == nil {
			return nil, fmt.Errorf("%w: %w", ErrSource, source.ErrNoBaseDir)
		}
		read, declared, err := s.reader.Read(ctx, src.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSource, err)
		}
		content = read
		if mediaType == "" {
			mediaType = declared
		}
	}

	cells, err := spreadsheet.Decode(content, mediaType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSource, err)
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrSource, source.ErrEmpty)
	}
	rows, err := spreadsheet.Table(cells)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return rows, nil
}

func batchError(err error) models.ErrorRecord {
	field := models.FieldSource
	if errors.Is(err, ErrSchema) {
		field = models.FieldSpreadsheet
	}
	rec := models.ErrorRecord{Field: field, Message: err.Error()}
	var schemaErr *spreadsheet.SchemaError
	if errors.As(err, &schemaErr) {
		if len(schemaErr.Duplicated) > 0 {
			rec.Value = schemaErr.Duplicated
		} else {
			rec.Value = schemaErr.Difference()
		}
	}
	return rec
}
