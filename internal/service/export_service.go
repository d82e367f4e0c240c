package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/models"
	"github.com/timeline-exhibit-api/internal/repository"
	"github.com/timeline-exhibit-api/internal/spreadsheet"
)

// Export formats
const (
	FormatJSON   = "json"
	FormatNDJSON = "ndjson"
	FormatCSV    = "csv"
	FormatXLSX   = "xlsx"
)

// ErrUnsupportedFormat is returned for unknown export formats
var ErrUnsupportedFormat = errors.New("unsupported format")

// exportService is the concrete implementation of ExportService
type exportService struct {
	repo repository.TimelineRepository
	log  zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repo repository.TimelineRepository, log zerolog.Logger) *exportService {
	return &exportService{
		repo: repo,
		log:  log.With().Str("service", "export").Logger(),
	}
}

// StreamSlides writes the stored slides of a timeline in the given format.
// The csv and xlsx layouts use the import template, so they can be edited
// and imported back.
func (s *exportService) StreamSlides(ctx context.Context, w http.ResponseWriter, timelineID, format string) error {
	s.log.Info().Str("timeline_id", timelineID).Str("format", format).Msg("Starting slides export")

	var count int
	var err error
	switch format {
	case FormatNDJSON:
		count, err = s.streamNDJSON(ctx, w, timelineID)
	case FormatJSON:
		count, err = s.streamJSON(ctx, w, timelineID)
	case FormatCSV:
		count, err = s.streamCSV(ctx, w, timelineID)
	case FormatXLSX:
		count, err = s.writeXLSX(ctx, w, timelineID)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	s.log.Info().Str("timeline_id", timelineID).Int("count", count).Msg("Slides export completed")
	return err
}

func attachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
}

func (s *exportService) streamNDJSON(ctx context.Context, w http.ResponseWriter, id string) (int, error) {
	attachment(w, "application/x-ndjson", "slides.ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0
	err := s.repo.StreamSlides(ctx, id, func(slide *models.Slide) error {
		data, err := json.Marshal(slide)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	return count, err
}

func (s *exportService) streamJSON(ctx context.Context, w http.ResponseWriter, id string) (int, error) {
	attachment(w, "application/json", "slides.json")

	w.Write([]byte("["))
	count := 0
	err := s.repo.StreamSlides(ctx, id, func(slide *models.Slide) error {
		if count > 0 {
			w.Write([]byte(","))
		}
		count++

		data, err := json.Marshal(slide)
		if err != nil {
			return err
		}
		w.Write(data)
		return nil
	})
	w.Write([]byte("]"))
	return count, err
}

func (s *exportService) streamCSV(ctx context.Context, w http.ResponseWriter, id string) (int, error) {
	attachment(w, "text/csv", "slides.csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(spreadsheet.Columns); err != nil {
		return 0, err
	}
	count := 0
	err := s.repo.StreamSlides(ctx, id, func(slide *models.Slide) error {
		count++
		return writer.Write(spreadsheet.SlideRow(*slide))
	})
	return count, err
}

// writeXLSX buffers the slides since a workbook is written in one piece
func (s *exportService) writeXLSX(ctx context.Context, w http.ResponseWriter, id string) (int, error) {
	var slides []models.Slide
	err := s.repo.StreamSlides(ctx, id, func(slide *models.Slide) error {
		slides = append(slides, *slide)
		return nil
	})
	if err != nil {
		return 0, err
	}
	attachment(w, spreadsheet.MediaTypeXLSX, "slides.xlsx")
	return len(slides), spreadsheet.WriteXLSX(w, slides)
}
