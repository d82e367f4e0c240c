package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/config"
	"github.com/timeline-exhibit-api/internal/models"
	"github.com/timeline-exhibit-api/internal/repository"
)

// timelineService is the concrete implementation of TimelineService
type timelineService struct {
	repo   repository.TimelineRepository
	ingest IngestService
	cfg    *config.Config
	log    zerolog.Logger
}

// newTimelineService creates a new TimelineService
func newTimelineService(repo repository.TimelineRepository, ingest IngestService, cfg *config.Config, log zerolog.Logger) *timelineService {
	return &timelineService{
		repo:   repo,
		ingest: ingest,
		cfg:    cfg,
		log:    log.With().Str("service", "timeline").Logger(),
	}
}

// Create stores an empty timeline
func (s *timelineService) Create(ctx context.Context, req *models.TimelineRequest) (*models.Timeline, error) {
	now := time.Now()
	t := &models.Timeline{
		ID:                uuid.New().String(),
		Title:             strings.TrimSpace(req.Title),
		Scale:             models.NormalizeScale(req.Scale),
		StartDateProperty: strings.TrimSpace(req.StartDateProperty),
		Slides:            []models.Slide{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.log.Info().Str("timeline_id", t.ID).Str("scale", string(t.Scale)).Msg("Timeline created")
	return t, nil
}

// Get returns a timeline, nil when unknown
func (s *timelineService) Get(ctx context.Context, id string) (*models.Timeline, error) {
	if !isUUID(id) {
		return nil, nil
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil || t == nil {
		return nil, err
	}
	t.SlideCount = len(t.Slides)
	return t, nil
}

// List returns a page of timelines without slides
func (s *timelineService) List(ctx context.Context, limit, offset int) ([]*models.Timeline, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Delete removes a timeline, false when unknown
func (s *timelineService) Delete(ctx context.Context, id string) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err == nil && deleted {
		s.log.Info().Str("timeline_id", id).Msg("Timeline deleted")
	}
	return deleted, err
}

// ReplaceSlides normalizes slides typed by hand and stores them in place of
// the current list. Nil means the timeline is unknown.
func (s *timelineService) ReplaceSlides(ctx context.Context, id string, drafts []models.SlideDraft) (*models.SlidesResponse, error) {
	t, err := s.Get(ctx, id)
	if err != nil || t == nil {
		return nil, err
	}

	result, err := s.ingest.Ingest(ctx, Source{Drafts: drafts}, s.options(t))
	if err != nil {
		return nil, err
	}
	if err := s.Save(ctx, t.ID, result.Slides); err != nil {
		return nil, err
	}
	return slidesResponse(t.ID, result), nil
}

// Preview ingests a spreadsheet for a timeline without saving it. The
// response carries the batch error when err is ErrSchema or ErrSource.
func (s *timelineService) Preview(ctx context.Context, id string, src SpreadsheetSource) (*models.SlidesResponse, error) {
	t, err := s.Get(ctx, id)
	if err != nil || t == nil {
		return nil, err
	}
	result, err := s.ingest.Ingest(ctx, Source{Spreadsheet: &src}, s.options(t))
	return slidesResponse(t.ID, result), err
}

// Save replaces the slides of a timeline and rebuilds its search text
func (s *timelineService) Save(ctx context.Context, id string, slides []models.Slide) error {
	if slides == nil {
		slides = []models.Slide{}
	}
	found, err := s.repo.ReplaceSlides(ctx, id, slides, models.BuildFullText(slides))
	if err != nil {
		return err
	}
	if !found {
		return ErrTimelineNotFound
	}
	s.log.Info().Str("timeline_id", id).Int("slides", len(slides)).Msg("Slides replaced")
	return nil
}

// Count returns the number of timelines
func (s *timelineService) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Options returns the ingestion options of a timeline
func (s *timelineService) Options(t *models.Timeline) Options {
	return s.options(t)
}

func (s *timelineService) options(t *models.Timeline) Options {
	property := t.StartDateProperty
	if property == "" {
		property = s.cfg.Timeline.StartDateProperty
	}
	return Options{StartDateProperty: property}
}

func slidesResponse(id string, result *Result) *models.SlidesResponse {
	resp := &models.SlidesResponse{TimelineID: id, Slides: []models.Slide{}}
	if result == nil {
		return resp
	}
	if result.Slides != nil {
		resp.Slides = result.Slides
	}
	resp.Errors = result.Errors
	resp.ErrorCount = len(result.Errors)
	return resp
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
