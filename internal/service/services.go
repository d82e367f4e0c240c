package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/config"
	"github.com/timeline-exhibit-api/internal/models"
	"github.com/timeline-exhibit-api/internal/normalize"
	"github.com/timeline-exhibit-api/internal/repository"
	"github.com/timeline-exhibit-api/internal/source"
)

// ErrTimelineNotFound is returned when a timeline vanished during an operation
var ErrTimelineNotFound = errors.New("timeline not found")

// IngestService turns a source into ordered slides
type IngestService interface {
	Ingest(ctx context.Context, src Source, opts Options) (*Result, error)
}

// TimelineService defines the interface for timeline operations
type TimelineService interface {
	Create(ctx context.Context, req *models.TimelineRequest) (*models.Timeline, error)
	Get(ctx context.Context, id string) (*models.Timeline, error)
	List(ctx context.Context, limit, offset int) ([]*models.Timeline, error)
	Delete(ctx context.Context, id string) (bool, error)
	ReplaceSlides(ctx context.Context, id string, drafts []models.SlideDraft) (*models.SlidesResponse, error)
	Preview(ctx context.Context, id string, src SpreadsheetSource) (*models.SlidesResponse, error)
	Save(ctx context.Context, id string, slides []models.Slide) error
	Options(t *models.Timeline) Options
	Count(ctx context.Context) (int, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamSlides(ctx context.Context, w http.ResponseWriter, timelineID, format string) error
}

// JobService defines the interface for import job management
type JobService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	CreateImportJob(ctx context.Context, req *models.ImportRequest) (*models.ImportJob, error)
	GetJob(ctx context.Context, id string) (*models.JobResponse, error)
	GetJobByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error)
	GetJobErrors(ctx context.Context, id string) ([]models.ErrorRecord, error)
	CountByStatus(ctx context.Context) (map[models.JobStatus]int, error)
}

// Services holds all service interfaces
type Services struct {
	Ingest   IngestService
	Timeline TimelineService
	Export   ExportService
	Job      JobService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *Services {
	reader := source.NewReader(cfg.Import.UploadDir, cfg.Import.MaxUploadSize, cfg.Import.FetchTimeout)
	ingestSvc := NewIngestService(repos.Catalog, reader, normalize.NewHTMLSanitizer(), cfg.Timeline.IdentifierProperty, log)
	timelineSvc := newTimelineService(repos.Timeline, ingestSvc, cfg, log)
	jobSvc := newJobService(repos.Job, timelineSvc, ingestSvc, cfg.Import, log)
	exportSvc := newExportService(repos.Timeline, log)

	return &Services{
		Ingest:   ingestSvc,
		Timeline: timelineSvc,
		Export:   exportSvc,
		Job:      jobSvc,
	}
}
