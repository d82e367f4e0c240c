package repository

import (
	"context"

	"github.com/timeline-exhibit-api/internal/database"
	"github.com/timeline-exhibit-api/internal/models"
)

// TimelineRepository defines the interface for timeline data operations
type TimelineRepository interface {
	Create(ctx context.Context, timeline *models.Timeline) error
	GetByID(ctx context.Context, id string) (*models.Timeline, error)
	List(ctx context.Context, limit, offset int) ([]*models.Timeline, error)
	Delete(ctx context.Context, id string) (bool, error)
	ReplaceSlides(ctx context.Context, id string, slides []models.Slide, fullText string) (bool, error)
	Count(ctx context.Context) (int, error)
	StreamSlides(ctx context.Context, id string, callback func(*models.Slide) error) error
}

// JobRepository defines the interface for import job data operations
type JobRepository interface {
	Create(ctx context.Context, job *models.ImportJob) error
	Update(ctx context.Context, job *models.ImportJob) error
	GetByID(ctx context.Context, id string) (*models.ImportJob, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error)
	GetPendingJobs(ctx context.Context) ([]*models.ImportJob, error)
	MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error)
	AddErrors(ctx context.Context, jobID string, errors []models.ErrorRecord) error
	GetErrors(ctx context.Context, jobID string, limit int) ([]models.ErrorRecord, error)
	CountByStatus(ctx context.Context) (map[models.JobStatus]int, error)
}

// CatalogRepository reads the resources and assets slides point at. Lookups
// return nil, nil when nothing matches.
type CatalogRepository interface {
	GetResource(ctx context.Context, id int64) (*models.Resource, error)
	GetAsset(ctx context.Context, id int64) (*models.Asset, error)
	FindByProperty(ctx context.Context, property, value string) ([]*models.Resource, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Timeline TimelineRepository
	Job      JobRepository
	Catalog  CatalogRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Timeline: NewTimelineRepo(db),
		Job:      NewJobRepo(db),
		Catalog:  NewCatalogRepo(db),
	}
}
