package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/config"
	"github.com/timeline-exhibit-api/internal/models"
	"github.com/timeline-exhibit-api/internal/repository"
)

// maxListedErrors caps the errors embedded in a job status response
const maxListedErrors = 100

// jobService is the concrete implementation of JobService
type jobService struct {
	jobRepo   repository.JobRepository
	timelines TimelineService
	ingest    IngestService
	interval  time.Duration
	log       zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
	// sem bounds the number of imports running at once
	sem chan struct{}
}

// newJobService creates a JobService whose pool runs cfg.Workers imports at once
func newJobService(jobRepo repository.JobRepository, timelines TimelineService, ingest IngestService, cfg config.ImportConfig, log zerolog.Logger) *jobService {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	log.Info().Int("max_workers", workers).Dur("poll_interval", interval).Msg("Initializing import worker pool")

	return &jobService{
		jobRepo:   jobRepo,
		timelines: timelines,
		ingest:    ingest,
		interval:  interval,
		log:       log.With().Str("service", "job").Logger(),
		ctx:       context.Background(),
		sem:       make(chan struct{}, workers),
	}
}

// CreateImportJob queues a spreadsheet import for a timeline. Nil means the
// timeline is unknown.
func (s *jobService) CreateImportJob(ctx context.Context, req *models.ImportRequest) (*models.ImportJob, error) {
	t, err := s.timelines.Get(ctx, req.TimelineID)
	if err != nil || t == nil {
		return nil, err
	}

	job := &models.ImportJob{
		ID:             uuid.New().String(),
		TimelineID:     t.ID,
		Status:         models.JobStatusPending,
		Source:         strings.TrimSpace(req.Source),
		MediaType:      req.MediaType,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("timeline_id", job.TimelineID).
		Str("source", job.Source).
		Msg("Import job created")

	return job, nil
}

// StartProcessor polls for pending jobs until ctx is done or StopProcessor
// is called
func (s *jobService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.log.Info().Msg("Job processor started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Job processor stopping")
			return
		case <-ticker.C:
			s.processPendingJobs()
		}
	}
}

// StopProcessor stops polling and waits for running imports
func (s *jobService) StopProcessor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Job processor stopped")
}

// processPendingJobs claims pending jobs and runs each in the pool
func (s *jobService) processPendingJobs() {
	jobs, err := s.jobRepo.GetPendingJobs(s.ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get pending jobs")
		return
	}

	for _, job := range jobs {
		// Blocks while every worker is busy
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}

		marked, err := s.jobRepo.MarkJobAsProcessing(s.ctx, job.ID)
		if err != nil || !marked {
			<-s.sem
			continue // claimed by another instance
		}

		s.wg.Add(1)
		go func(j *models.ImportJob) {
			defer s.wg.Done()
			defer func() { <-s.sem }()

			defer func() {
				if r := recover(); r != nil {
					s.log.Error().
						Interface("panic", r).
						Str("job_id", j.ID).
						Msg("Import panicked - recovered")
					s.fail(j, time.Now(), fmt.Errorf("import panicked: %v", r))
				}
			}()
			s.processJob(s.ctx, j)
		}(job)
	}
}

// processJob ingests the job source and replaces the timeline slides. Row
// errors are stored with the job; the job fails only when the source or its
// headers are unusable.
func (s *jobService) processJob(ctx context.Context, job *models.ImportJob) {
	select {
	case <-ctx.Done():
		// Claimed but not started: hand it back to the queue
		job.Status = models.JobStatusPending
		job.StartedAt = nil
		if err := s.jobRepo.Update(context.Background(), job); err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to release job")
		}
		s.log.Warn().Str("job_id", job.ID).Msg("Import cancelled due to shutdown")
		return
	default:
	}

	start := time.Now()
	job.Status = models.JobStatusProcessing
	job.StartedAt = &start

	s.log.Info().Str("job_id", job.ID).Str("timeline_id", job.TimelineID).Msg("Processing import")

	t, err := s.timelines.Get(ctx, job.TimelineID)
	if err == nil && t == nil {
		err = ErrTimelineNotFound
	}
	if err != nil {
		s.fail(job, start, err)
		return
	}

	src := Source{Spreadsheet: &SpreadsheetSource{Location: job.Source, MediaType: job.MediaType}}
	result, ingestErr := s.ingest.Ingest(ctx, src, s.timelines.Options(t))
	if result != nil {
		job.TotalRows = result.TotalRows
		job.ErrorCount = len(result.Errors)
		if err := s.jobRepo.AddErrors(ctx, job.ID, result.Errors); err != nil {
			s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to store import errors")
		}
	}
	if ingestErr != nil {
		s.fail(job, start, ingestErr)
		return
	}

	if err := s.timelines.Save(ctx, t.ID, result.Slides); err != nil {
		s.fail(job, start, err)
		return
	}

	job.SlideCount = len(result.Slides)
	s.finish(job, start, models.JobStatusCompleted)

	s.log.Info().
		Str("job_id", job.ID).
		Int("rows", job.TotalRows).
		Int("slides", job.SlideCount).
		Int("errors", job.ErrorCount).
		Int64("duration_ms", job.DurationMs).
		Msg("Import completed")
}

func (s *jobService) fail(job *models.ImportJob, start time.Time, err error) {
	if job.ErrorCount == 0 && !errors.Is(err, ErrSchema) && !errors.Is(err, ErrSource) {
		rec := models.ErrorRecord{Field: models.FieldSource, Message: err.Error()}
		if addErr := s.jobRepo.AddErrors(context.Background(), job.ID, []models.ErrorRecord{rec}); addErr != nil {
			s.log.Error().Err(addErr).Str("job_id", job.ID).Msg("Failed to store import errors")
		}
		job.ErrorCount = 1
	}
	s.finish(job, start, models.JobStatusFailed)
	s.log.Error().Err(err).Str("job_id", job.ID).Msg("Import failed")
}

// finish records the final status. It uses a fresh context so a shutdown
// does not leave the job marked as processing.
func (s *jobService) finish(job *models.ImportJob, start time.Time, status models.JobStatus) {
	completed := time.Now()
	job.Status = status
	job.CompletedAt = &completed
	job.DurationMs = completed.Sub(start).Milliseconds()
	if err := s.jobRepo.Update(context.Background(), job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.ID).Msg("Failed to update job")
	}
}

// GetJob retrieves a job with its first errors
func (s *jobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	if !isUUID(id) {
		return nil, nil
	}
	job, err := s.jobRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}

	errs, err := s.jobRepo.GetErrors(ctx, id, maxListedErrors)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", id).Msg("Failed to get job errors")
	}

	response := &models.JobResponse{
		ImportJob: *job,
		Errors:    errs,
	}
	if job.ErrorCount > 0 {
		response.ErrorReport = "/v1/imports/" + job.ID + "/errors"
	}
	return response, nil
}

// GetJobByIdempotencyKey retrieves a job by idempotency key
func (s *jobService) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error) {
	return s.jobRepo.GetByIdempotencyKey(ctx, key)
}

// GetJobErrors retrieves every error of a job
func (s *jobService) GetJobErrors(ctx context.Context, id string) ([]models.ErrorRecord, error) {
	if !isUUID(id) {
		return nil, nil
	}
	return s.jobRepo.GetErrors(ctx, id, 0)
}

// CountByStatus returns the number of jobs per status
func (s *jobService) CountByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	return s.jobRepo.CountByStatus(ctx)
}
