package mocks

import (
	"context"
	"net/http"
	"time"

	"github.com/timeline-exhibit-api/internal/models"
	"github.com/timeline-exhibit-api/internal/service"
)

// MockTimelineService is a mock implementation of TimelineService
type MockTimelineService struct {
	Timelines     map[string]*models.Timeline
	ReplaceFunc   func(ctx context.Context, id string, drafts []models.SlideDraft) (*models.SlidesResponse, error)
	PreviewFunc   func(ctx context.Context, id string, src service.SpreadsheetSource) (*models.SlidesResponse, error)
	CreateError   error
	Previewed     []service.SpreadsheetSource
	SavedSlides   map[string][]models.Slide
	CreatedCount  int
	ReplacedDraft []models.SlideDraft
}

// Verify interface compliance
var _ service.TimelineService = (*MockTimelineService)(nil)

func NewMockTimelineService() *MockTimelineService {
	return &MockTimelineService{
		Timelines:   make(map[string]*models.Timeline),
		SavedSlides: make(map[string][]models.Slide),
	}
}

func (m *MockTimelineService) Create(ctx context.Context, req *models.TimelineRequest) (*models.Timeline, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.CreatedCount++
	t := &models.Timeline{
		ID:        "test-timeline-id",
		Title:     req.Title,
		Scale:     models.NormalizeScale(req.Scale),
		CreatedAt: time.Now(),
	}
	m.Timelines[t.ID] = t
	return t, nil
}

func (m *MockTimelineService) Get(ctx context.Context, id string) (*models.Timeline, error) {
	return m.Timelines[id], nil
}

func (m *MockTimelineService) List(ctx context.Context, limit, offset int) ([]*models.Timeline, error) {
	list := make([]*models.Timeline, 0, len(m.Timelines))
	for _, t := range m.Timelines {
		list = append(list, t)
	}
	return list, nil
}

func (m *MockTimelineService) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := m.Timelines[id]; !ok {
		return false, nil
	}
	delete(m.Timelines, id)
	return true, nil
}

func (m *MockTimelineService) ReplaceSlides(ctx context.Context, id string, drafts []models.SlideDraft) (*models.SlidesResponse, error) {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, id, drafts)
	}
	if _, ok := m.Timelines[id]; !ok {
		return nil, nil
	}
	m.ReplacedDraft = drafts
	return &models.SlidesResponse{TimelineID: id, Slides: []models.Slide{}}, nil
}

func (m *MockTimelineService) Preview(ctx context.Context, id string, src service.SpreadsheetSource) (*models.SlidesResponse, error) {
	if m.PreviewFunc != nil {
		return m.PreviewFunc(ctx, id, src)
	}
	if _, ok := m.Timelines[id]; !ok {
		return nil, nil
	}
	m.Previewed = append(m.Previewed, src)
	return &models.SlidesResponse{TimelineID: id, Slides: []models.Slide{}}, nil
}

func (m *MockTimelineService) Save(ctx context.Context, id string, slides []models.Slide) error {
	m.SavedSlides[id] = slides
	return nil
}

func (m *MockTimelineService) Options(t *models.Timeline) service.Options {
	return service.Options{StartDateProperty: t.StartDateProperty}
}

func (m *MockTimelineService) Count(ctx context.Context) (int, error) {
	return len(m.Timelines), nil
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	StreamFunc func(ctx context.Context, w http.ResponseWriter, timelineID, format string) error
	Calls      []string
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{}
}

func (m *MockExportService) StreamSlides(ctx context.Context, w http.ResponseWriter, timelineID, format string) error {
	m.Calls = append(m.Calls, timelineID+":"+format)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, w, timelineID, format)
	}
	return nil
}

// MockJobService is a mock implementation of JobService
type MockJobService struct {
	Jobs        map[string]*models.JobResponse
	Errors      map[string][]models.ErrorRecord
	Created     []*models.ImportRequest
	CreateError error
}

// Verify interface compliance
var _ service.JobService = (*MockJobService)(nil)

func NewMockJobService() *MockJobService {
	return &MockJobService{
		Jobs:   make(map[string]*models.JobResponse),
		Errors: make(map[string][]models.ErrorRecord),
	}
}

func (m *MockJobService) StartProcessor(ctx context.Context) {}

func (m *MockJobService) StopProcessor() {}

func (m *MockJobService) CreateImportJob(ctx context.Context, req *models.ImportRequest) (*models.ImportJob, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.Created = append(m.Created, req)
	job := &models.ImportJob{
		ID:             "test-job-id",
		TimelineID:     req.TimelineID,
		Status:         models.JobStatusPending,
		Source:         req.Source,
		MediaType:      req.MediaType,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
	m.Jobs[job.ID] = &models.JobResponse{ImportJob: *job}
	return job, nil
}

func (m *MockJobService) GetJob(ctx context.Context, id string) (*models.JobResponse, error) {
	return m.Jobs[id], nil
}

func (m *MockJobService) GetJobByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error) {
	for _, job := range m.Jobs {
		if job.IdempotencyKey == key {
			copied := job.ImportJob
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockJobService) GetJobErrors(ctx context.Context, id string) ([]models.ErrorRecord, error) {
	return m.Errors[id], nil
}

func (m *MockJobService) CountByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	counts := make(map[models.JobStatus]int)
	for _, job := range m.Jobs {
		counts[job.Status]++
	}
	return counts, nil
}
