package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/timeline-exhibit-api/internal/models"
)

// MockTimelineRepository is a mock implementation of TimelineRepository
type MockTimelineRepository struct {
	mu           sync.Mutex
	Timelines    map[string]*models.Timeline
	CreateError  error
	ReplaceError error
	ReplaceCalls int
}

func NewMockTimelineRepository() *MockTimelineRepository {
	return &MockTimelineRepository{
		Timelines: make(map[string]*models.Timeline),
	}
}

func (m *MockTimelineRepository) Create(ctx context.Context, t *models.Timeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Timelines[t.ID] = t
	return nil
}

func (m *MockTimelineRepository) GetByID(ctx context.Context, id string) (*models.Timeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Timelines[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	copied.Slides = append([]models.Slide(nil), t.Slides...)
	return &copied, nil
}

func (m *MockTimelineRepository) List(ctx context.Context, limit, offset int) ([]*models.Timeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*models.Timeline, 0, len(m.Timelines))
	for _, t := range m.Timelines {
		summary := *t
		summary.SlideCount = len(t.Slides)
		summary.Slides = nil
		all = append(all, &summary)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return []*models.Timeline{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *MockTimelineRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Timelines[id]; !ok {
		return false, nil
	}
	delete(m.Timelines, id)
	return true, nil
}

func (m *MockTimelineRepository) ReplaceSlides(ctx context.Context, id string, slides []models.Slide, fullText string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReplaceCalls++
	if m.ReplaceError != nil {
		return false, m.ReplaceError
	}
	t, ok := m.Timelines[id]
	if !ok {
		return false, nil
	}
	t.Slides = append([]models.Slide(nil), slides...)
	t.FullText = fullText
	return true, nil
}

func (m *MockTimelineRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Timelines), nil
}

func (m *MockTimelineRepository) StreamSlides(ctx context.Context, id string, callback func(*models.Slide) error) error {
	m.mu.Lock()
	var slides []models.Slide
	if t, ok := m.Timelines[id]; ok {
		slides = append(slides, t.Slides...)
	}
	m.mu.Unlock()

	for i := range slides {
		if err := callback(&slides[i]); err != nil {
			return err
		}
	}
	return nil
}

// Slides returns a copy of the stored slides of a timeline
func (m *MockTimelineRepository) Slides(id string) []models.Slide {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.Timelines[id]; ok {
		return append([]models.Slide(nil), t.Slides...)
	}
	return nil
}

// MockJobRepository is a mock implementation of JobRepository
type MockJobRepository struct {
	mu              sync.Mutex
	Jobs            map[string]*models.ImportJob
	IdempotencyJobs map[string]*models.ImportJob
	Errors          map[string][]models.ErrorRecord
	CreateError     error
	UpdateError     error
}

func NewMockJobRepository() *MockJobRepository {
	return &MockJobRepository{
		Jobs:            make(map[string]*models.ImportJob),
		IdempotencyJobs: make(map[string]*models.ImportJob),
		Errors:          make(map[string][]models.ErrorRecord),
	}
}

func (m *MockJobRepository) Create(ctx context.Context, job *models.ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return m.CreateError
	}
	stored := *job
	m.Jobs[job.ID] = &stored
	if job.IdempotencyKey != "" {
		m.IdempotencyJobs[job.IdempotencyKey] = &stored
	}
	return nil
}

func (m *MockJobRepository) Update(ctx context.Context, job *models.ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	stored := *job
	m.Jobs[job.ID] = &stored
	if job.IdempotencyKey != "" {
		m.IdempotencyJobs[job.IdempotencyKey] = &stored
	}
	return nil
}

func (m *MockJobRepository) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (m *MockJobRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.IdempotencyJobs[key]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (m *MockJobRepository) GetPendingJobs(ctx context.Context) ([]*models.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*models.ImportJob
	for _, job := range m.Jobs {
		if job.Status == models.JobStatusPending {
			copied := *job
			pending = append(pending, &copied)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

func (m *MockJobRepository) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, exists := m.Jobs[jobID]
	if !exists || job.Status != models.JobStatusPending {
		return false, nil
	}
	job.Status = models.JobStatusProcessing
	return true, nil
}

func (m *MockJobRepository) AddErrors(ctx context.Context, jobID string, errors []models.ErrorRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[jobID] = append(m.Errors[jobID], errors...)
	return nil
}

func (m *MockJobRepository) GetErrors(ctx context.Context, jobID string, limit int) ([]models.ErrorRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	errors := append([]models.ErrorRecord(nil), m.Errors[jobID]...)
	sort.SliceStable(errors, func(i, j int) bool { return errors[i].Row < errors[j].Row })
	if limit > 0 && len(errors) > limit {
		return errors[:limit], nil
	}
	return errors, nil
}

func (m *MockJobRepository) CountByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.JobStatus]int)
	for _, job := range m.Jobs {
		counts[job.Status]++
	}
	return counts, nil
}

// Job returns a copy of a stored job, nil when unknown
func (m *MockJobRepository) Job(id string) *models.ImportJob {
	job, _ := m.GetByID(context.Background(), id)
	return job
}
