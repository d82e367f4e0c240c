package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timeline-exhibit-api/internal/mocks"
	"github.com/timeline-exhibit-api/internal/models"
	"github.com/timeline-exhibit-api/internal/repository"
)

var (
	_ repository.TimelineRepository = (*mocks.MockTimelineRepository)(nil)
	_ repository.JobRepository      = (*mocks.MockJobRepository)(nil)
	_ repository.CatalogRepository  = (*mocks.MockCatalog)(nil)
)

func headline(s string) *string { return &s }

func TestMockTimelineRepository_ReplaceSlides(t *testing.T) {
	repo := mocks.NewMockTimelineRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &models.Timeline{ID: "tl-1", Title: "Exhibit", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	slides := []models.Slide{
		{Kind: models.SlideKindEvent, Headline: headline("A")},
		{Kind: models.SlideKindTitle, Headline: headline("T")},
	}
	found, err := repo.ReplaceSlides(ctx, "tl-1", slides, models.BuildFullText(slides))
	if err != nil {
		t.Fatalf("ReplaceSlides failed: %v", err)
	}
	if !found {
		t.Error("Expected timeline to be found")
	}

	stored, err := repo.GetByID(ctx, "tl-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if len(stored.Slides) != 2 {
		t.Errorf("Expected 2 slides, got %d", len(stored.Slides))
	}
	if stored.FullText != "A T" {
		t.Errorf("Expected full text 'A T', got %q", stored.FullText)
	}

	// Replacing an unknown timeline reports not found
	found, err = repo.ReplaceSlides(ctx, "missing", slides, "")
	if err != nil {
		t.Fatalf("ReplaceSlides failed: %v", err)
	}
	if found {
		t.Error("Expected unknown timeline to be reported")
	}
}

func TestMockTimelineRepository_List(t *testing.T) {
	repo := mocks.NewMockTimelineRepository()
	ctx := context.Background()

	now := time.Now()
	for i, id := range []string{"old", "middle", "new"} {
		repo.Create(ctx, &models.Timeline{ID: id, CreatedAt: now.Add(time.Duration(i) * time.Minute)})
	}
	repo.ReplaceSlides(ctx, "new", []models.Slide{{Headline: headline("A")}}, "A")

	page, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "new" || page[1].ID != "middle" {
		t.Fatalf("Expected newest first, got %+v", page)
	}
	if page[0].SlideCount != 1 || page[0].Slides != nil {
		t.Errorf("Expected a summary with 1 slide, got %+v", page[0])
	}

	page, _ = repo.List(ctx, 2, 2)
	if len(page) != 1 || page[0].ID != "old" {
		t.Errorf("Expected the oldest timeline on the second page, got %+v", page)
	}

	page, _ = repo.List(ctx, 2, 10)
	if len(page) != 0 {
		t.Errorf("Expected an empty page, got %d timelines", len(page))
	}
}

func TestMockTimelineRepository_StreamSlides(t *testing.T) {
	repo := mocks.NewMockTimelineRepository()
	ctx := context.Background()

	repo.Create(ctx, &models.Timeline{ID: "tl-1"})
	repo.ReplaceSlides(ctx, "tl-1", []models.Slide{
		{Headline: headline("A")},
		{Headline: headline("B")},
		{Headline: headline("C")},
	}, "")

	var seen []string
	stop := errors.New("stop")
	err := repo.StreamSlides(ctx, "tl-1", func(s *models.Slide) error {
		seen = append(seen, s.HeadlineText())
		if len(seen) == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("Expected callback error, got %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("Expected streaming to stop after 2 slides, got %v", seen)
	}
}

func TestMockJobRepository_PendingJobs(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	now := time.Now()
	jobs := []*models.ImportJob{
		{ID: "job-2", Status: models.JobStatusPending, CreatedAt: now.Add(time.Second)},
		{ID: "job-1", Status: models.JobStatusPending, CreatedAt: now},
		{ID: "job-3", Status: models.JobStatusCompleted, CreatedAt: now},
	}
	for _, job := range jobs {
		repo.Create(ctx, job)
	}

	pending, err := repo.GetPendingJobs(ctx)
	if err != nil {
		t.Fatalf("GetPendingJobs failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending jobs, got %d", len(pending))
	}
	if pending[0].ID != "job-1" {
		t.Errorf("Expected oldest job first, got %s", pending[0].ID)
	}
}

func TestMockJobRepository_MarkAsProcessing(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	repo.Create(ctx, &models.ImportJob{ID: "job-1", Status: models.JobStatusPending})

	marked, err := repo.MarkJobAsProcessing(ctx, "job-1")
	if err != nil {
		t.Fatalf("MarkJobAsProcessing failed: %v", err)
	}
	if !marked {
		t.Error("Expected job to be marked")
	}

	// A second claim must fail
	marked, _ = repo.MarkJobAsProcessing(ctx, "job-1")
	if marked {
		t.Error("Expected second claim to fail")
	}

	counts, _ := repo.CountByStatus(ctx)
	if counts[models.JobStatusProcessing] != 1 {
		t.Errorf("Expected 1 processing job, got %v", counts)
	}
}

func TestMockJobRepository_Errors(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	repo.AddErrors(ctx, "job-1", []models.ErrorRecord{
		{Row: 3, Field: "Year", Message: "the Year is required unless the Type is title"},
		{Row: 1, Field: "Media", Message: "invalid Media", Value: "x"},
	})
	repo.AddErrors(ctx, "job-1", []models.ErrorRecord{
		{Row: 2, Field: "Type", Message: "era requires start and end date"},
	})

	errs, err := repo.GetErrors(ctx, "job-1", 0)
	if err != nil {
		t.Fatalf("GetErrors failed: %v", err)
	}
	if len(errs) != 3 {
		t.Fatalf("Expected 3 errors, got %d", len(errs))
	}
	for i, want := range []int{1, 2, 3} {
		if errs[i].Row != want {
			t.Errorf("Expected row %d at position %d, got %d", want, i, errs[i].Row)
		}
	}

	limited, _ := repo.GetErrors(ctx, "job-1", 2)
	if len(limited) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(limited))
	}
}

func TestMockJobRepository_IdempotencyKey(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	repo.Create(ctx, &models.ImportJob{ID: "job-1", Status: models.JobStatusPending, IdempotencyKey: "unique-key-123"})

	found, err := repo.GetByIdempotencyKey(ctx, "unique-key-123")
	if err != nil {
		t.Fatalf("GetByIdempotencyKey failed: %v", err)
	}
	if found == nil || found.ID != "job-1" {
		t.Errorf("Expected job-1, got %+v", found)
	}

	notFound, _ := repo.GetByIdempotencyKey(ctx, "nonexistent-key")
	if notFound != nil {
		t.Error("Should not find non-existent key")
	}
}

func TestMockCatalog_FindByProperty(t *testing.T) {
	catalog := mocks.NewMockCatalog()
	ctx := context.Background()

	catalog.AddResource(7, "dcterms:identifier", "ms-7")
	catalog.AddResource(3, "dcterms:identifier", "ms-7")
	catalog.AddResource(9, "dcterms:identifier", "ms-9")

	found, err := catalog.FindByProperty(ctx, "dcterms:identifier", "ms-7")
	if err != nil {
		t.Fatalf("FindByProperty failed: %v", err)
	}
	if len(found) != 2 || found[0].ID != 3 {
		t.Errorf("Expected resources 3 and 7 in id order, got %+v", found)
	}

	res, _ := catalog.GetResource(ctx, 404)
	if res != nil {
		t.Error("Expected unknown resource to be nil")
	}
}
