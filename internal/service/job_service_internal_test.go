package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/timeline-exhibit-api/internal/config"
	"github.com/timeline-exhibit-api/internal/models"
	"github.com/timeline-exhibit-api/internal/repository"
)

// updateRecorder only records Update; any other call panics on the nil
// embedded repository
type updateRecorder struct {
	repository.JobRepository
	updated []models.ImportJob
}

func (r *updateRecorder) Update(ctx context.Context, job *models.ImportJob) error {
	r.updated = append(r.updated, *job)
	return nil
}

func TestProcessJob_ShutdownReleasesClaimedJob(t *testing.T) {
	repo := &updateRecorder{}
	s := newJobService(repo, nil, nil, config.ImportConfig{Workers: 1}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.processJob(ctx, &models.ImportJob{ID: "job-1", Status: models.JobStatusProcessing})

	if len(repo.updated) != 1 {
		t.Fatalf("Expected 1 update, got %d", len(repo.updated))
	}
	if repo.updated[0].Status != models.JobStatusPending {
		t.Errorf("Expected job to be pending again, got %s", repo.updated[0].Status)
	}
}
