package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/timeline-exhibit-api/internal/database"
	"github.com/timeline-exhibit-api/internal/models"
)

const jobColumns = `id, timeline_id, status, source, media_type, idempotency_key, total_rows,
	slide_count, error_count, duration_ms, created_at, started_at, completed_at`

// jobRepo is the concrete implementation of JobRepository
type jobRepo struct {
	db *database.DB
}

// NewJobRepo creates a new job repository
func NewJobRepo(db *database.DB) JobRepository {
	return &jobRepo{db: db}
}

// Create inserts a new job
func (r *jobRepo) Create(ctx context.Context, job *models.ImportJob) error {
	query := `
		INSERT INTO import_jobs (id, timeline_id, status, source, media_type, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		job.ID, job.TimelineID, job.Status, job.Source, nullString(job.MediaType),
		nullString(job.IdempotencyKey), job.CreatedAt,
	)
	return err
}

// Update updates job status and counters
func (r *jobRepo) Update(ctx context.Context, job *models.ImportJob) error {
	query := `
		UPDATE import_jobs SET
			status = $1, total_rows = $2, slide_count = $3, error_count = $4,
			duration_ms = $5, started_at = $6, completed_at = $7
		WHERE id = $8
	`
	_, err := r.db.ExecContext(ctx, query,
		job.Status, job.TotalRows, job.SlideCount, job.ErrorCount,
		job.DurationMs, job.StartedAt, job.CompletedAt, job.ID,
	)
	return err
}

// GetByID retrieves a job by ID
func (r *jobRepo) GetByID(ctx context.Context, id string) (*models.ImportJob, error) {
	return r.getOne(ctx, "SELECT "+jobColumns+" FROM import_jobs WHERE id = $1", id)
}

// GetByIdempotencyKey retrieves a job by idempotency key
func (r *jobRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportJob, error) {
	return r.getOne(ctx, "SELECT "+jobColumns+" FROM import_jobs WHERE idempotency_key = $1", key)
}

func (r *jobRepo) getOne(ctx context.Context, query string, arg interface{}) (*models.ImportJob, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.ImportJob, error) {
	var job models.ImportJob
	var mediaType, idempotencyKey sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID, &job.TimelineID, &job.Status, &job.Source, &mediaType, &idempotencyKey,
		&job.TotalRows, &job.SlideCount, &job.ErrorCount, &job.DurationMs,
		&job.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.MediaType = mediaType.String
	job.IdempotencyKey = idempotencyKey.String
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	return &job, nil
}

// GetPendingJobs retrieves all pending jobs, oldest first
func (r *jobRepo) GetPendingJobs(ctx context.Context) ([]*models.ImportJob, error) {
	query := "SELECT " + jobColumns + " FROM import_jobs WHERE status = 'pending' ORDER BY created_at"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.ImportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkJobAsProcessing atomically marks a pending job as processing
func (r *jobRepo) MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error) {
	query := `
		UPDATE import_jobs SET status = 'processing', started_at = $1
		WHERE id = $2 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), jobID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// AddErrors stores ingestion errors using the COPY protocol. A large
// spreadsheet can report an error on every row.
func (r *jobRepo) AddErrors(ctx context.Context, jobID string, errors []models.ErrorRecord) error {
	if len(errors) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("import_errors",
		"job_id", "row_index", "field", "message", "value",
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range errors {
		if _, err := stmt.ExecContext(ctx, jobID, nullInt(e.Row), e.Field, e.Message, valueString(e.Value)); err != nil {
			return err
		}
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return err
	}

	return tx.Commit()
}

// GetErrors retrieves errors for a job in row order. Batch-level errors,
// which have no row, come first.
func (r *jobRepo) GetErrors(ctx context.Context, jobID string, limit int) ([]models.ErrorRecord, error) {
	query := `SELECT row_index, field, message, value FROM import_errors WHERE job_id = $1 ORDER BY row_index NULLS FIRST, id`
	args := []interface{}{jobID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var errors []models.ErrorRecord
	for rows.Next() {
		var e models.ErrorRecord
		var row sql.NullInt64
		var value sql.NullString
		if err := rows.Scan(&row, &e.Field, &e.Message, &value); err != nil {
			return nil, err
		}
		e.Row = int(row.Int64)
		if value.Valid && value.String != "" {
			e.Value = value.String
		}
		errors = append(errors, e)
	}
	return errors, rows.Err()
}

// CountByStatus returns the number of jobs per status
func (r *jobRepo) CountByStatus(ctx context.Context) (map[models.JobStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM import_jobs GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.JobStatus]int)
	for rows.Next() {
		var status models.JobStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}

func valueString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
