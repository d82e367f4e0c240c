package models

import (
	"time"
)

// JobStatus represents the status of a spreadsheet import job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// ImportJob is a queued spreadsheet ingestion for one timeline
type ImportJob struct {
	ID             string     `json:"job_id" db:"id"`
	TimelineID     string     `json:"timeline_id" db:"timeline_id"`
	Status         JobStatus  `json:"status" db:"status"`
	Source         string     `json:"source" db:"source"`
	MediaType      string     `json:"media_type,omitempty" db:"media_type"`
	IdempotencyKey string     `json:"idempotency_key,omitempty" db:"idempotency_key"`
	TotalRows      int        `json:"total_rows" db:"total_rows"`
	SlideCount     int        `json:"slides" db:"slide_count"`
	ErrorCount     int        `json:"errors" db:"error_count"`
	DurationMs     int64      `json:"duration_ms,omitempty" db:"duration_ms"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// JobResponse is the API response for job status
type JobResponse struct {
	ImportJob
	Errors      []ErrorRecord `json:"error_list,omitempty"`
	ErrorReport string        `json:"error_report_url,omitempty"`
}

// ImportRequest represents an import job request. Source is a URL or a path
// relative to the upload directory.
type ImportRequest struct {
	TimelineID     string `json:"-"`
	Source         string `json:"source" binding:"required,spreadsheet_source"`
	MediaType      string `json:"media_type"`
	IdempotencyKey string `json:"-"` // From header
}
