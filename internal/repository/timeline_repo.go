package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/timeline-exhibit-api/internal/database"
	"github.com/timeline-exhibit-api/internal/models"
)

// timelineRepo is the concrete implementation of TimelineRepository
type timelineRepo struct {
	db *database.DB
}

// NewTimelineRepo creates a new timeline repository
func NewTimelineRepo(db *database.DB) TimelineRepository {
	return &timelineRepo{db: db}
}

// Create inserts a new timeline
func (r *timelineRepo) Create(ctx context.Context, t *models.Timeline) error {
	slides, err := encodeSlides(t.Slides)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO timelines (id, title, scale, start_date_property, slides, fulltext, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		t.ID, t.Title, t.Scale, nullString(t.StartDateProperty), slides, t.FullText,
		t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// GetByID retrieves a timeline with its slides
func (r *timelineRepo) GetByID(ctx context.Context, id string) (*models.Timeline, error) {
	query := `
		SELECT id, title, scale, start_date_property, slides, fulltext, created_at, updated_at
		FROM timelines WHERE id = $1
	`

	var t models.Timeline
	var startDateProperty sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.Scale, &startDateProperty, &t.SlidesJSON, &t.FullText,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t.StartDateProperty = startDateProperty.String
	if err := json.Unmarshal(t.SlidesJSON, &t.Slides); err != nil {
		return nil, fmt.Errorf("decode slides of timeline %s: %w", id, err)
	}
	return &t, nil
}

// List returns timelines without their slides, newest first
func (r *timelineRepo) List(ctx context.Context, limit, offset int) ([]*models.Timeline, error) {
	query := `
		SELECT id, title, scale, start_date_property, jsonb_array_length(slides), created_at, updated_at
		FROM timelines ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var timelines []*models.Timeline
	for rows.Next() {
		var t models.Timeline
		var startDateProperty sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &t.Scale, &startDateProperty, &t.SlideCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.StartDateProperty = startDateProperty.String
		timelines = append(timelines, &t)
	}
	return timelines, rows.Err()
}

// Delete removes a timeline and, through the foreign key, its import jobs
func (r *timelineRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM timelines WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ReplaceSlides swaps the whole slide list in one statement
func (r *timelineRepo) ReplaceSlides(ctx context.Context, id string, slides []models.Slide, fullText string) (bool, error) {
	data, err := encodeSlides(slides)
	if err != nil {
		return false, err
	}
	query := `UPDATE timelines SET slides = $1, fulltext = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, data, fullText, time.Now(), id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Count returns the total number of timelines
func (r *timelineRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM timelines").Scan(&count)
	return count, err
}

// StreamSlides decodes the slides of a timeline one at a time for export
func (r *timelineRepo) StreamSlides(ctx context.Context, id string, callback func(*models.Slide) error) error {
	var data []byte
	err := r.db.QueryRowContext(ctx, "SELECT slides FROM timelines WHERE id = $1", id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode slides of timeline %s: %w", id, err)
	}
	for dec.More() {
		var slide models.Slide
		if err := dec.Decode(&slide); err != nil {
			return fmt.Errorf("decode slides of timeline %s: %w", id, err)
		}
		if err := callback(&slide); err != nil {
			return err
		}
	}
	return nil
}

func encodeSlides(slides []models.Slide) ([]byte, error) {
	if slides == nil {
		slides = []models.Slide{}
	}
	data, err := json.Marshal(slides)
	if err != nil {
		return nil, fmt.Errorf("encode slides: %w", err)
	}
	return data, nil
}
