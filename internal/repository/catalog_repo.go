package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/timeline-exhibit-api/internal/database"
	"github.com/timeline-exhibit-api/internal/models"
)

// catalogRepo is the concrete implementation of CatalogRepository
type catalogRepo struct {
	db *database.DB
}

// NewCatalogRepo creates a new catalog repository
func NewCatalogRepo(db *database.DB) CatalogRepository {
	return &catalogRepo{db: db}
}

// GetResource retrieves a resource with its property values
func (r *catalogRepo) GetResource(ctx context.Context, id int64) (*models.Resource, error) {
	var res models.Resource
	err := r.db.QueryRowContext(ctx, "SELECT id, title FROM resources WHERE id = $1", id).Scan(&res.ID, &res.Title)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	found := map[int64]*models.Resource{res.ID: &res}
	if err := r.loadProperties(ctx, found); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetAsset retrieves an asset
func (r *catalogRepo) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	var a models.Asset
	query := `SELECT id, name, media_type, storage_id FROM assets WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Name, &a.MediaType, &a.StorageID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByProperty returns the resources having the exact value for a property,
// lowest id first
func (r *catalogRepo) FindByProperty(ctx context.Context, property, value string) ([]*models.Resource, error) {
	query := `
		SELECT r.id, r.title FROM resources r
		WHERE EXISTS (
			SELECT 1 FROM resource_values v
			WHERE v.resource_id = r.id AND v.property = $1 AND v.value = $2
		)
		ORDER BY r.id
	`
	rows, err := r.db.QueryContext(ctx, query, property, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*models.Resource
	found := make(map[int64]*models.Resource)
	for rows.Next() {
		var res models.Resource
		if err := rows.Scan(&res.ID, &res.Title); err != nil {
			return nil, err
		}
		list = append(list, &res)
		found[res.ID] = &res
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	if err := r.loadProperties(ctx, found); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *catalogRepo) loadProperties(ctx context.Context, resources map[int64]*models.Resource) error {
	ids := make([]int64, 0, len(resources))
	for id, res := range resources {
		ids = append(ids, id)
		res.Properties = make(map[string][]string)
	}

	query := `
		SELECT resource_id, property, value FROM resource_values
		WHERE resource_id = ANY($1)
		ORDER BY resource_id, property, position
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var property, value string
		if err := rows.Scan(&id, &property, &value); err != nil {
			return err
		}
		if res, ok := resources[id]; ok {
			res.Properties[property] = append(res.Properties[property], value)
		}
	}
	return rows.Err()
}
