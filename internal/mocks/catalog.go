package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/timeline-exhibit-api/internal/models"
)

// MockCatalog is a deterministic in-memory catalog of resources and assets
type MockCatalog struct {
	mu            sync.Mutex
	Resources     map[int64]*models.Resource
	Assets        map[int64]*models.Asset
	LookupError   error
	ResourceCalls int
	AssetCalls    int
	SearchCalls   int
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		Resources: make(map[int64]*models.Resource),
		Assets:    make(map[int64]*models.Asset),
	}
}

// AddResource stores a resource with optional properties given as name, value pairs
func (m *MockCatalog) AddResource(id int64, props ...string) *models.Resource {
	r := &models.Resource{ID: id, Properties: make(map[string][]string)}
	for i := 0; i+1 < len(props); i += 2 {
		r.Properties[props[i]] = append(r.Properties[props[i]], props[i+1])
	}
	m.Resources[id] = r
	return r
}

// AddAsset stores an asset
func (m *MockCatalog) AddAsset(id int64) *models.Asset {
	a := &models.Asset{ID: id, Name: "asset", MediaType: "image/png"}
	m.Assets[id] = a
	return a
}

func (m *MockCatalog) GetResource(ctx context.Context, id int64) (*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResourceCalls++
	if m.LookupError != nil {
		return nil, m.LookupError
	}
	return m.Resources[id], nil
}

func (m *MockCatalog) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AssetCalls++
	if m.LookupError != nil {
		return nil, m.LookupError
	}
	return m.Assets[id], nil
}

func (m *MockCatalog) FindByProperty(ctx context.Context, property, value string) ([]*models.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchCalls++
	if m.LookupError != nil {
		return nil, m.LookupError
	}
	ids := make([]int64, 0, len(m.Resources))
	for id := range m.Resources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var found []*models.Resource
	for _, id := range ids {
		r := m.Resources[id]
		for _, v := range r.Properties[property] {
			if v == value {
				found = append(found, r)
				break
			}
		}
	}
	return found, nil
}
