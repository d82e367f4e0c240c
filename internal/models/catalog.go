package models

// Resource is a catalog item that slides may display or borrow a date from
type Resource struct {
	ID         int64               `json:"id" db:"id"`
	Title      string              `json:"title" db:"title"`
	Properties map[string][]string `json:"properties,omitempty" db:"-"`
}

// PropertyValue returns the first value of a property
func (r *Resource) PropertyValue(name string) (string, bool) {
	values := r.Properties[name]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// Asset is an uploaded file not described as a resource
type Asset struct {
	ID        int64  `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	MediaType string `json:"media_type" db:"media_type"`
	StorageID string `json:"storage_id" db:"storage_id"`
}
