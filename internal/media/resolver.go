// Package media classifies raw media and background values into references.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/timeline-exhibit-api/internal/models"
)

// ErrNotFound is matched by lookups that found neither resource nor asset
var ErrNotFound = errors.New("reference not found")

var assetRegex = regexp.MustCompile(`^asset/(\d+)$`)

// Catalog resolves numeric ids and identifiers. A nil result with a nil error
// means not found; an error means the lookup itself failed.
type Catalog interface {
	GetResource(ctx context.Context, id int64) (*models.Resource, error)
	GetAsset(ctx context.Context, id int64) (*models.Asset, error)
	FindByProperty(ctx context.Context, property, value string) ([]*models.Resource, error)
}

// NotFoundError names the reference that could not be found
type NotFoundError struct {
	Kind  models.ReferenceKind
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Value)
}

// Is makes errors.Is(err, ErrNotFound) match
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// attempt tries one reading of a raw value. matched stops the chain even when
// err is set.
type attempt func(ctx context.Context, raw string) (ref models.Reference, matched bool, err error)

// Resolver turns raw values into references
type Resolver struct {
	catalog            Catalog
	identifierProperty string
	chain              []attempt
}

// NewResolver creates a resolver. An empty identifier property disables the
// identifier search.
func NewResolver(catalog Catalog, identifierProperty string) *Resolver {
	r := &Resolver{catalog: catalog, identifierProperty: identifierProperty}
	r.chain = []attempt{r.resource, r.asset, absoluteURL, r.identifier, literal}
	return r
}

// Resolve reads a media value: a resource id, asset/<id>, an absolute URL, an
// identifier of a resource, or else an opaque external string. Unknown ids
// return a NotFoundError.
func (r *Resolver) Resolve(ctx context.Context, raw string) (models.Reference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Reference{}, nil
	}
	for _, try := range r.chain {
		ref, matched, err := try(ctx, raw)
		if matched {
			return ref, err
		}
	}
	return models.Reference{}, nil
}

// ResolveBackground reads a background value. Strings that are not resources
// or assets become an external URL when they have an http(s) scheme and a
// color otherwise.
func (r *Resolver) ResolveBackground(ctx context.Context, raw string) (models.Reference, error) {
	ref, err := r.Resolve(ctx, raw)
	if err != nil || ref.Kind != models.ReferenceExternal {
		return ref, err
	}
	return ClassifyBackground(ref.Value), nil
}

// ClassifyBackground splits a background string into URL or color
func ClassifyBackground(v string) models.Reference {
	if v == "" {
		return models.Reference{}
	}
	lower := strings.ToLower(v)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return models.ExternalRef(v)
	}
	return models.ColorRef(v)
}

// ParseID reads a bare numeric id
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (r *Resolver) resource(ctx context.Context, raw string) (models.Reference, bool, error) {
	id, ok := ParseID(raw)
	if !ok {
		return models.Reference{}, false, nil
	}
	res, err := r.catalog.GetResource(ctx, id)
	if err != nil {
		return models.Reference{}, true, fmt.Errorf("lookup resource %d: %w", id, err)
	}
	if res == nil {
		return models.Reference{}, true, &NotFoundError{Kind: models.ReferenceResource, Value: raw}
	}
	return models.ResourceRef(res.ID), true, nil
}

func (r *Resolver) asset(ctx context.Context, raw string) (models.Reference, bool, error) {
	m := assetRegex.FindStringSubmatch(raw)
	if m == nil {
		return models.Reference{}, false, nil
	}
	id, ok := ParseID(m[1])
	if !ok {
		return models.Reference{}, true, &NotFoundError{Kind: models.ReferenceAsset, Value: raw}
	}
	asset, err := r.catalog.GetAsset(ctx, id)
	if err != nil {
		return models.Reference{}, true, fmt.Errorf("lookup asset %d: %w", id, err)
	}
	if asset == nil {
		return models.Reference{}, true, &NotFoundError{Kind: models.ReferenceAsset, Value: raw}
	}
	return models.AssetRef(asset.ID), true, nil
}

func (r *Resolver) identifier(ctx context.Context, raw string) (models.Reference, bool, error) {
	if r.identifierProperty == "" {
		return models.Reference{}, false, nil
	}
	found, err := r.catalog.FindByProperty(ctx, r.identifierProperty, raw)
	if err != nil {
		return models.Reference{}, true, fmt.Errorf("search %s: %w", r.identifierProperty, err)
	}
	if len(found) == 0 || found[0] == nil {
		return models.Reference{}, false, nil
	}
	return models.ResourceRef(found[0].ID), true, nil
}

func absoluteURL(_ context.Context, raw string) (models.Reference, bool, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return models.Reference{}, false, nil
	}
	return models.ExternalRef(raw), true, nil
}

func literal(_ context.Context, raw string) (models.Reference, bool, error) {
	return models.ExternalRef(raw), true, nil
}
