// Package catalog builds the immutable region list the geofence evaluates
// against, from the content store or from a local file.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"tourguide/pkg/geo"
	"tourguide/pkg/metrics"
	"tourguide/pkg/model"
)

// Source produces raw regions. Entries are validated by New.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]model.Region, error)
}

// Rejection describes a region left out of a catalog.
type Rejection struct {
	Index  int
	ID     int64
	Name   string
	Reason string
}

func (r Rejection) String() string {
	return fmt.Sprintf("#%d id=%d %q: %s", r.Index, r.ID, r.Name, r.Reason)
}

// Catalog is an ordered, read-only set of valid regions. Order is the source
// order and decides ties between equidistant regions.
type Catalog struct {
	regions  []model.Region
	byID     map[int64]int
	source   string
	loadedAt time.Time
}

// New validates regions and returns a catalog of the accepted ones in their
// original order, plus the rejections. Later duplicates of an ID are rejected.
func New(regions []model.Region) (*Catalog, []Rejection) {
	c := &Catalog{
		regions:  make([]model.Region, 0, len(regions)),
		byID:     make(map[int64]int, len(regions)),
		loadedAt: time.Now(),
	}
	var rejected []Rejection
	for i := range regions {
		r := regions[i]
		reason := validate(&r)
		if reason == "" {
			if _, dup := c.byID[r.ID]; dup {
				reason = "duplicate id"
			}
		}
		if reason != "" {
			rejected = append(rejected, Rejection{Index: i, ID: r.ID, Name: r.Name, Reason: reason})
			continue
		}
		c.byID[r.ID] = len(c.regions)
		c.regions = append(c.regions, r)
	}
	return c, rejected
}

// Empty returns a catalog with no regions.
func Empty() *Catalog {
	c, _ := New(nil)
	return c
}

func validate(r *model.Region) string {
	if !geo.Valid(r.Center()) {
		return "invalid coordinates"
	}
	if math.IsNaN(r.Radius) || math.IsInf(r.Radius, 0) {
		return "radius not finite"
	}
	if r.Radius < 0 {
		return "negative radius"
	}
	return ""
}

// Regions returns the regions in catalog order. The slice is shared and must
// not be modified.
func (c *Catalog) Regions() []model.Region {
	if c == nil {
		return nil
	}
	return c.regions
}

// Len returns the number of regions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.regions)
}

// Get returns the region with the given ID.
func (c *Catalog) Get(id int64) (model.Region, bool) {
	if c == nil {
		return model.Region{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return model.Region{}, false
	}
	return c.regions[i], true
}

// Source names where the catalog came from.
func (c *Catalog) Source() string {
	if c == nil {
		return ""
	}
	return c.source
}

// LoadedAt is when the catalog was built.
func (c *Catalog) LoadedAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.loadedAt
}

// Build loads regions from src and validates them. Rejections are logged,
// not fatal.
func Build(ctx context.Context, src Source) (*Catalog, error) {
	raw, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog from %s: %w", src.Name(), err)
	}

	c, rejected := New(raw)
	c.source = src.Name()
	for _, r := range rejected {
		slog.Warn("Region rejected", "source", c.source, "index", r.Index, "id", r.ID, "name", r.Name, "reason", r.Reason)
	}

	metrics.CatalogRegions.Set(float64(c.Len()))
	metrics.CatalogRejected.Set(float64(len(rejected)))
	slog.Info("Catalog loaded", "source", c.source, "regions", c.Len(), "rejected", len(rejected))
	return c, nil
}
