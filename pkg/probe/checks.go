package probe

import (
	"context"
	"errors"
	"fmt"

	"tourguide/pkg/catalog"
	"tourguide/pkg/location"
)

// ErrEmptyCatalog is returned when the catalog has no usable region.
var ErrEmptyCatalog = errors.New("catalog has no valid regions")

// Catalog fails when the active catalog is empty. Nothing can be announced
// without regions, so the probe is critical.
func Catalog(get func() *catalog.Catalog) Probe {
	return Probe{
		Name:     "Region Catalog",
		Critical: true,
		Check: func(context.Context) error {
			c := get()
			if c.Len() == 0 {
				return fmt.Errorf("%w (source %q)", ErrEmptyCatalog, c.Source())
			}
			return nil
		},
	}
}

// Location checks that the source can be watched at all. Positions may
// still arrive later, so a failure only warns.
func Location(src location.Source) Probe {
	return Probe{
		Name: "Location Source",
		Check: func(ctx context.Context) error {
			if src == nil {
				return location.ErrUnavailable
			}
			sub, err := src.Watch(location.Options{}, func(location.Sample) {}, nil)
			if err != nil {
				return err
			}
			sub.Stop()
			return ctx.Err()
		},
	}
}
