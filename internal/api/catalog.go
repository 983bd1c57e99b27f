package api

import (
	"context"
	"log/slog"
	"net/http"

	"tourguide/pkg/catalog"
)

// CatalogHandler exposes the active regions and a manual reload.
type CatalogHandler struct {
	current       func() *catalog.Catalog
	reload        func(context.Context) (*catalog.Catalog, error)
	radiusDefault float64
}

// NewCatalogHandler creates the handler. reload builds and installs a new
// catalog; it may be nil when reloading is not possible.
func NewCatalogHandler(current func() *catalog.Catalog, reload func(context.Context) (*catalog.Catalog, error), radiusDefault float64) *CatalogHandler {
	return &CatalogHandler{current: current, reload: reload, radiusDefault: radiusDefault}
}

// HandleRegions returns the regions as a GeoJSON FeatureCollection of circles.
// GET /api/regions
func (h *CatalogHandler) HandleRegions(w http.ResponseWriter, r *http.Request) {
	fc := catalog.ToGeoJSON(h.current(), h.radiusDefault)
	data, err := fc.MarshalJSON()
	if err != nil {
		slog.Error("Failed to encode regions", "error", err)
		writeError(w, http.StatusInternalServerError, "encode failed")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(data); err != nil {
		slog.Error("Failed to write regions response", "error", err)
	}
}

// HandleReload fetches the catalog again and swaps it in.
// POST /api/catalog/reload
func (h *CatalogHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		writeError(w, http.StatusNotImplemented, "reload not configured")
		return
	}
	c, err := h.reload(r.Context())
	if err != nil {
		slog.Warn("Catalog reload failed", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":    c.Source(),
		"regions":   c.Len(),
		"loaded_at": c.LoadedAt(),
	})
}
