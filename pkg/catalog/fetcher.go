package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/getsentry/sentry-go"

	"tourguide/pkg/metrics"
	"tourguide/pkg/model"
	"tourguide/pkg/report"
	"tourguide/pkg/store"
)

// maxPages bounds pagination against a misreporting server.
const maxPages = 200

// ErrNoCatalog is returned when the fetch failed and nothing is cached.
var ErrNoCatalog = errors.New("catalog unavailable and no cached copy")

// Getter is the subset of the request client the fetcher needs.
type Getter interface {
	Get(ctx context.Context, u string, headers map[string]string) ([]byte, error)
}

// HTTPSource loads regions from the content store's poi2s collection. The
// last good result is cached and served when the store is unreachable.
type HTTPSource struct {
	client   Getter
	cache    store.CacheStore
	baseURL  string
	pageSize int
}

// NewHTTPSource creates a fetcher. cache may be nil.
func NewHTTPSource(client Getter, cache store.CacheStore, baseURL string, pageSize int) *HTTPSource {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &HTTPSource{
		client:   client,
		cache:    cache,
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
	}
}

func (s *HTTPSource) Name() string { return "http:" + s.baseURL }

func (s *HTTPSource) cacheKey() string { return "catalog:" + s.baseURL }

func (s *HTTPSource) pageURL(page int) string {
	return fmt.Sprintf("%s/api/poi2s?pagination[pageSize]=%d&pagination[page]=%d", s.baseURL, s.pageSize, page)
}

// Load fetches every page. On failure it falls back to the cached copy.
func (s *HTTPSource) Load(ctx context.Context) ([]model.Region, error) {
	regions, err := s.fetch(ctx)
	if err == nil {
		metrics.CatalogFetches.WithLabelValues(metrics.FetchOK).Inc()
		s.store(ctx, regions)
		return regions, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cached, ok := s.cached(ctx)
	if !ok {
		metrics.CatalogFetches.WithLabelValues(metrics.FetchError).Inc()
		report.ReportError(err)
		return nil, fmt.Errorf("%w: %v", ErrNoCatalog, err)
	}

	metrics.CatalogFetches.WithLabelValues(metrics.FetchCached).Inc()
	report.ReportError(err, sentry.LevelWarning)
	slog.Warn("Catalog fetch failed, using cached copy", "url", s.baseURL, "regions", len(cached), "error", err)
	return cached, nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]model.Region, error) {
	base, err := url.Parse(s.baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid catalog url: %w", err)
	}

	var all []model.Region
	for page := 1; page <= maxPages; page++ {
		body, err := s.client.Get(ctx, s.pageURL(page), nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		regions, pageCount, skipped, err := decodePage(body, base)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if skipped > 0 {
			slog.Warn("Catalog items skipped", "page", page, "count", skipped)
		}
		all = append(all, regions...)

		slog.Debug("Catalog page fetched", "page", page, "page_count", pageCount, "items", len(regions))
		if page >= pageCount || len(regions) == 0 {
			break
		}
	}
	return all, nil
}

func (s *HTTPSource) store(ctx context.Context, regions []model.Region) {
	if s.cache == nil {
		return
	}
	// Only valid entries are kept; NaN coordinates have no JSON form.
	valid := make([]model.Region, 0, len(regions))
	for i := range regions {
		if validate(&regions[i]) == "" {
			valid = append(valid, regions[i])
		}
	}
	data, err := json.Marshal(valid)
	if err != nil {
		slog.Error("Failed to encode catalog for cache", "error", err)
		return
	}
	if err := s.cache.SetCache(ctx, s.cacheKey(), data); err != nil {
		slog.Error("Failed to cache catalog", "error", err)
	}
}

func (s *HTTPSource) cached(ctx context.Context) ([]model.Region, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok := s.cache.GetCache(ctx, s.cacheKey())
	if !ok {
		return nil, false
	}
	var regions []model.Region
	if err := json.Unmarshal(data, &regions); err != nil {
		slog.Error("Cached catalog is corrupt", "error", err)
		return nil, false
	}
	return regions, true
}
