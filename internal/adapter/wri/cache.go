package wri

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/couchcryptid/geo-risk-service/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SharedCache is a cache tier shared between service replicas.
type SharedCache interface {
	Get(ctx context.Context, id string) (domain.DatasetInfo, bool, error)
	Set(ctx context.Context, id string, info domain.DatasetInfo) error
}

// CachedCatalog wraps a CatalogFetcher with an in-memory LRU and an
// optional shared tier. Failures are never cached.
type CachedCatalog struct {
	inner   domain.CatalogFetcher
	memory  *lru.Cache[string, domain.DatasetInfo]
	shared  SharedCache
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedCatalog creates a cache decorator around a catalog fetcher.
// shared may be nil. A non-positive maxEntries holds a single entry.
func NewCachedCatalog(inner domain.CatalogFetcher, maxEntries int, shared SharedCache, metrics *observability.Metrics, logger *slog.Logger) *CachedCatalog {
	// lru.New only fails for a non-positive size.
	memory, _ := lru.New[string, domain.DatasetInfo](max(1, maxEntries))
	return &CachedCatalog{
		inner:   inner,
		memory:  memory,
		shared:  shared,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *CachedCatalog) Dataset(ctx context.Context, id string) (domain.DatasetInfo, error) {
	if info, ok := c.memory.Get(id); ok {
		c.metrics.CatalogCache.WithLabelValues("memory", "hit").Inc()
		return info, nil
	}
	c.metrics.CatalogCache.WithLabelValues("memory", "miss").Inc()

	if c.shared != nil {
		info, ok, err := c.shared.Get(ctx, id)
		switch {
		case err != nil:
			c.logger.Warn("shared catalog cache read failed", "dataset", id, "error", err)
		case ok:
			c.metrics.CatalogCache.WithLabelValues("redis", "hit").Inc()
			c.memory.Add(id, info)
			return info, nil
		default:
			c.metrics.CatalogCache.WithLabelValues("redis", "miss").Inc()
		}
	}

	info, err := c.inner.Dataset(ctx, id)
	if err != nil {
		return info, err
	}

	c.memory.Add(id, info)
	if c.shared != nil {
		if err := c.shared.Set(ctx, id, info); err != nil {
			c.logger.Warn("shared catalog cache write failed", "dataset", id, "error", err)
		}
	}
	return info, nil
}
