package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"shelfscan_backend/internal/feature/bookdetection/adapters"
	"shelfscan_backend/internal/feature/bookdetection/adapters/googlebooks"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
	"shelfscan_backend/internal/platform/cache"
	infrahttp "shelfscan_backend/internal/platform/http"
	"shelfscan_backend/internal/shared/ratelimiter"
)

// Cache kinds reported by /healthz.
const (
	CacheRedis = "redis"
	CacheSQL   = "sql"
	CacheNone  = "none"
)

// CachePurger removes cached catalog lookups.
type CachePurger interface {
	Purge(ctx context.Context) (int, error)
}

// sqlPurger adapts the SQL lookup cache, which only drops expired rows.
type sqlPurger struct {
	purge func(ctx context.Context) (int64, error)
}

func (p sqlPurger) Purge(ctx context.Context) (int, error) {
	n, err := p.purge(ctx)
	return int(n), err
}

type noopPurger struct{}

func (noopPurger) Purge(context.Context) (int, error) { return 0, nil }

// NewCatalog creates the Google Books catalog, paced by a client-side rate limiter and
// wrapped by the Redis cache when rdb is set, otherwise by the SQL cache when gdb is set.
func NewCatalog(ctx context.Context, rdb *redis.Client, gdb *gorm.DB, ttl time.Duration) (usecase.CatalogSearcher, string, CachePurger, error) {
	cfg := googlebooks.LoadConfig()
	limiter := ratelimiter.NewRateLimiter(cfg.RatePerMinute, time.Minute)

	books, err := googlebooks.NewGoogleBooksCatalog(ctx, cfg, infrahttp.NewHTTPClient(cfg.Timeout), limiter)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	searcher, kind, purger := wrapCatalog(books, rdb, gdb, ttl)
	return searcher, kind, purger, nil
}

func wrapCatalog(inner usecase.CatalogSearcher, rdb *redis.Client, gdb *gorm.DB, ttl time.Duration) (usecase.CatalogSearcher, string, CachePurger) {
	switch {
	case rdb != nil:
		c := cache.NewCachingCatalog(rdb, ttl, inner, "catalog")
		return c, CacheRedis, c
	case gdb != nil:
		c := adapters.NewMatchCache(gdb, inner, ttl)
		return c, CacheSQL, sqlPurger{purge: c.PurgeExpired}
	default:
		return inner, CacheNone, noopPurger{}
	}
}
