// Package cache provides caching decorators for catalog lookups.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"shelfscan_backend/internal/feature/bookdetection/domain/entity"
	"shelfscan_backend/internal/feature/bookdetection/usecase"
	"shelfscan_backend/internal/shared/textnorm"
)

const (
	defaultHitTTL    = 24 * time.Hour
	defaultMissTTL   = 30 * time.Minute
	defaultNamespace = "catalog"
)

// CachingCatalog decorates a CatalogSearcher with Redis caching.
// Empty results are cached too, with a shorter TTL, so repeated scans of the same
// unreadable spine do not spend catalog quota.
type CachingCatalog struct {
	inner     usecase.CatalogSearcher
	rdb       *redis.Client
	ttl       time.Duration
	missTTL   time.Duration
	namespace string
}

var _ usecase.CatalogSearcher = (*CachingCatalog)(nil)

// NewCachingCatalog decorates a CatalogSearcher with Redis caching.
// If ttl is 0, it defaults to 24 hours; misses are kept for min(ttl, 30 minutes).
// If namespace is empty, it uses "catalog".
func NewCachingCatalog(rdb *redis.Client, ttl time.Duration, inner usecase.CatalogSearcher, namespace string) *CachingCatalog {
	if ttl <= 0 {
		ttl = defaultHitTTL
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &CachingCatalog{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		missTTL:   min(ttl, defaultMissTTL),
		namespace: namespace,
	}
}

// Search returns cached records when present, otherwise queries the inner catalog and stores the result.
// Errors from the inner catalog are never cached.
func (c *CachingCatalog) Search(ctx context.Context, query string, limit int) ([]entity.CatalogRecord, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.Search(ctx, query, limit)
	}

	key := c.cacheKey(query, limit)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.CatalogRecord
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to the catalog
	out, err := c.inner.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []entity.CatalogRecord{}
	}

	// 3) Store in cache (best effort)
	ttl := c.ttl
	if len(out) == 0 {
		ttl = c.missTTL
	}
	if b, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, b, ttl).Err(); err != nil {
			slog.Warn("failed to cache catalog lookup", "key", key, "error", err)
		}
	}

	return out, nil
}

// Purge deletes every cached lookup in this namespace and returns the number of keys removed.
func (c *CachingCatalog) Purge(ctx context.Context) (int, error) {
	if c.rdb == nil {
		return 0, nil
	}
	return c.deleteByPattern(ctx, c.namespace+":*")
}

// cacheKey generates a cache key for a normalized query.
func (c *CachingCatalog) cacheKey(query string, limit int) string {
	return fmt.Sprintf("%s:%s:%d",
		c.namespace,
		safe(textnorm.NormalizeTitle(query)),
		limit,
	)
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingCatalog) deleteByPattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return deleted, err
			}
			deleted += len(keys)
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return deleted, nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
