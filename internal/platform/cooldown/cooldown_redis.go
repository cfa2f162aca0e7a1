// Package cooldown shares provider rate-limit cooldowns across replicas through Redis.
package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shelfscan_backend/internal/feature/bookdetection/usecase"
)

const defaultPrefix = "cooldown"

// CooldownRedis implements usecase.CooldownStore using Redis.
// One key per provider holds the last rate-limit time and expires with the cooldown window.
type CooldownRedis struct {
	client *redis.Client
	prefix string
	window time.Duration
}

var _ usecase.CooldownStore = (*CooldownRedis)(nil)

// NewCooldownRedis creates a new CooldownRedis instance.
// If window is 0 or negative, usecase.DefaultCooldown is used.
func NewCooldownRedis(client *redis.Client, prefix string, window time.Duration) *CooldownRedis {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if window <= 0 {
		window = usecase.DefaultCooldown
	}
	return &CooldownRedis{
		client: client,
		prefix: prefix,
		window: window,
	}
}

// key returns the Redis key for a provider.
func (r *CooldownRedis) key(provider string) string {
	return fmt.Sprintf("%s:%s", r.prefix, provider)
}

// LastRateLimited returns when provider was last rate limited, if the key has not expired yet.
func (r *CooldownRedis) LastRateLimited(ctx context.Context, provider string) (time.Time, bool, error) {
	val, err := r.client.Get(ctx, r.key(provider)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}

	at, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse cooldown timestamp: %w", err)
	}
	return at, true, nil
}

// MarkRateLimited records at as the provider's last rate-limit time.
func (r *CooldownRedis) MarkRateLimited(ctx context.Context, provider string, at time.Time) error {
	return r.client.Set(ctx, r.key(provider), at.UTC().Format(time.RFC3339Nano), r.window).Err()
}
