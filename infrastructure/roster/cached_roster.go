package roster

import (
	"context"
	"time"

	"memgraph/application/ports"
	"memgraph/domain/services/synthesis"
	"memgraph/infrastructure/cache"
)

const cacheKey = "roster:agents"

// CachedRoster serves roster lookups from a TTL cache. Failures are not
// cached.
type CachedRoster struct {
	inner ports.AgentRoster
	cache *cache.InMemoryCache
	ttl   time.Duration
}

// NewCachedRoster wraps a roster. A zero ttl disables caching.
func NewCachedRoster(inner ports.AgentRoster, c *cache.InMemoryCache, ttl time.Duration) *CachedRoster {
	return &CachedRoster{inner: inner, cache: c, ttl: ttl}
}

// List implements ports.AgentRoster
func (r *CachedRoster) List(ctx context.Context) ([]synthesis.Agent, error) {
	if r.ttl > 0 {
		if cached, ok := r.cache.Get(ctx, cacheKey); ok {
			return cached.([]synthesis.Agent), nil
		}
	}

	agents, err := r.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	if r.ttl > 0 {
		r.cache.Set(ctx, cacheKey, agents, r.ttl)
	}
	return agents, nil
}
