package pricesource

import (
	"context"
	"time"

	"github.com/wonny/portfolio-analyzer/internal/contracts"
	"github.com/wonny/portfolio-analyzer/pkg/logger"
	"github.com/wonny/portfolio-analyzer/pkg/redis"
)

// TableCache is the subset of *redis.Cache used by CachedSource
type TableCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedSource wraps a Source and caches loaded tables by request hash.
// Cache errors are logged and never fail a load.
type CachedSource struct {
	next   Source
	cache  TableCache
	name   string
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedSource wraps next. name distinguishes sources sharing a cache.
func NewCachedSource(next Source, cache TableCache, name string, ttl time.Duration, log *logger.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CachedSource{next: next, cache: cache, name: name, ttl: ttl, logger: log}
}

// Load serves from cache when possible, otherwise loads and stores
func (s *CachedSource) Load(ctx context.Context, req Request) (*contracts.PriceTable, error) {
	key := redis.PriceTableKey(s.name, req.Hash())
	log := s.logger.WithField("key", key)

	var cached contracts.PriceTable
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.WithError(err).Warn("Price cache read failed")
	}
	if hit {
		if err := cached.Validate(); err == nil {
			log.Debug("Price cache hit")
			return &cached, nil
		}
		log.Warn("Cached price table invalid, reloading")
	}

	table, err := s.next.Load(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, table, s.ttl); err != nil {
		log.WithError(err).Warn("Price cache write failed")
	}
	return table, nil
}
