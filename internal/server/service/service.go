package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"kbodata/internal/server/cache"
	"kbodata/internal/server/scraper"
	"kbodata/internal/server/storage"

	"go.uber.org/zap"
)

const (
	// BackfillStartMonth and BackfillEndMonth bound the season walked by BackfillSeason
	BackfillStartMonth = 3
	BackfillEndMonth   = 11

	healthCheckTimeout = 2 * time.Second
)

// Options carries the service settings taken from config
type Options struct {
	Location   *time.Location
	SeasonYear int
	// Now overrides the wall clock, nil means time.Now
	Now func() time.Time
}

// Service coordinates scraping, normalization, storage and the query cache
type Service struct {
	store   *storage.Store
	scraper scraper.Client
	cache   cache.Cache
	loc     *time.Location
	season  int
	log     *zap.Logger

	// ingestMu serializes ingestion runs
	ingestMu sync.Mutex
	now      func() time.Time
}

// New creates a new service instance; a nil cache disables caching
func New(store *storage.Store, client scraper.Client, c cache.Cache, opts Options, logger *zap.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:   store,
		scraper: client,
		cache:   c,
		loc:     opts.Location,
		season:  opts.SeasonYear,
		log:     logger.Named("service"),
		now:     opts.Now,
	}
}

// SeasonYear returns the default backfill season
func (s *Service) SeasonYear() int {
	return s.season
}

// Now returns the current time in the service timezone
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// GetStorageHealth returns the storage component status; a degraded store is
// pinged so it can recover without waiting for the next write
func (s *Service) GetStorageHealth(ctx context.Context) string {
	if s.store == nil {
		return "disabled"
	}
	if s.store.IsHealthy() {
		return "ok"
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("storage ping failed", zap.Error(err))
		return "degraded"
	}
	return "ok"
}

// GetCacheHealth returns the cache component status
func (s *Service) GetCacheHealth(ctx context.Context) string {
	if _, ok := s.cache.(cache.Noop); ok {
		return "disabled"
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := s.cache.Ping(ctx); err != nil {
		return "degraded"
	}
	return "ok"
}

// invalidate drops cached query results; failures only cost freshness
func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// readThrough serves key from cache, falling back to load and populating the cache on success
func readThrough[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	var v T
	ok, err := s.cache.Get(ctx, key, &v)
	if err != nil {
		s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}
	if ok {
		return v, nil
	}

	v, err = load(ctx)
	if err != nil {
		return v, err
	}

	if err := s.cache.Set(ctx, key, v); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}

// Shutdown releases the storage and cache connections
func (s *Service) Shutdown() error {
	var errs []error

	if closer, ok := s.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	return errors.Join(errs...)
}
