package authority

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gtriggiano/access-authority-service/pkg/access"
	"github.com/gtriggiano/access-authority-service/pkg/metrics"
)

// Store resolves a principal's authorization set from one backend,
// transparently caching results when a TTL cache is configured.
type Store struct {
	name                string
	permissiveOnFailure bool
	dataSource          DataSource
	cache               *Cache
	dbType              string
	instrumentation     *metrics.Instrumentation
	logger              *zap.Logger
}

// Name returns the store's configured name.
func (s *Store) Name() string {
	return s.name
}

// HealthCheck verifies connectivity to the backing data source.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.dataSource.HealthCheck(ctx)
}

// AuthorizationSet resolves principal's authorizations from this store. The
// bool result reports whether the returned set should gate the access
// decision: it is false whenever the backend failed. A permissive-on-failure
// store then returns a nil error, and callers should exclude the store from
// the decision rather than treat an empty set as a denial; any other store
// returns the backend error.
func (s *Store) AuthorizationSet(ctx context.Context, principal string) (access.AuthorizationSet, bool, error) {
	var auths []string
	var err error

	if s.cache != nil {
		if cached, found := s.cache.Get(principal); found {
			s.observeCacheHit()
			s.logger.Debug("cache hit", zap.String("principal", principal))
			auths = cached
		} else {
			s.observeCacheMiss()
			s.logger.Debug("cache miss", zap.String("principal", principal))
			auths, err = s.queryDataSource(ctx, principal)
			if err == nil {
				s.cache.Set(principal, auths)
				s.observeCacheSize()
			}
		}
	} else {
		auths, err = s.queryDataSource(ctx, principal)
	}

	if err != nil {
		s.observeUnavailable()
		if s.permissiveOnFailure {
			s.logger.Warn("authority store unavailable, excluding from decision",
				zap.String("principal", principal), zap.Error(err))
			s.observeRequest(false, false)
			return access.AuthorizationSet{}, false, nil
		}
		s.logger.Warn("authority store unavailable", zap.String("principal", principal), zap.Error(err))
		s.observeRequest(false, true)
		return access.AuthorizationSet{}, false, fmt.Errorf("authority store %q: %w", s.name, err)
	}

	s.observeRequest(true, false)
	return access.NewAuthorizationSet(auths...), true, nil
}

// queryDataSource queries the data source with instrumentation and logging.
func (s *Store) queryDataSource(ctx context.Context, principal string) ([]string, error) {
	start := time.Now()
	auths, err := s.dataSource.Authorizations(ctx, principal)
	duration := time.Since(start)

	logFields := []zap.Field{
		zap.String("principal", principal),
		zap.String("db_type", s.dbType),
		zap.Duration("duration", duration),
	}
	if err != nil {
		logFields = append(logFields, zap.Error(err))
	} else {
		logFields = append(logFields, zap.Int("authorizations", len(auths)))
	}
	s.logger.Debug("data source query", logFields...)

	s.observeQuery(len(auths), err, duration)
	return auths, err
}

func (s *Store) observeRequest(success bool, denied bool) {
	s.instrumentation.ObserveAuthorityStoreRequest(s.name, s.dbType, success, denied)
}

func (s *Store) observeQuery(resultCount int, err error, duration time.Duration) {
	s.instrumentation.ObserveAuthorityStoreQuery(s.name, s.dbType, resultCount, err, duration)
}

func (s *Store) observeCacheHit() {
	s.instrumentation.ObserveAuthorityStoreCacheHit(s.name, s.dbType)
}

func (s *Store) observeCacheMiss() {
	s.instrumentation.ObserveAuthorityStoreCacheMiss(s.name, s.dbType)
}

func (s *Store) observeCacheSize() {
	if s.cache == nil {
		return
	}
	s.instrumentation.ObserveAuthorityStoreCacheSize(s.name, s.dbType, s.cache.Size())
}

func (s *Store) observeUnavailable() {
	s.instrumentation.ObserveAuthorityStoreUnavailable(s.name, s.dbType)
}

func init() {
	RegisterDataSourceFactory("postgres", func(ctx context.Context, logger *zap.Logger, cfg BackendConfig) (DataSource, error) {
		ds, err := NewPostgresDataSource(ctx, cfg.Database.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL data source: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			zap.String("host", cfg.Database.Postgres.Host),
			zap.Int("port", cfg.Database.Postgres.Port),
			zap.String("database", cfg.Database.Postgres.DatabaseName),
		)
		return ds, nil
	})

	RegisterDataSourceFactory("redis", func(ctx context.Context, logger *zap.Logger, cfg BackendConfig) (DataSource, error) {
		ds, err := NewRedisDataSource(ctx, cfg.Database.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis data source: %w", err)
		}
		logger.Info("connected to Redis",
			zap.String("host", cfg.Database.Redis.Host),
			zap.Int("port", cfg.Database.Redis.Port),
			zap.Int("db", cfg.Database.Redis.DB),
		)
		return ds, nil
	})
}
