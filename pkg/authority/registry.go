// Package authority resolves a principal's held authorizations from one or
// more pluggable backing stores (Postgres, Redis, ...) and adapts the
// result into pkg/access authorization sets.
package authority

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v2"

	"github.com/gtriggiano/access-authority-service/pkg/config"
	"github.com/gtriggiano/access-authority-service/pkg/metrics"
)

// DataSourceFactory builds a DataSource from backend-specific settings.
type DataSourceFactory func(ctx context.Context, logger *zap.Logger, cfg BackendConfig) (DataSource, error)

type registry[T any] struct {
	mu        sync.RWMutex
	factories map[string]T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{factories: make(map[string]T)}
}

var dataSourceFactories = newRegistry[DataSourceFactory]()

// RegisterDataSourceFactory associates a backend type with a factory.
func RegisterDataSourceFactory(kind string, factory DataSourceFactory) {
	if err := register(dataSourceFactories, kind, factory); err != nil {
		panic(err)
	}
}

func register[T any](reg *registry[T], kind string, factory T) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if kind == "" {
		return fmt.Errorf("data source factory kind cannot be empty")
	}
	if _, exists := reg.factories[kind]; exists {
		return fmt.Errorf("data source factory for '%s' is already registered", kind)
	}
	reg.factories[kind] = factory
	return nil
}

func getFactory[T any](reg *registry[T], kind string) (T, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	f, ok := reg.factories[kind]
	return f, ok
}

// BuildStores constructs a Store for every enabled authority store
// definition in the configuration.
func BuildStores(ctx context.Context, logger *zap.Logger, inst *metrics.Instrumentation, configurations []config.AuthorityStoreConfig) ([]*Store, error) {
	stores := make([]*Store, 0, len(configurations))
	for _, configuration := range configurations {
		if !configuration.IsEnabled() {
			continue
		}

		var backendConfig BackendConfig
		if err := DecodeStoreSettings(configuration.Settings, &backendConfig); err != nil {
			return nil, fmt.Errorf("failed to decode settings for authority store '%s': %w", configuration.Name, err)
		}
		backendConfig.ApplyDefaults()
		if err := backendConfig.Validate(); err != nil {
			return nil, fmt.Errorf("configuration validation failed for authority store '%s': %w", configuration.Name, err)
		}

		factory, ok := getFactory(dataSourceFactories, backendConfig.Database.Type)
		if !ok {
			return nil, fmt.Errorf("authority store '%s' has unknown backend type '%s'", configuration.Name, backendConfig.Database.Type)
		}

		storeLogger := logger.With(zap.String("store_name", configuration.Name), zap.String("store_type", configuration.Type))

		initCtx, cancel := context.WithTimeout(ctx, backendConfig.GetDatabaseConnectionTimeout())
		dataSource, err := factory(initCtx, storeLogger, backendConfig)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("could not build authority store '%s' of type '%s': %w", configuration.Name, backendConfig.Database.Type, err)
		}

		var cache *Cache
		if ttl := backendConfig.GetCacheTTL(); ttl > 0 {
			cache = NewCache(ttl)
			storeLogger.Info("caching enabled", zap.Duration("ttl", ttl))
		} else {
			storeLogger.Info("caching disabled")
		}

		go func() {
			<-ctx.Done()
			if err := dataSource.Close(); err != nil {
				storeLogger.Error("failed to close data source", zap.Error(err))
			}
		}()

		stores = append(stores, &Store{
			name:                configuration.Name,
			permissiveOnFailure: backendConfig.PermissiveOnFailure,
			dataSource:          dataSource,
			cache:               cache,
			dbType:              backendConfig.Database.Type,
			instrumentation:     inst,
			logger:              storeLogger,
		})

		storeLogger.Info("authority store initialized",
			zap.String("db_type", backendConfig.Database.Type),
			zap.Bool("permissiveOnFailure", backendConfig.PermissiveOnFailure),
		)
	}
	return stores, nil
}

// DecodeStoreSettings marshals the untyped settings map into the provided
// struct pointer using YAML for convenience.
func DecodeStoreSettings(settings map[string]any, target any) error {
	if settings == nil {
		return nil
	}
	raw, err := yaml.Marshal(settings)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, target)
}
