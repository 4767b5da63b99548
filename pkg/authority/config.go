package authority

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const (
	DefaultDatabaseConnectionTimeout = 500 * time.Millisecond
	defaultPostgresPort              = 5432
	defaultRedisPort                 = 6379
)

// BackendConfig is the decoded settings of one authority store backend.
type BackendConfig struct {
	// PermissiveOnFailure controls what happens when the backend cannot be
	// reached: true excludes the store from the access decision instead of
	// returning the failure as an error.
	PermissiveOnFailure bool           `yaml:"permissiveOnFailure"`
	Cache               *CacheConfig   `yaml:"cache"`
	Database            DatabaseConfig `yaml:"database"`
}

// CacheConfig represents the caching configuration.
type CacheConfig struct {
	TTL string `yaml:"ttl"`
}

// DatabaseConfig represents the backend database configuration.
type DatabaseConfig struct {
	Type              string          `yaml:"type"`
	ConnectionTimeout string          `yaml:"connectionTimeout"`
	Redis             *RedisConfig    `yaml:"redis"`
	Postgres          *PostgresConfig `yaml:"postgres"`
}

// ApplyDefaults sets default values for the configuration.
func (c *BackendConfig) ApplyDefaults() {
	c.Database.Redis.ApplyDefaults()
	c.Database.Postgres.ApplyDefaults()
}

// Validate checks the configuration for completeness and correctness.
func (c *BackendConfig) Validate() error {
	if c.Cache != nil {
		if c.Cache.TTL == "" {
			return fmt.Errorf("cache.ttl is required when cache is configured")
		}
		cacheTTL, err := time.ParseDuration(c.Cache.TTL)
		if err != nil {
			return fmt.Errorf("invalid cache.ttl: %w", err)
		}
		if cacheTTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive")
		}
	}

	if c.Database.ConnectionTimeout != "" {
		databaseTimeout, err := time.ParseDuration(c.Database.ConnectionTimeout)
		if err != nil {
			return fmt.Errorf("invalid database.connectionTimeout: %w", err)
		}
		if databaseTimeout <= 0 {
			return fmt.Errorf("database.connectionTimeout must be positive")
		}
	}

	switch c.Database.Type {
	case "redis":
		if err := c.validateRedisConfig(); err != nil {
			return err
		}
	case "postgres":
		if err := c.validatePostgresConfig(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("database.type must be 'redis' or 'postgres', got '%s'", c.Database.Type)
	}

	return nil
}

// GetCacheTTL returns the parsed cache TTL duration, or 0 if caching is disabled.
func (c *BackendConfig) GetCacheTTL() time.Duration {
	if c.Cache == nil || c.Cache.TTL == "" {
		return 0
	}
	ttl, _ := time.ParseDuration(c.Cache.TTL)
	return ttl
}

// GetDatabaseConnectionTimeout returns the parsed database connection
// timeout, or a default if not specified.
func (c *BackendConfig) GetDatabaseConnectionTimeout() time.Duration {
	if c.Database.ConnectionTimeout == "" {
		return DefaultDatabaseConnectionTimeout
	}
	timeout, _ := time.ParseDuration(c.Database.ConnectionTimeout)
	if timeout <= 0 {
		return DefaultDatabaseConnectionTimeout
	}
	return timeout
}

// validateCertificateFile checks that a certificate file exists, is
// readable, and contains valid PEM data.
func validateCertificateFile(path string, description string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%s path is not valid: %w", description, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("could not read %s file: %w", description, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%s file is empty", description)
	}

	certPool := x509.NewCertPool()
	if !certPool.AppendCertsFromPEM(data) {
		return fmt.Errorf("%s file does not contain valid PEM-encoded certificate(s)", description)
	}
	return nil
}

// validateKeyFile checks that a private key file exists, is readable, and
// contains valid PEM data.
func validateKeyFile(path string, description string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%s path is not valid: %w", description, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return fmt.Errorf("could not read %s file: %w", description, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%s file is empty", description)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return fmt.Errorf("%s file does not contain valid PEM-encoded data", description)
	}

	keyTypes := []string{"RSA PRIVATE KEY", "EC PRIVATE KEY", "PRIVATE KEY", "ENCRYPTED PRIVATE KEY"}
	if !slices.Contains(keyTypes, block.Type) {
		return fmt.Errorf("%s file does not contain a valid private key (found PEM type: %s)", description, block.Type)
	}
	return nil
}
