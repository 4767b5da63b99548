// Package config provides configuration loading, validation, and management for the
// access authority service. It supports YAML-based configuration files with
// validation and default value application.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gtriggiano/access-authority-service/pkg/logging"
	"gopkg.in/yaml.v3"
)

const (
	// Server timeouts
	defaultShutdownTimeout = 20 * time.Second
)

// Config models the complete application configuration: the gRPC authority
// service listener, the metrics/health HTTP server, logging, the set of
// backing authority stores, and graceful shutdown behavior.
type Config struct {
	// Server configures the gRPC access authority service listener.
	Server ServerConfig `yaml:"server"`
	// Metrics configures the HTTP server for Prometheus metrics and health endpoints.
	Metrics MetricsConfig `yaml:"metrics"`
	// Logging configures structured logging output and levels.
	Logging logging.Config `yaml:"logging"`
	// AuthorityStores defines the backing stores consulted to resolve a
	// principal's held authorizations. Every enabled store is consulted
	// concurrently for each principal; access is granted only when the
	// expression holds against every authorization set resolved this way.
	AuthorityStores []AuthorityStoreConfig `yaml:"authorityStores"`
	// Shutdown controls graceful shutdown behavior.
	Shutdown ShutdownConfig `yaml:"shutdown"`
}

// ServerConfig controls the gRPC listener and optional TLS settings.
type ServerConfig struct {
	// Address is the bind address for the gRPC server (e.g., ":9001").
	Address string `yaml:"address"`
	// TLS configures optional mutual TLS for the gRPC server.
	TLS *TLSConfig `yaml:"tls"`
	// MaxExpressionBytes bounds the size of an access expression accepted
	// over the wire. Zero means no additional bound beyond grammar limits.
	MaxExpressionBytes int `yaml:"maxExpressionBytes"`
}

// TLSConfig wraps TLS material locations for server certificates and client verification.
type TLSConfig struct {
	// CertFile is the path to the server certificate PEM file.
	CertFile string `yaml:"certFile"`
	// KeyFile is the path to the server private key PEM file.
	KeyFile string `yaml:"keyFile"`
	// CAFile is the optional path to a CA certificate for client cert verification.
	CAFile string `yaml:"caFile"`
	// RequireClientCert enables mutual TLS by requiring and verifying client certificates.
	RequireClientCert bool `yaml:"requireClientCert"`
}

// MetricsConfig controls the metrics/health HTTP server.
type MetricsConfig struct {
	// Address is the bind address for the metrics HTTP server (e.g., ":9090").
	Address string `yaml:"address"`
	// HealthPath is the liveness probe endpoint path.
	HealthPath string `yaml:"healthPath"`
	// ReadinessPath is the readiness probe endpoint path.
	ReadinessPath string `yaml:"readinessPath"`
	// DropPrefixes specifies metric name prefixes to filter out from the default Go runtime registry.
	DropPrefixes []string `yaml:"dropPrefixes"`
}

// AuthorityStoreConfig defines one authority store instance with its backend
// type and settings.
type AuthorityStoreConfig struct {
	// Name is the unique identifier for this store instance.
	Name string `yaml:"name"`
	// Type specifies the backend kind (e.g., "postgres", "redis").
	Type string `yaml:"type"`
	// Enabled allows conditional activation; defaults to true if omitted.
	Enabled *bool `yaml:"enabled"`
	// Settings contains backend-specific configuration as a map.
	Settings map[string]any `yaml:"settings"`
}

// ShutdownConfig holds graceful shutdown parameters.
type ShutdownConfig struct {
	// Timeout is the maximum duration to wait for graceful shutdown (e.g., "25s").
	Timeout string `yaml:"timeout"`
}

// Load reads, normalizes, and validates a configuration file from the specified path.
// It returns a fully validated Config instance or an error if loading or validation fails.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("a path to a configuration file is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read the configuration file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse the configuration file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures the configuration is ready for use by checking all required fields
// and validating nested configurations for the server, metrics, and authority stores.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if err := c.Server.validate(); err != nil {
		return err
	}

	if err := c.Metrics.validate(); err != nil {
		return err
	}

	if err := validateAuthorityStoreSet(c.AuthorityStores); err != nil {
		return err
	}

	return nil
}

// validateAuthorityStoreSet ensures all stores in the set have unique names and required fields.
func validateAuthorityStoreSet(stores []AuthorityStoreConfig) error {
	names := make(map[string]struct{})
	for _, store := range stores {
		if store.Name == "" {
			return errors.New("authority store name is required")
		}
		if store.Type == "" {
			return errors.New("authority store type is required")
		}
		if _, exists := names[store.Name]; exists {
			return fmt.Errorf("duplicate authority store name %s", store.Name)
		}
		names[store.Name] = struct{}{}
	}
	return nil
}

// applyDefaults populates configuration fields with sensible default values when they
// are not explicitly specified in the configuration file.
func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":9001"
	}

	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Metrics.HealthPath == "" {
		c.Metrics.HealthPath = "/healthz"
	}
	if c.Metrics.ReadinessPath == "" {
		c.Metrics.ReadinessPath = "/readyz"
	}
	if c.Metrics.DropPrefixes == nil {
		c.Metrics.DropPrefixes = []string{"go_", "process_", "promhttp_"}
	}

	if c.Shutdown.Timeout == "" {
		c.Shutdown.Timeout = "20s"
	}

	c.resolveTLSPaths()
}

// validate ensures the server address is configured and TLS configuration is complete when TLS is enabled.
func (s ServerConfig) validate() error {
	if s.Address == "" {
		return errors.New("configuration 'server.address' is required")
	}

	if s.TLS == nil {
		return nil
	}

	return s.TLS.validate()
}

// validate ensures TLS certificate and key files exist and are accessible.
func (t TLSConfig) validate() error {
	if t.CertFile == "" || t.KeyFile == "" {
		return errors.New("configuration 'server.tls.certFile' and 'server.tls.keyFile' are required when TLS is enabled")
	}

	if t.RequireClientCert && t.CAFile == "" {
		return errors.New("configuration 'server.tls.caFile' is required when 'server.tls.requireClientCert' is true")
	}

	for _, filePath := range []string{t.CertFile, t.KeyFile, t.CAFile} {
		if filePath == "" {
			continue
		}
		if err := fileExists(filePath); err != nil {
			return err
		}
	}
	return nil
}

// validate ensures the metrics server address is configured.
func (m MetricsConfig) validate() error {
	if m.Address == "" {
		return errors.New("configuration 'metrics.address' is required")
	}
	return nil
}

// IsEnabled returns true if the authority store should be consulted. Stores are
// enabled by default unless explicitly set to false in the configuration.
func (c AuthorityStoreConfig) IsEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// ShutdownTimeout returns the parsed graceful shutdown deadline. It defaults to 20 seconds
// if the timeout string is empty or cannot be parsed.
func (c ShutdownConfig) ShutdownTimeout() time.Duration {
	if c.Timeout == "" {
		return defaultShutdownTimeout
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return defaultShutdownTimeout
	}
	return d
}

// fileExists verifies that a file exists at the specified path.
// It returns an error if the path is empty or the file is not accessible.
func fileExists(path string) error {
	if path == "" {
		return errors.New("path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return nil
}

// resolveTLSPaths converts relative TLS file paths to absolute paths based on the current
// working directory. This ensures consistent path resolution regardless of where the
// server binary is invoked from.
func (c *Config) resolveTLSPaths() {
	if c.Server.TLS == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	if c.Server.TLS.CertFile != "" && !filepath.IsAbs(c.Server.TLS.CertFile) {
		c.Server.TLS.CertFile = filepath.Join(cwd, c.Server.TLS.CertFile)
	}
	if c.Server.TLS.KeyFile != "" && !filepath.IsAbs(c.Server.TLS.KeyFile) {
		c.Server.TLS.KeyFile = filepath.Join(cwd, c.Server.TLS.KeyFile)
	}
	if c.Server.TLS.CAFile != "" && !filepath.IsAbs(c.Server.TLS.CAFile) {
		c.Server.TLS.CAFile = filepath.Join(cwd, c.Server.TLS.CAFile)
	}
}

// EnabledAuthorityStoreNames returns the list of enabled authority store names.
func (c *Config) EnabledAuthorityStoreNames() []string {
	names := make([]string, 0, len(c.AuthorityStores))
	for _, store := range c.AuthorityStores {
		if store.Name != "" && store.IsEnabled() {
			names = append(names, store.Name)
		}
	}
	return names
}
