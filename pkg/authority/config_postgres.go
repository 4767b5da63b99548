package authority

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// PostgresConfig represents PostgreSQL-specific configuration. Query must
// select a single column of authorization strings for the principal bound
// as its sole $1 parameter.
type PostgresConfig struct {
	Query        string              `yaml:"query"`
	Host         string              `yaml:"host"`
	Port         int                 `yaml:"port"`
	DatabaseName string              `yaml:"databaseName"`
	UsernameEnv  string              `yaml:"usernameEnv"`
	PasswordEnv  string              `yaml:"passwordEnv"`
	Pool         *PostgresPoolConfig `yaml:"pool"`
	TLS          *PostgresTLSConfig  `yaml:"tls"`
}

// PostgresPoolConfig represents connection pool configuration.
type PostgresPoolConfig struct {
	MaxConnections    int    `yaml:"maxConnections"`
	MinConnections    int    `yaml:"minConnections"`
	MaxIdleTime       string `yaml:"maxIdleTime"`
	ConnectionTimeout string `yaml:"connectionTimeout"`
}

// PostgresTLSConfig represents TLS configuration for PostgreSQL.
type PostgresTLSConfig struct {
	Mode       string `yaml:"mode"`
	CACert     string `yaml:"caCert"`
	ClientCert string `yaml:"clientCert"`
	ClientKey  string `yaml:"clientKey"`
}

// ApplyDefaults sets default values for the postgres configuration.
func (c *PostgresConfig) ApplyDefaults() {
	if c != nil {
		if c.Port == 0 {
			c.Port = defaultPostgresPort
		}
	}
}

// validatePostgresConfig checks the PostgreSQL-specific configuration.
func (c *BackendConfig) validatePostgresConfig() error {
	if c.Database.Postgres == nil {
		return fmt.Errorf("database.postgres configuration is required when database.type is 'postgres'")
	}

	pg := c.Database.Postgres

	if pg.Query == "" {
		return fmt.Errorf("database.postgres.query is required")
	}

	placeholderRegex := regexp.MustCompile(`\$\d+`)
	matches := placeholderRegex.FindAllString(pg.Query, -1)
	if len(matches) != 1 {
		return fmt.Errorf("database.postgres.query must contain exactly one parameter placeholder ($1), found %d", len(matches))
	}
	if matches[0] != "$1" {
		return fmt.Errorf("database.postgres.query must use $1 as the parameter placeholder, found %s", matches[0])
	}

	if pg.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}

	if pg.Port < 1 || pg.Port > 65535 {
		return fmt.Errorf("database.postgres.port must be between 1 and 65535")
	}

	if pg.DatabaseName == "" {
		return fmt.Errorf("database.postgres.databaseName is required")
	}

	if pg.UsernameEnv == "" {
		return fmt.Errorf("database.postgres.usernameEnv is required")
	}
	if pg.PasswordEnv == "" {
		return fmt.Errorf("database.postgres.passwordEnv is required")
	}

	if _, exists := os.LookupEnv(pg.UsernameEnv); !exists {
		return fmt.Errorf("environment variable '%s' not found", pg.UsernameEnv)
	}
	if _, exists := os.LookupEnv(pg.PasswordEnv); !exists {
		return fmt.Errorf("environment variable '%s' not found", pg.PasswordEnv)
	}

	if pg.Pool != nil {
		if err := validatePostgresPoolConfig(pg.Pool); err != nil {
			return fmt.Errorf("invalid pool configuration: %w", err)
		}
	}

	if pg.TLS != nil {
		if err := validatePostgresTLS(pg.TLS); err != nil {
			return fmt.Errorf("invalid postgres TLS configuration: %w", err)
		}
	}

	return nil
}

// validatePostgresPoolConfig checks pool sizing and timing values for correctness.
func validatePostgresPoolConfig(pool *PostgresPoolConfig) error {
	if pool.MaxConnections <= 0 {
		return fmt.Errorf("pool.maxConnections must be greater than 0")
	}
	if pool.MinConnections < 0 {
		return fmt.Errorf("pool.minConnections must be non-negative")
	}
	if pool.MinConnections > pool.MaxConnections {
		return fmt.Errorf("pool.minConnections (%d) must not exceed pool.maxConnections (%d)", pool.MinConnections, pool.MaxConnections)
	}

	if pool.MaxIdleTime != "" {
		poolMaxIdleTime, err := time.ParseDuration(pool.MaxIdleTime)
		if err != nil {
			return fmt.Errorf("invalid pool.maxIdleTime: %w", err)
		}
		if poolMaxIdleTime < 0 {
			return fmt.Errorf("pool.maxIdleTime must be non-negative")
		}
	}

	if pool.ConnectionTimeout != "" {
		timeout, err := time.ParseDuration(pool.ConnectionTimeout)
		if err != nil {
			return fmt.Errorf("invalid pool.connectionTimeout: %w", err)
		}
		if timeout <= 0 {
			return fmt.Errorf("pool.connectionTimeout must be positive")
		}
	}

	return nil
}

// validatePostgresTLS ensures SSL mode is valid and any certificate/key files are usable.
func validatePostgresTLS(tlsCfg *PostgresTLSConfig) error {
	validModes := []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	if tlsCfg.Mode != "" {
		valid := false
		for _, mode := range validModes {
			if tlsCfg.Mode == mode {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid ssl mode '%s', must be one of: %s", tlsCfg.Mode, strings.Join(validModes, ", "))
		}
	}

	if tlsCfg.CACert != "" {
		if err := validateCertificateFile(tlsCfg.CACert, "CA certificate"); err != nil {
			return err
		}
	}
	if tlsCfg.ClientCert != "" {
		if err := validateCertificateFile(tlsCfg.ClientCert, "client certificate"); err != nil {
			return err
		}
	}
	if tlsCfg.ClientKey != "" {
		if err := validateKeyFile(tlsCfg.ClientKey, "client key"); err != nil {
			return err
		}
	}

	if (tlsCfg.ClientCert != "" && tlsCfg.ClientKey == "") || (tlsCfg.ClientCert == "" && tlsCfg.ClientKey != "") {
		return fmt.Errorf("both clientCert and clientKey must be provided for mutual TLS")
	}

	return nil
}
