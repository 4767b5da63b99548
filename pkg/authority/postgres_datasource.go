package authority

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDataSource implements DataSource for PostgreSQL.
type PostgresDataSource struct {
	pool  *pgxpool.Pool
	query string
}

// NewPostgresDataSource creates a new PostgreSQL data source from configuration.
func NewPostgresDataSource(ctx context.Context, config *PostgresConfig) (*PostgresDataSource, error) {
	if config == nil {
		return nil, fmt.Errorf("postgres configuration is required")
	}

	username := os.Getenv(config.UsernameEnv)
	if username == "" {
		return nil, fmt.Errorf("username is empty in environment variable '%s'", config.UsernameEnv)
	}

	password := os.Getenv(config.PasswordEnv)
	if password == "" {
		return nil, fmt.Errorf("password is empty in environment variable '%s'", config.PasswordEnv)
	}

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		username,
		password,
		config.Host,
		config.Port,
		config.DatabaseName,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.ConnectTimeout = 5 * time.Second

	if config.Pool != nil {
		if config.Pool.MaxConnections > 0 {
			poolConfig.MaxConns = int32(config.Pool.MaxConnections)
		}
		if config.Pool.MinConnections >= 0 {
			poolConfig.MinConns = int32(config.Pool.MinConnections)
		}
		if config.Pool.MaxIdleTime != "" {
			maxIdleTime, err := time.ParseDuration(config.Pool.MaxIdleTime)
			if err == nil && maxIdleTime > 0 {
				poolConfig.MaxConnIdleTime = maxIdleTime
			}
		}
		if config.Pool.ConnectionTimeout != "" {
			connTimeout, err := time.ParseDuration(config.Pool.ConnectionTimeout)
			if err == nil && connTimeout > 0 {
				poolConfig.ConnConfig.ConnectTimeout = connTimeout
			}
		}
	}

	if config.TLS != nil {
		tlsConfig, sslMode, err := buildPostgresTLSConfig(config.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to build TLS configuration: %w", err)
		}
		if tlsConfig != nil {
			poolConfig.ConnConfig.TLSConfig = tlsConfig
		}
		if sslMode != "" {
			poolConfig.ConnConfig.RuntimeParams["sslmode"] = sslMode
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &PostgresDataSource{
		pool:  pool,
		query: config.Query,
	}, nil
}

// Authorizations runs the configured query with principal bound as $1 and
// collects the single-column result into a slice of authorization strings.
func (p *PostgresDataSource) Authorizations(ctx context.Context, principal string) ([]string, error) {
	rows, err := p.pool.Query(ctx, p.query, principal)
	if err != nil {
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}
	defer rows.Close()

	var auths []string
	for rows.Next() {
		var auth string
		if err := rows.Scan(&auth); err != nil {
			return nil, fmt.Errorf("postgres row scan failed: %w", err)
		}
		auths = append(auths, auth)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}

	return auths, nil
}

// Close releases PostgreSQL pool resources.
func (p *PostgresDataSource) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// HealthCheck verifies connectivity to PostgreSQL.
func (p *PostgresDataSource) HealthCheck(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// buildPostgresTLSConfig creates a TLS configuration from the provided
// settings. Returns (tlsConfig, sslMode, error).
func buildPostgresTLSConfig(config *PostgresTLSConfig) (*tls.Config, string, error) {
	sslMode := "prefer"
	if config.Mode != "" {
		sslMode = config.Mode
	}

	if sslMode == "disable" {
		return nil, sslMode, nil
	}

	tlsConfig := &tls.Config{}

	if config.CACert != "" {
		caCertData, err := os.ReadFile(config.CACert)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read CA certificate file '%s': %w", config.CACert, err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCertData) {
			return nil, "", fmt.Errorf("failed to parse CA certificate from file '%s'", config.CACert)
		}
		tlsConfig.RootCAs = caCertPool
	}

	if config.ClientCert != "" && config.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(config.ClientCert, config.ClientKey)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load client certificate pair: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, sslMode, nil
}

