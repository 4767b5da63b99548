package authority

import (
	"fmt"
	"os"
)

// RedisConfig represents Redis-specific configuration. The principal's
// authorizations are read from the Redis set at KeyPrefix+principal via
// SMEMBERS.
type RedisConfig struct {
	KeyPrefix   string          `yaml:"keyPrefix"`
	Host        string          `yaml:"host"`
	Port        int             `yaml:"port"`
	UsernameEnv string          `yaml:"usernameEnv"`
	PasswordEnv string          `yaml:"passwordEnv"`
	DB          int             `yaml:"db"`
	TLS         *RedisTLSConfig `yaml:"tls"`
}

// RedisTLSConfig represents TLS configuration for Redis.
type RedisTLSConfig struct {
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	CACert             string `yaml:"caCert"`
	ClientCert         string `yaml:"clientCert"`
	ClientKey          string `yaml:"clientKey"`
}

// ApplyDefaults sets default values for the redis configuration.
func (c *RedisConfig) ApplyDefaults() {
	if c != nil {
		if c.Port == 0 {
			c.Port = defaultRedisPort
		}
	}
}

// validateRedisConfig checks the Redis-specific configuration.
func (c *BackendConfig) validateRedisConfig() error {
	if c.Database.Redis == nil {
		return fmt.Errorf("database.redis configuration is required when database.type is 'redis'")
	}

	redisCfg := c.Database.Redis

	if redisCfg.KeyPrefix == "" {
		return fmt.Errorf("database.redis.keyPrefix is required")
	}
	if redisCfg.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if redisCfg.Port < 1 || redisCfg.Port > 65535 {
		return fmt.Errorf("database.redis.port must be between 1 and 65535")
	}
	if redisCfg.DB < 0 {
		return fmt.Errorf("database.redis.db must be non-negative")
	}

	if redisCfg.UsernameEnv != "" {
		if _, exists := os.LookupEnv(redisCfg.UsernameEnv); !exists {
			return fmt.Errorf("environment variable '%s' not found", redisCfg.UsernameEnv)
		}
	}
	if redisCfg.PasswordEnv != "" {
		if _, exists := os.LookupEnv(redisCfg.PasswordEnv); !exists {
			return fmt.Errorf("environment variable '%s' not found", redisCfg.PasswordEnv)
		}
	}

	if redisCfg.TLS != nil {
		if err := validateRedisTLS(redisCfg.TLS); err != nil {
			return fmt.Errorf("invalid redis TLS configuration: %w", err)
		}
	}

	return nil
}

// validateRedisTLS ensures optional Redis TLS settings point to valid certificates/keys and are consistent.
func validateRedisTLS(tlsCfg *RedisTLSConfig) error {
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
