package authority

import "testing"

func TestValidateRedisConfig(t *testing.T) {
	validConfig := func() *BackendConfig {
		return &BackendConfig{
			Database: DatabaseConfig{
				Type: "redis",
				Redis: &RedisConfig{
					KeyPrefix: "auth:",
					Host:      "localhost",
					Port:      6379,
				},
			},
		}
	}

	t.Run("valid configuration passes", func(t *testing.T) {
		if err := validConfig().Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing redis section fails", func(t *testing.T) {
		cfg := &BackendConfig{Database: DatabaseConfig{Type: "redis"}}
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for missing redis configuration")
		}
	})

	t.Run("missing key prefix fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.Redis.KeyPrefix = ""
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for missing key prefix")
		}
	})

	t.Run("missing host fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.Redis.Host = ""
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for missing host")
		}
	})

	t.Run("invalid port fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.Redis.Port = 0
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for invalid port")
		}
	})

	t.Run("negative db fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.Redis.DB = -1
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for negative db")
		}
	})

	t.Run("unset username env fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.Redis.UsernameEnv = "AUTHORITY_REDIS_USER_MISSING"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error for unset username env")
		}
	})

	t.Run("applies default port", func(t *testing.T) {
		cfg := validConfig()
		cfg.Database.Redis.Port = 0
		cfg.ApplyDefaults()
		if cfg.Database.Redis.Port != defaultRedisPort {
			t.Fatalf("expected default port, got %d", cfg.Database.Redis.Port)
		}
	})
}
