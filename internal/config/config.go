package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"MiniCatalog/internal/catalog"
	"MiniCatalog/pkg/kit"
)

const EnvPrefix = "CATALOG_"

type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Log       LogConfig       `koanf:"log"`
	Auth      AuthConfig      `koanf:"auth"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
}

type HTTPConfig struct {
	Port              int           `koanf:"port"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type AuthConfig struct {
	JWTSecret     string        `koanf:"jwt_secret"`
	TokenTTL      time.Duration `koanf:"token_ttl"`
	AdminEmail    string        `koanf:"admin_email"`
	AdminPassword string        `koanf:"admin_password"`
	WriterRole    string        `koanf:"writer_role"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Token   string `koanf:"token"`
}

type CatalogConfig struct {
	StrictAuth       bool   `koanf:"strict_auth"`
	StrictValidation bool   `koanf:"strict_validation"`
	ErrorShape       string `koanf:"error_shape"`
	MergePolicy      string `koanf:"merge_policy"`
	Seed             bool   `koanf:"seed"`
}

// RateLimitConfig.TrustForwarded takes the client address from
// X-Forwarded-For and friends. Only enable it behind a proxy that overwrites
// those headers.
type RateLimitConfig struct {
	Backend        string        `koanf:"backend"`
	Limit          int           `koanf:"limit"`
	Window         time.Duration `koanf:"window"`
	RedisAddr      string        `koanf:"redis_addr"`
	TrustForwarded bool          `koanf:"trust_forwarded"`
}

func defaults() map[string]any {
	return map[string]any{
		"http.port":                 8082,
		"http.read_header_timeout":  "5s",
		"http.shutdown_timeout":     "10s",
		"log.level":                 "info",
		"auth.token_ttl":            "15m",
		"auth.writer_role":          "admin",
		"metrics.enabled":           true,
		"catalog.strict_auth":       true,
		"catalog.strict_validation": true,
		"catalog.error_shape":       string(kit.ShapeStructured),
		"catalog.merge_policy":      string(catalog.MergePartial),
		"catalog.seed":              true,
		"ratelimit.backend":         "memory",
		"ratelimit.limit":           5,
		"ratelimit.window":          "1m",
		"ratelimit.trust_forwarded": false,
	}
}

// Load layers defaults, the optional YAML file, an optional .env file and
// finally CATALOG_* environment variables. CATALOG_AUTH_JWT_SECRET maps to
// auth.jwt_secret.
func Load(configFile, dotEnvFile string) (Config, error) {
	var cfg Config
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return cfg, fmt.Errorf("load defaults: %w", err)
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", configFile, err)
		}
	}

	if dotEnvFile != "" {
		envFileMap, err := godotenv.Read(dotEnvFile)
		switch {
		case err == nil:
			m := make(map[string]any, len(envFileMap))
			for key, value := range envFileMap {
				if strings.HasPrefix(key, EnvPrefix) {
					m[envKey(key)] = value
				}
			}
			if err := k.Load(confmap.Provider(m, "."), nil); err != nil {
				return cfg, fmt.Errorf("load %s: %w", dotEnvFile, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return cfg, fmt.Errorf("read %s: %w", dotEnvFile, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// envKey turns CATALOG_SECTION_SOME_KEY into section.some_key.
func envKey(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("invalid http read header timeout: %v", c.HTTP.ReadHeaderTimeout)
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid http shutdown timeout: %v", c.HTTP.ShutdownTimeout)
	}

	if _, err := kit.ParseErrorShape(c.Catalog.ErrorShape); err != nil {
		return err
	}
	if _, err := catalog.ParseMergePolicy(c.Catalog.MergePolicy); err != nil {
		return err
	}

	if c.Catalog.StrictAuth && len(c.Auth.JWTSecret) < 32 {
		return errors.New("auth.jwt_secret is required with strict auth and must be at least 32 chars")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("invalid auth token ttl: %v", c.Auth.TokenTTL)
	}

	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.RateLimit.RedisAddr == "" {
			return errors.New("ratelimit.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown rate limit backend %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("invalid rate limit: %d", c.RateLimit.Limit)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("invalid rate limit window: %v", c.RateLimit.Window)
	}
	return nil
}

// Policy converts the catalog section; it assumes Validate has passed.
func (c *Config) Policy() catalog.Policy {
	shape, _ := kit.ParseErrorShape(c.Catalog.ErrorShape)
	merge, _ := catalog.ParseMergePolicy(c.Catalog.MergePolicy)
	return catalog.Policy{
		StrictAuth:       c.Catalog.StrictAuth,
		StrictValidation: c.Catalog.StrictValidation,
		ErrorShape:       shape,
		MergePolicy:      merge,
	}
}

func (c *Config) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "http.port=%d ", c.HTTP.Port)
	fmt.Fprintf(&b, "log.level=%s ", c.Log.Level)
	fmt.Fprintf(&b, "auth.jwt_secret=%s ", mask(c.Auth.JWTSecret))
	fmt.Fprintf(&b, "auth.admin_email=%s ", c.Auth.AdminEmail)
	fmt.Fprintf(&b, "metrics.enabled=%t ", c.Metrics.Enabled)
	fmt.Fprintf(&b, "catalog.strict_auth=%t ", c.Catalog.StrictAuth)
	fmt.Fprintf(&b, "catalog.strict_validation=%t ", c.Catalog.StrictValidation)
	fmt.Fprintf(&b, "catalog.error_shape=%s ", c.Catalog.ErrorShape)
	fmt.Fprintf(&b, "catalog.merge_policy=%s ", c.Catalog.MergePolicy)
	fmt.Fprintf(&b, "ratelimit.backend=%s ", c.RateLimit.Backend)
	fmt.Fprintf(&b, "ratelimit.trust_forwarded=%t", c.RateLimit.TrustForwarded)

	return b.String()
}

func mask(secret string) string {
	if secret == "" {
		return "<not configured>"
	}
	return "****"
}
