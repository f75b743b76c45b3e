package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"MiniCatalog/internal/auth"
	"MiniCatalog/internal/catalog"
	"MiniCatalog/internal/config"
	"MiniCatalog/pkg/kit"
)

// Build assembles the handler described by cfg. The returned cleanup releases
// external clients and must be called after the server has stopped.
func Build(ctx context.Context, cfg config.Config, log *zap.Logger, service string) (http.Handler, func(), error) {
	cleanup := func() {}

	var seed []catalog.Draft
	if cfg.Catalog.Seed {
		seed = catalog.SeedProducts()
	}

	deps := Deps{
		Policy:     cfg.Policy(),
		Store:      catalog.NewMemStore(seed...),
		TokenTTL:   cfg.Auth.TokenTTL,
		WriterRole: cfg.Auth.WriterRole,
		RateLimit:  cfg.RateLimit.Limit,
		RateWindow: cfg.RateLimit.Window,

		TrustForwarded: cfg.RateLimit.TrustForwarded,
	}

	if cfg.RateLimit.Backend == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		rs := kit.NewRedisRateStore(client, service+":ratelimit:")
		if err := rs.Ping(ctx); err != nil {
			log.Warn("redis rate limiter not reachable, requests will fail open", zap.Error(err))
		}
		deps.RateStore = rs
		cleanup = func() { _ = client.Close() }
	}

	if cfg.Auth.JWTSecret != "" {
		users := auth.NewMemStore(0)
		deps.Users = users
		deps.JWT = auth.NewTokenMaker(cfg.Auth.JWTSecret)

		if err := auth.SeedAdmin(ctx, users, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("seed admin: %w", err)
		}
		if cfg.Auth.AdminEmail == "" && cfg.Catalog.StrictAuth {
			log.Warn("no admin configured, product writes will be rejected until one exists")
		}
	}

	h, err := NewHandler(deps, HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return h, cleanup, nil
}
