package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/innover-platform/identity-core/pkg/auth"
	"github.com/innover-platform/identity-core/pkg/config"
	"github.com/innover-platform/identity-core/pkg/directory"
	"github.com/innover-platform/identity-core/pkg/identity"
)

// BootstrapConfig aggregates the environment configuration of a stub
// service: its own name and port plus the identity-provider, user-store,
// and cache settings consumed by the identity resolver.
type BootstrapConfig struct {
	Service   Config
	Auth      auth.Config
	Directory directory.Config

	// RedisAddr enables the shared Redis directory cache when set.
	// Empty means per-process in-memory caching.
	RedisAddr string `env:"REDIS_ADDR"`
}

// Run is the shared entrypoint for the stub services. It loads
// configuration from the environment, wires the identity resolver, and
// serves until ctx is cancelled. defaultName is used when SERVICE_NAME
// is unset.
func Run(ctx context.Context, defaultName string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	var cfg BootstrapConfig
	if err := config.New().Load(&cfg); err != nil {
		return err
	}
	if cfg.Service.ServiceName == DefaultServiceName && defaultName != "" {
		cfg.Service.ServiceName = defaultName
	}

	resolver, err := buildResolver(cfg)
	if err != nil {
		return err
	}

	srv := New(cfg.Service.ServiceName, resolver)
	return srv.Run(ctx, fmt.Sprintf(":%d", cfg.Service.Port))
}

// buildResolver assembles the verified-bearer, forwarded-assertion, and
// plain-header identity chain backed by the user store.
func buildResolver(cfg BootstrapConfig) (*auth.Resolver, error) {
	validator, err := auth.NewValidator(cfg.Auth)
	if err != nil {
		return nil, err
	}

	store, err := directory.NewClient(cfg.Directory)
	if err != nil {
		return nil, err
	}

	var cache directory.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		cache = directory.NewRedisCache(rdb, directory.DefaultRedisTTL)
	}
	lookup := directory.NewCachedLookup(store, cache)

	normalizer := identity.NewNormalizer(identity.DefaultClaimPriorities(), lookup)
	return auth.NewResolver(validator, normalizer), nil
}
