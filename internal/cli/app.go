package cli

import (
	"log/slog"

	"github.com/miradorstack/mirador-thermal/internal/aggregator"
	"github.com/miradorstack/mirador-thermal/internal/cache"
	"github.com/miradorstack/mirador-thermal/internal/config"
	"github.com/miradorstack/mirador-thermal/internal/logsource"
	"github.com/miradorstack/mirador-thermal/internal/mock"
	"github.com/miradorstack/mirador-thermal/internal/repo"
	"github.com/miradorstack/mirador-thermal/internal/services"
)

// app bundles the collaborators shared by every command.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	cache   cache.Provider
	reader  *logsource.Reader
	service *services.DashboardService
}

func (a *app) Close() error {
	return a.cache.Close()
}

// newApp builds the service graph described by cfg. A Redis cache that cannot
// be reached degrades to the in-process cache.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	cacheProvider := newCache(cfg.Cache, logger)

	profiles, err := aggregator.LoadProfiles(cfg.Sensors.ProfilesPath, logger)
	if err != nil {
		_ = cacheProvider.Close()
		return nil, err
	}

	generator := mock.New(cfg.Mock.Seed)
	var usage aggregator.UsageSource
	if cfg.Sensors.SynthesizeUsage {
		usage = generator
	}
	agg := aggregator.New(aggregator.PolicyFromConfig("default", cfg.Thresholds.Default), profiles, usage)

	reader := logsource.NewReader(cfg.Source.LogPath, logger)

	opts := services.Options{
		Reader:      reader,
		Aggregator:  agg,
		TablePolicy: aggregator.PolicyFromConfig("table", cfg.Thresholds.Table),
		Mock:        generator,
		Cache:       cacheProvider,
		CacheTTL:    cfg.Cache.LatestTTL,
		Logger:      logger,
	}
	if cfg.Upstream.BaseURL != "" {
		opts.Upstream = repo.NewLatestClient(
			cfg.Upstream.BaseURL,
			cfg.Upstream.LatestPath,
			cfg.Upstream.Timeout,
			cacheProvider,
			cfg.Cache.UpstreamTTL,
			logger,
		)
		logger.Info("composing from upstream", slog.String("url", cfg.Upstream.BaseURL))
	}

	service, err := services.NewDashboardService(opts)
	if err != nil {
		_ = cacheProvider.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, cache: cacheProvider, reader: reader, service: service}, nil
}

func newCache(cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	if !cfg.Enabled {
		return cache.NewMemoryProvider()
	}
	if cfg.Addr == "" {
		logger.Warn("cache enabled without an address, using in-process cache")
		return cache.NewMemoryProvider()
	}
	provider, err := cache.NewRedisProvider(cache.RedisConfig{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
		TLS:          cfg.TLS,
	})
	if err != nil {
		logger.Warn("redis cache unavailable, using in-process cache", slog.Any("error", err))
		return cache.NewMemoryProvider()
	}
	logger.Info("redis cache connected", slog.String("addr", cfg.Addr))
	return provider
}
