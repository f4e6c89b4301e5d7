// The pixelforge server boots the orchestration core: it loads
// configuration, registers the configured models with their provider
// backends, starts the health and cleanup loops, and serves Prometheus
// metrics until signalled to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/pixelforge/pixelforge/internal/api/http"
	"github.com/pixelforge/pixelforge/internal/generation"
	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/internal/observability/metrics"
	"github.com/pixelforge/pixelforge/internal/orchestration"
	"github.com/pixelforge/pixelforge/internal/providers"
	"github.com/pixelforge/pixelforge/pkg/config"
	"github.com/pixelforge/pixelforge/pkg/types"
)

func main() {
	configFile := flag.String("config", "", "configuration file path")
	watchConfig := flag.Bool("watch-config", false, "reload configuration on file change")
	flag.Parse()

	if err := run(*configFile, *watchConfig); err != nil {
		fmt.Fprintf(os.Stderr, "pixelforge: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string, watchConfig bool) error {
	loader, err := config.NewLoader(config.LoaderOptions{
		ConfigFile:  configFile,
		EnableWatch: watchConfig,
	})
	if err != nil {
		return err
	}
	cfg := loader.Config()

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		FilePath:    cfg.Logging.FilePath,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
		Compress:    cfg.Logging.Compress,
		Development: cfg.Server.Environment == "development",
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	collector := metrics.NewCollector(metrics.CollectorConfig{
		Namespace:       cfg.Metrics.Namespace,
		EnableGoMetrics: true,
	})
	if cfg.Metrics.Enabled {
		go func() {
			if err := collector.Serve(cfg.Metrics.ListenAddr); err != nil {
				logger.Error("metrics endpoint stopped", logging.Error(err))
			}
		}()
		logger.Info("metrics endpoint listening", logging.String("addr", cfg.Metrics.ListenAddr))
	}

	ctx := context.Background()

	providerSet := providers.NewSet(logger)
	defer providerSet.CleanupAll()

	strategy, err := types.FromStringStrategy(cfg.Orchestrator.Strategy)
	if err != nil {
		return err
	}
	manager := orchestration.NewManager(logger, collector, providerSet, orchestration.ManagerConfig{
		Strategy:             strategy,
		HealthCheckInterval:  cfg.Orchestrator.HealthCheckInterval,
		CleanupInterval:      cfg.Orchestrator.CleanupInterval,
		MetricsIdleThreshold: cfg.Orchestrator.MetricsIdleThreshold,
	})

	if err := registerModels(ctx, cfg, manager, providerSet, logger); err != nil {
		return err
	}

	var shared generation.SharedTier
	if cfg.Cache.Enabled && cfg.Cache.SharedTierEnabled {
		tier, err := generation.NewRedisTier(ctx, generation.RedisTierOptions{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			KeyPrefix:    cfg.Redis.KeyPrefix,
		}, logger)
		if err != nil {
			return err
		}
		defer tier.Close()
		shared = tier
		logger.Info("shared cache tier connected", logging.String("addr", cfg.Redis.Address))
	}

	cache := generation.NewResultCache(cfg.Cache.TTL, cfg.Cache.PruneThreshold, logger, collector)
	service := generation.NewService(manager, providerSet, cache, shared, generation.ServiceConfig{
		CacheEnabled: cfg.Cache.Enabled,
		SharedTTL:    cfg.Cache.TTL,
	}, logger, collector)

	router := api.NewRouter(api.RouterConfig{
		ListenAddr:     cfg.Server.ListenAddr,
		Production:     cfg.Server.Environment == "production",
		RequestTimeout: cfg.Server.RequestTimeout,
	}, logger, collector, service, manager)

	manager.Start()
	defer manager.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- router.Run()
	}()

	logger.Info("pixelforge server started",
		logging.String("environment", cfg.Server.Environment),
		logging.String("addr", cfg.Server.ListenAddr),
		logging.Int("models", len(manager.ListModels(false))),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", logging.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	return router.Shutdown(shutdownCtx)
}

// registerModels builds a backend client for every configured model and
// registers it with the orchestration manager. A model that fails
// registration is skipped, not fatal.
func registerModels(ctx context.Context, cfg *config.Config, manager *orchestration.Manager, set *providers.Set, logger logging.Logger) error {
	for _, seed := range cfg.Models {
		mc, err := seedToConfiguration(seed)
		if err != nil {
			return err
		}

		backend, err := providers.New(providers.Options{
			ModelID:         mc.ID,
			Provider:        mc.Provider,
			ModelName:       mc.ModelName,
			APIKey:          mc.APIKey,
			BaseURL:         mc.BaseURL,
			MaxTokens:       mc.MaxTokens,
			Temperature:     mc.Temperature,
			Timeout:         mc.Timeout,
			CostPer1KTokens: mc.CostPer1KTokens,
		}, logger)
		if err != nil {
			return err
		}
		if err := backend.Initialize(ctx); err != nil {
			return err
		}
		set.Register(mc.ID, backend)

		if err := manager.RegisterModel(ctx, mc); err != nil {
			set.Unregister(mc.ID)
			logger.Warn("model registration failed",
				logging.String("model", mc.ID),
				logging.Error(err),
			)
			continue
		}
		logger.Info("model registered",
			logging.String("model", mc.ID),
			logging.String("provider", mc.Provider.String()),
			logging.String("type", mc.Type.String()),
		)
	}
	return nil
}

func seedToConfiguration(seed config.ModelSeed) (*orchestration.ModelConfiguration, error) {
	provider, err := types.FromStringProvider(seed.Provider)
	if err != nil {
		return nil, err
	}
	modelType, err := types.FromStringModelType(seed.Type)
	if err != nil {
		return nil, err
	}

	caps := make([]types.Capability, 0, len(seed.Capabilities))
	for _, raw := range seed.Capabilities {
		c, err := types.FromStringCapability(raw)
		if err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}

	return &orchestration.ModelConfiguration{
		ID:                    seed.ID,
		Provider:              provider,
		Type:                  modelType,
		ModelName:             seed.ModelName,
		APIKey:                seed.APIKey,
		BaseURL:               seed.BaseURL,
		Capabilities:          caps,
		MaxTokens:             seed.MaxTokens,
		Temperature:           seed.Temperature,
		TopP:                  seed.TopP,
		Timeout:               time.Duration(seed.TimeoutSec) * time.Second,
		RequestsPerMinute:     seed.RequestsPerMinute,
		RequestsPerHour:       seed.RequestsPerHour,
		TokensPerMinute:       seed.TokensPerMinute,
		MaxConcurrentRequests: seed.MaxConcurrent,
		QualityThreshold:      seed.QualityThreshold,
		CostPer1KTokens:       seed.CostPer1KTokens,
		CacheTTL:              seed.CacheTTL,
	}, nil
}
