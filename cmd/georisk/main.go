package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	httpadapter "github.com/couchcryptid/geo-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/geo-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/geo-risk-service/internal/adapter/wri"
	"github.com/couchcryptid/geo-risk-service/internal/config"
	"github.com/couchcryptid/geo-risk-service/internal/dashboard"
	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/couchcryptid/geo-risk-service/internal/geodata"
	"github.com/couchcryptid/geo-risk-service/internal/observability"
	"github.com/couchcryptid/geo-risk-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	profile, err := config.LoadRiskProfile(cfg.RiskProfilePath)
	if err != nil {
		logger.Error("failed to load risk profile", "error", err)
		os.Exit(1)
	}

	svc := dashboard.NewService(
		dashboard.Settings{ScorerBackend: cfg.ScorerBackend, Profile: profile},
		geodata.NewLoader(cfg.LayerTimeout, logger),
		domain.NewSampler(),
		clockwork.NewRealClock(),
		metrics,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A missing layer is not fatal: the API serves synthetic estimates and
	// readiness reports the failure.
	if cfg.LayerSource != "" {
		if err := svc.LoadLayer(ctx, cfg.LayerSource); err != nil {
			logger.Error("risk layer unavailable", "source", cfg.LayerSource, "error", err)
		}
	} else {
		logger.Info("no LAYER_SOURCE set, serving synthetic estimates only")
	}

	// Catalog: in-memory LRU in front of the WRI API, with an optional
	// shared Redis tier.
	var catalog domain.CatalogFetcher
	var redisCache *wri.RedisCache
	if cfg.WRIEnabled {
		var shared wri.SharedCache
		if cfg.RedisAddr != "" {
			redisCache = wri.NewRedisCache(cfg.RedisAddr, cfg.RedisTTL)
			if err := redisCache.Ping(ctx); err != nil {
				logger.Warn("redis unreachable, continuing with memory cache only", "addr", cfg.RedisAddr, "error", err)
			}
			shared = redisCache
		}
		client := wri.NewClient(cfg.WRIBaseURL, cfg.WRITimeout, metrics, logger)
		catalog = wri.NewCachedCatalog(client, cfg.WRICacheSize, shared, metrics, logger)
		logger.Info("wri catalog enabled", "base_url", cfg.WRIBaseURL, "cache_size", cfg.WRICacheSize, "redis", cfg.RedisAddr != "")
	} else {
		logger.Info("wri catalog disabled")
	}

	// The pipeline is built before the server so /api/v1/status can
	// report its readiness.
	var (
		pipe   *pipeline.Pipeline
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.PipelineEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		pipe = pipeline.New(reader, pipeline.NewTransformer(svc, logger), writer, logger, metrics, cfg.BatchSize)
	} else {
		logger.Info("assessment pipeline disabled")
	}

	opts := httpadapter.Options{
		RateLimitRPS:     cfg.RateLimitRPS,
		RateLimitBurst:   cfg.RateLimitBurst,
		DefaultDatasetID: cfg.WRIDatasetID,
	}
	if pipe != nil {
		opts.Pipeline = pipe
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, catalog, svc, opts, metrics, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	var wg sync.WaitGroup
	if pipe != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pipe.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	wg.Wait()
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
