package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/peter-kozarec/vigil/cmd/vigil"
	"github.com/peter-kozarec/vigil/internal/dbg"
	"github.com/peter-kozarec/vigil/pkg/cache"
	"github.com/peter-kozarec/vigil/pkg/config"
	"github.com/peter-kozarec/vigil/pkg/middleware"
	"github.com/peter-kozarec/vigil/pkg/server"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

func main() {
	configPath := flag.String("config", "", "path to the yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("unable to load config: %v", err)
	}

	logger := dbg.NewLogger(cfg.Debug.Verbose)
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)
	dbg.SetupSlog(cfg.Debug.Verbose)

	logger.Info("vigil starting",
		zap.String("version", vigil.Version),
		zap.String("dataset", cfg.Dataset.Kind),
		zap.String("addr", cfg.Server.Addr))
	defer logger.Info("vigil stopped")

	factory, cleanup, err := vigil.NewSourceFactory(cfg.Dataset)
	if err != nil {
		logger.Fatal("unable to set up datasource", zap.Error(err))
	}
	defer cleanup()

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("running without redis cache", zap.Error(err))
			redisCache = nil
		} else {
			defer func() {
				_ = redisCache.Close()
			}()
		}
	}

	monitorFlags := middleware.MonitorAnomalies
	if cfg.Debug.Verbose {
		monitorFlags = middleware.MonitorAll
	}

	manager := server.NewSessionManager(server.SessionConfig{
		WindowSize:    cfg.Detector.WindowSize,
		Threshold:     fixed.FromFloat64(cfg.Detector.Threshold),
		Interval:      cfg.Stream.Interval.Std(),
		Loop:          cfg.Stream.Loop,
		EventCapacity: cfg.Stream.EventCapacity,
		HistorySize:   cfg.Stream.HistorySize,
		MonitorFlags:  monitorFlags,
	}, factory, redisCache)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv, err := server.New(ctx, cfg, logger, manager)
	if err != nil {
		logger.Fatal("unable to start server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}
}
