// Replay pushes a dataset through the detector at full speed and prints
// a report, useful for tuning thresholds offline.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/peter-kozarec/vigil/cmd/vigil"
	"github.com/peter-kozarec/vigil/internal/dbg"
	"github.com/peter-kozarec/vigil/pkg/bus"
	"github.com/peter-kozarec/vigil/pkg/common"
	"github.com/peter-kozarec/vigil/pkg/config"
	"github.com/peter-kozarec/vigil/pkg/datasource"
	"github.com/peter-kozarec/vigil/pkg/detector"
	"github.com/peter-kozarec/vigil/pkg/middleware"
	"github.com/peter-kozarec/vigil/pkg/stream"
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

	logger.Info("replay started",
		zap.String("version", vigil.Version),
		zap.String("dataset", cfg.Dataset.Kind))

	factory, cleanup, err := vigil.NewSourceFactory(cfg.Dataset)
	if err != nil {
		logger.Fatal("unable to set up datasource", zap.Error(err))
	}
	defer cleanup()

	source, err := factory()
	if err != nil {
		logger.Fatal("unable to open datasource", zap.Error(err))
	}

	router := bus.NewRouter(cfg.Stream.EventCapacity)
	zscore := detector.NewZScore(detector.Config{
		WindowSize: cfg.Detector.WindowSize,
		Threshold:  fixed.FromFloat64(cfg.Detector.Threshold),
	})
	replayer := stream.NewReplayer(router, source, 0, false)

	telemetry := middleware.NewTelemetry(logger)
	performance := middleware.NewPerformance(logger)
	monitor := middleware.NewMonitor(middleware.MonitorAnomalies)

	var points, anomalies int64
	maxAbsZ := fixed.Zero

	router.OnPoint = middleware.Chain(performance.WithPoint, telemetry.WithPoint)(func(_ context.Context, point common.DataPoint) {
		c := zscore.Classify(point)
		if err := router.Post(bus.ClassificationEvent, c); err != nil {
			slog.Warn("unable to post classification event", "error", err)
		}
	})
	router.OnClassification = middleware.Chain(telemetry.WithClassification, monitor.WithClassification)(func(_ context.Context, c common.Classification) {
		points++
		if c.Anomalous {
			anomalies++
		}
		if c.ZScore.Abs().Gt(maxAbsZ) {
			maxAbsZ = c.ZScore.Abs()
		}
	})
	router.OnRejection = telemetry.WithRejection(func(_ context.Context, rejection common.Rejection) {
		slog.Warn("input rejected", "reason", rejection.Reason)
	})
	router.OnReset = telemetry.WithReset(func(context.Context, common.StreamReset) {})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := <-router.ExecLoop(ctx, replayer.Feed); err != nil {
		if !errors.Is(err, datasource.ErrEof) && !errors.Is(err, context.Canceled) {
			logger.Fatal("replay failed", zap.Error(err))
		}
	}

	router.PrintStatistics()
	telemetry.PrintStatistics()
	performance.PrintStatistics()

	mean, stdDev, size := zscore.Stats()
	logger.Info("replay report",
		zap.Int64("points", points),
		zap.Int64("anomalies", anomalies),
		zap.String("max_abs_z", maxAbsZ.String()),
		zap.String("window_mean", mean.String()),
		zap.String("window_std_dev", stdDev.String()),
		zap.Int("window_size", size),
		zap.Duration("avg_processing", performance.AvgPointDuration()))
}
