package middleware

import (
	"context"

	"go.uber.org/zap"

	"github.com/peter-kozarec/vigil/pkg/bus"
	"github.com/peter-kozarec/vigil/pkg/common"
)

// Telemetry counts events flowing through the pipeline. Counters are
// only touched from the router goroutine.
type Telemetry struct {
	logger *zap.Logger

	pointEventCounter          int64
	classificationEventCounter int64
	anomalyCounter             int64
	thresholdEventCounter      int64
	rejectionEventCounter      int64
	resetEventCounter          int64
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger: logger,
	}
}

func (t *Telemetry) WithPoint(handler bus.PointEventHandler) bus.PointEventHandler {
	return func(ctx context.Context, point common.DataPoint) {
		t.pointEventCounter++
		handler(ctx, point)
	}
}

func (t *Telemetry) WithClassification(handler bus.ClassificationEventHandler) bus.ClassificationEventHandler {
	return func(ctx context.Context, classification common.Classification) {
		t.classificationEventCounter++
		if classification.Anomalous {
			t.anomalyCounter++
		}
		handler(ctx, classification)
	}
}

func (t *Telemetry) WithThreshold(handler bus.ThresholdEventHandler) bus.ThresholdEventHandler {
	return func(ctx context.Context, update common.ThresholdUpdate) {
		t.thresholdEventCounter++
		handler(ctx, update)
	}
}

func (t *Telemetry) WithRejection(handler bus.RejectionEventHandler) bus.RejectionEventHandler {
	return func(ctx context.Context, rejection common.Rejection) {
		t.rejectionEventCounter++
		handler(ctx, rejection)
	}
}

func (t *Telemetry) WithReset(handler bus.ResetEventHandler) bus.ResetEventHandler {
	return func(ctx context.Context, reset common.StreamReset) {
		t.resetEventCounter++
		handler(ctx, reset)
	}
}

func (t *Telemetry) PrintStatistics() {
	t.logger.Info("event statistics",
		zap.Int64("point_events", t.pointEventCounter),
		zap.Int64("classification_events", t.classificationEventCounter),
		zap.Int64("anomalies", t.anomalyCounter),
		zap.Int64("threshold_events", t.thresholdEventCounter),
		zap.Int64("rejection_events", t.rejectionEventCounter),
		zap.Int64("reset_events", t.resetEventCounter))
}
