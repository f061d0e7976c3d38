package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/vigil/pkg/bus"
	"github.com/peter-kozarec/vigil/pkg/common"
)

// Performance accumulates handler wall time per event kind. The point
// handler numbers back the avg processing time reported by the metrics
// endpoint.
type Performance struct {
	logger *zap.Logger

	totalPointHandlerDur          time.Duration
	pointHandlerCount             int64
	totalClassificationHandlerDur time.Duration
	classificationHandlerCount    int64
	totalThresholdHandlerDur      time.Duration
	thresholdHandlerCount         int64
}

func NewPerformance(logger *zap.Logger) *Performance {
	return &Performance{
		logger: logger,
	}
}

func (p *Performance) WithPoint(handler bus.PointEventHandler) bus.PointEventHandler {
	return func(ctx context.Context, point common.DataPoint) {
		startTime := time.Now()
		handler(ctx, point)
		p.totalPointHandlerDur += time.Since(startTime)
		p.pointHandlerCount++
	}
}

func (p *Performance) WithClassification(handler bus.ClassificationEventHandler) bus.ClassificationEventHandler {
	return func(ctx context.Context, classification common.Classification) {
		startTime := time.Now()
		handler(ctx, classification)
		p.totalClassificationHandlerDur += time.Since(startTime)
		p.classificationHandlerCount++
	}
}

func (p *Performance) WithThreshold(handler bus.ThresholdEventHandler) bus.ThresholdEventHandler {
	return func(ctx context.Context, update common.ThresholdUpdate) {
		startTime := time.Now()
		handler(ctx, update)
		p.totalThresholdHandlerDur += time.Since(startTime)
		p.thresholdHandlerCount++
	}
}

// AvgPointDuration is the mean wall time the point handler spent per
// event, zero before the first point.
func (p *Performance) AvgPointDuration() time.Duration {
	if p.pointHandlerCount == 0 {
		return 0
	}
	return p.totalPointHandlerDur / time.Duration(p.pointHandlerCount)
}

func (p *Performance) PrintStatistics() {
	var fields []zap.Field

	if p.pointHandlerCount > 0 {
		fields = append(fields,
			zap.Duration("point_avg_duration", p.AvgPointDuration()),
			zap.Duration("point_total_duration", p.totalPointHandlerDur))
	}
	if p.classificationHandlerCount > 0 {
		fields = append(fields,
			zap.Duration("classification_avg_duration", p.totalClassificationHandlerDur/time.Duration(p.classificationHandlerCount)),
			zap.Duration("classification_total_duration", p.totalClassificationHandlerDur))
	}
	if p.thresholdHandlerCount > 0 {
		fields = append(fields,
			zap.Duration("threshold_avg_duration", p.totalThresholdHandlerDur/time.Duration(p.thresholdHandlerCount)),
			zap.Duration("threshold_total_duration", p.totalThresholdHandlerDur))
	}

	p.logger.Info("performance statistics", fields...)
}
