package middleware

import (
	"context"
	"log/slog"

	"github.com/peter-kozarec/vigil/pkg/bus"
	"github.com/peter-kozarec/vigil/pkg/common"
)

type MonitorFlags uint16

const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorPoints
	MonitorClassifications
	MonitorAnomalies
	MonitorThresholds
	MonitorRejections
	MonitorResets
)

// Monitor logs events as they pass through, filtered by flags.
// MonitorAnomalies is the quiet mode for long replays: only points
// classified as anomalous make it into the log.
type Monitor struct {
	flags MonitorFlags
}

func NewMonitor(flags MonitorFlags) *Monitor {
	return &Monitor{
		flags: flags,
	}
}

func (m *Monitor) WithPoint(handler bus.PointEventHandler) bus.PointEventHandler {
	return func(ctx context.Context, point common.DataPoint) {
		if m.flags&MonitorPoints != 0 || m.flags&MonitorAll != 0 {
			slog.Info("event", "point", point)
		}
		handler(ctx, point)
	}
}

func (m *Monitor) WithClassification(handler bus.ClassificationEventHandler) bus.ClassificationEventHandler {
	return func(ctx context.Context, classification common.Classification) {
		if m.flags&MonitorClassifications != 0 || m.flags&MonitorAll != 0 ||
			(m.flags&MonitorAnomalies != 0 && classification.Anomalous) {
			slog.Info("event", "classification", classification)
		}
		handler(ctx, classification)
	}
}

func (m *Monitor) WithThreshold(handler bus.ThresholdEventHandler) bus.ThresholdEventHandler {
	return func(ctx context.Context, update common.ThresholdUpdate) {
		if m.flags&MonitorThresholds != 0 || m.flags&MonitorAll != 0 {
			slog.Info("event", "threshold", update)
		}
		handler(ctx, update)
	}
}

func (m *Monitor) WithRejection(handler bus.RejectionEventHandler) bus.RejectionEventHandler {
	return func(ctx context.Context, rejection common.Rejection) {
		if m.flags&MonitorRejections != 0 || m.flags&MonitorAll != 0 {
			slog.Warn("event", "rejection", rejection)
		}
		handler(ctx, rejection)
	}
}

func (m *Monitor) WithReset(handler bus.ResetEventHandler) bus.ResetEventHandler {
	return func(ctx context.Context, reset common.StreamReset) {
		if m.flags&MonitorResets != 0 || m.flags&MonitorAll != 0 {
			slog.Info("event", "reset", reset)
		}
		handler(ctx, reset)
	}
}
