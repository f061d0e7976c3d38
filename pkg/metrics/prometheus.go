// Package metrics exports pipeline counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PointsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_points_processed_total",
			Help: "Total number of points classified",
		},
	)

	AnomaliesDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_anomalies_detected_total",
			Help: "Total number of points classified as anomalous",
		},
	)

	PointsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_points_rejected_total",
			Help: "Total number of inputs rejected before classification",
		},
	)

	StreamResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_stream_resets_total",
			Help: "Total number of dataset replay wrap-arounds",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_active_sessions",
			Help: "Number of live detection sessions",
		},
	)

	LastZScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_last_zscore",
			Help: "Z-score of the most recently classified point",
		},
	)

	DetectionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_detection_latency_seconds",
			Help:    "Classification latency in seconds",
			Buckets: []float64{.000001, .00001, .0001, .001, .005, .01, .05},
		},
	)

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint", "method"},
	)
)

// ObserveClassification updates the per-point gauges and counters.
func ObserveClassification(zScore float64, anomalous bool, latencySeconds float64) {
	PointsProcessed.Inc()
	LastZScore.Set(zScore)
	DetectionLatency.Observe(latencySeconds)
	if anomalous {
		AnomaliesDetected.Inc()
	}
}
