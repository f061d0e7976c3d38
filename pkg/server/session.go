package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/peter-kozarec/vigil/pkg/bus"
	"github.com/peter-kozarec/vigil/pkg/cache"
	"github.com/peter-kozarec/vigil/pkg/common"
	"github.com/peter-kozarec/vigil/pkg/datasource"
	"github.com/peter-kozarec/vigil/pkg/detector"
	"github.com/peter-kozarec/vigil/pkg/metrics"
	"github.com/peter-kozarec/vigil/pkg/middleware"
	"github.com/peter-kozarec/vigil/pkg/stream"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

const sessionComponentName = "server.session"

const cacheWriteTimeout = time.Second

// SourceFactory builds a fresh datasource for each session, so sessions
// never share read positions.
type SourceFactory func() (datasource.Source, error)

// SessionConfig carries the per-session pipeline knobs.
type SessionConfig struct {
	WindowSize    int
	Threshold     fixed.Point
	Interval      time.Duration
	Loop          bool
	EventCapacity int
	HistorySize   int
	MonitorFlags  middleware.MonitorFlags
}

// Session is one isolated detection pipeline: its own datasource cursor,
// router, detector, window, threshold, history and websocket hub.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	router   *bus.Router
	detector *detector.ZScore
	source   datasource.Source
	replayer *stream.Replayer
	hub      *Hub
	cache    *cache.RedisCache

	cancel context.CancelFunc
	done   <-chan error

	historySize int

	mu              sync.RWMutex
	history         []common.Classification
	threshold       fixed.Point
	windowMean      fixed.Point
	windowStdDev    fixed.Point
	windowSize      int
	pointsProcessed int64
	anomalies       int64
	rejections      int64
	resets          int64
	avgValue        fixed.Point
	processingTotal time.Duration
}

// SessionMetrics is the /api/metrics payload.
type SessionMetrics struct {
	PointsProcessed int64       `json:"points_processed"`
	Anomalies       int64       `json:"anomalies_detected"`
	Rejections      int64       `json:"points_rejected"`
	Resets          int64       `json:"stream_resets"`
	AvgProcessingMs float64     `json:"avg_processing_time_ms"`
	AvgValue        fixed.Point `json:"avg_value"`
	WindowMean      fixed.Point `json:"window_mean"`
	WindowStdDev    fixed.Point `json:"window_std_dev"`
	WindowSize      int         `json:"window_size"`
	Threshold       fixed.Point `json:"threshold"`
	StreamClients   int         `json:"stream_clients"`
}

// SessionInfo is the session descriptor returned by the sessions API.
type SessionInfo struct {
	ID        uuid.UUID   `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Threshold fixed.Point `json:"threshold"`
}

func newSession(cfg SessionConfig, source datasource.Source, redisCache *cache.RedisCache) *Session {
	threshold := cfg.Threshold
	if threshold.IsZero() {
		threshold = detector.DefaultThreshold
	}

	s := &Session{
		ID:          uuid.New(),
		CreatedAt:   time.Now(),
		router:      bus.NewRouter(cfg.EventCapacity),
		detector:    detector.NewZScore(detector.Config{WindowSize: cfg.WindowSize, Threshold: threshold}),
		source:      source,
		hub:         NewHub(),
		cache:       redisCache,
		historySize: cfg.HistorySize,
		threshold:   threshold,
	}
	s.replayer = stream.NewReplayer(s.router, source, cfg.Interval, cfg.Loop)

	monitor := middleware.NewMonitor(cfg.MonitorFlags)
	s.router.OnPoint = middleware.Chain(monitor.WithPoint)(s.onPoint)
	s.router.OnClassification = middleware.Chain(monitor.WithClassification)(s.onClassification)
	s.router.OnThreshold = middleware.Chain(monitor.WithThreshold)(s.onThreshold)
	s.router.OnRejection = middleware.Chain(monitor.WithRejection)(s.onRejection)
	s.router.OnReset = middleware.Chain(monitor.WithReset)(s.onReset)

	return s
}

// Start launches the pipeline goroutine. The session stops when ctx is
// cancelled or Stop is called.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = s.router.ExecLoop(ctx, s.replayer.Feed)
}

func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.hub.Close()
	if closer, ok := s.source.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Done yields the pipeline's terminating error once.
func (s *Session) Done() <-chan error {
	return s.done
}

// UpdateThreshold validates the new threshold and posts it to the
// pipeline. Invalid values are rejected here and the detector keeps the
// previous one; valid updates apply to the next classified point.
func (s *Session) UpdateThreshold(value float64) error {
	threshold, err := fixed.ParseFloat64(value)
	if err != nil {
		return err
	}
	if !threshold.Gt(fixed.Zero) {
		return detector.ErrInvalidThreshold
	}

	update := common.ThresholdUpdate{
		Value:     threshold,
		Source:    sessionComponentName,
		TimeStamp: time.Now(),
	}
	return s.router.Post(bus.ThresholdEvent, update)
}

// Threshold reports the threshold of the most recent classification.
func (s *Session) Threshold() fixed.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.threshold
}

// Data returns up to limit most recent classifications in arrival order.
func (s *Session) Data(limit int) []common.Classification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.history)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]common.Classification, n)
	copy(out, s.history[len(s.history)-n:])
	return out
}

func (s *Session) Metrics() SessionMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := SessionMetrics{
		PointsProcessed: s.pointsProcessed,
		Anomalies:       s.anomalies,
		Rejections:      s.rejections,
		Resets:          s.resets,
		AvgValue:        s.avgValue,
		WindowMean:      s.windowMean,
		WindowStdDev:    s.windowStdDev,
		WindowSize:      s.windowSize,
		Threshold:       s.threshold,
		StreamClients:   s.hub.ClientCount(),
	}
	if s.pointsProcessed > 0 {
		m.AvgProcessingMs = float64(s.processingTotal.Microseconds()) / float64(s.pointsProcessed) / 1000.0
	}
	return m
}

func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Threshold: s.Threshold(),
	}
}

func (s *Session) onPoint(_ context.Context, point common.DataPoint) {
	start := time.Now()
	c := s.detector.Classify(point)
	elapsed := time.Since(start)

	mean, stdDev, size := s.detector.Stats()

	z, _ := c.ZScore.Float64()
	metrics.ObserveClassification(z, c.Anomalous, elapsed.Seconds())

	s.mu.Lock()
	s.pointsProcessed++
	if c.Anomalous {
		s.anomalies++
	}
	// Running average, so a looping stream never overflows a sum.
	s.avgValue = s.avgValue.Add(point.Value.Sub(s.avgValue).DivInt(int(s.pointsProcessed)))
	s.processingTotal += elapsed
	s.windowMean = mean
	s.windowStdDev = stdDev
	s.windowSize = size
	s.mu.Unlock()

	if err := s.router.Post(bus.ClassificationEvent, c); err != nil {
		slog.Warn("unable to post classification event", "error", err)
	}
}

func (s *Session) onClassification(ctx context.Context, c common.Classification) {
	s.mu.Lock()
	s.history = append(s.history, c)
	if s.historySize > 0 && len(s.history) > s.historySize {
		s.history = s.history[len(s.history)-s.historySize:]
	}
	s.mu.Unlock()

	s.hub.Broadcast(c)

	if s.cache != nil {
		cacheCtx, cancel := context.WithTimeout(ctx, cacheWriteTimeout)
		if err := s.cache.CacheClassification(cacheCtx, c); err != nil {
			slog.Warn("unable to cache classification", "error", err)
		}
		cancel()
	}
}

func (s *Session) onThreshold(_ context.Context, update common.ThresholdUpdate) {
	if err := s.detector.SetThreshold(update.Value); err != nil {
		slog.Warn("threshold update rejected", "error", err, "value", update.Value)
		return
	}
	s.mu.Lock()
	s.threshold = update.Value
	s.mu.Unlock()
}

func (s *Session) onRejection(_ context.Context, _ common.Rejection) {
	metrics.PointsRejected.Inc()
	s.mu.Lock()
	s.rejections++
	s.mu.Unlock()
}

func (s *Session) onReset(_ context.Context, _ common.StreamReset) {
	metrics.StreamResets.Inc()
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
}

// SessionManager owns the live sessions.
type SessionManager struct {
	cfg       SessionConfig
	newSource SourceFactory
	cache     *cache.RedisCache

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewSessionManager(cfg SessionConfig, newSource SourceFactory, redisCache *cache.RedisCache) *SessionManager {
	return &SessionManager{
		cfg:       cfg,
		newSource: newSource,
		cache:     redisCache,
		sessions:  make(map[uuid.UUID]*Session),
	}
}

// Create builds a session around a fresh datasource and starts its
// pipeline.
func (m *SessionManager) Create(ctx context.Context) (*Session, error) {
	source, err := m.newSource()
	if err != nil {
		return nil, err
	}

	session := newSession(m.cfg, source, m.cache)
	session.Start(ctx)

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	metrics.ActiveSessions.Inc()
	return session, nil
}

func (m *SessionManager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	return session, ok
}

func (m *SessionManager) List() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, session := range m.sessions {
		infos = append(infos, session.Info())
	}
	return infos
}

// Delete stops the session pipeline and removes it.
func (m *SessionManager) Delete(id uuid.UUID) bool {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	session.Stop()
	metrics.ActiveSessions.Dec()
	return true
}

// StopAll shuts every session down, used on server shutdown.
func (m *SessionManager) StopAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, session := range sessions {
		session.Stop()
		metrics.ActiveSessions.Dec()
	}
}
