// Package server exposes the detection pipeline over HTTP and websocket
// for the dashboard.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	_ "net/http/pprof"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/peter-kozarec/vigil/pkg/bus"
	"github.com/peter-kozarec/vigil/pkg/config"
	"github.com/peter-kozarec/vigil/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

const defaultDataLimit = 100

type thresholdRequest struct {
	Threshold float64 `json:"threshold"`
}

type thresholdResponse struct {
	Threshold json.RawMessage `json:"threshold"`
}

// Server routes dashboard requests to sessions. The default session is
// created at startup and backs the un-prefixed /api endpoints.
type Server struct {
	cfg     config.Config
	logger  *zap.Logger
	manager *SessionManager

	defaultSession *Session
	router         *mux.Router
	httpServer     *http.Server
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger, manager *SessionManager) (*Server, error) {
	defaultSession, err := manager.Create(ctx)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:            cfg,
		logger:         logger,
		manager:        manager,
		defaultSession: defaultSession,
	}
	s.buildRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  cfg.Server.IdleTimeout.Std(),
	}
	return s, nil
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully and
// stops every session.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.cfg.Server.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.manager.StopAll()
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.manager.StopAll()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) buildRoutes() {
	r := mux.NewRouter()

	// Default session, original dashboard surface.
	r.HandleFunc("/api/data", s.handleData).Methods(http.MethodGet)
	r.HandleFunc("/api/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/api/threshold", s.handleGetThreshold).Methods(http.MethodGet)
	r.HandleFunc("/api/threshold", s.handlePutThreshold).Methods(http.MethodPut)
	r.HandleFunc("/api/stream", s.handleStream).Methods(http.MethodGet)

	// Session management.
	r.HandleFunc("/api/sessions", s.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions", s.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/api/sessions/{id}/data", s.handleData).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/threshold", s.handleGetThreshold).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/threshold", s.handlePutThreshold).Methods(http.MethodPut)
	r.HandleFunc("/api/sessions/{id}/stream", s.handleStream).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	if s.cfg.Debug.Pprof {
		r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	}

	r.Use(s.loggingMiddleware)
	r.Use(metricsMiddleware)

	s.router = r
}

// session resolves the {id} route variable, falling back to the default
// session for the un-prefixed routes. A nil return means the response
// has been written.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *Session {
	idVar, ok := mux.Vars(r)["id"]
	if !ok {
		return s.defaultSession
	}

	id, err := uuid.Parse(idVar)
	if err != nil {
		respondError(w, "invalid session id", http.StatusBadRequest)
		return nil
	}
	session, ok := s.manager.Get(id)
	if !ok {
		respondError(w, "session not found", http.StatusNotFound)
		return nil
	}
	return session
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if session == nil {
		return
	}

	limit := defaultDataLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		if n < limit {
			limit = n
		}
	}

	respondJSON(w, session.Data(limit), http.StatusOK)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if session == nil {
		return
	}
	respondJSON(w, session.Metrics(), http.StatusOK)
}

func (s *Server) handleGetThreshold(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if session == nil {
		return
	}
	respondJSON(w, thresholdResponse{
		Threshold: json.RawMessage(session.Threshold().String()),
	}, http.StatusOK)
}

func (s *Server) handlePutThreshold(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if session == nil {
		return
	}

	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := session.UpdateThreshold(req.Threshold); err != nil {
		// A full event bus is backpressure, not a bad request.
		if errors.Is(err, bus.ErrEventCapacityReached) {
			respondError(w, "pipeline busy, retry later", http.StatusServiceUnavailable)
			return
		}
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	respondJSON(w, thresholdResponse{
		Threshold: json.RawMessage(strconv.FormatFloat(req.Threshold, 'f', -1, 64)),
	}, http.StatusAccepted)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if session == nil {
		return
	}
	session.hub.HandleWS(w, r)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.manager.Create(r.Context())
	if err != nil {
		respondError(w, "unable to create session: "+err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, session.Info(), http.StatusCreated)
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, s.manager.List(), http.StatusOK)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if session == nil {
		return
	}
	respondJSON(w, session.Info(), http.StatusOK)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	session := s.session(w, r)
	if session == nil {
		return
	}
	if session.ID == s.defaultSession.ID {
		respondError(w, "default session cannot be deleted", http.StatusBadRequest)
		return
	}
	s.manager.Delete(session.ID)
	respondJSON(w, nil, http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := mux.CurrentRoute(r)
		endpoint := r.URL.Path
		if route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}

		timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
		defer timer.ObserveDuration()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.RequestsTotal.WithLabelValues(endpoint, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack keeps websocket upgrades working through the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}
