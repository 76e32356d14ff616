package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/intelworks/tool-runtime-manager/internal/config"
	"github.com/intelworks/tool-runtime-manager/internal/registry"
	"github.com/intelworks/tool-runtime-manager/internal/storage"
)

// StandardResponse is the JSON envelope for every API response.
type StandardResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo provides structured error information.
type ErrorInfo struct {
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// BulkRequest names the tools for a bulk operation.
type BulkRequest struct {
	Names []string `json:"names"`
}

// AutoScalingRequest toggles the global auto-scaling kill-switch.
type AutoScalingRequest struct {
	Enabled bool `json:"enabled"`
}

// Server is the HTTP control surface. It hosts the health endpoint, the
// Prometheus metrics handler and the admin API under one listener.
type Server struct {
	cfg     config.ServerConfig
	manager *Manager
	store   *storage.Store
	logger  *zap.Logger
	limiter *clientLimiter
	tracer  trace.Tracer

	httpServer *http.Server
}

// NewServer wires the control surface. metricsHandler is mounted at the
// configured metrics path; pass nil to skip metrics.
func NewServer(cfg config.ServerConfig, manager *Manager, store *storage.Store, metricsHandler http.Handler, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		manager: manager,
		store:   store,
		logger:  logger,
		limiter: newClientLimiter(cfg.API.MaxRequests),
		tracer:  otel.Tracer("tool-runtime-manager/api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+cfg.HealthPath, s.handleHealth)
	if metricsHandler != nil {
		mux.Handle("GET "+cfg.MetricsPath, metricsHandler)
	}
	if cfg.API.Enabled {
		s.registerAPIRoutes(mux, cfg.API.BasePath)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.BindAddress,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux, base string) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.middleware(pattern, h))
	}

	handle("GET "+base+"/tools", s.handleListTools)
	handle("POST "+base+"/tools", s.handleRegisterTool)
	handle("GET "+base+"/tools/{name}", s.handleGetTool)
	handle("DELETE "+base+"/tools/{name}", s.handleUnregisterTool)
	handle("POST "+base+"/tools/{name}/enable", s.toolAction("enable", s.manager.Enable))
	handle("POST "+base+"/tools/{name}/disable", s.toolAction("disable", s.manager.Disable))
	handle("POST "+base+"/tools/{name}/pause", s.toolAction("pause", s.manager.Pause))
	handle("POST "+base+"/tools/{name}/resume", s.toolAction("resume", s.manager.Resume))
	handle("POST "+base+"/tools/{name}/error", s.toolAction("report_error", s.manager.ReportError))
	handle("POST "+base+"/tools/bulk/enable", s.bulkAction("bulk_enable", s.manager.BulkEnable))
	handle("POST "+base+"/tools/bulk/disable", s.bulkAction("bulk_disable", s.manager.BulkDisable))
	handle("PATCH "+base+"/tools/{name}/config", s.handleUpdateConfig)
	handle("POST "+base+"/autoscaling", s.handleAutoScaling)
	handle("GET "+base+"/events", s.handleEvents)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Control API listening", zap.String("address", s.cfg.BindAddress))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	}
}

// middleware applies rate limiting, request IDs and tracing to API routes.
func (s *Server) middleware(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		if !s.limiter.Allow(clientIP(r)) {
			s.writeError(w, requestID, http.StatusTooManyRequests, "rate_limited", "request rate limit exceeded")
			return
		}

		ctx, span := s.tracer.Start(r.Context(), pattern,
			trace.WithAttributes(attribute.String("request_id", requestID)))
		defer span.End()

		next(w, r.WithContext(withRequestID(ctx, requestID)))
	}
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.manager.Health()
	w.Header().Set("Content-Type", "application/json")
	if len(report.FatalTools) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Warn("Failed to write health report", zap.Error(err))
	}
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, requestIDFrom(r), s.manager.StatusAll())
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	st, err := s.manager.Status(r.PathValue("name"))
	if err != nil {
		s.writeBusinessError(w, requestIDFrom(r), err)
		return
	}
	s.writeData(w, requestIDFrom(r), st)
}

func (s *Server) handleRegisterTool(w http.ResponseWriter, r *http.Request) {
	var cfg config.ToolConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.writeError(w, requestIDFrom(r), http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if err := s.manager.Register(r.Context(), cfg); err != nil {
		s.writeBusinessError(w, requestIDFrom(r), err)
		return
	}
	s.writeData(w, requestIDFrom(r), map[string]string{"name": cfg.Name})
}

func (s *Server) handleUnregisterTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.manager.Unregister(r.Context(), name); err != nil {
		s.writeBusinessError(w, requestIDFrom(r), err)
		return
	}
	s.writeData(w, requestIDFrom(r), map[string]string{"name": name})
}

// toolAction adapts a single-tool manager operation into a handler.
func (s *Server) toolAction(op string, fn func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if err := fn(r.Context(), name); err != nil {
			s.writeBusinessError(w, requestIDFrom(r), err)
			return
		}
		s.logger.Info("API operation completed",
			zap.String("operation", op),
			zap.String("tool", name),
			zap.String("request_id", requestIDFrom(r)))
		s.writeData(w, requestIDFrom(r), map[string]string{"name": name})
	}
}

// bulkAction adapts a bulk manager operation into a handler. The per-tool
// results are returned in the data payload; a transition rejection for one
// tool does not fail the request.
func (s *Server) bulkAction(op string, fn func(context.Context, []string) (map[string]error, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, requestIDFrom(r), http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		results, err := fn(r.Context(), req.Names)
		if err != nil {
			s.writeBusinessError(w, requestIDFrom(r), err)
			return
		}

		payload := make(map[string]string, len(results))
		for name, res := range results {
			if res != nil {
				payload[name] = res.Error()
			} else {
				payload[name] = "ok"
			}
		}
		s.logger.Info("API operation completed",
			zap.String("operation", op),
			zap.Int("tools", len(req.Names)),
			zap.String("request_id", requestIDFrom(r)))
		s.writeData(w, requestIDFrom(r), payload)
	}
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var update registry.ConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, requestIDFrom(r), http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	name := r.PathValue("name")
	if err := s.manager.UpdateConfig(r.Context(), name, update); err != nil {
		s.writeBusinessError(w, requestIDFrom(r), err)
		return
	}
	s.writeData(w, requestIDFrom(r), map[string]string{"name": name})
}

func (s *Server) handleAutoScaling(w http.ResponseWriter, r *http.Request) {
	var req AutoScalingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, requestIDFrom(r), http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	s.manager.SetAutoScaling(req.Enabled)
	s.writeData(w, requestIDFrom(r), map[string]bool{"enabled": req.Enabled})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, requestIDFrom(r), http.StatusNotImplemented, "storage_disabled", "event storage is not configured")
		return
	}

	q := r.URL.Query()
	filter := storage.Filter{
		Tool:   q.Get("tool"),
		Reason: q.Get("reason"),
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.writeError(w, requestIDFrom(r), http.StatusBadRequest, "invalid_since", "since must be RFC3339")
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			s.writeError(w, requestIDFrom(r), http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	events, err := s.store.GetEvents(r.Context(), filter)
	if err != nil {
		s.writeError(w, requestIDFrom(r), http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	s.writeData(w, requestIDFrom(r), events)
}

// --- response helpers ---

func (s *Server) writeData(w http.ResponseWriter, requestID string, data interface{}) {
	s.writeJSON(w, http.StatusOK, StandardResponse{
		Success:   true,
		Message:   "Operation completed successfully",
		RequestID: requestID,
		Timestamp: time.Now(),
		Data:      data,
	})
}

func (s *Server) writeError(w http.ResponseWriter, requestID string, status int, code, details string) {
	s.writeJSON(w, status, StandardResponse{
		Success:   false,
		Message:   http.StatusText(status),
		RequestID: requestID,
		Timestamp: time.Now(),
		Error:     &ErrorInfo{Code: code, Details: details},
	})
}

// writeBusinessError maps domain errors onto HTTP statuses.
func (s *Server) writeBusinessError(w http.ResponseWriter, requestID string, err error) {
	var depErr *registry.DependencyUnmetError
	var invErr *registry.InvalidTransitionError

	switch {
	case errors.Is(err, registry.ErrToolNotFound):
		s.writeError(w, requestID, http.StatusNotFound, "tool_not_found", err.Error())
	case errors.Is(err, registry.ErrToolExists):
		s.writeError(w, requestID, http.StatusConflict, "tool_exists", err.Error())
	case errors.Is(err, registry.ErrLockTimeout):
		s.writeError(w, requestID, http.StatusServiceUnavailable, "lock_timeout", err.Error())
	case errors.Is(err, registry.ErrToolInError):
		s.writeError(w, requestID, http.StatusConflict, "tool_in_error", err.Error())
	case errors.As(err, &depErr):
		s.writeError(w, requestID, http.StatusConflict, "dependency_unmet", err.Error())
	case errors.As(err, &invErr):
		s.writeError(w, requestID, http.StatusConflict, "invalid_transition", err.Error())
	default:
		s.writeError(w, requestID, http.StatusBadRequest, "invalid_request", err.Error())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp StandardResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

// --- request ID plumbing ---

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return "req-" + hex.EncodeToString(b)
}
