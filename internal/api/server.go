// Package api exposes the HTTP interface: health probes, Prometheus metrics,
// the filings query endpoints, and the SSE event stream.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/secpulse/secpulse/internal/filing"
	"github.com/secpulse/secpulse/internal/metrics"
	"github.com/secpulse/secpulse/internal/stream"
)

const (
	requestTimeout   = 60 * time.Second
	defaultListLimit = 50
	maxListLimit     = 500
	statsWindow      = 24 * time.Hour
)

// RecordStore is the read side of persistence the API depends on.
type RecordStore interface {
	ListFilings(ctx context.Context, segment filing.Segment, limit, offset int) ([]filing.Record, error)
	Stats(ctx context.Context, since time.Time) ([]filing.SegmentStats, error)
}

// Server wires HTTP handlers to the record store and the event hub.
type Server struct {
	router chi.Router
	store  RecordStore
	hub    *stream.Hub
	clock  filing.Clock
	logger *zap.Logger
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewServer constructs a Server with middleware and routes.
func NewServer(store RecordStore, hub *stream.Hub, clock filing.Clock, logger *zap.Logger) *Server {
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:  store,
		hub:    hub,
		clock:  clock,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	// The SSE stream holds its connection open, so the timeout wrapper only
	// covers the request/response routes.
	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(requestTimeout))
		r.Get("/healthz", s.healthz)
		r.Get("/readyz", s.readyz)
		r.Route("/v1", func(r chi.Router) {
			r.Get("/filings", s.listFilings)
			r.Get("/stats", s.stats)
		})
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/v1/filings/stream", s.streamFilings)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// The store is the only hard downstream; one cheap query proves it.
	if _, err := s.store.Stats(r.Context(), s.clock.Now()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listFilings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var segment filing.Segment
	if raw := q.Get("segment"); raw != "" {
		segment = filing.Segment(raw)
		switch segment {
		case filing.SegmentCatalyst, filing.SegmentWhale, filing.SegmentPulse:
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown segment %q", raw))
			return
		}
	}
	limit, err := queryInt(q.Get("limit"), defaultListLimit)
	if err != nil || limit < 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit == 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	records, err := s.store.ListFilings(r.Context(), segment, limit, offset)
	if err != nil {
		s.logger.Error("list filings failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"filings": records,
		"count":   len(records),
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	since := s.clock.Now().Add(-statsWindow)
	segments, err := s.store.Stats(r.Context(), since)
	if err != nil {
		s.logger.Error("stats query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window_hours": int(statsWindow.Hours()),
		"segments":     segments,
	})
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse query int: %w", err)
	}
	return n, nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, ww.status, duration)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
