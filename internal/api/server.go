// Package api exposes the ranked feed over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ytsubs/ytsubs/internal/feedpage"
	"github.com/ytsubs/ytsubs/internal/ranking"
	"github.com/ytsubs/ytsubs/internal/store"
)

// Ranker produces the scored feed.
type Ranker interface {
	Rank(ctx context.Context) ([]ranking.Video, error)
}

// ChannelLister reads the tracked channels.
type ChannelLister interface {
	ListChannels(ctx context.Context) ([]store.Channel, error)
}

// Config holds the HTTP surface settings.
type Config struct {
	APIKey string
}

// Server wires HTTP handlers to the ranking engine and the store.
type Server struct {
	router   chi.Router
	ranker   Ranker
	channels ChannelLister
	clock    func() time.Time
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(ranker Ranker, channels ChannelLister, cfg Config, logger *zap.Logger) *Server {
	s := &Server{
		ranker:   ranker,
		channels: channels,
		clock:    time.Now,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.APIKey != "" {
		r.Use(apiKeyMiddleware(cfg.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/feed", s.getFeed)
		r.Get("/feed/page", s.getFeedPage)
		r.Get("/channels", s.getChannels)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// Readiness means the store answers; an empty channel list is fine.
	if _, err := s.channels.ListChannels(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getFeed(w http.ResponseWriter, r *http.Request) {
	videos, err := s.ranker.Rank(r.Context())
	if err != nil {
		s.logger.Error("feed ranking failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to rank feed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"generated_at": s.clock().UTC(),
		"count":        len(videos),
		"videos":       videos,
	})
}

func (s *Server) getFeedPage(w http.ResponseWriter, r *http.Request) {
	videos, err := s.ranker.Rank(r.Context())
	if err != nil {
		s.logger.Error("feed ranking failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to rank feed")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := feedpage.Render(w, videos, s.clock()); err != nil {
		s.logger.Error("feed page render failed", zap.Error(err))
	}
}

func (s *Server) getChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.channels.ListChannels(r.Context())
	if err != nil {
		s.logger.Error("channel listing failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list channels")
		return
	}
	payload := make([]channelResponse, 0, len(channels))
	for _, ch := range channels {
		payload = append(payload, channelResponse{
			ID:            ch.ID,
			Name:          ch.Name,
			URL:           ch.URL,
			Thumbnail:     ch.Thumbnail,
			Verified:      ch.Verified,
			Subscribers:   ch.Subscribers,
			BaselineViews: ch.BaselineViews,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"channels": payload})
}

type channelResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	URL           string   `json:"url"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	Verified      bool     `json:"is_verified"`
	Subscribers   *int64   `json:"subscriber_count"`
	BaselineViews *float64 `json:"average_views"`
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
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
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

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
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

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
