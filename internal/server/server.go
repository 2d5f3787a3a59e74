// Package server is the HTTP front door: catalog info, downloads and
// range-aware streaming.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"vidrelay/internal/delivery"
	"vidrelay/internal/history"
	"vidrelay/internal/media"
	"vidrelay/internal/metrics"
)

// Resolver produces catalogs for source URLs.
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (*media.Catalog, error)
	// ResolveAfter resolves with the providers ordered after the named one.
	ResolveAfter(ctx context.Context, sourceURL, after string) (*media.Catalog, error)
}

// Recorder stores completed deliveries.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) (history.Entry, error)
}

// CatalogTimeout bounds the info route, which never streams.
const CatalogTimeout = 90 * time.Second

type Server struct {
	resolver Resolver
	engine   *delivery.Engine
	history  Recorder
	metrics  *metrics.Metrics
}

// New creates a Server. history and m may be nil.
func New(resolver Resolver, engine *delivery.Engine, history Recorder, m *metrics.Metrics) *Server {
	return &Server{
		resolver: resolver,
		engine:   engine,
		history:  history,
		metrics:  m,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.HandleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(CatalogTimeout))
		r.Get("/api/info", s.HandleInfo)
	})

	// Streams must not be cut by a request timeout.
	r.Get("/api/download", s.HandleDownload)
	r.Get("/api/stream", s.HandleStream)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
	})
}

// requestLogger logs one line per request through logrus.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logrus.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).Round(time.Millisecond),
				"remote":     r.RemoteAddr,
			}).Info("request")
		}()
		next.ServeHTTP(ww, r)
	})
}
