package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig contains the handlers and middleware the router assembles.
type RouterConfig struct {
	AuthHandler    *AuthHandler
	UserHandler    *UserHandler
	CatalogHandler *CatalogHandler
	ReviewHandler  *ReviewHandler

	AuthMiddleware func(http.Handler) http.Handler
	Metrics        *Metrics

	Database HealthChecker
	Logger   zerolog.Logger
}

// Router assembles the API's HTTP routing tree.
type Router struct {
	cfg    RouterConfig
	logger zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler. All API routes live under /api/v1;
// the health endpoint stays at the root, outside authentication and
// versioning.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.requestLogger)
	r.Use(middleware.Recoverer)
	if rt.cfg.Metrics != nil {
		r.Use(rt.cfg.Metrics.Middleware)
	}

	r.Get("/health", rt.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.cfg.AuthMiddleware)

		rt.cfg.AuthHandler.RegisterRoutes(r)
		rt.cfg.UserHandler.RegisterRoutes(r)
		rt.cfg.CatalogHandler.RegisterRoutes(r)
		rt.cfg.ReviewHandler.RegisterRoutes(r)
	})

	return r
}

// handleHealth reports liveness plus database readiness.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.cfg.Database != nil {
		if err := rt.cfg.Database.Health(r.Context()); err != nil {
			rt.logger.Error().Err(err).Msg("health check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// requestLogger emits one structured log line per request.
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rt.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}
