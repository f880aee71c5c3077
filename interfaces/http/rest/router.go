package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"memgraph/application/commands/bus"
	querybus "memgraph/application/queries/bus"
	"memgraph/interfaces/http/rest/handlers"
	"memgraph/interfaces/http/rest/middleware"
	"memgraph/pkg/auth"
	"memgraph/pkg/common"
	apperrors "memgraph/pkg/errors"
	"memgraph/pkg/observability"
)

// ReadinessCheck reports whether the service can serve requests
type ReadinessCheck func(ctx context.Context) error

// Options holds the optional parts of the router. A nil Validator disables
// authentication and a nil Limiter disables rate limiting.
type Options struct {
	AllowedOrigins []string
	EnableCORS     bool
	Validator      *auth.JWTValidator
	Limiter        *auth.IPRateLimiter
	RateLimit      int
	Metrics        *observability.Collector
	Ready          ReadinessCheck
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *apperrors.ErrorHandler
	opts       Options
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *apperrors.ErrorHandler,
	opts Options,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		opts:       opts,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	if rt.opts.Metrics != nil {
		router.Use(middleware.Logger(rt.logger, rt.opts.Metrics))
	} else {
		router.Use(middleware.Logger(rt.logger, nil))
	}
	router.Use(versionMiddleware)

	if rt.opts.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   rt.opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.NotFound(func(w http.ResponseWriter, req *http.Request) {
		rt.errors.Handle(w, req, apperrors.NewNotFoundError("route "+req.URL.Path))
	})

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.Metrics.Handler())
	}

	// Legacy prefix
	router.Route("/api/v1", func(r chi.Router) {
		r.HandleFunc("/*", func(w http.ResponseWriter, req *http.Request) {
			target := strings.Replace(req.URL.Path, "/api/v1", "/api/v2", 1)
			if req.URL.RawQuery != "" {
				target += "?" + req.URL.RawQuery
			}
			http.Redirect(w, req, target, http.StatusPermanentRedirect)
		})
	})

	router.Route("/api/v2", func(r chi.Router) {
		if rt.opts.Limiter != nil {
			r.Use(middleware.RateLimit(rt.opts.Limiter, rt.opts.RateLimit, rt.errors, rt.logger))
		}
		if rt.opts.Validator != nil {
			r.Use(middleware.Authenticate(rt.opts.Validator, rt.errors, rt.logger))
		}

		graphHandler := handlers.NewMemoryGraphHandler(rt.commandBus, rt.queryBus, rt.errors, rt.logger)
		r.Get("/memory-graph", graphHandler.GetMemoryGraph)
		r.Post("/memory-graph", graphHandler.PostMemoryGraph)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := rt.opts.Ready(ctx); err != nil {
			rt.logger.Warn("Readiness check failed", zap.Error(err))
			rt.errors.Handle(w, req, apperrors.NewUnavailableError("workspace").WithCause(err))
			return
		}
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Latest", "v2")
		if strings.HasPrefix(r.URL.Path, "/api/v1") {
			w.Header().Set("X-API-Version", "v1")
			w.Header().Set("X-API-Deprecated", "true")
		} else {
			w.Header().Set("X-API-Version", "v2")
			w.Header().Set("X-API-Deprecated", "false")
		}
		next.ServeHTTP(w, r)
	})
}
