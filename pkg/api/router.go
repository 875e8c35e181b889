package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/afero"

	"github.com/marmos91/picseq/internal/logger"
	"github.com/marmos91/picseq/pkg/api/handlers"
	"github.com/marmos91/picseq/pkg/metrics"
)

// Dependencies are the components served by the API.
type Dependencies struct {
	// Navigator is the browsing session. May be nil, in which case only
	// health endpoints are useful.
	Navigator handlers.Navigator

	// Cache reports image cache statistics. May be nil.
	Cache handlers.CacheStats

	// FS serves image bytes. Defaults to the OS filesystem.
	FS afero.Fs

	// RequestTimeout cancels slow handlers. Defaults to DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request metrics (when metrics are enabled)
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Panic recovery to prevent server crashes
//   - Request timeout to prevent hung requests
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /metrics - Prometheus metrics
//   - /api/v1/... - Navigation
func NewRouter(deps Dependencies) http.Handler {
	if deps.FS == nil {
		deps.FS = afero.NewOsFs()
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = DefaultRequestTimeout
	}

	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(metrics.NewHTTPMetrics().Middleware(routePattern))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(deps.RequestTimeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeRouteError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeRouteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	healthHandler := handlers.NewHealthHandler(deps.Navigator, deps.Cache)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Handle("/metrics", metrics.Handler())

	if deps.Navigator != nil {
		nav := handlers.NewNavigationHandler(deps.Navigator)
		img := handlers.NewImageHandler(deps.Navigator, deps.FS)
		stats := handlers.NewStatsHandler(deps.Cache)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/current", nav.Current)
			r.Put("/current", nav.SetCurrent)
			r.Get("/display", nav.Display)
			r.Post("/next", nav.Next)
			r.Post("/previous", nav.Previous)
			r.Post("/move", nav.Move)
			r.Post("/reload", nav.Reload)
			r.Put("/strategy", nav.SwitchStrategy)
			r.Get("/window", nav.Window)
			r.Get("/image", img.Current)
			r.Get("/stats", stats.Get)
		})
	}

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// routePattern labels a request with its matched chi route, keeping metric
// cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// requestLogger is a custom middleware that logs requests using the internal logger.
//
// It logs:
//   - Request start (DEBUG level): method, path, remote addr
//   - Request completion (INFO level): method, path, status, duration
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		// Wrap response writer to capture status code
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
