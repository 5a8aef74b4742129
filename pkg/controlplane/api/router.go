package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/pkg/controlplane/api/handlers"
	apiMiddleware "github.com/rosterhq/roster/pkg/controlplane/api/middleware"
)

// NewRouter creates and configures the chi router with all middleware and routes.
//
// The router is configured with:
//   - Request ID middleware for request tracking
//   - Real IP extraction for proper client identification
//   - Custom request logging using the internal logger
//   - Request metrics keyed by route pattern
//   - Panic recovery to prevent server crashes
//   - Per-group request timeouts (uploads get a longer budget)
//
// Routes:
//   - GET /health - Liveness probe
//   - GET /health/ready - Readiness probe
//   - GET /health/dependencies - Detailed dependency health
//   - POST /candidates/upload-chunk - Sequential chunk ingestion
//   - POST /candidates/headers - Header re-detection for an uploaded file
//   - POST /candidates/process - Create and enqueue an import job
//   - GET /candidates - Query imported candidates
//   - GET /candidates/jobs - The caller's job history
//   - GET /candidates/job/{jobId}/status - Job progress polling
//   - POST /candidates/{jobId}/pause - Request a pause at the next batch boundary
//   - POST /candidates/{jobId}/resume - Re-enqueue from the persisted resume point
//
// Candidate routes resolve the caller identity with JWT auth when a
// verifier is configured, or from the trusted user header otherwise.
func NewRouter(config APIConfig, deps Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(apiMiddleware.Metrics(deps.HTTPMetrics))
	r.Use(middleware.Recoverer)

	// Health routes - unauthenticated
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks...)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
		r.Get("/dependencies", healthHandler.Dependencies)
	})

	// Root redirect to health for convenience
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	identity := apiMiddleware.HeaderIdentity(config.Auth.UserHeader)
	if deps.Verifier != nil {
		identity = apiMiddleware.JWTAuth(deps.Verifier)
	}

	candidatesHandler := handlers.NewCandidatesHandler(deps.Uploads, deps.Jobs, deps.Candidates)

	r.Route("/candidates", func(r chi.Router) {
		r.Use(identity)

		// Chunk ingestion moves file data and gets a longer budget than
		// the control endpoints.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(config.UploadTimeout))
			r.Post("/upload-chunk", candidatesHandler.UploadChunk)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(config.RequestTimeout))
			r.Post("/headers", candidatesHandler.Headers)
			r.Post("/process", candidatesHandler.Process)
			r.Get("/", candidatesHandler.List)
			r.Get("/jobs", candidatesHandler.JobHistory)
			r.Get("/job/{jobId}/status", candidatesHandler.JobStatus)
			r.Post("/{jobId}/pause", candidatesHandler.Pause)
			r.Post("/{jobId}/resume", candidatesHandler.Resume)
		})
	})

	return r
}

// isHealthPath returns true if the request path is a healthcheck endpoint.
func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// requestLogger logs each request through the internal logger: a DEBUG
// line at the start, and a completion line with status, bytes and
// duration. Healthcheck traffic completes at DEBUG so liveness probes
// don't drown the log.
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

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logFn := logger.Info
		if isHealthPath(r.URL.Path) {
			logFn = logger.Debug
		}
		logFn("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
