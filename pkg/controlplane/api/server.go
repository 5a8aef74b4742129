package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/pkg/controlplane/api/auth"
	"github.com/rosterhq/roster/pkg/controlplane/api/handlers"
	"github.com/rosterhq/roster/pkg/controlplane/models"
	"github.com/rosterhq/roster/pkg/metrics"
)

// Deps bundles the collaborators the API serves. The daemon builds one
// after wiring stores, assembler and job service.
type Deps struct {
	// Uploads assembles chunked uploads and answers header lookups.
	Uploads handlers.ChunkReceiver

	// Jobs drives import jobs on behalf of callers.
	Jobs handlers.JobControl

	// Candidates answers candidate queries.
	Candidates models.CandidateStore

	// HealthChecks feed the readiness and dependency endpoints.
	HealthChecks []handlers.NamedCheck

	// HTTPMetrics records per-route request metrics. Nil disables them.
	HTTPMetrics metrics.HTTPMetrics

	// Verifier is filled in by NewServer when auth is enabled; leave nil.
	Verifier *auth.Verifier
}

// Server provides an HTTP server for the REST API.
//
// The server exposes the candidate import endpoints and health checks.
//
// Endpoints:
//   - GET /health: Liveness probe
//   - GET /health/ready: Readiness probe
//   - GET /health/dependencies: Detailed dependency health
//   - POST /candidates/upload-chunk: Sequential chunk ingestion
//   - POST /candidates/headers: Header re-detection
//   - POST /candidates/process: Create and enqueue an import job
//   - GET /candidates: Candidate queries
//   - GET /candidates/jobs: Job history
//   - GET /candidates/job/{jobId}/status: Job progress polling
//   - POST /candidates/{jobId}/pause, /resume: Job control
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	config       APIConfig
	shutdownOnce sync.Once
}

// NewServer creates a new API HTTP server.
//
// The server is created in a stopped state. Call Start() to begin serving
// requests.
//
// When config.Auth.Enabled is true the bearer-token secret must be set via
// config or the ROSTER_API_SECRET environment variable; requests then carry
// "Authorization: Bearer" tokens whose subject is the user id. When auth is
// disabled the user id comes from the configured trusted header.
//
// Returns a configured but not yet started Server, or an error if the auth
// configuration is invalid.
func NewServer(config APIConfig, deps Deps) (*Server, error) {
	config.ApplyDefaults()

	if config.Auth.Enabled {
		secret := config.GetSecret()
		if secret == "" {
			return nil, fmt.Errorf("api auth is enabled but no secret is configured; set via %s env var or config", EnvAPISecret)
		}
		verifier, err := auth.NewVerifier(secret)
		if err != nil {
			return nil, fmt.Errorf("failed to create token verifier: %w", err)
		}
		deps.Verifier = verifier
	} else {
		deps.Verifier = nil
		logger.Warn("API auth is disabled; trusting the user header",
			"header", config.Auth.UserHeader)
	}

	router := NewRouter(config, deps)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return &Server{
		server: server,
		config: config,
	}, nil
}

// Start runs the server until ctx is cancelled or the listener fails.
// Cancellation triggers a graceful shutdown with a 5 second budget.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening", "port", s.config.Port)
		logger.Debug("API endpoints available",
			"health", fmt.Sprintf("http://localhost:%d/health", s.config.Port),
			"ready", fmt.Sprintf("http://localhost:%d/health/ready", s.config.Port),
			"candidates", fmt.Sprintf("http://localhost:%d/candidates", s.config.Port),
		)

		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// The incoming ctx is already cancelled; shutdown needs its own
		// deadline or it would abort in-flight requests immediately.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop shuts the server down gracefully, bounded by ctx. Repeated and
// concurrent calls are safe; only the first does the work.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is listening on.
func (s *Server) Port() int {
	return s.config.Port
}
