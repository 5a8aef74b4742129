package config

import (
	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/pkg/metrics"
)

// MetricsResult holds the outcome of InitializeMetrics.
type MetricsResult struct {
	// Server is the metrics HTTP server, or nil when metrics are disabled
	// (or the server could not be built). The caller decides when to start
	// and stop it.
	Server *metrics.Server
}

// InitializeMetrics initializes the process-wide metrics registry from
// configuration and builds the metrics HTTP server.
//
// When cfg.Metrics.Enabled is false this is a no-op: the registry stays
// uninitialized, every metrics constructor keeps returning nil, and
// instrumented components skip recording entirely.
//
// Must run before instrumented components are constructed; components built
// earlier would hold nil metrics and stay unobserved.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.Enabled {
		return MetricsResult{}
	}

	metrics.InitRegistry()

	server, err := metrics.NewServer(cfg.Metrics.Port)
	if err != nil {
		// Collection still works without the server; scraping does not.
		logger.Error("Failed to create metrics server", "error", err, "port", cfg.Metrics.Port)
		return MetricsResult{}
	}

	return MetricsResult{Server: server}
}
