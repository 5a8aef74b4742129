package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/internal/telemetry"
	"github.com/rosterhq/roster/pkg/config"
	"github.com/rosterhq/roster/pkg/controlplane"
	"github.com/rosterhq/roster/pkg/ingest"
	"github.com/rosterhq/roster/pkg/queue"
	"github.com/rosterhq/roster/pkg/upload"
	"github.com/spf13/cobra"

	// Import prometheus metrics to register init() functions
	_ "github.com/rosterhq/roster/pkg/metrics/prometheus"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the Roster server",
	Long: `Start the Roster ingestion server.

Without --foreground the server daemonizes. Run it in the foreground when
debugging or under a process supervisor such as systemd.

Configuration comes from --config when given, otherwise from
$XDG_CONFIG_HOME/roster/config.yaml when that file exists.

On startup the server re-queues ingestion jobs that were interrupted by the
previous shutdown; they resume from their last checkpoint automatically.

Examples:
  rosterd start                                  # daemonize
  rosterd start --foreground                     # stay attached
  rosterd start --config /etc/roster/config.yaml
  ROSTER_LOGGING_LEVEL=DEBUG rosterd start -f`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Stay attached instead of daemonizing")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Where to write the PID file (default: $XDG_STATE_HOME/roster/rosterd.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Daemon log destination (default: $XDG_STATE_HOME/roster/rosterd.log)")
}

// initObservability brings up OpenTelemetry tracing and Pyroscope
// profiling per config and returns a combined shutdown function.
func initObservability(ctx context.Context, cfg *config.Config) (func(), error) {
	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "roster",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "roster",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		_ = telemetryShutdown(ctx)
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}

	if telemetry.IsEnabled() {
		logger.Info("tracing active", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("tracing off")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling active", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("profiling off")
	}

	return func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}, nil
}

// buildControlPlane wires the stores into a controlplane instance.
// Recovery of jobs orphaned by a previous crash happens inside
// controlplane.New, before any worker starts.
func buildControlPlane(ctx context.Context, cfg *config.Config) (*controlplane.ControlPlane, error) {
	objects, err := config.CreateObjectStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object store: %w", err)
	}
	logger.Info("Object store initialized", "backend", cfg.Storage.Backend)

	manifests, err := config.CreateManifestStore(ctx, cfg.Upload)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload manifest store: %w", err)
	}
	logger.Info("Upload manifest store initialized", "path", cfg.Upload.ManifestPath)

	jobQueue, err := config.CreateQueue(ctx, cfg.Queue)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize job queue: %w", err)
	}
	logger.Info("Job queue initialized", "path", cfg.Queue.Path, "workers", cfg.Queue.Workers)

	cp, err := controlplane.New(ctx, &controlplane.Options{
		Database:  &cfg.Database,
		API:       &cfg.API,
		Objects:   objects,
		Manifests: manifests,
		Queue:     jobQueue,
		Worker: queue.WorkerConfig{
			Workers:      cfg.Queue.Workers,
			MaxAttempts:  cfg.Queue.MaxAttempts,
			RetryDelay:   cfg.Queue.RetryDelay,
			PollInterval: cfg.Queue.PollInterval,
		},
		Ingest: ingest.Config{
			BatchSize:        cfg.Ingest.BatchSize,
			ProgressInterval: cfg.Ingest.ProgressInterval,
			InsertTimeout:    cfg.Ingest.InsertTimeout,
			Strict:           cfg.Ingest.Strict,
		},
		Upload: upload.Config{
			MaxChunkSize:  int64(cfg.Upload.MaxChunkSize),
			ManifestTTL:   cfg.Upload.ManifestTTL,
			SweepInterval: cfg.Upload.SweepInterval,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize control plane: %w", err)
	}
	return cp, nil
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownObservability, err := initObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownObservability()

	fmt.Println("Roster - candidate list ingestion service")
	logger.Info("logging configured", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("configuration loaded", "source", describeConfigSource(GetConfigFile()))

	// Metrics must come up before the control plane so its components
	// pick up the registry.
	metricsResult := config.InitializeMetrics(cfg)

	cp, err := buildControlPlane(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := cp.Close(); err != nil {
			logger.Error("Control plane shutdown error", "error", err)
		}
	}()

	rt := cp.Runtime()
	rt.SetShutdownTimeout(cfg.Server.ShutdownTimeout)

	if metricsResult.Server != nil {
		logger.Info("metrics exposed", "port", cfg.Metrics.Port)
		rt.SetMetricsServer(metricsResult.Server)
	} else {
		logger.Info("metrics collection off")
	}

	if pidFile != "" {
		pid := []byte(strconv.Itoa(os.Getpid()))
		if err := os.WriteFile(pidFile, pid, 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() { serverDone <- rt.Serve(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("server up, Ctrl+C to stop")

	// Either a signal arrives and we drain the runtime, or the runtime
	// exits on its own (listener failure, fatal component error).
	select {
	case <-sigChan:
		logger.Info("shutdown signal received, draining")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("shutdown error", "error", err)
			return err
		}
		logger.Info("server stopped cleanly")
	case err := <-serverDone:
		if err != nil {
			logger.Error("server exited with error", "error", err)
			return err
		}
		logger.Info("server stopped")
	}

	return nil
}

// describeConfigSource names where the effective configuration came from.
func describeConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "built-in defaults"
}
