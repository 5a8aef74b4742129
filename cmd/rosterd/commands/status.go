package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rosterhq/roster/internal/cli/health"
	"github.com/rosterhq/roster/internal/cli/output"
	"github.com/rosterhq/roster/internal/cli/timeutil"
	"github.com/spf13/cobra"
)

var (
	statusOutput  string
	statusPidFile string
	statusAPIPort int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Display the current status of the Roster server.

Combines two signals: the PID file (is the daemon process alive) and the
health endpoint (is the server actually serving). A process that exists but
fails the health probe is reported as running-but-unhealthy.

Examples:
  rosterd status                   # human-readable table
  rosterd status --api-port 9080   # non-default API port
  rosterd status --output json     # machine-readable`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "PID file to inspect (default: $XDG_STATE_HOME/roster/rosterd.pid)")
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 8080, "Port the health endpoint listens on")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format: table, json or yaml")
}

// ServerStatus is what the status command reports in every output format.
type ServerStatus struct {
	Running   bool   `json:"running" yaml:"running"`
	PID       int    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Message   string `json:"message" yaml:"message"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := ServerStatus{Message: "server is not running"}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}
	if pid, ok := livePidFromFile(pidPath); ok {
		status.Running = true
		status.PID = pid
	}

	probeHealth(&status)

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		printStatusTable(status)
	}
	return nil
}

// livePidFromFile reads the PID file and checks the process still exists.
func livePidFromFile(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	// On Unix FindProcess never fails; signal 0 is the real liveness test.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}
	return pid, true
}

// probeHealth calls the health endpoint and folds the answer into status.
// It covers foreground servers too, which have no PID file.
func probeHealth(status *ServerStatus) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", statusAPIPort))
	if err != nil {
		if status.Running {
			status.Message = "process exists but the health probe failed"
		}
		return
	}
	defer func() { _ = resp.Body.Close() }()

	status.Running = true

	var healthResp health.Response
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		status.Message = "server responded with an unreadable health payload"
		return
	}

	status.Healthy = healthResp.Status == "healthy"
	status.StartedAt = healthResp.Data.StartedAt
	status.Uptime = healthResp.Data.Uptime
	if status.Healthy {
		status.Message = "server is running and healthy"
	} else {
		status.Message = fmt.Sprintf("server is running but unhealthy: %s", healthResp.Error)
	}
}

func printStatusTable(status ServerStatus) {
	row := func(label, value string) {
		fmt.Printf("  %-10s %s\n", label+":", value)
	}

	fmt.Println("\nRoster Server Status")
	fmt.Print("====================\n\n")

	switch {
	case status.Running && status.Healthy:
		row("Status", "\033[32m\u25cf Running\033[0m")
	case status.Running:
		row("Status", "\033[33m\u25cf Running (unhealthy)\033[0m")
	default:
		row("Status", "\033[31m\u25cb Stopped\033[0m")
	}

	if status.Running {
		row("PID", strconv.Itoa(status.PID))
		if status.StartedAt != "" {
			row("Started", timeutil.FormatTime(status.StartedAt))
		}
		if status.Uptime != "" {
			row("Uptime", timeutil.FormatUptime(status.Uptime))
		}
	}

	fmt.Printf("\n  %s\n\n", status.Message)
}
