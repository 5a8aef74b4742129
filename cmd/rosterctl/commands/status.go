package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rosterhq/roster/cmd/rosterctl/cmdutil"
	"github.com/rosterhq/roster/internal/cli/health"
	"github.com/rosterhq/roster/internal/cli/output"
	"github.com/rosterhq/roster/internal/cli/timeutil"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Probe the connected Roster server's health endpoint and report its
status, uptime and service information for the active context.

Examples:
  rosterctl status           # human-readable table
  rosterctl status -o json   # machine-readable`,
	RunE: runStatus,
}

// ServerStatus is the client-side view of a health probe.
type ServerStatus struct {
	Server    string `json:"server" yaml:"server"`
	Status    string `json:"status" yaml:"status"`
	Healthy   bool   `json:"healthy" yaml:"healthy"`
	Service   string `json:"service,omitempty" yaml:"service,omitempty"`
	StartedAt string `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime    string `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	serverURL, err := cmdutil.GetServerURL()
	if err != nil {
		return err
	}

	status := fetchStatus(serverURL)

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
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

func fetchStatus(serverURL string) ServerStatus {
	status := ServerStatus{Server: serverURL, Status: "unreachable"}

	// Health endpoints are unauthenticated.
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer func() { _ = resp.Body.Close() }()

	var healthResp health.Response
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		status.Status = "unknown"
		status.Error = "health response was not valid JSON"
		return status
	}

	status.Status = healthResp.Status
	status.Healthy = healthResp.Status == "healthy"
	status.Service = healthResp.Data.Service
	status.StartedAt = healthResp.Data.StartedAt
	status.Uptime = healthResp.Data.Uptime
	if healthResp.Error != "" {
		status.Error = healthResp.Error
	}
	return status
}

func printStatusTable(status ServerStatus) {
	row := func(label, value string) {
		fmt.Printf("  %-10s %s\n", label+":", value)
	}

	fmt.Println("\nRoster Server Status")
	fmt.Print("====================\n\n")
	row("Server", status.Server)

	switch {
	case status.Healthy:
		row("Status", "\033[32m\u25cf "+status.Status+"\033[0m")
	case status.Status == "unreachable":
		row("Status", "\033[31m\u25cb "+status.Status+"\033[0m")
	default:
		row("Status", "\033[33m\u25cf "+status.Status+"\033[0m")
	}

	if status.Service != "" {
		row("Service", status.Service)
	}
	if status.StartedAt != "" {
		row("Started", timeutil.FormatTime(status.StartedAt))
	}
	if status.Uptime != "" {
		row("Uptime", timeutil.FormatUptime(status.Uptime))
	}
	if status.Error != "" {
		row("Error", status.Error)
	}
	fmt.Println()
}
