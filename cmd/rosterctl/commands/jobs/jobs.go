// Package jobs implements ingestion job commands for rosterctl.
package jobs

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for job management.
var Cmd = &cobra.Command{
	Use:   "jobs",
	Short: "Ingestion job management",
	Long: `Inspect and steer ingestion jobs on the Roster server.

Jobs run in the background and survive server restarts: a job interrupted
mid-file resumes from its last checkpoint. Pausing takes effect at the
next batch boundary; resuming re-queues the job where it left off.

Examples:
  # List your jobs
  rosterctl jobs list

  # Watch one job until it finishes
  rosterctl jobs status <job-id> --watch

  # Pause and resume
  rosterctl jobs pause <job-id>
  rosterctl jobs resume <job-id>`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(pauseCmd)
	Cmd.AddCommand(resumeCmd)
}
