package jobs

import (
	"fmt"
	"os"

	"github.com/rosterhq/roster/cmd/rosterctl/cmdutil"
	"github.com/spf13/cobra"
)

var pauseCmd = &cobra.Command{
	Use:   "pause <job-id>",
	Short: "Pause an ingestion job",
	Long: `Request a pause for a running ingestion job.

The pause takes effect at the next batch boundary, so a short delay
between the request and the PAUSED state is normal. Progress up to the
boundary is checkpointed; nothing is lost. Pausing a job that is already
pausing or queued succeeds without effect.

Examples:
  # Pause a job
  rosterctl jobs pause 8b5e61dc`,
	Args: cobra.ExactArgs(1),
	RunE: runPause,
}

func runPause(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	job, err := client.PauseJob(jobID)
	if err != nil {
		return fmt.Errorf("failed to pause job: %w", err)
	}

	msg := fmt.Sprintf("Pause requested for job %s (takes effect at the next batch boundary)", jobID)
	if job.State == "PAUSED" {
		msg = fmt.Sprintf("Job %s paused", jobID)
	}
	return cmdutil.PrintResourceWithSuccess(os.Stdout, job, msg)
}
