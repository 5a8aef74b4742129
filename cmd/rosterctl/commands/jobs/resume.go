package jobs

import (
	"fmt"
	"os"

	"github.com/rosterhq/roster/cmd/rosterctl/cmdutil"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <job-id>",
	Short: "Resume a paused or failed job",
	Long: `Re-queue a paused or failed ingestion job.

Processing continues from the job's last checkpoint; rows ingested
before the pause are not re-inserted.

Examples:
  # Resume a job
  rosterctl jobs resume 8b5e61dc

  # Resume and watch it
  rosterctl jobs resume 8b5e61dc && rosterctl jobs status 8b5e61dc --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	job, err := client.ResumeJob(jobID)
	if err != nil {
		return fmt.Errorf("failed to resume job: %w", err)
	}

	msg := fmt.Sprintf("Job %s re-queued (resuming from row %d)", jobID, job.ResumeFrom)
	return cmdutil.PrintResourceWithSuccess(os.Stdout, job, msg)
}
