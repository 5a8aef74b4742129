package jobs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rosterhq/roster/cmd/rosterctl/cmdutil"
	"github.com/rosterhq/roster/internal/cli/timeutil"
	"github.com/rosterhq/roster/pkg/apiclient"
	"github.com/spf13/cobra"
)

var (
	statusWatch    bool
	statusInterval time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show job state and progress",
	Long: `Display the state and row counters of an ingestion job.

With --watch the command polls until the job reaches a terminal state
(COMPLETED or FAILED) or pauses, printing progress as it goes.

Examples:
  # One-shot status
  rosterctl jobs status 8b5e61dc

  # Follow until done
  rosterctl jobs status 8b5e61dc --watch

  # As JSON
  rosterctl jobs status 8b5e61dc -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "Poll until the job finishes or pauses")
	statusCmd.Flags().DurationVar(&statusInterval, "interval", 2*time.Second, "Poll interval for --watch")
}

// SingleJobView wraps a job for key-value table rendering.
type SingleJobView struct{ Job *apiclient.Job }

// Headers implements TableRenderer.
func (v SingleJobView) Headers() []string {
	return []string{"FIELD", "VALUE"}
}

// Rows implements TableRenderer.
func (v SingleJobView) Rows() [][]string {
	j := v.Job
	rows := [][]string{
		{"ID", j.ID},
		{"File", j.Filename},
		{"State", j.State},
		{"Rows seen", strconv.FormatInt(j.RowsSeen, 10)},
		{"Rows inserted", strconv.FormatInt(j.RowsInserted, 10)},
		{"Rows rejected", strconv.FormatInt(j.RowsRejected, 10)},
		{"Delimiter", delimiterName(j.Delimiter)},
		{"Header row", strconv.Itoa(j.HeaderRowIndex)},
		{"Created", j.CreatedAt.Local().Format(timeutil.LocalTimeFormat)},
	}
	if j.StartedAt != nil {
		rows = append(rows, []string{"Started", j.StartedAt.Local().Format(timeutil.LocalTimeFormat)})
	}
	if j.CompletedAt != nil {
		rows = append(rows, []string{"Completed", j.CompletedAt.Local().Format(timeutil.LocalTimeFormat)})
	}
	if j.PauseRequested {
		rows = append(rows, []string{"Pause requested", "yes"})
	}
	if j.Error != "" {
		rows = append(rows, []string{"Error", j.Error})
	}
	return rows
}

func delimiterName(d string) string {
	switch d {
	case "\t":
		return "tab"
	case ",":
		return "comma"
	case "":
		return "-"
	default:
		return strconv.Quote(d)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	if statusWatch {
		return watchJob(client, jobID)
	}

	job, err := client.JobStatus(jobID)
	if err != nil {
		return fmt.Errorf("failed to get job status: %w", err)
	}

	return cmdutil.PrintResource(os.Stdout, job, SingleJobView{job})
}

// watchJob polls the job until it stops moving: terminal state, or paused
// with no pause pending. Progress lines go to stderr; the final state is
// printed like the one-shot command so -o json stays scriptable.
func watchJob(client *apiclient.Client, jobID string) error {
	interval := statusInterval
	if interval < 500*time.Millisecond {
		interval = 500 * time.Millisecond
	}

	for {
		job, err := client.JobStatus(jobID)
		if err != nil {
			return fmt.Errorf("failed to get job status: %w", err)
		}

		fmt.Fprintf(os.Stderr, "\r%s: seen %d, inserted %d, rejected %d   ",
			job.State, job.RowsSeen, job.RowsInserted, job.RowsRejected)

		if job.Terminal() || (job.State == "PAUSED" && !job.PauseRequested) {
			fmt.Fprintln(os.Stderr)
			return cmdutil.PrintResource(os.Stdout, job, SingleJobView{job})
		}

		time.Sleep(interval)
	}
}
