package jobs

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rosterhq/roster/cmd/rosterctl/cmdutil"
	"github.com/rosterhq/roster/internal/cli/timeutil"
	"github.com/rosterhq/roster/pkg/apiclient"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your ingestion jobs",
	Long: `List the caller's ingestion jobs, newest first.

Examples:
  # List jobs as table
  rosterctl jobs list

  # List as JSON
  rosterctl jobs list -o json`,
	RunE: runList,
}

// JobList is a list of jobs for table rendering.
type JobList []*apiclient.Job

// Headers implements TableRenderer.
func (jl JobList) Headers() []string {
	return []string{"ID", "FILE", "STATE", "SEEN", "INSERTED", "REJECTED", "CREATED"}
}

// Rows implements TableRenderer.
func (jl JobList) Rows() [][]string {
	rows := make([][]string, 0, len(jl))
	for _, j := range jl {
		rows = append(rows, []string{
			j.ID,
			cmdutil.Truncate(j.Filename, 40),
			j.State,
			strconv.FormatInt(j.RowsSeen, 10),
			strconv.FormatInt(j.RowsInserted, 10),
			strconv.FormatInt(j.RowsRejected, 10),
			j.CreatedAt.Local().Format(timeutil.LocalTimeFormat),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	jobList, err := client.Jobs()
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	rows := JobList(jobList)
	return cmdutil.PrintOutput(os.Stdout, rows, len(rows) == 0, "No jobs found. Upload a file and start one with 'rosterctl process'.", rows)
}
