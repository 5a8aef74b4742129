// Package candidates implements candidate browsing commands for rosterctl.
package candidates

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for candidate browsing.
var Cmd = &cobra.Command{
	Use:   "candidates",
	Short: "Browse imported candidates",
	Long: `Browse candidate records imported by ingestion jobs.

Examples:
  # First page of everything
  rosterctl candidates list

  # Candidates from one job
  rosterctl candidates list --job 8b5e61dc

  # Search by name, email or company
  rosterctl candidates list --search "acme"`,
}

func init() {
	Cmd.AddCommand(listCmd)
}
