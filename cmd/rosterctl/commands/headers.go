package commands

import (
	"fmt"
	"os"

	"github.com/rosterhq/roster/cmd/rosterctl/cmdutil"
	"github.com/rosterhq/roster/internal/cli/output"
	"github.com/spf13/cobra"
)

var headersCmd = &cobra.Command{
	Use:   "headers <storage-key>",
	Short: "Show detected columns of an uploaded file",
	Long: `Re-detect and display the column names of an already uploaded file.

Useful when the column list from the original upload got lost, or to
double-check what 'rosterctl process' will see before building a mapping.

Examples:
  # Show columns of an uploaded file
  rosterctl headers uploads/dev/0001_candidates.csv

  # As JSON
  rosterctl headers uploads/dev/0001_candidates.csv -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runHeaders,
}

func runHeaders(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	result, err := client.Headers(args[0])
	if err != nil {
		return fmt.Errorf("failed to detect headers: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, result)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, result)
	default:
		fmt.Printf("%s: %d columns\n", result.FilePath, len(result.Headers))
		for i, h := range result.Headers {
			fmt.Printf("  %2d  %s\n", i, h)
		}
		return nil
	}
}
