package candidates

import (
	"fmt"
	"os"

	"github.com/rosterhq/roster/cmd/rosterctl/cmdutil"
	"github.com/rosterhq/roster/internal/cli/output"
	"github.com/rosterhq/roster/pkg/apiclient"
	"github.com/spf13/cobra"
)

var (
	listJobID  string
	listSearch string
	listLimit  int
	listOffset int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported candidates",
	Long: `List imported candidates, optionally filtered by job or search term.

The search term matches substrings of full name, email and company.
Results are paged; use --limit and --offset to walk through them.

Examples:
  # First 50 candidates
  rosterctl candidates list

  # Candidates imported by one job
  rosterctl candidates list --job 8b5e61dc

  # Search, second page
  rosterctl candidates list --search smith --limit 50 --offset 50`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listJobID, "job", "", "Only candidates imported by this job")
	listCmd.Flags().StringVar(&listSearch, "search", "", "Substring match on name, email or company")
	listCmd.Flags().IntVar(&listLimit, "limit", 50, "Page size")
	listCmd.Flags().IntVar(&listOffset, "offset", 0, "Page offset")
}

// CandidateList is a page of candidates for table rendering.
type CandidateList []*apiclient.Candidate

// Headers implements TableRenderer.
func (cl CandidateList) Headers() []string {
	return []string{"NAME", "EMAIL", "PHONE", "COMPANY", "TITLE", "LOCATION"}
}

// Rows implements TableRenderer.
func (cl CandidateList) Rows() [][]string {
	rows := make([][]string, 0, len(cl))
	for _, c := range cl {
		rows = append(rows, []string{
			cmdutil.EmptyOr(cmdutil.Truncate(c.FullName, 30), "-"),
			cmdutil.EmptyOr(cmdutil.Truncate(c.Email, 35), "-"),
			cmdutil.EmptyOr(c.Phone, "-"),
			cmdutil.EmptyOr(cmdutil.Truncate(c.Company, 25), "-"),
			cmdutil.EmptyOr(cmdutil.Truncate(c.JobTitle, 25), "-"),
			cmdutil.EmptyOr(cmdutil.Truncate(c.Location, 25), "-"),
		})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	page, err := client.ListCandidates(apiclient.CandidateQuery{
		JobID:  listJobID,
		Search: listSearch,
		Limit:  listLimit,
		Offset: listOffset,
	})
	if err != nil {
		return fmt.Errorf("failed to list candidates: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, page)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, page)
	default:
		rows := CandidateList(page.Candidates)
		if len(rows) == 0 {
			fmt.Println("No candidates found.")
			return nil
		}
		if err := output.PrintTable(os.Stdout, rows); err != nil {
			return err
		}
		shown := int64(page.Offset + len(page.Candidates))
		fmt.Printf("\nShowing %d-%d of %d\n", page.Offset+1, shown, page.Total)
		return nil
	}
}
