package context

import (
	"fmt"
	"os"

	"github.com/rosterhq/roster/cmd/rosterctl/cmdutil"
	"github.com/rosterhq/roster/internal/cli/credentials"
	"github.com/rosterhq/roster/internal/cli/output"
	"github.com/spf13/cobra"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show current context",
	Long: `Display information about the current active context.

Examples:
  # Show current context
  rosterctl context current

  # Show as JSON
  rosterctl context current -o json`,
	RunE: runContextCurrent,
}

func runContextCurrent(cmd *cobra.Command, args []string) error {
	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize context store: %w", err)
	}

	contextName := store.GetCurrentContextName()
	if contextName == "" {
		return fmt.Errorf("no current context set\n\n" +
			"Save a server context first:\n" +
			"  rosterctl context set local --server http://localhost:8080")
	}

	ctx, err := store.GetContext(contextName)
	if err != nil {
		return fmt.Errorf("failed to get context: %w", err)
	}

	info := ContextInfo{
		Name:      contextName,
		Current:   true,
		ServerURL: ctx.ServerURL,
		UserID:    ctx.UserID,
		HasToken:  ctx.HasToken(),
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, info)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, info)
	default:
		fmt.Printf("Current context: %s\n", contextName)
		fmt.Printf("  Server:    %s\n", ctx.ServerURL)
		if ctx.UserID != "" {
			fmt.Printf("  User:      %s\n", ctx.UserID)
		}
		if ctx.HasToken() {
			fmt.Printf("  Identity:  bearer token\n")
		} else if ctx.UserID != "" {
			fmt.Printf("  Identity:  user header (auth disabled servers)\n")
		} else {
			fmt.Printf("  Identity:  none (server assigns its development identity)\n")
		}
	}

	return nil
}
