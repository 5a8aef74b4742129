package context

import (
	"errors"
	"fmt"

	"github.com/rosterhq/roster/internal/cli/credentials"
	"github.com/spf13/cobra"
)

var useCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch to a different context",
	Long: `Switch to a different server context.

This changes the active context used for subsequent commands.

Examples:
  # Switch to context named "prod"
  rosterctl context use prod`,
	Args: cobra.ExactArgs(1),
	RunE: runContextUse,
}

func runContextUse(cmd *cobra.Command, args []string) error {
	name := args[0]

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize context store: %w", err)
	}

	switch err := store.UseContext(name); {
	case errors.Is(err, credentials.ErrContextNotFound):
		return fmt.Errorf("context '%s' not found\n\n"+
			"List available contexts:\n"+
			"  rosterctl context list", name)
	case err != nil:
		return fmt.Errorf("failed to switch context: %w", err)
	}

	fmt.Printf("Switched to context: %s\n", name)
	return nil
}
