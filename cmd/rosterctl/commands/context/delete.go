package context

import (
	"errors"
	"fmt"

	"github.com/rosterhq/roster/cmd/rosterctl/cmdutil"
	"github.com/rosterhq/roster/internal/cli/credentials"
	"github.com/rosterhq/roster/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context",
	Long: `Delete a saved server context.

Deleting the current context leaves no context selected; switch to
another with 'rosterctl context use' afterwards.

Examples:
  # Delete a context (asks for confirmation)
  rosterctl context delete old-staging

  # Delete without confirmation
  rosterctl context delete old-staging --force`,
	Args: cobra.ExactArgs(1),
	RunE: runContextDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

func runContextDelete(cmd *cobra.Command, args []string) error {
	contextName := args[0]

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize context store: %w", err)
	}

	confirmed, err := prompt.ConfirmWithForce(fmt.Sprintf("Delete context '%s'?", contextName), deleteForce)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := store.DeleteContext(contextName); err != nil {
		if errors.Is(err, credentials.ErrContextNotFound) {
			return fmt.Errorf("context '%s' not found", contextName)
		}
		return fmt.Errorf("failed to delete context: %w", err)
	}

	fmt.Printf("Context %q deleted\n", contextName)
	return nil
}
