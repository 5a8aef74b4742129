// Package context implements context management subcommands for rosterctl.
package context

import (
	"github.com/spf13/cobra"
)

// Cmd is the context subcommand.
var Cmd = &cobra.Command{
	Use:   "context",
	Short: "Manage server contexts",
	Long: `Manage connection contexts for multiple Roster servers.

Contexts save a server URL plus the identity to use against it, so you
can switch between servers without repeating flags, similar to kubectl
contexts. Tokens come from your identity provider; against a local
server running with auth disabled a plain user id is enough.

Subcommands:
  set      Create or update a context
  list     List all configured contexts
  use      Switch to a different context
  current  Show current context
  delete   Delete a context`,
}

func init() {
	Cmd.AddCommand(setCmd, listCmd, useCmd, currentCmd, deleteCmd)
}
