// Package commands implements the CLI commands for the rosterctl client.
package commands

import (
	"os"

	"github.com/rosterhq/roster/cmd/rosterctl/cmdutil"
	candidatescmd "github.com/rosterhq/roster/cmd/rosterctl/commands/candidates"
	ctxcmd "github.com/rosterhq/roster/cmd/rosterctl/commands/context"
	jobscmd "github.com/rosterhq/roster/cmd/rosterctl/commands/jobs"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rosterctl",
	Short: "Roster Control - candidate ingestion client",
	Long: `rosterctl is the command-line client for Roster servers.

Use this tool to upload candidate lists (CSV/TSV), start and steer
ingestion jobs, and browse imported candidates through the Roster REST API.

A typical import session:

  # Upload a file (resumable, chunk by chunk)
  rosterctl upload ./candidates.csv

  # Start ingestion with a column mapping
  rosterctl process uploads/dev/0001_candidates.csv \
    --map "Full Name=full_name" --map "Email=email"

  # Watch the job until it finishes
  rosterctl jobs status <job-id> --watch

Use "rosterctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Sync flags to cmdutil.Flags for subcommands
		cmdutil.Flags.ServerURL, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.Token, _ = cmd.Flags().GetString("token")
		cmdutil.Flags.User, _ = cmd.Flags().GetString("user")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().String("server", "", "Server URL (overrides stored context)")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (overrides stored context)")
	rootCmd.PersistentFlags().String("user", "", "User id sent to servers running with auth disabled")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(headersCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(ctxcmd.Cmd)
	rootCmd.AddCommand(jobscmd.Cmd)
	rootCmd.AddCommand(candidatescmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// PrintErr prints an error message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit prints an error and exits with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
