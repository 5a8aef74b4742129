// Package commands implements the CLI commands for roster server management.
package commands

import (
	"os"

	"github.com/rosterhq/roster/cmd/rosterd/commands/config"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rosterd",
	Short: "Roster - candidate list ingestion service",
	Long: `Roster ingests candidate contact lists (CSV/TSV) into a queryable
datastore. Files arrive through resumable chunked uploads, are parsed and
validated row by row, and land as candidate records. Ingestion runs as
durable background jobs that survive restarts and can be paused and resumed.

Use "rosterd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI; main.main calls it once.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd exposes the root command for tests.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/roster/config.yaml)")

	rootCmd.AddCommand(
		versionCmd,
		startCmd,
		initCmd,
		migrateCmd,
		stopCmd,
		statusCmd,
		logsCmd,
		config.Cmd,
		completionCmd,
	)

	// Hide cobra's built-in completion command; ours has install docs.
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// PrintErr writes a formatted message to stderr.
func PrintErr(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
}

// Exit reports an error and terminates with code 1.
func Exit(format string, args ...any) {
	PrintErr(format, args...)
	os.Exit(1)
}
