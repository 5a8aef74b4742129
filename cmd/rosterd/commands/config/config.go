// Package config implements the rosterd config subcommands.
package config

import "github.com/spf13/cobra"

// Cmd groups the configuration management subcommands.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long: `Manage Roster configuration files.

Use 'rosterd init' to create a new configuration file.

Subcommands:
  edit      Open configuration in editor
  validate  Validate configuration file
  show      Display current configuration
  schema    Generate JSON schema for IDE/validation`,
}

func init() {
	Cmd.AddCommand(editCmd, validateCmd, showCmd, schemaCmd)
}
