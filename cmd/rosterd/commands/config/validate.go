package config

import (
	"fmt"

	"github.com/rosterhq/roster/pkg/config"
	"github.com/rosterhq/roster/pkg/objstore"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the Roster configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  rosterd config validate

  # Validate specific config file
  rosterd config validate --config /etc/roster/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	// Legal-but-questionable settings get warnings, not errors.
	var warnings []string

	if cfg.API.Auth.Enabled && cfg.API.GetSecret() == "" {
		warnings = append(warnings, "API auth is enabled but no token secret is configured")
	}
	if !cfg.API.Auth.Enabled {
		warnings = append(warnings, "API auth is disabled - requests are trusted based on the "+cfg.API.Auth.UserHeader+" header")
	}

	if cfg.Storage.Backend == objstore.BackendMemory {
		warnings = append(warnings, "Object storage is in-memory - uploaded files are lost on restart")
	}

	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	fmt.Printf("  Database type:   %s\n", cfg.Database.Type)
	fmt.Printf("  Storage backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("  API port:        %d\n", cfg.API.Port)
	fmt.Printf("  Queue workers:   %d\n", cfg.Queue.Workers)
	fmt.Printf("  Log level:       %s\n", cfg.Logging.Level)

	return nil
}
