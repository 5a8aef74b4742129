package commands

import (
	"fmt"

	"github.com/rosterhq/roster/pkg/config"
	"github.com/rosterhq/roster/pkg/controlplane/api"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample Roster configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/roster/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  rosterd init

  # Initialize with custom path
  rosterd init --config /etc/roster/config.yaml

  # Force overwrite existing config
  rosterd init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	var configPath string
	var err error
	if custom := GetConfigFile(); custom != "" {
		configPath, err = custom, config.InitConfigToPath(custom, initForce)
	} else {
		configPath, err = config.InitConfig(initForce)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: rosterd start")
	fmt.Printf("  3. Or specify custom config: rosterd start --config %s\n", configPath)
	fmt.Println("\nSecurity note:")
	fmt.Println("  A random JWT secret has been generated for development use.")
	fmt.Println("  For production, generate a secure secret and use an environment variable:")
	fmt.Println("    # Generates a 64-character hex string (32 bytes of entropy)")
	fmt.Printf("    export %s=$(openssl rand -hex 32)\n", api.EnvAPISecret)

	return nil
}
