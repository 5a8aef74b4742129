package context

import (
	"fmt"
	"strings"

	"github.com/rosterhq/roster/internal/cli/credentials"
	"github.com/spf13/cobra"
)

var (
	setServer string
	setToken  string
	setUser   string
)

var setCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Create or update a context",
	Long: `Create or update a named server context.

The first context you save becomes the current one. Provide either a
bearer token (servers with auth enabled) or a user id (local servers
with auth disabled); the token wins when both are set.

Examples:
  # Local development server, no auth
  rosterctl context set local --server http://localhost:8080 --user alice

  # Production server with a token from your identity provider
  rosterctl context set prod --server https://roster.internal --token eyJhbGciOi...`,
	Args: cobra.ExactArgs(1),
	RunE: runContextSet,
}

func init() {
	setCmd.Flags().StringVar(&setServer, "server", "", "Server URL (required)")
	setCmd.Flags().StringVar(&setToken, "token", "", "Bearer token")
	setCmd.Flags().StringVar(&setUser, "user", "", "User id for servers running with auth disabled")
	_ = setCmd.MarkFlagRequired("server")
}

func runContextSet(cmd *cobra.Command, args []string) error {
	name := args[0]

	serverURL := strings.TrimRight(setServer, "/")
	if !strings.HasPrefix(serverURL, "http://") && !strings.HasPrefix(serverURL, "https://") {
		return fmt.Errorf("server URL must start with http:// or https://, got %q", setServer)
	}

	store, err := credentials.NewStore()
	if err != nil {
		return fmt.Errorf("failed to initialize context store: %w", err)
	}

	// Keep fields not overridden by flags when updating.
	ctx, err := store.GetContext(name)
	if err != nil {
		ctx = &credentials.Context{}
	}

	ctx.ServerURL = serverURL
	if setToken != "" {
		ctx.Token = setToken
	}
	if setUser != "" {
		ctx.UserID = setUser
	}

	if err := store.SetContext(name, ctx); err != nil {
		return fmt.Errorf("failed to save context: %w", err)
	}

	fmt.Printf("Context %q saved (server %s)\n", name, serverURL)
	if store.GetCurrentContextName() == name {
		fmt.Println("It is now the current context.")
	} else {
		fmt.Printf("Switch to it with: rosterctl context use %s\n", name)
	}
	return nil
}
