// Command rosterd runs the Roster ingestion server.
package main

import (
	"fmt"
	"os"

	"github.com/rosterhq/roster/cmd/rosterd/commands"
)

// Injected at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version, commands.Commit, commands.Date = version, commit, date
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
