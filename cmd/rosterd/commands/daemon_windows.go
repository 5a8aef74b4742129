//go:build windows

package commands

import "fmt"

// Windows has no fork/setsid equivalent worth emulating here; run the
// server with --foreground under a service manager instead.
func startDaemon() error {
	return fmt.Errorf("daemon mode is not supported on Windows, use --foreground")
}
