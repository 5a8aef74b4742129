//go:build !windows

package commands

import (
	"fmt"
	"os"
	"syscall"
)

// stopProcess asks the server to shut down: SIGTERM for a graceful stop,
// SIGKILL when forced.
func stopProcess(process *os.Process, pid int, force bool) error {
	sig, name := syscall.SIGTERM, "SIGTERM"
	if force {
		sig, name = syscall.SIGKILL, "SIGKILL"
	}
	fmt.Printf("Sending %s to process %d...\n", name, pid)

	switch err := process.Signal(sig); {
	case err == os.ErrProcessDone:
		return errProcessDone
	case err != nil:
		return fmt.Errorf("failed to send signal: %w", err)
	}
	return nil
}
