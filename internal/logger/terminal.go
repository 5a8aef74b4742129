//go:build darwin

package logger

import "golang.org/x/sys/unix"

// isTerminal reports whether fd is a terminal; macOS uses TIOCGETA.
func isTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TIOCGETA)
	return err == nil
}
