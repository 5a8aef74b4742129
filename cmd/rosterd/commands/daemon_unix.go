//go:build !windows

package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

// isProcessRunning reports whether the PID recorded in pidPath still
// refers to a live process.
func isProcessRunning(pidPath string) (int, bool) {
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, false
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	// Signal 0 probes existence without touching the process.
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return 0, false
	}
	return pid, true
}

// startDaemon re-execs the current binary with --foreground in a new
// session, with stdout/stderr redirected to the log file. The child
// writes its own PID file once it is up.
func startDaemon() error {
	stateDir := GetDefaultStateDir()
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = filepath.Join(stateDir, "rosterd.pid")
	}
	if pid, running := isProcessRunning(pidPath); running {
		return fmt.Errorf("Roster is already running (PID %d)\nUse 'rosterd stop' to stop the running instance", pid)
	}
	_ = os.Remove(pidPath) // stale file from an unclean shutdown

	logPath := logFile
	if logPath == "" {
		logPath = filepath.Join(stateDir, "rosterd.log")
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		args = append(args, "--config", GetConfigFile())
	}

	logHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = logHandle.Close() }()

	child := exec.Command(executable, args...)
	child.Stdout = logHandle
	child.Stderr = logHandle
	// New session detaches the child from this terminal.
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Printf("Roster started in background (PID %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'rosterd stop' to stop the server")
	fmt.Println("Use 'rosterd status' to check server status")
	return nil
}
