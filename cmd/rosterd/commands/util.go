package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/pkg/config"
)

// InitLogger configures the structured logger from the loaded config.
func InitLogger(cfg *config.Config) error {
	err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// GetDefaultStateDir resolves where PID and log files live:
// $XDG_STATE_HOME/roster on Unix, %LOCALAPPDATA%\roster on Windows.
func GetDefaultStateDir() string {
	if runtime.GOOS == "windows" {
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "roster")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "roster")
		}
		return filepath.Join(home, "AppData", "Local", "roster")
	}

	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "roster")
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "roster")
}

// GetDefaultPidFile is where the daemon records its PID.
func GetDefaultPidFile() string {
	return filepath.Join(GetDefaultStateDir(), "rosterd.pid")
}

// GetDefaultLogFile is where daemon mode writes its output.
func GetDefaultLogFile() string {
	return filepath.Join(GetDefaultStateDir(), "rosterd.log")
}
