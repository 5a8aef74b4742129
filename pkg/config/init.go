package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// configFileHeader is prepended to generated configuration files.
const configFileHeader = `# Roster Configuration File
#
# This file was generated by 'rosterd init'.
# All values shown are defaults; uncomment and edit as needed.
#
# Environment variables with the ROSTER_ prefix override file values,
# e.g. ROSTER_LOGGING_LEVEL=DEBUG or ROSTER_API_PORT=9000.
#
# Documentation: https://github.com/rosterhq/roster

`

// InitConfig creates a configuration file at the default location
// ($XDG_CONFIG_HOME/roster/config.yaml) with default values and a freshly
// generated API signing secret.
//
// Returns the path of the created file. Fails if the file already exists,
// unless force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath creates a configuration file at the given path with
// default values and a freshly generated API signing secret.
//
// Fails if the file already exists, unless force is true.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
		}
	}

	cfg := GetDefaultConfig()

	// Pre-generate a signing secret so enabling auth later is a one-line
	// change. Auth itself stays disabled in the generated config.
	secret, err := generateSecret()
	if err != nil {
		return fmt.Errorf("failed to generate API secret: %w", err)
	}
	cfg.API.Auth.Secret = secret

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	// Create parent directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	content := append([]byte(configFileHeader), data...)

	// 0600: the file contains the signing secret
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// generateSecret returns a cryptographically random hex string suitable for
// HMAC token signing (64 hex chars = 32 bytes of entropy).
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
