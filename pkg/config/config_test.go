package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosterhq/roster/internal/bytesize"
	"github.com/rosterhq/roster/pkg/objstore"
)

// writeConfig drops content into a temp dir and returns the file path.
// $dir placeholders are replaced with the temp dir in forward-slash form,
// since backslashes inside double-quoted YAML strings are escape sequences
// on Windows.
func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	content = strings.ReplaceAll(content, "$dir", filepath.ToSlash(dir))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const minimalYAML = `
logging:
  level: "INFO"

database:
  type: sqlite

storage:
  backend: fs
  fs:
    path: "$dir/objects"

queue:
  path: "$dir/queue"

api:
  port: 8080
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 2000, cfg.Ingest.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Ingest.ProgressInterval)
	assert.Equal(t, 24*time.Hour, cfg.Upload.ManifestTTL)
}

func TestLoadWithoutConfigFile(t *testing.T) {
	// A missing file is not an error; the server runs on defaults so
	// quick local testing needs no config at all.
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, objstore.BackendFS, cfg.Storage.Backend)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid.yaml", "logging:\n  level: INFO\n  invalid yaml here [[[\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadTOML(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[database]
type = "sqlite"

[storage]
backend = "fs"

[storage.fs]
path = "$dir/objects"

[queue]
path = "$dir/queue"

[api]
port = 8080
`))
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadParsesByteSizesAndDurations(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", `
storage:
  backend: fs
  fs:
    path: "$dir/objects"

queue:
  path: "$dir/queue"
  retry_delay: 5s

ingest:
  batch_size: 500
  progress_interval: 250ms

upload:
  max_chunk_size: 10Mi
  manifest_ttl: 48h
`))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Queue.RetryDelay)
	assert.Equal(t, 500, cfg.Ingest.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Ingest.ProgressInterval)
	assert.Equal(t, 10*bytesize.MiB, cfg.Upload.MaxChunkSize)
	assert.Equal(t, 48*time.Hour, cfg.Upload.ManifestTTL)
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, objstore.BackendFS, cfg.Storage.Backend)
	assert.Equal(t, 4, cfg.Queue.Workers)
}

func TestDefaultConfigLocation(t *testing.T) {
	path := GetDefaultConfigPath()
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "config.yaml", filepath.Base(path))
	assert.Equal(t, "roster", filepath.Base(GetConfigDir()))
}

func TestEnvVarsOverrideFile(t *testing.T) {
	t.Setenv("ROSTER_LOGGING_LEVEL", "ERROR")
	t.Setenv("ROSTER_API_PORT", "9090")

	cfg, err := Load(writeConfig(t, "config.yaml", minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
	assert.Equal(t, 9090, cfg.API.Port)
}
