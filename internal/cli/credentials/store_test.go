package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore points XDG_CONFIG_HOME at a temp dir and returns a fresh store.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	store, err := NewStore()
	require.NoError(t, err)
	return store
}

func TestContextHasToken(t *testing.T) {
	ctx := &Context{}
	assert.False(t, ctx.HasToken())

	ctx.Token = "token"
	assert.True(t, ctx.HasToken())
}

func TestStoreOperations(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	store, err := NewStore()
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Run("config file location", func(t *testing.T) {
		assert.Equal(t, filepath.Join(tmpDir, DefaultConfigDir, ConfigFileName), store.ConfigPath())
	})

	t.Run("empty store", func(t *testing.T) {
		_, err := store.GetCurrentContext()
		assert.ErrorIs(t, err, ErrNoCurrentContext)
		assert.Empty(t, store.ListContexts())
	})

	t.Run("first context becomes current", func(t *testing.T) {
		require.NoError(t, store.SetContext("default", &Context{
			ServerURL: "http://localhost:8080",
			Token:     "token1",
		}))
		assert.Equal(t, "default", store.GetCurrentContextName())

		current, err := store.GetCurrentContext()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080", current.ServerURL)
		assert.Equal(t, "token1", current.Token)
	})

	t.Run("list and switch", func(t *testing.T) {
		require.NoError(t, store.SetContext("production", &Context{
			ServerURL: "http://production:8080",
			Token:     "token2",
		}))

		contexts := store.ListContexts()
		assert.Len(t, contexts, 2)
		assert.Contains(t, contexts, "default")
		assert.Contains(t, contexts, "production")

		require.NoError(t, store.UseContext("production"))
		assert.Equal(t, "production", store.GetCurrentContextName())
	})

	t.Run("delete clears current", func(t *testing.T) {
		require.NoError(t, store.DeleteContext("production"))
		assert.Empty(t, store.GetCurrentContextName())
	})

	t.Run("unknown context", func(t *testing.T) {
		_, err := store.GetContext("nonexistent")
		assert.ErrorIs(t, err, ErrContextNotFound)
		assert.ErrorIs(t, store.UseContext("nonexistent"), ErrContextNotFound)
	})
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	store, err := NewStore()
	require.NoError(t, err)

	err = store.SetContext("default", &Context{
		ServerURL: "http://localhost:8080",
		Token:     "token1",
		UserID:    "user-dev",
	})
	require.NoError(t, err)

	// Reopen from disk
	reopened, err := NewStore()
	require.NoError(t, err)

	current, err := reopened.GetCurrentContext()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", current.ServerURL)
	assert.Equal(t, "token1", current.Token)
	assert.Equal(t, "user-dev", current.UserID)
}

func TestStorePreferences(t *testing.T) {
	store := newTestStore(t)

	// Get default preferences
	prefs := store.GetPreferences()
	assert.Empty(t, prefs.DefaultOutput)
	assert.Empty(t, prefs.Color)

	// Set preferences
	newPrefs := Preferences{
		DefaultOutput: "json",
		Color:         "auto",
	}
	err := store.SetPreferences(newPrefs)
	require.NoError(t, err)

	// Verify preferences persisted
	prefs = store.GetPreferences()
	assert.Equal(t, "json", prefs.DefaultOutput)
	assert.Equal(t, "auto", prefs.Color)
}

func TestFilePermissions(t *testing.T) {
	store := newTestStore(t)

	err := store.SetContext("default", &Context{ServerURL: "http://localhost:8080", Token: "secret"})
	require.NoError(t, err)

	info, err := os.Stat(store.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePermissions), info.Mode().Perm())
}
