// Package credentials provides connection-context storage for rosterctl.
//
// A context names a server plus the credentials to talk to it; the store
// keeps them all in one JSON file under the user's config directory,
// kubectl-style, with one context marked current.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultConfigDir is the per-user directory under XDG_CONFIG_HOME.
	DefaultConfigDir = "rosterctl"
	// ConfigFileName holds contexts and preferences.
	ConfigFileName = "config.json"
	// FilePermissions keeps stored tokens readable by the owner only.
	FilePermissions = 0600
	// DirPermissions for the config directory.
	DirPermissions = 0700
)

var (
	ErrNoCurrentContext = errors.New("no current context set")
	ErrContextNotFound  = errors.New("context not found")
	// ErrNoToken is returned when an authenticated call is attempted
	// against a context without a token.
	ErrNoToken = errors.New("no API token configured - run 'rosterctl context set' with --token")
)

// Context is one named server connection. Tokens are issued by the
// fronting identity provider; rosterctl only stores and presents them.
type Context struct {
	ServerURL string `json:"server_url"`
	Token     string `json:"token,omitempty"`
	// UserID is sent as the identity header when the server runs with
	// auth disabled (development setups).
	UserID string `json:"user_id,omitempty"`
}

// HasToken reports whether a bearer token is configured.
func (c *Context) HasToken() bool {
	return c.Token != ""
}

// Preferences are per-user display defaults.
type Preferences struct {
	DefaultOutput string `json:"default_output,omitempty"` // table, json, yaml
	Color         string `json:"color,omitempty"`          // auto, always, never
}

// Config is the on-disk shape of the whole file.
type Config struct {
	CurrentContext string              `json:"current_context"`
	Contexts       map[string]*Context `json:"contexts"`
	Preferences    Preferences         `json:"preferences,omitempty"`
}

// Store reads and mutates the config file. Mutating methods persist
// immediately; there is no separate flush step.
type Store struct {
	configPath string
	config     *Config
}

// NewStore opens the user's config file, creating an empty in-memory
// config when none exists yet. Nothing is written until the first
// mutation.
func NewStore() (*Store, error) {
	configPath, err := configFilePath()
	if err != nil {
		return nil, err
	}

	s := &Store{configPath: configPath}
	switch err := s.load(); {
	case err == nil:
	case os.IsNotExist(err):
		s.config = &Config{Contexts: make(map[string]*Context)}
	default:
		return nil, err
	}
	return s, nil
}

func configFilePath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, DefaultConfigDir, ConfigFileName), nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.configPath)
	if err != nil {
		return err
	}
	s.config = &Config{}
	return json.Unmarshal(data, s.config)
}

func (s *Store) save() error {
	if err := os.MkdirAll(filepath.Dir(s.configPath), DirPermissions); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := json.MarshalIndent(s.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.configPath, data, FilePermissions)
}

// GetCurrentContext resolves the context marked current.
func (s *Store) GetCurrentContext() (*Context, error) {
	if s.config.CurrentContext == "" {
		return nil, ErrNoCurrentContext
	}
	return s.GetContext(s.config.CurrentContext)
}

// GetCurrentContextName returns the current context's name, or "".
func (s *Store) GetCurrentContextName() string {
	return s.config.CurrentContext
}

// GetContext looks up a context by name.
func (s *Store) GetContext(name string) (*Context, error) {
	ctx, ok := s.config.Contexts[name]
	if !ok {
		return nil, ErrContextNotFound
	}
	return ctx, nil
}

// ListContexts returns the names of all stored contexts.
func (s *Store) ListContexts() []string {
	names := make([]string, 0, len(s.config.Contexts))
	for name := range s.config.Contexts {
		names = append(names, name)
	}
	return names
}

// SetContext creates or replaces a context. The first context stored
// becomes current automatically.
func (s *Store) SetContext(name string, ctx *Context) error {
	if s.config.Contexts == nil {
		s.config.Contexts = make(map[string]*Context)
	}
	s.config.Contexts[name] = ctx
	if s.config.CurrentContext == "" {
		s.config.CurrentContext = name
	}
	return s.save()
}

// UseContext marks an existing context as current.
func (s *Store) UseContext(name string) error {
	if _, ok := s.config.Contexts[name]; !ok {
		return ErrContextNotFound
	}
	s.config.CurrentContext = name
	return s.save()
}

// DeleteContext removes a context. Deleting the current context leaves
// no context selected.
func (s *Store) DeleteContext(name string) error {
	if _, ok := s.config.Contexts[name]; !ok {
		return ErrContextNotFound
	}
	delete(s.config.Contexts, name)
	if s.config.CurrentContext == name {
		s.config.CurrentContext = ""
	}
	return s.save()
}

// GetPreferences returns the stored display preferences.
func (s *Store) GetPreferences() Preferences {
	return s.config.Preferences
}

// SetPreferences replaces and persists the display preferences.
func (s *Store) SetPreferences(prefs Preferences) error {
	s.config.Preferences = prefs
	return s.save()
}

// ConfigPath reports where the config file lives.
func (s *Store) ConfigPath() string {
	return s.configPath
}
