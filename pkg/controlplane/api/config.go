package api

import (
	"fmt"
	"os"
	"time"

	"github.com/rosterhq/roster/internal/logger"
)

// EnvAPISecret is the name of the environment variable for the API's
// bearer-token signing secret.
const EnvAPISecret = "ROSTER_API_SECRET"

// APIConfig configures the REST API HTTP server.
//
// The API server exposes the chunk upload, header preview, job control and
// candidate query endpoints plus health checks. It is always enabled as it
// is the only way to drive ingestion.
type APIConfig struct {
	// Port is the HTTP port for the API endpoints.
	// Default: 8080
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Chunk uploads carry bodies in the tens of MB, so
	// this is more generous than a typical JSON API.
	// Default: 60s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// A zero or negative value means there is no timeout.
	// Default: 60s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next request
	// when keep-alives are enabled. If zero, the value of ReadTimeout is used.
	// Default: 120s
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// RequestTimeout bounds handler execution for ordinary routes.
	// The chunk upload route uses UploadTimeout instead.
	// Default: 30s
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	// UploadTimeout bounds handler execution for the chunk upload route,
	// which must accommodate the append-via-rewrite cycle on large objects.
	// Default: 5m
	UploadTimeout time.Duration `mapstructure:"upload_timeout" yaml:"upload_timeout"`

	// Auth configures bearer-token authentication for API endpoints.
	Auth AuthConfig `mapstructure:"auth" yaml:"auth"`
}

// AuthConfig configures how the API resolves the user identity of a request.
//
// Identity is issued by an external system; the API only verifies the HMAC
// signature of the bearer token and trusts its subject claim as the user id.
type AuthConfig struct {
	// Enabled turns bearer-token verification on. When disabled the API
	// runs in dev mode and reads the user id from the UserHeader instead.
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Secret is the HMAC signing key used to verify bearer tokens.
	// Must be at least 32 characters long.
	// Can also be set via ROSTER_API_SECRET environment variable.
	// Environment variable takes precedence over config file.
	Secret string `mapstructure:"jwt_secret" yaml:"jwt_secret"`

	// UserHeader is the header consulted for the user id when auth is
	// disabled. Default: X-Roster-User
	UserHeader string `mapstructure:"header" yaml:"header"`
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *APIConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.UploadTimeout == 0 {
		c.UploadTimeout = 5 * time.Minute
	}
	if c.Auth.UserHeader == "" {
		c.Auth.UserHeader = "X-Roster-User"
	}
}

// Validate checks auth settings that struct tags cannot express.
func (c *APIConfig) Validate() error {
	if !c.Auth.Enabled {
		return nil
	}
	secret := c.GetSecret()
	if secret == "" {
		return fmt.Errorf("api.auth.jwt_secret is required when auth is enabled (or set %s)", EnvAPISecret)
	}
	if len(secret) < 32 {
		return fmt.Errorf("api.auth.jwt_secret must be at least 32 characters, got %d", len(secret))
	}
	return nil
}

// GetSecret returns the token signing secret, preferring the environment variable.
// Returns empty string if neither env var nor config secret is set.
// Logs a warning if the environment variable overrides a config file value.
func (c *APIConfig) GetSecret() string {
	envSecret := os.Getenv(EnvAPISecret)
	if envSecret != "" {
		if c.Auth.Secret != "" && c.Auth.Secret != envSecret {
			logger.Warn("API secret from environment variable overrides config file value",
				"env_var", EnvAPISecret)
		}
		return envSecret
	}
	return c.Auth.Secret
}

// HasSecret returns whether a token signing secret is configured.
func (c *APIConfig) HasSecret() bool {
	return c.GetSecret() != ""
}
