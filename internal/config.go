package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/noteweave/internal/models"
	"github.com/starford/noteweave/internal/noteref"
	"github.com/starford/noteweave/internal/resolve"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Links     LinksConfig       `yaml:"links"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Links.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// WorkspaceConfig lists the vaults of the workspace. Their order is the
// order used to break ties between vaults.
type WorkspaceConfig struct {
	Vaults []models.Vault `yaml:"vaults"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Vaults, validation.Required),
	); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Vaults))
	for i := range c.Vaults {
		v := &c.Vaults[i]
		if err := validation.ValidateStruct(v,
			validation.Field(&v.Name, validation.Required),
			validation.Field(&v.Path, validation.Required),
		); err != nil {
			return fmt.Errorf("workspace: vault %d: %w", i, err)
		}
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("workspace: duplicate vault name %q", v.Name)
		}
		seen[v.Name] = struct{}{}
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// LinksConfig tunes link resolution and reference expansion.
type LinksConfig struct {
	MaxRefDepth         int            `yaml:"max_ref_depth"`
	Disambiguation      resolve.Policy `yaml:"disambiguation"`
	NormalizeLegacyRefs bool           `yaml:"normalize_legacy_refs"`
}

// Validate validates the links configuration.
func (c *LinksConfig) Validate() error {
	if c.Disambiguation == "" {
		c.Disambiguation = resolve.PolicyStrict
	}
	policies := make([]any, len(resolve.Policies))
	for i, p := range resolve.Policies {
		policies[i] = p
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxRefDepth, validation.Min(0), validation.Max(16)),
		validation.Field(&c.Disambiguation, validation.In(policies...)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Workspace: WorkspaceConfig{
			Vaults: []models.Vault{{Name: "notes", Path: "./notes"}},
		},
		SQLite: SQLiteConfig{
			Path: "./noteweave.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Links: LinksConfig{
			MaxRefDepth:    noteref.DefaultMaxDepth,
			Disambiguation: resolve.PolicyStrict,
		},
	}
}
