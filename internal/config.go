package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ywmark/internal/convert"
	"github.com/starford/ywmark/internal/markdown"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Library    LibraryConfig     `yaml:"library"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth"`
	Conversion ConversionConfig  `yaml:"conversion"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Library.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Conversion.Validate()
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

// LibraryConfig holds the directory served and watched by `serve` and `mcp`.
type LibraryConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
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
	// Normalise empty mode to "disabled" for backward compatibility.
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

// ConversionConfig holds the options applied to every conversion.
type ConversionConfig struct {
	// MarkdownMode means scene text already uses Markdown markup.
	MarkdownMode bool `yaml:"markdown_mode"`
	// SceneTitles associates the leading comment of a scene with its title.
	SceneTitles bool `yaml:"scene_titles"`
	// LockFile serializes conversions across ywmark processes.
	LockFile string `yaml:"lock_file"`
	// WatchDebounce is the quiet period before the watcher re-imports.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// Validate validates the conversion configuration.
func (c *ConversionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LockFile, validation.Required),
		validation.Field(&c.WatchDebounce, validation.Min(time.Duration(0))),
	)
}

// Options returns the codec options for a conversion session.
func (c *ConversionConfig) Options() convert.Options {
	return convert.Options{Markdown: markdown.Options{
		MarkdownMode: c.MarkdownMode,
		SceneTitles:  c.SceneTitles,
	}}
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
		Library: LibraryConfig{
			Path: ".",
		},
		SQLite: SQLiteConfig{
			Path: "./ywmark.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Conversion: ConversionConfig{
			SceneTitles:   true,
			LockFile:      convert.DefaultLockFile(),
			WatchDebounce: 300 * time.Millisecond,
		},
	}
}
