package internal

import (
	"log/slog"

	"github.com/starford/ywmark/internal/convert"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	logger  *slog.Logger
	version string
	confirm convert.ConfirmFunc
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogger replaces the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithConfirm sets the overwrite prompt used by Convert. Without one,
// existing files are overwritten.
func WithConfirm(fn convert.ConfirmFunc) Option {
	return func(a *application) {
		a.confirm = fn
	}
}
