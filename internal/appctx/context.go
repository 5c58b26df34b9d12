// Package appctx provides application context helpers.
package appctx

import (
	"context"
	"os"

	"github.com/ofspectrum/apicheck/internal/config"
	"github.com/ofspectrum/apicheck/internal/creds"
	"github.com/ofspectrum/apicheck/internal/output"
)

// contextKey is a private type for context keys.
type contextKey string

const appKey contextKey = "app"

// App holds the shared application context for all commands.
type App struct {
	Config *config.Config
	Creds  *creds.Store
	Output *output.Writer

	// Flags holds the global flag values
	Flags GlobalFlags
}

// GlobalFlags holds values for global CLI flags.
type GlobalFlags struct {
	// Output format flags
	JSON   bool
	Quiet  bool
	Styled bool // Force ANSI styled output (even when piped)

	// Context flags
	BaseURL    string
	ScratchDir string

	// Behavior flags
	Verbose int // 0=off, 1=progress notes, 2=notes+request detail
}

// NewApp creates a new App with the given configuration.
func NewApp(cfg *config.Config) *App {
	format := output.FormatAuto
	switch cfg.Format {
	case "json":
		format = output.FormatJSON
	case "styled":
		format = output.FormatStyled
	case "quiet":
		format = output.FormatQuiet
	}

	return &App{
		Config: cfg,
		Creds:  creds.NewStore(cfg),
		Output: output.New(output.Options{
			Format: format,
			Writer: os.Stdout,
		}),
	}
}

// ApplyFlags applies global flag values to the app configuration.
// Order matters: the most specific mode wins.
func (a *App) ApplyFlags() {
	if a.Flags.Quiet {
		a.Output = output.New(output.Options{
			Format: output.FormatQuiet,
			Writer: os.Stdout,
		})
	} else if a.Flags.JSON {
		a.Output = output.New(output.Options{
			Format: output.FormatJSON,
			Writer: os.Stdout,
		})
	} else if a.Flags.Styled {
		a.Output = output.New(output.Options{
			Format: output.FormatStyled,
			Writer: os.Stdout,
		})
	}
}

// Verbosity returns the effective verbosity level, letting the
// APICHECK_DEBUG env var raise what the -v flags set.
func (a *App) Verbosity() int {
	level := a.Flags.Verbose
	if os.Getenv("APICHECK_DEBUG") != "" && level < 2 {
		level = 2
	}
	return level
}

// WithApp stores the app in the context.
func WithApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

// FromContext retrieves the app from the context.
func FromContext(ctx context.Context) *App {
	app, _ := ctx.Value(appKey).(*App)
	return app
}
