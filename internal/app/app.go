package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pclab/shaperun/internal/ctxlog"
	"github.com/pclab/shaperun/internal/plan"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	plan       *plan.Plan
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and the loaded run
// plan. A plan that fails to load is a fatal startup error and panics; the
// entrypoint recovers and turns it into a clean exit.
func NewApp(outW io.Writer, config *Config) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	loader := plan.NewLoader()
	p, err := loader.Load(ctx, config.PlanPath)
	if err != nil {
		panic(fmt.Errorf("failed to load plan: %w", err))
	}
	logger.Debug("Plan loaded.", "experiments", len(p.Experiments))

	// CLI flags override the plan's defaults block.
	if len(config.Trainer) > 0 {
		p.Defaults.Trainer = config.Trainer
	}
	if len(config.Tester) > 0 {
		p.Defaults.Tester = config.Tester
	}
	if config.OutputRoot != "" {
		p.Defaults.OutputRoot = config.OutputRoot
	}

	return &App{
		outW:   outW,
		logger: logger,
		config: config,
		plan:   p,
	}
}

// Plan returns the loaded run plan. This is primarily for testing.
func (a *App) Plan() *plan.Plan {
	return a.plan
}
