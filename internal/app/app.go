package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/quafel/quafel/internal/config"
	"github.com/quafel/quafel/internal/ctxlog"
	"github.com/quafel/quafel/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW        io.Writer
	logger      *slog.Logger
	registry    *registry.Registry
	config      *Config
	experiments *config.Set
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry.
// Startup errors are fatal and panic; the entrypoint recovers them into a
// clean exit.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All framework modules registered.", "count", len(modules))

	var experiments *config.Set
	if cfg.ExperimentPath != "" {
		set, err := config.Load(ctx, cfg.ExperimentPath)
		if err != nil {
			panic(fmt.Errorf("failed to load experiment configuration: %w", err))
		}
		logger.Debug("Experiment configuration loaded.", "experiments", set.Names())
		experiments = set
	}

	return &App{
		outW:        outW,
		logger:      logger,
		registry:    reg,
		config:      cfg,
		experiments: experiments,
	}
}

// Registry returns the application's registry. This is primarily for
// testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
