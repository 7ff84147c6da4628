package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vk/cmorize/internal/config"
	"github.com/vk/cmorize/internal/ctxlog"
	"github.com/vk/cmorize/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, mods ...registry.Module) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW).
		With("run_id", uuid.NewString())
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.JobPath)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	if appConfig.Workers > 0 {
		model.Job.Workers = appConfig.Workers
	}

	reg := registry.New()
	if len(mods) == 0 {
		mods = coreStages
	}
	for _, mod := range mods {
		mod.Register(reg)
	}
	logger.Debug("All stage modules registered.", "count", len(mods))

	// Unknown stage names fail now, before any chain is built.
	if err := validateStages(model, reg); err != nil {
		panic(err)
	}
	logger.Debug("Stage validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		model:    model,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry { return a.registry }

// Model returns the loaded configuration model. This is primarily for testing.
func (a *App) Model() *config.Model { return a.model }

// validateStages checks every chain's stage tokens against the registry so
// that a typo in a job file surfaces immediately as one collected error.
func validateStages(model *config.Model, reg *registry.Registry) error {
	var errs []string
	for _, c := range model.Chains {
		for _, token := range c.Stages {
			if _, ok := reg.Stage(token); !ok {
				errs = append(errs, fmt.Sprintf(
					"chain %q: unknown stage %q, registered stages: %v",
					c.Name, token, reg.Tokens()))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("job validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
