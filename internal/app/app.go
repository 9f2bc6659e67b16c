package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/vk/gridbind/internal/ctxlog"
	"github.com/vk/gridbind/internal/doctree"
	"github.com/vk/gridbind/internal/handlers"
	"github.com/vk/gridbind/internal/orchestrator"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW         io.Writer
	logger       *slog.Logger
	handlers     *handlers.Handlers
	orchestrator *orchestrator.Orchestrator
	root         *doctree.Node
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, handler registry
// and orchestrator. A document that fails to load is a fatal startup error
// and panics; the CLI entrypoint recovers it into a clean exit.
func NewApp(outW io.Writer, cfg *Config, modules ...handlers.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	root, err := doctree.Load(ctx, cfg.DocPath)
	if err != nil {
		panic(fmt.Errorf("failed to load document: %w", err))
	}
	logger.Debug("Document tree loaded.", "path", cfg.DocPath)

	reg := handlers.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All module handlers registered.", "count", len(modules))

	orch := orchestrator.New(orchestrator.Config{
		Attrs:  cfg.Attrs,
		Strict: cfg.Strict,
	}, reg, clockwork.NewRealClock())

	return &App{
		outW:         outW,
		logger:       logger,
		handlers:     reg,
		orchestrator: orch,
		root:         root,
	}
}

// Orchestrator returns the application's orchestrator. This is primarily for testing.
func (a *App) Orchestrator() *orchestrator.Orchestrator {
	return a.orchestrator
}

// Root returns the loaded document root. This is primarily for testing.
func (a *App) Root() *doctree.Node {
	return a.root
}
