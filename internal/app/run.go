package app

import (
	"context"
	"fmt"

	"github.com/vk/gridbind/internal/ctxlog"
)

// Run scans the loaded document and activates every declared binding.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.logger.Info("Module handlers registered:", "paths", a.handlers.Paths())

	activated, err := a.orchestrator.Scan(ctx, a.root)
	if err != nil {
		return fmt.Errorf("document scan failed: %w", err)
	}

	if len(activated) == 0 {
		a.logger.Warn("No annotated nodes found, nothing was activated.")
		return nil
	}

	for _, c := range activated {
		fmt.Fprintf(a.outW, "bound %s -> %v (priority %d)\n", c.Element().Path(), c.BindingPaths(), c.Priority())
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
