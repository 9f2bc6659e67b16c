package envcheck

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/gridbind/internal/ctxlog"
	"github.com/vk/gridbind/internal/doctree"
	"github.com/vk/gridbind/internal/handlers"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Input defines the options for the envcheck module.
type Input struct {
	// Vars are the environment variables that must be set on the host for
	// the binding to succeed.
	Vars []string `json:"vars"`
}

// OnBindEnvCheck verifies that every required environment variable is set.
func OnBindEnvCheck(ctx context.Context, node *doctree.Node, input *Input) (handlers.TeardownFunc, error) {
	logger := ctxlog.FromContext(ctx).With("node", node.Path())

	if input == nil || len(input.Vars) == 0 {
		logger.Warn("envcheck bound without any variables to check.")
		return nil, nil
	}

	for _, name := range input.Vars {
		if _, ok := os.LookupEnv(name); !ok {
			return nil, fmt.Errorf("required environment variable %q is not set", name)
		}
		logger.Debug("Environment variable present.", "name", name)
	}

	logger.Info("Environment check passed.", "vars", len(input.Vars))
	return nil, nil
}

// Register registers the handler with the module registry.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("envcheck", &handlers.RegisteredHandler{
		NewInput: func() any { return new(Input) },
		Fn:       OnBindEnvCheck,
	})
}
