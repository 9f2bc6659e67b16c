package httpping

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/gridbind/internal/ctxlog"
	"github.com/vk/gridbind/internal/doctree"
	"github.com/vk/gridbind/internal/handlers"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Input defines the options for the httpping module.
type Input struct {
	URL       string `json:"url"`
	TimeoutMS int    `json:"timeout_ms"`
}

// OnBindHTTPPing issues a single GET against the configured URL when the
// binding activates. The client's idle connections are released on teardown.
func OnBindHTTPPing(ctx context.Context, node *doctree.Node, input *Input) (handlers.TeardownFunc, error) {
	logger := ctxlog.FromContext(ctx).With("node", node.Path())

	if input == nil || input.URL == "" {
		return nil, fmt.Errorf("httpping requires a 'url' option")
	}

	timeout := 5 * time.Second
	if input.TimeoutMS > 0 {
		timeout = time.Duration(input.TimeoutMS) * time.Millisecond
	}
	client := &http.Client{Timeout: timeout}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid httpping url %q: %w", input.URL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpping request to %s failed: %w", input.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("httpping to %s returned status %d", input.URL, resp.StatusCode)
	}
	logger.Info("HTTP ping succeeded.", "url", input.URL, "status", resp.StatusCode)

	teardown := func(ctx context.Context) error {
		client.CloseIdleConnections()
		return nil
	}
	return teardown, nil
}

// Register registers the handler with the module registry.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("httpping", &handlers.RegisteredHandler{
		NewInput: func() any { return new(Input) },
		Fn:       OnBindHTTPPing,
	})
}
