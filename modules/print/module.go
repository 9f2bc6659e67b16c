package print

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/gridbind/internal/ctxlog"
	"github.com/vk/gridbind/internal/doctree"
	"github.com/vk/gridbind/internal/handlers"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Input defines the options for the print module.
type Input struct {
	Prefix string `json:"prefix"`
}

// OnBindPrint prints the bound node's address and attribute values.
func OnBindPrint(ctx context.Context, node *doctree.Node, input *Input) (handlers.TeardownFunc, error) {
	ctxlog.FromContext(ctx).Info("Printing bound node.", "node", node.Path())

	prefix := ""
	if input != nil && input.Prefix != "" {
		prefix = input.Prefix + " "
	}
	fmt.Printf("%s%s\n", prefix, node.Path())

	values := node.Values()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("      %s = %s\n", prefix+k, values[k].GoString())
	}

	return nil, nil
}

// Register registers the handler with the module registry.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("print", &handlers.RegisteredHandler{
		NewInput: func() any { return new(Input) },
		Fn:       OnBindPrint,
	})
}
