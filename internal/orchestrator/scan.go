package orchestrator

import (
	"context"

	"github.com/vk/gridbind/internal/binding"
	"github.com/vk/gridbind/internal/controller"
	"github.com/vk/gridbind/internal/ctxlog"
	"github.com/vk/gridbind/internal/doctree"
	"github.com/vk/gridbind/internal/scheduler"
)

// Scan discovers annotated nodes under root, wraps each not-yet-wrapped one
// in a controller, and activates the batch in priority order. All newly
// created controllers are merged into the registry and returned, in
// activation order. Re-scanning the same subtree is idempotent: nodes whose
// controller is already registered are skipped.
//
// Declarations are parsed for the whole batch before anything activates, so
// in strict mode a ParseError fails the scan without side effects. A nil
// root is an ArgumentError in strict mode and an empty result otherwise.
func (o *Orchestrator) Scan(ctx context.Context, root *doctree.Node) ([]*controller.Controller, error) {
	logger := ctxlog.FromContext(ctx)

	if root == nil {
		if o.cfg.Strict {
			return nil, &ArgumentError{Op: "scan", Msg: "root node is required"}
		}
		logger.Warn("Scan called without a root node, nothing to do.")
		return nil, nil
	}

	candidates := doctree.Query(root, o.cfg.Attrs.ModuleAttr)
	logger.Debug("Scan discovered annotated nodes.", "root", root.Path(), "count", len(candidates))

	// Wrap and parse first; activation only starts once the whole batch
	// is known to be well-formed.
	batch := make([]*controller.Controller, 0, len(candidates))
	specsFor := make(map[*controller.Controller][]binding.Spec, len(candidates))
	for _, node := range candidates {
		if o.Wrapped(node) {
			logger.Debug("Skipping already-wrapped node.", "node", node.Path())
			continue
		}

		rawPriority, _ := node.Attribute(o.cfg.Attrs.PriorityAttr)
		c := controller.New(node, rawPriority, o.handlers, o.clock)

		specs, err := o.parser.ParseNode(ctx, node)
		if err != nil {
			return nil, err
		}
		batch = append(batch, c)
		specsFor[c] = specs
	}

	if len(batch) == 0 {
		logger.Debug("Scan produced no new controllers.")
		return nil, nil
	}

	ordered := scheduler.Order(batch)
	for _, c := range ordered {
		if err := c.Load(ctx, specsFor[c]); err != nil {
			// Activation failures leave the controller registered so
			// it can still be queried and destroyed.
			logger.Warn("Binding activation reported errors.", "node", c.Element().Path(), "error", err)
		}
		o.merge(c)
	}

	logger.Info("Scan complete.", "root", root.Path(), "activated", len(ordered), "registry_size", len(o.registry))
	return ordered, nil
}
