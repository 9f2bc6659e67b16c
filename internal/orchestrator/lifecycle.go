package orchestrator

import (
	"context"

	"github.com/vk/gridbind/internal/binding"
	"github.com/vk/gridbind/internal/controller"
	"github.com/vk/gridbind/internal/ctxlog"
	"github.com/vk/gridbind/internal/doctree"
)

// Bind is the programmatic counterpart to discovery: it wraps node in a
// single controller and activates it with the given specs directly,
// bypassing attribute parsing. The controller is merged into the registry
// and returned.
//
// With no specs (or a nil node) nothing happens and nil is returned. If the
// node is already wrapped, the existing controller is returned unchanged so
// no node ever carries two live controllers.
func (o *Orchestrator) Bind(ctx context.Context, node *doctree.Node, specs ...binding.Spec) (*controller.Controller, error) {
	logger := ctxlog.FromContext(ctx)

	if node == nil || len(specs) == 0 {
		logger.Debug("Bind called without node or specs, nothing to do.")
		return nil, nil
	}
	if existing, ok := o.wrapped[node]; ok {
		logger.Debug("Bind target already wrapped, returning existing controller.", "node", node.Path())
		return existing, nil
	}

	rawPriority, _ := node.Attribute(o.cfg.Attrs.PriorityAttr)
	c := controller.New(node, rawPriority, o.handlers, o.clock)
	if err := c.Load(ctx, specs); err != nil {
		logger.Warn("Binding activation reported errors.", "node", node.Path(), "error", err)
	}
	o.merge(c)

	logger.Debug("Node bound.", "node", node.Path(), "bindings", len(specs), "registry_size", len(o.registry))
	return c, nil
}

// Destroy removes each of the given controllers from the registry by
// identity and releases its resources. Controllers not present in the
// registry are skipped without error. It returns true only when every
// requested controller was found and destroyed; a false result does not roll
// back the removals that did happen.
func (o *Orchestrator) Destroy(ctx context.Context, controllers []*controller.Controller) bool {
	logger := ctxlog.FromContext(ctx)

	all := true
	destroyed := 0
	for _, c := range controllers {
		idx := -1
		for i, registered := range o.registry {
			if registered == c {
				idx = i
				break
			}
		}
		if idx < 0 {
			logger.Debug("Destroy target not in registry, skipping.", "node", c.Element().Path())
			all = false
			continue
		}

		o.registry = append(o.registry[:idx], o.registry[idx+1:]...)
		delete(o.wrapped, c.Element())
		c.Destroy(ctx)
		destroyed++
	}

	logger.Debug("Destroy finished.", "requested", len(controllers), "destroyed", destroyed, "registry_size", len(o.registry))
	return all
}
