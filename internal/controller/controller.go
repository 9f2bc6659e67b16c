// Package controller provides the lifecycle wrapper owning all bindings
// activated for one document node.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/vk/gridbind/internal/binding"
	"github.com/vk/gridbind/internal/ctxlog"
	"github.com/vk/gridbind/internal/doctree"
	"github.com/vk/gridbind/internal/handlers"
	"github.com/vk/gridbind/internal/strategy"
)

// Controller wraps exactly one document node together with the bindings
// activated for it. Controllers are created by a discovery scan or a manual
// bind, live in the orchestrator's registry, and are torn down only through
// an explicit destroy.
type Controller struct {
	node     *doctree.Node
	priority int
	handlers *handlers.Handlers
	clock    clockwork.Clock

	mu        sync.Mutex
	bindings  []*activeBinding
	destroyed bool

	destroyOnce sync.Once
}

// activeBinding tracks one started strategy and, once the handler has run,
// its teardown. The teardown is written by the strategy's goroutine for
// gated bindings, hence the controller mutex.
type activeBinding struct {
	path     string
	strategy strategy.Strategy
	teardown handlers.TeardownFunc
}

// New wraps a node, capturing its raw priority attribute. A missing or
// malformed priority coerces to 0.
func New(node *doctree.Node, rawPriority string, reg *handlers.Handlers, clock clockwork.Clock) *Controller {
	return &Controller{
		node:     node,
		priority: parsePriority(rawPriority),
		handlers: reg,
		clock:    clock,
	}
}

// Element returns the wrapped document node.
func (c *Controller) Element() *doctree.Node {
	return c.node
}

// Priority returns the node's activation priority.
func (c *Controller) Priority() int {
	return c.priority
}

// Load activates the given specs in order. Each spec's strategy is selected
// by the presence of a conditions expression: immediate when absent,
// condition-gated when present. Activation failures do not stop the
// remaining specs; they are joined into the returned error.
func (c *Controller) Load(ctx context.Context, specs []binding.Spec) error {
	logger := ctxlog.FromContext(ctx)

	var errs []error
	for _, spec := range specs {
		strat, err := strategy.New(spec.Conditions, c.node, c.clock)
		if err != nil {
			errs = append(errs, fmt.Errorf("module '%s': %w", spec.Path, err))
			continue
		}

		ab := &activeBinding{path: spec.Path, strategy: strat}
		c.mu.Lock()
		c.bindings = append(c.bindings, ab)
		c.mu.Unlock()

		path, options := spec.Path, spec.Options
		err = strat.Start(ctx, func(ctx context.Context) error {
			teardown, err := c.handlers.Invoke(ctx, path, c.node, options)
			if teardown != nil {
				c.mu.Lock()
				if c.destroyed {
					c.mu.Unlock()
					// The controller was destroyed while the handler ran.
					// Nobody will ever read ab.teardown now; release here.
					if terr := teardown(ctx); terr != nil {
						ctxlog.FromContext(ctx).Warn("Binding teardown failed.", "module", path, "node", c.node.Path(), "error", terr)
					}
					return err
				}
				ab.teardown = teardown
				c.mu.Unlock()
			}
			return err
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("module '%s' failed on %s: %w", spec.Path, c.node.Path(), err))
			continue
		}
		logger.Debug("Binding activation requested.", "module", spec.Path, "node", c.node.Path(), "deferred", spec.Conditions != "")
	}
	return errors.Join(errs...)
}

// Destroy cancels pending deferred activations and releases everything the
// controller's handlers set up. It runs at most once; later calls are no-ops.
func (c *Controller) Destroy(ctx context.Context) {
	c.destroyOnce.Do(func() {
		logger := ctxlog.FromContext(ctx)

		c.mu.Lock()
		c.destroyed = true
		bindings := c.bindings
		c.bindings = nil
		teardowns := make([]handlers.TeardownFunc, len(bindings))
		for i, ab := range bindings {
			teardowns[i] = ab.teardown
		}
		c.mu.Unlock()

		for i, ab := range bindings {
			ab.strategy.Stop()
			if teardowns[i] != nil {
				if err := teardowns[i](ctx); err != nil {
					logger.Warn("Binding teardown failed.", "module", ab.path, "node", c.node.Path(), "error", err)
				}
			}
		}
		logger.Debug("Controller destroyed.", "node", c.node.Path(), "bindings_released", len(bindings))
	})
}

// MatchesSelector reports whether the wrapped node matches a selector,
// optionally restricted to the subtree under scope. Selectors take the form
// "type", "type.label", or ".label"; an empty selector matches every node,
// so a scope alone can be used as the filter.
func (c *Controller) MatchesSelector(selector string, scope *doctree.Node) bool {
	if scope != nil && !c.node.Within(scope) {
		return false
	}
	if selector == "" {
		return true
	}

	typePart, labelPart, _ := strings.Cut(selector, ".")
	if typePart != "" && typePart != c.node.Type {
		return false
	}
	if labelPart != "" {
		for _, label := range c.node.Labels {
			if label == labelPart {
				return true
			}
		}
		return false
	}
	return true
}

// BindingPaths returns the module paths currently held by the controller, in
// activation-request order. Used for logs and tests.
func (c *Controller) BindingPaths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	paths := make([]string, 0, len(c.bindings))
	for _, ab := range c.bindings {
		paths = append(paths, ab.path)
	}
	return paths
}

// parsePriority coerces the raw priority attribute to a signed int.
// Malformed or missing values are neutral, never an error.
func parsePriority(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
