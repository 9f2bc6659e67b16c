package orchestrator

import (
	"github.com/jonboulle/clockwork"
	"github.com/vk/gridbind/internal/binding"
	"github.com/vk/gridbind/internal/controller"
	"github.com/vk/gridbind/internal/doctree"
	"github.com/vk/gridbind/internal/handlers"
)

// Config carries the orchestrator's construction-time settings: the
// attribute names declarations are read from, and whether the strict error
// contract is enforced. In lenient mode a nil scan root yields an empty
// result and malformed declarations degrade to no bindings.
type Config struct {
	Attrs  binding.Config
	Strict bool
}

// ArgumentError reports a missing required argument to an orchestrator
// operation. It is only returned in strict mode.
type ArgumentError struct {
	Op  string
	Msg string
}

func (e *ArgumentError) Error() string {
	return e.Op + ": " + e.Msg
}

// Orchestrator discovers annotated document nodes, activates their bindings
// and owns the registry of resulting controllers. Registry order is
// append-only except for explicit removal by identity.
type Orchestrator struct {
	cfg      Config
	parser   *binding.Parser
	handlers *handlers.Handlers
	clock    clockwork.Clock

	registry []*controller.Controller
	// wrapped answers "is this node currently wrapped" for the
	// idempotency contract, so double-wrapping is impossible even across
	// independent callers of Scan and Bind.
	wrapped map[*doctree.Node]*controller.Controller
}

// New creates an orchestrator with an empty registry. The clock is handed to
// every controller for its deferred activation strategies; production
// callers pass clockwork.NewRealClock().
func New(cfg Config, reg *handlers.Handlers, clock clockwork.Clock) *Orchestrator {
	if cfg.Attrs == (binding.Config{}) {
		cfg.Attrs = binding.DefaultConfig()
	}
	return &Orchestrator{
		cfg:      cfg,
		parser:   binding.NewParser(cfg.Attrs, cfg.Strict),
		handlers: reg,
		clock:    clock,
		wrapped:  make(map[*doctree.Node]*controller.Controller),
	}
}

// Wrapped reports whether the node is currently wrapped by a live
// controller in this registry.
func (o *Orchestrator) Wrapped(node *doctree.Node) bool {
	_, ok := o.wrapped[node]
	return ok
}

// merge appends a controller to the registry and records its node as
// wrapped.
func (o *Orchestrator) merge(c *controller.Controller) {
	o.registry = append(o.registry, c)
	o.wrapped[c.Element()] = c
}
