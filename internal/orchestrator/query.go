package orchestrator

import (
	"slices"

	"github.com/vk/gridbind/internal/controller"
	"github.com/vk/gridbind/internal/doctree"
)

// Query returns the registered controllers matching a selector within the
// subtree under scope, in registry order. An empty selector with a nil scope
// returns the whole registry. The result is always a copy; mutating it never
// affects the registry.
func (o *Orchestrator) Query(selector string, scope *doctree.Node) []*controller.Controller {
	if selector == "" && scope == nil {
		return slices.Clone(o.registry)
	}

	var matches []*controller.Controller
	for _, c := range o.registry {
		if c.MatchesSelector(selector, scope) {
			matches = append(matches, c)
		}
	}
	return matches
}

// QueryFirst returns the first controller matching the selector and scope,
// in registry order, or false when nothing matches.
func (o *Orchestrator) QueryFirst(selector string, scope *doctree.Node) (*controller.Controller, bool) {
	for _, c := range o.registry {
		if c.MatchesSelector(selector, scope) {
			return c, true
		}
	}
	return nil, false
}
