// Package strategy decides when a binding's activation actually runs.
//
// Two variants exist behind one contract: an immediate strategy that
// activates synchronously, and a condition-gated strategy that defers
// activation until an HCL expression over the node's attributes and the
// process environment evaluates to true. The orchestrator core only selects
// a variant; it never evaluates conditions itself.
package strategy

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/vk/gridbind/internal/doctree"
)

// ActivateFunc performs the actual binding activation once the strategy
// decides it is time.
type ActivateFunc func(ctx context.Context) error

// Strategy controls when a binding activates. Start requests activation; the
// contract is "activation was requested", not "activation completed" — a
// gated strategy returns immediately and activates later. Stop cancels any
// pending deferred activation and is safe to call more than once.
type Strategy interface {
	Start(ctx context.Context, activate ActivateFunc) error
	Stop()
}

// New selects the strategy variant for a binding: immediate when the
// conditions expression is empty, condition-gated otherwise.
func New(conditions string, node *doctree.Node, clock clockwork.Clock) (Strategy, error) {
	if conditions == "" {
		return immediate{}, nil
	}
	gated, err := newConditionGated(conditions, node, clock)
	if err != nil {
		return nil, fmt.Errorf("invalid conditions expression %q: %w", conditions, err)
	}
	return gated, nil
}

// immediate activates during Start, on the caller's stack.
type immediate struct{}

func (immediate) Start(ctx context.Context, activate ActivateFunc) error {
	return activate(ctx)
}

func (immediate) Stop() {}
