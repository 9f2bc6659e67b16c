package strategy

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/jonboulle/clockwork"
	"github.com/vk/gridbind/internal/ctxlog"
	"github.com/vk/gridbind/internal/doctree"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// conditionGated polls its expression until it yields true, then activates.
// The expression sees the bound node's attributes as `node.*` and the
// process environment as `env.*`.
type conditionGated struct {
	expr  hcl.Expression
	node  *doctree.Node
	clock clockwork.Clock

	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

func newConditionGated(conditions string, node *doctree.Node, clock clockwork.Clock) (*conditionGated, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(conditions), "conditions", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	return &conditionGated{
		expr:  expr,
		node:  node,
		clock: clock,
	}, nil
}

// Start launches the polling goroutine and returns immediately.
func (s *conditionGated) Start(ctx context.Context, activate ActivateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.watch(watchCtx, activate)
	return nil
}

// Stop cancels a pending activation. Once stopped the strategy never
// activates, even if Start is called again.
func (s *conditionGated) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *conditionGated) watch(ctx context.Context, activate ActivateFunc) {
	logger := ctxlog.FromContext(ctx).With("node", s.node.Path())

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 0 // poll until destroyed

	for {
		ready, err := s.evaluate()
		if err != nil {
			logger.Warn("Condition evaluation failed, will retry.", "error", err)
		}
		if ready {
			logger.Debug("Condition satisfied, activating binding.")
			if err := activate(ctx); err != nil {
				logger.Error("Deferred activation failed.", "error", err)
			}
			return
		}

		select {
		case <-ctx.Done():
			logger.Debug("Condition watch cancelled.")
			return
		case <-s.clock.After(bo.NextBackOff()):
		}
	}
}

// evaluate runs the expression against the node attributes and a fresh
// snapshot of the environment. Anything that is not a known, non-null true
// counts as false.
func (s *conditionGated) evaluate() (bool, error) {
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"node": objectVal(s.node.Values()),
			"env":  envVal(),
		},
	}

	val, diags := s.expr.Value(evalCtx)
	if diags.HasErrors() {
		return false, diags
	}
	if val.IsNull() || !val.IsKnown() {
		return false, nil
	}
	boolVal, err := convert.Convert(val, cty.Bool)
	if err != nil {
		return false, err
	}
	return boolVal.True(), nil
}

func objectVal(values map[string]cty.Value) cty.Value {
	if len(values) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(values)
}

func envVal() cty.Value {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok {
			env[key] = cty.StringVal(value)
		}
	}
	return objectVal(env)
}
