package strategy

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridbind/internal/ctxlog"
	"github.com/vk/gridbind/internal/doctree"
)

func testCtx() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

func testNode(t *testing.T, src string) *doctree.Node {
	t.Helper()
	root, err := doctree.Parse(testCtx(), []byte(src), "test.hcl")
	require.NoError(t, err)
	require.NotEmpty(t, root.Children)
	return root.Children[0]
}

func TestNew_SelectsVariant(t *testing.T) {
	node := testNode(t, `section "a" {}`)
	clock := clockwork.NewFakeClock()

	t.Run("empty conditions is immediate", func(t *testing.T) {
		strat, err := New("", node, clock)
		require.NoError(t, err)
		assert.IsType(t, immediate{}, strat)
	})

	t.Run("conditions expression is gated", func(t *testing.T) {
		strat, err := New(`node.ready == "yes"`, node, clock)
		require.NoError(t, err)
		assert.IsType(t, &conditionGated{}, strat)
	})

	t.Run("unparseable conditions fail construction", func(t *testing.T) {
		_, err := New(`((`, node, clock)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid conditions expression")
	})
}

func TestImmediate_ActivatesOnCallersStack(t *testing.T) {
	node := testNode(t, `section "a" {}`)
	strat, err := New("", node, clockwork.NewFakeClock())
	require.NoError(t, err)

	activated := false
	err = strat.Start(testCtx(), func(ctx context.Context) error {
		activated = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, activated, "immediate strategy must activate before Start returns")
}

func TestGated_ActivatesWhenNodeConditionHolds(t *testing.T) {
	node := testNode(t, `section "a" { ready = true }`)
	strat, err := New("node.ready", node, clockwork.NewFakeClock())
	require.NoError(t, err)
	defer strat.Stop()

	done := make(chan struct{})
	err = strat.Start(testCtx(), func(ctx context.Context) error {
		close(done)
		return nil
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("gated strategy did not activate on an immediately-true condition")
	}
}

func TestGated_WaitsForEnvCondition(t *testing.T) {
	node := testNode(t, `section "a" {}`)
	clock := clockwork.NewFakeClock()

	strat, err := New(`env.GRIDBIND_TEST_READY == "1"`, node, clock)
	require.NoError(t, err)
	defer strat.Stop()

	done := make(chan struct{})
	err = strat.Start(testCtx(), func(ctx context.Context) error {
		close(done)
		return nil
	})
	require.NoError(t, err)

	// First evaluation sees the variable unset; the watcher must be
	// sleeping, not activated.
	clock.BlockUntil(1)
	select {
	case <-done:
		t.Fatal("strategy activated before the condition held")
	default:
	}

	t.Setenv("GRIDBIND_TEST_READY", "1")
	clock.Advance(5 * time.Second)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("gated strategy did not activate after the condition became true")
	}
}

func TestGated_StopCancelsPendingActivation(t *testing.T) {
	node := testNode(t, `section "a" {}`)
	clock := clockwork.NewFakeClock()

	strat, err := New(`env.GRIDBIND_NEVER_SET == "1"`, node, clock)
	require.NoError(t, err)

	activated := make(chan struct{})
	err = strat.Start(testCtx(), func(ctx context.Context) error {
		close(activated)
		return nil
	})
	require.NoError(t, err)

	clock.BlockUntil(1)
	strat.Stop()
	clock.Advance(time.Hour)

	select {
	case <-activated:
		t.Fatal("stopped strategy must never activate")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGated_StartAfterStopIsNoop(t *testing.T) {
	node := testNode(t, `section "a" { ready = true }`)
	strat, err := New("node.ready", node, clockwork.NewFakeClock())
	require.NoError(t, err)

	strat.Stop()

	activated := make(chan struct{})
	err = strat.Start(testCtx(), func(ctx context.Context) error {
		close(activated)
		return nil
	})
	require.NoError(t, err)

	select {
	case <-activated:
		t.Fatal("a stopped strategy must not start watching")
	case <-time.After(100 * time.Millisecond):
	}
}
