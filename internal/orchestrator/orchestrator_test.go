package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridbind/internal/binding"
	"github.com/vk/gridbind/internal/controller"
	"github.com/vk/gridbind/internal/ctxlog"
	"github.com/vk/gridbind/internal/doctree"
	"github.com/vk/gridbind/internal/handlers"
)

func testCtx() context.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return ctxlog.WithLogger(context.Background(), logger)
}

type markInput struct {
	Mark string `json:"mark"`
}

// markRecorder registers a module that records the order in which nodes
// activate it and how many of its teardowns have run.
type markRecorder struct {
	activations []string
	teardowns   int
}

func (r *markRecorder) register(reg *handlers.Handlers, path string) {
	reg.Register(path, &handlers.RegisteredHandler{
		NewInput: func() any { return new(markInput) },
		Fn: func(ctx context.Context, node *doctree.Node, input *markInput) (handlers.TeardownFunc, error) {
			mark := input.Mark
			if mark == "" {
				mark = node.Path()
			}
			r.activations = append(r.activations, mark)
			return func(ctx context.Context) error {
				r.teardowns++
				return nil
			}, nil
		},
	})
}

func newTestOrchestrator(t *testing.T, strict bool) (*Orchestrator, *markRecorder) {
	t.Helper()
	reg := handlers.New()
	rec := &markRecorder{}
	rec.register(reg, "mark")
	return New(Config{Strict: strict}, reg, clockwork.NewFakeClock()), rec
}

func parseDoc(t *testing.T, src string) *doctree.Node {
	t.Helper()
	root, err := doctree.Parse(testCtx(), []byte(src), "test.hcl")
	require.NoError(t, err)
	return root
}

func TestScan_EmptyDocument(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, false)
	root := parseDoc(t, `section "empty" {}`)

	activated, err := o.Scan(testCtx(), root)
	require.NoError(t, err)
	assert.Empty(t, activated)
	assert.Empty(t, o.Query("", nil), "registry must stay unchanged")
}

func TestScan_ActivatesInPriorityOrder(t *testing.T) {
	t.Parallel()

	// Discovery order A(5), B(0), C(-3), D(5); expected activation order
	// A, D, B, C.
	o, rec := newTestOrchestrator(t, false)
	root := parseDoc(t, `
section "A" {
  bind          = "[[\"mark\", {\"mark\": \"A\"}]]"
  bind-priority = 5
}
section "B" {
  bind = "[[\"mark\", {\"mark\": \"B\"}]]"
}
section "C" {
  bind          = "[[\"mark\", {\"mark\": \"C\"}]]"
  bind-priority = -3
}
section "D" {
  bind          = "[[\"mark\", {\"mark\": \"D\"}]]"
  bind-priority = 5
}
`)

	activated, err := o.Scan(testCtx(), root)
	require.NoError(t, err)
	require.Len(t, activated, 4)

	assert.Equal(t, []string{"A", "D", "B", "C"}, rec.activations)
	assert.Len(t, o.Query("", nil), 4)
}

func TestScan_IsIdempotent(t *testing.T) {
	t.Parallel()

	o, rec := newTestOrchestrator(t, false)
	root := parseDoc(t, `
section "A" { bind = "mark" }
section "B" { bind = "mark" }
`)

	first, err := o.Scan(testCtx(), root)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := o.Scan(testCtx(), root)
	require.NoError(t, err)
	assert.Empty(t, second, "second scan must exclude already-processed nodes")

	assert.Len(t, rec.activations, 2, "each node activates at most once")
	assert.Len(t, o.Query("", nil), 2)
}

func TestScan_NilRoot(t *testing.T) {
	t.Parallel()

	t.Run("lenient returns empty", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, false)
		activated, err := o.Scan(testCtx(), nil)
		require.NoError(t, err)
		assert.Empty(t, activated)
	})

	t.Run("strict returns ArgumentError", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, true)
		_, err := o.Scan(testCtx(), nil)
		var argErr *ArgumentError
		require.ErrorAs(t, err, &argErr)
		assert.Equal(t, "scan", argErr.Op)
	})
}

func TestScan_StrictParseErrorHasNoSideEffects(t *testing.T) {
	t.Parallel()

	o, rec := newTestOrchestrator(t, true)
	root := parseDoc(t, `
section "good" { bind = "mark" }
section "bad"  { bind = "[broken" }
`)

	_, err := o.Scan(testCtx(), root)
	var parseErr *binding.ParseError
	require.ErrorAs(t, err, &parseErr)

	assert.Empty(t, rec.activations, "nothing may activate when the batch fails to parse")
	assert.Empty(t, o.Query("", nil))
}

func TestScan_LenientSkipsMalformedDeclarations(t *testing.T) {
	t.Parallel()

	o, rec := newTestOrchestrator(t, false)
	root := parseDoc(t, `
section "good" { bind = "mark" }
section "bad"  { bind = "[broken" }
`)

	activated, err := o.Scan(testCtx(), root)
	require.NoError(t, err)
	// The malformed node still gets a controller; it simply has no
	// bindings to activate.
	assert.Len(t, activated, 2)
	assert.Len(t, rec.activations, 1)
}

func TestBind(t *testing.T) {
	t.Parallel()

	t.Run("programmatic bind activates and registers", func(t *testing.T) {
		o, rec := newTestOrchestrator(t, false)
		root := parseDoc(t, `section "A" {}`)
		node := root.Children[0]

		c, err := o.Bind(testCtx(), node, binding.Spec{Path: "mark", Options: map[string]any{"mark": "manual"}})
		require.NoError(t, err)
		require.NotNil(t, c)

		assert.Equal(t, []string{"manual"}, rec.activations)
		assert.Equal(t, []*controller.Controller{c}, o.Query("", nil))
		assert.True(t, o.Wrapped(node))
	})

	t.Run("no specs returns nil without mutating the registry", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, false)
		root := parseDoc(t, `section "A" {}`)

		c, err := o.Bind(testCtx(), root.Children[0])
		require.NoError(t, err)
		assert.Nil(t, c)
		assert.Empty(t, o.Query("", nil))
	})

	t.Run("nil node returns nil", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, false)
		c, err := o.Bind(testCtx(), nil, binding.Spec{Path: "mark"})
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("already wrapped node returns the existing controller", func(t *testing.T) {
		o, rec := newTestOrchestrator(t, false)
		root := parseDoc(t, `section "A" {}`)
		node := root.Children[0]

		first, err := o.Bind(testCtx(), node, binding.Spec{Path: "mark", Options: map[string]any{"mark": "one"}})
		require.NoError(t, err)
		second, err := o.Bind(testCtx(), node, binding.Spec{Path: "mark", Options: map[string]any{"mark": "two"}})
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, []string{"one"}, rec.activations, "a wrapped node must not activate again")
		assert.Len(t, o.Query("", nil), 1)
	})
}

func TestQuery(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, false)
	root := parseDoc(t, `
section "header" {
  bind = "mark"
  item "logo" { bind = "mark" }
}
section "footer" { bind = "mark" }
`)

	activated, err := o.Scan(testCtx(), root)
	require.NoError(t, err)
	require.Len(t, activated, 3)

	t.Run("no filter returns defensive copy", func(t *testing.T) {
		all := o.Query("", nil)
		require.Len(t, all, 3)

		all[0] = nil
		all = all[:1]
		assert.Len(t, o.Query("", nil), 3, "mutating the returned slice must not affect the registry")
		assert.NotNil(t, o.Query("", nil)[0])
	})

	t.Run("selector filters in registry order", func(t *testing.T) {
		sections := o.Query("section", nil)
		require.Len(t, sections, 2)
	})

	t.Run("scope filters to subtree", func(t *testing.T) {
		header := root.Children[0]
		within := o.Query("", header)
		require.Len(t, within, 2)
	})

	t.Run("first match", func(t *testing.T) {
		c, ok := o.QueryFirst("item", nil)
		require.True(t, ok)
		assert.Equal(t, "item", c.Element().Type)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := o.QueryFirst("nav", nil)
		assert.False(t, ok)
		assert.Empty(t, o.Query("nav", nil))
	})
}

func TestDestroy(t *testing.T) {
	t.Parallel()

	t.Run("partial destroy removes what it finds and returns false", func(t *testing.T) {
		o, rec := newTestOrchestrator(t, false)
		root := parseDoc(t, `
section "A" { bind = "mark" }
section "B" { bind = "mark" }
`)
		activated, err := o.Scan(testCtx(), root)
		require.NoError(t, err)
		require.Len(t, activated, 2)

		w1 := activated[0]
		// w2 is never registered with this orchestrator.
		other, _ := newTestOrchestrator(t, false)
		otherRoot := parseDoc(t, `section "X" { bind = "mark" }`)
		otherActivated, err := other.Scan(testCtx(), otherRoot)
		require.NoError(t, err)
		w2 := otherActivated[0]

		ok := o.Destroy(testCtx(), []*controller.Controller{w1, w2})
		assert.False(t, ok, "not every requested controller was found")
		assert.Len(t, o.Query("", nil), 1, "w1 must still have been removed")
		assert.False(t, o.Wrapped(w1.Element()))
		assert.Equal(t, 1, rec.teardowns, "w1's teardown must run despite the false return")
	})

	t.Run("full destroy returns true and frees nodes for re-scan", func(t *testing.T) {
		o, rec := newTestOrchestrator(t, false)
		root := parseDoc(t, `section "A" { bind = "mark" }`)

		activated, err := o.Scan(testCtx(), root)
		require.NoError(t, err)
		require.Len(t, activated, 1)

		ok := o.Destroy(testCtx(), activated)
		assert.True(t, ok)
		assert.Empty(t, o.Query("", nil))

		rescanned, err := o.Scan(testCtx(), root)
		require.NoError(t, err)
		assert.Len(t, rescanned, 1, "destroyed nodes are eligible for wrapping again")
		assert.Len(t, rec.activations, 2)
	})

	t.Run("destroying nothing succeeds", func(t *testing.T) {
		o, _ := newTestOrchestrator(t, false)
		assert.True(t, o.Destroy(testCtx(), nil))
	})
}
