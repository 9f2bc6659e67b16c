package doctree

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Node is one addressable unit of a parsed document: a single HCL block with
// its literal attributes and nested blocks. Nodes are compared by pointer
// identity; two loads of the same file produce distinct nodes.
type Node struct {
	// Type is the block type, e.g. "section". The synthetic root of a
	// loaded document has type "document".
	Type string
	// Labels are the block labels in source order.
	Labels []string

	Parent   *Node
	Children []*Node

	// Range is the source range of the block, for diagnostics.
	Range hcl.Range

	attrs map[string]cty.Value
}

// Attribute returns the named attribute rendered as a string, and whether it
// was present. Strings render verbatim; other primitives convert; structural
// values round-trip through JSON so they stay compatible with the
// declaration micro-format.
func (n *Node) Attribute(name string) (string, bool) {
	val, ok := n.attrs[name]
	if !ok {
		return "", false
	}
	return renderValue(val), true
}

// Values returns a copy of the node's attribute values, keyed by attribute
// name, for use in expression evaluation contexts.
func (n *Node) Values() map[string]cty.Value {
	out := make(map[string]cty.Value, len(n.attrs))
	for k, v := range n.attrs {
		out[k] = v
	}
	return out
}

// Path returns a slash-joined address from the document root to this node,
// e.g. "document/section.header/item.logo". Used only for logs.
func (n *Node) Path() string {
	var segments []string
	for cur := n; cur != nil; cur = cur.Parent {
		seg := cur.Type
		if len(cur.Labels) > 0 {
			seg += "." + strings.Join(cur.Labels, ".")
		}
		segments = append(segments, seg)
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return strings.Join(segments, "/")
}

// Within reports whether n is the given root or nested anywhere beneath it.
func (n *Node) Within(root *Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

func renderValue(val cty.Value) string {
	if val.IsNull() || !val.IsKnown() {
		return ""
	}
	if val.Type() == cty.String {
		return val.AsString()
	}
	if conv, err := convert.Convert(val, cty.String); err == nil {
		return conv.AsString()
	}
	b, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return ""
	}
	return string(b)
}
