package doctree

// Query returns every node in the subtree rooted at root that carries the
// named attribute, in document order (preorder, source order among
// siblings). The root itself is included when annotated.
func Query(root *Node, attrName string) []*Node {
	if root == nil {
		return nil
	}
	var matches []*Node
	walk(root, func(n *Node) {
		if _, ok := n.attrs[attrName]; ok {
			matches = append(matches, n)
		}
	})
	return matches
}

func walk(n *Node, visit func(*Node)) {
	visit(n)
	for _, child := range n.Children {
		walk(child, visit)
	}
}
