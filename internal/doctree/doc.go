// Package doctree parses HCL documents into the hierarchical node tree that
// the orchestrator scans. Every HCL block becomes a Node carrying its literal
// attributes; nesting follows the source structure and sibling order follows
// source order, so traversals are in document order.
//
// The package deliberately knows nothing about bindings. It only answers two
// questions: "what is the value of attribute X on this node" and "which nodes
// under this root carry attribute X".
package doctree
