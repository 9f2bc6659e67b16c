// Package binding defines the module-binding spec and the parser for the
// declaration micro-format read off document nodes.
//
// A declaration attribute holds either a bare module path (single-binding
// form) or a JSON array (multi-binding form). Array elements are objects
// with "path"/"options"/"conditions" keys, or dense 1-3 element tuples
// [path, a, b] where a string in position 1 is the conditions expression and
// anything else is the options payload.
package binding
