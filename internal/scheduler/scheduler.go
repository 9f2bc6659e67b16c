// Package scheduler orders a batch of newly discovered controllers for
// activation.
//
// Activation order is highest priority first. Undeclared priorities coerce
// to 0, so positive-priority nodes activate before neutral ones and neutral
// ones before negative. Equal priorities keep their discovery order: the
// sort is stable by construction, not by reversing an ascending sort.
// Ordering applies only within a single scan/bind batch; controllers already
// in the registry from earlier batches are never re-ordered.
package scheduler

import (
	"cmp"
	"slices"
)

// Prioritized is anything carrying a signed activation priority.
type Prioritized interface {
	Priority() int
}

// Order returns a new slice with the batch in activation order. The input
// slice is left untouched.
func Order[T Prioritized](batch []T) []T {
	ordered := slices.Clone(batch)
	slices.SortStableFunc(ordered, func(a, b T) int {
		return cmp.Compare(b.Priority(), a.Priority())
	})
	return ordered
}
