// Package orchestrator owns the registry of live node controllers and the
// scan/bind/query/destroy lifecycle around them.
//
// A scan asks the document tree for annotated nodes, skips nodes already
// wrapped, parses each declaration into binding specs, orders the batch by
// priority, and activates each controller in that order. Newly created
// controllers merge into the persistent registry; nothing is ever evicted
// except through an explicit destroy.
//
// The orchestrator is single-threaded by contract: scan, bind, query and
// destroy run to completion on the caller's stack and may not be interleaved
// from other goroutines without external synchronization. Deferred
// activation inside a controller is the strategy's business, not the
// orchestrator's.
package orchestrator
