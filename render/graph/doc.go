// Package graph implements the render graph: nodes that each produce
// one block of audio per quantum, and the driver that processes them in
// dependency order.
//
// The driver owns all scheduling. Every quantum it commits queued node
// description updates, mixes each node's inputs into a scratch bus and
// calls Process exactly once per node. Node outputs are only read by
// the driver and by downstream nodes within the same quantum, so nodes
// never need internal locking on the render path.
package graph
