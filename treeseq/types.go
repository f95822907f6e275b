// Package treeseq implements the tree sequence builder: an incremental
// edge database keyed by three sorted interval indices (left-coordinate,
// right-coordinate, path-segment) supporting node insertion, path
// insertion, shared-recombination resolution, and dumping. The edge list
// is addressed by (left, right, child, parent) and mutated incrementally
// as paths arrive; nothing is ever rebuilt from scratch except on
// restore.
package treeseq

// NodeID identifies a node. Node 0 is the virtual root, created
// automatically by NewBuilder, and is never returned by AddNode.
type NodeID int32

// NoNode is the sentinel for "no node" (e.g. a node with no parent at a
// given site).
const NoNode NodeID = -1

// RootNode is the virtual root's id. Its time is +Inf in spirit, so
// every added node's time compares less than it.
const RootNode NodeID = 0

// Time orders nodes from older (larger) to younger (smaller); the root's
// conceptual time is +Inf, stored as the large finite sentinel rootTime
// so comparisons against it succeed for any realistic node time.
type Time = float64

// NodeFlags is a bitset; bit 0 marks a sample node.
type NodeFlags uint32

// FlagSample marks a node as an input sample (leaf of the genealogy).
const FlagSample NodeFlags = 1 << 0

// Node is the stored record for a node: its time and flags. The id is
// implicit in its slice position.
type Node struct {
	Time  Time
	Flags NodeFlags
}

// IsSample reports whether the sample flag is set.
func (n Node) IsSample() bool { return n.Flags&FlagSample != 0 }

// Edge is the stored record for an edge: a half-open site interval
// attaching Child to Parent. ParentTime is denormalized so the interval
// indices can sort without a node lookup.
type Edge struct {
	Left, Right int
	Parent      NodeID
	Child       NodeID
	ParentTime  Time
}

// EdgeID identifies an edge in the builder's edge heap.
type EdgeID = int32

// NoEdge is the sentinel for "no edge".
const NoEdge EdgeID = -1

// Mutation is the stored record for a mutation: the site it occurs at,
// the node it occurs on, and the derived state it introduces.
type Mutation struct {
	Site         int
	Node         NodeID
	DerivedState int8
}

// MutationID identifies a mutation in the builder's mutation heap.
type MutationID = int32

// NoMutation is the sentinel for "no mutation".
const NoMutation MutationID = -1
