package treeseq

import (
	"encoding/binary"
	"math"

	"golang.org/x/crypto/blake2b"

	"github.com/tsinfer-go/tsinfer/avl"
	"github.com/tsinfer-go/tsinfer/tserr"
)

// DumpNodes exports every node (excluding the virtual root) as parallel
// arrays.
func (b *Builder) DumpNodes() (flags []NodeFlags, times []Time) {
	flags = make([]NodeFlags, len(b.nodes)-1)
	times = make([]Time, len(b.nodes)-1)
	for i := 1; i < len(b.nodes); i++ {
		flags[i-1] = b.nodes[i].Flags
		times[i-1] = b.nodes[i].Time
	}
	return flags, times
}

// RestoreNodes rebuilds the node table from parallel arrays produced by
// DumpNodes. It is the caller's responsibility to call this on a freshly
// constructed Builder before restoring edges.
func (b *Builder) RestoreNodes(flags []NodeFlags, times []Time) error {
	if len(flags) != len(times) {
		return tserr.New(tserr.BadParam, "treeseq: RestoreNodes length mismatch (%d vs %d)", len(flags), len(times))
	}
	b.nodes = b.nodes[:1] // keep virtual root
	b.childHead = make(map[NodeID]int32)
	for i := range flags {
		id := NodeID(len(b.nodes))
		b.nodes = append(b.nodes, Node{Time: times[i], Flags: flags[i]})
		b.childHead[id] = -1
	}
	return nil
}

// DumpEdges exports every edge in insertion order as four parallel
// arrays.
func (b *Builder) DumpEdges() (left, right []int, parent, child []NodeID) {
	n := b.edgeHeap.Len()
	left = make([]int, n)
	right = make([]int, n)
	parent = make([]NodeID, n)
	child = make([]NodeID, n)
	for i := 0; i < n; i++ {
		e := *b.edgeHeap.Get(int32(i))
		left[i], right[i], parent[i], child[i] = e.Left, e.Right, e.Parent, e.Child
	}
	return
}

// RestoreEdges rebuilds the edge heap and all three interval indices
// from parallel arrays produced by DumpEdges. Nodes must already be
// restored. Child edge lists are rebuilt assuming the input arrays are,
// per child, already in Left-ascending order (true of anything produced
// by DumpEdges, since AddPath only ever appends in that order).
func (b *Builder) RestoreEdges(left, right []int, parent, child []NodeID) error {
	n := len(left)
	if len(right) != n || len(parent) != n || len(child) != n {
		return tserr.New(tserr.BadParam, "treeseq: RestoreEdges parallel array length mismatch")
	}
	b.edgeHeap.FreeAll()
	b.edgeLists.FreeAll()
	for id := range b.childHead {
		b.childHead[id] = -1
	}
	b.resetIndices()
	b.breakpoints = avl.NewOrderStatisticTree(func(a, c int) bool { return a < c })
	// Shared-recombination bookkeeping only matters across a sequence of
	// AddPath calls on the same live builder; a restored builder starts
	// that bookkeeping fresh, same as a brand-new one.
	b.patternOwner = make(map[string]NodeID)
	b.synthesized = make(map[string]bool)

	byChild := make(map[NodeID][]EdgeID)
	for i := 0; i < n; i++ {
		id, err := b.edgeHeap.Alloc()
		if err != nil {
			return err
		}
		e := Edge{Left: left[i], Right: right[i], Parent: parent[i], Child: child[i], ParentTime: b.timeOf(parent[i])}
		*b.edgeHeap.Get(id) = e
		b.indexEdge(id)
		byChild[child[i]] = append(byChild[child[i]], id)
	}
	for c, ids := range byChild {
		b.appendEdgeList(c, ids)
		for _, id := range ids[1:] {
			b.recordBreakpoint(b.edgeHeap.Get(id).Left)
		}
	}
	return nil
}

func (b *Builder) resetIndices() {
	b.leftIndex = newLeftIndex()
	b.rightIndex = newRightIndex()
	b.pathIndex = newPathIndex()
}

// DumpMutations exports every mutation as parallel arrays, including
// the parent-mutation back-reference.
func (b *Builder) DumpMutations() (site []int, node []NodeID, derivedState []int8, parentMutation []MutationID) {
	n := b.mutationHeap.Len()
	site = make([]int, n)
	node = make([]NodeID, n)
	derivedState = make([]int8, n)
	parentMutation = make([]MutationID, n)
	for i := 0; i < n; i++ {
		m := *b.mutationHeap.Get(int32(i))
		site[i], node[i], derivedState[i] = m.Site, m.Node, m.DerivedState
		parentMutation[i] = b.parentMutationID(m.Site, m.Node, func(child NodeID) NodeID {
			return b.parentAt(child, m.Site)
		})
	}
	return
}

// RestoreMutations rebuilds the mutation heap and per-site lists from
// parallel arrays produced by DumpMutations. parentMutation is accepted
// for round-trip fidelity but recomputed by DumpMutations rather than
// trusted, since it is derivable from (site, node) plus the edge table.
func (b *Builder) RestoreMutations(site []int, node []NodeID, derivedState []int8, parentMutation []MutationID) error {
	n := len(site)
	if len(node) != n || len(derivedState) != n || len(parentMutation) != n {
		return tserr.New(tserr.BadParam, "treeseq: RestoreMutations parallel array length mismatch")
	}
	b.mutationHeap.FreeAll()
	b.mutationLists.FreeAll()
	b.mutationHead = make(map[int]int32)
	for i := 0; i < n; i++ {
		if err := b.AddMutations(node[i], []int{site[i]}, []int8{derivedState[i]}); err != nil {
			return err
		}
	}
	return nil
}

// parentAt returns node's parent at site, found by scanning node's edge
// list for the edge whose interval covers site, or NoNode if none does.
func (b *Builder) parentAt(node NodeID, site int) NodeID {
	for idx := b.childHeadOf(node); idx != -1; idx = b.edgeLists.Get(idx).next {
		e := b.edgeHeap.Get(b.edgeLists.Get(idx).edge)
		if e.Left <= site && site < e.Right {
			return e.Parent
		}
	}
	return NoNode
}

// Checksum returns a blake2b-256 digest over the dumped node, edge, and
// mutation arrays, a cheap whole-builder equality check for round-trip
// verification.
func (b *Builder) Checksum() ([32]byte, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return [32]byte{}, err
	}
	var buf [8]byte

	flags, times := b.DumpNodes()
	for i := range flags {
		binary.LittleEndian.PutUint32(buf[:4], uint32(flags[i]))
		h.Write(buf[:4])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(times[i]))
		h.Write(buf[:])
	}

	left, right, parent, child := b.DumpEdges()
	for i := range left {
		binary.LittleEndian.PutUint64(buf[:], uint64(left[i]))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(right[i]))
		h.Write(buf[:])
		binary.LittleEndian.PutUint32(buf[:4], uint32(parent[i]))
		h.Write(buf[:4])
		binary.LittleEndian.PutUint32(buf[:4], uint32(child[i]))
		h.Write(buf[:4])
	}

	site, node, derived, parentMut := b.DumpMutations()
	for i := range site {
		binary.LittleEndian.PutUint64(buf[:], uint64(site[i]))
		h.Write(buf[:])
		binary.LittleEndian.PutUint32(buf[:4], uint32(node[i]))
		h.Write(buf[:4])
		buf[0] = byte(derived[i])
		h.Write(buf[:1])
		binary.LittleEndian.PutUint32(buf[:4], uint32(parentMut[i]))
		h.Write(buf[:4])
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
