package treeseq

import (
	"fmt"
	"strings"

	"github.com/tsinfer-go/tsinfer/tsconfig"
	"github.com/tsinfer-go/tsinfer/tserr"
)

// AddPath inserts a path, a child's full edge list. edges must be
// sorted by Left ascending, non-overlapping, and contiguous over some
// sub-interval of [0, NumSites()). Each edge's Child field is
// overwritten with child; Parent must already exist.
//
// When ResolveSharedRecombs is set, a path whose exact (parent, left,
// right) sequence has already been used by a previously inserted child
// triggers synthesis of one new internal node carrying that shared
// ancestry: on the first repeat, a new node is created, the original
// child's edges are re-parented onto it, and both children attach to it
// over the full covered interval; on later repeats, new children simply
// attach to the already-synthesized node.
func (b *Builder) AddPath(child NodeID, edges []Edge) error {
	if err := b.validatePath(child, edges); err != nil {
		return err
	}
	if len(edges) == 0 {
		return nil
	}

	// Only a path with at least two edges carries a recombination
	// breakpoint; single-edge paths are inserted directly no matter the
	// flag, since there is nothing shared to collapse.
	if b.flags&tsconfig.ResolveSharedRecombs == 0 || len(edges) < 2 {
		return b.insertRawPath(child, edges)
	}

	key := pathPattern(edges)
	owner, seen := b.patternOwner[key]
	switch {
	case !seen:
		if err := b.insertRawPath(child, edges); err != nil {
			return err
		}
		b.patternOwner[key] = child
		b.synthesizedOwner(key, child, false)
		return nil
	case b.isSynthesized(key):
		return b.attachToOwner(owner, child, edges[0].Left, edges[len(edges)-1].Right)
	default:
		// owner is the first raw child to use this pattern; synthesize
		// the shared node now.
		return b.synthesizeSharedNode(key, owner, child, edges)
	}
}

func (b *Builder) synthesizedOwner(key string, owner NodeID, synthesized bool) {
	if b.synthesized == nil {
		b.synthesized = make(map[string]bool)
	}
	b.synthesized[key] = synthesized
}

func (b *Builder) isSynthesized(key string) bool {
	return b.synthesized[key]
}

func (b *Builder) validatePath(child NodeID, edges []Edge) error {
	if int(child) <= 0 || int(child) >= len(b.nodes) {
		return tserr.New(tserr.BadParam, "treeseq: child %d does not exist", child)
	}
	if len(edges) == 0 {
		return nil
	}
	prevRight := -1
	for i, e := range edges {
		if e.Left < 0 || e.Right > b.numSites || e.Left >= e.Right {
			return tserr.New(tserr.BadParam, "treeseq: edge %d has invalid interval [%d,%d)", i, e.Left, e.Right)
		}
		if i > 0 && e.Left != prevRight {
			return tserr.New(tserr.BadParam, "treeseq: edge %d leaves a gap or overlap (prev right %d, left %d)", i, prevRight, e.Left)
		}
		if int(e.Parent) < 0 || int(e.Parent) >= len(b.nodes) {
			return tserr.New(tserr.BadParam, "treeseq: edge %d parent %d does not exist", i, e.Parent)
		}
		if b.timeOf(e.Parent) <= b.timeOf(child) {
			return tserr.New(tserr.BadParam, "treeseq: edge %d parent time %f not greater than child time %f", i, b.timeOf(e.Parent), b.timeOf(child))
		}
		prevRight = e.Right
	}
	return nil
}

// pathPattern canonically encodes a path's (parent, left, right) triples
// so two distinct children with identical ancestry compare equal.
func pathPattern(edges []Edge) string {
	var sb strings.Builder
	for _, e := range edges {
		fmt.Fprintf(&sb, "%d:%d-%d|", e.Parent, e.Left, e.Right)
	}
	return sb.String()
}

// insertRawPath allocates and indexes edges directly under child, with
// no shared-recombination bookkeeping. All fallible allocation happens
// before any index is mutated, so a failure here leaves the builder
// exactly as it was.
func (b *Builder) insertRawPath(child NodeID, edges []Edge) error {
	ids := make([]EdgeID, len(edges))
	for i, e := range edges {
		e.Child = child
		e.ParentTime = b.timeOf(e.Parent)
		id, err := b.edgeHeap.Alloc()
		if err != nil {
			for _, allocated := range ids[:i] {
				b.edgeHeap.Free(allocated)
			}
			return err
		}
		*b.edgeHeap.Get(id) = e
		ids[i] = id
	}
	for _, id := range ids {
		b.indexEdge(id)
	}
	for _, e := range edges[1:] {
		b.recordBreakpoint(e.Left)
	}
	b.appendEdgeList(child, ids)
	return nil
}

// recordBreakpoint adds s to the distinct-breakpoint rank tree if it is
// not already there.
func (b *Builder) recordBreakpoint(s int) {
	if b.breakpoints.Rank(s+1) == b.breakpoints.Rank(s) {
		b.breakpoints.Insert(s)
	}
}

// NumBreakpoints returns the number of distinct interior recombination
// breakpoints across all inserted paths.
func (b *Builder) NumBreakpoints() int { return b.breakpoints.Len() }

// BreakpointsBefore returns how many distinct breakpoints fall strictly
// left of site s.
func (b *Builder) BreakpointsBefore(s int) int { return b.breakpoints.Rank(s) }

// indexEdge inserts edge id's composite keys into all three interval
// indices.
func (b *Builder) indexEdge(id EdgeID) {
	e := *b.edgeHeap.Get(id)
	b.leftIndex.Insert(leftKey{left: e.Left, parentTime: e.ParentTime, child: e.Child})
	b.rightIndex.Insert(rightKey{right: e.Right, negParentTime: -e.ParentTime, child: e.Child})
	b.pathIndex.Insert(pathKey{parent: e.Parent, child: e.Child, left: e.Left})
}

// deindexEdge removes edge id's composite keys, used only when
// re-keying an edge during shared-recombination synthesis (the edge
// record itself is kept and mutated in place, never removed, matching
// the invariant that edges are never removed once inserted).
func (b *Builder) deindexEdge(id EdgeID) {
	e := *b.edgeHeap.Get(id)
	b.leftIndex.Delete(leftKey{left: e.Left, parentTime: e.ParentTime, child: e.Child})
	b.rightIndex.Delete(rightKey{right: e.Right, negParentTime: -e.ParentTime, child: e.Child})
	b.pathIndex.Delete(pathKey{parent: e.Parent, child: e.Child, left: e.Left})
}

// appendEdgeList appends edgeIDs (already in Left-ascending order) to
// the end of child's edge list.
func (b *Builder) appendEdgeList(child NodeID, edgeIDs []EdgeID) {
	tail := b.childHeadOf(child)
	var tailNodeIdx int32 = -1
	if tail != -1 {
		tailNodeIdx = tail
		for b.edgeLists.Get(tailNodeIdx).next != -1 {
			tailNodeIdx = b.edgeLists.Get(tailNodeIdx).next
		}
	}
	for _, id := range edgeIDs {
		nodeIdx, _ := b.edgeLists.Alloc() // cannot fail until the id space is exhausted
		*b.edgeLists.Get(nodeIdx) = edgeListNode{edge: id, next: -1}
		if tailNodeIdx == -1 {
			b.childHead[child] = nodeIdx
		} else {
			b.edgeLists.Get(tailNodeIdx).next = nodeIdx
		}
		tailNodeIdx = nodeIdx
	}
}

// EdgesOf returns child's edges, in Left-ascending order.
func (b *Builder) EdgesOf(child NodeID) []Edge {
	var out []Edge
	for idx := b.childHeadOf(child); idx != -1; idx = b.edgeLists.Get(idx).next {
		out = append(out, *b.edgeHeap.Get(b.edgeLists.Get(idx).edge))
	}
	return out
}

// attachToOwner adds a single new edge owner -> child spanning
// [left,right), used both for the already-synthesized case and for the
// two new edges created when a node is freshly synthesized.
func (b *Builder) attachToOwner(owner, child NodeID, left, right int) error {
	return b.insertRawPath(child, []Edge{{Left: left, Right: right, Parent: owner}})
}

// synthesizeSharedNode creates the internal node X that collapses a
// shared recombination: firstChild's existing edges (exactly the pattern
// edges, since they were inserted verbatim when firstChild's path was
// first added) are re-parented onto X, and both firstChild and newChild
// attach to X over the full interval the pattern covers.
func (b *Builder) synthesizeSharedNode(key string, firstChild, newChild NodeID, edges []Edge) error {
	bridgeTime, err := b.bridgeTime(edges, firstChild, newChild)
	if err != nil {
		return err
	}
	x, err := b.AddNode(bridgeTime, false)
	if err != nil {
		return err
	}

	// Re-parent firstChild's existing edges onto x: re-key the index
	// entries, then flip the stored Child field. The edge records
	// themselves are the same ones allocated when firstChild's path was
	// first inserted; they are mutated in place, never removed.
	existing := b.EdgesOf(firstChild)
	var firstChildEdgeIDs []EdgeID
	for idx := b.childHeadOf(firstChild); idx != -1; idx = b.edgeLists.Get(idx).next {
		firstChildEdgeIDs = append(firstChildEdgeIDs, b.edgeLists.Get(idx).edge)
	}
	for _, id := range firstChildEdgeIDs {
		b.deindexEdge(id)
		rec := b.edgeHeap.Get(id)
		rec.Child = x
		b.indexEdge(id)
	}
	// x now owns the transplanted list; firstChild's own list is empty
	// until the bridging edge below is appended.
	b.childHead[x] = b.childHeadOf(firstChild)
	b.childHead[firstChild] = -1

	start, end := existing[0].Left, existing[len(existing)-1].Right
	if err := b.attachToOwner(x, firstChild, start, end); err != nil {
		return err
	}
	if err := b.attachToOwner(x, newChild, start, end); err != nil {
		return err
	}

	b.patternOwner[key] = x
	b.synthesizedOwner(key, x, true)
	b.log.Debugf("treeseq: synthesized node %d for recombination shared by %d and %d over [%d,%d)",
		x, firstChild, newChild, start, end)
	return nil
}

// bridgeTime picks a time for the synthesized node strictly between
// both involved children's times and the minimum parent time in edges,
// so that the two bridging edges and the re-parented edges all keep
// time[parent] > time[child].
func (b *Builder) bridgeTime(edges []Edge, firstChild, newChild NodeID) (Time, error) {
	minParent := b.timeOf(edges[0].Parent)
	for _, e := range edges[1:] {
		if t := b.timeOf(e.Parent); t < minParent {
			minParent = t
		}
	}
	maxChild := b.timeOf(firstChild)
	if t := b.timeOf(newChild); t > maxChild {
		maxChild = t
	}
	if minParent <= maxChild {
		return 0, tserr.New(tserr.BadParam, "treeseq: no time strictly between child %f and parent %f to synthesize a shared node", maxChild, minParent)
	}
	return (maxChild + minParent) / 2, nil
}
