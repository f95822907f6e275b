package treeseq

import "math"

// EdgesStartingAt returns every edge whose Left equals s, ordered by
// (time[parent] ascending, child ascending) as required by the
// left_index's key, for the matcher's forward-pass tree update.
func (b *Builder) EdgesStartingAt(s int) []Edge {
	var out []Edge
	pivot := leftKey{left: s, parentTime: math.Inf(-1), child: math.MinInt32}
	b.leftIndex.AscendGreaterOrEqual(pivot, func(k leftKey) bool {
		if k.left != s {
			return false
		}
		out = append(out, b.edgeAt(k.child, s, true))
		return true
	})
	return out
}

// EdgesEndingAt returns every edge whose Right equals s, ordered by
// (time[parent] descending, child ascending) as required by the
// right_index's key, for the matcher's forward-pass tree update.
func (b *Builder) EdgesEndingAt(s int) []Edge {
	var out []Edge
	pivot := rightKey{right: s, negParentTime: math.Inf(-1), child: math.MinInt32}
	b.rightIndex.AscendGreaterOrEqual(pivot, func(k rightKey) bool {
		if k.right != s {
			return false
		}
		out = append(out, b.edgeAt(k.child, s, false))
		return true
	})
	return out
}

// edgeAt looks up the full Edge record for child at site s by scanning
// its edge list; matchLeft selects whether the caller is matching on
// Left or Right. At a given tree-update step each child has exactly one
// edge touching s from the requested side.
func (b *Builder) edgeAt(child NodeID, s int, matchLeft bool) Edge {
	for idx := b.childHeadOf(child); idx != -1; idx = b.edgeLists.Get(idx).next {
		e := *b.edgeHeap.Get(b.edgeLists.Get(idx).edge)
		if matchLeft && e.Left == s {
			return e
		}
		if !matchLeft && e.Right == s {
			return e
		}
	}
	return Edge{}
}

// NumEdges returns the total number of edges ever inserted.
func (b *Builder) NumEdges() int { return b.edgeHeap.Len() }
