package treeseq

import (
	"fmt"
	"io"
)

// PrintState writes a human-readable snapshot of the builder's nodes,
// edges, mutation lists, and index sizes to w. This is the only
// diagnostic surface the builder exposes; nothing here is machine-parsed.
func (b *Builder) PrintState(w io.Writer) {
	fmt.Fprintf(w, "tree_sequence_builder: num_sites=%d num_nodes=%d num_edges=%d num_mutations=%d\n",
		b.numSites, len(b.nodes), b.edgeHeap.Len(), b.mutationHeap.Len())
	fmt.Fprintf(w, "indexes: left=%d right=%d path=%d breakpoints=%d\n",
		b.leftIndex.Len(), b.rightIndex.Len(), b.pathIndex.Len(), b.breakpoints.Len())
	fmt.Fprintf(w, "nodes:\n")
	for i, n := range b.nodes {
		sample := 0
		if n.IsSample() {
			sample = 1
		}
		fmt.Fprintf(w, "\t%d\t%g\tsample=%d\n", i, n.Time, sample)
	}
	fmt.Fprintf(w, "paths:\n")
	for child := range b.nodes {
		edges := b.EdgesOf(NodeID(child))
		if len(edges) == 0 {
			continue
		}
		fmt.Fprintf(w, "\t%d:", child)
		for _, e := range edges {
			fmt.Fprintf(w, " [%d,%d)->%d", e.Left, e.Right, e.Parent)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "mutations:\n")
	for s := 0; s < b.numSites; s++ {
		muts := b.MutationsAt(s)
		if len(muts) == 0 {
			continue
		}
		fmt.Fprintf(w, "\t%d:", s)
		for _, m := range muts {
			fmt.Fprintf(w, " (%d,%d)", m.Node, m.DerivedState)
		}
		fmt.Fprintln(w)
	}
}
