package treeseq

import (
	"math/rand"
	"testing"

	"github.com/tsinfer-go/tsinfer/tsconfig"
)

func newTestBuilder(t *testing.T, numSites int, flags tsconfig.Flag) *Builder {
	t.Helper()
	b, err := NewBuilder(numSites, flags)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

// TestEdgeTimeInvariant checks that every inserted edge satisfies
// time[parent] > time[child] and that AddPath rejects attempts to
// violate it.
func TestEdgeTimeInvariant(t *testing.T) {
	b := newTestBuilder(t, 10, 0)
	old, err := b.AddNode(10, false)
	if err != nil {
		t.Fatal(err)
	}
	young, err := b.AddNode(1, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.AddPath(young, []Edge{{Left: 0, Right: 10, Parent: old}}); err != nil {
		t.Fatalf("AddPath: %v", err)
	}
	for _, e := range b.EdgesOf(young) {
		if b.timeOf(e.Parent) <= b.timeOf(e.Child) {
			t.Fatalf("edge %+v violates time[parent] > time[child]", e)
		}
	}

	older, _ := b.AddNode(5, false)
	if err := b.AddPath(older, []Edge{{Left: 0, Right: 10, Parent: young}}); err == nil {
		t.Fatal("expected AddPath to reject a parent younger than its child")
	}
}

// TestPathContiguity checks that a child with multiple edges has them
// sorted by Left, non-overlapping, and covering one connected interval.
func TestPathContiguity(t *testing.T) {
	b := newTestBuilder(t, 10, 0)
	p1, _ := b.AddNode(10, false)
	p2, _ := b.AddNode(9, false)
	child, _ := b.AddNode(1, true)

	edges := []Edge{
		{Left: 0, Right: 4, Parent: p1},
		{Left: 4, Right: 10, Parent: p2},
	}
	if err := b.AddPath(child, edges); err != nil {
		t.Fatalf("AddPath: %v", err)
	}

	got := b.EdgesOf(child)
	if len(got) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(got))
	}
	if b.NumBreakpoints() != 1 || b.BreakpointsBefore(5) != 1 || b.BreakpointsBefore(4) != 0 {
		t.Fatalf("breakpoint bookkeeping wrong: n=%d before5=%d before4=%d",
			b.NumBreakpoints(), b.BreakpointsBefore(5), b.BreakpointsBefore(4))
	}
	prevRight := got[0].Left
	for _, e := range got {
		if e.Left != prevRight {
			t.Fatalf("gap or overlap before edge %+v", e)
		}
		if e.Left >= e.Right {
			t.Fatalf("empty or inverted interval in edge %+v", e)
		}
		prevRight = e.Right
	}
	if got[0].Left != 0 || got[len(got)-1].Right != 10 {
		t.Fatalf("path does not cover [0,10): got [%d,%d)", got[0].Left, got[len(got)-1].Right)
	}
}

// TestAddPathRejectsGap ensures validatePath rejects a non-contiguous
// edge list rather than silently accepting it.
func TestAddPathRejectsGap(t *testing.T) {
	b := newTestBuilder(t, 10, 0)
	p, _ := b.AddNode(10, false)
	child, _ := b.AddNode(1, true)
	edges := []Edge{
		{Left: 0, Right: 3, Parent: p},
		{Left: 5, Right: 10, Parent: p},
	}
	if err := b.AddPath(child, edges); err == nil {
		t.Fatal("expected AddPath to reject a path with a gap")
	}
}

// TestSharedRecombinationCollapse: two
// children sharing the exact same (parent, left, right) breakpoint
// pattern must collapse onto one synthesized internal node, not two.
func TestSharedRecombinationCollapse(t *testing.T) {
	b := newTestBuilder(t, 10, tsconfig.ResolveSharedRecombs)
	a, _ := b.AddNode(100, false)
	bb, _ := b.AddNode(100, false)
	child1, _ := b.AddNode(1, true)
	child2, _ := b.AddNode(1, true)

	pattern := []Edge{
		{Left: 0, Right: 5, Parent: a},
		{Left: 5, Right: 10, Parent: bb},
	}
	if err := b.AddPath(child1, pattern); err != nil {
		t.Fatalf("first AddPath: %v", err)
	}
	before := b.NumNodes()

	pattern2 := []Edge{
		{Left: 0, Right: 5, Parent: a},
		{Left: 5, Right: 10, Parent: bb},
	}
	if err := b.AddPath(child2, pattern2); err != nil {
		t.Fatalf("second AddPath: %v", err)
	}
	after := b.NumNodes()
	if after != before+1 {
		t.Fatalf("expected exactly one synthesized node, node count went from %d to %d", before, after)
	}
	if b.NumEdges() != 4 {
		t.Fatalf("expected 4 edges after collapse, got %d", b.NumEdges())
	}

	c1edges := b.EdgesOf(child1)
	c2edges := b.EdgesOf(child2)
	if len(c1edges) != 1 || len(c2edges) != 1 {
		t.Fatalf("expected each child to have exactly one edge onto the synthesized node, got %d and %d", len(c1edges), len(c2edges))
	}
	if c1edges[0].Parent != c2edges[0].Parent {
		t.Fatalf("expected both children to share the same synthesized parent, got %d and %d", c1edges[0].Parent, c2edges[0].Parent)
	}
	if c1edges[0].Left != 0 || c1edges[0].Right != 10 {
		t.Fatalf("expected synthesized edge to cover [0,10), got [%d,%d)", c1edges[0].Left, c1edges[0].Right)
	}

	// A third child with the very same pattern must attach to the
	// already-synthesized node rather than triggering another synthesis.
	child3, _ := b.AddNode(1, true)
	if err := b.AddPath(child3, []Edge{
		{Left: 0, Right: 5, Parent: a},
		{Left: 5, Right: 10, Parent: bb},
	}); err != nil {
		t.Fatalf("third AddPath: %v", err)
	}
	if b.NumNodes() != after+1 {
		t.Fatalf("third matching path synthesized another node: %d -> %d", after+1, b.NumNodes())
	}
}

// TestSharedRecombinationOlderSecondChild: when the second child to
// share a breakpoint pattern is older than the first, the synthesized
// node's time must still sit strictly above both children, so every
// edge keeps time[parent] > time[child].
func TestSharedRecombinationOlderSecondChild(t *testing.T) {
	b := newTestBuilder(t, 10, tsconfig.ResolveSharedRecombs)
	a, _ := b.AddNode(100, false)
	bb, _ := b.AddNode(100, false)
	child1, _ := b.AddNode(1, true)
	child2, _ := b.AddNode(5, true)

	pattern := []Edge{
		{Left: 0, Right: 5, Parent: a},
		{Left: 5, Right: 10, Parent: bb},
	}
	if err := b.AddPath(child1, pattern); err != nil {
		t.Fatalf("first AddPath: %v", err)
	}
	if err := b.AddPath(child2, []Edge{
		{Left: 0, Right: 5, Parent: a},
		{Left: 5, Right: 10, Parent: bb},
	}); err != nil {
		t.Fatalf("second AddPath: %v", err)
	}

	x := b.EdgesOf(child2)[0].Parent
	if xt := b.Node(x).Time; xt <= 5 || xt >= 100 {
		t.Fatalf("synthesized node time %f not strictly between children and parents", xt)
	}
	for _, child := range []NodeID{child1, child2, x} {
		for _, e := range b.EdgesOf(child) {
			if b.timeOf(e.Parent) <= b.timeOf(e.Child) {
				t.Fatalf("edge %+v violates time[parent] > time[child]", e)
			}
		}
	}
}

// TestMutationRoundTrip checks AddMutations/MutationsAt and that
// DumpMutations recovers a sane parent_mutation chain.
func TestMutationRoundTrip(t *testing.T) {
	b := newTestBuilder(t, 5, 0)
	root, _ := b.AddNode(100, false)
	child, _ := b.AddNode(1, true)
	if err := b.AddPath(child, []Edge{{Left: 0, Right: 5, Parent: root}}); err != nil {
		t.Fatal(err)
	}
	if err := b.AddMutations(root, []int{2}, []int8{1}); err != nil {
		t.Fatal(err)
	}
	if err := b.AddMutations(child, []int{2}, []int8{0}); err != nil {
		t.Fatal(err)
	}

	muts := b.MutationsAt(2)
	if len(muts) != 2 {
		t.Fatalf("expected 2 mutations at site 2, got %d", len(muts))
	}

	_, node, _, parentMut := b.DumpMutations()
	foundChildParent := false
	for i, n := range node {
		if n == child {
			if parentMut[i] == NoMutation {
				t.Fatalf("expected child mutation to have a parent mutation")
			}
			foundChildParent = true
		}
	}
	if !foundChildParent {
		t.Fatal("did not find child's mutation in dump")
	}
}

// TestDumpRestoreRoundTrip builds a sequence
// of random nodes and valid paths, dump, restore into a fresh instance,
// dump again; the two dumps (via Checksum) must be byte-equal.
func TestDumpRestoreRoundTrip(t *testing.T) {
	const numSites = 20
	const numAncestors = 100
	const numChildren = 500
	src := newTestBuilder(t, numSites, tsconfig.ResolveSharedRecombs)
	rng := rand.New(rand.NewSource(42))

	// ancestors are the oldest numAncestors nodes (id 1 is the very
	// oldest and never gets a path of its own); every one of the
	// following numChildren nodes gets exactly one path, each parented
	// on an older ancestor, occasionally split into two edges at a
	// random breakpoint to exercise recombination.
	ancestors := make([]NodeID, 0, numAncestors)
	time := Time(1000)
	for i := 0; i < numAncestors; i++ {
		id, err := src.AddNode(time, false)
		if err != nil {
			t.Fatalf("AddNode: %v", err)
		}
		ancestors = append(ancestors, id)
		time -= 1
	}

	for i := 0; i < numChildren; i++ {
		time -= 1
		child, err := src.AddNode(time, true)
		if err != nil {
			t.Fatalf("AddNode: %v", err)
		}

		var edges []Edge
		if rng.Intn(4) == 0 && numSites > 1 {
			brk := 1 + rng.Intn(numSites-1)
			p1 := ancestors[rng.Intn(len(ancestors))]
			p2 := ancestors[rng.Intn(len(ancestors))]
			edges = []Edge{
				{Left: 0, Right: brk, Parent: p1},
				{Left: brk, Right: numSites, Parent: p2},
			}
		} else {
			p := ancestors[rng.Intn(len(ancestors))]
			edges = []Edge{{Left: 0, Right: numSites, Parent: p}}
		}
		if err := src.AddPath(child, edges); err != nil {
			t.Fatalf("AddPath: %v", err)
		}
	}

	sum1, err := src.Checksum()
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}

	flags, times := src.DumpNodes()
	left, right, parent, child := src.DumpEdges()
	site, node, derived, parentMut := src.DumpMutations()

	dst := newTestBuilder(t, numSites, tsconfig.ResolveSharedRecombs)
	if err := dst.RestoreNodes(flags, times); err != nil {
		t.Fatalf("RestoreNodes: %v", err)
	}
	if err := dst.RestoreEdges(left, right, parent, child); err != nil {
		t.Fatalf("RestoreEdges: %v", err)
	}
	if err := dst.RestoreMutations(site, node, derived, parentMut); err != nil {
		t.Fatalf("RestoreMutations: %v", err)
	}

	sum2, err := dst.Checksum()
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	if sum1 != sum2 {
		t.Fatalf("dump/restore round trip changed checksum: %x != %x", sum1, sum2)
	}
}

// TestUnknownFlagRejected checks that NewBuilder rejects flag bits
// outside the known set rather than silently masking them.
func TestUnknownFlagRejected(t *testing.T) {
	if _, err := NewBuilder(10, tsconfig.Flag(1<<31)); err == nil {
		t.Fatal("expected NewBuilder to reject an unrecognized flag bit")
	}
}
