package treeseq

import (
	"github.com/btcsuite/btclog"

	"github.com/tsinfer-go/tsinfer/arena"
	"github.com/tsinfer-go/tsinfer/avl"
	"github.com/tsinfer-go/tsinfer/tsconfig"
	"github.com/tsinfer-go/tsinfer/tserr"
)

// edgeListNode is one link of a child's singly linked, left-ascending
// edge list. Allocated from an object heap rather than as a
// heap-escaping pointer struct, so the whole list can be torn down by
// resetting the heap.
type edgeListNode struct {
	edge EdgeID
	next int32 // index into the edgeListNode heap, -1 sentinel
}

// mutationListNode is one link of a site's singly linked mutation list,
// newest first (AddMutations prepends).
type mutationListNode struct {
	mutation MutationID
	next     int32
}

// leftKey, rightKey, pathKey are the composite sort keys of the three
// interval indices.
type leftKey struct {
	left       int
	parentTime Time
	child      NodeID
}

type rightKey struct {
	right         int
	negParentTime Time
	child         NodeID
}

type pathKey struct {
	parent NodeID
	child  NodeID
	left   int
}

// Builder is the incremental edge database. It accumulates
// monotonically: nodes and edges once inserted are never removed; an
// edge's endpoints and child may only be rewritten during
// shared-recombination resolution.
type Builder struct {
	numSites int
	flags    tsconfig.Flag

	nodes     []Node
	edgeHeap  *arena.ObjectHeap[Edge]
	edgeLists *arena.ObjectHeap[edgeListNode]
	childHead map[NodeID]int32 // head of each child's edge list, -1 if none

	mutationHeap  *arena.ObjectHeap[Mutation]
	mutationLists *arena.ObjectHeap[mutationListNode]
	mutationHead  map[int]int32 // head of each site's mutation list

	leftIndex  avl.Index[leftKey]
	rightIndex avl.Index[rightKey]
	pathIndex  avl.Index[pathKey]

	// breakpoints holds the distinct interior recombination breakpoints
	// of every inserted path, rank-queryable so callers can ask how many
	// fall before a given site.
	breakpoints *avl.OrderStatisticTree[int]

	// patternOwner maps a canonical encoding of a fully-assembled path
	// (the sequence of (parent, left, right) tuples) to whichever node
	// currently carries that exact ancestry: either the first child to
	// use it, or the internal node synthesized once a second child
	// shares it. See synthesizeSharedNode.
	patternOwner map[string]NodeID
	// synthesized tracks, per pattern key, whether patternOwner[key] is
	// a synthesized internal node (true) or still the first raw child
	// to use that pattern (false).
	synthesized map[string]bool

	log btclog.Logger
}

// NewBuilder creates a Builder over numSites sites with the given flags.
// Node 0, the virtual root, is created implicitly.
func NewBuilder(numSites int, flags tsconfig.Flag) (*Builder, error) {
	if numSites <= 0 {
		return nil, tserr.New(tserr.BadParam, "treeseq: numSites must be positive, got %d", numSites)
	}
	if err := tsconfig.CheckFlags(flags); err != nil {
		return nil, err
	}
	b := &Builder{
		numSites:      numSites,
		flags:         flags,
		edgeHeap:      arena.NewObjectHeap[Edge](),
		edgeLists:     arena.NewObjectHeap[edgeListNode](),
		childHead:     make(map[NodeID]int32),
		mutationHeap:  arena.NewObjectHeap[Mutation](),
		mutationLists: arena.NewObjectHeap[mutationListNode](),
		mutationHead:  make(map[int]int32),
		patternOwner:  make(map[string]NodeID),
		synthesized:   make(map[string]bool),
		log:           btclog.Disabled,
	}
	b.leftIndex = newLeftIndex()
	b.rightIndex = newRightIndex()
	b.pathIndex = newPathIndex()
	b.breakpoints = avl.NewOrderStatisticTree(func(a, c int) bool { return a < c })
	// node 0 is the virtual root; its time is conceptually +Inf and is
	// never compared against directly, so a large finite sentinel is
	// fine for bookkeeping (denormalized ParentTime fields, etc).
	b.nodes = append(b.nodes, Node{Time: rootTime})
	b.childHead[RootNode] = -1
	return b, nil
}

// childHeadOf returns the head of child's edge list, or -1 when the child
// has none (the map's zero value would otherwise alias list node 0).
func (b *Builder) childHeadOf(child NodeID) int32 {
	if head, ok := b.childHead[child]; ok {
		return head
	}
	return -1
}

// rootTime stands in for the virtual root's +Inf time in denormalized
// ParentTime fields and node-time comparisons.
const rootTime Time = 1 << 62

func lessLeftKey(a, b leftKey) bool {
	if a.left != b.left {
		return a.left < b.left
	}
	if a.parentTime != b.parentTime {
		return a.parentTime < b.parentTime
	}
	return a.child < b.child
}

func lessRightKey(a, b rightKey) bool {
	if a.right != b.right {
		return a.right < b.right
	}
	if a.negParentTime != b.negParentTime {
		return a.negParentTime < b.negParentTime
	}
	return a.child < b.child
}

func lessPathKey(a, b pathKey) bool {
	if a.parent != b.parent {
		return a.parent < b.parent
	}
	if a.child != b.child {
		return a.child < b.child
	}
	return a.left < b.left
}

// newLeftIndex, newRightIndex, and newPathIndex construct fresh, empty
// indices; factored out so RestoreEdges can rebuild the indices from
// scratch without duplicating the backend choice made in NewBuilder.
func newLeftIndex() avl.Index[leftKey]   { return avl.NewBTreeIndex(lessLeftKey) }
func newRightIndex() avl.Index[rightKey] { return avl.NewBTreeIndex(lessRightKey) }
func newPathIndex() avl.Index[pathKey]   { return avl.NewLLRBIndex(lessPathKey) }

// SetLogger routes the builder's diagnostics to l; the default discards
// everything.
func (b *Builder) SetLogger(l btclog.Logger) { b.log = l }

// NumSites returns the number of sites this builder was constructed for.
func (b *Builder) NumSites() int { return b.numSites }

// NumNodes returns the number of nodes, including the virtual root.
func (b *Builder) NumNodes() int { return len(b.nodes) }

// AddNode appends a node and returns its id. Enforces non-strict
// descending-time ordering only to the extent that callers inserting
// edges later must satisfy time[parent] > time[child]; AddNode itself
// accepts any time.
func (b *Builder) AddNode(time Time, isSample bool) (NodeID, error) {
	if len(b.nodes) >= (1<<31 - 1) {
		return NoNode, tserr.New(tserr.OutOfMemory, "treeseq: node id space exhausted")
	}
	var flags NodeFlags
	if isSample {
		flags = FlagSample
	}
	id := NodeID(len(b.nodes))
	b.nodes = append(b.nodes, Node{Time: time, Flags: flags})
	b.childHead[id] = -1
	return id, nil
}

// Node returns the stored record for id.
func (b *Builder) Node(id NodeID) Node {
	if id == RootNode {
		return Node{Time: rootTime}
	}
	return b.nodes[id]
}

// timeOf returns id's time, substituting the root sentinel for node 0.
func (b *Builder) timeOf(id NodeID) Time {
	if id == RootNode {
		return rootTime
	}
	return b.nodes[id].Time
}
