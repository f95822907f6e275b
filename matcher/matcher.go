// Package matcher threads haplotypes through a tree sequence under the
// Li-Stephens copying model. A Matcher reads a TreeSequenceBuilder
// snapshot, walks sites left to right materializing the marginal tree at
// each site from the builder's interval indices, propagates per-node
// copying likelihoods over that tree, and recovers the maximum-likelihood
// copying path from a recorded traceback.
//
// A Matcher owns only scratch memory; it never mutates the builder. The
// builder must not be mutated while a FindPath call is in flight, but
// any number of Matchers may share one builder read-only.
package matcher

import (
	"fmt"
	"io"

	"github.com/btcsuite/btclog"

	"github.com/tsinfer-go/tsinfer/arena"
	"github.com/tsinfer-go/tsinfer/treeseq"
	"github.com/tsinfer-go/tsinfer/tsconfig"
	"github.com/tsinfer-go/tsinfer/tserr"
)

// nullLikelihood marks a node with no explicit likelihood; such a node
// inherits the value of its nearest explicit ancestor in the current
// marginal tree.
const nullLikelihood = -1.0

// noNode is the null sentinel of the quintuply linked tree arrays.
const noNode treeseq.NodeID = -1

// Unknown is the allele value for sites outside a haplotype's live
// interval; it matches everything during emission.
const Unknown int8 = -1

// tracebackNode is one entry of a site's traceback list: an explicit
// likelihood node and whether it needed a recombination to reach its
// likelihood at that site. Allocated from the traceback arena, which is
// reset wholesale at the start of every FindPath.
type tracebackNode struct {
	node           treeseq.NodeID
	recombRequired bool
	next           *tracebackNode
}

// Matcher is the Li-Stephens copier. Scratch state is sized lazily at
// the start of each FindPath from the builder's current node count, so
// one Matcher can be reused across epochs as the builder grows.
type Matcher struct {
	ts  *treeseq.Builder
	rho []float64
	mu  float64

	numSites int

	// The quintuply linked marginal tree, indexed by node id.
	parent     []treeseq.NodeID
	leftChild  []treeseq.NodeID
	rightChild []treeseq.NodeID
	leftSib    []treeseq.NodeID
	rightSib   []treeseq.NodeID

	likelihood      []float64
	likelihoodNodes []treeseq.NodeID

	// numExtant counts the edges active in the current marginal tree;
	// each active edge contributes exactly one copyable lineage.
	numExtant int

	maxLikelihoodNode []treeseq.NodeID

	traceback          []*tracebackNode
	tracebackArena     *arena.BlockAllocator[tracebackNode]
	totalTracebackSize int
	numFindPathCalls   int

	log btclog.Logger
}

// NewMatcher creates a Matcher over ts with the given model parameters.
// params.Rho must have one entry per site of ts (Rho[0] is unused).
func NewMatcher(ts *treeseq.Builder, params tsconfig.Params) (*Matcher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(params.Rho) != ts.NumSites() {
		return nil, tserr.New(tserr.BadParam, "matcher: rho has %d entries, builder has %d sites", len(params.Rho), ts.NumSites())
	}
	return &Matcher{
		ts:             ts,
		rho:            params.Rho,
		mu:             params.Mu,
		numSites:       ts.NumSites(),
		tracebackArena: arena.NewBlockAllocator[tracebackNode](0),
		log:            btclog.Disabled,
	}, nil
}

// SetLogger routes the matcher's diagnostics to l; the default discards
// everything.
func (m *Matcher) SetLogger(l btclog.Logger) { m.log = l }

// reset sizes the scratch arrays for the builder's current node count
// and returns the tree, likelihoods, and traceback to their initial
// state: an empty tree whose virtual root carries likelihood 1.
func (m *Matcher) reset() {
	n := m.ts.NumNodes()
	if cap(m.parent) < n {
		m.parent = make([]treeseq.NodeID, n)
		m.leftChild = make([]treeseq.NodeID, n)
		m.rightChild = make([]treeseq.NodeID, n)
		m.leftSib = make([]treeseq.NodeID, n)
		m.rightSib = make([]treeseq.NodeID, n)
		m.likelihood = make([]float64, n)
	}
	m.parent = m.parent[:n]
	m.leftChild = m.leftChild[:n]
	m.rightChild = m.rightChild[:n]
	m.leftSib = m.leftSib[:n]
	m.rightSib = m.rightSib[:n]
	m.likelihood = m.likelihood[:n]
	for i := 0; i < n; i++ {
		m.parent[i] = noNode
		m.leftChild[i] = noNode
		m.rightChild[i] = noNode
		m.leftSib[i] = noNode
		m.rightSib[i] = noNode
		m.likelihood[i] = nullLikelihood
	}

	m.likelihoodNodes = m.likelihoodNodes[:0]
	m.setLikelihood(treeseq.RootNode, 1)

	if cap(m.maxLikelihoodNode) < m.numSites {
		m.maxLikelihoodNode = make([]treeseq.NodeID, m.numSites)
		m.traceback = make([]*tracebackNode, m.numSites)
	}
	m.maxLikelihoodNode = m.maxLikelihoodNode[:m.numSites]
	m.traceback = m.traceback[:m.numSites]
	for i := 0; i < m.numSites; i++ {
		m.maxLikelihoodNode[i] = noNode
		m.traceback[i] = nil
	}
	m.tracebackArena.FreeAll()
	m.numExtant = 0
}

// setLikelihood makes u explicit with value v.
func (m *Matcher) setLikelihood(u treeseq.NodeID, v float64) {
	if m.likelihood[u] == nullLikelihood {
		m.likelihoodNodes = append(m.likelihoodNodes, u)
	}
	m.likelihood[u] = v
}

// nearestLikelihood returns the likelihood u inherits: its own if
// explicit, otherwise the nearest explicit ancestor's. The virtual root
// is always explicit, so the climb terminates.
func (m *Matcher) nearestLikelihood(u treeseq.NodeID) float64 {
	for v := u; v != noNode; v = m.parent[v] {
		if m.likelihood[v] != nullLikelihood {
			return m.likelihood[v]
		}
	}
	return m.likelihood[treeseq.RootNode]
}

// insertEdge attaches e.Child under e.Parent, prepending it to the
// parent's child list.
func (m *Matcher) insertEdge(e treeseq.Edge) {
	c, p := e.Child, e.Parent
	m.parent[c] = p
	first := m.leftChild[p]
	m.leftSib[c] = noNode
	m.rightSib[c] = first
	if first != noNode {
		m.leftSib[first] = c
	} else {
		m.rightChild[p] = c
	}
	m.leftChild[p] = c
	m.numExtant++
}

// removeEdge cuts e.Child off e.Parent, splicing the sibling links
// around it.
func (m *Matcher) removeEdge(e treeseq.Edge) {
	c, p := e.Child, e.Parent
	lsib, rsib := m.leftSib[c], m.rightSib[c]
	if lsib == noNode {
		m.leftChild[p] = rsib
	} else {
		m.rightSib[lsib] = rsib
	}
	if rsib == noNode {
		m.rightChild[p] = lsib
	} else {
		m.leftSib[rsib] = lsib
	}
	m.parent[c] = noNode
	m.leftSib[c] = noNode
	m.rightSib[c] = noNode
	m.numExtant--
}

// stepTree advances the marginal tree from site s-1 to site s: edges
// closing at s are removed (their children first made explicit so they
// keep their inherited likelihood while detached) and edges opening at s
// are inserted. Explicit likelihoods of nodes that left the tree
// entirely are discarded afterwards.
func (m *Matcher) stepTree(s int) {
	for _, e := range m.ts.EdgesEndingAt(s) {
		if m.likelihood[e.Child] == nullLikelihood {
			m.setLikelihood(e.Child, m.nearestLikelihood(e.Child))
		}
		m.removeEdge(e)
	}
	for _, e := range m.ts.EdgesStartingAt(s) {
		m.insertEdge(e)
	}
	kept := m.likelihoodNodes[:0]
	for _, u := range m.likelihoodNodes {
		if u != treeseq.RootNode && m.parent[u] == noNode {
			m.likelihood[u] = nullLikelihood
			continue
		}
		kept = append(kept, u)
	}
	m.likelihoodNodes = kept
}

// stepTreeBack rewinds the marginal tree from site s to site s-1, the
// exact inverse of stepTree's edge diff. Used by the traceback walk; no
// likelihood bookkeeping happens here.
func (m *Matcher) stepTreeBack(s int) {
	for _, e := range m.ts.EdgesStartingAt(s) {
		m.removeEdge(e)
	}
	for _, e := range m.ts.EdgesEndingAt(s) {
		m.insertEdge(e)
	}
}

// alleleOf returns the allele node u carries at site s under the current
// marginal tree: the derived state of the nearest mutation at s on u's
// path to the root, or ancestral if there is none.
func (m *Matcher) alleleOf(u treeseq.NodeID, s int) int8 {
	muts := m.ts.MutationsAt(s)
	if len(muts) == 0 {
		return 0
	}
	for v := u; v != noNode; v = m.parent[v] {
		for _, mut := range muts {
			if mut.Node == v {
				return mut.DerivedState
			}
		}
	}
	return 0
}

// compress prunes every explicit node whose likelihood equals the value
// it would inherit anyway, keeping the explicit set near the number of
// distinct lineage likelihoods. Pruning happens in place, so a node is
// tested against the partly compressed set; that is safe because a
// pruned ancestor held the same value as its own nearest explicit
// ancestor, and equality is transitive.
func (m *Matcher) compress() {
	kept := m.likelihoodNodes[:0]
	for _, u := range m.likelihoodNodes {
		if u != treeseq.RootNode && m.parent[u] != noNode {
			anc := m.parent[u]
			for anc != noNode && m.likelihood[anc] == nullLikelihood {
				anc = m.parent[anc]
			}
			if anc != noNode && m.likelihood[anc] == m.likelihood[u] {
				m.likelihood[u] = nullLikelihood
				continue
			}
		}
		kept = append(kept, u)
	}
	m.likelihoodNodes = kept
}

// MeanTracebackSize reports the mean number of traceback entries per
// site across all FindPath calls so far, a load metric for tuning.
func (m *Matcher) MeanTracebackSize() float64 {
	if m.numFindPathCalls == 0 {
		return 0
	}
	return float64(m.totalTracebackSize) / float64(m.numFindPathCalls*m.numSites)
}

// PrintState writes a human-readable snapshot of the matcher's tree and
// likelihood state to w.
func (m *Matcher) PrintState(w io.Writer) {
	fmt.Fprintf(w, "ancestor_matcher: num_sites=%d mu=%g extant=%d\n", m.numSites, m.mu, m.numExtant)
	fmt.Fprintf(w, "likelihood nodes (%d):", len(m.likelihoodNodes))
	for _, u := range m.likelihoodNodes {
		fmt.Fprintf(w, " %d=%g", u, m.likelihood[u])
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "tree:\n")
	for u := range m.parent {
		if m.parent[u] != noNode || m.leftChild[u] != noNode {
			fmt.Fprintf(w, "\t%d\tparent=%d children=[%d,%d] sibs=[%d,%d]\n",
				u, m.parent[u], m.leftChild[u], m.rightChild[u], m.leftSib[u], m.rightSib[u])
		}
	}
}
