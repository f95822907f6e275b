package matcher

import (
	"github.com/tsinfer-go/tsinfer/treeseq"
	"github.com/tsinfer-go/tsinfer/tserr"
)

// Path is the result of threading one haplotype through the tree
// sequence: the matched copy, the copying path as (Left, Right, Parent)
// edges sorted by Left, and the sites where the copy disagrees with the
// input. Edges carry no Child; the caller assigns one when handing the
// path to treeseq.Builder.AddPath.
type Path struct {
	Matched    []int8
	Edges      []treeseq.Edge
	Mismatches []int
}

// FindPath computes the maximum-likelihood copying path for
// haplotype[0:end-start], which spans sites [start, end). Alleles equal
// to Unknown match everything.
func (m *Matcher) FindPath(start, end int, haplotype []int8) (Path, error) {
	if start < 0 || start >= end || end > m.numSites {
		return Path{}, tserr.New(tserr.BadParam, "matcher: interval [%d,%d) invalid for %d sites", start, end, m.numSites)
	}
	if len(haplotype) != end-start {
		return Path{}, tserr.New(tserr.BadParam, "matcher: haplotype length %d, want %d", len(haplotype), end-start)
	}

	m.reset()
	for s := 0; s < start; s++ {
		m.stepTree(s)
	}
	for s := start; s < end; s++ {
		m.stepTree(s)
		if err := m.updateSite(s, start, haplotype[s-start]); err != nil {
			return Path{}, err
		}
	}
	path := m.traceBack(start, end, haplotype)
	m.numFindPathCalls++
	m.log.Debugf("matcher: matched [%d,%d) with %d edges, %d mismatches",
		start, end, len(path.Edges), len(path.Mismatches))
	return path, nil
}

// updateSite applies the transition and emission at site s to every
// explicit likelihood node, records the per-node recombination decisions
// in the traceback, renormalizes so the maximum likelihood is 1, and
// compresses the explicit set. At the first matched site only the
// emission applies.
func (m *Matcher) updateSite(s, start int, h int8) error {
	// A node carrying a mutation at s emits differently from its
	// ancestors, so it cannot stay implicit through this site: expand it
	// into the explicit set with its inherited value first. Compression
	// folds it back in afterwards if the update left it equal.
	for _, mut := range m.ts.MutationsAt(s) {
		u := mut.Node
		if u != treeseq.RootNode && m.parent[u] == noNode {
			continue
		}
		if m.likelihood[u] == nullLikelihood {
			m.setLikelihood(u, m.nearestLikelihood(u))
		}
	}

	var rho, recombProba float64
	if s > start {
		rho = m.rho[s]
		n := m.numExtant
		if n < 1 {
			n = 1
		}
		recombProba = rho / float64(n)
	}

	for _, u := range m.likelihoodNodes {
		noRecomb := m.likelihood[u] * (1 - rho)
		v := noRecomb
		recombRequired := false
		if s > start && recombProba > noRecomb {
			v = recombProba
			recombRequired = true
		}
		if h == Unknown || m.alleleOf(u, s) == h {
			v *= 1 - m.mu
		} else {
			v *= m.mu
		}
		m.likelihood[u] = v

		entry, err := m.tracebackArena.Alloc()
		if err != nil {
			return err
		}
		*entry = tracebackNode{node: u, recombRequired: recombRequired, next: m.traceback[s]}
		m.traceback[s] = entry
		m.totalTracebackSize++
	}

	best := noNode
	var max float64
	for _, u := range m.likelihoodNodes {
		if m.likelihood[u] > max || (m.likelihood[u] == max && best != noNode && u < best) {
			max = m.likelihood[u]
			best = u
		}
	}
	if best == noNode || max <= 0 {
		return tserr.New(tserr.Generic, "matcher: all likelihoods vanished at site %d", s)
	}
	for _, u := range m.likelihoodNodes {
		m.likelihood[u] /= max
	}
	m.maxLikelihoodNode[s] = best

	m.compress()
	return nil
}

// recombinationRequired resolves u's effective recombination bit at site
// s by climbing to the nearest node with a traceback entry there.
func (m *Matcher) recombinationRequired(s int, u treeseq.NodeID) bool {
	for v := u; v != noNode; v = m.parent[v] {
		for entry := m.traceback[s]; entry != nil; entry = entry.next {
			if entry.node == v {
				return entry.recombRequired
			}
		}
	}
	return false
}

// traceBack walks the recorded decisions from end-1 down to start,
// emitting an edge every time the chosen node needed a recombination,
// and rewinding the marginal tree in step so the matched allele at each
// site is read off the tree that was current there. Edges accumulate
// right to left and are reversed before returning.
func (m *Matcher) traceBack(start, end int, haplotype []int8) Path {
	matched := make([]int8, end-start)
	var edges []treeseq.Edge
	var mismatches []int

	right := end
	u := m.maxLikelihoodNode[end-1]
	for s := end - 1; s >= start; s-- {
		allele := m.alleleOf(u, s)
		matched[s-start] = allele
		if haplotype[s-start] != Unknown && allele != haplotype[s-start] {
			mismatches = append(mismatches, s)
		}
		if s > start {
			if m.recombinationRequired(s, u) {
				edges = append(edges, treeseq.Edge{Left: s, Right: right, Parent: u})
				right = s
				u = m.maxLikelihoodNode[s-1]
			}
			m.stepTreeBack(s)
		}
	}
	edges = append(edges, treeseq.Edge{Left: start, Right: right, Parent: u})

	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	for i, j := 0, len(mismatches)-1; i < j; i, j = i+1, j-1 {
		mismatches[i], mismatches[j] = mismatches[j], mismatches[i]
	}
	return Path{Matched: matched, Edges: edges, Mismatches: mismatches}
}
