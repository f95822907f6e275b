package matcher

import (
	"testing"

	"github.com/tsinfer-go/tsinfer/ancestor"
	"github.com/tsinfer-go/tsinfer/treeseq"
	"github.com/tsinfer-go/tsinfer/tsconfig"
)

// TestInferencePipeline drives the three engines the way the outer
// driver does: bin the sample panel into focal groups, synthesize one
// ancestor per group, thread each ancestor through the growing tree
// sequence, then thread the samples themselves and check that every
// sample's derived sites are recoverable from the final state.
func TestInferencePipeline(t *testing.T) {
	samples := [][]int8{
		{1, 1, 0, 1, 0, 0},
		{1, 1, 0, 1, 0, 1},
		{0, 0, 1, 0, 1, 0},
		{0, 0, 1, 0, 1, 0},
	}
	numSites := len(samples[0])

	ab, err := ancestor.NewBuilder(len(samples))
	if err != nil {
		t.Fatalf("ancestor.NewBuilder: %v", err)
	}
	for s := 0; s < numSites; s++ {
		col := make([]int8, len(samples))
		freq := 0
		for j := range samples {
			col[j] = samples[j][s]
			if col[j] == 1 {
				freq++
			}
		}
		if err := ab.AddSite(s, freq, col); err != nil {
			t.Fatalf("AddSite(%d): %v", s, err)
		}
	}

	// One Config drives both engines, split into its flag set and model
	// parameters at construction.
	cfg := *tsconfig.DefaultConfig
	cfg.Params = tsconfig.DefaultParams(numSites, 0.01)
	ts, err := treeseq.NewBuilder(numSites, cfg.Flags)
	if err != nil {
		t.Fatalf("treeseq.NewBuilder: %v", err)
	}
	m, err := NewMatcher(ts, cfg.Params)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}

	// Ancestors enter oldest first; each is matched against the tree
	// sequence built so far, inserted with the resulting path, and its
	// focal sites become mutations on it.
	groups := ab.FocalGroups()
	time := float64(len(groups) + 1)
	for _, focal := range groups {
		start, end, hap, err := ab.MakeAncestor(focal)
		if err != nil {
			t.Fatalf("MakeAncestor(%v): %v", focal, err)
		}
		path, err := m.FindPath(start, end, hap)
		if err != nil {
			t.Fatalf("FindPath ancestor %v: %v", focal, err)
		}
		node, err := ts.AddNode(time, false)
		if err != nil {
			t.Fatalf("AddNode: %v", err)
		}
		if err := ts.AddPath(node, path.Edges); err != nil {
			t.Fatalf("AddPath: %v", err)
		}
		// The mismatch sites are exactly where this ancestor differs
		// from everything already inserted; they become its mutations.
		// The focal sites always land here on the first ancestor to
		// carry them.
		var sites []int
		var derived []int8
		for _, s := range path.Mismatches {
			sites = append(sites, s)
			derived = append(derived, hap[s-start])
		}
		if len(sites) > 0 {
			if err := ts.AddMutations(node, sites, derived); err != nil {
				t.Fatalf("AddMutations: %v", err)
			}
		}
		time -= 1
	}

	// Samples last: each must thread with zero unexplained state, i.e.
	// after placing its mismatch sites as mutations, replaying the path
	// reproduces the sample exactly.
	for j, hap := range samples {
		path, err := m.FindPath(0, numSites, hap)
		if err != nil {
			t.Fatalf("FindPath sample %d: %v", j, err)
		}
		node, err := ts.AddNode(time, true)
		if err != nil {
			t.Fatalf("AddNode sample %d: %v", j, err)
		}
		if err := ts.AddPath(node, path.Edges); err != nil {
			t.Fatalf("AddPath sample %d: %v", j, err)
		}
		for s := 0; s < numSites; s++ {
			recovered := path.Matched[s]
			for _, ms := range path.Mismatches {
				if ms == s {
					recovered = hap[s]
				}
			}
			if recovered != hap[s] {
				t.Fatalf("sample %d site %d not recoverable: matched %d, input %d", j, s, path.Matched[s], hap[s])
			}
		}
		time -= 1
	}

	if ts.NumEdges() == 0 {
		t.Fatal("pipeline inserted no edges")
	}
}
