// Package ancestor builds putative ancestral haplotypes from a panel of
// aligned samples. It consumes a sample-by-site genotype matrix one site
// at a time, bins sites by (frequency, genotype pattern), and
// synthesizes one ancestral haplotype per focal-site group by
// majority-vote consensus across the samples carrying the derived
// allele.
package ancestor

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/btcsuite/btclog"
	"github.com/emirpasic/gods/trees/redblacktree"

	"github.com/tsinfer-go/tsinfer/arena"
	"github.com/tsinfer-go/tsinfer/tserr"
)

// Allele values. Ancestral is 0, derived is 1; Unknown marks positions
// outside an ancestor's live interval.
const (
	Ancestral int8 = 0
	Derived   int8 = 1
	Unknown   int8 = -1
)

// siteRecord is the per-site state retained after AddSite: the derived
// allele frequency and the arena-backed copy of the genotype column.
type siteRecord struct {
	frequency int
	genotypes []byte
}

// siteListNode is one link of a pattern group's site list, grown by
// prepend as sites with an identical pattern arrive.
type siteListNode struct {
	site int32
	next int32
}

// patternGroup is the value stored against a genotype pattern inside one
// frequency's tree: the pattern bytes and the list of sites sharing it.
type patternGroup struct {
	genotypes []byte
	head      int32
	numSites  int
}

// Builder bins sites by (frequency, genotype pattern) and emits one
// ancestral haplotype per focal-site group.
type Builder struct {
	numSamples int
	sites      []siteRecord

	// frequencyMap[f] is an ordered tree mapping a genotype pattern to
	// the group of sites carrying that exact pattern at frequency f.
	// Only frequencies >= 2 seed groups; singletons are recorded in the
	// sites table but never grouped.
	frequencyMap map[int]*redblacktree.Tree

	genotypeArena *arena.ByteArena
	listHeap      *arena.ObjectHeap[siteListNode]

	log btclog.Logger
}

// NewBuilder creates a Builder for a panel of numSamples samples.
func NewBuilder(numSamples int) (*Builder, error) {
	if numSamples < 2 {
		return nil, tserr.New(tserr.BadParam, "ancestor: need at least 2 samples, got %d", numSamples)
	}
	return &Builder{
		numSamples:    numSamples,
		frequencyMap:  make(map[int]*redblacktree.Tree),
		genotypeArena: arena.NewByteArena(0),
		listHeap:      arena.NewObjectHeap[siteListNode](),
		log:           btclog.Disabled,
	}, nil
}

// SetLogger routes the builder's diagnostics to l; the default discards
// everything.
func (b *Builder) SetLogger(l btclog.Logger) { b.log = l }

// NumSites returns the number of sites added so far.
func (b *Builder) NumSites() int { return len(b.sites) }

// NumSamples returns the panel width.
func (b *Builder) NumSamples() int { return b.numSamples }

func patternCompare(a, b interface{}) int {
	return bytes.Compare(a.([]byte), b.([]byte))
}

// AddSite records one site. Sites must arrive in ascending site-id order
// with no gaps; frequency must equal the number of derived alleles in
// genotypes. Sites with frequency below 2 are recorded (so mutations can
// still be placed on them later) but do not seed ancestor groups.
func (b *Builder) AddSite(site int, frequency int, genotypes []int8) error {
	if site != len(b.sites) {
		return tserr.New(tserr.BadParam, "ancestor: site %d out of order, expected %d", site, len(b.sites))
	}
	if len(genotypes) != b.numSamples {
		return tserr.New(tserr.BadParam, "ancestor: genotype column length %d, want %d", len(genotypes), b.numSamples)
	}
	derived := 0
	for j, g := range genotypes {
		if g != Ancestral && g != Derived {
			return tserr.New(tserr.BadParam, "ancestor: sample %d has allele %d at site %d", j, g, site)
		}
		if g == Derived {
			derived++
		}
	}
	if frequency != derived {
		return tserr.New(tserr.BadParam, "ancestor: site %d frequency %d does not match %d derived alleles", site, frequency, derived)
	}

	stored := b.genotypeArena.Alloc(b.numSamples)
	for j, g := range genotypes {
		stored[j] = byte(g)
	}
	b.sites = append(b.sites, siteRecord{frequency: frequency, genotypes: stored})

	if frequency < 2 {
		return nil
	}

	tree, ok := b.frequencyMap[frequency]
	if !ok {
		tree = redblacktree.NewWith(patternCompare)
		b.frequencyMap[frequency] = tree
	}
	var group *patternGroup
	if v, found := tree.Get(stored); found {
		group = v.(*patternGroup)
	} else {
		group = &patternGroup{genotypes: stored, head: -1}
		tree.Put(stored, group)
	}
	node, err := b.listHeap.Alloc()
	if err != nil {
		return err
	}
	*b.listHeap.Get(node) = siteListNode{site: int32(site), next: group.head}
	group.head = node
	group.numSites++
	b.log.Tracef("ancestor: site %d joined frequency-%d group (now %d sites)", site, frequency, group.numSites)
	return nil
}

// FocalGroups returns every focal-site group, ordered by descending
// frequency (oldest ancestors first, the order the outer driver consumes
// them in). Each group's sites are ascending.
func (b *Builder) FocalGroups() [][]int {
	freqs := make([]int, 0, len(b.frequencyMap))
	for f := range b.frequencyMap {
		freqs = append(freqs, f)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(freqs)))

	var groups [][]int
	for _, f := range freqs {
		it := b.frequencyMap[f].Iterator()
		for it.Next() {
			group := it.Value().(*patternGroup)
			sites := make([]int, 0, group.numSites)
			for idx := group.head; idx != -1; idx = b.listHeap.Get(idx).next {
				sites = append(sites, int(b.listHeap.Get(idx).site))
			}
			// the list was grown by prepend from ascending input, so it
			// reads descending; flip it.
			for i, j := 0, len(sites)-1; i < j; i, j = i+1, j-1 {
				sites[i], sites[j] = sites[j], sites[i]
			}
			groups = append(groups, sites)
		}
	}
	return groups
}

// PrintState writes a human-readable snapshot of the frequency map to w.
func (b *Builder) PrintState(w io.Writer) {
	fmt.Fprintf(w, "ancestor_builder: num_samples=%d num_sites=%d\n", b.numSamples, len(b.sites))
	freqs := make([]int, 0, len(b.frequencyMap))
	for f := range b.frequencyMap {
		freqs = append(freqs, f)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(freqs)))
	for _, f := range freqs {
		fmt.Fprintf(w, "frequency %d: %d patterns\n", f, b.frequencyMap[f].Size())
		it := b.frequencyMap[f].Iterator()
		for it.Next() {
			group := it.Value().(*patternGroup)
			fmt.Fprintf(w, "\t%v ->", group.genotypes)
			for idx := group.head; idx != -1; idx = b.listHeap.Get(idx).next {
				fmt.Fprintf(w, " %d", b.listHeap.Get(idx).site)
			}
			fmt.Fprintln(w)
		}
	}
}
