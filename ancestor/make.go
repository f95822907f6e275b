package ancestor

import (
	"github.com/tsinfer-go/tsinfer/tserr"
)

// MakeAncestor synthesizes the ancestral haplotype for one focal-site
// group. focalSites must be ascending, in range, and share a single
// genotype pattern with frequency >= 2. The returned haplotype covers
// [start, end); callers encode sites outside that interval with Unknown.
//
// The consensus rule: the carriers are the samples with the derived
// allele at the focal pattern. Extending outward from the focal span,
// each neighbor site's allele is the majority vote among the carriers
// still in agreement, ties resolving to ancestral; a carrier is dropped
// from the vote the first time it disagrees with the consensus, and the
// extension stops once fewer than two carriers remain or no carrier has
// a vote left.
func (b *Builder) MakeAncestor(focalSites []int) (start, end int, haplotype []int8, err error) {
	if len(focalSites) == 0 {
		return 0, 0, nil, tserr.New(tserr.BadParam, "ancestor: empty focal site list")
	}
	for i, s := range focalSites {
		if s < 0 || s >= len(b.sites) {
			return 0, 0, nil, tserr.New(tserr.BadParam, "ancestor: focal site %d out of range [0,%d)", s, len(b.sites))
		}
		if i > 0 && s <= focalSites[i-1] {
			return 0, 0, nil, tserr.New(tserr.BadParam, "ancestor: focal sites not strictly ascending at index %d", i)
		}
	}
	first := b.sites[focalSites[0]]
	if first.frequency < 2 {
		return 0, 0, nil, tserr.New(tserr.BadParam, "ancestor: focal site %d has frequency %d, need >= 2", focalSites[0], first.frequency)
	}

	carriers := make([]int, 0, first.frequency)
	for j := 0; j < b.numSamples; j++ {
		if first.genotypes[j] == byte(Derived) {
			carriers = append(carriers, j)
		}
	}

	minFocal := focalSites[0]
	maxFocal := focalSites[len(focalSites)-1]
	hap := make([]int8, len(b.sites))
	for i := range hap {
		hap[i] = Unknown
	}

	// Focal span: every focal position is derived; every position in
	// between is the plain majority among the full carrier set.
	focal := make(map[int]bool, len(focalSites))
	for _, s := range focalSites {
		focal[s] = true
		hap[s] = Derived
	}
	for s := minFocal + 1; s < maxFocal; s++ {
		if !focal[s] {
			allele, _ := b.consensus(s, carriers)
			hap[s] = allele
		}
	}

	start = b.extend(hap, carriers, minFocal, -1)
	end = b.extend(hap, carriers, maxFocal, +1) + 1

	b.log.Debugf("ancestor: group of %d focal sites -> [%d,%d)", len(focalSites), start, end)
	return start, end, hap[start:end], nil
}

// consensus tallies the live carriers' alleles at site s and returns the
// majority allele (ties break ancestral) plus the vote counts' total.
func (b *Builder) consensus(s int, live []int) (int8, int) {
	g := b.sites[s].genotypes
	ones := 0
	for _, j := range live {
		if g[j] == byte(Derived) {
			ones++
		}
	}
	zeros := len(live) - ones
	if ones > zeros {
		return Derived, len(live)
	}
	return Ancestral, len(live)
}

// extend walks outward from the focal span in the given direction (+1 or
// -1), filling hap with the running consensus and shedding carriers that
// disagree, and returns the last site kept. Each direction starts from
// the full carrier set.
func (b *Builder) extend(hap []int8, carriers []int, from, dir int) int {
	live := make([]int, len(carriers))
	copy(live, carriers)
	last := from
	for s := from + dir; s >= 0 && s < len(b.sites); s += dir {
		allele, votes := b.consensus(s, live)
		if votes == 0 {
			break
		}
		hap[s] = allele
		last = s
		g := b.sites[s].genotypes
		kept := live[:0]
		for _, j := range live {
			if int8(g[j]) == allele {
				kept = append(kept, j)
			}
		}
		live = kept
		if len(live) <= 1 {
			break
		}
	}
	return last
}
