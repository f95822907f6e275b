package treeseq

import "github.com/tsinfer-go/tsinfer/tserr"

// AddMutations prepends one mutation record per (site, derivedState)
// pair to the corresponding sites' mutation lists. No ordering guarantee
// is made across calls for different nodes; within one call, sites are
// processed in the given order.
func (b *Builder) AddMutations(node NodeID, sites []int, derivedState []int8) error {
	if len(sites) != len(derivedState) {
		return tserr.New(tserr.BadParam, "treeseq: sites and derivedState length mismatch (%d vs %d)", len(sites), len(derivedState))
	}
	if int(node) < 0 || int(node) >= len(b.nodes) {
		return tserr.New(tserr.BadParam, "treeseq: node %d does not exist", node)
	}
	ids := make([]MutationID, len(sites))
	for i, s := range sites {
		if s < 0 || s >= b.numSites {
			return tserr.New(tserr.BadParam, "treeseq: site %d out of range", s)
		}
		id, err := b.mutationHeap.Alloc()
		if err != nil {
			return err
		}
		*b.mutationHeap.Get(id) = Mutation{Site: s, Node: node, DerivedState: derivedState[i]}
		ids[i] = id
	}
	for i, s := range sites {
		listNode, _ := b.mutationLists.Alloc()
		*b.mutationLists.Get(listNode) = mutationListNode{mutation: ids[i], next: b.mutationHeadOf(s)}
		b.mutationHead[s] = listNode
	}
	return nil
}

// mutationHeadOf returns the head of site's mutation list, or -1 when the
// site has none (the map's zero value would otherwise alias list node 0).
func (b *Builder) mutationHeadOf(site int) int32 {
	if head, ok := b.mutationHead[site]; ok {
		return head
	}
	return -1
}

// MutationsAt returns the mutations at site, in list (most-recently-
// added-first) order.
func (b *Builder) MutationsAt(site int) []Mutation {
	var out []Mutation
	for idx := b.mutationHeadOf(site); idx != -1; idx = b.mutationLists.Get(idx).next {
		out = append(out, *b.mutationHeap.Get(b.mutationLists.Get(idx).mutation))
	}
	return out
}

// parentMutationID returns the id of the nearest preceding mutation at
// site on an ancestor of node (walking up via climb), or NoMutation.
// Used by DumpMutations to fill in the parent-mutation field.
func (b *Builder) parentMutationID(site int, node NodeID, ancestorOf func(NodeID) NodeID) MutationID {
	for n := ancestorOf(node); n != NoNode; n = ancestorOf(n) {
		for idx := b.mutationHeadOf(site); idx != -1; idx = b.mutationLists.Get(idx).next {
			m := b.mutationHeap.Get(b.mutationLists.Get(idx).mutation)
			if m.Node == n {
				return b.mutationLists.Get(idx).mutation
			}
		}
	}
	return NoMutation
}
