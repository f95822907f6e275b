// Package avl provides the ordered-map and order-statistic-tree
// primitives the inference engines index with. Rather than hand-roll a
// single balanced tree, the interval indices are backed by two existing
// implementations (github.com/google/btree and github.com/petar/GoLLRB),
// wrapped behind one small generic interface so the tree sequence
// builder's three indices can each pick whichever backend its access
// pattern favors.
package avl

import (
	"github.com/google/btree"
	"github.com/petar/GoLLRB/llrb"
)

// Index is an ordered map keyed by a caller-supplied comparator:
// O(log n) insert/find/delete plus in-order traversal.
type Index[K any] interface {
	Insert(key K)
	Delete(key K) bool
	Min() (K, bool)
	Ascend(visit func(K) bool)
	AscendGreaterOrEqual(pivot K, visit func(K) bool)
	Len() int
}

// btreeIndex wraps google/btree's generic BTreeG.
type btreeIndex[K any] struct {
	t *btree.BTreeG[K]
}

// degree is the btree branching factor; 32 is btree's own suggested
// default for in-memory workloads of this size.
const degree = 32

// NewBTreeIndex creates an Index backed by google/btree.
func NewBTreeIndex[K any](less func(a, b K) bool) Index[K] {
	return &btreeIndex[K]{t: btree.NewG[K](degree, less)}
}

func (b *btreeIndex[K]) Insert(key K) {
	b.t.ReplaceOrInsert(key)
}

func (b *btreeIndex[K]) Delete(key K) bool {
	_, ok := b.t.Delete(key)
	return ok
}

func (b *btreeIndex[K]) Min() (K, bool) {
	return b.t.Min()
}

func (b *btreeIndex[K]) Ascend(visit func(K) bool) {
	b.t.Ascend(func(item K) bool { return visit(item) })
}

func (b *btreeIndex[K]) AscendGreaterOrEqual(pivot K, visit func(K) bool) {
	b.t.AscendGreaterOrEqual(pivot, func(item K) bool { return visit(item) })
}

func (b *btreeIndex[K]) Len() int {
	return b.t.Len()
}

// llrbItem adapts a generic key to GoLLRB's Item interface by closing
// over the same comparator the tree was constructed with.
type llrbItem[K any] struct {
	key  K
	less func(a, b K) bool
}

func (it *llrbItem[K]) Less(than llrb.Item) bool {
	other := than.(*llrbItem[K])
	return it.less(it.key, other.key)
}

// llrbIndex wraps github.com/petar/GoLLRB.
type llrbIndex[K any] struct {
	t    *llrb.LLRB
	less func(a, b K) bool
}

// NewLLRBIndex creates an Index backed by GoLLRB's left-leaning red-black
// tree.
func NewLLRBIndex[K any](less func(a, b K) bool) Index[K] {
	return &llrbIndex[K]{t: llrb.New(), less: less}
}

func (r *llrbIndex[K]) wrap(key K) *llrbItem[K] {
	return &llrbItem[K]{key: key, less: r.less}
}

func (r *llrbIndex[K]) Insert(key K) {
	r.t.ReplaceOrInsert(r.wrap(key))
}

func (r *llrbIndex[K]) Delete(key K) bool {
	return r.t.Delete(r.wrap(key)) != nil
}

func (r *llrbIndex[K]) Min() (K, bool) {
	item := r.t.Min()
	if item == nil {
		var zero K
		return zero, false
	}
	return item.(*llrbItem[K]).key, true
}

func (r *llrbIndex[K]) Ascend(visit func(K) bool) {
	min := r.t.Min()
	if min == nil {
		return
	}
	r.t.AscendGreaterOrEqual(min, func(i llrb.Item) bool {
		return visit(i.(*llrbItem[K]).key)
	})
}

func (r *llrbIndex[K]) AscendGreaterOrEqual(pivot K, visit func(K) bool) {
	r.t.AscendGreaterOrEqual(r.wrap(pivot), func(i llrb.Item) bool {
		return visit(i.(*llrbItem[K]).key)
	})
}

func (r *llrbIndex[K]) Len() int {
	return r.t.Len()
}
