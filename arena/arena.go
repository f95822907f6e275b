// Package arena provides the allocation primitives shared by the
// inference engines: a coarse bump allocator over contiguous blocks,
// freed all at once, and a fixed-record free list over a flat backing
// slice. Every linked structure built by the ancestor builder, tree
// sequence builder, and matcher (edges, index nodes, traceback entries,
// mutation list nodes) is allocated from one of these and released
// wholesale. The only per-record free path is ObjectHeap.Free, which the
// tree sequence builder uses to roll back a failed path insertion.
package arena

import "github.com/tsinfer-go/tsinfer/tserr"

// defaultBlockSize is the size, in elements, of each freshly allocated
// block; large enough that most passes touch one or two blocks.
const defaultBlockSize = 4096

// BlockAllocator bump-allocates fixed-size records of type T from a list
// of blocks. Blocks are never resized in place or shrunk; FreeAll just
// resets the cursor.
type BlockAllocator[T any] struct {
	blockSize int
	blocks    [][]T
	cur       int // index into blocks of the block currently being filled
	off       int // offset within blocks[cur] of the next free slot
}

// NewBlockAllocator creates an allocator with the given per-block size.
// A non-positive size falls back to defaultBlockSize.
func NewBlockAllocator[T any](blockSize int) *BlockAllocator[T] {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	a := &BlockAllocator[T]{blockSize: blockSize}
	a.blocks = append(a.blocks, make([]T, blockSize))
	return a
}

// Alloc returns a pointer to a fresh zero-valued T, bump-allocated within
// the current block. A new block is appended on overflow.
func (a *BlockAllocator[T]) Alloc() (*T, error) {
	if a.cur >= len(a.blocks) {
		return nil, tserr.New(tserr.OutOfMemory, "arena: block index %d out of range", a.cur)
	}
	if a.off >= len(a.blocks[a.cur]) {
		a.cur++
		a.off = 0
		if a.cur >= len(a.blocks) {
			a.blocks = append(a.blocks, make([]T, a.blockSize))
		}
	}
	var zero T
	a.blocks[a.cur][a.off] = zero
	p := &a.blocks[a.cur][a.off]
	a.off++
	return p, nil
}

// FreeAll resets the bump cursor to the start of the first block. Blocks
// already grown are kept, so a subsequent pass over a similarly sized
// workload allocates nothing new.
func (a *BlockAllocator[T]) FreeAll() {
	a.cur = 0
	a.off = 0
}

// Len returns the number of records handed out since the last FreeAll.
func (a *BlockAllocator[T]) Len() int {
	if len(a.blocks) == 0 {
		return 0
	}
	return a.cur*a.blockSize + a.off
}
