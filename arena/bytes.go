package arena

// ByteArena is the raw-byte face of the block allocator: Alloc(n) carves
// n bytes out of the current block, starting a fresh block when the
// request does not fit, and FreeAll resets the cursor without returning
// the blocks to the runtime. Requests larger than the block size get a
// dedicated block of exactly that size.
type ByteArena struct {
	blockSize int
	blocks    [][]byte
	cur       int
	off       int
}

// NewByteArena creates a byte arena with the given per-block size. A
// non-positive size falls back to defaultBlockSize.
func NewByteArena(blockSize int) *ByteArena {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	a := &ByteArena{blockSize: blockSize}
	a.blocks = append(a.blocks, make([]byte, blockSize))
	return a
}

// Alloc returns a zeroed n-byte slice carved out of the arena. The slice
// stays valid until FreeAll; it must not be appended to.
func (a *ByteArena) Alloc(n int) []byte {
	if n > a.blockSize {
		// Oversized request: give it its own block, spliced in behind the
		// current one so the bump cursor is undisturbed.
		blk := make([]byte, n)
		a.blocks = append(a.blocks, nil)
		copy(a.blocks[a.cur+1:], a.blocks[a.cur:])
		a.blocks[a.cur] = blk
		a.cur++
		return blk
	}
	if a.off+n > len(a.blocks[a.cur]) {
		a.cur++
		a.off = 0
		if a.cur >= len(a.blocks) {
			a.blocks = append(a.blocks, make([]byte, a.blockSize))
		}
	}
	p := a.blocks[a.cur][a.off : a.off+n : a.off+n]
	for i := range p {
		p[i] = 0
	}
	a.off += n
	return p
}

// FreeAll resets the bump cursor. Blocks are kept for reuse.
func (a *ByteArena) FreeAll() {
	a.cur = 0
	a.off = 0
}
