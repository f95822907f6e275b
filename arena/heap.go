package arena

import "github.com/tsinfer-go/tsinfer/tserr"

// nullID is the sentinel for "no record", used instead of a nil pointer
// so that records are addressed by plain integer ids and survive a
// dump/restore round trip.
const nullID int32 = -1

// ObjectHeap is a fixed-record free list over a flat, growable backing
// slice. Records are addressed by integer id, never by pointer, so that
// rebuilding indices from a dump is a matter of replaying ids. Freed
// records go on an explicit free list and are only reused after the next
// Alloc call, never implicitly.
type ObjectHeap[T any] struct {
	records []T
	free    []int32
	inUse   []bool
}

// NewObjectHeap creates an empty heap.
func NewObjectHeap[T any]() *ObjectHeap[T] {
	return &ObjectHeap[T]{}
}

// Alloc returns the id of a fresh or recycled zero-valued record.
func (h *ObjectHeap[T]) Alloc() (int32, error) {
	if len(h.free) > 0 {
		id := h.free[len(h.free)-1]
		h.free = h.free[:len(h.free)-1]
		var zero T
		h.records[id] = zero
		h.inUse[id] = true
		return id, nil
	}
	if len(h.records) >= (1 << 31) {
		return nullID, tserr.New(tserr.OutOfMemory, "arena: object heap exhausted id space")
	}
	h.records = append(h.records, *new(T))
	h.inUse = append(h.inUse, true)
	return int32(len(h.records) - 1), nil
}

// Get returns a pointer to the record with the given id.
func (h *ObjectHeap[T]) Get(id int32) *T {
	return &h.records[id]
}

// Free returns a record to the free list. The record must not be
// referenced again until a subsequent Alloc reissues its id.
func (h *ObjectHeap[T]) Free(id int32) {
	if !h.inUse[id] {
		return
	}
	h.inUse[id] = false
	h.free = append(h.free, id)
}

// FreeAll releases every record at once. The backing slice capacity is
// retained.
func (h *ObjectHeap[T]) FreeAll() {
	h.records = h.records[:0]
	h.free = h.free[:0]
	h.inUse = h.inUse[:0]
}

// Len returns the number of ids ever handed out (including currently
// freed ones) since the last FreeAll: the size needed to index every
// record by id.
func (h *ObjectHeap[T]) Len() int {
	return len(h.records)
}
