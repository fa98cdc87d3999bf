package scriptlets

import (
	"fmt"

	"github.com/risor-io/risor/object"
)

// Handle addresses a value allocated in a Heap. Handles stay valid after
// the heap is frozen.
type Handle int

// Heap is the arena that holds every script value retained while modules
// initialize. It is owned by a single init pass and is not safe for
// concurrent use.
type Heap struct {
	values []object.Object
	frozen bool
}

// NewHeap returns an empty, mutable heap.
func NewHeap() *Heap {
	return &Heap{}
}

// Alloc stores v and returns its handle. Allocating into a frozen heap is
// an engine bug and panics.
func (h *Heap) Alloc(v object.Object) Handle {
	if h.frozen {
		panic("internal error: alloc into frozen heap")
	}
	h.values = append(h.values, v)
	return Handle(len(h.values) - 1)
}

// Len returns the number of allocated values.
func (h *Heap) Len() int { return len(h.values) }

// Freeze seals the heap. The returned FrozenHeap shares the arena without
// copying; h accepts no further allocations.
func (h *Heap) Freeze() *FrozenHeap {
	h.frozen = true
	return &FrozenHeap{values: h.values[:len(h.values):len(h.values)]}
}

// FrozenHeap is a sealed, read-only heap. It may be shared freely.
type FrozenHeap struct {
	values []object.Object
}

// Get returns the value behind handle.
func (f *FrozenHeap) Get(handle Handle) object.Object {
	if handle < 0 || int(handle) >= len(f.values) {
		panic(fmt.Sprintf("internal error: dangling heap handle %d", handle))
	}
	return f.values[handle]
}

// Len returns the number of values in the heap.
func (f *FrozenHeap) Len() int { return len(f.values) }
