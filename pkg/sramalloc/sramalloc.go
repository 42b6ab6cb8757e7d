// Package sramalloc implements the per-bank SRAM free-list allocator used by
// the combiner while growing combinations (spec §4.8).
//
// Grounded on the teacher repository's SramAllocator.cpp: a sorted,
// non-overlapping list of free regions, Allocate/Free/Reset/TryFree, and
// Start/End allocation preference. Go has no copy constructors, so the
// "shared-mutable allocator passed into subroutines" re-architecture note
// (spec §9) is realized simply: Allocator is a plain value type (a slice
// header plus length), and Clone makes the deep copy the combiner needs
// before passing a value into each search branch.
package sramalloc

import "sort"

// Preference selects which end of the lowest/highest-fitting free region an
// allocation is placed at.
type Preference uint8

const (
	Start Preference = iota
	End
)

type region struct {
	begin, end uint32
}

// chunk records a prior allocation so TryFree/Free can locate it by offset.
type chunk struct {
	begin, end uint32
}

// Allocator is a value-type free-list allocator over [0, capacity). Clone
// copies both region lists into new slices, so the combiner can give every
// branch of its search its own independent copy, as the teacher's
// SramAllocator copy-assignment operator does.
type Allocator struct {
	capacity uint32
	free     []region
	used     []chunk
}

// New returns an Allocator over [0, capacity) with all of it free.
func New(capacity uint32) *Allocator {
	return &Allocator{
		capacity: capacity,
		free:     []region{{0, capacity}},
	}
}

// Clone returns a deep copy of a, safe to mutate independently.
func (a *Allocator) Clone() *Allocator {
	c := &Allocator{capacity: a.capacity}
	c.free = append([]region(nil), a.free...)
	c.used = append([]chunk(nil), a.used...)
	return c
}

// Capacity returns the allocator's total capacity.
func (a *Allocator) Capacity() uint32 { return a.capacity }

// Allocate tries to place a block of size bytes at Start (lowest-address
// region that fits) or End (highest-address region, placed at its top),
// mirroring SramAllocator::Allocate. Returns (offset, true) on success.
func (a *Allocator) Allocate(size uint32, pref Preference) (uint32, bool) {
	if size == 0 {
		return 0, true
	}

	switch pref {
	case Start:
		for i := range a.free {
			r := &a.free[i]
			if size <= r.end-r.begin {
				off := r.begin
				a.used = append(a.used, chunk{off, off + size})
				r.begin += size
				if r.begin == r.end {
					a.free = append(a.free[:i], a.free[i+1:]...)
				}
				return off, true
			}
		}
	case End:
		for i := len(a.free) - 1; i >= 0; i-- {
			r := &a.free[i]
			if size <= r.end-r.begin {
				off := r.end - size
				a.used = append(a.used, chunk{off, off + size})
				r.end -= size
				if r.begin == r.end {
					a.free = append(a.free[:i], a.free[i+1:]...)
				}
				return off, true
			}
		}
	}
	return 0, false
}

// TryFree releases the allocation starting at offset, returning false (and
// doing nothing) if no such allocation is tracked.
func (a *Allocator) TryFree(offset uint32) bool {
	idx := -1
	for i, c := range a.used {
		if c.begin == offset {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	freed := a.used[idx]
	a.used = append(a.used[:idx], a.used[idx+1:]...)

	a.free = append(a.free, region{freed.begin, freed.end})
	sort.Slice(a.free, func(i, j int) bool { return a.free[i].begin < a.free[j].begin })
	a.collapse()
	return true
}

// Free releases the allocation starting at offset, panicking if none is
// tracked (mirrors SramAllocator::Free's assert).
func (a *Allocator) Free(offset uint32) {
	if !a.TryFree(offset) {
		panic("sramalloc: Free of untracked offset")
	}
}

// Reset discards all allocations, returning the allocator to a single free
// region spanning the whole capacity.
func (a *Allocator) Reset() {
	a.free = []region{{0, a.capacity}}
	a.used = nil
}

// IsEmpty reports whether there are no live allocations.
func (a *Allocator) IsEmpty() bool {
	return len(a.used) == 0
}

// NumAllocations returns the number of live allocations, mirroring
// SramAllocator::GetAllocationSize.
func (a *Allocator) NumAllocations() int {
	return len(a.used)
}

func (a *Allocator) collapse() {
	for i := len(a.free) - 1; i >= 1; i-- {
		if a.free[i-1].end == a.free[i].begin {
			a.free[i-1].end = a.free[i].end
			a.free = append(a.free[:i], a.free[i+1:]...)
		}
	}
}
