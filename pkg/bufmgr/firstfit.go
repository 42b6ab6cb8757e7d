package bufmgr

import (
	"sort"

	"github.com/gpustack/npu-compiler-core/internal/numeric"
)

// Lifetime describes an intermediate buffer's life in the compilation's pass
// ordering: [Start, End), along with its size.
type Lifetime struct {
	Start, End uint32
	Size       uint32
}

type eventType uint8

const (
	eventFree eventType = iota
	eventAllocate
)

type event struct {
	timestamp uint32
	bufIdx    int
	typ       eventType
}

type ffRegion struct {
	start, end uint64
}

// maxRegionEnd represents +Infinity for the initial free region, matching
// the teacher's constexpr uint32_t MAX = 0xFFFFFFFF sentinel but using a
// wider type internally so arithmetic never overflows at the true top of
// the address space.
const maxRegionEnd = ^uint64(0)

// FirstFitAllocate implements spec §4.7.1: lifetime-aware first-fit packing
// of intermediate DRAM buffers. Event list: Allocate at start, Free at end;
// sorted by (time, Free before Allocate, buffer index) so ties are
// deterministic. Returns one allocated offset per input buffer.
//
// Grounded on the teacher's BufferManager.cpp
// first_fit_allocation::FirstFitAllocation.
func FirstFitAllocate(buffers []Lifetime, alignment uint32) []uint32 {
	n := len(buffers)
	sizes := make([]uint64, n)
	for i, b := range buffers {
		sizes[i] = uint64(numeric.RoundUpToMultiple(b.Size, alignment))
	}

	events := make([]event, 0, 2*n)
	for i, b := range buffers {
		events = append(events, event{timestamp: b.Start, bufIdx: i, typ: eventAllocate})
		events = append(events, event{timestamp: b.End, bufIdx: i, typ: eventFree})
	}
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.timestamp != b.timestamp {
			return a.timestamp < b.timestamp
		}
		if a.typ != b.typ {
			return a.typ < b.typ // Free (0) before Allocate (1)
		}
		return a.bufIdx < b.bufIdx
	})

	allocations := make([]uint64, n)
	for i := range allocations {
		allocations[i] = maxRegionEnd
	}

	free := []ffRegion{{0, maxRegionEnd}}

	for _, e := range events {
		switch e.typ {
		case eventAllocate:
			size := sizes[e.bufIdx]
			for i := range free {
				r := &free[i]
				if size <= r.end-r.start {
					allocations[e.bufIdx] = r.start
					r.start += size
					if r.start == r.end {
						free = append(free[:i], free[i+1:]...)
					}
					break
				}
			}
		case eventFree:
			freedStart := allocations[e.bufIdx]
			freedEnd := freedStart + sizes[e.bufIdx]
			free = insertFreedRegion(free, freedStart, freedEnd)
		}
	}

	out := make([]uint32, n)
	for i, a := range allocations {
		out[i] = uint32(a)
	}
	return out
}

// insertFreedRegion merges a newly-freed [start, end) region into the
// sorted, disjoint, non-adjacent free-region list.
func insertFreedRegion(free []ffRegion, start, end uint64) []ffRegion {
	beforeIdx, afterIdx := -1, -1
	insertAt := len(free)
	for i, r := range free {
		if r.end == start {
			beforeIdx = i
		}
		if r.start == end && afterIdx == -1 {
			afterIdx = i
		}
		if r.start >= end && insertAt == len(free) {
			insertAt = i
		}
	}

	switch {
	case beforeIdx == -1 && afterIdx == -1:
		out := make([]ffRegion, 0, len(free)+1)
		out = append(out, free[:insertAt]...)
		out = append(out, ffRegion{start, end})
		out = append(out, free[insertAt:]...)
		return out
	case beforeIdx == -1 && afterIdx != -1:
		free[afterIdx].start = start
		return free
	case beforeIdx != -1 && afterIdx == -1:
		free[beforeIdx].end = end
		return free
	default:
		free[beforeIdx].end = free[afterIdx].end
		return append(free[:afterIdx], free[afterIdx+1:]...)
	}
}
