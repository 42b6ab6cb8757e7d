// Package bufmgr assigns final DRAM offsets to every buffer in a
// materialized op-graph: constants into two concatenated blobs, inputs and
// outputs bump-allocated per type, intermediates packed by first-fit
// lifetime-aware allocation (spec §4.7). SRAM buffer offsets are left
// untouched; they were already fixed by the combiner's sramalloc.Allocator.
//
// Grounded on the teacher's BufferManager.cpp (both the cascading and
// non-cascading variants collapse to one manager here, since this module
// only ever materializes the non-cascading op-graph).
package bufmgr

import "github.com/gpustack/npu-compiler-core/internal/numeric"

// DramAlignment is the byte alignment every non-SRAM buffer offset honors,
// matching the teacher's g_DmaEngineAlignment constant.
const DramAlignment = 64

// Kind classifies a buffer for allocation purposes.
type Kind uint8

const (
	KindInput Kind = iota
	KindOutput
	KindConstantDma
	KindConstantControlUnit
	KindIntermediate
)

// Request describes one buffer awaiting a DRAM offset.
type Request struct {
	ID    int
	Kind  Kind
	Size  uint32
	Start uint32 // lifetime start, Intermediate only
	End   uint32 // lifetime end, Intermediate only
}

// Layout is the final offset and blob membership assigned to one buffer.
type Layout struct {
	ID     int
	Offset uint32
	Size   uint32
}

// Result collects the manager's output: per-buffer layouts plus the total
// size of each contiguous region, exactly what spec §6 ("Buffer layout")
// requires the serializer to emit.
type Result struct {
	Inputs             []Layout
	Outputs            []Layout
	ConstantDma        []Layout
	ConstantControlUnit []Layout
	Intermediates       []Layout

	InputsTotalSize             uint32
	OutputsTotalSize             uint32
	ConstantDmaTotalSize         uint32
	ConstantControlUnitTotalSize uint32
	IntermediateTotalSize        uint32
}

// Allocate assigns offsets to every request. Constants and bump-allocated
// kinds are placed in insertion order (the order requests appear in the
// slice); Intermediates are packed by FirstFitAllocate.
func Allocate(requests []Request) Result {
	var res Result

	var intermediates []Request
	for _, r := range requests {
		switch r.Kind {
		case KindInput:
			res.InputsTotalSize = bumpAppend(&res.Inputs, r, res.InputsTotalSize)
		case KindOutput:
			res.OutputsTotalSize = bumpAppend(&res.Outputs, r, res.OutputsTotalSize)
		case KindConstantDma:
			res.ConstantDmaTotalSize = bumpAppend(&res.ConstantDma, r, res.ConstantDmaTotalSize)
		case KindConstantControlUnit:
			res.ConstantControlUnitTotalSize = bumpAppend(&res.ConstantControlUnit, r, res.ConstantControlUnitTotalSize)
		case KindIntermediate:
			intermediates = append(intermediates, r)
		}
	}

	if len(intermediates) > 0 {
		lifetimes := make([]Lifetime, len(intermediates))
		for i, r := range intermediates {
			lifetimes[i] = Lifetime{Start: r.Start, End: r.End, Size: r.Size}
		}
		offsets := FirstFitAllocate(lifetimes, DramAlignment)

		res.Intermediates = make([]Layout, len(intermediates))
		var total uint32
		for i, r := range intermediates {
			res.Intermediates[i] = Layout{ID: r.ID, Offset: offsets[i], Size: r.Size}
			end := offsets[i] + numeric.RoundUpToMultiple(r.Size, DramAlignment)
			if end > total {
				total = end
			}
		}
		res.IntermediateTotalSize = total
	}

	return res
}

// bumpAppend appends a Layout for r at the next 64-byte-aligned offset
// after runningSize, returning the new running size.
func bumpAppend(layouts *[]Layout, r Request, runningSize uint32) uint32 {
	offset := numeric.RoundUpToMultiple(runningSize, DramAlignment)
	*layouts = append(*layouts, Layout{ID: r.ID, Offset: offset, Size: r.Size})
	return offset + r.Size
}
