// Package buffer models the Buffer type from spec §3: the unit of data that
// ops read and write, tagged with its location, on-wire format, and (for
// SRAM buffers) per-stripe layout.
package buffer

import (
	"fmt"

	"github.com/gpustack/npu-compiler-core/pkg/hwcaps"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
)

// Location is where a buffer's bytes physically live.
type Location uint8

const (
	Dram Location = iota
	Sram
	PleInputSram
)

func (l Location) String() string {
	switch l {
	case Dram:
		return "Dram"
	case Sram:
		return "Sram"
	case PleInputSram:
		return "PleInputSram"
	default:
		return "unknown"
	}
}

// Format is the on-wire tiling/compression tag for a buffer's bytes.
type Format uint8

const (
	NHWC Format = iota
	NCHW
	NHWCB
	FCAFDeep
	FCAFWide
	Weight
)

func (f Format) String() string {
	switch f {
	case NHWC:
		return "NHWC"
	case NCHW:
		return "NCHW"
	case NHWCB:
		return "NHWCB"
	case FCAFDeep:
		return "FCAF_DEEP"
	case FCAFWide:
		return "FCAF_WIDE"
	case Weight:
		return "WEIGHT"
	default:
		return "unknown"
	}
}

// IsFCAF reports whether f is one of the two FCAF compressed-cell formats.
func (f Format) IsFCAF() bool { return f == FCAFDeep || f == FCAFWide }

// TraversalOrder names the order in which stripes of a tensor are visited.
type TraversalOrder uint8

const (
	Xyz TraversalOrder = iota
	Yxz
)

// EncodedWeights is the packed output of the weight encoder (spec §3,
// populated by pkg/weightenc and referenced here so a Buffer of
// Format == Weight can carry it).
type EncodedWeights struct {
	Data             []byte
	StripeMetadata   []StripeMetadata
	MaxStripeSize    uint32
	IsWideFilter     bool
}

// StripeMetadata is one {offset, size} entry describing where a stripe's
// encoded weight bytes sit within EncodedWeights.Data.
type StripeMetadata struct {
	Offset uint32
	Size   uint32
}

// Buffer is the core data-holding value of spec §3.
type Buffer struct {
	Location Location
	Format   Format

	TensorShape tensor.Shape
	// StripeShape is meaningful only for Sram/PleInputSram buffers; Dram
	// buffers describe the whole tensor and StripeShape is the zero value.
	StripeShape     tensor.Shape
	TraversalOrder  TraversalOrder
	SizeBytes       uint32
	Quantization    tensor.Quantization

	ConstantData    []byte          // set when this buffer is a Constant
	EncodedWeights  *EncodedWeights // set when Format == Weight

	// DebugName is an optional human-readable label, surfaced in dumps only.
	DebugName string
}

// NumStripes returns how many stripes along each axis are needed to cover
// TensorShape given StripeShape, per-axis ceil division. Returns (1,1,1,1)
// for Dram buffers (whole-tensor layout, no stripes).
func (b Buffer) NumStripes() (n, h, w, c uint32) {
	if b.Location == Dram {
		return 1, 1, 1, 1
	}
	divCeil := func(total, stripe uint32) uint32 {
		if stripe == 0 {
			return 1
		}
		return (total + stripe - 1) / stripe
	}
	return divCeil(b.TensorShape.N, b.StripeShape.N),
		divCeil(b.TensorShape.H, b.StripeShape.H),
		divCeil(b.TensorShape.W, b.StripeShape.W),
		divCeil(b.TensorShape.C, b.StripeShape.C)
}

// Validate checks the structural invariants from spec §3:
//   - SRAM buffers must carry a non-zero stripe shape; DRAM buffers describe
//     the whole tensor.
//   - FCAF formats require every axis with more than one stripe to be a
//     whole multiple of the cell's corresponding dimension.
//   - NHWCB DRAM accesses must have height & width that are multiples of 16.
func (b Buffer) Validate(caps hwcaps.Capabilities) error {
	if b.Location != Dram {
		if b.StripeShape.H == 0 || b.StripeShape.W == 0 || b.StripeShape.C == 0 {
			return fmt.Errorf("buffer: SRAM buffer %q has zero stripe shape", b.DebugName)
		}
	}

	if b.Format.IsFCAF() {
		cell := caps.FCAFDeep
		if b.Format == FCAFWide {
			cell = caps.FCAFWide
		}
		_, nh, nw, nc := b.NumStripes()
		if nh > 1 && b.StripeShape.H%cell.Height != 0 {
			return fmt.Errorf("buffer: FCAF stripe height %d not a multiple of cell height %d", b.StripeShape.H, cell.Height)
		}
		if nw > 1 && b.StripeShape.W%cell.Width != 0 {
			return fmt.Errorf("buffer: FCAF stripe width %d not a multiple of cell width %d", b.StripeShape.W, cell.Width)
		}
		if nc > 1 && b.StripeShape.C%cell.Channels != 0 {
			return fmt.Errorf("buffer: FCAF stripe channels %d not a multiple of cell channels %d", b.StripeShape.C, cell.Channels)
		}
	}

	if b.Format == NHWCB && b.Location == Dram {
		if b.TensorShape.H%16 != 0 || b.TensorShape.W%16 != 0 {
			return fmt.Errorf("buffer: NHWCB DRAM access height/width must be multiples of 16, got %s", b.TensorShape)
		}
	}

	return nil
}

// IsCompressionFormatCompatibleWithStripeShape implements testable property
// 7 of spec §8: FCAF_DEEP/FCAF_WIDE are compatible with a given
// stripe/tensor pairing iff every axis with more than one stripe is a whole
// multiple of the cell's dimension on that axis.
func IsCompressionFormatCompatibleWithStripeShape(format Format, stripe, tensorShape tensor.Shape, caps hwcaps.Capabilities) bool {
	if !format.IsFCAF() {
		return false
	}
	cell := caps.FCAFDeep
	if format == FCAFWide {
		cell = caps.FCAFWide
	}

	divCeil := func(total, s uint32) uint32 {
		if s == 0 {
			return 1
		}
		return (total + s - 1) / s
	}
	check := func(total, s, cellDim uint32) bool {
		if divCeil(total, s) <= 1 {
			return true
		}
		return s%cellDim == 0
	}
	return check(tensorShape.H, stripe.H, cell.Height) &&
		check(tensorShape.W, stripe.W, cell.Width) &&
		check(tensorShape.C, stripe.C, cell.Channels)
}
