// Package compat decides whether two plans can be joined directly across a
// graph-of-parts edge, and if not, synthesizes the glue (DMAs and temporary
// DRAM buffers) that makes them joinable (spec §4.1).
//
// Grounded on the teacher repository's layered "is this format convertible"
// checks (ggml.go's tensor-compatibility predicates generalized from dtype
// matching to buffer-layout matching) and on original_source/driver/
// support_library/src/Combiner.cpp's IsPlanOutputCompatibleWithPlanInput /
// GetGlue logic for the glue-synthesis rules themselves.
package compat

import (
	"github.com/gpustack/npu-compiler-core/pkg/buffer"
	"github.com/gpustack/npu-compiler-core/pkg/hwcaps"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
)

// Kind classifies the outcome of a compatibility check.
type Kind uint8

const (
	// Incompatible: no sequence of glue DMAs can join these buffers.
	Incompatible Kind = iota
	// EmptyGlue: the buffers already agree; no ops need to be inserted.
	EmptyGlue
	// Synthesized: a Glue op-graph was built to bridge the two buffers.
	Synthesized
)

// Result is the outcome of Check.
type Result struct {
	Kind Kind
	Glue *opgraph.Glue // nil unless Kind == Synthesized
}

// Context carries the producer/consumer op detail Check needs beyond the
// two buffers themselves, to evaluate the block-config rule of spec §4.1
// item 2. No MCE accumulator-depth rule is checked.
type Context struct {
	// ProducerMce is the MCE params of the op producing src, if src is an
	// MCE output; nil otherwise.
	ProducerMce *opgraph.MceParams
	// ConsumerPle is the PLE params of the op consuming dst, if dst feeds a
	// PLE op; nil otherwise.
	ConsumerPle *opgraph.PleParams
}

// Check evaluates spec §4.1 for one graph-of-parts edge. src is the
// producing plan's output buffer; dst is the consuming plan's input
// buffer.
func Check(src, dst buffer.Buffer, ctx Context, caps hwcaps.Capabilities) Result {
	if !shapesReconcilable(src, dst) {
		return Result{Kind: Incompatible}
	}

	if buffersEquivalent(src, dst) && blockConfigsCompatible(ctx) {
		return Result{Kind: EmptyGlue}
	}

	glue, ok := synthesizeGlue(src, dst, caps)
	if !ok {
		return Result{Kind: Incompatible}
	}
	return Result{Kind: Synthesized, Glue: glue}
}

// shapesReconcilable implements item 1: the only shape mismatches glue can
// paper over are whole-tensor reinterpretations with an equal element
// count (e.g. an NHWC <-> NHWC reshape that doesn't change element order).
func shapesReconcilable(src, dst buffer.Buffer) bool {
	if src.TensorShape.NumElements() == dst.TensorShape.NumElements() {
		return true
	}
	return src.TensorShape == dst.TensorShape
}

// buffersEquivalent implements item 2's location/format/stripe/traversal/
// size/stripe-count agreement check. Quantization differences and
// whole-tensor-equal-element-count shape changes are free reinterpretations
// (item 4) and do not affect equivalence.
func buffersEquivalent(src, dst buffer.Buffer) bool {
	if src.Location != dst.Location || src.Format != dst.Format {
		return false
	}
	if src.TraversalOrder != dst.TraversalOrder {
		return false
	}
	if src.SizeBytes != dst.SizeBytes {
		return false
	}
	sn, sh, sw, sc := src.NumStripes()
	dn, dh, dw, dc := dst.NumStripes()
	if sn != dn || sh != dh || sw != dw || sc != dc {
		return false
	}
	if src.Location != buffer.Dram && src.StripeShape != dst.StripeShape {
		return false
	}
	return true
}

// blockConfigsCompatible implements the remaining clause of item 2: a
// producer MCE and consumer PLE must agree on block config when both are
// present on this edge.
func blockConfigsCompatible(ctx Context) bool {
	if ctx.ProducerMce == nil || ctx.ConsumerPle == nil {
		return true
	}
	return ctx.ProducerMce.BlockConfig == ctx.ConsumerPle.BlockConfig
}

// maxDoubleBufferStripes is the "≤ 2 stripes" double-buffering ceiling an
// SRAM-side buffer must respect when a glue DMA writes into it (item 3).
const maxDoubleBufferStripes = 2

// synthesizeGlue implements item 3.
func synthesizeGlue(src, dst buffer.Buffer, caps hwcaps.Capabilities) (*opgraph.Glue, bool) {
	switch {
	case src.Location == buffer.Dram && dst.Location != buffer.Dram:
		if !withinDoubleBuffer(dst) {
			return nil, false
		}
		return singleDmaGlue(src, dst), true

	case src.Location != buffer.Dram && dst.Location == buffer.Dram:
		return singleDmaGlue(src, dst), true

	case src.Location != buffer.Dram && dst.Location != buffer.Dram:
		if !withinDoubleBuffer(dst) {
			return nil, false
		}
		dramFormat := strongestCompatibleFCAF(src, dst, caps)
		intermediate := buffer.Buffer{
			Location:    buffer.Dram,
			Format:      dramFormat,
			TensorShape: src.TensorShape,
			SizeBytes:   src.SizeBytes,
			Quantization: src.Quantization,
			DebugName:   "glue_dram_roundtrip",
		}
		return roundTripGlue(src, intermediate, dst), true

	default: // Dram -> Dram with non-equivalent buffers: one DMA reformats.
		return singleDmaGlue(src, dst), true
	}
}

func withinDoubleBuffer(b buffer.Buffer) bool {
	_, h, w, c := b.NumStripes()
	return h*w*c <= maxDoubleBufferStripes
}

// strongestCompatibleFCAF picks the strongest FCAF variant compatible with
// both sides' stripe shapes (intersection of admissible formats), falling
// back to NHWCB when neither FCAF variant fits both.
func strongestCompatibleFCAF(src, dst buffer.Buffer, caps hwcaps.Capabilities) buffer.Format {
	for _, f := range []buffer.Format{buffer.FCAFDeep, buffer.FCAFWide} {
		if buffer.IsCompressionFormatCompatibleWithStripeShape(f, src.StripeShape, src.TensorShape, caps) &&
			buffer.IsCompressionFormatCompatibleWithStripeShape(f, dst.StripeShape, dst.TensorShape, caps) {
			return f
		}
	}
	return buffer.NHWCB
}

// singleDmaGlue builds a one-op glue graph: a Dma op from a freshly-added
// input buffer (aliasing src) to a freshly-added output buffer (aliasing
// dst's target layout).
func singleDmaGlue(src, dst buffer.Buffer) *opgraph.Glue {
	g := opgraph.New()
	in := g.AddBuffer(src)
	out := g.AddBuffer(dst)
	opID := g.AddOp(opgraph.Op{Kind: opgraph.KindDma, Inputs: []opgraph.BufferID{in}, Output: out})
	return &opgraph.Glue{
		Graph:     g,
		InputSlot: struct {
			Op   opgraph.OpID
			Slot int
		}{Op: opID, Slot: 0},
		Output: opID,
	}
}

// roundTripGlue builds the two-DMA SRAM->DRAM->SRAM glue graph of item 3's
// second bullet.
func roundTripGlue(src, intermediate, dst buffer.Buffer) *opgraph.Glue {
	g := opgraph.New()
	in := g.AddBuffer(src)
	mid := g.AddBuffer(intermediate)
	out := g.AddBuffer(dst)

	outOp := g.AddOp(opgraph.Op{Kind: opgraph.KindDma, Inputs: []opgraph.BufferID{in}, Output: mid})
	inOp := g.AddOp(opgraph.Op{Kind: opgraph.KindDma, Inputs: []opgraph.BufferID{mid}, Output: out})

	return &opgraph.Glue{
		Graph:     g,
		InputSlot: struct {
			Op   opgraph.OpID
			Slot int
		}{Op: outOp, Slot: 0},
		Output: inOp,
	}
}
