// Package weightenc implements the two-stage weight encoder of spec §4.6:
// per-OFM raw stream selection, compression-parameter search, Golomb-Rice
// symbol packing, and header writing in stage 1; stripe regrouping,
// round-robin SRAM interleaving, and length-header patching in stage 2.
//
// Grounded throughout on original_source/driver/support_library/src/
// WeightEncoder.cpp and WeightEncoderCache.cpp. The Arc-like shared
// weight-blob ownership and identical-request de-duplication called for in
// spec §5 is implemented by Cache, adapted from the teacher's
// content-hashing cache.go (FNV/SHA helpers in util/stringx) keyed on a
// structural hash of the Request instead of a model-file digest.
package weightenc

import (
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
)

// Request is WeightEncodingRequest from spec §4.6: everything the encoder
// needs to produce one weight stream for one MCE op.
type Request struct {
	// Weights are raw signed deviations from WeightZeroPoint, in HWIO or
	// HWIM storage order matching Layout, flattened [H][W][I][O].
	Weights         []int16
	WeightsShape    tensor.Shape // N unused; H,W,C=IFMs,... O folded via Layout
	NumOfms         uint32
	Layout          tensor.WeightLayout
	Operation       opgraph.MceOperation
	Algorithm       opgraph.MceAlgorithm
	Stride          opgraph.Stride
	WeightZeroPoint int32

	// Biases are per-OFM bias values; BiasBytes selects the 32-bit (I32
	// weights) vs 40-bit (U8/I8 weights) encoding (spec §4.6.4).
	Biases    []int32
	BiasBytes int

	// OfmReload, when true for an OFM, causes Scale/Shift/ZeroPoint to be
	// written in the OFM header (spec §4.6.4).
	OfmReload    []bool
	OfmScale     []uint16
	OfmShift     []uint8
	OfmZeroPoint []int8

	NumIGs       uint32
	NumOGs       uint32
	NumSrams     uint32
	NumEngines   uint32
	StripeDepthOfm uint32 // OFMs per stripe-OG group (num_iterations_ofm * stripe_depth)
	NumIterationsOfm uint32
	NumOfmInParallel uint32
}

// EncodedStream is one OFM-iteration's stage-1 output: a header-prefixed,
// 16-byte-padded bitstream plus the byte offset of its 16-bit length
// placeholder so stage 2 can patch it.
type EncodedStream struct {
	Data         []byte
	LengthOffset int // byte offset of the 16-bit length placeholder
}
