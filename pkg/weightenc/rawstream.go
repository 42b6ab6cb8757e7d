package weightenc

import (
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
)

// ConvertWeightSymbol implements spec §4.6.1's weight-symbol conversion:
// s = (|w|<<1) - (w<0), mapping a signed deviation w ∈ [-255, 255] from the
// weight zero point to an unsigned symbol s ∈ [0, 511].
func ConvertWeightSymbol(w int16) uint16 {
	abs := w
	if abs < 0 {
		abs = -abs
	}
	s := uint16(abs) << 1
	if w < 0 {
		s--
	}
	return s
}

// weightAt indexes req.Weights, which is stored flattened [H][W][I][O] (or
// [H][W][I][M] for HWIM), returning req.WeightZeroPoint when (h, w, i) is
// out of bounds — the zero-point padding rule every raw-stream variant in
// §4.6.1 uses for short/missing positions.
func weightAt(req *Request, h, wcol, i, o int) int16 {
	H, W, I := int(req.WeightsShape.H), int(req.WeightsShape.W), int(req.WeightsShape.C)
	O := int(req.NumOfms)
	if h < 0 || h >= H || wcol < 0 || wcol >= W || i < 0 || i >= I || o < 0 || o >= O {
		return int16(req.WeightZeroPoint)
	}
	idx := ((h*W+wcol)*I+i)*O + o
	if idx < 0 || idx >= len(req.Weights) {
		return int16(req.WeightZeroPoint)
	}
	return req.Weights[idx]
}

// wideSubfilterShapes decomposes a full H×W kernel into the 1×3, 3×1, or
// 3×3 "wide subfilter" tiles spec §4.6.1 names, in row-major tile order.
func wideSubfilterShapes(h, w uint32) []struct{ H, W, OffH, OffW uint32 } {
	const tile = 3
	var out []struct{ H, W, OffH, OffW uint32 }
	for oh := uint32(0); oh < h; oh += tile {
		th := tile
		if oh+uint32(th) > h {
			th = int(h - oh)
		}
		for ow := uint32(0); ow < w; ow += tile {
			tw := tile
			if ow+uint32(tw) > w {
				tw = int(w - ow)
			}
			out = append(out, struct{ H, W, OffH, OffW uint32 }{uint32(th), uint32(tw), oh, ow})
		}
	}
	return out
}

// BuildRawStreamDirect implements spec §4.6.1 bullet 2: HWIO + MCE
// convolution + Direct algorithm. For each wide subfilter, each slice of
// NumIGs IFMs, each strided "submap" position, emit H×W×numChannels bytes
// in row-major order; pad out-of-range positions with the weight zero
// point.
func BuildRawStreamDirect(req *Request, ofmIdx int) []uint16 {
	var symbols []uint16
	H, W := req.WeightsShape.H, req.WeightsShape.W
	I := int(req.WeightsShape.C)
	numIGs := int(req.NumIGs)
	if numIGs == 0 {
		numIGs = 1
	}
	sx, sy := int(req.Stride.X), int(req.Stride.Y)
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}

	for _, sub := range wideSubfilterShapes(H, W) {
		for ifmBase := 0; ifmBase < I; ifmBase += numIGs {
			for submapY := 0; submapY < sy; submapY++ {
				for submapX := 0; submapX < sx; submapX++ {
					for dh := uint32(0); dh < sub.H; dh += uint32(sy) {
						for dw := uint32(0); dw < sub.W; dw += uint32(sx) {
							h := int(sub.OffH+dh) + submapY
							w := int(sub.OffW+dw) + submapX
							for c := 0; c < numIGs; c++ {
								ifm := ifmBase + c
								w16 := weightAt(req, h, w, ifm, ofmIdx)
								symbols = append(symbols, ConvertWeightSymbol(w16))
							}
						}
					}
				}
			}
		}
	}
	return symbols
}

// BuildRawStreamWinograd implements spec §4.6.1 bullet 3: HWIO + Winograd
// (stride 1×1 only). Within each wide subfilter, per channel, per submap
// (exactly one, since stride is 1x1), emit H×W bytes.
func BuildRawStreamWinograd(req *Request, ofmIdx int) []uint16 {
	var symbols []uint16
	H, W := req.WeightsShape.H, req.WeightsShape.W
	I := int(req.WeightsShape.C)

	for _, sub := range wideSubfilterShapes(H, W) {
		for ifm := 0; ifm < I; ifm++ {
			for dh := uint32(0); dh < sub.H; dh++ {
				for dw := uint32(0); dw < sub.W; dw++ {
					w16 := weightAt(req, int(sub.OffH+dh), int(sub.OffW+dw), ifm, ofmIdx)
					symbols = append(symbols, ConvertWeightSymbol(w16))
				}
			}
		}
	}
	return symbols
}

// BuildRawStreamFullyConnected implements spec §4.6.1 bullet 4. Requires
// NumIFMs % 1024 == 0. Indices within each 1024-block are permuted by
// qbrickIdx = (qbrickIdx % 4) * numSubBricks + qbrickIdx / 4, where
// numSubBricks = 16 / NumSRAMs, mapping encoded index to raw index; an
// out-of-range mapped index falls back to zero-point padding.
func BuildRawStreamFullyConnected(req *Request, ofmIdx int) []uint16 {
	I := int(req.WeightsShape.C)
	numSrams := int(req.NumSrams)
	if numSrams == 0 {
		numSrams = 1
	}
	numSubBricks := 16 / numSrams
	if numSubBricks == 0 {
		numSubBricks = 1
	}

	blocks := I / 1024
	if I%1024 != 0 {
		// Invariant violated; the caller is expected to have validated this
		// (spec §4.6.1: "must hold"). Fall back to a single partial block
		// rather than panicking mid-encode.
		blocks = (I + 1023) / 1024
	}

	symbols := make([]uint16, 0, I)
	for block := 0; block < blocks; block++ {
		for encodedIdx := 0; encodedIdx < 1024; encodedIdx++ {
			rawIdx := (encodedIdx%4)*numSubBricks + encodedIdx/4
			ifm := block*1024 + rawIdx
			if ifm >= I {
				symbols = append(symbols, ConvertWeightSymbol(int16(req.WeightZeroPoint)))
				continue
			}
			w16 := weightAt(req, 0, 0, ifm, ofmIdx)
			symbols = append(symbols, ConvertWeightSymbol(w16))
		}
	}
	return symbols
}

// BuildRawStreamDepthwise implements spec §4.6.1 bullet 5 (HWIM). ofmIdx
// decomposes into (channelMultiplier, ifm); exactly NumIGs rows are emitted
// per filter coordinate, with only the one slice matching ifm populated —
// the hardware zero-fills the rest, so this emits the zero point for every
// other lane.
func BuildRawStreamDepthwise(req *Request, ofmIdx int) []uint16 {
	H, W := req.WeightsShape.H, req.WeightsShape.W
	I := int(req.WeightsShape.C)
	numIGs := int(req.NumIGs)
	if numIGs == 0 {
		numIGs = 1
	}

	ifm := ofmIdx % I
	sliceInGroup := ifm % numIGs

	var symbols []uint16
	for h := uint32(0); h < H; h++ {
		for w := uint32(0); w < W; w++ {
			for lane := 0; lane < numIGs; lane++ {
				if lane != sliceInGroup {
					symbols = append(symbols, ConvertWeightSymbol(int16(req.WeightZeroPoint)))
					continue
				}
				w16 := weightAt(req, int(h), int(w), ifm, ofmIdx)
				symbols = append(symbols, ConvertWeightSymbol(w16))
			}
		}
	}
	return symbols
}

// BuildRawStream dispatches to the variant named by req's Layout/Operation/
// Algorithm, per spec §4.6.1.
func BuildRawStream(req *Request, ofmIdx int) []uint16 {
	if req.Layout == tensor.HWIM {
		return BuildRawStreamDepthwise(req, ofmIdx)
	}
	switch {
	case req.Operation == opgraph.MceFullyConnected:
		return BuildRawStreamFullyConnected(req, ofmIdx)
	case req.Algorithm == opgraph.AlgoWinograd:
		return BuildRawStreamWinograd(req, ofmIdx)
	default:
		return BuildRawStreamDirect(req, ofmIdx)
	}
}
