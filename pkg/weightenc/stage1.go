package weightenc

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/gpustack/npu-compiler-core/internal/bitio"
)

// stripeAlignmentBytes is the byte alignment each per-OFM stream is padded
// to, so stage 2 can address stripes independently (spec §4.6.4).
const stripeAlignmentBytes = 16

// defaultBiasBytes is used when a Request doesn't specify BiasBytes: the
// 32-bit encoding (spec §4.6.4 names {4,5}; int32-keyed weight tensors use
// 4, 8-bit-quantized ones use 5 for the extra per-OFM headroom bit).
const defaultBiasBytes = 4

// EncodeOfm runs spec §4.6's stage 1 for a single OFM index: build the raw
// stream (§4.6.1), select compression parameters (§4.6.2), then write the
// length placeholder, OFM bias, OFM reload block, payload-length
// placeholder, compression-parameter block, and packed symbol payload
// (§4.6.2.b/§4.6.3/§6), padded to stripeAlignmentBytes. The 16-bit length
// field itself is left at zero: stage 2 (weightenc.go's regroupStripes)
// patches it once the final 16-byte-aligned stream length is known.
func EncodeOfm(req *Request, ofmIdx int) EncodedStream {
	raw := BuildRawStream(req, ofmIdx)
	params := SelectParams(raw)

	w := bitio.NewWriter(len(raw) * 9)

	lengthOffset := ReserveLengthField(w)

	biasBytes := req.BiasBytes
	if biasBytes == 0 {
		biasBytes = defaultBiasBytes
	}
	var bias int32
	if ofmIdx < len(req.Biases) {
		bias = req.Biases[ofmIdx]
	}
	WriteOfmBias(w, bias, biasBytes)

	reload := ofmIdx < len(req.OfmReload) && req.OfmReload[ofmIdx]
	var scale uint16
	var shift uint8
	var zp int8
	if reload {
		if ofmIdx < len(req.OfmScale) {
			scale = req.OfmScale[ofmIdx]
		}
		if ofmIdx < len(req.OfmShift) {
			shift = req.OfmShift[ofmIdx]
		}
		if ofmIdx < len(req.OfmZeroPoint) {
			zp = req.OfmZeroPoint[ofmIdx]
		}
	}
	WriteOfmHeader(w, reload, scale, shift, zp)

	payloadLengthOffset := ReservePayloadLengthField(w)
	WriteCompressionParams(w, params)

	WritePackedSymbols(w, raw, params)
	w.PadToAlignmentBytes(stripeAlignmentBytes)

	w.PatchUint(payloadLengthOffset, uint64(codedSymbolCount(raw, params.ZDiv)), payloadLengthBits)

	data := make([]byte, len(w.Bytes()))
	copy(data, w.Bytes())

	return EncodedStream{Data: data, LengthOffset: lengthOffset}
}

// EncodeAllOfms runs stage 1 for every output feature map named by
// req.NumOfms, one errgroup goroutine per OFM index (not one per OG):
// every worker reads only req (immutable) and writes to its own index of
// the result slice, so no locking is needed.
func EncodeAllOfms(req *Request) []EncodedStream {
	out := make([]EncodedStream, req.NumOfms)

	g, _ := errgroup.WithContext(context.Background())
	for i := range out {
		i := i
		g.Go(func() error {
			out[i] = EncodeOfm(req, i)
			return nil
		})
	}
	_ = g.Wait() // EncodeOfm never errors; Wait only joins the workers.

	return out
}
