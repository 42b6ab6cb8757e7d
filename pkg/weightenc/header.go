package weightenc

import "github.com/gpustack/npu-compiler-core/internal/bitio"

// Bit widths for the weight stream header fields, per spec §6 and grounded
// on the original support library's WriteWeightHeader/WritePayloadHeader:
//
//	[16b length][bias][1b ofm_reload]{16b scale, 6b shift, 8b zero_point}
//	[17b payload_length][1b reload_compression_params]
//	  {3b zdiv, 3b wdiv, 1b truncation, 5b weight_offset, 1b palette_reload
//	    {5b palette_size-1, 3b palette_bits, palette_size*(palette_bits+2)b entries}}
const (
	lengthBits = 16 // stream length, in 16-byte words (patched in stage 2)

	reloadBits    = 1
	scaleBits     = 16
	shiftBits     = 6
	zeroPointBits = 8

	payloadLengthBits = 17
	reloadParamsBits  = 1

	zdivBits         = 3
	wdivBits         = 3
	truncationBits   = 1
	weightOffsetBits = 5
	paletteReloadBit = 1

	paletteSizeBits = 5 // encodes palette_size - 1
	paletteBitsBits = 3
)

// ReserveLengthField writes a zero 16-bit placeholder for the stream's
// length-in-16-byte-words field and returns its byte offset. Stage 2
// (weightenc.go's regroupStripes) patches the real value in once the
// 16-byte-aligned stream length is known — see the comment there for why
// the patch happens there and not in stage 1.
func ReserveLengthField(w *bitio.Writer) int {
	w.PadToByteBoundary()
	offset := w.Offset() / 8
	w.WriteUint(0, lengthBits)
	return offset
}

// WriteOfmBias writes the OFM bias field immediately following the length
// field (spec §4.6.4/§6): biasBytes*8 bits, biasBytes in {4,5} selecting
// the 32-bit (I32 weights) vs 40-bit (U8/I8 weights) encoding. Grounded on
// the original's GetOfmBiasSize + WriteWeightHeader, which writes the bias
// unconditionally (it is not gated by ofm_reload).
func WriteOfmBias(w *bitio.Writer, bias int32, biasBytes int) {
	w.WriteUint(uint64(uint32(bias)), biasBytes*8)
}

// WriteOfmHeader writes the ofm_reload bit and, when set, the OFM's
// scale/shift/zero-point fields (spec §4.6.4/§6). Unlike the bias field,
// reload is conditional: only reloaded OFMs (typically the first OFM of
// each per-channel-quantization group) carry scale/shift/zp.
func WriteOfmHeader(w *bitio.Writer, reload bool, scale uint16, shift uint8, zeroPoint int8) {
	if !reload {
		w.WriteBits(0, reloadBits)
		return
	}
	w.WriteBits(1, reloadBits)
	w.WriteUint(uint64(scale), scaleBits)
	w.WriteUint(uint64(shift), shiftBits)
	w.WriteUint(uint64(uint8(zeroPoint)), zeroPointBits)
}

// ReservePayloadLengthField writes a zero 17-bit placeholder for the
// payload's packed symbol count and returns its bit offset, so the caller
// can patch it with bitio.Writer.PatchUint once the actual count (the
// post-zero-run-removal count, when the ZDiv lane is active) is known.
func ReservePayloadLengthField(w *bitio.Writer) int {
	offset := w.Offset()
	w.WriteUint(0, payloadLengthBits)
	return offset
}

// WriteCompressionParams writes the reload_compression_params block (spec
// §6): zdiv/wdiv/truncation/weight_offset/palette_reload, and the palette
// header+entries when palette_reload is set.
//
// reload_compression_params is always written as 1: the original format
// lets an OFM omit this whole block and reuse the previous OFM's
// parameters, but stage 1 here encodes every OFM independently and
// concurrently (EncodeAllOfms, via errgroup), so there is no previous-OFM
// state available to elide a reload against. Always reloading keeps every
// OFM's stream self-describing and safe to encode out of order — see
// DESIGN.md for the tradeoff.
func WriteCompressionParams(w *bitio.Writer, p Params) {
	w.WriteBits(1, reloadParamsBits)

	w.WriteUint(uint64(p.ZDiv), zdivBits)
	w.WriteUint(uint64(p.WDiv), wdivBits)
	if p.Truncation {
		w.WriteBits(1, truncationBits)
	} else {
		w.WriteBits(0, truncationBits)
	}
	w.WriteUint(uint64(p.WeightOffset), weightOffsetBits)

	if !p.UsePalette {
		w.WriteBits(0, paletteReloadBit)
		return
	}
	w.WriteBits(1, paletteReloadBit)

	w.WriteUint(uint64(len(p.Palette)-1), paletteSizeBits)
	w.WriteUint(uint64(p.PaletteBits), paletteBitsBits)
	entryBits := int(p.PaletteBits) + 2
	for _, v := range p.Palette {
		w.WriteUint(uint64(v), entryBits)
	}
}
