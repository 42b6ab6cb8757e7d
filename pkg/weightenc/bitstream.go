package weightenc

import "github.com/gpustack/npu-compiler-core/internal/bitio"

// WritePackedSymbols appends symbols to w using the encoding p selects:
// an optional zero-run-length (ZDiv) lane stripping runs of zero symbols
// out of band, followed by fixed-width palette indices or Golomb-Rice
// (unary quotient + k-bit remainder) for whatever remains, per spec
// §4.6.2.b/§4.6.3.
func WritePackedSymbols(w *bitio.Writer, symbols []uint16, p Params) {
	if p.ZDiv == 0 {
		writeCodedSymbols(w, symbols, p)
		return
	}

	coded := make([]uint16, 0, len(symbols))
	run := uint64(0)
	for _, s := range symbols {
		if s == 0 {
			run++
			continue
		}
		if run > 0 {
			writeZeroRun(w, run, p.ZDiv)
			run = 0
		}
		coded = append(coded, s)
	}
	if run > 0 {
		writeZeroRun(w, run, p.ZDiv)
	}

	writeCodedSymbols(w, coded, p)
}

// writeZeroRun Golomb-Rice codes one run of runLen consecutive zero symbols
// using zdiv-1 as the Rice parameter (spec §4.6.2.b's ZDivisor family,
// simplified here to a single fixed divisor per OFM rather than the
// original's per-stream cost search — see DESIGN.md).
func writeZeroRun(w *bitio.Writer, runLen uint64, zdiv uint8) {
	k := uint64(zdiv - 1)
	v := runLen - 1
	q := v >> k
	writeUnary(w, q)
	if k > 0 {
		w.WriteUint(v&((1<<k)-1), int(k))
	}
}

func writeCodedSymbols(w *bitio.Writer, symbols []uint16, p Params) {
	if p.UsePalette {
		idxBits := paletteIndexBits(len(p.PaletteSymbols))
		for _, s := range symbols {
			idx := paletteSymbolIndex(p.PaletteSymbols, s)
			w.WriteUint(uint64(idx), idxBits)
		}
		return
	}

	for _, s := range symbols {
		q := uint64(s) >> p.WDiv
		writeUnary(w, q)
		if p.WDiv > 0 {
			rem := uint64(s) & ((1 << p.WDiv) - 1)
			w.WriteUint(rem, int(p.WDiv))
		}
	}
}

// writeUnary appends q one-bits followed by a terminating zero bit — the
// Golomb-Rice quotient code (spec §4.6.3).
func writeUnary(w *bitio.Writer, q uint64) {
	for q >= 8 {
		w.WriteBits(0xFF, 8)
		q -= 8
	}
	for q > 0 {
		w.WriteBits(1, 1)
		q--
	}
	w.WriteBits(0, 1)
}

func paletteSymbolIndex(symbols []uint16, v uint16) int {
	for i, s := range symbols {
		if s == v {
			return i
		}
	}
	return 0
}

// InterleaveBackPressure reorders per-IG symbol streams into the
// back-pressure-aware order spec §4.6.3 describes: the hardware consumes
// one symbol per active input gain (IG) lane per cycle, so lanes that
// finish early must not block lanes that still have symbols queued. This
// round-robins across lanes, skipping lanes that have already drained.
func InterleaveBackPressure(lanes [][]uint16) []uint16 {
	var out []uint16
	idx := make([]int, len(lanes))
	for {
		progressed := false
		for l := range lanes {
			if idx[l] < len(lanes[l]) {
				out = append(out, lanes[l][idx[l]])
				idx[l]++
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return out
}
