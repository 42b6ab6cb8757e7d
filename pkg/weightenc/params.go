package weightenc

import (
	"math/bits"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Params are the per-OFM compression parameters spec §4.6.2 searches for.
// They mirror WeightCompressionParams from the original support library:
// an optional palette lane, a zero-run-length (ZDiv) lane, and a Golomb-Rice
// lane (WDiv doubling as the Rice parameter k) for whatever isn't palette-
// coded.
type Params struct {
	UsePalette bool
	// Palette holds the header-ready sign-magnitude entries (spec §4.6.2.a,
	// §6): entry i is |w| | (sign << (PaletteBits+1)).
	Palette []uint16
	// PaletteSymbols holds the zigzag weight-symbol value each Palette entry
	// packs, in the same order, so WritePackedSymbols can look up an index
	// by the symbol it actually sees (ConvertWeightSymbol output), not by
	// the packed sign-magnitude representation written to the header.
	PaletteSymbols []uint16
	PaletteBits    uint8 // header field value; entry width is PaletteBits+2

	WDiv         uint8 // 3-bit Golomb-Rice divisor for non-palette weight symbols
	ZDiv         uint8 // 3-bit zero-run-length divisor; 0 disables the RLE lane
	Truncation   bool
	WeightOffset uint8
}

// maxPaletteSize is the largest palette the hardware accepts (spec §4.6.2.a).
const maxPaletteSize = 32

// SelectParams picks the cheapest encoding for symbols, per spec §4.6.2:
// first split off zero runs into the RLE lane if any zeros are present
// (§4.6.2.b, testable property 6: payload_length then counts only the
// remaining non-zero symbols), then choose a palette for the remainder if
// it packs smaller than the best Golomb-Rice code, else fall back to GRC.
func SelectParams(symbols []uint16) Params {
	zdiv, coded := selectZDiv(symbols)

	entries, packSymbols, paletteBits, paletteOK := buildPalette(coded)
	grc := bestGolombRiceCost(coded)

	if paletteOK {
		idxBits := calcBitWidth(uint32(len(entries)-1), 1)
		paletteBits64 := uint64(idxBits) * uint64(len(coded))
		if paletteBits64 < grc.bits {
			return Params{
				UsePalette:     true,
				Palette:        entries,
				PaletteSymbols: packSymbols,
				PaletteBits:    paletteBits,
				ZDiv:           zdiv,
			}
		}
	}

	return Params{WDiv: grc.k, ZDiv: zdiv}
}

// codedSymbolCount reports how many symbols WritePackedSymbols will palette-
// or Golomb-Rice-code for this ZDiv setting: every symbol when the RLE lane
// is disabled, or just the non-zero ones when it's enabled. This is the
// value the 17-bit payload_length header field carries (spec §6, testable
// property 6).
func codedSymbolCount(symbols []uint16, zdiv uint8) int {
	if zdiv == 0 {
		return len(symbols)
	}
	n := 0
	for _, s := range symbols {
		if s != 0 {
			n++
		}
	}
	return n
}

// selectZDiv splits symbols into the coded (non-zero) lane and reports the
// ZDiv field value: 0 when no zero symbols are present (RLE lane unused,
// spec §4.6.2.b names ZDivisor::RLE_DISABLED as that state), 1 (the
// simplest enabled divisor) whenever at least one is, deferring the
// original's per-engine run-length cost search (§6.8.6.3.x) as a documented
// simplification — see DESIGN.md.
func selectZDiv(symbols []uint16) (uint8, []uint16) {
	zeroCount := 0
	for _, s := range symbols {
		if s == 0 {
			zeroCount++
		}
	}
	if zeroCount == 0 {
		return 0, symbols
	}
	coded := make([]uint16, 0, len(symbols)-zeroCount)
	for _, s := range symbols {
		if s != 0 {
			coded = append(coded, s)
		}
	}
	return 1, coded
}

type symbolFreq struct {
	symbol uint16
	freq   int
}

// buildPalette implements spec §4.6.2.a/the original CreatePalette +
// FindPaletteParams: candidate entries are the symbols that repeat at
// least twice, sorted by frequency descending (ties broken by symbol value
// descending), clamped to [2,32] and force-zero-padded up to 2. A palette
// is only usable here when it covers every distinct symbol in the stream
// (every one repeats) — symbols that appear exactly once, needing a
// separate "weight offset" escape lane in the original encoder, fall back
// to Golomb-Rice instead; see DESIGN.md.
func buildPalette(symbols []uint16) (entries []uint16, packSymbols []uint16, paletteBits uint8, ok bool) {
	freq := make(map[uint16]int, len(symbols))
	for _, s := range symbols {
		freq[s]++
	}
	if len(freq) == 0 || len(freq) > maxPaletteSize {
		return nil, nil, 0, false
	}

	list := make([]symbolFreq, 0, len(freq))
	for s, f := range freq {
		list = append(list, symbolFreq{symbol: s, freq: f})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].freq != list[j].freq {
			return list[i].freq > list[j].freq
		}
		return list[i].symbol > list[j].symbol
	})

	candidateSize := 0
	for _, e := range list {
		if e.freq < 2 {
			break
		}
		candidateSize++
	}
	if candidateSize != len(list) {
		// Some symbol never repeats: this simplified encoder has no
		// out-of-palette escape lane, so skip the palette entirely.
		return nil, nil, 0, false
	}

	size := candidateSize
	if size < 2 {
		size = 2
	}

	maxMag := 0
	for i := 0; i < candidateSize; i++ {
		mag := absWeight(symbolToWeight(list[i].symbol))
		if mag > maxMag {
			maxMag = mag
		}
	}
	bitWidth := calcBitWidth(uint32(maxMag), 2)
	if maxMag > 1 {
		bitWidth++
	}
	signBitPos := bitWidth - 1

	entries = make([]uint16, size)
	packSymbols = make([]uint16, size)
	for i := 0; i < candidateSize; i++ {
		w := symbolToWeight(list[i].symbol)
		mag := uint16(absWeight(w))
		signMag := mag
		if w < 0 {
			signMag |= 1 << uint(signBitPos)
		}
		entries[i] = signMag
		packSymbols[i] = list[i].symbol
	}
	// When padded, entries[candidateSize] and packSymbols[candidateSize]
	// stay zero: a palette must have at least 2 entries (spec §6), so a
	// single-value alphabet is padded with an unused zero entry.

	return entries, packSymbols, uint8(bitWidth - 2), true
}

// symbolToWeight inverts ConvertWeightSymbol's zigzag mapping.
func symbolToWeight(symbol uint16) int {
	sign := symbol & 1
	mag := (symbol + 1) >> 1
	if sign != 0 {
		return -int(mag)
	}
	return int(mag)
}

func absWeight(w int) int {
	if w < 0 {
		return -w
	}
	return w
}

// calcBitWidth mirrors the original support library's CalcBitWidth: the
// smallest bitwidth >= minWidth such that 2^bitwidth > value.
func calcBitWidth(value uint32, minWidth uint8) uint8 {
	bw := minWidth
	for (uint64(1) << bw) <= uint64(value) {
		bw++
	}
	return bw
}

// paletteIndexBits is the number of bits needed to index a palette of size n.
func paletteIndexBits(n int) int {
	if n <= 1 {
		return 1
	}
	return bits.Len(uint(n - 1))
}

type grcCost struct {
	k    uint8
	bits uint64
}

// bestGolombRiceCost searches k in [0,7] (spec §6's 3-bit wdiv field, which
// doubles as the Rice parameter when no palette is used) for the value
// minimizing total encoded bit length. The search is centered on
// meanGolombRiceK, the Rice parameter an ideal geometric-source estimate
// would pick for the stream's mean magnitude, so the exhaustive scan below
// only needs to explore a narrow window around it rather than the full
// range on every call.
func bestGolombRiceCost(symbols []uint16) grcCost {
	lo, hi := uint8(0), uint8(7)
	if center := meanGolombRiceK(symbols); center > 3 {
		if center-3 > lo {
			lo = center - 3
		}
		if center+3 < hi {
			hi = center + 3
		}
	}

	best := grcCost{k: 0, bits: ^uint64(0)}
	for k := lo; k <= hi; k++ {
		total := golombRiceTotalBits(symbols, k)
		if total < best.bits {
			best = grcCost{k: k, bits: total}
		}
	}
	return best
}

// meanGolombRiceK estimates a good starting Rice parameter from the
// stream's mean symbol magnitude (k = bits.Len(floor(mean)), that is
// floor(log2(mean))+1, capped at 7; a variant of the standard Golomb-Rice
// sizing rule for a geometrically-distributed source), using gonum/stat's
// Mean over the symbol population rather than a hand-rolled accumulator.
func meanGolombRiceK(symbols []uint16) uint8 {
	if len(symbols) == 0 {
		return 0
	}
	xs := make([]float64, len(symbols))
	for i, s := range symbols {
		xs[i] = float64(s)
	}
	mean := stat.Mean(xs, nil)
	if mean < 1 {
		return 0
	}
	k := uint8(bits.Len(uint(mean)))
	if k > 7 {
		k = 7
	}
	return k
}

// golombRiceTotalBits sums, over symbols, the unary-quotient-plus-k-bit-
// remainder code length for Rice parameter k.
func golombRiceTotalBits(symbols []uint16, k uint8) uint64 {
	var total uint64
	for _, s := range symbols {
		q := uint64(s) >> k
		total += q + 1 + uint64(k)
	}
	return total
}
