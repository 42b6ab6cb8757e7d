package tensor

// Quantization is either a single (zero_point, scale) pair, or a per-channel
// set of scales sharing one nominated axis, per spec §3.
type Quantization struct {
	ZeroPoint int32
	Scale     float32

	// Scales holds the per-channel scales, used when IsPerChannel is set;
	// ZeroPoint still applies uniformly (only Scale varies per channel in
	// this format).
	Scales         []float32
	QuantizedAxis  uint32
	IsPerChannel   bool
}

// IsEquivalent reports whether two Quantizations are interchangeable for the
// purposes of plan-compatibility checking (spec §4.1.4: "Quantization info
// differences do not require glue; they are reinterpretations"). This
// equality check is used only for deciding whether two buffers describe the
// same bit pattern (redundant-copy elimination, §4.9), not for glue
// synthesis, which never inspects quantization at all.
func (q Quantization) IsEquivalent(o Quantization) bool {
	if q.IsPerChannel != o.IsPerChannel {
		return false
	}
	if !q.IsPerChannel {
		return q.ZeroPoint == o.ZeroPoint && q.Scale == o.Scale
	}
	if q.QuantizedAxis != o.QuantizedAxis || q.ZeroPoint != o.ZeroPoint {
		return false
	}
	if len(q.Scales) != len(o.Scales) {
		return false
	}
	for i := range q.Scales {
		if q.Scales[i] != o.Scales[i] {
			return false
		}
	}
	return true
}

// ScaleAt returns the effective scale for the given channel index.
func (q Quantization) ScaleAt(channel uint32) float32 {
	if !q.IsPerChannel {
		return q.Scale
	}
	if int(channel) >= len(q.Scales) {
		return q.Scale
	}
	return q.Scales[channel]
}
