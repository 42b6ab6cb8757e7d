// Package numeric holds small generic numeric helpers shared by the
// allocator, weight encoder and metadata builder. It is the Go-generics
// analogue of the teacher's util/anyx and util/slicex number helpers.
package numeric

import "golang.org/x/exp/constraints"

// DivRoundUp returns ceil(a/b).
func DivRoundUp[T constraints.Integer](a, b T) T {
	if b == 0 {
		panic("numeric: DivRoundUp by zero")
	}
	return (a + b - 1) / b
}

// RoundUpToMultiple rounds a up to the nearest multiple of m (m > 0).
func RoundUpToMultiple[T constraints.Integer](a, m T) T {
	if m == 0 {
		panic("numeric: RoundUpToMultiple by zero")
	}
	return DivRoundUp(a, m) * m
}

// Clamp restricts v to the closed interval [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CeilLog2 returns ceil(log2(v)) for v >= 1, and 0 for v == 0.
func CeilLog2(v uint64) uint {
	if v <= 1 {
		return 0
	}
	n := uint(0)
	v--
	for v > 0 {
		v >>= 1
		n++
	}
	return n
}

// BitWidth returns the number of bits needed to represent maxVal (inclusive),
// clamped to be at least minBits. Mirrors WeightEncoder.cpp's CalcBitWidth.
func BitWidth(maxVal uint64, minBits uint) uint {
	w := CeilLog2(maxVal + 1)
	if w < minBits {
		return minBits
	}
	return w
}

// Max3 returns the maximum of three comparable values.
func Max3[T constraints.Ordered](a, b, c T) T {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}
