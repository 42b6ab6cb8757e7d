// Package scalar provides human-readable, unit-suffixed scalar types for
// reporting byte sizes and cycle counts, in the spirit of the teacher's
// SizeScalar/FLOPSScalar family (scalar.go): a typed uint64 with a String()
// method that picks the largest binary unit that keeps the value >= 1.
package scalar

import (
	"errors"
	"strconv"
	"strings"
)

const (
	_Ki = 1 << ((iota + 1) * 10)
	_Mi
	_Gi
	_Ti
)

var _BinaryUnitMatrix = []struct {
	Base float64
	Unit string
}{
	{_Ti, "Ti"},
	{_Gi, "Gi"},
	{_Mi, "Mi"},
	{_Ki, "Ki"},
}

// BytesScalar is a byte count with a human-readable String().
type BytesScalar uint64

// ParseBytesScalar parses strings like "512Ki", "4Mi", "128" (bytes).
func ParseBytesScalar(s string) (BytesScalar, error) {
	if s == "" {
		return 0, errors.New("invalid BytesScalar")
	}
	s = strings.TrimSuffix(s, "B")
	b := float64(1)
	for i := range _BinaryUnitMatrix {
		if strings.HasSuffix(s, _BinaryUnitMatrix[i].Unit) {
			b = _BinaryUnitMatrix[i].Base
			s = strings.TrimSuffix(s, _BinaryUnitMatrix[i].Unit)
			break
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return BytesScalar(f * b), nil
}

func (s BytesScalar) String() string {
	if s == 0 {
		return "0 B"
	}
	b, u := float64(1), ""
	for i := range _BinaryUnitMatrix {
		if float64(s) >= _BinaryUnitMatrix[i].Base {
			b = _BinaryUnitMatrix[i].Base
			u = _BinaryUnitMatrix[i].Unit
			break
		}
	}
	f := strconv.FormatFloat(float64(s)/b, 'f', 2, 64)
	return strings.TrimSuffix(f, ".00") + " " + u + "B"
}

// CyclesScalar is an estimated hardware cycle count.
type CyclesScalar uint64

func (s CyclesScalar) String() string {
	if s == 0 {
		return "0 cycles"
	}
	const (
		k = 1e3
		m = 1e6
		g = 1e9
	)
	b, u := float64(1), ""
	switch {
	case float64(s) >= g:
		b, u = g, "G"
	case float64(s) >= m:
		b, u = m, "M"
	case float64(s) >= k:
		b, u = k, "K"
	}
	f := strconv.FormatFloat(float64(s)/b, 'f', 2, 64)
	return strings.TrimSuffix(f, ".00") + " " + u + "cycles"
}
