package scalar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBytesScalar(t *testing.T) {
	testCases := []struct {
		given    string
		expected BytesScalar
	}{
		{"1", 1},
		{"1Ki", 1 * _Ki},
		{"1Mi", 1 * _Mi},
		{"1Gi", 1 * _Gi},
		{"1Ti", 1 * _Ti},
		{"1KiB", 1 * _Ki},
	}
	for _, tc := range testCases {
		t.Run(tc.given, func(t *testing.T) {
			actual, err := ParseBytesScalar(tc.given)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestBytesScalarString(t *testing.T) {
	assert.Equal(t, "0 B", BytesScalar(0).String())
	assert.Equal(t, "1 KiB", BytesScalar(_Ki).String())
	assert.Equal(t, "2 MiB", BytesScalar(2*_Mi).String())
}

func TestCyclesScalarString(t *testing.T) {
	assert.Equal(t, "0 cycles", CyclesScalar(0).String())
	assert.Equal(t, "1.50 Kcycles", CyclesScalar(1500).String())
}
