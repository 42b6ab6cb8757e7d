package buffer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/gpustack/npu-compiler-core/pkg/buffer"
	"github.com/gpustack/npu-compiler-core/pkg/hwcaps"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
)

func TestIsCompressionFormatCompatibleWithStripeShape(t *testing.T) {
	caps := hwcaps.Default()

	testCases := []struct {
		name     string
		format   Format
		stripe   tensor.Shape
		tensor   tensor.Shape
		expected bool
	}{
		{"deep single stripe always ok", FCAFDeep, tensor.Shape{H: 3, W: 3, C: 5}, tensor.Shape{H: 3, W: 3, C: 5}, true},
		{"deep multi-stripe aligned", FCAFDeep, tensor.Shape{H: 8, W: 8, C: 32}, tensor.Shape{H: 16, W: 16, C: 64}, true},
		{"deep multi-stripe misaligned height", FCAFDeep, tensor.Shape{H: 5, W: 8, C: 32}, tensor.Shape{H: 16, W: 16, C: 64}, false},
		{"wide multi-stripe aligned", FCAFWide, tensor.Shape{H: 8, W: 16, C: 16}, tensor.Shape{H: 24, W: 32, C: 16}, true},
		{"wide multi-stripe misaligned channels", FCAFWide, tensor.Shape{H: 8, W: 16, C: 10}, tensor.Shape{H: 24, W: 32, C: 20}, false},
		{"not fcaf", NHWCB, tensor.Shape{H: 8, W: 8, C: 16}, tensor.Shape{H: 16, W: 16, C: 16}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsCompressionFormatCompatibleWithStripeShape(tc.format, tc.stripe, tc.tensor, caps)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestBufferValidateNHWCBDramAlignment(t *testing.T) {
	caps := hwcaps.Default()

	b := Buffer{
		Location:    Dram,
		Format:      NHWCB,
		TensorShape: tensor.Shape{N: 1, H: 15, W: 32, C: 16},
	}
	require.Error(t, b.Validate(caps))

	b.TensorShape.H = 16
	require.NoError(t, b.Validate(caps))
}

func TestBufferValidateSramRequiresStripeShape(t *testing.T) {
	caps := hwcaps.Default()
	b := Buffer{Location: Sram, Format: NHWC, TensorShape: tensor.Shape{N: 1, H: 8, W: 8, C: 16}}
	require.Error(t, b.Validate(caps))

	b.StripeShape = tensor.Shape{N: 1, H: 8, W: 8, C: 16}
	require.NoError(t, b.Validate(caps))
}
