package compat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/npu-compiler-core/pkg/buffer"
	. "github.com/gpustack/npu-compiler-core/pkg/compat"
	"github.com/gpustack/npu-compiler-core/pkg/hwcaps"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
)

func dramBuffer(shape tensor.Shape) buffer.Buffer {
	return buffer.Buffer{
		Location:    buffer.Dram,
		Format:      buffer.NHWC,
		TensorShape: shape,
		SizeBytes:   uint32(shape.NumElements()),
	}
}

func TestCheckIdenticalBuffersAreEmptyGlue(t *testing.T) {
	b := dramBuffer(tensor.Shape{N: 1, H: 8, W: 8, C: 16})
	res := Check(b, b, Context{}, hwcaps.Default())
	assert.Equal(t, EmptyGlue, res.Kind)
	assert.Nil(t, res.Glue)
}

func TestCheckIncompatibleShapeRejected(t *testing.T) {
	src := dramBuffer(tensor.Shape{N: 1, H: 8, W: 8, C: 16})
	dst := dramBuffer(tensor.Shape{N: 1, H: 7, W: 8, C: 16})
	res := Check(src, dst, Context{}, hwcaps.Default())
	assert.Equal(t, Incompatible, res.Kind)
}

func TestCheckDramToSramSynthesizesSingleDma(t *testing.T) {
	src := dramBuffer(tensor.Shape{N: 1, H: 8, W: 8, C: 16})
	dst := buffer.Buffer{
		Location:    buffer.Sram,
		Format:      buffer.NHWCB,
		TensorShape: src.TensorShape,
		StripeShape: tensor.Shape{N: 1, H: 8, W: 8, C: 16},
		SizeBytes:   src.SizeBytes,
	}
	res := Check(src, dst, Context{}, hwcaps.Default())
	require.Equal(t, Synthesized, res.Kind)
	require.NotNil(t, res.Glue)
	assert.Len(t, res.Glue.Graph.Ops, 1)
}

func TestCheckSramToSramRoundTripsThroughDram(t *testing.T) {
	caps := hwcaps.Default()
	shape := tensor.Shape{N: 1, H: 16, W: 16, C: 32}
	stripe := tensor.Shape{N: 1, H: 8, W: 16, C: 16}
	src := buffer.Buffer{Location: buffer.Sram, Format: buffer.NHWCB, TensorShape: shape, StripeShape: stripe, SizeBytes: uint32(shape.NumElements())}
	dst := buffer.Buffer{Location: buffer.Sram, Format: buffer.NHWCB, TensorShape: shape, StripeShape: tensor.Shape{N: 1, H: 16, W: 16, C: 16}, SizeBytes: uint32(shape.NumElements())}

	res := Check(src, dst, Context{}, caps)
	require.Equal(t, Synthesized, res.Kind)
	assert.Len(t, res.Glue.Graph.Ops, 2, "round trip is DMA out, DMA back in")
	assert.Len(t, res.Glue.Graph.Buffers, 3)
}
