package optimize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/npu-compiler-core/pkg/buffer"
	. "github.com/gpustack/npu-compiler-core/pkg/optimize"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
)

func TestEliminateRedundantCopiesRemovesNoOpDma(t *testing.T) {
	shape := tensor.Shape{N: 1, H: 4, W: 4, C: 4}
	b := buffer.Buffer{Location: buffer.Dram, Format: buffer.NHWC, TensorShape: shape, SizeBytes: uint32(shape.NumElements())}

	g := opgraph.New()
	in := g.AddBuffer(b)
	mid := g.AddBuffer(b)
	out := g.AddBuffer(b)

	g.AddOp(opgraph.Op{Kind: opgraph.KindDma, Inputs: []opgraph.BufferID{in}, Output: mid})
	consumerOp := g.AddOp(opgraph.Op{Kind: opgraph.KindDma, Inputs: []opgraph.BufferID{mid}, Output: out})

	removed := EliminateRedundantCopies(g)
	assert.Equal(t, 2, removed)
	require.Empty(t, g.Ops)
	_ = consumerOp
}

func TestEliminateRedundantCopiesKeepsFormatChangingDma(t *testing.T) {
	shape := tensor.Shape{N: 1, H: 4, W: 4, C: 4}
	a := buffer.Buffer{Location: buffer.Dram, Format: buffer.NHWC, TensorShape: shape, SizeBytes: uint32(shape.NumElements())}
	b := a
	b.Format = buffer.NHWCB

	g := opgraph.New()
	in := g.AddBuffer(a)
	out := g.AddBuffer(b)
	g.AddOp(opgraph.Op{Kind: opgraph.KindDma, Inputs: []opgraph.BufferID{in}, Output: out})

	removed := EliminateRedundantCopies(g)
	assert.Equal(t, 0, removed)
	require.Len(t, g.Ops, 1)
}
