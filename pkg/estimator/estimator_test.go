package estimator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/npu-compiler-core/pkg/buffer"
	. "github.com/gpustack/npu-compiler-core/pkg/estimator"
	"github.com/gpustack/npu-compiler-core/pkg/hwcaps"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
)

func TestEstimateGraphSumsPerOpCycles(t *testing.T) {
	caps := hwcaps.Default()
	shape := tensor.Shape{N: 1, H: 8, W: 8, C: 16}
	b := buffer.Buffer{Location: buffer.Dram, Format: buffer.NHWC, TensorShape: shape, SizeBytes: uint32(shape.NumElements())}

	g := opgraph.New()
	in := g.AddBuffer(b)
	out := g.AddBuffer(b)
	g.AddOp(opgraph.Op{Kind: opgraph.KindDma, Inputs: []opgraph.BufferID{in}, Output: out})

	report := New(caps).EstimateGraph(g)
	require.Len(t, report.PerOp, 1)
	assert.Equal(t, report.PerOp[0].Cycles, report.TotalCycles)
	assert.Greater(t, report.TotalCycles, uint64(0))
}

func TestEstimateGraphEstimateOnlyContributesZeroCycles(t *testing.T) {
	caps := hwcaps.Default()
	g := opgraph.New()
	out := g.AddBuffer(buffer.Buffer{})
	g.AddOp(opgraph.Op{Kind: opgraph.KindEstimateOnly, EstimateOnlyReason: "unsupported padding", Output: out})

	report := New(caps).EstimateGraph(g)
	require.Len(t, report.PerOp, 1)
	assert.Equal(t, uint64(0), report.PerOp[0].Cycles)
	assert.Equal(t, "unsupported padding", report.PerOp[0].Reason)
	assert.Equal(t, uint64(0), report.TotalCycles)
}
