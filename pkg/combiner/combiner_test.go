package combiner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/npu-compiler-core/pkg/buffer"
	. "github.com/gpustack/npu-compiler-core/pkg/combiner"
	"github.com/gpustack/npu-compiler-core/pkg/hwcaps"
	"github.com/gpustack/npu-compiler-core/pkg/metadata"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/parts"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
)

type constEstimator struct{ cost float64 }

func (c constEstimator) Estimate(Combination) float64 { return c.cost }

func dramBuffer(shape tensor.Shape) buffer.Buffer {
	return buffer.Buffer{Location: buffer.Dram, Format: buffer.NHWC, TensorShape: shape, SizeBytes: uint32(shape.NumElements())}
}

func onePlanTerminalPart(id parts.PartID, out buffer.Buffer, in *buffer.Buffer) *parts.Part {
	g := opgraph.New()
	plan := &opgraph.Plan{ID: 0, Graph: g, InputMappings: map[opgraph.BufferID]opgraph.SlotID{}, OutputMappings: map[opgraph.BufferID]opgraph.SlotID{}}
	if in != nil {
		b := g.AddBuffer(*in)
		plan.InputMappings[b] = 0
	}
	outBuf := g.AddBuffer(out)
	if in != nil {
		g.AddOp(opgraph.Op{Kind: opgraph.KindDma, Inputs: []opgraph.BufferID{0}, Output: outBuf})
	}
	plan.OutputMappings[outBuf] = 0
	return &parts.Part{ID: id, Plans: []*opgraph.Plan{plan}}
}

func TestSeedAndDriveTwoPartChain(t *testing.T) {
	shape := tensor.Shape{N: 1, H: 8, W: 8, C: 16}
	b := dramBuffer(shape)

	p0 := onePlanTerminalPart(0, b, nil)
	p1 := onePlanTerminalPart(1, b, &b)
	p0.OutputSlots = []opgraph.SlotID{0}
	p1.InputSlots = []opgraph.SlotID{0}

	g := parts.New()
	g.AddPart(p0)
	g.AddPart(p1)
	g.Connect(0, 0, 1, 0)

	md, err := metadata.Build(g, hwcaps.Default())
	require.NoError(t, err)

	seeds := Seed(g, md, 0, 1<<20)
	require.NotEmpty(t, seeds)

	result := Drive(g, md, seeds, constEstimator{cost: 1.0}, hwcaps.Default())
	require.NotEmpty(t, result)
	assert.Contains(t, result[0].Order, parts.PartID(0))
}
