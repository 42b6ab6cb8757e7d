package materialize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/npu-compiler-core/pkg/buffer"
	"github.com/gpustack/npu-compiler-core/pkg/combiner"
	. "github.com/gpustack/npu-compiler-core/pkg/materialize"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/parts"
	"github.com/gpustack/npu-compiler-core/pkg/sramalloc"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
)

func dramBuffer(shape tensor.Shape) buffer.Buffer {
	return buffer.Buffer{Location: buffer.Dram, Format: buffer.NHWC, TensorShape: shape, SizeBytes: uint32(shape.NumElements())}
}

func TestMaterializeTwoPartChainWithEmptyGlue(t *testing.T) {
	shape := tensor.Shape{N: 1, H: 4, W: 4, C: 4}
	b := dramBuffer(shape)

	g0 := opgraph.New()
	out0 := g0.AddBuffer(b)
	plan0 := &opgraph.Plan{ID: 0, Graph: g0, InputMappings: map[opgraph.BufferID]opgraph.SlotID{}, OutputMappings: map[opgraph.BufferID]opgraph.SlotID{out0: 0}}
	part0 := &parts.Part{ID: 0, Plans: []*opgraph.Plan{plan0}, OutputSlots: []opgraph.SlotID{0}}

	g1 := opgraph.New()
	in1 := g1.AddBuffer(b)
	out1 := g1.AddBuffer(b)
	g1.AddOp(opgraph.Op{Kind: opgraph.KindDma, Inputs: []opgraph.BufferID{in1}, Output: out1})
	plan1 := &opgraph.Plan{ID: 0, Graph: g1, InputMappings: map[opgraph.BufferID]opgraph.SlotID{in1: 0}, OutputMappings: map[opgraph.BufferID]opgraph.SlotID{out1: 0}}
	part1 := &parts.Part{ID: 1, Plans: []*opgraph.Plan{plan1}, InputSlots: []opgraph.SlotID{0}, OutputSlots: []opgraph.SlotID{0}}

	gop := parts.New()
	gop.AddPart(part0)
	gop.AddPart(part1)
	gop.Connect(0, 0, 1, 0)

	edge, ok := gop.EdgeInto(1, 0)
	require.True(t, ok)

	c := combiner.Combination{
		Order: []parts.PartID{0, 1},
		Elements: map[parts.PartID]combiner.Element{
			0: {PartID: 0, PlanID: 0},
			1: {PartID: 1, PlanID: 0, IncomingGlue: []combiner.GlueChoice{{Edge: edge, Glue: nil}}},
		},
		Allocator: sramalloc.New(1024),
	}

	final, outputs := Materialize(gop, c)

	// The alias redirects part1's DMA to read part0's output buffer.
	// Aliasing rewires op inputs and removes no buffer slots, so all 3
	// buffers stay in final.Buffers (part0's output, part1's now-unread
	// input copy, part1's output).
	assert.GreaterOrEqual(t, len(final.Buffers), 2)
	require.Len(t, final.Ops, 1)
	assert.Equal(t, final.Ops[0].Inputs[0], outputs[0][0])
}
