package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/npu-compiler-core/pkg/buffer"
	"github.com/gpustack/npu-compiler-core/pkg/hwcaps"
	. "github.com/gpustack/npu-compiler-core/pkg/metadata"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/parts"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
)

func dramBuffer(shape tensor.Shape) buffer.Buffer {
	return buffer.Buffer{Location: buffer.Dram, Format: buffer.NHWC, TensorShape: shape, SizeBytes: uint32(shape.NumElements())}
}

func onePlanPart(id parts.PartID, name string, out buffer.Buffer, in *buffer.Buffer) *parts.Part {
	g := opgraph.New()
	plan := &opgraph.Plan{ID: 0, Graph: g, InputMappings: map[opgraph.BufferID]opgraph.SlotID{}, OutputMappings: map[opgraph.BufferID]opgraph.SlotID{}}

	var inSlots, outSlots []opgraph.SlotID
	if in != nil {
		b := g.AddBuffer(*in)
		plan.InputMappings[b] = 0
		inSlots = []opgraph.SlotID{0}
	}
	outBuf := g.AddBuffer(out)
	if in != nil {
		g.AddOp(opgraph.Op{Kind: opgraph.KindDma, Inputs: []opgraph.BufferID{0}, Output: outBuf})
	}
	plan.OutputMappings[outBuf] = 0
	outSlots = []opgraph.SlotID{0}

	return &parts.Part{ID: id, Name: name, Plans: []*opgraph.Plan{plan}, InputSlots: inSlots, OutputSlots: outSlots}
}

func TestBuildProducesEmptyGlueForIdenticalChain(t *testing.T) {
	shape := tensor.Shape{N: 1, H: 8, W: 8, C: 16}
	b := dramBuffer(shape)

	p0 := onePlanPart(0, "in", b, nil)
	p1 := onePlanPart(1, "out", b, &b)

	g := parts.New()
	g.AddPart(p0)
	g.AddPart(p1)
	g.Connect(0, 0, 1, 0)

	md, err := Build(g, hwcaps.Default())
	require.NoError(t, err)

	edges := md.Edges[0]
	require.Len(t, edges, 1)
	require.Len(t, edges[0].Triples, 1)
	assert.Nil(t, edges[0].Triples[0].Glue)
}

func TestBuildReturnsUnsupportedWhenNoPlanCompatible(t *testing.T) {
	shapeA := tensor.Shape{N: 1, H: 8, W: 8, C: 16}
	shapeB := tensor.Shape{N: 1, H: 9, W: 8, C: 16}
	bA := dramBuffer(shapeA)
	bB := dramBuffer(shapeB)

	p0 := onePlanPart(0, "in", bA, nil)
	p1 := onePlanPart(1, "out", bB, &bB)

	g := parts.New()
	g.AddPart(p0)
	g.AddPart(p1)
	g.Connect(0, 0, 1, 0)

	_, err := Build(g, hwcaps.Default())
	assert.Error(t, err)
}
