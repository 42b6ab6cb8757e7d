package opgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/npu-compiler-core/pkg/buffer"
	. "github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
)

func simpleBuffer() buffer.Buffer {
	return buffer.Buffer{
		Location:    buffer.Dram,
		Format:      buffer.NHWC,
		TensorShape: tensor.Shape{N: 1, H: 16, W: 16, C: 16},
		SizeBytes:   16 * 16 * 16,
	}
}

func TestOpGraphProducerConsumer(t *testing.T) {
	g := New()
	in := g.AddBuffer(simpleBuffer())
	out := g.AddBuffer(simpleBuffer())

	opID := g.AddOp(Op{Kind: KindDma, Inputs: []BufferID{in}, Output: out})

	producer, ok := g.Producer(out)
	require.True(t, ok)
	assert.Equal(t, opID, producer)

	_, ok = g.Producer(in)
	assert.False(t, ok, "graph-level input must have no producer")

	consumers := g.Consumers(in)
	require.Len(t, consumers, 1)
	assert.Equal(t, opID, consumers[0].Op)
	assert.Equal(t, 0, consumers[0].Slot)

	assert.NoError(t, g.Validate())
}

func TestOpGraphMergeRemapsIDs(t *testing.T) {
	sub := New()
	a := sub.AddBuffer(simpleBuffer())
	b := sub.AddBuffer(simpleBuffer())
	sub.AddOp(Op{Kind: KindDma, Inputs: []BufferID{a}, Output: b})

	g := New()
	existing := g.AddBuffer(simpleBuffer())
	bufMap, opMap := g.Merge(sub)

	assert.Len(t, g.Buffers, 3) // existing + sub's two
	assert.Len(t, opMap, 1)
	assert.NotEqual(t, existing, bufMap[a])
	assert.NoError(t, g.Validate())
}

func TestPlanValidateRejectsMappedInputWithProducer(t *testing.T) {
	g := New()
	in := g.AddBuffer(simpleBuffer())
	out := g.AddBuffer(simpleBuffer())
	g.AddOp(Op{Kind: KindDma, Inputs: []BufferID{in}, Output: out})

	p := &Plan{
		DebugName:      "bad",
		Graph:          g,
		InputMappings:  map[BufferID]SlotID{out: 0}, // out has a producer: invalid
		OutputMappings: map[BufferID]SlotID{},
	}
	assert.Panics(t, func() { _ = p.Validate() })
}
