package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/npu-compiler-core/pkg/buffer"
	. "github.com/gpustack/npu-compiler-core/pkg/codegen"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
)

func TestGenerateEmitsOneRecordPerOp(t *testing.T) {
	g := opgraph.New()
	in := g.AddBuffer(buffer.Buffer{})
	out := g.AddBuffer(buffer.Buffer{})
	g.AddOp(opgraph.Op{Kind: opgraph.KindDma, Inputs: []opgraph.BufferID{in}, Output: out})

	stream, err := Generate(g)
	require.NoError(t, err)
	assert.NotEmpty(t, stream)
}

func TestGenerateRejectsTooManyInputs(t *testing.T) {
	g := opgraph.New()
	var ins []opgraph.BufferID
	for i := 0; i < 5; i++ {
		ins = append(ins, g.AddBuffer(buffer.Buffer{}))
	}
	out := g.AddBuffer(buffer.Buffer{})
	g.AddOp(opgraph.Op{Kind: opgraph.KindPle, Inputs: ins, Output: out})

	_, err := Generate(g)
	assert.Error(t, err)
}
