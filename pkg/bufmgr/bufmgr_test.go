package bufmgr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/gpustack/npu-compiler-core/pkg/bufmgr"
)

func TestAllocateBumpAllocatesInputsAndOutputsAligned(t *testing.T) {
	res := Allocate([]Request{
		{ID: 1, Kind: KindInput, Size: 10},
		{ID: 2, Kind: KindInput, Size: 10},
		{ID: 3, Kind: KindOutput, Size: 200},
	})

	require.Len(t, res.Inputs, 2)
	assert.Equal(t, uint32(0), res.Inputs[0].Offset)
	assert.Equal(t, uint32(64), res.Inputs[1].Offset, "second input starts at next 64-byte boundary")

	require.Len(t, res.Outputs, 1)
	assert.Equal(t, uint32(0), res.Outputs[0].Offset)
	assert.Equal(t, uint32(200), res.OutputsTotalSize)
}

func TestAllocateConstantsSplitIntoTwoBlobs(t *testing.T) {
	res := Allocate([]Request{
		{ID: 1, Kind: KindConstantDma, Size: 100},
		{ID: 2, Kind: KindConstantControlUnit, Size: 50},
		{ID: 3, Kind: KindConstantDma, Size: 30},
	})

	require.Len(t, res.ConstantDma, 2)
	require.Len(t, res.ConstantControlUnit, 1)
	assert.Equal(t, uint32(0), res.ConstantDma[0].Offset)
	assert.Equal(t, uint32(128), res.ConstantDma[1].Offset)
}

func TestAllocateIntermediatesUseFirstFit(t *testing.T) {
	res := Allocate([]Request{
		{ID: 1, Kind: KindIntermediate, Size: 10, Start: 0, End: 1},
		{ID: 2, Kind: KindIntermediate, Size: 10, Start: 1, End: 2},
	})

	require.Len(t, res.Intermediates, 2)
	// Non-overlapping lifetimes reuse the same region.
	assert.Equal(t, res.Intermediates[0].Offset, res.Intermediates[1].Offset)
}
