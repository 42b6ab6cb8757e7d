package weightenc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/tensor"
	. "github.com/gpustack/npu-compiler-core/pkg/weightenc"
)

func directRequest() *Request {
	shape := tensor.Shape{H: 3, W: 3, C: 2}
	weights := make([]int16, shape.H*shape.W*shape.C*2)
	for i := range weights {
		weights[i] = int16(i%7) - 3
	}
	return &Request{
		Weights:          weights,
		WeightsShape:     shape,
		NumOfms:          2,
		Layout:           tensor.HWIO,
		Operation:        opgraph.MceConvolution,
		Algorithm:        opgraph.AlgoDirect,
		Stride:           opgraph.Stride{X: 1, Y: 1},
		NumIGs:           1,
		NumOGs:           1,
		NumSrams:         1,
		StripeDepthOfm:   2,
		NumIterationsOfm: 1,
		NumOfmInParallel: 1,
	}
}

func TestConvertWeightSymbolRoundTrips(t *testing.T) {
	assert.Equal(t, uint16(0), ConvertWeightSymbol(0))
	assert.Equal(t, uint16(1), ConvertWeightSymbol(-1))
	assert.Equal(t, uint16(2), ConvertWeightSymbol(1))
	assert.Equal(t, uint16(3), ConvertWeightSymbol(-2))
}

func TestBuildRawStreamDirectProducesExpectedLength(t *testing.T) {
	req := directRequest()
	stream := BuildRawStream(req, 0)
	assert.Equal(t, int(req.WeightsShape.H*req.WeightsShape.W*req.WeightsShape.C), len(stream))
}

func TestSelectParamsUsesPaletteForFewDistinctSymbols(t *testing.T) {
	symbols := make([]uint16, 100)
	for i := range symbols {
		symbols[i] = uint16(i % 2)
	}
	p := SelectParams(symbols)
	assert.True(t, p.UsePalette)
	assert.LessOrEqual(t, len(p.Palette), 2)
}

func TestSelectParamsFallsBackToGolombRiceForWideDistribution(t *testing.T) {
	symbols := make([]uint16, 64)
	for i := range symbols {
		symbols[i] = uint16(i) * 7
	}
	p := SelectParams(symbols)
	assert.False(t, p.UsePalette)
}

func TestEncodeOfmProducesAlignedStream(t *testing.T) {
	req := directRequest()
	enc := EncodeOfm(req, 0)
	assert.Equal(t, 0, len(enc.Data)%16)
	require.GreaterOrEqual(t, len(enc.Data), enc.LengthOffset+2)
}

func TestEncodeProducesNonEmptyStripedOutput(t *testing.T) {
	req := directRequest()
	out := Encode(req)
	assert.NotEmpty(t, out)
	assert.Equal(t, 0, len(out)%16)
}

func TestCacheReturnsSameBytesForIdenticalRequest(t *testing.T) {
	c := NewCache()
	req := directRequest()
	a := c.GetOrEncode(req)
	b := c.GetOrEncode(req)
	assert.Equal(t, a, b)
}
