// Package opgraph implements the internal op-graph data model: the tagged
// Op variant, OpGraph container, Plan and Glue, per spec §3 and the
// "dynamic dispatch across Op variants" design note (§9), which calls for a
// tagged enum rather than a class hierarchy.
package opgraph

import "github.com/gpustack/npu-compiler-core/pkg/tensor"

// OperationID is an opaque identifier supplied by the front-end, propagated
// into perf reports untouched.
type OperationID uint64

// Header is the data shared by every Op kind (spec §3: "share only the
// operation_ids field, which lives in a common header").
type Header struct {
	OperationIDs []OperationID
}

// Kind discriminates the Op tagged union.
type Kind uint8

const (
	KindDma Kind = iota
	KindMce
	KindPle
	KindEstimateOnly
)

func (k Kind) String() string {
	switch k {
	case KindDma:
		return "Dma"
	case KindMce:
		return "Mce"
	case KindPle:
		return "Ple"
	case KindEstimateOnly:
		return "EstimateOnly"
	default:
		return "unknown"
	}
}

// MceOperation names the convolution-family operation an MCE op performs.
type MceOperation uint8

const (
	MceConvolution MceOperation = iota
	MceDepthwiseConvolution
	MceFullyConnected
)

// MceAlgorithm names the MAC-array decomposition strategy.
type MceAlgorithm uint8

const (
	AlgoDirect MceAlgorithm = iota
	AlgoWinograd
)

// BlockConfig is the MCE/PLE block shape negotiated between a producing MCE
// and a consuming PLE (spec §4.1.2: "any block-config constraint between a
// producer MCE and a consumer PLE matches").
type BlockConfig struct {
	Width  uint32
	Height uint32
}

// Stride is the (x, y) convolution stride.
type Stride struct{ X, Y uint32 }

// Padding is symmetric-or-asymmetric zero-padding around the input.
type Padding struct{ Top, Bottom, Left, Right uint32 }

// MceParams holds the fields specific to a Mce op.
type MceParams struct {
	Operation   MceOperation
	Algorithm   MceAlgorithm
	BlockConfig BlockConfig
	Stride      Stride
	Padding     Padding
	WeightsShape tensor.Shape
}

// PleOperation names a PLE kernel.
type PleOperation uint8

const (
	PleAddition PleOperation = iota
	PlePooling
	PleSigmoid
	PleRelu
	PleLeakyRelu
	PleSoftmax
	PleRequantize
	PleDepthToSpace
	PleSpaceToDepth
	PleTranspose
	PlePassthrough
)

// PleParams holds the fields specific to a Ple op.
type PleParams struct {
	Operation   PleOperation
	BlockConfig BlockConfig
}

// Op is the tagged union over the four op kinds. Exactly the fields implied
// by Kind are meaningful; this mirrors the C++ union via a single struct
// with a discriminant rather than modeling interfaces per kind, since every
// op kind's payload is a small flat value with no behavior of its own.
type Op struct {
	Header

	Kind Kind

	Mce MceParams
	Ple PleParams

	// EstimateOnlyReason is a human-readable explanation surfaced in the
	// perf report for ops that could not be compiled (spec §7).
	EstimateOnlyReason string

	// Inputs/Output reference buffers by ID within the owning OpGraph.
	Inputs []BufferID
	Output BufferID
}

// BufferID indexes a Buffer within an OpGraph.
type BufferID int

// OpID indexes an Op within an OpGraph.
type OpID int
