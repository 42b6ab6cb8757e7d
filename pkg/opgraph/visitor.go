package opgraph

import "github.com/gpustack/npu-compiler-core/pkg/tensor"

// SupportLevel is the result of an IsXxxSupported query against the front-end
// (spec §6).
type SupportLevel uint8

const (
	Supported SupportLevel = iota
	EstimateOnlySupport
	Unsupported
)

// OperationInfo is the common data every user Operation exposes: its
// TensorInfo for each input/output and its propagated operation IDs.
type OperationInfo struct {
	IDs          []OperationID
	InputShapes  []tensor.Shape
	OutputShapes []tensor.Shape
}

// OperationVisitor is the interface the front-end operator graph is consumed
// through (spec §6): one method per operator kind, per the "visitor pattern"
// design note's first option. The front-end graph itself — and every
// concrete Operation type — is an out-of-scope collaborator; only this
// interface is specified here, to be implemented by the (unspecified)
// front-end and driven by the graph-of-parts builder (not in this package).
type OperationVisitor interface {
	VisitInput(info OperationInfo)
	VisitOutput(info OperationInfo)
	VisitConstant(info OperationInfo, data []byte)
	VisitConvolution(info OperationInfo, weights, bias BufferID, stride Stride, padding Padding)
	VisitDepthwiseConvolution(info OperationInfo, weights, bias BufferID, stride Stride, padding Padding)
	VisitTransposeConvolution(info OperationInfo, weights, bias BufferID, stride Stride, padding Padding)
	VisitFullyConnected(info OperationInfo, weights, bias BufferID)
	VisitAddition(info OperationInfo)
	VisitPooling(info OperationInfo)
	VisitSigmoid(info OperationInfo)
	VisitSoftmax(info OperationInfo)
	VisitRelu(info OperationInfo)
	VisitLeakyRelu(info OperationInfo, alpha float32)
	VisitRequantize(info OperationInfo, out tensor.Quantization)
	VisitReshape(info OperationInfo, newShape tensor.Shape)
	VisitConcatenation(info OperationInfo, axis uint32)
	VisitSplit(info OperationInfo, axis uint32, sizes []uint32)
	VisitDepthToSpace(info OperationInfo, blockSize uint32)
	VisitSpaceToDepth(info OperationInfo, blockSize uint32)
	VisitTranspose(info OperationInfo, permutation []uint32)
	VisitResize(info OperationInfo, newShape tensor.Shape)
	VisitEstimateOnly(info OperationInfo, reason string)
}
