// Package estimator provides the performance-estimation function consumed
// by the combiner (spec §6: "Performance estimator (consumed as a pure
// function from an op-graph to a perf record)") and by the top-level
// compiler for the final PerfReport.
//
// Grounded on the teacher's estimate family (file_estimate*.go): a pure
// function over a fully-built model that walks its ops/tensors and
// accumulates a report, generalized here from GGUF memory/FLOPs accounting
// to NPU cycle/DMA-byte accounting.
package estimator

import (
	"errors"
	"fmt"

	"github.com/gpustack/npu-compiler-core/pkg/combiner"
	"github.com/gpustack/npu-compiler-core/pkg/hwcaps"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/parts"
)

// ErrEstimateOnly is the sentinel a caller can check for when it needs to
// treat any EstimateOnly op in a Report as fatal (spec §7 names this as one
// of the top-level error kinds; by default it is reported per-operation-id
// via OpCost.Reason rather than aborting compilation — see
// RequireNoEstimateOnly for callers that want the stricter behavior).
var ErrEstimateOnly = errors.New("estimator: op reported as estimate-only")

// OpCost is the estimated cycle cost of one op, plus a human-readable
// reason when it could not be placed into a pass (spec §7, "Partial
// estimation").
type OpCost struct {
	OperationIDs []opgraph.OperationID
	Cycles       uint64
	Reason       string // non-empty iff this op contributes zero performance impact
}

// Report is the perf record produced for a full op-graph.
type Report struct {
	TotalCycles uint64
	PerOp       []OpCost
}

// RequireNoEstimateOnly returns ErrEstimateOnly, wrapped with the offending
// operation IDs and reasons, if r contains any EstimateOnly op. Callers
// that tolerate partial estimation (the default compile path) ignore this;
// callers that need a complete cycle count (e.g. a strict CI gate) call it
// explicitly.
func RequireNoEstimateOnly(r Report) error {
	for _, op := range r.PerOp {
		if op.Reason != "" {
			return fmt.Errorf("%w: ops %v: %s", ErrEstimateOnly, op.OperationIDs, op.Reason)
		}
	}
	return nil
}

// Estimator is the default cycle-cost model: DMA cost proportional to bytes
// moved over an assumed per-cycle bandwidth derived from SRAM bank count;
// MCE/PLE cost proportional to output tensor element count divided by the
// hardware's parallel MAC/lane width. EstimateOnly ops contribute zero
// cycles and are reported with their propagated reason string.
type Estimator struct {
	Caps hwcaps.Capabilities
}

// New returns an Estimator configured from caps.
func New(caps hwcaps.Capabilities) Estimator {
	return Estimator{Caps: caps}
}

// EstimateGraph implements the spec §6 "pure function from an op-graph to a
// perf record" interface directly over a materialized OpGraph.
func (e Estimator) EstimateGraph(g *opgraph.OpGraph) Report {
	var r Report
	for _, op := range g.Ops {
		cost := e.estimateOp(g, op)
		r.PerOp = append(r.PerOp, cost)
		r.TotalCycles += cost.Cycles
	}
	return r
}

func (e Estimator) estimateOp(g *opgraph.OpGraph, op opgraph.Op) OpCost {
	ids := op.Header.OperationIDs
	switch op.Kind {
	case opgraph.KindEstimateOnly:
		return OpCost{OperationIDs: ids, Reason: op.EstimateOnlyReason}
	case opgraph.KindDma:
		bytes := uint64(0)
		if len(op.Inputs) > 0 {
			bytes = uint64(g.Buffers[op.Inputs[0]].SizeBytes)
		}
		bandwidth := uint64(e.Caps.NumSrams()) * 16 // bytes/cycle, one brick-group row per SRAM
		if bandwidth == 0 {
			bandwidth = 1
		}
		return OpCost{OperationIDs: ids, Cycles: (bytes + bandwidth - 1) / bandwidth}
	case opgraph.KindMce:
		elems := uint64(g.Buffers[op.Output].TensorShape.NumElements())
		width := uint64(e.Caps.NumOgs()) * uint64(e.Caps.NumMacsPerOg)
		if width == 0 {
			width = 1
		}
		return OpCost{OperationIDs: ids, Cycles: (elems + width - 1) / width}
	case opgraph.KindPle:
		elems := uint64(g.Buffers[op.Output].TensorShape.NumElements())
		lanes := uint64(e.Caps.NumOgs())
		if lanes == 0 {
			lanes = 1
		}
		return OpCost{OperationIDs: ids, Cycles: (elems + lanes - 1) / lanes}
	default:
		return OpCost{OperationIDs: ids}
	}
}

// CombinerEstimator adapts Estimator to combiner.Estimator, scoring a
// partial Combination by materializing it into a throwaway OpGraph and
// summing estimated cycles. Lower is better, matching the
// combiner's "left-better" comparison (spec §4.4).
type CombinerEstimator struct {
	Est      Estimator
	Graph    *parts.GraphOfParts
	Materialize func(*parts.GraphOfParts, combiner.Combination) (*opgraph.OpGraph, map[parts.PartID]map[opgraph.SlotID]opgraph.BufferID)
}

// Estimate implements combiner.Estimator.
func (c CombinerEstimator) Estimate(comb combiner.Combination) float64 {
	g, _ := c.Materialize(c.Graph, comb)
	report := c.Est.EstimateGraph(g)
	return float64(report.TotalCycles)
}
