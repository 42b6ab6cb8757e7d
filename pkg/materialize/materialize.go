// Package materialize walks a chosen Combination in topological order and
// splices every element's plan (and any glue between elements) into one
// final OpGraph (spec §4.5).
//
// Grounded on original_source/driver/support_library/src/Combiner.cpp's
// GetOpGraphForCombination.
package materialize

import (
	"github.com/gpustack/npu-compiler-core/pkg/combiner"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/parts"
)

// edgeOutputKey looks up the final-graph buffer produced for one
// graph-of-parts edge, so later elements can read a predecessor's output.
type edgeOutputKey struct {
	part parts.PartID
	slot opgraph.SlotID
}

// Materialize builds the final OpGraph for c, returning it plus a map from
// (part, output slot) to the final buffer that feeds it — useful for
// callers inspecting graph boundaries (e.g. to find the overall inputs and
// outputs of the compiled graph).
func Materialize(g *parts.GraphOfParts, c combiner.Combination) (*opgraph.OpGraph, map[parts.PartID]map[opgraph.SlotID]opgraph.BufferID) {
	final := opgraph.New()
	outputsByPart := make(map[parts.PartID]map[opgraph.SlotID]opgraph.BufferID)
	edgeOutput := make(map[edgeOutputKey]opgraph.BufferID)

	for _, partID := range c.Order {
		elem := c.Elements[partID]
		part := g.Parts[partID]
		plan := part.PlanByID(elem.PlanID)

		bufMap, _ := final.Merge(plan.Graph)

		// Alias input buffers whose incoming edge had empty glue: drop the
		// plan's own copy and redirect consumers to the predecessor's
		// output buffer directly (buffer merging, spec §4.5 bullet 1).
		aliases := map[opgraph.BufferID]opgraph.BufferID{}
		for _, gc := range elem.IncomingGlue {
			planInputBuf, ok := plan.InputSlot(gc.Edge.DstSlot)
			if !ok {
				continue
			}
			finalInputBuf := bufMap[planInputBuf]

			upstream, ok := edgeOutput[edgeOutputKey{part: gc.Edge.SrcPart, slot: gc.Edge.SrcSlot}]
			if !ok {
				continue
			}

			if gc.Glue == nil {
				aliases[finalInputBuf] = upstream
				continue
			}

			// Non-empty glue: splice the glue graph in, wire its input slot
			// to upstream and its output to finalInputBuf's producer.
			glueBufMap, glueOpMap := final.Merge(gc.Glue.Graph)
			glueInputOp := glueOpMap[gc.Glue.InputSlot.Op]
			rewireOpInput(final, glueInputOp, gc.Glue.InputSlot.Slot, upstream)

			glueOutputOp := glueOpMap[gc.Glue.Output]
			glueOutputBuf := final.Ops[glueOutputOp].Output
			_ = glueBufMap
			final.SetProducer(finalInputBuf, glueOutputOp)
			aliases[finalInputBuf] = glueOutputBuf
		}
		applyAliases(final, aliases)

		if outputsByPart[partID] == nil {
			outputsByPart[partID] = map[opgraph.SlotID]opgraph.BufferID{}
		}
		for buf, slot := range plan.OutputMappings {
			finalBuf := resolveAlias(aliases, bufMap[buf])
			outputsByPart[partID][slot] = finalBuf
			edgeOutput[edgeOutputKey{part: partID, slot: slot}] = finalBuf
		}
	}

	return final, outputsByPart
}

// rewireOpInput patches op's input at slot to point at newBuf, used to
// connect a spliced glue graph's entry op to the upstream buffer it reads.
func rewireOpInput(g *opgraph.OpGraph, op opgraph.OpID, slot int, newBuf opgraph.BufferID) {
	o := g.Ops[op]
	if slot < len(o.Inputs) {
		o.Inputs[slot] = newBuf
	}
	g.Ops[op] = o
}

// applyAliases rewrites every op's inputs that reference an aliased buffer
// to point at its canonical replacement.
func applyAliases(g *opgraph.OpGraph, aliases map[opgraph.BufferID]opgraph.BufferID) {
	if len(aliases) == 0 {
		return
	}
	for i, op := range g.Ops {
		changed := false
		for s, in := range op.Inputs {
			if target, ok := aliases[in]; ok {
				op.Inputs[s] = target
				changed = true
			}
		}
		if changed {
			g.Ops[i] = op
		}
	}
}

func resolveAlias(aliases map[opgraph.BufferID]opgraph.BufferID, buf opgraph.BufferID) opgraph.BufferID {
	if target, ok := aliases[buf]; ok {
		return target
	}
	return buf
}
