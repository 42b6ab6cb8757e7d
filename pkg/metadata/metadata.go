// Package metadata builds, for every edge in a graph-of-parts, the set of
// compatible (src plan, dst plan, glue) triples the combiner will search
// over (spec §4.2).
//
// Grounded on original_source/driver/support_library/src/Combiner.cpp's
// CreateMetadata pass; the "process in reverse topological order so
// already-refuted plans are dropped" rule is a direct port of that file's
// single backward sweep.
package metadata

import (
	"fmt"

	"github.com/gpustack/npu-compiler-core/pkg/buffer"
	"github.com/gpustack/npu-compiler-core/pkg/compat"
	"github.com/gpustack/npu-compiler-core/pkg/hwcaps"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/parts"
)

// Triple is one compatible (source plan, destination plan, glue) option
// recorded for an edge.
type Triple struct {
	SrcPlanID int
	DstPlanID int
	Glue      *opgraph.Glue // nil means empty glue
	// ForcedDramRoundTrip marks the second, DramOnly-search triple emitted
	// alongside a direct SRAM-to-SRAM merge (spec §4.2 paragraph 2).
	ForcedDramRoundTrip bool
}

// EdgeMetadata is the set of compatible triples for one graph-of-parts edge.
type EdgeMetadata struct {
	Edge     parts.Edge
	Triples  []Triple
}

// Metadata is the full per-edge compatibility map the combiner consumes.
type Metadata struct {
	Edges map[parts.PartID][]EdgeMetadata // keyed by source part, in SortedOutEdges order
}

// ErrUnsupported is returned when a non-terminal part ends with no
// compatible plans at all (spec §4.2, §7).
type ErrUnsupported struct {
	PartID parts.PartID
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("metadata: part %d has no compatible outgoing plan", e.PartID)
}

// Build constructs Metadata for g, processing parts in reverse topological
// order so a part's plans can be refuted once none of its edges survive.
func Build(g *parts.GraphOfParts, caps hwcaps.Capabilities) (*Metadata, error) {
	md := &Metadata{Edges: map[parts.PartID][]EdgeMetadata{}}

	// incompatiblePlans[partID][planID] marks a plan as refuted because no
	// compatible successor triple survived on any of its outgoing edges;
	// predecessors skip refuted plans as destination plans.
	incompatiblePlans := map[parts.PartID]map[int]bool{}

	for _, partID := range g.ReverseSortedPartIDs() {
		part := g.Parts[partID]
		outEdges := g.SortedOutEdges(partID)

		var edgeMetas []EdgeMetadata
		anyCompatible := len(outEdges) == 0 // terminal parts trivially pass

		for _, edge := range outEdges {
			dstPart := g.Parts[edge.DstPart]
			requiresDram := requiresDramHandoff(g, edge)

			em := EdgeMetadata{Edge: edge}
			for _, srcPlan := range part.Plans {
				if incompatiblePlans[partID][srcPlan.ID] {
					continue
				}
				srcBuf, ok := srcPlan.OutputSlot(edge.SrcSlot)
				if !ok {
					continue
				}
				for _, dstPlan := range dstPart.Plans {
					if incompatiblePlans[edge.DstPart][dstPlan.ID] {
						continue
					}
					dstBuf, ok := dstPlan.InputSlot(edge.DstSlot)
					if !ok {
						continue
					}
					res := compat.Check(srcPlan.Graph.Buffers[srcBuf], dstPlan.Graph.Buffers[dstBuf], compat.Context{}, caps)
					if res.Kind == compat.Incompatible {
						continue
					}
					if requiresDram && res.Kind == compat.EmptyGlue && srcPlan.Graph.Buffers[srcBuf].Location == buffer.Sram {
						continue
					}
					em.Triples = append(em.Triples, Triple{SrcPlanID: srcPlan.ID, DstPlanID: dstPlan.ID, Glue: res.Glue})

					if res.Kind == compat.EmptyGlue &&
						srcPlan.Graph.Buffers[srcBuf].Location == buffer.Sram &&
						dstPlan.Graph.Buffers[dstBuf].Location == buffer.Sram {
						forcedRes := compat.Check(
							forceDram(srcPlan.Graph.Buffers[srcBuf]),
							dstPlan.Graph.Buffers[dstBuf], compat.Context{}, caps)
						if forcedRes.Kind == compat.Synthesized {
							em.Triples = append(em.Triples, Triple{SrcPlanID: srcPlan.ID, DstPlanID: dstPlan.ID, Glue: forcedRes.Glue, ForcedDramRoundTrip: true})
						}
					}
				}
			}
			if len(em.Triples) > 0 {
				anyCompatible = true
			}
			edgeMetas = append(edgeMetas, em)
		}

		if !anyCompatible {
			return nil, &ErrUnsupported{PartID: partID}
		}

		markRefutedPlans(part, edgeMetas, incompatiblePlans)
		md.Edges[partID] = edgeMetas
	}

	return md, nil
}

// requiresDramHandoff reports whether an edge needs a DRAM handoff: the
// source part has multiple outputs (branching), or the destination part has
// multiple inputs (spec §4.2 paragraph 1).
func requiresDramHandoff(g *parts.GraphOfParts, e parts.Edge) bool {
	srcOutEdges := g.OutEdges(e.SrcPart)
	if len(srcOutEdges) > 1 {
		return true
	}
	dstPart := g.Parts[e.DstPart]
	return len(dstPart.InputSlots) > 1
}

// forceDram returns a copy of b relocated to Dram with NHWCB format, used to
// probe the "back-to-DRAM" search branch triple.
func forceDram(b buffer.Buffer) buffer.Buffer {
	b.Location = buffer.Dram
	b.Format = buffer.NHWCB
	return b
}

// markRefutedPlans marks every plan of part that has no surviving triple on
// any of its outgoing edges, so a predecessor processed later skips it as a
// destination plan. Terminal parts (no outgoing edges) are never marked.
func markRefutedPlans(part *parts.Part, edges []EdgeMetadata, incompatible map[parts.PartID]map[int]bool) {
	survivedOnAnyEdge := map[int]bool{}
	for _, em := range edges {
		for _, t := range em.Triples {
			survivedOnAnyEdge[t.SrcPlanID] = true
		}
	}
	if len(edges) == 0 {
		return
	}
	if incompatible[part.ID] == nil {
		incompatible[part.ID] = map[int]bool{}
	}
	for _, p := range part.Plans {
		if !survivedOnAnyEdge[p.ID] {
			incompatible[part.ID][p.ID] = true
		}
	}
}
