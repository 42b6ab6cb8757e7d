// Package combiner searches a graph-of-parts' metadata for the best chain
// of (plan, glue) choices — a Combination — subject to a running SRAM
// budget (spec §4.3, §4.4).
//
// Grounded on original_source/driver/support_library/src/Combiner.cpp: seed
// creation from the first part's outgoing edge, MergeOnly/DramOnly/Any
// growth schemes, and the grow-prune-grow driver loop. The SRAM allocator
// is carried by value in every Combination (pkg/sramalloc), so branching
// the search (one call per compatible triple) is a plain slice append, not
// a deep-copy dance.
package combiner

import (
	"github.com/gpustack/npu-compiler-core/pkg/buffer"
	"github.com/gpustack/npu-compiler-core/pkg/hwcaps"
	"github.com/gpustack/npu-compiler-core/pkg/metadata"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/parts"
	"github.com/gpustack/npu-compiler-core/pkg/sramalloc"
)

// Scheme filters which metadata triples GrowSeeds is willing to extend a
// combination with (spec §4.3).
type Scheme uint8

const (
	// Any accepts both merged (empty-glue, SRAM-resident) and DRAM-handoff
	// extensions.
	Any Scheme = iota
	// MergeOnly accepts only extensions with empty glue that are not forced
	// DRAM round trips; the location of the source output buffer is not
	// checked.
	MergeOnly
	// DramOnly accepts only extensions that forced a DRAM round trip.
	DramOnly
)

// GlueChoice records which glue (nil for empty) was chosen to cross one
// incoming edge of an element.
type GlueChoice struct {
	Edge parts.Edge
	Glue *opgraph.Glue
}

// Element is one part's contribution to a Combination: the plan chosen for
// it, and the glue chosen for each of its incoming edges.
type Element struct {
	PartID       parts.PartID
	PlanID       int
	IncomingGlue []GlueChoice
}

// Combination is a candidate assignment of (plan, glue) to every part
// reached so far, plus the SRAM allocator state and running score.
type Combination struct {
	Order     []parts.PartID
	Elements  map[parts.PartID]Element
	Allocator *sramalloc.Allocator
	Score     int
}

// clone returns a deep-enough copy of c for an independent search branch:
// the element map and order slice are copied; the allocator is Cloned.
func (c Combination) clone() Combination {
	out := Combination{
		Order:     append([]parts.PartID(nil), c.Order...),
		Elements:  make(map[parts.PartID]Element, len(c.Elements)),
		Allocator: c.Allocator.Clone(),
		Score:     c.Score,
	}
	for k, v := range c.Elements {
		out.Elements[k] = v
	}
	return out
}

// handled reports whether part p already has an Element in c.
func (c Combination) handled(p parts.PartID) bool {
	_, ok := c.Elements[p]
	return ok
}

// Seed creates the initial combinations from the first part's compatible
// outgoing-edge triples (spec §4.3 paragraph 1). When md records no
// outgoing edge for firstPart, one combination per plan is returned.
func Seed(g *parts.GraphOfParts, md *metadata.Metadata, firstPart parts.PartID, sramCapacity uint32) []Combination {
	edges := md.Edges[firstPart]
	if len(edges) == 0 {
		// Terminal single-part graph: one combination per plan.
		part := g.Parts[firstPart]
		out := make([]Combination, 0, len(part.Plans))
		for _, p := range part.Plans {
			out = append(out, Combination{
				Order:     []parts.PartID{firstPart},
				Elements:  map[parts.PartID]Element{firstPart: {PartID: firstPart, PlanID: p.ID}},
				Allocator: sramalloc.New(sramCapacity),
			})
		}
		return out
	}

	em := edges[0]
	out := make([]Combination, 0, len(em.Triples))
	for _, t := range em.Triples {
		part := g.Parts[firstPart]
		plan := part.PlanByID(t.SrcPlanID)
		alloc := sramalloc.New(sramCapacity)
		demand := planSramBytes(plan)
		if _, ok := alloc.Allocate(demand, sramalloc.Start); !ok {
			continue
		}
		out = append(out, Combination{
			Order:     []parts.PartID{firstPart},
			Elements:  map[parts.PartID]Element{firstPart: {PartID: firstPart, PlanID: t.SrcPlanID}},
			Allocator: alloc,
		})
	}
	return out
}

// GrowSeeds extends every combination in combs by one part under scheme
// (spec §4.3 paragraphs 2-4). oneSeed, when true, stops after the first
// successful extension per input combination (used by the completion pass
// in Prune).
func GrowSeeds(g *parts.GraphOfParts, md *metadata.Metadata, combs []Combination, scheme Scheme, oneSeed bool) []Combination {
	var grown []Combination
	for _, c := range combs {
		extended := growOne(g, md, c, scheme, oneSeed)
		if len(extended) == 0 {
			// No further growth from c: it is already complete for this
			// scheme, so it survives unchanged.
			grown = append(grown, c)
			continue
		}
		grown = append(grown, extended...)
	}
	return grown
}

// growOne finds the next unhandled destination part reachable from c's
// already-handled parts (smallest PartID) and extends c with every
// compatible, scheme-admissible, SRAM-feasible triple.
func growOne(g *parts.GraphOfParts, md *metadata.Metadata, c Combination, scheme Scheme, oneSeed bool) []Combination {
	srcPart, edge, ok := nextEdge(g, c)
	if !ok {
		return nil
	}

	var triples []metadata.Triple
	for _, em := range md.Edges[srcPart] {
		if em.Edge == edge {
			triples = em.Triples
			break
		}
	}

	var out []Combination
	for _, t := range triples {
		if !schemeAdmits(scheme, t) {
			continue
		}
		next, ok := extend(g, c, edge, t)
		if !ok {
			continue
		}
		out = append(out, next)
		if oneSeed {
			break
		}
	}
	return out
}

// nextEdge finds the smallest-ID destination part, among edges whose
// source part is already handled in c, that c has not yet handled (spec
// §4.3: "picks the next part (the smallest-ID destination not yet handled
// for the current part)").
func nextEdge(g *parts.GraphOfParts, c Combination) (parts.PartID, parts.Edge, bool) {
	var best *parts.Edge
	var bestSrc parts.PartID
	for _, srcPart := range c.Order {
		if g.Parts[srcPart].IsTerminal(g) {
			continue
		}
		for _, e := range g.SortedOutEdges(srcPart) {
			if c.handled(e.DstPart) {
				continue
			}
			if best == nil || e.DstPart < best.DstPart {
				eCopy := e
				best = &eCopy
				bestSrc = srcPart
			}
		}
	}
	if best == nil {
		return 0, parts.Edge{}, false
	}
	return bestSrc, *best, true
}

func schemeAdmits(scheme Scheme, t metadata.Triple) bool {
	switch scheme {
	case MergeOnly:
		return t.Glue == nil && !t.ForcedDramRoundTrip
	case DramOnly:
		return t.Glue != nil || t.ForcedDramRoundTrip
	default:
		return true
	}
}

// extend implements spec §4.3's SRAM-accounting rule for adding plan t.Dst
// after the predecessor plan on edge, returning the grown combination or
// false if the allocator rejects it.
func extend(g *parts.GraphOfParts, c Combination, edge parts.Edge, t metadata.Triple) (Combination, bool) {
	next := c.clone()
	dstPart := g.Parts[edge.DstPart]
	plan := dstPart.PlanByID(t.DstPlanID)

	tot := planSramBytes(plan)
	in := planInputSramBytes(plan)

	canMerge := t.Glue == nil
	var demand uint32
	if canMerge {
		demand = tot - in
	} else {
		next.Allocator.Reset()
		demand = tot
	}

	if _, ok := next.Allocator.Allocate(demand, sramalloc.Start); !ok {
		return Combination{}, false
	}

	if canMerge {
		next.Score++
	}

	next.Order = append(next.Order, edge.DstPart)
	next.Elements[edge.DstPart] = Element{
		PartID:       edge.DstPart,
		PlanID:       t.DstPlanID,
		IncomingGlue: append(next.Elements[edge.DstPart].IncomingGlue, GlueChoice{Edge: edge, Glue: t.Glue}),
	}
	return next, true
}

// planSramBytes sums the SizeBytes of every SRAM/PleInputSram buffer in
// plan's graph.
func planSramBytes(plan *opgraph.Plan) uint32 {
	var total uint32
	for _, b := range plan.Graph.Buffers {
		if b.Location != buffer.Dram {
			total += b.SizeBytes
		}
	}
	return total
}

// planInputSramBytes sums the SRAM-resident size of plan's mapped input
// buffers only.
func planInputSramBytes(plan *opgraph.Plan) uint32 {
	var total uint32
	for buf := range plan.InputMappings {
		b := plan.Graph.Buffers[buf]
		if b.Location != buffer.Dram {
			total += b.SizeBytes
		}
	}
	return total
}

// Estimator scores a fully- or partially-materialized combination; lower is
// better (spec §4.4: "estimate the completed op-graph ... keep the single
// best combination by the estimator's metric").
type Estimator interface {
	Estimate(c Combination) (cost float64)
}

// Drive runs the grow-prune-grow loop of spec §4.4 until growth terminates,
// returning the surviving combinations in the order produced.
func Drive(g *parts.GraphOfParts, md *metadata.Metadata, seeds []Combination, est Estimator, caps hwcaps.Capabilities) []Combination {
	current := seeds
	var prevDramGrown []Combination

	for {
		merged := GrowSeeds(g, md, current, MergeOnly, false)
		if prevDramGrown != nil {
			merged = append(merged, prevDramGrown...)
		}

		pruned := prune(g, md, merged, est)
		if len(pruned) == 0 {
			break
		}

		dramGrown := GrowSeeds(g, md, pruned, DramOnly, true)
		if combinationsEqual(dramGrown, current) {
			return pruned
		}
		prevDramGrown = dramGrown
		current = dramGrown
	}
	return current
}

// prune keeps, for every candidate, the single best completion under
// DramOnly growth with oneSeed=true, scored by est — strict "left-better"
// comparison so the first candidate wins ties (spec §4.4 step 2).
func prune(g *parts.GraphOfParts, md *metadata.Metadata, candidates []Combination, est Estimator) []Combination {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	bestCost := completionCost(g, md, best, est)
	for _, c := range candidates[1:] {
		cost := completionCost(g, md, c, est)
		if cost < bestCost {
			best, bestCost = c, cost
		}
	}
	return []Combination{best}
}

func completionCost(g *parts.GraphOfParts, md *metadata.Metadata, c Combination, est Estimator) float64 {
	completed := c
	for {
		grown := GrowSeeds(g, md, []Combination{completed}, DramOnly, true)
		if len(grown) == 0 || combinationsEqual(grown, []Combination{completed}) {
			break
		}
		completed = grown[0]
	}
	return est.Estimate(completed)
}

func combinationsEqual(a, b []Combination) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i].Order) != len(b[i].Order) {
			return false
		}
	}
	return true
}
