// Package parts models the graph-of-parts: a DAG of Part nodes, each owning
// candidate Plans, connected by typed slot edges (spec §2 item 2, §3).
package parts

import "github.com/gpustack/npu-compiler-core/pkg/opgraph"

// PartID indexes a Part within a GraphOfParts. Front-ends are required to
// assign PartIDs consistent with a topological order of the user graph
// (spec §5, "ordering guarantees": "parts are visited in ascending Part ID
// (which the front-end fixes to a topological order)").
type PartID int

// Part is a node in the graph-of-parts: an identity, its candidate plans,
// and references to its external input/output slots.
type Part struct {
	ID    PartID
	Name  string
	Plans []*opgraph.Plan

	InputSlots  []opgraph.SlotID
	OutputSlots []opgraph.SlotID
}

// PlanByID returns the plan with the given ID, or nil.
func (p *Part) PlanByID(id int) *opgraph.Plan {
	for _, pl := range p.Plans {
		if pl.ID == id {
			return pl
		}
	}
	return nil
}

// IsTerminal reports whether this part has no outgoing edges in g.
func (p *Part) IsTerminal(g *GraphOfParts) bool {
	return g.NumOutEdges(p.ID) == 0
}

// Edge connects one producing Part's output slot to one consuming Part's
// input slot (spec §3: "Connections are typed PartOutputSlot -> PartInputSlot").
type Edge struct {
	SrcPart PartID
	SrcSlot opgraph.SlotID
	DstPart PartID
	DstSlot opgraph.SlotID
}

// GraphOfParts is the DAG of parts: spec §2 item 2 and §3. Edges are stored
// keyed by destination input slot (one producer per consumer slot; any
// number of consumers per producer slot), replacing the teacher's
// `std::map<const Edge*, ...>` keyed-by-pointer idiom with a keyed-by-value
// EdgeID lookup, per the spec §9 design note.
type GraphOfParts struct {
	Parts map[PartID]*Part
	// edges maps a destination (part, input slot) to the edge producing it.
	edges map[destKey]Edge
	// outEdges maps a source part to every edge leaving it, for fast
	// topological traversal during metadata construction and combination
	// growth.
	outEdges map[PartID][]Edge
}

type destKey struct {
	part PartID
	slot opgraph.SlotID
}

// New returns an empty GraphOfParts.
func New() *GraphOfParts {
	return &GraphOfParts{
		Parts:    map[PartID]*Part{},
		edges:    map[destKey]Edge{},
		outEdges: map[PartID][]Edge{},
	}
}

// AddPart registers p in the graph.
func (g *GraphOfParts) AddPart(p *Part) {
	g.Parts[p.ID] = p
}

// Connect adds an edge from (srcPart, srcSlot) to (dstPart, dstSlot). Panics
// if dstSlot already has a producer (invariant: one producer per consumer
// slot).
func (g *GraphOfParts) Connect(srcPart PartID, srcSlot opgraph.SlotID, dstPart PartID, dstSlot opgraph.SlotID) {
	dk := destKey{dstPart, dstSlot}
	if _, exists := g.edges[dk]; exists {
		panic("parts: input slot already has a producer")
	}
	e := Edge{SrcPart: srcPart, SrcSlot: srcSlot, DstPart: dstPart, DstSlot: dstSlot}
	g.edges[dk] = e
	g.outEdges[srcPart] = append(g.outEdges[srcPart], e)
}

// EdgeInto returns the edge producing the given (part, input slot), if any.
func (g *GraphOfParts) EdgeInto(dstPart PartID, dstSlot opgraph.SlotID) (Edge, bool) {
	e, ok := g.edges[destKey{dstPart, dstSlot}]
	return e, ok
}

// OutEdges returns every edge leaving partID, in the order they were added.
// Callers that need deterministic order (spec §5) should additionally sort
// by DstSlot, which SortedOutEdges does.
func (g *GraphOfParts) OutEdges(partID PartID) []Edge {
	return g.outEdges[partID]
}

// SortedOutEdges returns OutEdges(partID) sorted by (DstPart, DstSlot), the
// deterministic "sorted edge order" iteration the spec requires (§5).
func (g *GraphOfParts) SortedOutEdges(partID PartID) []Edge {
	edges := append([]Edge(nil), g.outEdges[partID]...)
	for i := 1; i < len(edges); i++ {
		for j := i; j > 0 && less(edges[j], edges[j-1]); j-- {
			edges[j], edges[j-1] = edges[j-1], edges[j]
		}
	}
	return edges
}

func less(a, b Edge) bool {
	if a.DstPart != b.DstPart {
		return a.DstPart < b.DstPart
	}
	return a.DstSlot < b.DstSlot
}

// ConsumersOf returns every edge whose source is (partID-independent) the
// given output slot identity; since slots are scoped per-part, callers pass
// a part ID implicitly via the edge's SrcPart when filtering OutEdges. The
// edges of every part are searched.
func (g *GraphOfParts) ConsumersOf(slot opgraph.SlotID) []Edge {
	var out []Edge
	for _, edges := range g.outEdges {
		for _, e := range edges {
			if e.SrcSlot == slot {
				out = append(out, e)
			}
		}
	}
	return out
}

// SortedPartIDs returns every Part's ID in ascending order, the iteration
// order the combiner and metadata builder use (spec §5).
func (g *GraphOfParts) SortedPartIDs() []PartID {
	ids := make([]PartID, 0, len(g.Parts))
	for id := range g.Parts {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}

// ReverseSortedPartIDs returns SortedPartIDs in reverse, the order the
// metadata builder processes parts in (spec §4.2: "processed in reverse
// topological order so already-refuted plans are dropped").
func (g *GraphOfParts) ReverseSortedPartIDs() []PartID {
	ids := g.SortedPartIDs()
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids
}

// NumOutEdges returns how many outgoing edges partID has, i.e. whether it is
// terminal (spec §4.3: "Terminal parts (no outgoing edges) pass through
// unchanged").
func (g *GraphOfParts) NumOutEdges(partID PartID) int {
	return len(g.outEdges[partID])
}
