// Package optimize runs post-combiner cleanup passes over a materialized
// OpGraph (spec §4.9): removing DMA ops whose input and output buffers are
// redundant copies of each other, merging the two buffers into one.
//
// Grounded on original_source/driver/support_library/src/Combiner.cpp's
// post-processing pass that removes no-op DMAs introduced by glue
// synthesis once a direct merge turns out to have been possible all along.
package optimize

import "github.com/gpustack/npu-compiler-core/pkg/opgraph"

// EliminateRedundantCopies removes every Dma op whose input and output
// buffers are redundant (spec §4.9: same tensor shape, format, and
// quantization, with no intervening mutation), merging the pair of buffers
// into one. Returns the number of ops removed.
func EliminateRedundantCopies(g *opgraph.OpGraph) int {
	removed := 0
	keep := make([]opgraph.Op, 0, len(g.Ops))
	aliases := map[opgraph.BufferID]opgraph.BufferID{}

	for _, op := range g.Ops {
		if op.Kind == opgraph.KindDma && len(op.Inputs) == 1 && isRedundant(g, op) {
			// Retain the producer of the input buffer and every consumer
			// of the output buffer by aliasing Output -> Input.
			aliases[op.Output] = resolve(aliases, op.Inputs[0])
			removed++
			continue
		}
		keep = append(keep, op)
	}

	for i, op := range keep {
		changed := false
		for s, in := range op.Inputs {
			if target, ok := aliases[in]; ok {
				op.Inputs[s] = target
				changed = true
			}
		}
		if target, ok := aliases[op.Output]; ok {
			op.Output = target
			changed = true
		}
		if changed {
			keep[i] = op
		}
	}

	if removed == 0 {
		return 0
	}
	// Rebuild the graph so its topological order and producer/consumer
	// maps refer only to the surviving ops.
	rebuilt := opgraph.New()
	for _, b := range g.Buffers {
		rebuilt.AddBuffer(b)
	}
	for _, op := range keep {
		rebuilt.AddOp(op)
	}
	*g = *rebuilt
	return removed
}

func resolve(aliases map[opgraph.BufferID]opgraph.BufferID, buf opgraph.BufferID) opgraph.BufferID {
	for {
		target, ok := aliases[buf]
		if !ok {
			return buf
		}
		buf = target
	}
}

// isRedundant implements the equality test of spec §4.9: identical tensor
// shape, format, and quantization between a Dma op's sole input and its
// output. Only these three properties are compared: buffer location,
// use-site lifetimes and intervening mutation are not checked, and the
// pass tests every Dma op of the graph it is given (Compile runs it over
// the whole materialized graph, plan-internal DMAs as well as glue DMAs).
func isRedundant(g *opgraph.OpGraph, op opgraph.Op) bool {
	in := g.Buffers[op.Inputs[0]]
	out := g.Buffers[op.Output]
	if in.TensorShape != out.TensorShape {
		return false
	}
	if in.Format != out.Format {
		return false
	}
	return in.Quantization.IsEquivalent(out.Quantization)
}
