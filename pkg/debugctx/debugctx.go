// Package debugctx writes the optional debug dumps of spec §6: a .dot of
// the part graph at defined checkpoints, and a .txt listing intermediate-
// buffer lifetimes and chosen offsets. Dumps are only produced when the
// Context is enabled; Dir names the directory they are written under.
//
// Grounded on the teacher's util/osx.WriteFile (parent-directory creation,
// ~-expansion) for the actual file writes, and its fmt.Fprintf-based report
// building (file_estimate.go's table rendering) for the plain-text lifetime
// dump.
package debugctx

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gpustack/npu-compiler-core/pkg/bufmgr"
	"github.com/gpustack/npu-compiler-core/pkg/parts"
	"github.com/gpustack/npu-compiler-core/util/osx"
)

// Context configures debug dumping. A Context with Enabled false (such as
// the zero value) makes every dump method a no-op, whatever Dir holds.
type Context struct {
	Dir     string
	Enabled bool
}

// New returns a Context that writes dumps under dir when enabled is true.
func New(dir string, enabled bool) Context {
	return Context{Dir: dir, Enabled: enabled}
}

// DumpPartGraphDot writes a Graphviz .dot rendering of g to
// "<dir>/<checkpoint>.dot".
func (c Context) DumpPartGraphDot(checkpoint string, g *parts.GraphOfParts) error {
	if !c.Enabled {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("digraph parts {\n")
	for _, id := range g.SortedPartIDs() {
		p := g.Parts[id]
		sb.WriteString(fmt.Sprintf("  p%d [label=\"%s (id=%d, plans=%d)\"];\n", id, escapeDot(p.Name), id, len(p.Plans)))
	}
	for _, id := range g.SortedPartIDs() {
		for _, e := range g.SortedOutEdges(id) {
			sb.WriteString(fmt.Sprintf("  p%d -> p%d [label=\"slot %d->%d\"];\n", e.SrcPart, e.DstPart, e.SrcSlot, e.DstSlot))
		}
	}
	sb.WriteString("}\n")

	return osx.WriteFile(filepath.Join(c.Dir, checkpoint+".dot"), []byte(sb.String()), 0o644)
}

func escapeDot(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// DumpBufferLifetimes writes a plain-text table of every intermediate
// buffer's lifetime interval and chosen offset to "<dir>/buffers.txt" (spec
// §6: "a .txt of intermediate-buffer lifetimes and chosen offsets").
func (c Context) DumpBufferLifetimes(requests []bufmgr.Request, result bufmgr.Result) error {
	if !c.Enabled {
		return nil
	}
	offsets := make(map[int]uint32, len(result.Intermediates))
	for _, l := range result.Intermediates {
		offsets[l.ID] = l.Offset
	}

	var sb strings.Builder
	sb.WriteString("id\tstart\tend\tsize\toffset\n")
	for _, r := range requests {
		if r.Kind != bufmgr.KindIntermediate {
			continue
		}
		sb.WriteString(fmt.Sprintf("%d\t%d\t%d\t%d\t%d\n", r.ID, r.Start, r.End, r.Size, offsets[r.ID]))
	}

	return osx.WriteFile(filepath.Join(c.Dir, "buffers.txt"), []byte(sb.String()), 0o644)
}
