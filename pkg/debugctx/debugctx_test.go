package debugctx_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/gpustack/npu-compiler-core/pkg/debugctx"
	"github.com/gpustack/npu-compiler-core/pkg/bufmgr"
	"github.com/gpustack/npu-compiler-core/pkg/opgraph"
	"github.com/gpustack/npu-compiler-core/pkg/parts"
)

func TestDumpPartGraphDotWritesFile(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, true)

	g := parts.New()
	g.AddPart(&parts.Part{ID: 0, Name: "conv0"})
	g.AddPart(&parts.Part{ID: 1, Name: "pool0"})
	g.Connect(0, opgraph.SlotID(0), 1, opgraph.SlotID(0))

	require.NoError(t, c.DumpPartGraphDot("after_combiner", g))

	data, err := os.ReadFile(filepath.Join(dir, "after_combiner.dot"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "p0 -> p1")
}

func TestDumpDisabledIsNoOp(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, false)

	g := parts.New()
	require.NoError(t, c.DumpPartGraphDot("x", g))

	_, err := os.ReadFile(filepath.Join(dir, "x.dot"))
	assert.Error(t, err, "disabled context must not write anything")
}

func TestDumpBufferLifetimesWritesTable(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, true)

	reqs := []bufmgr.Request{{ID: 1, Kind: bufmgr.KindIntermediate, Size: 100, Start: 0, End: 2}}
	res := bufmgr.Allocate(reqs)

	require.NoError(t, c.DumpBufferLifetimes(reqs, res))
	data, err := os.ReadFile(filepath.Join(dir, "buffers.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "1\t0\t2\t100\t0")
}
