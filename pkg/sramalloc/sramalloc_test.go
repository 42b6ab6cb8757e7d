package sramalloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/gpustack/npu-compiler-core/pkg/sramalloc"
)

func TestAllocateStartPreferenceLowestFit(t *testing.T) {
	a := New(100)
	off, ok := a.Allocate(40, Start)
	require.True(t, ok)
	assert.Equal(t, uint32(0), off)

	off2, ok := a.Allocate(40, Start)
	require.True(t, ok)
	assert.Equal(t, uint32(40), off2)

	_, ok = a.Allocate(30, Start)
	assert.False(t, ok, "only 20 bytes remain")
}

func TestAllocateEndPreferencePlacesAtTop(t *testing.T) {
	a := New(100)
	off, ok := a.Allocate(10, End)
	require.True(t, ok)
	assert.Equal(t, uint32(90), off)
}

func TestFreeMergesAdjacentRegions(t *testing.T) {
	a := New(100)
	o1, _ := a.Allocate(10, Start)
	o2, _ := a.Allocate(10, Start)
	o3, _ := a.Allocate(10, Start)

	a.Free(o2)
	a.Free(o1)
	a.Free(o3)
	assert.True(t, a.IsEmpty())

	// Freed regions should have collapsed back into one 100-byte region.
	off, ok := a.Allocate(100, Start)
	require.True(t, ok)
	assert.Equal(t, uint32(0), off)
}

func TestCloneIsIndependent(t *testing.T) {
	a := New(100)
	_, _ = a.Allocate(50, Start)

	b := a.Clone()
	_, ok := b.Allocate(60, Start)
	assert.False(t, ok)

	_, ok = b.Allocate(50, Start)
	assert.True(t, ok)

	// a is untouched by b's allocations.
	_, ok = a.Allocate(50, Start)
	assert.True(t, ok)
}

func TestTryFreeUntrackedOffsetFails(t *testing.T) {
	a := New(100)
	assert.False(t, a.TryFree(5))
}

func TestResetReclaimsAllMemory(t *testing.T) {
	a := New(100)
	_, _ = a.Allocate(100, Start)
	_, ok := a.Allocate(1, Start)
	require.False(t, ok)

	a.Reset()
	_, ok = a.Allocate(100, Start)
	assert.True(t, ok)
}
