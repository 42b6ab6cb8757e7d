// Package hwcaps models the hardware capability descriptor consumed by the
// compiler: an opaque record of numeric constants describing the fixed-
// function NPU. Nothing in this package has behavior beyond simple derived
// accessors; the values themselves come from the collaborator that loads
// them (not specified here, per spec §6).
package hwcaps

// BrickGroupShape is the fixed NHWCB tiling unit: 8x8 spatial, 16 channels.
type BrickGroupShape struct {
	Height   uint32
	Width    uint32
	Channels uint32
}

// DefaultBrickGroupShape is the 8x8x16 brick group used throughout the spec.
var DefaultBrickGroupShape = BrickGroupShape{Height: 8, Width: 8, Channels: 16}

// PatchShape is the 4x4 MCE patch shape.
type PatchShape struct {
	Height uint32
	Width  uint32
}

// DefaultPatchShape is the 4x4 patch shape.
var DefaultPatchShape = PatchShape{Height: 4, Width: 4}

// CompressedCellShape describes an FCAF cell's fixed dimensions and its
// fixed, dimension-independent on-wire size.
type CompressedCellShape struct {
	Height      uint32
	Width       uint32
	Channels    uint32
	SizeInBytes uint32
}

// FCAF cell shapes. Both are fixed at 2112 bytes per cell.
var (
	FCAFDeepCellShape = CompressedCellShape{Height: 8, Width: 8, Channels: 32, SizeInBytes: 2112}
	FCAFWideCellShape = CompressedCellShape{Height: 8, Width: 16, Channels: 16, SizeInBytes: 2112}
)

// Capabilities is an immutable record of the numeric constants that describe
// one hardware configuration. It is treated as an opaque, externally-supplied
// struct: the compiler never mutates one. Default supplies the baseline set
// used by the tests and the CLI.
type Capabilities struct {
	// NumEngines is the number of compute engines (MCE+PLE pairs) sharing SRAM.
	NumEngines uint32
	// NumIgsPerEngine is the number of input groups per engine.
	NumIgsPerEngine uint32
	// NumOgsPerEngine is the number of output groups per engine.
	NumOgsPerEngine uint32
	// NumSramsPerEngine is the number of independent SRAM banks (EMCs) per engine.
	NumSramsPerEngine uint32
	// TotalSramSizeBytes is the total SRAM size shared by all engines.
	TotalSramSizeBytes uint32
	// NumMacsPerOg is the number of MAC units per output group.
	NumMacsPerOg uint32
	// NumAccumulatorsPerOg is the number of accumulators per output group.
	NumAccumulatorsPerOg uint32
	// MaxPleKernelSizeBytes is the maximum PLE micro-code size.
	MaxPleKernelSizeBytes uint32
	// BoundaryStripeHeight is the height of a boundary stripe (for halo reads).
	BoundaryStripeHeight uint32
	// NumSramSlots is the number of addressable SRAM slots per allocator region.
	NumSramSlots uint32

	BrickGroup BrickGroupShape
	Patch      PatchShape
	FCAFDeep   CompressedCellShape
	FCAFWide   CompressedCellShape
}

// NumSrams returns the total number of independent SRAM banks across all
// engines. The estimator derives its DMA bandwidth from it; the combiner
// does not divide SRAM demand by it.
func (c Capabilities) NumSrams() uint32 {
	return c.NumEngines * c.NumSramsPerEngine
}

// SramCapacityPerBank returns capacity = total_SRAM / num_SRAMs. Compile
// sizes the combiner's SRAM allocator with TotalSramSizeBytes, not with
// this per-bank value.
func (c Capabilities) SramCapacityPerBank() uint32 {
	n := c.NumSrams()
	if n == 0 {
		return 0
	}
	return c.TotalSramSizeBytes / n
}

// NumOgs returns the total number of output groups across all engines.
func (c Capabilities) NumOgs() uint32 {
	return c.NumEngines * c.NumOgsPerEngine
}

// NumIgs returns the total number of input groups across all engines.
func (c Capabilities) NumIgs() uint32 {
	return c.NumEngines * c.NumIgsPerEngine
}

// Default returns a representative capability set matching the shapes named
// in the specification (8x8x16 brick group, 4x4 patch, 2112-byte FCAF
// cells), used as the baseline by the tests and by every CLI subcommand.
func Default() Capabilities {
	return Capabilities{
		NumEngines:            1,
		NumIgsPerEngine:       8,
		NumOgsPerEngine:       8,
		NumSramsPerEngine:     16,
		TotalSramSizeBytes:    1024 * 1024,
		NumMacsPerOg:          8,
		NumAccumulatorsPerOg: 8,
		MaxPleKernelSizeBytes: 32 * 1024,
		BoundaryStripeHeight:  8,
		NumSramSlots:          4,
		BrickGroup:            DefaultBrickGroupShape,
		Patch:                 DefaultPatchShape,
		FCAFDeep:              FCAFDeepCellShape,
		FCAFWide:              FCAFWideCellShape,
	}
}
