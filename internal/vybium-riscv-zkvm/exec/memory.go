package exec

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-riscv-zkvm/internal/vybium-riscv-zkvm/image"
	"github.com/vybium/vybium-riscv-zkvm/internal/vybium-riscv-zkvm/plonk"
)

// Memory operation kinds, as tagged by the circuit on ramRead/ramWrite.
const (
	// MemOpPageIO marks a paging access; it establishes residency for the
	// touched word and is exempt from the residency gate.
	MemOpPageIO uint32 = 0

	// MemOpRead and MemOpWrite are ordinary accesses and must hit a word
	// already paged in.
	MemOpRead  uint32 = 1
	MemOpWrite uint32 = 2
)

// MemoryState bundles the segment's memory image with the permutation-table
// bookkeeping that every memory operation and byte lookup feeds.
type MemoryState struct {
	RAM *image.MemoryImage

	// Plonk tables for sorting access records into canonical order.
	RamPlonk   *plonk.RamTable
	BytesPlonk *plonk.BytesTable

	// Grand-product accumulators for the accum phases, keyed by table name
	// and created on first reference.
	PlonkAccum map[string]*plonk.Accum
}

// NewMemoryState wraps a memory image for one segment replay.
func NewMemoryState(img *image.MemoryImage) *MemoryState {
	return &MemoryState{
		RAM:        img,
		RamPlonk:   plonk.NewRamTable(),
		BytesPlonk: plonk.NewBytesTable(),
		PlonkAccum: make(map[string]*plonk.Accum),
	}
}

func (m *MemoryState) loadU32(addr uint32) uint32 {
	return m.RAM.LoadU32(addr)
}

// loadRegister reads register idx from the register file window.
func (m *MemoryState) loadRegister(idx int) uint32 {
	return m.loadU32(m.RAM.Info.RegisterBase + uint32(idx)*image.WordSize)
}

func (m *MemoryState) storeU32(addr uint32, value uint32) {
	m.RAM.StoreU32(addr, value)
}

// splitWord8 decomposes a word into four one-byte field elements, little
// endian, the shape every word crosses the circuit boundary in.
func splitWord8(value uint32) [4]field.Element {
	return [4]field.Element{
		field.New(uint64(value & 0xff)),
		field.New(uint64(value >> 8 & 0xff)),
		field.New(uint64(value >> 16 & 0xff)),
		field.New(uint64(value >> 24 & 0xff)),
	}
}

// mergeWord8 reassembles a word from four one-byte field elements.
func mergeWord8(x0, x1, x2, x3 field.Element) uint32 {
	return uint32(x0.Value()) |
		uint32(x1.Value())<<8 |
		uint32(x2.Value())<<16 |
		uint32(x3.Value())<<24
}
