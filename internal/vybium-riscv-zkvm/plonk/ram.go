package plonk

// RamRowSize is the tuple width of one RAM-access record: word address,
// cycle, operation kind, and four one-byte value limbs.
const RamRowSize = 7

// RamTable records every memory operation of a cycle pass. Canonical order
// is address-major, then cycle: all accesses to one word appear together, in
// access order, which is what the memory-consistency permutation argument
// checks against.
type RamTable struct {
	table
}

// NewRamTable creates an empty RAM-access table.
func NewRamTable() *RamTable {
	return &RamTable{newTable("ram", RamRowSize, 2)}
}
