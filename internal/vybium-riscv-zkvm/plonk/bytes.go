package plonk

// BytesRowSize is the tuple width of one byte-lookup record. The width is
// fixed by the circuit's extern declaration: each row carries the byte
// decompositions checked against the 0..255 range table on one cycle.
const BytesRowSize = 16

// BytesTable records every byte-decomposition lookup of a cycle pass.
// Canonical order is value-major (full-row lexicographic), matching the
// range-check permutation argument.
type BytesTable struct {
	table
}

// NewBytesTable creates an empty byte-lookup table.
func NewBytesTable() *BytesTable {
	return &BytesTable{newTable("bytes", BytesRowSize, BytesRowSize)}
}
