// Package plonk holds the permutation-argument bookkeeping produced during
// trace generation: the RAM-access and byte-lookup tables, and the named
// grand-product accumulators consumed by the accum phases.
//
// Tables are append-only during a cycle pass. Sort reorders a table into the
// canonical order the permutation-argument polynomial identity requires and
// rewinds the read cursor; reads then replay the rows in canonical order.
package plonk

import (
	"fmt"
	"sort"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// table is the shared storage behind the concrete tables. Rows are fixed
// width; canonical order is lexicographic over a per-table key prefix.
type table struct {
	name    string
	rowSize int
	keySize int
	rows    [][]field.Element
	readPos int
}

func newTable(name string, rowSize, keySize int) table {
	return table{name: name, rowSize: rowSize, keySize: keySize}
}

// Write appends one row. The argument count is fixed by the circuit's extern
// declaration; a mismatch is a protocol defect.
func (t *table) Write(args []field.Element) {
	if len(args) != t.rowSize {
		panic(fmt.Sprintf("%s plonk write: got %d elements, want %d", t.name, len(args), t.rowSize))
	}
	row := make([]field.Element, t.rowSize)
	copy(row, args)
	t.rows = append(t.rows, row)
}

// Read copies the next row in canonical order into outs.
func (t *table) Read(outs []field.Element) {
	if len(outs) != t.rowSize {
		panic(fmt.Sprintf("%s plonk read: got %d elements, want %d", t.name, len(outs), t.rowSize))
	}
	if t.readPos >= len(t.rows) {
		panic(fmt.Sprintf("%s plonk read past end of table (%d rows)", t.name, len(t.rows)))
	}
	copy(outs, t.rows[t.readPos])
	t.readPos++
}

// Sort reorders the rows into canonical order and rewinds the read cursor.
// Rows compare lexicographically over the first keySize columns; ties keep
// their append order, which preserves access order within one address.
func (t *table) Sort() {
	sort.SliceStable(t.rows, func(i, j int) bool {
		for k := 0; k < t.keySize; k++ {
			a, b := t.rows[i][k].Value(), t.rows[j][k].Value()
			if a != b {
				return a < b
			}
		}
		return false
	})
	t.readPos = 0
}

// Len returns the number of rows written so far.
func (t *table) Len() int {
	return len(t.rows)
}
