package plonk

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Accum is the grand-product accumulator for one named permutation table.
//
// During the write phase the circuit hands the accumulator one factor per
// element; CalcPrefixProducts then materializes the running-product sequence
// p[i] = f[0] * f[1] * ... * f[i], which the read phase replays back into the
// circuit. The prefix sequence is recomputed from the raw factors each time,
// so calling CalcPrefixProducts again without intervening writes leaves the
// readable outputs unchanged.
//
// Accumulators are created lazily, keyed by table name, and live for exactly
// one cycle pass.
type Accum struct {
	factors []field.Element
	prefix  []field.Element
	readPos int
}

// NewAccum creates an empty accumulator.
func NewAccum() *Accum {
	return &Accum{}
}

// Write multiplies the given factors into the accumulation, in order.
func (a *Accum) Write(args []field.Element) {
	a.factors = append(a.factors, args...)
}

// CalcPrefixProducts finalizes the monotone prefix-product sequence and
// rewinds the read cursor.
func (a *Accum) CalcPrefixProducts() {
	a.prefix = make([]field.Element, len(a.factors))
	acc := field.One
	for i, f := range a.factors {
		acc = acc.Mul(f)
		a.prefix[i] = acc
	}
	a.readPos = 0
}

// Read copies the next len(outs) prefix products into outs.
func (a *Accum) Read(outs []field.Element) {
	if a.readPos+len(outs) > len(a.prefix) {
		panic(fmt.Sprintf("accum read past end: pos %d + %d > %d", a.readPos, len(outs), len(a.prefix)))
	}
	copy(outs, a.prefix[a.readPos:])
	a.readPos += len(outs)
}

// Len returns the number of factors written so far.
func (a *Accum) Len() int {
	return len(a.factors)
}
