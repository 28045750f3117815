package exec

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// BigIntWidthBytes is the limb width of the bigint accelerator: operands are
// 256-bit little-endian integers stored as one field element per byte.
const BigIntWidthBytes = 32

// bigintDivide divides two little-endian byte-limbed bigints: a = q*b + r.
//
// a is 2W limbs (a multiplication result), b is W limbs, with every limb a
// field element holding a value in [0, 255]. This is schoolbook long division
// with normalize-shift-and-correct digit estimation (Knuth Algorithm D; see
// Handbook of Elliptic and Hyperelliptic Curve Cryptography alg. 10.5.1).
//
// Input-domain errors: b is zero, b is narrower than 9 bits (a known
// restriction of the accelerator, not lifted here), or the quotient does not
// fit in W limbs. Arithmetic invariant violations (a correction step that
// fails to cancel its borrow, non-zero remainder bits shifted out) are
// defects in the caller's reduction of the inputs and panic.
func bigintDivide(aElems, bElems []field.Element) (qElems, rElems [BigIntWidthBytes]field.Element, err error) {
	if len(aElems) != BigIntWidthBytes*2 || len(bElems) != BigIntWidthBytes {
		panic(fmt.Sprintf("bigint divide: bad operand widths %d/%d", len(aElems), len(bElems)))
	}

	// Working buffers hold plain byte values; the numerator gets one extra
	// high limb to absorb the normalization shift.
	var a [BigIntWidthBytes*2 + 1]uint64
	for i, ai := range aElems {
		a[i] = ai.Value()
	}
	var b [BigIntWidthBytes + 1]uint64
	for i, bi := range bElems {
		b[i] = bi.Value()
	}
	var q [BigIntWidthBytes]uint64

	// Determine n, the true limb width of the denominator.
	n := BigIntWidthBytes
	for n > 0 && b[n-1] == 0 {
		n--
	}
	if n == 0 {
		err = fmt.Errorf("bigint divide: divide by zero")
		return
	}
	if n < 2 {
		err = fmt.Errorf("bigint divide: denominator must be at least 9 bits")
		return
	}
	m := BigIntWidthBytes*2 - n

	// Shift (i.e. multiply by two) both inputs until the denominator's
	// leading limb has its high bit set.
	shiftBits := uint64(0)
	for b[n-1]&(0x80>>shiftBits) == 0 {
		shiftBits++
	}
	carry := uint64(0)
	for i := 0; i < n; i++ {
		tmp := b[i]<<shiftBits + carry
		b[i] = tmp & 0xFF
		carry = tmp >> 8
	}
	if carry != 0 {
		panic("bigint divide: final carry in input shift")
	}
	for i := 0; i < BigIntWidthBytes*2; i++ {
		tmp := a[i]<<shiftBits + carry
		a[i] = tmp & 0xFF
		carry = tmp >> 8
	}
	a[BigIntWidthBytes*2] = carry

	for i := m; i >= 0; i-- {
		// Estimate one quotient digit from the top limbs. May overshoot by
		// at most one.
		qApprox := ((a[i+n] << 8) + a[i+n-1]) / b[n-1]
		if qApprox > 255 {
			qApprox = 255
		}
		for qApprox*((b[n-1]<<8)+b[n-2]) > (a[i+n]<<16)+(a[i+n-1]<<8)+a[i+n-2] {
			qApprox--
		}

		// Subtract qApprox multiples of the denominator.
		borrow := uint64(0)
		for j := 0; j <= n; j++ {
			sub := qApprox*b[j] + borrow
			if a[i+j] < sub&0xFF {
				a[i+j] += 0x100 - sub&0xFF
				borrow = (sub >> 8) + 1
			} else {
				a[i+j] -= sub & 0xFF
				borrow = sub >> 8
			}
		}
		if borrow > 0 {
			// Went negative; add back one multiple of the denominator,
			// which must exactly cancel the borrow.
			qApprox--
			carry := uint64(0)
			for j := 0; j <= n; j++ {
				tmp := a[i+j] + b[j] + carry
				a[i+j] = tmp & 0xFF
				carry = tmp >> 8
			}
			if borrow != carry {
				panic("bigint divide: underflow in bigint division")
			}
		}

		if i < len(q) {
			q[i] = qApprox
		} else if qApprox != 0 {
			err = fmt.Errorf("bigint divide: quotient exceeds allowed size")
			return
		}
	}

	// Undo the normalization shift on the remainder; the quotient is shift
	// invariant. Everything past the first n limbs is dropped.
	mask := uint64(1)<<shiftBits - 1
	if a[0]&mask != 0 {
		panic("bigint divide: remainder has non-zero bits to be shifted out")
	}
	for i := 0; i < n; i++ {
		a[i] = a[i]>>shiftBits + (mask&a[i+1])<<(8-shiftBits)
	}

	for i := 0; i < BigIntWidthBytes; i++ {
		qElems[i] = field.New(q[i])
	}
	for i := 0; i < n; i++ {
		rElems[i] = field.New(a[i])
	}
	for i := n; i < BigIntWidthBytes; i++ {
		rElems[i] = field.Zero
	}
	return qElems, rElems, nil
}
