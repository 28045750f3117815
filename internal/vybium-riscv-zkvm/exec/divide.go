package exec

// Sign interpretation modes for divide, per the RISC-V DIV/REM family.
const (
	// signUnsigned treats both operands as unsigned (DIVU/REMU).
	signUnsigned uint32 = 0

	// signSigned treats both operands as two's-complement signed (DIV/REM).
	signSigned uint32 = 1

	// signOnesComp negates via bit complement without the +1, the variant
	// the circuit uses for its bit-decomposed comparisons.
	signOnesComp uint32 = 2
)

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// divide computes quotient and remainder of two 32-bit operands under the
// selected sign mode, with the instruction-set conventions: division by zero
// yields quotient 0xFFFFFFFF and remainder equal to the (possibly negated)
// numerator, and the quotient sign is the XOR of the operand signs except
// when the divisor is zero and the numerator was negated.
func divide(numer, denom, sign uint32) (quot, rem uint32) {
	onesComp := boolToU32(sign == signOnesComp)
	negNumer := sign != signUnsigned && int32(numer) < 0
	negDenom := sign == signSigned && int32(denom) < 0
	if negNumer {
		numer = ^numer + (1 - onesComp)
	}
	if negDenom {
		denom = ^denom + (1 - onesComp)
	}
	if denom == 0 {
		quot, rem = 0xffffffff, numer
	} else {
		quot, rem = numer/denom, numer%denom
	}
	quotNegOut := (boolToU32(negNumer) ^ boolToU32(negDenom)) -
		boolToU32(denom == 0)*boolToU32(negNumer)
	if quotNegOut != 0 {
		quot = ^quot + (1 - onesComp)
	}
	if negNumer {
		rem = ^rem + (1 - onesComp)
	}
	return quot, rem
}
