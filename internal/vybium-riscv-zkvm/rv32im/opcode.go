// Package rv32im classifies RV32IM instructions into the mux classes used by
// the constraint circuit.
//
// The circuit selects which constraint sub-circuit applies to a cycle from a
// coarse "major" class and a fine "minor" slot (8 slots per major). The
// major/minor layout below mirrors the circuit's mux ordering, so the values
// here are load-bearing protocol constants, not an arbitrary enumeration.
package rv32im

import "fmt"

// MajorType is the circuit's coarse classification of a cycle.
type MajorType uint32

const (
	// MajorCompute0 covers ADD, SUB, XOR, OR, AND, SLT, SLTU, ADDI.
	MajorCompute0 MajorType = 0

	// MajorCompute1 covers XORI, ORI, ANDI, SLTI, SLTIU, BEQ, BNE, BLT.
	MajorCompute1 MajorType = 1

	// MajorCompute2 covers BGE, BLTU, BGEU, JAL, JALR, LUI, AUIPC.
	MajorCompute2 MajorType = 2

	// MajorMemIO covers loads and stores.
	MajorMemIO MajorType = 3

	// MajorMultiply covers left shifts and the MUL family (a left shift is a
	// multiply by a power of two).
	MajorMultiply MajorType = 4

	// MajorDivide covers right shifts and the DIV/REM family.
	MajorDivide MajorType = 5

	// MajorVerifyAnd verifies bitwise decompositions.
	MajorVerifyAnd MajorType = 6

	// MajorVerifyDivide verifies division results.
	MajorVerifyDivide MajorType = 7

	// MajorECall covers environment calls and breakpoints.
	MajorECall MajorType = 8

	// MajorShaInit, MajorShaLoad and MajorShaMain drive the SHA accelerator.
	MajorShaInit MajorType = 9
	MajorShaLoad MajorType = 10
	MajorShaMain MajorType = 11

	// MajorPageFault forces the circuit down the paging path instead of
	// executing the instruction at pc.
	MajorPageFault MajorType = 12

	// MajorECallCopyIn copies host-provided syscall data into guest memory.
	MajorECallCopyIn MajorType = 13

	// MajorBigInt drives the bigint accelerator.
	MajorBigInt MajorType = 14

	// MajorMuxSize is the number of major mux arms.
	MajorMuxSize MajorType = 15
)

// String returns the mnemonic of the major class.
func (m MajorType) String() string {
	names := [...]string{
		"Compute0", "Compute1", "Compute2", "MemIO", "Multiply", "Divide",
		"VerifyAnd", "VerifyDivide", "ECall", "ShaInit", "ShaLoad", "ShaMain",
		"PageFault", "ECallCopyIn", "BigInt", "MuxSize",
	}
	if int(m) < len(names) {
		return names[m]
	}
	return fmt.Sprintf("MajorType(%d)", uint32(m))
}

// AsU32 returns the major class as a raw mux selector.
func (m MajorType) AsU32() uint32 {
	return uint32(m)
}

// OpCode is one decoded instruction with its circuit classification.
type OpCode struct {
	Insn     uint32
	Mnemonic string
	Major    MajorType
	Minor    uint32
}

func (op OpCode) String() string {
	return fmt.Sprintf("%s (major: %s, minor: %d)", op.Mnemonic, op.Major, op.Minor)
}

func newOpCode(insn uint32, mnemonic string, major MajorType, minor uint32) (OpCode, error) {
	return OpCode{Insn: insn, Mnemonic: mnemonic, Major: major, Minor: minor}, nil
}

// Decode classifies the instruction word at pc. pc is only used for error
// reporting; classification depends on the instruction alone.
func Decode(insn uint32, pc uint32) (OpCode, error) {
	opcode := insn & 0x7F
	funct3 := insn >> 12 & 0x07
	funct7 := insn >> 25 & 0x7F

	switch opcode {
	case 0b0110111:
		return newOpCode(insn, "LUI", MajorCompute2, 5)
	case 0b0010111:
		return newOpCode(insn, "AUIPC", MajorCompute2, 6)
	case 0b1101111:
		return newOpCode(insn, "JAL", MajorCompute2, 3)
	case 0b1100111:
		if funct3 == 0 {
			return newOpCode(insn, "JALR", MajorCompute2, 4)
		}
	case 0b1100011:
		switch funct3 {
		case 0b000:
			return newOpCode(insn, "BEQ", MajorCompute1, 5)
		case 0b001:
			return newOpCode(insn, "BNE", MajorCompute1, 6)
		case 0b100:
			return newOpCode(insn, "BLT", MajorCompute1, 7)
		case 0b101:
			return newOpCode(insn, "BGE", MajorCompute2, 0)
		case 0b110:
			return newOpCode(insn, "BLTU", MajorCompute2, 1)
		case 0b111:
			return newOpCode(insn, "BGEU", MajorCompute2, 2)
		}
	case 0b0000011:
		switch funct3 {
		case 0b000:
			return newOpCode(insn, "LB", MajorMemIO, 0)
		case 0b001:
			return newOpCode(insn, "LH", MajorMemIO, 1)
		case 0b010:
			return newOpCode(insn, "LW", MajorMemIO, 2)
		case 0b100:
			return newOpCode(insn, "LBU", MajorMemIO, 3)
		case 0b101:
			return newOpCode(insn, "LHU", MajorMemIO, 4)
		}
	case 0b0100011:
		switch funct3 {
		case 0b000:
			return newOpCode(insn, "SB", MajorMemIO, 5)
		case 0b001:
			return newOpCode(insn, "SH", MajorMemIO, 6)
		case 0b010:
			return newOpCode(insn, "SW", MajorMemIO, 7)
		}
	case 0b0010011:
		switch funct3 {
		case 0b000:
			return newOpCode(insn, "ADDI", MajorCompute0, 7)
		case 0b100:
			return newOpCode(insn, "XORI", MajorCompute1, 0)
		case 0b110:
			return newOpCode(insn, "ORI", MajorCompute1, 1)
		case 0b111:
			return newOpCode(insn, "ANDI", MajorCompute1, 2)
		case 0b010:
			return newOpCode(insn, "SLTI", MajorCompute1, 3)
		case 0b011:
			return newOpCode(insn, "SLTIU", MajorCompute1, 4)
		case 0b001:
			if funct7 == 0b0000000 {
				return newOpCode(insn, "SLLI", MajorMultiply, 1)
			}
		case 0b101:
			switch funct7 {
			case 0b0000000:
				return newOpCode(insn, "SRLI", MajorDivide, 2)
			case 0b0100000:
				return newOpCode(insn, "SRAI", MajorDivide, 3)
			}
		}
	case 0b0110011:
		switch funct7 {
		case 0b0000000:
			switch funct3 {
			case 0b000:
				return newOpCode(insn, "ADD", MajorCompute0, 0)
			case 0b100:
				return newOpCode(insn, "XOR", MajorCompute0, 2)
			case 0b110:
				return newOpCode(insn, "OR", MajorCompute0, 3)
			case 0b111:
				return newOpCode(insn, "AND", MajorCompute0, 4)
			case 0b010:
				return newOpCode(insn, "SLT", MajorCompute0, 5)
			case 0b011:
				return newOpCode(insn, "SLTU", MajorCompute0, 6)
			case 0b001:
				return newOpCode(insn, "SLL", MajorMultiply, 0)
			case 0b101:
				return newOpCode(insn, "SRL", MajorDivide, 0)
			}
		case 0b0100000:
			switch funct3 {
			case 0b000:
				return newOpCode(insn, "SUB", MajorCompute0, 1)
			case 0b101:
				return newOpCode(insn, "SRA", MajorDivide, 1)
			}
		case 0b0000001:
			switch funct3 {
			case 0b000:
				return newOpCode(insn, "MUL", MajorMultiply, 2)
			case 0b001:
				return newOpCode(insn, "MULH", MajorMultiply, 3)
			case 0b010:
				return newOpCode(insn, "MULHSU", MajorMultiply, 4)
			case 0b011:
				return newOpCode(insn, "MULHU", MajorMultiply, 5)
			case 0b100:
				return newOpCode(insn, "DIV", MajorDivide, 4)
			case 0b101:
				return newOpCode(insn, "DIVU", MajorDivide, 5)
			case 0b110:
				return newOpCode(insn, "REM", MajorDivide, 6)
			case 0b111:
				return newOpCode(insn, "REMU", MajorDivide, 7)
			}
		}
	case 0b1110011:
		if funct3 == 0 {
			switch insn >> 20 {
			case 0:
				return newOpCode(insn, "ECALL", MajorECall, 0)
			case 1:
				return newOpCode(insn, "EBREAK", MajorECall, 1)
			}
		}
	}

	return OpCode{}, fmt.Errorf("illegal instruction 0x%08x at pc 0x%08x", insn, pc)
}
