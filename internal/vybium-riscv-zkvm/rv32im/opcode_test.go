package rv32im

import "testing"

// Encodings assembled with the standard RV32IM toolchain.
func TestDecode(t *testing.T) {
	cases := []struct {
		name  string
		insn  uint32
		major MajorType
		minor uint32
	}{
		// add x1, x2, x3
		{"ADD", 0x003100B3, MajorCompute0, 0},
		// sub x1, x2, x3
		{"SUB", 0x403100B3, MajorCompute0, 1},
		// xor x5, x6, x7
		{"XOR", 0x007342B3, MajorCompute0, 2},
		// addi x1, x2, 42
		{"ADDI", 0x02A10093, MajorCompute0, 7},
		// xori x1, x2, 1
		{"XORI", 0x00114093, MajorCompute1, 0},
		// slti x1, x2, 1
		{"SLTI", 0x00112093, MajorCompute1, 3},
		// beq x1, x2, 8
		{"BEQ", 0x00208463, MajorCompute1, 5},
		// bgeu x1, x2, 8
		{"BGEU", 0x0020F463, MajorCompute2, 2},
		// jal x1, 16
		{"JAL", 0x010000EF, MajorCompute2, 3},
		// jalr x1, x2, 0
		{"JALR", 0x000100E7, MajorCompute2, 4},
		// lui x1, 0x12345
		{"LUI", 0x123450B7, MajorCompute2, 5},
		// auipc x1, 0x1
		{"AUIPC", 0x00001097, MajorCompute2, 6},
		// lw x1, 0(x2)
		{"LW", 0x00012083, MajorMemIO, 2},
		// lbu x1, 0(x2)
		{"LBU", 0x00014083, MajorMemIO, 3},
		// sw x1, 0(x2)
		{"SW", 0x00112023, MajorMemIO, 7},
		// sll x1, x2, x3
		{"SLL", 0x003110B3, MajorMultiply, 0},
		// slli x1, x2, 3
		{"SLLI", 0x00311093, MajorMultiply, 1},
		// mul x1, x2, x3
		{"MUL", 0x023100B3, MajorMultiply, 2},
		// mulhu x1, x2, x3
		{"MULHU", 0x023130B3, MajorMultiply, 5},
		// srl x1, x2, x3
		{"SRL", 0x003150B3, MajorDivide, 0},
		// sra x1, x2, x3
		{"SRA", 0x403150B3, MajorDivide, 1},
		// srai x1, x2, 3
		{"SRAI", 0x40315093, MajorDivide, 3},
		// div x1, x2, x3
		{"DIV", 0x023140B3, MajorDivide, 4},
		// remu x1, x2, x3
		{"REMU", 0x023170B3, MajorDivide, 7},
		// ecall
		{"ECALL", 0x00000073, MajorECall, 0},
		// ebreak
		{"EBREAK", 0x00100073, MajorECall, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			op, err := Decode(tc.insn, 0)
			if err != nil {
				t.Fatalf("Decode(0x%08x) failed: %v", tc.insn, err)
			}
			if op.Mnemonic != tc.name {
				t.Errorf("mnemonic = %s, want %s", op.Mnemonic, tc.name)
			}
			if op.Major != tc.major {
				t.Errorf("major = %s, want %s", op.Major, tc.major)
			}
			if op.Minor != tc.minor {
				t.Errorf("minor = %d, want %d", op.Minor, tc.minor)
			}
		})
	}
}

func TestDecodeIllegal(t *testing.T) {
	for _, insn := range []uint32{0x00000000, 0xFFFFFFFF, 0x0000001F} {
		if _, err := Decode(insn, 0x100); err == nil {
			t.Errorf("Decode(0x%08x) succeeded, want illegal-instruction error", insn)
		}
	}
}

func TestMajorTypeString(t *testing.T) {
	if MajorPageFault.String() != "PageFault" {
		t.Errorf("MajorPageFault.String() = %s", MajorPageFault.String())
	}
	if MajorPageFault.AsU32() != 12 {
		t.Errorf("MajorPageFault.AsU32() = %d, want 12", MajorPageFault.AsU32())
	}
}
