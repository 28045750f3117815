// Package vybiumriscvzkvm provides the execution bridge of the Vybium RISC-V
// zkVM: the host-side machine that answers the circuit's per-cycle extern
// requests during trace generation for one execution segment.
//
// The circuit evaluator drives a Bridge synchronously, one request per cycle:
// instruction classification, paged-memory access with page-fault emulation,
// hardware-style division, 256-bit division for the bigint accelerator,
// permutation-table bookkeeping with grand-product accumulators, host syscall
// replay, and guest diagnostics.
//
// # Quick Start
//
// Replaying a segment against the circuit:
//
//	img, err := vybiumriscvzkvm.NewMemoryImage(buf, vybiumriscvzkvm.DefaultImageInfo())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	segment := vybiumriscvzkvm.NewSegment(img, faults, syscalls,
//		vybiumriscvzkvm.ExitCode{Kind: vybiumriscvzkvm.ExitTerminate})
//
//	bridge, err := vybiumriscvzkvm.NewBridge(segment, vybiumriscvzkvm.DefaultBridgeConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// One extern request per cycle, driven by the circuit evaluator.
//	outs := make([]vybiumriscvzkvm.FieldElement, 1)
//	if err := bridge.Call(cycle, "getMajor", "", args, outs); err != nil {
//		log.Fatal(err)
//	}
//
// # Architecture
//
// Vybium RISC-V zkVM uses a hybrid public/private architecture:
//
// - pkg/vybium-riscv-zkvm/: Public API (this package)
// - internal/vybium-riscv-zkvm/: Private implementation (not importable)
//
// The public API provides stable interfaces for:
// - Memory image construction and attestation
// - Segment description (page faults, syscall records, exit codes)
// - The per-cycle extern bridge
//
// Implementation details in internal/ can be refactored without breaking the
// public API.
//
// # Error Handling
//
// Failures split into two tiers. Input-domain failures (an undecodable
// instruction, a bigint operand outside the accelerator's domain, an
// exhausted syscall queue) come back as error returns. Protocol violations
// (an unknown extern name, a memory access before page-in, a permutation
// read past the end) indicate a circuit/host mismatch and panic.
//
// # License
//
// See LICENSE file in the repository root.
package vybiumriscvzkvm
