package exec

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-riscv-zkvm/internal/vybium-riscv-zkvm/plonk"
	"github.com/vybium/vybium-riscv-zkvm/internal/vybium-riscv-zkvm/rv32im"
)

// Guest ABI registers holding the ecall selector and its mode argument.
const (
	regT0 = 5
	regA0 = 10
)

// Ecall selectors, as loaded from t0 on an ECALL cycle.
const (
	ecallHalt     uint32 = 0
	ecallInput    uint32 = 1
	ecallSoftware uint32 = 2
	ecallSha      uint32 = 3
	ecallBigInt   uint32 = 4
)

// Halt modes, as loaded from a0 on a HALT ecall.
const (
	haltTerminate uint32 = 0
	haltPause     uint32 = 1
	haltSplit     uint32 = 2
)

// Extern identifies one named circuit request. Keeping the set closed gives
// the dispatch exhaustiveness instead of a stringly-typed fallback.
type Extern int

const (
	ExternHalt Extern = iota
	ExternTrace
	ExternGetMajor
	ExternGetMinor
	ExternDivide
	ExternBigIntDivide
	ExternPageInfo
	ExternRamRead
	ExternRamWrite
	ExternPlonkRead
	ExternPlonkWrite
	ExternPlonkReadAccum
	ExternPlonkWriteAccum
	ExternLog
	ExternSyscallInit
	ExternSyscallBody
	ExternSyscallFini
)

var externNames = map[string]Extern{
	"halt":            ExternHalt,
	"trace":           ExternTrace,
	"getMajor":        ExternGetMajor,
	"getMinor":        ExternGetMinor,
	"divide":          ExternDivide,
	"bigintDivide":    ExternBigIntDivide,
	"pageInfo":        ExternPageInfo,
	"ramRead":         ExternRamRead,
	"ramWrite":        ExternRamWrite,
	"plonkRead":       ExternPlonkRead,
	"plonkWrite":      ExternPlonkWrite,
	"plonkReadAccum":  ExternPlonkReadAccum,
	"plonkWriteAccum": ExternPlonkWriteAccum,
	"log":             ExternLog,
	"syscallInit":     ExternSyscallInit,
	"syscallBody":     ExternSyscallBody,
	"syscallFini":     ExternSyscallFini,
}

// MachineContext answers circuit extern requests for one segment's trace
// generation. One context exclusively owns one memory image and its fault
// queues; nothing here is safe for concurrent use, and nothing needs to be:
// the circuit evaluator drives it synchronously, one request per cycle.
type MachineContext struct {
	memory *MemoryState
	faults PageFaults

	syscallOutData []uint32
	syscallOutRegs [][2]uint32

	isHalted bool

	// While flushing, no instruction executes; the remaining dirty pages
	// are reported through pageInfo instead. Once set, never cleared.
	isFlushing bool

	// Diagnostic only: words paged in so far, to catch a segment whose
	// access pattern diverges from its fault schedule.
	residentWords map[uint32]struct{}

	exitCode    ExitCode
	insnCounter uint32

	log *logrus.Logger
}

// NewMachineContext builds the bridge for one segment. The logger carries
// the verbosity threshold for the log extern; nil uses the process logger.
func NewMachineContext(segment *Segment, logger *logrus.Logger) *MachineContext {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	var outData []uint32
	var outRegs [][2]uint32
	for _, syscall := range segment.Syscalls {
		outData = append(outData, syscall.ToGuest...)
		outRegs = append(outRegs, syscall.Regs)
	}
	return &MachineContext{
		memory:         NewMemoryState(segment.PreImage.Clone()),
		faults:         segment.Faults.Clone(),
		syscallOutData: outData,
		syscallOutRegs: outRegs,
		residentWords:  make(map[uint32]struct{}),
		exitCode:       segment.ExitCode,
		log:            logger,
	}
}

// IsHalted reports whether a halt request has been seen.
func (m *MachineContext) IsHalted() bool {
	return m.isHalted
}

// IsFlushing reports whether the machine is flushing dirty pages.
func (m *MachineContext) IsFlushing() bool {
	return m.isFlushing
}

// InsnCounter returns the number of instruction cycles completed.
func (m *MachineContext) InsnCounter() uint32 {
	return m.insnCounter
}

// Call answers one named extern request. args and outs have the fixed arity
// the circuit declares for the request; extra carries the request's string
// payload (table name or format string). Input-domain failures return an
// error; protocol violations panic.
func (m *MachineContext) Call(cycle int, name, extra string, args, outs []field.Element) error {
	extern, ok := externNames[name]
	if !ok {
		panic(fmt.Sprintf("unsupported extern: %s", name))
	}
	switch extern {
	case ExternHalt:
		m.halt(cycle, uint32(args[0].Value()), uint32(args[1].Value()))
		return nil
	case ExternTrace:
		return nil
	case ExternGetMajor:
		major, err := m.getMajor(cycle, uint32(args[1].Value()))
		if err != nil {
			return err
		}
		outs[0] = major
		return nil
	case ExternGetMinor:
		insn := mergeWord8(args[0], args[1], args[2], args[3])
		opcode, err := rv32im.Decode(insn, 0)
		if err != nil {
			return err
		}
		outs[0] = field.New(uint64(opcode.Minor))
		return nil
	case ExternDivide:
		numer := mergeWord8(args[0], args[1], args[2], args[3])
		denom := mergeWord8(args[4], args[5], args[6], args[7])
		quot, rem := divide(numer, denom, uint32(args[8].Value()))
		quotLimbs := splitWord8(quot)
		remLimbs := splitWord8(rem)
		copy(outs[0:4], quotLimbs[:])
		copy(outs[4:8], remLimbs[:])
		return nil
	case ExternBigIntDivide:
		q, r, err := bigintDivide(args[:BigIntWidthBytes*2], args[BigIntWidthBytes*2:])
		if err != nil {
			return err
		}
		copy(outs[:BigIntWidthBytes], q[:])
		copy(outs[BigIntWidthBytes:], r[:])
		return nil
	case ExternPageInfo:
		isRead, pageIdx, done := m.pageInfo()
		outs[0], outs[1], outs[2] = isRead, pageIdx, done
		return nil
	case ExternRamRead:
		data := m.ramRead(cycle, uint32(args[0].Value()), uint32(args[1].Value()))
		copy(outs[0:4], data[:])
		return nil
	case ExternRamWrite:
		data := mergeWord8(args[1], args[2], args[3], args[4])
		m.ramWrite(uint32(args[0].Value()), data, uint32(args[5].Value()))
		return nil
	case ExternPlonkRead:
		m.plonkRead(extra, outs)
		return nil
	case ExternPlonkWrite:
		m.plonkWrite(extra, args)
		return nil
	case ExternPlonkReadAccum:
		m.plonkReadAccum(extra, outs)
		return nil
	case ExternPlonkWriteAccum:
		m.plonkWriteAccum(extra, args)
		return nil
	case ExternLog:
		m.logExtern(extra, args)
		return nil
	case ExternSyscallInit:
		return nil
	case ExternSyscallBody:
		word := m.syscallBody()
		limbs := splitWord8(word)
		copy(outs[0:4], limbs[:])
		return nil
	case ExternSyscallFini:
		a0, a1, err := m.syscallFini()
		if err != nil {
			return err
		}
		a0Limbs := splitWord8(a0)
		a1Limbs := splitWord8(a1)
		copy(outs[0:4], a0Limbs[:])
		copy(outs[4:8], a1Limbs[:])
		return nil
	default:
		panic(fmt.Sprintf("unsupported extern: %s", name))
	}
}

// Sort reorders both permutation tables into canonical order. Invoked once
// per pass at the phase boundary, before any plonk reads.
func (m *MachineContext) Sort(name string) {
	m.memory.RamPlonk.Sort()
	m.memory.BytesPlonk.Sort()
}

// CalcPrefixProducts finalizes every grand-product accumulator.
func (m *MachineContext) CalcPrefixProducts() {
	for _, accum := range m.memory.PlonkAccum {
		accum.CalcPrefixProducts()
	}
}

func (m *MachineContext) halt(cycle int, exitCode, pc uint32) {
	if m.isHalted {
		return
	}
	switch exitCode {
	case haltTerminate:
		m.log.Debugf("HALT[%d]> pc: 0x%08x", cycle, pc)
	case haltPause:
		m.log.Debugf("PAUSE[%d]> pc: 0x%08x", cycle, pc)
		m.isFlushing = true
	case haltSplit:
		m.log.Debugf("SPLIT[%d]> pc: 0x%08x", cycle, pc)
	default:
		panic(fmt.Sprintf("unsupported exit_code: %d", exitCode))
	}
	m.isHalted = true
}

// getMajor classifies the instruction at pc for the current cycle. While
// read faults are outstanding, or while flushing, the cycle is forced down
// the page-fault path and the instruction counter does not advance.
func (m *MachineContext) getMajor(cycle int, pc uint32) (field.Element, error) {
	insn := m.memory.loadU32(pc)
	opcode, err := rv32im.Decode(insn, pc)
	if err != nil {
		return field.Zero, err
	}

	if opcode.Major == rv32im.MajorECall {
		minor := m.memory.loadRegister(regT0)
		if minor == ecallHalt {
			mode := m.memory.loadRegister(regA0)
			if mode == haltPause {
				m.isFlushing = true
			}
		}
	}

	// Forced mid-segment flush boundary. The flushing flag is tested before
	// being set so the transition cycle is exactly the one the natural PAUSE
	// path would have produced had it fired first.
	if m.exitCode.Kind == ExitSystemSplit && m.insnCounter == m.exitCode.SplitInsn {
		if !m.isFlushing {
			m.log.Debugf("FLUSH[%d]> pc: 0x%08x", m.insnCounter, pc)
			m.isFlushing = true
		}
	}

	if !m.faults.Reads.IsEmpty() {
		return field.New(uint64(rv32im.MajorPageFault.AsU32())), nil
	}
	if m.isFlushing {
		return field.New(uint64(rv32im.MajorPageFault.AsU32())), nil
	}

	m.log.Debugf("[%d] pc: 0x%08x, insn: 0x%08x => %s", cycle, pc, insn, opcode)
	m.insnCounter++

	return field.New(uint64(opcode.Major.AsU32())), nil
}

// pageInfo drains the page-fault queues: all read faults first, highest page
// index first; then, only while flushing, write faults lowest index first;
// then done. The asymmetric ordering must match the paging circuit exactly.
func (m *MachineContext) pageInfo() (isRead, pageIdx, done field.Element) {
	if idx, ok := m.faults.Reads.PopMax(); ok {
		return field.One, field.New(uint64(idx)), field.Zero
	}

	if m.isFlushing {
		if idx, ok := m.faults.Writes.PopMin(); ok {
			m.log.Debugf("page_write: 0x%08x", idx)
			return field.Zero, field.New(uint64(idx)), field.Zero
		}
	}

	return field.Zero, field.Zero, field.One
}

// ramRead loads the word at the given word address. A paging access marks
// the word resident; any other access must find it already resident.
func (m *MachineContext) ramRead(cycle int, addr, op uint32) [4]field.Element {
	if op == MemOpPageIO {
		m.residentWords[addr] = struct{}{}
	} else if _, ok := m.residentWords[addr]; !ok {
		byteAddr := addr * 4
		pageIdx := m.memory.RAM.Info.PageIndex(byteAddr)
		entryAddr := m.memory.RAM.Info.PageEntryAddr(pageIdx)
		m.log.Debugf("[%d] ram_read: 0x%08x, op: %d, entry_addr: 0x%08x, page_idx: %d",
			cycle, byteAddr, op, entryAddr, pageIdx)
		panic(fmt.Sprintf("memory read before page in: 0x%08x", byteAddr))
	}
	return splitWord8(m.memory.loadU32(addr * 4))
}

// ramWrite stores a word at the given word address, under the same
// residency gate as ramRead.
func (m *MachineContext) ramWrite(addr, data, op uint32) {
	if op == MemOpPageIO {
		m.residentWords[addr] = struct{}{}
	} else if _, ok := m.residentWords[addr]; !ok {
		panic(fmt.Sprintf("memory write before page in: 0x%08x", addr*4))
	}
	m.memory.storeU32(addr*4, data)
}

func (m *MachineContext) plonkRead(name string, outs []field.Element) {
	switch name {
	case "ram":
		m.memory.RamPlonk.Read(outs)
	case "bytes":
		m.memory.BytesPlonk.Read(outs)
	default:
		panic(fmt.Sprintf("unknown plonk type %s", name))
	}
}

func (m *MachineContext) plonkWrite(name string, args []field.Element) {
	switch name {
	case "ram":
		m.memory.RamPlonk.Write(args)
	case "bytes":
		m.memory.BytesPlonk.Write(args)
	default:
		panic(fmt.Sprintf("unknown plonk type %s", name))
	}
}

func (m *MachineContext) plonkReadAccum(name string, outs []field.Element) {
	accum, ok := m.memory.PlonkAccum[name]
	if !ok {
		panic(fmt.Sprintf("unknown plonk accum %s", name))
	}
	accum.Read(outs)
}

func (m *MachineContext) plonkWriteAccum(name string, args []field.Element) {
	accum, ok := m.memory.PlonkAccum[name]
	if !ok {
		accum = plonk.NewAccum()
		m.memory.PlonkAccum[name] = accum
	}
	accum.Write(args)
}

// logExtern formats a guest diagnostic. Formatting, and therefore argument
// consumption, is skipped entirely below trace verbosity.
func (m *MachineContext) logExtern(msg string, args []field.Element) {
	if !m.log.IsLevelEnabled(logrus.TraceLevel) {
		return
	}
	words := make([]uint32, len(args))
	for i, arg := range args {
		words[i] = uint32(arg.Value())
	}
	m.log.Trace(formatLog(msg, words))
}

// syscallBody streams the next queued syscall output word, zero once the
// current record is exhausted.
func (m *MachineContext) syscallBody() uint32 {
	if len(m.syscallOutData) == 0 {
		return 0
	}
	word := m.syscallOutData[0]
	m.syscallOutData = m.syscallOutData[1:]
	return word
}

// syscallFini replays the next queued syscall register pair.
func (m *MachineContext) syscallFini() (uint32, uint32, error) {
	if len(m.syscallOutRegs) == 0 {
		return 0, 0, fmt.Errorf("invalid syscall records")
	}
	regs := m.syscallOutRegs[0]
	m.syscallOutRegs = m.syscallOutRegs[1:]
	m.log.Debugf("syscall_fini: (0x%08x, 0x%08x)", regs[0], regs[1])
	return regs[0], regs[1], nil
}
