package exec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-riscv-zkvm/internal/vybium-riscv-zkvm/image"
	"github.com/vybium/vybium-riscv-zkvm/internal/vybium-riscv-zkvm/rv32im"
)

// Small layout so tests do not allocate the production address space.
func testImage(t *testing.T) *image.MemoryImage {
	t.Helper()
	img, err := image.New(make([]byte, 0x4000), image.Info{
		PageSize:      1024,
		RegisterBase:  0x1000,
		PageTableBase: 0x2000,
	})
	if err != nil {
		t.Fatalf("image.New failed: %v", err)
	}
	return img
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestMachine(t *testing.T, seg *Segment) *MachineContext {
	t.Helper()
	return NewMachineContext(seg, quietLogger())
}

func elems(vals ...uint64) []field.Element {
	out := make([]field.Element, len(vals))
	for i, v := range vals {
		out[i] = field.New(v)
	}
	return out
}

func wordLimbs(v uint32) []field.Element {
	limbs := splitWord8(v)
	return limbs[:]
}

func TestPageFaultDrainOrder(t *testing.T) {
	seg := &Segment{
		PreImage: testImage(t),
		Faults: PageFaults{
			Reads:  NewPageSet([]uint32{3, 1, 4}),
			Writes: NewPageSet([]uint32{2, 5}),
		},
		ExitCode: ExitCode{Kind: ExitTerminate},
	}
	m := newTestMachine(t, seg)

	// Enter the flushing state through a PAUSE halt so write faults drain.
	if err := m.Call(0, "halt", "", elems(uint64(haltPause), 0x100), nil); err != nil {
		t.Fatalf("halt failed: %v", err)
	}
	if !m.IsFlushing() {
		t.Fatal("PAUSE halt did not set flushing")
	}

	want := []struct {
		isRead  uint64
		pageIdx uint64
		done    uint64
	}{
		// Reads drain highest page first, then writes lowest first.
		{1, 4, 0}, {1, 3, 0}, {1, 1, 0},
		{0, 2, 0}, {0, 5, 0},
		{0, 0, 1},
	}
	outs := make([]field.Element, 3)
	for i, w := range want {
		if err := m.Call(i, "pageInfo", "", elems(0x100), outs); err != nil {
			t.Fatalf("pageInfo %d failed: %v", i, err)
		}
		if outs[0].Value() != w.isRead || outs[1].Value() != w.pageIdx || outs[2].Value() != w.done {
			t.Errorf("pageInfo %d = (%d, %d, %d), want (%d, %d, %d)", i,
				outs[0].Value(), outs[1].Value(), outs[2].Value(), w.isRead, w.pageIdx, w.done)
		}
	}
}

func TestGetMajorGating(t *testing.T) {
	t.Run("OutstandingReadFaults", func(t *testing.T) {
		img := testImage(t)
		img.StoreU32(0x100, 0x00112023) // sw x1, 0(x2)
		seg := &Segment{
			PreImage: img,
			Faults:   PageFaults{Reads: NewPageSet([]uint32{0})},
			ExitCode: ExitCode{Kind: ExitTerminate},
		}
		m := newTestMachine(t, seg)

		outs := make([]field.Element, 1)
		if err := m.Call(0, "getMajor", "", elems(0, 0x100), outs); err != nil {
			t.Fatalf("getMajor failed: %v", err)
		}
		if outs[0].Value() != uint64(rv32im.MajorPageFault.AsU32()) {
			t.Errorf("major = %d, want PageFault", outs[0].Value())
		}
		if m.InsnCounter() != 0 {
			t.Errorf("insn counter advanced on a page-fault cycle")
		}

		// Drain the one read fault; the true major comes through.
		if err := m.Call(1, "pageInfo", "", elems(0x100), make([]field.Element, 3)); err != nil {
			t.Fatalf("pageInfo failed: %v", err)
		}
		if err := m.Call(2, "getMajor", "", elems(2, 0x100), outs); err != nil {
			t.Fatalf("getMajor failed: %v", err)
		}
		if outs[0].Value() != uint64(rv32im.MajorMemIO.AsU32()) {
			t.Errorf("major = %d, want MemIO", outs[0].Value())
		}
		if m.InsnCounter() != 1 {
			t.Errorf("insn counter = %d, want 1", m.InsnCounter())
		}
	})

	t.Run("EcallHaltPauseSetsFlushing", func(t *testing.T) {
		img := testImage(t)
		img.StoreU32(0x100, 0x00000073) // ecall
		// t0 = 0 selects the HALT ecall; a0 = PAUSE requests a flush.
		img.StoreU32(0x1000+regA0*4, haltPause)
		seg := &Segment{PreImage: img, ExitCode: ExitCode{Kind: ExitTerminate}}
		m := newTestMachine(t, seg)

		outs := make([]field.Element, 1)
		if err := m.Call(0, "getMajor", "", elems(0, 0x100), outs); err != nil {
			t.Fatalf("getMajor failed: %v", err)
		}
		if !m.IsFlushing() {
			t.Error("HALT/PAUSE ecall did not set flushing")
		}
		if outs[0].Value() != uint64(rv32im.MajorPageFault.AsU32()) {
			t.Errorf("major = %d, want PageFault while flushing", outs[0].Value())
		}
		if m.InsnCounter() != 0 {
			t.Error("insn counter advanced while flushing")
		}
	})

	t.Run("SystemSplitForcesFlush", func(t *testing.T) {
		img := testImage(t)
		img.StoreU32(0x100, 0x003100B3) // add x1, x2, x3
		seg := &Segment{
			PreImage: img,
			ExitCode: ExitCode{Kind: ExitSystemSplit, SplitInsn: 1},
		}
		m := newTestMachine(t, seg)

		outs := make([]field.Element, 1)
		// First instruction executes normally.
		if err := m.Call(0, "getMajor", "", elems(0, 0x100), outs); err != nil {
			t.Fatalf("getMajor failed: %v", err)
		}
		if outs[0].Value() != uint64(rv32im.MajorCompute0.AsU32()) {
			t.Errorf("major = %d, want Compute0", outs[0].Value())
		}

		// The counter has reached the split instruction: forced flush.
		if err := m.Call(1, "getMajor", "", elems(1, 0x100), outs); err != nil {
			t.Fatalf("getMajor failed: %v", err)
		}
		if !m.IsFlushing() {
			t.Error("split instruction did not force a flush")
		}
		if outs[0].Value() != uint64(rv32im.MajorPageFault.AsU32()) {
			t.Errorf("major = %d, want PageFault", outs[0].Value())
		}
		if m.InsnCounter() != 1 {
			t.Errorf("insn counter = %d, want 1", m.InsnCounter())
		}
	})
}

func TestGetMinor(t *testing.T) {
	seg := &Segment{PreImage: testImage(t), ExitCode: ExitCode{Kind: ExitTerminate}}
	m := newTestMachine(t, seg)

	outs := make([]field.Element, 1)
	if err := m.Call(0, "getMinor", "", wordLimbs(0x00112023), outs); err != nil { // sw
		t.Fatalf("getMinor failed: %v", err)
	}
	if outs[0].Value() != 7 {
		t.Errorf("minor = %d, want 7", outs[0].Value())
	}
}

func TestRamResidencyGate(t *testing.T) {
	t.Run("PageInThenAccess", func(t *testing.T) {
		seg := &Segment{PreImage: testImage(t), ExitCode: ExitCode{Kind: ExitTerminate}}
		m := newTestMachine(t, seg)

		// Page the word in with a paging write, then access it normally.
		args := append(elems(0x40), wordLimbs(0xCAFEF00D)...)
		args = append(args, elems(uint64(MemOpPageIO))...)
		if err := m.Call(0, "ramWrite", "", args, nil); err != nil {
			t.Fatalf("ramWrite failed: %v", err)
		}

		outs := make([]field.Element, 4)
		if err := m.Call(1, "ramRead", "", elems(0x40, uint64(MemOpRead)), outs); err != nil {
			t.Fatalf("ramRead failed: %v", err)
		}
		if got := mergeWord8(outs[0], outs[1], outs[2], outs[3]); got != 0xCAFEF00D {
			t.Errorf("ramRead = 0x%08x, want 0xCAFEF00D", got)
		}
	})

	t.Run("ReadBeforePageInPanics", func(t *testing.T) {
		seg := &Segment{PreImage: testImage(t), ExitCode: ExitCode{Kind: ExitTerminate}}
		m := newTestMachine(t, seg)

		defer func() {
			if recover() == nil {
				t.Error("expected panic on read before page in")
			}
		}()
		m.Call(0, "ramRead", "", elems(0x41, uint64(MemOpRead)), make([]field.Element, 4))
	})

	t.Run("WriteBeforePageInPanics", func(t *testing.T) {
		seg := &Segment{PreImage: testImage(t), ExitCode: ExitCode{Kind: ExitTerminate}}
		m := newTestMachine(t, seg)

		defer func() {
			if recover() == nil {
				t.Error("expected panic on write before page in")
			}
		}()
		args := append(elems(0x41), wordLimbs(1)...)
		args = append(args, elems(uint64(MemOpWrite))...)
		m.Call(0, "ramWrite", "", args, nil)
	})
}

func TestHaltMonotonic(t *testing.T) {
	seg := &Segment{PreImage: testImage(t), ExitCode: ExitCode{Kind: ExitTerminate}}
	m := newTestMachine(t, seg)

	if err := m.Call(0, "halt", "", elems(uint64(haltTerminate), 0x100), nil); err != nil {
		t.Fatalf("halt failed: %v", err)
	}
	if !m.IsHalted() {
		t.Fatal("halt did not set halted")
	}
	if m.IsFlushing() {
		t.Error("TERMINATE halt set flushing")
	}

	// A second halt on an already-halted machine is ignored, so a PAUSE
	// after TERMINATE cannot start a flush.
	if err := m.Call(1, "halt", "", elems(uint64(haltPause), 0x100), nil); err != nil {
		t.Fatalf("second halt failed: %v", err)
	}
	if m.IsFlushing() {
		t.Error("halt after halt changed the flushing state")
	}
}

func TestSyscallReplay(t *testing.T) {
	seg := &Segment{
		PreImage: testImage(t),
		Syscalls: []SyscallRecord{
			{ToGuest: []uint32{0x11, 0x22}, Regs: [2]uint32{3, 4}},
			{ToGuest: []uint32{0x33}, Regs: [2]uint32{6, 7}},
		},
		ExitCode: ExitCode{Kind: ExitTerminate},
	}
	m := newTestMachine(t, seg)

	outs := make([]field.Element, 4)
	for i, want := range []uint32{0x11, 0x22, 0x33, 0, 0} {
		if err := m.Call(i, "syscallBody", "", nil, outs); err != nil {
			t.Fatalf("syscallBody failed: %v", err)
		}
		if got := mergeWord8(outs[0], outs[1], outs[2], outs[3]); got != want {
			t.Errorf("syscallBody %d = 0x%x, want 0x%x", i, got, want)
		}
	}

	regOuts := make([]field.Element, 8)
	for i, want := range [][2]uint32{{3, 4}, {6, 7}} {
		if err := m.Call(i, "syscallFini", "", nil, regOuts); err != nil {
			t.Fatalf("syscallFini failed: %v", err)
		}
		a0 := mergeWord8(regOuts[0], regOuts[1], regOuts[2], regOuts[3])
		a1 := mergeWord8(regOuts[4], regOuts[5], regOuts[6], regOuts[7])
		if a0 != want[0] || a1 != want[1] {
			t.Errorf("syscallFini %d = (%d, %d), want (%d, %d)", i, a0, a1, want[0], want[1])
		}
	}

	// The register queue is exhausted: an input-domain error, not a panic.
	if err := m.Call(9, "syscallFini", "", nil, regOuts); err == nil {
		t.Error("expected error on exhausted syscall records")
	}
}

func TestDivideExtern(t *testing.T) {
	seg := &Segment{PreImage: testImage(t), ExitCode: ExitCode{Kind: ExitTerminate}}
	m := newTestMachine(t, seg)

	args := append(wordLimbs(100), wordLimbs(7)...)
	args = append(args, elems(uint64(signUnsigned))...)
	outs := make([]field.Element, 8)
	if err := m.Call(0, "divide", "", args, outs); err != nil {
		t.Fatalf("divide failed: %v", err)
	}
	quot := mergeWord8(outs[0], outs[1], outs[2], outs[3])
	rem := mergeWord8(outs[4], outs[5], outs[6], outs[7])
	if quot != 14 || rem != 2 {
		t.Errorf("divide = (%d, %d), want (14, 2)", quot, rem)
	}
}

func TestPlonkExterns(t *testing.T) {
	seg := &Segment{PreImage: testImage(t), ExitCode: ExitCode{Kind: ExitTerminate}}
	m := newTestMachine(t, seg)

	// Two RAM rows out of canonical order.
	if err := m.Call(0, "plonkWrite", "ram", elems(8, 1, 0, 1, 0, 0, 0), nil); err != nil {
		t.Fatalf("plonkWrite failed: %v", err)
	}
	if err := m.Call(1, "plonkWrite", "ram", elems(4, 2, 0, 2, 0, 0, 0), nil); err != nil {
		t.Fatalf("plonkWrite failed: %v", err)
	}
	m.Sort("ram")

	outs := make([]field.Element, 7)
	if err := m.Call(2, "plonkRead", "ram", nil, outs); err != nil {
		t.Fatalf("plonkRead failed: %v", err)
	}
	if outs[0].Value() != 4 {
		t.Errorf("first sorted row addr = %d, want 4", outs[0].Value())
	}

	// Accumulators are created on first write and finalized in one sweep.
	if err := m.Call(3, "plonkWriteAccum", "ram", elems(2, 3), nil); err != nil {
		t.Fatalf("plonkWriteAccum failed: %v", err)
	}
	m.CalcPrefixProducts()
	accOuts := make([]field.Element, 2)
	if err := m.Call(4, "plonkReadAccum", "ram", nil, accOuts); err != nil {
		t.Fatalf("plonkReadAccum failed: %v", err)
	}
	if accOuts[0].Value() != 2 || accOuts[1].Value() != 6 {
		t.Errorf("accum = (%d, %d), want (2, 6)", accOuts[0].Value(), accOuts[1].Value())
	}
}

func TestPlonkUnknownTablePanics(t *testing.T) {
	seg := &Segment{PreImage: testImage(t), ExitCode: ExitCode{Kind: ExitTerminate}}
	m := newTestMachine(t, seg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on unknown plonk table")
		}
	}()
	m.Call(0, "plonkRead", "bogus", nil, make([]field.Element, 7))
}

func TestUnsupportedExternPanics(t *testing.T) {
	seg := &Segment{PreImage: testImage(t), ExitCode: ExitCode{Kind: ExitTerminate}}
	m := newTestMachine(t, seg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic on unsupported extern")
		}
	}()
	m.Call(0, "frobnicate", "", nil, nil)
}

func TestLogExtern(t *testing.T) {
	t.Run("TraceLevelFormats", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logrus.New()
		logger.SetOutput(&buf)
		logger.SetLevel(logrus.TraceLevel)

		seg := &Segment{PreImage: testImage(t), ExitCode: ExitCode{Kind: ExitTerminate}}
		m := NewMachineContext(seg, logger)

		if err := m.Call(0, "log", "val=%4u hex=%02x", elems(7, 255), nil); err != nil {
			t.Fatalf("log failed: %v", err)
		}
		if !strings.Contains(buf.String(), "hex=0xff") {
			t.Errorf("log output missing formatted text: %q", buf.String())
		}
	})

	t.Run("QuietLevelSkipsFormatting", func(t *testing.T) {
		var buf bytes.Buffer
		logger := logrus.New()
		logger.SetOutput(&buf)
		logger.SetLevel(logrus.InfoLevel)

		seg := &Segment{PreImage: testImage(t), ExitCode: ExitCode{Kind: ExitTerminate}}
		m := NewMachineContext(seg, logger)

		// The argument count is wrong, but below trace verbosity no
		// formatting runs and no arguments are consumed.
		if err := m.Call(0, "log", "a=%u b=%u c=%u", elems(1), nil); err != nil {
			t.Fatalf("log failed: %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("unexpected log output: %q", buf.String())
		}
	})
}

func TestMachineOwnsImageCopy(t *testing.T) {
	img := testImage(t)
	img.StoreU32(0x40*4, 0x1234)
	seg := &Segment{PreImage: img, ExitCode: ExitCode{Kind: ExitTerminate}}
	m := newTestMachine(t, seg)

	// A write through the bridge must not leak into the segment pre-image.
	args := append(elems(0x40), wordLimbs(0x5678)...)
	args = append(args, elems(uint64(MemOpPageIO))...)
	if err := m.Call(0, "ramWrite", "", args, nil); err != nil {
		t.Fatalf("ramWrite failed: %v", err)
	}
	if got := img.LoadU32(0x40 * 4); got != 0x1234 {
		t.Errorf("segment pre-image mutated: 0x%x", got)
	}
}
