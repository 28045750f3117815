// Package exec implements the execution bridge: the component that answers
// circuit extern requests cycle-by-cycle during trace generation for one
// segment of guest execution.
package exec

import (
	"sort"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-riscv-zkvm/internal/vybium-riscv-zkvm/image"
)

// ExitKind classifies how a segment's execution ends.
type ExitKind int

const (
	// ExitTerminate means the guest halted for good.
	ExitTerminate ExitKind = iota

	// ExitPause means the guest paused; dirty pages are flushed so the
	// session can resume in a later segment.
	ExitPause

	// ExitSplit means the segment ended at its natural cycle budget.
	ExitSplit

	// ExitSystemSplit means the host forces a flush once the instruction
	// counter reaches SplitInsn, ending the segment mid-stream.
	ExitSystemSplit
)

// ExitCode is a segment's exit classification. SplitInsn is meaningful for
// ExitSplit and ExitSystemSplit only.
type ExitCode struct {
	Kind      ExitKind
	SplitInsn uint32
}

// SyscallRecord is one precomputed syscall result to be replayed: the words
// streamed to the guest plus the (a0, a1) register pair.
type SyscallRecord struct {
	ToGuest []uint32
	Regs    [2]uint32
}

// PageSet is an ordered set of page indices. Read faults drain from the top
// (highest index first) and write faults from the bottom, so both directions
// are exposed.
type PageSet struct {
	pages []uint32
}

// NewPageSet builds an ordered set from the given page indices, deduplicated.
func NewPageSet(pages []uint32) PageSet {
	sorted := make([]uint32, len(pages))
	copy(sorted, pages)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := sorted[:0]
	for i, p := range sorted {
		if i == 0 || sorted[i-1] != p {
			out = append(out, p)
		}
	}
	return PageSet{pages: out}
}

// Clone returns an independent copy.
func (s PageSet) Clone() PageSet {
	pages := make([]uint32, len(s.pages))
	copy(pages, s.pages)
	return PageSet{pages: pages}
}

// IsEmpty reports whether the set has no pages left.
func (s PageSet) IsEmpty() bool {
	return len(s.pages) == 0
}

// Len returns the number of pages left.
func (s PageSet) Len() int {
	return len(s.pages)
}

// PopMax removes and returns the highest page index.
func (s *PageSet) PopMax() (uint32, bool) {
	if len(s.pages) == 0 {
		return 0, false
	}
	p := s.pages[len(s.pages)-1]
	s.pages = s.pages[:len(s.pages)-1]
	return p, true
}

// PopMin removes and returns the lowest page index.
func (s *PageSet) PopMin() (uint32, bool) {
	if len(s.pages) == 0 {
		return 0, false
	}
	p := s.pages[0]
	s.pages = s.pages[1:]
	return p, true
}

// PageFaults is a segment's precomputed fault record: pages that must be
// paged in before any non-paging access, and dirty pages flushed at segment
// end.
type PageFaults struct {
	Reads  PageSet
	Writes PageSet
}

// Clone returns an independent copy of both queues.
func (f PageFaults) Clone() PageFaults {
	return PageFaults{Reads: f.Reads.Clone(), Writes: f.Writes.Clone()}
}

// Segment is everything needed to regenerate one bounded slice of guest
// execution: the pre-image memory snapshot, the fault record, the queued
// syscall results, and the exit classification.
type Segment struct {
	PreImage       *image.MemoryImage
	PreImageDigest field.Element
	Faults         PageFaults
	Syscalls       []SyscallRecord
	ExitCode       ExitCode
}

// NewSegment assembles a segment descriptor and commits to its pre-image.
func NewSegment(preImage *image.MemoryImage, faults PageFaults, syscalls []SyscallRecord, exitCode ExitCode) *Segment {
	return &Segment{
		PreImage:       preImage,
		PreImageDigest: preImage.AttestationDigest(),
		Faults:         faults,
		Syscalls:       syscalls,
		ExitCode:       exitCode,
	}
}
