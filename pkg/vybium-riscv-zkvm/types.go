package vybiumriscvzkvm

import (
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-riscv-zkvm/internal/vybium-riscv-zkvm/exec"
	"github.com/vybium/vybium-riscv-zkvm/internal/vybium-riscv-zkvm/image"
)

// FieldElement represents an element of the proof system's finite field.
// Extern request arguments and results cross the API in this form.
type FieldElement = field.Element

// NewFieldElement lifts a machine word into the field
func NewFieldElement(v uint64) FieldElement {
	return field.New(v)
}

// ImageInfo describes a memory image layout: page size, register file
// window, and page table placement
type ImageInfo = image.Info

// MemoryImage is a paged snapshot of the guest address space
type MemoryImage = image.MemoryImage

// Segment describes one bounded slice of guest execution to replay
type Segment = exec.Segment

// ExitCode is a segment's exit classification
type ExitCode = exec.ExitCode

// ExitKind classifies how a segment's execution ends
type ExitKind = exec.ExitKind

const (
	// ExitTerminate means the guest halted for good
	ExitTerminate = exec.ExitTerminate

	// ExitPause means the guest paused and dirty pages are flushed
	ExitPause = exec.ExitPause

	// ExitSplit means the segment ended at its natural cycle budget
	ExitSplit = exec.ExitSplit

	// ExitSystemSplit means the host forces a flush at a chosen instruction
	ExitSystemSplit = exec.ExitSystemSplit
)

// SyscallRecord is one precomputed syscall result to replay
type SyscallRecord = exec.SyscallRecord

// PageFaults is a segment's precomputed page-fault record
type PageFaults = exec.PageFaults

// PageSet is an ordered, deduplicated set of page indices
type PageSet = exec.PageSet

// NewPageSet builds an ordered set from the given page indices
func NewPageSet(pages []uint32) PageSet {
	return exec.NewPageSet(pages)
}

// DefaultImageInfo returns the production memory layout
func DefaultImageInfo() ImageInfo {
	return image.DefaultInfo()
}

// NewMemoryImage wraps a buffer as a paged memory image. The buffer length
// must be a whole number of pages.
func NewMemoryImage(buf []byte, info ImageInfo) (*MemoryImage, error) {
	img, err := image.New(buf, info)
	if err != nil {
		return nil, &VMError{
			Code:    ErrInvalidImage,
			Message: "invalid memory image",
			Cause:   err,
		}
	}
	return img, nil
}

// NewSegment assembles a segment descriptor and commits to its pre-image
func NewSegment(preImage *MemoryImage, faults PageFaults, syscalls []SyscallRecord, exitCode ExitCode) *Segment {
	return exec.NewSegment(preImage, faults, syscalls, exitCode)
}
