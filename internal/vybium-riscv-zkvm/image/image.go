// Package image provides the paged memory image consumed by segment replay.
//
// A MemoryImage is a flat byte buffer plus the page-layout metadata the
// paging circuit works against: page size, the register-file window, and the
// page-table window holding one digest per page. The image itself is a
// passive store; all fault logic lives in the execution bridge.
package image

import (
	"encoding/binary"
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/hash"
	"golang.org/x/crypto/sha3"
)

// WordSize is the machine word size in bytes.
const WordSize = 4

// DigestBytes is the width of one page digest in the page table.
const DigestBytes = 32

// Info describes the page layout of a memory image.
type Info struct {
	// PageSize is the size of one page in bytes. Must be a multiple of
	// WordSize.
	PageSize uint32

	// RegisterBase is the byte address of the register file (x0..x31 live
	// at RegisterBase, RegisterBase+4, ...).
	RegisterBase uint32

	// PageTableBase is the byte address of the page table; the digest of
	// page i lives at PageTableBase + i*DigestBytes.
	PageTableBase uint32
}

// DefaultInfo returns the layout used by the production circuit.
func DefaultInfo() Info {
	return Info{
		PageSize:      1024,
		RegisterBase:  0x0C00_0000,
		PageTableBase: 0x0D00_0000,
	}
}

// Validate checks that the layout is internally consistent.
func (info Info) Validate() error {
	if info.PageSize == 0 || info.PageSize%WordSize != 0 {
		return fmt.Errorf("page size %d is not a positive multiple of %d", info.PageSize, WordSize)
	}
	if info.RegisterBase%WordSize != 0 {
		return fmt.Errorf("register base 0x%08x is not word aligned", info.RegisterBase)
	}
	if info.PageTableBase%info.PageSize != 0 {
		return fmt.Errorf("page table base 0x%08x is not page aligned", info.PageTableBase)
	}
	return nil
}

// PageIndex returns the index of the page containing addr.
func (info Info) PageIndex(addr uint32) uint32 {
	return addr / info.PageSize
}

// PageEntryAddr returns the byte address of the page-table entry for pageIdx.
func (info Info) PageEntryAddr(pageIdx uint32) uint32 {
	return info.PageTableBase + pageIdx*DigestBytes
}

// MemoryImage is a byte-addressable memory snapshot with page metadata.
//
// Word accesses must be 4-byte aligned; a misaligned word access is a defect
// in segment construction (the circuit guarantees alignment upstream) and
// panics. Addresses are circuit-derived, so no bounds checking is done beyond
// the buffer itself.
type MemoryImage struct {
	Buf  []byte
	Info Info
}

// New creates a memory image over buf with the given layout.
func New(buf []byte, info Info) (*MemoryImage, error) {
	if err := info.Validate(); err != nil {
		return nil, fmt.Errorf("invalid image layout: %w", err)
	}
	if uint32(len(buf))%info.PageSize != 0 {
		return nil, fmt.Errorf("image size %d is not a multiple of page size %d", len(buf), info.PageSize)
	}
	return &MemoryImage{Buf: buf, Info: info}, nil
}

// Clone returns an independent copy of the image. Each segment replay owns
// its own copy since stores mutate the buffer.
func (img *MemoryImage) Clone() *MemoryImage {
	buf := make([]byte, len(img.Buf))
	copy(buf, img.Buf)
	return &MemoryImage{Buf: buf, Info: img.Info}
}

// NumPages returns the number of pages in the image.
func (img *MemoryImage) NumPages() uint32 {
	return uint32(len(img.Buf)) / img.Info.PageSize
}

// LoadU8 reads one byte.
func (img *MemoryImage) LoadU8(addr uint32) byte {
	return img.Buf[addr]
}

// LoadU32 reads one little-endian word. addr must be word aligned.
func (img *MemoryImage) LoadU32(addr uint32) uint32 {
	if addr%WordSize != 0 {
		panic(fmt.Sprintf("unaligned load: 0x%08x", addr))
	}
	return binary.LittleEndian.Uint32(img.Buf[addr : addr+WordSize])
}

// StoreU8 writes one byte.
func (img *MemoryImage) StoreU8(addr uint32, value byte) {
	img.Buf[addr] = value
}

// StoreRegion writes a byte slice starting at addr.
func (img *MemoryImage) StoreRegion(addr uint32, data []byte) {
	copy(img.Buf[addr:addr+uint32(len(data))], data)
}

// StoreU32 writes one little-endian word. addr must be word aligned.
func (img *MemoryImage) StoreU32(addr uint32, value uint32) {
	if addr%WordSize != 0 {
		panic(fmt.Sprintf("unaligned store: 0x%08x", addr))
	}
	binary.LittleEndian.PutUint32(img.Buf[addr:addr+WordSize], value)
}

// ComputeRoot folds the sha3-256 digest of every page into a single
// integrity root. The root commits to the full pre-image state, so two
// segments with the same root replay against identical memory.
func (img *MemoryImage) ComputeRoot() [DigestBytes]byte {
	h := sha3.New256()
	pageSize := img.Info.PageSize
	for page := uint32(0); page < img.NumPages(); page++ {
		d := sha3.Sum256(img.Buf[page*pageSize : (page+1)*pageSize])
		h.Write(d[:])
	}
	var root [DigestBytes]byte
	copy(root[:], h.Sum(nil))
	return root
}

// AttestationDigest compresses the integrity root into a single field
// element via Poseidon, for consumption by field-native collaborators.
func (img *MemoryImage) AttestationDigest() field.Element {
	root := img.ComputeRoot()
	limbs := make([]field.Element, 0, DigestBytes/8)
	for i := 0; i < DigestBytes; i += 8 {
		limbs = append(limbs, field.New(binary.LittleEndian.Uint64(root[i:i+8])))
	}
	return hash.PoseidonHash(limbs)
}
