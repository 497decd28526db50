// Package sidimage holds the program image a relocation run operates on: a
// load address and the raw bytes to place there. Grounded on
// pkg/cartridge.Cartridge, generalized from bank-switched iNES ROM to a
// single flat, contiguous, wrap-at-64KiB image -- a SID tune is never
// bank-switched, so there is no analogue to pkg/cartridge/mapper here.
package sidimage

import (
	"fmt"

	"github.com/sidblaster/sidblaster-go/pkg/memory"
)

// Image is an already-extracted (load-address, bytes) pair. It intentionally
// does not know about PSID/RSID headers: parsing those is a collaborator
// concern, handled upstream of this package.
type Image struct {
	LoadAddress uint16
	Bytes       []byte
}

// New validates and wraps a program image.
func New(loadAddress uint16, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("sidimage: empty program image")
	}
	if len(data) > 65536 {
		return nil, fmt.Errorf("sidimage: image of %d bytes exceeds the 64 KiB address space", len(data))
	}
	return &Image{LoadAddress: loadAddress, Bytes: data}, nil
}

// End returns the address one past the last byte of the image, wrapping at
// 64 KiB the same way memory.Memory.LoadImage does.
func (img *Image) End() uint16 {
	return img.LoadAddress + uint16(len(img.Bytes))
}

// Size returns the image length in bytes.
func (img *Image) Size() int {
	return len(img.Bytes)
}

// Contains reports whether addr falls within [LoadAddress, End), accounting
// for 64 KiB wraparound.
func (img *Image) Contains(addr uint16) bool {
	offset := int(addr) - int(img.LoadAddress)
	if offset < 0 {
		offset += 65536
	}
	return offset < len(img.Bytes)
}

// LoadInto places the image into mem via the untracked bulk-load path, the
// way a run session seeds memory before driving the CPU.
func (img *Image) LoadInto(mem *memory.Memory) {
	mem.LoadImage(img.LoadAddress, img.Bytes)
}

// Relocate returns a copy of the image data intended for loading at
// newBase. The bytes themselves are unchanged -- relocation at the byte
// level is meaningless without reassembling the emitted source; this only
// repositions the metadata collaborators use to drive a second emulation
// pass or a round-trip check at the new address.
func (img *Image) Relocate(newBase uint16) *Image {
	out := make([]byte, len(img.Bytes))
	copy(out, img.Bytes)
	return &Image{LoadAddress: newBase, Bytes: out}
}
