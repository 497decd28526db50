// Package analyzer classifies every byte of a post-run memory image into
// Code, Data, and LabelTarget, the way pkg/ppu and pkg/apu hold a pointer
// to shared state and expose query methods over it -- here the shared
// state is a memory.Memory that has just finished an emulation run,
// grounded on original_source/src/MemoryAnalyzer.cpp's three-pass
// structure.
package analyzer

import (
	"sort"

	"github.com/sidblaster/sidblaster-go/pkg/logger"
	"github.com/sidblaster/sidblaster-go/pkg/memory"
)

// MemoryType is a non-exclusive classification bitmask for one byte. Code
// and Data never coexist; Code and LabelTarget may.
type MemoryType uint8

const (
	Code MemoryType = 1 << iota
	Data
	LabelTarget
)

func (t MemoryType) Has(want MemoryType) bool { return t&want == want }

// Range is an inclusive-exclusive [Start, End) span within the image.
type Range struct {
	Start, End uint16
}

// Analyzer holds the post-run memory image and its derived type map.
type Analyzer struct {
	mem        *memory.Memory
	loadBase   uint16
	loadSize   int
	types      [65536]MemoryType
	classified bool
}

// New builds an analyzer over mem scoped to the image at
// [loadBase, loadBase+loadSize).
func New(mem *memory.Memory, loadBase uint16, loadSize int) *Analyzer {
	return &Analyzer{mem: mem, loadBase: loadBase, loadSize: loadSize}
}

// InImage reports whether addr falls within the analyzed image, wrapping at
// 64 KiB the same way memory.Memory.LoadImage does.
func (a *Analyzer) InImage(addr uint16) bool {
	offset := int(addr) - int(a.loadBase)
	if offset < 0 {
		offset += 65536
	}
	return offset < a.loadSize
}

// Classify runs three passes: execution, access, and data. Idempotent;
// re-running recomputes from the current access map.
func (a *Analyzer) Classify() {
	logger.LogAnalyzer("starting three-pass classification over %d bytes", a.loadSize)

	// Pass 1: execution.
	for addr := 0; addr < 65536; addr++ {
		flags := a.mem.Flags(uint16(addr))
		if flags.Has(memory.Execute) {
			a.types[addr] |= Code
		}
		if flags.Has(memory.JumpTarget) {
			a.types[addr] |= LabelTarget
		}
	}

	// Pass 2: access. Mid-instruction reads/writes on code bytes promote the
	// enclosing instruction's opcode byte to a label target.
	for addr := 0; addr < 65536; addr++ {
		flags := a.mem.Flags(uint16(addr))
		touched := flags.Has(memory.Read) || flags.Has(memory.Write)
		if !touched || !a.types[addr].Has(Code) {
			continue
		}
		start := a.findEnclosingOpcode(uint16(addr))
		a.types[start] |= LabelTarget
	}

	// Pass 3: data. Anything not Code is Data; the sets are not exclusive
	// with LabelTarget, only with Code.
	for addr := 0; addr < 65536; addr++ {
		if !a.types[addr].Has(Code) {
			a.types[addr] |= Data
		}
	}

	a.classified = true
	logger.LogAnalyzer("classification complete")
}

// findEnclosingOpcode walks back at most 3 bytes from addr looking for the
// nearest byte flagged OpCode. Falls back to addr itself if none is found
// within the window (shouldn't happen for a byte already classified Code,
// but the walk is defensive).
func (a *Analyzer) findEnclosingOpcode(addr uint16) uint16 {
	for back := uint16(0); back <= 3; back++ {
		if back > addr {
			break // avoid underflow
		}
		candidate := addr - back
		if a.mem.Flags(candidate).Has(memory.OpCode) {
			return candidate
		}
	}
	return addr
}

// TypeAt returns the classification for addr. Panics-free even before
// Classify has run (all-zero).
func (a *Analyzer) TypeAt(addr uint16) MemoryType {
	return a.types[addr]
}

// IsLabelTarget reports whether addr was marked LabelTarget.
func (a *Analyzer) IsLabelTarget(addr uint16) bool {
	return a.types[addr].Has(LabelTarget)
}

// CodeRanges returns contiguous runs of Code bytes within the image, in
// ascending address order.
func (a *Analyzer) CodeRanges() []Range {
	return a.contiguousRanges(Code)
}

// DataRanges returns contiguous runs of Data bytes within the image,
// subdivided at any interior LabelTarget so each generated label anchors a
// fresh byte sequence.
func (a *Analyzer) DataRanges() []Range {
	raw := a.contiguousRanges(Data)
	var out []Range
	for _, r := range raw {
		out = append(out, a.subdivide(r)...)
	}
	return out
}

func (a *Analyzer) subdivide(r Range) []Range {
	var out []Range
	start := r.Start
	for addr := r.Start; addr < r.End; addr++ {
		if addr != r.Start && a.IsLabelTarget(addr) {
			out = append(out, Range{Start: start, End: addr})
			start = addr
		}
	}
	out = append(out, Range{Start: start, End: r.End})
	return out
}

// LabelTargets returns every LabelTarget address within the image, sorted.
func (a *Analyzer) LabelTargets() []uint16 {
	var out []uint16
	a.forEachImageAddr(func(addr uint16) {
		if a.IsLabelTarget(addr) {
			out = append(out, addr)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// InstructionStart resolves addr to the first byte of the instruction that
// covers it, walking back to the nearest OpCode-flagged byte. Used by
// collaborators that observed an access at an arbitrary address and need
// the enclosing instruction for a diagnostic or a label.
func (a *Analyzer) InstructionStart(addr uint16) uint16 {
	return a.findEnclosingOpcode(addr)
}

func (a *Analyzer) contiguousRanges(want MemoryType) []Range {
	var ranges []Range
	var start uint16
	inRange := false

	a.forEachImageAddr(func(addr uint16) {
		match := a.types[addr].Has(want)
		switch {
		case match && !inRange:
			start = addr
			inRange = true
		case !match && inRange:
			ranges = append(ranges, Range{Start: start, End: addr})
			inRange = false
		}
	})
	if inRange {
		ranges = append(ranges, Range{Start: start, End: a.wrapEnd()})
	}
	return ranges
}

// ForEachDataByte calls fn once per address in the image classified Data, in
// ascending order.
func (a *Analyzer) ForEachDataByte(fn func(addr uint16)) {
	a.forEachImageAddr(func(addr uint16) {
		if a.types[addr].Has(Data) {
			fn(addr)
		}
	})
}

// forEachImageAddr iterates [loadBase, loadBase+loadSize) in ascending
// address order, handling the 64 KiB wrap the same way memory.LoadImage does.
func (a *Analyzer) forEachImageAddr(fn func(addr uint16)) {
	addr := a.loadBase
	for i := 0; i < a.loadSize; i++ {
		fn(addr)
		addr++
	}
}

func (a *Analyzer) wrapEnd() uint16 {
	return a.loadBase + uint16(a.loadSize)
}
