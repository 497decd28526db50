package disasm

import (
	"github.com/sidblaster/sidblaster-go/pkg/analyzer"
	"github.com/sidblaster/sidblaster-go/pkg/cpu"
	"github.com/sidblaster/sidblaster-go/pkg/memory"
)

// Half identifies which byte of a 16-bit pointer a relocation entry covers.
type Half int

const (
	Low Half = iota
	High
)

// Relocation is one address-sized data discovery: the byte at Addr is not a
// literal constant but the low or high half of a pointer at Target.
type Relocation struct {
	Target uint16
	Half   Half
}

// detectRelocations runs three heuristics for address-sized data discovery,
// returning one (Low) and one (High) entry per detected pointer pair.
func detectRelocations(mem *memory.Memory, a *analyzer.Analyzer) map[uint16]Relocation {
	out := make(map[uint16]Relocation)

	// Heuristic 1: two adjacent bytes both written from immediate constants
	// that together form an address inside the image.
	a.ForEachDataByte(func(addr uint16) {
		next := addr + 1
		if !a.InImage(next) {
			return
		}
		loSrc := mem.WriteSource(addr)
		hiSrc := mem.WriteSource(next)
		if loSrc.Kind != memory.SourceImmediate || hiSrc.Kind != memory.SourceImmediate {
			return
		}
		target := uint16(loSrc.LastValue) | uint16(hiSrc.LastValue)<<8
		if !a.InImage(target) {
			return
		}
		out[addr] = Relocation{Target: target, Half: Low}
		out[next] = Relocation{Target: target, Half: High}
	})

	// Heuristic 2: the indirect-access log links a zero-page pointer pair to
	// a live effective target.
	for _, ia := range mem.IndirectAccesses() {
		lo := uint16(ia.ZPAddr)
		hi := lo + 1
		storedLo := mem.Peek(lo)
		storedHi := mem.Peek(hi)
		if uint16(storedLo)|uint16(storedHi)<<8 != ia.Effective {
			continue
		}
		if !a.InImage(ia.Effective) {
			continue
		}
		out[lo] = Relocation{Target: ia.Effective, Half: Low}
		out[hi] = Relocation{Target: ia.Effective, Half: High}
	}

	// Heuristic 3: two nearby STA-to-zero-page instructions in a code range
	// storing the low and high halves of an image-internal address built
	// from immediate loads (a manual "set up a pointer" idiom).
	detectPairedZPPointerStores(mem, a, out)

	return out
}

// detectPairedZPPointerStores scans each code range for the
// "LDA #lo ; STA zp ; LDA #hi ; STA zp+1" idiom, a common way hand-written
// 6510 code builds an indirect pointer without using the stack or an
// existing table.
func detectPairedZPPointerStores(mem *memory.Memory, a *analyzer.Analyzer, out map[uint16]Relocation) {
	for _, r := range a.CodeRanges() {
		addr := r.Start
		for addr < r.End {
			op1 := mem.Peek(addr)
			mn1, mode1, _, _ := cpu.Decode(op1)
			len1 := 1 + cpu.OperandLength(mode1)
			if mn1 != cpu.LDA || mode1 != cpu.Immediate || addr+uint16(len1) >= r.End {
				addr += uint16(max(len1, 1))
				continue
			}
			p2 := addr + uint16(len1)
			op2 := mem.Peek(p2)
			mn2, mode2, _, _ := cpu.Decode(op2)
			len2 := 1 + cpu.OperandLength(mode2)
			if mn2 != cpu.STA || mode2 != cpu.ZeroPage || p2+uint16(len2) >= r.End {
				addr += uint16(max(len1, 1))
				continue
			}
			zpLo := mem.Peek(p2 + 1)

			p3 := p2 + uint16(len2)
			op3 := mem.Peek(p3)
			mn3, mode3, _, _ := cpu.Decode(op3)
			len3 := 1 + cpu.OperandLength(mode3)
			if mn3 != cpu.LDA || mode3 != cpu.Immediate || p3+uint16(len3) >= r.End {
				addr += uint16(max(len1, 1))
				continue
			}
			p4 := p3 + uint16(len3)
			op4 := mem.Peek(p4)
			mn4, mode4, _, _ := cpu.Decode(op4)
			if mn4 != cpu.STA || mode4 != cpu.ZeroPage {
				addr += uint16(max(len1, 1))
				continue
			}
			zpHi := mem.Peek(p4 + 1)

			if zpHi == zpLo+1 {
				target := uint16(mem.Peek(addr+1)) | uint16(mem.Peek(p3+1))<<8
				if a.InImage(target) {
					// The relocatable bytes are the immediate operands in the
					// code stream, not the zero-page destination they're
					// written to.
					out[addr+1] = Relocation{Target: target, Half: Low}
					out[p3+1] = Relocation{Target: target, Half: High}
				}
			}
			addr += uint16(max(len1, 1))
		}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
