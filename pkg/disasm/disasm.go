// Package disasm walks a classified memory image and emits 6510 assembly
// that reassembles to a byte-identical program at a new load address.
// Grounded on original_source/src/Disassembler.cpp, LabelGenerator.cpp,
// RelocationUtils.cpp, and CodeFormatter.cpp, collapsed into one package the
// way pkg/cartridge collapses header parsing and bank wiring.
package disasm

import (
	"fmt"
	"strings"

	"github.com/sidblaster/sidblaster-go/pkg/analyzer"
	"github.com/sidblaster/sidblaster-go/pkg/cpu"
	"github.com/sidblaster/sidblaster-go/pkg/logger"
	"github.com/sidblaster/sidblaster-go/pkg/memory"
)

// EntryPoints names player-harness symbols the emitted assembly calls out
// to instead of hardcoding. Supplemented from
// original_source/src/app/MusicBuilder.cpp, which lets the player harness
// name its own timer-setup routine rather than the tune owning it.
type EntryPoints struct {
	// CIATimerSymbol is the label called in place of a direct store to
	// $DC04/$DC05.
	CIATimerSymbol string
}

// TrimReport describes the trailing run of zero bytes dropped from emission.
type TrimReport struct {
	TrimmedCount int
	TrimmedFrom  uint16
}

// Emitter produces assembly for one classified image.
type Emitter struct {
	mem      *memory.Memory
	analyzer *analyzer.Analyzer
	entry    EntryPoints
	labels   *LabelTable
	relocs   map[uint16]Relocation
}

// New builds an emitter over an already-classified analyzer. Classify must
// have been called first.
func New(mem *memory.Memory, a *analyzer.Analyzer, entry EntryPoints) *Emitter {
	e := &Emitter{
		mem:      mem,
		analyzer: a,
		entry:    entry,
		labels:   buildLabelTable(a),
		relocs:   detectRelocations(mem, a),
	}
	e.preScanLabels()
	return e
}

// preScanLabels ensures every label Emit will reference through a
// relocation or an indexed-base rewrite exists before emission starts, so a
// forward reference never renders without its defining line.
func (e *Emitter) preScanLabels() {
	for _, r := range e.relocs {
		e.labels.Ensure(r.Target, e.analyzer.TypeAt(r.Target).Has(analyzer.Code))
	}

	for _, r := range e.analyzer.CodeRanges() {
		addr := r.Start
		for addr < r.End {
			opcode := e.mem.Peek(addr)
			_, mode, _, _ := cpu.Decode(opcode)
			length := 1 + cpu.OperandLength(mode)

			switch mode {
			case cpu.AbsoluteX, cpu.AbsoluteY:
				literal := e.operandWord(addr)
				e.ensureIndexedBase(addr, literal)
			case cpu.ZeroPageX, cpu.ZeroPageY:
				literal := uint16(e.mem.Peek(addr + 1))
				e.ensureIndexedBase(addr, literal)
			}

			if length <= 0 {
				length = 1
			}
			addr += uint16(length)
		}
	}
}

func (e *Emitter) ensureIndexedBase(pc, literal uint16) {
	rng, ok := e.mem.IndexRangeFor(pc)
	if !ok || rng.Min == 0 {
		return
	}
	rewrittenBase := literal - uint16(rng.Min)
	e.labels.Ensure(rewrittenBase, e.analyzer.TypeAt(rewrittenBase).Has(analyzer.Code))
}

// Emit walks [loadBase, loadBase+loadSize) and produces assembly text. The
// new load address only affects the ORG-style header comment -- the body is
// base-relative via labels, which is what makes the output relocatable.
func (e *Emitter) Emit(loadBase uint16, loadSize int, newBase uint16) (string, TrimReport, error) {
	trimCount, trimFrom := e.trailingZeroRun(loadBase, loadSize)
	emitSize := loadSize - trimCount

	var b strings.Builder
	fmt.Fprintf(&b, "; relocated from $%04X to $%04X\n", loadBase, newBase)
	fmt.Fprintf(&b, "\t*= $%04X\n\n", newBase)

	addr := loadBase
	end := loadBase + uint16(emitSize)
	for addr != end {
		if label, ok := e.labels.Lookup(addr); ok {
			fmt.Fprintf(&b, "%s:\n", label)
		}

		typ := e.analyzer.TypeAt(addr)
		if typ.Has(analyzer.Code) {
			consumed, err := e.emitInstruction(&b, addr)
			if err != nil {
				return "", TrimReport{}, err
			}
			addr += uint16(consumed)
			continue
		}

		e.emitDataByte(&b, addr)
		addr++
	}

	if trimCount > 0 {
		fmt.Fprintf(&b, "; %d trailing zero bytes from $%04X trimmed\n", trimCount, trimFrom)
	}

	logger.LogDisasm("emitted %d bytes (%d trimmed)", emitSize, trimCount)
	return b.String(), TrimReport{TrimmedCount: trimCount, TrimmedFrom: trimFrom}, nil
}

func (e *Emitter) emitInstruction(b *strings.Builder, addr uint16) (int, error) {
	opcode := e.mem.Peek(addr)
	mnemonic, mode, _, _ := cpu.Decode(opcode)
	operandLen := cpu.OperandLength(mode)
	total := 1 + operandLen

	if ciaAddr, ok := e.ciaTimerStore(addr, mnemonic, mode); ok {
		fmt.Fprintf(b, "\tjsr %s\t; timer store to $%04X owned by player harness\n", e.entry.CIATimerSymbol, ciaAddr)
		return total, nil
	}

	operand := e.renderOperand(addr, mnemonic, mode)
	if operand == "" {
		fmt.Fprintf(b, "\t%s\n", strings.ToLower(mnemonic.String()))
	} else {
		fmt.Fprintf(b, "\t%s %s\n", strings.ToLower(mnemonic.String()), operand)
	}
	return total, nil
}

// ciaTimerStore recognizes a direct STA to $DC04/$DC05 with an absolute
// operand.
func (e *Emitter) ciaTimerStore(addr uint16, mnemonic cpu.Mnemonic, mode cpu.AddressingMode) (uint16, bool) {
	if mnemonic != cpu.STA || mode != cpu.Absolute || e.entry.CIATimerSymbol == "" {
		return 0, false
	}
	target := e.operandWord(addr)
	if target == 0xDC04 || target == 0xDC05 {
		return target, true
	}
	return 0, false
}

func (e *Emitter) operandWord(addr uint16) uint16 {
	lo := uint16(e.mem.Peek(addr + 1))
	hi := uint16(e.mem.Peek(addr + 2))
	return lo | hi<<8
}

func (e *Emitter) renderOperand(pc uint16, mnemonic cpu.Mnemonic, mode cpu.AddressingMode) string {
	switch mode {
	case cpu.Implied, cpu.Accumulator:
		return ""

	case cpu.Immediate:
		valueAddr := pc + 1
		if reloc, ok := e.relocs[valueAddr]; ok {
			return "#" + e.relocSymbol(reloc)
		}
		return fmt.Sprintf("#$%02X", e.mem.Peek(valueAddr))

	case cpu.ZeroPage:
		return e.symbolicByteAddr(e.mem.Peek(pc + 1))

	case cpu.ZeroPageX:
		return e.indexedOperand(pc, uint16(e.mem.Peek(pc+1)), "X", true)
	case cpu.ZeroPageY:
		return e.indexedOperand(pc, uint16(e.mem.Peek(pc+1)), "Y", true)

	case cpu.Absolute:
		target := e.operandWord(pc)
		if mnemonic == cpu.JMP || mnemonic == cpu.JSR {
			return e.symbolicWordAddr(target)
		}
		if reloc, ok := e.relocs[pc+1]; ok {
			return e.relocSymbol(reloc)
		}
		return e.symbolicWordAddr(target)

	case cpu.AbsoluteX:
		return e.indexedOperand(pc, e.operandWord(pc), "X", false)
	case cpu.AbsoluteY:
		return e.indexedOperand(pc, e.operandWord(pc), "Y", false)

	case cpu.Indirect:
		return "(" + e.symbolicWordAddr(e.operandWord(pc)) + ")"
	case cpu.IndirectX:
		return fmt.Sprintf("(%s,X)", e.symbolicByteAddr(e.mem.Peek(pc+1)))
	case cpu.IndirectY:
		return fmt.Sprintf("(%s),Y", e.symbolicByteAddr(e.mem.Peek(pc+1)))

	case cpu.Relative:
		offset := int8(e.mem.Peek(pc + 1))
		target := uint16(int32(pc) + 2 + int32(offset))
		return e.symbolicWordAddr(target)
	}
	return ""
}

func (e *Emitter) relocSymbol(r Relocation) string {
	label := e.labels.Ensure(r.Target, e.analyzer.TypeAt(r.Target).Has(analyzer.Code))
	if r.Half == Low {
		return "<" + label
	}
	return ">" + label
}

func (e *Emitter) symbolicWordAddr(addr uint16) string {
	if label, ok := e.labels.Lookup(addr); ok {
		return label
	}
	return fmt.Sprintf("$%04X", addr)
}

func (e *Emitter) symbolicByteAddr(addr uint8) string {
	if label, ok := e.labels.Lookup(uint16(addr)); ok {
		return label
	}
	return fmt.Sprintf("$%02X", addr)
}

// indexedOperand rewrites an indexed operand to its base label: the
// minimum observed index at pc is subtracted from the literal operand to
// find the label's address, then added back in the emitted text.
func (e *Emitter) indexedOperand(pc, literal uint16, reg string, zp bool) string {
	rng, ok := e.mem.IndexRangeFor(pc)
	if !ok || rng.Min == 0 {
		base := e.baseOperandText(literal, zp)
		return fmt.Sprintf("%s,%s", base, reg)
	}
	rewrittenBase := literal - uint16(rng.Min)
	label := e.labels.Ensure(rewrittenBase, e.analyzer.TypeAt(rewrittenBase).Has(analyzer.Code))
	return fmt.Sprintf("%s+%d,%s", label, rng.Min, reg)
}

func (e *Emitter) baseOperandText(literal uint16, zp bool) string {
	if zp {
		return e.symbolicByteAddr(uint8(literal))
	}
	return e.symbolicWordAddr(literal)
}

func (e *Emitter) emitDataByte(b *strings.Builder, addr uint16) {
	if reloc, ok := e.relocs[addr]; ok {
		fmt.Fprintf(b, "\t.byte %s\n", e.relocSymbol(reloc))
		return
	}
	fmt.Fprintf(b, "\t.byte $%02X\n", e.mem.Peek(addr))
}

// trailingZeroRun counts the contiguous trailing zero bytes at the end of
// the image that carry no access flag and are not label targets.
func (e *Emitter) trailingZeroRun(loadBase uint16, loadSize int) (count int, from uint16) {
	n := 0
	for i := loadSize - 1; i >= 0; i-- {
		addr := loadBase + uint16(i)
		if e.mem.Peek(addr) != 0 {
			break
		}
		if e.analyzer.IsLabelTarget(addr) {
			break
		}
		flags := e.mem.Flags(addr)
		if flags.Has(memory.Read) || flags.Has(memory.Write) || flags.Has(memory.Execute) {
			break
		}
		n++
	}
	return n, loadBase + uint16(loadSize-n)
}
