// Package cpu implements a cycle-accurate 6510 core: the 6502 instruction
// set plus the 20 undocumented opcode families a real 6510 executes, wired
// to record every memory access and value provenance it produces.
package cpu

import (
	"github.com/sidblaster/sidblaster-go/pkg/logger"
	"github.com/sidblaster/sidblaster-go/pkg/memory"
)

// Flag bits of the 6510 status register P.
const (
	FlagC uint8 = 1 << 0
	FlagZ uint8 = 1 << 1
	FlagI uint8 = 1 << 2
	FlagD uint8 = 1 << 3
	FlagB uint8 = 1 << 4
	FlagU uint8 = 1 << 5 // unused, always reads as 1
	FlagV uint8 = 1 << 6
	FlagN uint8 = 1 << 7
)

// Hooks lets a caller observe writes to specific hardware register windows
// and indirect dereferences as they happen, synchronously, without the CPU
// knowing anything about CIA/SID/VIC semantics itself. The emulator driver
// (pkg/emulator) installs these to derive calls-per-frame and capture
// write-traces; nothing in pkg/cpu depends on pkg/emulator.
type Hooks struct {
	OnIndirectRead func(pc uint16, zp uint8, effective uint16)
	OnWrite        func(pc, addr uint16, value uint8)
	OnCIAWrite     func(pc, addr uint16, value uint8) // $DC00-$DCFF
	OnSIDWrite     func(pc, addr uint16, value uint8) // $D400-$D7FF
	OnVICWrite     func(pc, addr uint16, value uint8) // $D000-$D3FF
}

// CPU holds 6510 register state and executes against a shared memory.Memory.
// Register provenance (regProv) mirrors memory.Provenance: a LDA/LDX/LDY
// records where the loaded value came from, and the following STA/STX/STY
// copies that record onto the destination byte.
type CPU struct {
	A, X, Y uint8
	SP      uint8
	PC      uint16
	P       uint8

	Cycles uint64

	mem   *memory.Memory
	hooks Hooks

	regProv [3]memory.Provenance // indexed by regA/regX/regY

	instrPC uint16 // PC of the opcode byte currently executing
}

const (
	regA = 0
	regX = 1
	regY = 2
)

// New constructs a CPU bound to mem. hooks may be the zero value if no
// collaborator needs write/indirect observation.
func New(mem *memory.Memory, hooks Hooks) *CPU {
	return &CPU{mem: mem, hooks: hooks, P: FlagU | FlagI}
}

// Reset sets registers and flags to the power-on-ish state required before
// each init/play call: SP=0xFD, I set, PC loaded from the given entry
// point. Memory contents and the access map are untouched.
func (c *CPU) Reset(entry uint16) {
	c.A, c.X, c.Y = 0, 0, 0
	c.SP = 0xFD
	c.P = FlagU | FlagI
	c.PC = entry
	c.Cycles = 0
	c.regProv = [3]memory.Provenance{}
}

func (c *CPU) setFlag(flag uint8, on bool) {
	if on {
		c.P |= flag
	} else {
		c.P &^= flag
	}
}

func (c *CPU) flag(flag uint8) bool {
	return c.P&flag != 0
}

func (c *CPU) setZN(v uint8) {
	c.setFlag(FlagZ, v == 0)
	c.setFlag(FlagN, v&0x80 != 0)
}

func (c *CPU) push(v uint8) {
	c.mem.Poke(0x0100|uint16(c.SP), v)
	c.SP--
}

func (c *CPU) pop() uint8 {
	c.SP++
	return c.mem.Peek(0x0100 | uint16(c.SP))
}

func (c *CPU) push16(v uint16) {
	c.push(uint8(v >> 8))
	c.push(uint8(v))
}

func (c *CPU) pop16() uint16 {
	lo := uint16(c.pop())
	hi := uint16(c.pop())
	return lo | hi<<8
}

// loadReg stores v into register idx and records provenance for the
// following store-with-provenance chain.
func (c *CPU) loadReg(idx int, v uint8, prov memory.Provenance) {
	switch idx {
	case regA:
		c.A = v
	case regX:
		c.X = v
	case regY:
		c.Y = v
	}
	c.regProv[idx] = prov
	c.setZN(v)
}

// Step executes exactly one instruction, fetching the opcode from the
// current PC, and returns the number of cycles it took (including any
// page-cross/branch-taken penalty folded in via c.Cycles during execution).
// A KIL/JAM opcode decrements PC back onto itself so the same byte
// re-executes next Step, matching how the real chip freezes the bus; it
// never returns an error here. A run stuck on KIL is caught by the
// subroutine runner's step budget, not by Step itself.
func (c *CPU) Step() (int, error) {
	c.instrPC = c.PC
	before := c.Cycles

	opcode := c.mem.FetchOpcode(c.PC)
	c.PC++

	entry := opcodeTable[opcode]
	c.Cycles += uint64(entry.cycles)

	if entry.mnemonic == KIL {
		logger.LogCPU("$%04X: %02X KIL (frozen)", c.instrPC, opcode)
		c.PC = c.instrPC
		return int(c.Cycles - before), nil
	}

	logger.LogCPU("$%04X: %02X %s", c.instrPC, opcode, entry.mnemonic)

	c.execute(entry)

	return int(c.Cycles - before), nil
}

// PC of the instruction Step is currently/last executing. Exposed so the
// subroutine runner can record PC history without reaching into unexported
// state.
func (c *CPU) InstructionPC() uint16 { return c.instrPC }

// Mem exposes the bound memory for collaborators (the analyzer/emulator)
// that need to read it back after a run.
func (c *CPU) Mem() *memory.Memory { return c.mem }
