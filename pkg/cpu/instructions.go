package cpu

import "github.com/sidblaster/sidblaster-go/pkg/memory"

// execute dispatches one decoded opcode entry to its implementation. Split
// out of Step so the illegal-opcode table (illegal.go) can share the same
// addressing/provenance plumbing.
func (c *CPU) execute(entry opcodeEntry) {
	if entry.illegal {
		c.execIllegal(entry)
		return
	}

	switch entry.mnemonic {
	case LDA:
		v, prov := c.readOperand(entry.mode)
		c.loadReg(regA, v, prov)
	case LDX:
		v, prov := c.readOperand(entry.mode)
		c.loadReg(regX, v, prov)
	case LDY:
		v, prov := c.readOperand(entry.mode)
		c.loadReg(regY, v, prov)

	case STA:
		c.store(entry.mode, c.A, c.regProv[regA])
	case STX:
		c.store(entry.mode, c.X, c.regProv[regX])
	case STY:
		c.store(entry.mode, c.Y, c.regProv[regY])

	case TAX:
		c.loadReg(regX, c.A, c.regProv[regA])
	case TAY:
		c.loadReg(regY, c.A, c.regProv[regA])
	case TXA:
		c.loadReg(regA, c.X, c.regProv[regX])
	case TYA:
		c.loadReg(regA, c.Y, c.regProv[regY])
	case TSX:
		c.loadReg(regX, c.SP, memory.Provenance{Kind: memory.SourceUnknown})
	case TXS:
		c.SP = c.X // TXS does not affect flags and is not a "load"

	case ADC:
		v, _ := c.readOperand(entry.mode)
		c.adc(v)
	case SBC:
		v, _ := c.readOperand(entry.mode)
		c.sbc(v)

	case AND:
		v, _ := c.readOperand(entry.mode)
		c.A &= v
		c.setZN(c.A)
	case ORA:
		v, _ := c.readOperand(entry.mode)
		c.A |= v
		c.setZN(c.A)
	case EOR:
		v, _ := c.readOperand(entry.mode)
		c.A ^= v
		c.setZN(c.A)
	case BIT:
		v, _ := c.readOperand(entry.mode)
		c.setFlag(FlagZ, c.A&v == 0)
		c.setFlag(FlagV, v&0x40 != 0)
		c.setFlag(FlagN, v&0x80 != 0)

	case CMP:
		v, _ := c.readOperand(entry.mode)
		c.compare(c.A, v)
	case CPX:
		v, _ := c.readOperand(entry.mode)
		c.compare(c.X, v)
	case CPY:
		v, _ := c.readOperand(entry.mode)
		c.compare(c.Y, v)

	case INC:
		addr := c.resolveAddress(entry.mode)
		v := c.mem.Read(addr) + 1
		c.mem.Write(addr, v, c.instrPC, memory.Provenance{})
		c.setZN(v)
	case DEC:
		addr := c.resolveAddress(entry.mode)
		v := c.mem.Read(addr) - 1
		c.mem.Write(addr, v, c.instrPC, memory.Provenance{})
		c.setZN(v)
	case INX:
		c.X++
		c.setZN(c.X)
	case INY:
		c.Y++
		c.setZN(c.Y)
	case DEX:
		c.X--
		c.setZN(c.X)
	case DEY:
		c.Y--
		c.setZN(c.Y)

	case ASL:
		c.shiftRotate(entry.mode, func(v uint8) uint8 {
			c.setFlag(FlagC, v&0x80 != 0)
			return v << 1
		})
	case LSR:
		c.shiftRotate(entry.mode, func(v uint8) uint8 {
			c.setFlag(FlagC, v&0x01 != 0)
			return v >> 1
		})
	case ROL:
		c.shiftRotate(entry.mode, func(v uint8) uint8 {
			carryIn := uint8(0)
			if c.flag(FlagC) {
				carryIn = 1
			}
			c.setFlag(FlagC, v&0x80 != 0)
			return v<<1 | carryIn
		})
	case ROR:
		c.shiftRotate(entry.mode, func(v uint8) uint8 {
			carryIn := uint8(0)
			if c.flag(FlagC) {
				carryIn = 0x80
			}
			c.setFlag(FlagC, v&0x01 != 0)
			return v>>1 | carryIn
		})

	case BCC:
		c.branch(!c.flag(FlagC))
	case BCS:
		c.branch(c.flag(FlagC))
	case BEQ:
		c.branch(c.flag(FlagZ))
	case BNE:
		c.branch(!c.flag(FlagZ))
	case BMI:
		c.branch(c.flag(FlagN))
	case BPL:
		c.branch(!c.flag(FlagN))
	case BVC:
		c.branch(!c.flag(FlagV))
	case BVS:
		c.branch(c.flag(FlagV))

	case JMP:
		target := c.resolveAddress(entry.mode)
		c.mem.Mark(target, memory.JumpTarget)
		c.PC = target
	case JSR:
		target := c.resolveAddress(entry.mode)
		c.mem.Mark(target, memory.JumpTarget)
		c.push16(c.PC - 1)
		c.PC = target
	case RTS:
		c.PC = c.pop16() + 1
	case BRK:
		c.push16(c.PC + 1)
		c.push(c.P | FlagB | FlagU)
		c.setFlag(FlagI, true)
		lo := uint16(c.mem.Read(0xFFFE))
		hi := uint16(c.mem.Read(0xFFFF))
		c.PC = lo | hi<<8
	case RTI:
		c.P = (c.pop() &^ FlagB) | FlagU
		c.PC = c.pop16()

	case PHA:
		c.push(c.A)
	case PHP:
		c.push(c.P | FlagB | FlagU)
	case PLA:
		c.A = c.pop()
		c.setZN(c.A)
		c.regProv[regA] = memory.Provenance{Kind: memory.SourceUnknown}
	case PLP:
		c.P = (c.pop() &^ FlagB) | FlagU

	case CLC:
		c.setFlag(FlagC, false)
	case SEC:
		c.setFlag(FlagC, true)
	case CLI:
		c.setFlag(FlagI, false)
	case SEI:
		c.setFlag(FlagI, true)
	case CLD:
		c.setFlag(FlagD, false)
	case SED:
		c.setFlag(FlagD, true)
	case CLV:
		c.setFlag(FlagV, false)

	case NOP:
		if entry.mode != Implied {
			c.resolveAddress(entry.mode) // undocumented NOPs still read their operand
		}
	}
}

// readOperand fetches the value an instruction operates on and the
// provenance it should carry if loaded into a register. Accumulator mode is
// handled by callers that need the accumulator specifically (shiftRotate).
func (c *CPU) readOperand(mode AddressingMode) (uint8, memory.Provenance) {
	if mode == Immediate {
		addr := c.PC
		v := c.mem.FetchOperand(addr)
		c.PC++
		return v, memory.Provenance{Kind: memory.SourceImmediate, LastValue: v}
	}
	addr := c.resolveAddress(mode)
	v := c.mem.Read(addr)
	return v, memory.Provenance{Kind: memory.SourceMemory, SourceAddr: addr, LastValue: v}
}

func (c *CPU) store(mode AddressingMode, value uint8, prov memory.Provenance) {
	addr := c.resolveAddress(mode)
	c.mem.Write(addr, value, c.instrPC, prov)
	if c.hooks.OnWrite != nil {
		c.hooks.OnWrite(c.instrPC, addr, value)
	}
	c.dispatchRegionHooks(addr, value)
}

func (c *CPU) dispatchRegionHooks(addr uint16, value uint8) {
	switch {
	case addr >= 0xDC00 && addr <= 0xDCFF:
		if c.hooks.OnCIAWrite != nil {
			c.hooks.OnCIAWrite(c.instrPC, addr, value)
		}
	case addr >= 0xD400 && addr <= 0xD7FF:
		if c.hooks.OnSIDWrite != nil {
			c.hooks.OnSIDWrite(c.instrPC, addr, value)
		}
	case addr >= 0xD000 && addr <= 0xD3FF:
		if c.hooks.OnVICWrite != nil {
			c.hooks.OnVICWrite(c.instrPC, addr, value)
		}
	}
}

func (c *CPU) shiftRotate(mode AddressingMode, op func(uint8) uint8) {
	if mode == Accumulator {
		c.A = op(c.A)
		c.setZN(c.A)
		return
	}
	addr := c.resolveAddress(mode)
	v := c.mem.Read(addr)
	result := op(v)
	c.mem.Write(addr, result, c.instrPC, memory.Provenance{})
	c.setZN(result)
}

func (c *CPU) compare(reg, v uint8) {
	result := reg - v
	c.setFlag(FlagC, reg >= v)
	c.setZN(result)
}

// branch implements the relative-addressing timing rule: +1 cycle if taken,
// +1 more if the branch crosses a page boundary.
func (c *CPU) branch(taken bool) {
	offset := int8(c.mem.FetchOperand(c.PC))
	c.PC++
	if !taken {
		return
	}
	c.Cycles++
	target := uint16(int32(c.PC) + int32(offset))
	if pageCrossed(c.PC, target) {
		c.Cycles++
	}
	c.mem.Mark(target, memory.JumpTarget)
	c.PC = target
}

// adc implements binary and BCD addition. V is always taken from the
// *binary* sum (see SPEC_FULL.md's Open Question decision on the V flag); in
// decimal mode A, Z and N come from the BCD-corrected result, and C is set
// when either the decimal or the binary sum carries out.
func (c *CPU) adc(v uint8) {
	carryIn := uint16(0)
	if c.flag(FlagC) {
		carryIn = 1
	}
	a := uint16(c.A)
	sum := a + uint16(v) + carryIn

	c.setFlag(FlagV, (^(a^uint16(v)))&(a^sum)&0x80 != 0)
	c.setFlag(FlagC, sum > 0xFF)

	if c.flag(FlagD) {
		lo := (c.A & 0x0F) + (v & 0x0F) + uint8(carryIn)
		hi := (c.A >> 4) + (v >> 4)
		if lo > 9 {
			lo += 6
			hi++
		}
		if hi > 9 {
			hi += 6
			c.setFlag(FlagC, true)
		} else if sum <= 0xFF {
			c.setFlag(FlagC, false)
		}
		result := (hi << 4) | (lo & 0x0F)
		c.A = result
	} else {
		c.A = uint8(sum)
	}
	c.setZN(c.A)
	c.regProv[regA] = memory.Provenance{Kind: memory.SourceUnknown}
}

func (c *CPU) sbc(v uint8) {
	if c.flag(FlagD) {
		c.sbcBCD(v)
		return
	}
	c.adc(v ^ 0xFF)
}

func (c *CPU) sbcBCD(v uint8) {
	carryIn := uint16(0)
	if c.flag(FlagC) {
		carryIn = 1
	}
	a := uint16(c.A)
	binSum := a + uint16(v^0xFF) + carryIn
	c.setFlag(FlagV, (^(a^uint16(v^0xFF)))&(a^binSum)&0x80 != 0)
	c.setFlag(FlagC, binSum > 0xFF)

	lo := int16(c.A&0x0F) - int16(v&0x0F) - int16(1-carryIn)
	hi := int16(c.A>>4) - int16(v>>4)
	if lo < 0 {
		lo -= 6
		hi--
	}
	if hi < 0 {
		hi -= 6
	}
	result := uint8(hi<<4) | uint8(lo&0x0F)
	c.A = result
	c.setZN(uint8(binSum))
	c.regProv[regA] = memory.Provenance{Kind: memory.SourceUnknown}
}
