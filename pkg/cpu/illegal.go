package cpu

import "github.com/sidblaster/sidblaster-go/pkg/memory"

// execIllegal implements the 20 undocumented opcode families. Most are
// documented combinations of two legal operations read from and written
// back to the same effective address (e.g. SLO = ASL then ORA); the
// unstable ones (XAA, SHA/SHX/SHY/TAS, ANC's high-bit interaction)
// implement only the commonly-documented effect and are not guaranteed
// bit-exact on real silicon.
func (c *CPU) execIllegal(entry opcodeEntry) {
	switch entry.mnemonic {
	case SLO: // ASL operand, then ORA A with it
		addr, v := c.rmwFetch(entry.mode)
		c.setFlag(FlagC, v&0x80 != 0)
		v <<= 1
		c.mem.Write(addr, v, c.instrPC, memory.Provenance{})
		c.A |= v
		c.setZN(c.A)

	case RLA: // ROL operand, then AND A with it
		addr, v := c.rmwFetch(entry.mode)
		carryIn := uint8(0)
		if c.flag(FlagC) {
			carryIn = 1
		}
		c.setFlag(FlagC, v&0x80 != 0)
		v = v<<1 | carryIn
		c.mem.Write(addr, v, c.instrPC, memory.Provenance{})
		c.A &= v
		c.setZN(c.A)

	case SRE: // LSR operand, then EOR A with it
		addr, v := c.rmwFetch(entry.mode)
		c.setFlag(FlagC, v&0x01 != 0)
		v >>= 1
		c.mem.Write(addr, v, c.instrPC, memory.Provenance{})
		c.A ^= v
		c.setZN(c.A)

	case RRA: // ROR operand, then ADC A with it
		addr, v := c.rmwFetch(entry.mode)
		carryIn := uint8(0)
		if c.flag(FlagC) {
			carryIn = 0x80
		}
		c.setFlag(FlagC, v&0x01 != 0)
		v = v>>1 | carryIn
		c.mem.Write(addr, v, c.instrPC, memory.Provenance{})
		c.adc(v)

	case SAX: // store A & X
		c.store(entry.mode, c.A&c.X, memory.Provenance{})

	case LAX: // load A and X with the same fetched value
		v, prov := c.readOperand(entry.mode)
		c.loadReg(regA, v, prov)
		c.loadReg(regX, v, prov)

	case DCP: // DEC operand, then CMP A with it
		addr, v := c.rmwFetch(entry.mode)
		v--
		c.mem.Write(addr, v, c.instrPC, memory.Provenance{})
		c.compare(c.A, v)

	case ISC: // INC operand, then SBC A with it
		addr, v := c.rmwFetch(entry.mode)
		v++
		c.mem.Write(addr, v, c.instrPC, memory.Provenance{})
		c.sbc(v)

	case SBC: // 0xEB, an undocumented duplicate of SBC immediate
		v, _ := c.readOperand(entry.mode)
		c.sbc(v)

	case ANC: // AND A, then copy bit 7 into carry
		v, _ := c.readOperand(entry.mode)
		c.A &= v
		c.setZN(c.A)
		c.setFlag(FlagC, c.A&0x80 != 0)

	case ALR: // AND A, then LSR A
		v, _ := c.readOperand(entry.mode)
		c.A &= v
		c.setFlag(FlagC, c.A&0x01 != 0)
		c.A >>= 1
		c.setZN(c.A)

	case ARR: // AND A, then ROR A, with C/V derived from the result's top bits
		v, _ := c.readOperand(entry.mode)
		c.A &= v
		carryIn := uint8(0)
		if c.flag(FlagC) {
			carryIn = 0x80
		}
		c.A = c.A>>1 | carryIn
		c.setZN(c.A)
		c.setFlag(FlagC, c.A&0x40 != 0)
		c.setFlag(FlagV, (c.A>>6)&1 != (c.A>>5)&1)

	case AXS: // X = (A & X) - operand, no borrow, sets C like CMP
		v, _ := c.readOperand(entry.mode)
		axVal := c.A & c.X
		c.setFlag(FlagC, axVal >= v)
		c.X = axVal - v
		c.setZN(c.X)

	case LAS: // load A/X/SP with operand & SP
		v, _ := c.readOperand(entry.mode)
		result := v & c.SP
		c.A, c.X, c.SP = result, result, result
		c.setZN(result)

	case XAA: // unstable: implement the commonly-documented A = X & operand
		v, _ := c.readOperand(entry.mode)
		c.A = c.X & v
		c.setZN(c.A)

	case SHA: // unstable: store A & X & (high(addr)+1)
		addr := c.resolveAddress(entry.mode)
		v := c.A & c.X & uint8(addr>>8+1)
		c.mem.Write(addr, v, c.instrPC, memory.Provenance{})

	case SHX: // unstable: store X & (high(addr)+1)
		addr := c.resolveAddress(entry.mode)
		v := c.X & uint8(addr>>8+1)
		c.mem.Write(addr, v, c.instrPC, memory.Provenance{})

	case SHY: // unstable: store Y & (high(addr)+1)
		addr := c.resolveAddress(entry.mode)
		v := c.Y & uint8(addr>>8+1)
		c.mem.Write(addr, v, c.instrPC, memory.Provenance{})

	case TAS: // unstable: SP = A & X, then store SP & (high(addr)+1)
		addr := c.resolveAddress(entry.mode)
		c.SP = c.A & c.X
		v := c.SP & uint8(addr>>8+1)
		c.mem.Write(addr, v, c.instrPC, memory.Provenance{})

	case NOP:
		if entry.mode != Implied {
			c.resolveAddress(entry.mode)
		}
	}
}

// rmwFetch resolves the effective address for a read-modify-write
// instruction and returns it with the current value, for the illegal
// combined opcodes that need both.
func (c *CPU) rmwFetch(mode AddressingMode) (uint16, uint8) {
	addr := c.resolveAddress(mode)
	return addr, c.mem.Read(addr)
}
