package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidblaster/sidblaster-go/pkg/memory"
)

func newTestCPU() (*CPU, *memory.Memory) {
	m := memory.New()
	c := New(m, Hooks{})
	return c, m
}

func TestLDAImmediateSetsFlags(t *testing.T) {
	c, m := newTestCPU()
	m.Poke(0x0600, 0xA9) // LDA #$00
	m.Poke(0x0601, 0x00)
	c.PC = 0x0600

	cycles, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, 2, cycles)
	assert.Equal(t, uint8(0x00), c.A)
	assert.True(t, c.flag(FlagZ))
	assert.False(t, c.flag(FlagN))
}

func TestLDANegativeSetsNFlag(t *testing.T) {
	c, m := newTestCPU()
	m.Poke(0x0600, 0xA9)
	m.Poke(0x0601, 0x80)
	c.PC = 0x0600

	_, err := c.Step()
	require.NoError(t, err)
	assert.True(t, c.flag(FlagN))
	assert.False(t, c.flag(FlagZ))
}

func TestSTASetsWriteFlagAndProvenance(t *testing.T) {
	c, m := newTestCPU()
	m.Poke(0x0600, 0xA9) // LDA #$42
	m.Poke(0x0601, 0x42)
	m.Poke(0x0602, 0x8D) // STA $D400
	m.Poke(0x0603, 0x00)
	m.Poke(0x0604, 0xD4)
	c.PC = 0x0600

	_, err := c.Step()
	require.NoError(t, err)
	_, err = c.Step()
	require.NoError(t, err)

	assert.Equal(t, uint8(0x42), m.Peek(0xD400))
	assert.True(t, m.Flags(0xD400).Has(memory.Write))
	src := m.WriteSource(0xD400)
	assert.Equal(t, memory.SourceImmediate, src.Kind)
	assert.Equal(t, uint8(0x42), src.LastValue)
}

func TestAbsoluteXPageCrossAddsCycle(t *testing.T) {
	c, m := newTestCPU()
	m.Poke(0x0600, 0xBD) // LDA $20FF,X
	m.Poke(0x0601, 0xFF)
	m.Poke(0x0602, 0x20)
	m.Poke(0x2105, 0x99) // 0x20FF + 6 crosses into page 0x21
	c.PC = 0x0600
	c.X = 0x06

	cycles, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, 5, cycles, "base 4 + 1 page-cross penalty")
	assert.Equal(t, uint8(0x99), c.A)
}

func TestAbsoluteXNoPageCrossIsBaseCycles(t *testing.T) {
	c, m := newTestCPU()
	m.Poke(0x0600, 0xBD) // LDA $2000,X
	m.Poke(0x0601, 0x00)
	m.Poke(0x0602, 0x20)
	m.Poke(0x2005, 0x11)
	c.PC = 0x0600
	c.X = 0x05

	cycles, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, 4, cycles)
}

func TestIndirectJMPPageWrapBug(t *testing.T) {
	c, m := newTestCPU()
	// JMP ($30FF): real 6502 fetches the high byte from $3000, not $3100.
	m.Poke(0x0600, 0x6C)
	m.Poke(0x0601, 0xFF)
	m.Poke(0x0602, 0x30)
	m.Poke(0x30FF, 0x34)
	m.Poke(0x3000, 0x12) // wrong-wrap byte; a correct emulator reads this
	m.Poke(0x3100, 0x56) // a buggy-but-"obvious" emulator would read this
	c.PC = 0x0600

	_, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), c.PC)
}

func TestZeroPageXWrapsWithinPageZero(t *testing.T) {
	c, m := newTestCPU()
	m.Poke(0x0600, 0xB5) // LDA $80,X
	m.Poke(0x0601, 0x80)
	m.Poke(0x007F, 0x77) // (0x80 + 0xFF) wraps to 0x7F, not 0x017F
	c.PC = 0x0600
	c.X = 0xFF

	_, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x77), c.A)
}

func TestStackPushPopWrapsAcrossSP0(t *testing.T) {
	c, _ := newTestCPU()
	c.SP = 0x01
	c.push(0xAA)
	c.push(0xBB) // SP wraps from 0x00 to 0xFF here
	assert.Equal(t, uint8(0xFF), c.SP)
	assert.Equal(t, uint8(0xBB), c.pop())
	assert.Equal(t, uint8(0xAA), c.pop())
	assert.Equal(t, uint8(0x01), c.SP)
}

func TestJSRRTSRoundTrips(t *testing.T) {
	c, m := newTestCPU()
	m.Poke(0x0600, 0x20) // JSR $0610
	m.Poke(0x0601, 0x10)
	m.Poke(0x0602, 0x06)
	m.Poke(0x0610, 0x60) // RTS
	c.PC = 0x0600

	_, err := c.Step() // JSR
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0610), c.PC)

	_, err = c.Step() // RTS
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0603), c.PC)
}

func TestADCOverflowFlag(t *testing.T) {
	c, _ := newTestCPU()
	c.A = 0x50
	c.adc(0x50) // 80 + 80 = 160, signed overflow into negative
	assert.Equal(t, uint8(0xA0), c.A)
	assert.True(t, c.flag(FlagV))
	assert.True(t, c.flag(FlagN))
	assert.False(t, c.flag(FlagC))
}

func TestADCDecimalMode(t *testing.T) {
	c, _ := newTestCPU()
	c.setFlag(FlagD, true)
	c.A = 0x09
	c.adc(0x01) // BCD 09 + 01 = 10
	assert.Equal(t, uint8(0x10), c.A)
}

func TestBranchTakenAddsCycleAndPageCross(t *testing.T) {
	c, m := newTestCPU()
	m.Poke(0x06F0, 0xF0) // BEQ +0x10: PC lands at 0x0702, crossing from page 0x06 to 0x07
	m.Poke(0x06F1, 0x10)
	c.PC = 0x06F0
	c.setFlag(FlagZ, true)

	cycles, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, 4, cycles, "base 2 + taken 1 + page-cross 1")
}

func TestBranchNotTakenIsBaseCycles(t *testing.T) {
	c, m := newTestCPU()
	m.Poke(0x0600, 0xF0) // BEQ
	m.Poke(0x0601, 0x10)
	c.PC = 0x0600
	c.setFlag(FlagZ, false)

	cycles, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, 2, cycles)
	assert.Equal(t, uint16(0x0602), c.PC)
}

func TestOpcodeFetchSetsOpCodeAndExecuteFlags(t *testing.T) {
	c, m := newTestCPU()
	m.Poke(0x0600, 0xEA) // NOP
	c.PC = 0x0600

	_, err := c.Step()
	require.NoError(t, err)
	flags := m.Flags(0x0600)
	assert.True(t, flags.Has(memory.OpCode))
	assert.True(t, flags.Has(memory.Execute))
}

func TestKILFreezesByRePointingPCAtItself(t *testing.T) {
	c, m := newTestCPU()
	m.Poke(0x0600, 0x02) // KIL
	c.PC = 0x0600

	_, err := c.Step()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0600), c.PC)

	// Stepping again re-executes the same KIL byte, not the next one.
	_, err = c.Step()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0600), c.PC)
}
