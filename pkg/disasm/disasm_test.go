package disasm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidblaster/sidblaster-go/pkg/analyzer"
	"github.com/sidblaster/sidblaster-go/pkg/memory"
)

func classify(m *memory.Memory, base uint16, size int) *analyzer.Analyzer {
	a := analyzer.New(m, base, size)
	a.Classify()
	return a
}

func TestEmitSimpleCodeSequence(t *testing.T) {
	m := memory.New()
	// LDA #$42 ; STA $1010 ; RTS, run through once so access flags exist.
	m.LoadImage(0x1000, []byte{0xA9, 0x42, 0x8D, 0x10, 0x10, 0x60})
	m.FetchOpcode(0x1000)
	m.FetchOperand(0x1001)
	m.FetchOpcode(0x1002)
	m.FetchOperand(0x1003)
	m.FetchOperand(0x1004)
	m.FetchOpcode(0x1005)

	a := classify(m, 0x1000, 6)
	e := New(m, a, EntryPoints{})

	text, trim, err := e.Emit(0x1000, 6, 0x2000)
	require.NoError(t, err)
	assert.Equal(t, 0, trim.TrimmedCount)
	assert.True(t, strings.Contains(text, "lda #$42"))
	assert.True(t, strings.Contains(text, "rts"))
}

func TestEmitTrimsTrailingZeroes(t *testing.T) {
	m := memory.New()
	m.LoadImage(0x1000, []byte{0xEA, 0x00, 0x00, 0x00})
	m.FetchOpcode(0x1000)

	a := classify(m, 0x1000, 4)
	e := New(m, a, EntryPoints{})

	_, trim, err := e.Emit(0x1000, 4, 0x2000)
	require.NoError(t, err)
	assert.Equal(t, 3, trim.TrimmedCount)
	assert.Equal(t, uint16(0x1001), trim.TrimmedFrom)
}

func TestEmitDoesNotTrimLabelTargetZeroes(t *testing.T) {
	m := memory.New()
	m.LoadImage(0x1000, []byte{0xEA, 0x00, 0x00})
	m.FetchOpcode(0x1000)
	m.Mark(0x1002, memory.JumpTarget) // a zero byte that is also a label target

	a := classify(m, 0x1000, 3)
	e := New(m, a, EntryPoints{})

	_, trim, err := e.Emit(0x1000, 3, 0x2000)
	require.NoError(t, err)
	assert.Equal(t, 0, trim.TrimmedCount)
}

func TestEmitRendersJumpTargetAsLabel(t *testing.T) {
	m := memory.New()
	// JMP $1005
	m.LoadImage(0x1000, []byte{0x4C, 0x05, 0x10, 0x00, 0x00, 0xEA})
	m.FetchOpcode(0x1000)
	m.FetchOperand(0x1001)
	m.FetchOperand(0x1002)
	m.Mark(0x1005, memory.JumpTarget)
	m.FetchOpcode(0x1005)

	a := classify(m, 0x1000, 6)
	e := New(m, a, EntryPoints{})

	text, _, err := e.Emit(0x1000, 6, 0x2000)
	require.NoError(t, err)
	assert.True(t, strings.Contains(text, "jmp code1005"))
	assert.True(t, strings.Contains(text, "code1005:"))
}

func TestEmitCIATimerStoreCallsHarnessSymbol(t *testing.T) {
	m := memory.New()
	// LDA #$20 ; STA $DC04
	m.LoadImage(0x1000, []byte{0xA9, 0x20, 0x8D, 0x04, 0xDC})
	m.FetchOpcode(0x1000)
	m.FetchOperand(0x1001)
	m.FetchOpcode(0x1002)
	m.FetchOperand(0x1003)
	m.FetchOperand(0x1004)

	a := classify(m, 0x1000, 5)
	e := New(m, a, EntryPoints{CIATimerSymbol: "player_set_timer"})

	text, _, err := e.Emit(0x1000, 5, 0x2000)
	require.NoError(t, err)
	assert.True(t, strings.Contains(text, "jsr player_set_timer"))
}

func TestIndexedBaseRewriteUsesMinIndex(t *testing.T) {
	m := memory.New()
	// LDA $1010,X
	m.LoadImage(0x1000, []byte{0xBD, 0x10, 0x10})
	m.FetchOpcode(0x1000)
	m.FetchOperand(0x1001)
	m.FetchOperand(0x1002)
	m.RecordIndexOffset(0x1000, 2)
	m.RecordIndexOffset(0x1000, 5)

	a := classify(m, 0x1000, 3)
	e := New(m, a, EntryPoints{})

	text, _, err := e.Emit(0x1000, 3, 0x2000)
	require.NoError(t, err)
	// base = 0x1010 - min(2) = 0x100E
	assert.True(t, strings.Contains(text, "data100E+2,X"), text)
}

func TestRelocationRendersLowHighBytes(t *testing.T) {
	m := memory.New()
	// data table at $1010: a pointer to $1000 stored as two immediate-sourced bytes
	m.LoadImage(0x1000, make([]byte, 0x20))
	m.Write(0x1010, 0x00, 0, memory.Provenance{Kind: memory.SourceImmediate, LastValue: 0x00})
	m.Write(0x1011, 0x10, 0, memory.Provenance{Kind: memory.SourceImmediate, LastValue: 0x10})
	m.FetchOpcode(0x1000) // make $1000 a code byte so it gets a code label

	a := classify(m, 0x1000, 0x20)
	e := New(m, a, EntryPoints{})

	text, _, err := e.Emit(0x1000, 0x20, 0x2000)
	require.NoError(t, err)
	assert.True(t, strings.Contains(text, "<code1000"), text)
	assert.True(t, strings.Contains(text, ">code1000"), text)
}
