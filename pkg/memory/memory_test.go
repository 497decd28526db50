package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSetsReadFlag(t *testing.T) {
	m := New()
	m.Poke(0x1000, 0x42)
	v := m.Read(0x1000)
	assert.Equal(t, uint8(0x42), v)
	assert.True(t, m.Flags(0x1000).Has(Read))
}

func TestOpCodeImpliesExecute(t *testing.T) {
	m := New()
	m.Poke(0x1000, 0xEA)
	m.FetchOpcode(0x1000)
	flags := m.Flags(0x1000)
	require.True(t, flags.Has(OpCode))
	assert.True(t, flags.Has(Execute))
}

func TestWriteRecordsWriterAndProvenance(t *testing.T) {
	m := New()
	src := Provenance{Kind: SourceImmediate, LastValue: 0x42}
	m.Write(0xD400, 0x42, 0x1000, src)

	assert.Equal(t, uint8(0x42), m.Peek(0xD400))
	assert.True(t, m.Flags(0xD400).Has(Write))
	assert.Equal(t, uint16(0x1000), m.LastWriter(0xD400))
	assert.Equal(t, src, m.WriteSource(0xD400))
}

func TestFlagsAreMonotonic(t *testing.T) {
	m := New()
	m.Poke(0x2000, 0x01)

	m.Read(0x2000)
	before := m.Flags(0x2000)

	m.Mark(0x2000, JumpTarget)
	after := m.Flags(0x2000)

	assert.Equal(t, before, after&before, "no previously set flag was cleared")
	assert.True(t, after.Has(JumpTarget))
	assert.True(t, after.Has(Read))
}

func TestPokeDoesNotSetFlags(t *testing.T) {
	m := New()
	m.Poke(0x3000, 0xFF)
	assert.Equal(t, AccessFlag(0), m.Flags(0x3000))
}

func TestSnapshotRestoreRoundTrips(t *testing.T) {
	m := New()
	m.Poke(0x4000, 0xAA)
	snap := m.Snapshot()

	m.Write(0x4000, 0xBB, 0, Provenance{})
	assert.Equal(t, uint8(0xBB), m.Peek(0x4000))

	m.Restore(snap)
	assert.Equal(t, uint8(0xAA), m.Peek(0x4000))
	// restoring data does not clear the access map
	assert.True(t, m.Flags(0x4000).Has(Write))
}

func TestLoadImageWrapsAt64KiB(t *testing.T) {
	m := New()
	m.LoadImage(0xFFFE, []byte{0x11, 0x22, 0x33})
	assert.Equal(t, uint8(0x11), m.Peek(0xFFFE))
	assert.Equal(t, uint8(0x22), m.Peek(0xFFFF))
	assert.Equal(t, uint8(0x33), m.Peek(0x0000))
}

func TestIndexRangeTracksMinMax(t *testing.T) {
	m := New()
	m.RecordIndexOffset(0x2000, 2)
	m.RecordIndexOffset(0x2000, 4)
	m.RecordIndexOffset(0x2000, 3)

	r, ok := m.IndexRangeFor(0x2000)
	require.True(t, ok)
	assert.Equal(t, 2, r.Min)
	assert.Equal(t, 4, r.Max)
}

func TestIndirectAccessLog(t *testing.T) {
	m := New()
	m.RecordIndirectAccess(0x1010, 0x80, 0x2000)
	log := m.IndirectAccesses()
	require.Len(t, log, 1)
	assert.Equal(t, uint16(0x1010), log[0].PC)
	assert.Equal(t, uint8(0x80), log[0].ZPAddr)
	assert.Equal(t, uint16(0x2000), log[0].Effective)
}
