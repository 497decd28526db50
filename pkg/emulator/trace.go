package emulator

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Trace streams SID/CIA writes and frame-end markers to an io.Writer in
// either text or binary form. Supplemented from
// original_source/src/SIDEmulator.cpp, which treats this as a first-class
// capability of the emulation run.
type Trace struct {
	w      io.Writer
	format TraceFormat
	err    error
}

// NewTrace wraps w as a trace sink rendered in format.
func NewTrace(w io.Writer, format TraceFormat) *Trace {
	return &Trace{w: w, format: format}
}

// WriteEvent records one SID or CIA register write.
func (t *Trace) WriteEvent(pc, addr uint16, value uint8) {
	if t.err != nil {
		return
	}
	switch t.format {
	case TraceBinary:
		var buf [5]byte
		binary.LittleEndian.PutUint16(buf[0:2], pc)
		binary.LittleEndian.PutUint16(buf[2:4], addr)
		buf[4] = value
		_, t.err = t.w.Write(buf[:])
	default:
		_, t.err = fmt.Fprintf(t.w, "$%04X WRITE $%04X = $%02X\n", pc, addr, value)
	}
}

// FrameMarker records the end of one emulated frame.
func (t *Trace) FrameMarker() {
	if t.err != nil {
		return
	}
	switch t.format {
	case TraceBinary:
		var buf [5]byte
		buf[0] = 0xFF
		buf[1] = 0xFF
		_, t.err = t.w.Write(buf[:])
	default:
		_, t.err = io.WriteString(t.w, "--- frame ---\n")
	}
}

// Err returns the first write error encountered, if any.
func (t *Trace) Err() error { return t.err }
