// Package emulator drives a cpu.CPU through the init/pre-analysis/measured
// three-phase protocol a SID tune's init/play routines are run under, the
// way pkg/nes.NES owns a CPU and steps it through frames.
package emulator

import (
	"fmt"

	"github.com/sidblaster/sidblaster-go/pkg/cpu"
	"github.com/sidblaster/sidblaster-go/pkg/logger"
	"github.com/sidblaster/sidblaster-go/pkg/memory"
)

// VideoStandard selects the cycles-per-frame constant used to derive K.
type VideoStandard int

const (
	PAL VideoStandard = iota
	NTSC
)

func (v VideoStandard) cyclesPerFrame() int {
	if v == NTSC {
		return 65 * 263
	}
	return 63 * 312
}

// PreAnalysisFrames is the number of play calls run, and discarded, before
// the measured pass begins. Exposes memory copies a tune makes on its first
// few calls but not during init.
const PreAnalysisFrames = 100

// DefaultMeasuredFrames is the length of the measured pass.
const DefaultMeasuredFrames = 30000

// EntryPoints names the init and play subroutine addresses to run.
type EntryPoints struct {
	Init uint16
	Play uint16
}

// FrameCycleStats summarizes the per-frame cycle cost (all K play calls of
// one frame together) observed during the measured pass.
type FrameCycleStats struct {
	Min  uint64
	Max  uint64
	Mean float64
}

// TraceFormat selects how the optional write-trace stream is rendered.
type TraceFormat int

const (
	TraceText TraceFormat = iota
	TraceBinary
)

// RunOptions configures one Run call.
type RunOptions struct {
	Entry          EntryPoints
	Standard       VideoStandard
	SpeedWord      uint16 // song speed word, used to derive K if the CIA timer is never touched
	MeasuredFrames int    // 0 means DefaultMeasuredFrames
	SnapshotAround bool   // back up memory before the run and restore it after
	Trace          *Trace // optional write-trace sink; nil disables tracing
}

// RunReport is everything a collaborator needs after a Run completes.
type RunReport struct {
	CallsPerFrame int
	Stats         FrameCycleStats
	Warnings      []string
}

// Driver owns one CPU+memory pair and runs the emulation protocol against
// it. Distinct from cpu.CPU: the driver knows about frames, CIA timers, and
// SID/C64 conventions; the CPU knows only 6510 semantics.
type Driver struct {
	mem *memory.Memory
	cpu *cpu.CPU

	ciaLow, ciaHigh uint8
	ciaLowSet       bool
	ciaHighSet      bool

	trace *Trace
}

// New builds a driver around mem, wiring CIA-timer observation and
// forwarding SID/CIA writes to whatever Trace is active for the current Run.
func New(mem *memory.Memory) *Driver {
	d := &Driver{mem: mem}
	d.cpu = cpu.New(mem, cpu.Hooks{
		OnCIAWrite: func(pc, addr uint16, value uint8) {
			d.observeCIAWrite(pc, addr, value)
			if d.trace != nil {
				d.trace.WriteEvent(pc, addr, value)
			}
		},
		OnSIDWrite: func(pc, addr uint16, value uint8) {
			if d.trace != nil {
				d.trace.WriteEvent(pc, addr, value)
			}
		},
	})
	return d
}

// CPU exposes the underlying core for collaborators that need direct access
// (the analyzer reads mem directly; tests poke registers).
func (d *Driver) CPU() *cpu.CPU { return d.cpu }

func (d *Driver) observeCIAWrite(_ uint16, addr uint16, value uint8) {
	switch addr {
	case 0xDC04:
		d.ciaLow, d.ciaLowSet = value, true
	case 0xDC05:
		d.ciaHigh, d.ciaHighSet = value, true
	}
}

// callsPerFrame derives K: if the CIA timer was never touched during init,
// count set bits in the speed word (clamped [1,16], default 1); otherwise
// derive it from the observed timer value.
func (d *Driver) callsPerFrame(opts RunOptions) int {
	if !d.ciaLowSet && !d.ciaHighSet {
		bits := popcount16(opts.SpeedWord)
		if bits == 0 {
			bits = 1
		}
		return clamp(bits, 1, 16)
	}
	timer := int(d.ciaHigh)<<8 | int(d.ciaLow)
	if timer == 0 {
		return 1
	}
	cpf := opts.Standard.cyclesPerFrame()
	k := (cpf + timer/2) / timer // round to nearest
	return clamp(k, 1, 16)
}

func popcount16(v uint16) int {
	n := 0
	for v != 0 {
		n += int(v & 1)
		v >>= 1
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Run executes the fixed seven-step emulation protocol and returns the
// measured-pass statistics.
func (d *Driver) Run(opts RunOptions) (*RunReport, error) {
	var snapshot [65536]uint8
	if opts.SnapshotAround {
		snapshot = d.mem.Snapshot()
	}
	d.trace = opts.Trace

	d.cpu.Reset(opts.Entry.Init)
	if _, err := d.cpu.RunSubroutine(opts.Entry.Init); err != nil {
		return nil, fmt.Errorf("init run: %w", err)
	}

	k := d.callsPerFrame(opts)
	logger.LogEmulator("derived K=%d calls per frame", k)

	if err := d.runFrames(PreAnalysisFrames, k, opts.Entry.Play, opts.Trace, true); err != nil {
		return nil, fmt.Errorf("pre-analysis pass: %w", err)
	}

	d.cpu.Reset(opts.Entry.Init)
	if _, err := d.cpu.RunSubroutine(opts.Entry.Init); err != nil {
		return nil, fmt.Errorf("re-seed init run: %w", err)
	}

	measured := opts.MeasuredFrames
	if measured == 0 {
		measured = DefaultMeasuredFrames
	}

	stats, warnings, err := d.measuredPass(measured, k, opts.Entry.Play, opts.Trace)
	if err != nil {
		return nil, fmt.Errorf("measured pass: %w", err)
	}

	if opts.SnapshotAround {
		d.mem.Restore(snapshot)
	}

	return &RunReport{CallsPerFrame: k, Stats: stats, Warnings: warnings}, nil
}

func (d *Driver) runFrames(frames, k int, playAddr uint16, trace *Trace, discardWarnings bool) error {
	for f := 0; f < frames; f++ {
		for call := 0; call < k; call++ {
			result, err := d.cpu.RunSubroutine(playAddr)
			if err != nil {
				return err
			}
			if !discardWarnings {
				for _, w := range result.Warnings {
					logger.LogWarn("play call %d/%d in frame %d: %s", call+1, k, f, w)
				}
			}
		}
		if trace != nil {
			trace.FrameMarker()
		}
	}
	return nil
}

func (d *Driver) measuredPass(frames, k int, playAddr uint16, trace *Trace) (FrameCycleStats, []string, error) {
	var (
		min      uint64 = ^uint64(0)
		max      uint64
		total    uint64
		warnings []string
		seen     = make(map[string]bool)
	)

	for f := 0; f < frames; f++ {
		before := d.cpu.Cycles
		for call := 0; call < k; call++ {
			result, err := d.cpu.RunSubroutine(playAddr)
			if err != nil {
				return FrameCycleStats{}, nil, err
			}
			for _, w := range result.Warnings {
				if !seen[w] {
					seen[w] = true
					warnings = append(warnings, w)
				}
			}
		}
		frameCycles := d.cpu.Cycles - before
		if frameCycles < min {
			min = frameCycles
		}
		if frameCycles > max {
			max = frameCycles
		}
		total += frameCycles
		if trace != nil {
			trace.FrameMarker()
		}
	}

	mean := float64(0)
	if frames > 0 {
		mean = float64(total) / float64(frames)
	}
	if frames == 0 {
		min = 0
	}
	return FrameCycleStats{Min: min, Max: max, Mean: mean}, warnings, nil
}
