package cpu

import (
	"fmt"

	"github.com/sidblaster/sidblaster-go/pkg/logger"
	"github.com/sidblaster/sidblaster-go/pkg/memory"
)

// DefaultStepBudget bounds how many instructions RunSubroutine will execute
// before giving up on a call that never returns.
const DefaultStepBudget = 30000

// sentinelReturn is the synthetic return address pushed before a manually
// invoked subroutine call. RunSubroutine treats a PC of sentinelReturn+1
// (what RTS produces; it wraps to $0000 in 16 bits) as "the subroutine
// returned", so any step that leaves PC at $0000 ends the run as returned.
const sentinelReturn = 0xFFFF

// RunResult summarizes one RunSubroutine call.
type RunResult struct {
	Steps    int
	Cycles   uint64
	Warnings []string
}

// RunErrorKind classifies why a subroutine run failed to complete normally.
type RunErrorKind int

const (
	// ErrFatal marks a run that Step ended with an error. A KIL opcode does
	// not produce it: KIL freezes in place and the run ends as
	// ErrBudgetExhausted.
	ErrFatal RunErrorKind = iota
	// ErrBudgetExhausted marks a call that never returned within the step budget.
	ErrBudgetExhausted
)

// RunError is returned by RunSubroutine when a call does not complete
// normally. PCHistory is the last up-to-8 instruction addresses executed,
// for diagnosing where execution went wrong.
type RunError struct {
	Kind      RunErrorKind
	Message   string
	PCHistory []uint16
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s (recent PCs: %v)", e.Message, e.PCHistory)
}

// pcHistory is an 8-entry ring buffer of recently executed instruction
// addresses, kept for RunError diagnostics.
type pcHistory struct {
	entries [8]uint16
	next    int
	filled  bool
}

func (h *pcHistory) push(pc uint16) {
	h.entries[h.next] = pc
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.filled = true
	}
}

func (h *pcHistory) snapshot() []uint16 {
	if !h.filled {
		out := make([]uint16, h.next)
		copy(out, h.entries[:h.next])
		return out
	}
	out := make([]uint16, len(h.entries))
	for i := range out {
		out[i] = h.entries[(h.next+i)%len(h.entries)]
	}
	return out
}

// RunSubroutine simulates JSR target followed by execution until the matching
// RTS, by pushing a synthetic return address and stepping until PC lands one
// past it. This lets init/play be invoked directly rather than via a reset
// vector, grounded on the manual-call convention in CPU6510Impl.cpp's
// subroutine runner.
func (c *CPU) RunSubroutine(target uint16) (*RunResult, error) {
	c.push16(sentinelReturn)
	c.PC = target
	c.mem.Mark(target, memory.JumpTarget)

	var hist pcHistory
	warnSeen := make(map[string]bool)
	var warnings []string

	addWarning := func(kind string) {
		if warnSeen[kind] {
			return
		}
		warnSeen[kind] = true
		warnings = append(warnings, kind)
		logger.LogWarn("subroutine run at $%04X: %s", target, kind)
	}

	result := &RunResult{}
	for steps := 0; steps < DefaultStepBudget; steps++ {
		hist.push(c.PC)

		prevSP := c.SP
		cycles, err := c.Step()
		if err != nil {
			return nil, &RunError{
				Kind:      ErrFatal,
				Message:   fmt.Sprintf("subroutine at $%04X: %v", target, err),
				PCHistory: hist.snapshot(),
			}
		}
		result.Steps++
		result.Cycles += uint64(cycles)

		if prevSP == 0x00 && c.SP == 0xFF {
			addWarning("stack-pointer-wrapped-low-to-high")
		} else if prevSP == 0xFF && c.SP == 0x00 {
			addWarning("stack-pointer-wrapped-high-to-low")
		}

		if c.PC-1 == sentinelReturn {
			result.Warnings = warnings
			return result, nil
		}
	}

	return nil, &RunError{
		Kind:      ErrBudgetExhausted,
		Message:   fmt.Sprintf("subroutine at $%04X did not return within %d steps", target, DefaultStepBudget),
		PCHistory: hist.snapshot(),
	}
}
