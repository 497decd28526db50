package disasm

import (
	"fmt"
	"sort"

	"github.com/sidblaster/sidblaster-go/pkg/analyzer"
)

// LabelTable assigns a generated symbol to every analyzer.LabelTarget
// address, keeping code labels and data labels in disjoint namespaces with
// distinguishable prefixes.
type LabelTable struct {
	names map[uint16]string
}

func buildLabelTable(a *analyzer.Analyzer) *LabelTable {
	lt := &LabelTable{names: make(map[uint16]string)}
	targets := a.LabelTargets()
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	for _, addr := range targets {
		if a.TypeAt(addr).Has(analyzer.Code) {
			lt.names[addr] = fmt.Sprintf("code%04X", addr)
		} else {
			lt.names[addr] = fmt.Sprintf("data%04X", addr)
		}
	}
	return lt
}

// Lookup returns the generated label at addr and whether one exists.
func (lt *LabelTable) Lookup(addr uint16) (string, bool) {
	name, ok := lt.names[addr]
	return name, ok
}

// Ensure assigns a label to addr if it doesn't already have one, used when
// the indexed-base or relocation rewrite needs a symbol for an address the
// analyzer didn't itself flag as a label target (e.g. a computed table base).
func (lt *LabelTable) Ensure(addr uint16, isCode bool) string {
	if name, ok := lt.names[addr]; ok {
		return name
	}
	var name string
	if isCode {
		name = fmt.Sprintf("code%04X", addr)
	} else {
		name = fmt.Sprintf("data%04X", addr)
	}
	lt.names[addr] = name
	return name
}
