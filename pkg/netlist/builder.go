package netlist

import (
	"github.com/gmarino2048/Sim2600/internal/consts"
	"github.com/gmarino2048/Sim2600/pkg/wire"
)

// Builder assembles a WireRecord from declarative wire/transistor
// additions, for callers that want to describe a small circuit by name
// instead of hand-assembling WireRecord's concatenated-stream fields.
type Builder struct {
	index  map[string]int
	names  []string
	pulled []wire.State

	fetGate, fetSide1, fetSide2 []int
	ctrl, gates                 [][]int
}

func NewBuilder() *Builder {
	return &Builder{index: make(map[string]int)}
}

func (b *Builder) Wire(name string) int {
	if i, ok := b.index[name]; ok {
		return i
	}
	i := len(b.names)
	b.index[name] = i
	b.names = append(b.names, name)
	b.pulled = append(b.pulled, 0)
	b.ctrl = append(b.ctrl, nil)
	b.gates = append(b.gates, nil)
	return i
}

func (b *Builder) Pull(name string, high bool) {
	i := b.Wire(name)
	if high {
		b.pulled[i] = wire.PulledHigh
	} else {
		b.pulled[i] = wire.PulledLow
	}
}

func (b *Builder) Fet(gate, side1, side2 string) {
	g, s1, s2 := b.Wire(gate), b.Wire(side1), b.Wire(side2)
	fi := len(b.fetGate)
	b.fetGate = append(b.fetGate, g)
	b.fetSide1 = append(b.fetSide1, s1)
	b.fetSide2 = append(b.fetSide2, s2)
	b.ctrl[s1] = append(b.ctrl[s1], fi)
	b.ctrl[s2] = append(b.ctrl[s2], fi)
	b.gates[g] = append(b.gates[g], fi)
}

func (b *Builder) Record() *WireRecord {
	numWires, numFets := len(b.names), len(b.fetGate)
	wirePulled := make([]int, numWires)
	for i, p := range b.pulled {
		wirePulled[i] = int(p)
	}

	var wireCtrlFets, wireGates []int
	for i := 0; i < numWires; i++ {
		wireCtrlFets = append(wireCtrlFets, len(b.ctrl[i]))
		wireCtrlFets = append(wireCtrlFets, b.ctrl[i]...)
		wireCtrlFets = append(wireCtrlFets, consts.NextCtrl)

		wireGates = append(wireGates, len(b.gates[i]))
		wireGates = append(wireGates, b.gates[i]...)
		wireGates = append(wireGates, consts.NextCtrl)
	}

	return &WireRecord{
		NumWires:         numWires,
		NumFets:          numFets,
		WirePulled:       wirePulled,
		WireNames:        append([]string(nil), b.names...),
		WireCtrlFets:     wireCtrlFets,
		WireGates:        wireGates,
		FetSide1WireInds: append([]int(nil), b.fetSide1...),
		FetSide2WireInds: append([]int(nil), b.fetSide2...),
		FetGateInds:      append([]int(nil), b.fetGate...),
	}
}

func (b *Builder) Build() (*Netlist, error) {
	return Build(b.Record())
}
