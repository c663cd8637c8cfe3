// Package netlist owns the flat wire/transistor storage that the solver
// and simulator operate on, plus the loader collaborator that builds it
// from a serialized wire file.
package netlist

import (
	"errors"

	"github.com/gmarino2048/Sim2600/pkg/wire"
)

// ErrMalformedNetlist is returned by Build/Load when the wire record
// violates the structural invariants a loaded netlist must hold.
var ErrMalformedNetlist = errors.New("malformed netlist")

type Wire = wire.Wire
type Transistor = wire.Transistor

// Netlist is the preallocated, never-resized storage for one circuit:
// flat wire/transistor slots plus a name→index map. Slots may be nil,
// the null-slot sentinel for an unused index.
type Netlist struct {
	Wires       []*Wire
	Transistors []*Transistor
	names       map[string]int

	vcc int
	gnd int
}

func (n *Netlist) NumWires() int { return len(n.Wires) }

func (n *Netlist) NumTransistors() int { return len(n.Transistors) }

func (n *Netlist) WireAt(i int) *Wire {
	if i < 0 || i >= len(n.Wires) {
		return nil
	}
	return n.Wires[i]
}

func (n *Netlist) TransistorAt(i int) *Transistor {
	if i < 0 || i >= len(n.Transistors) {
		return nil
	}
	return n.Transistors[i]
}

func (n *Netlist) IndexOf(name string) (int, bool) {
	idx, ok := n.names[name]
	return idx, ok
}

// VCC and GND are never overwritten by the solver.
func (n *Netlist) VCC() int { return n.vcc }
func (n *Netlist) GND() int { return n.gnd }

func (n *Netlist) IsRail(wireIdx int) bool {
	return wireIdx == n.vcc || wireIdx == n.gnd
}
