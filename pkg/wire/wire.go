// Package wire defines the data model of the switch network: the
// WireState enumeration and the Wire/Transistor records that a Netlist
// stores one per slot.
package wire

import "fmt"

// State is a bit flag so group membership tests reduce to a mask.
type State uint8

const (
	PulledHigh   State = 1 << iota // pinned high by an external pullup/pad
	PulledLow                     // pinned low by an external pulldown/pad
	Grounded                      // driven low via a conducting path to VSS
	High                          // driven high via a conducting path to VCC
	FloatingHigh                  // isolated, residual charge was high
	FloatingLow                   // isolated, residual charge was low
	Floating                      // isolated, indeterminate initial state
)

const (
	AnyHigh = High | PulledHigh | FloatingHigh
	AnyLow  = Grounded | PulledLow | FloatingLow
)

func (s State) String() string {
	switch s {
	case PulledHigh:
		return "PULLED_HIGH"
	case PulledLow:
		return "PULLED_LOW"
	case Grounded:
		return "GROUNDED"
	case High:
		return "HIGH"
	case FloatingHigh:
		return "FLOATING_HIGH"
	case FloatingLow:
		return "FLOATING_LOW"
	case Floating:
		return "FLOATING"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

type GateState uint8

const (
	GateLow  GateState = 0
	GateHigh GateState = 1
)

// A nil *Wire in the Netlist's slice is the null-slot sentinel left by
// an unused index in the wire file.
type Wire struct {
	Index              int
	Name               string
	ControlTransistors []int
	GateTransistors    []int
	Pulled             State // PulledHigh, PulledLow, or 0
	State              State
}

func (w *Wire) IsHigh() bool { return w.State&AnyHigh != 0 }

func (w *Wire) IsLow() bool { return w.State&AnyLow != 0 }

// Capacitance double-counts a transistor index appearing in both
// adjacency lists; that's intentional, an estimate of gate capacitance
// rather than a transistor census.
func (w *Wire) Capacitance() int {
	return len(w.ControlTransistors) + len(w.GateTransistors)
}

// A nil *Transistor in the Netlist's slice is the null-transistor
// sentinel.
type Transistor struct {
	Index     int
	Gate      int
	Side1     int
	Side2     int
	GateState GateState
}

// OtherSide returns the channel terminal opposite wireIdx. The two
// checks run in order with the second taking precedence, so a
// degenerate Side1 == Side2 == wireIdx resolves to Side1.
func (t *Transistor) OtherSide(wireIdx int) int {
	var other int
	if t.Side1 == wireIdx {
		other = t.Side2
	}
	if t.Side2 == wireIdx {
		other = t.Side1
	}
	return other
}
