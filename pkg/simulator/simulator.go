// Package simulator exposes the thin public surface a caller drives a
// switch network through: pin inputs high or low, trigger a settle by
// wire name or index, and read back wire state. It owns no solving
// logic of its own — it mutates netlist.Netlist fields directly and
// hands seed indices to a solver.Calculator.
package simulator

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gmarino2048/Sim2600/pkg/netlist"
	"github.com/gmarino2048/Sim2600/pkg/solver"
	"github.com/gmarino2048/Sim2600/pkg/wire"
)

// ErrUnknownWire is returned by the name-keyed operations when the
// given name is not present in the netlist.
var ErrUnknownWire = errors.New("unknown wire")

type Simulator struct {
	nl     *netlist.Netlist
	calc   *solver.Calculator
	logger zerolog.Logger
}

type Option func(*Simulator)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

func New(nl *netlist.Netlist, opts ...Option) *Simulator {
	s := &Simulator{nl: nl, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.calc = solver.New(nl, solver.WithLogger(s.logger))
	return s
}

func (s *Simulator) Netlist() *netlist.Netlist { return s.nl }

func (s *Simulator) Counters() solver.Counters { return s.calc.Counters() }

func (s *Simulator) SetHigh(i int) { s.SetPulled(i, true) }

func (s *Simulator) SetLow(i int) { s.SetPulled(i, false) }

// SetPulled does not trigger a recalc; callers follow up with
// RecalcWireList/RecalcNamedWire/RecalcAll.
func (s *Simulator) SetPulled(i int, high bool) {
	w := s.nl.WireAt(i)
	if w == nil {
		return
	}
	if high {
		w.Pulled = wire.PulledHigh
		w.State = wire.PulledHigh
	} else {
		w.Pulled = wire.PulledLow
		w.State = wire.PulledLow
	}
}

func (s *Simulator) SetHighByName(name string) error {
	i, ok := s.nl.IndexOf(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownWire, name)
	}
	s.SetHigh(i)
	return nil
}

func (s *Simulator) SetLowByName(name string) error {
	i, ok := s.nl.IndexOf(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownWire, name)
	}
	s.SetLow(i)
	return nil
}

func (s *Simulator) IsHigh(i int) bool {
	w := s.nl.WireAt(i)
	return w != nil && w.IsHigh()
}

func (s *Simulator) IsLow(i int) bool {
	w := s.nl.WireAt(i)
	return w != nil && w.IsLow()
}

func (s *Simulator) RecalcNamedWire(name string, halfClockCount int) error {
	i, ok := s.nl.IndexOf(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownWire, name)
	}
	return s.calc.RecalcWires([]int{i}, halfClockCount)
}

func (s *Simulator) RecalcWireList(indices []int, halfClockCount int) error {
	return s.calc.RecalcWires(indices, halfClockCount)
}

func (s *Simulator) RecalcAll() error {
	return s.calc.RecalcAll()
}

// WiresState returns a snapshot copy of every wire's state. Null slots
// read wire.Floating.
func (s *Simulator) WiresState() []wire.State {
	states := make([]wire.State, s.nl.NumWires())
	for i, w := range s.nl.Wires {
		if w != nil {
			states[i] = w.State
		} else {
			states[i] = wire.Floating
		}
	}
	return states
}
