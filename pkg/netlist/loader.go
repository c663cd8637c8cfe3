package netlist

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/gmarino2048/Sim2600/internal/consts"
	"github.com/gmarino2048/Sim2600/pkg/wire"
)

// WireRecord is the on-disk shape of a netlist file, loaded by Load and
// produced by Save as a gob-encoded stream — a portable stand-in for
// the historical pickle-of-parallel-arrays format.
//
// WirePulled[i] holds 0, wire.PulledHigh, or wire.PulledLow directly —
// the record reuses the solver's own bit values instead of a separate
// enum.
//
// WireCtrlFets and WireGates are each the concatenation, for wire i in
// order, of [count, id_0, …, id_{count-1}, NEXT_CTRL].
type WireRecord struct {
	NumWires int
	NumFets  int

	WirePulled []int
	WireNames  []string

	WireCtrlFets []int
	WireGates    []int

	FetSide1WireInds []int
	FetSide2WireInds []int
	FetGateInds      []int
}

func Load(r io.Reader) (*Netlist, error) {
	var rec WireRecord
	if err := gob.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding wire record: %w", err)
	}
	return Build(&rec)
}

func Save(w io.Writer, rec *WireRecord) error {
	if err := gob.NewEncoder(w).Encode(rec); err != nil {
		return fmt.Errorf("encoding wire record: %w", err)
	}
	return nil
}

// Build validates rec's structural invariants and constructs a Netlist.
func Build(rec *WireRecord) (*Netlist, error) {
	if len(rec.WirePulled) != rec.NumWires {
		return nil, fmt.Errorf("%w: WIRE_PULLED has %d entries, want %d", ErrMalformedNetlist, len(rec.WirePulled), rec.NumWires)
	}
	if len(rec.WireNames) != rec.NumWires {
		return nil, fmt.Errorf("%w: WIRE_NAMES has %d entries, want %d", ErrMalformedNetlist, len(rec.WireNames), rec.NumWires)
	}
	if len(rec.FetSide1WireInds) != rec.NumFets || len(rec.FetSide2WireInds) != rec.NumFets || len(rec.FetGateInds) != rec.NumFets {
		return nil, fmt.Errorf("%w: FET_*_WIRE_INDS/FET_GATE_INDS length mismatch against NUM_FETS=%d", ErrMalformedNetlist, rec.NumFets)
	}

	ctrlSegments, err := parseSegments(rec.WireCtrlFets, rec.NumWires)
	if err != nil {
		return nil, fmt.Errorf("%w: WIRE_CTRL_FETS: %v", ErrMalformedNetlist, err)
	}
	gateSegments, err := parseSegments(rec.WireGates, rec.NumWires)
	if err != nil {
		return nil, fmt.Errorf("%w: WIRE_GATES: %v", ErrMalformedNetlist, err)
	}

	nl := &Netlist{
		Wires:       make([]*Wire, rec.NumWires),
		Transistors: make([]*Transistor, rec.NumFets),
		names:       make(map[string]int, rec.NumWires),
	}

	for i := 0; i < rec.NumWires; i++ {
		name := rec.WireNames[i]
		ctrl := ctrlSegments[i]
		gates := gateSegments[i]

		if len(ctrl) == 0 && len(gates) == 0 && name == "" {
			continue // null wire slot
		}

		pulled := wire.State(rec.WirePulled[i])
		if pulled != 0 && pulled != wire.PulledHigh && pulled != wire.PulledLow {
			return nil, fmt.Errorf("%w: wire %d has invalid WIRE_PULLED value %d", ErrMalformedNetlist, i, rec.WirePulled[i])
		}

		w := &Wire{
			Index:              i,
			Name:               name,
			ControlTransistors: ctrl,
			GateTransistors:    gates,
			Pulled:             pulled,
			State:              initialState(pulled),
		}
		nl.Wires[i] = w
		if name != "" {
			nl.names[name] = i
		}
	}

	for i := 0; i < rec.NumFets; i++ {
		s1, s2, g := rec.FetSide1WireInds[i], rec.FetSide2WireInds[i], rec.FetGateInds[i]
		if s1 == consts.NoWire {
			if s2 != consts.NoWire || g != consts.NoWire {
				return nil, fmt.Errorf("%w: transistor %d has side1=NO_WIRE but side2/gate are not also NO_WIRE", ErrMalformedNetlist, i)
			}
			continue // null transistor slot
		}
		nl.Transistors[i] = &Transistor{Index: i, Gate: g, Side1: s1, Side2: s2}
	}

	vccIdx, ok := nl.names["VCC"]
	if !ok {
		return nil, fmt.Errorf("%w: no wire named VCC", ErrMalformedNetlist)
	}
	gndIdx, ok := nl.names["VSS"]
	if !ok {
		return nil, fmt.Errorf("%w: no wire named VSS", ErrMalformedNetlist)
	}
	nl.vcc, nl.gnd = vccIdx, gndIdx
	nl.Wires[vccIdx].State = wire.High
	nl.Wires[gndIdx].State = wire.Grounded

	if err := validateAdjacency(nl); err != nil {
		return nil, err
	}

	for _, t := range nl.Transistors {
		if t == nil {
			continue
		}
		if t.Gate == vccIdx {
			t.GateState = wire.GateHigh
		}
	}

	return nl, nil
}

func initialState(pulled wire.State) wire.State {
	switch pulled {
	case wire.PulledHigh:
		return wire.PulledHigh
	case wire.PulledLow:
		return wire.PulledLow
	default:
		return wire.Floating
	}
}

// parseSegments splits a concatenated [count, id..., NEXT_CTRL] stream
// into one slice of ids per wire, in wire order.
func parseSegments(stream []int, numWires int) ([][]int, error) {
	segments := make([][]int, numWires)
	pos := 0
	for i := 0; i < numWires; i++ {
		if pos >= len(stream) {
			return nil, fmt.Errorf("stream truncated before wire %d", i)
		}
		count := stream[pos]
		pos++
		if count < 0 || pos+count > len(stream) {
			return nil, fmt.Errorf("wire %d: invalid segment count %d", i, count)
		}
		ids := make([]int, count)
		copy(ids, stream[pos:pos+count])
		pos += count
		if pos >= len(stream) {
			return nil, fmt.Errorf("wire %d: missing NEXT_CTRL sentinel", i)
		}
		if stream[pos] != consts.NextCtrl {
			return nil, fmt.Errorf("wire %d: expected NEXT_CTRL sentinel, got %d", i, stream[pos])
		}
		pos++
		segments[i] = ids
	}
	return segments, nil
}

func validateAdjacency(nl *Netlist) error {
	for _, t := range nl.Transistors {
		if t == nil {
			continue
		}
		for _, side := range [2]int{t.Side1, t.Side2} {
			w := nl.WireAt(side)
			if w == nil {
				return fmt.Errorf("%w: transistor %d references null/out-of-range wire %d", ErrMalformedNetlist, t.Index, side)
			}
			if !containsInt(w.ControlTransistors, t.Index) {
				return fmt.Errorf("%w: wire %d does not list transistor %d in its control set", ErrMalformedNetlist, side, t.Index)
			}
		}
	}
	return nil
}

func containsInt(haystack []int, needle int) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
