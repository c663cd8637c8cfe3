package solver

import (
	"errors"
	"testing"

	"github.com/gmarino2048/Sim2600/internal/consts"
	"github.com/gmarino2048/Sim2600/pkg/netlist"
	"github.com/gmarino2048/Sim2600/pkg/wire"
)

// buildRecord turns a declarative wire/transistor list into the
// concatenated-stream WireRecord pkg/netlist expects.
func buildRecord(names []string, pulled map[string]wire.State, fets [][3]string) *netlist.WireRecord {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}

	numWires, numFets := len(names), len(fets)
	wirePulled := make([]int, numWires)
	for name, p := range pulled {
		wirePulled[index[name]] = int(p)
	}

	ctrl := make([][]int, numWires)
	gates := make([][]int, numWires)
	side1 := make([]int, numFets)
	side2 := make([]int, numFets)
	gateIdx := make([]int, numFets)

	for i, f := range fets {
		g, s1, s2 := index[f[0]], index[f[1]], index[f[2]]
		gateIdx[i], side1[i], side2[i] = g, s1, s2
		ctrl[s1] = append(ctrl[s1], i)
		ctrl[s2] = append(ctrl[s2], i)
		gates[g] = append(gates[g], i)
	}

	var wireCtrlFets, wireGates []int
	for i := 0; i < numWires; i++ {
		wireCtrlFets = append(wireCtrlFets, len(ctrl[i]))
		wireCtrlFets = append(wireCtrlFets, ctrl[i]...)
		wireCtrlFets = append(wireCtrlFets, consts.NextCtrl)

		wireGates = append(wireGates, len(gates[i]))
		wireGates = append(wireGates, gates[i]...)
		wireGates = append(wireGates, consts.NextCtrl)
	}

	return &netlist.WireRecord{
		NumWires:         numWires,
		NumFets:          numFets,
		WirePulled:       wirePulled,
		WireNames:        names,
		WireCtrlFets:     wireCtrlFets,
		WireGates:        wireGates,
		FetSide1WireInds: side1,
		FetSide2WireInds: side2,
		FetGateInds:      gateIdx,
	}
}

func setPulled(nl *netlist.Netlist, name string, high bool) {
	i, _ := nl.IndexOf(name)
	w := nl.WireAt(i)
	if high {
		w.Pulled, w.State = wire.PulledHigh, wire.PulledHigh
	} else {
		w.Pulled, w.State = wire.PulledLow, wire.PulledLow
	}
}

// S1: a pulled-up inverter. A low -> OUT high; A high -> OUT grounded.
func TestInverter(t *testing.T) {
	rec := buildRecord(
		[]string{"A", "OUT", "VCC", "VSS"},
		map[string]wire.State{"A": wire.PulledLow, "OUT": wire.PulledHigh},
		[][3]string{{"A", "OUT", "VSS"}},
	)
	nl, err := netlist.Build(rec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := New(nl)

	if err := c.RecalcAll(); err != nil {
		t.Fatalf("RecalcAll: %v", err)
	}
	out, _ := nl.IndexOf("OUT")
	if !nl.WireAt(out).IsHigh() {
		t.Fatalf("A=LOW: OUT = %s, want ANY_HIGH", nl.WireAt(out).State)
	}

	setPulled(nl, "A", true)
	a, _ := nl.IndexOf("A")
	if err := c.RecalcWires([]int{a}, 1); err != nil {
		t.Fatalf("RecalcWires: %v", err)
	}
	if nl.WireAt(out).State != wire.Grounded {
		t.Fatalf("A=HIGH: OUT = %s, want GROUNDED", nl.WireAt(out).State)
	}
}

// S2: a pass gate joining two pulled wires; last-write-wins is
// acceptable, but the group must resolve to one of the two pulls, never
// left untouched.
func TestPassGate(t *testing.T) {
	rec := buildRecord(
		[]string{"IN", "OUT", "EN", "VCC", "VSS"},
		map[string]wire.State{"IN": wire.PulledHigh, "OUT": wire.PulledLow, "EN": wire.PulledLow},
		[][3]string{{"EN", "IN", "OUT"}},
	)
	nl, err := netlist.Build(rec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := New(nl)

	if err := c.RecalcAll(); err != nil {
		t.Fatalf("RecalcAll: %v", err)
	}
	out, _ := nl.IndexOf("OUT")
	if nl.WireAt(out).State != wire.PulledLow {
		t.Fatalf("EN=LOW: OUT = %s, want PULLED_LOW", nl.WireAt(out).State)
	}

	setPulled(nl, "EN", true)
	en, _ := nl.IndexOf("EN")
	if err := c.RecalcWires([]int{en}, 1); err != nil {
		t.Fatalf("RecalcWires: %v", err)
	}
	got := nl.WireAt(out).State
	if got != wire.PulledHigh && got != wire.PulledLow {
		t.Fatalf("EN=HIGH: OUT = %s, want one of PULLED_HIGH/PULLED_LOW", got)
	}
}

// S3: charge retention through a pass gate, in both directions.
func TestChargeRetention(t *testing.T) {
	rec := buildRecord(
		[]string{"D", "EN1", "EN2", "VCC", "VSS"},
		map[string]wire.State{},
		[][3]string{
			{"EN1", "D", "VCC"},
			{"EN2", "D", "VSS"},
		},
	)
	nl, err := netlist.Build(rec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := New(nl)
	d, _ := nl.IndexOf("D")
	en1, _ := nl.IndexOf("EN1")
	en2, _ := nl.IndexOf("EN2")

	if err := c.RecalcAll(); err != nil {
		t.Fatalf("RecalcAll: %v", err)
	}

	setPulled(nl, "EN1", true)
	if err := c.RecalcWires([]int{en1}, 1); err != nil {
		t.Fatalf("RecalcWires: %v", err)
	}
	if nl.WireAt(d).State != wire.High {
		t.Fatalf("EN1=HIGH: D = %s, want HIGH", nl.WireAt(d).State)
	}

	setPulled(nl, "EN1", false)
	if err := c.RecalcWires([]int{en1}, 1); err != nil {
		t.Fatalf("RecalcWires: %v", err)
	}
	if nl.WireAt(d).State != wire.FloatingHigh {
		t.Fatalf("EN1=LOW: D = %s, want FLOATING_HIGH", nl.WireAt(d).State)
	}

	setPulled(nl, "EN2", true)
	if err := c.RecalcWires([]int{en2}, 1); err != nil {
		t.Fatalf("RecalcWires: %v", err)
	}
	if nl.WireAt(d).State != wire.Grounded {
		t.Fatalf("EN2=HIGH: D = %s, want GROUNDED", nl.WireAt(d).State)
	}

	setPulled(nl, "EN2", false)
	if err := c.RecalcWires([]int{en2}, 1); err != nil {
		t.Fatalf("RecalcWires: %v", err)
	}
	if nl.WireAt(d).State != wire.FloatingLow {
		t.Fatalf("EN2=LOW: D = %s, want FLOATING_LOW", nl.WireAt(d).State)
	}
}

// S4: joining a 4-wire FLOATING_HIGH region with a 2-wire FLOATING_LOW
// region must resolve the whole union to FLOATING_HIGH (larger
// estimated capacitance).
func TestCapacitanceTieBreak(t *testing.T) {
	rec := buildRecord(
		[]string{"h0", "h1", "h2", "h3", "l0", "l1", "BR", "VCC", "VSS"},
		map[string]wire.State{},
		[][3]string{
			{"VCC", "h0", "h1"},
			{"VCC", "h1", "h2"},
			{"VCC", "h2", "h3"},
			{"VCC", "l0", "l1"},
			{"BR", "h3", "l0"},
		},
	)
	nl, err := netlist.Build(rec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := New(nl)

	for _, name := range []string{"h0", "h1", "h2", "h3"} {
		i, _ := nl.IndexOf(name)
		nl.WireAt(i).State = wire.FloatingHigh
	}
	for _, name := range []string{"l0", "l1"} {
		i, _ := nl.IndexOf(name)
		nl.WireAt(i).State = wire.FloatingLow
	}

	setPulled(nl, "BR", true)
	br, _ := nl.IndexOf("BR")
	if err := c.RecalcWires([]int{br}, 1); err != nil {
		t.Fatalf("RecalcWires: %v", err)
	}

	for _, name := range []string{"h0", "h1", "h2", "h3", "l0", "l1"} {
		i, _ := nl.IndexOf(name)
		if got := nl.WireAt(i).State; got != wire.FloatingHigh {
			t.Errorf("%s = %s, want FLOATING_HIGH after join", name, got)
		}
	}
}

// S5: an odd-length inverter ring has no fixed point. The initial
// settle must swallow non-convergence; a later perturbation with
// half_clock_count > 0 must raise ErrDidNotConverge.
func TestRingOscillatorDoesNotConverge(t *testing.T) {
	rec := buildRecord(
		[]string{"n0", "n1", "n2", "VCC", "VSS"},
		map[string]wire.State{"n0": wire.PulledHigh, "n1": wire.PulledHigh, "n2": wire.PulledHigh},
		[][3]string{
			{"n0", "n1", "VSS"},
			{"n1", "n2", "VSS"},
			{"n2", "n0", "VSS"},
		},
	)
	nl, err := netlist.Build(rec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := New(nl)

	if err := c.RecalcAll(); err != nil {
		t.Fatalf("initial settle must swallow non-convergence, got: %v", err)
	}

	n0, _ := nl.IndexOf("n0")
	err = c.RecalcWires([]int{n0}, 1)
	if !errors.Is(err, ErrDidNotConverge) {
		t.Fatalf("RecalcWires with half_clock_count=1: got %v, want ErrDidNotConverge", err)
	}
}

// A step-limit hit abandons a non-empty work-list mid-flight. The next
// call must not mistake those wires' leftover marks for work already
// queued: seeding again with a wire from the oscillating set must still
// propagate (and still raise ErrDidNotConverge), not silently no-op.
func TestRecalcAfterStepLimitReseedsClean(t *testing.T) {
	rec := buildRecord(
		[]string{"n0", "n1", "n2", "VCC", "VSS"},
		map[string]wire.State{"n0": wire.PulledHigh, "n1": wire.PulledHigh, "n2": wire.PulledHigh},
		[][3]string{
			{"n0", "n1", "VSS"},
			{"n1", "n2", "VSS"},
			{"n2", "n0", "VSS"},
		},
	)
	nl, err := netlist.Build(rec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := New(nl)

	if err := c.RecalcAll(); err != nil {
		t.Fatalf("initial settle must swallow non-convergence, got: %v", err)
	}

	n0, _ := nl.IndexOf("n0")
	n1, _ := nl.IndexOf("n1")
	n2, _ := nl.IndexOf("n2")

	if err := c.RecalcWires([]int{n0}, 1); !errors.Is(err, ErrDidNotConverge) {
		t.Fatalf("first RecalcWires: got %v, want ErrDidNotConverge", err)
	}

	for _, seed := range []int{n1, n2, n0} {
		before := c.Counters().WiresRecalculated
		err := c.RecalcWires([]int{seed}, 1)
		if !errors.Is(err, ErrDidNotConverge) {
			t.Fatalf("RecalcWires(seed=%d) after a step-limit hit: got %v, want ErrDidNotConverge", seed, err)
		}
		if after := c.Counters().WiresRecalculated; after <= before {
			t.Fatalf("RecalcWires(seed=%d) after a step-limit hit did no work (WiresRecalculated %d -> %d); stale marks from the abandoned work-list likely suppressed the seed", seed, before, after)
		}
	}
}

// S6: re-settling an already-settled network is idempotent.
func TestReSettleIsIdempotent(t *testing.T) {
	rec := buildRecord(
		[]string{"A", "OUT", "VCC", "VSS"},
		map[string]wire.State{"A": wire.PulledLow, "OUT": wire.PulledHigh},
		[][3]string{{"A", "OUT", "VSS"}},
	)
	nl, err := netlist.Build(rec)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c := New(nl)

	if err := c.RecalcAll(); err != nil {
		t.Fatalf("RecalcAll: %v", err)
	}
	before := snapshot(nl)

	if err := c.RecalcAll(); err != nil {
		t.Fatalf("second RecalcAll: %v", err)
	}
	after := snapshot(nl)

	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("wire %d: state changed from %s to %s across an idempotent re-settle", i, before[i], after[i])
		}
	}
}

func snapshot(nl *netlist.Netlist) []wire.State {
	out := make([]wire.State, nl.NumWires())
	for i, w := range nl.Wires {
		if w != nil {
			out[i] = w.State
		}
	}
	return out
}
