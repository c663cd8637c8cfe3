// Package solver implements the wire-network calculator: group
// resolution over the conducting-transistor graph, and the work-list-
// driven iteration loop that propagates a change to a fixed point.
//
// This is the hard part of the simulator. Its shape borrows from a
// reusable numeric solver: preallocated buffers cleared and reused
// across calls, a Solve-style method that returns an error, and an
// iterate-with-a-cap-then-fail loop — the same "bounded iterations,
// swallow vs return error" pattern a Newton-Raphson solver uses for
// numeric convergence, generalized here to work-list exhaustion.
package solver

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/gmarino2048/Sim2600/internal/consts"
	"github.com/gmarino2048/Sim2600/pkg/netlist"
	"github.com/gmarino2048/Sim2600/pkg/wire"
)

var ErrDidNotConverge = errors.New("did not converge")

type Counters struct {
	AddWireToGroup    uint64
	AddWireTransistor uint64
	WiresRecalculated uint64
}

// Calculator mutates wire.State and transistor GateState in place on
// the Netlist it was built from.
type Calculator struct {
	nl     *netlist.Netlist
	logger zerolog.Logger

	// Each pass swaps which physical pair plays "current" and which
	// plays "next"; the pair not in use carries an all-false marker
	// array, maintained by the dequeue-time clear.
	bufA, bufB   []int
	markA, markB []bool

	groupMembers []int
	groupStack   []int
	groupMark    []bool

	counters Counters
}

type Option func(*Calculator)

// WithLogger installs a zerolog.Logger for the step-limit warning, which
// is logged whether the non-convergence is then swallowed or returned.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Calculator) { c.logger = l }
}

func New(nl *netlist.Netlist, opts ...Option) *Calculator {
	n := nl.NumWires()
	c := &Calculator{
		nl:           nl,
		logger:       zerolog.Nop(),
		bufA:         make([]int, 0, n),
		bufB:         make([]int, 0, n),
		markA:        make([]bool, n),
		markB:        make([]bool, n),
		groupMembers: make([]int, 0, n),
		groupStack:   make([]int, 0, n),
		groupMark:    make([]bool, n),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) Counters() Counters { return c.counters }

// RecalcAll seeds every non-null wire index. Intended for the initial
// settle only: non-convergence is logged and swallowed, never returned.
func (c *Calculator) RecalcAll() error {
	seeds := make([]int, 0, c.nl.NumWires())
	for i, w := range c.nl.Wires {
		if w != nil {
			seeds = append(seeds, i)
		}
	}
	return c.recalcWires(seeds, 0)
}

// RecalcWires propagates a change from seedIndices to a fixed point.
// Non-convergence is swallowed when halfClockCount is 0, and surfaced
// as ErrDidNotConverge otherwise.
func (c *Calculator) RecalcWires(seedIndices []int, halfClockCount int) error {
	return c.recalcWires(seedIndices, halfClockCount)
}

func (c *Calculator) recalcWires(seeds []int, halfClockCount int) error {
	if len(seeds) == 0 {
		return nil
	}

	currentBuf, currentMark := c.bufA[:0], c.markA
	nextBuf, nextMark := c.bufB[:0], c.markB

	for _, s := range seeds {
		if currentMark[s] {
			continue
		}
		currentMark[s] = true
		currentBuf = append(currentBuf, s)
	}

	step := 0
	for len(currentBuf) > 0 {
		for _, w := range currentBuf {
			nextMark[w] = false // w may have been (re)enqueued; allow re-entry next round
			c.doWireRecalc(w, &nextBuf, nextMark)
			currentMark[w] = false
		}
		currentBuf, nextBuf = nextBuf, currentBuf[:0]
		currentMark, nextMark = nextMark, currentMark

		step++
		if step >= consts.StepLimit {
			c.logger.Warn().Int("step_limit", consts.StepLimit).Int("half_clock_count", halfClockCount).
				Msg("recalc hit the step limit without settling")
			// The work-list is abandoned unprocessed here; its marks
			// must be cleared too, or a later call's seeding loop mistakes
			// a stale true bit for work already queued and drops the seed.
			for _, w := range currentBuf {
				currentMark[w] = false
			}
			for _, w := range nextBuf {
				nextMark[w] = false
			}
			c.bufA, c.bufB = currentBuf[:0], nextBuf[:0]
			c.markA, c.markB = currentMark, nextMark
			if halfClockCount > 0 {
				return fmt.Errorf("%w: after %d passes", ErrDidNotConverge, step)
			}
			return nil
		}
	}

	c.bufA, c.bufB = currentBuf, nextBuf
	c.markA, c.markB = currentMark, nextMark
	return nil
}

func (c *Calculator) doWireRecalc(wireIdx int, nextBuf *[]int, nextMark []bool) {
	if c.nl.IsRail(wireIdx) {
		return
	}

	group := c.buildGroup(wireIdx)
	newValue := c.resolveGroupValue(group)
	newHigh := newValue&wire.AnyHigh != 0

	for _, m := range group {
		if c.nl.IsRail(m) {
			continue
		}
		w := c.nl.WireAt(m)
		w.State = newValue
		c.counters.WiresRecalculated++

		for _, gi := range w.GateTransistors {
			g := c.nl.TransistorAt(gi)
			if g == nil {
				continue
			}
			switch {
			case newHigh && g.GateState == wire.GateLow:
				g.GateState = wire.GateHigh
				c.enqueue(g.Side1, nextBuf, nextMark)
				c.enqueue(g.Side2, nextBuf, nextMark)
			case !newHigh && g.GateState == wire.GateHigh:
				g.GateState = wire.GateLow
				c.floatWire(g.Side1)
				c.floatWire(g.Side2)
				c.enqueue(g.Side1, nextBuf, nextMark)
				c.enqueue(g.Side2, nextBuf, nextMark)
			}
		}
	}

	c.clearGroupMarks(group)
}

func (c *Calculator) enqueue(wireIdx int, buf *[]int, mark []bool) {
	if mark[wireIdx] {
		return
	}
	mark[wireIdx] = true
	*buf = append(*buf, wireIdx)
}

// floatWire converts a just-disconnected wire to its residual state.
// The two final conditions are sequential ifs, not else-if, even though
// only one of them can ever match a given wire.
func (c *Calculator) floatWire(i int) {
	w := c.nl.WireAt(i)
	if w == nil || c.nl.IsRail(i) {
		return
	}

	switch w.Pulled {
	case wire.PulledHigh:
		w.State = wire.PulledHigh
		return
	case wire.PulledLow:
		w.State = wire.PulledLow
		return
	}

	if w.State == wire.Grounded || w.State == wire.PulledLow {
		w.State = wire.FloatingLow
	}
	if w.State == wire.High || w.State == wire.PulledHigh {
		w.State = wire.FloatingHigh
	}
}

// buildGroup floods from seed across conducting transistors with an
// explicit stack — real chip groups can chain deep enough to blow a
// recursive call stack.
func (c *Calculator) buildGroup(seed int) []int {
	members := c.groupMembers[:0]
	mark := c.groupMark
	stack := c.groupStack[:0]

	mark[seed] = true
	members = append(members, seed)
	c.counters.AddWireToGroup++

	if !c.nl.IsRail(seed) {
		stack = append(stack, seed)

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			w := c.nl.WireAt(cur)
			for _, ti := range w.ControlTransistors {
				t := c.nl.TransistorAt(ti)
				if t == nil || t.GateState == wire.GateLow {
					continue
				}
				c.counters.AddWireTransistor++

				other := t.OtherSide(cur)
				if mark[other] {
					continue
				}
				mark[other] = true
				members = append(members, other)
				c.counters.AddWireToGroup++

				if c.nl.IsRail(other) {
					continue // stop descending through the rail
				}
				stack = append(stack, other)
			}
		}
	}

	c.groupMembers = members
	c.groupStack = stack[:0]
	return members
}

func (c *Calculator) clearGroupMarks(group []int) {
	for _, idx := range group {
		c.groupMark[idx] = false
	}
}

// resolveGroupValue: ground and VCC dominate, an explicit pull on any
// member dominates next, and a floating-high/floating-low tie is
// broken by estimated capacitance.
func (c *Calculator) resolveGroupValue(group []int) wire.State {
	if slices.Contains(group, c.nl.GND()) {
		return wire.Grounded
	}
	if slices.Contains(group, c.nl.VCC()) {
		return wire.High
	}

	var value wire.State
	sawFloatingLow, sawFloatingHigh := false, false

	for i, idx := range group {
		w := c.nl.WireAt(idx)
		if i == 0 {
			value = w.State
		}

		switch w.State {
		case wire.FloatingLow:
			sawFloatingLow = true
		case wire.FloatingHigh:
			sawFloatingHigh = true
		}

		switch w.Pulled {
		case wire.PulledHigh:
			value = wire.PulledHigh
		case wire.PulledLow:
			value = wire.PulledLow
		}
	}

	if (value == wire.FloatingLow || value == wire.FloatingHigh) && sawFloatingLow && sawFloatingHigh {
		return c.breakFloatingTie(group)
	}

	return value
}

// breakFloatingTie: the side with more summed adjacency wins; ties
// (including all-zero) favor FLOATING_HIGH.
func (c *Calculator) breakFloatingTie(group []int) wire.State {
	capFloatingHigh, capFloatingLow := 0, 0
	for _, idx := range group {
		w := c.nl.WireAt(idx)
		switch w.State {
		case wire.FloatingHigh:
			capFloatingHigh += w.Capacitance()
		case wire.FloatingLow:
			capFloatingLow += w.Capacitance()
		}
	}
	if capFloatingHigh >= capFloatingLow {
		return wire.FloatingHigh
	}
	return wire.FloatingLow
}
