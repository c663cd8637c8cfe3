// Package util holds chip-driver debugging helpers: textual dumps of
// netlist/wire state, the digital counterpart of printing a matrix
// before and after a solve.
package util

import (
	"fmt"
	"io"

	"github.com/gmarino2048/Sim2600/pkg/netlist"
	"github.com/gmarino2048/Sim2600/pkg/simulator"
)

// DumpWiresState writes one line per non-null wire: index, name (if
// any), state, and pull. Useful for comparing two settle passes by eye.
func DumpWiresState(w io.Writer, nl *netlist.Netlist) {
	fmt.Fprintf(w, "WIRE STATE (%d wires)\n", nl.NumWires())
	for i := 0; i < nl.NumWires(); i++ {
		wr := nl.WireAt(i)
		if wr == nil {
			continue
		}
		pulled := "-"
		if wr.Pulled != 0 {
			pulled = wr.Pulled.String()
		}
		name := wr.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "%6d  %-24s  %-14s  pulled=%s\n", i, name, wr.State, pulled)
	}
}

// DumpCounters writes a one-line summary of a simulator's diagnostic
// counters, the digital analogue of a matrix-solve summary.
func DumpCounters(w io.Writer, sim *simulator.Simulator) {
	c := sim.Counters()
	fmt.Fprintf(w, "add_wire_to_group=%d add_wire_transistor=%d wires_recalculated=%d\n",
		c.AddWireToGroup, c.AddWireTransistor, c.WiresRecalculated)
}
