// Package consts holds the netlist format sentinels and solver tunables
// shared across the wire/solver/simulator packages.
package consts

// Wire-file segment sentinels (see pkg/netlist loading contract).
const (
	NextCtrl = 0xFFFE // end-of-segment marker in a WIRE_CTRL_FETS/WIRE_GATES stream
	NoWire   = 0xFFFD // null-transistor sentinel for FET_*_WIRE_INDS
)

// StepLimit bounds a single recalc_* call's work-list passes. Hitting it
// is either swallowed (halfClockCount 0, the initial settle) or surfaced
// as ErrDidNotConverge.
const StepLimit = 400
