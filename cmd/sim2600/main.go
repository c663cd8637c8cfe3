// Command sim2600 loads a gob-encoded wire netlist, settles it to its
// initial state, optionally toggles a named clock wire for a number of
// half-clocks, and dumps the resulting wire state.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/gmarino2048/Sim2600/pkg/netlist"
	"github.com/gmarino2048/Sim2600/pkg/simulator"
	"github.com/gmarino2048/Sim2600/pkg/util"
)

func main() {
	clockName := flag.String("clock", "clk0", "name of the wire to toggle each half-clock")
	halfClocks := flag.Int("half-clocks", 0, "number of half-clock toggles to run after the initial settle")
	verbose := flag.Bool("verbose", false, "log solver diagnostics to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatal("usage: sim2600 [-clock name] [-half-clocks n] [-verbose] <netlist_file>")
	}

	logLevel := zerolog.Disabled
	if *verbose {
		logLevel = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(logLevel).With().Timestamp().Logger()

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("opening netlist file: %v", err)
	}
	defer f.Close()

	nl, err := netlist.Load(f)
	if err != nil {
		log.Fatalf("loading netlist: %v", err)
	}
	logger.Info().Int("wires", nl.NumWires()).Int("transistors", nl.NumTransistors()).Msg("netlist loaded")

	sim := simulator.New(nl, simulator.WithLogger(logger))

	if err := sim.RecalcAll(); err != nil {
		log.Fatalf("initial settle: %v", err)
	}
	logger.Info().Msg("initial settle complete")

	high := false
	for i := 0; i < *halfClocks; i++ {
		if high {
			if err := sim.SetLowByName(*clockName); err != nil {
				log.Fatalf("toggling %s: %v", *clockName, err)
			}
		} else {
			if err := sim.SetHighByName(*clockName); err != nil {
				log.Fatalf("toggling %s: %v", *clockName, err)
			}
		}
		high = !high

		if err := sim.RecalcNamedWire(*clockName, i+1); err != nil {
			log.Fatalf("half-clock %d: %v", i+1, err)
		}
	}

	util.DumpWiresState(os.Stdout, nl)
	util.DumpCounters(os.Stdout, sim)
}
