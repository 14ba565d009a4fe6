// Command dtlc is a minimal front end over pkg/dtl: it reads a source file
// named on the command line, runs the full check-and-prove pipeline, and
// prints diagnostics or a proof summary. A real CLI (flags, subcommands,
// exit-code conventions, editor integration) is explicitly out of scope for
// this repository; dtlc exists only so the engine is reachable from a
// terminal.
package main

import (
	"fmt"
	"os"

	"github.com/dtlang/dtl/pkg/dtl"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: dtlc <file>")
		os.Exit(2)
	}
	path := os.Args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dtlc: %v\n", err)
		os.Exit(1)
	}

	trace, diags := dtl.ProveProgram(path, string(data), "")
	for _, d := range diags {
		fmt.Printf("%s: %s at %d:%d\n", d.Code, d.Message, d.Line, d.Column)
	}
	if len(diags) > 0 {
		os.Exit(1)
	}

	fmt.Printf("proof trace (%s, profile %s): %d total, %d proved, %d failed\n",
		trace.SchemaVersion, trace.Profile, trace.Summary.Total, trace.Summary.Proved, trace.Summary.Failed)
	for _, ob := range trace.Obligations {
		fmt.Printf("  %s %s: %s\n", ob.Kind, ob.ID, ob.Result)
		if ob.Counterexample != nil {
			for _, nv := range ob.Counterexample.Valuation {
				fmt.Printf("    %s = %s\n", nv.Name, nv.Value)
			}
			for _, g := range ob.Counterexample.MissingGoals {
				fmt.Printf("    missing: %s\n", g)
			}
		}
	}
	if trace.Summary.Failed > 0 {
		os.Exit(1)
	}
}
