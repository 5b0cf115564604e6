// Package internal provides the proof engine behind vcprove.
//
// It loads VC module files, resolves their imports into a symbol table and
// hands the verification conditions of a module to the congruence closure
// prover in internal/prover.
//
// Key components:
//
// Engine: Coordinates a proof run. It loads a module file, consults the proof
// cache, runs the prover and writes the resulting .proof file next to the
// module.
//
// SymbolTable: Keeps every loaded module together with its symbols, theorems
// and VCs, and answers the theorem queries the prover makes while following
// imports.
//
// Cache: A pebble store of decided results keyed by module, VC, visible
// theorems and prover settings.
//
// A module file is YAML:
//
//	module: Stack_Template
//	imports: [Integer_Theory]
//	symbols:
//	  Max_Depth: Z
//	theorems:
//	  - name: Zero_Additive
//	    forall: {x: Z}
//	    assertion: "x + 0 == x"
//	vcs:
//	  - id: 1
//	    explanation: "Ensures clause of Push"
//	    left: ["Max_Depth > 0"]
//	    right: ["Max_Depth + 0 == Max_Depth"]
//
// Usage:
//
//	engine, err := internal.NewEngine(logger, internal.EngineConfig{Prover: prover.DefaultConfig()})
//	if err != nil {
//	    // handle error
//	}
//	defer engine.Close()
//
//	report, err := engine.Run(ctx, "path/to/Stack.vc")
//	if err != nil {
//	    // handle error
//	}
//	fmt.Print(report.Summary)
package internal
