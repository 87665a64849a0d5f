// Package fstengine defines the contract the grammar evaluator needs from an
// FST algebra implementation. The algebra itself — concatenation, union,
// composition, determinization, minimization, and so on — is an external
// collaborator out of scope for the grammar compiler's front end; this
// package only fixes the shapes the evaluator calls through.
//
// Engine is satisfied here by a small deterministic in-memory reference
// implementation (see refengine.go) adequate for compiling and testing real
// grammars; a production build would instead bind these methods to a real
// weighted-automata library.
package fstengine

import "fmt"

// ClosureKind selects which Kleene-style operation Engine.Closure performs.
type ClosureKind int

const (
	ClosureStar ClosureKind = iota
	ClosurePlus
	ClosureQuestion
	ClosureRange
)

// StringMode selects how Engine.StringFst parses a string literal.
type StringMode int

const (
	ModeByte StringMode = iota
	ModeUtf8
	ModeSymbolTable
)

// Side names a tape for Project, ArcSort, and Compose's optional sort hint.
type Side int

const (
	SideInput Side = iota
	SideOutput
	SideBoth
)

func (s Side) String() string {
	switch s {
	case SideInput:
		return "input"
	case SideOutput:
		return "output"
	case SideBoth:
		return "both"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Fst is an opaque handle to a weighted finite-state transducer. Engine
// implementations decide what concretely backs it; the evaluator only clones,
// compares identity of, and passes it back into Engine calls.
type Fst interface {
	// Clone returns a value that can be mutated independently of the
	// receiver. Cheap (reference/lazy-copy) implementations are expected.
	Clone() Fst
}

// SymbolTable is an opaque handle to a string<->label mapping carried on an
// FST's input or output tape.
type SymbolTable interface {
	// Name identifies the table, e.g. "*ByteSymbolTable" or "*StringFstSymbolTable".
	Name() string
}
