package fstengine

// Engine is the fixed API the evaluator calls through. Every method that
// can fail on malformed input (wrong acceptor shape, bad weight text, a
// cyclic Replace) returns an error instead of panicking; the evaluator turns
// that into a compile diagnostic via cerrors.
type Engine interface {
	Concat(a, b Fst) (Fst, error)
	Union(a, b Fst) (Fst, error)
	UnionDelayed(a, b Fst) (Fst, error)
	Difference(a, b Fst) (Fst, error)
	Compose(a, b Fst, sort Side) (Fst, error)
	Rewrite(left, right Fst) (Fst, error)
	Closure(a Fst, kind ClosureKind, min, max int) (Fst, error)
	Determinize(a Fst) (Fst, error)
	Minimize(a Fst) (Fst, error)
	RmEpsilon(a Fst) (Fst, error)
	RmWeight(a Fst) (Fst, error)
	Invert(a Fst) (Fst, error)
	Project(a Fst, side Side) (Fst, error)
	ArcSort(a Fst, side Side) (Fst, error)
	Optimize(a Fst) (Fst, error)
	Expand(a Fst) (Fst, error)
	TopSort(a Fst) (Fst, error)

	// ApplyWeight concatenates a single-state final-weight FST parsed from
	// weight text onto a, in the arc-weight semiring the engine was built
	// for.
	ApplyWeight(a Fst, weightText string) (Fst, error)

	// StringFst compiles a literal string into an FST. For ModeSymbolTable,
	// symtab must be non-nil. Bracketed tokens ("[case=nom]") found in text
	// are resolved through intern, which the evaluator binds to its
	// LabelInterner.
	StringFst(mode StringMode, text string, symtab SymbolTable, intern func(symbol string) int64) (Fst, error)

	StringFile(path string, mode StringMode) (Fst, error)

	LoadFst(path string) (Fst, error)
	LoadFstFromFar(farPath, name string) (Fst, error)
	LoadSymbolTable(path string) (SymbolTable, error)

	LenientlyCompose(l, r, sigmaStar Fst) (Fst, error)

	// Replace expands root, whose arcs carry labels that are keys into
	// labelToFst, recursively substituting the referenced sub-FSTs. Returns
	// an error if the substitution graph is cyclic.
	Replace(root Fst, labelToFst map[int64]Fst, nonTerminalLabels map[int64]bool) (Fst, error)

	IsUnweightedAcceptor(a Fst) bool

	CanonicalByteSymbolTable() SymbolTable
	CanonicalUtf8SymbolTable() SymbolTable

	// RelabelArcs rewrites every ilabel/olabel of every arc of a through
	// remap, in place on a clone, leaving labels absent from remap untouched.
	// Used by the evaluator to apply a LabelInterner merge's remap table to
	// an imported FST.
	RelabelArcs(a Fst, remap map[int64]int64) (Fst, error)

	// SetSymbolTables attaches (or clears, if nil) the input/output symbol
	// tables carried alongside an FST's arcs, used when save_symbols is on.
	SetSymbolTables(a Fst, in, out SymbolTable) (Fst, error)
	SymbolTables(a Fst) (in, out SymbolTable)

	// NumStates reports the state count, used by tests asserting a
	// composition was actually minimized.
	NumStates(a Fst) int
}
