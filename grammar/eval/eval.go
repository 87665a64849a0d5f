// Package eval implements the tree-walking evaluator: the component that
// walks a parsed Grammar, resolves imports into the namespace tree,
// dispatches expression nodes to the function registry or to user-defined
// functions, and collects the set of exported values ready for archiving.
package eval

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dekarrin/grmc/grammar/counter"
	"github.com/dekarrin/grmc/grammar/fstengine"
	"github.com/dekarrin/grmc/grammar/label"
	"github.com/dekarrin/grmc/grammar/namespace"
	"github.com/dekarrin/grmc/grammar/parse"
	"github.com/dekarrin/grmc/grammar/registry"
	"github.com/dekarrin/grmc/grammar/syntax"
	"github.com/dekarrin/grmc/internal/cerrors"
)

// ArchiveReader is the minimal contract the evaluator needs from a
// previously-compiled companion archive when resolving an import: the
// symbol table merged into the LabelInterner (if present) and the set of
// named FSTs carried over.
type ArchiveReader interface {
	// SymbolTableEntries returns the distinguished *StringFstSymbolTable
	// entry's contents, if the archive has one.
	SymbolTableEntries() ([]label.ForeignEntry, bool)
	// Fsts returns every other entry in the archive, name -> fst, plus its
	// declared input/output symbol tables.
	Fsts() map[string]fstengine.Fst
}

// ArchiveOpener opens the companion .far archive for a given .grm source
// path. Bound to a real archive reader by the caller (package archive);
// kept as an interface here so eval has no import-cycle dependency on it.
type ArchiveOpener func(farPath string) (ArchiveReader, error)

// Config controls the compile-time options the CLI surface exposes.
type Config struct {
	// AlwaysExport treats every top-level rule as exported, regardless of
	// its "export" keyword.
	AlwaysExport bool
	// OptimizeAllFsts runs the engine's Optimize transform on every
	// materialized FST, not just ones inside an explicit Optimize[...] call.
	OptimizeAllFsts bool
	// SaveSymbols carries canonical byte/utf8 symbol tables through to
	// exported FSTs.
	SaveSymbols bool
	// ImportDirs is searched, in order, for a relative import path.
	ImportDirs []string
}

// Evaluator walks one file's AST. A top-level Evaluator additionally runs
// statements; an imported Evaluator only registers imports and functions
// and reuses its companion archive's already-computed results.
type Evaluator struct {
	cfg      Config
	engine   fstengine.Engine
	reg      *registry.Registry
	interner *label.Interner
	opener   ArchiveOpener

	file     string
	ns       *namespace.Namespace
	counters *counter.Counter

	optimizeDepth int

	reporter *cerrors.Reporter

	// Exported holds every rule name this evaluator exported, in source
	// order, once Run has completed successfully.
	Exported []string
}

// New returns an Evaluator for file, bound to engine and opener. Callers
// compiling a top-level grammar should pass a fresh label.Interner (or
// label.Global()) that persists across the whole compilation so label
// identity is stable across every import it transitively pulls in.
func New(file string, cfg Config, engine fstengine.Engine, interner *label.Interner, opener ArchiveOpener) *Evaluator {
	return &Evaluator{
		cfg:           cfg,
		engine:        engine,
		reg:           registry.New(engine),
		interner:      interner,
		opener:        opener,
		file:          file,
		ns:            namespace.New(file),
		optimizeDepth: -1,
		reporter:      cerrors.NewReporter(file),
	}
}

// Namespace returns this evaluator's namespace, e.g. so a parent import can
// register it as a child namespace under its alias.
func (e *Evaluator) Namespace() *namespace.Namespace { return e.ns }

// Errors returns every diagnostic recorded during Run.
func (e *Evaluator) Errors() []*cerrors.Error { return e.reporter.Errors() }

// Success reports whether Run has recorded no fatal diagnostic so far.
func (e *Evaluator) Success() bool { return e.reporter.Success() }

// Mode reports whether an Evaluator runs statements (ModeTopLevel) or only
// registers imports and functions (ModeImported).
type Mode int

const (
	ModeTopLevel Mode = iota
	ModeImported
)

// Run executes the main evaluator loop against a parsed grammar in the
// given mode. For ModeImported, statements are skipped entirely per the
// specification's import-resolution rule that a companion archive already
// holds their results.
func (e *Evaluator) Run(g *syntax.Grammar, src string, m Mode) error {
	if !e.reporter.Success() {
		return e.reporter.Err()
	}

	cnt, err := counter.New(g.Statements)
	if err != nil {
		e.reporter.Report(0, "%s", err.Error())
		return e.reporter.Err()
	}
	e.counters = cnt

	for _, imp := range g.Imports {
		if !e.reporter.Success() {
			break
		}
		e.processImport(imp)
	}

	for _, fn := range g.Functions {
		if !e.reporter.Success() {
			break
		}
		if ok := e.ns.DefineFunction(fn); !ok {
			e.reporter.Warn(fn.Line(), "duplicate function %q ignored", fn.Name)
		}
	}

	if m == ModeTopLevel {
		for _, stmt := range g.Statements {
			if !e.reporter.Success() {
				break
			}
			e.execStatement(stmt, true)
		}
	}

	return e.reporter.Err()
}

// execStatement runs one top-level statement. Return is only legal inside a
// function body; atTopLevel distinguishes the two contexts.
func (e *Evaluator) execStatement(stmt syntax.Statement, atTopLevel bool) (returned *syntax.Value) {
	switch n := stmt.(type) {
	case *syntax.Return:
		if atTopLevel {
			e.reporter.Report(n.Line(), "return is not legal at the top level of a grammar")
			return nil
		}
		v := e.eval(n.Expr)
		if !e.reporter.Success() {
			return nil
		}
		return &v
	case *syntax.Rule:
		v := e.eval(n.RHS)
		if !e.reporter.Success() {
			return nil
		}
		e.ns.Define(n.Name, v)
		exported := n.Exported || e.cfg.AlwaysExport
		if exported {
			e.Exported = append(e.Exported, n.Name)
		}
		return nil
	default:
		e.reporter.Report(stmt.Line(), "unhandled statement %T", stmt)
		return nil
	}
}

// processImport implements §4.8.1 import resolution.
func (e *Evaluator) processImport(imp *syntax.Import) {
	if !strings.HasSuffix(imp.Path, ".grm") {
		e.reporter.Report(imp.Line(), "import path %q must end in .grm", imp.Path)
		return
	}
	if !syntax.ValidIdentifierComponent(imp.Alias) {
		e.reporter.Report(imp.Line(), "invalid import alias %q", imp.Alias)
		return
	}

	resolved, src, err := e.readImportSource(imp.Path)
	if err != nil {
		e.reporter.Report(imp.Line(), "cannot read import %q: %s", imp.Path, err.Error())
		return
	}

	p, err := parse.New(src, resolved)
	if err != nil {
		e.reporter.Report(imp.Line(), "cannot lex import %q: %s", imp.Path, err.Error())
		return
	}
	childGrammar, err := p.ParseGrammar()
	if err != nil {
		for _, perr := range p.Errors() {
			e.reporter.Report(perr.Line, "%s", perr.Message)
		}
		return
	}

	childEval := New(resolved, e.cfg, e.engine, e.interner, e.opener)
	if err := childEval.Run(childGrammar, src, ModeImported); err != nil {
		for _, cerr := range childEval.Errors() {
			e.reporter.Report(cerr.Line, "%s", cerr.Message)
		}
		return
	}

	if err := e.ns.AddChild(imp.Alias, childEval.ns); err != nil {
		e.reporter.Report(imp.Line(), "%s", err.Error())
		return
	}

	farPath := strings.TrimSuffix(resolved, ".grm") + ".far"
	if e.opener == nil {
		return
	}
	ar, err := e.opener(farPath)
	if err != nil {
		// No companion archive yet (e.g. compiling a chain for the first
		// time) is not fatal on its own; downstream rule lookups into the
		// child namespace will simply find nothing and fail with a clear
		// "unknown identifier" diagnostic if they try.
		return
	}

	if entries, ok := ar.SymbolTableEntries(); ok {
		e.interner.ClearRemap()
		foreign := foreignTable(entries)
		if _, err := e.interner.Merge(foreign); err != nil {
			e.reporter.Report(imp.Line(), "%s", err.Error())
			return
		}
	}

	for name, fst := range ar.Fsts() {
		relabeled, err := e.relabelImported(fst)
		if err != nil {
			e.reporter.Report(imp.Line(), "relabeling imported fst %q: %s", name, err.Error())
			return
		}
		if _, exists := childEval.ns.CurrentEnv().Get(name); exists {
			e.reporter.Report(imp.Line(), "imported fst name %q clashes with an existing binding", name)
			return
		}
		childEval.ns.Define(name, syntax.FstOf(relabeled))
	}
}

func (e *Evaluator) relabelImported(f fstengine.Fst) (fstengine.Fst, error) {
	remap := e.interner.CollectRemap()
	if len(remap) == 0 {
		return f, nil
	}
	return e.engine.RelabelArcs(f, remap)
}

func foreignTable(entries []label.ForeignEntry) label.ForeignTable {
	return foreignEntries(entries)
}

type foreignEntries []label.ForeignEntry

func (f foreignEntries) Entries() []label.ForeignEntry { return []label.ForeignEntry(f) }

// readImportSource resolves a (possibly relative) import path against
// e.cfg.ImportDirs, in order, and returns the resolved absolute-ish path
// plus its source text.
func (e *Evaluator) readImportSource(path string) (resolved string, src string, err error) {
	candidates := []string{path}
	base := filepath.Dir(e.file)
	candidates = append(candidates, filepath.Join(base, path))
	for _, dir := range e.cfg.ImportDirs {
		candidates = append(candidates, filepath.Join(dir, path))
	}
	for _, c := range candidates {
		b, err := os.ReadFile(c)
		if err == nil {
			return c, string(b), nil
		}
	}
	return "", "", fmt.Errorf("not found in any of %d candidate path(s)", len(candidates))
}
