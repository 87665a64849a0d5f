// Package registry implements the process-wide FunctionRegistry: the table
// of named built-in FST primitives the evaluator dispatches FuncCall and
// algebraic-expression nodes through. Each entry wraps a method on an
// fstengine.Engine behind a uniform fn(args []Value) (Value, error) shape,
// classified as unary (first arg is the FST operated on), binary (first two
// args are FSTs), or generic (free-form argument typing).
package registry

import (
	"fmt"

	"github.com/dekarrin/grmc/grammar/fstengine"
	"github.com/dekarrin/grmc/grammar/syntax"
)

// Func is the uniform calling convention every built-in satisfies.
type Func func(args []syntax.Value) (syntax.Value, error)

// Registry holds every built-in bound to one Engine. It is built once per
// Engine and treated as immutable afterward, matching the specification's
// "process-wide table ... initialized once (idempotent) ... treated as
// immutable thereafter".
type Registry struct {
	engine fstengine.Engine
	fns    map[string]Func
}

// New builds the full built-in table bound to engine.
func New(engine fstengine.Engine) *Registry {
	r := &Registry{engine: engine, fns: make(map[string]Func)}
	r.registerBinaryFst()
	r.registerUnaryFst()
	r.registerGeneric()
	return r
}

// Lookup returns the built-in named name, if one exists.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

func wantFst(v syntax.Value, pos int, fn string) (fstengine.Fst, error) {
	if v.Type() != syntax.FstValue {
		return nil, fmt.Errorf("%s: argument %d must be an fst, got %s", fn, pos, v.Type())
	}
	return v.Fst(), nil
}

func wantString(v syntax.Value, pos int, fn string) (string, error) {
	if v.Type() != syntax.StringValue {
		return "", fmt.Errorf("%s: argument %d must be a string, got %s", fn, pos, v.Type())
	}
	return v.String(), nil
}

func wantInt(v syntax.Value, pos int, fn string) (int, error) {
	if v.Type() != syntax.IntValue {
		return 0, fmt.Errorf("%s: argument %d must be an int, got %s", fn, pos, v.Type())
	}
	return v.Int(), nil
}

// projectedOutput applies the project-then-clean pipeline the AssertEqual/
// AssertEmpty/AssertNull family runs before inspecting an fst's accepted
// language: project to the output tape (the side the caller is asserting
// about) and drop epsilon transitions.
func projectedOutput(engine fstengine.Engine, a fstengine.Fst) (fstengine.Fst, error) {
	proj, err := engine.Project(a, fstengine.SideOutput)
	if err != nil {
		return nil, err
	}
	return engine.RmEpsilon(proj)
}

// canonicalLanguage additionally determinizes and strips weights, giving the
// form two fsts' accepted languages can be intersected in regardless of how
// each was built.
func canonicalLanguage(engine fstengine.Engine, a fstengine.Fst) (fstengine.Fst, error) {
	noEps, err := projectedOutput(engine, a)
	if err != nil {
		return nil, err
	}
	det, err := engine.Determinize(noEps)
	if err != nil {
		return nil, err
	}
	return engine.RmWeight(det)
}

// isEmptyLanguage reports whether a accepts nothing at all: no state reachable
// from the start is also final. This is a real reachability test, not a state
// count, since a trimmed-looking automaton can still carry unreachable or
// non-coaccessible states.
func isEmptyLanguage(engine fstengine.Engine, a fstengine.Fst) (bool, error) {
	extractor, ok := engine.(fstengine.PathExtractor)
	if !ok {
		return false, fmt.Errorf("engine %T cannot test language emptiness", engine)
	}
	_, hasPath := extractor.ShortestOutputPath(a)
	return !hasPath, nil
}

// languagesEquivalent runs AssertEqual's project/clean/intersect check on a
// and b: both sides are canonicalized, then intersected; two null languages
// are equivalent, otherwise the intersection must be non-empty. A string
// accepted by only one side does not make the check fail as long as the two
// languages share at least one string.
func languagesEquivalent(engine fstengine.Engine, a, b fstengine.Fst) (bool, error) {
	left, err := canonicalLanguage(engine, a)
	if err != nil {
		return false, err
	}
	right, err := canonicalLanguage(engine, b)
	if err != nil {
		return false, err
	}

	leftEmpty, err := isEmptyLanguage(engine, left)
	if err != nil {
		return false, err
	}
	rightEmpty, err := isEmptyLanguage(engine, right)
	if err != nil {
		return false, err
	}
	if leftEmpty && rightEmpty {
		return true, nil
	}

	intersection, err := engine.Compose(left, right, fstengine.SideBoth)
	if err != nil {
		return false, err
	}
	intersectionEmpty, err := isEmptyLanguage(engine, intersection)
	if err != nil {
		return false, err
	}
	return !intersectionEmpty, nil
}

// registerBinaryFst wires the built-ins whose first two arguments must be
// FSTs.
func (r *Registry) registerBinaryFst() {
	binary := func(name string, op func(a, b fstengine.Fst) (fstengine.Fst, error)) {
		r.fns[name] = func(args []syntax.Value) (syntax.Value, error) {
			if len(args) < 2 {
				return syntax.Value{}, fmt.Errorf("%s: requires 2 arguments, got %d", name, len(args))
			}
			a, err := wantFst(args[0], 1, name)
			if err != nil {
				return syntax.Value{}, err
			}
			b, err := wantFst(args[1], 2, name)
			if err != nil {
				return syntax.Value{}, err
			}
			out, err := op(a, b)
			if err != nil {
				return syntax.Value{}, err
			}
			return syntax.FstOf(out), nil
		}
	}

	binary("Concat", r.engine.Concat)
	binary("Union", r.engine.Union)
	binary("UnionDelayed", r.engine.UnionDelayed)
	binary("Difference", r.engine.Difference)
	binary("Rewrite", r.engine.Rewrite)

	r.fns["Compose"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) < 2 {
			return syntax.Value{}, fmt.Errorf("Compose: requires at least 2 arguments, got %d", len(args))
		}
		a, err := wantFst(args[0], 1, "Compose")
		if err != nil {
			return syntax.Value{}, err
		}
		b, err := wantFst(args[1], 2, "Compose")
		if err != nil {
			return syntax.Value{}, err
		}
		sort := fstengine.SideBoth
		if len(args) >= 3 {
			s, err := wantString(args[2], 3, "Compose")
			if err != nil {
				return syntax.Value{}, err
			}
			sort, err = parseSide(s)
			if err != nil {
				return syntax.Value{}, err
			}
		}
		out, err := r.engine.Compose(a, b, sort)
		if err != nil {
			return syntax.Value{}, err
		}
		return syntax.FstOf(out), nil
	}

	r.fns["LenientlyCompose"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) != 3 {
			return syntax.Value{}, fmt.Errorf("LenientlyCompose: requires 3 arguments, got %d", len(args))
		}
		l, err := wantFst(args[0], 1, "LenientlyCompose")
		if err != nil {
			return syntax.Value{}, err
		}
		rr, err := wantFst(args[1], 2, "LenientlyCompose")
		if err != nil {
			return syntax.Value{}, err
		}
		sigma, err := wantFst(args[2], 3, "LenientlyCompose")
		if err != nil {
			return syntax.Value{}, err
		}
		out, err := r.engine.LenientlyCompose(l, rr, sigma)
		if err != nil {
			return syntax.Value{}, err
		}
		return syntax.FstOf(out), nil
	}

	r.fns["AssertEqual"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) != 2 {
			return syntax.Value{}, fmt.Errorf("AssertEqual: requires 2 arguments, got %d", len(args))
		}
		a, err := wantFst(args[0], 1, "AssertEqual")
		if err != nil {
			return syntax.Value{}, err
		}
		b, err := wantFst(args[1], 2, "AssertEqual")
		if err != nil {
			return syntax.Value{}, err
		}
		equal, err := languagesEquivalent(r.engine, a, b)
		if err != nil {
			return syntax.Value{}, fmt.Errorf("AssertEqual: %w", err)
		}
		if !equal {
			return syntax.Value{}, fmt.Errorf("AssertEqual: arguments are not equivalent")
		}
		return args[0], nil
	}
}

// registerUnaryFst wires the built-ins whose first argument is the FST
// operated on, with the remainder controlling how.
func (r *Registry) registerUnaryFst() {
	unary := func(name string, op func(a fstengine.Fst) (fstengine.Fst, error)) {
		r.fns[name] = func(args []syntax.Value) (syntax.Value, error) {
			if len(args) < 1 {
				return syntax.Value{}, fmt.Errorf("%s: requires 1 argument, got %d", name, len(args))
			}
			a, err := wantFst(args[0], 1, name)
			if err != nil {
				return syntax.Value{}, err
			}
			out, err := op(a)
			if err != nil {
				return syntax.Value{}, err
			}
			return syntax.FstOf(out), nil
		}
	}

	unary("Determinize", r.engine.Determinize)
	unary("Minimize", r.engine.Minimize)
	unary("RmEpsilon", r.engine.RmEpsilon)
	unary("RmWeight", r.engine.RmWeight)
	unary("Invert", r.engine.Invert)
	unary("Optimize", r.engine.Optimize)
	unary("Expand", r.engine.Expand)

	r.fns["Project"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) != 2 {
			return syntax.Value{}, fmt.Errorf("Project: requires 2 arguments, got %d", len(args))
		}
		a, err := wantFst(args[0], 1, "Project")
		if err != nil {
			return syntax.Value{}, err
		}
		s, err := wantString(args[1], 2, "Project")
		if err != nil {
			return syntax.Value{}, err
		}
		side, err := parseSide(s)
		if err != nil {
			return syntax.Value{}, err
		}
		out, err := r.engine.Project(a, side)
		if err != nil {
			return syntax.Value{}, err
		}
		return syntax.FstOf(out), nil
	}

	r.fns["ArcSort"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) != 2 {
			return syntax.Value{}, fmt.Errorf("ArcSort: requires 2 arguments, got %d", len(args))
		}
		a, err := wantFst(args[0], 1, "ArcSort")
		if err != nil {
			return syntax.Value{}, err
		}
		s, err := wantString(args[1], 2, "ArcSort")
		if err != nil {
			return syntax.Value{}, err
		}
		side, err := parseSide(s)
		if err != nil {
			return syntax.Value{}, err
		}
		out, err := r.engine.ArcSort(a, side)
		if err != nil {
			return syntax.Value{}, err
		}
		return syntax.FstOf(out), nil
	}

	r.fns["Closure"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) < 2 {
			return syntax.Value{}, fmt.Errorf("Closure: requires at least 2 arguments, got %d", len(args))
		}
		a, err := wantFst(args[0], 1, "Closure")
		if err != nil {
			return syntax.Value{}, err
		}
		kindName, err := wantString(args[1], 2, "Closure")
		if err != nil {
			return syntax.Value{}, err
		}
		kind, min, max, err := parseClosureKind(kindName, args[2:])
		if err != nil {
			return syntax.Value{}, err
		}
		out, err := r.engine.Closure(a, kind, min, max)
		if err != nil {
			return syntax.Value{}, err
		}
		return syntax.FstOf(out), nil
	}

	r.fns["AssertEmpty"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) != 1 {
			return syntax.Value{}, fmt.Errorf("AssertEmpty: requires 1 argument, got %d", len(args))
		}
		a, err := wantFst(args[0], 1, "AssertEmpty")
		if err != nil {
			return syntax.Value{}, err
		}
		epsilon, err := r.engine.StringFst(fstengine.ModeByte, "", nil, nil)
		if err != nil {
			return syntax.Value{}, err
		}
		equal, err := languagesEquivalent(r.engine, a, epsilon)
		if err != nil {
			return syntax.Value{}, fmt.Errorf("AssertEmpty: %w", err)
		}
		if !equal {
			return syntax.Value{}, fmt.Errorf("AssertEmpty: fst is not empty")
		}
		return args[0], nil
	}

	r.fns["AssertNull"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) != 1 {
			return syntax.Value{}, fmt.Errorf("AssertNull: requires 1 argument, got %d", len(args))
		}
		a, err := wantFst(args[0], 1, "AssertNull")
		if err != nil {
			return syntax.Value{}, err
		}
		noEps, err := projectedOutput(r.engine, a)
		if err != nil {
			return syntax.Value{}, fmt.Errorf("AssertNull: %w", err)
		}
		empty, err := isEmptyLanguage(r.engine, noEps)
		if err != nil {
			return syntax.Value{}, fmt.Errorf("AssertNull: %w", err)
		}
		if !empty {
			return syntax.Value{}, fmt.Errorf("AssertNull: fst is not null")
		}
		return args[0], nil
	}
}

// registerGeneric wires the built-ins whose argument typing does not fit
// the unary/binary FST pattern.
func (r *Registry) registerGeneric() {
	r.fns["StringFst"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) < 2 {
			return syntax.Value{}, fmt.Errorf("StringFst: requires at least 2 arguments, got %d", len(args))
		}
		modeName, err := wantString(args[0], 1, "StringFst")
		if err != nil {
			return syntax.Value{}, err
		}
		mode, err := parseStringMode(modeName)
		if err != nil {
			return syntax.Value{}, err
		}
		text, err := wantString(args[1], 2, "StringFst")
		if err != nil {
			return syntax.Value{}, err
		}
		var symtab fstengine.SymbolTable
		if len(args) >= 3 && args[2].Type() == syntax.SymbolTableValue {
			symtab = args[2].SymbolTable()
		}
		out, err := r.engine.StringFst(mode, text, symtab, nil)
		if err != nil {
			return syntax.Value{}, err
		}
		return syntax.FstOf(out), nil
	}

	r.fns["StringFile"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) != 2 {
			return syntax.Value{}, fmt.Errorf("StringFile: requires 2 arguments, got %d", len(args))
		}
		path, err := wantString(args[0], 1, "StringFile")
		if err != nil {
			return syntax.Value{}, err
		}
		modeName, err := wantString(args[1], 2, "StringFile")
		if err != nil {
			return syntax.Value{}, err
		}
		mode, err := parseStringMode(modeName)
		if err != nil {
			return syntax.Value{}, err
		}
		out, err := r.engine.StringFile(path, mode)
		if err != nil {
			return syntax.Value{}, err
		}
		return syntax.FstOf(out), nil
	}

	r.fns["LoadFst"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) != 1 {
			return syntax.Value{}, fmt.Errorf("LoadFst: requires 1 argument, got %d", len(args))
		}
		path, err := wantString(args[0], 1, "LoadFst")
		if err != nil {
			return syntax.Value{}, err
		}
		out, err := r.engine.LoadFst(path)
		if err != nil {
			return syntax.Value{}, err
		}
		return syntax.FstOf(out), nil
	}

	r.fns["LoadFstFromFar"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) != 2 {
			return syntax.Value{}, fmt.Errorf("LoadFstFromFar: requires 2 arguments, got %d", len(args))
		}
		farPath, err := wantString(args[0], 1, "LoadFstFromFar")
		if err != nil {
			return syntax.Value{}, err
		}
		name, err := wantString(args[1], 2, "LoadFstFromFar")
		if err != nil {
			return syntax.Value{}, err
		}
		out, err := r.engine.LoadFstFromFar(farPath, name)
		if err != nil {
			return syntax.Value{}, err
		}
		return syntax.FstOf(out), nil
	}

	r.fns["SymbolTable"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) != 1 {
			return syntax.Value{}, fmt.Errorf("SymbolTable: requires 1 argument, got %d", len(args))
		}
		path, err := wantString(args[0], 1, "SymbolTable")
		if err != nil {
			return syntax.Value{}, err
		}
		out, err := r.engine.LoadSymbolTable(path)
		if err != nil {
			return syntax.Value{}, err
		}
		return syntax.SymbolTableOf(out), nil
	}

	r.fns["Replace"] = func(args []syntax.Value) (syntax.Value, error) {
		if len(args) < 2 {
			return syntax.Value{}, fmt.Errorf("Replace: requires at least 2 arguments, got %d", len(args))
		}
		root, err := wantFst(args[0], 1, "Replace")
		if err != nil {
			return syntax.Value{}, err
		}
		labelToFst := make(map[int64]fstengine.Fst)
		nonTerminal := make(map[int64]bool)
		for i, a := range args[1:] {
			if a.Type() != syntax.FstValue {
				return syntax.Value{}, fmt.Errorf("Replace: argument %d must be an fst, got %s", i+2, a.Type())
			}
			lbl := int64(i)
			labelToFst[lbl] = a.Fst()
			nonTerminal[lbl] = true
		}
		out, err := r.engine.Replace(root, labelToFst, nonTerminal)
		if err != nil {
			return syntax.Value{}, err
		}
		return syntax.FstOf(out), nil
	}
}

func parseSide(s string) (fstengine.Side, error) {
	switch s {
	case "input":
		return fstengine.SideInput, nil
	case "output":
		return fstengine.SideOutput, nil
	case "both":
		return fstengine.SideBoth, nil
	default:
		return 0, fmt.Errorf("invalid side %q, want \"input\", \"output\", or \"both\"", s)
	}
}

func parseStringMode(s string) (fstengine.StringMode, error) {
	switch s {
	case "byte":
		return fstengine.ModeByte, nil
	case "utf8":
		return fstengine.ModeUtf8, nil
	case "symbol":
		return fstengine.ModeSymbolTable, nil
	default:
		return 0, fmt.Errorf("invalid string mode %q", s)
	}
}

func parseClosureKind(s string, rest []syntax.Value) (fstengine.ClosureKind, int, int, error) {
	switch s {
	case "star":
		return fstengine.ClosureStar, 0, 0, nil
	case "plus":
		return fstengine.ClosurePlus, 0, 0, nil
	case "question":
		return fstengine.ClosureQuestion, 0, 0, nil
	case "range":
		if len(rest) < 2 {
			return 0, 0, 0, fmt.Errorf("Closure: range requires min and max arguments")
		}
		min, err := wantInt(rest[0], 3, "Closure")
		if err != nil {
			return 0, 0, 0, err
		}
		max, err := wantInt(rest[1], 4, "Closure")
		if err != nil {
			return 0, 0, 0, err
		}
		return fstengine.ClosureRange, min, max, nil
	default:
		return 0, 0, 0, fmt.Errorf("invalid closure kind %q", s)
	}
}
