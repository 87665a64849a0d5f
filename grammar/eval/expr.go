package eval

import (
	"github.com/dekarrin/grmc/grammar/fstengine"
	"github.com/dekarrin/grmc/grammar/namespace"
	"github.com/dekarrin/grmc/grammar/syntax"
)

// eval is MakeValue: it dispatches on the concrete expression node kind,
// evaluates sub-expressions recursively, and invokes either a built-in
// registry function or a user-defined function of the same name. Any
// failure along the way calls report and returns a zero Value; callers must
// check e.reporter.Success() before trusting the result.
func (e *Evaluator) eval(expr syntax.Expr) syntax.Value {
	if !e.reporter.Success() {
		return syntax.Value{}
	}

	switch n := expr.(type) {
	case *syntax.Identifier:
		return e.evalIdentifier(n)
	case *syntax.FuncCall:
		return e.evalFuncCall(n)
	case *syntax.Concat:
		return e.evalConcat(n)
	case *syntax.BinOp:
		return e.evalBinOp(n)
	case *syntax.Repetition:
		return e.evalRepetition(n)
	case *syntax.Weight:
		return e.evalWeight(n)
	case *syntax.StringFst:
		return e.evalStringFst(n)
	case *syntax.ModeLit:
		return syntax.StringOf(modeLitName(n.Mode))
	default:
		e.report(expr.Line(), "unhandled expression node %T", expr)
		return syntax.Value{}
	}
}

func (e *Evaluator) report(line int, format string, args ...interface{}) {
	e.reporter.Report(line, format, args...)
}

// evalIdentifier resolves a (possibly dotted) identifier by descending
// through namespaces per the alias chain, then searching the target
// namespace's local environment stack innermost-first. On success, a
// top-level unqualified reference's count is decremented; if no more
// references remain, the binding is erased to bound memory use.
func (e *Evaluator) evalIdentifier(n *syntax.Identifier) syntax.Value {
	parts := n.Namespace()
	leaf := n.Leaf()

	_, v, ok, err := namespace.Resolve(e.ns, parts, leaf)
	if err != nil {
		e.report(n.Line(), "%s", err.Error())
		return syntax.Value{}
	}
	if !ok {
		e.report(n.Line(), "unknown identifier %q", n.Full)
		return syntax.Value{}
	}
	if len(parts) == 0 {
		e.decrementIfDone(leaf)
	}
	return v.Clone()
}

func (e *Evaluator) decrementIfDone(leaf string) {
	if e.counters == nil {
		return
	}
	if _, tracked := e.counters.Count(leaf); !tracked {
		return
	}
	if !e.counters.Decrement(leaf) {
		_ = e.ns.Erase(nil, leaf)
	}
}

// evalFuncCall evaluates a user-defined function (searched for in the
// current namespace only — function tables are not inherited across
// namespace boundaries) or falls back to a built-in registry primitive,
// which is only legal for unqualified names.
func (e *Evaluator) evalFuncCall(n *syntax.FuncCall) syntax.Value {
	if fn, ok := e.ns.Function(n.Name); ok {
		return e.callUserFunction(fn, n)
	}

	if n.Name == "Optimize" {
		return e.evalOptimizeCall(n)
	}

	sig, known := syntax.BuiltInFunctions[n.Name]
	if !known {
		e.report(n.Line(), "call to undefined function %q", n.Name)
		return syntax.Value{}
	}
	args := make([]syntax.Value, 0, len(n.Args))
	for _, a := range n.Args {
		v := e.eval(a)
		if !e.reporter.Success() {
			return syntax.Value{}
		}
		args = append(args, v)
	}
	if len(args) < sig.RequiredArgs || (!sig.VariableArity && len(args) != sig.RequiredArgs) {
		e.report(n.Line(), "%s: expected %d argument(s), got %d", n.Name, sig.RequiredArgs, len(args))
		return syntax.Value{}
	}

	builtin, ok := e.reg.Lookup(n.Name)
	if !ok {
		e.report(n.Line(), "%s: not implemented by this engine", n.Name)
		return syntax.Value{}
	}
	out, err := builtin(args)
	if err != nil {
		e.report(n.Line(), "%s", err.Error())
		return syntax.Value{}
	}
	return e.postProcess(out, nil)
}

func (e *Evaluator) callUserFunction(fn *syntax.Function, call *syntax.FuncCall) syntax.Value {
	if len(call.Args) != len(fn.Params) {
		e.report(call.Line(), "%s: expected %d argument(s), got %d", fn.Name, len(fn.Params), len(call.Args))
		return syntax.Value{}
	}
	args := make([]syntax.Value, len(call.Args))
	for i, a := range call.Args {
		args[i] = e.eval(a)
		if !e.reporter.Success() {
			return syntax.Value{}
		}
	}

	e.ns.PushEnv()
	defer e.ns.PopEnv()
	for i, p := range fn.Params {
		e.ns.Define(p, args[i].Clone())
	}

	var result syntax.Value
	for _, stmt := range fn.Body {
		if !e.reporter.Success() {
			return syntax.Value{}
		}
		if ret, ok := stmt.(*syntax.Return); ok {
			result = e.eval(ret.Expr)
			return result
		}
		e.execStatement(stmt, false)
	}
	e.report(fn.Line(), "%s: function body has no return statement", fn.Name)
	return syntax.Value{}
}

func (e *Evaluator) evalConcat(n *syntax.Concat) syntax.Value {
	if len(n.Parts) == 0 {
		e.report(n.Line(), "empty concatenation")
		return syntax.Value{}
	}
	acc := e.eval(n.Parts[0])
	if !e.reporter.Success() {
		return syntax.Value{}
	}
	for _, part := range n.Parts[1:] {
		next := e.eval(part)
		if !e.reporter.Success() {
			return syntax.Value{}
		}
		concatFn, _ := e.reg.Lookup("Concat")
		out, err := concatFn([]syntax.Value{acc, next})
		if err != nil {
			e.report(n.Line(), "%s", err.Error())
			return syntax.Value{}
		}
		acc = out
	}
	return e.postProcess(acc, nil)
}

// evalBinOp evaluates union/difference/composition/rewrite. Composition
// additionally participates in optimize-depth tracking (§4.8.3).
func (e *Evaluator) evalBinOp(n *syntax.BinOp) syntax.Value {
	if n.Op == syntax.OpComposition && e.optimizeDepth >= 0 {
		e.optimizeDepth++
	}
	left := e.eval(n.Left)
	if !e.reporter.Success() {
		return syntax.Value{}
	}
	right := e.eval(n.Right)
	if !e.reporter.Success() {
		return syntax.Value{}
	}

	name := map[syntax.BinOpKind]string{
		syntax.OpUnion:       "Union",
		syntax.OpDifference:  "Difference",
		syntax.OpComposition: "Compose",
		syntax.OpRewrite:     "Rewrite",
	}[n.Op]
	fn, _ := e.reg.Lookup(name)
	out, err := fn([]syntax.Value{left, right})
	if err != nil {
		e.report(n.Line(), "%s", err.Error())
		return syntax.Value{}
	}

	tagOptimize := false
	if n.Op == syntax.OpComposition {
		if e.optimizeDepth >= 0 {
			if e.optimizeDepth > 1 {
				tagOptimize = true
			}
			e.optimizeDepth--
		}
	}
	return e.postProcess(out, &tagOptimize)
}

func (e *Evaluator) evalRepetition(n *syntax.Repetition) syntax.Value {
	operand := e.eval(n.Operand)
	if !e.reporter.Success() {
		return syntax.Value{}
	}
	kindName := map[syntax.RepKind]string{
		syntax.RepStar:     "star",
		syntax.RepPlus:     "plus",
		syntax.RepQuestion: "question",
		syntax.RepRange:    "range",
	}[n.Kind]
	args := []syntax.Value{operand, syntax.StringOf(kindName)}
	if n.Kind == syntax.RepRange {
		args = append(args, syntax.IntOf(n.Min), syntax.IntOf(n.Max))
	}
	fn, _ := e.reg.Lookup("Closure")
	out, err := fn(args)
	if err != nil {
		e.report(n.Line(), "%s", err.Error())
		return syntax.Value{}
	}
	return e.postProcess(out, nil)
}

// evalWeight applies a semiring weight to the operand's materialized FST.
// Optimize[...] is not handled here; evalFuncCall dispatches it to
// evalOptimizeCall.
func (e *Evaluator) evalWeight(n *syntax.Weight) syntax.Value {
	operand := e.eval(n.Operand)
	if !e.reporter.Success() {
		return syntax.Value{}
	}
	if operand.Type() != syntax.FstValue {
		e.report(n.Line(), "cannot apply a weight to a %s value", operand.Type())
		return syntax.Value{}
	}
	out, err := e.engine.ApplyWeight(operand.Fst(), n.Text)
	if err != nil {
		e.report(n.Line(), "%s", err.Error())
		return syntax.Value{}
	}
	return e.postProcess(syntax.FstOf(out), nil)
}

// evalOptimizeCall is invoked by evalFuncCall when dispatching the
// "Optimize" built-in directly (as opposed to Optimize's effect on an
// enclosing composition), implementing the depth push/pop described in
// §4.8.3.
func (e *Evaluator) evalOptimizeCall(n *syntax.FuncCall) syntax.Value {
	if len(n.Args) != 1 {
		e.report(n.Line(), "Optimize: expected 1 argument, got %d", len(n.Args))
		return syntax.Value{}
	}
	e.optimizeDepth = 0
	defer func() { e.optimizeDepth = -1 }()

	v := e.eval(n.Args[0])
	if !e.reporter.Success() {
		return syntax.Value{}
	}
	if v.Type() != syntax.FstValue {
		e.report(n.Line(), "Optimize: argument must be an fst, got %s", v.Type())
		return syntax.Value{}
	}
	out, err := e.engine.Optimize(v.Fst())
	if err != nil {
		e.report(n.Line(), "%s", err.Error())
		return syntax.Value{}
	}
	return e.postProcess(syntax.FstOf(out), nil)
}

func (e *Evaluator) evalStringFst(n *syntax.StringFst) syntax.Value {
	var symtab fstengine.SymbolTable
	if n.Mode == fstengine.ModeSymbolTable {
		if n.SymTab == nil {
			e.report(n.Line(), "symbol-table string literal is missing its table expression")
			return syntax.Value{}
		}
		symVal := e.eval(n.SymTab)
		if !e.reporter.Success() {
			return syntax.Value{}
		}
		if symVal.Type() != syntax.SymbolTableValue {
			e.report(n.Line(), "expected a symbol table, got %s", symVal.Type())
			return syntax.Value{}
		}
		symtab = symVal.SymbolTable()
	}

	out, err := e.engine.StringFst(n.Mode, n.Text, symtab, e.interner.Intern)
	if err != nil {
		e.report(n.Line(), "%s", err.Error())
		return syntax.Value{}
	}
	return e.postProcess(syntax.FstOf(out), nil)
}

// postProcess implements the tail of §4.8.2: optional optimize pass and
// symbol-table canonicalization, applied uniformly after every
// FST-producing expression evaluates.
func (e *Evaluator) postProcess(v syntax.Value, tagOptimize *bool) syntax.Value {
	if v.Type() != syntax.FstValue {
		return v
	}
	f := v.Fst()

	if e.cfg.OptimizeAllFsts || (tagOptimize != nil && *tagOptimize) {
		optimized, err := e.engine.Optimize(f)
		if err != nil {
			e.report(0, "%s", err.Error())
			return syntax.Value{}
		}
		f = optimized
	}

	in, out := e.engine.SymbolTables(f)
	canonIn, canonOut := in, out
	if in != nil && in.Name() == e.engine.CanonicalByteSymbolTable().Name() {
		canonIn = e.engine.CanonicalByteSymbolTable()
	} else if in != nil && in.Name() == e.engine.CanonicalUtf8SymbolTable().Name() {
		canonIn = e.engine.CanonicalUtf8SymbolTable()
	}
	if out != nil && out.Name() == e.engine.CanonicalByteSymbolTable().Name() {
		canonOut = e.engine.CanonicalByteSymbolTable()
	} else if out != nil && out.Name() == e.engine.CanonicalUtf8SymbolTable().Name() {
		canonOut = e.engine.CanonicalUtf8SymbolTable()
	}
	if canonIn != in || canonOut != out {
		relabeled, err := e.engine.SetSymbolTables(f, canonIn, canonOut)
		if err != nil {
			e.report(0, "%s", err.Error())
			return syntax.Value{}
		}
		f = relabeled
	}

	return syntax.FstOf(f)
}

func modeLitName(m fstengine.StringMode) string {
	if m == fstengine.ModeUtf8 {
		return "utf8"
	}
	return "byte"
}
