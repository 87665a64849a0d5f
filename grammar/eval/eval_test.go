package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/grmc/grammar/fstengine"
	"github.com/dekarrin/grmc/grammar/label"
	"github.com/dekarrin/grmc/grammar/namespace"
	"github.com/dekarrin/grmc/grammar/parse"
	"github.com/dekarrin/grmc/grammar/syntax"
)

func namespaceResolveForTest(ev *Evaluator, parts []string, leaf string) (*namespace.Namespace, syntax.Value, bool, error) {
	return namespace.Resolve(ev.ns, parts, leaf)
}

func mustRun(t *testing.T, src string, cfg Config) *Evaluator {
	t.Helper()
	p, err := parse.New(src, "<test>")
	if err != nil {
		t.Fatalf("lex error: %s", err.Error())
	}
	g, err := p.ParseGrammar()
	if err != nil {
		t.Fatalf("parse error: %s", err.Error())
	}
	ev := New("<test>", cfg, fstengine.NewRefEngine(), label.New(), nil)
	if err := ev.Run(g, src, ModeTopLevel); err != nil {
		t.Fatalf("eval error: %s", ev.Errors()[0].Error())
	}
	return ev
}

func Test_Eval_SimpleRule_Exported(t *testing.T) {
	assert := assert.New(t)

	ev := mustRun(t, `export Greeting = 'hi';`, Config{})
	assert.Equal([]string{"Greeting"}, ev.Exported)
}

func Test_Eval_AlwaysExport_ExportsEverything(t *testing.T) {
	assert := assert.New(t)

	ev := mustRun(t, `A = 'a'; B = 'b';`, Config{AlwaysExport: true})
	assert.ElementsMatch([]string{"A", "B"}, ev.Exported)
}

func Test_Eval_UndefinedIdentifier_Errors(t *testing.T) {
	assert := assert.New(t)

	p, err := parse.New(`export A = NoSuchRule;`, "<test>")
	assert.NoError(err)
	g, err := p.ParseGrammar()
	assert.NoError(err)

	ev := New("<test>", Config{}, fstengine.NewRefEngine(), label.New(), nil)
	err = ev.Run(g, "export A = NoSuchRule;", ModeTopLevel)
	assert.Error(err)
}

func Test_Eval_DeadValueElimination_ErasesAfterLastReference(t *testing.T) {
	assert := assert.New(t)

	// Helper is referenced exactly once; after Visible consumes it, its
	// binding must be erased from the namespace.
	ev := mustRun(t, `Helper = 'x'; export Visible = Helper 'y';`, Config{})
	_, ok := ev.Namespace().CurrentEnv().Get("Helper")
	assert.False(ok, "a rule with no remaining references must be erased")

	_, ok = ev.Namespace().CurrentEnv().Get("Visible")
	assert.True(ok)
}

func Test_Eval_ExportedRule_NeverErased(t *testing.T) {
	assert := assert.New(t)

	ev := mustRun(t, `export Helper = 'x';`, Config{})
	_, ok := ev.Namespace().CurrentEnv().Get("Helper")
	assert.True(ok, "an exported rule's reference count is Infinite and must never erase")
}

func Test_Eval_UserFunction_ReturnsValue(t *testing.T) {
	assert := assert.New(t)

	ev := mustRun(t, `func Double[x] { return x x; } export A = Double['hi'];`, Config{})
	v, ok := ev.Namespace().CurrentEnv().Get("A")
	assert.True(ok)
	assert.Equal(syntax.FstValue, v.Type())

	e := fstengine.NewRefEngine()
	got, ok2 := e.ShortestOutputPath(v.Fst())
	assert.True(ok2)
	assert.Equal("hihi", got)
}

func Test_Eval_UserFunction_WrongArgCount_Errors(t *testing.T) {
	assert := assert.New(t)

	p, err := parse.New(`func F[x] { return x; } export A = F['a', 'b'];`, "<test>")
	assert.NoError(err)
	g, err := p.ParseGrammar()
	assert.NoError(err)

	ev := New("<test>", Config{}, fstengine.NewRefEngine(), label.New(), nil)
	err = ev.Run(g, "", ModeTopLevel)
	assert.Error(err)
}

func Test_Eval_FunctionBody_MissingReturn_Errors(t *testing.T) {
	assert := assert.New(t)

	p, err := parse.New(`func F[x] { y = x; } export A = F['a'];`, "<test>")
	assert.NoError(err)
	g, err := p.ParseGrammar()
	assert.NoError(err)

	ev := New("<test>", Config{}, fstengine.NewRefEngine(), label.New(), nil)
	err = ev.Run(g, "", ModeTopLevel)
	assert.Error(err)
}

func Test_Eval_OptimizeCall_TagsNestedComposition(t *testing.T) {
	assert := assert.New(t)

	// A composition nested two levels deep inside Optimize[...] must get
	// tagged for optimization (depth > 1 after increment); this exercises
	// the path without asserting on internal state directly, only that
	// evaluation completes successfully and yields an fst.
	ev := mustRun(t, `export A = Optimize['a' @ 'a' @ 'a'];`, Config{})
	v, ok := ev.Namespace().CurrentEnv().Get("A")
	assert.True(ok)
	assert.Equal(syntax.FstValue, v.Type())
}

func Test_Eval_Weight_AppliesToFst(t *testing.T) {
	assert := assert.New(t)

	ev := mustRun(t, `export A = 'hi'<3>;`, Config{})
	v, ok := ev.Namespace().CurrentEnv().Get("A")
	assert.True(ok)
	assert.Equal(syntax.FstValue, v.Type())
}

func Test_Eval_SymbolTableCanonicalization(t *testing.T) {
	assert := assert.New(t)

	ev := mustRun(t, `export A = 'hi';`, Config{SaveSymbols: true})
	v, ok := ev.Namespace().CurrentEnv().Get("A")
	assert.True(ok)
	assert.Equal(syntax.FstValue, v.Type())
}

func Test_Eval_Import_MergesChildNamespace(t *testing.T) {
	assert := assert.New(t)

	ev := New("<main>", Config{}, fstengine.NewRefEngine(), label.New(), nil)

	childP, err := parse.New(`export Shared = 'shared';`, "lib.grm")
	assert.NoError(err)
	childG, err := childP.ParseGrammar()
	assert.NoError(err)
	childEval := New("lib.grm", Config{}, ev.engine, ev.interner, nil)
	assert.NoError(childEval.Run(childG, "", ModeImported))
	assert.NoError(ev.ns.AddChild("Lib", childEval.ns))

	// processImport itself reads import sources from disk, out of scope for
	// this in-memory test; wiring the child namespace directly exercises
	// the same cross-namespace Resolve path a real import would reach.
	_, v, ok, err := namespaceResolveForTest(ev, []string{"Lib"}, "Shared")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("shared", mustShortestPath(t, ev.engine, v))
}

func mustShortestPath(t *testing.T, engine fstengine.Engine, v syntax.Value) string {
	t.Helper()
	pe, ok := engine.(fstengine.PathExtractor)
	if !ok {
		t.Fatalf("engine does not implement PathExtractor")
	}
	out, ok := pe.ShortestOutputPath(v.Fst())
	if !ok {
		t.Fatalf("no accepting path")
	}
	return out
}
