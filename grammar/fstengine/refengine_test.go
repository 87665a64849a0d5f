package fstengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustStringFst(t *testing.T, e *RefEngine, mode StringMode, text string) Fst {
	t.Helper()
	f, err := e.StringFst(mode, text, nil, func(string) int64 { return 0 })
	if err != nil {
		t.Fatalf("StringFst(%q): %s", text, err.Error())
	}
	return f
}

func shortestPath(t *testing.T, e *RefEngine, f Fst) string {
	t.Helper()
	out, ok := e.ShortestOutputPath(f)
	if !ok {
		t.Fatalf("ShortestOutputPath: no accepting path")
	}
	return out
}

func Test_StringFst_ByteMode_RoundTripsThroughShortestPath(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	f := mustStringFst(t, e, ModeByte, "hi")
	assert.Equal("hi", shortestPath(t, e, f))
}

func Test_StringFst_Utf8Mode_NormalizesNFC(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	// "e" + combining acute accent decomposes; NFC must fold it to the
	// precomposed form before building arcs.
	f := mustStringFst(t, e, ModeUtf8, "é")
	assert.Equal("é", shortestPath(t, e, f))
}

func Test_Concat_JoinsTwoStrings(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	a := mustStringFst(t, e, ModeByte, "foo")
	b := mustStringFst(t, e, ModeByte, "bar")
	out, err := e.Concat(a, b)
	assert.NoError(err)
	assert.Equal("foobar", shortestPath(t, e, out))
}

func Test_Union_AcceptsEitherBranch(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	a := mustStringFst(t, e, ModeByte, "cat")
	b := mustStringFst(t, e, ModeByte, "dog")
	out, err := e.Union(a, b)
	assert.NoError(err)
	got := shortestPath(t, e, out)
	assert.True(got == "cat" || got == "dog", "got %q", got)
}

func Test_Closure_Star_AcceptsEmptyString(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	a := mustStringFst(t, e, ModeByte, "x")
	out, err := e.Closure(a, ClosureStar, 0, 0)
	assert.NoError(err)
	assert.Equal("", shortestPath(t, e, out), "star's shortest path is always the empty string")
}

func Test_Closure_Plus_RequiresAtLeastOneCopy(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	a := mustStringFst(t, e, ModeByte, "x")
	out, err := e.Closure(a, ClosurePlus, 0, 0)
	assert.NoError(err)
	assert.Equal("x", shortestPath(t, e, out))
}

func Test_Closure_Range_ReversedBounds_Errors(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	a := mustStringFst(t, e, ModeByte, "x")
	_, err := e.Closure(a, ClosureRange, 4, 2)
	assert.Error(err)
}

func Test_Closure_Range_BoundsExactCount(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	a := mustStringFst(t, e, ModeByte, "x")
	out, err := e.Closure(a, ClosureRange, 2, 2)
	assert.NoError(err)
	assert.Equal("xx", shortestPath(t, e, out))
}

func Test_Compose_ChainsTransduction(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	// a->b then b->c composed end to end should transduce a->c.
	ab, err := e.StringFst(ModeByte, "a", nil, func(string) int64 { return 0 })
	assert.NoError(err)
	aAuto := asAutomaton(ab)
	aAuto.states[0].arcs[0].olabel = int64('b')

	bc, err := e.StringFst(ModeByte, "b", nil, func(string) int64 { return 0 })
	assert.NoError(err)
	bcAuto := asAutomaton(bc)
	bcAuto.states[0].arcs[0].olabel = int64('c')

	out, err := e.Compose(aAuto, bcAuto, SideBoth)
	assert.NoError(err)
	assert.Equal("c", shortestPath(t, e, out))
}

func Test_Invert_SwapsTapes(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	f, err := e.StringFst(ModeByte, "a", nil, func(string) int64 { return 0 })
	assert.NoError(err)
	a := asAutomaton(f)
	a.states[0].arcs[0].olabel = int64('z')

	inv, err := e.Invert(a)
	assert.NoError(err)
	assert.Equal("a", shortestPath(t, e, inv), "after inverting, output tape is the original input label")
}

func Test_Determinize_Minimize_ReduceStateCount(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	a := mustStringFst(t, e, ModeByte, "ab")
	b := mustStringFst(t, e, ModeByte, "ac")
	u, err := e.Union(a, b)
	assert.NoError(err)

	opt, err := e.Optimize(u)
	assert.NoError(err)
	assert.True(e.NumStates(opt) <= e.NumStates(u), "optimize must not increase state count")
	got := shortestPath(t, e, opt)
	assert.True(got == "ab" || got == "ac", "got %q", got)
}

func Test_Difference_RemovesAcceptedStrings(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	a := mustStringFst(t, e, ModeByte, "cat")
	b := mustStringFst(t, e, ModeByte, "cat")
	out, err := e.Difference(a, b)
	assert.NoError(err)
	_, ok := e.ShortestOutputPath(out)
	assert.False(ok, "removing the only accepted string must leave nothing to accept")
}

func Test_RmWeight_ZeroesAllWeights(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	f := mustStringFst(t, e, ModeByte, "x")
	weighted, err := e.ApplyWeight(f, "5")
	assert.NoError(err)

	unweighted, err := e.RmWeight(weighted)
	assert.NoError(err)
	a := asAutomaton(unweighted)
	for s, w := range a.final {
		assert.Equal(0, w, "state %d", s)
	}
}

func Test_ApplyWeight_InvalidText_Errors(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	f := mustStringFst(t, e, ModeByte, "x")
	_, err := e.ApplyWeight(f, "not-a-number")
	assert.Error(err)
}

func Test_Replace_ExpandsNonTerminalAndDetectsCycles(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	root := mustStringFst(t, e, ModeByte, "")
	rootAuto := asAutomaton(root)
	rootAuto.appendArc(100, 100, 0)

	sub := mustStringFst(t, e, ModeByte, "y")

	out, err := e.Replace(rootAuto, map[int64]Fst{100: sub}, map[int64]bool{100: true})
	assert.NoError(err)
	assert.Equal("y", shortestPath(t, e, out))

	selfRef := mustStringFst(t, e, ModeByte, "")
	selfAuto := asAutomaton(selfRef)
	selfAuto.appendArc(200, 200, 0)
	_, err = e.Replace(selfAuto, map[int64]Fst{200: selfAuto}, map[int64]bool{200: true})
	assert.Error(err, "a non-terminal that expands into itself must be rejected as cyclic")
}

func Test_Replace_MissingSubstitution_Errors(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	root := mustStringFst(t, e, ModeByte, "")
	rootAuto := asAutomaton(root)
	rootAuto.appendArc(300, 300, 0)

	_, err := e.Replace(rootAuto, map[int64]Fst{}, map[int64]bool{300: true})
	assert.Error(err)
}

func Test_IsUnweightedAcceptor(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	f := mustStringFst(t, e, ModeByte, "x")
	assert.True(e.IsUnweightedAcceptor(f))

	weighted, err := e.ApplyWeight(f, "3")
	assert.NoError(err)
	assert.False(e.IsUnweightedAcceptor(weighted))
}

func Test_CanonicalSymbolTables_AreStableSingletons(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	assert.Same(e.CanonicalByteSymbolTable(), e.CanonicalByteSymbolTable())
	assert.Equal("*ByteSymbolTable", e.CanonicalByteSymbolTable().Name())
	assert.Equal("*Utf8SymbolTable", e.CanonicalUtf8SymbolTable().Name())
}

func Test_SetSymbolTables_AttachesToClone(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	f := mustStringFst(t, e, ModeByte, "x")
	in := e.CanonicalByteSymbolTable()
	out, err := e.SetSymbolTables(f, in, in)
	assert.NoError(err)

	gotIn, gotOut := e.SymbolTables(out)
	assert.Same(in, gotIn)
	assert.Same(in, gotOut)

	origIn, _ := e.SymbolTables(f)
	assert.Nil(origIn, "the original handle must be untouched by SetSymbolTables")
}

func Test_TopSort_PreservesLanguage(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	f := mustStringFst(t, e, ModeByte, "abc")
	sorted, err := e.TopSort(f)
	assert.NoError(err)
	assert.Equal("abc", shortestPath(t, e, sorted))
}

func Test_StringFst_BracketedToken_InternsThroughCallback(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	seen := map[string]int64{}
	next := int64(1000)
	intern := func(sym string) int64 {
		if l, ok := seen[sym]; ok {
			return l
		}
		seen[sym] = next
		next++
		return seen[sym]
	}
	f, err := e.StringFst(ModeByte, "a[case=nom]b", nil, intern)
	assert.NoError(err)
	assert.Equal(map[string]int64{"case=nom": 1000}, seen)
	_ = f
}

func Test_StringFst_UnterminatedBracket_Errors(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	_, err := e.StringFst(ModeByte, "a[unterminated", nil, func(string) int64 { return 0 })
	assert.Error(err)
}

func Test_StringFst_SymbolTableMode_FindsOrAddsEntries(t *testing.T) {
	assert := assert.New(t)

	e := NewRefEngine()
	st := &refSymbolTable{name: "Test"}
	_, err := e.StringFst(ModeSymbolTable, "foo bar foo", st, func(string) int64 { return 0 })
	assert.NoError(err)

	entries := st.LabelEntries()
	assert.Len(entries, 2, "repeated symbol must reuse its label rather than adding twice")
}

func Test_SymbolTable_FromPairs_PreservesLabels(t *testing.T) {
	assert := assert.New(t)

	pairs := []LabelEntry{{Label: 5, Symbol: "x"}, {Label: 9, Symbol: "y"}}
	st := NewSymbolTableFromPairs("Rebuilt", pairs)
	rs := st.(*refSymbolTable)

	l, ok := rs.find("x")
	assert.True(ok)
	assert.EqualValues(5, l)

	l, ok = rs.find("y")
	assert.True(ok)
	assert.EqualValues(9, l)
}
