package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/grmc/grammar/fstengine"
	"github.com/dekarrin/grmc/grammar/syntax"
)

func newTestRegistry(t *testing.T) (*Registry, *fstengine.RefEngine) {
	t.Helper()
	e := fstengine.NewRefEngine()
	return New(e), e
}

func fstValue(t *testing.T, e *fstengine.RefEngine, text string) syntax.Value {
	t.Helper()
	f, err := e.StringFst(fstengine.ModeByte, text, nil, func(string) int64 { return 0 })
	if err != nil {
		t.Fatalf("StringFst: %s", err.Error())
	}
	return syntax.FstOf(f)
}

func Test_Registry_Lookup_KnownAndUnknown(t *testing.T) {
	assert := assert.New(t)

	r, _ := newTestRegistry(t)
	_, ok := r.Lookup("Concat")
	assert.True(ok)

	_, ok = r.Lookup("NotARealBuiltin")
	assert.False(ok)
}

func Test_Registry_Concat_WrongArgCount_Errors(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, ok := r.Lookup("Concat")
	assert.True(ok)

	_, err := fn([]syntax.Value{fstValue(t, e, "a")})
	assert.Error(err)
}

func Test_Registry_Concat_WrongArgType_Errors(t *testing.T) {
	assert := assert.New(t)

	r, _ := newTestRegistry(t)
	fn, ok := r.Lookup("Concat")
	assert.True(ok)

	_, err := fn([]syntax.Value{syntax.IntOf(1), syntax.IntOf(2)})
	assert.Error(err)
}

func Test_Registry_Concat_Succeeds(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, _ := r.Lookup("Concat")

	out, err := fn([]syntax.Value{fstValue(t, e, "foo"), fstValue(t, e, "bar")})
	assert.NoError(err)
	assert.Equal(syntax.FstValue, out.Type())

	got, ok := e.ShortestOutputPath(out.Fst())
	assert.True(ok)
	assert.Equal("foobar", got)
}

func Test_Registry_Compose_DefaultSortIsBoth(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, _ := r.Lookup("Compose")

	_, err := fn([]syntax.Value{fstValue(t, e, "a"), fstValue(t, e, "a")})
	assert.NoError(err)
}

func Test_Registry_Compose_InvalidSortArg_Errors(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, _ := r.Lookup("Compose")

	_, err := fn([]syntax.Value{fstValue(t, e, "a"), fstValue(t, e, "a"), syntax.StringOf("sideways")})
	assert.Error(err)
}

func Test_Registry_Closure_Star(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, _ := r.Lookup("Closure")

	out, err := fn([]syntax.Value{fstValue(t, e, "x"), syntax.StringOf("star")})
	assert.NoError(err)
	got, ok := e.ShortestOutputPath(out.Fst())
	assert.True(ok)
	assert.Equal("", got)
}

func Test_Registry_Closure_Range_RequiresMinMax(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, _ := r.Lookup("Closure")

	_, err := fn([]syntax.Value{fstValue(t, e, "x"), syntax.StringOf("range")})
	assert.Error(err)

	out, err := fn([]syntax.Value{fstValue(t, e, "x"), syntax.StringOf("range"), syntax.IntOf(2), syntax.IntOf(2)})
	assert.NoError(err)
	got, ok := e.ShortestOutputPath(out.Fst())
	assert.True(ok)
	assert.Equal("xx", got)
}

func Test_Registry_Closure_UnknownKind_Errors(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, _ := r.Lookup("Closure")

	_, err := fn([]syntax.Value{fstValue(t, e, "x"), syntax.StringOf("bogus")})
	assert.Error(err)
}

func Test_Registry_AssertEqual_PassesThroughFirstArg(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, _ := r.Lookup("AssertEqual")

	a := fstValue(t, e, "same")
	b := fstValue(t, e, "same")
	out, err := fn([]syntax.Value{a, b})
	assert.NoError(err)
	assert.Equal(syntax.FstValue, out.Type())
}

func Test_Registry_AssertEqual_DifferingStates_Errors(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, _ := r.Lookup("AssertEqual")

	_, err := fn([]syntax.Value{fstValue(t, e, "a"), fstValue(t, e, "aaaa")})
	assert.Error(err)
}

func Test_Registry_AssertEqual_EqualStateCount_DifferentLanguage_Errors(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, _ := r.Lookup("AssertEqual")

	// "ab" and "ac" both compile to three-state acceptors, so a state-count
	// comparison alone would call them equal despite accepting different
	// languages.
	a := fstValue(t, e, "ab")
	assert.Equal(e.NumStates(a.Fst()), e.NumStates(fstValue(t, e, "ac").Fst()))

	_, err := fn([]syntax.Value{a, fstValue(t, e, "ac")})
	assert.Error(err)
}

func Test_Registry_AssertEmpty_And_AssertNull(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	empty, _ := r.Lookup("AssertEmpty")
	null, _ := r.Lookup("AssertNull")

	_, err := empty([]syntax.Value{fstValue(t, e, "")})
	assert.NoError(err)

	_, err = empty([]syntax.Value{fstValue(t, e, "nonempty")})
	assert.Error(err)

	_, err = null([]syntax.Value{fstValue(t, e, "")})
	assert.Error(err, "a single-state epsilon acceptor is empty but not null")
}

func Test_Registry_AssertEmpty_MultiStateEpsilonOnly_Passes(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	empty, _ := r.Lookup("AssertEmpty")

	a := fstValue(t, e, "")
	b := fstValue(t, e, "")
	union, err := e.Union(a.Fst(), b.Fst())
	assert.NoError(err)
	assert.Greater(e.NumStates(union), 1, "the union must carry more than one state despite accepting only the empty string")

	_, err = empty([]syntax.Value{syntax.FstOf(union)})
	assert.NoError(err, "state count alone must not decide emptiness")
}

func Test_Registry_StringFst_InvalidMode_Errors(t *testing.T) {
	assert := assert.New(t)

	r, _ := newTestRegistry(t)
	fn, _ := r.Lookup("StringFst")

	_, err := fn([]syntax.Value{syntax.StringOf("bogus"), syntax.StringOf("text")})
	assert.Error(err)
}

func Test_Registry_StringFst_Succeeds(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, _ := r.Lookup("StringFst")

	out, err := fn([]syntax.Value{syntax.StringOf("byte"), syntax.StringOf("hi")})
	assert.NoError(err)
	got, ok := e.ShortestOutputPath(out.Fst())
	assert.True(ok)
	assert.Equal("hi", got)
}

func Test_Registry_Replace_RequiresAtLeastTwoArgs(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, _ := r.Lookup("Replace")

	_, err := fn([]syntax.Value{fstValue(t, e, "x")})
	assert.Error(err)
}

func Test_Registry_Project_RequiresValidSide(t *testing.T) {
	assert := assert.New(t)

	r, e := newTestRegistry(t)
	fn, _ := r.Lookup("Project")

	_, err := fn([]syntax.Value{fstValue(t, e, "x"), syntax.StringOf("nonsense")})
	assert.Error(err)

	out, err := fn([]syntax.Value{fstValue(t, e, "x"), syntax.StringOf("input")})
	assert.NoError(err)
	assert.Equal(syntax.FstValue, out.Type())
}
