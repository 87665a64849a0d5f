package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Interner_Intern_Injective(t *testing.T) {
	assert := assert.New(t)

	in := New()
	a1 := in.Intern("a")
	b1 := in.Intern("b")
	a2 := in.Intern("a")

	assert.Equal(a1, a2, "interning the same symbol twice must return the same label")
	assert.NotEqual(a1, b1, "distinct symbols must never share a label")
	assert.GreaterOrEqual(a1, PrivateStart)
	assert.GreaterOrEqual(b1, PrivateStart)
}

func Test_Interner_LookupSymbol_And_LookupLabel(t *testing.T) {
	assert := assert.New(t)

	in := New()
	lbl := in.Intern("foo")

	sym, ok := in.LookupSymbol(lbl)
	assert.True(ok)
	assert.Equal("foo", sym)

	gotLbl, ok := in.LookupLabel("foo")
	assert.True(ok)
	assert.Equal(lbl, gotLbl)

	_, ok = in.LookupLabel("never-interned")
	assert.False(ok)
}

type fakeTable []ForeignEntry

func (f fakeTable) Entries() []ForeignEntry { return f }

func Test_Interner_Merge_NewSymbolNewLabel(t *testing.T) {
	assert := assert.New(t)

	in := New()
	result, err := in.Merge(fakeTable{{Label: PrivateStart + 5, Symbol: "x"}})
	assert.NoError(err)
	assert.Empty(result.Remap)

	lbl, ok := in.LookupLabel("x")
	assert.True(ok)
	assert.Equal(PrivateStart+5, lbl)
}

func Test_Interner_Merge_LabelCollision_NewSymbolGetsRemapped(t *testing.T) {
	assert := assert.New(t)

	in := New()
	in.Intern("local") // takes PrivateStart

	result, err := in.Merge(fakeTable{{Label: PrivateStart, Symbol: "foreign"}})
	assert.NoError(err)

	remapped, ok := result.Remap[PrivateStart]
	assert.True(ok, "a foreign label colliding with an unrelated local symbol must be remapped")
	assert.NotEqual(PrivateStart, remapped)

	lbl, ok := in.LookupLabel("foreign")
	assert.True(ok)
	assert.Equal(remapped, lbl)
}

func Test_Interner_Merge_SymbolKnown_LabelUnknown_RemapsToExisting(t *testing.T) {
	assert := assert.New(t)

	in := New()
	existing := in.Intern("shared")

	result, err := in.Merge(fakeTable{{Label: PrivateStart + 99, Symbol: "shared"}})
	assert.NoError(err)
	assert.Equal(existing, result.Remap[PrivateStart+99])
}

func Test_Interner_Merge_ExactMatch_NoRemap(t *testing.T) {
	assert := assert.New(t)

	in := New()
	lbl := in.Intern("same")

	result, err := in.Merge(fakeTable{{Label: lbl, Symbol: "same"}})
	assert.NoError(err)
	assert.Empty(result.Remap)
}

func Test_Interner_Merge_Conflict_Errors(t *testing.T) {
	assert := assert.New(t)

	in := New()
	lblA := in.Intern("a")
	in.Intern("b")

	// "b" already owns a different label than lblA, so claiming b -> lblA
	// is unresolvable.
	_, err := in.Merge(fakeTable{{Label: lblA, Symbol: "b"}})
	assert.Error(err)
}

func Test_Interner_Merge_Idempotent_WhenReapplied(t *testing.T) {
	assert := assert.New(t)

	in := New()
	in.Intern("local")
	foreign := fakeTable{{Label: PrivateStart, Symbol: "foreign"}}

	first, err := in.Merge(foreign)
	assert.NoError(err)

	in.ClearRemap()
	second, err := in.Merge(foreign)
	assert.NoError(err)

	assert.Equal(first.Remap, second.Remap, "merging the same foreign table twice must produce the same remap")
}

func Test_Interner_CollectRemap_And_ClearRemap(t *testing.T) {
	assert := assert.New(t)

	in := New()
	in.Intern("local")
	_, err := in.Merge(fakeTable{{Label: PrivateStart, Symbol: "foreign"}})
	assert.NoError(err)

	all := in.CollectRemap()
	assert.Len(all, 1)

	in.ClearRemap()
	assert.Empty(in.CollectRemap())
}

func Test_Interner_Reset(t *testing.T) {
	assert := assert.New(t)

	in := New()
	in.Intern("a")
	in.Reset()

	_, ok := in.LookupLabel("a")
	assert.False(ok)

	fresh := in.Intern("a")
	assert.Equal(PrivateStart, fresh)
}

func Test_Global_ReturnsSameInstance(t *testing.T) {
	assert := assert.New(t)
	assert.Same(Global(), Global())
}
