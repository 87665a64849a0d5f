package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/grmc/grammar/fstengine"
)

func Test_ValidIdentifierComponent(t *testing.T) {
	assert := assert.New(t)

	assert.True(ValidIdentifierComponent("A"))
	assert.True(ValidIdentifierComponent("a_1"))
	assert.False(ValidIdentifierComponent(""), "empty component")
	assert.False(ValidIdentifierComponent("123"), "all-digit component")
	assert.False(ValidIdentifierComponent("___"), "all-underscore component")
	assert.False(ValidIdentifierComponent("bad-name"), "hyphen is not in [A-Za-z0-9_]")
}

func Test_ValidIdentifier_DottedName(t *testing.T) {
	assert := assert.New(t)

	assert.True(ValidIdentifier("lib.Rule"))
	assert.True(ValidIdentifier("Rule"))
	assert.False(ValidIdentifier(""))
	assert.False(ValidIdentifier("lib.123"), "leaf component must itself be valid")
	assert.False(ValidIdentifier("lib..Rule"), "empty component between dots")
}

func Test_BuiltInFunctions_ArityTable(t *testing.T) {
	assert := assert.New(t)

	sig, ok := BuiltInFunctions["Compose"]
	assert.True(ok)
	assert.Equal(2, sig.RequiredArgs)
	assert.True(sig.VariableArity)

	sig, ok = BuiltInFunctions["Determinize"]
	assert.True(ok)
	assert.Equal(1, sig.RequiredArgs)
	assert.False(sig.VariableArity)

	_, ok = BuiltInFunctions["NotARealFunction"]
	assert.False(ok)
}

func Test_ReservedNames(t *testing.T) {
	assert := assert.New(t)

	assert.True(ReservedNames["BOS"])
	assert.True(ReservedNames["EOS"])
	assert.False(ReservedNames["Greeting"])
}

func Test_Identifier_PartsLeafNamespace(t *testing.T) {
	assert := assert.New(t)

	id := NewIdentifier("lib.sub.Rule", 1)
	assert.Equal([]string{"lib", "sub", "Rule"}, id.Parts())
	assert.Equal("Rule", id.Leaf())
	assert.Equal([]string{"lib", "sub"}, id.Namespace())

	bare := NewIdentifier("Rule", 1)
	assert.Equal("Rule", bare.Leaf())
	assert.Equal([]string{}, bare.Namespace())
}

func Test_BinOp_String_RendersInfix(t *testing.T) {
	assert := assert.New(t)

	a := NewIdentifier("A", 1)
	b := NewIdentifier("B", 1)
	op := NewBinOp(OpComposition, a, b, 1)
	assert.Equal("(A @ B)", op.String())
}

func Test_Repetition_String_RendersSuffix(t *testing.T) {
	assert := assert.New(t)

	a := NewIdentifier("A", 1)
	assert.Equal("A*", NewRepetition(a, RepStar, 0, 0, 1).String())
	assert.Equal("A+", NewRepetition(a, RepPlus, 0, 0, 1).String())
	assert.Equal("A?", NewRepetition(a, RepQuestion, 0, 0, 1).String())
	assert.Equal("A{2,4}", NewRepetition(a, RepRange, 2, 4, 1).String())
	assert.Equal("A{3}", NewRepetition(a, RepRange, 3, 3, 1).String())
}

func Test_StringFst_String_QuotesMatchSource(t *testing.T) {
	assert := assert.New(t)

	single := NewStringFst(fstengine.ModeByte, "hi", false, nil, 1)
	assert.Equal("'hi'", single.String())

	double := NewStringFst(fstengine.ModeByte, "hi", true, nil, 1)
	assert.Equal(`"hi"`, double.String())
}

func Test_FuncCall_String_RendersArgs(t *testing.T) {
	assert := assert.New(t)

	call := NewFuncCall("Optimize", []Expr{NewIdentifier("A", 1)}, 1)
	assert.Equal("Optimize[A]", call.String())
}

func Test_Value_Describe_NeverPanics(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(`"hi"`, StringOf("hi").Describe())
	assert.Equal("42", IntOf(42).Describe())
	assert.NotPanics(func() { Value{}.Describe() })
}

func Test_Value_WrongTypeAccessor_Panics(t *testing.T) {
	assert := assert.New(t)

	v := IntOf(1)
	assert.Panics(func() { v.String() })
	assert.Panics(func() { v.Fst() })
}
