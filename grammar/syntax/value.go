// Package syntax defines the AST node kinds produced by the parser and the
// runtime Value union the evaluator operates over.
package syntax

import (
	"fmt"

	"github.com/dekarrin/grmc/grammar/fstengine"
)

// ValueType identifies which of Value's payload fields is populated.
type ValueType int

const (
	FstValue ValueType = iota
	SymbolTableValue
	StringValue
	IntValue
)

func (t ValueType) String() string {
	switch t {
	case FstValue:
		return "Fst"
	case SymbolTableValue:
		return "SymbolTable"
	case StringValue:
		return "String"
	case IntValue:
		return "Int"
	default:
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
}

// Value is the sole runtime value kind the evaluator produces and consumes.
// It is a tagged union over the four value kinds the grammar language knows:
// Fst and SymbolTable are opaque handles cloned by reference, String and Int
// are plain Go values cloned by copy.
type Value struct {
	vType ValueType
	fst   fstengine.Fst
	sym   fstengine.SymbolTable
	str   string
	i     int
}

// FstOf wraps an FST handle in a Value.
func FstOf(f fstengine.Fst) Value { return Value{vType: FstValue, fst: f} }

// SymbolTableOf wraps a symbol table handle in a Value.
func SymbolTableOf(s fstengine.SymbolTable) Value { return Value{vType: SymbolTableValue, sym: s} }

// StringOf wraps a string in a Value.
func StringOf(s string) Value { return Value{vType: StringValue, str: s} }

// IntOf wraps an int in a Value.
func IntOf(i int) Value { return Value{vType: IntValue, i: i} }

// Type reports which kind of value this is.
func (v Value) Type() ValueType { return v.vType }

// Clone returns a copy of v: an Fst payload is cloned by the engine's
// lazy-copy semantics, a SymbolTable payload is the same handle as v's, and
// String/Int are already copied by Go's value semantics.
func (v Value) Clone() Value {
	if v.vType == FstValue && v.fst != nil {
		return Value{vType: FstValue, fst: v.fst.Clone()}
	}
	return v
}

// Fst returns the FST payload. Panics if Type() != FstValue.
func (v Value) Fst() fstengine.Fst {
	if v.vType != FstValue {
		panic(fmt.Sprintf("Value.Fst() called on a %s value", v.vType))
	}
	return v.fst
}

// SymbolTable returns the symbol table payload. Panics if Type() != SymbolTableValue.
func (v Value) SymbolTable() fstengine.SymbolTable {
	if v.vType != SymbolTableValue {
		panic(fmt.Sprintf("Value.SymbolTable() called on a %s value", v.vType))
	}
	return v.sym
}

// String returns the string payload. Panics if Type() != StringValue.
func (v Value) String() string {
	if v.vType != StringValue {
		panic(fmt.Sprintf("Value.String() called on a %s value", v.vType))
	}
	return v.str
}

// Int returns the int payload. Panics if Type() != IntValue.
func (v Value) Int() int {
	if v.vType != IntValue {
		panic(fmt.Sprintf("Value.Int() called on a %s value", v.vType))
	}
	return v.i
}

// Describe renders a short human-readable summary of the value, used in
// error messages and AST dumps; it never panics regardless of Type().
func (v Value) Describe() string {
	switch v.vType {
	case FstValue:
		return "<fst>"
	case SymbolTableValue:
		if v.sym != nil {
			return fmt.Sprintf("<symtab %s>", v.sym.Name())
		}
		return "<symtab>"
	case StringValue:
		return fmt.Sprintf("%q", v.str)
	case IntValue:
		return fmt.Sprintf("%d", v.i)
	default:
		return "<invalid value>"
	}
}
