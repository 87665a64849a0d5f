package syntax

import (
	"fmt"
	"strings"

	"github.com/dekarrin/grmc/grammar/fstengine"
)

// Node is implemented by every AST node. Dispatch over concrete node kinds is
// done with Go type switches in the evaluator rather than virtual dispatch;
// Line() is the one behavior every node must provide for diagnostics.
type Node interface {
	Line() int
	String() string
}

// Expr is a Node that evaluates to a Value.
type Expr interface {
	Node
	exprNode()
}

// Grammar is the root of a parsed grammar file.
type Grammar struct {
	Imports    []*Import
	Functions  []*Function
	Statements []Statement
}

func (g *Grammar) Line() int { return 0 }
func (g *Grammar) String() string {
	var sb strings.Builder
	sb.WriteString("Grammar\n")
	for _, im := range g.Imports {
		sb.WriteString("  " + im.String() + "\n")
	}
	for _, fn := range g.Functions {
		sb.WriteString("  " + fn.String() + "\n")
	}
	for _, st := range g.Statements {
		sb.WriteString("  " + st.String() + "\n")
	}
	return sb.String()
}

// Import is `import "path.grm" as Alias;`.
type Import struct {
	Path  string
	Alias string
	line  int
}

func NewImport(path, alias string, line int) *Import { return &Import{Path: path, Alias: alias, line: line} }
func (n *Import) Line() int                          { return n.line }
func (n *Import) String() string                     { return fmt.Sprintf("import %q as %s", n.Path, n.Alias) }

// Function is a user-defined `func Name[params] { ... }` block.
type Function struct {
	Name   string
	Params []string
	Body   []Statement
	line   int
}

func NewFunction(name string, params []string, body []Statement, line int) *Function {
	return &Function{Name: name, Params: params, Body: body, line: line}
}
func (n *Function) Line() int { return n.line }
func (n *Function) String() string {
	return fmt.Sprintf("func %s[%s] { %d stmts }", n.Name, strings.Join(n.Params, ", "), len(n.Body))
}

// Statement is either a Rule or a Return.
type Statement interface {
	Node
	stmtNode()
}

// Rule is `[export] name = rhs;`.
type Rule struct {
	Name     string
	RHS      Expr
	Exported bool
	line     int
}

func NewRule(name string, rhs Expr, exported bool, line int) *Rule {
	return &Rule{Name: name, RHS: rhs, Exported: exported, line: line}
}
func (n *Rule) Line() int { return n.line }
func (n *Rule) stmtNode() {}
func (n *Rule) String() string {
	prefix := ""
	if n.Exported {
		prefix = "export "
	}
	return fmt.Sprintf("%s%s = %s;", prefix, n.Name, n.RHS.String())
}

// Return is `return expr;`, legal only inside a function body.
type Return struct {
	Expr Expr
	line int
}

func NewReturn(expr Expr, line int) *Return { return &Return{Expr: expr, line: line} }
func (n *Return) Line() int                 { return n.line }
func (n *Return) stmtNode()                 {}
func (n *Return) String() string            { return fmt.Sprintf("return %s;", n.Expr.String()) }

// Identifier is a reference to a previously defined rule, function parameter,
// or imported namespace member. Full is split on "." into namespace parts
// plus a leaf.
type Identifier struct {
	Full string
	line int
}

func NewIdentifier(full string, line int) *Identifier { return &Identifier{Full: full, line: line} }
func (n *Identifier) Line() int                       { return n.line }
func (n *Identifier) exprNode()                       {}
func (n *Identifier) String() string                  { return n.Full }

// Parts splits Full on "." into (namespace parts..., leaf).
func (n *Identifier) Parts() []string { return strings.Split(n.Full, ".") }

// Leaf returns the final, un-namespaced component of Full.
func (n *Identifier) Leaf() string {
	p := n.Parts()
	return p[len(p)-1]
}

// Namespace returns the namespace-qualifying components of Full, i.e. every
// part except the leaf. An unqualified identifier has an empty Namespace.
func (n *Identifier) Namespace() []string {
	p := n.Parts()
	return p[:len(p)-1]
}

// FuncCall is `name[args]` — either a user-defined function or a built-in
// registry primitive, distinguished only at evaluation time.
type FuncCall struct {
	Name string
	Args []Expr
	line int
}

func NewFuncCall(name string, args []Expr, line int) *FuncCall {
	return &FuncCall{Name: name, Args: args, line: line}
}
func (n *FuncCall) Line() int { return n.line }
func (n *FuncCall) exprNode() {}
func (n *FuncCall) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s[%s]", n.Name, strings.Join(parts, ", "))
}

// Concat is the juxtaposition of two or more repetition_fst expressions.
type Concat struct {
	Parts []Expr
	line  int
}

func NewConcat(parts []Expr, line int) *Concat { return &Concat{Parts: parts, line: line} }
func (n *Concat) Line() int                    { return n.line }
func (n *Concat) exprNode()                    {}
func (n *Concat) String() string {
	parts := make([]string, len(n.Parts))
	for i, p := range n.Parts {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}

// BinOpKind identifies the binary FST operator a BinOp node applies.
type BinOpKind int

const (
	OpUnion BinOpKind = iota
	OpDifference
	OpComposition
	OpRewrite
)

func (k BinOpKind) String() string {
	switch k {
	case OpUnion:
		return "|"
	case OpDifference:
		return "-"
	case OpComposition:
		return "@"
	case OpRewrite:
		return ":"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// BinOp is a binary FST operator application: union, difference, composition,
// or rewrite (cross-product). Whether a Composition node should be optimized
// is not structural — it depends on whether evaluation is nested inside an
// Optimize[...] call — so it is tracked by the evaluator's own traversal
// state (see eval.optimizeDepth), not stored on the node.
type BinOp struct {
	Op    BinOpKind
	Left  Expr
	Right Expr
	line  int
}

func NewBinOp(op BinOpKind, left, right Expr, line int) *BinOp {
	return &BinOp{Op: op, Left: left, Right: right, line: line}
}
func (n *BinOp) Line() int { return n.line }
func (n *BinOp) exprNode() {}
func (n *BinOp) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Left.String(), n.Op.String(), n.Right.String())
}

// RepKind identifies which Kleene-style operation a Repetition node applies.
type RepKind int

const (
	RepStar RepKind = iota
	RepPlus
	RepQuestion
	RepRange
)

// Repetition applies a suffix operator (*, +, ?, or {min,max}) to Operand.
type Repetition struct {
	Operand Expr
	Kind    RepKind
	Min     int
	Max     int
	line    int
}

func NewRepetition(operand Expr, kind RepKind, min, max int, line int) *Repetition {
	return &Repetition{Operand: operand, Kind: kind, Min: min, Max: max, line: line}
}
func (n *Repetition) Line() int { return n.line }
func (n *Repetition) exprNode() {}
func (n *Repetition) String() string {
	switch n.Kind {
	case RepStar:
		return n.Operand.String() + "*"
	case RepPlus:
		return n.Operand.String() + "+"
	case RepQuestion:
		return n.Operand.String() + "?"
	default:
		if n.Min == n.Max {
			return fmt.Sprintf("%s{%d}", n.Operand.String(), n.Min)
		}
		return fmt.Sprintf("%s{%d,%d}", n.Operand.String(), n.Min, n.Max)
	}
}

// Weight annotates Operand with a semiring weight parsed from an
// ANGLE_STRING token.
type Weight struct {
	Operand Expr
	Text    string
	line    int
}

func NewWeight(operand Expr, text string, line int) *Weight {
	return &Weight{Operand: operand, Text: text, line: line}
}
func (n *Weight) Line() int        { return n.line }
func (n *Weight) exprNode()        {}
func (n *Weight) String() string   { return fmt.Sprintf("%s<%s>", n.Operand.String(), n.Text) }

// StringFst compiles a string literal into an FST, in one of three parse
// modes.
type StringFst struct {
	Mode   fstengine.StringMode
	Text   string
	Quoted bool // true for double-quoted (output-tape/escape) literals
	SymTab Expr // non-nil only when Mode == ModeSymbolTable
	line   int
}

func NewStringFst(mode fstengine.StringMode, text string, quoted bool, symtab Expr, line int) *StringFst {
	return &StringFst{Mode: mode, Text: text, Quoted: quoted, SymTab: symtab, line: line}
}
func (n *StringFst) Line() int { return n.line }
func (n *StringFst) exprNode() {}
func (n *StringFst) String() string {
	q := "'"
	if n.Quoted {
		q = `"`
	}
	return fmt.Sprintf("%s%s%s", q, n.Text, q)
}

// ModeLit is a bare `byte` or `utf8` keyword used as a positional argument
// (e.g. `StringFile["words.txt", byte]`), distinct from the `.byte`/`.utf8`
// string_mode_suffix which produces a StringFst directly.
type ModeLit struct {
	Mode fstengine.StringMode
	line int
}

func NewModeLit(mode fstengine.StringMode, line int) *ModeLit { return &ModeLit{Mode: mode, line: line} }
func (n *ModeLit) Line() int                                  { return n.line }
func (n *ModeLit) exprNode()                                  {}
func (n *ModeLit) String() string {
	if n.Mode == fstengine.ModeUtf8 {
		return "utf8"
	}
	return "byte"
}
