// Package parse implements a hand-written recursive-descent parser for the
// grammar source language, respecting the precedences fixed by the language
// specification: atomic, repetition, concatenation (juxtaposition),
// difference, composition, union, rewrite, weight (tightest to loosest).
//
// A parser-generator (LALR or otherwise) is not required — the AST is the
// test surface, not the parser's internals — so this package trades a
// generated table for a direct, precedence-climbing descent that is easy to
// extend when the grammar grows a new primitive.
package parse

import (
	"strconv"

	"github.com/dekarrin/grmc/grammar/fstengine"
	"github.com/dekarrin/grmc/grammar/lex"
	"github.com/dekarrin/grmc/grammar/syntax"
	"github.com/dekarrin/grmc/internal/cerrors"
)

// parseError is used internally to unwind to the nearest statement boundary
// once a syntax error is found; Parse recovers it and resumes at the next
// ';' or '}'.
type parseError struct {
	line int
	msg  string
}

// Parser consumes a pre-lexed token stream and produces a syntax.Grammar,
// recovering from syntax errors at statement boundaries so a single typo
// does not prevent the rest of the file from being checked.
type Parser struct {
	toks []lex.Token
	pos  int
	file string
	rep  *cerrors.Reporter
}

// New lexes src in full and returns a Parser ready to parse it. A lexical
// error (unterminated string, unknown connector) is returned immediately;
// it is not recoverable the way syntax errors are.
func New(src, file string) (*Parser, error) {
	l := lex.New(src)
	toks, err := l.All()
	if err != nil {
		return nil, err
	}
	return &Parser{toks: toks, file: file, rep: cerrors.NewReporter(file)}, nil
}

// Errors returns every syntax error recovered during ParseGrammar, in source
// order.
func (p *Parser) Errors() []*cerrors.Error { return p.rep.Errors() }

func (p *Parser) cur() lex.Token { return p.toks[p.pos] }

func (p *Parser) at(c lex.Class) bool { return p.cur().Class() == c }

func (p *Parser) advance() lex.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(c lex.Class) lex.Token {
	if !p.at(c) {
		panic(parseError{line: p.cur().Line(), msg: "expected " + c.Human() + ", got " + p.cur().Class().Human()})
	}
	return p.advance()
}

// synchronize discards tokens up to and including the next ';' or '}',
// or until EOF, so parsing can resume at the next statement.
func (p *Parser) synchronize() {
	for {
		switch p.cur().Class() {
		case lex.TCEOF:
			return
		case lex.TCSemi, lex.TCRBrace:
			p.advance()
			return
		default:
			p.advance()
		}
	}
}

// ParseGrammar parses the entire token stream into a Grammar. Syntax errors
// are recovered and accumulated; ParseGrammar itself always returns a
// (possibly partial) Grammar plus a non-nil error if any were recorded, the
// combined error from the internal Reporter.
func (p *Parser) ParseGrammar() (*syntax.Grammar, error) {
	g := &syntax.Grammar{}

	for p.at(lex.TCKwImport) {
		imp, ok := p.parseImportSafe()
		if ok {
			g.Imports = append(g.Imports, imp)
		}
	}

	for !p.at(lex.TCEOF) {
		if p.at(lex.TCKwFunc) {
			if fn, ok := p.parseFunctionSafe(); ok {
				g.Functions = append(g.Functions, fn)
			}
			continue
		}
		if stmt, ok := p.parseStatementSafe(); ok {
			g.Statements = append(g.Statements, stmt)
		}
	}

	return g, p.rep.Err()
}

func (p *Parser) parseImportSafe() (imp *syntax.Import, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			pe, isPE := r.(parseError)
			if !isPE {
				panic(r)
			}
			p.rep.Report(pe.line, "%s", pe.msg)
			p.synchronize()
			ok = false
		}
	}()
	return p.parseImport(), true
}

func (p *Parser) parseImport() *syntax.Import {
	line := p.cur().Line()
	p.expect(lex.TCKwImport)
	path := p.expect(lex.TCDQString).Lexeme()
	p.expect(lex.TCKwAs)
	aliasTok := p.expect(lex.TCDescr)
	alias := aliasTok.Lexeme()
	if !syntax.ValidIdentifierComponent(alias) {
		panic(parseError{line: aliasTok.Line(), msg: "invalid import alias " + strconv.Quote(alias)})
	}
	p.expect(lex.TCSemi)
	return syntax.NewImport(path, alias, line)
}

func (p *Parser) parseFunctionSafe() (fn *syntax.Function, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			pe, isPE := r.(parseError)
			if !isPE {
				panic(r)
			}
			p.rep.Report(pe.line, "%s", pe.msg)
			p.synchronize()
			ok = false
		}
	}()
	return p.parseFunction(), true
}

func (p *Parser) parseFunction() *syntax.Function {
	line := p.cur().Line()
	p.expect(lex.TCKwFunc)
	name := p.expect(lex.TCDescr).Lexeme()
	p.expect(lex.TCLBracket)
	var params []string
	if !p.at(lex.TCRBracket) {
		params = append(params, p.expect(lex.TCDescr).Lexeme())
		for p.at(lex.TCComma) {
			p.advance()
			params = append(params, p.expect(lex.TCDescr).Lexeme())
		}
	}
	p.expect(lex.TCRBracket)
	p.expect(lex.TCLBrace)
	var body []syntax.Statement
	for !p.at(lex.TCRBrace) && !p.at(lex.TCEOF) {
		if stmt, ok := p.parseStatementSafe(); ok {
			body = append(body, stmt)
		}
	}
	p.expect(lex.TCRBrace)
	return syntax.NewFunction(name, params, body, line)
}

func (p *Parser) parseStatementSafe() (stmt syntax.Statement, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			pe, isPE := r.(parseError)
			if !isPE {
				panic(r)
			}
			p.rep.Report(pe.line, "%s", pe.msg)
			p.synchronize()
			ok = false
		}
	}()
	return p.parseStatement(), true
}

func (p *Parser) parseStatement() syntax.Statement {
	line := p.cur().Line()
	if p.at(lex.TCKwReturn) {
		p.advance()
		expr := p.parseObj()
		p.expect(lex.TCSemi)
		return syntax.NewReturn(expr, line)
	}

	exported := false
	if p.at(lex.TCKwExport) {
		exported = true
		p.advance()
	}
	nameTok := p.expect(lex.TCDescr)
	if !syntax.ValidIdentifier(nameTok.Lexeme()) {
		panic(parseError{line: nameTok.Line(), msg: "invalid identifier " + strconv.Quote(nameTok.Lexeme())})
	}
	p.expect(lex.TCEquals)
	rhs := p.parseObj()
	p.expect(lex.TCSemi)
	return syntax.NewRule(nameTok.Lexeme(), rhs, exported, line)
}

// parseObj = fst_with_weight
func (p *Parser) parseObj() syntax.Expr {
	return p.parseWeight()
}

func (p *Parser) parseWeight() syntax.Expr {
	left := p.parseRewrite()
	if p.at(lex.TCAngleString) {
		tok := p.advance()
		return syntax.NewWeight(left, tok.Lexeme(), left.Line())
	}
	return left
}

func (p *Parser) parseRewrite() syntax.Expr {
	left := p.parseUnion()
	if p.at(lex.TCColon) {
		p.advance()
		right := p.parseUnion()
		return syntax.NewBinOp(syntax.OpRewrite, left, right, left.Line())
	}
	return left
}

func (p *Parser) parseUnion() syntax.Expr {
	left := p.parseComposition()
	if p.at(lex.TCPipe) {
		p.advance()
		right := p.parseUnion()
		return syntax.NewBinOp(syntax.OpUnion, left, right, left.Line())
	}
	return left
}

func (p *Parser) parseComposition() syntax.Expr {
	left := p.parseDifference()
	for p.at(lex.TCAt) {
		p.advance()
		right := p.parseDifference()
		left = syntax.NewBinOp(syntax.OpComposition, left, right, left.Line())
	}
	return left
}

func (p *Parser) parseDifference() syntax.Expr {
	left := p.parseConcat()
	for p.at(lex.TCMinus) {
		p.advance()
		right := p.parseConcat()
		left = syntax.NewBinOp(syntax.OpDifference, left, right, left.Line())
	}
	return left
}

func (p *Parser) startsAtomic() bool {
	switch p.cur().Class() {
	case lex.TCQString, lex.TCDQString, lex.TCDescr, lex.TCLParen:
		return true
	default:
		return false
	}
}

func (p *Parser) parseConcat() syntax.Expr {
	first := p.parseRepetition()
	parts := []syntax.Expr{first}
	for p.startsAtomic() {
		parts = append(parts, p.parseRepetition())
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return syntax.NewConcat(parts, first.Line())
}

func (p *Parser) parseRepetition() syntax.Expr {
	operand := p.parseAtomic()
	switch p.cur().Class() {
	case lex.TCStar:
		p.advance()
		return syntax.NewRepetition(operand, syntax.RepStar, 0, 0, operand.Line())
	case lex.TCPlus:
		p.advance()
		return syntax.NewRepetition(operand, syntax.RepPlus, 0, 0, operand.Line())
	case lex.TCQuestion:
		p.advance()
		return syntax.NewRepetition(operand, syntax.RepQuestion, 0, 0, operand.Line())
	case lex.TCLBrace:
		line := p.cur().Line()
		p.advance()
		minTok := p.expect(lex.TCInteger)
		min, _ := strconv.Atoi(minTok.Lexeme())
		max := min
		if p.at(lex.TCComma) {
			p.advance()
			maxTok := p.expect(lex.TCInteger)
			max, _ = strconv.Atoi(maxTok.Lexeme())
		}
		p.expect(lex.TCRBrace)
		if min > max {
			panic(parseError{line: line, msg: "repetition bounds reversed: " + strconv.Itoa(min) + " > " + strconv.Itoa(max)})
		}
		return syntax.NewRepetition(operand, syntax.RepRange, min, max, line)
	default:
		return operand
	}
}

func (p *Parser) parseArgs() []syntax.Expr {
	var args []syntax.Expr
	if p.at(lex.TCRBracket) {
		return args
	}
	args = append(args, p.parseArg())
	for p.at(lex.TCComma) {
		p.advance()
		args = append(args, p.parseArg())
	}
	return args
}

func (p *Parser) parseArg() syntax.Expr {
	switch p.cur().Class() {
	case lex.TCKwByte:
		tok := p.advance()
		return syntax.NewModeLit(fstengine.ModeByte, tok.Line())
	case lex.TCKwUtf8:
		tok := p.advance()
		return syntax.NewModeLit(fstengine.ModeUtf8, tok.Line())
	default:
		return p.parseObj()
	}
}

func (p *Parser) parseAtomic() syntax.Expr {
	tok := p.cur()
	switch tok.Class() {
	case lex.TCQString:
		p.advance()
		return syntax.NewStringFst(fstengine.ModeByte, tok.Lexeme(), false, nil, tok.Line())
	case lex.TCDQString:
		p.advance()
		return p.parseStringModeSuffix(tok)
	case lex.TCDescr:
		p.advance()
		if !syntax.ValidIdentifier(tok.Lexeme()) {
			panic(parseError{line: tok.Line(), msg: "invalid identifier " + strconv.Quote(tok.Lexeme())})
		}
		if p.at(lex.TCLBracket) {
			p.advance()
			args := p.parseArgs()
			p.expect(lex.TCRBracket)
			return syntax.NewFuncCall(tok.Lexeme(), args, tok.Line())
		}
		return syntax.NewIdentifier(tok.Lexeme(), tok.Line())
	case lex.TCLParen:
		p.advance()
		inner := p.parseObj()
		p.expect(lex.TCRParen)
		return inner
	default:
		panic(parseError{line: tok.Line(), msg: "expected expression, got " + tok.Class().Human()})
	}
}

// parseStringModeSuffix handles the optional `. ("byte" | "utf8" | DESCR |
// func_call)` suffix on a double-quoted string literal. With no suffix the
// literal defaults to byte mode, matching single-quoted literals.
func (p *Parser) parseStringModeSuffix(strTok lex.Token) syntax.Expr {
	if !p.at(lex.TCDot) {
		return syntax.NewStringFst(fstengine.ModeByte, strTok.Lexeme(), true, nil, strTok.Line())
	}
	p.advance() // consume '.'
	switch p.cur().Class() {
	case lex.TCKwByte:
		p.advance()
		return syntax.NewStringFst(fstengine.ModeByte, strTok.Lexeme(), true, nil, strTok.Line())
	case lex.TCKwUtf8:
		p.advance()
		return syntax.NewStringFst(fstengine.ModeUtf8, strTok.Lexeme(), true, nil, strTok.Line())
	case lex.TCDescr:
		nameTok := p.advance()
		var symtab syntax.Expr
		if p.at(lex.TCLBracket) {
			p.advance()
			args := p.parseArgs()
			p.expect(lex.TCRBracket)
			symtab = syntax.NewFuncCall(nameTok.Lexeme(), args, nameTok.Line())
		} else {
			symtab = syntax.NewIdentifier(nameTok.Lexeme(), nameTok.Line())
		}
		return syntax.NewStringFst(fstengine.ModeSymbolTable, strTok.Lexeme(), true, symtab, strTok.Line())
	default:
		panic(parseError{line: p.cur().Line(), msg: "expected 'byte', 'utf8', or a symbol table name after '.', got " + p.cur().Class().Human()})
	}
}
