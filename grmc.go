// Package grmc compiles a grammar source file written in a small
// declarative language for weighted finite-state transducers into a
// serialized archive of named FSTs. It glues together the lexer, parser,
// evaluator, and archive writer exposed by the grammar subpackages behind
// one entry point shared by every command-line front end.
package grmc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dekarrin/grmc/grammar/archive"
	"github.com/dekarrin/grmc/grammar/eval"
	"github.com/dekarrin/grmc/grammar/fstengine"
	"github.com/dekarrin/grmc/grammar/label"
	"github.com/dekarrin/grmc/grammar/parse"
	"github.com/dekarrin/grmc/grammar/syntax"
	"github.com/dekarrin/grmc/internal/config"
)

// Options controls one compilation, gathered from a Config file and/or CLI
// flags by the caller.
type Options struct {
	ArcType          string
	Indir            []string
	Outdir           string
	SaveSymbols      bool
	AlwaysExport     bool
	OptimizeAllFsts  bool
	EmitAstOnly      bool
	LineNumbersInAst bool
	PrintRules       bool
}

// FromConfig adapts a loaded TOML config into Options.
func FromConfig(c config.Config) Options {
	return Options{
		ArcType:          c.ArcType,
		Indir:            c.Indir,
		Outdir:           c.Outdir,
		SaveSymbols:      c.SaveSymbols,
		AlwaysExport:     c.AlwaysExport,
		OptimizeAllFsts:  c.OptimizeAllFsts,
		EmitAstOnly:      c.EmitAstOnly,
		LineNumbersInAst: c.LineNumbersInAst,
		PrintRules:       c.PrintRules,
	}
}

// Compiler runs one grammar file through the full pipeline: lex, parse,
// evaluate, and (unless EmitAstOnly) archive.
type Compiler struct {
	opts     Options
	engine   fstengine.Engine
	interner *label.Interner
}

// New returns a Compiler bound to opts and a fresh reference FST engine.
// Callers needing label identity to persist across multiple independent
// New calls should use NewWithInterner instead.
func New(opts Options) *Compiler {
	return NewWithInterner(opts, label.New())
}

// NewWithInterner is New, but bound to a caller-supplied interner instead of
// a fresh one — used when label identity must be stable across several
// Compile calls in the same process.
func NewWithInterner(opts Options, interner *label.Interner) *Compiler {
	return &Compiler{opts: opts, engine: fstengine.NewRefEngine(), interner: interner}
}

// Result is what Compile returns on success.
type Result struct {
	Grammar     *syntax.Grammar
	Exported    []string
	ArchivePath string
	BuildID     string
}

func (c *Compiler) openArchive(farPath string) (eval.ArchiveReader, error) {
	return archive.Open(farPath, c.engine)
}

// Compile runs the full pipeline against the file at path.
func (c *Compiler) Compile(path string) (*Result, error) {
	src, resolved, err := c.readSource(path)
	if err != nil {
		return nil, err
	}

	p, err := parse.New(src, resolved)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resolved, err)
	}
	g, err := p.ParseGrammar()
	if err != nil {
		return nil, combineParseErrors(resolved, p)
	}

	if c.opts.EmitAstOnly {
		return &Result{Grammar: g}, nil
	}

	cfg := eval.Config{
		AlwaysExport:    c.opts.AlwaysExport,
		OptimizeAllFsts: c.opts.OptimizeAllFsts,
		SaveSymbols:     c.opts.SaveSymbols,
		ImportDirs:      c.opts.Indir,
	}
	ev := eval.New(resolved, cfg, c.engine, c.interner, c.openArchive)
	if err := ev.Run(g, src, eval.ModeTopLevel); err != nil {
		return nil, err
	}

	w, err := archive.NewWriter(c.engine)
	if err != nil {
		return nil, err
	}
	for _, name := range ev.Exported {
		v, ok := ev.Namespace().CurrentEnv().Get(name)
		if !ok || v.Type() != syntax.FstValue {
			continue
		}
		w.Put(name, v.Fst())
	}

	archivePath := c.archivePathFor(resolved)
	if err := w.WriteFile(archivePath, c.interner); err != nil {
		return nil, err
	}

	return &Result{Grammar: g, Exported: ev.Exported, ArchivePath: archivePath, BuildID: w.BuildID()}, nil
}

func (c *Compiler) archivePathFor(grmPath string) string {
	base := strings.TrimSuffix(filepath.Base(grmPath), ".grm") + ".far"
	if c.opts.Outdir == "" {
		return base
	}
	return filepath.Join(c.opts.Outdir, base)
}

func (c *Compiler) readSource(path string) (src string, resolved string, err error) {
	candidates := []string{path}
	for _, dir := range c.opts.Indir {
		candidates = append(candidates, filepath.Join(dir, path))
	}
	for _, cand := range candidates {
		b, readErr := os.ReadFile(cand)
		if readErr == nil {
			return string(b), cand, nil
		}
	}
	return "", "", fmt.Errorf("%s: not found in any configured input directory", path)
}

func combineParseErrors(file string, p *parse.Parser) error {
	errs := p.Errors()
	if len(errs) == 0 {
		return fmt.Errorf("%s: parse failed", file)
	}
	if len(errs) == 1 {
		return errs[0]
	}
	msg := fmt.Sprintf("%s: %d syntax errors:", file, len(errs))
	for _, e := range errs {
		msg += "\n  " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
