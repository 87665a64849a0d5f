/*
Grmshell is an interactive REPL for compiling grammar rules one at a time
and inspecting the resulting FSTs without writing an archive to disk.

Usage:

	grmshell [flags]

The flags are:

	-v, --version
		Print the current version and exit.

Once started, each line is treated as a single grammar statement (a rule
assignment, an import, or a function). Every line is evaluated with the
shell's one interner, so label identity is preserved across the whole
session. Type "quit" or press Ctrl-D
to exit.
*/
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"

	"github.com/dekarrin/grmc/grammar/eval"
	"github.com/dekarrin/grmc/grammar/fstengine"
	"github.com/dekarrin/grmc/grammar/label"
	"github.com/dekarrin/grmc/grammar/parse"
	"github.com/dekarrin/grmc/grammar/syntax"
	"github.com/dekarrin/grmc/internal/version"
)

var flagVersion = pflag.BoolP("version", "v", false, "Print the current version and exit")

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	rl, err := readline.NewEx(&readline.Config{Prompt: "grmshell> "})
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		os.Exit(1)
	}
	defer rl.Close()

	sh := newShell()
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF || err == readline.ErrInterrupt {
				return
			}
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		sh.eval(line)
	}
}

// shell holds the single persistent namespace and engine a grmshell session
// evaluates every typed line against, so rule definitions from earlier
// lines remain visible to later ones.
type shell struct {
	engine   fstengine.Engine
	interner *label.Interner
	ev       *eval.Evaluator
}

func newShell() *shell {
	engine := fstengine.NewRefEngine()
	interner := label.New()
	ev := eval.New("<grmshell>", eval.Config{}, engine, interner, nil)
	return &shell{engine: engine, interner: interner, ev: ev}
}

func (sh *shell) eval(line string) {
	if !strings.HasSuffix(strings.TrimSpace(line), ";") {
		line += ";"
	}
	p, err := parse.New(line, "<grmshell>")
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		return
	}
	g, err := p.ParseGrammar()
	if err != nil {
		for _, e := range p.Errors() {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", e.Error())
		}
		return
	}
	if err := sh.ev.Run(g, line, eval.ModeTopLevel); err != nil {
		for _, e := range sh.ev.Errors() {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", e.Error())
		}
		return
	}
	for _, stmt := range g.Statements {
		rule, ok := stmt.(*syntax.Rule)
		if !ok {
			continue
		}
		v, ok := sh.ev.Namespace().CurrentEnv().Get(rule.Name)
		if !ok {
			continue
		}
		fmt.Printf("%s = %s\n", rule.Name, v.Describe())
	}
}
