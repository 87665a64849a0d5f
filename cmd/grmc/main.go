/*
Grmc compiles a grammar source file written in the weighted-FST grammar
language into a serialized archive of named FSTs.

Usage:

	grmc [flags] FILE.grm

The flags are:

	-v, --version
		Print the current version and exit.

	-c, --config FILE
		Load compiler configuration from the given TOML file.

	-a, --arc-type TYPE
		Arc weight type to compile for (default "standard").

	-i, --indir DIR
		Add DIR to the list of directories searched for imports. May be
		given more than once.

	-o, --outdir DIR
		Write the output archive to DIR (default ".").

	--save-symbols
		Carry canonical byte/utf8 symbol tables through to exported FSTs.

	--always-export
		Treat every top-level rule as exported, regardless of the "export"
		keyword.

	--optimize-all-fsts
		Run the optimize transform on every materialized FST.

	--emit-ast-only
		Parse and print the AST; do not evaluate or write an archive.

	--print-rules
		Print the name of every exported rule after a successful compile.

Exit status is 0 on success and 1 if the grammar failed to compile.
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/dekarrin/grmc"
	"github.com/dekarrin/grmc/internal/config"
	"github.com/dekarrin/grmc/internal/version"
)

const (
	ExitSuccess = iota
	ExitCompileError
)

var (
	returnCode = ExitSuccess

	flagVersion     = pflag.BoolP("version", "v", false, "Print the current version and exit")
	flagConfig      = pflag.StringP("config", "c", "", "Load compiler configuration from the given TOML file")
	flagArcType     = pflag.StringP("arc-type", "a", "", "Arc weight type to compile for")
	flagIndir       = pflag.StringArrayP("indir", "i", nil, "Add a directory to the import search path")
	flagOutdir      = pflag.StringP("outdir", "o", "", "Write the output archive to this directory")
	flagSaveSymbols = pflag.Bool("save-symbols", false, "Carry canonical symbol tables through to exported FSTs")
	flagAlwaysExp   = pflag.Bool("always-export", false, "Treat every top-level rule as exported")
	flagOptimizeAll = pflag.Bool("optimize-all-fsts", false, "Run Optimize on every materialized FST")
	flagAstOnly     = pflag.Bool("emit-ast-only", false, "Parse and print the AST only")
	flagPrintRules  = pflag.Bool("print-rules", false, "Print every exported rule name after compiling")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		}
		os.Exit(returnCode)
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "ERROR: exactly one grammar file is required")
		returnCode = ExitCompileError
		return
	}

	cfg := config.Default()
	if *flagConfig != "" {
		var err error
		cfg, err = config.Load(*flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitCompileError
			return
		}
	}

	opts := grmc.FromConfig(cfg)
	if *flagArcType != "" {
		opts.ArcType = *flagArcType
	}
	if len(*flagIndir) > 0 {
		opts.Indir = *flagIndir
	}
	if *flagOutdir != "" {
		opts.Outdir = *flagOutdir
	}
	opts.SaveSymbols = opts.SaveSymbols || *flagSaveSymbols
	opts.AlwaysExport = opts.AlwaysExport || *flagAlwaysExp
	opts.OptimizeAllFsts = opts.OptimizeAllFsts || *flagOptimizeAll
	opts.EmitAstOnly = opts.EmitAstOnly || *flagAstOnly
	opts.PrintRules = opts.PrintRules || *flagPrintRules

	c := grmc.New(opts)
	result, err := c.Compile(pflag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitCompileError
		return
	}

	if opts.EmitAstOnly {
		fmt.Print(result.Grammar.String())
		return
	}

	if opts.PrintRules {
		for _, name := range result.Exported {
			fmt.Println(name)
		}
	}
	fmt.Fprintf(os.Stderr, "wrote %s (build %s)\n", result.ArchivePath, result.BuildID)
}
