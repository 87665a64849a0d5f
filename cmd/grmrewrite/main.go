/*
Grmrewrite loads a compiled archive and rewrites lines of input read from
stdin through a named rule, printing each rewritten result.

Usage:

	grmrewrite [flags] ARCHIVE.far RULE

The flags are:

	-v, --version
		Print the current version and exit.

	-l, --list
		List the rule names available in ARCHIVE.far and exit.

Exit status is 0 on success, 1 on a usage error, and 2 if the archive
failed to load or any input line failed to rewrite.
*/
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/dekarrin/rosed"
	"github.com/spf13/pflag"

	"github.com/dekarrin/grmc/grammar/archive"
	"github.com/dekarrin/grmc/grammar/fstengine"
	"github.com/dekarrin/grmc/internal/version"
)

const (
	ExitSuccess = iota
	ExitUsageError
	ExitRewriteError
)

var (
	returnCode = ExitSuccess

	flagVersion = pflag.BoolP("version", "v", false, "Print the current version and exit")
	flagList    = pflag.BoolP("list", "l", false, "List the rule names in the archive and exit")
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

	if *flagList {
		if pflag.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "ERROR: --list requires exactly one archive path")
			returnCode = ExitUsageError
			return
		}
		listRules(pflag.Arg(0))
		return
	}

	if pflag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "ERROR: usage: grmrewrite ARCHIVE.far RULE")
		returnCode = ExitUsageError
		return
	}

	archivePath := pflag.Arg(0)
	rule := pflag.Arg(1)

	engine := fstengine.NewRefEngine()
	mgr, err := archive.LoadManager(archivePath, engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitRewriteError
		return
	}

	data := [][]string{{"INPUT", "OUTPUT"}}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		in := scanner.Text()
		if in == "" {
			continue
		}
		out, err := mgr.Rewrite(rule, in)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s: %s\n", in, err.Error())
			returnCode = ExitRewriteError
			continue
		}
		data = append(data, []string{in, out})
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		fmt.Fprintf(os.Stderr, "ERROR: reading stdin: %s\n", err.Error())
		returnCode = ExitRewriteError
	}
	if len(data) > 1 {
		fmt.Print(rosed.Edit("").
			InsertTableOpts(0, data, 100, rosed.Options{TableBorders: true}).
			String())
	}
}

func listRules(path string) {
	engine := fstengine.NewRefEngine()
	mgr, err := archive.LoadManager(path, engine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitRewriteError
		return
	}
	fmt.Printf("build %s\n", mgr.BuildID())
	for _, name := range mgr.Names() {
		fmt.Println(name)
	}
}
