// Command bfcc compiles a textual LLVM IR file into Brainfuck source.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kr/pretty"

	"github.com/turbio/bfcc/frontend/llir"
	"github.com/turbio/bfcc/internal/compiler"
	"github.com/turbio/bfcc/internal/lower"
	"github.com/turbio/bfcc/internal/normalize"
	"github.com/turbio/bfcc/ir"
)

func main() {
	os.Exit(doMain(os.Args[1:], os.Stdout, os.Stderr))
}

// doMain is separated out for the purpose of unit testing.
func doMain(args []string, stdOut io.Writer, stdErr io.Writer) int {
	flags := flag.NewFlagSet("bfcc", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "Prints usage.")

	var output string
	flags.StringVar(&output, "o", "", "Write the compiled program here instead of stdout.")

	var dumpLayout bool
	flags.BoolVar(&dumpLayout, "dump-layout", false, "Print each function's planned frame layout to stderr instead of compiling.")

	var verbose bool
	flags.BoolVar(&verbose, "v", false, "Dump the parsed-but-unconverted LLVM IR tree to stderr before compiling.")

	if err := flags.Parse(args); err != nil {
		return 1
	}

	if help || flags.NArg() != 1 {
		printUsage(stdErr, flags)
		if help {
			return 0
		}
		return 1
	}

	path := flags.Arg(0)

	var dump io.Writer
	if verbose {
		dump = stdErr
	}

	var m *ir.Module
	var err error
	if path == "-" {
		m, err = llir.ParseVerbose(os.Stdin, dump)
	} else {
		m, err = llir.ParseFileVerbose(path, dump)
	}
	if err != nil {
		fmt.Fprintf(stdErr, "bfcc: %v\n", err)
		return 1
	}

	if dumpLayout {
		return doDumpLayout(m, stdErr)
	}

	out, err := compiler.Compile(m)
	if err != nil {
		fmt.Fprintf(stdErr, "bfcc: %v\n", err)
		return 1
	}

	if output == "" {
		fmt.Fprint(stdOut, out)
		return 0
	}

	if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
		fmt.Fprintf(stdErr, "bfcc: writing %s: %v\n", output, err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer, flags *flag.FlagSet) {
	fmt.Fprintln(w, "usage: bfcc [-o out.bf] [-dump-layout] [-v] <input.ll | ->")
	flags.PrintDefaults()
}

// doDumpLayout normalizes m and prints every function's planned frame
// layout instead of compiling, for debugging a FrameOverflow or a
// mis-addressed gadget.
func doDumpLayout(m *ir.Module, stdErr io.Writer) int {
	if err := normalize.Run(m); err != nil {
		fmt.Fprintf(stdErr, "bfcc: %v\n", err)
		return 1
	}

	mod, err := lower.BuildModuleInfo(m)
	if err != nil {
		fmt.Fprintf(stdErr, "bfcc: %v\n", err)
		return 1
	}

	for _, name := range mod.Order {
		fi := mod.Funcs[name]
		fmt.Fprintf(stdErr, "%s: %# v\n", name, pretty.Formatter(fi.Layout))
	}
	return 0
}
