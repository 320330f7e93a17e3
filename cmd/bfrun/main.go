// Command bfrun interprets a Brainfuck source file, enforcing every bound
// internal/engine checks (tape size, step ceiling, arithmetic wraparound).
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/turbio/bfcc/internal/engine"
	"github.com/turbio/bfcc/sys"
)

func main() {
	os.Exit(doMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// doMain is separated out for the purpose of unit testing.
func doMain(args []string, stdIn io.Reader, stdOut, stdErr io.Writer) int {
	flags := flag.NewFlagSet("bfrun", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var help bool
	flags.BoolVar(&help, "h", false, "Prints usage.")

	var tapeSize int
	flags.IntVar(&tapeSize, "tape", engine.DefaultTapeSize, "Tape size in bytes.")

	var maxSteps int64
	flags.Int64Var(&maxSteps, "max-steps", engine.DefaultMaxSteps, "Step ceiling. 0 means unbounded.")

	var inputPath string
	flags.StringVar(&inputPath, "input", "", "File fed to the program's ',' instructions. Defaults to none (every read is a sticky zero).")

	if err := flags.Parse(args); err != nil {
		return 1
	}

	if help || flags.NArg() != 1 {
		fmt.Fprintln(stdErr, "usage: bfrun [-tape n] [-max-steps n] [-input file] <program.bf | ->")
		flags.PrintDefaults()
		if help {
			return 0
		}
		return 1
	}

	path := flags.Arg(0)

	var code []byte
	var err error
	if path == "-" {
		code, err = io.ReadAll(stdIn)
	} else {
		code, err = os.ReadFile(path)
	}
	if err != nil {
		fmt.Fprintf(stdErr, "bfrun: %v\n", err)
		return 1
	}

	var input []byte
	if inputPath != "" {
		input, err = os.ReadFile(inputPath)
		if err != nil {
			fmt.Fprintf(stdErr, "bfrun: %v\n", err)
			return 1
		}
	}

	cfg := engine.NewConfig().WithTapeSize(tapeSize).WithMaxSteps(maxSteps)

	result, err := engine.Run(string(code), input, cfg)
	if err != nil {
		var ierr *sys.InterpError
		if errors.As(err, &ierr) {
			fmt.Fprintf(stdErr, "bfrun: %v\n", ierr)
			return 1
		}
		fmt.Fprintf(stdErr, "bfrun: %v\n", err)
		return 1
	}

	stdOut.Write(result.Output)
	return 0
}
