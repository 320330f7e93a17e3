// Command bfverify runs the testdata/cases corpus end to end: compile each
// case's C source to textual LLVM IR with clang and then to Brainfuck,
// interpret the result, and compare the output against the case's embedded
// expectation.
//
// Grounded on original_source/verify.rs's main(): the same "TEST:"-prefixed
// JSON line embedded as a comment in each case file, the same
// clang-then-compile-then-execute pipeline, and the same pass/fail report
// shape (one line per case).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/turbio/bfcc/frontend/llir"
	"github.com/turbio/bfcc/internal/compiler"
	"github.com/turbio/bfcc/internal/engine"
)

func main() {
	os.Exit(doMain(os.Args[1:], os.Stdout, os.Stderr))
}

// testCase mirrors verify.rs's TestCase struct: a name and the expected
// stdout, both read out of a "TEST:" line embedded in the case's source.
type testCase struct {
	Name   string `json:"name"`
	Output string `json:"output"`
}

// doMain is separated out for the purpose of unit testing.
func doMain(args []string, stdOut, stdErr io.Writer) int {
	flags := flag.NewFlagSet("bfverify", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var casesDir string
	flags.StringVar(&casesDir, "cases", "testdata/cases", "Directory of case source files.")

	var workDir string
	flags.StringVar(&workDir, "work", "testdata/work", "Scratch directory for intermediate .ll and .bf files.")

	if err := flags.Parse(args); err != nil {
		return 1
	}

	entries, err := os.ReadDir(casesDir)
	if err != nil {
		fmt.Fprintf(stdErr, "bfverify: %v\n", err)
		return 1
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		fmt.Fprintf(stdErr, "bfverify: %v\n", err)
		return 1
	}

	failed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := runCase(casesDir, workDir, entry.Name(), stdOut); err != nil {
			fmt.Fprintf(stdErr, "FAIL %s: %v\n", entry.Name(), err)
			failed++
		}
	}

	if failed > 0 {
		fmt.Fprintf(stdErr, "bfverify: %d case(s) failed\n", failed)
		return 1
	}
	return 0
}

func runCase(casesDir, workDir, name string, stdOut io.Writer) error {
	srcPath := filepath.Join(casesDir, name)

	content, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("reading case: %w", err)
	}

	info, err := extractTestCase(string(content))
	if err != nil {
		return fmt.Errorf("parsing TEST: line: %w", err)
	}

	fmt.Fprintf(stdOut, "TEST %s\n", info.Name)

	llPath := filepath.Join(workDir, name+".ll")
	if err := compileToIR(srcPath, llPath); err != nil {
		return fmt.Errorf("clang: %w", err)
	}

	m, err := llir.ParseFile(llPath)
	if err != nil {
		return fmt.Errorf("front end: %w", err)
	}

	bfCode, err := compiler.Compile(m)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	bfPath := filepath.Join(workDir, name+".bf")
	if err := os.WriteFile(bfPath, []byte(bfCode), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", bfPath, err)
	}

	result, err := engine.Run(bfCode, nil, engine.NewConfig())
	if err != nil {
		return fmt.Errorf("interpret: %w", err)
	}

	if string(result.Output) != info.Output {
		return fmt.Errorf("output mismatch: expected %q, got %q", info.Output, string(result.Output))
	}

	fmt.Fprintf(stdOut, "PASS %s in %d steps\n", info.Name, result.Steps)
	return nil
}

// extractTestCase finds the "TEST:" marker embedded as a line comment in
// the case source and decodes the JSON object that follows it on the same
// line, exactly as verify.rs's main() does with content.find("TEST:").
func extractTestCase(content string) (testCase, error) {
	idx := strings.Index(content, "TEST:")
	if idx < 0 {
		return testCase{}, fmt.Errorf("no TEST: marker found")
	}
	rest := content[idx+len("TEST:"):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}

	var tc testCase
	if err := json.Unmarshal([]byte(rest), &tc); err != nil {
		return testCase{}, err
	}
	return tc, nil
}

// compileToIR shells out to clang to produce textual LLVM IR, the same
// -O0 -emit-llvm invocation verify.rs's compile_ir runs, except -S so the
// output is the textual form frontend/llir parses rather than bitcode.
func compileToIR(from, to string) error {
	cmd := exec.Command("clang", "-O0", "-S", "-emit-llvm", "-o", to, from)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", err, out)
	}
	return nil
}
