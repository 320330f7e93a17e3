// Command bfdebug is a line-oriented single-step debugger for compiled
// Brainfuck programs: step, print the tape, show the current Tag
// annotation, and continue running.
//
// Grounded on original_source/debug/main.rs's State/next/nextop: the same
// instruction-at-a-time State.next transition and the same trailing
// #annotation lookup (nextop), minus the ncurses front end — a teacher
// repo has no terminal-UI dependency to ground one on, so this follows the
// teacher's own plain stdlib bufio/fmt CLI texture instead.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

func main() {
	os.Exit(doMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// doMain is separated out for the purpose of unit testing.
func doMain(args []string, stdIn io.Reader, stdOut, stdErr io.Writer) int {
	flags := flag.NewFlagSet("bfdebug", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	var tapeSize int
	flags.IntVar(&tapeSize, "tape", 1000, "Tape size in bytes.")

	if err := flags.Parse(args); err != nil {
		return 1
	}

	if flags.NArg() != 1 {
		fmt.Fprintln(stdErr, "usage: bfdebug <program.bf>")
		return 1
	}

	code, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(stdErr, "bfdebug: %v\n", err)
		return 1
	}

	st := newState(string(code), tapeSize)
	repl(st, stdIn, stdOut)
	return 0
}

// instructions lists the eight Brainfuck-significant characters, in the
// same order debug/main.rs's INSTRUCTS does.
const instructions = "[]+-><,."

func isInstr(b byte) bool {
	return strings.IndexByte(instructions, b) >= 0
}

// state is a single point-in-time snapshot of a debugging session: the
// tape, the instruction pointer, and the I/O streams the program has
// consumed or produced so far.
type state struct {
	code string
	tape []byte
	mp   int
	pc   int

	input  []byte
	ic     int
	output []byte
}

func newState(code string, tapeSize int) *state {
	s := &state{code: code, tape: make([]byte, tapeSize)}
	s.pc = s.findInstr(0)
	return s
}

// findInstr returns the offset of the first Brainfuck-significant
// character at or after from.
func (s *state) findInstr(from int) int {
	for i := from; i < len(s.code); i++ {
		if isInstr(s.code[i]) {
			return i
		}
	}
	return len(s.code)
}

// done reports whether execution has run off the end of the program.
func (s *state) done() bool {
	return s.pc >= len(s.code)
}

// annotation returns the #tag trailing the instruction that starts at pc,
// if any, scanning up to the next instruction character exactly as
// nextop's rfind/find pair does.
func (s *state) annotation(pc int) string {
	from := pc + 1
	next := s.findInstr(from)
	if next > len(s.code) {
		next = len(s.code)
	}
	segment := s.code[from:next]

	hash := strings.LastIndexByte(segment, '#')
	if hash < 0 {
		return ""
	}
	tag := segment[hash+1:]
	end := 0
	for end < len(tag) && (isAlnum(tag[end]) || tag[end] == '_' || tag[end] == '/') {
		end++
	}
	return tag[:end]
}

func isAlnum(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// step executes exactly one Brainfuck instruction, mutating s in place.
func (s *state) step() error {
	if s.done() {
		return fmt.Errorf("program already finished")
	}

	switch s.code[s.pc] {
	case '+':
		s.tape[s.mp]++
	case '-':
		s.tape[s.mp]--
	case '>':
		if s.mp == len(s.tape)-1 {
			return fmt.Errorf("pointer ran off the end of a %d-byte tape", len(s.tape))
		}
		s.mp++
	case '<':
		if s.mp == 0 {
			return fmt.Errorf("pointer ran off the start of the tape")
		}
		s.mp--
	case ',':
		if s.ic < len(s.input) {
			s.tape[s.mp] = s.input[s.ic]
			s.ic++
		} else {
			s.tape[s.mp] = 0
		}
	case '.':
		s.output = append(s.output, s.tape[s.mp])
	case '[':
		if s.tape[s.mp] == 0 {
			depth := 0
			s.pc++
			for depth > 0 || s.code[s.pc] != ']' {
				switch s.code[s.pc] {
				case '[':
					depth++
				case ']':
					depth--
				}
				s.pc++
			}
		}
	case ']':
		if s.tape[s.mp] != 0 {
			depth := 0
			s.pc--
			for depth > 0 || s.code[s.pc] != '[' {
				switch s.code[s.pc] {
				case ']':
					depth++
				case '[':
					depth--
				}
				s.pc--
			}
		}
	}

	s.pc = s.findInstr(s.pc + 1)
	return nil
}

// repl runs the interactive command loop: s/step, c/continue, p/print,
// q/quit, and a bare newline repeating the previous command.
func repl(st *state, stdIn io.Reader, stdOut io.Writer) {
	scanner := bufio.NewScanner(stdIn)
	last := "s"

	printStatus(st, stdOut)
	for {
		fmt.Fprint(stdOut, "(bfdebug) ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			line = last
		}
		last = line

		switch line {
		case "q", "quit":
			return
		case "s", "step":
			if err := st.step(); err != nil {
				fmt.Fprintf(stdOut, "stopped: %v\n", err)
				continue
			}
			printStatus(st, stdOut)
		case "c", "continue":
			for !st.done() {
				if err := st.step(); err != nil {
					fmt.Fprintf(stdOut, "stopped: %v\n", err)
					break
				}
			}
			printStatus(st, stdOut)
		case "p", "print":
			printTape(st, stdOut)
		default:
			fmt.Fprintln(stdOut, "commands: s[tep], c[ontinue], p[rint], q[uit]")
		}
	}
}

func printStatus(st *state, stdOut io.Writer) {
	if st.done() {
		fmt.Fprintf(stdOut, "finished; output so far: %q\n", string(st.output))
		return
	}
	tag := st.annotation(st.pc)
	if tag != "" {
		fmt.Fprintf(stdOut, "pc=%d mp=%d cell=%d  #%s\n", st.pc, st.mp, st.tape[st.mp], tag)
	} else {
		fmt.Fprintf(stdOut, "pc=%d mp=%d cell=%d\n", st.pc, st.mp, st.tape[st.mp])
	}
}

func printTape(st *state, stdOut io.Writer) {
	lo := st.mp - 8
	if lo < 0 {
		lo = 0
	}
	hi := lo + 16
	if hi > len(st.tape) {
		hi = len(st.tape)
	}
	for i := lo; i < hi; i++ {
		marker := " "
		if i == st.mp {
			marker = "^"
		}
		fmt.Fprintf(stdOut, "%4d:%3d%s ", i, st.tape[i], marker)
	}
	fmt.Fprintln(stdOut)
}
