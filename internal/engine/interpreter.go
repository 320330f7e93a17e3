// Package engine implements the Verifying Interpreter (component G): a
// bounded, checked Brainfuck executor used both to run a compiled program
// and to confirm it never exercises one of the undefined behaviors this
// project refuses to silently paper over.
//
// Grounded on original_source/verify.rs's exec(): the same checked
// arithmetic, the same lazy bracket-skipping loop search, and the same
// fixed-size tape, translated into Go's panic-free, explicit-error style
// the way tetratelabs-wazero's call engine reports a trap as a returned
// sys error instead of raising an exception.
package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/turbio/bfcc/internal/buildoptions"
	"github.com/turbio/bfcc/sys"
)

var log = logrus.WithField("component", "engine")

// DefaultTapeSize matches the fixed-size array verify.rs interprets
// against.
const DefaultTapeSize = 1000

// DefaultMaxSteps bounds a run so a runaway or adversarial program can't
// hang the caller forever.
const DefaultMaxSteps = 100_000_000

// Config is an immutable set of interpreter limits. The zero value is not
// ready to use; start from NewConfig. Each With method returns a modified
// copy, the same copy-on-write shape as wazero's RuntimeConfig builder,
// simplified here since Config holds no reference-typed fields that would
// need a deeper clone.
type Config struct {
	tapeSize int
	maxSteps int64
	coverage bool
}

// NewConfig returns the default configuration: a 1000-byte tape, a 100
// million step ceiling, and coverage tracking off.
func NewConfig() Config {
	return Config{tapeSize: DefaultTapeSize, maxSteps: DefaultMaxSteps}
}

// WithTapeSize returns a copy of c with the tape bounded to n bytes.
func (c Config) WithTapeSize(n int) Config {
	c.tapeSize = n
	return c
}

// WithMaxSteps returns a copy of c with the step ceiling set to n. A
// non-positive n is treated as unbounded.
func (c Config) WithMaxSteps(n int64) Config {
	c.maxSteps = n
	return c
}

// WithCoverage returns a copy of c with per-instruction execution counts
// collected in Result.Coverage.
func (c Config) WithCoverage(enabled bool) Config {
	c.coverage = enabled
	return c
}

// Result is the outcome of a completed run.
type Result struct {
	Output []byte
	Steps  int64
	// Coverage maps a code offset (into the filtered, comment-free program)
	// to how many times it executed. Nil unless Config.WithCoverage(true).
	Coverage map[int]int64
}

// isBFChar reports whether r is one of the eight characters this
// interpreter recognizes. Every other byte — printer Tag and Comment
// annotations included — is inert.
func isBFChar(r byte) bool {
	switch r {
	case '+', '-', '<', '>', '.', ',', '[', ']':
		return true
	default:
		return false
	}
}

// filter strips everything but the eight Brainfuck characters from code, so
// a Tag or Comment emitted by internal/printer never counts toward Steps.
func filter(code string) []byte {
	out := make([]byte, 0, len(code))
	for i := 0; i < len(code); i++ {
		if isBFChar(code[i]) {
			out = append(out, code[i])
		}
	}
	return out
}

// Run interprets code against a fresh tape, feeding input one byte at a
// time to each ',' and returning a sticky zero once input is exhausted —
// the original this was grounded on has no defined EOF behavior (it
// indexes directly into the input and would panic), so a real program
// compiled from a finite main that reads past its input gets a steady
// stream of zero bytes rather than a fault.
func Run(code string, input []byte, cfg Config) (*Result, error) {
	prog := filter(code)

	mem := make([]byte, cfg.tapeSize)
	mp := 0
	pc := 0
	var steps int64

	var coverage map[int]int64
	if cfg.coverage {
		coverage = make(map[int]int64, len(prog))
	}

	var output []byte
	ic := 0

	for pc < len(prog) {
		if cfg.maxSteps > 0 && steps >= cfg.maxSteps {
			return nil, sys.New(sys.TooManySteps, pc, steps)
		}
		if coverage != nil {
			coverage[pc]++
		}

		switch prog[pc] {
		case ',':
			if ic < len(input) {
				mem[mp] = input[ic]
				ic++
			} else {
				mem[mp] = 0
			}

		case '.':
			output = append(output, mem[mp])

		case '+':
			if mem[mp] == 255 {
				return nil, sys.New(sys.IntOverflow, pc, steps)
			}
			mem[mp]++

		case '-':
			if mem[mp] == 0 {
				return nil, sys.New(sys.IntUnderflow, pc, steps)
			}
			mem[mp]--

		case '>':
			if mp == len(mem)-1 {
				return nil, sys.New(sys.MemOverflow, pc, steps)
			}
			mp++

		case '<':
			if mp == 0 {
				return nil, sys.New(sys.MemUnderflow, pc, steps)
			}
			mp--

		case '[':
			if mem[mp] == 0 {
				next, err := skipForward(prog, pc, steps)
				if err != nil {
					return nil, err
				}
				pc = next
			}

		case ']':
			if mem[mp] != 0 {
				prev, err := skipBackward(prog, pc, steps)
				if err != nil {
					return nil, err
				}
				pc = prev
			}
		}

		if buildoptions.IsTest && (mp < 0 || mp >= len(mem)) {
			panic("engine: pointer escaped the tape despite a passing bounds check")
		}

		pc++
		steps++
	}

	log.WithFields(logrus.Fields{"steps": steps, "output_bytes": len(output)}).Debug("run complete")

	return &Result{Output: output, Steps: steps, Coverage: coverage}, nil
}

// skipForward returns the offset of the ']' matching the '[' at pc,
// scanning forward and tracking nesting depth.
func skipForward(prog []byte, pc int, step int64) (int, error) {
	depth := 0
	pc++
	if pc == len(prog) {
		return 0, sys.New(sys.LoopOverflow, pc, step)
	}
	for depth > 0 || prog[pc] != ']' {
		switch prog[pc] {
		case '[':
			depth++
		case ']':
			depth--
		}
		pc++
		if pc >= len(prog) {
			return 0, sys.New(sys.LoopOverflow, pc, step)
		}
	}
	return pc, nil
}

// skipBackward returns the offset of the '[' matching the ']' at pc,
// scanning backward and tracking nesting depth.
func skipBackward(prog []byte, pc int, step int64) (int, error) {
	depth := 0
	if pc == 0 {
		return 0, sys.New(sys.LoopUnderflow, pc, step)
	}
	pc--
	for depth > 0 || prog[pc] != '[' {
		switch prog[pc] {
		case ']':
			depth++
		case '[':
			depth--
		}
		if pc == 0 {
			return 0, sys.New(sys.LoopUnderflow, pc, step)
		}
		pc--
	}
	return pc, nil
}
