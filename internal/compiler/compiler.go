// Package compiler wires together the IR Normalizer, Frame Layout Planner,
// Instruction/Terminator Lowerer, Dispatcher Emitter, and BfOp Printer into
// the single entry point the command-line front ends call.
package compiler

import (
	"github.com/sirupsen/logrus"

	"github.com/turbio/bfcc/internal/dispatch"
	"github.com/turbio/bfcc/internal/lower"
	"github.com/turbio/bfcc/internal/normalize"
	"github.com/turbio/bfcc/internal/printer"
	"github.com/turbio/bfcc/ir"
)

var log = logrus.WithField("component", "compiler")

// Compile lowers m into Brainfuck source text. m is mutated in place by the
// normalization pass; callers that need the pre-normalized tree should pass
// a copy.
func Compile(m *ir.Module) (string, error) {
	if err := normalize.Run(m); err != nil {
		return "", err
	}

	mod, err := lower.BuildModuleInfo(m)
	if err != nil {
		return "", err
	}

	ops, err := dispatch.Emit(m, mod)
	if err != nil {
		return "", err
	}

	out := printer.Print(ops)

	log.WithField("bytes", len(out)).Info("compiled module")

	return out, nil
}
