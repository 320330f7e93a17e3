package lower

import (
	"fmt"

	"github.com/turbio/bfcc/internal/bfop"
	"github.com/turbio/bfcc/internal/frame"
)

// LowerParamPrologue copies a function's incoming arguments from the
// caller-staged cells just below this frame into freshly Given registers.
// The caller wrote argument i to its own frame's ArgStage(i) = W-1-i, which
// from this (the callee's) frame-relative addressing is simply -(i+1): one
// frame width back, minus the same i+1. Negative local addresses are legal
// everywhere a frame-relative Addr is used; internal/printer resolves them
// the same way as any other offset.
//
// It is emitted once, directly inside the function's dispatch loop ahead of
// every block's Loop, per original_source/bfcc.rs: it runs again on every
// block-to-block hop within the same invocation (the dispatcher re-enters
// the function-mask loop each time), but since the argument-staging cell is
// already drained to zero after the first copy, every later repetition
// moves zero and leaves the destination register as it was.
func LowerParamPrologue(fi *FuncInfo, regs *frame.RegisterFile) ([]bfop.Op, error) {
	var ops []bfop.Op
	for i, p := range fi.Func.Parameters {
		pdest, err := regs.Give(p.Name)
		if err != nil {
			return nil, err
		}

		ops = append(ops,
			bfop.Tag{Addr: pdest, Label: fmt.Sprintf("arg_%%%d", int(p.Name))},
			bfop.Move{From: -(i + 1), To: pdest},
		)
	}
	return ops, nil
}
