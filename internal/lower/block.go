package lower

import (
	"fmt"

	"github.com/turbio/bfcc/internal/bfop"
	"github.com/turbio/bfcc/internal/compileerr"
	"github.com/turbio/bfcc/internal/frame"
	"github.com/turbio/bfcc/ir"
)

// LowerBlock lowers one basic block's full body: its instructions, and
// either the Call folded with its branch or the terminator on its own.
// regs is shared across every block of the enclosing function (and with
// LowerParamPrologue): an on-stack value given in one block may be taken in
// another, since nothing clears a register-file cell at a block boundary.
func LowerBlock(mod *ModuleInfo, fi *FuncInfo, regs *frame.RegisterFile, block *ir.BasicBlock) ([]bfop.Op, error) {
	bctx := &BlockCtx{Mod: mod, FI: fi, Regs: regs}

	var ops []bfop.Op
	for i, instr := range block.Instructions {
		if call, ok := instr.(*ir.Call); ok {
			if i != len(block.Instructions)-1 {
				return nil, compileerr.UnsupportedIR("call is not the last instruction of block %%%d in %s", int(block.Name), fi.Func.Name)
			}
			br, ok := block.Term.(*ir.Br)
			if !ok {
				return nil, compileerr.UnsupportedIR("block %%%d in %s ends in a call but not a branch", int(block.Name), fi.Func.Name)
			}

			callOps, err := LowerCall(bctx, call, br.Target)
			if err != nil {
				return nil, err
			}
			return append(ops, callOps...), nil
		}

		ops = append(ops, bfop.Comment{Text: fmt.Sprintf("instruction %%%d", instructionDest(instr))})
		instrOps, err := LowerInstruction(bctx, instr)
		if err != nil {
			return nil, err
		}
		ops = append(ops, instrOps...)
	}

	termOps, err := LowerTerminator(bctx, block.Term)
	if err != nil {
		return nil, err
	}
	return append(ops, termOps...), nil
}

// instructionDest returns the destination name an instruction produces, or
// -1 for one with no result (Store), for the debug Comment preceding it.
func instructionDest(instr ir.Instruction) int {
	switch in := instr.(type) {
	case *ir.Alloca:
		return int(in.Dest)
	case *ir.Load:
		return int(in.Dest)
	case *ir.ICmp:
		return int(in.Dest)
	case *ir.Add:
		return int(in.Dest)
	case *ir.ZExt:
		return int(in.Dest)
	case *ir.Trunc:
		return int(in.Dest)
	default:
		return -1
	}
}
