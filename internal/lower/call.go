package lower

import (
	"fmt"

	"github.com/turbio/bfcc/internal/bfop"
	"github.com/turbio/bfcc/internal/compileerr"
	"github.com/turbio/bfcc/internal/frame"
	"github.com/turbio/bfcc/ir"
)

// LowerCall lowers a Call instruction together with the unconditional
// branch that normalize.Run guaranteed follows it: arming the resume bit,
// staging arguments, and (for a real call) pushing a new frame are all one
// contiguous sequence of tape moves in the source this was grounded on, so
// there is no clean point to split "the call" from "the branch after it".
func LowerCall(ctx *BlockCtx, c *ir.Call, resume ir.Name) ([]bfop.Op, error) {
	resumeBID, ok := ctx.FI.BlockIdx[resume]
	if !ok {
		return nil, compileerr.UnsupportedIR("call resumes unknown block %%%d in %s", int(resume), ctx.FI.Func.Name)
	}

	var ops []bfop.Op
	ops = append(ops,
		bfop.Comment{Text: "enable next"},
		bfop.Tag{Addr: ctx.FI.Layout.BlockBit(resumeBID), Label: fmt.Sprintf("%s/%d", ctx.FI.Func.Name, int(resume))},
		bfop.AddImm{Addr: ctx.FI.Layout.BlockBit(resumeBID), N: 1},
	)

	if c.IsPutchar() {
		return lowerPutchar(ctx, c, ops)
	}
	return lowerCallFunction(ctx, c, ops)
}

func lowerPutchar(ctx *BlockCtx, c *ir.Call, ops []bfop.Op) ([]bfop.Op, error) {
	if c.Dest != nil {
		return nil, compileerr.UnsupportedIR("putchar does not return a value")
	}
	if len(c.Args) != 1 {
		return nil, compileerr.UnsupportedIR("putchar expects exactly one argument, got %d", len(c.Args))
	}

	ops = append(ops, bfop.Comment{Text: "putchar intrinsic"})

	reg, err := resolveOperand(ctx, c.Args[0], &ops)
	if err != nil {
		return nil, err
	}

	ops = append(ops, bfop.Putch{Addr: reg.addr}, bfop.Zero{Addr: reg.addr})
	reg.release()

	return ops, nil
}

func lowerCallFunction(ctx *BlockCtx, c *ir.Call, ops []bfop.Op) ([]bfop.Op, error) {
	if c.Dest != nil {
		return nil, compileerr.UnsupportedIR("function %q returns a value, which this subset does not model", c.Callee)
	}

	callee, ok := ctx.Mod.Funcs[c.Callee]
	if !ok {
		return nil, compileerr.UnsupportedIR("call to unknown function %q", c.Callee)
	}
	if len(c.Args) > len(callee.Func.Parameters) {
		return nil, compileerr.UnsupportedIR("call to %q passes %d arguments, expected at most %d", c.Callee, len(c.Args), len(callee.Func.Parameters))
	}

	for i, arg := range c.Args {
		stage := frame.Width - 1 - i
		switch a := arg.(type) {
		case ir.LocalOperand:
			src, err := ctx.Regs.Take(a.Name)
			if err != nil {
				return nil, err
			}
			ops = append(ops, bfop.Move{From: src, To: stage})
		case ir.ConstantOperand:
			if a.Value < 0 || a.Value > 255 {
				return nil, compileerr.UnsupportedIR("constant %d does not fit in a byte", a.Value)
			}
			ops = append(ops, bfop.AddImm{Addr: stage, N: int(a.Value)})
		default:
			return nil, compileerr.UnsupportedIR("call argument of unrecognized kind %T", arg)
		}
	}

	ops = append(ops,
		bfop.Comment{Text: "next frame"},
		bfop.Goto{Addr: 0},
		bfop.Right{N: frame.Width},
		bfop.Tag{Addr: 0, Label: fmt.Sprintf("__FRAME_%s__", c.Callee)},
		bfop.AddImm{Addr: 0, N: 1},
		bfop.Tag{Addr: callee.Layout.FuncBit(callee.ID), Label: c.Callee},
		bfop.AddImm{Addr: callee.Layout.FuncBit(callee.ID), N: 1},
		bfop.Tag{Addr: callee.Layout.BlockBit(0), Label: fmt.Sprintf("%s/b0", c.Callee)},
		bfop.AddImm{Addr: callee.Layout.BlockBit(0), N: 1},
	)

	return ops, nil
}
