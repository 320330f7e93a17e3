package lower

import (
	"github.com/turbio/bfcc/internal/bfop"
	"github.com/turbio/bfcc/internal/compileerr"
	"github.com/turbio/bfcc/ir"
)

// LowerTerminator lowers a block's terminator for every case except a Call
// block, whose Br is folded into LowerCall instead.
func LowerTerminator(ctx *BlockCtx, term ir.Terminator) ([]bfop.Op, error) {
	switch t := term.(type) {
	case *ir.Br:
		return lowerBr(ctx, t)
	case *ir.CondBr:
		return lowerCondBr(ctx, t)
	case *ir.Ret:
		return lowerRet(ctx, t)
	default:
		return nil, compileerr.UnsupportedIR("terminator of unrecognized kind %T", term)
	}
}

func lowerBr(ctx *BlockCtx, br *ir.Br) ([]bfop.Op, error) {
	bid, ok := ctx.FI.BlockIdx[br.Target]
	if !ok {
		return nil, compileerr.UnsupportedIR("branch to unknown block %%%d in %s", int(br.Target), ctx.FI.Func.Name)
	}
	return []bfop.Op{bfop.AddImm{Addr: ctx.FI.Layout.BlockBit(bid), N: 1}}, nil
}

// lowerCondBr implements the if/else gadget from original_source/bfcc.rs:
// it assumes Cond is always 0 or 1 (the only values ICmp ever produces), and
// decrements a one-shot flag cell to pick exactly one of the two target
// bits, rather than branching on a general-purpose condition value.
func lowerCondBr(ctx *BlockCtx, cbr *ir.CondBr) ([]bfop.Op, error) {
	var ops []bfop.Op

	cond, err := resolveOperand(ctx, cbr.Cond, &ops)
	if err != nil {
		return nil, err
	}

	truBID, ok := ctx.FI.BlockIdx[cbr.TrueTarget]
	if !ok {
		return nil, compileerr.UnsupportedIR("branch to unknown block %%%d in %s", int(cbr.TrueTarget), ctx.FI.Func.Name)
	}
	falsBID, ok := ctx.FI.BlockIdx[cbr.FalseTarget]
	if !ok {
		return nil, compileerr.UnsupportedIR("branch to unknown block %%%d in %s", int(cbr.FalseTarget), ctx.FI.Func.Name)
	}

	temp0, err := ctx.Regs.Borrow()
	if err != nil {
		return nil, err
	}

	tru := ctx.FI.Layout.BlockBit(truBID)
	fals := ctx.FI.Layout.BlockBit(falsBID)

	ops = append(ops,
		bfop.AddImm{Addr: temp0, N: 1},

		bfop.Goto{Addr: cond.addr}, bfop.Literal{Raw: "[-"},
		bfop.Goto{Addr: temp0}, bfop.Literal{Raw: "-"},
		bfop.AddImm{Addr: tru, N: 1},
		bfop.Goto{Addr: cond.addr}, bfop.Literal{Raw: "]"},

		bfop.Goto{Addr: temp0}, bfop.Literal{Raw: "[-"},
		bfop.AddImm{Addr: fals, N: 1},
		bfop.Goto{Addr: temp0}, bfop.Literal{Raw: "]"},
	)

	cond.release()
	ctx.Regs.Release(temp0)

	return ops, nil
}

// lowerRet tears the current frame down: every alloca is cleared (so a
// reused frame slot never leaks a stale byte to the next call into this
// function), the frame-entry and function-activation bits are dropped, and
// the cursor returns to the caller's frame.
func lowerRet(ctx *BlockCtx, ret *ir.Ret) ([]bfop.Op, error) {
	if ret.Value != nil {
		return nil, compileerr.UnsupportedIR("function %q returns a value, which this subset does not model", ctx.FI.Func.Name)
	}

	var ops []bfop.Op
	for i := 0; i < ctx.FI.Layout.AllocaCount; i++ {
		ops = append(ops, bfop.Zero{Addr: ctx.FI.Layout.AllocaSlot(i)})
	}

	ops = append(ops,
		bfop.SubImm{Addr: 0, N: 1},
		bfop.Tag{Addr: 0, Label: "dead_frame"},
		bfop.SubImm{Addr: ctx.FI.Layout.FuncBit(ctx.FI.ID), N: 1},

		bfop.Goto{Addr: 0},
		bfop.Left{N: ctx.FI.Layout.W},
	)

	return ops, nil
}
