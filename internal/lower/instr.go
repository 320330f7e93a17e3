package lower

import (
	"fmt"

	"github.com/turbio/bfcc/internal/bfop"
	"github.com/turbio/bfcc/internal/compileerr"
	"github.com/turbio/bfcc/ir"
)

// LowerInstruction lowers one non-Call instruction to a sequence of Ops.
// Call is handled by LowerCall instead, since it also consumes the block's
// terminator.
func LowerInstruction(ctx *BlockCtx, instr ir.Instruction) ([]bfop.Op, error) {
	switch in := instr.(type) {
	case *ir.Alloca:
		return lowerAlloca(ctx, in)
	case *ir.Store:
		return lowerStore(ctx, in)
	case *ir.Load:
		return lowerLoad(ctx, in)
	case *ir.ICmp:
		return lowerICmp(ctx, in)
	case *ir.Add:
		return lowerAdd(ctx, in)
	case *ir.ZExt:
		return lowerZExt(ctx, in)
	case *ir.Trunc:
		return lowerTrunc(ctx, in)
	default:
		return nil, compileerr.UnsupportedIR("instruction of unrecognized kind %T", instr)
	}
}

func allocaAddr(ctx *BlockCtx, name ir.Name) (int, error) {
	idx, ok := ctx.FI.Layout.AllocaIndex(name)
	if !ok {
		return 0, compileerr.UnsupportedIR("%%%d is not an alloca in %s", int(name), ctx.FI.Func.Name)
	}
	return ctx.FI.Layout.AllocaSlot(idx), nil
}

// lowerAlloca reserves no ops of its own: internal/frame already assigned
// its slot. Only a debugger Tag marks it.
func lowerAlloca(ctx *BlockCtx, a *ir.Alloca) ([]bfop.Op, error) {
	addr, err := allocaAddr(ctx, a.Dest)
	if err != nil {
		return nil, err
	}
	return []bfop.Op{bfop.Tag{Addr: addr, Label: fmt.Sprintf("alloca_%%%d", int(a.Dest))}}, nil
}

func lowerStore(ctx *BlockCtx, s *ir.Store) ([]bfop.Op, error) {
	addr, err := allocaAddr(ctx, s.Addr)
	if err != nil {
		return nil, err
	}

	var ops []bfop.Op
	switch v := s.Value.(type) {
	case ir.LocalOperand:
		src, err := ctx.Regs.Take(v.Name)
		if err != nil {
			return nil, err
		}
		ops = append(ops, bfop.Zero{Addr: addr}, bfop.Move{From: src, To: addr})
	case ir.ConstantOperand:
		if v.Value < 0 || v.Value > 255 {
			return nil, compileerr.UnsupportedIR("constant %d does not fit in a byte", v.Value)
		}
		ops = append(ops, bfop.Zero{Addr: addr}, bfop.AddImm{Addr: addr, N: int(v.Value)})
	default:
		return nil, compileerr.UnsupportedIR("store value of unrecognized kind %T", s.Value)
	}
	return ops, nil
}

func lowerLoad(ctx *BlockCtx, l *ir.Load) ([]bfop.Op, error) {
	addr, err := allocaAddr(ctx, l.Addr)
	if err != nil {
		return nil, err
	}
	dest, err := ctx.Regs.Give(l.Dest)
	if err != nil {
		return nil, err
	}
	temp0, err := ctx.Regs.Borrow()
	if err != nil {
		return nil, err
	}

	ops := []bfop.Op{
		bfop.Tag{Addr: dest, Label: fmt.Sprintf("load_%%%d_to_%%%d", int(l.Addr), int(l.Dest))},
		bfop.Dup{From: addr, To1: temp0, To2: dest},
		bfop.Move{From: temp0, To: addr},
	}
	ctx.Regs.Release(temp0)
	return ops, nil
}

// lowerICmp implements the single predicate this subset recognizes,
// SignedLessThan, via the subtract-and-borrow comparison gadget from
// original_source/bfcc.rs. The gadget is in fact an unsigned comparison
// (it never inspects a sign bit); this subset's values are always
// zero-extended bytes, so the distinction never surfaces here, the same
// limitation the source it was grounded on carries.
func lowerICmp(ctx *BlockCtx, c *ir.ICmp) ([]bfop.Op, error) {
	if c.Predicate != ir.SignedLessThan {
		return nil, compileerr.UnsupportedIR("icmp predicate %s not supported", c.Predicate)
	}

	var ops []bfop.Op

	dest, err := ctx.Regs.Give(c.Dest)
	if err != nil {
		return nil, err
	}
	op0, err := resolveOperand(ctx, c.Op0, &ops)
	if err != nil {
		return nil, err
	}
	op1, err := resolveOperand(ctx, c.Op1, &ops)
	if err != nil {
		return nil, err
	}

	temp0, err := ctx.Regs.Borrow()
	if err != nil {
		return nil, err
	}
	t1, err := ctx.Regs.BorrowRun(3)
	if err != nil {
		return nil, err
	}
	t1a, t1b, t1c := t1, t1+1, t1+2

	ops = append(ops,
		bfop.Tag{Addr: temp0, Label: "icmp_temp0"},
		bfop.Tag{Addr: t1a, Label: "icmp_temp1_a"},
		bfop.Tag{Addr: t1b, Label: "icmp_temp1_b"},
		bfop.Tag{Addr: t1c, Label: "icmp_temp1_c"},
		bfop.Tag{Addr: dest, Label: fmt.Sprintf("%%%d_icmp_slt", int(c.Dest))},

		bfop.Move{From: op0.addr, To: dest},

		bfop.AddImm{Addr: t1b, N: 1},

		bfop.Dup{From: op1.addr, To1: temp0, To2: t1a},
		bfop.Move{From: temp0, To: op1.addr},

		bfop.Move{From: dest, To: temp0},
		bfop.AddImm{Addr: dest, N: 1},

		bfop.Goto{Addr: t1a}, bfop.Literal{Raw: "[>-]> [<"},
		bfop.Goto{Addr: dest}, bfop.Literal{Raw: "-"},
		bfop.Goto{Addr: temp0}, bfop.Literal{Raw: "[-]"},
		bfop.Goto{Addr: t1a}, bfop.Literal{Raw: ">->]<+<"},

		bfop.Goto{Addr: temp0}, bfop.Literal{Raw: "["},
		bfop.Goto{Addr: t1a}, bfop.Literal{Raw: "- [>-]> [<"},
		bfop.Goto{Addr: dest}, bfop.Literal{Raw: "-"},
		bfop.Goto{Addr: temp0}, bfop.Literal{Raw: "[-]+"},
		bfop.Goto{Addr: t1a}, bfop.Literal{Raw: ">->]<+<"},
		bfop.Goto{Addr: temp0}, bfop.Literal{Raw: "-]"},

		bfop.Zero{Addr: op1.addr},
		bfop.Zero{Addr: op0.addr},
		bfop.Zero{Addr: temp0},
		bfop.Zero{Addr: t1a},
		bfop.Zero{Addr: t1b},
		bfop.Zero{Addr: t1c},
	)

	op0.release()
	op1.release()
	ctx.Regs.Release(temp0)
	ctx.Regs.ReleaseRun(t1, 3)

	return ops, nil
}

func lowerAdd(ctx *BlockCtx, a *ir.Add) ([]bfop.Op, error) {
	var ops []bfop.Op

	dest, err := ctx.Regs.Give(a.Dest)
	if err != nil {
		return nil, err
	}
	op0, err := resolveOperand(ctx, a.Op0, &ops)
	if err != nil {
		return nil, err
	}
	op1, err := resolveOperand(ctx, a.Op1, &ops)
	if err != nil {
		return nil, err
	}

	ops = append(ops,
		bfop.Tag{Addr: dest, Label: fmt.Sprintf("%%%d_add", int(a.Dest))},
		// Two Moves into the same dest: the first leaves it holding op0,
		// the second adds op1 on top. dest does not go back to zero
		// between them.
		bfop.Move{From: op0.addr, To: dest},
		bfop.Move{From: op1.addr, To: dest},
	)

	op0.release()
	op1.release()

	return ops, nil
}

func lowerZExt(ctx *BlockCtx, z *ir.ZExt) ([]bfop.Op, error) {
	return lowerIdentityMove(ctx, z.Dest, z.Src, "zext")
}

func lowerTrunc(ctx *BlockCtx, t *ir.Trunc) ([]bfop.Op, error) {
	return lowerIdentityMove(ctx, t.Dest, t.Src, "trunc")
}

// lowerIdentityMove implements ZExt and Trunc, which are both identity
// moves in this subset: no legal type here is wider than one byte, so
// neither op changes a value's bit pattern.
func lowerIdentityMove(ctx *BlockCtx, dest, src ir.Name, tag string) ([]bfop.Op, error) {
	d, err := ctx.Regs.Give(dest)
	if err != nil {
		return nil, err
	}
	s, err := ctx.Regs.Take(src)
	if err != nil {
		return nil, err
	}
	return []bfop.Op{
		bfop.Tag{Addr: d, Label: fmt.Sprintf("%%%d_%s_%%%d", int(dest), tag, int(src))},
		bfop.Move{From: s, To: d},
	}, nil
}
