// Package lower implements the Instruction Lowerer (component C) and
// Terminator Lowerer (component D): together they turn one basic block's
// instructions and terminator into a sequence of internal/bfop.Op values,
// using internal/frame's per-function Layout and RegisterFile.
//
// Grounded on original_source/bfcc.rs's per-instruction match arms inside
// compile(), with the ICmp/CondBr gadgets translated character-for-character
// and the call-site frame-push sequence kept as-is. The borrow_reg closure's
// scratch addressing is not carried over: spec §9 requires scratch to come
// from register-file headroom rather than an unused block-mask bit, so every
// borrow here goes through frame.RegisterFile.Borrow/BorrowRun instead.
package lower

import (
	"github.com/sirupsen/logrus"

	"github.com/turbio/bfcc/internal/bfop"
	"github.com/turbio/bfcc/internal/compileerr"
	"github.com/turbio/bfcc/internal/frame"
	"github.com/turbio/bfcc/ir"
)

var log = logrus.WithField("component", "lower")

// FuncInfo is the compile-time metadata for one function: its index in the
// module's function mask, its planned frame layout, and a lookup from this
// subset's block names to the local indices used in the block mask.
type FuncInfo struct {
	ID       int
	Func     *ir.Function
	Layout   *frame.Layout
	BlockIdx map[ir.Name]int
}

// ModuleInfo is the whole-module metadata the lowerer and dispatcher share:
// every function's FuncInfo, keyed by name, plus the function count used to
// size the function mask.
type ModuleInfo struct {
	Funcs     map[string]*FuncInfo
	Order     []string // function names in module order, fid ascending
	FuncCount int
	MaxArgs   int
}

// BuildModuleInfo plans every function's frame layout and indexes its
// blocks. It is the first step of compilation after normalization.
func BuildModuleInfo(m *ir.Module) (*ModuleInfo, error) {
	maxArgs := 0
	for _, fn := range m.Functions {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instructions {
				if c, ok := instr.(*ir.Call); ok && !c.IsPutchar() {
					if len(c.Args) > maxArgs {
						maxArgs = len(c.Args)
					}
				}
			}
		}
	}

	mi := &ModuleInfo{
		Funcs:     map[string]*FuncInfo{},
		FuncCount: len(m.Functions),
		MaxArgs:   maxArgs,
	}

	for fid, fn := range m.Functions {
		layout, err := frame.Plan(fn, mi.FuncCount, maxArgs)
		if err != nil {
			return nil, err
		}

		blockIdx := map[ir.Name]int{}
		for bid, b := range fn.Blocks {
			blockIdx[b.Name] = bid
		}

		mi.Funcs[fn.Name] = &FuncInfo{
			ID:       fid,
			Func:     fn,
			Layout:   layout,
			BlockIdx: blockIdx,
		}
		mi.Order = append(mi.Order, fn.Name)
	}

	log.WithFields(logrus.Fields{"functions": mi.FuncCount, "max_args": maxArgs}).Debug("built module info")

	return mi, nil
}

// BlockCtx carries the state live while lowering a single block: which
// function it belongs to, the whole module's metadata (needed to resolve
// call targets), and the enclosing function's register file, which every
// block of that function shares.
type BlockCtx struct {
	Mod  *ModuleInfo
	FI   *FuncInfo
	Regs *frame.RegisterFile
}

// resolved is the address an Operand lowers to, plus how to release it once
// the instruction consuming it is done. release is a no-op for a Take'd
// register (its slot already went back to the free list); for a materialized
// constant it returns the borrowed cell to headroom.
type resolved struct {
	addr    int
	release func()
}

func noRelease() {}

// resolveOperand lowers an Operand to a tape address, appending any ops
// needed to materialize a constant into a borrowed cell.
func resolveOperand(ctx *BlockCtx, op ir.Operand, ops *[]bfop.Op) (resolved, error) {
	switch o := op.(type) {
	case ir.LocalOperand:
		addr, err := ctx.Regs.Take(o.Name)
		if err != nil {
			return resolved{}, err
		}
		return resolved{addr: addr, release: noRelease}, nil
	case ir.ConstantOperand:
		if o.Value < 0 || o.Value > 255 {
			return resolved{}, compileerr.UnsupportedIR("constant %d does not fit in a byte", o.Value)
		}
		addr, err := ctx.Regs.Borrow()
		if err != nil {
			return resolved{}, err
		}
		*ops = append(*ops, bfop.AddImm{Addr: addr, N: int(o.Value)})
		return resolved{addr: addr, release: func() { ctx.Regs.Release(addr) }}, nil
	default:
		return resolved{}, compileerr.UnsupportedIR("operand of unrecognized kind %T", op)
	}
}
