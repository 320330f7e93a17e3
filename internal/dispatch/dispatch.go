// Package dispatch implements the Dispatcher Emitter (component E): it
// assembles every function's lowered blocks into the three-level nested
// mask loop described in spec §4.E — frame-entry, function mask, block mask
// — and prefixes the whole tree with the runtime's startup sequence that
// arms main's first frame.
//
// Grounded on original_source/bfcc.rs's root/mainloop/funcloop/blockloop
// construction inside compile().
package dispatch

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/turbio/bfcc/internal/bfop"
	"github.com/turbio/bfcc/internal/compileerr"
	"github.com/turbio/bfcc/internal/frame"
	"github.com/turbio/bfcc/internal/lower"
	"github.com/turbio/bfcc/ir"
)

var log = logrus.WithField("component", "dispatch")

// Emit builds the full Op tree for a normalized module given its planned
// ModuleInfo: the runtime init sequence, followed by a single Loop(0, ...)
// gating every function's dispatch loop.
func Emit(m *ir.Module, mod *lower.ModuleInfo) ([]bfop.Op, error) {
	main, ok := mod.Funcs["main"]
	if !ok {
		return nil, compileerr.UnsupportedIR("module has no function named \"main\"")
	}

	root := []bfop.Op{
		bfop.Right{N: frame.Width},
		bfop.Comment{Text: "runtime init:"},
		bfop.Tag{Addr: 0, Label: "__FRAME__ENTRY__"},
		bfop.AddImm{Addr: 0, N: 1},
		bfop.Tag{Addr: main.Layout.FuncBit(main.ID), Label: "main"},
		bfop.AddImm{Addr: main.Layout.FuncBit(main.ID), N: 1},
		bfop.Tag{Addr: main.Layout.BlockBit(0), Label: "main/b0"},
		bfop.AddImm{Addr: main.Layout.BlockBit(0), N: 1},
		bfop.Comment{Text: ""},
	}

	var mainloop []bfop.Op
	for _, fn := range m.Functions {
		fi := mod.Funcs[fn.Name]

		funcloop, err := emitFunc(mod, fi)
		if err != nil {
			return nil, err
		}

		mainloop = append(mainloop,
			bfop.Tag{Addr: fi.Layout.FuncBit(fi.ID), Label: fn.Name},
			bfop.Loop{Addr: fi.Layout.FuncBit(fi.ID), Children: funcloop},
		)
	}

	root = append(root, bfop.Loop{Addr: 0, Children: mainloop})

	log.WithField("functions", len(m.Functions)).Debug("emitted dispatcher")

	return root, nil
}

// emitFunc builds one function's funcloop: the parameter prologue (run on
// every dispatch of this function, see lower.LowerParamPrologue), followed
// by one Loop per block, gated on that block's activation bit. One
// RegisterFile is shared by the prologue and every block, since an on-stack
// value survives across block boundaries within the same invocation.
func emitFunc(mod *lower.ModuleInfo, fi *lower.FuncInfo) ([]bfop.Op, error) {
	regs := frame.NewRegisterFile(fi.Layout)

	prologue, err := lower.LowerParamPrologue(fi, regs)
	if err != nil {
		return nil, err
	}

	funcloop := append([]bfop.Op{}, prologue...)

	for bid, block := range fi.Func.Blocks {
		blockBit := fi.Layout.BlockBit(bid)

		blockOps, err := emitBlock(mod, fi, regs, block, blockBit)
		if err != nil {
			return nil, err
		}

		funcloop = append(funcloop, bfop.Loop{Addr: blockBit, Children: blockOps})
	}

	return funcloop, nil
}

// emitBlock tags and consumes the block's own activation bit, then lowers
// its body.
func emitBlock(mod *lower.ModuleInfo, fi *lower.FuncInfo, regs *frame.RegisterFile, block *ir.BasicBlock, blockBit int) ([]bfop.Op, error) {
	body, err := lower.LowerBlock(mod, fi, regs, block)
	if err != nil {
		return nil, err
	}

	ops := []bfop.Op{
		bfop.Tag{Addr: blockBit, Label: fmt.Sprintf("%s/%d", fi.Func.Name, int(block.Name))},
		bfop.SubImm{Addr: blockBit, N: 1},
	}
	return append(ops, body...), nil
}
