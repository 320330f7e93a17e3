// Package frame implements the Frame Layout Planner (component B): per
// function, it assigns tape offsets to the dispatcher bits, the alloca
// slots, and the register file, and tracks which SSA values are currently
// on-stack via the give/take/borrow register allocator from spec §9.
//
// Grounded on original_source/bfcc.rs's per-function offset arithmetic
// (fntop, ftop, scratch) and its take_reg/give_reg/borrow_reg closures,
// corrected per spec §9 to borrow scratch only from register-file headroom
// rather than the live block-mask region.
package frame

import (
	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"

	"github.com/turbio/bfcc/internal/compileerr"
	"github.com/turbio/bfcc/ir"
)

// Width is the fixed frame width W from spec §3/§4.B. Every function's
// layout must fit within it.
const Width = 30

// RegisterCap bounds how many distinct on-stack SSA values may be live (via
// Give) at once in a single function. This is a fixed allowance rather than
// the original's unbounded growth, since Width is fixed.
const RegisterCap = 12

// HeadroomSize bounds how many cells Borrow can hand out at once. The ICmp
// gadget is the largest user: temp0 plus a 3-cell runway, plus one cell for
// each constant operand it materializes, six in all (its dest comes from the
// register file, not headroom). CondBr's flag cell and Load's temporary are
// borrowed only after any earlier instruction has released its cells.
const HeadroomSize = 6

// Layout is the per-function tape offset table from spec §3.
type Layout struct {
	W int

	FrameEntry   int // always 0
	FuncMaskBase int // always 1
	FuncCount    int

	BlockMaskBase int // 1 + FuncCount, same for every function
	BlockCount    int // B_f, this function's block count

	AllocaBase  int // BlockMaskBase + BlockCount
	AllocaCount int // A_f
	allocaNames []ir.Name

	RegisterBase int // AllocaBase + AllocaCount
	RegisterCap  int

	HeadroomBase int // RegisterBase + RegisterCap
	HeadroomSize int

	// MaxArgs is the largest argument count of any call site in the whole
	// module; the argument staging area occupies the top MaxArgs cells of
	// every frame (W-1, W-2, ...), so the rest of the layout must leave
	// that much room free.
	MaxArgs int
}

// FuncBit returns the tape offset of the function-activation bit for fid.
func (l *Layout) FuncBit(fid int) int { return l.FuncMaskBase + fid }

// BlockBit returns the tape offset of the block-activation bit for the
// block at local index bid within this function.
func (l *Layout) BlockBit(bid int) int { return l.BlockMaskBase + bid }

// AllocaSlot returns the tape offset reserved for the i'th alloca
// (ordered by first appearance) in this function.
func (l *Layout) AllocaSlot(i int) int { return l.AllocaBase + i }

// AllocaIndex returns the alloca slot index for the value named by dest,
// and false if dest does not name an alloca in this function.
func (l *Layout) AllocaIndex(dest ir.Name) (int, bool) {
	for i, n := range l.allocaNames {
		if n == dest {
			return i, true
		}
	}
	return 0, false
}

// ArgStage returns the tape offset of the i'th (0-based) argument staging
// cell, counting down from the top of the frame.
func (l *Layout) ArgStage(i int) int { return l.W - 1 - i }

// End returns one past the highest offset this layout's static regions
// use, excluding the argument staging area.
func (l *Layout) End() int { return l.HeadroomBase + l.HeadroomSize }

// Plan computes fn's layout within a module of funcCount functions and
// maxArgs (the largest argument list of any call site in the module).
// It fails with FrameOverflow if the layout cannot fit in Width.
func Plan(fn *ir.Function, funcCount, maxArgs int) (*Layout, error) {
	var allocaNames []ir.Name
	for _, b := range fn.Blocks {
		for _, instr := range b.Instructions {
			if a, ok := instr.(*ir.Alloca); ok {
				allocaNames = append(allocaNames, a.Dest)
			}
		}
	}

	l := &Layout{
		W:            Width,
		FrameEntry:   0,
		FuncMaskBase: 1,
		FuncCount:    funcCount,

		BlockMaskBase: 1 + funcCount,
		BlockCount:    len(fn.Blocks),

		AllocaBase:  1 + funcCount + len(fn.Blocks),
		AllocaCount: len(allocaNames),
		allocaNames: allocaNames,

		RegisterCap:  RegisterCap,
		HeadroomSize: HeadroomSize,
		MaxArgs:      maxArgs,
	}
	l.RegisterBase = l.AllocaBase + l.AllocaCount
	l.HeadroomBase = l.RegisterBase + l.RegisterCap

	if l.End()+maxArgs > l.W {
		return nil, compileerr.FrameOverflow(
			"function %q: layout needs %d cells (+%d argument staging) but frame width is %d\n%# v",
			fn.Name, l.End(), maxArgs, l.W, pretty.Formatter(l))
	}

	logrus.WithFields(logrus.Fields{
		"component": "frame",
		"func":      fn.Name,
		"blocks":    l.BlockCount,
		"allocas":   l.AllocaCount,
		"end":       l.End(),
	}).Debug("planned frame layout")

	return l, nil
}

// RegisterFile is the on-stack register map from spec §3/§9: an ordered
// list of optional SSA-name tags, one entry per register-file slot, plus a
// disjoint headroom pool for scratch cells. internal/dispatch keeps one per
// function, shared by its parameter prologue and all of its blocks.
type RegisterFile struct {
	layout *Layout
	slots  []*ir.Name
	given  map[ir.Name]bool
	free   []int // headroom offsets currently available, LIFO
}

// NewRegisterFile returns a fresh, empty register file for one function.
func NewRegisterFile(l *Layout) *RegisterFile {
	free := make([]int, l.HeadroomSize)
	for i := range free {
		// Fill the pool in descending order: Borrow pops from the end, so
		// the lowest headroom cell is handed out first, and repeated
		// borrow/release cycles reuse the same few cells instead of walking
		// the pool.
		free[i] = l.HeadroomBase + l.HeadroomSize - 1 - i
	}
	return &RegisterFile{
		layout: l,
		given:  map[ir.Name]bool{},
		free:   free,
	}
}

// Give allocates a destination slot for name before its producing
// instruction's first write. Callers give before any Take of the same
// instruction, so the destination never lands in a slot that the
// instruction's own operand was just taken from and still occupies.
func (r *RegisterFile) Give(name ir.Name) (int, error) {
	if r.given[name] {
		return 0, compileerr.UnsupportedIR("value %%%d produced more than once", int(name))
	}
	r.given[name] = true

	for i, tag := range r.slots {
		if tag == nil {
			n := name
			r.slots[i] = &n
			return r.layout.RegisterBase + i, nil
		}
	}

	if len(r.slots) >= r.layout.RegisterCap {
		return 0, compileerr.FrameOverflow("register file exhausted giving value %%%d (cap %d)", int(name), r.layout.RegisterCap)
	}

	n := name
	r.slots = append(r.slots, &n)
	return r.layout.RegisterBase + len(r.slots) - 1, nil
}

// Take locates the slot tagged name, frees it, and returns its tape
// offset. SSA values are single-use by construction: a second Take of the
// same name fails UnsupportedIR rather than silently mis-lowering.
func (r *RegisterFile) Take(name ir.Name) (int, error) {
	for i, tag := range r.slots {
		if tag != nil && *tag == name {
			r.slots[i] = nil
			return r.layout.RegisterBase + i, nil
		}
	}
	return 0, compileerr.UnsupportedIR("value %%%d used more than once, or used before it was produced", int(name))
}

// Borrow returns a temporary cell from the headroom pool, guaranteed not
// to alias any live operand or dispatcher bit. The caller must Release it
// after restoring it to zero.
func (r *RegisterFile) Borrow() (int, error) {
	if len(r.free) == 0 {
		return 0, compileerr.FrameOverflow("headroom exhausted (cap %d)", r.layout.HeadroomSize)
	}
	off := r.free[len(r.free)-1]
	r.free = r.free[:len(r.free)-1]
	return off, nil
}

// Release returns a previously Borrowed cell to the pool. The caller must
// have already zeroed it.
func (r *RegisterFile) Release(offset int) {
	r.free = append(r.free, offset)
}

// BorrowRun returns n contiguous headroom cells as their base offset, for
// gadgets (the ICmp comparison) whose raw Literal bytes step across
// neighboring cells with bare '>'/'<' characters rather than addressed
// moves. Relies on the headroom pool's LIFO discipline keeping repeated
// Borrow/Release cycles contiguous; a caller that interleaves an unrelated
// Borrow inside a BorrowRun/ReleaseRun pair breaks that invariant.
func (r *RegisterFile) BorrowRun(n int) (int, error) {
	if len(r.free) < n {
		return 0, compileerr.FrameOverflow("headroom exhausted borrowing a run of %d (cap %d)", n, r.layout.HeadroomSize)
	}
	base := r.free[len(r.free)-1]
	for i := 0; i < n; i++ {
		if r.free[len(r.free)-1-i] != base+i {
			return 0, compileerr.FrameOverflow("headroom fragmented requesting a contiguous run of %d", n)
		}
	}
	r.free = r.free[:len(r.free)-n]
	return base, nil
}

// ReleaseRun returns a run of n cells previously obtained from BorrowRun,
// starting at base. The caller must have already zeroed them.
func (r *RegisterFile) ReleaseRun(base, n int) {
	for i := n - 1; i >= 0; i-- {
		r.free = append(r.free, base+i)
	}
}
