package frame

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turbio/bfcc/internal/compileerr"
	"github.com/turbio/bfcc/ir"
)

func fn(name string, blocks int, allocas ...ir.Name) *ir.Function {
	f := &ir.Function{Name: name}
	for i := 0; i < blocks; i++ {
		f.Blocks = append(f.Blocks, &ir.BasicBlock{Name: ir.Name(i)})
	}
	for _, a := range allocas {
		f.Blocks[0].Instructions = append(f.Blocks[0].Instructions, &ir.Alloca{Dest: a})
	}
	return f
}

func TestPlanLayout(t *testing.T) {
	l, err := Plan(fn("main", 3, 10, 11), 2, 1)
	require.NoError(t, err)

	require.Equal(t, 0, l.FrameEntry)
	require.Equal(t, 1, l.FuncMaskBase)
	require.Equal(t, 3, l.BlockMaskBase) // 1 + funcCount(2)
	require.Equal(t, 6, l.AllocaBase)    // 3 + blockCount(3)
	require.Equal(t, 8, l.RegisterBase)  // 6 + allocaCount(2)
	require.Equal(t, 8+RegisterCap, l.HeadroomBase)

	idx, ok := l.AllocaIndex(10)
	require.True(t, ok)
	require.Equal(t, 0, idx)

	idx, ok = l.AllocaIndex(11)
	require.True(t, ok)
	require.Equal(t, 1, idx)

	_, ok = l.AllocaIndex(99)
	require.False(t, ok)
}

func TestPlanOverflow(t *testing.T) {
	// Force BlockMaskBase alone past the frame width with an absurd
	// function count.
	_, err := Plan(fn("huge", 1), Width*2, 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, compileerr.ErrFrameOverflow))
}

func TestRegisterFileGiveTake(t *testing.T) {
	l, err := Plan(fn("f", 1), 1, 0)
	require.NoError(t, err)

	r := NewRegisterFile(l)

	a, err := r.Give(1)
	require.NoError(t, err)
	require.Equal(t, l.RegisterBase, a)

	b, err := r.Give(2)
	require.NoError(t, err)
	require.Equal(t, l.RegisterBase+1, b)

	// Double-give of the same name is rejected.
	_, err = r.Give(1)
	require.True(t, errors.Is(err, compileerr.ErrUnsupportedIR))

	got, err := r.Take(1)
	require.NoError(t, err)
	require.Equal(t, a, got)

	// Taking again fails: single-use.
	_, err = r.Take(1)
	require.True(t, errors.Is(err, compileerr.ErrUnsupportedIR))

	// The freed slot is reused by the next Give.
	c, err := r.Give(3)
	require.NoError(t, err)
	require.Equal(t, a, c)

	_, err = r.Take(2)
	require.NoError(t, err)
}

func TestRegisterFileCap(t *testing.T) {
	l, err := Plan(fn("f", 1), 1, 0)
	require.NoError(t, err)

	r := NewRegisterFile(l)
	for i := 0; i < RegisterCap; i++ {
		_, err := r.Give(ir.Name(i))
		require.NoError(t, err)
	}

	_, err = r.Give(ir.Name(RegisterCap))
	require.True(t, errors.Is(err, compileerr.ErrFrameOverflow))
}

func TestBorrowRelease(t *testing.T) {
	l, err := Plan(fn("f", 1), 1, 0)
	require.NoError(t, err)

	r := NewRegisterFile(l)
	off, err := r.Borrow()
	require.NoError(t, err)
	require.GreaterOrEqual(t, off, l.HeadroomBase)

	r.Release(off)

	off2, err := r.Borrow()
	require.NoError(t, err)
	require.Equal(t, off, off2)
}

func TestBorrowRunContiguous(t *testing.T) {
	l, err := Plan(fn("f", 1), 1, 0)
	require.NoError(t, err)

	r := NewRegisterFile(l)
	base, err := r.BorrowRun(3)
	require.NoError(t, err)

	// A fresh pool hands out its lowest cells first, so the run is
	// HeadroomBase, HeadroomBase+1, HeadroomBase+2.
	require.Equal(t, l.HeadroomBase, base)

	r.ReleaseRun(base, 3)

	base2, err := r.BorrowRun(3)
	require.NoError(t, err)
	require.Equal(t, base, base2)
}

func TestBorrowRunExhausted(t *testing.T) {
	l, err := Plan(fn("f", 1), 1, 0)
	require.NoError(t, err)

	r := NewRegisterFile(l)
	_, err = r.BorrowRun(HeadroomSize + 1)
	require.True(t, errors.Is(err, compileerr.ErrFrameOverflow))
}

func TestRegisterFileScopedPerFunctionNotPerBlock(t *testing.T) {
	l, err := Plan(fn("f", 2), 1, 0)
	require.NoError(t, err)

	// A single RegisterFile shared across two blocks, as internal/dispatch
	// wires it: a value given in the first block must still be takeable in
	// the second.
	r := NewRegisterFile(l)

	_, err = r.Give(42)
	require.NoError(t, err)

	_, err = r.Take(42)
	require.NoError(t, err)
}
