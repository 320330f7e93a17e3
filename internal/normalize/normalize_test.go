package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turbio/bfcc/ir"
)

func TestSplitAtCallsMovesTrailingInstructions(t *testing.T) {
	dest := ir.Name(5)
	fn := &ir.Function{
		Name: "f",
		Blocks: []*ir.BasicBlock{
			{
				Name: 0,
				Instructions: []ir.Instruction{
					&ir.Call{Callee: "putchar", Args: []ir.Operand{ir.ConstantOperand{Value: 1}}},
					&ir.Add{Dest: dest, Op0: ir.ConstantOperand{Value: 1}, Op1: ir.ConstantOperand{Value: 2}},
				},
				Term: &ir.Ret{},
			},
		},
	}

	require.NoError(t, Run(fn2mod(fn)))

	// Run also prepends a call-free entry block (the split block still
	// contains the call), so the split block is second and its successor
	// third.
	require.Len(t, fn.Blocks, 3)
	require.Len(t, fn.Blocks[1].Instructions, 1)
	_, isCall := fn.Blocks[1].Instructions[0].(*ir.Call)
	require.True(t, isCall)

	br, ok := fn.Blocks[1].Term.(*ir.Br)
	require.True(t, ok)
	require.Equal(t, fn.Blocks[2].Name, br.Target)

	require.Len(t, fn.Blocks[2].Instructions, 1)
	_, isAdd := fn.Blocks[2].Instructions[0].(*ir.Add)
	require.True(t, isAdd)

	_, isRet := fn.Blocks[2].Term.(*ir.Ret)
	require.True(t, isRet)
}

func TestSplitAtCallsIsIdempotent(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Blocks: []*ir.BasicBlock{
			{
				Name:         0,
				Instructions: []ir.Instruction{&ir.Call{Callee: "putchar", Args: []ir.Operand{ir.ConstantOperand{Value: 1}}}},
				Term:         &ir.Ret{},
			},
		},
	}

	require.NoError(t, Run(fn2mod(fn)))
	firstPass := len(fn.Blocks)

	require.NoError(t, Run(fn2mod(fn)))
	require.Equal(t, firstPass, len(fn.Blocks))
}

func TestEvacuateEntryBlockWhenEntryHasCall(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Blocks: []*ir.BasicBlock{
			{
				Name:         0,
				Instructions: []ir.Instruction{&ir.Call{Callee: "putchar", Args: []ir.Operand{ir.ConstantOperand{Value: 1}}}},
				Term:         &ir.Ret{},
			},
		},
	}

	require.NoError(t, Run(fn2mod(fn)))

	// Block 0 must now be call-free, branching straight to the original
	// entry (which keeps its name and is now second in the list).
	require.False(t, fn.Blocks[0].HasCall())
	br, ok := fn.Blocks[0].Term.(*ir.Br)
	require.True(t, ok)

	target := fn.BlockByName(br.Target)
	require.NotNil(t, target)
	require.True(t, target.HasCall())
}

func TestEvacuateEntryBlockNoopWhenClean(t *testing.T) {
	fn := &ir.Function{
		Name: "f",
		Blocks: []*ir.BasicBlock{
			{Name: 0, Term: &ir.Ret{}},
		},
	}

	require.NoError(t, Run(fn2mod(fn)))
	require.Len(t, fn.Blocks, 1)
}

func fn2mod(fn *ir.Function) *ir.Module {
	return &ir.Module{Functions: []*ir.Function{fn}}
}
