package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turbio/bfcc/internal/engine"
	"github.com/turbio/bfcc/ir"
)

func run(t *testing.T, m *ir.Module) *engine.Result {
	t.Helper()

	code, err := Compile(m)
	require.NoError(t, err)

	result, err := engine.Run(code, nil, engine.NewConfig())
	require.NoError(t, err)
	return result
}

func TestCompileSinglePutchar(t *testing.T) {
	m := &ir.Module{Functions: []*ir.Function{{
		Name: "main",
		Blocks: []*ir.BasicBlock{{
			Name:         0,
			Instructions: []ir.Instruction{&ir.Call{Callee: "putchar", Args: []ir.Operand{ir.ConstantOperand{Value: 65}}}},
			Term:         &ir.Ret{},
		}},
	}}}

	result := run(t, m)
	require.Equal(t, []byte("A"), result.Output)
}

func TestCompileEmptyMainProducesNoOutput(t *testing.T) {
	m := &ir.Module{Functions: []*ir.Function{{
		Name:   "main",
		Blocks: []*ir.BasicBlock{{Name: 0, Term: &ir.Ret{}}},
	}}}

	result := run(t, m)
	require.Empty(t, result.Output)
}

func TestCompileTwoCallsInOneBlock(t *testing.T) {
	// void main() { putchar('h'); putchar('i'); return; }
	//
	// Both calls start out in the same pre-normalization block, so this
	// is the scenario that actually drives splitAtCalls through a block
	// containing two Calls rather than zero or one.
	mainFn := &ir.Function{
		Name: "main",
		Blocks: []*ir.BasicBlock{{
			Name: 0,
			Instructions: []ir.Instruction{
				&ir.Call{Callee: "putchar", Args: []ir.Operand{ir.ConstantOperand{Value: 'h'}}},
				&ir.Call{Callee: "putchar", Args: []ir.Operand{ir.ConstantOperand{Value: 'i'}}},
			},
			Term: &ir.Ret{},
		}},
	}

	m := &ir.Module{Functions: []*ir.Function{mainFn}}

	result := run(t, m)
	require.Equal(t, []byte("hi"), result.Output)
}

func TestCompileMissingMainRejected(t *testing.T) {
	m := &ir.Module{Functions: []*ir.Function{{
		Name:   "notmain",
		Blocks: []*ir.BasicBlock{{Name: 0, Term: &ir.Ret{}}},
	}}}

	_, err := Compile(m)
	require.Error(t, err)
}

func TestCompileCallAndReturn(t *testing.T) {
	// void greet(i8 c) { putchar(c); return; }
	// void main() { greet(66); greet(67); return; }
	greetParam := ir.Name(0)
	greet := &ir.Function{
		Name:       "greet",
		Parameters: []ir.Parameter{{Name: greetParam, Type: ir.I8}},
		Blocks: []*ir.BasicBlock{{
			Name:         0,
			Instructions: []ir.Instruction{&ir.Call{Callee: "putchar", Args: []ir.Operand{ir.LocalOperand{Name: greetParam}}}},
			Term:         &ir.Ret{},
		}},
	}

	mainFn := &ir.Function{
		Name: "main",
		Blocks: []*ir.BasicBlock{{
			Name: 0,
			Instructions: []ir.Instruction{
				&ir.Call{Callee: "greet", Args: []ir.Operand{ir.ConstantOperand{Value: 66}}},
			},
			Term: &ir.Br{Target: 1},
		}, {
			Name: 1,
			Instructions: []ir.Instruction{
				&ir.Call{Callee: "greet", Args: []ir.Operand{ir.ConstantOperand{Value: 67}}},
			},
			Term: &ir.Ret{},
		}},
	}

	m := &ir.Module{Functions: []*ir.Function{greet, mainFn}}

	result := run(t, m)
	require.Equal(t, []byte("BC"), result.Output)
}

func TestCompileAddAndStoreLoad(t *testing.T) {
	// void main() {
	//   i8* p = alloca i8
	//   store i8 3, i8* p
	//   i8 v = load i8* p
	//   i8 s = add i8 v, 4
	//   putchar(s)
	// }
	allocaName := ir.Name(0)
	loadName := ir.Name(1)
	addName := ir.Name(2)

	mainFn := &ir.Function{
		Name: "main",
		Blocks: []*ir.BasicBlock{{
			Name: 0,
			Instructions: []ir.Instruction{
				&ir.Alloca{Dest: allocaName},
				&ir.Store{Addr: allocaName, Value: ir.ConstantOperand{Value: 3}},
				&ir.Load{Dest: loadName, Addr: allocaName},
				&ir.Add{Dest: addName, Op0: ir.LocalOperand{Name: loadName}, Op1: ir.ConstantOperand{Value: 4}},
				&ir.Call{Callee: "putchar", Args: []ir.Operand{ir.LocalOperand{Name: addName}}},
			},
			Term: &ir.Ret{},
		}},
	}

	m := &ir.Module{Functions: []*ir.Function{mainFn}}

	result := run(t, m)
	require.Equal(t, []byte{7}, result.Output)
}

func TestCompileICmpAndCondBr(t *testing.T) {
	// void main() {
	// entry:
	//   i1 c = icmp slt i8 2, 5
	//   br i1 c, label %then, label %else
	// then:
	//   putchar(1)
	//   ret
	// else:
	//   putchar(0)
	//   ret
	// }
	cmpName := ir.Name(0)

	mainFn := &ir.Function{
		Name: "main",
		Blocks: []*ir.BasicBlock{
			{
				Name:         0,
				Instructions: []ir.Instruction{&ir.ICmp{Dest: cmpName, Predicate: ir.SignedLessThan, Op0: ir.ConstantOperand{Value: 2}, Op1: ir.ConstantOperand{Value: 5}}},
				Term:         &ir.CondBr{Cond: ir.LocalOperand{Name: cmpName}, TrueTarget: 1, FalseTarget: 2},
			},
			{
				Name:         1,
				Instructions: []ir.Instruction{&ir.Call{Callee: "putchar", Args: []ir.Operand{ir.ConstantOperand{Value: 1}}}},
				Term:         &ir.Ret{},
			},
			{
				Name:         2,
				Instructions: []ir.Instruction{&ir.Call{Callee: "putchar", Args: []ir.Operand{ir.ConstantOperand{Value: 0}}}},
				Term:         &ir.Ret{},
			},
		},
	}

	m := &ir.Module{Functions: []*ir.Function{mainFn}}

	result := run(t, m)
	require.Equal(t, []byte{1}, result.Output)
}
