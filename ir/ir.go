// Package ir defines the module tree this compiler consumes: a pre-parsed
// tree of functions, basic blocks, instructions, terminators, and operands
// for the narrow subset of LLVM targeted by this project.
//
// Note: This is an interface for decoupling, not a parser. A module tree is
// produced by an external LLVM front end (see frontend/llir) and consumed
// here without re-validating the LLVM bitcode it came from.
package ir

import "fmt"

// Type describes the type of a value in this subset. Only integer types of
// at most 8 bits are legal; every legal value occupies exactly one tape
// byte.
type Type struct {
	// Bits is the declared bit width. frontend/llir rejects any Bits > 8;
	// Compile does not check it.
	Bits int
}

// I1 is the single-bit boolean type produced by ICmp.
var I1 = Type{Bits: 1}

// I8 is the byte type used for every other value in this subset.
var I8 = Type{Bits: 8}

func (t Type) String() string { return fmt.Sprintf("i%d", t.Bits) }

// Name identifies an SSA value or a basic block. This subset only deals in
// numeric names (the LLVM front end is expected to number its temporaries
// and blocks); a non-numeric name is an UnsupportedIR front-end error.
type Name int

// Module is the top-level unit of compilation: a flat list of functions.
// There are no globals, no non-function types, and no metadata in this
// subset.
type Module struct {
	Functions []*Function
}

// FuncByName returns the function with the given name, or nil.
func (m *Module) FuncByName(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Function is an ordered list of basic blocks with a name, parameters, and a
// return type. Block 0 is always the entry block.
type Function struct {
	Name       string
	Parameters []Parameter
	ReturnType Type
	Blocks     []*BasicBlock
}

// BlockByName returns the block whose Name equals n, or nil.
func (f *Function) BlockByName(n Name) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Name == n {
			return b
		}
	}
	return nil
}

// MaxBlockName returns the highest numeric block name in the function. Used
// by the normalizer to mint fresh block names (max+1).
func (f *Function) MaxBlockName() Name {
	max := Name(-1)
	for _, b := range f.Blocks {
		if b.Name > max {
			max = b.Name
		}
	}
	return max
}

// Parameter is a single function argument. Only byte-width parameters are
// legal.
type Parameter struct {
	Name Name
	Type Type
}

// BasicBlock is a straight-line sequence of Instructions ending in exactly
// one Terminator.
type BasicBlock struct {
	Name         Name
	Instructions []Instruction
	Term         Terminator
}

// HasCall reports whether the block contains a Call instruction anywhere.
func (b *BasicBlock) HasCall() bool {
	for _, instr := range b.Instructions {
		if _, ok := instr.(*Call); ok {
			return true
		}
	}
	return false
}

// Instruction is implemented by every non-terminator instruction this
// subset recognizes: Alloca, Store, Load, ICmp, Add, ZExt, Trunc, Call.
type Instruction interface {
	isInstruction()
}

// Terminator is implemented by every block terminator this subset
// recognizes: Br, CondBr, Ret.
type Terminator interface {
	isTerminator()
}

// Operand is either a LocalOperand (an SSA value produced earlier) or a
// ConstantOperand (an immediate integer).
type Operand interface {
	isOperand()
}

// LocalOperand refers to the value produced by the instruction (or
// parameter) named Name.
type LocalOperand struct {
	Name Name
}

func (LocalOperand) isOperand() {}

// ConstantOperand is an immediate value. Only values representable in a
// single byte are legal; wider constants are an UnsupportedIR error.
type ConstantOperand struct {
	Value int64
}

func (ConstantOperand) isOperand() {}

// Alloca reserves one byte for the lifetime of the enclosing function. It
// emits no Brainfuck of its own; internal/frame assigns it a fixed slot.
type Alloca struct {
	Dest Name
}

func (*Alloca) isInstruction() {}

// Store writes Value into the byte reserved by the Alloca named Addr.
type Store struct {
	Addr  Name
	Value Operand
}

func (*Store) isInstruction() {}

// Load reads the byte reserved by the Alloca named Addr into Dest, leaving
// Addr unchanged.
type Load struct {
	Dest Name
	Addr Name
}

func (*Load) isInstruction() {}

// ICmpPredicate enumerates the comparison predicates this subset supports.
// Only SignedLessThan is implemented; the underlying gadget is in fact
// unsigned (see internal/lower), reproducing a known limitation of the
// system this was distilled from rather than silently fixing it.
type ICmpPredicate int

const (
	SignedLessThan ICmpPredicate = iota
)

func (p ICmpPredicate) String() string {
	switch p {
	case SignedLessThan:
		return "slt"
	default:
		return fmt.Sprintf("icmp(%d)", int(p))
	}
}

// ICmp computes Op0 Predicate Op1 and writes 1 or 0 into Dest.
type ICmp struct {
	Dest      Name
	Predicate ICmpPredicate
	Op0       Operand
	Op1       Operand
}

func (*ICmp) isInstruction() {}

// Add computes Op0 + Op1 with native 8-bit wraparound and writes the result
// into Dest.
type Add struct {
	Dest Name
	Op0  Operand
	Op1  Operand
}

func (*Add) isInstruction() {}

// ZExt is a byte-identity move: this subset has no integer width wider than
// 8 bits, so zero-extension never changes the bit pattern.
type ZExt struct {
	Dest Name
	Src  Name
}

func (*ZExt) isInstruction() {}

// Trunc is a byte-identity move, for the same reason ZExt is.
type Trunc struct {
	Dest Name
	Src  Name
}

func (*Trunc) isInstruction() {}

// Call invokes either the "putchar" intrinsic or another function in this
// module. Dest names the call's result, and is nil for a call without one.
// Return values are not passed back to the caller (see spec §9):
// internal/lower rejects any Call whose Dest is non-nil.
type Call struct {
	Dest     *Name
	Callee   string
	Args     []Operand
}

func (*Call) isInstruction() {}

// IsPutchar reports whether this call targets the putchar intrinsic.
func (c *Call) IsPutchar() bool { return c.Callee == "putchar" }

// Br is an unconditional branch to Target.
type Br struct {
	Target Name
}

func (*Br) isTerminator() {}

// CondBr branches to TrueTarget if Cond is non-zero, else to FalseTarget.
type CondBr struct {
	Cond        Operand
	TrueTarget  Name
	FalseTarget Name
}

func (*CondBr) isTerminator() {}

// Ret returns from the enclosing function. This subset never returns a
// value to the caller (see spec §9).
type Ret struct {
	Value Operand // nil for a void return
}

func (*Ret) isTerminator() {}
