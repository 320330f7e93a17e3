// Package llir adapts a module parsed by github.com/llir/llvm's textual IR
// front end (github.com/llir/llvm/asm) into this project's own ir.Module,
// rejecting anything outside the narrow subset the rest of the compiler
// targets with a compileerr.UnsupportedIR.
//
// llir/llvm represents a function's body as a graph of pointers — an
// operand IS the instruction or parameter that produced it, not a name
// string — so Convert's job is mostly re-expressing that graph as the
// pre-parsed, purely-numeric-named tree internal/normalize and
// internal/frame expect. Grounded on
// other_examples/bb9c4e55_golint-fixer-exp__cmd-bin2ll-ll.go.go for the
// general shape of walking an *ir.Module's Funcs/Blocks/Insts/Term, and on
// original_source/bfcc.rs's n2usize/n2nam/unlop/uncop helpers, which this
// package's localName/operand play the same role as, minus the panics.
package llir

import (
	"fmt"
	"io"

	llvmasm "github.com/llir/llvm/asm"
	llvmconstant "github.com/llir/llvm/ir/constant"
	llvmir "github.com/llir/llvm/ir"
	llvmvalue "github.com/llir/llvm/ir/value"

	"github.com/turbio/bfcc/internal/compileerr"
	"github.com/turbio/bfcc/ir"
)

// ParseFile reads and parses a textual LLVM IR (.ll) file and converts it
// to this project's ir.Module. Bitcode (.bc) is out of scope: llir/llvm's
// asm package only reads the textual form, which is also what a verifying
// harness gets from `clang -S -emit-llvm`.
func ParseFile(path string) (*ir.Module, error) {
	return ParseFileVerbose(path, nil)
}

// ParseFileVerbose is ParseFile, plus a dump of the parsed-but-unconverted
// llir/llvm module to dump (when non-nil) before conversion, for a -v flag
// debugging a front-end rejection.
func ParseFileVerbose(path string, dump io.Writer) (*ir.Module, error) {
	m, err := llvmasm.ParseFile(path)
	if err != nil {
		return nil, compileerr.UnsupportedIR("parsing %s: %v", path, err)
	}
	if dump != nil {
		DebugDump(dump, m)
	}
	return Convert(m)
}

// Parse reads and parses textual LLVM IR from r, for callers (such as
// bfcc's "-" stdin convention) that don't have a path on disk.
func Parse(r io.Reader) (*ir.Module, error) {
	return ParseVerbose(r, nil)
}

// ParseVerbose is Parse, plus a dump of the parsed-but-unconverted
// llir/llvm module to dump (when non-nil) before conversion.
func ParseVerbose(r io.Reader, dump io.Writer) (*ir.Module, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, compileerr.UnsupportedIR("reading input: %v", err)
	}
	m, err := llvmasm.Parse("<stdin>", b)
	if err != nil {
		return nil, compileerr.UnsupportedIR("parsing input: %v", err)
	}
	if dump != nil {
		DebugDump(dump, m)
	}
	return Convert(m)
}

// Convert translates a parsed llir/llvm module into this project's subset.
// Every function, parameter, instruction, and terminator outside that
// subset is reported as ErrUnsupportedIR rather than silently dropped or
// approximated.
func Convert(m *llvmir.Module) (*ir.Module, error) {
	out := &ir.Module{}

	for _, f := range m.Funcs {
		fn, err := convertFunc(f)
		if err != nil {
			return nil, err
		}
		out.Functions = append(out.Functions, fn)
	}

	return out, nil
}

func convertFunc(f *llvmir.Func) (*ir.Function, error) {
	fn := &ir.Function{Name: f.Name()}

	retType, err := convertType(f.Sig.RetType)
	if err != nil {
		return nil, compileerr.UnsupportedIR("function %q: return type: %v", f.Name(), err)
	}
	fn.ReturnType = retType

	for _, p := range f.Params {
		name, err := localName(p.Ident())
		if err != nil {
			return nil, compileerr.UnsupportedIR("function %q: parameter %s: %v", f.Name(), p.Ident(), err)
		}
		typ, err := convertType(p.Type())
		if err != nil {
			return nil, compileerr.UnsupportedIR("function %q: parameter %s: %v", f.Name(), p.Ident(), err)
		}
		fn.Parameters = append(fn.Parameters, ir.Parameter{Name: name, Type: typ})
	}

	if len(f.Blocks) == 0 {
		return nil, compileerr.UnsupportedIR("function %q has no body (declaration only)", f.Name())
	}

	for _, b := range f.Blocks {
		block, err := convertBlock(f, b)
		if err != nil {
			return nil, err
		}
		fn.Blocks = append(fn.Blocks, block)
	}

	return fn, nil
}

func convertBlock(f *llvmir.Func, b *llvmir.Block) (*ir.BasicBlock, error) {
	name, err := localName(b.Ident())
	if err != nil {
		return nil, compileerr.UnsupportedIR("function %q: block %s: %v", f.Name(), b.Ident(), err)
	}

	block := &ir.BasicBlock{Name: name}

	for _, inst := range b.Insts {
		converted, err := convertInst(inst)
		if err != nil {
			return nil, compileerr.UnsupportedIR("function %q: block %s: %v", f.Name(), b.Ident(), err)
		}
		block.Instructions = append(block.Instructions, converted)
	}

	term, err := convertTerm(b.Term)
	if err != nil {
		return nil, compileerr.UnsupportedIR("function %q: block %s: %v", f.Name(), b.Ident(), err)
	}
	block.Term = term

	return block, nil
}

func convertInst(inst llvmir.Instruction) (ir.Instruction, error) {
	switch in := inst.(type) {
	case *llvmir.InstAlloca:
		dest, err := localName(in.Ident())
		if err != nil {
			return nil, err
		}
		if _, err := convertType(in.ElemType); err != nil {
			return nil, fmt.Errorf("alloca %s: %w", in.Ident(), err)
		}
		return &ir.Alloca{Dest: dest}, nil

	case *llvmir.InstStore:
		addr, err := localName(identOf(in.Dst))
		if err != nil {
			return nil, fmt.Errorf("store address: %w", err)
		}
		val, err := operand(in.Src)
		if err != nil {
			return nil, fmt.Errorf("store value: %w", err)
		}
		return &ir.Store{Addr: addr, Value: val}, nil

	case *llvmir.InstLoad:
		dest, err := localName(in.Ident())
		if err != nil {
			return nil, err
		}
		addr, err := localName(identOf(in.Src))
		if err != nil {
			return nil, fmt.Errorf("load address: %w", err)
		}
		return &ir.Load{Dest: dest, Addr: addr}, nil

	case *llvmir.InstICmp:
		dest, err := localName(in.Ident())
		if err != nil {
			return nil, err
		}
		pred, err := convertPredicate(in.Pred)
		if err != nil {
			return nil, err
		}
		op0, err := operand(in.X)
		if err != nil {
			return nil, fmt.Errorf("icmp operand 0: %w", err)
		}
		op1, err := operand(in.Y)
		if err != nil {
			return nil, fmt.Errorf("icmp operand 1: %w", err)
		}
		return &ir.ICmp{Dest: dest, Predicate: pred, Op0: op0, Op1: op1}, nil

	case *llvmir.InstAdd:
		dest, err := localName(in.Ident())
		if err != nil {
			return nil, err
		}
		op0, err := operand(in.X)
		if err != nil {
			return nil, fmt.Errorf("add operand 0: %w", err)
		}
		op1, err := operand(in.Y)
		if err != nil {
			return nil, fmt.Errorf("add operand 1: %w", err)
		}
		return &ir.Add{Dest: dest, Op0: op0, Op1: op1}, nil

	case *llvmir.InstZExt:
		dest, err := localName(in.Ident())
		if err != nil {
			return nil, err
		}
		src, err := localName(identOf(in.From))
		if err != nil {
			return nil, fmt.Errorf("zext operand: %w", err)
		}
		return &ir.ZExt{Dest: dest, Src: src}, nil

	case *llvmir.InstTrunc:
		dest, err := localName(in.Ident())
		if err != nil {
			return nil, err
		}
		src, err := localName(identOf(in.From))
		if err != nil {
			return nil, fmt.Errorf("trunc operand: %w", err)
		}
		return &ir.Trunc{Dest: dest, Src: src}, nil

	case *llvmir.InstCall:
		return convertCall(in)

	default:
		return nil, fmt.Errorf("instruction of unrecognized kind %T", inst)
	}
}

func convertCall(in *llvmir.InstCall) (ir.Instruction, error) {
	callee, ok := in.Callee.(*llvmir.Func)
	if !ok {
		return nil, fmt.Errorf("call target %v is not a direct function reference", in.Callee)
	}

	call := &ir.Call{Callee: callee.Name()}

	if !voidType(in.Type()) {
		dest, err := localName(in.Ident())
		if err != nil {
			return nil, err
		}
		call.Dest = &dest
	}

	for i, arg := range in.Args {
		op, err := operand(arg)
		if err != nil {
			return nil, fmt.Errorf("call argument %d: %w", i, err)
		}
		call.Args = append(call.Args, op)
	}

	return call, nil
}

func convertTerm(term llvmir.Terminator) (ir.Terminator, error) {
	switch t := term.(type) {
	case *llvmir.TermBr:
		target, err := localName(identOf(t.Target))
		if err != nil {
			return nil, fmt.Errorf("br target: %w", err)
		}
		return &ir.Br{Target: target}, nil

	case *llvmir.TermCondBr:
		cond, err := operand(t.Cond)
		if err != nil {
			return nil, fmt.Errorf("condbr condition: %w", err)
		}
		tru, err := localName(identOf(t.TargetTrue))
		if err != nil {
			return nil, fmt.Errorf("condbr true target: %w", err)
		}
		fals, err := localName(identOf(t.TargetFalse))
		if err != nil {
			return nil, fmt.Errorf("condbr false target: %w", err)
		}
		return &ir.CondBr{Cond: cond, TrueTarget: tru, FalseTarget: fals}, nil

	case *llvmir.TermRet:
		if t.X == nil {
			return &ir.Ret{}, nil
		}
		val, err := operand(t.X)
		if err != nil {
			return nil, fmt.Errorf("ret value: %w", err)
		}
		return &ir.Ret{Value: val}, nil

	default:
		return nil, fmt.Errorf("terminator of unrecognized kind %T", term)
	}
}

func convertPredicate(p llvmir.IPred) (ir.ICmpPredicate, error) {
	if p == llvmir.IPredSLT {
		return ir.SignedLessThan, nil
	}
	return 0, fmt.Errorf("icmp predicate %v not supported", p)
}

// convertType accepts only integer types of at most 8 bits: the one legal
// value shape in this subset.
func convertType(t llvmTypeLike) (ir.Type, error) {
	it, ok := t.(interface{ BitSize() int64 })
	if !ok {
		return ir.Type{}, fmt.Errorf("type %v is not an integer type", t)
	}
	bits := int(it.BitSize())
	if bits > 8 {
		return ir.Type{}, fmt.Errorf("integer width i%d exceeds the one-byte subset this compiler targets", bits)
	}
	return ir.Type{Bits: bits}, nil
}

func voidType(t llvmTypeLike) bool {
	_, ok := t.(interface{ IsVoid() bool })
	return ok
}

// llvmTypeLike avoids importing llvm/ir/types directly for the narrow
// structural checks convertType and voidType need; llir/llvm's concrete
// integer and void types both satisfy these by construction.
type llvmTypeLike interface{}

// localName requires ident to be one of llir/llvm's auto-numbered,
// unnamed identifiers — this subset's front end never deals with textual
// (%foo) names, only the numeric ones clang emits for unnamed temporaries
// and basic blocks.
func localName(ident llvmir.LocalIdent) (ir.Name, error) {
	if !ident.IsUnnamed() {
		return 0, fmt.Errorf("named local %q not supported; only numeric SSA/block names are", ident.Ident())
	}
	return ir.Name(ident.LocalID), nil
}

// identOf extracts the LocalIdent embedded in any llir/llvm value this
// subset can reference as an operand or branch target: an instruction
// result, a parameter, or a basic block.
func identOf(v interface{ Ident() string }) llvmir.LocalIdent {
	switch val := v.(type) {
	case *llvmir.InstAlloca:
		return val.LocalIdent
	case *llvmir.InstLoad:
		return val.LocalIdent
	case *llvmir.InstICmp:
		return val.LocalIdent
	case *llvmir.InstAdd:
		return val.LocalIdent
	case *llvmir.InstZExt:
		return val.LocalIdent
	case *llvmir.InstTrunc:
		return val.LocalIdent
	case *llvmir.InstCall:
		return val.LocalIdent
	case *llvmir.Param:
		return val.LocalIdent
	case *llvmir.Block:
		return val.LocalIdent
	default:
		return llvmir.LocalIdent{LocalName: fmt.Sprintf("<unsupported %T>", v)}
	}
}

// operand converts an llir/llvm value used as an instruction operand: a
// small integer constant, or a reference to an earlier instruction or
// parameter's result.
func operand(v llvmvalue.Value) (ir.Operand, error) {
	if c, ok := v.(*llvmconstant.Int); ok {
		if !c.X.IsInt64() {
			return nil, fmt.Errorf("constant %v does not fit in an int64", c.X)
		}
		n := c.X.Int64()
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("constant %d does not fit in a byte", n)
		}
		return ir.ConstantOperand{Value: n}, nil
	}

	named, ok := v.(interface{ Ident() string })
	if !ok {
		return nil, fmt.Errorf("operand of unrecognized kind %T", v)
	}
	name, err := localName(identOf(named))
	if err != nil {
		return nil, err
	}
	return ir.LocalOperand{Name: name}, nil
}

// DebugDump prints the parsed-but-unconverted llir/llvm tree to w, the same
// diagnostic clang -S -emit-llvm | llvm-dis would otherwise require. Wired
// to cmd/bfcc's -v flag via ParseFileVerbose/ParseVerbose.
func DebugDump(w io.Writer, m *llvmir.Module) {
	fmt.Fprintln(w, m)
}
