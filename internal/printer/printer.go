// Package printer implements the BfOp Printer (component F): it linearizes
// an internal/bfop.Op tree into Brainfuck source text, tracking a single
// virtual cursor to emit the minimum run of '>'/'<' between consecutive
// addressed ops.
//
// Grounded character-for-character on original_source/bfcc.rs's
// printasti/printinstri: in particular, Right and Left do not themselves
// advance the tracked cursor. Every call site in internal/lower that emits
// Right/Left is paired with a Goto{0} immediately before it for exactly
// this reason — see internal/lower's call and return gadgets — and
// internal/dispatch's opening Right runs while the cursor is still 0, so
// the next addressed op's cmov distance still lands on the right cell once
// the physical pointer has moved. A Move or Dup leaves the
// cursor parked on its From address (the Mov/Dup gadget's bracket ends
// there), not on the destination.
package printer

import (
	"fmt"
	"strings"

	"github.com/turbio/bfcc/internal/bfop"
)

// Print renders ops as Brainfuck source, interleaved with human-readable
// Tag and Comment annotations. Every character outside the canonical eight
// is ignored by a conforming interpreter (internal/engine included), so the
// annotated text is directly runnable.
func Print(ops []bfop.Op) string {
	var out strings.Builder
	p := &printer{out: &out}
	p.printAll(ops, 0, 0)
	return out.String()
}

type printer struct {
	out *strings.Builder
}

func (p *printer) printAll(ops []bfop.Op, cursor, depth int) int {
	for _, op := range ops {
		cursor = p.printOne(op, cursor, depth)
	}
	return cursor
}

func cmov(from, to int) string {
	n := to - from
	if n >= 0 {
		return strings.Repeat(">", n)
	}
	return strings.Repeat("<", -n)
}

func (p *printer) printOne(op bfop.Op, cursor, depth int) int {
	ind := strings.Repeat("\t", depth)
	fmt.Fprint(p.out, ind)

	switch o := op.(type) {
	case bfop.Right:
		fmt.Fprint(p.out, strings.Repeat(">", o.N))

	case bfop.Left:
		fmt.Fprint(p.out, strings.Repeat("<", o.N))

	case bfop.AddImm:
		fmt.Fprintf(p.out, "%s%s", cmov(cursor, o.Addr), strings.Repeat("+", o.N))
		cursor = o.Addr

	case bfop.SubImm:
		fmt.Fprintf(p.out, "%s%s", cmov(cursor, o.Addr), strings.Repeat("-", o.N))
		cursor = o.Addr

	case bfop.Zero:
		fmt.Fprintf(p.out, "%s[-]", cmov(cursor, o.Addr))
		cursor = o.Addr

	case bfop.Putch:
		fmt.Fprintf(p.out, "%s.", cmov(cursor, o.Addr))
		cursor = o.Addr

	case bfop.Move:
		fmt.Fprintf(p.out, "%s[-%s+%s]",
			cmov(cursor, o.From),
			cmov(o.From, o.To),
			cmov(o.To, o.From),
		)
		cursor = o.From

	case bfop.Dup:
		fmt.Fprintf(p.out, "%s[-%s+%s+%s]",
			cmov(cursor, o.From),
			cmov(o.From, o.To1),
			cmov(o.To1, o.To2),
			cmov(o.To2, o.From),
		)
		cursor = o.From

	case bfop.Goto:
		fmt.Fprint(p.out, cmov(cursor, o.Addr))
		cursor = o.Addr

	case bfop.Literal:
		fmt.Fprint(p.out, o.Raw)

	case bfop.Tag:
		fmt.Fprintf(p.out, "%s#%s", cmov(cursor, o.Addr), sanitizeTag(o.Label))
		cursor = o.Addr

	case bfop.Comment:
		fmt.Fprint(p.out, sanitizeComment(o.Text))

	case bfop.Loop:
		fmt.Fprintf(p.out, "%s[\n", cmov(cursor, o.Addr))
		cursor = p.printAll(o.Children, o.Addr, depth+1)
		fmt.Fprintf(p.out, "%s%s]", ind, cmov(cursor, o.Addr))
		cursor = o.Addr

	default:
		panic(fmt.Sprintf("printer: unhandled op %T", op))
	}

	fmt.Fprint(p.out, "\n")
	return cursor
}

// sanitizeTag replaces every Brainfuck-significant byte and spaces with '_'
// so a Tag's label can never be mistaken for an instruction by a
// conforming interpreter.
func sanitizeTag(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '+', '-', '<', '>', '.', ',', '[', ']', ' ':
			return '_'
		default:
			return r
		}
	}, s)
}

// sanitizeComment replaces every Brainfuck-significant byte with '_', the
// same rule sanitizeTag applies, so a comment's text can never be
// misinterpreted as an instruction stream.
func sanitizeComment(s string) string {
	return sanitizeTag(s)
}
