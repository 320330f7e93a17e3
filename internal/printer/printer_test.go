package printer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turbio/bfcc/internal/bfop"
)

// bf strips the indentation/newlines Print adds for readability, leaving
// only the eight Brainfuck-significant characters plus any Tag/Comment
// text, so assertions don't depend on formatting whitespace.
func bf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\n' || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func TestPrintMinimalCursorMovement(t *testing.T) {
	out := bf(Print([]bfop.Op{
		bfop.AddImm{Addr: 5, N: 3},
		bfop.AddImm{Addr: 7, N: 2},
	}))
	require.Equal(t, ">>>>>+++>>++", out)
}

func TestPrintRightLeftDontMoveCursor(t *testing.T) {
	// Right/Left emit raw characters without updating the tracked cursor;
	// a Goto immediately after must therefore compute its distance from
	// wherever the cursor was before the Right, not from the physical
	// pointer position.
	out := bf(Print([]bfop.Op{
		bfop.Goto{Addr: 5},
		bfop.Right{N: 30},
		bfop.Goto{Addr: 0},
	}))
	require.Equal(t, ">>>>>"+strings.Repeat(">", 30)+"<<<<<", out)
}

func TestPrintMoveLeavesCursorAtFrom(t *testing.T) {
	ops := []bfop.Op{
		bfop.Move{From: 3, To: 8},
		bfop.AddImm{Addr: 3, N: 1},
	}
	out := bf(Print(ops))
	// After the Move, cursor == 3 (From), so the next AddImm at 3 needs no
	// further movement characters before its '+'.
	require.Equal(t, ">>>[->>>>>+<<<<<]+", out)
}

func TestPrintDupLeavesCursorAtFrom(t *testing.T) {
	out := bf(Print([]bfop.Op{
		bfop.Dup{From: 2, To1: 5, To2: 9},
	}))
	require.Equal(t, ">>[->>>+>>>>+<<<<<<<]", out)
}

func TestPrintLoopRecursesAndRestoresCursor(t *testing.T) {
	out := bf(Print([]bfop.Op{
		bfop.Loop{Addr: 4, Children: []bfop.Op{
			bfop.SubImm{Addr: 4, N: 1},
			bfop.AddImm{Addr: 6, N: 1},
		}},
		bfop.AddImm{Addr: 4, N: 1},
	}))
	require.Equal(t, ">>>>[->>+<<]+", out)
}
