package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turbio/bfcc/sys"
)

func TestRunHelloStyleOutput(t *testing.T) {
	// Writes the byte 65 ('A') and prints it twice.
	result, err := Run("+++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++..", nil, NewConfig())
	require.NoError(t, err)
	require.Equal(t, []byte("AA"), result.Output)
}

func TestRunIgnoresTagAndCommentAnnotations(t *testing.T) {
	result, err := Run("#tag not brainfuck\n+.", nil, NewConfig())
	require.NoError(t, err)
	require.Equal(t, []byte{1}, result.Output)
	require.Equal(t, int64(2), result.Steps)
}

func TestRunIntOverflow(t *testing.T) {
	code := make([]byte, 256)
	for i := range code {
		code[i] = '+'
	}
	_, err := Run(string(code), nil, NewConfig())

	var ierr *sys.InterpError
	require.True(t, errors.As(err, &ierr))
	require.Equal(t, sys.IntOverflow, ierr.Kind)
	require.True(t, errors.Is(err, sys.New(sys.IntOverflow, 0, 0)))
}

func TestRunIntUnderflow(t *testing.T) {
	_, err := Run("-", nil, NewConfig())
	require.True(t, errors.Is(err, sys.New(sys.IntUnderflow, 0, 0)))
}

func TestRunMemUnderflow(t *testing.T) {
	_, err := Run("<", nil, NewConfig())
	require.True(t, errors.Is(err, sys.New(sys.MemUnderflow, 0, 0)))
}

func TestRunMemOverflow(t *testing.T) {
	cfg := NewConfig().WithTapeSize(1)
	_, err := Run(">", nil, cfg)
	require.True(t, errors.Is(err, sys.New(sys.MemOverflow, 0, 0)))
}

func TestRunLoopOverflow(t *testing.T) {
	_, err := Run("[", nil, NewConfig())
	require.True(t, errors.Is(err, sys.New(sys.LoopOverflow, 0, 0)))
}

func TestRunLoopUnderflow(t *testing.T) {
	_, err := Run("+]", nil, NewConfig())
	require.True(t, errors.Is(err, sys.New(sys.LoopUnderflow, 0, 0)))
}

func TestRunTooManySteps(t *testing.T) {
	_, err := Run("+", nil, NewConfig().WithMaxSteps(0))
	require.NoError(t, err) // 0 means unbounded

	_, err = Run("+.", nil, NewConfig().WithMaxSteps(1))
	require.True(t, errors.Is(err, sys.New(sys.TooManySteps, 0, 0)))
}

func TestRunStickyZeroAtEOF(t *testing.T) {
	// One ',' reads the single input byte, the second hits EOF and gets a
	// sticky zero instead of a panic or error.
	result, err := Run(",>,.<.", []byte{9}, NewConfig())
	require.NoError(t, err)
	require.Equal(t, []byte{0, 9}, result.Output)
}

func TestRunLoopSkipsWhenConditionFalse(t *testing.T) {
	result, err := Run("[+]+.", nil, NewConfig())
	require.NoError(t, err)
	require.Equal(t, []byte{1}, result.Output)
}

func TestRunCoverageTracking(t *testing.T) {
	result, err := Run("+.", nil, NewConfig().WithCoverage(true))
	require.NoError(t, err)
	require.Equal(t, int64(1), result.Coverage[0])
	require.Equal(t, int64(1), result.Coverage[1])
}
