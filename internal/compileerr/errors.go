// Package compileerr defines the closed set of structured compile-time
// error kinds from spec §7: UnsupportedIR and FrameOverflow. Every core
// package that can reject a module (frontend/llir, internal/frame,
// internal/lower, internal/dispatch) wraps one of these two sentinels with
// call-site context via github.com/pkg/errors, so callers can recover the
// kind with errors.Is regardless of how much context was added along the
// way.
package compileerr

import "github.com/pkg/errors"

// ErrUnsupportedIR is returned for any instruction, type, predicate, or
// block naming scheme outside the subset this compiler targets, including
// multi-use of an SSA value and a Call not followed by a branch.
var ErrUnsupportedIR = errors.New("unsupported IR")

// ErrFrameOverflow is returned when a function's computed layout
// (dispatcher bits + allocas + register headroom) does not fit within the
// fixed frame width.
var ErrFrameOverflow = errors.New("frame overflow")

// UnsupportedIR wraps ErrUnsupportedIR with a formatted message.
func UnsupportedIR(format string, args ...interface{}) error {
	return errors.Wrapf(ErrUnsupportedIR, format, args...)
}

// FrameOverflow wraps ErrFrameOverflow with a formatted message.
func FrameOverflow(format string, args ...interface{}) error {
	return errors.Wrapf(ErrFrameOverflow, format, args...)
}
