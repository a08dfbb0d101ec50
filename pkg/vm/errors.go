// Package vm implements the execution engine: frame machinery, the
// instruction dispatch loop, and the built-in functions every module
// gets for free.
package vm

import (
	"fmt"
	"strings"
)

// StackFrame captures one call's position for a RuntimeError's trace:
// which function was executing and at what bytecode index.
type StackFrame struct {
	Function string
	IP       int
}

// RuntimeError reports a failure raised while executing bytecode: an
// operand stack overflow/underflow, a bad constant-pool index or kind,
// an unknown opcode, a call to a function with no bytecode body, or a
// main function with no bytecode body (spec.md §7). Division by zero and
// out-of-range local indices are not checked and panic instead. Every
// RuntimeError raised inside the dispatch loop carries the call chain
// active at the moment of failure, innermost call first.
type RuntimeError struct {
	Reason string
	Trace  []StackFrame

	// Code classifies the failure for the CLI's exit-code mapping
	// (spec.md §6 "CLI"). Zero (ExitUnspecified) for faults with no more
	// specific code.
	Code ExitCode
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Reason)
	if len(e.Trace) > 0 {
		b.WriteString("\n\ncall stack:")
		for _, f := range e.Trace {
			fmt.Fprintf(&b, "\n  at %s [ip=%d]", f.Function, f.IP)
		}
	}
	return b.String()
}

// withTrace attaches the call chain active when err was raised. The
// engine's dispatch loop calls this once, at the point it first
// catches an error from step, before propagating it to its own caller.
func withTrace(err error, trace []StackFrame) error {
	re, ok := err.(*RuntimeError)
	if !ok {
		return err
	}
	if re.Trace != nil {
		return re
	}
	re.Trace = trace
	return re
}
