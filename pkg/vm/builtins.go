package vm

import "fmt"

// callBuiltin services an invokestatic whose target is one of the
// three reserved names, in the current frame (spec.md §4.4 "Built-ins"
// - built-ins run without pushing a new frame). It reports whether
// name matched a built-in at all; ok is false for any other function
// name, telling the dispatch loop to fall through to a user call.
func (e *Engine) callBuiltin(name string, frame *Frame) (ok bool, err error) {
	switch name {
	case "println":
		v, err := frame.Pop()
		if err != nil {
			return true, err
		}
		fmt.Fprintf(e.Stdout, "%d\n", v)
		return true, nil

	case "tick":
		if err := frame.Push(e.tick()); err != nil {
			return true, err
		}
		return true, nil

	case "integer_to_string":
		// Present in every constant pool (spec.md §4.1 step 3) but never
		// reached by a valid invokestatic under the supported opcode
		// subset (spec.md §4.4 "Built-ins"); reaching here means the
		// source bytecode calls it anyway.
		return true, &RuntimeError{Reason: "integer_to_string has no executable implementation in this engine"}

	default:
		return false, nil
	}
}

// tick returns a monotonically non-decreasing value: the elapsed
// wall-clock time since the engine was created, in milliseconds. It
// does not measure processor time.
func (e *Engine) tick() int32 {
	return int32(e.clock().Milliseconds())
}
