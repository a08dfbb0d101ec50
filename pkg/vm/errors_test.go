package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuntimeErrorFormatsTrace(t *testing.T) {
	err := &RuntimeError{
		Reason: "operand stack underflow",
		Trace:  []StackFrame{{Function: "add", IP: 3}, {Function: "main", IP: 10}},
	}
	msg := err.Error()
	require.Contains(t, msg, "operand stack underflow")
	require.Contains(t, msg, "add")
	require.Contains(t, msg, "main")
}

func TestWithTraceOnlySetsOnce(t *testing.T) {
	err := &RuntimeError{Reason: "boom"}
	got := withTrace(err, []StackFrame{{Function: "f", IP: 1}})
	re := got.(*RuntimeError)
	require.Len(t, re.Trace, 1)

	got2 := withTrace(got, []StackFrame{{Function: "g", IP: 2}, {Function: "h", IP: 3}})
	re2 := got2.(*RuntimeError)
	require.Len(t, re2.Trace, 1, "withTrace must not overwrite an existing trace")
}
