package vm

import (
	"bytes"
	"testing"

	"github.com/gostack-vm/ivm/pkg/bytecode"
	"github.com/gostack-vm/ivm/pkg/symbol"
	"github.com/gostack-vm/ivm/pkg/types"
	"github.com/stretchr/testify/require"
)

func newBuiltinEngine(t *testing.T, out *bytes.Buffer) *Engine {
	t.Helper()
	table := types.NewTable()
	consts := bytecode.BuiltinConsts(table)
	main := &symbol.Function{Name: "main", ByteCode: []byte{0xb1}, OpStackSize: 20}
	main.ComputeFrameSize()
	consts = append(consts, &bytecode.Const{Kind: bytecode.ConstFunction, Func: main})
	mod := &bytecode.Module{Types: table, Consts: consts, Main: main}
	return New(mod, WithStdout(out))
}

func TestCallBuiltinPrintln(t *testing.T) {
	var out bytes.Buffer
	e := newBuiltinEngine(t, &out)
	fn := &symbol.Function{OpStackSize: 4}
	fn.ComputeFrameSize()
	frame := CreateFrame(nil, fn, nil)
	require.NoError(t, frame.Push(99))

	ok, err := e.callBuiltin("println", frame)
	require.True(t, ok)
	require.NoError(t, err)
	require.Equal(t, "99\n", out.String())
}

func TestCallBuiltinTickIsMonotonic(t *testing.T) {
	var out bytes.Buffer
	e := newBuiltinEngine(t, &out)
	fn := &symbol.Function{OpStackSize: 4}
	fn.ComputeFrameSize()
	frame := CreateFrame(nil, fn, nil)

	ok, err := e.callBuiltin("tick", frame)
	require.True(t, ok)
	require.NoError(t, err)
	first, err := frame.Pop()
	require.NoError(t, err)

	ok, err = e.callBuiltin("tick", frame)
	require.True(t, ok)
	require.NoError(t, err)
	second, err := frame.Pop()
	require.NoError(t, err)

	require.GreaterOrEqual(t, second, first)
}

func TestCallBuiltinUnknownNameFallsThrough(t *testing.T) {
	var out bytes.Buffer
	e := newBuiltinEngine(t, &out)
	fn := &symbol.Function{OpStackSize: 4}
	fn.ComputeFrameSize()
	frame := CreateFrame(nil, fn, nil)

	ok, err := e.callBuiltin("add", frame)
	require.False(t, ok)
	require.NoError(t, err)
}
