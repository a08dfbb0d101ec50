package symbol_test

import (
	"testing"

	"github.com/gostack-vm/ivm/pkg/symbol"
	"github.com/gostack-vm/ivm/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestComputeFrameSize(t *testing.T) {
	integer := &types.Type{Name: "integer", Kind: types.Simple}
	fn := &symbol.Function{
		Vars:        []*symbol.Var{{Name: "a", Type: integer}, {Name: "b", Type: integer}},
		OpStackSize: 20,
	}
	fn.ComputeFrameSize()

	// header(1) + locals(2) + opHeader(1) + opstack(20) = 24 words * 4 bytes
	require.Equal(t, 24*symbol.WordSize, fn.FrameSize)
}

func TestComputeFrameSizeNoLocals(t *testing.T) {
	fn := &symbol.Function{OpStackSize: 20}
	fn.ComputeFrameSize()
	require.Equal(t, 22*symbol.WordSize, fn.FrameSize)
}

func TestIsBuiltin(t *testing.T) {
	builtin := &symbol.Function{Name: "println"}
	require.True(t, builtin.IsBuiltin())

	userFn := &symbol.Function{Name: "add", ByteCode: []byte{0x60}}
	require.False(t, userFn.IsBuiltin())
}

func TestNumParamsReadsFunctionType(t *testing.T) {
	integer := &types.Type{Name: "integer", Kind: types.Simple}
	fnType := &types.Type{Kind: types.Function, Params: []*types.Type{integer, integer}}
	fn := &symbol.Function{Type: fnType}
	require.Equal(t, 2, fn.NumParams())

	require.Equal(t, 0, (&symbol.Function{}).NumParams())
}
