package types_test

import (
	"testing"

	"github.com/gostack-vm/ivm/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestNewTablePrepopulatesSystemTypes(t *testing.T) {
	table := types.NewTable()
	require.Len(t, table.Types, types.NumSystemTypes)

	for i, name := range types.SystemNames {
		typ, ok := table.At(i)
		require.True(t, ok)
		require.Equal(t, name, typ.Name)

		found, ok := table.Lookup(name)
		require.True(t, ok)
		require.Same(t, typ, found)
	}
}

func TestSystemTypeUpperRelationships(t *testing.T) {
	table := types.NewTable()

	number, _ := table.Lookup("number")
	str, _ := table.Lookup("string")
	boolean, _ := table.Lookup("boolean")
	integer, _ := table.Lookup("integer")
	decimal, _ := table.Lookup("decimal")
	any_, _ := table.Lookup("any")

	require.Equal(t, []*types.Type{any_}, number.Upper)
	require.Equal(t, []*types.Type{any_}, str.Upper)
	require.Equal(t, []*types.Type{any_}, boolean.Upper)
	require.Equal(t, []*types.Type{number}, integer.Upper)
	require.Equal(t, []*types.Type{number}, decimal.Upper)
	require.Empty(t, any_.Upper)
}

func TestAddRejectsDuplicateNames(t *testing.T) {
	table := types.NewTable()
	err := table.Add(&types.Type{Name: "integer", Kind: types.Simple})
	require.Error(t, err)
}

func TestAddAppendsAfterSystemTypes(t *testing.T) {
	table := types.NewTable()
	userType := &types.Type{Name: "Point", Kind: types.Simple}
	require.NoError(t, table.Add(userType))

	typ, ok := table.At(types.NumSystemTypes)
	require.True(t, ok)
	require.Same(t, userType, typ)
}

func TestAtOutOfRange(t *testing.T) {
	table := types.NewTable()
	_, ok := table.At(-1)
	require.False(t, ok)
	_, ok = table.At(1000)
	require.False(t, ok)
}

func TestDumpVariants(t *testing.T) {
	any_ := &types.Type{Name: "any", Kind: types.Simple}
	simple := &types.Type{Name: "integer", Kind: types.Simple, Upper: []*types.Type{any_}}
	require.Contains(t, simple.Dump(), "SimpleType: integer")

	fn := &types.Type{Name: "@add", Kind: types.Function, Return: simple, Params: []*types.Type{simple, simple}}
	require.Contains(t, fn.Dump(), "FunctionType: @add")
	require.Equal(t, 2, fn.NumParams())

	union := &types.Type{Name: "@u", Kind: types.Union, Members: []*types.Type{simple, any_}}
	require.Contains(t, union.Dump(), "UnionType: @u")
}
