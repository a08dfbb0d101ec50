package bytecode_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/gostack-vm/ivm/pkg/bytecode"
	"github.com/gostack-vm/ivm/pkg/symbol"
	"github.com/gostack-vm/ivm/pkg/types"
	"github.com/stretchr/testify/require"
)

// wstr writes a u8-length-prefixed string, matching the loader's str
// grammar production.
func wstr(buf *bytes.Buffer, s string) {
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
}

// buildModule assembles a minimal valid module stream: one function
// type for main (void, no params) and one function constant named
// main whose body is the given bytecode.
func buildModule(mainName string, mainCode []byte) []byte {
	var buf bytes.Buffer

	wstr(&buf, "types")
	buf.WriteByte(1) // numTypes
	buf.WriteByte(2) // kind = FunctionType
	wstr(&buf, "@mainFn")
	wstr(&buf, "void")
	buf.WriteByte(0) // nParams

	wstr(&buf, "consts")
	buf.WriteByte(1) // numConsts
	buf.WriteByte(3) // kind = FunctionConst
	wstr(&buf, mainName)
	wstr(&buf, "@mainFn")
	buf.WriteByte(5) // opStackSize (overridden by loader)
	buf.WriteByte(0) // numVars
	buf.WriteByte(byte(len(mainCode)))
	buf.Write(mainCode)

	return buf.Bytes()
}

func TestLoadBytesMinimalModule(t *testing.T) {
	code := []byte{0x10, 0x07, 0xb8, 0x00, 0x00, 0xb1} // bipush 7; invokestatic println; _return
	data := buildModule("main", code)

	mod, err := bytecode.LoadBytes(data)
	require.NoError(t, err)
	require.NotNil(t, mod.Main)
	require.Equal(t, "main", mod.Main.Name)
	require.Equal(t, 20, mod.Main.OpStackSize, "loader must override the declared opStackSize")
	require.Len(t, mod.Types.Types, 10) // 9 system types + @mainFn
	require.Len(t, mod.Consts, 4)       // 3 builtins + main

	println, err := mod.Const(bytecode.BuiltinPrintln)
	require.NoError(t, err)
	require.Equal(t, "println", println.Func.Name)
}

func TestLoadBytesMissingMainIsFatal(t *testing.T) {
	data := buildModule("other", []byte{0xb1})
	_, err := bytecode.LoadBytes(data)
	require.Error(t, err)

	var loadErr *bytecode.LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestLoadBytesUnknownTypeKindIsFatal(t *testing.T) {
	var buf bytes.Buffer
	wstr(&buf, "types")
	buf.WriteByte(1)
	buf.WriteByte(9) // unknown kind
	_, err := bytecode.LoadBytes(buf.Bytes())
	require.Error(t, err)
}

func TestLoadBytesUnresolvedTypeNameIsFatal(t *testing.T) {
	var buf bytes.Buffer
	wstr(&buf, "types")
	buf.WriteByte(1)
	buf.WriteByte(2) // FunctionType
	wstr(&buf, "@badFn")
	wstr(&buf, "does_not_exist")
	buf.WriteByte(0)
	wstr(&buf, "consts")
	buf.WriteByte(0)

	_, err := bytecode.LoadBytes(buf.Bytes())
	require.Error(t, err)
}

func TestLoadBytesTruncatedStreamIsFatal(t *testing.T) {
	data := buildModule("main", []byte{0xb1})
	truncated := data[:len(data)-3]
	_, err := bytecode.LoadBytes(truncated)
	require.Error(t, err)
}

// TestLoadBytesRoundTripIsStructurallyStable loads the same stream twice
// and requires the two resulting modules be structurally identical -
// the loader has no hidden state that makes two decodes of one stream
// diverge (spec.md §8's determinism property).
func TestLoadBytesRoundTripIsStructurallyStable(t *testing.T) {
	code := []byte{0x10, 0x07, 0xb8, 0x00, 0x00, 0xb1} // bipush 7; invokestatic println; _return
	data := buildModule("main", code)

	first, err := bytecode.LoadBytes(data)
	require.NoError(t, err)
	second, err := bytecode.LoadBytes(data)
	require.NoError(t, err)

	opts := cmp.Options{
		cmpopts.IgnoreUnexported(types.Table{}),
		cmpopts.EquateEmpty(),
	}
	if diff := cmp.Diff(first.Types, second.Types, opts...); diff != "" {
		t.Errorf("type table differs between identical loads (-first +second):\n%s", diff)
	}

	constOpts := append(opts, cmp.Comparer(func(a, b *symbol.Function) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Name == b.Name &&
			a.OpStackSize == b.OpStackSize &&
			a.FrameSize == b.FrameSize &&
			bytes.Equal(a.ByteCode, b.ByteCode) &&
			len(a.Vars) == len(b.Vars)
	}))
	if diff := cmp.Diff(first.Consts, second.Consts, constOpts...); diff != "" {
		t.Errorf("constant pool differs between identical loads (-first +second):\n%s", diff)
	}
}

func TestLoadBytesUnknownConstKindIsFatal(t *testing.T) {
	var buf bytes.Buffer
	wstr(&buf, "types")
	buf.WriteByte(0)
	wstr(&buf, "consts")
	buf.WriteByte(1)
	buf.WriteByte(9) // unknown const kind
	_, err := bytecode.LoadBytes(buf.Bytes())
	require.Error(t, err)
}
