package bytecode_test

import (
	"bytes"
	"testing"

	"github.com/gostack-vm/ivm/pkg/bytecode"
	"github.com/stretchr/testify/require"
)

func TestDisassembleListsTypesConstsAndCode(t *testing.T) {
	code := []byte{0x10, 0x07, 0xb8, 0x00, 0x00, 0xb1}
	data := buildModule("main", code)

	mod, err := bytecode.LoadBytes(data)
	require.NoError(t, err)

	var out bytes.Buffer
	bytecode.Disassemble(mod, &out, false)

	listing := out.String()
	require.Contains(t, listing, "types:")
	require.Contains(t, listing, "consts:")
	require.Contains(t, listing, "main")
	require.Contains(t, listing, "bipush 7")
	require.Contains(t, listing, "invokestatic")
	require.Contains(t, listing, "return")
}
