package bytecode

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// Disassemble writes a human-readable listing of every function in mod
// to w: its type table, its constant pool, and each function constant's
// decoded bytecode. When useColor is true, mnemonics and pool indices
// are highlighted - intended for a terminal, not for diffing output.
func Disassemble(mod *Module, w io.Writer, useColor bool) {
	mnemonic := color.New(color.FgCyan)
	index := color.New(color.FgYellow)
	header := color.New(color.FgGreen, color.Bold)
	if !useColor {
		mnemonic.DisableColor()
		index.DisableColor()
		header.DisableColor()
	}

	header.Fprintln(w, "types:")
	for i, t := range mod.Types.Types {
		fmt.Fprintf(w, "  %s %s\n", index.Sprintf("[%d]", i), t.Dump())
	}

	header.Fprintln(w, "consts:")
	for i, c := range mod.Consts {
		switch c.Kind {
		case ConstNumber:
			fmt.Fprintf(w, "  %s number %d\n", index.Sprintf("[%d]", i), c.Number)
		case ConstString:
			fmt.Fprintf(w, "  %s string %q\n", index.Sprintf("[%d]", i), c.String)
		case ConstFunction:
			size := humanize.Bytes(uint64(len(c.Func.ByteCode)))
			fmt.Fprintf(w, "  %s function %s (%s, %d locals, frame %d bytes)\n",
				index.Sprintf("[%d]", i), c.Func.Name, size, c.Func.NumLocals(), c.Func.FrameSize)
			disassembleFunction(w, c.Func.ByteCode, mnemonic)
		}
	}
}

func disassembleFunction(w io.Writer, code []byte, mnemonic *color.Color) {
	for ip := 0; ip < len(code); {
		op := Opcode(code[ip])
		n := op.OperandBytes()
		operands := ""
		switch n {
		case 1:
			operands = fmt.Sprintf(" %d", code[ip+1])
		case 2:
			operands = fmt.Sprintf(" %d", int(code[ip+1])*256+int(code[ip+2]))
		}
		fmt.Fprintf(w, "    %04d  %s%s\n", ip, mnemonic.Sprint(op.String()), operands)
		ip += 1 + n
	}
}
