// Package bytecode defines the module format and opcode set the VM
// executes, and loads a binary bytecode stream into a fully resolved
// Module.
//
// Architecture:
//
// The VM is a stack machine over 32-bit signed integers. A bytecode
// stream for one function is a flat byte sequence; each instruction is a
// one-byte opcode optionally followed by one or two operand bytes (see
// Opcode.OperandBytes). There is no separate operand field the way
// teacher's own bytecode.Instruction carries one - operands here are
// encoded inline in the byte stream, matching the JVM-derived opcode
// values in spec.md §4.4, not teacher's SEND-style packed-operand
// design.
//
// Module format:
//
// A module stream is:
//
//	"types" u8:numTypes  Type*numTypes
//	"consts" u8:numConsts Const*numConsts
//
// where str is a u8 length followed by that many raw bytes (no
// terminator on the wire), and all counts are single unsigned bytes
// (max 255). See loader.go for the per-shape decoders.
package bytecode

// Opcode is a single bytecode instruction's operation.
type Opcode byte

// Opcode values, fixed by spec.md §4.4 to match a subset of the JVM
// instruction set. Values not listed in spec.md's opcode table (sadd,
// sldc, and the single-operand comparison/lcmp opcodes the original
// enum reserves but never wires up) are declared below as Reserved and
// are not implemented in the engine's step - encountering one at runtime is an
// unknown-opcode error like any other unassigned byte.
const (
	OpIconst0 Opcode = 0x03
	OpIconst1 Opcode = 0x04
	OpIconst2 Opcode = 0x05
	OpIconst3 Opcode = 0x06
	OpIconst4 Opcode = 0x07
	OpIconst5 Opcode = 0x08

	// OpSldc is reserved: string constant load. Not implemented (spec.md
	// §9 "Unexecuted opcodes").
	OpSldc Opcode = 0x13

	OpBipush Opcode = 0x10
	OpSipush Opcode = 0x11
	OpLdc    Opcode = 0x12

	OpIload  Opcode = 0x15
	OpIload0 Opcode = 0x1a
	OpIload1 Opcode = 0x1b
	OpIload2 Opcode = 0x1c
	OpIload3 Opcode = 0x1d

	OpIstore  Opcode = 0x36
	OpIstore0 Opcode = 0x3b
	OpIstore1 Opcode = 0x3c
	OpIstore2 Opcode = 0x3d
	OpIstore3 Opcode = 0x3e

	OpIadd Opcode = 0x60

	// OpSadd is reserved: string concatenation. Not implemented.
	OpSadd Opcode = 0x61

	OpIsub Opcode = 0x64
	OpImul Opcode = 0x68
	OpIdiv Opcode = 0x6c
	OpIinc Opcode = 0x84

	// OpLcmp, OpIflt, OpIfge, OpIfgt, OpIfle, OpIfIcmpeq and OpIfIcmpne
	// are present in the original enum (vm.h) but outside spec.md's
	// opcode table; reserved, not implemented.
	OpLcmp     Opcode = 0x94
	OpIfeq     Opcode = 0x99
	OpIfne     Opcode = 0x9a
	OpIflt     Opcode = 0x9b
	OpIfge     Opcode = 0x9c
	OpIfgt     Opcode = 0x9d
	OpIfle     Opcode = 0x9e
	OpIfIcmpeq Opcode = 0x9f
	OpIfIcmpne Opcode = 0xa0
	OpIfIcmplt Opcode = 0xa1
	OpIfIcmpge Opcode = 0xa2
	OpIfIcmpgt Opcode = 0xa3
	OpIfIcmple Opcode = 0xa4

	OpGoto Opcode = 0xa7

	OpIreturn Opcode = 0xac
	OpReturn  Opcode = 0xb1

	OpInvokeStatic Opcode = 0xb8
)

// operandBytes maps each implemented opcode to the number of operand
// bytes that follow it in the stream. Opcodes absent from this map take
// zero operand bytes.
var operandBytes = map[Opcode]int{
	OpBipush:       1,
	OpSipush:       2,
	OpLdc:          1,
	OpIload:        1,
	OpIstore:       1,
	OpIinc:         2,
	OpIfeq:         2,
	OpIfne:         2,
	OpIfIcmplt:     2,
	OpIfIcmpge:     2,
	OpIfIcmpgt:     2,
	OpIfIcmple:     2,
	OpGoto:         2,
	OpInvokeStatic: 2,
}

// OperandBytes reports how many bytes of operand data follow this
// opcode in a bytecode stream, for disassembly.
func (op Opcode) OperandBytes() int {
	return operandBytes[op]
}

// String returns a mnemonic for an opcode, used by the disassembler and
// in error messages. Matches the mnemonics spec.md §4.4 and
// original_source's vm.h enum names use.
func (op Opcode) String() string {
	switch op {
	case OpIconst0:
		return "iconst_0"
	case OpIconst1:
		return "iconst_1"
	case OpIconst2:
		return "iconst_2"
	case OpIconst3:
		return "iconst_3"
	case OpIconst4:
		return "iconst_4"
	case OpIconst5:
		return "iconst_5"
	case OpBipush:
		return "bipush"
	case OpSipush:
		return "sipush"
	case OpLdc:
		return "ldc"
	case OpSldc:
		return "sldc"
	case OpIload:
		return "iload"
	case OpIload0:
		return "iload_0"
	case OpIload1:
		return "iload_1"
	case OpIload2:
		return "iload_2"
	case OpIload3:
		return "iload_3"
	case OpIstore:
		return "istore"
	case OpIstore0:
		return "istore_0"
	case OpIstore1:
		return "istore_1"
	case OpIstore2:
		return "istore_2"
	case OpIstore3:
		return "istore_3"
	case OpIadd:
		return "iadd"
	case OpSadd:
		return "sadd"
	case OpIsub:
		return "isub"
	case OpImul:
		return "imul"
	case OpIdiv:
		return "idiv"
	case OpIinc:
		return "iinc"
	case OpLcmp:
		return "lcmp"
	case OpIfeq:
		return "ifeq"
	case OpIfne:
		return "ifne"
	case OpIflt:
		return "iflt"
	case OpIfge:
		return "ifge"
	case OpIfgt:
		return "ifgt"
	case OpIfle:
		return "ifle"
	case OpIfIcmpeq:
		return "if_icmpeq"
	case OpIfIcmpne:
		return "if_icmpne"
	case OpIfIcmplt:
		return "if_icmplt"
	case OpIfIcmpge:
		return "if_icmpge"
	case OpIfIcmpgt:
		return "if_icmpgt"
	case OpIfIcmple:
		return "if_icmple"
	case OpGoto:
		return "goto"
	case OpIreturn:
		return "ireturn"
	case OpReturn:
		return "return"
	case OpInvokeStatic:
		return "invokestatic"
	default:
		return "unknown"
	}
}
