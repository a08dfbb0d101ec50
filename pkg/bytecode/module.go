package bytecode

import (
	"fmt"

	"github.com/gostack-vm/ivm/pkg/symbol"
	"github.com/gostack-vm/ivm/pkg/types"
)

// ConstKind discriminates a Const's payload, mirroring original_source's
// _ConstKind (NumberC, StringC, FunctionC).
type ConstKind byte

const (
	// ConstNumber holds an integer literal.
	ConstNumber ConstKind = iota + 1
	// ConstString holds a string literal. String constants exist in the
	// pool (spec.md §1) but are never produced onto the operand stack by
	// the core engine - sldc is reserved.
	ConstString
	// ConstFunction holds a reference to a function symbol.
	ConstFunction
)

// Const is one entry of a module's constant pool.
type Const struct {
	Kind ConstKind

	Number int32             // valid when Kind == ConstNumber
	String string            // valid when Kind == ConstString
	Func   *symbol.Function  // valid when Kind == ConstFunction
}

// Built-in function constants occupy these fixed pool indices in every
// module, ahead of any user constants (spec.md §4.1 step 3, §6 "Built-in
// function indices").
const (
	BuiltinPrintln          = 0
	BuiltinTick             = 1
	BuiltinIntegerToString  = 2
	NumBuiltinFunctions     = 3
)

// BuiltinNames lists the three built-in function names in their fixed
// pool order, matching original_source's addSystemFunctions.
var BuiltinNames = [NumBuiltinFunctions]string{
	BuiltinPrintln:         "println",
	BuiltinTick:            "tick",
	BuiltinIntegerToString: "integer_to_string",
}

// Module is the fully resolved program: a constant pool (with the three
// built-ins prepended), a type table (with the nine system types
// prepended), and the entry function symbol. Every index and type
// reference inside a Module has been resolved by the loader; no name
// lookups happen once a Module exists (spec.md §3 "Module").
type Module struct {
	Types  *types.Table
	Consts []*Const
	Main   *symbol.Function
}

// Const returns the constant at a resolved pool index, or an error if
// the index is out of range. Used by the engine for ldc/invokestatic
// operands.
func (m *Module) Const(index int) (*Const, error) {
	if index < 0 || index >= len(m.Consts) {
		return nil, fmt.Errorf("bytecode: constant index %d out of range [0,%d)", index, len(m.Consts))
	}
	return m.Consts[index], nil
}
