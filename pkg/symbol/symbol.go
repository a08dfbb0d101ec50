// Package symbol implements the VM's variable and function symbol model.
//
// A symbol binds a name to a type. Variable symbols are used for a
// function's locals; function symbols additionally own the function's
// bytecode and the sizing metadata the arena allocator needs to build
// one activation record per call.
//
// Grounded on original_source's symbol.h (_Symbol / _VarSymbol /
// _FunctionSymbol), reshaped the same way pkg/types reshapes types.h:
// Go structs instead of the "base struct as first field" cast idiom.
package symbol

import "github.com/gostack-vm/ivm/pkg/types"

// Var is a local variable symbol: a name paired with a resolved type.
type Var struct {
	Name string
	Type *types.Type
}

// Function is a function symbol. A Function with zero bytecode length
// denotes a built-in whose behavior is supplied by the execution engine
// rather than by interpreting bytecode (see spec.md §4.4 "Built-ins").
type Function struct {
	Name string
	Type *types.Type // Kind == types.Function

	Vars []*Var // local variable symbols, in slot order

	// OpStackSize is the operand-stack capacity recorded for this
	// function. The loader always overrides whatever the stream declares
	// to 20, pkg/bytecode's fixedOpStackSize (spec.md §4.1 step 4, §6) - kept as a field
	// here (rather than hardcoding the constant at every call site) so
	// tests can observe the override took effect.
	OpStackSize int

	ByteCode []byte // nil/empty => built-in, serviced by the engine

	// FrameSize is the precomputed arena allocation size for one call to
	// this function: one word for the return-index header, one word per
	// local, one word for the operand-stack top header, one word per
	// operand-stack slot. Computed once at load time (see Function.
	// ComputeFrameSize) because it never changes after loading and the
	// arena allocator needs it on every call.
	FrameSize int
}

// NumLocals reports the function's local variable count (its parameters
// occupy the first NumParams of these slots, per the call/return
// protocol in spec.md §4.4).
func (f *Function) NumLocals() int {
	return len(f.Vars)
}

// NumParams reports the function's parameter count, read off its
// function type.
func (f *Function) NumParams() int {
	if f.Type == nil {
		return 0
	}
	return f.Type.NumParams()
}

// IsBuiltin reports whether this symbol has no bytecode of its own and
// must be serviced directly by the execution engine.
func (f *Function) IsBuiltin() bool {
	return len(f.ByteCode) == 0
}

// WordSize is the byte width of one VM_NUMBER / frame slot, matching the
// 32-bit operand word used throughout pkg/vm (spec.md §3 "Operand
// value", §6 "Operand width").
const WordSize = 4

// HeaderWords is the word count reserved for each of the two "header"
// regions spec.md's frame layout names: the frame header (which holds
// the return-instruction index) and the operand-stack header (which
// holds the stack's top-of-stack index). Both are one word.
const HeaderWords = 1

// ComputeFrameSize fills in FrameSize from NumLocals and OpStackSize,
// following spec.md §4.3's layout: frame header + locals + operand-stack
// header + operand-stack backing, each word WordSize bytes. Called once
// per function by the loader after OpStackSize has been set to its
// fixed value.
func (f *Function) ComputeFrameSize() {
	words := HeaderWords + f.NumLocals() + HeaderWords + f.OpStackSize
	f.FrameSize = words * WordSize
}
