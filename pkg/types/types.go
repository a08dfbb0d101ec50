// Package types implements the VM's type model.
//
// A Type is a tagged value: every type has a name, a Kind, and payload
// that depends on the kind:
//
//   - Simple types carry zero or more "upper" (supertype) references.
//     Example: integer's upper type is number; number's is any.
//   - Function types carry a return-type reference and a vector of
//     parameter-type references.
//   - Union types carry a vector of member-type references.
//
// Nine system types are present in every module at fixed leading table
// indices: any, number, string, boolean, null, undefined, integer,
// decimal, void (see SystemNames and NewTable). Everything past index
// 8 is a user type read from the module's bytecode stream.
//
// Type references inside a Type (upper types, return/param types, union
// members) are always direct pointers into a Table once loading finishes
// - no name lookup happens once a module is built. During loading they
// pass through an intermediate by-name form (see pkg/bytecode's loader)
// before the loader's resolution pass rewrites them into real references.
package types

import "fmt"

// Kind discriminates the payload a Type carries.
type Kind byte

const (
	// Simple is a type with zero or more supertypes and no other payload.
	Simple Kind = iota + 1
	// Function is a type describing a callable's signature.
	Function
	// Union is a type describing a set of member types.
	Union
)

// String returns a human-readable name for a Kind, used in disassembly
// and in load-error messages.
func (k Kind) String() string {
	switch k {
	case Simple:
		return "simple"
	case Function:
		return "function"
	case Union:
		return "union"
	default:
		return "unknown"
	}
}

// Type is a single entry in a module's type table.
//
// Exactly one of the kind-specific fields below is meaningful, selected
// by Kind. Go has no tagged-union syntax, so instead of the C original's
// "base struct as first field" cast pattern (see types.h: SimpleType,
// FunctionType and UnionType all start with a Type field and get cast
// back and forth) we keep one struct with a Kind discriminator and
// kind-specific fields left zero when unused.
type Type struct {
	Name string
	Kind Kind

	// Upper holds the supertype references of a Simple type.
	Upper []*Type

	// Return and Params hold a Function type's signature.
	Return *Type
	Params []*Type

	// Members holds a Union type's member types.
	Members []*Type
}

// NumParams reports a Function type's parameter count, which is
// len(t.Params): the loader sizes Params from the stream's parameter
// count when it resolves the parameter types.
func (t *Type) NumParams() int {
	return len(t.Params)
}

// Dump renders a Type the way the original VM's per-kind dump functions
// did (dumpSimpleType, dumpFunctionType, dumpUnionType in playvm.c),
// collapsed into one method now that Kind replaces the C cast pattern.
func (t *Type) Dump() string {
	switch t.Kind {
	case Simple:
		names := make([]string, len(t.Upper))
		for i, u := range t.Upper {
			names[i] = u.Name
		}
		return fmt.Sprintf("SimpleType: %s, %d upperTypes:%v", t.Name, len(t.Upper), names)
	case Function:
		names := make([]string, len(t.Params))
		for i, p := range t.Params {
			names[i] = p.Name
		}
		retName := "?"
		if t.Return != nil {
			retName = t.Return.Name
		}
		return fmt.Sprintf("FunctionType: %s, returnType: %s, %d paramTypes:%v", t.Name, retName, len(t.Params), names)
	case Union:
		names := make([]string, len(t.Members))
		for i, m := range t.Members {
			names[i] = m.Name
		}
		return fmt.Sprintf("UnionType: %s, %d types:%v", t.Name, len(t.Members), names)
	default:
		return fmt.Sprintf("UnknownType: %s", t.Name)
	}
}

// SystemNames lists the nine predefined type names in their fixed table
// order. Every module's type table begins with these, regardless of what
// the bytecode stream declares.
var SystemNames = [...]string{
	"any", "number", "string", "boolean", "null", "undefined", "integer", "decimal", "void",
}

// NumSystemTypes is the count of predefined types prepended to every
// module's type table (spec system type indices 0..8).
const NumSystemTypes = len(SystemNames)

// NewSystemTypes builds the nine predefined types with their fixed upper
// type relationships: number, string and boolean have upper type any;
// integer and decimal have upper type number; any, null, undefined and
// void have no upper type. Returned in SystemNames order.
func NewSystemTypes() []*Type {
	any_ := &Type{Name: "any", Kind: Simple}
	number := &Type{Name: "number", Kind: Simple, Upper: []*Type{any_}}
	str := &Type{Name: "string", Kind: Simple, Upper: []*Type{any_}}
	boolean := &Type{Name: "boolean", Kind: Simple, Upper: []*Type{any_}}
	null := &Type{Name: "null", Kind: Simple}
	undefined := &Type{Name: "undefined", Kind: Simple}
	integer := &Type{Name: "integer", Kind: Simple, Upper: []*Type{number}}
	decimal := &Type{Name: "decimal", Kind: Simple, Upper: []*Type{number}}
	void := &Type{Name: "void", Kind: Simple}

	return []*Type{any_, number, str, boolean, null, undefined, integer, decimal, void}
}

// Table is a module's fully resolved type table: the nine system types
// followed by the module's user types, in load order. System type i
// lives at Table.Types[i]; user type i from the stream lives at
// Table.Types[i+NumSystemTypes] (spec §6 "System type indices").
type Table struct {
	Types []*Type
	byName map[string]*Type
}

// NewTable creates a Table pre-populated with the nine system types.
func NewTable() *Table {
	t := &Table{byName: make(map[string]*Type)}
	for _, sys := range NewSystemTypes() {
		t.Types = append(t.Types, sys)
		t.byName[sys.Name] = sys
	}
	return t
}

// Add appends a user type shell to the table and indexes it by name.
// Returns an error if the name is already present (system names are
// reserved and user names must be unique within a module).
func (t *Table) Add(typ *Type) error {
	if _, exists := t.byName[typ.Name]; exists {
		return fmt.Errorf("types: duplicate type name %q", typ.Name)
	}
	t.Types = append(t.Types, typ)
	t.byName[typ.Name] = typ
	return nil
}

// Lookup finds a type by name. This is the Go equivalent of the
// original's getType: a scan over every interned name, system and user
// alike, kept here as a map for O(1) lookup instead of playvm.c's O(n)
// linear scan over parallel typeNames/types arrays - a strengthening
// that doesn't change lookup semantics, since type names are unique.
func (t *Table) Lookup(name string) (*Type, bool) {
	typ, ok := t.byName[name]
	return typ, ok
}

// At returns the type at a resolved table index.
func (t *Table) At(index int) (*Type, bool) {
	if index < 0 || index >= len(t.Types) {
		return nil, false
	}
	return t.Types[index], true
}
