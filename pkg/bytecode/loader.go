package bytecode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gostack-vm/ivm/pkg/symbol"
	"github.com/gostack-vm/ivm/pkg/types"
	"github.com/sirupsen/logrus"
)

// LoadError reports a fatal problem decoding a bytecode stream: unknown
// type kind, unknown constant kind, an unresolved type name reference, a
// missing main function, or a stream that ends before a field it
// declared is fully present. Every failure spec.md §4.1 names surfaces
// as a *LoadError.
type LoadError struct {
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bytecode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("bytecode: %s", e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

func loadErrorf(reason string, err error) *LoadError {
	return &LoadError{Reason: reason, Err: err}
}

// reader walks a bytecode stream, tracking position for diagnostics.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) byte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// str reads a u8-length-prefixed string: a length byte followed by that
// many raw bytes, no terminator on the wire (spec.md §4.1 grammar).
func (r *reader) str() (string, error) {
	n, err := r.byte()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.data) {
		return "", io.ErrUnexpectedEOF
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// marker reads and discards a string header such as "types" or
// "consts": present in the stream as a marker, not as content consumed
// by later decoding (spec.md §4.1 "The two string headers ... are read
// and discarded").
func (r *reader) marker() error {
	_, err := r.str()
	return err
}

// rawSimple/rawFunction/rawUnion stash a type's reference names until
// the second resolution pass rewrites them into direct *types.Type
// pointers (spec.md §4.1 step 2). This is the Go equivalent of
// original_source's SimpleTypeInfo/FunctionTypeInfo/UnionTypeInfo side
// tables.
type rawSimple struct {
	typ        *types.Type
	upperNames []string
}

type rawFunction struct {
	typ         *types.Type
	returnName  string
	paramNames  []string
}

type rawUnion struct {
	typ         *types.Type
	memberNames []string
}

// Load decodes a bytecode stream into a fully resolved Module. r is
// typically a file opened by the entry driver.
func Load(r io.Reader) (*Module, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, loadErrorf("reading bytecode stream", err)
	}
	return LoadBytes(data)
}

// LoadBytes decodes a bytecode stream already held in memory.
func LoadBytes(data []byte) (*Module, error) {
	rd := &reader{data: data}
	table := types.NewTable()

	if err := rd.marker(); err != nil {
		return nil, loadErrorf("reading \"types\" marker", err)
	}
	numTypes, err := rd.byte()
	if err != nil {
		return nil, loadErrorf("reading type count", err)
	}

	var simples []rawSimple
	var functions []rawFunction
	var unions []rawUnion

	for i := 0; i < int(numTypes); i++ {
		kind, err := rd.byte()
		if err != nil {
			return nil, loadErrorf("reading type kind", err)
		}
		switch kind {
		case 1:
			s, err := readSimpleType(rd)
			if err != nil {
				return nil, err
			}
			if err := table.Add(s.typ); err != nil {
				return nil, loadErrorf("adding simple type", err)
			}
			simples = append(simples, s)
		case 2:
			f, err := readFunctionTypeDecl(rd)
			if err != nil {
				return nil, err
			}
			if err := table.Add(f.typ); err != nil {
				return nil, loadErrorf("adding function type", err)
			}
			functions = append(functions, f)
		case 3:
			u, err := readUnionType(rd)
			if err != nil {
				return nil, err
			}
			if err := table.Add(u.typ); err != nil {
				return nil, loadErrorf("adding union type", err)
			}
			unions = append(unions, u)
		default:
			return nil, loadErrorf(fmt.Sprintf("unknown type kind %d", kind), nil)
		}
	}

	if err := resolveTypeRefs(table, simples, functions, unions); err != nil {
		return nil, err
	}

	if err := rd.marker(); err != nil {
		return nil, loadErrorf("reading \"consts\" marker", err)
	}
	numConsts, err := rd.byte()
	if err != nil {
		return nil, loadErrorf("reading const count", err)
	}

	consts := make([]*Const, 0, NumBuiltinFunctions+int(numConsts))
	consts = append(consts, BuiltinConsts(table)...)

	var main *symbol.Function
	for i := 0; i < int(numConsts); i++ {
		kind, err := rd.byte()
		if err != nil {
			return nil, loadErrorf("reading const kind", err)
		}
		switch kind {
		case 1:
			v, err := rd.byte()
			if err != nil {
				return nil, loadErrorf("reading number const", err)
			}
			consts = append(consts, &Const{Kind: ConstNumber, Number: int32(v)})
		case 2:
			s, err := rd.str()
			if err != nil {
				return nil, loadErrorf("reading string const", err)
			}
			consts = append(consts, &Const{Kind: ConstString, String: s})
		case 3:
			fn, err := readFunctionSymbol(rd, table)
			if err != nil {
				return nil, err
			}
			consts = append(consts, &Const{Kind: ConstFunction, Func: fn})
			if fn.Name == "main" {
				main = fn
			}
		default:
			return nil, loadErrorf(fmt.Sprintf("unknown const kind %d", kind), nil)
		}
	}

	if main == nil {
		return nil, loadErrorf("module has no \"main\" function", nil)
	}

	logrus.WithFields(logrus.Fields{
		"types":  len(table.Types),
		"consts": len(consts),
	}).Debug("bytecode: module loaded")

	return &Module{Types: table, Consts: consts, Main: main}, nil
}

func readSimpleType(rd *reader) (rawSimple, error) {
	name, err := rd.str()
	if err != nil {
		return rawSimple{}, loadErrorf("reading simple type name", err)
	}
	n, err := rd.byte()
	if err != nil {
		return rawSimple{}, loadErrorf("reading simple type upper count", err)
	}
	upper := make([]string, n)
	for i := range upper {
		upper[i], err = rd.str()
		if err != nil {
			return rawSimple{}, loadErrorf("reading simple type upper name", err)
		}
	}
	return rawSimple{typ: &types.Type{Name: name, Kind: types.Simple}, upperNames: upper}, nil
}

func readFunctionTypeDecl(rd *reader) (rawFunction, error) {
	name, err := rd.str()
	if err != nil {
		return rawFunction{}, loadErrorf("reading function type name", err)
	}
	retName, err := rd.str()
	if err != nil {
		return rawFunction{}, loadErrorf("reading function type return name", err)
	}
	n, err := rd.byte()
	if err != nil {
		return rawFunction{}, loadErrorf("reading function type param count", err)
	}
	params := make([]string, n)
	for i := range params {
		params[i], err = rd.str()
		if err != nil {
			return rawFunction{}, loadErrorf("reading function type param name", err)
		}
	}
	return rawFunction{typ: &types.Type{Name: name, Kind: types.Function}, returnName: retName, paramNames: params}, nil
}

func readUnionType(rd *reader) (rawUnion, error) {
	name, err := rd.str()
	if err != nil {
		return rawUnion{}, loadErrorf("reading union type name", err)
	}
	n, err := rd.byte()
	if err != nil {
		return rawUnion{}, loadErrorf("reading union type member count", err)
	}
	members := make([]string, n)
	for i := range members {
		members[i], err = rd.str()
		if err != nil {
			return rawUnion{}, loadErrorf("reading union type member name", err)
		}
	}
	return rawUnion{typ: &types.Type{Name: name, Kind: types.Union}, memberNames: members}, nil
}

// resolveTypeRefs is the loader's second pass (spec.md §4.1 step 2):
// rewrite every stashed raw name into a direct type reference. After
// this runs, no stashed name strings remain reachable from any Type.
func resolveTypeRefs(table *types.Table, simples []rawSimple, functions []rawFunction, unions []rawUnion) error {
	lookup := func(name string) (*types.Type, error) {
		t, ok := table.Lookup(name)
		if !ok {
			return nil, loadErrorf(fmt.Sprintf("unresolved type name %q", name), nil)
		}
		return t, nil
	}

	for _, s := range simples {
		upper := make([]*types.Type, len(s.upperNames))
		for i, n := range s.upperNames {
			t, err := lookup(n)
			if err != nil {
				return err
			}
			upper[i] = t
		}
		s.typ.Upper = upper
	}
	for _, f := range functions {
		ret, err := lookup(f.returnName)
		if err != nil {
			return err
		}
		f.typ.Return = ret
		params := make([]*types.Type, len(f.paramNames))
		for i, n := range f.paramNames {
			t, err := lookup(n)
			if err != nil {
				return err
			}
			params[i] = t
		}
		f.typ.Params = params
	}
	for _, u := range unions {
		members := make([]*types.Type, len(u.memberNames))
		for i, n := range u.memberNames {
			t, err := lookup(n)
			if err != nil {
				return err
			}
			members[i] = t
		}
		u.typ.Members = members
	}
	return nil
}

func readVarSymbol(rd *reader, table *types.Table) (*symbol.Var, error) {
	name, err := rd.str()
	if err != nil {
		return nil, loadErrorf("reading var name", err)
	}
	typeName, err := rd.str()
	if err != nil {
		return nil, loadErrorf("reading var type name", err)
	}
	typ, ok := table.Lookup(typeName)
	if !ok {
		return nil, loadErrorf(fmt.Sprintf("unresolved var type name %q", typeName), nil)
	}
	return &symbol.Var{Name: name, Type: typ}, nil
}

// fixedOpStackSize is the operand-stack capacity every function symbol
// is given, regardless of what the stream declares (spec.md §4.1 step
// 4, §6 "Operand-stack capacity", §9 "Fixed operand-stack capacity
// override").
const fixedOpStackSize = 20

func readFunctionSymbol(rd *reader, table *types.Table) (*symbol.Function, error) {
	name, err := rd.str()
	if err != nil {
		return nil, loadErrorf("reading function name", err)
	}
	typeName, err := rd.str()
	if err != nil {
		return nil, loadErrorf("reading function type name", err)
	}
	typ, ok := table.Lookup(typeName)
	if !ok {
		return nil, loadErrorf(fmt.Sprintf("unresolved function type name %q", typeName), nil)
	}

	// The stream's declared opStackSize is read (so the cursor advances
	// correctly) and then discarded in favor of the fixed override.
	if _, err := rd.byte(); err != nil {
		return nil, loadErrorf("reading function opStackSize", err)
	}

	numVars, err := rd.byte()
	if err != nil {
		return nil, loadErrorf("reading function var count", err)
	}
	vars := make([]*symbol.Var, numVars)
	for i := range vars {
		vars[i], err = readVarSymbol(rd, table)
		if err != nil {
			return nil, err
		}
	}

	numByteCodes, err := rd.byte()
	if err != nil {
		return nil, loadErrorf("reading function bytecode length", err)
	}
	var code []byte
	if numByteCodes > 0 {
		if rd.pos+int(numByteCodes) > len(rd.data) {
			return nil, loadErrorf("reading function bytecode body", io.ErrUnexpectedEOF)
		}
		code = bytes.Clone(rd.data[rd.pos : rd.pos+int(numByteCodes)])
		rd.pos += int(numByteCodes)
	}

	fn := &symbol.Function{
		Name:        name,
		Type:        typ,
		Vars:        vars,
		OpStackSize: fixedOpStackSize,
		ByteCode:    code,
	}
	fn.ComputeFrameSize()
	return fn, nil
}

// BuiltinConsts returns the three built-in function constants that
// occupy pool slots {0,1,2} in every module, in order: println, tick,
// integer_to_string (spec.md §4.1 step 3, §6). Their types are built
// against the already-populated system type table; they carry no
// bytecode, marking them as built-ins to the engine.
func BuiltinConsts(table *types.Table) []*Const {
	integer, _ := table.Lookup("integer")
	str, _ := table.Lookup("string")
	void, _ := table.Lookup("void")

	println := &symbol.Function{
		Name: "println",
		Type: &types.Type{Name: "@println", Kind: types.Function, Return: void, Params: []*types.Type{integer}},
		Vars: []*symbol.Var{{Name: "a", Type: integer}},
	}
	tick := &symbol.Function{
		Name: "tick",
		Type: &types.Type{Name: "@tick", Kind: types.Function, Return: integer},
	}
	integerToString := &symbol.Function{
		Name: "integer_to_string",
		Type: &types.Type{Name: "@integer_to_string", Kind: types.Function, Return: str, Params: []*types.Type{integer}},
		Vars: []*symbol.Var{{Name: "num", Type: integer}},
	}

	return []*Const{
		{Kind: ConstFunction, Func: println},
		{Kind: ConstFunction, Func: tick},
		{Kind: ConstFunction, Func: integerToString},
	}
}
