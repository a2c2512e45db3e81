package depm

import "pythoc/typing"

// Universe is the set of symbols defined in every translation unit: all
// front-end intrinsics are visible everywhere without being imported.
type Universe struct {
	// IntrinsicFuncs is a map of all intrinsic functions by name.
	IntrinsicFuncs map[string]*Symbol
}

// Names of the intrinsics emitted by the front end.
const (
	IntrinsicSizeof    = "sizeof"
	IntrinsicPtr       = "ptr"
	IntrinsicNullptr   = "nullptr"
	IntrinsicLinear    = "linear"
	IntrinsicConsume   = "consume"
	IntrinsicMove      = "move"
	IntrinsicAssume    = "assume"
	IntrinsicRefine    = "refine"
	IntrinsicDefer     = "defer"
	IntrinsicLabel     = "label"
	IntrinsicGoto      = "goto"
	IntrinsicGotoBegin = "goto_begin"
	IntrinsicGotoEnd   = "goto_end"
	IntrinsicCImport   = "cimport"
)

// NewUniverse creates a new universe populated with the intrinsic functions.
func NewUniverse() *Universe {
	u := &Universe{IntrinsicFuncs: make(map[string]*Symbol)}

	intrinsics := []struct {
		name string
		typ  *typing.FuncType
	}{
		{IntrinsicSizeof, &typing.FuncType{
			ReturnType:    &typing.IntType{Signed: false, Width: 64},
			IntrinsicName: IntrinsicSizeof,
		}},
		{IntrinsicPtr, &typing.FuncType{
			ReturnType:    &typing.PointerType{ElemType: typing.PrimVoid},
			IntrinsicName: IntrinsicPtr,
		}},
		{IntrinsicNullptr, &typing.FuncType{
			ReturnType:    &typing.PointerType{ElemType: typing.PrimVoid},
			IntrinsicName: IntrinsicNullptr,
		}},
		{IntrinsicLinear, &typing.FuncType{
			ReturnType:    &typing.LinearType{},
			IntrinsicName: IntrinsicLinear,
		}},
		{IntrinsicConsume, &typing.FuncType{
			Params:        []typing.DataType{&typing.LinearType{}},
			ReturnType:    typing.PrimVoid,
			IntrinsicName: IntrinsicConsume,
		}},
		{IntrinsicMove, &typing.FuncType{
			Params:        []typing.DataType{&typing.LinearType{}},
			ReturnType:    &typing.LinearType{},
			IntrinsicName: IntrinsicMove,
		}},
		{IntrinsicAssume, &typing.FuncType{
			Variadic:      true,
			ReturnType:    typing.PrimVoid,
			IntrinsicName: IntrinsicAssume,
		}},
		{IntrinsicRefine, &typing.FuncType{
			Variadic:      true,
			ReturnType:    typing.PrimVoid,
			IntrinsicName: IntrinsicRefine,
		}},
		{IntrinsicDefer, &typing.FuncType{
			Variadic:      true,
			ReturnType:    typing.PrimVoid,
			IntrinsicName: IntrinsicDefer,
		}},
		{IntrinsicLabel, &typing.FuncType{
			ReturnType:    typing.PrimVoid,
			IntrinsicName: IntrinsicLabel,
		}},
		{IntrinsicGoto, &typing.FuncType{
			ReturnType:    typing.PrimVoid,
			IntrinsicName: IntrinsicGoto,
		}},
		{IntrinsicGotoBegin, &typing.FuncType{
			ReturnType:    typing.PrimVoid,
			IntrinsicName: IntrinsicGotoBegin,
		}},
		{IntrinsicGotoEnd, &typing.FuncType{
			ReturnType:    typing.PrimVoid,
			IntrinsicName: IntrinsicGotoEnd,
		}},
		{IntrinsicCImport, &typing.FuncType{
			ReturnType:    typing.PrimVoid,
			IntrinsicName: IntrinsicCImport,
		}},
	}

	for _, in := range intrinsics {
		u.IntrinsicFuncs[in.name] = &Symbol{
			Name:    in.name,
			DefKind: DKBuiltin,
			Type:    in.typ,
		}
	}

	return u
}

// GetSymbol attempts to get a symbol with a specific name from the universe.
func (u *Universe) GetSymbol(name string) (*Symbol, bool) {
	sym, ok := u.IntrinsicFuncs[name]
	return sym, ok
}
