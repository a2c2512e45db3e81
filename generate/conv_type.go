package generate

import (
	"pythoc/report"
	"pythoc/typing"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// convType maps a PythoC type to its LLVM representation.  Linear markers are
// zero-width and erase to an empty struct; refined wrappers erase to their
// base representation.
func (g *Generator) convType(typ typing.DataType) types.Type {
	switch v := typing.InnerType(typ).(type) {
	case typing.PrimType:
		if v == typing.PrimBool {
			return types.I1
		}

		return types.Void
	case *typing.IntType:
		return types.NewInt(uint64(v.Width))
	case *typing.FloatType:
		return convFloatType(v)
	case *typing.PointerType:
		elem := g.convType(v.ElemType)
		if types.Equal(elem, types.Void) {
			elem = types.I8
		}

		return types.NewPointer(elem)
	case *typing.ArrayType:
		llTyp := g.convType(v.ElemType)
		for i := len(v.Dims) - 1; i >= 0; i-- {
			llTyp = types.NewArray(uint64(v.Dims[i]), llTyp)
		}

		return llTyp
	case *typing.StructType:
		return g.convStructType(v)
	case *typing.UnionType:
		return g.convUnionType(v)
	case *typing.EnumType:
		return g.convEnumType(v)
	case *typing.FuncType:
		params := make([]types.Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = g.convType(p)
		}

		ft := types.NewFunc(g.convType(v.ReturnType), params...)
		ft.Variadic = v.Variadic
		return types.NewPointer(ft)
	case *typing.LinearType:
		return types.NewStruct()
	case *typing.RefinedType:
		return g.convType(v.Base)
	}

	report.ReportICE("cannot lower type `%s`", typ.Repr())
	return nil
}

func convFloatType(ft *typing.FloatType) types.Type {
	switch ft.Kind {
	case typing.F16:
		return types.Half
	case typing.BF16:
		return types.Half
	case typing.F32:
		return types.Float
	case typing.F64:
		return types.Double
	default:
		return types.FP128
	}
}

func (g *Generator) convStructType(st *typing.StructType) types.Type {
	if st.Name != "" {
		if cached, ok := g.globalTypes[st.Name]; ok {
			return cached
		}
	}

	fields := make([]types.Type, len(st.Fields))
	for i, f := range st.Fields {
		fields[i] = g.convType(f.Type)
	}

	llTyp := types.NewStruct(fields...)
	if st.Name != "" {
		named := g.mod.NewTypeDef(st.Name, llTyp)
		g.globalTypes[st.Name] = named
		return named
	}

	return llTyp
}

// convUnionType lowers an untagged union to a byte blob sized to its largest
// field, matching the fall-through write semantics of the target backend.
func (g *Generator) convUnionType(ut *typing.UnionType) types.Type {
	if cached, ok := g.globalTypes[ut.Name]; ok && ut.Name != "" {
		return cached
	}

	size := 0
	for _, f := range ut.Fields {
		if fs := sizeOf(f.Type); fs > size {
			size = fs
		}
	}

	llTyp := types.NewStruct(types.NewArray(uint64(size), types.I8))
	if ut.Name != "" {
		named := g.mod.NewTypeDef(ut.Name, llTyp)
		g.globalTypes[ut.Name] = named
		return named
	}

	return llTyp
}

// convEnumType lowers a tagged enum to {tag, payload bytes}.
func (g *Generator) convEnumType(et *typing.EnumType) types.Type {
	if cached, ok := g.globalTypes[et.Name]; ok {
		return cached
	}

	payloadSize := 0
	for _, variant := range et.Variants {
		if variant.Payload != nil {
			if ps := sizeOf(variant.Payload); ps > payloadSize {
				payloadSize = ps
			}
		}
	}

	var llTyp types.Type
	if payloadSize == 0 {
		llTyp = types.NewStruct(types.NewInt(uint64(et.TagType.Width)))
	} else {
		llTyp = types.NewStruct(
			types.NewInt(uint64(et.TagType.Width)),
			types.NewArray(uint64(payloadSize), types.I8),
		)
	}

	named := g.mod.NewTypeDef(et.Name, llTyp)
	g.globalTypes[et.Name] = named
	return named
}

// -----------------------------------------------------------------------------

// sizeOf computes an alignment-naive byte size for payload and union blob
// sizing.  Precise layout belongs to the target; only relative sizes matter
// here.
func sizeOf(typ typing.DataType) int {
	switch v := typing.InnerType(typ).(type) {
	case typing.PrimType:
		if v == typing.PrimBool {
			return 1
		}

		return 0
	case *typing.IntType:
		return v.Width / 8
	case *typing.FloatType:
		switch v.Kind {
		case typing.F16, typing.BF16:
			return 2
		case typing.F32:
			return 4
		case typing.F64:
			return 8
		default:
			return 16
		}
	case *typing.PointerType, *typing.FuncType:
		return 8
	case *typing.ArrayType:
		return sizeOf(v.ElemType) * v.TotalLen()
	case *typing.StructType:
		total := 0
		for _, f := range v.Fields {
			total += sizeOf(f.Type)
		}

		return total
	case *typing.UnionType:
		size := 0
		for _, f := range v.Fields {
			if fs := sizeOf(f.Type); fs > size {
				size = fs
			}
		}

		return size
	case *typing.EnumType:
		payload := 0
		for _, variant := range v.Variants {
			if variant.Payload != nil {
				if ps := sizeOf(variant.Payload); ps > payload {
					payload = ps
				}
			}
		}

		return v.TagType.Width/8 + payload
	case *typing.LinearType:
		return 0
	case *typing.RefinedType:
		return sizeOf(v.Base)
	}

	return 0
}

// zeroValue produces the zero constant of an LLVM type.
func zeroValue(typ types.Type) value.Value {
	switch t := typ.(type) {
	case *types.IntType:
		return constant.NewInt(t, 0)
	case *types.FloatType:
		return constant.NewFloat(t, 0)
	case *types.PointerType:
		return constant.NewNull(t)
	default:
		return constant.NewZeroInitializer(typ)
	}
}
