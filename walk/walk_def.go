package walk

import (
	"pythoc/ast"
	"pythoc/report"
	"pythoc/typing"
)

// WalkTypeDef translates a class-based type declaration into a type record
// and installs it in the arena.  The handle is declared before the fields
// resolve so that self-referential declarations (an enum variant whose
// payload points back at the enum, a struct holding a pointer to itself)
// resolve through the arena instead of embedding themselves.
func (w *Walker) WalkTypeDef(cd *ast.ClassDef) []*report.CompileError {
	w.errors = nil

	handle := w.Arena.Declare(cd.Name)

	var def typing.DataType
	switch {
	case cd.HasAnnotation("enum"):
		def = w.walkEnumDef(cd)
	case cd.HasAnnotation("union"):
		def = w.walkUnionDef(cd)
	default:
		def = w.walkStructDef(cd)
	}

	if def != nil {
		w.Arena.Define(handle, def)
	}

	return w.errors
}

func (w *Walker) walkStructDef(cd *ast.ClassDef) typing.DataType {
	fields := make([]typing.Field, 0, len(cd.Fields))

	for _, cf := range cd.Fields {
		ft, ok := w.resolveTypeExpr(cf.Annot)
		if !ok {
			return nil
		}

		fields = append(fields, typing.Field{Name: cf.Name, Type: ft})
	}

	return &typing.StructType{Name: cd.Name, Fields: fields}
}

func (w *Walker) walkUnionDef(cd *ast.ClassDef) typing.DataType {
	fields := make([]typing.Field, 0, len(cd.Fields))

	for _, cf := range cd.Fields {
		ft, ok := w.resolveTypeExpr(cf.Annot)
		if !ok {
			return nil
		}

		fields = append(fields, typing.Field{Name: cf.Name, Type: ft})
	}

	return &typing.UnionType{Name: cd.Name, Fields: fields}
}

func (w *Walker) walkEnumDef(cd *ast.ClassDef) typing.DataType {
	tagType := &typing.IntType{Signed: true, Width: 32}
	if tagName, ok := cd.Annotations()["enum"]; ok && tagName != "" {
		if prim, found := primTypeNames[tagName]; found {
			if it, isInt := prim.(*typing.IntType); isInt {
				tagType = it
			} else {
				w.errorf(report.TypeShapeInvalid, cd.Position(),
					"enum tag type must be an integer type, not `%s`", tagName)
			}
		}
	}

	variants := make([]typing.EnumVariant, 0, len(cd.Fields))
	nextTag := int64(0)

	for _, cf := range cd.Fields {
		// A `: None` annotation marks a payload-less variant.
		payload, ok := w.resolveTypeExpr(cf.Annot)
		if !ok {
			return nil
		}

		tag := nextTag
		if cf.Default != nil {
			if constant, isConst := cf.Default.(*ast.Constant); isConst {
				if explicit, isInt := constant.Value.(int64); isInt {
					tag = explicit
				}
			}
		}
		nextTag = tag + 1

		variants = append(variants, typing.EnumVariant{
			Name:    cf.Name,
			Tag:     tag,
			Payload: payload,
		})
	}

	et := &typing.EnumType{Name: cd.Name, TagType: tagType, Variants: variants}
	if err := et.Validate(); err != nil {
		w.errorf(report.TypeShapeInvalid, cd.Position(), "%s", err.Error())
		return nil
	}

	return et
}
