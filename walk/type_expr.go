package walk

import (
	"pythoc/ast"
	"pythoc/depm"
	"pythoc/report"
	"pythoc/typing"
)

// primTypeNames maps the primitive type names of the host surface to their
// type records.
var primTypeNames = map[string]typing.DataType{
	"i8":   &typing.IntType{Signed: true, Width: 8},
	"i16":  &typing.IntType{Signed: true, Width: 16},
	"i32":  &typing.IntType{Signed: true, Width: 32},
	"i64":  &typing.IntType{Signed: true, Width: 64},
	"u8":   &typing.IntType{Signed: false, Width: 8},
	"u16":  &typing.IntType{Signed: false, Width: 16},
	"u32":  &typing.IntType{Signed: false, Width: 32},
	"u64":  &typing.IntType{Signed: false, Width: 64},
	"f16":  &typing.FloatType{Kind: typing.F16},
	"bf16": &typing.FloatType{Kind: typing.BF16},
	"f32":  &typing.FloatType{Kind: typing.F32},
	"f64":  &typing.FloatType{Kind: typing.F64},
	"f128": &typing.FloatType{Kind: typing.F128},
	"bool": typing.PrimBool,
	"void": typing.PrimVoid,
}

// resolveTypeExpr resolves a type annotation expression into a type record.
// Supported forms: primitive names, declared type names, `linear`,
// `ptr[T]`, `array[T, d...]`, `refined[...]`, and `None` for payload-less
// enum variants.  Anonymous struct (tuple) type expressions are not accepted.
func (w *Walker) resolveTypeExpr(expr ast.Expr) (typing.DataType, bool) {
	if expr == nil {
		w.errorf(report.TypeShapeInvalid, nil, "missing type annotation")
		return nil, false
	}

	switch v := expr.(type) {
	case *ast.Name:
		if prim, ok := primTypeNames[v.Id]; ok {
			return prim, true
		}

		if v.Id == "linear" {
			return &typing.LinearType{}, true
		}

		if h, ok := w.Arena.Lookup(v.Id); ok {
			return &typing.OpaqueType{Name: v.Id, Handle: h, Arena: w.Arena}, true
		}

		if sym, ok := w.lookup(v.Id); ok && sym.DefKind == depm.DKType {
			return sym.Type, true
		}

		w.errorf(report.TypeShapeInvalid, v.Pos, "unknown type `%s`", v.Id)
		return nil, false
	case *ast.Subscript:
		return w.resolveTypeSubscript(v)
	case *ast.Constant:
		// `None` annotates payload-less enum variants.
		if v.Value == nil {
			return nil, true
		}
	}

	w.errorf(report.TypeShapeInvalid, expr.Position(), "invalid type expression")
	return nil, false
}

// resolveTypeSubscript handles subscripted type constructors.
func (w *Walker) resolveTypeSubscript(sub *ast.Subscript) (typing.DataType, bool) {
	head, ok := sub.Value.(*ast.Name)
	if !ok {
		w.errorf(report.TypeShapeInvalid, sub.Pos, "invalid type constructor")
		return nil, false
	}

	switch head.Id {
	case "ptr":
		if len(sub.Indices) != 1 {
			w.errorf(report.TypeShapeInvalid, sub.Pos, "ptr takes exactly one element type")
			return nil, false
		}

		elem, ok := w.resolveTypeExpr(sub.Indices[0])
		if !ok {
			return nil, false
		}

		return &typing.PointerType{ElemType: elem}, true
	case "array":
		if len(sub.Indices) < 2 {
			w.errorf(report.TypeShapeInvalid, sub.Pos, "array takes an element type and at least one dimension")
			return nil, false
		}

		elem, ok := w.resolveTypeExpr(sub.Indices[0])
		if !ok {
			return nil, false
		}

		dims := make([]int, 0, len(sub.Indices)-1)
		for _, dimExpr := range sub.Indices[1:] {
			constant, ok := dimExpr.(*ast.Constant)
			if !ok {
				w.errorf(report.TypeShapeInvalid, sub.Pos, "array dimensions must be integer literals")
				return nil, false
			}

			dim, ok := constant.Value.(int64)
			if !ok || dim <= 0 {
				w.errorf(report.TypeShapeInvalid, sub.Pos, "array dimensions must be positive")
				return nil, false
			}

			dims = append(dims, int(dim))
		}

		return &typing.ArrayType{ElemType: elem, Dims: dims}, true
	case "refined":
		return w.resolveRefinedSubscript(sub)
	}

	w.errorf(report.TypeShapeInvalid, sub.Pos, "unknown type constructor `%s`", head.Id)
	return nil, false
}

// resolveRefinedSubscript handles the refined[...] type constructor:
// `refined[base, pred..., "tag"...]` and the predicate-only shorthand
// `refined[pred]`, which infers the base from the predicate signature.
func (w *Walker) resolveRefinedSubscript(sub *ast.Subscript) (typing.DataType, bool) {
	if len(sub.Indices) == 0 {
		w.errorf(report.TypeShapeInvalid, sub.Pos, "refined requires at least one argument")
		return nil, false
	}

	var base typing.DataType
	var preds []typing.PredicateRef
	var tags []string

	for i, index := range sub.Indices {
		switch arg := index.(type) {
		case *ast.Constant:
			tag, ok := arg.Value.(string)
			if !ok {
				w.errorf(report.TypeShapeInvalid, sub.Pos, "refined tags must be string literals")
				return nil, false
			}

			tags = append(tags, tag)
		case *ast.Name:
			// A name is a predicate if it resolves to a function; otherwise
			// it must be the base type in leading position.
			if sym, ok := w.lookup(arg.Id); ok && sym.DefKind == depm.DKFunction {
				ft, isFunc := sym.Type.(*typing.FuncType)
				if !isFunc {
					w.errorf(report.TypeShapeInvalid, sub.Pos, "predicate `%s` is not a function", arg.Id)
					return nil, false
				}

				preds = append(preds, typing.PredicateRef{Name: sym.Name, Signature: ft})
				continue
			}

			if i != 0 {
				w.errorf(report.TypeShapeInvalid, sub.Pos, "base type must come first in refined[...]")
				return nil, false
			}

			resolved, ok := w.resolveTypeExpr(arg)
			if !ok {
				return nil, false
			}

			base = resolved
		default:
			if i != 0 {
				w.errorf(report.TypeShapeInvalid, sub.Pos, "invalid refined argument")
				return nil, false
			}

			resolved, ok := w.resolveTypeExpr(index)
			if !ok {
				return nil, false
			}

			base = resolved
		}
	}

	if base == nil {
		// Predicate-only form: infer the shape from the first predicate's
		// parameters.
		if len(preds) == 0 {
			w.errorf(report.TypeShapeInvalid, sub.Pos, "refined requires a base type or a predicate")
			return nil, false
		}

		params := preds[0].Signature.Params
		switch len(params) {
		case 0:
			w.errorf(report.RefinedArityMismatch, sub.Pos, "predicate `%s` takes no arguments", preds[0].Name)
			return nil, false
		case 1:
			base = params[0]
		default:
			fields := make([]typing.Field, len(params))
			for i, p := range params {
				fields[i] = typing.Field{Type: p}
			}

			base = &typing.StructType{Fields: fields}
		}
	}

	rt, ok := typing.NewRefinedType(base, preds, tags)
	if !ok {
		w.errorf(report.RefinedArityMismatch, sub.Pos,
			"refinement predicates disagree on arity")
		return nil, false
	}

	return rt, true
}
