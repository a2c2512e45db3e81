package walk

import (
	"pythoc/ast"
	"pythoc/report"
	"pythoc/typing"
)

// walkIntrinsicCall checks calls to front-end intrinsics.  The second result
// is false when the name is not an intrinsic.
func (w *Walker) walkIntrinsicCall(node *ast.Call, name string) (typing.DataType, bool) {
	switch name {
	case "sizeof":
		// sizeof accepts a type expression or a value.
		if len(node.Args) != 1 {
			w.errorf(report.TypeMismatch, node.Pos, "sizeof takes exactly one argument")
			return nil, true
		}

		if _, ok := w.resolveTypeExprQuiet(node.Args[0]); !ok {
			w.walkExpr(node.Args[0])
		}

		return w.typeExpr(node, &typing.IntType{Signed: false, Width: 64}), true
	case "ptr":
		if len(node.Args) != 1 {
			w.errorf(report.TypeMismatch, node.Pos, "ptr takes exactly one argument")
			return nil, true
		}

		argType := w.walkExpr(node.Args[0])
		if argType == nil {
			return nil, true
		}

		return w.typeExpr(node, &typing.PointerType{ElemType: argType}), true
	case "nullptr":
		return w.typeExpr(node, &typing.PointerType{ElemType: typing.PrimVoid}), true
	case "linear":
		if len(node.Args) != 0 {
			w.errorf(report.TypeMismatch, node.Pos, "linear takes no arguments")
			return nil, true
		}

		return w.typeExpr(node, &typing.LinearType{}), true
	case "consume":
		if len(node.Args) != 1 {
			w.errorf(report.TypeMismatch, node.Pos, "consume takes exactly one argument")
			return nil, true
		}

		argType := w.walkExpr(node.Args[0])
		if argType != nil && !typing.ContainsLinear(argType) {
			w.errorf(report.TypeMismatch, node.Pos,
				"consume requires a linear value, not `%s`", argType.Repr())
		}

		return w.typeExpr(node, typing.PrimVoid), true
	case "move":
		if len(node.Args) != 1 {
			w.errorf(report.TypeMismatch, node.Pos, "move takes exactly one argument")
			return nil, true
		}

		argType := w.walkExpr(node.Args[0])
		if argType == nil {
			return nil, true
		}

		if !typing.ContainsLinear(argType) {
			w.errorf(report.TypeMismatch, node.Pos,
				"move requires a linear value, not `%s`", argType.Repr())
			return nil, true
		}

		return w.typeExpr(node, argType), true
	case "assume":
		return w.walkAssume(node), true
	case "defer":
		return w.walkDeferCall(node), true
	case "label", "goto", "goto_begin", "goto_end":
		// Checked structurally by the CFG builder; here only the argument
		// shape matters.
		if len(node.Args) != 1 {
			w.errorf(report.LabelNotVisible, node.Pos, "%s takes exactly one label name", name)
			return nil, true
		}

		if constant, ok := node.Args[0].(*ast.Constant); !ok {
			w.errorf(report.LabelNotVisible, node.Pos, "%s requires a literal label name", name)
		} else if _, isStr := constant.Value.(string); !isStr {
			w.errorf(report.LabelNotVisible, node.Pos, "%s requires a literal label name", name)
		}

		return w.typeExpr(node, typing.PrimVoid), true
	case "cimport":
		// cimport pulls a C source in as an extern group; the declaration
		// work happens in the driver.
		return w.typeExpr(node, typing.PrimVoid), true
	}

	return nil, false
}

// resolveTypeExprQuiet attempts type-expression resolution without reporting
// errors.
func (w *Walker) resolveTypeExprQuiet(expr ast.Expr) (typing.DataType, bool) {
	saved := w.errors
	typ, ok := w.resolveTypeExpr(expr)
	w.errors = saved
	return typ, ok
}

// walkAssume checks `assume(v..., pred..., tag...)`: it produces a refined
// value with no runtime check.  The multi-argument form combines the values
// into the refined carrier struct.
func (w *Walker) walkAssume(node *ast.Call) typing.DataType {
	var valueTypes []typing.DataType
	var preds []typing.PredicateRef
	var tags []string

	for _, arg := range node.Args {
		if name, ok := arg.(*ast.Name); ok {
			if sym, found := w.lookup(name.Id); found {
				if ft, isFunc := sym.Type.(*typing.FuncType); isFunc {
					preds = append(preds, typing.PredicateRef{Name: sym.Name, Signature: ft})
					continue
				}
			}
		}

		if constant, ok := arg.(*ast.Constant); ok {
			if tag, isStr := constant.Value.(string); isStr {
				tags = append(tags, tag)
				continue
			}
		}

		argType := w.walkExpr(arg)
		if argType == nil {
			return nil
		}

		valueTypes = append(valueTypes, argType)
	}

	if len(valueTypes) == 0 {
		w.errorf(report.RefinedArityMismatch, node.Pos, "assume requires at least one value")
		return nil
	}

	var base typing.DataType
	if len(valueTypes) == 1 {
		base = valueTypes[0]
	} else {
		fields := make([]typing.Field, len(valueTypes))
		for i, vt := range valueTypes {
			fields[i] = typing.Field{Type: vt}
		}

		base = &typing.StructType{Fields: fields}
	}

	// Predicate arity must match the value shape.
	for _, pred := range preds {
		if len(pred.Signature.Params) != len(valueTypes) {
			w.errorf(report.RefinedArityMismatch, node.Pos,
				"predicate `%s` takes %d arguments for %d values",
				pred.Name, len(pred.Signature.Params), len(valueTypes))
			return nil
		}
	}

	rt, ok := typing.NewRefinedType(base, preds, tags)
	if !ok {
		w.errorf(report.RefinedArityMismatch, node.Pos, "refinement predicates disagree on arity")
		return nil
	}

	return w.typeExpr(node, rt)
}

// walkDeferCall checks a defer registration: the callee is type-checked
// against the captured arguments; registration itself does not consume
// linear arguments.
func (w *Walker) walkDeferCall(node *ast.Call) typing.DataType {
	if len(node.Args) == 0 {
		w.errorf(report.TypeMismatch, node.Pos, "defer requires a callee argument")
		return nil
	}

	calleeType := w.walkExpr(node.Args[0])
	if calleeType == nil {
		return nil
	}

	ft, ok := typing.InnerType(calleeType).(*typing.FuncType)
	if !ok {
		w.errorf(report.TypeMismatch, node.Pos, "defer callee must be a function")
		return nil
	}

	captured := node.Args[1:]
	if !ft.Variadic && len(captured) != len(ft.Params) {
		w.errorf(report.TypeMismatch, node.Pos,
			"defer captures %d arguments for %d parameters", len(captured), len(ft.Params))
		return nil
	}

	for i, arg := range captured {
		argType := w.walkExpr(arg)
		if argType != nil && i < len(ft.Params) {
			w.checkAssignable(ft.Params[i], argType, arg, node.Pos)
		}
	}

	return w.typeExpr(node, typing.PrimVoid)
}
