package walk

import (
	"pythoc/ast"
	"pythoc/depm"
	"pythoc/report"
	"pythoc/typing"
)

// walkExpr type-checks an expression, annotating the node and returning the
// resolved type.  A nil result means the expression failed to check; the
// error has already been recorded.
func (w *Walker) walkExpr(expr ast.Expr) typing.DataType {
	switch v := expr.(type) {
	case *ast.Constant:
		return w.typeExpr(v, constantType(v.Value))
	case *ast.Name:
		sym, ok := w.lookup(v.Id)
		if !ok {
			w.errorf(report.TypeMismatch, v.Pos, "undefined symbol `%s`", v.Id)
			return nil
		}

		return w.typeExpr(v, sym.Type)
	case *ast.Attribute:
		return w.walkAttribute(v)
	case *ast.Subscript:
		return w.walkSubscript(v)
	case *ast.Call:
		return w.walkCall(v)
	case *ast.BinaryOp:
		return w.walkBinaryOp(v)
	case *ast.UnaryOp:
		return w.walkUnaryOp(v)
	case *ast.Compare:
		return w.walkCompare(v)
	case *ast.TupleExpr:
		fields := make([]typing.Field, len(v.Elems))
		for i, elem := range v.Elems {
			et := w.walkExpr(elem)
			if et == nil {
				return nil
			}

			fields[i] = typing.Field{Type: et}
		}

		return w.typeExpr(v, &typing.StructType{Fields: fields})
	case *ast.Yield:
		if v.Value != nil {
			w.walkExpr(v.Value)
		}

		return typing.PrimVoid
	}

	w.errorf(report.TypeMismatch, expr.Position(), "unsupported expression")
	return nil
}

func (w *Walker) typeExpr(expr ast.Expr, typ typing.DataType) typing.DataType {
	if typ != nil {
		expr.SetType(typ)
	}

	return typ
}

func constantType(value interface{}) typing.DataType {
	switch value.(type) {
	case int64:
		return &typing.IntType{Signed: true, Width: 32}
	case float64:
		return &typing.FloatType{Kind: typing.F64}
	case bool:
		return typing.PrimBool
	case string:
		return &typing.PointerType{ElemType: &typing.IntType{Signed: true, Width: 8}}
	}

	return typing.PrimVoid
}

// -----------------------------------------------------------------------------

func (w *Walker) walkAttribute(node *ast.Attribute) typing.DataType {
	// `effect.N` reads an effect at compile time.
	if base, ok := node.Value.(*ast.Name); ok && base.Id == "effect" {
		return w.walkEffectRead(node)
	}

	// `EnumName.Variant` evaluates to an enum value.
	if base, ok := node.Value.(*ast.Name); ok {
		if h, found := w.Arena.Lookup(base.Id); found {
			if et, isEnum := typing.InnerType(w.Arena.Get(h)).(*typing.EnumType); isEnum {
				if _, hasVariant := et.Variant(node.Attr); hasVariant {
					return w.typeExpr(node, et)
				}

				w.errorf(report.TypeMismatch, node.Pos,
					"enum `%s` has no variant `%s`", et.Name, node.Attr)
				return nil
			}
		}
	}

	baseType := w.walkExpr(node.Value)
	if baseType == nil {
		return nil
	}

	st, ok := typing.InnerType(baseType).(*typing.StructType)
	if !ok {
		// Refined carriers expose the named fields of their base struct;
		// anonymous carrier fields have no attribute name.
		if rt, isRef := typing.InnerType(baseType).(*typing.RefinedType); isRef {
			if inner, isStruct := typing.InnerType(rt.Base).(*typing.StructType); isStruct {
				st = inner
			}
		}

		if st == nil {
			w.errorf(report.TypeMismatch, node.Pos,
				"`%s` has no attributes", baseType.Repr())
			return nil
		}
	}

	index := st.FieldIndex(node.Attr)
	if index < 0 {
		w.errorf(report.TypeMismatch, node.Pos,
			"`%s` has no field `%s`", baseType.Repr(), node.Attr)
		return nil
	}

	return w.typeExpr(node, st.Fields[index].Type)
}

// walkEffectRead resolves `effect.N`, recording the read for transitive
// suffix propagation.
func (w *Walker) walkEffectRead(node *ast.Attribute) typing.DataType {
	if w.Reads != nil {
		w.Reads.AddRead(w.fnKey, node.Attr)
	}

	impl, err := w.Effects.Resolve(node.Attr, node.Pos)
	if err != nil {
		w.reportError(err)
		return nil
	}

	if impl.Symbol != nil {
		return w.typeExpr(node, impl.Symbol.Type)
	}

	// Value effects resolve to literal constants that flow into folding.
	return w.typeExpr(node, constantType(impl.Value))
}

func (w *Walker) walkSubscript(node *ast.Subscript) typing.DataType {
	baseType := w.walkExpr(node.Value)
	if baseType == nil {
		return nil
	}

	for _, index := range node.Indices {
		w.walkExpr(index)
	}

	switch bt := typing.InnerType(baseType).(type) {
	case *typing.ArrayType:
		if len(node.Indices) == len(bt.Dims) {
			return w.typeExpr(node, bt.ElemType)
		}

		if len(node.Indices) < len(bt.Dims) {
			return w.typeExpr(node, &typing.ArrayType{
				ElemType: bt.ElemType,
				Dims:     bt.Dims[len(node.Indices):],
			})
		}
	case *typing.PointerType:
		if len(node.Indices) == 1 {
			return w.typeExpr(node, bt.ElemType)
		}
	case *typing.StructType:
		if len(node.Indices) == 1 {
			if constant, ok := node.Indices[0].(*ast.Constant); ok {
				if i, isInt := constant.Value.(int64); isInt && int(i) < len(bt.Fields) {
					return w.typeExpr(node, bt.Fields[int(i)].Type)
				}
			}
		}
	}

	w.errorf(report.TypeMismatch, node.Pos, "cannot index `%s`", baseType.Repr())
	return nil
}

func (w *Walker) walkBinaryOp(node *ast.BinaryOp) typing.DataType {
	left := w.walkExpr(node.Left)
	right := w.walkExpr(node.Right)
	if left == nil || right == nil {
		return nil
	}

	if node.Op == "and" || node.Op == "or" {
		if !typing.Equals(left, typing.PrimBool) || !typing.Equals(right, typing.PrimBool) {
			w.errorf(report.TypeMismatch, node.Pos, "`%s` requires bool operands", node.Op)
			return nil
		}

		return w.typeExpr(node, typing.PrimBool)
	}

	if !typing.Equals(left, right) {
		// Untyped literal operands adapt to the other side.
		if c, ok := node.Right.(*ast.Constant); ok && literalAdapts(c.Value, left) {
			node.Right.SetType(left)
			return w.typeExpr(node, left)
		}
		if c, ok := node.Left.(*ast.Constant); ok && literalAdapts(c.Value, right) {
			node.Left.SetType(right)
			return w.typeExpr(node, right)
		}

		w.errorf(report.TypeMismatch, node.Pos,
			"mismatched operand types `%s` and `%s`", left.Repr(), right.Repr())
		return nil
	}

	return w.typeExpr(node, left)
}

func (w *Walker) walkUnaryOp(node *ast.UnaryOp) typing.DataType {
	operand := w.walkExpr(node.Operand)
	if operand == nil {
		return nil
	}

	if node.Op == "not" {
		if !typing.Equals(operand, typing.PrimBool) {
			w.errorf(report.TypeMismatch, node.Pos, "`not` requires a bool operand")
			return nil
		}
	}

	return w.typeExpr(node, operand)
}

func (w *Walker) walkCompare(node *ast.Compare) typing.DataType {
	prev := w.walkExpr(node.Left)

	for _, cmp := range node.Comparators {
		next := w.walkExpr(cmp)
		if prev != nil && next != nil && !typing.Equals(prev, next) {
			if c, ok := cmp.(*ast.Constant); !ok || !literalAdapts(c.Value, prev) {
				w.errorf(report.TypeMismatch, node.Pos,
					"cannot compare `%s` with `%s`", prev.Repr(), next.Repr())
			}
		}

		prev = next
	}

	return w.typeExpr(node, typing.PrimBool)
}

// -----------------------------------------------------------------------------

func (w *Walker) walkCall(node *ast.Call) typing.DataType {
	switch fn := node.Func.(type) {
	case *ast.Name:
		// Intrinsics first.
		if typ, handled := w.walkIntrinsicCall(node, fn.Id); handled {
			return typ
		}

		// Conversion through a type name: i32(x).
		if target, ok := primTypeNames[fn.Id]; ok {
			return w.walkConversion(node, target)
		}

		sym, found := w.lookup(fn.Id)
		if !found {
			w.errorf(report.TypeMismatch, node.Pos, "undefined symbol `%s`", fn.Id)
			return nil
		}

		switch sym.DefKind {
		case depm.DKType:
			return w.walkConversion(node, sym.Type)
		case depm.DKFunction, depm.DKBuiltin:
			return w.walkFunctionCall(node, sym)
		case depm.DKVariable:
			// Calls through a function-pointer variable.
			if ft, isFunc := typing.InnerType(sym.Type).(*typing.FuncType); isFunc {
				return w.checkArgs(node, ft)
			}
		}

		w.errorf(report.TypeMismatch, node.Pos, "`%s` is not callable", fn.Id)
		return nil
	case *ast.Subscript:
		// A subscripted type call such as `array[i32, 5]()` constructs a
		// zero value of the subscripted type.
		if target, ok := w.resolveTypeExpr(fn); ok {
			for _, arg := range node.Args {
				w.walkExpr(arg)
			}

			return w.typeExpr(node, target)
		}

		return nil
	case *ast.Attribute:
		// Effect method call: `effect.rng(...)` or a call through a struct
		// function pointer field.
		calleeType := w.walkExpr(fn)
		if calleeType == nil {
			return nil
		}

		if ft, ok := typing.InnerType(calleeType).(*typing.FuncType); ok {
			return w.checkArgs(node, ft)
		}

		// A value effect read used as a call target.
		w.errorf(report.TypeMismatch, node.Pos, "`%s` is not callable", calleeType.Repr())
		return nil
	}

	w.errorf(report.TypeMismatch, node.Pos, "unsupported call target")
	return nil
}

// walkFunctionCall checks an ordinary function call.
func (w *Walker) walkFunctionCall(node *ast.Call, sym *depm.Symbol) typing.DataType {
	w.recordCall(sym.Name)

	ft, ok := sym.Type.(*typing.FuncType)
	if !ok {
		w.errorf(report.TypeMismatch, node.Pos, "`%s` is not callable", sym.Name)
		return nil
	}

	return w.checkArgs(node, ft)
}

func (w *Walker) checkArgs(node *ast.Call, ft *typing.FuncType) typing.DataType {
	if !ft.Variadic && len(node.Args) != len(ft.Params) {
		w.errorf(report.TypeMismatch, node.Pos,
			"call passes %d arguments for %d parameters", len(node.Args), len(ft.Params))
		return nil
	}

	for i, arg := range node.Args {
		argType := w.walkExpr(arg)
		if argType == nil {
			continue
		}

		if i < len(ft.Params) {
			w.checkAssignable(ft.Params[i], argType, arg, node.Pos)
		}
	}

	return w.typeExpr(node, ft.ReturnType)
}

// walkConversion checks an explicit type-call conversion.
func (w *Walker) walkConversion(node *ast.Call, target typing.DataType) typing.DataType {
	// Calling a refined type name is equivalent to assume: it produces a
	// refined value with no runtime check.
	if rt, isRef := typing.InnerType(target).(*typing.RefinedType); isRef {
		return w.walkRefinedTypeCall(node, rt, target)
	}

	if len(node.Args) != 1 {
		// A bare type call constructs a zero value.
		return w.typeExpr(node, target)
	}

	srcType := w.walkExpr(node.Args[0])
	if srcType == nil {
		return nil
	}

	if constant, ok := node.Args[0].(*ast.Constant); ok && literalAdapts(constant.Value, target) {
		return w.typeExpr(node, target)
	}

	if typing.CheckCast(srcType, target) == typing.CastIllegal {
		w.errorf(report.InvalidCast, node.Pos,
			"cannot cast `%s` to `%s`", srcType.Repr(), target.Repr())
		return nil
	}

	return w.typeExpr(node, target)
}

// walkRefinedTypeCall checks `RefinedTypeName(v...)`: the arguments must
// match the refined shape, and the result carries the type's predicates and
// tags without any runtime check.
func (w *Walker) walkRefinedTypeCall(node *ast.Call, rt *typing.RefinedType, target typing.DataType) typing.DataType {
	shape := rt.Shape()
	if len(node.Args) != shape {
		w.errorf(report.RefinedArityMismatch, node.Pos,
			"`%s` takes %d values, got %d", target.Repr(), shape, len(node.Args))
		return nil
	}

	var fieldTypes []typing.DataType
	if shape == 1 {
		fieldTypes = []typing.DataType{rt.Base}
	} else {
		st := typing.InnerType(rt.Base).(*typing.StructType)
		for _, f := range st.Fields {
			fieldTypes = append(fieldTypes, f.Type)
		}
	}

	for i, arg := range node.Args {
		argType := w.walkExpr(arg)
		if argType != nil {
			w.checkAssignable(fieldTypes[i], argType, arg, node.Pos)
		}
	}

	return w.typeExpr(node, target)
}
