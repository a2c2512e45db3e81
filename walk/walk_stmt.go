package walk

import (
	"pythoc/ast"
	"pythoc/effects"
	"pythoc/match"
	"pythoc/report"
	"pythoc/typing"
)

func (w *Walker) walkBlock(stmts []ast.Stmt) {
	w.SymTable.PushScope()
	defer w.SymTable.PopScope()

	for _, stmt := range stmts {
		w.walkStmt(stmt)
	}
}

func (w *Walker) walkStmt(stmt ast.Stmt) {
	switch v := stmt.(type) {
	case *ast.AnnAssign:
		w.walkAnnAssign(v)
	case *ast.Assign:
		w.walkAssign(v)
	case *ast.ExprStmt:
		w.walkExprStmt(v)
	case *ast.If:
		w.checkCondition(v.Cond)
		w.walkBlock(v.Body)
		w.walkBlock(v.Else)
	case *ast.While:
		w.checkCondition(v.Cond)
		w.walkBlock(v.Body)
		w.walkBlock(v.Else)
	case *ast.For:
		w.walkRuntimeFor(v)
	case *ast.With:
		w.walkWith(v)
	case *ast.Match:
		w.walkMatch(v)
	case *ast.Return:
		w.walkReturn(v)
	}
}

func (w *Walker) walkAnnAssign(node *ast.AnnAssign) {
	declared, ok := w.resolveTypeExpr(node.Annot)
	if !ok {
		return
	}

	if node.Target != nil {
		if _, exists := w.SymTable.LookupLocal(node.Target.Id); !exists {
			w.declareVar(node.Target.Id, declared, node.Pos)
		}

		node.Target.SetType(declared)
	}

	if node.Value != nil {
		valueType := w.walkExpr(node.Value)
		if valueType != nil {
			w.checkAssignable(declared, valueType, node.Value, node.Pos)
		}
	}
}

func (w *Walker) walkAssign(node *ast.Assign) {
	// `effect.name = impl` pins the effect.
	if len(node.Targets) == 1 {
		if attr, ok := node.Targets[0].(*ast.Attribute); ok {
			if base, ok := attr.Value.(*ast.Name); ok && base.Id == "effect" {
				w.pinEffect(attr.Attr, node.Value, node.Pos)
				return
			}
		}
	}

	valueType := w.walkExpr(node.Value)
	if valueType == nil {
		return
	}

	for _, target := range node.Targets {
		w.assignTarget(target, valueType, node.Pos)
	}
}

func (w *Walker) assignTarget(target ast.Expr, valueType typing.DataType, pos *report.TextPosition) {
	switch t := target.(type) {
	case *ast.Name:
		sym, ok := w.SymTable.Lookup(t.Id)
		if !ok {
			// First assignment declares the variable with the inferred type,
			// the shape the inline kernel's parameter bindings take.
			w.declareVar(t.Id, valueType, pos)
			t.SetType(valueType)
			return
		}

		t.SetType(sym.Type)
		w.checkAssignable(sym.Type, valueType, target, pos)
	case *ast.TupleExpr:
		// Multi-assignment from tuple-yield expansion.
		for _, elem := range t.Elems {
			if name, ok := elem.(*ast.Name); ok {
				if _, exists := w.SymTable.Lookup(name.Id); !exists {
					w.declareVar(name.Id, valueType, pos)
				}
			}
		}
	case *ast.Attribute, *ast.Subscript:
		targetType := w.walkExpr(t)
		if targetType != nil {
			w.checkAssignable(targetType, valueType, target, pos)
		}
	}
}

func (w *Walker) walkExprStmt(node *ast.ExprStmt) {
	if call, ok := node.X.(*ast.Call); ok {
		// `refine` only has meaning as a for-loop iterable; by the time the
		// checking pass runs every legal refine was lowered away.
		if name, ok := call.Func.(*ast.Name); ok && name.Id == "refine" {
			w.errorf(report.RefineOutsideForLoop, call.Pos,
				"refine is only valid as a for-loop iterable")
			return
		}

		// `effect.default(name=impl)` installs the default layer.
		if attr, ok := call.Func.(*ast.Attribute); ok {
			if base, ok := attr.Value.(*ast.Name); ok && base.Id == "effect" && attr.Attr == "default" {
				w.installEffectDefaults(call)
				return
			}
		}
	}

	w.walkExpr(node.X)
}

func (w *Walker) walkRuntimeFor(node *ast.For) {
	iterType := w.walkExpr(node.Iter)

	if name, ok := node.Target.(*ast.Name); ok {
		elemType := iterType
		if at, ok := typing.InnerType(iterType).(*typing.ArrayType); ok {
			elemType = at.ElemType
		}

		if elemType != nil {
			if _, exists := w.SymTable.Lookup(name.Id); !exists {
				w.declareVar(name.Id, elemType, node.Pos)
			}
		}
	}

	w.walkBlock(node.Body)
	w.walkBlock(node.Else)
}

func (w *Walker) walkWith(node *ast.With) {
	// `with effect(name=impl, suffix=S):` pushes a scoped override.
	if call, isCall := effectOverrideCall(node); isCall {
		w.walkEffectOverride(call, node)
		return
	}

	// Label scopes and plain with statements only open a lexical scope here;
	// the CFG builder gives labels their jump targets.
	w.walkBlock(node.Body)
}

// effectOverrideCall matches `with effect(...)`.
func effectOverrideCall(node *ast.With) (*ast.Call, bool) {
	if len(node.Items) != 1 {
		return nil, false
	}

	call, ok := node.Items[0].Context.(*ast.Call)
	if !ok {
		return nil, false
	}

	name, ok := call.Func.(*ast.Name)
	if !ok || name.Id != "effect" {
		return nil, false
	}

	return call, true
}

func (w *Walker) walkEffectOverride(call *ast.Call, node *ast.With) {
	bindings := make(map[string]*effects.Impl)
	suffix := ""

	for _, kw := range call.Keywords {
		if kw.Name == "suffix" {
			if constant, ok := kw.Value.(*ast.Constant); ok {
				if s, ok := constant.Value.(string); ok {
					suffix = s
					continue
				}
			}

			w.errorf(report.EffectSuffixRequired, call.Pos, "suffix must be a string literal")
			return
		}

		bindings[kw.Name] = w.effectImpl(kw.Value)
	}

	if err := w.Effects.PushOverride(bindings, suffix, call.Pos); err != nil {
		w.reportError(err)
		return
	}
	defer w.Effects.PopOverride()

	w.walkBlock(node.Body)
}

func (w *Walker) installEffectDefaults(call *ast.Call) {
	for _, kw := range call.Keywords {
		w.Effects.SetDefault(kw.Name, w.effectImpl(kw.Value))
	}
}

func (w *Walker) pinEffect(name string, value ast.Expr, pos *report.TextPosition) {
	if err := w.Effects.Pin(name, w.effectImpl(value), pos); err != nil {
		w.reportError(err)
	}
}

// effectImpl converts a binding expression into an effect implementation:
// a function reference or a literal value effect.
func (w *Walker) effectImpl(value ast.Expr) *effects.Impl {
	switch v := value.(type) {
	case *ast.Constant:
		return &effects.Impl{Value: v.Value}
	case *ast.Name:
		if sym, ok := w.lookup(v.Id); ok {
			return &effects.Impl{Symbol: sym}
		}
	}

	return &effects.Impl{}
}

func (w *Walker) walkMatch(node *ast.Match) {
	subject := w.walkExpr(node.Subject)
	if subject == nil {
		return
	}

	normalizer := &match.Normalizer{ResolveVariant: w.resolveVariantRef}

	lowered, err := match.Check(node, subject, normalizer)
	if err != nil {
		w.reportError(err)
	} else {
		w.matches[node] = lowered
	}

	for _, mc := range node.Cases {
		w.SymTable.PushScope()
		w.declarePatternBindings(mc.Pattern, subject)

		if mc.Guard != nil {
			w.checkCondition(mc.Guard)
		}

		for _, stmt := range mc.Body {
			w.walkStmt(stmt)
		}

		w.SymTable.PopScope()
	}
}

// declarePatternBindings introduces the names bound by a pattern.
func (w *Walker) declarePatternBindings(pat ast.Pattern, subject typing.DataType) {
	switch v := pat.(type) {
	case *ast.MatchAs:
		if v.Name != "" {
			if _, exists := w.SymTable.LookupLocal(v.Name); !exists {
				w.declareVar(v.Name, subject, v.Pos)
			}
		}

		if v.Inner != nil {
			w.declarePatternBindings(v.Inner, subject)
		}
	case *ast.MatchOr:
		for _, alt := range v.Alternatives {
			w.declarePatternBindings(alt, subject)
		}
	case *ast.MatchSequence:
		if st, ok := typing.InnerType(subject).(*typing.StructType); ok && len(st.Fields) == len(v.Elems) {
			for i, elem := range v.Elems {
				w.declarePatternBindings(elem, st.Fields[i].Type)
			}
		} else if at, ok := typing.InnerType(subject).(*typing.ArrayType); ok {
			for _, elem := range v.Elems {
				w.declarePatternBindings(elem, at.ElemType)
			}
		}
	case *ast.MatchClass:
		if tag, ok := w.resolveVariantRef(v.Cls, subject); ok {
			if et, isEnum := typing.InnerType(subject).(*typing.EnumType); isEnum {
				if variant, found := et.VariantByTag(tag); found && variant.Payload != nil && len(v.Positional) == 1 {
					w.declarePatternBindings(v.Positional[0], variant.Payload)
				}
			}

			return
		}

		if st, ok := typing.InnerType(subject).(*typing.StructType); ok {
			for i, sub := range v.Positional {
				if i < len(st.Fields) {
					w.declarePatternBindings(sub, st.Fields[i].Type)
				}
			}

			for _, kw := range v.Keyword {
				if index := st.FieldIndex(kw.Name); index >= 0 {
					w.declarePatternBindings(kw.Pattern, st.Fields[index].Type)
				}
			}
		}
	}
}

// resolveVariantRef resolves `EnumName.Variant` expressions against the
// subject's enum type.
func (w *Walker) resolveVariantRef(expr ast.Expr, subject typing.DataType) (int64, bool) {
	et, ok := typing.InnerType(subject).(*typing.EnumType)
	if !ok {
		return 0, false
	}

	attr, ok := expr.(*ast.Attribute)
	if !ok {
		return 0, false
	}

	base, ok := attr.Value.(*ast.Name)
	if !ok || base.Id != et.Name {
		return 0, false
	}

	variant, ok := et.Variant(attr.Attr)
	if !ok {
		return 0, false
	}

	return variant.Tag, true
}

func (w *Walker) walkReturn(node *ast.Return) {
	if node.Value == nil {
		if !typing.Equals(w.rtnType, typing.PrimVoid) {
			w.errorf(report.TypeMismatch, node.Pos,
				"missing return value of type `%s`", w.rtnType.Repr())
		}

		return
	}

	valueType := w.walkExpr(node.Value)
	if valueType != nil {
		w.checkAssignable(w.rtnType, valueType, node.Value, node.Pos)
	}
}

func (w *Walker) checkCondition(cond ast.Expr) {
	condType := w.walkExpr(cond)
	if condType != nil && !typing.Equals(condType, typing.PrimBool) {
		w.errorf(report.TypeMismatch, cond.Position(),
			"condition must be bool, not `%s`", condType.Repr())
	}
}

// checkAssignable validates storing a value of one type into a location of
// another, enforcing the refinement conversion rules.
func (w *Walker) checkAssignable(dst, src typing.DataType, value ast.Expr, pos *report.TextPosition) {
	if typing.Equals(dst, src) {
		return
	}

	// Untyped literals adapt to the destination.
	if constant, ok := value.(*ast.Constant); ok && literalAdapts(constant.Value, dst) {
		value.SetType(dst)
		return
	}

	srcRef, srcIsRef := typing.InnerType(src).(*typing.RefinedType)
	dstRef, dstIsRef := typing.InnerType(dst).(*typing.RefinedType)

	switch {
	case srcIsRef && dstIsRef:
		if !typing.RefinedConvertible(srcRef, dstRef) {
			w.errorf(report.RefineTagNotSubset, pos,
				"cannot convert `%s` to `%s`: tags and predicates must be subsets", src.Repr(), dst.Repr())
		}
	case srcIsRef:
		// Forgetting refinement is always allowed.
		if !typing.Equals(srcRef.Base, dst) {
			w.errorf(report.TypeMismatch, pos,
				"expected `%s`, found `%s`", dst.Repr(), src.Repr())
		}
	case dstIsRef:
		w.errorf(report.RefineBaseToRefined, pos,
			"cannot convert base `%s` to refined `%s` without assume or refine", src.Repr(), dst.Repr())
	default:
		w.errorf(report.TypeMismatch, pos,
			"expected `%s`, found `%s`", dst.Repr(), src.Repr())
	}
}

// literalAdapts reports whether an untyped literal fits the destination
// without an explicit conversion.
func literalAdapts(value interface{}, dst typing.DataType) bool {
	switch typing.InnerType(dst).(type) {
	case *typing.IntType:
		_, ok := value.(int64)
		return ok
	case *typing.FloatType:
		switch value.(type) {
		case float64, int64:
			return true
		}
	case typing.PrimType:
		if _, ok := value.(bool); ok {
			return typing.Equals(typing.InnerType(dst), typing.PrimBool)
		}

		// 0/1 literals convert to bool in generated bindings.
		if i, ok := value.(int64); ok && (i == 0 || i == 1) {
			return typing.Equals(typing.InnerType(dst), typing.PrimBool)
		}
	}

	return false
}
