package cfg

import (
	"pythoc/ast"
	"pythoc/report"
	"pythoc/typing"
)

// simulate applies the transfer functions of one block's statements to the
// entry snapshot.
func (lc *LinearChecker) simulate(block *Block, snap Snapshot) Snapshot {
	for _, stmt := range block.Stmts {
		switch v := stmt.(type) {
		case *ast.AnnAssign:
			if v.Target != nil {
				lc.transferAssign(snap, v.Target, v.Value, v.Pos, v.Value == nil)
			}
		case *ast.Assign:
			if len(v.Targets) == 1 {
				lc.transferAssign(snap, v.Targets[0], v.Value, v.Pos, false)
			} else {
				for _, target := range v.Targets {
					lc.transferAssign(snap, target, v.Value, v.Pos, false)
				}
			}
		case *ast.ExprStmt:
			lc.transferExpr(snap, v.X)
		case *ast.Return:
			lc.transferReturn(snap, v)
		}
	}

	return snap
}

// transferAssign handles declarations and assignments into a possibly linear
// slot.
func (lc *LinearChecker) transferAssign(snap Snapshot, target ast.Expr, value ast.Expr, pos *report.TextPosition, declOnly bool) {
	slots, ok := lc.targetSlots(target)
	if !ok || len(slots) == 0 {
		// Non-linear target; the RHS may still consume linear arguments.
		if value != nil {
			lc.transferExpr(snap, value)
		}

		return
	}

	if declOnly {
		// `t: linear` introduces the slots as undefined.
		for _, slot := range slots {
			snap[slot] = LinearUndefined
		}

		return
	}

	switch rhs := value.(type) {
	case *ast.Call:
		if name, ok := rhs.Func.(*ast.Name); ok {
			switch name.Id {
			case "linear":
				lc.makeLive(snap, slots, pos)
				return
			case "assume":
				// Wrapping a linear value into a refined carrier transfers
				// ownership into the new slot.
				for _, arg := range rhs.Args {
					lc.consumeExpr(snap, arg, rhs.Pos)
				}

				lc.makeLive(snap, slots, pos)
				return
			case "move":
				if len(rhs.Args) == 1 {
					lc.consumeExpr(snap, rhs.Args[0], rhs.Pos)
				}

				lc.makeLive(snap, slots, pos)
				return
			}
		}

		// A call returning a linear-containing value: arguments with linear
		// slots are consumed, the returned slots become live.
		lc.transferExpr(snap, rhs)
		lc.makeLive(snap, slots, pos)
	case *ast.Name, *ast.Attribute, *ast.Subscript:
		// Copying a linear-containing value by assignment is forbidden; a
		// transfer must use move.
		lc.errorf(report.LinearCopy, pos,
			"cannot copy linear value; use move")
	default:
		lc.makeLive(snap, slots, pos)
	}
}

// makeLive transitions slots to live, rejecting overwrites of live tokens.
func (lc *LinearChecker) makeLive(snap Snapshot, slots []Slot, pos *report.TextPosition) {
	for _, slot := range slots {
		if snap[slot] == LinearLive {
			lc.errorf(report.LinearOverwrite, pos,
				"linear slot `%s` overwritten while live", slot.Repr())
		}

		snap[slot] = LinearLive
	}
}

// transferExpr walks an evaluated expression for intrinsic and ordinary calls
// that move ownership.
func (lc *LinearChecker) transferExpr(snap Snapshot, expr ast.Expr) {
	call, ok := expr.(*ast.Call)
	if !ok {
		return
	}

	if name, ok := call.Func.(*ast.Name); ok {
		switch name.Id {
		case "consume", "move":
			if len(call.Args) == 1 {
				lc.consumeExpr(snap, call.Args[0], call.Pos)
			}

			return
		case "linear", "sizeof", "ptr", "nullptr", "label", "goto", "goto_begin", "goto_end":
			return
		}
	}

	// Ordinary call: passing a linear argument consumes its slots.
	for _, arg := range call.Args {
		if slots, ok := lc.targetSlots(arg); ok {
			for _, slot := range slots {
				lc.consumeSlot(snap, slot, call.Pos)
			}
		}

		// Nested calls evaluate too.
		if nested, ok := arg.(*ast.Call); ok {
			lc.transferExpr(snap, nested)
		}
	}
}

// transferReturn consumes the linear slots moved out through the return
// value.  Returned slots must be live: returning a struct whose linear field
// is already consumed is an error.
func (lc *LinearChecker) transferReturn(snap Snapshot, node *ast.Return) {
	if node.Value == nil {
		return
	}

	values := []ast.Expr{node.Value}
	if tup, ok := node.Value.(*ast.TupleExpr); ok {
		values = tup.Elems
	}

	for _, value := range values {
		slots, ok := lc.targetSlots(value)
		if !ok {
			lc.transferExpr(snap, value)
			continue
		}

		for _, slot := range slots {
			lc.consumeSlot(snap, slot, node.Pos)
		}
	}
}

// consumeExpr consumes every slot addressed by the expression.
func (lc *LinearChecker) consumeExpr(snap Snapshot, expr ast.Expr, pos *report.TextPosition) {
	slots, ok := lc.targetSlots(expr)
	if !ok || len(slots) == 0 {
		return
	}

	for _, slot := range slots {
		lc.consumeSlot(snap, slot, pos)
	}
}

// consumeSlot transitions live to consumed and reports misuse otherwise.
func (lc *LinearChecker) consumeSlot(snap Snapshot, slot Slot, pos *report.TextPosition) {
	switch snap[slot] {
	case LinearLive:
		snap[slot] = LinearConsumed
	case LinearConsumed:
		lc.errorf(report.LinearUseAfterConsume, pos,
			"linear slot `%s` already consumed", slot.Repr())
	default:
		lc.errorf(report.LinearUndefined, pos,
			"linear slot `%s` used before definition", slot.Repr())
	}
}

// -----------------------------------------------------------------------------

// targetSlots resolves an expression addressing a variable or a field path
// into the ownership slots beneath it.  The bool result is false when the
// expression does not address a linear-containing location.
func (lc *LinearChecker) targetSlots(expr ast.Expr) ([]Slot, bool) {
	varName, path, typ, ok := lc.resolvePath(expr)
	if !ok || typ == nil {
		return nil, false
	}

	linearPaths := typing.LinearPaths(typ)
	if len(linearPaths) == 0 {
		return nil, false
	}

	slots := make([]Slot, len(linearPaths))
	for i, lp := range linearPaths {
		full := make(typing.FieldPath, 0, len(path)+len(lp))
		full = append(full, path...)
		full = append(full, lp...)
		slots[i] = Slot{Var: varName, Path: full.Repr()}
	}

	return slots, true
}

// resolvePath peels attribute and subscript steps off an expression down to
// its base variable, producing the concrete field path and the type at the
// addressed position.
func (lc *LinearChecker) resolvePath(expr ast.Expr) (string, typing.FieldPath, typing.DataType, bool) {
	switch v := expr.(type) {
	case *ast.Name:
		if lc.VarType == nil {
			return "", nil, nil, false
		}

		typ := lc.VarType(v.Id)
		if typ == nil {
			return "", nil, nil, false
		}

		return v.Id, nil, typ, true
	case *ast.Attribute:
		varName, path, baseType, ok := lc.resolvePath(v.Value)
		if !ok {
			return "", nil, nil, false
		}

		st, ok := typing.InnerType(baseType).(*typing.StructType)
		if !ok {
			return "", nil, nil, false
		}

		index := st.FieldIndex(v.Attr)
		if index < 0 {
			return "", nil, nil, false
		}

		return varName, path.Child(index), st.Fields[index].Type, true
	case *ast.Subscript:
		varName, path, baseType, ok := lc.resolvePath(v.Value)
		if !ok || len(v.Indices) != 1 {
			return "", nil, nil, false
		}

		constant, ok := v.Indices[0].(*ast.Constant)
		if !ok {
			return "", nil, nil, false
		}

		index, ok := constant.Value.(int64)
		if !ok {
			return "", nil, nil, false
		}

		st, ok := typing.InnerType(baseType).(*typing.StructType)
		if !ok || int(index) >= len(st.Fields) {
			return "", nil, nil, false
		}

		return varName, path.Child(int(index)), st.Fields[int(index)].Type, true
	}

	return "", nil, nil, false
}
