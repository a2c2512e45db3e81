package ast

// WalkExprNames calls f for every Name node in the expression tree.
func WalkExprNames(expr Expr, f func(*Name)) {
	switch v := expr.(type) {
	case *Name:
		f(v)
	case *Call:
		WalkExprNames(v.Func, f)
		for _, arg := range v.Args {
			WalkExprNames(arg, f)
		}
		for _, kw := range v.Keywords {
			WalkExprNames(kw.Value, f)
		}
	case *Attribute:
		WalkExprNames(v.Value, f)
	case *Subscript:
		WalkExprNames(v.Value, f)
		for _, index := range v.Indices {
			WalkExprNames(index, f)
		}
	case *BinaryOp:
		WalkExprNames(v.Left, f)
		WalkExprNames(v.Right, f)
	case *UnaryOp:
		WalkExprNames(v.Operand, f)
	case *Compare:
		WalkExprNames(v.Left, f)
		for _, cmp := range v.Comparators {
			WalkExprNames(cmp, f)
		}
	case *TupleExpr:
		for _, elem := range v.Elems {
			WalkExprNames(elem, f)
		}
	case *Lambda:
		WalkExprNames(v.Body, f)
	case *Yield:
		if v.Value != nil {
			WalkExprNames(v.Value, f)
		}
	}
}

// WalkBlock calls f for every statement in the block, recursing into nested
// blocks.  Returning false from f stops descent into that statement's
// children.
func WalkBlock(block []Stmt, f func(Stmt) bool) {
	for _, stmt := range block {
		if !f(stmt) {
			continue
		}

		switch v := stmt.(type) {
		case *If:
			WalkBlock(v.Body, f)
			WalkBlock(v.Else, f)
		case *While:
			WalkBlock(v.Body, f)
			WalkBlock(v.Else, f)
		case *For:
			WalkBlock(v.Body, f)
			WalkBlock(v.Else, f)
		case *With:
			WalkBlock(v.Body, f)
		case *Match:
			for _, mc := range v.Cases {
				WalkBlock(mc.Body, f)
			}
		}
	}
}

// WalkStmtExprs calls f for every top-level expression appearing directly in
// the statement (not recursing into nested statements).
func WalkStmtExprs(stmt Stmt, f func(Expr)) {
	visit := func(e Expr) {
		if e != nil {
			f(e)
		}
	}

	switch v := stmt.(type) {
	case *AnnAssign:
		if v.Target != nil {
			visit(v.Target)
		}
		visit(v.Annot)
		visit(v.Value)
	case *Assign:
		for _, target := range v.Targets {
			visit(target)
		}
		visit(v.Value)
	case *ExprStmt:
		visit(v.X)
	case *If:
		visit(v.Cond)
	case *While:
		visit(v.Cond)
	case *For:
		visit(v.Target)
		visit(v.Iter)
	case *With:
		for _, item := range v.Items {
			visit(item.Context)
		}
	case *Match:
		visit(v.Subject)
		for _, mc := range v.Cases {
			visit(mc.Guard)
		}
	case *Return:
		visit(v.Value)
	}
}
