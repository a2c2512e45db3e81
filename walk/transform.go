package walk

import (
	"pythoc/ast"
	"pythoc/depm"
	"pythoc/inline"
	"pythoc/report"
)

// transformBlock runs the AST substitution pass over a block: generator
// for-loops, refine for-loops, constant-iterable unrolling, and inline-marked
// calls all expand here, before any checking.  Nested constructs transform
// innermost-first: a statement's bodies are rewritten before the statement
// itself is considered for expansion.
func (w *Walker) transformBlock(stmts []ast.Stmt) []ast.Stmt {
	var out []ast.Stmt

	for _, stmt := range stmts {
		out = append(out, w.transformStmt(stmt)...)
	}

	return out
}

func (w *Walker) transformStmt(stmt ast.Stmt) []ast.Stmt {
	switch v := stmt.(type) {
	case *ast.If:
		v.Body = w.transformBlock(v.Body)
		v.Else = w.transformBlock(v.Else)
		return []ast.Stmt{v}
	case *ast.While:
		v.Body = w.transformBlock(v.Body)
		v.Else = w.transformBlock(v.Else)
		return []ast.Stmt{v}
	case *ast.With:
		v.Body = w.transformBlock(v.Body)
		return []ast.Stmt{v}
	case *ast.Match:
		for i := range v.Cases {
			v.Cases[i].Body = w.transformBlock(v.Cases[i].Body)
		}

		return []ast.Stmt{v}
	case *ast.For:
		v.Body = w.transformBlock(v.Body)
		v.Else = w.transformBlock(v.Else)
		return w.transformFor(v)
	case *ast.ExprStmt:
		if call, ok := v.X.(*ast.Call); ok {
			if expanded, ok := w.tryInlineCall(call, ""); ok {
				return expanded
			}
		}

		return []ast.Stmt{v}
	case *ast.Assign:
		if call, ok := v.Value.(*ast.Call); ok && len(v.Targets) == 1 {
			if target, isName := v.Targets[0].(*ast.Name); isName {
				if expanded, ok := w.tryInlineCall(call, target.Id); ok {
					return expanded
				}
			}
		}

		return []ast.Stmt{v}
	default:
		return []ast.Stmt{stmt}
	}
}

// transformFor rewrites a for loop whose iterable is a refine expression, a
// generator call, or a constant iterable.  Anything else survives to CFG
// construction unchanged.
func (w *Walker) transformFor(node *ast.For) []ast.Stmt {
	switch iter := node.Iter.(type) {
	case *ast.Call:
		if name, ok := iter.Func.(*ast.Name); ok {
			if name.Id == "refine" {
				return w.lowerRefineLoop(node, iter)
			}

			if name.Id == "range" {
				if unrolled, ok := w.unrollRange(node, iter); ok {
					return unrolled
				}

				return []ast.Stmt{node}
			}

			if sym, ok := w.lookup(name.Id); ok && sym.DefKind == depm.DKFunction && sym.FuncAST != nil {
				if inline.InspectExits(sym.FuncAST.Body).HasYield {
					w.recordCall(sym.Name)

					expanded, err := w.Kernel.ExpandGeneratorLoop(node, sym.Name, sym.FuncAST, iter, nil)
					if err != nil {
						w.reportError(err)
						return []ast.Stmt{node}
					}

					// Inner expansions may have introduced new generator
					// loops from the callee body.
					return w.transformBlock(expanded)
				}
			}
		}
	case *ast.TupleExpr:
		// A constant tuple iterable unrolls completely.
		var out []ast.Stmt
		for _, elem := range iter.Elems {
			out = append(out, &ast.Assign{
				StmtBase: ast.NewStmtBaseOn(node.Pos),
				Targets:  []ast.Expr{ast.CloneExpr(node.Target)},
				Value:    ast.CloneExpr(elem),
			})
			out = append(out, ast.CloneBlock(node.Body)...)
		}

		out = append(out, ast.CloneBlock(node.Else)...)
		return out
	}

	return []ast.Stmt{node}
}

// unrollRange unrolls `for i in range(n):` loops with literal bounds.
func (w *Walker) unrollRange(node *ast.For, call *ast.Call) ([]ast.Stmt, bool) {
	var start, stop int64

	switch len(call.Args) {
	case 1:
		c, ok := call.Args[0].(*ast.Constant)
		if !ok {
			return nil, false
		}

		stop, ok = c.Value.(int64)
		if !ok {
			return nil, false
		}
	case 2:
		c0, ok0 := call.Args[0].(*ast.Constant)
		c1, ok1 := call.Args[1].(*ast.Constant)
		if !ok0 || !ok1 {
			return nil, false
		}

		var okS, okE bool
		start, okS = c0.Value.(int64)
		stop, okE = c1.Value.(int64)
		if !okS || !okE {
			return nil, false
		}
	default:
		return nil, false
	}

	var out []ast.Stmt
	for i := start; i < stop; i++ {
		out = append(out, &ast.Assign{
			StmtBase: ast.NewStmtBaseOn(node.Pos),
			Targets:  []ast.Expr{ast.CloneExpr(node.Target)},
			Value:    &ast.Constant{ExprBase: ast.NewExprBaseOn(node.Pos), Value: i},
		})
		out = append(out, ast.CloneBlock(node.Body)...)
	}

	out = append(out, ast.CloneBlock(node.Else)...)
	return out, true
}

// tryInlineCall expands a call to an inline-marked function or a lambda.
// resultVar receives the callee's return value; empty discards it.
func (w *Walker) tryInlineCall(call *ast.Call, resultVar string) ([]ast.Stmt, bool) {
	switch fn := call.Func.(type) {
	case *ast.Name:
		sym, ok := w.lookup(fn.Id)
		if !ok || sym.DefKind != depm.DKFunction || !sym.Inline || sym.FuncAST == nil {
			return nil, false
		}

		w.recordCall(sym.Name)

		expanded, err := w.Kernel.ExpandCall(sym.Name, sym.FuncAST, call, resultVar, nil)
		if err != nil {
			w.reportError(err)
			return []ast.Stmt{}, true
		}

		return w.transformBlock(expanded), true
	case *ast.Lambda:
		expanded, err := w.Kernel.ExpandLambda(fn, call, resultVar, nil)
		if err != nil {
			w.reportError(err)
			return []ast.Stmt{}, true
		}

		return w.transformBlock(expanded), true
	}

	return nil, false
}

// recordCall adds an edge to the effect read graph.
func (w *Walker) recordCall(callee string) {
	if w.Reads != nil {
		w.Reads.AddCall(w.fnKey, callee)
	}
}

// -----------------------------------------------------------------------------

// lowerRefineLoop lowers `for x in refine(v..., pred...): body else: alt`
// into a conjunction of predicate calls guarding a single assignment of the
// refined value; the else branch runs on predicate failure.
func (w *Walker) lowerRefineLoop(node *ast.For, call *ast.Call) []ast.Stmt {
	values, preds := w.splitRefineArgs(call)
	if len(preds) == 0 {
		w.errorf(report.RefinedArityMismatch, call.Pos,
			"refine requires at least one predicate")
		return []ast.Stmt{node}
	}
	if len(values) == 0 {
		w.errorf(report.RefinedArityMismatch, call.Pos,
			"refine requires at least one value")
		return []ast.Stmt{node}
	}

	// Build `p1(v...) and p2(v...) and ...`.
	var cond ast.Expr
	for _, pred := range preds {
		predCall := &ast.Call{
			ExprBase: ast.NewExprBaseOn(call.Pos),
			Func:     ast.CloneExpr(pred),
			Args:     cloneExprs(values),
		}

		if cond == nil {
			cond = predCall
		} else {
			cond = &ast.BinaryOp{
				ExprBase: ast.NewExprBaseOn(call.Pos),
				Op:       "and",
				Left:     cond,
				Right:    predCall,
			}
		}
	}

	// On success the loop variable receives the refined value via assume;
	// the predicates have just been checked, so no runtime check remains.
	assumeArgs := cloneExprs(values)
	for _, pred := range preds {
		assumeArgs = append(assumeArgs, ast.CloneExpr(pred))
	}

	bind := &ast.Assign{
		StmtBase: ast.NewStmtBaseOn(node.Pos),
		Targets:  []ast.Expr{ast.CloneExpr(node.Target)},
		Value: &ast.Call{
			ExprBase: ast.NewExprBaseOn(call.Pos),
			Func:     &ast.Name{ExprBase: ast.NewExprBaseOn(call.Pos), Id: "assume"},
			Args:     assumeArgs,
		},
	}

	return []ast.Stmt{&ast.If{
		StmtBase: ast.NewStmtBaseOn(node.Pos),
		Cond:     cond,
		Body:     append([]ast.Stmt{bind}, node.Body...),
		Else:     node.Else,
	}}
}

// splitRefineArgs partitions refine/assume arguments into values and
// predicate references.
func (w *Walker) splitRefineArgs(call *ast.Call) (values, preds []ast.Expr) {
	for _, arg := range call.Args {
		if name, ok := arg.(*ast.Name); ok {
			if sym, ok := w.lookup(name.Id); ok && sym.DefKind == depm.DKFunction {
				preds = append(preds, arg)
				continue
			}
		}

		values = append(values, arg)
	}

	return values, preds
}

func cloneExprs(exprs []ast.Expr) []ast.Expr {
	out := make([]ast.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = ast.CloneExpr(e)
	}

	return out
}
