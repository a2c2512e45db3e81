package inline

import (
	"pythoc/ast"
	"pythoc/report"
)

// Context carries the renaming information an exit rule needs while
// transforming exit nodes.
type Context struct {
	// RenameMap maps original local names to their fresh inlined names.
	RenameMap map[string]string

	// Provenance is the inline provenance chain for positions synthesized by
	// this expansion.
	Provenance report.Provenance
}

// renameExpr applies the context's rename map to a fresh copy of the
// expression.  Only local names appear in the map; parameters and captures
// pass through untouched.
func (ctx *Context) renameExpr(expr ast.Expr) ast.Expr {
	cloned := ast.CloneExpr(expr)
	renameExprNames(cloned, ctx.RenameMap)
	return cloned
}

// ExitRule is the strategy that tells the kernel how to transform exit
// statements in a callee body.  Different inlining scenarios require
// different exit handling: inline/closure calls turn returns into
// assignments, generator expansion turns yields into loop-body splices, and
// macro expansion substitutes arbitrary statements.
type ExitRule interface {
	// IsExitNode reports whether the statement is an exit node this rule
	// transforms.
	IsExitNode(stmt ast.Stmt) bool

	// TransformExit transforms a single exit node into its replacement
	// statements.
	TransformExit(stmt ast.Stmt, ctx *Context) []ast.Stmt
}

// -----------------------------------------------------------------------------

// ReturnRule transforms return statements for inline functions and closures:
// `return expr` becomes `{result_var} = expr`, and a plain `return` becomes a
// no-op.  When the callee has early returns the expansion runs inside an end
// label, and every transformed return jumps to it so the rest of the body is
// skipped.  A callee inlined under this rule must be free of yields.
type ReturnRule struct {
	// ResultVar is the variable receiving the return value.  If empty, the
	// return value is discarded.
	ResultVar string

	// EndLabel, when set, is the label scope wrapping the expansion; each
	// transformed return exits through it.
	EndLabel string
}

func (rr *ReturnRule) IsExitNode(stmt ast.Stmt) bool {
	_, ok := stmt.(*ast.Return)
	return ok
}

func (rr *ReturnRule) TransformExit(stmt ast.Stmt, ctx *Context) []ast.Stmt {
	ret := stmt.(*ast.Return)

	var stmts []ast.Stmt
	if ret.Value != nil && rr.ResultVar != "" {
		target := &ast.Name{ExprBase: ast.NewExprBaseOn(ret.Pos), Id: rr.ResultVar}
		stmts = append(stmts, &ast.Assign{
			StmtBase: ast.NewStmtBaseOn(ret.Pos),
			Targets:  []ast.Expr{target},
			Value:    ctx.renameExpr(ret.Value),
		})
	}

	if rr.EndLabel != "" {
		stmts = append(stmts, gotoEndCall(rr.EndLabel, ret.Pos))
	}

	return stmts
}

// -----------------------------------------------------------------------------

// YieldRule transforms a generator body for expansion into a caller's for
// loop.  Each `yield e` becomes `{loop_var} = e` followed by a copy of the
// caller's loop body; a tuple yield becomes a multi-assignment.  A value-less
// `return` in the generator becomes a jump to the break label.  Breaks and
// continues in the spliced loop body that belong to the caller's for target
// become jumps to the break and continue labels respectively.
type YieldRule struct {
	// LoopTarget is the caller's for-loop target as written, a Name or a
	// TupleExpr; each yield assigns a clone of it.
	LoopTarget ast.Expr

	// LoopBody is the caller's for-loop body.
	LoopBody []ast.Stmt

	// ElseBody is the caller's for-else body; emitted on normal generator
	// completion.
	ElseBody []ast.Stmt

	// BreakLabel and ContinueLabel are the label scopes the expanded jumps
	// target: BreakLabel ends the whole expansion, ContinueLabel ends the
	// current yield's emitted loop body.
	BreakLabel    string
	ContinueLabel string
}

func (yr *YieldRule) IsExitNode(stmt ast.Stmt) bool {
	switch v := stmt.(type) {
	case *ast.ExprStmt:
		_, ok := v.X.(*ast.Yield)
		return ok
	case *ast.Return:
		return v.Value == nil
	}

	return false
}

func (yr *YieldRule) TransformExit(stmt ast.Stmt, ctx *Context) []ast.Stmt {
	if ret, ok := stmt.(*ast.Return); ok {
		// A value-less return ends the generator: jump past the expansion.
		return []ast.Stmt{gotoEndCall(yr.BreakLabel, ret.Pos)}
	}

	yield := stmt.(*ast.ExprStmt).X.(*ast.Yield)

	var stmts []ast.Stmt
	if yield.Value != nil {
		stmts = append(stmts, &ast.Assign{
			StmtBase: ast.NewStmtBaseOn(yield.Pos),
			Targets:  []ast.Expr{ast.CloneExpr(yr.LoopTarget)},
			Value:    ctx.renameExpr(yield.Value),
		})
	}

	// The spliced loop body runs inside a per-yield continue label so that
	// `continue` resumes the generator right before its next iteration.
	body := ast.CloneBlock(yr.LoopBody)
	body = rewriteLoopJumps(body, yr.BreakLabel, yr.ContinueLabel)

	stmts = append(stmts, labelScope(yr.ContinueLabel, body, stmt.Position()))
	return stmts
}

// rewriteLoopJumps rewrites breaks and continues that textually belong to the
// caller's for loop: those not nested inside a deeper loop within the spliced
// body.
func rewriteLoopJumps(body []ast.Stmt, breakLabel, continueLabel string) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(body))

	for _, stmt := range body {
		switch v := stmt.(type) {
		case *ast.Break:
			out = append(out, gotoEndCall(breakLabel, v.Pos))
		case *ast.Continue:
			out = append(out, gotoEndCall(continueLabel, v.Pos))
		case *ast.If:
			out = append(out, &ast.If{
				StmtBase: ast.NewStmtBaseOn(v.Pos),
				Cond:     v.Cond,
				Body:     rewriteLoopJumps(v.Body, breakLabel, continueLabel),
				Else:     rewriteLoopJumps(v.Else, breakLabel, continueLabel),
			})
		case *ast.With:
			out = append(out, &ast.With{
				StmtBase: ast.NewStmtBaseOn(v.Pos),
				Items:    v.Items,
				Body:     rewriteLoopJumps(v.Body, breakLabel, continueLabel),
			})
		case *ast.Match:
			cases := make([]ast.MatchCase, len(v.Cases))
			for i, mc := range v.Cases {
				cases[i] = ast.MatchCase{
					Pattern: mc.Pattern,
					Guard:   mc.Guard,
					Body:    rewriteLoopJumps(mc.Body, breakLabel, continueLabel),
				}
			}

			out = append(out, &ast.Match{StmtBase: ast.NewStmtBaseOn(v.Pos), Subject: v.Subject, Cases: cases})
		default:
			// Breaks inside nested For/While loops belong to those loops.
			out = append(out, stmt)
		}
	}

	return out
}

// -----------------------------------------------------------------------------

// MacroRule performs an arbitrary compile-time transform of exit nodes.
type MacroRule struct {
	// Matches reports whether a statement is an exit node.  If nil, return
	// statements are matched.
	Matches func(ast.Stmt) bool

	// Substitute produces the replacement statements.
	Substitute func(ast.Stmt, *Context) []ast.Stmt
}

func (mr *MacroRule) IsExitNode(stmt ast.Stmt) bool {
	if mr.Matches != nil {
		return mr.Matches(stmt)
	}

	_, ok := stmt.(*ast.Return)
	return ok
}

func (mr *MacroRule) TransformExit(stmt ast.Stmt, ctx *Context) []ast.Stmt {
	return mr.Substitute(stmt, ctx)
}

// -----------------------------------------------------------------------------

// gotoEndCall synthesizes a `goto_end("label")` intrinsic call statement.
func gotoEndCall(label string, pos *report.TextPosition) ast.Stmt {
	return &ast.ExprStmt{
		StmtBase: ast.NewStmtBaseOn(pos),
		X: &ast.Call{
			ExprBase: ast.NewExprBaseOn(pos),
			Func:     &ast.Name{ExprBase: ast.NewExprBaseOn(pos), Id: "goto_end"},
			Args:     []ast.Expr{&ast.Constant{ExprBase: ast.NewExprBaseOn(pos), Value: label}},
		},
	}
}

// labelScope synthesizes a `with label("name"):` statement wrapping the body.
func labelScope(name string, body []ast.Stmt, pos *report.TextPosition) ast.Stmt {
	if len(body) == 0 {
		body = []ast.Stmt{&ast.Pass{StmtBase: ast.NewStmtBaseOn(pos)}}
	}

	return &ast.With{
		StmtBase: ast.NewStmtBaseOn(pos),
		Items: []ast.WithItem{{
			Context: &ast.Call{
				ExprBase: ast.NewExprBaseOn(pos),
				Func:     &ast.Name{ExprBase: ast.NewExprBaseOn(pos), Id: "label"},
				Args:     []ast.Expr{&ast.Constant{ExprBase: ast.NewExprBaseOn(pos), Value: name}},
			},
		}},
		Body: body,
	}
}
