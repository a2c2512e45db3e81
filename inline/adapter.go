package inline

import (
	"fmt"

	"pythoc/ast"
	"pythoc/report"
)

// GeneratorInfo summarizes the exit-node shape of a function body.
type GeneratorInfo struct {
	HasYield       bool
	HasValueReturn bool
}

// InspectExits scans a function body for yields and value-bearing returns.
func InspectExits(body []ast.Stmt) GeneratorInfo {
	var info GeneratorInfo

	ast.WalkBlock(body, func(stmt ast.Stmt) bool {
		switch v := stmt.(type) {
		case *ast.ExprStmt:
			if _, ok := v.X.(*ast.Yield); ok {
				info.HasYield = true
			}
		case *ast.Return:
			if v.Value != nil {
				info.HasValueReturn = true
			}
		}

		return true
	})

	return info
}

// -----------------------------------------------------------------------------

// ExpandGeneratorLoop inlines a for loop over a generator call.  The loop
//
//	for x in gen(args): <body>
//	else: <else>
//
// expands to a label scope containing the parameter bindings and the
// generator body with every yield replaced by `x = value` plus a copy of the
// loop body; the else body is emitted at the end of the scope so a break in
// the loop body (a jump to the scope end's enclosing label) skips it.
//
// The callee must contain at least one yield and no value-bearing return.
func (k *Kernel) ExpandGeneratorLoop(forNode *ast.For, calleeName string, callee *ast.FuncDef, call *ast.Call, prov report.Provenance) ([]ast.Stmt, *report.CompileError) {
	info := InspectExits(callee.Body)
	if !info.HasYield {
		return nil, report.Raise(report.TypeMismatch, forNode.Pos,
			"`%s` is not a generator: it contains no yield", calleeName)
	}
	if info.HasValueReturn {
		return nil, report.Raise(report.TypeMismatch, forNode.Pos,
			"generator `%s` must not return a value", calleeName)
	}

	op, err := k.NewOp(calleeName, callee, call.Args, nil, forNode.Pos, prov)
	if err != nil {
		return nil, report.Raise(report.TypeMismatch, forNode.Pos, "%s", err.Error())
	}

	breakLabel := fmt.Sprintf("gen_break_%d", op.InlineID)
	continueLabel := fmt.Sprintf("gen_continue_%d", op.InlineID)

	rule := &YieldRule{
		LoopTarget:    forNode.Target,
		LoopBody:      forNode.Body,
		ElseBody:      forNode.Else,
		BreakLabel:    breakLabel,
		ContinueLabel: continueLabel,
	}
	op.Rule = rule

	inlined, cerr := k.Expand(op)
	if cerr != nil {
		return nil, cerr
	}

	// Normal completion falls through to the else body inside the break
	// label; a break jumps to the label end, past it.
	inlined = append(inlined, ast.CloneBlock(rule.ElseBody)...)
	expansion := []ast.Stmt{labelScope(breakLabel, inlined, forNode.Pos)}

	// Pre-declare the loop variable: yields only assign to it.
	if target, ok := forNode.Target.(*ast.Name); ok && callee.Returns != nil {
		decl := &ast.AnnAssign{
			StmtBase: ast.NewStmtBaseOn(forNode.Pos),
			Target:   ast.CloneExpr(target).(*ast.Name),
			Annot:    ast.CloneExpr(callee.Returns),
		}

		expansion = append([]ast.Stmt{decl}, expansion...)
	}

	return expansion, nil
}

// -----------------------------------------------------------------------------

// ExpandCall inlines a plain (non-generator) call statement or expression:
// the callee's returns become assignments to resultVar.  The callee must be
// free of yields.
func (k *Kernel) ExpandCall(calleeName string, callee *ast.FuncDef, call *ast.Call, resultVar string, prov report.Provenance) ([]ast.Stmt, *report.CompileError) {
	info := InspectExits(callee.Body)
	if info.HasYield {
		return nil, report.Raise(report.TypeMismatch, call.Pos,
			"cannot inline call to generator `%s` outside a for loop", calleeName)
	}

	op, err := k.NewOp(calleeName, callee, call.Args, nil, call.Pos, prov)
	if err != nil {
		return nil, report.Raise(report.TypeMismatch, call.Pos, "%s", err.Error())
	}

	// A callee whose only return is its final statement expands to straight
	// line code; early returns escape through an end label instead.
	endLabel := ""
	if hasEarlyReturn(callee.Body) {
		endLabel = fmt.Sprintf("inline_ret_%d", op.InlineID)
	}

	op.Rule = &ReturnRule{ResultVar: resultVar, EndLabel: endLabel}

	stmts, cerr := k.Expand(op)
	if cerr != nil {
		return nil, cerr
	}

	if endLabel != "" {
		stmts = []ast.Stmt{labelScope(endLabel, stmts, call.Pos)}
	}

	return stmts, nil
}

// hasEarlyReturn reports whether any return sits before the end of the body
// or inside nested control flow.
func hasEarlyReturn(body []ast.Stmt) bool {
	for i, stmt := range body {
		if _, ok := stmt.(*ast.Return); ok {
			if i != len(body)-1 {
				return true
			}

			continue
		}

		nested := false
		ast.WalkBlock([]ast.Stmt{stmt}, func(inner ast.Stmt) bool {
			if inner == stmt {
				return true
			}

			if _, ok := inner.(*ast.Return); ok {
				nested = true
			}

			return true
		})

		if nested {
			return true
		}
	}

	return false
}

// ExpandLambda inlines a lambda call: the lambda is treated as a
// single-expression function with an implicit value-bearing return.
func (k *Kernel) ExpandLambda(lambda *ast.Lambda, call *ast.Call, resultVar string, prov report.Provenance) ([]ast.Stmt, *report.CompileError) {
	fn := &ast.FuncDef{
		DefBase: ast.NewDefBase(nil),
		Name:    "<lambda>",
		Params:  lambdaParams(lambda),
		Body: []ast.Stmt{&ast.Return{
			StmtBase: ast.NewStmtBaseOn(lambda.Pos),
			Value:    lambda.Body,
		}},
	}

	return k.ExpandCall(fmt.Sprintf("<lambda_%p>", lambda), fn, call, resultVar, prov)
}

func lambdaParams(lambda *ast.Lambda) []ast.Param {
	params := make([]ast.Param, len(lambda.Params))
	for i, name := range lambda.Params {
		params[i] = ast.Param{Name: name}
	}

	return params
}
