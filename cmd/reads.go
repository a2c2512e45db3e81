package cmd

import "pythoc/ast"

// scanEffectReads populates the effect read graph for one function body:
// every `effect.N` access becomes a direct read, every call by name to a
// registered function unit becomes a call edge.  The scan is purely syntactic; resolution happens later.
func (c *Compiler) scanEffectReads(fn string, body []ast.Stmt) {
	ast.WalkBlock(body, func(stmt ast.Stmt) bool {
		ast.WalkStmtExprs(stmt, func(e ast.Expr) {
			c.scanExprReads(fn, e)
		})

		return true
	})
}

func (c *Compiler) scanExprReads(fn string, expr ast.Expr) {
	switch v := expr.(type) {
	case *ast.Attribute:
		if base, ok := v.Value.(*ast.Name); ok && base.Id == "effect" {
			c.reads.AddRead(fn, v.Attr)
			return
		}

		c.scanExprReads(fn, v.Value)
	case *ast.Call:
		if name, ok := v.Func.(*ast.Name); ok {
			if _, isFunc := c.funcUnits[name.Id]; isFunc {
				c.reads.AddCall(fn, name.Id)
			}
		} else {
			c.scanExprReads(fn, v.Func)
		}

		for _, arg := range v.Args {
			c.scanExprReads(fn, arg)
		}
		for _, kw := range v.Keywords {
			c.scanExprReads(fn, kw.Value)
		}
	case *ast.Subscript:
		c.scanExprReads(fn, v.Value)
		for _, index := range v.Indices {
			c.scanExprReads(fn, index)
		}
	case *ast.BinaryOp:
		c.scanExprReads(fn, v.Left)
		c.scanExprReads(fn, v.Right)
	case *ast.UnaryOp:
		c.scanExprReads(fn, v.Operand)
	case *ast.Compare:
		c.scanExprReads(fn, v.Left)
		for _, cmp := range v.Comparators {
			c.scanExprReads(fn, cmp)
		}
	case *ast.TupleExpr:
		for _, elem := range v.Elems {
			c.scanExprReads(fn, elem)
		}
	case *ast.Lambda:
		c.scanExprReads(fn, v.Body)
	case *ast.Yield:
		if v.Value != nil {
			c.scanExprReads(fn, v.Value)
		}
	}
}
