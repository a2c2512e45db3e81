package inline

import "pythoc/ast"

// Classification partitions the identifiers appearing in a callee body into
// parameters, locals, and captures.  The classification is computed once,
// before any rewriting, and is an immutable input to the kernel: parameters
// and captures are never renamed, locals always are.
type Classification struct {
	Params   map[string]struct{}
	Locals   map[string]struct{}
	Captures map[string]struct{}
}

// Classify analyzes a callee body.  An identifier is:
//   - a parameter if it names one of the callee's formal parameters;
//   - a local if it is bound inside the body (assignment target, annotated
//     declaration, or loop target) and is not a parameter;
//   - a capture otherwise: a free name resolved in the enclosing scope.
func Classify(paramNames []string, body []ast.Stmt) Classification {
	cls := Classification{
		Params:   make(map[string]struct{}),
		Locals:   make(map[string]struct{}),
		Captures: make(map[string]struct{}),
	}

	for _, p := range paramNames {
		cls.Params[p] = struct{}{}
	}

	// First pass: collect every name bound inside the body.
	ast.WalkBlock(body, func(stmt ast.Stmt) bool {
		for _, target := range bindingTargets(stmt) {
			if _, isParam := cls.Params[target]; !isParam {
				cls.Locals[target] = struct{}{}
			}
		}

		return true
	})

	// Second pass: every referenced name that is neither a parameter nor a
	// local is a capture.
	ast.WalkBlock(body, func(stmt ast.Stmt) bool {
		ast.WalkStmtExprs(stmt, func(e ast.Expr) {
			ast.WalkExprNames(e, func(n *ast.Name) {
				if _, ok := cls.Params[n.Id]; ok {
					return
				}
				if _, ok := cls.Locals[n.Id]; ok {
					return
				}

				cls.Captures[n.Id] = struct{}{}
			})
		})

		return true
	})

	return cls
}

// bindingTargets returns the names a statement binds.
func bindingTargets(stmt ast.Stmt) []string {
	var targets []string

	collect := func(e ast.Expr) {
		if name, ok := e.(*ast.Name); ok {
			targets = append(targets, name.Id)
		} else if tup, ok := e.(*ast.TupleExpr); ok {
			for _, elem := range tup.Elems {
				if name, ok := elem.(*ast.Name); ok {
					targets = append(targets, name.Id)
				}
			}
		}
	}

	switch v := stmt.(type) {
	case *ast.AnnAssign:
		if v.Target != nil {
			targets = append(targets, v.Target.Id)
		}
	case *ast.Assign:
		for _, target := range v.Targets {
			collect(target)
		}
	case *ast.For:
		collect(v.Target)
	case *ast.With:
		for _, item := range v.Items {
			if item.Alias != "" {
				targets = append(targets, item.Alias)
			}
		}
	}

	return targets
}
