package inline

import (
	"fmt"

	"pythoc/ast"
	"pythoc/report"
)

// Op is an immutable record describing one inlining operation: the callee
// body to substitute, the call site, the classification of the callee's
// identifiers, and the exit rule driving exit-node transformation.
type Op struct {
	// CalleeName is the callee's symbol name, used for recursion detection
	// and provenance.
	CalleeName string

	// Body is the callee's body.
	Body []ast.Stmt

	// ParamNames are the callee's formal parameter names in declaration
	// order.
	ParamNames []string

	// Args are the call-site argument expressions, positionally matched to
	// the parameters.
	Args []ast.Expr

	// Cls is the callee's identifier classification, computed before any
	// rewriting.
	Cls Classification

	// InlineID is the unique id of this operation, drawn from the kernel's
	// monotonic counter.
	InlineID int

	// Rule is the exit rule applied to the callee's exit nodes.
	Rule ExitRule

	// CallPos is the position of the call site.
	CallPos *report.TextPosition

	// Provenance is the provenance chain of the caller, extended by this
	// expansion for any nested diagnostics.
	Provenance report.Provenance
}

// Kernel uniformly implements closure inlining, generator inlining, and
// macro-style expansion by AST substitution.  Rename hygiene rests on a
// sequential uniqueness counter and on the precomputed identifier
// classification: only locals are renamed, parameters and captures never are.
type Kernel struct {
	// nextID is the monotonic counter behind inline ids.  It is process-wide
	// unique within one driver session.
	nextID int

	// active is the set of callee names currently being expanded, used to
	// reject recursive inlining.
	active map[string]struct{}
}

// NewKernel creates a new inline kernel.
func NewKernel() *Kernel {
	return &Kernel{active: make(map[string]struct{})}
}

// NewOp builds an inline operation for the given callee and call site.  The
// argument count must match the parameter count.
func (k *Kernel) NewOp(calleeName string, callee *ast.FuncDef, args []ast.Expr, rule ExitRule, callPos *report.TextPosition, prov report.Provenance) (*Op, error) {
	paramNames := callee.ParamNames()
	if len(args) != len(paramNames) {
		return nil, fmt.Errorf("call to `%s` passes %d arguments for %d parameters",
			calleeName, len(args), len(paramNames))
	}

	k.nextID++

	return &Op{
		CalleeName: calleeName,
		Body:       callee.Body,
		ParamNames: paramNames,
		Args:       args,
		Cls:        Classify(paramNames, callee.Body),
		InlineID:   k.nextID,
		Rule:       rule,
		CallPos:    callPos,
		Provenance: prov.Extend(calleeName, callPos),
	}, nil
}

// Expand executes an inline operation, returning the ordered list of
// statements to splice at the call site.
func (k *Kernel) Expand(op *Op) ([]ast.Stmt, *report.CompileError) {
	if _, ok := k.active[op.CalleeName]; ok {
		return nil, report.Raise(report.RecursiveInline, op.CallPos,
			"recursive inlining of `%s`", op.CalleeName)
	}

	k.active[op.CalleeName] = struct{}{}
	defer delete(k.active, op.CalleeName)

	// Build the rename map covering only locals.  Each local maps to a fresh
	// name suffixed with this operation's id.
	ctx := &Context{
		RenameMap:  make(map[string]string, len(op.Cls.Locals)),
		Provenance: op.Provenance,
	}
	for local := range op.Cls.Locals {
		ctx.RenameMap[local] = fmt.Sprintf("%s_inline_%d", local, op.InlineID)
	}

	// Emit binding statements: one `p_i = arg_i` per parameter in declaration
	// order.  Arguments evaluate left to right and side effects happen
	// exactly once.
	stmts := make([]ast.Stmt, 0, len(op.ParamNames)+len(op.Body))
	for i, param := range op.ParamNames {
		target := &ast.Name{ExprBase: ast.NewExprBaseOn(op.CallPos), Id: param}
		stmts = append(stmts, &ast.Assign{
			StmtBase: ast.NewStmtBaseOn(op.CallPos),
			Targets:  []ast.Expr{target},
			Value:    op.Args[i],
		})
	}

	// Walk the callee body, substituting names and transforming exit nodes.
	body, err := k.transformBlock(op.Body, op.Rule, ctx)
	if err != nil {
		return nil, err
	}

	return append(stmts, body...), nil
}

// transformBlock clones and rewrites one block of the callee body.
func (k *Kernel) transformBlock(block []ast.Stmt, rule ExitRule, ctx *Context) ([]ast.Stmt, *report.CompileError) {
	var out []ast.Stmt

	for _, stmt := range block {
		cloned := ast.CloneStmt(stmt)

		if rule.IsExitNode(cloned) {
			out = append(out, rule.TransformExit(cloned, ctx)...)
			continue
		}

		rewritten, err := k.rewriteStmt(cloned, rule, ctx)
		if err != nil {
			return nil, err
		}

		out = append(out, rewritten)
	}

	return out, nil
}

// rewriteStmt renames the statement's own expressions and recurses into its
// nested blocks.
func (k *Kernel) rewriteStmt(stmt ast.Stmt, rule ExitRule, ctx *Context) (ast.Stmt, *report.CompileError) {
	renameBlock := func(block []ast.Stmt) ([]ast.Stmt, *report.CompileError) {
		return k.transformBlock(block, rule, ctx)
	}

	switch v := stmt.(type) {
	case *ast.If:
		body, err := renameBlock(v.Body)
		if err != nil {
			return nil, err
		}
		elseBody, err := renameBlock(v.Else)
		if err != nil {
			return nil, err
		}

		renameStmtExprs(v, ctx.RenameMap)
		v.Body, v.Else = body, elseBody
		return v, nil
	case *ast.While:
		body, err := renameBlock(v.Body)
		if err != nil {
			return nil, err
		}
		elseBody, err := renameBlock(v.Else)
		if err != nil {
			return nil, err
		}

		renameStmtExprs(v, ctx.RenameMap)
		v.Body, v.Else = body, elseBody
		return v, nil
	case *ast.For:
		body, err := renameBlock(v.Body)
		if err != nil {
			return nil, err
		}
		elseBody, err := renameBlock(v.Else)
		if err != nil {
			return nil, err
		}

		renameStmtExprs(v, ctx.RenameMap)
		v.Body, v.Else = body, elseBody
		return v, nil
	case *ast.With:
		body, err := renameBlock(v.Body)
		if err != nil {
			return nil, err
		}

		renameStmtExprs(v, ctx.RenameMap)
		v.Body = body
		return v, nil
	case *ast.Match:
		renameStmtExprs(v, ctx.RenameMap)
		for i := range v.Cases {
			body, err := renameBlock(v.Cases[i].Body)
			if err != nil {
				return nil, err
			}

			v.Cases[i].Body = body
			renamePattern(v.Cases[i].Pattern, ctx.RenameMap)
		}

		return v, nil
	default:
		renameStmtExprs(stmt, ctx.RenameMap)
		return stmt, nil
	}
}

// -----------------------------------------------------------------------------

// renameExprNames rewrites Name nodes in place per the rename map.
func renameExprNames(expr ast.Expr, renameMap map[string]string) {
	ast.WalkExprNames(expr, func(n *ast.Name) {
		if fresh, ok := renameMap[n.Id]; ok {
			n.Id = fresh
		}
	})
}

// renameStmtExprs renames the expressions directly held by a statement.
func renameStmtExprs(stmt ast.Stmt, renameMap map[string]string) {
	ast.WalkStmtExprs(stmt, func(e ast.Expr) {
		renameExprNames(e, renameMap)
	})
}

// renamePattern renames capture bindings inside a match pattern.
func renamePattern(pat ast.Pattern, renameMap map[string]string) {
	switch v := pat.(type) {
	case *ast.MatchValue:
		renameExprNames(v.Value, renameMap)
	case *ast.MatchAs:
		if fresh, ok := renameMap[v.Name]; ok {
			v.Name = fresh
		}
		if v.Inner != nil {
			renamePattern(v.Inner, renameMap)
		}
	case *ast.MatchOr:
		for _, alt := range v.Alternatives {
			renamePattern(alt, renameMap)
		}
	case *ast.MatchSequence:
		for _, elem := range v.Elems {
			renamePattern(elem, renameMap)
		}
	case *ast.MatchClass:
		for _, sub := range v.Positional {
			renamePattern(sub, renameMap)
		}
		for _, kw := range v.Keyword {
			renamePattern(kw.Pattern, renameMap)
		}
	}
}
