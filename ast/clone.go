package ast

import "pythoc/util"

// CloneExpr produces a deep copy of an expression.  Resolved types are not
// carried over: cloned nodes are re-checked in their new context.
func CloneExpr(expr Expr) Expr {
	if expr == nil {
		return nil
	}

	switch v := expr.(type) {
	case *Name:
		return &Name{ExprBase: NewExprBaseOn(v.Pos), Id: v.Id}
	case *Constant:
		return &Constant{ExprBase: NewExprBaseOn(v.Pos), Value: v.Value}
	case *Call:
		kws := make([]Keyword, len(v.Keywords))
		for i, kw := range v.Keywords {
			kws[i] = Keyword{Name: kw.Name, Value: CloneExpr(kw.Value)}
		}

		return &Call{
			ExprBase: NewExprBaseOn(v.Pos),
			Func:     CloneExpr(v.Func),
			Args:     util.Map(v.Args, CloneExpr),
			Keywords: kws,
		}
	case *Attribute:
		return &Attribute{ExprBase: NewExprBaseOn(v.Pos), Value: CloneExpr(v.Value), Attr: v.Attr}
	case *Subscript:
		return &Subscript{
			ExprBase: NewExprBaseOn(v.Pos),
			Value:    CloneExpr(v.Value),
			Indices:  util.Map(v.Indices, CloneExpr),
		}
	case *BinaryOp:
		return &BinaryOp{
			ExprBase: NewExprBaseOn(v.Pos),
			Op:       v.Op,
			Left:     CloneExpr(v.Left),
			Right:    CloneExpr(v.Right),
		}
	case *UnaryOp:
		return &UnaryOp{ExprBase: NewExprBaseOn(v.Pos), Op: v.Op, Operand: CloneExpr(v.Operand)}
	case *Compare:
		ops := make([]string, len(v.Ops))
		copy(ops, v.Ops)

		return &Compare{
			ExprBase:    NewExprBaseOn(v.Pos),
			Left:        CloneExpr(v.Left),
			Ops:         ops,
			Comparators: util.Map(v.Comparators, CloneExpr),
		}
	case *TupleExpr:
		return &TupleExpr{ExprBase: NewExprBaseOn(v.Pos), Elems: util.Map(v.Elems, CloneExpr)}
	case *Lambda:
		params := make([]string, len(v.Params))
		copy(params, v.Params)

		return &Lambda{ExprBase: NewExprBaseOn(v.Pos), Params: params, Body: CloneExpr(v.Body)}
	case *Yield:
		return &Yield{ExprBase: NewExprBaseOn(v.Pos), Value: CloneExpr(v.Value)}
	}

	return expr
}

// CloneStmt produces a deep copy of a statement.
func CloneStmt(stmt Stmt) Stmt {
	if stmt == nil {
		return nil
	}

	switch v := stmt.(type) {
	case *AnnAssign:
		var target *Name
		if v.Target != nil {
			target = CloneExpr(v.Target).(*Name)
		}

		return &AnnAssign{
			StmtBase: NewStmtBaseOn(v.Pos),
			Target:   target,
			Annot:    CloneExpr(v.Annot),
			Value:    CloneExpr(v.Value),
		}
	case *Assign:
		return &Assign{
			StmtBase: NewStmtBaseOn(v.Pos),
			Targets:  util.Map(v.Targets, CloneExpr),
			Value:    CloneExpr(v.Value),
		}
	case *ExprStmt:
		return &ExprStmt{StmtBase: NewStmtBaseOn(v.Pos), X: CloneExpr(v.X)}
	case *If:
		return &If{
			StmtBase: NewStmtBaseOn(v.Pos),
			Cond:     CloneExpr(v.Cond),
			Body:     CloneBlock(v.Body),
			Else:     CloneBlock(v.Else),
		}
	case *While:
		return &While{
			StmtBase: NewStmtBaseOn(v.Pos),
			Cond:     CloneExpr(v.Cond),
			Body:     CloneBlock(v.Body),
			Else:     CloneBlock(v.Else),
		}
	case *For:
		return &For{
			StmtBase: NewStmtBaseOn(v.Pos),
			Target:   CloneExpr(v.Target),
			Iter:     CloneExpr(v.Iter),
			Body:     CloneBlock(v.Body),
			Else:     CloneBlock(v.Else),
		}
	case *With:
		items := make([]WithItem, len(v.Items))
		for i, item := range v.Items {
			items[i] = WithItem{Context: CloneExpr(item.Context), Alias: item.Alias}
		}

		return &With{StmtBase: NewStmtBaseOn(v.Pos), Items: items, Body: CloneBlock(v.Body)}
	case *Match:
		cases := make([]MatchCase, len(v.Cases))
		for i, mc := range v.Cases {
			cases[i] = MatchCase{
				Pattern: ClonePattern(mc.Pattern),
				Guard:   CloneExpr(mc.Guard),
				Body:    CloneBlock(mc.Body),
			}
		}

		return &Match{StmtBase: NewStmtBaseOn(v.Pos), Subject: CloneExpr(v.Subject), Cases: cases}
	case *Return:
		return &Return{StmtBase: NewStmtBaseOn(v.Pos), Value: CloneExpr(v.Value)}
	case *Break:
		return &Break{StmtBase: NewStmtBaseOn(v.Pos)}
	case *Continue:
		return &Continue{StmtBase: NewStmtBaseOn(v.Pos)}
	case *Pass:
		return &Pass{StmtBase: NewStmtBaseOn(v.Pos)}
	}

	return stmt
}

// CloneBlock deep-copies a list of statements.
func CloneBlock(block []Stmt) []Stmt {
	if block == nil {
		return nil
	}

	return util.Map(block, CloneStmt)
}

// ClonePattern produces a deep copy of a match pattern.
func ClonePattern(pat Pattern) Pattern {
	if pat == nil {
		return nil
	}

	switch v := pat.(type) {
	case *MatchValue:
		return &MatchValue{PatternBase: PatternBase{NewNodeBaseOn(v.Pos)}, Value: CloneExpr(v.Value)}
	case *MatchAs:
		return &MatchAs{
			PatternBase: PatternBase{NewNodeBaseOn(v.Pos)},
			Inner:       ClonePattern(v.Inner),
			Name:        v.Name,
		}
	case *MatchOr:
		return &MatchOr{
			PatternBase:  PatternBase{NewNodeBaseOn(v.Pos)},
			Alternatives: util.Map(v.Alternatives, ClonePattern),
		}
	case *MatchSequence:
		return &MatchSequence{
			PatternBase: PatternBase{NewNodeBaseOn(v.Pos)},
			Elems:       util.Map(v.Elems, ClonePattern),
		}
	case *MatchClass:
		kws := make([]KeywordPattern, len(v.Keyword))
		for i, kw := range v.Keyword {
			kws[i] = KeywordPattern{Name: kw.Name, Pattern: ClonePattern(kw.Pattern)}
		}

		return &MatchClass{
			PatternBase: PatternBase{NewNodeBaseOn(v.Pos)},
			Cls:         CloneExpr(v.Cls),
			Positional:  util.Map(v.Positional, ClonePattern),
			Keyword:     kws,
		}
	}

	return pat
}
