package cfg

import (
	"pythoc/ast"
	"pythoc/report"
)

// pendingJump records a goto awaiting label resolution.  All jumps resolve
// after the walk so that forward references to labels later in the function
// work.
type pendingJump struct {
	name   string
	isEnd  bool
	source *Block
	from   *Scope
	pos    *report.TextPosition
}

// Builder lowers a function body into a control flow graph and a scope tree.
// Defers are expanded into explicit call statements on every exit edge of
// their scope, so downstream analyses and the IR emitter see no defer
// registrations at all.
type Builder struct {
	g       *Graph
	cur     *Block
	scope   *Scope
	fnScope *Scope

	pending []pendingJump
	errors  []*report.CompileError

	// unreachableReported avoids a cascade of diagnostics for one dead
	// region.
	unreachableReported bool

	// lastUnwindExit is the final block id of the most recent unwind chain,
	// or -1 when the chain was empty.
	lastUnwindExit int
}

// Build constructs the CFG and scope tree for a function body.
func Build(body []ast.Stmt) (*Graph, *Scope, []*report.CompileError) {
	b := &Builder{g: NewGraph()}
	b.cur = b.g.Block(b.g.EntryID)
	b.fnScope = &Scope{Kind: ScopeFunction}
	b.scope = b.fnScope

	b.buildBlock(body)

	// Implicit return: unwind every open scope at fallthrough.
	if !b.cur.Terminated {
		b.emitUnwind(UnwoundScopes(b.scope, nil))
	}

	b.resolveJumps()

	return b.g, b.fnScope, b.errors
}

func (b *Builder) errorf(kind report.ErrorKind, pos *report.TextPosition, msg string, args ...interface{}) {
	b.errors = append(b.errors, report.Raise(kind, pos, msg, args...))
}

// startBlock makes a fresh block the current one without linking it.
func (b *Builder) startBlock() *Block {
	b.cur = b.g.NewBlock()
	b.unreachableReported = false
	return b.cur
}

// linkTo adds a fallthrough edge from the current block and moves to the
// target.
func (b *Builder) linkTo(target *Block) {
	if !b.cur.Terminated {
		b.g.AddEdge(b.cur.ID, target.ID, EdgeNormal)
	}

	b.cur = target
	b.unreachableReported = false
}

// -----------------------------------------------------------------------------

func (b *Builder) buildBlock(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		if b.cur.Terminated {
			if !b.unreachableReported {
				b.errorf(report.UnreachableAfterReturn, stmt.Position(),
					"unreachable statement")
				b.unreachableReported = true
			}

			continue
		}

		b.buildStmt(stmt)
	}
}

func (b *Builder) buildStmt(stmt ast.Stmt) {
	switch v := stmt.(type) {
	case *ast.If:
		b.buildIf(v)
	case *ast.While:
		b.buildLoop(stmt, v.Cond, nil, nil, v.Body, v.Else)
	case *ast.For:
		b.buildLoop(stmt, nil, v.Target, v.Iter, v.Body, v.Else)
	case *ast.With:
		b.buildWith(v)
	case *ast.Match:
		b.buildMatch(v)
	case *ast.Return:
		b.buildReturn(v)
	case *ast.Break:
		b.buildBreak(v)
	case *ast.Continue:
		b.buildContinue(v)
	case *ast.ExprStmt:
		if call, ok := v.X.(*ast.Call); ok {
			if name, ok := call.Func.(*ast.Name); ok {
				switch name.Id {
				case "defer":
					b.registerDefer(call)
					return
				case "goto", "goto_begin":
					b.buildGoto(call, false)
					return
				case "goto_end":
					b.buildGoto(call, true)
					return
				}
			}
		}

		b.cur.Stmts = append(b.cur.Stmts, stmt)
	case *ast.Pass:
		// no-op
	default:
		b.cur.Stmts = append(b.cur.Stmts, stmt)
	}
}

func (b *Builder) buildIf(node *ast.If) {
	condBlock := b.cur
	condBlock.Stmts = append(condBlock.Stmts, &ast.ExprStmt{
		StmtBase: ast.NewStmtBaseOn(node.Pos),
		X:        node.Cond,
	})

	end := b.g.NewBlock()

	// Then branch in its own scope.
	thenEntry := b.startBlock()
	b.g.AddEdge(condBlock.ID, thenEntry.ID, EdgeNormal)
	b.scope = b.scope.NewChild(ScopeBlock)
	b.buildBlock(node.Body)
	b.exitScopeTo(end)

	if len(node.Else) > 0 {
		elseEntry := b.startBlock()
		b.g.AddEdge(condBlock.ID, elseEntry.ID, EdgeNormal)
		b.scope = b.scope.NewChild(ScopeBlock)
		b.buildBlock(node.Else)
		b.exitScopeTo(end)
	} else {
		b.g.AddEdge(condBlock.ID, end.ID, EdgeNormal)
	}

	b.cur = end
	b.unreachableReported = false
}

// exitScopeTo runs the current scope's defers, pops it, and links to target.
func (b *Builder) exitScopeTo(target *Block) {
	if !b.cur.Terminated {
		b.emitDefers(b.scope)
		b.g.AddEdge(b.cur.ID, target.ID, EdgeNormal)
	}

	b.scope = b.scope.Parent
}

func (b *Builder) buildLoop(node ast.Stmt, cond ast.Expr, target, iter ast.Expr, body, elseBody []ast.Stmt) {
	head := b.g.NewBlock()
	b.linkTo(head)

	switch {
	case cond != nil:
		head.Stmts = append(head.Stmts, &ast.ExprStmt{
			StmtBase: ast.NewStmtBaseOn(node.Position()),
			X:        cond,
		})
	case iter != nil:
		// A for loop surviving to CFG construction iterates a runtime
		// sequence; the head binds the target from the iterable.
		head.Stmts = append(head.Stmts, &ast.Assign{
			StmtBase: ast.NewStmtBaseOn(node.Position()),
			Targets:  []ast.Expr{target},
			Value:    iter,
		})
	}

	end := b.g.NewBlock()

	loopScope := b.scope.NewChild(ScopeLoop)
	loopScope.HeadBlock = head.ID
	loopScope.BreakBlock = end.ID
	b.scope = loopScope

	// Loop body runs in a per-iteration scope.
	bodyEntry := b.startBlock()
	b.g.AddEdge(head.ID, bodyEntry.ID, EdgeNormal)
	b.scope = loopScope.NewChild(ScopeBlock)
	b.buildBlock(body)

	// Iteration end: run the body scope's defers and loop back.
	if !b.cur.Terminated {
		b.emitDefers(b.scope)
		b.g.AddEdge(b.cur.ID, head.ID, EdgeLoopBack)
	}

	// Normal completion leaves the loop scope and runs the else body.
	b.scope = loopScope.Parent

	if len(elseBody) > 0 {
		elseEntry := b.startBlock()
		b.g.AddEdge(head.ID, elseEntry.ID, EdgeNormal)
		b.scope = b.scope.NewChild(ScopeBlock)
		b.buildBlock(elseBody)
		b.exitScopeTo(end)
	} else {
		b.g.AddEdge(head.ID, end.ID, EdgeNormal)
	}

	b.cur = end
	b.unreachableReported = false
}

func (b *Builder) buildWith(node *ast.With) {
	// `with label("X"):` opens a label scope; any other with statement opens
	// a plain block scope (effect overrides are handled before CFG
	// construction).
	if name, ok := labelName(node); ok {
		b.buildLabel(node, name)
		return
	}

	b.scope = b.scope.NewChild(ScopeBlock)
	b.buildBlock(node.Body)

	end := b.g.NewBlock()
	b.exitScopeTo(end)
	b.cur = end
	b.unreachableReported = false
}

func (b *Builder) buildLabel(node *ast.With, name string) {
	begin := b.g.NewBlock()
	end := b.g.NewBlock()

	labelScope := b.scope.NewChild(ScopeLabel)
	labelScope.Label = name
	labelScope.BeginBlock = begin.ID
	labelScope.EndBlock = end.ID

	b.linkTo(begin)

	bodyEntry := b.startBlock()
	b.g.AddEdge(begin.ID, bodyEntry.ID, EdgeNormal)

	b.scope = labelScope
	b.buildBlock(node.Body)

	// Fallthrough out of the body runs the label's defers before reaching
	// the end target.
	if !b.cur.Terminated {
		b.emitDefers(labelScope)
		b.g.AddEdge(b.cur.ID, end.ID, EdgeNormal)
	}

	b.scope = labelScope.Parent
	b.cur = end
	b.unreachableReported = false
}

func (b *Builder) buildMatch(node *ast.Match) {
	subjectBlock := b.cur
	subjectBlock.Stmts = append(subjectBlock.Stmts, &ast.ExprStmt{
		StmtBase: ast.NewStmtBaseOn(node.Pos),
		X:        node.Subject,
	})

	end := b.g.NewBlock()

	for _, mc := range node.Cases {
		armEntry := b.startBlock()
		b.g.AddEdge(subjectBlock.ID, armEntry.ID, EdgeNormal)

		if mc.Guard != nil {
			armEntry.Stmts = append(armEntry.Stmts, &ast.ExprStmt{
				StmtBase: ast.NewStmtBaseOn(node.Pos),
				X:        mc.Guard,
			})
		}

		b.scope = b.scope.NewChild(ScopeBlock)
		b.buildBlock(mc.Body)
		b.exitScopeTo(end)
	}

	b.cur = end
	b.unreachableReported = false
}

func (b *Builder) buildReturn(node *ast.Return) {
	// The return value is evaluated first; then every open scope unwinds,
	// executing defers; then control leaves the function.
	b.cur.Stmts = append(b.cur.Stmts, node)
	b.cur.Terminated = true
	returnBlock := b.cur

	unwind := b.unwindBlocks(UnwoundScopes(b.scope, nil))
	if unwind != nil {
		b.g.AddEdge(returnBlock.ID, unwind.ID, EdgeNormal)
		b.g.ReturnBlocks = append(b.g.ReturnBlocks, b.lastUnwindExit)
	} else {
		b.g.ReturnBlocks = append(b.g.ReturnBlocks, returnBlock.ID)
	}
}

func (b *Builder) buildBreak(node *ast.Break) {
	loop := b.scope.EnclosingLoop()
	if loop == nil {
		b.errorf(report.LabelNotVisible, node.Pos, "break outside of loop")
		return
	}

	b.jumpTo(UnwoundScopes(b.scope, loop.Parent), loop.BreakBlock, EdgeNormal)
}

func (b *Builder) buildContinue(node *ast.Continue) {
	loop := b.scope.EnclosingLoop()
	if loop == nil {
		b.errorf(report.LabelNotVisible, node.Pos, "continue outside of loop")
		return
	}

	b.jumpTo(UnwoundScopes(b.scope, loop), loop.HeadBlock, EdgeLoopBack)
}

func (b *Builder) buildGoto(call *ast.Call, isEnd bool) {
	name, ok := gotoTarget(call)
	if !ok {
		b.errorf(report.LabelNotVisible, call.Pos, "goto requires a literal label name")
		return
	}

	b.pending = append(b.pending, pendingJump{
		name:   name,
		isEnd:  isEnd,
		source: b.cur,
		from:   b.scope,
		pos:    call.Pos,
	})
	b.cur.Terminated = true
	b.startBlock()
}

// -----------------------------------------------------------------------------

// emitDefers appends the scope's deferred calls to the current block in FIFO
// order.
func (b *Builder) emitDefers(scope *Scope) {
	for _, rec := range scope.Defers {
		b.cur.Stmts = append(b.cur.Stmts, &ast.ExprStmt{
			StmtBase: ast.NewStmtBaseOn(rec.Pos),
			X:        rec.Call,
		})
	}
}

// emitUnwind runs the defers of the given scopes, innermost first, in the
// current block.
func (b *Builder) emitUnwind(scopes []*Scope) {
	for _, scope := range scopes {
		b.emitDefers(scope)
	}
}

// unwindBlocks materializes an unwind chain as a fresh block holding the
// deferred calls of the given scopes, innermost scope first, each scope's
// records in FIFO order.  Returns nil if there is nothing to run.
func (b *Builder) unwindBlocks(scopes []*Scope) *Block {
	var stmts []ast.Stmt
	for _, scope := range scopes {
		for _, rec := range scope.Defers {
			stmts = append(stmts, &ast.ExprStmt{
				StmtBase: ast.NewStmtBaseOn(rec.Pos),
				X:        rec.Call,
			})
		}
	}

	if len(stmts) == 0 {
		b.lastUnwindExit = -1
		return nil
	}

	block := b.g.NewBlock()
	block.Stmts = stmts
	b.lastUnwindExit = block.ID
	return block
}

// jumpTo terminates the current block with a jump through an unwind chain.
func (b *Builder) jumpTo(unwound []*Scope, target int, kind EdgeKind) {
	source := b.cur
	source.Terminated = true

	if chain := b.unwindBlocks(unwound); chain != nil {
		b.g.AddEdge(source.ID, chain.ID, EdgeNormal)
		b.g.AddEdge(chain.ID, target, kind)
	} else {
		b.g.AddEdge(source.ID, target, kind)
	}

	b.startBlock()
}

func (b *Builder) registerDefer(call *ast.Call) {
	if len(call.Args) == 0 {
		b.errorf(report.TypeMismatch, call.Pos, "defer requires a callee argument")
		return
	}

	b.scope.Register(&DeferRecord{
		Call: &ast.Call{
			ExprBase: ast.NewExprBaseOn(call.Pos),
			Func:     call.Args[0],
			Args:     call.Args[1:],
		},
		Pos: call.Pos,
	})
}

// resolveJumps connects all recorded gotos to their labels, enforcing
// visibility: labels are visible from their own scope, ancestors, and
// uncles; goto_end additionally rejects uncles because the end target lies
// inside the label body.
func (b *Builder) resolveJumps() {
	for _, jump := range b.pending {
		label := FindLabel(jump.from, jump.name)
		if label == nil {
			b.errorf(report.LabelNotVisible, jump.pos, "label `%s` is not visible", jump.name)
			continue
		}

		if jump.isEnd {
			if !VisibleForGotoEnd(jump.from, label) {
				b.errorf(report.GotoEndToUncle, jump.pos,
					"goto_end target `%s` must be the current label or an ancestor", jump.name)
				continue
			}

			// Unwind through the label itself: its defers run before its end
			// target.
			b.connectJump(jump.source, UnwoundScopes(jump.from, label.Parent), label.EndBlock)
		} else {
			// Re-entering the label: unwind everything below the label's
			// parent, including the label scope when jumping from inside it.
			b.connectJump(jump.source, UnwoundScopes(jump.from, label.Parent), label.BeginBlock)
		}
	}
}

func (b *Builder) connectJump(source *Block, unwound []*Scope, target int) {
	if chain := b.unwindBlocks(unwound); chain != nil {
		b.g.AddEdge(source.ID, chain.ID, EdgeNormal)
		b.g.AddEdge(chain.ID, target, EdgeNormal)
	} else {
		b.g.AddEdge(source.ID, target, EdgeNormal)
	}
}

// -----------------------------------------------------------------------------

// labelName extracts the label name from a `with label("X"):` statement.
func labelName(node *ast.With) (string, bool) {
	if len(node.Items) != 1 {
		return "", false
	}

	call, ok := node.Items[0].Context.(*ast.Call)
	if !ok {
		return "", false
	}

	fn, ok := call.Func.(*ast.Name)
	if !ok || fn.Id != "label" || len(call.Args) != 1 {
		return "", false
	}

	constant, ok := call.Args[0].(*ast.Constant)
	if !ok {
		return "", false
	}

	name, ok := constant.Value.(string)
	return name, ok
}

// gotoTarget extracts the literal label name from a goto intrinsic call.
func gotoTarget(call *ast.Call) (string, bool) {
	if len(call.Args) != 1 {
		return "", false
	}

	constant, ok := call.Args[0].(*ast.Constant)
	if !ok {
		return "", false
	}

	name, ok := constant.Value.(string)
	return name, ok
}
