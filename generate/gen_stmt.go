package generate

import (
	"pythoc/ast"
	"pythoc/match"
	"pythoc/report"
	"pythoc/typing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// labelTargets records the jump blocks of one label for the duration of the
// enclosing function; uncles remain addressable after their scope pops.
type labelTargets struct {
	begin, end *ir.Block

	// depth is the index the label scope occupied on the scope stack, used
	// to decide which defers run on a jump.
	depth int
}

func (g *Generator) genBlockStmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		if g.block.Term != nil {
			// The checker already rejected truly unreachable user code;
			// anything here is residue of jump lowering.
			return
		}

		g.genStmt(stmt)
	}
}

func (g *Generator) genStmt(stmt ast.Stmt) {
	switch v := stmt.(type) {
	case *ast.AnnAssign:
		g.genAnnAssign(v)
	case *ast.Assign:
		g.genAssign(v)
	case *ast.ExprStmt:
		g.genExprStmt(v)
	case *ast.If:
		g.genIf(v)
	case *ast.While:
		g.genWhile(v)
	case *ast.With:
		g.genWith(v)
	case *ast.Match:
		g.genMatch(v)
	case *ast.Return:
		g.genReturn(v)
	case *ast.Break:
		g.genBreak()
	case *ast.Continue:
		g.genContinue()
	case *ast.Pass:
		// no-op
	case *ast.For:
		report.ReportICE("for loop survived to IR emission")
	default:
		report.ReportICE("cannot lower statement")
	}
}

func (g *Generator) genAnnAssign(node *ast.AnnAssign) {
	if node.Target == nil {
		return
	}

	declared := g.varTypes[node.Target.Id]
	if declared == nil {
		declared = node.Target.Type()
	}

	llTyp := g.convType(declared)
	if types.Equal(llTyp, types.Void) {
		return
	}

	slot := g.block.NewAlloca(llTyp)
	g.defineLocal(node.Target.Id, slot, true)

	if node.Value != nil {
		g.block.NewStore(g.genExpr(node.Value), slot)
	}
}

func (g *Generator) genAssign(node *ast.Assign) {
	val := g.genExpr(node.Value)

	for _, target := range node.Targets {
		switch t := target.(type) {
		case *ast.Name:
			if ident, ok := g.lookupLocal(t.Id); ok {
				g.block.NewStore(val, ident.Val)
				continue
			}

			slot := g.block.NewAlloca(val.Type())
			g.block.NewStore(val, slot)
			g.defineLocal(t.Id, slot, true)
		case *ast.Attribute, *ast.Subscript:
			if addr := g.genAddr(target); addr != nil {
				g.block.NewStore(val, addr)
			}
		}
	}
}

func (g *Generator) genExprStmt(node *ast.ExprStmt) {
	call, ok := node.X.(*ast.Call)
	if !ok {
		g.genExpr(node.X)
		return
	}

	if name, isName := call.Func.(*ast.Name); isName {
		switch name.Id {
		case "defer":
			// Registration captures the call; emission happens on the
			// scope's exit edges.
			g.currentScope().defers = append(g.currentScope().defers, &ast.Call{
				ExprBase: ast.NewExprBaseOn(call.Pos),
				Func:     call.Args[0],
				Args:     call.Args[1:],
			})
			return
		case "goto", "goto_begin":
			g.genGoto(call, false)
			return
		case "goto_end":
			g.genGoto(call, true)
			return
		}
	}

	g.genExpr(node.X)
}

// -----------------------------------------------------------------------------

func (g *Generator) genIf(node *ast.If) {
	cond := g.genExpr(node.Cond)

	thenBlock := g.newBlock("if.then")
	endBlock := g.newBlock("if.end")
	elseBlock := endBlock
	if len(node.Else) > 0 {
		elseBlock = g.newBlock("if.else")
	}

	g.block.NewCondBr(cond, thenBlock, elseBlock)

	g.block = thenBlock
	g.genScopedBlock(node.Body)
	if g.block.Term == nil {
		g.block.NewBr(endBlock)
	}

	if len(node.Else) > 0 {
		g.block = elseBlock
		g.genScopedBlock(node.Else)
		if g.block.Term == nil {
			g.block.NewBr(endBlock)
		}
	}

	g.block = endBlock
}

// genScopedBlock emits a nested block in its own scope, running the scope's
// defers on fallthrough.
func (g *Generator) genScopedBlock(stmts []ast.Stmt) {
	g.pushScope()
	g.pushGenScope(&genScope{})

	g.genBlockStmts(stmts)
	if g.block.Term == nil {
		g.emitDefers(g.currentScope())
	}

	g.popGenScope()
	g.popScope()
}

func (g *Generator) genWhile(node *ast.While) {
	head := g.newBlock("while.head")
	body := g.newBlock("while.body")
	end := g.newBlock("while.end")

	elseBlock := end
	if len(node.Else) > 0 {
		elseBlock = g.newBlock("while.else")
	}

	g.block.NewBr(head)

	g.block = head
	cond := g.genExpr(node.Cond)
	g.block.NewCondBr(cond, body, elseBlock)

	loopScope := &genScope{isLoop: true, loopHead: head, loopBreak: end}
	g.pushGenScope(loopScope)
	g.pushScope()

	g.block = body
	g.genScopedBlock(node.Body)
	if g.block.Term == nil {
		g.block.NewBr(head)
	}

	g.popScope()
	g.popGenScope()

	// The else body runs only on normal completion; breaks branch straight
	// to end.
	if len(node.Else) > 0 {
		g.block = elseBlock
		g.genScopedBlock(node.Else)
		if g.block.Term == nil {
			g.block.NewBr(end)
		}
	}

	g.block = end
}

func (g *Generator) genWith(node *ast.With) {
	if name, ok := withLabelName(node); ok {
		g.genLabelScope(node, name)
		return
	}

	g.genScopedBlock(node.Body)
}

func (g *Generator) genLabelScope(node *ast.With, name string) {
	begin := g.newBlock("label.begin")
	end := g.newBlock("label.end")

	g.block.NewBr(begin)

	if g.fnLabels == nil {
		g.fnLabels = make(map[string]labelTargets)
	}
	g.fnLabels[name] = labelTargets{begin: begin, end: end, depth: len(g.scopeStack)}

	labelScope := &genScope{labelName: name, begin: begin, end: end}
	g.pushGenScope(labelScope)
	g.pushScope()

	body := g.newBlock("label.body")
	g.block = begin
	g.block.NewBr(body)
	g.block = body

	g.genBlockStmts(node.Body)

	// Fallthrough runs the label's defers before its end target.
	if g.block.Term == nil {
		g.emitDefers(labelScope)
		g.block.NewBr(end)
	}

	g.popScope()
	g.popGenScope()

	g.block = end
}

func (g *Generator) genGoto(call *ast.Call, isEnd bool) {
	lit, ok := call.Args[0].(*ast.Constant)
	if !ok {
		report.ReportICE("goto without a literal label")
	}

	name := lit.Value.(string)
	targets, found := g.fnLabels[name]
	if !found {
		report.ReportICE("goto to unresolved label `%s`", name)
	}

	// Run the defers of every scope being unwound: everything at or below
	// the label's own stack position.
	start := targets.depth
	if start > len(g.scopeStack) {
		start = len(g.scopeStack)
	}

	for i := len(g.scopeStack) - 1; i >= start; i-- {
		g.emitDefers(g.scopeStack[i])
	}

	if isEnd {
		g.block.NewBr(targets.end)
	} else {
		g.block.NewBr(targets.begin)
	}
}

// -----------------------------------------------------------------------------

func (g *Generator) genReturn(node *ast.Return) {
	// The return value is captured before any defers run.
	var val value.Value
	if node.Value != nil {
		val = g.genExpr(node.Value)
	}

	g.emitAllDefers()

	if val == nil || types.Equal(g.fn.Sig.RetType, types.Void) {
		g.block.NewRet(nil)
	} else {
		g.block.NewRet(val)
	}
}

func (g *Generator) genBreak() {
	for i := len(g.scopeStack) - 1; i >= 0; i-- {
		g.emitDefers(g.scopeStack[i])
		if g.scopeStack[i].isLoop {
			g.block.NewBr(g.scopeStack[i].loopBreak)
			return
		}
	}

	report.ReportICE("break outside of loop survived checking")
}

func (g *Generator) genContinue() {
	for i := len(g.scopeStack) - 1; i >= 0; i-- {
		if g.scopeStack[i].isLoop {
			g.block.NewBr(g.scopeStack[i].loopHead)
			return
		}

		g.emitDefers(g.scopeStack[i])
	}

	report.ReportICE("continue outside of loop survived checking")
}

// emitDefers emits a scope's deferred calls in FIFO order.
func (g *Generator) emitDefers(s *genScope) {
	for _, call := range s.defers {
		g.genCallValue(call)
	}
}

// emitAllDefers unwinds the whole scope stack, innermost scope first.
func (g *Generator) emitAllDefers() {
	for i := len(g.scopeStack) - 1; i >= 0; i-- {
		g.emitDefers(g.scopeStack[i])
	}
}

// -----------------------------------------------------------------------------

func (g *Generator) genMatch(node *ast.Match) {
	plan, ok := g.matchPlans(node)
	if !ok {
		report.ReportICE("match statement without a lowering plan")
	}

	subject := g.genExpr(node.Subject)
	end := g.newBlock("match.end")

	if plan.Strategy == match.StrategySwitch {
		g.genMatchSwitch(node, plan, subject, end)
	} else {
		g.genMatchChain(node, subject, end)
	}

	g.block = end
}

// genMatchSwitch emits a switch table over an integral subject.
func (g *Generator) genMatchSwitch(node *ast.Match, plan *match.Lowered, subject value.Value, end *ir.Block) {
	defaultBlock := end
	if plan.DefaultCase >= 0 {
		defaultBlock = g.newBlock("match.default")
	}

	var cases []*ir.Case
	armBlocks := make(map[int]*ir.Block)

	for _, arm := range plan.SwitchArms {
		armBlock := g.newBlock("match.arm")
		armBlocks[arm.CaseIndex] = armBlock

		intType, ok := subject.Type().(*types.IntType)
		if !ok {
			report.ReportICE("switch lowering over non-integer subject")
		}

		for _, v := range arm.Values {
			cases = append(cases, ir.NewCase(constant.NewInt(intType, v), armBlock))
		}
	}

	g.block.NewSwitch(subject, defaultBlock, cases...)

	for _, arm := range plan.SwitchArms {
		g.block = armBlocks[arm.CaseIndex]
		g.genScopedBlock(node.Cases[arm.CaseIndex].Body)
		if g.block.Term == nil {
			g.block.NewBr(end)
		}
	}

	if plan.DefaultCase >= 0 {
		g.block = defaultBlock
		g.genScopedBlock(node.Cases[plan.DefaultCase].Body)
		if g.block.Term == nil {
			g.block.NewBr(end)
		}
	}
}

// genMatchChain emits an if/elif chain testing arms in source order.
func (g *Generator) genMatchChain(node *ast.Match, subject value.Value, end *ir.Block) {
	subjectType := node.Subject.Type()

	for _, mc := range node.Cases {
		armBlock := g.newBlock("match.arm")
		nextBlock := g.newBlock("match.next")

		test := g.genPatternTest(mc.Pattern, subject, subjectType)

		if mc.Guard != nil {
			// The guard only evaluates once the pattern matched.
			guardBlock := g.newBlock("match.guard")
			g.block.NewCondBr(test, guardBlock, nextBlock)
			g.block = guardBlock
			test = g.genExpr(mc.Guard)
		}

		g.block.NewCondBr(test, armBlock, nextBlock)

		g.block = armBlock
		g.pushScope()
		g.genPatternBind(mc.Pattern, subject, subjectType)
		g.genScopedBlock(mc.Body)
		g.popScope()
		if g.block.Term == nil {
			g.block.NewBr(end)
		}

		g.block = nextBlock
	}

	// Exhaustiveness holds, so the trailing next block is unreachable.
	if g.block.Term == nil {
		g.block.NewUnreachable()
	}
}

// genPatternTest emits the boolean test for one pattern against the subject.
func (g *Generator) genPatternTest(pat ast.Pattern, subject value.Value, subjectType typing.DataType) value.Value {
	switch v := pat.(type) {
	case *ast.MatchAs:
		if v.Inner != nil {
			return g.genPatternTest(v.Inner, subject, subjectType)
		}

		return constant.NewBool(true)
	case *ast.MatchValue:
		return g.genValueTest(v, subject, subjectType)
	case *ast.MatchOr:
		var test value.Value
		for _, alt := range v.Alternatives {
			altTest := g.genPatternTest(alt, subject, subjectType)
			if test == nil {
				test = altTest
			} else {
				test = g.block.NewOr(test, altTest)
			}
		}

		return test
	case *ast.MatchClass:
		if tag, ok := g.enumVariantTag(v.Cls, subjectType); ok {
			return g.genTagTest(subject, subjectType, tag)
		}

		// Struct class patterns test their sub-patterns fieldwise.
		return g.genFieldTests(v.Positional, subject, subjectType)
	case *ast.MatchSequence:
		return g.genFieldTests(v.Elems, subject, subjectType)
	}

	return constant.NewBool(true)
}

func (g *Generator) genFieldTests(subs []ast.Pattern, subject value.Value, subjectType typing.DataType) value.Value {
	st, ok := typing.InnerType(subjectType).(*typing.StructType)
	if !ok {
		return constant.NewBool(true)
	}

	var test value.Value = constant.NewBool(true)
	for i, sub := range subs {
		if i >= len(st.Fields) {
			break
		}

		field := g.block.NewExtractValue(subject, uint64(i))
		test = g.block.NewAnd(test, g.genPatternTest(sub, field, st.Fields[i].Type))
	}

	return test
}

func (g *Generator) genValueTest(v *ast.MatchValue, subject value.Value, subjectType typing.DataType) value.Value {
	if tag, ok := g.enumVariantTag(v.Value, subjectType); ok {
		return g.genTagTest(subject, subjectType, tag)
	}

	lit := g.genExpr(v.Value)
	return g.genEquality(subject, lit)
}

// genTagTest compares an enum value's discriminant with a variant tag.
func (g *Generator) genTagTest(subject value.Value, subjectType typing.DataType, tag int64) value.Value {
	et, ok := typing.InnerType(subjectType).(*typing.EnumType)
	if !ok {
		report.ReportICE("tag test over non-enum subject")
	}

	tagVal := g.block.NewExtractValue(subject, 0)
	return g.genEquality(tagVal, constant.NewInt(types.NewInt(uint64(et.TagType.Width)), tag))
}

// enumVariantTag resolves `EnumName.Variant` references during emission.
func (g *Generator) enumVariantTag(expr ast.Expr, subjectType typing.DataType) (int64, bool) {
	et, ok := typing.InnerType(subjectType).(*typing.EnumType)
	if !ok {
		return 0, false
	}

	attr, ok := expr.(*ast.Attribute)
	if !ok {
		return 0, false
	}

	base, ok := attr.Value.(*ast.Name)
	if !ok || base.Id != et.Name {
		return 0, false
	}

	variant, found := et.Variant(attr.Attr)
	if !found {
		return 0, false
	}

	return variant.Tag, true
}

// genPatternBind introduces the values bound by a matched pattern.
func (g *Generator) genPatternBind(pat ast.Pattern, subject value.Value, subjectType typing.DataType) {
	switch v := pat.(type) {
	case *ast.MatchAs:
		if v.Name != "" {
			slot := g.block.NewAlloca(subject.Type())
			g.block.NewStore(subject, slot)
			g.defineLocal(v.Name, slot, false)
		}

		if v.Inner != nil {
			g.genPatternBind(v.Inner, subject, subjectType)
		}
	case *ast.MatchClass:
		if st, ok := typing.InnerType(subjectType).(*typing.StructType); ok {
			for i, sub := range v.Positional {
				if i < len(st.Fields) {
					field := g.block.NewExtractValue(subject, uint64(i))
					g.genPatternBind(sub, field, st.Fields[i].Type)
				}
			}

			for _, kw := range v.Keyword {
				if index := st.FieldIndex(kw.Name); index >= 0 {
					field := g.block.NewExtractValue(subject, uint64(index))
					g.genPatternBind(kw.Pattern, field, st.Fields[index].Type)
				}
			}
		}
	case *ast.MatchSequence:
		if st, ok := typing.InnerType(subjectType).(*typing.StructType); ok {
			for i, sub := range v.Elems {
				if i < len(st.Fields) {
					field := g.block.NewExtractValue(subject, uint64(i))
					g.genPatternBind(sub, field, st.Fields[i].Type)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// withLabelName matches `with label("X"):` during emission.
func withLabelName(node *ast.With) (string, bool) {
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

	lit, ok := call.Args[0].(*ast.Constant)
	if !ok {
		return "", false
	}

	name, ok := lit.Value.(string)
	return name, ok
}
