package cfg

import (
	"testing"

	"pythoc/ast"
	"pythoc/report"
)

// --- AST construction helpers ------------------------------------------------

func name(id string) *ast.Name {
	return &ast.Name{Id: id}
}

func strLit(s string) *ast.Constant {
	return &ast.Constant{Value: s}
}

func callStmt(fn string, args ...ast.Expr) ast.Stmt {
	return &ast.ExprStmt{X: &ast.Call{Func: name(fn), Args: args}}
}

func deferStmt(fn string, args ...ast.Expr) ast.Stmt {
	deferArgs := append([]ast.Expr{name(fn)}, args...)
	return callStmt("defer", deferArgs...)
}

func labelWith(label string, body ...ast.Stmt) ast.Stmt {
	return &ast.With{
		Items: []ast.WithItem{{Context: &ast.Call{Func: name("label"), Args: []ast.Expr{strLit(label)}}}},
		Body:  body,
	}
}

func gotoStmt(label string) ast.Stmt {
	return callStmt("goto", strLit(label))
}

func gotoEndStmt(label string) ast.Stmt {
	return callStmt("goto_end", strLit(label))
}

func ifStmt(cond ast.Expr, body, elseBody []ast.Stmt) ast.Stmt {
	return &ast.If{Cond: cond, Body: body, Else: elseBody}
}

func hasErrorKind(errs []*report.CompileError, kind report.ErrorKind) bool {
	for _, err := range errs {
		if err.Kind == kind {
			return true
		}
	}

	return false
}

// collectCalls gathers the callee names of every call statement in the graph
// in block order, following each block's statement order.
func collectCalls(g *Graph) []string {
	var calls []string

	for id := 0; id < g.NumBlocks(); id++ {
		block := g.Block(id)
		if block == nil {
			continue
		}

		for _, stmt := range block.Stmts {
			if es, ok := stmt.(*ast.ExprStmt); ok {
				if call, ok := es.X.(*ast.Call); ok {
					if fn, ok := call.Func.(*ast.Name); ok {
						calls = append(calls, fn.Id)
					}
				}
			}
		}
	}

	return calls
}

// -----------------------------------------------------------------------------

func TestDeferFIFOOnFallthrough(t *testing.T) {
	// defer(A); defer(B) -- normal exit runs A then B.
	body := []ast.Stmt{
		deferStmt("A"),
		deferStmt("B"),
	}

	g, _, errs := Build(body)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	calls := collectCalls(g)
	if len(calls) != 2 || calls[0] != "A" || calls[1] != "B" {
		t.Errorf("defers ran in order %v, want [A B]", calls)
	}
}

func TestDeferRunsOnReturn(t *testing.T) {
	body := []ast.Stmt{
		deferStmt("cleanup"),
		&ast.Return{},
	}

	g, _, errs := Build(body)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	calls := collectCalls(g)
	found := false
	for _, c := range calls {
		if c == "cleanup" {
			found = true
		}
	}

	if !found {
		t.Error("deferred call not expanded on the return edge")
	}
}

func TestUnreachableAfterReturn(t *testing.T) {
	body := []ast.Stmt{
		&ast.Return{},
		callStmt("dead"),
	}

	_, _, errs := Build(body)
	if !hasErrorKind(errs, report.UnreachableAfterReturn) {
		t.Error("statement after return not reported unreachable")
	}
}

func TestGotoForwardReference(t *testing.T) {
	// goto before its label, landing on a sibling: legal.
	body := []ast.Stmt{
		labelWith("A", gotoStmt("B")),
		labelWith("B", callStmt("work")),
	}

	_, _, errs := Build(body)
	if len(errs) != 0 {
		t.Errorf("forward goto to sibling rejected: %v", errs)
	}
}

func TestGotoToInvisibleLabel(t *testing.T) {
	// B is nested inside A; from outside A, B is neither ancestor nor
	// uncle.
	body := []ast.Stmt{
		labelWith("A", labelWith("B", &ast.Pass{})),
		gotoStmt("B"),
	}

	_, _, errs := Build(body)
	if !hasErrorKind(errs, report.LabelNotVisible) {
		t.Error("goto to nephew label accepted")
	}
}

func TestGotoEndToUncleRejected(t *testing.T) {
	// goto_end targets must be the current label or an ancestor; a sibling
	// (uncle of the jump point) is visible to goto but not to goto_end.
	body := []ast.Stmt{
		labelWith("A", &ast.Pass{}),
		labelWith("B", gotoEndStmt("A")),
	}

	_, _, errs := Build(body)
	if !hasErrorKind(errs, report.GotoEndToUncle) {
		t.Error("goto_end to uncle accepted")
	}
}

func TestGotoEndToAncestor(t *testing.T) {
	body := []ast.Stmt{
		labelWith("outer",
			deferStmt("cleanup"),
			labelWith("inner", gotoEndStmt("outer")),
		),
	}

	g, _, errs := Build(body)
	if len(errs) != 0 {
		t.Fatalf("goto_end to ancestor rejected: %v", errs)
	}

	// The outer label's defers run on the jump edge.
	found := false
	for _, c := range collectCalls(g) {
		if c == "cleanup" {
			found = true
		}
	}

	if !found {
		t.Error("ancestor label defers skipped by goto_end")
	}
}

func TestBreakOutsideLoop(t *testing.T) {
	_, _, errs := Build([]ast.Stmt{&ast.Break{}})
	if len(errs) == 0 {
		t.Error("break outside loop accepted")
	}
}

func TestLoopBackEdge(t *testing.T) {
	body := []ast.Stmt{
		&ast.While{Cond: name("cond"), Body: []ast.Stmt{callStmt("work")}},
	}

	g, _, errs := Build(body)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	backEdges := 0
	for id := 0; id < g.NumBlocks(); id++ {
		for _, e := range g.Successors(id) {
			if e.Kind == EdgeLoopBack {
				backEdges++
			}
		}
	}

	if backEdges != 1 {
		t.Errorf("found %d loop back edges, want 1", backEdges)
	}
}

func TestIfProducesMerge(t *testing.T) {
	body := []ast.Stmt{
		ifStmt(name("cond"), []ast.Stmt{callStmt("a")}, []ast.Stmt{callStmt("b")}),
		callStmt("after"),
	}

	g, _, errs := Build(body)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	// Some block has two predecessors: the post-if merge point.
	merged := false
	for id := 0; id < g.NumBlocks(); id++ {
		if len(g.Predecessors(id)) == 2 {
			merged = true
		}
	}

	if !merged {
		t.Error("if/else produced no merge point")
	}
}
