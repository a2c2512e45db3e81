package inline

import (
	"strings"
	"testing"

	"pythoc/ast"
	"pythoc/report"
)

// --- AST construction helpers ------------------------------------------------

func name(id string) *ast.Name {
	return &ast.Name{Id: id}
}

func intLit(v int64) *ast.Constant {
	return &ast.Constant{Value: v}
}

func assign(target string, value ast.Expr) ast.Stmt {
	return &ast.Assign{Targets: []ast.Expr{name(target)}, Value: value}
}

func ret(value ast.Expr) ast.Stmt {
	return &ast.Return{Value: value}
}

func yieldStmt(value ast.Expr) ast.Stmt {
	return &ast.ExprStmt{X: &ast.Yield{Value: value}}
}

func callExpr(fn string, args ...ast.Expr) *ast.Call {
	return &ast.Call{Func: name(fn), Args: args}
}

func funcDef(fnName string, params []string, body ...ast.Stmt) *ast.FuncDef {
	ps := make([]ast.Param, len(params))
	for i, p := range params {
		ps[i] = ast.Param{Name: p}
	}

	return &ast.FuncDef{DefBase: ast.NewDefBase(nil), Name: fnName, Params: ps, Body: body}
}

// --- classification ----------------------------------------------------------

func TestClassify(t *testing.T) {
	// def f(p): tmp = p + captured; return tmp
	body := []ast.Stmt{
		assign("tmp", &ast.BinaryOp{Op: "+", Left: name("p"), Right: name("captured")}),
		ret(name("tmp")),
	}

	cls := Classify([]string{"p"}, body)

	if _, ok := cls.Params["p"]; !ok {
		t.Error("p not classified as parameter")
	}
	if _, ok := cls.Locals["tmp"]; !ok {
		t.Error("tmp not classified as local")
	}
	if _, ok := cls.Captures["captured"]; !ok {
		t.Error("captured not classified as capture")
	}
	if _, ok := cls.Locals["captured"]; ok {
		t.Error("captured wrongly classified as local")
	}
}

// --- return-rule expansion ---------------------------------------------------

func TestExpandCallRenamesLocalsOnly(t *testing.T) {
	// def f(p): tmp = p + captured; return tmp
	callee := funcDef("f", []string{"p"},
		assign("tmp", &ast.BinaryOp{Op: "+", Left: name("p"), Right: name("captured")}),
		ret(name("tmp")),
	)

	k := NewKernel()
	stmts, err := k.ExpandCall("f", callee, callExpr("f", intLit(1)), "result", nil)
	if err != nil {
		t.Fatalf("ExpandCall failed: %v", err)
	}

	// First statement binds the parameter in declaration order.
	bind, ok := stmts[0].(*ast.Assign)
	if !ok {
		t.Fatalf("first statement is not a parameter binding")
	}
	if bind.Targets[0].(*ast.Name).Id != "p" {
		t.Errorf("parameter binding targets %q, want p", bind.Targets[0].(*ast.Name).Id)
	}

	var sawLocal, sawCapture, sawResult bool
	for _, stmt := range stmts {
		ast.WalkStmtExprs(stmt, func(e ast.Expr) {
			ast.WalkExprNames(e, func(n *ast.Name) {
				switch {
				case strings.HasPrefix(n.Id, "tmp_inline_"):
					sawLocal = true
				case n.Id == "tmp":
					t.Error("local `tmp` escaped renaming")
				case n.Id == "captured":
					sawCapture = true
				case n.Id == "result":
					sawResult = true
				}
			})
		})

		if a, ok := stmt.(*ast.Assign); ok {
			if n, ok := a.Targets[0].(*ast.Name); ok && strings.HasPrefix(n.Id, "tmp_inline_") {
				sawLocal = true
			}
		}
	}

	if !sawLocal {
		t.Error("no renamed local found in expansion")
	}
	if !sawCapture {
		t.Error("capture was renamed or dropped")
	}
	if !sawResult {
		t.Error("return was not redirected to the result variable")
	}
}

func TestExpandCallRejectsGenerator(t *testing.T) {
	callee := funcDef("g", nil, yieldStmt(intLit(1)))

	k := NewKernel()
	if _, err := k.ExpandCall("g", callee, callExpr("g"), "r", nil); err == nil {
		t.Error("generator accepted by return-rule expansion")
	}
}

func TestExpandRejectsArityMismatch(t *testing.T) {
	callee := funcDef("f", []string{"a", "b"}, ret(name("a")))

	k := NewKernel()
	if _, err := k.ExpandCall("f", callee, callExpr("f", intLit(1)), "r", nil); err == nil {
		t.Error("arity mismatch accepted")
	}
}

func TestRecursiveInlineRejected(t *testing.T) {
	// def f(): f()  -- expanding the body re-enters f.
	callee := funcDef("f", nil, &ast.ExprStmt{X: callExpr("f")})

	k := NewKernel()
	op, err := k.NewOp("f", callee, nil, &ReturnRule{}, nil, nil)
	if err != nil {
		t.Fatalf("NewOp failed: %v", err)
	}

	k.active["f"] = struct{}{}
	if _, cerr := k.Expand(op); cerr == nil || cerr.Kind != report.RecursiveInline {
		t.Error("recursive inlining not rejected")
	}
}

func TestInlineIDsAreUnique(t *testing.T) {
	callee := funcDef("f", nil, assign("tmp", intLit(1)))

	k := NewKernel()
	seen := make(map[int]struct{})
	for i := 0; i < 4; i++ {
		op, err := k.NewOp("f", callee, nil, &ReturnRule{}, nil, nil)
		if err != nil {
			t.Fatalf("NewOp failed: %v", err)
		}

		if _, dup := seen[op.InlineID]; dup {
			t.Fatalf("inline id %d reused", op.InlineID)
		}
		seen[op.InlineID] = struct{}{}
	}
}

// --- generator expansion -----------------------------------------------------

func TestExpandGeneratorLoop(t *testing.T) {
	// def gen(): yield 0; yield 1
	gen := funcDef("gen", nil, yieldStmt(intLit(0)), yieldStmt(intLit(1)))

	loop := &ast.For{
		Target: name("x"),
		Iter:   callExpr("gen"),
		Body:   []ast.Stmt{&ast.ExprStmt{X: callExpr("use", name("x"))}},
	}

	k := NewKernel()
	stmts, err := k.ExpandGeneratorLoop(loop, "gen", gen, callExpr("gen"), nil)
	if err != nil {
		t.Fatalf("ExpandGeneratorLoop failed: %v", err)
	}

	// Each yield contributes an assignment to x plus a spliced loop body:
	// count assignments to x in the expansion.
	assignCount := 0
	var countBlock func(stmts []ast.Stmt)
	countBlock = func(stmts []ast.Stmt) {
		ast.WalkBlock(stmts, func(stmt ast.Stmt) bool {
			if a, ok := stmt.(*ast.Assign); ok {
				if n, ok := a.Targets[0].(*ast.Name); ok && n.Id == "x" {
					assignCount++
				}
			}

			return true
		})
	}
	countBlock(stmts)

	if assignCount != 2 {
		t.Errorf("expected 2 yield assignments, found %d", assignCount)
	}
}

func TestExpandGeneratorRejectsValueReturn(t *testing.T) {
	gen := funcDef("gen", nil, yieldStmt(intLit(0)), ret(intLit(5)))

	loop := &ast.For{Target: name("x"), Iter: callExpr("gen"), Body: []ast.Stmt{}}

	k := NewKernel()
	if _, err := k.ExpandGeneratorLoop(loop, "gen", gen, callExpr("gen"), nil); err == nil {
		t.Error("generator with value return accepted")
	}
}

func TestExpandGeneratorRequiresYield(t *testing.T) {
	gen := funcDef("gen", nil, ret(nil))

	loop := &ast.For{Target: name("x"), Iter: callExpr("gen"), Body: []ast.Stmt{}}

	k := NewKernel()
	if _, err := k.ExpandGeneratorLoop(loop, "gen", gen, callExpr("gen"), nil); err == nil {
		t.Error("yield-less callee accepted as generator")
	}
}

// --- idempotence -------------------------------------------------------------

func TestExpansionIsStableUpToIDs(t *testing.T) {
	callee := funcDef("f", []string{"p"},
		assign("tmp", name("p")),
		ret(name("tmp")),
	)

	expand := func(k *Kernel) []ast.Stmt {
		stmts, err := k.ExpandCall("f", callee, callExpr("f", intLit(3)), "r", nil)
		if err != nil {
			t.Fatalf("ExpandCall failed: %v", err)
		}

		return stmts
	}

	a := expand(NewKernel())
	b := expand(NewKernel())

	if len(a) != len(b) {
		t.Fatalf("expansions differ in length: %d vs %d", len(a), len(b))
	}
}
