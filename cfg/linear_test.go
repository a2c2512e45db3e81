package cfg

import (
	"testing"

	"pythoc/ast"
	"pythoc/report"
	"pythoc/typing"
)

// linearEnv builds a checker that treats the listed variables as linear
// tokens.
func linearEnv(vars ...string) *LinearChecker {
	types := make(map[string]typing.DataType)
	for _, v := range vars {
		types[v] = &typing.LinearType{}
	}

	return &LinearChecker{VarType: func(name string) typing.DataType {
		return types[name]
	}}
}

func checkBody(t *testing.T, lc *LinearChecker, body []ast.Stmt) []*report.CompileError {
	t.Helper()

	g, _, errs := Build(body)
	if len(errs) != 0 {
		t.Fatalf("CFG construction failed: %v", errs)
	}

	return lc.Check(g, Snapshot{})
}

func assignCall(target, fn string, args ...ast.Expr) ast.Stmt {
	return &ast.Assign{
		Targets: []ast.Expr{name(target)},
		Value:   &ast.Call{Func: name(fn), Args: args},
	}
}

func consumeStmt(target string) ast.Stmt {
	return callStmt("consume", name(target))
}

// -----------------------------------------------------------------------------

func TestLinearMissingConsume(t *testing.T) {
	// t = linear() with no consume fails at function exit.
	body := []ast.Stmt{assignCall("t", "linear")}

	errs := checkBody(t, linearEnv("t"), body)
	if !hasErrorKind(errs, report.LinearExitNotConsumed) {
		t.Errorf("unconsumed token not reported, got %v", errs)
	}
}

func TestLinearCreateThenConsume(t *testing.T) {
	body := []ast.Stmt{
		assignCall("t", "linear"),
		consumeStmt("t"),
	}

	if errs := checkBody(t, linearEnv("t"), body); len(errs) != 0 {
		t.Errorf("well-formed create/consume rejected: %v", errs)
	}
}

func TestLinearBranchAsymmetry(t *testing.T) {
	// t = linear(); if cond: consume(t) -- states disagree at the join.
	body := []ast.Stmt{
		assignCall("t", "linear"),
		ifStmt(name("cond"), []ast.Stmt{consumeStmt("t")}, nil),
	}

	errs := checkBody(t, linearEnv("t"), body)
	if !hasErrorKind(errs, report.LinearInconsistentMerge) {
		t.Errorf("branch asymmetry not reported, got %v", errs)
	}
}

func TestLinearSymmetricBranches(t *testing.T) {
	body := []ast.Stmt{
		assignCall("t", "linear"),
		ifStmt(name("cond"),
			[]ast.Stmt{consumeStmt("t")},
			[]ast.Stmt{consumeStmt("t")},
		),
	}

	if errs := checkBody(t, linearEnv("t"), body); len(errs) != 0 {
		t.Errorf("symmetric consumption rejected: %v", errs)
	}
}

func TestLinearDoubleConsume(t *testing.T) {
	body := []ast.Stmt{
		assignCall("t", "linear"),
		consumeStmt("t"),
		consumeStmt("t"),
	}

	errs := checkBody(t, linearEnv("t"), body)
	if !hasErrorKind(errs, report.LinearUseAfterConsume) {
		t.Errorf("double consume not reported, got %v", errs)
	}
}

func TestLinearOverwriteLive(t *testing.T) {
	body := []ast.Stmt{
		assignCall("t", "linear"),
		assignCall("t", "linear"),
	}

	errs := checkBody(t, linearEnv("t"), body)
	if !hasErrorKind(errs, report.LinearOverwrite) {
		t.Errorf("overwrite of live token not reported, got %v", errs)
	}
}

func TestLinearCopyForbidden(t *testing.T) {
	body := []ast.Stmt{
		assignCall("t", "linear"),
		&ast.Assign{Targets: []ast.Expr{name("u")}, Value: name("t")},
		consumeStmt("t"),
		consumeStmt("u"),
	}

	errs := checkBody(t, linearEnv("t", "u"), body)
	if !hasErrorKind(errs, report.LinearCopy) {
		t.Errorf("linear copy not reported, got %v", errs)
	}
}

func TestLinearMove(t *testing.T) {
	// u = move(t): t consumed, u live; consuming u finishes cleanly.
	body := []ast.Stmt{
		assignCall("t", "linear"),
		assignCall("u", "move", name("t")),
		consumeStmt("u"),
	}

	if errs := checkBody(t, linearEnv("t", "u"), body); len(errs) != 0 {
		t.Errorf("move rejected: %v", errs)
	}
}

func TestLinearUseAfterMove(t *testing.T) {
	body := []ast.Stmt{
		assignCall("t", "linear"),
		assignCall("u", "move", name("t")),
		consumeStmt("t"),
		consumeStmt("u"),
	}

	errs := checkBody(t, linearEnv("t", "u"), body)
	if !hasErrorKind(errs, report.LinearUseAfterConsume) {
		t.Errorf("use after move not reported, got %v", errs)
	}
}

func TestLinearUndefinedConsume(t *testing.T) {
	body := []ast.Stmt{consumeStmt("t")}

	errs := checkBody(t, linearEnv("t"), body)
	if !hasErrorKind(errs, report.LinearUndefined) {
		t.Errorf("consume of undefined token not reported, got %v", errs)
	}
}

func TestLinearCallConsumesArgument(t *testing.T) {
	// Passing a linear value to a call transfers ownership to the callee.
	body := []ast.Stmt{
		assignCall("t", "linear"),
		callStmt("sink", name("t")),
	}

	if errs := checkBody(t, linearEnv("t"), body); len(errs) != 0 {
		t.Errorf("ownership transfer through call rejected: %v", errs)
	}
}

func TestLinearDeferConsumesAtExit(t *testing.T) {
	// defer(release, t) does not consume at registration; the expanded
	// deferred call consumes the token on the exit edge, so the function
	// checks cleanly.
	body := []ast.Stmt{
		assignCall("t", "linear"),
		deferStmt("release", name("t")),
	}

	if errs := checkBody(t, linearEnv("t"), body); len(errs) != 0 {
		t.Errorf("defer-consumed token rejected: %v", errs)
	}
}

func TestLinearDeferDoubleConsume(t *testing.T) {
	// Consuming the token before scope exit leaves the deferred call with a
	// dead token.
	body := []ast.Stmt{
		assignCall("t", "linear"),
		deferStmt("release", name("t")),
		consumeStmt("t"),
	}

	errs := checkBody(t, linearEnv("t"), body)
	if !hasErrorKind(errs, report.LinearUseAfterConsume) {
		t.Errorf("deferred double consume not reported, got %v", errs)
	}
}

func TestLinearLoopBackEdgeConsume(t *testing.T) {
	// Consuming a pre-loop token inside the loop body changes state on the
	// back edge.
	body := []ast.Stmt{
		assignCall("t", "linear"),
		&ast.While{Cond: name("cond"), Body: []ast.Stmt{consumeStmt("t")}},
	}

	errs := checkBody(t, linearEnv("t"), body)
	if !hasErrorKind(errs, report.LinearInconsistentMerge) {
		t.Errorf("back-edge consumption not reported, got %v", errs)
	}
}

func TestLinearReturnMovesOut(t *testing.T) {
	// Returning the token moves it out of the function.
	body := []ast.Stmt{
		assignCall("t", "linear"),
		&ast.Return{Value: name("t")},
	}

	if errs := checkBody(t, linearEnv("t"), body); len(errs) != 0 {
		t.Errorf("return of live token rejected: %v", errs)
	}
}

func TestLinearReturnConsumedFails(t *testing.T) {
	body := []ast.Stmt{
		assignCall("t", "linear"),
		consumeStmt("t"),
		&ast.Return{Value: name("t")},
	}

	errs := checkBody(t, linearEnv("t"), body)
	if !hasErrorKind(errs, report.LinearUseAfterConsume) {
		t.Errorf("return of consumed token not reported, got %v", errs)
	}
}

func TestLinearFieldPathsTrackIndependently(t *testing.T) {
	// A struct with two linear fields: consuming one leaves the other
	// live.
	pairType := &typing.StructType{Fields: []typing.Field{
		{Name: "a", Type: &typing.LinearType{}},
		{Name: "b", Type: &typing.LinearType{}},
	}}

	lc := &LinearChecker{VarType: func(v string) typing.DataType {
		if v == "s" {
			return pairType
		}

		return nil
	}}

	body := []ast.Stmt{
		&ast.ExprStmt{X: &ast.Call{Func: name("consume"), Args: []ast.Expr{
			&ast.Attribute{Value: name("s"), Attr: "a"},
		}}},
	}

	g, _, errs := Build(body)
	if len(errs) != 0 {
		t.Fatalf("CFG construction failed: %v", errs)
	}

	initial := Snapshot{
		{Var: "s", Path: ".0"}: LinearLive,
		{Var: "s", Path: ".1"}: LinearLive,
	}

	linearErrs := lc.Check(g, initial)
	if !hasErrorKind(linearErrs, report.LinearExitNotConsumed) {
		t.Error("sibling field not reported unconsumed")
	}

	witnessed := false
	for _, err := range linearErrs {
		for _, w := range err.Witness {
			if w == "s.1" {
				witnessed = true
			}
			if w == "s.0" {
				t.Error("consumed field reported as unconsumed")
			}
		}
	}

	if !witnessed {
		t.Error("witness for unconsumed field missing")
	}
}
