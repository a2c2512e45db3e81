package walk

import (
	"testing"

	"pythoc/ast"
	"pythoc/depm"
	"pythoc/effects"
	"pythoc/inline"
	"pythoc/report"
	"pythoc/typing"
)

// --- fixtures ----------------------------------------------------------------

func i32() *typing.IntType {
	return &typing.IntType{Signed: true, Width: 32}
}

func name(id string) *ast.Name {
	return &ast.Name{Id: id}
}

func intLit(v int64) *ast.Constant {
	return &ast.Constant{Value: v}
}

func callExpr(fn string, args ...ast.Expr) *ast.Call {
	return &ast.Call{Func: name(fn), Args: args}
}

func annot(typeName string) ast.Expr {
	return name(typeName)
}

func fnDef(fnName string, params []ast.Param, returns ast.Expr, body ...ast.Stmt) *ast.FuncDef {
	return &ast.FuncDef{
		DefBase: ast.NewDefBase(map[string]string{"compile": ""}),
		Name:    fnName,
		Params:  params,
		Returns: returns,
		Body:    body,
	}
}

// testSession builds a walker with a predicate `is_positive` and a sink
// function registered.
func testSession(t *testing.T) *Walker {
	t.Helper()

	symTable := depm.NewSymbolTable()

	predType := &typing.FuncType{Params: []typing.DataType{i32()}, ReturnType: typing.PrimBool}
	if err := symTable.DefineGlobal(&depm.Symbol{
		Name: "is_positive", DefKind: depm.DKFunction, Type: predType,
	}); err != nil {
		t.Fatal(err)
	}

	sinkType := &typing.FuncType{Params: []typing.DataType{i32()}, ReturnType: typing.PrimVoid}
	if err := symTable.DefineGlobal(&depm.Symbol{
		Name: "sink", DefKind: depm.DKFunction, Type: sinkType,
	}); err != nil {
		t.Fatal(err)
	}

	return NewWalker(symTable, depm.NewUniverse(), typing.NewArena(),
		effects.NewTable(), effects.NewReadGraph(), inline.NewKernel())
}

func hasKind(errs []*report.CompileError, kind report.ErrorKind) bool {
	for _, err := range errs {
		if err.Kind == kind {
			return true
		}
	}

	return false
}

// --- refine lowering ---------------------------------------------------------

func TestRefineLoopLowersToGuard(t *testing.T) {
	// for x in refine(5, is_positive): sink(x)
	// else: sink(0)
	loop := &ast.For{
		Target: name("x"),
		Iter:   callExpr("refine", intLit(5), name("is_positive")),
		Body:   []ast.Stmt{&ast.ExprStmt{X: callExpr("sink", name("x"))}},
		Else:   []ast.Stmt{&ast.ExprStmt{X: callExpr("sink", intLit(0))}},
	}

	fn := fnDef("f", nil, nil, loop)

	w := testSession(t)
	errs := w.WalkDef(fn)
	if len(errs) != 0 {
		t.Fatalf("refine loop rejected: %v", errs)
	}

	// The loop lowers into a single if whose condition calls the predicate
	// and whose then-branch binds x before the body.
	if len(fn.Body) != 1 {
		t.Fatalf("expected 1 lowered statement, got %d", len(fn.Body))
	}

	lowered, ok := fn.Body[0].(*ast.If)
	if !ok {
		t.Fatalf("refine loop lowered to %T, want *ast.If", fn.Body[0])
	}

	cond, ok := lowered.Cond.(*ast.Call)
	if !ok {
		t.Fatal("lowered condition is not a predicate call")
	}
	if cond.Func.(*ast.Name).Id != "is_positive" {
		t.Errorf("condition calls %q, want is_positive", cond.Func.(*ast.Name).Id)
	}

	if len(lowered.Else) != 1 {
		t.Error("for-else body lost in lowering")
	}

	bind, ok := lowered.Body[0].(*ast.Assign)
	if !ok || bind.Targets[0].(*ast.Name).Id != "x" {
		t.Error("then-branch does not bind the loop variable first")
	}
}

func TestRefineConjunction(t *testing.T) {
	w := testSession(t)

	isEven := &typing.FuncType{Params: []typing.DataType{i32()}, ReturnType: typing.PrimBool}
	if err := w.SymTable.DefineGlobal(&depm.Symbol{Name: "is_even", DefKind: depm.DKFunction, Type: isEven}); err != nil {
		t.Fatal(err)
	}

	loop := &ast.For{
		Target: name("x"),
		Iter:   callExpr("refine", intLit(6), name("is_positive"), name("is_even")),
		Body:   []ast.Stmt{&ast.Pass{}},
	}

	fn := fnDef("f", nil, nil, loop)
	if errs := w.WalkDef(fn); len(errs) != 0 {
		t.Fatalf("multi-predicate refine rejected: %v", errs)
	}

	lowered := fn.Body[0].(*ast.If)
	conj, ok := lowered.Cond.(*ast.BinaryOp)
	if !ok || conj.Op != "and" {
		t.Error("two predicates did not lower to a conjunction")
	}
}

func TestRefineOutsideForLoop(t *testing.T) {
	fn := fnDef("f", nil, nil,
		&ast.ExprStmt{X: callExpr("refine", intLit(5), name("is_positive"))},
	)

	w := testSession(t)
	errs := w.WalkDef(fn)
	if !hasKind(errs, report.RefineOutsideForLoop) {
		t.Errorf("refine outside for loop not reported, got %v", errs)
	}
}

// --- assume and conversions --------------------------------------------------

func TestAssumeProducesRefinedType(t *testing.T) {
	// x: refined[i32, is_positive] = assume(5, is_positive)
	fn := fnDef("f", nil, nil,
		&ast.AnnAssign{
			Target: name("x"),
			Annot: &ast.Subscript{
				Value:   name("refined"),
				Indices: []ast.Expr{name("i32"), name("is_positive")},
			},
			Value: callExpr("assume", intLit(5), name("is_positive")),
		},
	)

	w := testSession(t)
	if errs := w.WalkDef(fn); len(errs) != 0 {
		t.Fatalf("assume into matching refined type rejected: %v", errs)
	}

	rt, ok := typing.InnerType(w.VarTypes()["x"]).(*typing.RefinedType)
	if !ok {
		t.Fatal("x did not receive a refined type")
	}

	if !rt.HasPredicate("is_positive") {
		t.Error("refined type lost its predicate")
	}
}

func TestBaseToRefinedRejected(t *testing.T) {
	// x: refined[i32, is_positive] = 5  -- no proof.
	fn := fnDef("f", nil, nil,
		&ast.AnnAssign{
			Target: name("x"),
			Annot: &ast.Subscript{
				Value:   name("refined"),
				Indices: []ast.Expr{name("i32"), name("is_positive")},
			},
			Value: intLit(5),
		},
	)

	w := testSession(t)
	errs := w.WalkDef(fn)
	if !hasKind(errs, report.RefineBaseToRefined) {
		t.Errorf("base-to-refined assignment not reported, got %v", errs)
	}
}

func TestRefinedToBaseAllowed(t *testing.T) {
	// Forgetting the refinement is free.
	fn := fnDef("f", nil, nil,
		&ast.AnnAssign{
			Target: name("x"),
			Annot: &ast.Subscript{
				Value:   name("refined"),
				Indices: []ast.Expr{name("i32"), name("is_positive")},
			},
			Value: callExpr("assume", intLit(5), name("is_positive")),
		},
		&ast.AnnAssign{
			Target: name("y"),
			Annot:  annot("i32"),
			Value:  name("x"),
		},
	)

	w := testSession(t)
	if errs := w.WalkDef(fn); len(errs) != 0 {
		t.Errorf("refined-to-base conversion rejected: %v", errs)
	}
}

// --- effects -----------------------------------------------------------------

func TestEffectReadRecorded(t *testing.T) {
	w := testSession(t)
	w.Effects.SetDefault("rng", &effects.Impl{Value: int64(42)})

	fn := fnDef("f", nil, nil,
		&ast.AnnAssign{
			Target: name("x"),
			Annot:  annot("i32"),
			Value:  &ast.Attribute{Value: name("effect"), Attr: "rng"},
		},
	)

	if errs := w.WalkDef(fn); len(errs) != 0 {
		t.Fatalf("value effect read rejected: %v", errs)
	}

	reads := w.Reads.TransitiveReads("f")
	if _, ok := reads["rng"]; !ok {
		t.Error("effect read not recorded for propagation")
	}
}

func TestEffectUnboundReported(t *testing.T) {
	fn := fnDef("f", nil, nil,
		&ast.ExprStmt{X: &ast.Attribute{Value: name("effect"), Attr: "missing"}},
	)

	w := testSession(t)
	errs := w.WalkDef(fn)
	if !hasKind(errs, report.EffectUnbound) {
		t.Errorf("unbound effect not reported, got %v", errs)
	}
}

func TestScopedOverrideRestoredAfterBody(t *testing.T) {
	w := testSession(t)
	w.Effects.SetDefault("rng", &effects.Impl{Value: int64(1)})

	// with effect(rng=2, suffix="mock"): x: i32 = effect.rng
	fn := fnDef("f", nil, nil,
		&ast.With{
			Items: []ast.WithItem{{Context: &ast.Call{
				Func: name("effect"),
				Keywords: []ast.Keyword{
					{Name: "rng", Value: intLit(2)},
					{Name: "suffix", Value: &ast.Constant{Value: "mock"}},
				},
			}}},
			Body: []ast.Stmt{&ast.AnnAssign{
				Target: name("x"),
				Annot:  annot("i32"),
				Value:  &ast.Attribute{Value: name("effect"), Attr: "rng"},
			}},
		},
	)

	if errs := w.WalkDef(fn); len(errs) != 0 {
		t.Fatalf("scoped override rejected: %v", errs)
	}

	if w.Effects.OverrideDepth() != 0 {
		t.Error("override frame leaked past its scope")
	}

	// Outside the with, the default is live again.
	impl, err := w.Effects.Resolve("rng", nil)
	if err != nil || impl.Value != int64(1) {
		t.Error("default binding not restored after scope exit")
	}
}

// --- inline transforms -------------------------------------------------------

func TestInlineCallExpanded(t *testing.T) {
	w := testSession(t)

	// @inline def double(v: i32) -> i32: return v + v
	double := &ast.FuncDef{
		DefBase: ast.NewDefBase(map[string]string{"inline": ""}),
		Name:    "double",
		Params:  []ast.Param{{Name: "v", Annot: annot("i32")}},
		Returns: annot("i32"),
		Body: []ast.Stmt{&ast.Return{
			Value: &ast.BinaryOp{Op: "+", Left: name("v"), Right: name("v")},
		}},
	}

	if err := w.SymTable.DefineGlobal(&depm.Symbol{
		Name:    "double",
		DefKind: depm.DKFunction,
		Type:    &typing.FuncType{Params: []typing.DataType{i32()}, ReturnType: i32()},
		FuncAST: double,
		Inline:  true,
	}); err != nil {
		t.Fatal(err)
	}

	fn := fnDef("f", nil, nil,
		&ast.Assign{Targets: []ast.Expr{name("r")}, Value: callExpr("double", intLit(3))},
	)

	if errs := w.WalkDef(fn); len(errs) != 0 {
		t.Fatalf("inline expansion failed: %v", errs)
	}

	// The call is gone: the body now starts with the parameter binding.
	if len(fn.Body) < 2 {
		t.Fatalf("expansion produced %d statements", len(fn.Body))
	}

	bind, ok := fn.Body[0].(*ast.Assign)
	if !ok || bind.Targets[0].(*ast.Name).Id != "v" {
		t.Error("expansion does not start with the parameter binding")
	}
}

// --- match checking ----------------------------------------------------------

func TestMatchNonExhaustiveInFunction(t *testing.T) {
	fn := fnDef("f", []ast.Param{{Name: "b", Annot: annot("bool")}}, nil,
		&ast.Match{
			Subject: name("b"),
			Cases: []ast.MatchCase{
				{Pattern: &ast.MatchValue{Value: &ast.Constant{Value: true}}, Body: []ast.Stmt{&ast.Pass{}}},
			},
		},
	)

	w := testSession(t)
	errs := w.WalkDef(fn)
	if !hasKind(errs, report.MatchNonExhaustive) {
		t.Errorf("non-exhaustive bool match not reported, got %v", errs)
	}
}

func TestMatchExhaustiveBool(t *testing.T) {
	fn := fnDef("f", []ast.Param{{Name: "b", Annot: annot("bool")}}, nil,
		&ast.Match{
			Subject: name("b"),
			Cases: []ast.MatchCase{
				{Pattern: &ast.MatchValue{Value: &ast.Constant{Value: true}}, Body: []ast.Stmt{&ast.Pass{}}},
				{Pattern: &ast.MatchValue{Value: &ast.Constant{Value: false}}, Body: []ast.Stmt{&ast.Pass{}}},
			},
		},
	)

	w := testSession(t)
	if errs := w.WalkDef(fn); len(errs) != 0 {
		t.Errorf("exhaustive bool match rejected: %v", errs)
	}
}
